package session

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	store, err := NewRedisStore("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("failed to create redis store: %v", err)
	}
	return store, s
}

func TestNewRedisStore(t *testing.T) {
	s := miniredis.RunT(t)
	defer s.Close()

	store, err := NewRedisStore("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("NewRedisStore failed: %v", err)
	}
	defer store.Close()

	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestRedisSurveyRoundTrip(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()

	if got, err := store.GetSurvey(ctx, 42); err != nil || got != nil {
		t.Fatalf("expected nil session before put, got %v err %v", got, err)
	}

	sess := NewSurvey(UserRef{ID: 42, Handle: "alice"})
	sess.Answer("FULL_NAME", "Alice")
	sess.Next(10)
	sess.Answer("LAST_POSITION", "Teacher")

	if err := store.PutSurvey(ctx, 42, sess); err != nil {
		t.Fatalf("PutSurvey failed: %v", err)
	}

	got, err := store.GetSurvey(ctx, 42)
	if err != nil {
		t.Fatalf("GetSurvey failed: %v", err)
	}
	if got.Cursor != 1 {
		t.Errorf("cursor = %d, want 1", got.Cursor)
	}
	if got.Answers["LAST_POSITION"] != "Teacher" {
		t.Errorf("answers lost in round trip: %+v", got.Answers)
	}
	if got.User.ID != 42 || got.User.Handle != "alice" {
		t.Errorf("user identity lost: %+v", got.User)
	}
}

func TestRedisCaseRoundTrip(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()

	sess := NewCase(UserRef{ID: 7, Handle: "bob"})
	sess.Answer("my answer")
	sess.Next(3)

	if err := store.PutCase(ctx, 7, sess); err != nil {
		t.Fatalf("PutCase failed: %v", err)
	}

	got, err := store.GetCase(ctx, 7)
	if err != nil {
		t.Fatalf("GetCase failed: %v", err)
	}
	if got.Cursor != 1 || got.Answers[0] != "my answer" {
		t.Errorf("case session lost state: %+v", got)
	}
}

func TestRedisEvict(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()

	if err := store.PutSurvey(ctx, 1, NewSurvey(UserRef{ID: 1})); err != nil {
		t.Fatal(err)
	}
	if err := store.PutCase(ctx, 1, NewCase(UserRef{ID: 1})); err != nil {
		t.Fatal(err)
	}

	if err := store.Evict(ctx, 1, KindCase); err != nil {
		t.Fatalf("Evict failed: %v", err)
	}

	if got, _ := store.GetCase(ctx, 1); got != nil {
		t.Error("case session should be gone after evict")
	}
	if got, _ := store.GetSurvey(ctx, 1); got == nil {
		t.Error("survey session must survive case evict")
	}
}
