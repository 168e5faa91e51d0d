package bot

import (
	"sync"
	"testing"
)

func TestDispatchKeepsPerChatOrder(t *testing.T) {
	d := NewDispatcher(4, 16)
	d.Run()

	var mu sync.Mutex
	got := make(map[int64][]int)

	const perChat = 50
	chats := []int64{1, 2, 3, 42, 1000}
	for i := 0; i < perChat; i++ {
		for _, chatID := range chats {
			chatID, i := chatID, i
			d.Dispatch(chatID, func() {
				mu.Lock()
				got[chatID] = append(got[chatID], i)
				mu.Unlock()
			})
		}
	}
	d.Stop()

	for _, chatID := range chats {
		seq := got[chatID]
		if len(seq) != perChat {
			t.Fatalf("chat %d ran %d jobs, want %d", chatID, len(seq), perChat)
		}
		for i, v := range seq {
			if v != i {
				t.Fatalf("chat %d jobs ran out of order: %v", chatID, seq)
			}
		}
	}
}

func TestDispatchSameChatSameWorker(t *testing.T) {
	for workers := 1; workers <= 16; workers++ {
		a := workerFor(42, workers)
		b := workerFor(42, workers)
		if a != b {
			t.Fatalf("chat 42 hashed to workers %d and %d with pool size %d", a, b, workers)
		}
		if a < 0 || a >= workers {
			t.Fatalf("worker index %d out of range for pool size %d", a, workers)
		}
	}
}

func TestDispatchAfterStopIsDropped(t *testing.T) {
	d := NewDispatcher(2, 4)
	d.Run()
	d.Stop()

	ran := false
	d.Dispatch(1, func() { ran = true })
	if ran {
		t.Error("job dispatched after Stop must not run")
	}

	// idempotent
	d.Stop()
}
