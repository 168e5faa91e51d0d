package catalog

import "testing"

func TestLoad(t *testing.T) {
	cat, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cat.SurveyCount() == 0 {
		t.Fatal("expected survey questions")
	}
	if cat.CaseCount() == 0 {
		t.Fatal("expected case items")
	}
}

func TestQuestionOrderIsStable(t *testing.T) {
	cat, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	first, ok := cat.QuestionByIndex(0)
	if !ok {
		t.Fatal("no question at index 0")
	}
	if first.Code != "FULL_NAME" {
		t.Errorf("expected FULL_NAME first, got %s", first.Code)
	}

	for i, q := range cat.SurveyQuestions() {
		got, ok := cat.QuestionByIndex(i)
		if !ok || got.Code != q.Code {
			t.Errorf("QuestionByIndex(%d) mismatch: got %v ok=%v", i, got.Code, ok)
		}
		if q.Prompt == "" || q.Label == "" {
			t.Errorf("question %s has empty prompt or label", q.Code)
		}
	}
}

func TestIndexBounds(t *testing.T) {
	cat, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, ok := cat.QuestionByIndex(-1); ok {
		t.Error("negative question index should not resolve")
	}
	if _, ok := cat.QuestionByIndex(cat.SurveyCount()); ok {
		t.Error("out-of-range question index should not resolve")
	}
	if _, ok := cat.CaseByIndex(cat.CaseCount()); ok {
		t.Error("out-of-range case index should not resolve")
	}
}

func TestCasesHaveContent(t *testing.T) {
	cat, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	for i := 0; i < cat.CaseCount(); i++ {
		cs, ok := cat.CaseByIndex(i)
		if !ok {
			t.Fatalf("CaseByIndex(%d) missing", i)
		}
		if cs.ID == 0 || cs.Image == "" || cs.Description == "" {
			t.Errorf("case %d incomplete: %+v", i, cs)
		}
	}
}
