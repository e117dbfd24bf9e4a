package catalog

import (
	"errors"
	"reflect"
	"testing"

	"github.com/intervox/intervox/internal/model"
	"github.com/intervox/intervox/internal/storage"
)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	kv, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { kv.Close() })
	return New(kv)
}

func TestCreateAssignsID(t *testing.T) {
	c := newTestCatalog(t)

	list, err := c.Create(model.Interview{Title: "T", Questions: []string{"Q1"}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 interview, got %d", len(list))
	}
	if list[0].ID == "" {
		t.Error("expected generated id")
	}

	// An explicit id is kept.
	list, err = c.Create(model.Interview{ID: "interview_x", Title: "X"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if list[1].ID != "interview_x" {
		t.Errorf("explicit id replaced: %q", list[1].ID)
	}
}

func TestRoundTripPreservesQuestions(t *testing.T) {
	c := newTestCatalog(t)

	questions := []string{"Q1", "Q2", "Q3"}
	if _, err := c.Create(model.Interview{ID: "interview_rt", Title: "RT", Questions: questions}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got := c.Get("interview_rt")
	if got == nil {
		t.Fatal("interview not found after create")
	}
	if !reflect.DeepEqual(got.Questions, questions) {
		t.Errorf("question order not preserved: got %v, want %v", got.Questions, questions)
	}

	// Empty question list is legal at creation.
	if _, err := c.Create(model.Interview{ID: "interview_empty", Title: "E"}); err != nil {
		t.Fatalf("Create empty: %v", err)
	}
	if got := c.Get("interview_empty"); got == nil {
		t.Error("empty-question interview not stored")
	}
}

func TestUpdate(t *testing.T) {
	c := newTestCatalog(t)
	if _, err := c.Create(model.Interview{ID: "interview_u", Title: "Old", Questions: []string{"Q1"}}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := c.Update("interview_u", model.InterviewUpdate{
		Title:       "New",
		Description: "desc",
		Questions:   []string{"Q1", "Q2"},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.ID != "interview_u" {
		t.Errorf("id changed on update: %q", got.ID)
	}
	if got.Title != "New" || len(got.Questions) != 2 {
		t.Errorf("update not applied: %+v", got)
	}

	_, err = c.Update("interview_absent", model.InterviewUpdate{Title: "X"})
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteAbsentIsNoop(t *testing.T) {
	c := newTestCatalog(t)
	if _, err := c.Create(model.Interview{ID: "interview_a", Title: "A"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := c.Create(model.Interview{ID: "interview_b", Title: "B"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	before := c.List()
	after, err := c.Delete("interview_absent")
	if err != nil {
		t.Fatalf("Delete absent: %v", err)
	}
	if !reflect.DeepEqual(after, before) {
		t.Errorf("delete of absent id changed list: got %v, want %v", after, before)
	}

	after, err = c.Delete("interview_a")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(after) != 1 || after[0].ID != "interview_b" {
		t.Errorf("unexpected list after delete: %v", after)
	}
}

func TestSeedFirstRunOnly(t *testing.T) {
	c := newTestCatalog(t)

	if err := c.Seed(); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	list := c.List()
	if len(list) != 2 {
		t.Fatalf("expected 2 sample interviews, got %d", len(list))
	}
	for _, iv := range list {
		if len(iv.Questions) == 0 {
			t.Errorf("sample interview %q has no questions", iv.ID)
		}
	}

	if _, err := c.Delete(list[0].ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := c.Seed(); err != nil {
		t.Fatalf("second Seed: %v", err)
	}
	if got := len(c.List()); got != 1 {
		t.Errorf("second seed re-wrote interviews: got %d, want 1", got)
	}
}
