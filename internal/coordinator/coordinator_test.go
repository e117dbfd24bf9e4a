package coordinator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/intervox/intervox/internal/catalog"
	"github.com/intervox/intervox/internal/grader"
	"github.com/intervox/intervox/internal/ledger"
	"github.com/intervox/intervox/internal/model"
	"github.com/intervox/intervox/internal/storage"
	"github.com/intervox/intervox/internal/tasklog"
)

func newTestCoordinator(t *testing.T) *Coordinator {
	t.Helper()
	kv, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { kv.Close() })
	return New(kv, catalog.New(kv), ledger.New(kv), tasklog.New(kv), nil)
}

// stubGrader returns a fixed review, or fails.
type stubGrader struct {
	review model.Review
	err    error
	called int
}

func (g *stubGrader) Grade(_ context.Context, _ model.Interview, _ []model.Answer) (model.Review, error) {
	g.called++
	return g.review, g.err
}

func TestCreateTask(t *testing.T) {
	c := newTestCoordinator(t)

	task, err := c.Create(model.TaskSpec{
		Title:     "Backend Screen",
		Questions: []string{"Q1", "Q2"},
		CreatedBy: "admin@test.com",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if task.Status != model.TaskActive {
		t.Errorf("new task status = %q, want active", task.Status)
	}
	if task.Priority != model.PriorityMedium {
		t.Errorf("default priority = %q, want medium", task.Priority)
	}
	if task.Settings != model.DefaultTaskSettings() {
		t.Errorf("settings = %+v, want defaults", task.Settings)
	}
	if len(task.AssignedCandidates) != 0 || len(task.Submissions) != 0 {
		t.Error("new task should have no candidates or submissions")
	}

	// The interview content lands in the catalog, referenced by id.
	iv := c.catalog.Get(task.InterviewID)
	if iv == nil {
		t.Fatal("interview not created in catalog")
	}
	if iv.Title != "Backend Screen" || len(iv.Questions) != 2 {
		t.Errorf("interview content mismatch: %+v", iv)
	}

	view, err := c.View(task.ID)
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if view.Interview.ID != task.InterviewID {
		t.Errorf("view interview id = %q, want %q", view.Interview.ID, task.InterviewID)
	}
}

func TestCreateRequiresTitle(t *testing.T) {
	c := newTestCoordinator(t)
	if _, err := c.Create(model.TaskSpec{Title: "  "}); !errors.Is(err, model.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestAssignIdempotent(t *testing.T) {
	c := newTestCoordinator(t)
	task, err := c.Create(model.TaskSpec{Title: "T", Questions: []string{"Q1"}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := c.Assign(task.ID, []string{"c1", "c2"})
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if len(got.AssignedCandidates) != 2 {
		t.Fatalf("expected 2 candidates, got %v", got.AssignedCandidates)
	}

	// Re-assigning an existing candidate does not duplicate it.
	got, err = c.Assign(task.ID, []string{"c1", "c3"})
	if err != nil {
		t.Fatalf("second Assign: %v", err)
	}
	if len(got.AssignedCandidates) != 3 {
		t.Errorf("expected 3 candidates after overlap, got %v", got.AssignedCandidates)
	}

	// One notification per newly assigned candidate only.
	if entries := c.log.ByType(model.TaskInterviewSubmission); len(entries) != 3 {
		t.Errorf("expected 3 notification entries, got %d", len(entries))
	}

	if _, err := c.Assign("interview_task_absent", []string{"c1"}); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAssignToArchivedTaskFails(t *testing.T) {
	c := newTestCoordinator(t)
	task, err := c.Create(model.TaskSpec{Title: "T", Questions: []string{"Q1"}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := c.Archive(task.ID); err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if _, err := c.Assign(task.ID, []string{"c1"}); !errors.Is(err, model.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestSubmitAndListFlow(t *testing.T) {
	c := newTestCoordinator(t)

	settings := model.DefaultTaskSettings()
	settings.RequireAllQuestions = false
	task, err := c.Create(model.TaskSpec{
		Title:     "T",
		Questions: []string{"Q1", "Q2"},
		Settings:  &settings,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := c.Assign(task.ID, []string{"c1"}); err != nil {
		t.Fatalf("Assign: %v", err)
	}

	sub, err := c.SubmitResponse(context.Background(), task.ID, "c1", []model.Answer{
		{ID: "ans_1", QIndex: 0, URI: "a.m4a", RecordedAt: time.Now()},
	})
	if err != nil {
		t.Fatalf("SubmitResponse: %v", err)
	}

	// The task stays active and visible to the candidate after submitting.
	visible := c.TasksForCandidate("c1")
	if len(visible) != 1 || visible[0].ID != task.ID {
		t.Fatalf("TasksForCandidate: %v", visible)
	}
	if visible[0].Status != model.TaskActive {
		t.Errorf("task status changed on submit: %q", visible[0].Status)
	}

	subs, err := c.SubmissionsForTask(task.ID)
	if err != nil {
		t.Fatalf("SubmissionsForTask: %v", err)
	}
	if len(subs) != 1 || subs[0].ID != sub.ID {
		t.Fatalf("expected exactly the new submission, got %v", subs)
	}
	if len(subs[0].Answers) != 1 || subs[0].Answers[0].QIndex != 0 {
		t.Errorf("answer not preserved: %v", subs[0].Answers)
	}

	if _, err := c.SubmissionsForTask("interview_task_absent"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSubmitEnforcesSingleSubmission(t *testing.T) {
	c := newTestCoordinator(t)
	task, err := c.Create(model.TaskSpec{Title: "T", Questions: []string{"Q1"}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	answers := []model.Answer{{QIndex: 0, URI: "a.m4a"}}
	if _, err := c.SubmitResponse(context.Background(), task.ID, "c1", answers); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if _, err := c.SubmitResponse(context.Background(), task.ID, "c1", answers); !errors.Is(err, model.ErrValidation) {
		t.Errorf("second submit: expected ErrValidation, got %v", err)
	}
	// A different candidate is unaffected.
	if _, err := c.SubmitResponse(context.Background(), task.ID, "c2", answers); err != nil {
		t.Errorf("other candidate submit: %v", err)
	}

	// With the setting enabled, re-submission is a new ledger entry.
	settings := model.DefaultTaskSettings()
	settings.AllowMultipleSubmissions = true
	if _, err := c.Update(task.ID, model.TaskPatch{Settings: &settings}); err != nil {
		t.Fatalf("Update settings: %v", err)
	}
	if _, err := c.SubmitResponse(context.Background(), task.ID, "c1", answers); err != nil {
		t.Fatalf("re-submit with multiple allowed: %v", err)
	}
	subs, err := c.SubmissionsForTask(task.ID)
	if err != nil {
		t.Fatalf("SubmissionsForTask: %v", err)
	}
	if len(subs) != 3 {
		t.Errorf("expected 3 submissions, got %d", len(subs))
	}
}

func TestSubmitRequiresAllQuestions(t *testing.T) {
	c := newTestCoordinator(t)
	task, err := c.Create(model.TaskSpec{Title: "T", Questions: []string{"Q1", "Q2"}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err = c.SubmitResponse(context.Background(), task.ID, "c1", []model.Answer{{QIndex: 0, URI: "a.m4a"}})
	if !errors.Is(err, model.ErrValidation) {
		t.Errorf("partial answers: expected ErrValidation, got %v", err)
	}

	_, err = c.SubmitResponse(context.Background(), task.ID, "c1", []model.Answer{
		{QIndex: 0, URI: "a.m4a"},
		{QIndex: 1, URI: "b.m4a"},
	})
	if err != nil {
		t.Errorf("full answers: %v", err)
	}

	_, err = c.SubmitResponse(context.Background(), task.ID, "c2", []model.Answer{
		{QIndex: 0, URI: "a.m4a"},
		{QIndex: 5, URI: "b.m4a"},
	})
	if !errors.Is(err, model.ErrValidation) {
		t.Errorf("out-of-range index: expected ErrValidation, got %v", err)
	}
}

func TestSubmitAutoGrade(t *testing.T) {
	kv, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { kv.Close() })

	g := &stubGrader{review: model.Review{
		Score:      8,
		Comments:   "solid",
		ReviewerID: grader.AutoReviewerID,
	}}
	c := New(kv, catalog.New(kv), ledger.New(kv), tasklog.New(kv), g)

	settings := model.DefaultTaskSettings()
	settings.AutoGrade = true
	task, err := c.Create(model.TaskSpec{Title: "T", Questions: []string{"Q1"}, Settings: &settings})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	sub, err := c.SubmitResponse(context.Background(), task.ID, "c1", []model.Answer{{QIndex: 0, URI: "a.m4a"}})
	if err != nil {
		t.Fatalf("SubmitResponse: %v", err)
	}
	if g.called != 1 {
		t.Fatalf("grader called %d times, want 1", g.called)
	}
	if sub.Review == nil {
		t.Fatal("expected auto-attached review")
	}
	if sub.Review.Score != 8 || sub.Review.ReviewerID != grader.AutoReviewerID {
		t.Errorf("review = %+v", sub.Review)
	}
	if sub.Review.ReviewedAt.IsZero() {
		t.Error("ReviewedAt not set")
	}
}

func TestSubmitAutoGradeFailureDoesNotFailSubmission(t *testing.T) {
	kv, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { kv.Close() })

	g := &stubGrader{err: errors.New("api down")}
	c := New(kv, catalog.New(kv), ledger.New(kv), tasklog.New(kv), g)

	settings := model.DefaultTaskSettings()
	settings.AutoGrade = true
	task, err := c.Create(model.TaskSpec{Title: "T", Questions: []string{"Q1"}, Settings: &settings})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	sub, err := c.SubmitResponse(context.Background(), task.ID, "c1", []model.Answer{{QIndex: 0, URI: "a.m4a"}})
	if err != nil {
		t.Fatalf("SubmitResponse: %v", err)
	}
	if sub.Review != nil {
		t.Error("failed grading should leave the submission unreviewed")
	}
	subs, err := c.SubmissionsForTask(task.ID)
	if err != nil {
		t.Fatalf("SubmissionsForTask: %v", err)
	}
	if len(subs) != 1 {
		t.Errorf("submission not recorded: %v", subs)
	}
}

func TestStatusTransitionsOneWay(t *testing.T) {
	c := newTestCoordinator(t)
	task, err := c.Create(model.TaskSpec{Title: "T", Questions: []string{"Q1"}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	done, err := c.Complete(task.ID)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if done.Status != model.TaskDone {
		t.Errorf("status = %q, want completed", done.Status)
	}

	// A completed task cannot be reactivated or archived.
	active := model.TaskActive
	if _, err := c.Update(task.ID, model.TaskPatch{Status: &active}); !errors.Is(err, model.ErrValidation) {
		t.Errorf("reactivate: expected ErrValidation, got %v", err)
	}
	if _, err := c.Archive(task.ID); !errors.Is(err, model.ErrValidation) {
		t.Errorf("archive completed: expected ErrValidation, got %v", err)
	}

	// Non-status fields remain patchable.
	high := model.PriorityHigh
	got, err := c.Update(task.ID, model.TaskPatch{Priority: &high})
	if err != nil {
		t.Fatalf("patch priority: %v", err)
	}
	if got.Priority != model.PriorityHigh {
		t.Errorf("priority = %q", got.Priority)
	}
}

func TestStatistics(t *testing.T) {
	c := newTestCoordinator(t)

	t1, err := c.Create(model.TaskSpec{Title: "A", Questions: []string{"Q1"}, Priority: model.PriorityHigh})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	t2, err := c.Create(model.TaskSpec{Title: "B", Questions: []string{"Q1"}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := c.Create(model.TaskSpec{Title: "C", Questions: []string{"Q1"}}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := c.Assign(t1.ID, []string{"c1", "c2"}); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if _, err := c.SubmitResponse(context.Background(), t1.ID, "c1", []model.Answer{{QIndex: 0, URI: "a.m4a"}}); err != nil {
		t.Fatalf("SubmitResponse: %v", err)
	}
	if _, err := c.Archive(t2.ID); err != nil {
		t.Fatalf("Archive: %v", err)
	}

	stats := c.Statistics()
	want := model.TaskStats{
		Total:            3,
		Active:           2,
		Archived:         1,
		HighPriority:     1,
		TotalAssignments: 2,
		TotalSubmissions: 1,
	}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}
}

func TestSearch(t *testing.T) {
	c := newTestCoordinator(t)

	t1, err := c.Create(model.TaskSpec{
		Title:       "Frontend Screen",
		Description: "React fundamentals",
		Questions:   []string{"Q1"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	t2, err := c.Create(model.TaskSpec{
		Title:     "Backend Screen",
		Questions: []string{"Q1"},
		Tags:      []string{"golang", "senior"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if got := c.Search("REACT"); len(got) != 1 || got[0].ID != t1.ID {
		t.Errorf("search by description: %v", got)
	}
	if got := c.Search("golang"); len(got) != 1 || got[0].ID != t2.ID {
		t.Errorf("search by tag: %v", got)
	}
	if got := c.Search("screen"); len(got) != 2 {
		t.Errorf("search by title: expected both, got %v", got)
	}
	if got := c.Search("nomatch"); len(got) != 0 {
		t.Errorf("expected no matches, got %v", got)
	}
}

func TestOverdue(t *testing.T) {
	c := newTestCoordinator(t)
	now := time.Now()

	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	late, err := c.Create(model.TaskSpec{Title: "Late", Questions: []string{"Q1"}, Deadline: &past})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := c.Create(model.TaskSpec{Title: "OnTime", Questions: []string{"Q1"}, Deadline: &future}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := c.Create(model.TaskSpec{Title: "NoDeadline", Questions: []string{"Q1"}}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	lateArchived, err := c.Create(model.TaskSpec{Title: "LateArchived", Questions: []string{"Q1"}, Deadline: &past})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := c.Archive(lateArchived.ID); err != nil {
		t.Fatalf("Archive: %v", err)
	}

	got := c.Overdue(now)
	if len(got) != 1 || got[0].ID != late.ID {
		t.Errorf("Overdue: expected only the active past-deadline task, got %v", got)
	}
}

func TestBulkOperations(t *testing.T) {
	c := newTestCoordinator(t)

	t1, err := c.Create(model.TaskSpec{Title: "A", Questions: []string{"Q1"}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	t2, err := c.Create(model.TaskSpec{Title: "B", Questions: []string{"Q1"}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	results := c.BulkAssign([]string{t1.ID, "interview_task_absent", t2.ID}, []string{"c1"})
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if !results[0].Success || results[1].Success || !results[2].Success {
		t.Errorf("unexpected success pattern: %+v", results)
	}
	if results[1].Error == "" {
		t.Error("failed result should carry an error message")
	}
	// The failure in the middle does not stop later tasks.
	if got := c.Get(t2.ID); len(got.AssignedCandidates) != 1 {
		t.Errorf("t2 not assigned after mid-list failure: %v", got.AssignedCandidates)
	}

	results = c.BulkArchive([]string{t1.ID, t1.ID})
	if !results[0].Success {
		t.Errorf("first archive should succeed: %+v", results[0])
	}
	if results[1].Success {
		t.Error("second archive of the same task should fail")
	}
}

func TestSeedFirstRunOnly(t *testing.T) {
	c := newTestCoordinator(t)
	if err := c.Seed(); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	task, err := c.Create(model.TaskSpec{Title: "T", Questions: []string{"Q1"}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := c.Seed(); err != nil {
		t.Fatalf("second Seed: %v", err)
	}
	if got := c.List(); len(got) != 1 || got[0].ID != task.ID {
		t.Errorf("seed clobbered data: %v", got)
	}
}

func TestCreateValidationMessage(t *testing.T) {
	c := newTestCoordinator(t)
	_, err := c.Create(model.TaskSpec{})
	if err == nil || !strings.Contains(err.Error(), "title") {
		t.Errorf("expected title error, got %v", err)
	}
}
