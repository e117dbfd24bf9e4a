// Package coordinator orchestrates assignment tasks: it binds an interview
// template to assigned candidates and tracks their submissions, deadlines,
// and settings. It composes the catalog, the submission ledger, the task
// log, and an optional auto-grader.
package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/intervox/intervox/internal/catalog"
	"github.com/intervox/intervox/internal/grader"
	"github.com/intervox/intervox/internal/ledger"
	"github.com/intervox/intervox/internal/model"
	"github.com/intervox/intervox/internal/storage"
	"github.com/intervox/intervox/internal/tasklog"
)

// Coordinator is the assignment-task store and orchestrator. Interview
// content lives solely in the catalog; tasks reference it by id.
type Coordinator struct {
	mu      sync.Mutex
	kv      *storage.Store
	catalog *catalog.Catalog
	ledger  *ledger.Ledger
	log     *tasklog.Log
	grader  grader.Grader // nil disables auto-grading

	now func() time.Time
}

// New creates a Coordinator. Pass a nil grader to leave the autoGrade
// setting inert.
func New(kv *storage.Store, cat *catalog.Catalog, led *ledger.Ledger, log *tasklog.Log, g grader.Grader) *Coordinator {
	return &Coordinator{kv: kv, catalog: cat, ledger: led, log: log, grader: g, now: time.Now}
}

func (c *Coordinator) load() []model.InterviewTask {
	doc, ok, err := c.kv.Get(storage.KeyInterviewTasks)
	if err != nil {
		slog.Warn("read interview tasks failed, treating as empty", "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	var tasks []model.InterviewTask
	if err := json.Unmarshal([]byte(doc), &tasks); err != nil {
		slog.Warn("corrupt interview tasks document, treating as empty", "error", err)
		return nil
	}
	return tasks
}

func (c *Coordinator) save(tasks []model.InterviewTask) error {
	doc, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("marshal interview tasks: %w", err)
	}
	if err := c.kv.Set(storage.KeyInterviewTasks, string(doc)); err != nil {
		return fmt.Errorf("write interview tasks: %w", err)
	}
	return nil
}

// Create stores the interview content in the catalog and creates a task
// referencing it.
func (c *Coordinator) Create(spec model.TaskSpec) (model.InterviewTask, error) {
	if strings.TrimSpace(spec.Title) == "" {
		return model.InterviewTask{}, fmt.Errorf("task title required: %w", model.ErrValidation)
	}

	interviewID := "interview_" + uuid.NewString()
	if _, err := c.catalog.Create(model.Interview{
		ID:          interviewID,
		Title:       spec.Title,
		Description: spec.Description,
		Questions:   spec.Questions,
	}); err != nil {
		return model.InterviewTask{}, fmt.Errorf("create interview: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	priority := spec.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	settings := model.DefaultTaskSettings()
	if spec.Settings != nil {
		settings = *spec.Settings
	}
	createdBy := spec.CreatedBy
	if createdBy == "" {
		createdBy = "admin@test.com"
	}
	task := model.InterviewTask{
		ID:                 "interview_task_" + uuid.NewString(),
		InterviewID:        interviewID,
		AssignedCandidates: []string{},
		Status:             model.TaskActive,
		CreatedBy:          createdBy,
		CreatedAt:          c.now(),
		Deadline:           spec.Deadline,
		Priority:           priority,
		Tags:               spec.Tags,
		Submissions:        []string{},
		Settings:           settings,
	}
	if task.Tags == nil {
		task.Tags = []string{}
	}

	if err := c.save(append(c.load(), task)); err != nil {
		return model.InterviewTask{}, err
	}
	slog.Info("created interview task", "id", task.ID, "interview", interviewID, "priority", task.Priority)
	return task, nil
}

// List returns all tasks in insertion order.
func (c *Coordinator) List() []model.InterviewTask {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load()
}

// Get returns the task with the given id, or nil.
func (c *Coordinator) Get(id string) *model.InterviewTask {
	c.mu.Lock()
	defer c.mu.Unlock()
	return findTask(c.load(), id)
}

func findTask(tasks []model.InterviewTask, id string) *model.InterviewTask {
	for i := range tasks {
		if tasks[i].ID == id {
			return &tasks[i]
		}
	}
	return nil
}

// View returns the task joined with its interview content.
func (c *Coordinator) View(id string) (model.TaskView, error) {
	task := c.Get(id)
	if task == nil {
		return model.TaskView{}, fmt.Errorf("view task %q: %w", id, model.ErrNotFound)
	}
	view := model.TaskView{InterviewTask: *task}
	if iv := c.catalog.Get(task.InterviewID); iv != nil {
		view.Interview = *iv
	}
	return view, nil
}

// Update applies the patch to the matching task. Status transitions are
// one-way: only active tasks may move, and only to completed or archived.
func (c *Coordinator) Update(id string, patch model.TaskPatch) (model.InterviewTask, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tasks := c.load()
	task := findTask(tasks, id)
	if task == nil {
		return model.InterviewTask{}, fmt.Errorf("update task %q: %w", id, model.ErrNotFound)
	}

	if patch.Status != nil && *patch.Status != task.Status {
		if task.Status != model.TaskActive {
			return model.InterviewTask{}, fmt.Errorf(
				"task %q is %s and cannot change status: %w", id, task.Status, model.ErrValidation)
		}
		switch *patch.Status {
		case model.TaskDone, model.TaskArchived:
			task.Status = *patch.Status
		default:
			return model.InterviewTask{}, fmt.Errorf(
				"invalid status transition to %q: %w", *patch.Status, model.ErrValidation)
		}
	}
	if patch.Priority != nil {
		task.Priority = *patch.Priority
	}
	if patch.Deadline != nil {
		task.Deadline = patch.Deadline
	}
	if patch.Tags != nil {
		task.Tags = *patch.Tags
	}
	if patch.Settings != nil {
		task.Settings = *patch.Settings
	}

	if err := c.save(tasks); err != nil {
		return model.InterviewTask{}, err
	}
	return *task, nil
}

// Assign merges candidateIDs into the task's assigned set (idempotent) and
// emits one notification log entry per newly assigned candidate. Assigning
// to a completed or archived task fails.
func (c *Coordinator) Assign(id string, candidateIDs []string) (model.InterviewTask, error) {
	c.mu.Lock()

	tasks := c.load()
	task := findTask(tasks, id)
	if task == nil {
		c.mu.Unlock()
		return model.InterviewTask{}, fmt.Errorf("assign to task %q: %w", id, model.ErrNotFound)
	}
	if task.Status != model.TaskActive {
		c.mu.Unlock()
		return model.InterviewTask{}, fmt.Errorf(
			"assign to %s task %q: %w", task.Status, id, model.ErrValidation)
	}

	var added []string
	for _, cid := range candidateIDs {
		if !slices.Contains(task.AssignedCandidates, cid) {
			task.AssignedCandidates = append(task.AssignedCandidates, cid)
			added = append(added, cid)
		}
	}

	if err := c.save(tasks); err != nil {
		c.mu.Unlock()
		return model.InterviewTask{}, err
	}
	result := *task
	c.mu.Unlock()

	// Notification entries only for candidates that were actually new.
	for _, cid := range added {
		if _, err := c.log.Submit(model.TaskInterviewSubmission, map[string]any{
			"taskId":      id,
			"candidateId": cid,
			"type":        "assignment",
		}); err != nil {
			slog.Warn("assignment notification failed", "task", id, "candidate", cid, "error", err)
		}
	}
	slog.Info("assigned candidates", "task", id, "added", len(added), "total", len(result.AssignedCandidates))
	return result, nil
}

// SubmitResponse records a candidate's answers as a new submission,
// enforcing the task's settings:
//
//   - allowMultipleSubmissions=false rejects a second submission from the
//     same candidate;
//   - requireAllQuestions=true rejects answer sets that do not cover every
//     question index.
//
// When autoGrade is on and a grader is configured, the submission is
// transcribed and scored, and the resulting review attached; a grading
// failure does not fail the submission.
func (c *Coordinator) SubmitResponse(ctx context.Context, id, candidateID string, answers []model.Answer) (model.Submission, error) {
	c.mu.Lock()

	tasks := c.load()
	task := findTask(tasks, id)
	if task == nil {
		c.mu.Unlock()
		return model.Submission{}, fmt.Errorf("submit to task %q: %w", id, model.ErrNotFound)
	}

	iv := c.catalog.Get(task.InterviewID)
	if iv == nil {
		c.mu.Unlock()
		return model.Submission{}, fmt.Errorf("interview %q for task %q: %w", task.InterviewID, id, model.ErrNotFound)
	}

	if err := checkSettings(*task, *iv, candidateID, answers, c.ledger); err != nil {
		c.mu.Unlock()
		return model.Submission{}, err
	}

	sub := model.Submission{
		ID:          "sub_" + uuid.NewString(),
		InterviewID: task.InterviewID,
		CandidateID: candidateID,
		SubmittedAt: c.now(),
		Answers:     answers,
	}
	if err := c.ledger.Append(sub); err != nil {
		c.mu.Unlock()
		return model.Submission{}, err
	}

	task.Submissions = append(task.Submissions, sub.ID)
	if err := c.save(tasks); err != nil {
		c.mu.Unlock()
		return model.Submission{}, err
	}
	settings := task.Settings
	c.mu.Unlock()

	if _, err := c.log.Submit(model.TaskInterviewSubmission, map[string]any{
		"taskId":       id,
		"candidateId":  candidateID,
		"submissionId": sub.ID,
		"type":         "submission",
	}); err != nil {
		slog.Warn("submission notification failed", "task", id, "error", err)
	}

	if settings.AutoGrade && c.grader != nil {
		rev, err := c.grader.Grade(ctx, *iv, answers)
		if err != nil {
			slog.Warn("auto-grade failed", "submission", sub.ID, "error", err)
		} else {
			rev.ReviewedAt = c.now()
			if graded, err := c.ledger.AttachReview(sub.ID, rev); err != nil {
				slog.Warn("attach auto-grade review failed", "submission", sub.ID, "error", err)
			} else {
				sub = graded
			}
		}
	}

	slog.Info("recorded submission", "task", id, "submission", sub.ID, "candidate", candidateID)
	return sub, nil
}

// checkSettings enforces the task's submission rules. The caller holds the
// coordinator mutex.
func checkSettings(task model.InterviewTask, iv model.Interview, candidateID string, answers []model.Answer, led *ledger.Ledger) error {
	if !task.Settings.AllowMultipleSubmissions {
		for _, sub := range led.ByIDs(task.Submissions) {
			if sub.CandidateID == candidateID {
				return fmt.Errorf("candidate %q already submitted: %w", candidateID, model.ErrValidation)
			}
		}
	}

	answered := make(map[int]bool, len(answers))
	for _, a := range answers {
		if a.QIndex < 0 || a.QIndex >= len(iv.Questions) {
			return fmt.Errorf("answer index %d out of range: %w", a.QIndex, model.ErrValidation)
		}
		answered[a.QIndex] = true
	}
	if task.Settings.RequireAllQuestions {
		for i := range iv.Questions {
			if !answered[i] {
				return fmt.Errorf("question %d unanswered: %w", i+1, model.ErrValidation)
			}
		}
	}
	return nil
}

// TasksForCandidate returns the active tasks that include the candidate.
func (c *Coordinator) TasksForCandidate(candidateID string) []model.InterviewTask {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []model.InterviewTask
	for _, task := range c.load() {
		if task.Status == model.TaskActive && slices.Contains(task.AssignedCandidates, candidateID) {
			out = append(out, task)
		}
	}
	return out
}

// SubmissionsForTask returns the submissions recorded against the task.
func (c *Coordinator) SubmissionsForTask(id string) ([]model.Submission, error) {
	task := c.Get(id)
	if task == nil {
		return nil, fmt.Errorf("submissions for task %q: %w", id, model.ErrNotFound)
	}
	return c.ledger.ByIDs(task.Submissions), nil
}

// Archive moves an active task to archived. Archiving is terminal.
func (c *Coordinator) Archive(id string) (model.InterviewTask, error) {
	status := model.TaskArchived
	return c.Update(id, model.TaskPatch{Status: &status})
}

// Complete moves an active task to completed. Completion is terminal.
func (c *Coordinator) Complete(id string) (model.InterviewTask, error) {
	status := model.TaskDone
	return c.Update(id, model.TaskPatch{Status: &status})
}

// Statistics aggregates over all tasks. Assignment and submission totals
// are sums of per-task set sizes, not distinct global counts.
func (c *Coordinator) Statistics() model.TaskStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	var stats model.TaskStats
	for _, task := range c.load() {
		stats.Total++
		switch task.Status {
		case model.TaskActive:
			stats.Active++
		case model.TaskDone:
			stats.Completed++
		case model.TaskArchived:
			stats.Archived++
		}
		if task.Priority == model.PriorityHigh {
			stats.HighPriority++
		}
		stats.TotalAssignments += len(task.AssignedCandidates)
		stats.TotalSubmissions += len(task.Submissions)
	}
	return stats
}

// Search returns tasks whose interview title or description, or any tag,
// contains the query, case-insensitively.
func (c *Coordinator) Search(query string) []model.InterviewTask {
	q := strings.ToLower(query)

	c.mu.Lock()
	tasks := c.load()
	c.mu.Unlock()

	var out []model.InterviewTask
	for _, task := range tasks {
		if slices.ContainsFunc(task.Tags, func(tag string) bool {
			return strings.Contains(strings.ToLower(tag), q)
		}) {
			out = append(out, task)
			continue
		}
		if iv := c.catalog.Get(task.InterviewID); iv != nil {
			if strings.Contains(strings.ToLower(iv.Title), q) ||
				strings.Contains(strings.ToLower(iv.Description), q) {
				out = append(out, task)
			}
		}
	}
	return out
}

// Overdue returns active tasks whose deadline has passed.
func (c *Coordinator) Overdue(now time.Time) []model.InterviewTask {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []model.InterviewTask
	for _, task := range c.load() {
		if task.Status == model.TaskActive && task.Deadline != nil && task.Deadline.Before(now) {
			out = append(out, task)
		}
	}
	return out
}

// BulkAssign assigns candidates to each task in turn, continuing past
// individual failures, and returns per-task results.
func (c *Coordinator) BulkAssign(taskIDs, candidateIDs []string) []model.BulkResult {
	results := make([]model.BulkResult, 0, len(taskIDs))
	for _, id := range taskIDs {
		task, err := c.Assign(id, candidateIDs)
		if err != nil {
			results = append(results, model.BulkResult{TaskID: id, Success: false, Error: err.Error()})
			continue
		}
		results = append(results, model.BulkResult{TaskID: id, Success: true, Task: &task})
	}
	return results
}

// BulkArchive archives each task in turn, continuing past failures.
func (c *Coordinator) BulkArchive(taskIDs []string) []model.BulkResult {
	results := make([]model.BulkResult, 0, len(taskIDs))
	for _, id := range taskIDs {
		task, err := c.Archive(id)
		if err != nil {
			results = append(results, model.BulkResult{TaskID: id, Success: false, Error: err.Error()})
			continue
		}
		results = append(results, model.BulkResult{TaskID: id, Success: true, Task: &task})
	}
	return results
}

// Seed writes an empty collection, only when the task collection has never
// been written.
func (c *Coordinator) Seed() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok, err := c.kv.Get(storage.KeyInterviewTasks); err != nil {
		return fmt.Errorf("check interview tasks: %w", err)
	} else if ok {
		return nil
	}
	return c.save([]model.InterviewTask{})
}
