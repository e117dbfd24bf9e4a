// Package tasklog is the generic append-only task/event log used for
// notifications and audit statistics.
package tasklog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/intervox/intervox/internal/model"
	"github.com/intervox/intervox/internal/storage"
)

// DefaultMaxAge is the retention window for completed tasks.
const DefaultMaxAge = 30 * 24 * time.Hour

// Log is the task-log store.
type Log struct {
	mu sync.Mutex
	kv *storage.Store

	// now is swappable in tests.
	now func() time.Time
}

// New creates a Log backed by the given store.
func New(kv *storage.Store) *Log {
	return &Log{kv: kv, now: time.Now}
}

func (l *Log) load() []model.Task {
	doc, ok, err := l.kv.Get(storage.KeyTasks)
	if err != nil {
		slog.Warn("read tasks failed, treating as empty", "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	var tasks []model.Task
	if err := json.Unmarshal([]byte(doc), &tasks); err != nil {
		slog.Warn("corrupt tasks document, treating as empty", "error", err)
		return nil
	}
	return tasks
}

func (l *Log) save(tasks []model.Task) error {
	doc, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("marshal tasks: %w", err)
	}
	if err := l.kv.Set(storage.KeyTasks, string(doc)); err != nil {
		return fmt.Errorf("write tasks: %w", err)
	}
	return nil
}

// Submit appends a new task with status pending and returns it.
func (l *Log) Submit(typ model.TaskType, data map[string]any) (model.Task, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	task := model.Task{
		ID:        "task_" + uuid.NewString(),
		Type:      typ,
		Data:      data,
		Status:    model.TaskPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := l.save(append(l.load(), task)); err != nil {
		return model.Task{}, err
	}
	return task, nil
}

// UpdateStatus sets the task's status, merges extra payload fields into its
// data, and bumps UpdatedAt. It fails with model.ErrNotFound when the id is
// absent; callers that treat a vanished task as non-fatal log and move on.
func (l *Log) UpdateStatus(id string, status model.TaskStatus, extra map[string]any) (model.Task, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tasks := l.load()
	for i, task := range tasks {
		if task.ID != id {
			continue
		}
		if task.Data == nil && len(extra) > 0 {
			task.Data = make(map[string]any, len(extra))
		}
		for k, v := range extra {
			task.Data[k] = v
		}
		task.Status = status
		task.UpdatedAt = l.now()
		tasks[i] = task
		if err := l.save(tasks); err != nil {
			return model.Task{}, err
		}
		return task, nil
	}
	return model.Task{}, fmt.Errorf("update task %q: %w", id, model.ErrNotFound)
}

// List returns all tasks in insertion order.
func (l *Log) List() []model.Task {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load()
}

// ByType returns the tasks of the given type.
func (l *Log) ByType(typ model.TaskType) []model.Task {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []model.Task
	for _, task := range l.load() {
		if task.Type == typ {
			out = append(out, task)
		}
	}
	return out
}

// ByStatus returns the tasks with the given status.
func (l *Log) ByStatus(status model.TaskStatus) []model.Task {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []model.Task
	for _, task := range l.load() {
		if task.Status == status {
			out = append(out, task)
		}
	}
	return out
}

// Delete removes a single task. Deleting an absent id is a no-op.
func (l *Log) Delete(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	tasks := l.load()
	kept := tasks[:0]
	for _, task := range tasks {
		if task.ID != id {
			kept = append(kept, task)
		}
	}
	return l.save(kept)
}

// Stats recomputes the aggregation over the full log. The status counts sum
// to at most Total, with equality when no other statuses are present.
func (l *Log) Stats() model.LogStats {
	l.mu.Lock()
	defer l.mu.Unlock()

	var stats model.LogStats
	for _, task := range l.load() {
		stats.Total++
		switch task.Status {
		case model.TaskPending:
			stats.Pending++
		case model.TaskProcessing:
			stats.Processing++
		case model.TaskCompleted:
			stats.Completed++
		case model.TaskFailed:
			stats.Failed++
		}
		switch task.Type {
		case model.TaskInterviewSubmission:
			stats.InterviewSubmissions++
		case model.TaskReviewSubmission:
			stats.ReviewSubmissions++
		}
	}
	return stats
}

// Cleanup removes completed tasks whose last update is older than maxAge
// and returns the removed count. Pending, processing, and failed tasks are
// retained regardless of age.
func (l *Log) Cleanup(maxAge time.Duration) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-maxAge)
	tasks := l.load()
	kept := tasks[:0]
	for _, task := range tasks {
		if task.Status == model.TaskCompleted && task.UpdatedAt.Before(cutoff) {
			continue
		}
		kept = append(kept, task)
	}
	removed := len(tasks) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	if err := l.save(kept); err != nil {
		return 0, err
	}
	slog.Info("cleaned up task log", "removed", removed, "max_age", maxAge)
	return removed, nil
}

// Seed writes an empty collection, only when the task collection has never
// been written.
func (l *Log) Seed() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok, err := l.kv.Get(storage.KeyTasks); err != nil {
		return fmt.Errorf("check tasks: %w", err)
	} else if ok {
		return nil
	}
	return l.save([]model.Task{})
}
