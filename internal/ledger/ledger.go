// Package ledger manages candidate submissions and their attached reviews.
//
// The ledger does not validate review payloads; score range and comment
// checks are a caller responsibility, performed in the API handler before
// anything reaches persistence.
package ledger

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/intervox/intervox/internal/model"
	"github.com/intervox/intervox/internal/storage"
)

// Ledger is the submission store.
type Ledger struct {
	mu sync.Mutex
	kv *storage.Store
}

// New creates a Ledger backed by the given store.
func New(kv *storage.Store) *Ledger {
	return &Ledger{kv: kv}
}

func (l *Ledger) load() []model.Submission {
	doc, ok, err := l.kv.Get(storage.KeySubmissions)
	if err != nil {
		slog.Warn("read submissions failed, treating as empty", "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	var subs []model.Submission
	if err := json.Unmarshal([]byte(doc), &subs); err != nil {
		slog.Warn("corrupt submissions document, treating as empty", "error", err)
		return nil
	}
	return subs
}

func (l *Ledger) save(subs []model.Submission) error {
	doc, err := json.Marshal(subs)
	if err != nil {
		return fmt.Errorf("marshal submissions: %w", err)
	}
	if err := l.kv.Set(storage.KeySubmissions, string(doc)); err != nil {
		return fmt.Errorf("write submissions: %w", err)
	}
	return nil
}

// List returns all submissions in insertion order.
func (l *Ledger) List() []model.Submission {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load()
}

// Get returns the submission with the given id, or nil.
func (l *Ledger) Get(id string) *model.Submission {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, sub := range l.load() {
		if sub.ID == id {
			return &sub
		}
	}
	return nil
}

// Append persists a new submission. The id is caller-generated; uniqueness
// is not validated here. Re-submission is a new entry, never an update.
func (l *Ledger) Append(sub model.Submission) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.save(append(l.load(), sub)); err != nil {
		return err
	}
	slog.Info("appended submission",
		"id", sub.ID, "interview", sub.InterviewID, "candidate", sub.CandidateID, "answers", len(sub.Answers))
	return nil
}

// AttachReview overwrites the review of the matching submission. It fails
// with model.ErrNotFound when no submission matches. Attaching twice is
// last-write-wins: the new payload replaces the old, fields are never merged.
func (l *Ledger) AttachReview(id string, rev model.Review) (model.Submission, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	subs := l.load()
	for i, sub := range subs {
		if sub.ID != id {
			continue
		}
		subs[i].Review = &rev
		if err := l.save(subs); err != nil {
			return model.Submission{}, err
		}
		slog.Info("attached review", "submission", id, "reviewer", rev.ReviewerID, "score", rev.Score)
		return subs[i], nil
	}
	return model.Submission{}, fmt.Errorf("attach review to %q: %w", id, model.ErrNotFound)
}

// ForInterview returns all submissions against the given interview.
func (l *Ledger) ForInterview(interviewID string) []model.Submission {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []model.Submission
	for _, sub := range l.load() {
		if sub.InterviewID == interviewID {
			out = append(out, sub)
		}
	}
	return out
}

// ForCandidate returns all submissions made by the given candidate.
func (l *Ledger) ForCandidate(candidateID string) []model.Submission {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []model.Submission
	for _, sub := range l.load() {
		if sub.CandidateID == candidateID {
			out = append(out, sub)
		}
	}
	return out
}

// ByIDs returns the submissions whose ids appear in the given set,
// preserving ledger order.
func (l *Ledger) ByIDs(ids []string) []model.Submission {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []model.Submission
	for _, sub := range l.load() {
		if slices.Contains(ids, sub.ID) {
			out = append(out, sub)
		}
	}
	return out
}

// Seed writes an empty collection, only when the submission collection has
// never been written.
func (l *Ledger) Seed() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok, err := l.kv.Get(storage.KeySubmissions); err != nil {
		return fmt.Errorf("check submissions: %w", err)
	} else if ok {
		return nil
	}
	return l.save([]model.Submission{})
}
