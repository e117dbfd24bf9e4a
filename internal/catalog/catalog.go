// Package catalog manages interview templates. It is the single source of
// truth for interview content; assignment tasks reference it by id.
package catalog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/intervox/intervox/internal/model"
	"github.com/intervox/intervox/internal/storage"
)

// Catalog is the interview template store.
type Catalog struct {
	mu sync.Mutex
	kv *storage.Store
}

// New creates a Catalog backed by the given store.
func New(kv *storage.Store) *Catalog {
	return &Catalog{kv: kv}
}

func (c *Catalog) load() []model.Interview {
	doc, ok, err := c.kv.Get(storage.KeyInterviews)
	if err != nil {
		slog.Warn("read interviews failed, treating as empty", "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	var interviews []model.Interview
	if err := json.Unmarshal([]byte(doc), &interviews); err != nil {
		slog.Warn("corrupt interviews document, treating as empty", "error", err)
		return nil
	}
	return interviews
}

func (c *Catalog) save(interviews []model.Interview) error {
	doc, err := json.Marshal(interviews)
	if err != nil {
		return fmt.Errorf("marshal interviews: %w", err)
	}
	if err := c.kv.Set(storage.KeyInterviews, string(doc)); err != nil {
		return fmt.Errorf("write interviews: %w", err)
	}
	return nil
}

// List returns all interviews in insertion order.
func (c *Catalog) List() []model.Interview {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load()
}

// Get returns the interview with the given id, or nil.
func (c *Catalog) Get(id string) *model.Interview {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, iv := range c.load() {
		if iv.ID == id {
			return &iv
		}
	}
	return nil
}

// Create appends an interview, assigning a generated id when none is set,
// and returns the updated full list. An empty question list is legal here;
// the coordinator and the screens require at least one question before an
// interview is usable for recording.
func (c *Catalog) Create(iv model.Interview) ([]model.Interview, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if iv.ID == "" {
		iv.ID = "interview_" + uuid.NewString()
	}
	interviews := append(c.load(), iv)
	if err := c.save(interviews); err != nil {
		return nil, err
	}
	slog.Info("created interview", "id", iv.ID, "title", iv.Title, "questions", len(iv.Questions))
	return interviews, nil
}

// Update replaces the content of the interview with the given id. It fails
// with model.ErrNotFound when the id is absent.
func (c *Catalog) Update(id string, upd model.InterviewUpdate) (model.Interview, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	interviews := c.load()
	for i, iv := range interviews {
		if iv.ID != id {
			continue
		}
		interviews[i] = model.Interview{
			ID:          id,
			Title:       upd.Title,
			Description: upd.Description,
			Questions:   upd.Questions,
		}
		if err := c.save(interviews); err != nil {
			return model.Interview{}, err
		}
		return interviews[i], nil
	}
	return model.Interview{}, fmt.Errorf("update interview %q: %w", id, model.ErrNotFound)
}

// Delete removes the interview with the given id and returns the updated
// full list. Deleting an absent id is a no-op.
func (c *Catalog) Delete(id string) ([]model.Interview, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	interviews := c.load()
	kept := interviews[:0]
	for _, iv := range interviews {
		if iv.ID != id {
			kept = append(kept, iv)
		}
	}
	if err := c.save(kept); err != nil {
		return nil, err
	}
	return kept, nil
}

// Seed writes the two sample interviews, only when the interview collection
// has never been written.
func (c *Catalog) Seed() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok, err := c.kv.Get(storage.KeyInterviews); err != nil {
		return fmt.Errorf("check interviews: %w", err)
	} else if ok {
		return nil
	}

	samples := []model.Interview{
		{
			ID:          "interview_sample_frontend",
			Title:       "Frontend Developer Screen",
			Description: "Core questions for frontend candidates.",
			Questions: []string{
				"Tell us about a recent project you are proud of.",
				"How do you approach debugging a layout issue?",
				"Describe how you keep a large codebase maintainable.",
			},
		},
		{
			ID:          "interview_sample_behavioral",
			Title:       "Behavioral Interview",
			Description: "General behavioral questions for all roles.",
			Questions: []string{
				"Describe a time you disagreed with a teammate.",
				"What motivates you in your work?",
			},
		},
	}
	if err := c.save(samples); err != nil {
		return err
	}
	slog.Info("seeded sample interviews", "count", len(samples))
	return nil
}
