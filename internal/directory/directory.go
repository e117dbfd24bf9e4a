// Package directory manages user records: registration, authentication,
// and first-run seeding. Passwords are stored as bcrypt hashes only.
package directory

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/intervox/intervox/internal/model"
	"github.com/intervox/intervox/internal/storage"
)

// Directory is the account store. All mutations rewrite the whole user
// collection under a single mutex (single writer per collection).
type Directory struct {
	mu sync.Mutex
	kv *storage.Store
}

// New creates a Directory backed by the given store.
func New(kv *storage.Store) *Directory {
	return &Directory{kv: kv}
}

// NewUser is the registration input. The plaintext password is hashed
// before anything is persisted.
type NewUser struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Role     model.Role `json:"role"`
	Password string     `json:"password"`
}

// load reads the user collection. A missing or corrupt document is treated
// as an empty collection; the read path never fails.
func (d *Directory) load() []model.User {
	doc, ok, err := d.kv.Get(storage.KeyUsers)
	if err != nil {
		slog.Warn("read users failed, treating as empty", "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	var users []model.User
	if err := json.Unmarshal([]byte(doc), &users); err != nil {
		slog.Warn("corrupt users document, treating as empty", "error", err)
		return nil
	}
	return users
}

func (d *Directory) save(users []model.User) error {
	doc, err := json.Marshal(users)
	if err != nil {
		return fmt.Errorf("marshal users: %w", err)
	}
	if err := d.kv.Set(storage.KeyUsers, string(doc)); err != nil {
		return fmt.Errorf("write users: %w", err)
	}
	return nil
}

// List returns all users in insertion order.
func (d *Directory) List() []model.User {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.load()
}

// Get returns the user with the given id, or nil.
func (d *Directory) Get(id string) *model.User {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range d.load() {
		if u.ID == id {
			return &u
		}
	}
	return nil
}

// Register appends a new user. It fails with model.ErrDuplicateID when a
// user with the same id already exists, leaving the original unchanged.
func (d *Directory) Register(nu NewUser) (model.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	users := d.load()
	for _, u := range users {
		if u.ID == nu.ID {
			return model.User{}, fmt.Errorf("register %q: %w", nu.ID, model.ErrDuplicateID)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(nu.Password), bcrypt.DefaultCost)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}

	user := model.User{
		ID:           nu.ID,
		Name:         nu.Name,
		Role:         nu.Role,
		PasswordHash: string(hash),
	}
	if err := d.save(append(users, user)); err != nil {
		return model.User{}, err
	}
	slog.Info("registered user", "id", user.ID, "role", user.Role)
	return user, nil
}

// Authenticate returns the user whose id and password match. A wrong
// password and an unknown id both fail with model.ErrNotFound so the two
// cases are indistinguishable to the caller.
func (d *Directory) Authenticate(id, password string) (model.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, u := range d.load() {
		if u.ID != id {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
			break
		}
		return u, nil
	}
	return model.User{}, fmt.Errorf("authenticate %q: %w", id, model.ErrNotFound)
}

// Seed writes the default test accounts, only when the user collection has
// never been written.
func (d *Directory) Seed() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok, err := d.kv.Get(storage.KeyUsers); err != nil {
		return fmt.Errorf("check users: %w", err)
	} else if ok {
		return nil
	}

	defaults := []NewUser{
		{ID: "admin@test.com", Name: "Admin User", Role: model.RoleAdmin, Password: "admin123"},
		{ID: "reviewer@test.com", Name: "Reviewer User", Role: model.RoleReviewer, Password: "reviewer123"},
		{ID: "candidate@test.com", Name: "Candidate User", Role: model.RoleCandidate, Password: "candidate123"},
	}

	var users []model.User
	for _, nu := range defaults {
		hash, err := bcrypt.GenerateFromPassword([]byte(nu.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash seed password: %w", err)
		}
		users = append(users, model.User{
			ID:           nu.ID,
			Name:         nu.Name,
			Role:         nu.Role,
			PasswordHash: string(hash),
		})
	}
	if err := d.save(users); err != nil {
		return err
	}
	slog.Info("seeded default users", "count", len(users))
	return nil
}
