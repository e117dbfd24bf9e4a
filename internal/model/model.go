package model

import (
	"context"
	"time"
)

// Role represents a user's access level.
type Role string

const (
	// RoleAdmin creates interviews and assignment tasks.
	RoleAdmin Role = "admin"
	// RoleCandidate records and submits answers.
	RoleCandidate Role = "candidate"
	// RoleReviewer scores submissions.
	RoleReviewer Role = "reviewer"
)

// User represents a registered account. The ID doubles as the login
// (an email-like string) and is unique across the directory.
type User struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Role         Role   `json:"role"`
	PasswordHash string `json:"passwordHash"`
}

// AuthSession represents a logged-in API session.
type AuthSession struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type userCtxKey struct{}

// ContextWithUser stores the authenticated user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

// Interview is a reusable template of questions administered to candidates.
// Question order is meaningful: answers reference questions by index.
type Interview struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Questions   []string `json:"questions"`
}

// InterviewUpdate replaces an interview's content wholesale. The ID is
// immutable once assigned.
type InterviewUpdate struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Questions   []string `json:"questions"`
}

// Answer is one recorded response. The URI points at an audio file produced
// by the capture subsystem; it is stored opaquely and never interpreted.
type Answer struct {
	ID         string    `json:"id"`
	QIndex     int       `json:"qIndex"`
	URI        string    `json:"uri"`
	RecordedAt time.Time `json:"recordedAt"`
}

// Review is a reviewer's assessment attached to a submission. Attaching a
// second review overwrites the first (last write wins, never merged).
type Review struct {
	Score      float64   `json:"score"`
	Comments   string    `json:"comments"`
	ReviewedAt time.Time `json:"reviewedAt"`
	ReviewerID string    `json:"reviewerId"`
}

// Submission is one candidate's recorded answers to an interview.
// A nil Review means the submission is pending.
type Submission struct {
	ID          string    `json:"id"`
	InterviewID string    `json:"interviewId"`
	CandidateID string    `json:"candidateId"`
	SubmittedAt time.Time `json:"submittedAt"`
	Answers     []Answer  `json:"answers"`
	Review      *Review   `json:"review,omitempty"`
}

// TaskType classifies generic task-log entries.
type TaskType string

const (
	TaskInterviewSubmission TaskType = "interview_submission"
	TaskReviewSubmission    TaskType = "review_submission"
)

// TaskStatus is the processing state of a task-log entry.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskProcessing TaskStatus = "processing"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
)

// Task is a generic append-only log entry used for notifications and audit
// statistics, distinct from InterviewTask.
type Task struct {
	ID        string         `json:"id"`
	Type      TaskType       `json:"type"`
	Data      map[string]any `json:"data"`
	Status    TaskStatus     `json:"status"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// InterviewTaskStatus is the lifecycle state of an assignment task.
// Transitions are one-way: active -> completed or active -> archived.
type InterviewTaskStatus string

const (
	TaskActive   InterviewTaskStatus = "active"
	TaskDone     InterviewTaskStatus = "completed"
	TaskArchived InterviewTaskStatus = "archived"
)

// Priority of an assignment task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// TaskSettings controls how submissions against a task are accepted.
type TaskSettings struct {
	AllowMultipleSubmissions bool `json:"allowMultipleSubmissions"`
	RequireAllQuestions      bool `json:"requireAllQuestions"`
	// TimeLimit in minutes; 0 means unlimited.
	TimeLimit int  `json:"timeLimit,omitempty"`
	AutoGrade bool `json:"autoGrade"`
}

// DefaultTaskSettings are applied when a task is created without settings.
func DefaultTaskSettings() TaskSettings {
	return TaskSettings{
		AllowMultipleSubmissions: false,
		RequireAllQuestions:      true,
		AutoGrade:                false,
	}
}

// InterviewTask binds an interview to assigned candidates with a deadline,
// priority, and settings. It references the interview by ID only; the
// interview content lives in the catalog.
type InterviewTask struct {
	ID                 string              `json:"id"`
	InterviewID        string              `json:"interviewId"`
	AssignedCandidates []string            `json:"assignedCandidates"`
	Status             InterviewTaskStatus `json:"status"`
	CreatedBy          string              `json:"createdBy"`
	CreatedAt          time.Time           `json:"createdAt"`
	Deadline           *time.Time          `json:"deadline,omitempty"`
	Priority           Priority            `json:"priority"`
	Tags               []string            `json:"tags"`
	Submissions        []string            `json:"submissions"`
	Settings           TaskSettings        `json:"settings"`
}

// TaskSpec is the input for creating an assignment task. The interview
// content it carries becomes a catalog row; the task references it by ID.
type TaskSpec struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Questions   []string      `json:"questions"`
	CreatedBy   string        `json:"createdBy"`
	Deadline    *time.Time    `json:"deadline,omitempty"`
	Priority    Priority      `json:"priority,omitempty"`
	Tags        []string      `json:"tags,omitempty"`
	Settings    *TaskSettings `json:"settings,omitempty"`
}

// TaskPatch updates mutable task fields. Nil fields are left unchanged.
type TaskPatch struct {
	Status   *InterviewTaskStatus `json:"status,omitempty"`
	Priority *Priority            `json:"priority,omitempty"`
	Deadline *time.Time           `json:"deadline,omitempty"`
	Tags     *[]string            `json:"tags,omitempty"`
	Settings *TaskSettings        `json:"settings,omitempty"`
}

// TaskView joins a task with its interview content for display.
type TaskView struct {
	InterviewTask
	Interview Interview `json:"interview"`
}

// BulkResult is the per-task outcome of a bulk operation.
type BulkResult struct {
	TaskID  string         `json:"taskId"`
	Success bool           `json:"success"`
	Task    *InterviewTask `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// LogStats is the aggregation over the generic task log, recomputed on
// every call.
type LogStats struct {
	Total                int `json:"total"`
	Pending              int `json:"pending"`
	Processing           int `json:"processing"`
	Completed            int `json:"completed"`
	Failed               int `json:"failed"`
	InterviewSubmissions int `json:"interview_submissions"`
	ReviewSubmissions    int `json:"review_submissions"`
}

// TaskStats is the aggregation over assignment tasks. Assignment and
// submission totals are sums of per-task set sizes, not distinct counts.
type TaskStats struct {
	Total            int `json:"total"`
	Active           int `json:"active"`
	Completed        int `json:"completed"`
	Archived         int `json:"archived"`
	HighPriority     int `json:"highPriority"`
	TotalAssignments int `json:"totalAssignments"`
	TotalSubmissions int `json:"totalSubmissions"`
}
