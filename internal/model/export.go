package model

import "time"

// ExportFile is the top-level JSON structure for submission export.
type ExportFile struct {
	GeneratedAt time.Time          `json:"generated_at"`
	Results     []SubmissionResult `json:"results"`
}

// SubmissionResult holds one submission joined with its interview content.
type SubmissionResult struct {
	SubmissionID string         `json:"submission_id"`
	InterviewID  string         `json:"interview_id"`
	Title        string         `json:"title"`
	CandidateID  string         `json:"candidate_id"`
	SubmittedAt  time.Time      `json:"submitted_at"`
	Answers      []AnswerResult `json:"answers"`
	Review       *Review        `json:"review,omitempty"`
}

// AnswerResult pairs a recorded answer with the question it responds to.
type AnswerResult struct {
	QIndex     int       `json:"q_index"`
	Question   string    `json:"question"`
	URI        string    `json:"uri"`
	RecordedAt time.Time `json:"recorded_at"`
}
