package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	appI18n "github.com/intervox/intervox/internal/i18n"
	"github.com/intervox/intervox/internal/model"
)

func (h *Handler) handleListSubmissions(w http.ResponseWriter, r *http.Request) {
	subs := h.ledger.List()
	if iv := r.URL.Query().Get("interviewId"); iv != "" {
		subs = h.ledger.ForInterview(iv)
	} else if c := r.URL.Query().Get("candidateId"); c != "" {
		subs = h.ledger.ForCandidate(c)
	}
	respondJSON(w, http.StatusOK, apiResponse{Data: subs})
}

type reviewRequest struct {
	Score    float64 `json:"score"`
	Comments string  `json:"comments"`
}

// validateReview checks the review payload before it reaches the ledger,
// which stores whatever it is handed.
func validateReview(req reviewRequest) error {
	if req.Score < 0 || req.Score > 10 {
		return fmt.Errorf("score %v out of range [0,10]: %w", req.Score, model.ErrValidation)
	}
	if strings.TrimSpace(req.Comments) == "" {
		return fmt.Errorf("comments required: %w", model.ErrValidation)
	}
	return nil
}

func (h *Handler) handleAttachReview(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := validateReview(req); err != nil {
		respondError(w, r, err)
		return
	}

	reviewer := model.UserFromContext(r.Context())
	sub, err := h.ledger.AttachReview(chi.URLParam(r, "submissionID"), model.Review{
		Score:      req.Score,
		Comments:   strings.TrimSpace(req.Comments),
		ReviewedAt: time.Now(),
		ReviewerID: reviewer.ID,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, apiResponse{
		Data:   sub,
		Notice: appI18n.T(r.Context(), "ReviewAttached"),
	})
}
