package handler

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	appI18n "github.com/intervox/intervox/internal/i18n"
	"github.com/intervox/intervox/internal/model"
)

func (h *Handler) handleListInterviews(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, apiResponse{Data: h.catalog.List()})
}

func (h *Handler) handleGetInterview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "interviewID")
	iv := h.catalog.Get(id)
	if iv == nil {
		respondError(w, r, fmt.Errorf("interview %q: %w", id, model.ErrNotFound))
		return
	}
	respondJSON(w, http.StatusOK, apiResponse{Data: iv})
}

func (h *Handler) handleCreateInterview(w http.ResponseWriter, r *http.Request) {
	var iv model.Interview
	if err := decodeBody(r, &iv); err != nil {
		respondError(w, r, err)
		return
	}

	interviews, err := h.catalog.Create(iv)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, apiResponse{
		Data:   interviews,
		Notice: appI18n.T(r.Context(), "InterviewCreated"),
	})
}

func (h *Handler) handleUpdateInterview(w http.ResponseWriter, r *http.Request) {
	var upd model.InterviewUpdate
	if err := decodeBody(r, &upd); err != nil {
		respondError(w, r, err)
		return
	}

	iv, err := h.catalog.Update(chi.URLParam(r, "interviewID"), upd)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, apiResponse{
		Data:   iv,
		Notice: appI18n.T(r.Context(), "InterviewUpdated"),
	})
}

func (h *Handler) handleDeleteInterview(w http.ResponseWriter, r *http.Request) {
	interviews, err := h.catalog.Delete(chi.URLParam(r, "interviewID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, apiResponse{
		Data:   interviews,
		Notice: appI18n.T(r.Context(), "InterviewDeleted"),
	})
}
