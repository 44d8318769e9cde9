package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/crapthings/storyboard/internal/database"
)

type StoryboardsHandler struct {
	db *database.DB
}

func NewStoryboardsHandler(db *database.DB) *StoryboardsHandler {
	return &StoryboardsHandler{db: db}
}

type storyboardRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	AspectRatio *string `json:"aspect_ratio" validate:"omitempty,oneof=16:9 9:16 1:1 4:3 3:4 21:9"`
	Order       *int    `json:"order" validate:"omitempty,min=0"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (h *StoryboardsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req storyboardRequest
	if msg, ok := bind(r, &req); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	sb, err := h.db.CreateStoryboard(r.Context(), deref(req.Name), deref(req.Description), deref(req.AspectRatio))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create storyboard")
		return
	}
	writeJSON(w, http.StatusCreated, sb)
}

func (h *StoryboardsHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.db.ListStoryboards(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list storyboards")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *StoryboardsHandler) Get(w http.ResponseWriter, r *http.Request) {
	sb, err := h.db.GetStoryboard(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err, "storyboard")
		return
	}
	writeJSON(w, http.StatusOK, sb)
}

func (h *StoryboardsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req storyboardRequest
	if msg, ok := bind(r, &req); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	sb, err := h.db.UpdateStoryboard(r.Context(), chi.URLParam(r, "id"), database.StoryboardUpdate{
		Name:        req.Name,
		Description: req.Description,
		AspectRatio: req.AspectRatio,
		Order:       req.Order,
	})
	if err != nil {
		writeStoreError(w, err, "storyboard")
		return
	}
	writeJSON(w, http.StatusOK, sb)
}

func (h *StoryboardsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.db.DeleteStoryboard(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeStoreError(w, err, "storyboard")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
