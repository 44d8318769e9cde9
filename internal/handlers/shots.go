package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/crapthings/storyboard/internal/database"
)

type ShotsHandler struct {
	db *database.DB
}

func NewShotsHandler(db *database.DB) *ShotsHandler {
	return &ShotsHandler{db: db}
}

func (h *ShotsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name" validate:"max=200"`
		Order *int   `json:"order" validate:"omitempty,min=0"`
	}
	if msg, ok := bind(r, &req); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	order := -1
	if req.Order != nil {
		order = *req.Order
	}
	shot, err := h.db.CreateShot(r.Context(), chi.URLParam(r, "id"), req.Name, order)
	if err != nil {
		writeStoreError(w, err, "storyboard")
		return
	}
	writeJSON(w, http.StatusCreated, shot)
}

func (h *ShotsHandler) List(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.db.GetStoryboard(r.Context(), id); err != nil {
		writeStoreError(w, err, "storyboard")
		return
	}
	shots, err := h.db.ListShots(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list shots")
		return
	}
	writeJSON(w, http.StatusOK, shots)
}

func (h *ShotsHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ShotIDs []string `json:"shot_ids" validate:"required,min=1"`
	}
	if msg, ok := bind(r, &req); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.db.ReorderShots(r.Context(), id, req.ShotIDs); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to reorder shots")
		return
	}
	shots, err := h.db.ListShots(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list shots")
		return
	}
	writeJSON(w, http.StatusOK, shots)
}

func (h *ShotsHandler) Rename(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name" validate:"required,max=200"`
	}
	if msg, ok := bind(r, &req); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	id := chi.URLParam(r, "shotID")
	if err := h.db.RenameShot(r.Context(), id, req.Name); err != nil {
		writeStoreError(w, err, "shot")
		return
	}
	shot, err := h.db.GetShot(r.Context(), id)
	if err != nil {
		writeStoreError(w, err, "shot")
		return
	}
	writeJSON(w, http.StatusOK, shot)
}

func (h *ShotsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.db.DeleteShot(r.Context(), chi.URLParam(r, "shotID")); err != nil {
		writeStoreError(w, err, "shot")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
