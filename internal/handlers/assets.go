package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/crapthings/storyboard/internal/database"
	"github.com/crapthings/storyboard/internal/logger"
	"github.com/crapthings/storyboard/internal/websocket"
)

type AssetsHandler struct {
	db     *database.DB
	events events
}

func NewAssetsHandler(db *database.DB, pub Publisher) *AssetsHandler {
	return &AssetsHandler{db: db, events: events{pub: pub}}
}

func (h *AssetsHandler) List(w http.ResponseWriter, r *http.Request) {
	row := r.URL.Query().Get("row")
	if row != "" && !database.ValidRow(row) {
		writeError(w, http.StatusBadRequest, "unknown row "+row)
		return
	}
	shotID := chi.URLParam(r, "shotID")
	if _, err := h.db.GetShot(r.Context(), shotID); err != nil {
		writeStoreError(w, err, "shot")
		return
	}
	assets, err := h.db.ListAssets(r.Context(), shotID, row)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list assets")
		return
	}
	writeJSON(w, http.StatusOK, assets)
}

// Create attaches an existing URL to a shot row, e.g. an upload done by the
// browser, and makes it the row's active asset.
func (h *AssetsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RowID  string         `json:"row_id" validate:"required,row"`
		URL    string         `json:"url" validate:"required,url"`
		Prompt string         `json:"prompt"`
		Meta   map[string]any `json:"meta"`
	}
	if msg, ok := bind(r, &req); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	shot, err := h.db.GetShot(r.Context(), chi.URLParam(r, "shotID"))
	if err != nil {
		writeStoreError(w, err, "shot")
		return
	}

	asset, err := h.db.CreateAsset(r.Context(), database.NewAsset{
		StoryboardID: shot.StoryboardID,
		ShotID:       shot.ID,
		RowID:        req.RowID,
		Prompt:       req.Prompt,
		URL:          req.URL,
		Meta:         req.Meta,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create asset")
		return
	}
	if err := h.db.SetActiveAsset(r.Context(), shot.ID, asset.RowID, asset.ID); err != nil {
		logger.Error("Activate asset %s: %v", asset.ID, err)
	}
	h.events.asset(websocket.EventAssetCreated, asset)
	h.events.activeChanged(shot.StoryboardID, shot.ID, asset.RowID, asset.ID)
	h.refreshStats(r, shot.StoryboardID, shot.ID)
	writeJSON(w, http.StatusCreated, asset)
}

// Activate makes an asset the one shown in its row. The body must name the
// shot and row the asset belongs to.
func (h *AssetsHandler) Activate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ShotID string `json:"shot_id" validate:"required"`
		RowID  string `json:"row_id" validate:"required,row"`
	}
	if msg, ok := bind(r, &req); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	id := chi.URLParam(r, "id")
	err := h.db.SetActiveAsset(r.Context(), req.ShotID, req.RowID, id)
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, http.StatusNotFound, "asset not found in that shot row")
		return
	}
	if err != nil {
		writeStoreError(w, err, "asset")
		return
	}
	shot, err := h.db.GetShot(r.Context(), req.ShotID)
	if err != nil {
		writeStoreError(w, err, "shot")
		return
	}
	h.events.activeChanged(shot.StoryboardID, shot.ID, req.RowID, id)
	writeJSON(w, http.StatusOK, shot)
}

func (h *AssetsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	asset, err := h.db.DeleteAsset(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err, "asset")
		return
	}
	h.events.asset(websocket.EventAssetDeleted, asset)
	h.refreshStats(r, asset.StoryboardID, asset.ShotID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AssetsHandler) refreshStats(r *http.Request, storyboardID, shotID string) {
	shotStats, sbStats, err := h.db.RecomputeStats(r.Context(), storyboardID, shotID)
	if err != nil {
		logger.Error("Recompute stats for shot %s: %v", shotID, err)
		return
	}
	h.events.stats(storyboardID, shotID, shotStats, sbStats)
}

