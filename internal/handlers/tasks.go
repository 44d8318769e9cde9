package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/crapthings/storyboard/internal/adapters"
	"github.com/crapthings/storyboard/internal/database"
	"github.com/crapthings/storyboard/internal/logger"
	"github.com/crapthings/storyboard/internal/models"
	"github.com/crapthings/storyboard/internal/runner"
	"github.com/crapthings/storyboard/internal/sources"
	"github.com/crapthings/storyboard/internal/tasks"
	"github.com/crapthings/storyboard/internal/websocket"
)

// Provider is the generation backend the tasks handler calls. *fal.Client
// satisfies it.
type Provider interface {
	Subscribe(ctx context.Context, modelID string, input map[string]any) (map[string]any, error)
	UploadFromURL(ctx context.Context, url string) (string, error)
	IsConfigured() bool
}

// generationTimeout bounds one task. The run is detached from the request so
// a dropped client does not leave the asset half-written.
const generationTimeout = 15 * time.Minute

type TasksHandler struct {
	db       *database.DB
	runner   *runner.Runner
	provider Provider
	events   events
}

func NewTasksHandler(db *database.DB, r *runner.Runner, provider Provider, pub Publisher) *TasksHandler {
	return &TasksHandler{db: db, runner: r, provider: provider, events: events{pub: pub}}
}

type runTaskRequest struct {
	StoryboardID       string         `json:"storyboard_id" validate:"required"`
	ShotID             string         `json:"shot_id" validate:"required"`
	RowID              string         `json:"row_id" validate:"required,row"`
	Task               string         `json:"task"`
	Model              string         `json:"model"`
	Prompt             string         `json:"prompt"`
	Params             map[string]any `json:"params"`
	PreferredImageRows []string       `json:"preferred_image_rows" validate:"omitempty,dive,row"`
	PreferredAudioRows []string       `json:"preferred_audio_rows" validate:"omitempty,dive,row"`
}

type runTaskResponse struct {
	Asset  *models.Asset    `json:"asset"`
	Result *adapters.Result `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// Run generates one asset into a shot row. The asset is created pending and
// shown in the row immediately, then completed or failed with the provider
// outcome.
func (h *TasksHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req runTaskRequest
	if msg, ok := bind(r, &req); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if _, err := h.runner.Resolve(tasks.Task(req.Task), req.Model); err != nil {
		writeError(w, statusForTaskError(err), err.Error())
		return
	}
	if h.provider == nil || !h.provider.IsConfigured() {
		writeError(w, http.StatusServiceUnavailable, "FAL API key not configured")
		return
	}

	shot, err := h.db.GetShot(r.Context(), req.ShotID)
	if err != nil {
		writeStoreError(w, err, "shot")
		return
	}
	if shot.StoryboardID != req.StoryboardID {
		writeError(w, http.StatusNotFound, "shot not found")
		return
	}

	params := req.Params
	if params == nil {
		params = map[string]any{}
	}
	if _, ok := params["prompt"]; !ok && req.Prompt != "" {
		params["prompt"] = req.Prompt
	}
	prompt, _ := params["prompt"].(string)

	asset, err := h.db.CreatePendingAsset(r.Context(), database.NewAsset{
		StoryboardID: req.StoryboardID,
		ShotID:       req.ShotID,
		RowID:        req.RowID,
		Prompt:       prompt,
		Task:         req.Task,
		ModelKey:     req.Model,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create asset")
		return
	}
	h.events.asset(websocket.EventAssetCreated, asset)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), generationTimeout)
	defer cancel()

	if err := h.db.MarkAssetStatus(ctx, asset.ID, models.AssetProcessing, ""); err != nil {
		logger.Error("Mark asset %s processing: %v", asset.ID, err)
	}
	logger.Task("start", req.Task, req.Model)
	start := time.Now()

	result, runErr := h.runner.Run(ctx, runner.Request{
		Task:               tasks.Task(req.Task),
		Model:              req.Model,
		Params:             params,
		ShotID:             req.ShotID,
		PreferredImageRows: req.PreferredImageRows,
		PreferredAudioRows: req.PreferredAudioRows,
		FindActiveAsset:    h.activeAt(shot),
		UploadFromURL:      h.provider.UploadFromURL,
		Invoke:             h.provider.Subscribe,
	})

	var saved *models.Asset
	status := http.StatusOK
	if runErr != nil {
		status = statusForTaskError(runErr)
	} else if saved, err = h.db.SaveGeneratedAsset(ctx, asset.ID, prompt, result.Asset); err != nil {
		runErr = err
		status = http.StatusInternalServerError
	}
	if runErr != nil {
		logger.Task("failed", req.Task, runErr.Error())
		if err := h.db.MarkAssetStatus(ctx, asset.ID, models.AssetError, runErr.Error()); err != nil {
			logger.Error("Mark asset %s failed: %v", asset.ID, err)
		}
		saved, _ = h.db.GetAsset(ctx, asset.ID)
	} else {
		logger.Task("done", req.Task, time.Since(start).Round(time.Millisecond).String())
	}

	h.events.asset(websocket.EventAssetUpdated, saved)
	if shotStats, sbStats, err := h.db.RecomputeStats(ctx, req.StoryboardID, req.ShotID); err != nil {
		logger.Error("Recompute stats for shot %s: %v", req.ShotID, err)
	} else {
		h.events.stats(req.StoryboardID, req.ShotID, shotStats, sbStats)
	}

	if runErr != nil {
		writeJSON(w, status, runTaskResponse{Asset: saved, Error: runErr.Error()})
		return
	}
	writeJSON(w, status, runTaskResponse{Asset: saved, Result: result})
}

// activeAt answers source lookups from the shot's rows as they were when the
// request arrived, before the pending asset took over its own row.
func (h *TasksHandler) activeAt(shot *models.Shot) sources.FindActiveAssetFunc {
	return func(ctx context.Context, shotID, rowID string) (*sources.ActiveAsset, error) {
		var (
			a   *models.Asset
			err error
		)
		if shotID == shot.ID {
			id := shot.ActiveAssets[rowID]
			if id == "" {
				return nil, nil
			}
			a, err = h.db.GetAsset(ctx, id)
			if errors.Is(err, database.ErrNotFound) {
				return nil, nil
			}
		} else {
			a, err = h.db.ActiveAssetByRow(ctx, shotID, rowID)
		}
		if err != nil || a == nil {
			return nil, err
		}
		return &sources.ActiveAsset{ID: a.ID, URL: a.URL}, nil
	}
}

// statusForTaskError maps pipeline errors to HTTP statuses. Caller mistakes
// are 400, server wiring faults are 500 and everything the provider caused
// is 502.
func statusForTaskError(err error) int {
	switch {
	case tasks.IsCallerError(err):
		return http.StatusBadRequest
	case errors.Is(err, tasks.ErrUnsupportedProvider), errors.Is(err, tasks.ErrMissingInvoker):
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}
