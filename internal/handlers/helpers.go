package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/crapthings/storyboard/internal/database"
	"github.com/crapthings/storyboard/internal/models"
	"github.com/crapthings/storyboard/internal/websocket"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterValidation("row", func(fl validator.FieldLevel) bool {
		return database.ValidRow(fl.Field().String())
	})
	return v
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func decodeJSON(r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1MB limit
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// bind decodes the body into v and runs its validate tags. The returned
// message is safe to show to the caller.
func bind(r *http.Request, v any) (string, bool) {
	if err := decodeJSON(r, v); err != nil {
		return "invalid request body", false
	}
	if err := validate.Struct(v); err != nil {
		return validationMessage(err), false
	}
	return "", true
}

func validationMessage(err error) string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return err.Error()
	}
	fe := errs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "row":
		return fmt.Sprintf("%s %q is not a shot row", fe.Field(), fe.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}

// writeStoreError maps store errors to responses.
func writeStoreError(w http.ResponseWriter, err error, what string) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, what+" not found")
	case errors.Is(err, database.ErrInvalidRow):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "failed to load "+what)
	}
}

// Publisher pushes events to storyboard subscribers.
type Publisher interface {
	Publish(topic, eventType string, payload any)
}

type events struct {
	pub Publisher
}

func (e events) asset(eventType string, a *models.Asset) {
	if e.pub == nil || a == nil {
		return
	}
	e.pub.Publish(websocket.StoryboardTopic(a.StoryboardID), eventType, models.WSAssetEvent{
		StoryboardID: a.StoryboardID,
		ShotID:       a.ShotID,
		RowID:        a.RowID,
		Asset:        a,
	})
}

func (e events) stats(storyboardID, shotID string, shot, storyboard models.Stats) {
	if e.pub == nil {
		return
	}
	e.pub.Publish(websocket.StoryboardTopic(storyboardID), websocket.EventStatsUpdated, models.WSStatsUpdated{
		StoryboardID:    storyboardID,
		ShotID:          shotID,
		ShotStats:       shot,
		StoryboardStats: storyboard,
	})
}

func (e events) activeChanged(storyboardID, shotID, rowID, assetID string) {
	if e.pub == nil {
		return
	}
	e.pub.Publish(websocket.StoryboardTopic(storyboardID), websocket.EventActiveChanged, models.WSActiveChanged{
		ShotID:  shotID,
		RowID:   rowID,
		AssetID: assetID,
	})
}
