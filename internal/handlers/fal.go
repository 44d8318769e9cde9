package handlers

import (
	"net/http"
)

// KeyStatus reports whether a provider key is set.
type KeyStatus interface {
	IsConfigured() bool
}

type FalHandler struct {
	client KeyStatus
	source string
}

// NewFalHandler takes the key source ("env", "config") for display only.
func NewFalHandler(client KeyStatus, source string) *FalHandler {
	return &FalHandler{client: client, source: source}
}

func (h *FalHandler) Status(w http.ResponseWriter, r *http.Request) {
	configured := h.client != nil && h.client.IsConfigured()
	source := h.source
	if !configured {
		source = "none"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"configured": configured,
		"source":     source,
	})
}
