package handlers

import (
	"net/http"

	"github.com/crapthings/storyboard/internal/catalog"
	"github.com/crapthings/storyboard/internal/registry"
	"github.com/crapthings/storyboard/internal/tasks"
)

type ModelsHandler struct {
	registry *registry.Registry
}

func NewModelsHandler(reg *registry.Registry) *ModelsHandler {
	return &ModelsHandler{registry: reg}
}

type modelView struct {
	catalog.Descriptor
	Default bool `json:"default"`
}

func (h *ModelsHandler) view(d catalog.Descriptor) modelView {
	return modelView{Descriptor: d, Default: h.registry.IsDefault(d.Key)}
}

// List returns the catalog, optionally filtered to one task.
func (h *ModelsHandler) List(w http.ResponseWriter, r *http.Request) {
	task := tasks.Task(r.URL.Query().Get("task"))
	if task != "" && !task.Valid() {
		writeError(w, http.StatusBadRequest, "unknown task "+string(task))
		return
	}
	list := h.registry.List(task)
	out := make([]modelView, 0, len(list))
	for _, d := range list {
		out = append(out, h.view(d))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *ModelsHandler) Default(w http.ResponseWriter, r *http.Request) {
	task := tasks.Task(r.URL.Query().Get("task"))
	if task == "" {
		writeError(w, http.StatusBadRequest, "task is required")
		return
	}
	d, ok := h.registry.DefaultFor(task)
	if !ok {
		writeError(w, http.StatusNotFound, "no default model for "+string(task))
		return
	}
	writeJSON(w, http.StatusOK, h.view(d))
}
