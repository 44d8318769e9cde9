package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/crapthings/storyboard/internal/catalog"
	"github.com/crapthings/storyboard/internal/config"
	"github.com/crapthings/storyboard/internal/fal"
	"github.com/crapthings/storyboard/internal/registry"
	"github.com/crapthings/storyboard/internal/tasks"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("STORYBOARD_CONFIG", filepath.Join(dir, "none.toml"))
	t.Setenv("STORYBOARD_DATA_DIR", dir)

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestParseParams(t *testing.T) {
	got, err := parseParams([]string{
		"prompt=a quiet harbor",
		"duration=5",
		"generateAudio=true",
		"resolution={\"width\":1024,\"height\":576}",
		"name=\"42\"",
		"empty=",
	})
	if err != nil {
		t.Fatalf("parseParams: %v", err)
	}
	if got["prompt"] != "a quiet harbor" {
		t.Errorf("prompt = %#v", got["prompt"])
	}
	if got["duration"] != float64(5) {
		t.Errorf("duration = %#v", got["duration"])
	}
	if got["generateAudio"] != true {
		t.Errorf("generateAudio = %#v", got["generateAudio"])
	}
	if res, ok := got["resolution"].(map[string]any); !ok || res["width"] != float64(1024) {
		t.Errorf("resolution = %#v", got["resolution"])
	}
	if got["name"] != "42" {
		t.Errorf("name = %#v", got["name"])
	}
	if got["empty"] != "" {
		t.Errorf("empty = %#v", got["empty"])
	}

	for _, bad := range []string{"novalue", "=x"} {
		if _, err := parseParams([]string{bad}); err == nil {
			t.Errorf("parseParams(%q) should fail", bad)
		}
	}
}

func TestTaskTitle(t *testing.T) {
	if got := taskTitle(tasks.ImageToVideo); got != "Image To Video" {
		t.Errorf("taskTitle = %q", got)
	}
}

func TestRenderModelsMarksDefault(t *testing.T) {
	reg := registry.Default()
	out := renderModels(reg, reg.List(tasks.TTS))
	if !strings.Contains(out, catalog.KeyTTSDefault) {
		t.Errorf("table missing tts model:\n%s", out)
	}
	if !strings.Contains(out, "Tts") || !strings.Contains(out, "*") {
		t.Errorf("table missing title or default marker:\n%s", out)
	}
}

func TestModelsCommandJSON(t *testing.T) {
	out, err := execute(t, "models", "--task", "image_edit", "--json")
	if err != nil {
		t.Fatalf("models: %v", err)
	}
	var list []catalog.Descriptor
	if err := json.Unmarshal([]byte(out), &list); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(list) != 3 {
		t.Errorf("got %d models, want 3", len(list))
	}

	if _, err := execute(t, "models", "--task", "nope"); err == nil {
		t.Error("expected error for unknown task")
	}
}

func TestRunCommandSync(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/fal-ai/z-image/turbo" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var in map[string]any
		json.NewDecoder(r.Body).Decode(&in)
		if in["prompt"] != "lighthouse" || in["aspect_ratio"] != "16:9" {
			t.Errorf("input = %v", in)
		}
		w.Write([]byte(`{"images":[{"url":"https://fal.media/l.png"}]}`))
	}))
	defer srv.Close()

	prev := newFalClient
	newFalClient = func(cfg *config.Config) *fal.Client {
		return fal.NewClient("test-key", fal.WithBaseURLs(srv.URL, srv.URL, srv.URL))
	}
	t.Cleanup(func() { newFalClient = prev })

	out, err := execute(t, "run", "--task", "text_to_image", "--sync", "-p", "prompt=lighthouse", "-p", "aspectRatio=16:9")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if strings.TrimSpace(out) != "image\thttps://fal.media/l.png" {
		t.Errorf("output = %q", out)
	}
}

func TestRunCommandReportsPipelineErrors(t *testing.T) {
	prev := newFalClient
	newFalClient = func(cfg *config.Config) *fal.Client { return fal.NewClient("test-key") }
	t.Cleanup(func() { newFalClient = prev })

	if _, err := execute(t, "run", "--task", "image_edit", "-p", "prompt=x"); err == nil {
		t.Error("expected missing image error")
	}
}

func TestRunCommandRequiresKey(t *testing.T) {
	prev := newFalClient
	newFalClient = func(cfg *config.Config) *fal.Client { return fal.NewClient("") }
	t.Cleanup(func() { newFalClient = prev })

	_, err := execute(t, "run", "--task", "tts", "-p", "text=hi")
	if err == nil || !strings.Contains(err.Error(), "FAL_KEY") {
		t.Errorf("err = %v", err)
	}
}
