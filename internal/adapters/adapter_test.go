package adapters

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/crapthings/storyboard/internal/catalog"
	"github.com/crapthings/storyboard/internal/tasks"
)

var editSchema = map[string]catalog.Field{
	"prompt": {Required: true, Type: catalog.TypeString},
	"images": {Required: true, Type: catalog.TypeArray, MinItems: 1},
}

func TestValidateParams(t *testing.T) {
	tests := []struct {
		name    string
		params  map[string]any
		wantErr bool
	}{
		{"missing images", map[string]any{"prompt": "x"}, true},
		{"below min items", map[string]any{"prompt": "x", "images": []any{}}, true},
		{"wrong prompt type", map[string]any{"prompt": 5, "images": []any{"a"}}, true},
		{"nil required", map[string]any{"prompt": nil, "images": []any{"a"}}, true},
		{"images not an array", map[string]any{"prompt": "x", "images": "a"}, true},
		{"valid", map[string]any{"prompt": "x", "images": []any{"a"}}, false},
		{"typed slice", map[string]any{"prompt": "x", "images": []string{"a"}}, false},
		{"unknown field passes", map[string]any{"prompt": "x", "images": []any{"a"}, "foo": 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateParams(editSchema, tt.params)
			if tt.wantErr && !errors.Is(err, tasks.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateOptionalFields(t *testing.T) {
	schema := map[string]catalog.Field{
		"seed":       {Type: catalog.TypeNumber},
		"audio":      {Type: catalog.TypeBoolean},
		"resolution": {Type: catalog.TypeObject},
	}
	if err := ValidateParams(schema, map[string]any{}); err != nil {
		t.Errorf("absent optional fields should pass: %v", err)
	}
	if err := ValidateParams(schema, map[string]any{"seed": nil}); err != nil {
		t.Errorf("nil optional field should be skipped: %v", err)
	}
	ok := map[string]any{"seed": 42, "audio": true, "resolution": map[string]any{"width": 1024}}
	if err := ValidateParams(schema, ok); err != nil {
		t.Errorf("valid optional fields rejected: %v", err)
	}
	if err := ValidateParams(schema, map[string]any{"seed": float64(1.5)}); err != nil {
		t.Errorf("float seed rejected: %v", err)
	}
	for _, bad := range []map[string]any{
		{"seed": "42"},
		{"audio": "yes"},
		{"resolution": "1024x768"},
	} {
		if err := ValidateParams(schema, bad); !errors.Is(err, tasks.ErrInvalidInput) {
			t.Errorf("%v: expected ErrInvalidInput, got %v", bad, err)
		}
	}
}

func TestMapParams(t *testing.T) {
	d := catalog.Descriptor{
		FieldMap: map[string]string{"prompt": "prompt", "images": "image_urls"},
		Defaults: map[string]any{"output_format": "png"},
	}
	got := MapParams(d, map[string]any{"prompt": "hi", "images": []any{"u1"}, "foo": 1})
	want := map[string]any{"output_format": "png", "prompt": "hi", "image_urls": []any{"u1"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if _, ok := d.Defaults["prompt"]; ok {
		t.Error("mapping mutated the descriptor defaults")
	}
}

func TestMapParamsCallerOverridesDefault(t *testing.T) {
	d := catalog.Descriptor{
		FieldMap: map[string]string{"outputFormat": "output_format", "seed": "seed"},
		Defaults: map[string]any{"output_format": "png"},
	}
	got := MapParams(d, map[string]any{"outputFormat": "jpeg", "seed": nil})
	want := map[string]any{"output_format": "jpeg"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestNormalize(t *testing.T) {
	image := map[string]any{"url": "http://x", "width": 10}
	res, err := Normalize(tasks.TextToImage, map[string]any{
		"data": map[string]any{"images": []any{image}},
	})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if res.Kind != KindImage || !reflect.DeepEqual(res.Asset, image) {
		t.Errorf("got %+v", res)
	}

	_, err = Normalize(tasks.ImageEdit, map[string]any{
		"data": map[string]any{"images": []any{map[string]any{}}},
	})
	if !errors.Is(err, tasks.ErrNoImageURL) {
		t.Errorf("expected ErrNoImageURL, got %v", err)
	}
}

func TestNormalizeVideoShapes(t *testing.T) {
	nested, err := Normalize(tasks.ImageToVideo, map[string]any{
		"data": map[string]any{"video": map[string]any{"url": "http://v1"}},
	})
	if err != nil || nested.Kind != KindVideo || nested.URL() != "http://v1" {
		t.Errorf("nested video: %+v, %v", nested, err)
	}
	flat, err := Normalize(tasks.TextToVideo, map[string]any{
		"video": map[string]any{"url": "http://v2"},
	})
	if err != nil || flat.URL() != "http://v2" {
		t.Errorf("top-level video: %+v, %v", flat, err)
	}
	if _, err := Normalize(tasks.VideoToVideo, map[string]any{"data": map[string]any{}}); !errors.Is(err, tasks.ErrNoVideoURL) {
		t.Errorf("expected ErrNoVideoURL, got %v", err)
	}
}

func TestNormalizeAudio(t *testing.T) {
	res, err := Normalize(tasks.TTS, map[string]any{
		"data": map[string]any{"audio": map[string]any{"url": "http://a", "duration_ms": 1200}},
	})
	if err != nil || res.Kind != KindAudio || res.URL() != "http://a" {
		t.Errorf("got %+v, %v", res, err)
	}
	if _, err := Normalize(tasks.TTS, map[string]any{"audio": map[string]any{"url": "http://a"}}); !errors.Is(err, tasks.ErrNoAudioURL) {
		t.Errorf("expected ErrNoAudioURL, got %v", err)
	}
}

func TestNormalizeUnsupportedTask(t *testing.T) {
	for _, task := range []tasks.Task{tasks.LipSyncImage, tasks.LipSyncVideo, "bogus"} {
		if _, err := Normalize(task, map[string]any{}); !errors.Is(err, tasks.ErrUnsupportedTask) {
			t.Errorf("%s: expected ErrUnsupportedTask, got %v", task, err)
		}
	}
}

func TestRunRequiresInvoker(t *testing.T) {
	_, err := Run(context.Background(), Fal{}, catalog.Descriptor{Task: tasks.TextToImage}, nil, nil)
	if !errors.Is(err, tasks.ErrMissingInvoker) {
		t.Errorf("expected ErrMissingInvoker, got %v", err)
	}
}

func TestRunValidatesBeforeInvoking(t *testing.T) {
	called := false
	invoke := func(context.Context, string, map[string]any) (map[string]any, error) {
		called = true
		return nil, nil
	}
	d := catalog.Descriptor{Task: tasks.ImageEdit, InputSchema: editSchema}
	_, err := Run(context.Background(), Fal{}, d, map[string]any{"prompt": "x"}, invoke)
	if !errors.Is(err, tasks.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if called {
		t.Error("provider invoked with invalid input")
	}
}

func TestRunPassesModelIDAndInput(t *testing.T) {
	d := catalog.Descriptor{
		Task:        tasks.ImageEdit,
		ModelID:     "fal-ai/test/edit",
		InputSchema: editSchema,
		FieldMap:    map[string]string{"prompt": "prompt", "images": "image_urls"},
		Defaults:    map[string]any{"num_images": 1},
	}
	var gotID string
	var gotInput map[string]any
	invoke := func(_ context.Context, modelID string, input map[string]any) (map[string]any, error) {
		gotID, gotInput = modelID, input
		return map[string]any{"data": map[string]any{"images": []any{map[string]any{"url": "http://out"}}}}, nil
	}
	res, err := Run(context.Background(), Fal{}, d, map[string]any{"prompt": "p", "images": []any{"u"}}, invoke)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if gotID != "fal-ai/test/edit" {
		t.Errorf("model id = %s", gotID)
	}
	want := map[string]any{"num_images": 1, "prompt": "p", "image_urls": []any{"u"}}
	if !reflect.DeepEqual(gotInput, want) {
		t.Errorf("input = %v, want %v", gotInput, want)
	}
	if res.URL() != "http://out" {
		t.Errorf("url = %s", res.URL())
	}
}

func TestRunPropagatesInvokerError(t *testing.T) {
	boom := errors.New("queue rejected")
	invoke := func(context.Context, string, map[string]any) (map[string]any, error) {
		return nil, boom
	}
	d := catalog.Descriptor{Task: tasks.TTS}
	if _, err := Run(context.Background(), Fal{}, d, nil, invoke); !errors.Is(err, boom) {
		t.Errorf("expected invoker error, got %v", err)
	}
}

func TestTableLookup(t *testing.T) {
	table := NewTable(Fal{})
	if a, ok := table.Lookup("fal"); !ok || a.Name() != "fal" {
		t.Errorf("fal adapter not registered")
	}
	if _, ok := table.Lookup("replicate"); ok {
		t.Error("unexpected adapter")
	}
}
