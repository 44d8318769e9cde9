package catalog

import (
	"strings"
	"testing"

	"github.com/crapthings/storyboard/internal/tasks"
)

func TestAllKeysAndModelIDsUnique(t *testing.T) {
	keys := map[string]bool{}
	ids := map[string]bool{}
	for _, d := range All() {
		if keys[d.Key] {
			t.Errorf("duplicate key %q", d.Key)
		}
		keys[d.Key] = true
		if ids[d.ModelID] {
			t.Errorf("duplicate model id %q", d.ModelID)
		}
		ids[d.ModelID] = true
	}
}

func TestFieldMapKeysExistInSchema(t *testing.T) {
	for _, d := range All() {
		for field := range d.FieldMap {
			if _, ok := d.InputSchema[field]; !ok {
				t.Errorf("%s: field map key %q missing from input schema", d.Key, field)
			}
		}
	}
}

func TestDescriptorsAreWellFormed(t *testing.T) {
	for _, d := range All() {
		if d.Provider != ProviderFal {
			t.Errorf("%s: unexpected provider %q", d.Key, d.Provider)
		}
		if !d.Task.Valid() {
			t.Errorf("%s: invalid task %q", d.Key, d.Task)
		}
		if !strings.HasPrefix(d.Key, "fal."+string(d.Task)+".") {
			t.Errorf("%s: key does not follow provider.task.variant", d.Key)
		}
		if d.ModelID == "" {
			t.Errorf("%s: empty model id", d.Key)
		}
	}
}

func TestDefaultKeysPointAtMatchingTask(t *testing.T) {
	byKey := map[string]Descriptor{}
	for _, d := range All() {
		byKey[d.Key] = d
	}
	for task, key := range DefaultKeys() {
		d, ok := byKey[key]
		if !ok {
			t.Errorf("default for %s references unknown key %q", task, key)
			continue
		}
		if d.Task != task {
			t.Errorf("default for %s has task %s", task, d.Task)
		}
	}
}

func TestDefaultKeysSkipUncataloguedTasks(t *testing.T) {
	defaults := DefaultKeys()
	for _, task := range []tasks.Task{tasks.VideoToVideo, tasks.LipSyncVideo} {
		if _, ok := defaults[task]; ok {
			t.Errorf("expected no default for %s", task)
		}
	}
}

func TestAllReturnsFreshValues(t *testing.T) {
	first := All()
	first[0].FieldMap["prompt"] = "mutated"
	first[0].InputSchema["extra"] = Field{Required: true, Type: TypeString}

	second := All()
	if second[0].FieldMap["prompt"] != "prompt" {
		t.Errorf("catalog mutation leaked: %q", second[0].FieldMap["prompt"])
	}
	if _, ok := second[0].InputSchema["extra"]; ok {
		t.Error("catalog schema mutation leaked")
	}
}

func TestCloneDoesNotShareMaps(t *testing.T) {
	d := All()[0]
	c := d.Clone()
	c.FieldMap["prompt"] = "other"
	if d.FieldMap["prompt"] != "prompt" {
		t.Error("clone shares FieldMap with original")
	}
}

func TestSpeechDefaultsUseWireNames(t *testing.T) {
	for _, d := range All() {
		if d.Key != KeyTTSDefault {
			continue
		}
		if d.Defaults["output_format"] != "url" {
			t.Errorf("expected output_format default url, got %v", d.Defaults["output_format"])
		}
		return
	}
	t.Fatal("tts default not found")
}
