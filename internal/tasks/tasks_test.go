package tasks

import (
	"errors"
	"fmt"
	"testing"
)

func TestValid(t *testing.T) {
	for _, task := range All() {
		if !task.Valid() {
			t.Errorf("expected %q to be valid", task)
		}
	}
	if Task("image_upscale").Valid() {
		t.Error("expected unknown task to be invalid")
	}
	if Task("").Valid() {
		t.Error("expected empty task to be invalid")
	}
}

func TestAllHasEightTasks(t *testing.T) {
	if got := len(All()); got != 8 {
		t.Fatalf("expected 8 tasks, got %d", got)
	}
}

func TestIsCallerError(t *testing.T) {
	wrapped := fmt.Errorf("%w: prompt", ErrInvalidInput)
	if !IsCallerError(wrapped) {
		t.Error("expected wrapped ErrInvalidInput to be a caller error")
	}
	if IsCallerError(ErrNoImageURL) {
		t.Error("ErrNoImageURL should not be a caller error")
	}
	if IsCallerError(errors.New("boom")) {
		t.Error("plain error should not be a caller error")
	}
}

func TestIsProviderResultError(t *testing.T) {
	for _, err := range []error{ErrNoImageURL, ErrNoVideoURL, ErrNoAudioURL} {
		if !IsProviderResultError(err) {
			t.Errorf("expected %v to be a provider result error", err)
		}
	}
	if IsProviderResultError(ErrMissingInvoker) {
		t.Error("ErrMissingInvoker should not be a provider result error")
	}
}
