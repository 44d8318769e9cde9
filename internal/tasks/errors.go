package tasks

import "errors"

var (
	ErrInvalidTask         = errors.New("task is required")
	ErrUnsupportedTask     = errors.New("unsupported task")
	ErrInvalidInput        = errors.New("invalid input")
	ErrMissingImage        = errors.New("missing reference image")
	ErrMissingAudio        = errors.New("missing reference audio")
	ErrMissingInvoker      = errors.New("missing provider invoker")
	ErrNoImageURL          = errors.New("no image URL returned")
	ErrNoVideoURL          = errors.New("no video URL returned")
	ErrNoAudioURL          = errors.New("no audio URL returned")
	ErrUnsupportedProvider = errors.New("unsupported provider")
)

// IsCallerError reports whether err was caused by the request itself rather
// than by configuration or the provider.
func IsCallerError(err error) bool {
	return errors.Is(err, ErrInvalidTask) ||
		errors.Is(err, ErrUnsupportedTask) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrMissingImage) ||
		errors.Is(err, ErrMissingAudio)
}

// IsProviderResultError reports whether the provider answered without a
// usable asset URL.
func IsProviderResultError(err error) bool {
	return errors.Is(err, ErrNoImageURL) ||
		errors.Is(err, ErrNoVideoURL) ||
		errors.Is(err, ErrNoAudioURL)
}
