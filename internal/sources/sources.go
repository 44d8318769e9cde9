// Package sources fills media reference fields a model needs but the caller
// did not supply, falling back to the active asset of a shot's rows.
package sources

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/crapthings/storyboard/internal/catalog"
	"github.com/crapthings/storyboard/internal/tasks"
)

// Row ids of the media slots in a shot.
const (
	RowSourceClip  = "source-clip"
	RowSourceImage = "source-image"
	RowEditImage   = "edit-image"
	RowOutputVideo = "output-video"
	RowAudio       = "audio"
)

// ActiveAsset is the part of a stored asset the resolver reads.
type ActiveAsset struct {
	ID  string
	URL string
}

// FindActiveAssetFunc returns the active asset for a shot row, or nil when the
// row has none.
type FindActiveAssetFunc func(ctx context.Context, shotID, rowID string) (*ActiveAsset, error)

// UploadFunc re-hosts url somewhere the provider can fetch it.
type UploadFunc func(ctx context.Context, url string) (string, error)

// DefaultImageRows and DefaultAudioRows are probed in order when the caller
// supplies no preference.
var (
	DefaultImageRows = []string{RowEditImage, RowSourceImage}
	DefaultAudioRows = []string{RowAudio}
)

// Request describes one resolution: the task, its resolved model, the
// caller's params and the lookups used when the caller supplied no media.
type Request struct {
	Task               tasks.Task
	Model              catalog.Descriptor
	Params             map[string]any
	ShotID             string
	FindActiveAsset    FindActiveAssetFunc
	UploadFromURL      UploadFunc
	PreferredImageRows []string
	PreferredAudioRows []string
}

// Resolve returns the fields to merge over the caller's params. Tasks that take
// no media input resolve to an empty map.
func Resolve(ctx context.Context, req Request) (map[string]any, error) {
	switch req.Task {
	case tasks.ImageEdit, tasks.ImageToVideo:
		return resolveImage(ctx, req)
	case tasks.LipSyncImage:
		return resolveImageAndAudio(ctx, req)
	default:
		return map[string]any{}, nil
	}
}

func resolveImageAndAudio(ctx context.Context, req Request) (map[string]any, error) {
	var image, audio map[string]any
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		image, err = resolveImage(gctx, req)
		return err
	})
	g.Go(func() error {
		var err error
		audio, err = resolveAudio(gctx, req)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]any, len(image)+len(audio))
	for k, v := range image {
		out[k] = v
	}
	for k, v := range audio {
		out[k] = v
	}
	return out, nil
}

func resolveImage(ctx context.Context, req Request) (map[string]any, error) {
	single := req.Model.RequiresField("image")

	if url := firstString(req.Params, "image", "imageUrl"); url != "" {
		if single {
			return map[string]any{"image": url}, nil
		}
		return map[string]any{"images": []any{url}}, nil
	}
	if list := firstList(req.Params, "images", "imageUrls"); len(list) > 0 {
		if single {
			return map[string]any{"image": list[0]}, nil
		}
		return map[string]any{"images": list}, nil
	}

	url, err := fromRows(ctx, req, rowsOr(req.PreferredImageRows, DefaultImageRows), tasks.ErrMissingImage)
	if err != nil {
		return nil, err
	}
	if single {
		return map[string]any{"image": url}, nil
	}
	return map[string]any{"images": []any{url}}, nil
}

func resolveAudio(ctx context.Context, req Request) (map[string]any, error) {
	if url := firstString(req.Params, "audioUrl"); url != "" {
		return map[string]any{"audioUrl": url}, nil
	}
	url, err := fromRows(ctx, req, rowsOr(req.PreferredAudioRows, DefaultAudioRows), tasks.ErrMissingAudio)
	if err != nil {
		return nil, err
	}
	return map[string]any{"audioUrl": url}, nil
}

// fromRows probes rows in order and returns the first active asset URL,
// re-hosted through UploadFromURL when one is configured.
func fromRows(ctx context.Context, req Request, rows []string, missing error) (string, error) {
	if req.ShotID == "" || req.FindActiveAsset == nil {
		return "", fmt.Errorf("%w: no source supplied and no shot to fall back to", missing)
	}

	var url string
	for _, row := range rows {
		asset, err := req.FindActiveAsset(ctx, req.ShotID, row)
		if err != nil {
			return "", err
		}
		if asset != nil && asset.URL != "" {
			url = asset.URL
			break
		}
	}
	if url == "" {
		return "", fmt.Errorf("%w: no active asset in rows %s", missing, strings.Join(rows, ", "))
	}

	if req.UploadFromURL == nil {
		return url, nil
	}
	return req.UploadFromURL(ctx, url)
}

func rowsOr(preferred, fallback []string) []string {
	if len(preferred) > 0 {
		return preferred
	}
	return fallback
}

func firstString(params map[string]any, names ...string) string {
	for _, name := range names {
		if s, ok := params[name].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

// firstList accepts both decoded JSON arrays and typed string slices.
func firstList(params map[string]any, names ...string) []any {
	for _, name := range names {
		switch v := params[name].(type) {
		case []any:
			if len(v) > 0 {
				return v
			}
		case []string:
			if len(v) > 0 {
				out := make([]any, len(v))
				for i, s := range v {
					out[i] = s
				}
				return out
			}
		}
	}
	return nil
}
