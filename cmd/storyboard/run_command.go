package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/crapthings/storyboard/internal/adapters"
	"github.com/crapthings/storyboard/internal/config"
	"github.com/crapthings/storyboard/internal/fal"
	"github.com/crapthings/storyboard/internal/runner"
	"github.com/crapthings/storyboard/internal/tasks"
)

// newFalClient is swapped in tests.
var newFalClient = func(cfg *config.Config) *fal.Client {
	return fal.NewClient(cfg.FalKey,
		fal.WithPollInterval(cfg.FalPollInterval()),
		fal.WithPublicURL(cfg.PublicURL),
	)
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		taskFlag   string
		modelFlag  string
		paramFlags []string
		imageURL   string
		audioURL   string
		sync       bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one generation task against fal and print the result",
		Example: `  storyboard run --task text_to_image --param prompt="a lighthouse at dusk"
  storyboard run --task image_to_video --model fal.image_to_video.vidu_q3 \
    --image-url https://example.com/frame.png --param prompt="slow push in"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.config()
			if err != nil {
				return err
			}
			params, err := parseParams(paramFlags)
			if err != nil {
				return err
			}
			if imageURL != "" {
				params["imageUrl"] = imageURL
			}
			if audioURL != "" {
				params["audioUrl"] = audioURL
			}

			client := newFalClient(cfg)
			if !client.IsConfigured() {
				return fmt.Errorf("FAL_KEY is not set")
			}
			invoke := adapters.Invoker(client.Subscribe)
			if sync {
				invoke = client.Run
			}

			result, err := runner.Default().Run(cmd.Context(), runner.Request{
				Task:          tasks.Task(taskFlag),
				Model:         modelFlag,
				Params:        params,
				UploadFromURL: client.UploadFromURL,
				Invoke:        invoke,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			fmt.Fprintf(out, "%s\t%s\n", result.Kind, result.URL())
			return nil
		},
	}

	cmd.Flags().StringVar(&taskFlag, "task", "", "Task to run, e.g. text_to_image")
	cmd.Flags().StringVar(&modelFlag, "model", "", "Catalog key or provider model id (default model when empty)")
	cmd.Flags().StringArrayVarP(&paramFlags, "param", "p", nil, "Input parameter as key=value; JSON values are decoded")
	cmd.Flags().StringVar(&imageURL, "image-url", "", "Reference image URL")
	cmd.Flags().StringVar(&audioURL, "audio-url", "", "Reference audio URL")
	cmd.Flags().BoolVar(&sync, "sync", false, "Call the model synchronously instead of through the queue")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the full normalized result as JSON")
	cmd.MarkFlagRequired("task")
	return cmd
}

// parseParams turns key=value pairs into a params map. Values that parse as
// JSON (numbers, booleans, arrays, objects) keep their type; anything else is
// a string.
func parseParams(pairs []string) (map[string]any, error) {
	params := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --param %q, want key=value", pair)
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err == nil && v != nil {
			params[key] = v
			continue
		}
		params[key] = raw
	}
	return params, nil
}
