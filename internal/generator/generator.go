// Package generator is the boundary to the text-to-image model. A backend is
// probed once, right before the first frame is needed, and then asked for
// one image per frame.
package generator

import (
	"context"
	"fmt"
	"image"
	"net/http"

	"github.com/ivlev/planetreel/internal/config"
)

// Request describes one image to generate.
type Request struct {
	Prompt string
	Width  int
	Height int
	Steps  int
	Seed   int64
}

type Generator interface {
	// Probe checks that the model is reachable and usable. It is the
	// "model load" step and runs once per process.
	Probe(ctx context.Context) error
	Generate(ctx context.Context, req Request) (image.Image, error)
}

// New builds the backend selected in cfg. It does no I/O; availability is
// checked by Probe.
func New(cfg *config.Config) (Generator, error) {
	httpClient := &http.Client{Timeout: cfg.Model.Timeout}

	switch cfg.Model.Backend {
	case config.BackendHuggingFace:
		return NewHuggingFace(HuggingFaceOptions{
			Model:        cfg.Model.ID,
			Token:        cfg.Token,
			InferenceURL: cfg.Model.InferenceURL,
			HubURL:       cfg.Model.HubURL,
			Client:       httpClient,
		}), nil
	case config.BackendOpenAI:
		return NewOpenAI(OpenAIOptions{
			Model:   cfg.Model.ID,
			Token:   cfg.Token,
			BaseURL: cfg.Model.BaseURL,
			Client:  httpClient,
		}), nil
	case config.BackendPlaceholder:
		return NewPlaceholder(), nil
	default:
		return nil, fmt.Errorf("unknown model backend %q", cfg.Model.Backend)
	}
}
