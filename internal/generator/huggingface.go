package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"
)

// ErrUnauthorized is returned when the backend rejects the access token.
var ErrUnauthorized = errors.New("access token rejected")

type HuggingFaceOptions struct {
	Model        string // e.g. runwayml/stable-diffusion-v1-5
	Token        string
	InferenceURL string // base URL; the model ID is appended
	HubURL       string // model metadata API; the model ID is appended
	Client       *http.Client
}

// HuggingFace generates images through the Hugging Face inference API.
type HuggingFace struct {
	opts HuggingFaceOptions
}

func NewHuggingFace(opts HuggingFaceOptions) *HuggingFace {
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	opts.InferenceURL = strings.TrimRight(opts.InferenceURL, "/")
	opts.HubURL = strings.TrimRight(opts.HubURL, "/")
	return &HuggingFace{opts: opts}
}

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
}

type hfParameters struct {
	Width             int   `json:"width"`
	Height            int   `json:"height"`
	NumInferenceSteps int   `json:"num_inference_steps"`
	Seed              int64 `json:"seed"`
}

type hfModelInfo struct {
	ID          string `json:"id"`
	PipelineTag string `json:"pipeline_tag"`
}

// Probe looks the model up on the Hub with the configured token.
func (h *HuggingFace) Probe(ctx context.Context) error {
	url := h.opts.HubURL + "/" + h.opts.Model
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	h.authorize(req)

	resp, err := h.opts.Client.Do(req)
	if err != nil {
		return fmt.Errorf("probe model %s: %w", h.opts.Model, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return fmt.Errorf("probe model %s: %w", h.opts.Model, err)
	}

	var info hfModelInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return fmt.Errorf("probe model %s: decode metadata: %w", h.opts.Model, err)
	}
	if info.PipelineTag != "" && info.PipelineTag != "text-to-image" {
		return fmt.Errorf("probe model %s: pipeline is %q, not text-to-image", h.opts.Model, info.PipelineTag)
	}
	return nil
}

// Generate asks the inference API for one image.
func (h *HuggingFace) Generate(ctx context.Context, r Request) (image.Image, error) {
	body, err := json.Marshal(hfRequest{
		Inputs: r.Prompt,
		Parameters: hfParameters{
			Width:             r.Width,
			Height:            r.Height,
			NumInferenceSteps: r.Steps,
			Seed:              r.Seed,
		},
	})
	if err != nil {
		return nil, err
	}

	url := h.opts.InferenceURL + "/" + h.opts.Model
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	h.authorize(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "image/png")
	// Block while a cold model loads instead of getting a 503.
	req.Header.Set("X-Wait-For-Model", "true")

	resp, err := h.opts.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inference request: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, fmt.Errorf("inference request: %w", err)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	img, err := decode(data)
	if err != nil {
		return nil, err
	}
	return Fit(img, r.Width, r.Height), nil
}

func (h *HuggingFace) authorize(req *http.Request) {
	if h.opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+h.opts.Token)
	}
}

// checkStatus turns non-2xx responses into errors carrying the start of the body.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := strings.TrimSpace(string(snippet))

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w (status %d): %s", ErrUnauthorized, resp.StatusCode, msg)
	default:
		return fmt.Errorf("status %d: %s", resp.StatusCode, msg)
	}
}
