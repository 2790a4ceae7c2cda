package generator

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

type OpenAIOptions struct {
	Model   string // e.g. gpt-image-1, dall-e-3
	Token   string
	BaseURL string // optional override
	Client  *http.Client
}

// OpenAI generates images through the OpenAI Images API. The API has no
// seed parameter, so Request.Seed is ignored and frames are not reproducible.
type OpenAI struct {
	client openai.Client
	http   *http.Client
	model  string
}

func NewOpenAI(opts OpenAIOptions) *OpenAI {
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.Token),
		option.WithHTTPClient(opts.Client),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	return &OpenAI{
		client: openai.NewClient(reqOpts...),
		http:   opts.Client,
		model:  opts.Model,
	}
}

// Probe checks that the model exists and the key can see it.
func (o *OpenAI) Probe(ctx context.Context) error {
	if _, err := o.client.Models.Get(ctx, o.model); err != nil {
		return fmt.Errorf("probe model %s: %w", o.model, err)
	}
	return nil
}

func (o *OpenAI) Generate(ctx context.Context, r Request) (image.Image, error) {
	params := openai.ImageGenerateParams{
		Prompt: r.Prompt,
		Model:  openai.ImageModel(o.model),
		N:      openai.Int(1),
		Size:   openai.ImageGenerateParamsSize(nearestSize(r.Width, r.Height)),
	}
	// gpt-image models always answer in base64 and reject the parameter.
	if strings.HasPrefix(o.model, "dall-e") {
		params.ResponseFormat = openai.ImageGenerateParamsResponseFormatB64JSON
	}

	resp, err := o.client.Images.Generate(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("images api: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("images api: empty response")
	}

	data, err := o.payload(ctx, resp.Data[0])
	if err != nil {
		return nil, err
	}
	img, err := decode(data)
	if err != nil {
		return nil, err
	}
	return Fit(img, r.Width, r.Height), nil
}

func (o *OpenAI) payload(ctx context.Context, img openai.Image) ([]byte, error) {
	if img.B64JSON != "" {
		data, err := base64.StdEncoding.DecodeString(img.B64JSON)
		if err != nil {
			return nil, fmt.Errorf("images api: decode base64: %w", err)
		}
		return data, nil
	}
	if img.URL == "" {
		return nil, errors.New("images api: response has neither data nor url")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, img.URL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := o.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return nil, fmt.Errorf("download image: %w", err)
	}
	return io.ReadAll(resp.Body)
}

// nearestSize maps the requested frame shape onto the sizes the Images API
// accepts. The result is rescaled to the exact frame size afterwards.
func nearestSize(width, height int) string {
	switch {
	case width > height:
		return "1536x1024"
	case height > width:
		return "1024x1536"
	default:
		return "1024x1024"
	}
}
