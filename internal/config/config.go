// Package config holds the run configuration: defaults, YAML loading,
// credential resolution and validation.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Model backends.
const (
	BackendHuggingFace = "huggingface"
	BackendOpenAI      = "openai"
	BackendPlaceholder = "placeholder"
)

// Identifier collision policies.
const (
	CollisionSuffix = "suffix"
	CollisionFail   = "fail"
)

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// CodecAuto asks the encoder to pick the best H.264 encoder ffmpeg offers.
const CodecAuto = "auto"

// Defaults shared with the CLI flag definitions.
const (
	DefaultDataPath    = "public/data/planets.min.json"
	DefaultOutputDir   = "public/images"
	DefaultWorkDir     = ".cache_video_frames"
	DefaultModel       = "runwayml/stable-diffusion-v1-5"
	DefaultOpenAIModel = "gpt-image-1"
	DefaultFrames      = 20
	DefaultFPS         = 12
	DefaultWidth       = 1024
	DefaultHeight      = 576
	DefaultSteps       = 20
)

var ErrMissingCredential = errors.New("access token is not set")

func init() {
	// Report field names the way they appear in the config file.
	validation.ErrorTag = "yaml"
}

type Config struct {
	Input  InputConfig  `yaml:"input"`
	Output OutputConfig `yaml:"output"`
	Frames FramesConfig `yaml:"frames"`
	Model  ModelConfig  `yaml:"model"`
	Video  VideoConfig  `yaml:"video"`
	Work   WorkConfig   `yaml:"work"`
	Report ReportConfig `yaml:"report"`
	Log    LogConfig    `yaml:"log"`

	// Token is resolved from the environment once per run, see ResolveCredentials.
	Token string `yaml:"-"`
	// TokenSource names the variable the token came from.
	TokenSource string `yaml:"-"`
}

type InputConfig struct {
	Path  string `yaml:"path"`
	Limit int    `yaml:"limit"` // 0 = all records
}

type OutputConfig struct {
	Dir string `yaml:"dir"`
}

type FramesConfig struct {
	Count  int     `yaml:"count"`
	Width  int     `yaml:"width"`
	Height int     `yaml:"height"`
	Seeds  []int64 `yaml:"seeds"` // optional, len must equal Count
}

type ModelConfig struct {
	ID           string        `yaml:"id"`
	Backend      string        `yaml:"backend"`
	Steps        int           `yaml:"steps"`
	InferenceURL string        `yaml:"inference_url"`
	HubURL       string        `yaml:"hub_url"`
	BaseURL      string        `yaml:"base_url"` // openai backend only
	Timeout      time.Duration `yaml:"timeout"`
}

type VideoConfig struct {
	FPS         int    `yaml:"fps"`
	FFmpegPath  string `yaml:"ffmpeg_path"`
	Codec       string `yaml:"codec"`
	PixelFormat string `yaml:"pixel_format"`
	MovFlags    string `yaml:"movflags"`
	Preset      string `yaml:"preset"`
	Quality     int    `yaml:"quality"` // 0 = encoder default
}

type WorkConfig struct {
	Dir       string `yaml:"dir"`
	Cleanup   bool   `yaml:"cleanup"`
	Collision string `yaml:"collision"`
}

type ReportConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level  slog.Level `yaml:"level"`
	Format string     `yaml:"format"`
}

// NewDefaultConfig returns a Config matching the documented CLI defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Input:  InputConfig{Path: DefaultDataPath},
		Output: OutputConfig{Dir: DefaultOutputDir},
		Frames: FramesConfig{
			Count:  DefaultFrames,
			Width:  DefaultWidth,
			Height: DefaultHeight,
		},
		Model: ModelConfig{
			ID:           DefaultModel,
			Backend:      BackendHuggingFace,
			Steps:        DefaultSteps,
			InferenceURL: "https://router.huggingface.co/hf-inference/models",
			HubURL:       "https://huggingface.co/api/models",
			Timeout:      5 * time.Minute,
		},
		Video: VideoConfig{
			FPS:         DefaultFPS,
			FFmpegPath:  "ffmpeg",
			Codec:       "libx264",
			PixelFormat: "yuv420p",
			MovFlags:    "+faststart",
			Preset:      "medium",
		},
		Work: WorkConfig{
			Dir:       DefaultWorkDir,
			Collision: CollisionSuffix,
		},
		Log: LogConfig{
			Level:  slog.LevelInfo,
			Format: LogFormatText,
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Input.Validate(); err != nil {
		return fmt.Errorf("input: %w", err)
	}
	if err := validation.ValidateStruct(&c.Output,
		validation.Field(&c.Output.Dir, validation.Required),
	); err != nil {
		return fmt.Errorf("output: %w", err)
	}
	if err := c.Frames.Validate(); err != nil {
		return fmt.Errorf("frames: %w", err)
	}
	if err := c.Model.Validate(); err != nil {
		return fmt.Errorf("model: %w", err)
	}
	if err := c.Video.Validate(); err != nil {
		return fmt.Errorf("video: %w", err)
	}
	if err := c.Work.Validate(); err != nil {
		return fmt.Errorf("work: %w", err)
	}
	return validation.ValidateStruct(&c.Log,
		validation.Field(&c.Log.Format, validation.In(LogFormatText, LogFormatJSON)),
	)
}

func (c *InputConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Limit, validation.Min(0)),
	)
}

// Validate checks frame geometry. Diffusion models work on latents that are
// 1/8 of the image size, so both sides must be multiples of 8 (which also
// keeps them even for yuv420p).
func (c *FramesConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Count, validation.Required, validation.Min(1)),
		validation.Field(&c.Width, validation.Required, validation.Min(8), validation.By(multipleOf(8))),
		validation.Field(&c.Height, validation.Required, validation.Min(8), validation.By(multipleOf(8))),
	); err != nil {
		return err
	}
	if len(c.Seeds) > 0 && len(c.Seeds) != c.Count {
		return fmt.Errorf("seeds: got %d seeds for %d frames", len(c.Seeds), c.Count)
	}
	return nil
}

// ApplyBackendDefaults swaps the Hugging Face default model for the
// backend's own default when the backend was changed but the model was not.
func (c *ModelConfig) ApplyBackendDefaults() {
	if c.Backend == BackendOpenAI && c.ID == DefaultModel {
		c.ID = DefaultOpenAIModel
	}
}

func (c *ModelConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ID, validation.Required, validation.When(c.Backend == BackendOpenAI, validation.By(openAIModelID))),
		validation.Field(&c.Backend, validation.Required, validation.In(BackendHuggingFace, BackendOpenAI, BackendPlaceholder)),
		validation.Field(&c.Steps, validation.Required, validation.Min(1)),
		validation.Field(&c.InferenceURL, validation.When(c.Backend == BackendHuggingFace, validation.Required)),
		validation.Field(&c.HubURL, validation.When(c.Backend == BackendHuggingFace, validation.Required)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

func (c *VideoConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.FPS, validation.Required, validation.Min(1)),
		validation.Field(&c.FFmpegPath, validation.Required),
		validation.Field(&c.Codec, validation.Required),
		validation.Field(&c.PixelFormat, validation.Required),
		validation.Field(&c.Quality, validation.Min(0)),
	)
}

func (c *WorkConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
		validation.Field(&c.Collision, validation.Required, validation.In(CollisionSuffix, CollisionFail)),
	)
}

// openAIModelID rejects Hub style "org/name" ids, which the Images API never accepts.
func openAIModelID(value interface{}) error {
	id, _ := value.(string)
	if strings.Contains(id, "/") {
		return fmt.Errorf("%q is a Hugging Face model id; the openai backend needs an Images API model such as %s", id, DefaultOpenAIModel)
	}
	return nil
}

func multipleOf(n int) validation.RuleFunc {
	return func(value interface{}) error {
		v, _ := value.(int)
		if v%n != 0 {
			return fmt.Errorf("must be a multiple of %d", n)
		}
		return nil
	}
}
