package transcriber

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/guiyumin/vscribe/internal/core/config"
)

// OpenAI implements Transcriber using the OpenAI Whisper API.
// Beam width is chosen server-side, so Options.BeamSize is ignored.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI creates a new OpenAI transcriber.
func NewOpenAI(cfg config.OpenAIConfig) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key not provided")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = openai.Whisper1
	}

	return &OpenAI{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
	}, nil
}

// Name returns the provider name.
func (o *OpenAI) Name() string {
	return "openai"
}

// Transcribe uploads the audio file and converts the verbose response.
func (o *OpenAI) Transcribe(ctx context.Context, audioPath string, opts Options) (*Result, error) {
	req := openai.AudioRequest{
		Model:    o.model,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatVerboseJSON,
	}
	if opts.Language != "" && opts.Language != "auto" {
		req.Language = opts.Language
	}

	resp, err := o.client.CreateTranscription(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("transcription API error: %w", err)
	}

	result := &Result{
		Segments: make([]Segment, 0, len(resp.Segments)),
		Language: resp.Language,
		Duration: time.Duration(resp.Duration * float64(time.Second)),
	}

	for _, seg := range resp.Segments {
		result.Segments = append(result.Segments, Segment{
			Start: seg.Start,
			End:   seg.End,
			Text:  seg.Text,
		})
	}

	return result, nil
}

// Close is a no-op; the HTTP client holds no engine state.
func (o *OpenAI) Close() error {
	return nil
}
