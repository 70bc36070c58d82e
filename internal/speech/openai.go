package speech

import (
	"context"
	"fmt"
	"io"

	"narrated-quiz-service/internal/domain"
	"narrated-quiz-service/internal/session"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAISynthesizer narrates through the OpenAI text-to-speech endpoint.
type OpenAISynthesizer struct {
	client *openai.Client
	model  openai.SpeechModel
}

// NewOpenAISynthesizer builds a synthesizer; an empty baseURL targets api.openai.com and an
// empty model means tts-1.
func NewOpenAISynthesizer(apiKey, baseURL, model string) *OpenAISynthesizer {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = string(openai.TTSModel1)
	}
	return &OpenAISynthesizer{
		client: openai.NewClientWithConfig(cfg),
		model:  openai.SpeechModel(model),
	}
}

func (s *OpenAISynthesizer) Synthesize(ctx context.Context, text string, voice session.Voice) (session.Audio, error) {
	name := voice.Name
	if name == "" {
		name = string(openai.VoiceAlloy)
	}
	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          s.model,
		Input:          text,
		Voice:          openai.SpeechVoice(name),
		ResponseFormat: openai.SpeechResponseFormatMp3,
		Speed:          voice.Speed,
	})
	if err != nil {
		if ctx.Err() != nil {
			return session.Audio{}, ctx.Err()
		}
		return session.Audio{}, fmt.Errorf("%w: %v", domain.ErrSynthesis, err)
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return session.Audio{}, fmt.Errorf("%w: read audio: %v", domain.ErrSynthesis, err)
	}
	if len(data) == 0 {
		return session.Audio{}, fmt.Errorf("%w: empty audio", domain.ErrSynthesis)
	}
	return session.Audio{Format: string(openai.SpeechResponseFormatMp3), Data: data}, nil
}
