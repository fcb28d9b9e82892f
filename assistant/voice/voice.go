// Package voice provides speech-to-text and text-to-speech providers for the
// voice transports. The provider is selected by configuration; the default is
// none, which disables the audio endpoints.
package voice

import (
	"errors"
	"time"

	openaix "github.com/primeauto/concierge/pkg/openai"

	contractx "github.com/primeauto/concierge/assistant/contract"
)

const (
	ProviderNone   = "none"
	ProviderOpenAI = "openai"
)

var ErrUnknownProvider = errors.New("unknown voice provider")

type Config struct {
	Provider string        `split_words:"true" default:"none"`
	Voice    string        `split_words:"true" default:"nova"`
	Timeout  time.Duration `split_words:"true" default:"30s"`
}

// Providers bundles the speech capabilities wired into the transports.
type Providers struct {
	Transcriber contractx.Transcriber
	Synthesizer contractx.Synthesizer
}

// Enabled reports whether audio endpoints should be served.
func (p Providers) Enabled() bool {
	return p.Transcriber != nil && p.Synthesizer != nil
}

// NewProviders builds the configured provider pair. Provider "none" returns
// an empty pair with no error.
func NewProviders(cfg Config, llm openaix.Config) (Providers, error) {
	switch cfg.Provider {
	case "", ProviderNone:
		return Providers{}, nil
	case ProviderOpenAI:
		client := openaix.NewClient(llm)
		if client == nil {
			return Providers{}, errors.New("voice provider openai requires an api key")
		}
		return Providers{
			Transcriber: newWhisperTranscriber(client, cfg.Timeout),
			Synthesizer: newSpeechSynthesizer(client, cfg.Voice, cfg.Timeout),
		}, nil
	default:
		return Providers{}, ErrUnknownProvider
	}
}
