package voice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go"

	contractx "github.com/primeauto/concierge/assistant/contract"
)

type whisperTranscriber struct {
	client  *openaisdk.Client
	timeout time.Duration
}

func newWhisperTranscriber(client *openaisdk.Client, timeout time.Duration) *whisperTranscriber {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &whisperTranscriber{client: client, timeout: timeout}
}

func (t *whisperTranscriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("%w: empty audio payload", contractx.ErrInvalidArguments)
	}

	callCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	resp, err := t.client.Audio.Transcriptions.New(callCtx, openaisdk.AudioTranscriptionNewParams{
		Model: openaisdk.AudioModelWhisper1,
		File:  openaisdk.File(bytes.NewReader(audio), "audio.wav", "audio/wav"),
	})
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: transcription: %v", contractx.ErrCapabilityTimeout, err)
		}
		return "", fmt.Errorf("transcribe audio: %w", err)
	}

	return strings.TrimSpace(resp.Text), nil
}

type speechSynthesizer struct {
	client  *openaisdk.Client
	voice   string
	timeout time.Duration
}

func newSpeechSynthesizer(client *openaisdk.Client, voice string, timeout time.Duration) *speechSynthesizer {
	if voice == "" {
		voice = "nova"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &speechSynthesizer{client: client, voice: voice, timeout: timeout}
}

func (s *speechSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty text", contractx.ErrInvalidArguments)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.Audio.Speech.New(callCtx, openaisdk.AudioSpeechNewParams{
		Model: openaisdk.SpeechModelTTS1,
		Voice: openaisdk.AudioSpeechNewParamsVoice(s.voice),
		Input: text,
	})
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: speech synthesis: %v", contractx.ErrCapabilityTimeout, err)
		}
		return nil, fmt.Errorf("synthesize speech: %w", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read speech response: %w", err)
	}
	return audio, nil
}
