package contract

import "context"

// Oracle is the external language capability: given the turn history plus the
// fixed action catalog (bound at construction), it returns either a direct
// reply or a structured action request.
type Oracle interface {
	Generate(ctx context.Context, turns []Turn) (OracleResponse, error)
}

// ActionHandler dispatches one oracle action request and always returns a
// natural-language-safe result.
type ActionHandler interface {
	Handle(ctx context.Context, req ActionRequest) ActionResult
}

// Transcriber converts audio bytes to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Synthesizer converts text to audio bytes.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Notifier publishes domain events (booking confirmations) out of process.
type Notifier interface {
	Publish(ctx context.Context, event string, payload any) error
}
