package transcriber

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/guiyumin/vscribe/internal/core/logging"
)

// Serialized guards a shared engine so that at most one Transcribe call
// runs at a time. Waiting callers give up when their context ends; an
// admitted call always runs to completion.
type Serialized struct {
	inner Transcriber
	slot  chan struct{}
	log   zerolog.Logger
}

// NewSerialized wraps t.
func NewSerialized(t Transcriber, log zerolog.Logger) *Serialized {
	return &Serialized{
		inner: t,
		slot:  make(chan struct{}, 1),
		log:   logging.Component(log, "engine"),
	}
}

// Name returns the wrapped provider name.
func (s *Serialized) Name() string {
	return s.inner.Name()
}

// Close releases the wrapped engine once no call is running.
func (s *Serialized) Close() error {
	s.slot <- struct{}{}
	defer func() { <-s.slot }()
	return s.inner.Close()
}

// Transcribe runs the wrapped engine exclusively. Errors are wrapped with
// ErrTranscription and no partial Result is ever returned.
func (s *Serialized) Transcribe(ctx context.Context, audioPath string, opts Options) (res *Result, err error) {
	waitStart := time.Now()
	select {
	case s.slot <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrTranscription, ctx.Err())
	}
	defer func() { <-s.slot }()

	if waited := time.Since(waitStart); waited > time.Second {
		s.log.Debug().Dur("waited", waited).Msg("engine slot acquired")
	}

	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = fmt.Errorf("%w: engine panic: %v", ErrTranscription, r)
		}
	}()

	opts.BeamSize = beamSize(opts.BeamSize)
	raw, err := s.inner.Transcribe(ctx, audioPath, opts)
	if err != nil {
		if errors.Is(err, ErrTranscription) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrTranscription, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: engine returned no result", ErrTranscription)
	}

	return finalize(raw), nil
}
