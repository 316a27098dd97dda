package pipeline

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/guiyumin/vscribe/internal/core/audio"
	"github.com/guiyumin/vscribe/internal/core/tempfile"
	"github.com/guiyumin/vscribe/internal/core/ai/transcriber"
)

// Kind classifies why a transcription request failed.
type Kind string

const (
	KindInvalidRequest         Kind = "invalid_request"
	KindAudioAcquisitionFailed Kind = "audio_acquisition_failed"
	KindStorageFailed          Kind = "storage_failed"
	KindTranscriptionFailed    Kind = "transcription_failed"
	KindBusy                   Kind = "busy"
	KindCanceled               Kind = "canceled"
)

// HTTPStatus maps a failure kind to the status the server responds with.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindInvalidRequest:
		return http.StatusBadRequest
	case KindAudioAcquisitionFailed:
		return http.StatusBadGateway
	case KindBusy:
		return http.StatusServiceUnavailable
	case KindCanceled:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Error is the report returned by Pipeline.Handle for every failure.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Message: cause.Error(), Cause: cause}
}

func errorf(kind Kind, format string, args ...any) *Error {
	return newError(kind, fmt.Errorf(format, args...))
}

// KindOf returns the kind carried by err, or KindTranscriptionFailed for
// errors that did not come from a Pipeline.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindTranscriptionFailed
}

// classify picks a kind from the leaf sentinels, falling back to the kind
// implied by the phase the error surfaced in.
func classify(err error, fallback Kind) *Error {
	switch {
	case errors.Is(err, tempfile.ErrStorage):
		return newError(KindStorageFailed, err)
	case errors.Is(err, audio.ErrAcquisition):
		return newError(KindAudioAcquisitionFailed, err)
	case errors.Is(err, transcriber.ErrTranscription):
		return newError(KindTranscriptionFailed, err)
	default:
		return newError(fallback, err)
	}
}
