// Package pipeline turns a video id into a transcript: it fetches the
// audio, materializes it as a scoped temporary file and runs the shared
// recognition engine over it on a bounded worker pool.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/guiyumin/vscribe/internal/core/ai/transcriber"
	"github.com/guiyumin/vscribe/internal/core/audio"
	"github.com/guiyumin/vscribe/internal/core/logging"
	"github.com/guiyumin/vscribe/internal/core/tempfile"
)

// State is the phase a pipeline run is in.
type State string

const (
	StateReceived     State = "received"
	StateFetching     State = "fetching"
	StateFetched      State = "fetched"
	StateTranscribing State = "transcribing"
	StateCompleted    State = "completed"
	StateFailed       State = "failed"
)

var transitions = map[State][]State{
	StateReceived:     {StateFetching},
	StateFetching:     {StateFetched, StateFailed},
	StateFetched:      {StateTranscribing},
	StateTranscribing: {StateCompleted, StateFailed},
}

// Engine is the recognition capability used by the pipeline.
type Engine interface {
	Transcribe(ctx context.Context, audioPath string, opts transcriber.Options) (*transcriber.Result, error)
}

// Pipeline sequences fetch, materialize and transcribe for each request.
type Pipeline struct {
	fetcher audio.Fetcher
	engine  Engine
	temp    *tempfile.Manager
	pool    *Pool
	opts    transcriber.Options
	log     zerolog.Logger
}

// New wires a Pipeline. The pool must be started by the caller.
func New(fetcher audio.Fetcher, engine Engine, temp *tempfile.Manager, pool *Pool, opts transcriber.Options, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		fetcher: fetcher,
		engine:  engine,
		temp:    temp,
		pool:    pool,
		opts:    opts,
		log:     logging.Component(log, "pipeline"),
	}
}

// Jobs returns the runs that are queued or in progress.
func (p *Pipeline) Jobs() []Job {
	return p.pool.Jobs()
}

type outcome struct {
	result *transcriber.Result
	err    *Error
}

// Handle transcribes the audio of video id. Every error it returns is an
// *Error. If ctx ends while the work is queued or running, Handle returns a
// KindCanceled error but the run itself continues and cleans up after
// itself.
func (p *Pipeline) Handle(ctx context.Context, id string) (*transcriber.Result, error) {
	log := p.logger(ctx).With().Str(logging.FieldVideoID, id).Logger()

	if !audio.ValidVideoID(id) {
		return nil, errorf(KindInvalidRequest, "invalid video id %q", id)
	}

	done := make(chan outcome, 1)
	workCtx := context.WithoutCancel(ctx)

	job, err := p.pool.Submit(id, func(job *Job) {
		res, perr := p.run(workCtx, job, log)
		done <- outcome{result: res, err: perr}
	})
	if err != nil {
		log.Warn().Err(err).Msg("request rejected")
		return nil, newError(KindBusy, err)
	}

	select {
	case out := <-done:
		if out.err != nil {
			return nil, out.err
		}
		return out.result, nil
	case <-ctx.Done():
		log.Warn().Str("job_id", job.ID).Err(ctx.Err()).Msg("caller gave up; job keeps running")
		return nil, errorf(KindCanceled, "request canceled: %v", ctx.Err())
	}
}

func (p *Pipeline) logger(ctx context.Context) zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return logging.Component(*l, "pipeline")
	}
	return p.log
}

// run executes one request on a pool worker.
func (p *Pipeline) run(ctx context.Context, job *Job, log zerolog.Logger) (res *transcriber.Result, perr *Error) {
	r := &run{state: StateReceived, publish: func(s State) { p.pool.SetState(job.ID, s) }}
	log = log.With().Str("job_id", job.ID).Logger()

	defer func() {
		if rec := recover(); rec != nil {
			res = nil
			perr = errorf(KindTranscriptionFailed, "internal error: %v", rec)
			log.Error().Interface("panic", rec).Msg("pipeline panic")
		}
	}()

	r.advance(StateFetching)
	log.Info().Msg("download started")
	start := time.Now()

	blob, err := p.fetcher.Fetch(ctx, job.VideoID)
	if err != nil {
		r.advance(StateFailed)
		perr = classify(err, KindAudioAcquisitionFailed)
		log.Error().Err(err).Str("kind", string(perr.Kind)).Msg("download failed")
		return nil, perr
	}
	r.advance(StateFetched)
	log.Info().Int("bytes", len(blob)).Dur("took", time.Since(start)).Msg("download complete")

	r.advance(StateTranscribing)
	log.Info().Msg("transcription started")
	start = time.Now()

	res, err = tempfile.WithMaterializedAudio(p.temp.Root(), blob, func(path string) (*transcriber.Result, error) {
		return p.engine.Transcribe(ctx, path, p.opts)
	})
	if err != nil {
		r.advance(StateFailed)
		perr = classify(err, KindTranscriptionFailed)
		log.Error().Err(err).Str("kind", string(perr.Kind)).Msg("transcription failed")
		return nil, perr
	}
	if res == nil {
		r.advance(StateFailed)
		return nil, errorf(KindTranscriptionFailed, "engine returned no result")
	}

	r.advance(StateCompleted)
	log.Info().
		Int("segments", len(res.Segments)).
		Str("language", res.Language).
		Dur("took", time.Since(start)).
		Msg("transcription complete")

	return res, nil
}

// run tracks the state of a single request.
type run struct {
	state   State
	publish func(State)
}

// advance moves to next, panicking on a transition the pipeline never
// makes.
func (r *run) advance(next State) {
	if !canTransition(r.state, next) {
		panic(fmt.Sprintf("illegal pipeline transition %s -> %s", r.state, next))
	}
	r.state = next
	if r.publish != nil {
		r.publish(next)
	}
}

func canTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
