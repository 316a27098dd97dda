package transcriber

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// fakeEngine echoes the audio path back as the only segment and records
// how many calls overlap.
type fakeEngine struct {
	active   atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
	err      error
	panicMsg string
	lastOpts Options
	mu       sync.Mutex
}

func (f *fakeEngine) Name() string { return "fake" }
func (f *fakeEngine) Close() error { return nil }

func (f *fakeEngine) Transcribe(ctx context.Context, audioPath string, opts Options) (*Result, error) {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	f.mu.Lock()
	f.lastOpts = opts
	f.mu.Unlock()

	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	time.Sleep(f.delay)
	if f.err != nil {
		return nil, f.err
	}
	return &Result{
		Segments: []Segment{{Start: 0, End: 1, Text: audioPath}},
		Language: "lang-" + audioPath,
	}, nil
}

func TestSerializedRunsOneAtATime(t *testing.T) {
	engine := &fakeEngine{delay: 5 * time.Millisecond}
	s := NewSerialized(engine, zerolog.Nop())

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			path := fmt.Sprintf("audio-%d.wav", i)
			res, err := s.Transcribe(context.Background(), path, Options{})
			if err != nil {
				errs <- err
				return
			}
			if len(res.Segments) != 1 || res.Segments[0].Text != path || res.Language != "lang-"+path {
				errs <- fmt.Errorf("call %d got foreign result %+v", i, res)
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
	if peak := engine.peak.Load(); peak != 1 {
		t.Errorf("peak concurrent engine calls = %d; want 1", peak)
	}
}

func TestSerializedDefaultsBeamSize(t *testing.T) {
	engine := &fakeEngine{}
	s := NewSerialized(engine, zerolog.Nop())

	if _, err := s.Transcribe(context.Background(), "a.wav", Options{}); err != nil {
		t.Fatal(err)
	}
	if engine.lastOpts.BeamSize != DefaultBeamSize {
		t.Errorf("BeamSize = %d; want %d", engine.lastOpts.BeamSize, DefaultBeamSize)
	}
}

func TestSerializedWrapsErrors(t *testing.T) {
	cause := errors.New("decoder blew up")
	s := NewSerialized(&fakeEngine{err: cause}, zerolog.Nop())

	res, err := s.Transcribe(context.Background(), "a.wav", Options{})
	if res != nil {
		t.Errorf("res = %+v; want nil on failure", res)
	}
	if !errors.Is(err, ErrTranscription) || !errors.Is(err, cause) {
		t.Errorf("err = %v; want ErrTranscription wrapping the cause", err)
	}
}

func TestSerializedRecoversPanic(t *testing.T) {
	s := NewSerialized(&fakeEngine{panicMsg: "cgo went sideways"}, zerolog.Nop())

	_, err := s.Transcribe(context.Background(), "a.wav", Options{})
	if !errors.Is(err, ErrTranscription) {
		t.Fatalf("err = %v; want ErrTranscription", err)
	}

	// The slot must have been released.
	done := make(chan struct{})
	go func() {
		_, _ = s.Transcribe(context.Background(), "c.wav", Options{})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("slot still held after panic")
	}
}

func TestSerializedWaitHonoursContext(t *testing.T) {
	engine := &fakeEngine{delay: 200 * time.Millisecond}
	s := NewSerialized(engine, zerolog.Nop())

	started := make(chan struct{})
	go func() {
		close(started)
		_, _ = s.Transcribe(context.Background(), "long.wav", Options{})
	}()
	<-started
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := s.Transcribe(ctx, "queued.wav", Options{})
	if !errors.Is(err, ErrTranscription) || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v; want ErrTranscription wrapping DeadlineExceeded", err)
	}
}
