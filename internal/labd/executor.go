package labd

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/wireless-lab/internal/metrics"
	"github.com/GoSim-25-26J-441/wireless-lab/internal/narrator"
	"github.com/GoSim-25-26J-441/wireless-lab/pkg/logger"
	"github.com/GoSim-25-26J-441/wireless-lab/pkg/utils"
)

// ErrPauseOutOfRange is returned when a requested pause exceeds the configured maximum
var ErrPauseOutOfRange = errors.New("pause out of range")

// PlaybackExecutor runs playbacks in the background with per-playback cancellation.
type PlaybackExecutor struct {
	store    *PlaybackStore
	catalog  *narrator.Catalog
	clock    func() utils.Clock
	maxPause time.Duration

	notifier *Notifier
	metrics  *metrics.Registry

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

func NewPlaybackExecutor(store *PlaybackStore, catalog *narrator.Catalog, maxPause time.Duration) *PlaybackExecutor {
	return &PlaybackExecutor{
		store:    store,
		catalog:  catalog,
		clock:    func() utils.Clock { return utils.RealClock{} },
		maxPause: maxPause,
		cancels:  make(map[string]context.CancelFunc),
	}
}

// SetClock sets the clock factory; each playback gets its own clock.
func (e *PlaybackExecutor) SetClock(newClock func() utils.Clock) {
	e.clock = newClock
}

func (e *PlaybackExecutor) SetNotifier(n *Notifier) {
	e.notifier = n
}

func (e *PlaybackExecutor) SetMetrics(reg *metrics.Registry) {
	e.metrics = reg
}

// Create validates input against the catalog and stores a not-started playback
func (e *PlaybackExecutor) Create(input PlaybackInput) (PlaybackRecord, error) {
	if input.Pause < 0 || (e.maxPause > 0 && input.Pause > e.maxPause) {
		return PlaybackRecord{}, fmt.Errorf("%w: %s exceeds %s", ErrPauseOutOfRange, input.Pause, e.maxPause)
	}
	proc, _, err := e.catalog.Sequence(input.Procedure, input.Application, input.Pause)
	if err != nil {
		return PlaybackRecord{}, err
	}
	rec := e.store.Create(input, proc)
	logger.Info("playback created", "playback_id", rec.ID, "procedure", input.Procedure)
	return rec, nil
}

// Start begins a playback asynchronously. Starting a playing playback is a no-op.
func (e *PlaybackExecutor) Start(id string) (PlaybackRecord, error) {
	if id == "" {
		return PlaybackRecord{}, ErrPlaybackIDMissing
	}

	rec, ok := e.store.Get(id)
	if !ok {
		return PlaybackRecord{}, fmt.Errorf("%w: %s", ErrPlaybackNotFound, id)
	}
	_, steps, err := e.catalog.Sequence(rec.Input.Procedure, rec.Input.Application, rec.Input.Pause)
	if err != nil {
		return PlaybackRecord{}, err
	}

	// status and cancel func change together under e.mu
	e.mu.Lock()
	defer e.mu.Unlock()

	updated, err := e.store.SetStatus(id, narrator.StatePlaying, "")
	switch {
	case errors.Is(err, ErrPlaybackStarted):
		return updated, nil
	case err != nil:
		return PlaybackRecord{}, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.cancels[id] = cancel

	if e.metrics != nil {
		e.metrics.PlaybacksActive.Inc()
	}
	e.wg.Add(1)
	go e.play(ctx, id, narrator.NewPlayback(steps, e.clock()))
	return updated, nil
}

// Stop cancels a playback and marks it cancelled. Stopping a finished playback
// returns ErrPlaybackTerminal.
func (e *PlaybackExecutor) Stop(id string) (PlaybackRecord, error) {
	if id == "" {
		return PlaybackRecord{}, ErrPlaybackIDMissing
	}

	e.mu.Lock()
	cancel, running := e.cancels[id]
	if running {
		cancel()
	}
	updated, err := e.store.SetStatus(id, narrator.StateCancelled, "stopped by request")
	e.mu.Unlock()
	if err != nil {
		return PlaybackRecord{}, err
	}
	logger.Info("playback stopped", "playback_id", id, "started", running)

	// a playback stopped before it started has no goroutine to report it
	if !running {
		if e.metrics != nil {
			e.metrics.ObserveNarration(updated.Input.Procedure, string(updated.Status), 0)
		}
		if e.notifier != nil {
			e.notifier.Notify(updated)
		}
	}
	return updated, nil
}

// Wait blocks until every started playback has finished
func (e *PlaybackExecutor) Wait() {
	e.wg.Wait()
}

// Shutdown cancels every running playback and waits for them to finish
func (e *PlaybackExecutor) Shutdown() {
	e.mu.Lock()
	for _, cancel := range e.cancels {
		cancel()
	}
	e.mu.Unlock()
	e.Wait()
}

func (e *PlaybackExecutor) cleanup(id string) {
	e.mu.Lock()
	if cancel, ok := e.cancels[id]; ok {
		cancel()
		delete(e.cancels, id)
	}
	e.mu.Unlock()
	if e.metrics != nil {
		e.metrics.PlaybacksActive.Dec()
	}
}

func (e *PlaybackExecutor) play(ctx context.Context, id string, pb *narrator.Playback) {
	defer e.wg.Done()
	defer e.cleanup(id)
	log := logger.With("playback_id", id)

	err := pb.Run(ctx, func(s narrator.Step) error {
		return e.store.AppendLine(id, s.Line)
	})

	status, errMsg := narrator.StateDone, ""
	if err != nil {
		status = narrator.StateCancelled
		if !errors.Is(err, context.Canceled) {
			errMsg = err.Error()
		}
	}

	rec, setErr := e.store.SetStatus(id, status, errMsg)
	if setErr != nil && !errors.Is(setErr, ErrPlaybackTerminal) {
		log.Error("failed to finish playback", "error", setErr)
		return
	}

	log.Info("playback finished",
		"procedure", rec.Input.Procedure,
		"status", rec.Status,
		"lines", pb.Emitted())

	if e.metrics != nil {
		e.metrics.ObserveNarration(rec.Input.Procedure, string(rec.Status), pb.Emitted())
	}
	if e.notifier != nil {
		e.notifier.Notify(rec)
	}
}
