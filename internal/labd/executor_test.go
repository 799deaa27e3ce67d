package labd

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/GoSim-25-26J-441/wireless-lab/internal/narrator"
	"github.com/GoSim-25-26J-441/wireless-lab/pkg/utils"
)

func TestExecutorPlaysToCompletion(t *testing.T) {
	svc := newTestServices(t)
	ex := svc.Executor

	rec, err := ex.Create(PlaybackInput{Procedure: "mobility-handoff", Pause: 500 * time.Millisecond})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.Total != 7 {
		t.Fatalf("expected 7 lines, got %d", rec.Total)
	}

	started, err := ex.Start(rec.ID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if started.Status != narrator.StatePlaying {
		t.Fatalf("expected playing, got %s", started.Status)
	}
	ex.Wait()

	final, _ := svc.Store.Get(rec.ID)
	if final.Status != narrator.StateDone {
		t.Fatalf("expected done, got %s (%s)", final.Status, final.Error)
	}
	proc, _ := svc.Catalog.Get("mobility-handoff")
	if len(final.Lines) != len(proc.Lines) {
		t.Fatalf("expected %d lines, got %d", len(proc.Lines), len(final.Lines))
	}
	for i := range proc.Lines {
		if final.Lines[i] != proc.Lines[i] {
			t.Fatalf("line %d: got %q want %q", i, final.Lines[i], proc.Lines[i])
		}
	}
	if final.EndedAt.IsZero() {
		t.Fatalf("expected ended timestamp")
	}

	if got := testutil.ToFloat64(svc.Metrics.NarrationsTotal.WithLabelValues("mobility-handoff", "done")); got != 1 {
		t.Fatalf("expected one done narration, got %v", got)
	}
	if got := testutil.ToFloat64(svc.Metrics.PlaybacksActive); got != 0 {
		t.Fatalf("expected no active playbacks, got %v", got)
	}
}

func TestExecutorLookupProcedure(t *testing.T) {
	svc := newTestServices(t)

	if _, err := svc.Executor.Create(PlaybackInput{Procedure: "qos-mapper"}); !errors.Is(err, narrator.ErrApplicationMissing) {
		t.Fatalf("expected ErrApplicationMissing, got %v", err)
	}

	rec, err := svc.Executor.Create(PlaybackInput{Procedure: "qos-mapper", Application: "Online Gaming"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Executor.Start(rec.ID); err != nil {
		t.Fatalf("Start: %v", err)
	}
	svc.Executor.Wait()

	final, _ := svc.Store.Get(rec.ID)
	want := "Online Gaming -> QoS Class: Interactive | Delay: <100ms | Guaranteed Bitrate: No"
	if len(final.Lines) != 1 || final.Lines[0] != want {
		t.Fatalf("unexpected lines %q", final.Lines)
	}
}

func TestExecutorCreateRejectsBadInput(t *testing.T) {
	svc := newTestServices(t)

	tests := []struct {
		name  string
		input PlaybackInput
		want  error
	}{
		{"unknown procedure", PlaybackInput{Procedure: "teleport"}, narrator.ErrUnknownProcedure},
		{"unknown application", PlaybackInput{Procedure: "qos-mapper", Application: "Fax"}, narrator.ErrUnknownApplication},
		{"pause too long", PlaybackInput{Procedure: "security", Pause: time.Hour}, ErrPauseOutOfRange},
		{"negative pause", PlaybackInput{Procedure: "security", Pause: -time.Second}, ErrPauseOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Executor.Create(tt.input); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestExecutorStopCancelsPlayback(t *testing.T) {
	svc := newTestServices(t)
	svc.Executor.SetClock(func() utils.Clock { return blockingClock{} })

	rec, err := svc.Executor.Create(PlaybackInput{Procedure: "security", Pause: time.Second})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Executor.Start(rec.ID); err != nil {
		t.Fatalf("Start: %v", err)
	}

	stopped, err := svc.Executor.Stop(rec.ID)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if stopped.Status != narrator.StateCancelled {
		t.Fatalf("expected cancelled, got %s", stopped.Status)
	}
	svc.Executor.Wait()

	final, _ := svc.Store.Get(rec.ID)
	if final.Status != narrator.StateCancelled {
		t.Fatalf("expected cancelled after wait, got %s", final.Status)
	}
	if len(final.Lines) > 1 {
		t.Fatalf("expected at most the undelayed first line, got %d lines", len(final.Lines))
	}

	if _, err := svc.Executor.Start(rec.ID); !errors.Is(err, ErrPlaybackTerminal) {
		t.Fatalf("restart: expected ErrPlaybackTerminal, got %v", err)
	}
	if _, err := svc.Executor.Stop(rec.ID); !errors.Is(err, ErrPlaybackTerminal) {
		t.Fatalf("second stop: expected ErrPlaybackTerminal, got %v", err)
	}
}

func TestExecutorStartIsIdempotentWhilePlaying(t *testing.T) {
	svc := newTestServices(t)
	svc.Executor.SetClock(func() utils.Clock { return blockingClock{} })

	rec, _ := svc.Executor.Create(PlaybackInput{Procedure: "security", Pause: time.Second})
	if _, err := svc.Executor.Start(rec.ID); err != nil {
		t.Fatalf("Start: %v", err)
	}
	again, err := svc.Executor.Start(rec.ID)
	if err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if again.Status != narrator.StatePlaying {
		t.Fatalf("expected playing, got %s", again.Status)
	}
	if got := testutil.ToFloat64(svc.Metrics.PlaybacksActive); got != 1 {
		t.Fatalf("expected one active playback, got %v", got)
	}
}

func TestExecutorConcurrentStartsRunOnePlayback(t *testing.T) {
	svc := newTestServices(t)
	svc.Executor.SetClock(func() utils.Clock { return blockingClock{} })

	rec, _ := svc.Executor.Create(PlaybackInput{Procedure: "security", Pause: time.Second})

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Executor.Start(rec.ID); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent Start: %v", err)
	}

	if got := testutil.ToFloat64(svc.Metrics.PlaybacksActive); got != 1 {
		t.Fatalf("expected exactly one running playback, got %v", got)
	}
	if _, err := svc.Executor.Stop(rec.ID); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	svc.Executor.Wait()

	final, _ := svc.Store.Get(rec.ID)
	if len(final.Lines) > 1 {
		t.Fatalf("expected a single playback's first line, got %d lines", len(final.Lines))
	}
	if got := testutil.ToFloat64(svc.Metrics.NarrationsTotal.WithLabelValues("security", "cancelled")); got != 1 {
		t.Fatalf("expected one finished narration, got %v", got)
	}
}

func TestExecutorIDErrors(t *testing.T) {
	svc := newTestServices(t)
	if _, err := svc.Executor.Start(""); !errors.Is(err, ErrPlaybackIDMissing) {
		t.Fatalf("Start: expected ErrPlaybackIDMissing, got %v", err)
	}
	if _, err := svc.Executor.Stop(""); !errors.Is(err, ErrPlaybackIDMissing) {
		t.Fatalf("Stop: expected ErrPlaybackIDMissing, got %v", err)
	}
	if _, err := svc.Executor.Start("missing"); !errors.Is(err, ErrPlaybackNotFound) {
		t.Fatalf("Start: expected ErrPlaybackNotFound, got %v", err)
	}
	if _, err := svc.Executor.Stop("missing"); !errors.Is(err, ErrPlaybackNotFound) {
		t.Fatalf("Stop: expected ErrPlaybackNotFound, got %v", err)
	}
}
