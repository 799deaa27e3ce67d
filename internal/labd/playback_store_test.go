package labd

import (
	"errors"
	"testing"
	"time"

	"github.com/GoSim-25-26J-441/wireless-lab/internal/narrator"
	"github.com/GoSim-25-26J-441/wireless-lab/pkg/utils"
)

func testProcedure() narrator.Procedure {
	return narrator.Procedure{
		ID:    "handshake",
		Name:  "Handshake",
		Kind:  narrator.KindScript,
		Lines: []string{"hello", "ack", "done"},
	}
}

func TestPlaybackStoreCreateGet(t *testing.T) {
	store := NewPlaybackStore()
	rec := store.Create(PlaybackInput{Procedure: "handshake"}, testProcedure())

	if !utils.IsPlaybackID(rec.ID) {
		t.Fatalf("expected uuid playback id, got %q", rec.ID)
	}
	if rec.Status != narrator.StateNotStarted {
		t.Fatalf("expected not_started, got %s", rec.Status)
	}
	if rec.Total != 3 || rec.Name != "Handshake" {
		t.Fatalf("unexpected record %+v", rec)
	}
	if rec.CreatedAt.IsZero() {
		t.Fatalf("expected created timestamp")
	}

	got, ok := store.Get(rec.ID)
	if !ok || got.ID != rec.ID {
		t.Fatalf("expected to find %s", rec.ID)
	}
	if _, ok := store.Get("missing"); ok {
		t.Fatalf("expected missing playback to be absent")
	}
}

func TestPlaybackStoreReturnsCopies(t *testing.T) {
	store := NewPlaybackStore()
	rec := store.Create(PlaybackInput{Procedure: "handshake"}, testProcedure())
	if err := store.AppendLine(rec.ID, "hello"); err != nil {
		t.Fatalf("AppendLine: %v", err)
	}

	got, _ := store.Get(rec.ID)
	got.Lines[0] = "mutated"

	again, _ := store.Get(rec.ID)
	if again.Lines[0] != "hello" {
		t.Fatalf("store record was mutated through a snapshot: %q", again.Lines[0])
	}
}

func TestPlaybackStoreSetStatusTimestamps(t *testing.T) {
	store := NewPlaybackStore()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	rec := store.Create(PlaybackInput{Procedure: "handshake"}, testProcedure())

	now = now.Add(time.Second)
	playing, err := store.SetStatus(rec.ID, narrator.StatePlaying, "")
	if err != nil {
		t.Fatalf("SetStatus playing: %v", err)
	}
	if !playing.StartedAt.Equal(now) || !playing.EndedAt.IsZero() {
		t.Fatalf("unexpected timestamps after start: %+v", playing)
	}

	now = now.Add(time.Second)
	done, err := store.SetStatus(rec.ID, narrator.StateDone, "")
	if err != nil {
		t.Fatalf("SetStatus done: %v", err)
	}
	if !done.EndedAt.Equal(now) {
		t.Fatalf("expected ended at %v, got %v", now, done.EndedAt)
	}

	_, err = store.SetStatus(rec.ID, narrator.StateCancelled, "late")
	if !errors.Is(err, ErrPlaybackTerminal) {
		t.Fatalf("expected ErrPlaybackTerminal, got %v", err)
	}
	final, _ := store.Get(rec.ID)
	if final.Status != narrator.StateDone || final.Error != "" {
		t.Fatalf("terminal record changed: %+v", final)
	}
}

func TestPlaybackStoreRejectsSecondStart(t *testing.T) {
	store := NewPlaybackStore()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	rec := store.Create(PlaybackInput{Procedure: "handshake"}, testProcedure())
	if _, err := store.SetStatus(rec.ID, narrator.StatePlaying, ""); err != nil {
		t.Fatalf("first start: %v", err)
	}

	now = now.Add(time.Minute)
	again, err := store.SetStatus(rec.ID, narrator.StatePlaying, "")
	if !errors.Is(err, ErrPlaybackStarted) {
		t.Fatalf("expected ErrPlaybackStarted, got %v", err)
	}
	if again.Status != narrator.StatePlaying || !again.StartedAt.Equal(now.Add(-time.Minute)) {
		t.Fatalf("second start changed the record: %+v", again)
	}
}

func TestPlaybackStoreUnknownID(t *testing.T) {
	store := NewPlaybackStore()
	if err := store.AppendLine("nope", "x"); !errors.Is(err, ErrPlaybackNotFound) {
		t.Fatalf("AppendLine: expected ErrPlaybackNotFound, got %v", err)
	}
	if _, err := store.SetStatus("nope", narrator.StatePlaying, ""); !errors.Is(err, ErrPlaybackNotFound) {
		t.Fatalf("SetStatus: expected ErrPlaybackNotFound, got %v", err)
	}
}

func TestPlaybackStoreListNewestFirst(t *testing.T) {
	store := NewPlaybackStore()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	var ids []string
	for i := 0; i < 3; i++ {
		now = now.Add(time.Minute)
		ids = append(ids, store.Create(PlaybackInput{Procedure: "handshake"}, testProcedure()).ID)
	}

	list := store.List(0)
	if len(list) != 3 {
		t.Fatalf("expected 3 playbacks, got %d", len(list))
	}
	if list[0].ID != ids[2] || list[2].ID != ids[0] {
		t.Fatalf("expected newest first, got %s, %s, %s", list[0].ID, list[1].ID, list[2].ID)
	}
	if len(store.List(2)) != 2 {
		t.Fatalf("expected limit to apply")
	}
}
