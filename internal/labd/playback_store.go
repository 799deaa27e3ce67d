package labd

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/wireless-lab/internal/narrator"
	"github.com/GoSim-25-26J-441/wireless-lab/pkg/utils"
)

var (
	ErrPlaybackNotFound  = errors.New("playback not found")
	ErrPlaybackTerminal  = errors.New("playback is terminal")
	ErrPlaybackStarted   = errors.New("playback already started")
	ErrPlaybackIDMissing = errors.New("playback id is required")
)

// PlaybackInput is what a client supplies to create a playback
type PlaybackInput struct {
	Procedure   string        `json:"procedure"`
	Application string        `json:"app,omitempty"`
	Pause       time.Duration `json:"-"`
	CallbackURL string        `json:"callback_url,omitempty"`
}

// PlaybackRecord is a snapshot of one server-side narration session.
// Records returned by the store are copies.
type PlaybackRecord struct {
	ID        string
	Input     PlaybackInput
	Name      string
	Status    narrator.State
	Lines     []string // lines emitted so far
	Total     int
	Error     string
	CreatedAt time.Time
	StartedAt time.Time
	EndedAt   time.Time
}

func (r *PlaybackRecord) snapshot() PlaybackRecord {
	out := *r
	out.Lines = slices.Clone(r.Lines)
	return out
}

// PlaybackStore keeps playbacks in memory for the lifetime of the process
type PlaybackStore struct {
	mu        sync.RWMutex
	playbacks map[string]*PlaybackRecord
	now       func() time.Time
}

func NewPlaybackStore() *PlaybackStore {
	return &PlaybackStore{
		playbacks: make(map[string]*PlaybackRecord),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create registers a not-yet-started playback of a resolved procedure
func (s *PlaybackStore) Create(input PlaybackInput, proc narrator.Procedure) PlaybackRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := utils.GeneratePlaybackID()
	for s.playbacks[id] != nil {
		id = utils.GeneratePlaybackID()
	}

	rec := &PlaybackRecord{
		ID:        id,
		Input:     input,
		Name:      proc.Name,
		Status:    narrator.StateNotStarted,
		Total:     len(proc.Lines),
		CreatedAt: s.now(),
	}
	s.playbacks[id] = rec
	return rec.snapshot()
}

func (s *PlaybackStore) Get(id string) (PlaybackRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.playbacks[id]
	if !ok {
		return PlaybackRecord{}, false
	}
	return rec.snapshot(), true
}

// List returns up to limit playbacks, newest first
func (s *PlaybackStore) List(limit int) []PlaybackRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	out := make([]PlaybackRecord, 0, len(s.playbacks))
	for _, rec := range s.playbacks {
		out = append(out, rec.snapshot())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// AppendLine records an emitted line
func (s *PlaybackStore) AppendLine(id, line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.playbacks[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPlaybackNotFound, id)
	}
	rec.Lines = append(rec.Lines, line)
	return nil
}

// SetStatus moves a playback to status. Terminal playbacks never change again.
func (s *PlaybackStore) SetStatus(id string, status narrator.State, errMsg string) (PlaybackRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.playbacks[id]
	if !ok {
		return PlaybackRecord{}, fmt.Errorf("%w: %s", ErrPlaybackNotFound, id)
	}
	if rec.Status.Terminal() {
		return rec.snapshot(), fmt.Errorf("%w: %s is %s", ErrPlaybackTerminal, id, rec.Status)
	}
	// only a not-started playback may begin playing
	if status == narrator.StatePlaying && rec.Status != narrator.StateNotStarted {
		return rec.snapshot(), fmt.Errorf("%w: %s", ErrPlaybackStarted, id)
	}

	rec.Status = status
	if errMsg != "" {
		rec.Error = errMsg
	}

	switch {
	case status == narrator.StatePlaying:
		if rec.StartedAt.IsZero() {
			rec.StartedAt = s.now()
		}
	case status.Terminal():
		rec.EndedAt = s.now()
	}

	return rec.snapshot(), nil
}
