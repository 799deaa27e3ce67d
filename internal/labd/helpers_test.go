package labd

import (
	"testing"
	"time"

	"github.com/GoSim-25-26J-441/wireless-lab/internal/sampler"
	"github.com/GoSim-25-26J-441/wireless-lab/pkg/config"
	"github.com/GoSim-25-26J-441/wireless-lab/pkg/utils"
)

var fixedNow = time.Date(2024, 5, 17, 9, 30, 0, 0, time.UTC)

// blockingClock never fires, so a playback waits until it is cancelled
type blockingClock struct{}

func (blockingClock) Now() time.Time { return fixedNow }

func (blockingClock) After(time.Duration) <-chan time.Time { return nil }

// newTestServices returns services with a midpoint sampler, a fixed time and
// instant narration pacing.
func newTestServices(t *testing.T) *Services {
	t.Helper()

	cfg := config.Default()
	cfg.Narration.Pause = "0s"
	cfg.Notifications.MaxRetries = 2
	cfg.Notifications.BaseMs = 0
	cfg.Notifications.Timeout = "2s"

	svc := NewServices(cfg)
	svc.Sampler = sampler.New(utils.FixedSource{Fraction: 0.5})
	svc.Now = func() time.Time { return fixedNow }
	svc.Clock = func() utils.Clock { return &utils.InstantClock{Start: fixedNow} }
	svc.Executor.SetClock(svc.Clock)
	t.Cleanup(svc.Close)
	return svc
}
