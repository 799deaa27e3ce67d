// Package labd is the wireless lab daemon: HTTP and gRPC front ends over the
// metric sampler, the report renderer and the procedure narrator.
package labd

import (
	"math"
	"time"

	"github.com/GoSim-25-26J-441/wireless-lab/internal/metrics"
	"github.com/GoSim-25-26J-441/wireless-lab/internal/narrator"
	"github.com/GoSim-25-26J-441/wireless-lab/internal/sampler"
	"github.com/GoSim-25-26J-441/wireless-lab/pkg/config"
	"github.com/GoSim-25-26J-441/wireless-lab/pkg/logger"
	"github.com/GoSim-25-26J-441/wireless-lab/pkg/models"
	"github.com/GoSim-25-26J-441/wireless-lab/pkg/utils"
)

// Services holds the state shared by both servers
type Services struct {
	Sampler     *sampler.Sampler
	Catalog     *narrator.Catalog
	Store       *PlaybackStore
	Executor    *PlaybackExecutor
	Notifier    *Notifier
	Metrics     *metrics.Registry
	Pause       time.Duration // default pause between narrated lines
	MaxPause    time.Duration
	Clock       func() utils.Clock // one clock per narration
	Now         func() time.Time
	MetricsPath string // empty disables the exposition endpoint
}

// NewServices wires the daemon from cfg
func NewServices(cfg *config.Config) *Services {
	if cfg.Sampler.Seed != 0 {
		utils.SetSeed(cfg.Sampler.Seed)
	}
	logger.Debug("sampler seeded", "seed", utils.Default().Seed())

	reg := metrics.NewRegistry()
	catalog := narrator.DefaultCatalog()
	store := NewPlaybackStore()
	maxPause := cfg.Narration.GetMaxPause()

	notifier := NewNotifier(cfg.Notifications, reg)
	executor := NewPlaybackExecutor(store, catalog, maxPause)
	executor.SetNotifier(notifier)
	executor.SetMetrics(reg)

	svc := &Services{
		Sampler:  sampler.New(nil),
		Catalog:  catalog,
		Store:    store,
		Executor: executor,
		Notifier: notifier,
		Metrics:  reg,
		Pause:    cfg.Narration.GetPause(),
		MaxPause: maxPause,
		Clock:    func() utils.Clock { return utils.RealClock{} },
		Now:      time.Now,
	}
	if cfg.Metrics.Enabled {
		svc.MetricsPath = cfg.Metrics.Path
	}
	return svc
}

// Simulate samples cfg, records it and stamps it with the current time
func (s *Services) Simulate(cfg models.Configuration) models.Simulation {
	sim := s.Sampler.Run(cfg, s.Now())
	s.Metrics.ObserveSimulation(sim)
	return sim
}

// LookupQoS resolves an application and records the lookup
func (s *Services) LookupQoS(app string) (narrator.QoSClass, error) {
	q, err := narrator.LookupQoS(app)
	if err != nil {
		return narrator.QoSClass{}, err
	}
	s.Metrics.QoSLookupsTotal.WithLabelValues(q.Class).Inc()
	return q, nil
}

// Pacing resolves a client pause in milliseconds. A negative value selects the
// default pause; a zero MaxPause leaves the pause unbounded.
func (s *Services) Pacing(pauseMs int64) (time.Duration, error) {
	if pauseMs < 0 {
		return s.Pause, nil
	}
	limit := int64(math.MaxInt64 / int64(time.Millisecond))
	if s.MaxPause > 0 {
		limit = s.MaxPause.Milliseconds()
	}
	if pauseMs > limit {
		return 0, ErrPauseOutOfRange
	}
	return utils.MsToDuration(pauseMs), nil
}

// Close stops running playbacks and drains pending notifications
func (s *Services) Close() {
	s.Executor.Shutdown()
	s.Notifier.Wait()
}
