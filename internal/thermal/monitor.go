package thermal

import (
	"context"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/shirou/gopsutil/v4/load"

	"video-compressor/internal/domain"
)

const (
	// DefaultSampleInterval is how often pressure is recomputed.
	DefaultSampleInterval = 15 * time.Second
	// DefaultCooldown suppresses new throttling decisions after one fires.
	DefaultCooldown = 10 * time.Second

	pauseThreshold  = 90.0
	reduceThreshold = 70.0
	resumeThreshold = 30.0

	// Synthetic temperature model: idle baseline plus usage-proportional
	// rise. There is no sensor access; usage is the only input.
	baselineTempC = 35.0
	maxTempC      = 90.0
)

// Monitor samples system load and produces thermal pressure with an
// admission-control recommendation. It has no sensor access: CPU usage is
// estimated from the 1-minute load average normalized by core count, and
// temperature is synthesized from usage.
type Monitor struct {
	logger   hclog.Logger
	interval time.Duration
	cooldown time.Duration

	loadAvg func(ctx context.Context) (float64, error)
	numCPU  func() int
	now     func() time.Time

	mu          sync.Mutex
	current     domain.ThermalStatus
	lastChange  time.Time
	subscribers map[int]chan domain.ThermalStatus
	nextSubID   int
	cancel      context.CancelFunc
}

// NewMonitor constructs a monitor with production samplers. It does not
// start sampling; call Start when thermal management is enabled.
func NewMonitor(logger hclog.Logger) *Monitor {
	return &Monitor{
		logger:   logger.Named("thermal"),
		interval: DefaultSampleInterval,
		cooldown: DefaultCooldown,
		loadAvg: func(ctx context.Context) (float64, error) {
			avg, err := load.AvgWithContext(ctx)
			if err != nil {
				return 0, err
			}
			return avg.Load1, nil
		},
		numCPU:      runtime.NumCPU,
		now:         time.Now,
		current:     domain.ThermalStatus{Action: domain.ThermalActionNormal},
		subscribers: make(map[int]chan domain.ThermalStatus),
	}
}

// NewMonitorForTests constructs a monitor with injected samplers and clock.
func NewMonitorForTests(logger hclog.Logger, loadAvg func(ctx context.Context) (float64, error), numCPU func() int, now func() time.Time) *Monitor {
	m := NewMonitor(logger)
	m.loadAvg = loadAvg
	m.numCPU = numCPU
	m.now = now
	return m
}

// Start begins periodic sampling until Stop or context cancellation.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.cancel != nil {
		m.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.mu.Unlock()

	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		m.Sample(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Sample(ctx)
			}
		}
	}()
}

// Stop halts sampling. The last status remains readable via Current.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

// Current returns the latest sampled status.
func (m *Monitor) Current() domain.ThermalStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Subscribe returns a channel receiving status updates whenever the
// recommended action changes. Callers must Unsubscribe with the returned id
// to release the channel.
func (m *Monitor) Subscribe() (int, <-chan domain.ThermalStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSubID
	m.nextSubID++
	ch := make(chan domain.ThermalStatus, 4)
	m.subscribers[id] = ch
	return id, ch
}

// Unsubscribe closes and removes a subscriber channel.
func (m *Monitor) Unsubscribe(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ch, ok := m.subscribers[id]; ok {
		close(ch)
		delete(m.subscribers, id)
	}
}

// Sample recomputes pressure once and updates the recommendation. It is
// exported so tests and the scheduler can force a fresh reading.
func (m *Monitor) Sample(ctx context.Context) domain.ThermalStatus {
	load1, err := m.loadAvg(ctx)
	if err != nil {
		m.logger.Warn("load average unavailable", "error", err)
		return m.Current()
	}

	cores := m.numCPU()
	if cores < 1 {
		cores = 1
	}
	usage := clampPercent(load1 / float64(cores) * 100)
	temp := baselineTempC + usage/100*(maxTempC-baselineTempC)
	normTemp := clampPercent((temp - baselineTempC) / (maxTempC - baselineTempC) * 100)
	pressure := math.Round((0.5*normTemp+0.5*usage)*10) / 10

	now := m.now()

	m.mu.Lock()
	prev := m.current
	action := m.recommendLocked(prev.Action, pressure, now)
	status := domain.ThermalStatus{
		CPUTemperature: math.Round(temp*10) / 10,
		CPUUsage:       math.Round(usage*10) / 10,
		Pressure:       pressure,
		Throttling:     pressure >= reduceThreshold,
		Action:         action,
		SampledAt:      now,
	}
	m.current = status
	changed := action != prev.Action
	if changed {
		m.lastChange = now
	}
	subs := make([]chan domain.ThermalStatus, 0, len(m.subscribers))
	if changed {
		for _, ch := range m.subscribers {
			subs = append(subs, ch)
		}
	}
	m.mu.Unlock()

	if changed {
		if action != domain.ThermalActionNormal {
			m.logger.Info("thermal recommendation changed", "action", action, "pressure", pressure)
		}
		for _, ch := range subs {
			select {
			case ch <- status:
			default:
				// Slow subscriber; drop rather than block the sampler.
			}
		}
	}

	return status
}

// recommendLocked derives the next action with oscillation damping: a new
// throttling decision within the cooldown window keeps the previous one.
func (m *Monitor) recommendLocked(prev domain.ThermalAction, pressure float64, now time.Time) domain.ThermalAction {
	throttled := prev == domain.ThermalActionReduce || prev == domain.ThermalActionPause

	var raw domain.ThermalAction
	switch {
	case pressure >= pauseThreshold:
		raw = domain.ThermalActionPause
	case pressure >= reduceThreshold:
		raw = domain.ThermalActionReduce
	case pressure <= resumeThreshold && throttled:
		raw = domain.ThermalActionResume
	default:
		raw = domain.ThermalActionNormal
	}

	if raw == prev {
		return prev
	}
	inCooldown := !m.lastChange.IsZero() && now.Sub(m.lastChange) < m.cooldown
	if inCooldown && (raw == domain.ThermalActionPause || raw == domain.ThermalActionReduce) {
		return prev
	}
	return raw
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
