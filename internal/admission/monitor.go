// Package admission gates reconciliation traffic per actor and per network
// origin: rolling-window rate limits, timing-anomaly detection and
// temporary blocks.
package admission

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/iudanet/docsync/internal/models"
	"github.com/iudanet/docsync/internal/observability"
)

// Verdict решение по запросу
type Verdict int

const (
	Allow Verdict = iota
	Throttle
	Block
)

func (v Verdict) String() string {
	switch v {
	case Allow:
		return "allow"
	case Throttle:
		return "throttle"
	case Block:
		return "block"
	default:
		return fmt.Sprintf("verdict(%d)", int(v))
	}
}

// Decision результат Admit
type Decision struct {
	Key        string // ключ, вынесший самое строгое решение
	Reason     string
	RetryAfter time.Duration
	Verdict    Verdict
}

// Reasons for flags and verdicts
const (
	ReasonRateExceeded     = "rate_exceeded"
	ReasonBlocked          = "blocked"
	ReasonUniformIntervals = "uniform_intervals"
	ReasonResponseOutliers = "response_outliers"
	ReasonManual           = "manual"
)

// ActorKey returns the monitor key of an actor
func ActorKey(actorID string) string { return "actor:" + actorID }

// OriginKey returns the monitor key of a network origin
func OriginKey(origin string) string { return "origin:" + origin }

// Config параметры монитора
type Config struct {
	Window             time.Duration // окно счетчика запросов
	SuspicionDuration  time.Duration
	BlockDuration      time.Duration
	InactivityTTL      time.Duration // ключи без активности дольше TTL удаляются
	CleanupInterval    time.Duration
	CVThreshold        float64
	OutlierRatio       float64
	Rate               int // запросов за Window
	SuspiciousRate     int // лимит для подозрительных ключей
	BlockAfter         int // число превышений до блокировки
	MinIntervalSamples int
	MinResponseSamples int
	SampleWindow       int // сколько последних замеров хранить
	Shards             int
}

// DefaultConfig returns 60/min, 20/min when suspicious for 1h, block for 10m
// after 10 violations.
func DefaultConfig() Config {
	return Config{
		Window:             time.Minute,
		SuspicionDuration:  time.Hour,
		BlockDuration:      10 * time.Minute,
		InactivityTTL:      time.Hour,
		CleanupInterval:    time.Minute,
		CVThreshold:        0.1,
		OutlierRatio:       0.2,
		Rate:               60,
		SuspiciousRate:     20,
		BlockAfter:         10,
		MinIntervalSamples: 5,
		MinResponseSamples: 10,
		SampleWindow:       20,
		Shards:             32,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Window <= 0 {
		c.Window = d.Window
	}
	if c.SuspicionDuration <= 0 {
		c.SuspicionDuration = d.SuspicionDuration
	}
	if c.BlockDuration <= 0 {
		c.BlockDuration = d.BlockDuration
	}
	if c.InactivityTTL <= 0 {
		c.InactivityTTL = d.InactivityTTL
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = d.CleanupInterval
	}
	if c.CVThreshold <= 0 {
		c.CVThreshold = d.CVThreshold
	}
	if c.OutlierRatio <= 0 {
		c.OutlierRatio = d.OutlierRatio
	}
	if c.Rate <= 0 {
		c.Rate = d.Rate
	}
	if c.SuspiciousRate <= 0 || c.SuspiciousRate > c.Rate {
		c.SuspiciousRate = min(d.SuspiciousRate, c.Rate)
	}
	if c.BlockAfter <= 0 {
		c.BlockAfter = d.BlockAfter
	}
	if c.MinIntervalSamples < 2 {
		c.MinIntervalSamples = d.MinIntervalSamples
	}
	if c.MinResponseSamples < 4 {
		c.MinResponseSamples = d.MinResponseSamples
	}
	if c.SampleWindow < max(c.MinIntervalSamples, c.MinResponseSamples) {
		c.SampleWindow = max(d.SampleWindow, c.MinIntervalSamples, c.MinResponseSamples)
	}
	if c.Shards <= 0 {
		c.Shards = d.Shards
	}
	return c
}

// KeyStatus снимок состояния ключа
type KeyStatus struct {
	SuspiciousUntil time.Time
	BlockedUntil    time.Time
	LastSeen        time.Time
	Reason          string
	InWindow        int   // запросов в текущем окне
	RequestCount    int64 // всего допущенных запросов
	Violations      int
	Suspicious      bool
	Blocked         bool
}

type keyState struct {
	touched         time.Time
	suspiciousUntil time.Time
	blockedUntil    time.Time
	reason          string
	hits            []time.Time // моменты допущенных запросов внутри окна
	metrics         models.ActorMetrics
	violations      int
}

type shard struct {
	keys map[string]*keyState
	mu   sync.Mutex
}

// Monitor per-key admission state. Safe for concurrent use; keys are spread
// over independently locked shards.
type Monitor struct {
	logger *slog.Logger
	now    func() time.Time
	shards []*shard
	config Config
}

// Option настраивает Monitor
type Option func(*Monitor)

// WithClock подменяет часы (для тестов)
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		m.now = now
	}
}

// NewMonitor creates a monitor
func NewMonitor(cfg Config, logger *slog.Logger, opts ...Option) *Monitor {
	cfg = cfg.withDefaults()
	m := &Monitor{
		config: cfg,
		logger: logger,
		now:    time.Now,
		shards: make([]*shard, cfg.Shards),
	}
	for i := range m.shards {
		m.shards[i] = &shard{keys: make(map[string]*keyState)}
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Config returns the effective configuration
func (m *Monitor) Config() Config {
	return m.config
}

func (m *Monitor) shardFor(key string) *shard {
	return m.shards[xxhash.Sum64String(key)%uint64(len(m.shards))]
}

// withKey выполняет fn под блокировкой шарда ключа, создавая состояние при необходимости
func (m *Monitor) withKey(key string, create bool, fn func(st *keyState)) bool {
	sh := m.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	st, ok := sh.keys[key]
	if !ok {
		if !create {
			return false
		}
		st = &keyState{}
		sh.keys[key] = st
	}
	fn(st)
	return true
}

// Admit decides whether the actor (coming from origin) may start an
// exchange. Actor and origin are limited independently; the strictest
// verdict wins. Empty identifiers are not tracked.
func (m *Monitor) Admit(actorID, origin string) Decision {
	now := m.now()
	decision := Decision{Verdict: Allow}

	for _, key := range m.keysFor(actorID, origin) {
		var d Decision
		m.withKey(key, true, func(st *keyState) {
			d = m.admitKey(key, st, now)
		})
		if d.Verdict > decision.Verdict ||
			(d.Verdict == decision.Verdict && d.RetryAfter > decision.RetryAfter) {
			decision = d
		}
	}

	observability.RecordAdmission(decision.Verdict.String())
	if decision.Verdict != Allow {
		m.logger.Warn("Admission denied",
			"actor_id", actorID,
			"origin", origin,
			"key", decision.Key,
			"verdict", decision.Verdict.String(),
			"reason", decision.Reason,
			"retry_after", decision.RetryAfter,
		)
	}
	return decision
}

func (m *Monitor) keysFor(actorID, origin string) []string {
	keys := make([]string, 0, 2)
	if actorID != "" {
		keys = append(keys, ActorKey(actorID))
	}
	if origin != "" {
		keys = append(keys, OriginKey(origin))
	}
	return keys
}

func (m *Monitor) admitKey(key string, st *keyState, now time.Time) Decision {
	st.touched = now

	if now.Before(st.blockedUntil) {
		return Decision{Key: key, Verdict: Block, Reason: ReasonBlocked, RetryAfter: st.blockedUntil.Sub(now)}
	}
	if !st.suspiciousUntil.IsZero() && !now.Before(st.suspiciousUntil) {
		// подозрение истекло, возвращаемся к обычному лимиту
		st.suspiciousUntil = time.Time{}
		st.reason = ""
	}

	st.hits = pruneBefore(st.hits, now.Add(-m.config.Window))
	if len(st.hits) == 0 {
		st.violations = 0
	}

	limit := m.config.Rate
	if m.suspicious(st, now) {
		limit = m.config.SuspiciousRate
	}

	if len(st.hits) >= limit {
		st.violations++
		if st.violations >= m.config.BlockAfter {
			m.block(key, st, now, m.config.BlockDuration, ReasonRateExceeded)
			return Decision{Key: key, Verdict: Block, Reason: ReasonRateExceeded, RetryAfter: m.config.BlockDuration}
		}
		// освободится, когда из окна выйдет столько запросов, чтобы остаться ниже лимита
		oldest := st.hits[len(st.hits)-limit]
		retryAfter := oldest.Add(m.config.Window).Sub(now)
		if retryAfter <= 0 {
			retryAfter = time.Millisecond
		}
		return Decision{Key: key, Verdict: Throttle, Reason: ReasonRateExceeded, RetryAfter: retryAfter}
	}

	st.hits = append(st.hits, now)
	st.metrics.RecordArrival(now, m.config.SampleWindow)

	if !m.suspicious(st, now) && len(st.metrics.Intervals) >= m.config.MinIntervalSamples {
		if cv := coefficientOfVariation(st.metrics.Intervals); cv < m.config.CVThreshold {
			m.flag(key, st, now, ReasonUniformIntervals)
		}
	}

	return Decision{Key: key, Verdict: Allow}
}

func (m *Monitor) suspicious(st *keyState, now time.Time) bool {
	return now.Before(st.suspiciousUntil)
}

func (m *Monitor) flag(key string, st *keyState, now time.Time, reason string) {
	st.suspiciousUntil = now.Add(m.config.SuspicionDuration)
	st.reason = reason
	observability.RecordFlag(reason)
	m.logger.Warn("Key flagged as suspicious",
		"key", key,
		"reason", reason,
		"until", st.suspiciousUntil,
	)
}

func (m *Monitor) block(key string, st *keyState, now time.Time, d time.Duration, reason string) {
	st.blockedUntil = now.Add(d)
	st.violations = 0
	st.hits = nil
	st.reason = reason
	observability.RecordFlag(ReasonBlocked)
	m.logger.Warn("Key blocked",
		"key", key,
		"reason", reason,
		"until", st.blockedUntil,
	)
}

// ObserveResponse records how long an admitted exchange took. An IQR
// outlier share above the configured ratio flags the actor as suspicious.
func (m *Monitor) ObserveResponse(actorID string, d time.Duration) {
	if actorID == "" {
		return
	}
	now := m.now()
	key := ActorKey(actorID)

	m.withKey(key, true, func(st *keyState) {
		st.touched = now
		st.metrics.RecordResponse(d, m.config.SampleWindow)

		if m.suspicious(st, now) || len(st.metrics.ResponseTimes) < m.config.MinResponseSamples {
			return
		}
		if ratio := outlierRatio(st.metrics.ResponseTimes); ratio > m.config.OutlierRatio {
			m.flag(key, st, now, ReasonResponseOutliers)
		}
	})
}

// Flag marks the key suspicious for the configured duration
func (m *Monitor) Flag(key, reason string) {
	if reason == "" {
		reason = ReasonManual
	}
	now := m.now()
	m.withKey(key, true, func(st *keyState) {
		st.touched = now
		m.flag(key, st, now, reason)
	})
}

// Block blocks the key for d (BlockDuration when d <= 0)
func (m *Monitor) Block(key string, d time.Duration) {
	if d <= 0 {
		d = m.config.BlockDuration
	}
	now := m.now()
	m.withKey(key, true, func(st *keyState) {
		st.touched = now
		m.block(key, st, now, d, ReasonManual)
	})
}

// Unblock lifts a block and suspicion from the key
func (m *Monitor) Unblock(key string) {
	m.withKey(key, false, func(st *keyState) {
		st.blockedUntil = time.Time{}
		st.suspiciousUntil = time.Time{}
		st.violations = 0
		st.reason = ""
	})
	m.logger.Info("Key unblocked", "key", key)
}

// Snapshot returns the current state of the key
func (m *Monitor) Snapshot(key string) (KeyStatus, bool) {
	now := m.now()
	var status KeyStatus
	found := m.withKey(key, false, func(st *keyState) {
		inWindow := 0
		cutoff := now.Add(-m.config.Window)
		for _, h := range st.hits {
			if h.After(cutoff) {
				inWindow++
			}
		}
		status = KeyStatus{
			SuspiciousUntil: st.suspiciousUntil,
			BlockedUntil:    st.blockedUntil,
			LastSeen:        st.metrics.LastSeen,
			Reason:          st.reason,
			InWindow:        inWindow,
			RequestCount:    st.metrics.RequestCount,
			Violations:      st.violations,
			Suspicious:      m.suspicious(st, now),
			Blocked:         now.Before(st.blockedUntil),
		}
	})
	return status, found
}

// Cleanup removes keys idle longer than InactivityTTL that carry no active
// block or suspicion. Returns the number of removed keys.
func (m *Monitor) Cleanup() int {
	now := m.now()
	removed := 0
	for _, sh := range m.shards {
		sh.mu.Lock()
		for key, st := range sh.keys {
			if now.Sub(st.touched) <= m.config.InactivityTTL {
				continue
			}
			if now.Before(st.blockedUntil) || now.Before(st.suspiciousUntil) {
				continue
			}
			delete(sh.keys, key)
			removed++
		}
		sh.mu.Unlock()
	}
	return removed
}

// Run runs the cleanup task until ctx is cancelled
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := m.Cleanup(); n > 0 {
				m.logger.Debug("Admission keys cleaned up", "removed", n)
			}
		}
	}
}

func pruneBefore(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return hits
	}
	return append(hits[:0], hits[i:]...)
}
