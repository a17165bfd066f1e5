package redditauth

import (
	"sort"
	"sync"
	"time"
)

// MetricsCollector collects and reports flow metrics
type MetricsCollector interface {
	// RecordRequest records one HTTP exchange. status is 0 when no response arrived.
	RecordRequest(stage Stage, status int, duration time.Duration, err error)
	// RecordOperation records a public call: login, exchange or refresh
	RecordOperation(operation string, success bool, duration time.Duration)
	// RecordRateLimitWait records time spent waiting on the limiter
	RecordRateLimitWait(duration time.Duration)
	// GetMetrics returns current metrics
	GetMetrics() *Metrics
	// Reset resets all metrics
	Reset()
}

// Metrics represents collected flow metrics
type Metrics struct {
	Logins    MetricCounter `json:"logins"`
	Exchanges MetricCounter `json:"exchanges"`
	Refreshes MetricCounter `json:"refreshes"`

	Stages map[Stage]*StageMetric `json:"stages"`

	RateLimitWaits MetricCounter `json:"rate_limit_waits"`
	RateLimitDelay time.Duration `json:"rate_limit_delay"`

	StartTime     time.Time `json:"start_time"`
	LastResetTime time.Time `json:"last_reset_time"`
}

// MetricCounter represents a counter metric
type MetricCounter struct {
	Total   int64 `json:"total"`
	Success int64 `json:"success"`
	Failed  int64 `json:"failed"`
}

// StageMetric holds per-stage request statistics
type StageMetric struct {
	Requests     MetricCounter `json:"requests"`
	Timeouts     int64         `json:"timeouts"`
	LastStatus   int           `json:"last_status"`
	LastError    time.Time     `json:"last_error,omitempty"`
	LastSuccess  time.Time     `json:"last_success,omitempty"`
	ResponseTime ResponseTime  `json:"response_time"`
}

// ResponseTime represents response time statistics
type ResponseTime struct {
	Count   int64         `json:"count"`
	Total   time.Duration `json:"total"`
	Min     time.Duration `json:"min"`
	Max     time.Duration `json:"max"`
	Average time.Duration `json:"average"`
	P50     time.Duration `json:"p50"`
	P95     time.Duration `json:"p95"`
	P99     time.Duration `json:"p99"`
}

// DefaultMetricsCollector implements MetricsCollector with in-memory storage
type DefaultMetricsCollector struct {
	metrics   *Metrics
	mu        sync.Mutex
	durations map[Stage][]time.Duration
}

// NewDefaultMetricsCollector creates a new default metrics collector
func NewDefaultMetricsCollector() *DefaultMetricsCollector {
	c := &DefaultMetricsCollector{}
	c.Reset()
	return c
}

// RecordRequest records one HTTP exchange
func (c *DefaultMetricsCollector) RecordRequest(stage Stage, status int, duration time.Duration, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sm, ok := c.metrics.Stages[stage]
	if !ok {
		sm = &StageMetric{}
		c.metrics.Stages[stage] = sm
	}

	sm.Requests.Total++
	sm.LastStatus = status
	if err == nil && status >= 200 && status < 400 {
		sm.Requests.Success++
		sm.LastSuccess = time.Now()
	} else {
		sm.Requests.Failed++
		sm.LastError = time.Now()
	}
	if isTimeout(err) {
		sm.Timeouts++
	}

	c.durations[stage] = append(c.durations[stage], duration)
	// Keep only the last 1000 samples
	if len(c.durations[stage]) > 1000 {
		c.durations[stage] = c.durations[stage][100:]
	}
}

// RecordOperation records a public call
func (c *DefaultMetricsCollector) RecordOperation(operation string, success bool, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var counter *MetricCounter
	switch operation {
	case opLogin:
		counter = &c.metrics.Logins
	case opExchange:
		counter = &c.metrics.Exchanges
	case opRefresh:
		counter = &c.metrics.Refreshes
	default:
		return
	}
	counter.Total++
	if success {
		counter.Success++
	} else {
		counter.Failed++
	}
}

// RecordRateLimitWait records time spent waiting on the limiter
func (c *DefaultMetricsCollector) RecordRateLimitWait(duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.metrics.RateLimitWaits.Total++
	c.metrics.RateLimitDelay += duration
}

// GetMetrics returns a snapshot of the current metrics
func (c *DefaultMetricsCollector) GetMetrics() *Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot := *c.metrics
	snapshot.Stages = make(map[Stage]*StageMetric, len(c.metrics.Stages))
	for stage, sm := range c.metrics.Stages {
		smCopy := *sm
		smCopy.ResponseTime = calculateResponseTimeStats(c.durations[stage])
		snapshot.Stages[stage] = &smCopy
	}
	return &snapshot
}

// Reset resets all metrics
func (c *DefaultMetricsCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	c.metrics = &Metrics{
		Stages:        make(map[Stage]*StageMetric),
		StartTime:     now,
		LastResetTime: now,
	}
	c.durations = make(map[Stage][]time.Duration)
}

func calculateResponseTimeStats(durations []time.Duration) ResponseTime {
	if len(durations) == 0 {
		return ResponseTime{}
	}

	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var total time.Duration
	for _, d := range sorted {
		total += d
	}

	return ResponseTime{
		Count:   int64(len(sorted)),
		Total:   total,
		Min:     sorted[0],
		Max:     sorted[len(sorted)-1],
		Average: total / time.Duration(len(sorted)),
		P50:     sorted[len(sorted)*50/100],
		P95:     sorted[len(sorted)*95/100],
		P99:     sorted[len(sorted)*99/100],
	}
}
