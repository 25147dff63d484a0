package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/deepsearchstack/deepsearch/internal/core/constants"
	"github.com/deepsearchstack/deepsearch/internal/core/ports"
)

const (
	ringCapacity      = 10000
	latencySampleSize = 100
	cleanupInterval   = time.Hour
)

// Recorder keeps a bounded in-memory history of provider requests plus
// cheap atomic gateway counters. Window queries scan the ring buffer, which
// is capped at ringCapacity entries so scans stay bounded regardless of
// uptime.
type Recorder struct {
	startTime time.Time
	retention time.Duration

	mu      sync.RWMutex
	ring    []ports.RequestRecord
	ringPos int
	full    bool

	// recent latency samples per provider, independent of the ring so
	// streak and latency reads stay cheap
	latencies map[string]*latencyTrack

	totalRequests   atomic.Int64
	totalErrors     atomic.Int64
	rateLimitHits   atomic.Int64
	breakerTriggers atomic.Int64
	cacheHits       atomic.Int64
	cacheMisses     atomic.Int64

	done chan struct{}
}

type latencyTrack struct {
	samples      []time.Duration
	errorStreak  int
	lastSuccess  time.Time
	lastError    time.Time
	lastErrorMsg string
}

func NewRecorder(retentionHours int) *Recorder {
	if retentionHours <= 0 {
		retentionHours = constants.DefaultMetricsRetentionHours
	}
	r := &Recorder{
		startTime: time.Now(),
		retention: time.Duration(retentionHours) * time.Hour,
		ring:      make([]ports.RequestRecord, ringCapacity),
		latencies: make(map[string]*latencyTrack),
		done:      make(chan struct{}),
	}
	go r.cleanupLoop()
	return r
}

func (r *Recorder) RecordRequest(provider string, responseTime time.Duration, success bool, opts ...ports.RequestOption) {
	record := ports.RequestRecord{
		Timestamp:    time.Now(),
		Provider:     provider,
		ResponseTime: responseTime,
		Success:      success,
	}
	for _, opt := range opts {
		opt(&record)
	}

	r.totalRequests.Add(1)
	if !success {
		r.totalErrors.Add(1)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.ring[r.ringPos] = record
	r.ringPos++
	if r.ringPos == ringCapacity {
		r.ringPos = 0
		r.full = true
	}

	track, ok := r.latencies[provider]
	if !ok {
		track = &latencyTrack{}
		r.latencies[provider] = track
	}
	track.samples = append(track.samples, responseTime)
	if len(track.samples) > latencySampleSize {
		track.samples = track.samples[len(track.samples)-latencySampleSize:]
	}
	if success {
		track.errorStreak = 0
		track.lastSuccess = record.Timestamp
	} else {
		track.errorStreak++
		track.lastError = record.Timestamp
		track.lastErrorMsg = record.ErrorType
	}
}

func (r *Recorder) RecordRateLimitHit() {
	r.rateLimitHits.Add(1)
}

func (r *Recorder) RecordBreakerTrigger() {
	r.breakerTriggers.Add(1)
}

func (r *Recorder) RecordCacheHit(hit bool) {
	if hit {
		r.cacheHits.Add(1)
	} else {
		r.cacheMisses.Add(1)
	}
}

func (r *Recorder) ProviderStats(provider string, window time.Duration) ports.ProviderWindowStats {
	cutoff := time.Now().Add(-window)

	r.mu.RLock()
	var records []ports.RequestRecord
	r.scanLocked(func(rec *ports.RequestRecord) {
		if rec.Provider == provider && rec.Timestamp.After(cutoff) {
			records = append(records, *rec)
		}
	})
	r.mu.RUnlock()

	return summarise(provider, window, records)
}

func (r *Recorder) AllProviderStats(window time.Duration) map[string]ports.ProviderWindowStats {
	cutoff := time.Now().Add(-window)

	r.mu.RLock()
	byProvider := make(map[string][]ports.RequestRecord)
	r.scanLocked(func(rec *ports.RequestRecord) {
		if rec.Timestamp.After(cutoff) {
			byProvider[rec.Provider] = append(byProvider[rec.Provider], *rec)
		}
	})
	r.mu.RUnlock()

	out := make(map[string]ports.ProviderWindowStats, len(byProvider))
	for provider, records := range byProvider {
		out[provider] = summarise(provider, window, records)
	}
	return out
}

func (r *Recorder) GatewayStats(window time.Duration) ports.GatewayStats {
	cutoff := time.Now().Add(-window)

	var windowed int
	var totalLatency time.Duration
	r.mu.RLock()
	r.scanLocked(func(rec *ports.RequestRecord) {
		if rec.Timestamp.After(cutoff) {
			windowed++
			totalLatency += rec.ResponseTime
		}
	})
	r.mu.RUnlock()

	total := r.totalRequests.Load()
	errors := r.totalErrors.Load()
	hits := r.cacheHits.Load()
	misses := r.cacheMisses.Load()

	stats := ports.GatewayStats{
		UptimeSeconds:          time.Since(r.startTime).Seconds(),
		TotalRequests:          total,
		TotalErrors:            errors,
		RateLimitHits:          r.rateLimitHits.Load(),
		CircuitBreakerTriggers: r.breakerTriggers.Load(),
	}
	if total > 0 {
		stats.ErrorRate = float64(errors) / float64(total)
	}
	if hits+misses > 0 {
		stats.CacheHitRate = float64(hits) / float64(hits+misses)
	}
	if windowed > 0 {
		stats.AvgResponseTime = totalLatency.Seconds() * 1000 / float64(windowed)
		stats.RequestsPerSecond = float64(windowed) / window.Seconds()
	}
	return stats
}

func (r *Recorder) AverageLatency(provider string) time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	track, ok := r.latencies[provider]
	if !ok || len(track.samples) == 0 {
		return 0
	}
	var sum time.Duration
	for _, s := range track.samples {
		sum += s
	}
	return sum / time.Duration(len(track.samples))
}

func (r *Recorder) ErrorStreak(provider string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if track, ok := r.latencies[provider]; ok {
		return track.errorStreak
	}
	return 0
}

func (r *Recorder) LastOutcome(provider string) (time.Time, time.Time, string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if track, ok := r.latencies[provider]; ok {
		return track.lastSuccess, track.lastError, track.lastErrorMsg
	}
	return time.Time{}, time.Time{}, ""
}

func (r *Recorder) Stop() {
	close(r.done)
}

// scanLocked visits live ring entries oldest-first. Caller holds at least a
// read lock.
func (r *Recorder) scanLocked(visit func(*ports.RequestRecord)) {
	if r.full {
		for i := r.ringPos; i < ringCapacity; i++ {
			visit(&r.ring[i])
		}
	}
	for i := 0; i < r.ringPos; i++ {
		visit(&r.ring[i])
	}
}

// cleanupLoop zeroes ring entries older than the retention horizon so stale
// providers drop out of window queries even when traffic stops.
func (r *Recorder) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-r.retention)
			r.mu.Lock()
			for i := range r.ring {
				if !r.ring[i].Timestamp.IsZero() && r.ring[i].Timestamp.Before(cutoff) {
					r.ring[i] = ports.RequestRecord{}
				}
			}
			r.mu.Unlock()
		}
	}
}

func summarise(provider string, window time.Duration, records []ports.RequestRecord) ports.ProviderWindowStats {
	stats := ports.ProviderWindowStats{
		Provider:      provider,
		WindowMinutes: int(window.Minutes()),
	}
	if len(records) == 0 {
		return stats
	}

	times := make([]float64, 0, len(records))
	errorBreakdown := make(map[string]int)
	for _, rec := range records {
		stats.TotalRequests++
		ms := rec.ResponseTime.Seconds() * 1000
		times = append(times, ms)
		if rec.Success {
			stats.SuccessfulRequests++
		} else {
			stats.FailedRequests++
			key := rec.ErrorType
			if key == "" {
				key = "unknown"
			}
			errorBreakdown[key]++
		}
	}

	sort.Float64s(times)
	var sum float64
	for _, t := range times {
		sum += t
	}

	stats.SuccessRate = float64(stats.SuccessfulRequests) / float64(stats.TotalRequests)
	stats.ErrorRate = float64(stats.FailedRequests) / float64(stats.TotalRequests)
	stats.AvgResponseTime = sum / float64(len(times))
	stats.MinResponseTime = times[0]
	stats.MaxResponseTime = times[len(times)-1]
	stats.P50ResponseTime = percentile(times, 0.50)
	stats.P95ResponseTime = percentile(times, 0.95)
	stats.P99ResponseTime = percentile(times, 0.99)
	stats.RequestsPerMinute = float64(stats.TotalRequests) / window.Minutes()
	stats.RequestsPerSecond = float64(stats.TotalRequests) / window.Seconds()
	if len(errorBreakdown) > 0 {
		stats.ErrorBreakdown = errorBreakdown
	}
	return stats
}

// percentile reads the pth quantile from an ascending slice using the
// nearest-rank method.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p * float64(len(sorted)))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
