package metrics

import (
	"time"

	"github.com/deepsearchstack/deepsearch/internal/core/ports"
)

// Tracked fans recorder events out to the prometheus bridge so callers only
// ever talk to one MetricsRecorder.
type Tracked struct {
	*Recorder
	bridge *PrometheusBridge
}

func NewTracked(recorder *Recorder, bridge *PrometheusBridge) *Tracked {
	return &Tracked{Recorder: recorder, bridge: bridge}
}

func (t *Tracked) RecordRequest(provider string, responseTime time.Duration, success bool, opts ...ports.RequestOption) {
	t.Recorder.RecordRequest(provider, responseTime, success, opts...)
	t.bridge.ObserveRequest(provider, responseTime, success)
}

func (t *Tracked) RecordRateLimitHit() {
	t.Recorder.RecordRateLimitHit()
	t.bridge.ObserveRateLimitHit()
}

func (t *Tracked) RecordBreakerTrigger() {
	t.Recorder.RecordBreakerTrigger()
	t.bridge.ObserveBreakerTrigger()
}

func (t *Tracked) RecordCacheHit(hit bool) {
	t.Recorder.RecordCacheHit(hit)
	t.bridge.ObserveCache(hit)
}
