// Package metrics records pipeline counters and latencies. The default
// recorder does nothing; serve installs a Prometheus recorder.
package metrics

import (
	"sync"
	"time"
)

// Stage names of the query pipeline
const (
	StageRetrieve = "retrieve"
	StageAnswer   = "answer"
	StageFallback = "fallback"
)

// Recorder is the metrics surface used by the pipeline
type Recorder interface {
	// IncQueryTotal counts a finished query by provenance and fallback reason ("" for local answers)
	IncQueryTotal(provenance, reason string)
	ObserveStageSeconds(stage string, success bool, seconds float64)
	IncToolTotal(tool string, success bool)
}

type noopRecorder struct{}

func (noopRecorder) IncQueryTotal(string, string)              {}
func (noopRecorder) ObserveStageSeconds(string, bool, float64) {}
func (noopRecorder) IncToolTotal(string, bool)                 {}

var (
	recMu    sync.RWMutex
	recorder Recorder = noopRecorder{}
)

// Default returns the current recorder
func Default() Recorder {
	recMu.RLock()
	defer recMu.RUnlock()
	return recorder
}

// SetRecorder swaps the global recorder. nil restores the no-op recorder.
func SetRecorder(r Recorder) {
	recMu.Lock()
	defer recMu.Unlock()
	if r == nil {
		r = noopRecorder{}
	}
	recorder = r
}

// TimeStage starts timing a pipeline stage. Call the returned func when it ends.
func TimeStage(stage string) func(success bool) {
	start := time.Now()
	return func(success bool) {
		Default().ObserveStageSeconds(stage, success, time.Since(start).Seconds())
	}
}
