package metrics

import "time"

// NoopRecorder discards everything. It is the default for sessions,
// orchestrators and the facade.
type NoopRecorder struct{}

var _ Recorder = NoopRecorder{}

func (NoopRecorder) IncCounter(string, map[string]string)                    {}
func (NoopRecorder) ObserveLatency(string, time.Duration, map[string]string) {}
