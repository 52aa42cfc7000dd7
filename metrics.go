package portal

import "time"

// Metrics receives counters from the guard and the api client.
type Metrics interface {
	GuardDecision(rule GuardRule)
	UpstreamResponse(method string, status int, elapsed time.Duration)
	SessionCleared(source string)
}

type noopMetrics struct{}

func (noopMetrics) GuardDecision(GuardRule) {}

func (noopMetrics) UpstreamResponse(string, int, time.Duration) {}

func (noopMetrics) SessionCleared(string) {}

// NormalizeMetrics returns a no-op collector for nil.
func NormalizeMetrics(m Metrics) Metrics {
	if m == nil {
		return noopMetrics{}
	}
	return m
}
