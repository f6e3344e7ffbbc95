package entity

// Instrumentation observes store activity. The telemetry package provides
// the Prometheus/OpenTelemetry implementation.
type Instrumentation interface {
	// Begin is called when a mutation starts. The returned function is
	// called with the mutation's outcome.
	Begin(key, op string) func(err error)
	// Observers reports the current observer count for key.
	Observers(key string, n int)
}

// Nop discards everything.
type Nop struct{}

func (Nop) Begin(string, string) func(error) { return func(error) {} }
func (Nop) Observers(string, int)            {}
