package agent

// MaxConsecutiveTransportFailures is the threshold for giving up on the model
// endpoint. After this many consecutive failed model calls the runtime
// degrades immediately instead of burning the remaining iteration budget.
const MaxConsecutiveTransportFailures = 2

// IterationState tracks loop state across model turns.
// Shared by both runtime protocols.
type IterationState struct {
	CurrentIteration             int
	MaxIterations                int
	ConsecutiveTransportFailures int
	Warnings                     []string
}

// ShouldAbortOnTransport returns true when consecutive model-call failures
// have reached the threshold.
func (s *IterationState) ShouldAbortOnTransport() bool {
	return s.ConsecutiveTransportFailures >= MaxConsecutiveTransportFailures
}

// RecordTurnSuccess resets transport failure tracking after a model turn
// that returned (even a malformed one — the endpoint is alive).
func (s *IterationState) RecordTurnSuccess() {
	s.ConsecutiveTransportFailures = 0
}

// RecordTransportFailure records a failed model call and its warning.
func (s *IterationState) RecordTransportFailure(warning string) {
	s.ConsecutiveTransportFailures++
	s.Warnings = append(s.Warnings, warning)
}

// Warn records a non-transport warning (malformed turn, unknown tool).
func (s *IterationState) Warn(warning string) {
	s.Warnings = append(s.Warnings, warning)
}
