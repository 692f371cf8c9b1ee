package system

// TickState is the pipeline position of the runner.
type TickState int32

const (
	StateIdle TickState = iota
	StateCollecting
	StateResolving
	StateApplying
)

func (s TickState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCollecting:
		return "collecting"
	case StateResolving:
		return "resolving"
	case StateApplying:
		return "applying"
	default:
		return "unknown"
	}
}
