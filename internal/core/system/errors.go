package system

import "errors"

var (
	// ErrTickInProgress is returned when Tick is re-entered before the previous
	// tick returned to Idle.
	ErrTickInProgress = errors.New("tick already in progress")
	// ErrRegistrationClosed is returned when a stage is registered after the
	// first tick ran.
	ErrRegistrationClosed = errors.New("registration closed after first tick")
	// ErrDuplicateKind is returned when two resolvers or two appliers claim the
	// same action kind.
	ErrDuplicateKind = errors.New("kind already registered")
	// ErrMissingApplier is returned when a resolver has no applier for its kind.
	ErrMissingApplier = errors.New("resolver without applier")
	// ErrResolverContract is returned when a resolver emits more effects than it
	// received actions, or effects of another kind.
	ErrResolverContract = errors.New("resolver contract violated")
	// ErrStagePanic wraps a panic recovered from a producer or resolver.
	ErrStagePanic = errors.New("stage panicked")
)
