package engine

// State is the configuration state of an engine.
type State int

const (
	// StateUnconfigured is the state of a freshly constructed engine.
	StateUnconfigured State = iota
	// StateConfigured is entered exactly once, by the first Configure call.
	StateConfigured
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateUnconfigured:
		return "unconfigured"
	case StateConfigured:
		return "configured"
	default:
		return "unknown"
	}
}

// transitionTo returns the state reached from s when moving to next. The only
// valid transition is unconfigured to configured.
func (s State) transitionTo(next State) (State, error) {
	if s == StateUnconfigured && next == StateConfigured {
		return next, nil
	}
	if s == StateConfigured {
		return s, NewLifecycleError("this engine has already been configured")
	}
	return s, newError(ErrorClassLifecycle, "INVALID_TRANSITION",
		"invalid state transition from "+s.String()+" to "+next.String(), nil)
}
