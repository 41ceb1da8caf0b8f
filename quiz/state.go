package quiz

import "errors"

var (
	// ErrInvalidTransition is returned when an operation is not allowed in the session's state
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrAlternativeOutOfRange is returned when a selection does not name an alternative
	ErrAlternativeOutOfRange = errors.New("alternative out of range")
	// ErrEmptyQuiz is returned when a session is started for a quiz without questions
	ErrEmptyQuiz = errors.New("quiz has no questions")
)

// State is the phase a session is in
type State int

const (
	StateAnswering State = iota
	StateConfirming
	StateAdvancing
	StateCompleted
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateAnswering:
		return "answering"
	case StateConfirming:
		return "confirming"
	case StateAdvancing:
		return "advancing"
	case StateCompleted:
		return "completed"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// Terminal reports whether no further operations are valid
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateStopped
}

// Status is the transient feedback shown after a confirmed answer
type Status int

const (
	StatusNone Status = iota
	StatusCorrect
	StatusIncorrect
)

func (s Status) String() string {
	switch s {
	case StatusCorrect:
		return "correct"
	case StatusIncorrect:
		return "incorrect"
	}
	return "none"
}

// Result tells the caller which branch of Confirm fired
type Result int

const (
	ResultCorrect Result = iota + 1
	ResultIncorrect
	ResultNeedsSkipConfirmation
)

func (r Result) String() string {
	switch r {
	case ResultCorrect:
		return "correct"
	case ResultIncorrect:
		return "incorrect"
	case ResultNeedsSkipConfirmation:
		return "needs_skip_confirmation"
	}
	return "unknown"
}

// EffectKind names a cosmetic side effect the caller should run
type EffectKind int

const (
	EffectHaptic EffectKind = iota + 1
	EffectSound
)

func (k EffectKind) String() string {
	switch k {
	case EffectHaptic:
		return "haptic"
	case EffectSound:
		return "sound"
	}
	return "unknown"
}

// Effect is a fire-and-forget request produced by a transition.
// The session never runs effects itself.
type Effect struct {
	Kind   EffectKind
	Status Status
}
