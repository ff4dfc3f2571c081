package cascade

import (
	"github.com/joseph-ayodele/rod-records/internal/extract"
)

// State of one document moving through the engine cascade.
type State int

const (
	Start State = iota
	FastAttempted
	Escalated
	Done
)

func (s State) String() string {
	switch s {
	case Start:
		return "start"
	case FastAttempted:
		return "fast-attempted"
	case Escalated:
		return "escalated"
	default:
		return "done"
	}
}

// Snapshot is everything a transition looks at.
type Snapshot struct {
	// Fatal is set when the source itself cannot be processed.
	Fatal bool
	// Wanted is ShouldEscalate for the fast result.
	Wanted bool
	// Available is the specialized engine's capability flag. Only
	// meaningful when Wanted is set.
	Available bool
}

// next is the cascade's transition function.
func next(s State, snap Snapshot) State {
	switch s {
	case Start:
		if snap.Fatal {
			return Done
		}
		return FastAttempted
	case FastAttempted:
		if !snap.Fatal && snap.Wanted && snap.Available {
			return Escalated
		}
		return Done
	default:
		return Done
	}
}

// ShouldEscalate reports whether a fast result is weak enough to try the
// specialized engine: it needs verification and some field scores below
// threshold.
func ShouldEscalate(fast extract.Result, threshold float64) bool {
	return fast.NeedsVerification && extract.MinConfidence(fast.Fields) < threshold
}
