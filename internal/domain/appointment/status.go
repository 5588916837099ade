package appointment

// Status is the lifecycle state of an appointment. The integer values are
// persisted and accepted by the API, so they must not be reordered.
//
// State transitions possibilities:
//
//	pending → approved → completed
//	pending → rejected
//	pending → canceled
//	approved → canceled
type Status int

const (
	StatusPending Status = iota
	StatusApproved
	StatusRejected
	StatusCompleted
	StatusCanceled
)

var statusNames = [...]string{
	StatusPending:   "pending",
	StatusApproved:  "approved",
	StatusRejected:  "rejected",
	StatusCompleted: "completed",
	StatusCanceled:  "canceled",
}

func (s Status) IsValid() bool {
	return s >= StatusPending && s <= StatusCanceled
}

func (s Status) String() string {
	if !s.IsValid() {
		return "unknown"
	}
	return statusNames[s]
}

// ParseStatus converts a raw integer from a request into a Status.
func ParseStatus(v int) (Status, error) {
	s := Status(v)
	if !s.IsValid() {
		return 0, ErrInvalidStatus
	}
	return s, nil
}

// transitions is the complete graph of legal status changes. It is built
// once at package initialization and only read afterwards.
var transitions = map[Status]map[Status]struct{}{
	StatusPending:   {StatusApproved: {}, StatusRejected: {}, StatusCanceled: {}},
	StatusApproved:  {StatusCompleted: {}, StatusCanceled: {}},
	StatusRejected:  {},
	StatusCompleted: {},
	StatusCanceled:  {},
}

// CanTransition reports whether an appointment in current may move to
// requested. Unknown statuses never transition.
func CanTransition(current, requested Status) bool {
	if !current.IsValid() || !requested.IsValid() {
		return false
	}
	_, ok := transitions[current][requested]
	return ok
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	return s.IsValid() && len(transitions[s]) == 0
}

// AllowedTransitions lists the statuses reachable from s in ascending order.
func AllowedTransitions(s Status) []Status {
	out := make([]Status, 0, len(transitions[s]))
	for next := StatusPending; next <= StatusCanceled; next++ {
		if CanTransition(s, next) {
			out = append(out, next)
		}
	}
	return out
}
