package monitor

// SignalKind is the outcome of comparing a wallet's previous balance
// against a freshly fetched one.
type SignalKind int

const (
	// FirstObservation - no previous balance existed. The new value is
	// stored but no notification is sent, so adding a wallet never spams.
	FirstObservation SignalKind = iota
	// Unchanged - previous and current are equal.
	Unchanged
	// Changed - the balance moved by Delta lamports (possibly negative).
	Changed
)

func (k SignalKind) String() string {
	switch k {
	case FirstObservation:
		return "first_observation"
	case Unchanged:
		return "unchanged"
	case Changed:
		return "changed"
	default:
		return "unknown"
	}
}

// Signal carries the detection outcome. Delta is meaningful only for
// Changed.
type Signal struct {
	Kind  SignalKind
	Delta int64
}

// Detect compares a previous balance (nil = never observed) with the
// current one. Any nonzero change signals; there is no minimum threshold.
func Detect(previous *uint64, current uint64) Signal {
	if previous == nil {
		return Signal{Kind: FirstObservation}
	}
	if *previous == current {
		return Signal{Kind: Unchanged}
	}
	return Signal{Kind: Changed, Delta: int64(current) - int64(*previous)}
}
