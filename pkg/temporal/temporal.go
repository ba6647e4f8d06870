// Package temporal provides the interval algebra underneath TelaMentis's
// bitemporal edges: overlap tests, point-in-interval membership, and Allen's
// thirteen interval relations.
//
// All intervals are half-open [start, end): the start instant belongs to the
// interval, the end instant does not, and a nil end means unbounded above.
// This is the single convention shared by valid time and transaction time —
// getting it wrong at any one call site would silently corrupt temporal query
// results, which is why the predicates live here and nowhere else.
//
// Example Usage:
//
//	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
//	end := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
//
//	temporal.PointInInterval(someInstant, start, &end) // start <= t < end
//	temporal.PointInInterval(someInstant, start, nil)  // open-ended
//
//	temporal.IntervalsOverlap(a1, a2, b1, b2)
//
// ELI12:
//
// A half-open interval is like a hotel stay: check-in day counts (you sleep
// there that night), check-out day doesn't (you're gone by then). If two
// guests' stays overlap, they were in the hotel at the same time for at least
// one night. "No check-out date" means the guest is still living there.
package temporal

import "time"

// Forever is the sentinel used internally for an open-ended interval.
// Exposed so tests and adapters can compare against the same ceiling.
var Forever = time.Unix(1<<62, 0).UTC()

func endOrForever(end *time.Time) time.Time {
	if end == nil {
		return Forever
	}
	return *end
}

// IntervalsOverlap reports whether [start1, end1) and [start2, end2)
// intersect. A nil end is treated as +infinity.
func IntervalsOverlap(start1 time.Time, end1 *time.Time, start2 time.Time, end2 *time.Time) bool {
	e1 := endOrForever(end1)
	e2 := endOrForever(end2)
	return start1.Before(e2) && start2.Before(e1)
}

// PointInInterval reports whether point lies in [start, end):
// start <= point && point < end, with nil end meaning +infinity.
func PointInInterval(point, start time.Time, end *time.Time) bool {
	if point.Before(start) {
		return false
	}
	return point.Before(endOrForever(end))
}

// Relation is one of Allen's thirteen qualitative relations between two
// intervals. The names read as "interval 1 <relation> interval 2".
type Relation int

const (
	Before Relation = iota
	Meets
	Overlaps
	FinishedBy
	Contains
	Starts
	Equals
	StartedBy
	During
	Finishes
	OverlappedBy
	MetBy
	After
)

var relationNames = map[Relation]string{
	Before:       "before",
	Meets:        "meets",
	Overlaps:     "overlaps",
	FinishedBy:   "finished-by",
	Contains:     "contains",
	Starts:       "starts",
	Equals:       "equals",
	StartedBy:    "started-by",
	During:       "during",
	Finishes:     "finishes",
	OverlappedBy: "overlapped-by",
	MetBy:        "met-by",
	After:        "after",
}

func (r Relation) String() string {
	if name, ok := relationNames[r]; ok {
		return name
	}
	return "unknown"
}

// Determine classifies the relation of [start1, end1) against [start2, end2).
// Nil ends are treated as +infinity, so two open-ended intervals that start
// together compare as Equals.
func Determine(start1 time.Time, end1 *time.Time, start2 time.Time, end2 *time.Time) Relation {
	e1 := endOrForever(end1)
	e2 := endOrForever(end2)

	switch {
	case e1.Before(start2):
		return Before
	case e1.Equal(start2):
		return Meets
	case start1.Before(start2) && e1.Before(e2) && e1.After(start2):
		return Overlaps
	case start1.Before(start2) && e1.Equal(e2):
		return FinishedBy
	case start1.Before(start2) && e1.After(e2):
		return Contains
	case start1.Equal(start2) && e1.Before(e2):
		return Starts
	case start1.Equal(start2) && e1.Equal(e2):
		return Equals
	case start1.Equal(start2) && e1.After(e2):
		return StartedBy
	case start1.After(start2) && e1.Before(e2):
		return During
	case start1.After(start2) && e1.Equal(e2):
		return Finishes
	case start1.Before(e2) && start1.After(start2) && e1.After(e2):
		return OverlappedBy
	case start1.Equal(e2):
		return MetBy
	default:
		return After
	}
}
