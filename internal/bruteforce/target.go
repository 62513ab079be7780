package bruteforce

import (
	"fmt"

	"github.com/distrubuted-game-mechanic/bruteforce/internal/ticcmd"
)

// Target is the optional numeric objective scored at every leaf that does
// not already succeed.
type Target struct {
	Attribute Attribute
	Limit     Limit
	Value     int64
	Enabled   bool

	Evaluated    bool
	BestValue    int64
	BestDepth    int
	BestSequence []ticcmd.Command
}

// Set enables the target. value is in whole units and scaled like a
// condition threshold. The best value starts at the subject's live reading
// but is not considered evaluated until the first leaf is scored.
func (t *Target) Set(s Subject, attr Attribute, limit Limit, value int) error {
	if !attr.Valid() {
		return ErrUnknownAttribute
	}
	if limit < 0 || limit >= limitCount {
		return ErrUnknownLimit
	}

	*t = Target{
		Attribute: attr,
		Limit:     limit,
		Value:     attr.Scale(value),
		Enabled:   true,
		BestValue: attr.Value(s),
	}
	return nil
}

// Better reports whether v would replace the current best.
func (t *Target) Better(v int64) bool {
	if !t.Evaluated {
		return true
	}

	switch t.Limit {
	case LimitApproach:
		return abs64(v-t.Value) < abs64(t.BestValue-t.Value)
	case LimitMax:
		return v > t.BestValue
	case LimitMin:
		return v < t.BestValue
	default:
		return false
	}
}

// Score offers the subject's live value for the sequence that produced it
// and reports whether it became the new best.
func (t *Target) Score(s Subject, seq []ticcmd.Command) bool {
	v := t.Attribute.Value(s)
	if !t.Better(v) {
		return false
	}
	t.Record(v, seq)
	return true
}

// Record stores v as the new best together with the sequence that produced
// it. seq is copied.
func (t *Target) Record(v int64, seq []ticcmd.Command) {
	t.Evaluated = true
	t.BestValue = v
	t.BestDepth = len(seq)
	t.BestSequence = append([]ticcmd.Command(nil), seq...)
}

// Reset disables the target.
func (t *Target) Reset() {
	*t = Target{}
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func (t Target) String() string {
	if !t.Enabled {
		return "none"
	}
	return fmt.Sprintf("%s %s %s", t.Attribute, t.Limit, t.Attribute.Format(t.Value))
}

// rearm forgets the previous session's best and reseeds from the subject.
func (t *Target) rearm(s Subject) {
	if !t.Enabled {
		return
	}
	t.Evaluated = false
	t.BestValue = t.Attribute.Value(s)
	t.BestDepth = 0
	t.BestSequence = nil
}
