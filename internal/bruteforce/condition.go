package bruteforce

import "fmt"

// MaxConditions is the capacity of the condition table.
const MaxConditions = 16

// Condition is one clause of the success test. For numeric clauses Value is
// already in the attribute's native representation. For misc clauses Value
// is the line index and Baseline the line's activation count captured when
// the clause was registered.
type Condition struct {
	Attribute Attribute
	Misc      Misc
	Operator  Operator
	Value     int64
	Baseline  int64
}

// Reached evaluates the clause against the live subject.
func (c Condition) Reached(s Subject) bool {
	if c.Operator == OpMisc {
		return c.miscReached(s)
	}
	return c.Operator.compare(c.Attribute.Value(s), c.Value)
}

func (c Condition) miscReached(s Subject) bool {
	n, ok := s.LineActivations(int(c.Value))
	if !ok {
		return false
	}

	switch c.Misc {
	case MiscLineSkip:
		return int64(n) == c.Baseline
	case MiscLineActivation:
		return int64(n) > c.Baseline
	default:
		return false
	}
}

func (c Condition) String() string {
	if c.Operator == OpMisc {
		return fmt.Sprintf("%s %d", c.Misc, c.Value)
	}
	return fmt.Sprintf("%s %s %s", c.Attribute, c.Operator, c.Attribute.Format(c.Value))
}

// Conditions is a bounded conjunction of clauses.
type Conditions struct {
	items [MaxConditions]Condition
	n     int
}

// Add registers a numeric clause. value is in whole units; fixed-point
// attributes are scaled here.
func (cs *Conditions) Add(attr Attribute, op Operator, value int) (Condition, error) {
	if cs.n == MaxConditions {
		return Condition{}, ErrTooManyConditions
	}
	if !attr.Valid() {
		return Condition{}, ErrUnknownAttribute
	}
	if op < OpLess || op >= OpMisc {
		return Condition{}, ErrUnknownOperator
	}

	c := Condition{
		Attribute: attr,
		Operator:  op,
		Value:     attr.Scale(value),
	}
	cs.items[cs.n] = c
	cs.n++
	return c, nil
}

// AddMisc registers a line predicate, capturing the line's current
// activation count from the subject as the baseline.
func (cs *Conditions) AddMisc(s Subject, kind Misc, line int) (Condition, error) {
	if cs.n == MaxConditions {
		return Condition{}, ErrTooManyConditions
	}
	if kind < 0 || kind >= miscCount {
		return Condition{}, ErrUnknownMisc
	}

	baseline, ok := s.LineActivations(line)
	if !ok {
		return Condition{}, fmt.Errorf("%w: %d", ErrUnknownLine, line)
	}

	c := Condition{
		Misc:     kind,
		Operator: OpMisc,
		Value:    int64(line),
		Baseline: int64(baseline),
	}
	cs.items[cs.n] = c
	cs.n++
	return c, nil
}

// Len returns the number of registered clauses.
func (cs *Conditions) Len() int {
	return cs.n
}

// All returns a copy of the registered clauses in insertion order.
func (cs *Conditions) All() []Condition {
	out := make([]Condition, cs.n)
	copy(out, cs.items[:cs.n])
	return out
}

// Reset drops every clause.
func (cs *Conditions) Reset() {
	cs.n = 0
}

// Evaluate reports whether every clause holds. An empty table holds.
func (cs *Conditions) Evaluate(s Subject) bool {
	for i := 0; i < cs.n; i++ {
		if !cs.items[i].Reached(s) {
			return false
		}
	}
	return true
}
