// Package plan describes a search as data so it can be read from a YAML file
// or a JSON request body and applied to a driver.
package plan

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/distrubuted-game-mechanic/bruteforce/internal/bruteforce"
	"github.com/distrubuted-game-mechanic/bruteforce/internal/engine"
)

var (
	ErrNoFrames      = errors.New("plan: no frames")
	ErrMissingFrames = errors.New("plan: fewer frames than depth")
	ErrBadSpan       = errors.New("plan: malformed range")
	ErrBadCondition  = errors.New("plan: malformed condition")
)

// Plan is a complete search description.
type Plan struct {
	// Depth is the number of tics searched. Zero means one per frame.
	Depth      int            `json:"depth,omitempty" yaml:"depth"`
	Frames     []Frame        `json:"frames" yaml:"frames"`
	Conditions []Condition    `json:"conditions,omitempty" yaml:"conditions"`
	Target     *Target        `json:"target,omitempty" yaml:"target"`
	Filter     bool           `json:"filter_by_conditions,omitempty" yaml:"filter_by_conditions"`
	World      *engine.Config `json:"world,omitempty" yaml:"world"`
}

// Frame is the axis ranges for one or more consecutive depths.
type Frame struct {
	Repeat  int  `json:"repeat,omitempty" yaml:"repeat"`
	Forward Span `json:"forward" yaml:"forward"`
	Strafe  Span `json:"strafe" yaml:"strafe"`
	Turn    Span `json:"turn" yaml:"turn"`
}

// Condition is either a comparison ("rng == 5") or a line predicate
// ("line skip 3"). Expr, when set, takes precedence over the fields.
type Condition struct {
	Expr      string `json:"expr,omitempty" yaml:"expr"`
	Attribute string `json:"attribute,omitempty" yaml:"attribute"`
	Operator  string `json:"operator,omitempty" yaml:"operator"`
	Value     int    `json:"value,omitempty" yaml:"value"`
	Misc      string `json:"misc,omitempty" yaml:"misc"`
	Line      int    `json:"line,omitempty" yaml:"line"`
}

// Target is the optional numeric objective.
type Target struct {
	Attribute string `json:"attribute" yaml:"attribute"`
	Limit     string `json:"limit" yaml:"limit"`
	Value     int    `json:"value" yaml:"value"`
}

// Span is an inclusive axis range. It reads from "a:b", a single number, or
// a two-element list.
type Span struct {
	Min int
	Max int
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d", s.Min, s.Max)
}

// ParseSpan parses "a:b" or "a".
func ParseSpan(text string) (Span, error) {
	text = strings.TrimSpace(text)
	lo, hi, found := strings.Cut(text, ":")
	from, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return Span{}, fmt.Errorf("%w: %q", ErrBadSpan, text)
	}
	if !found {
		return Span{Min: from, Max: from}, nil
	}
	to, err := strconv.Atoi(strings.TrimSpace(hi))
	if err != nil {
		return Span{}, fmt.Errorf("%w: %q", ErrBadSpan, text)
	}
	return Span{Min: from, Max: to}, nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Span) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		span, err := ParseSpan(n.Value)
		if err != nil {
			return err
		}
		*s = span
		return nil
	case yaml.SequenceNode:
		var pair []int
		if err := n.Decode(&pair); err != nil {
			return err
		}
		return s.fromPair(pair)
	default:
		return fmt.Errorf("%w at line %d", ErrBadSpan, n.Line)
	}
}

// MarshalYAML implements yaml.Marshaler.
func (s Span) MarshalYAML() (any, error) {
	return s.String(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Span) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		span, err := ParseSpan(text)
		if err != nil {
			return err
		}
		*s = span
		return nil
	}

	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*s = Span{Min: n, Max: n}
		return nil
	}

	var pair []int
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("%w: %s", ErrBadSpan, data)
	}
	return s.fromPair(pair)
}

// MarshalJSON implements json.Marshaler.
func (s Span) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Span) fromPair(pair []int) error {
	if len(pair) != 2 {
		return fmt.Errorf("%w: want 2 values, got %d", ErrBadSpan, len(pair))
	}
	*s = Span{Min: pair[0], Max: pair[1]}
	return nil
}

// ParseCondition parses "rng == 5", "spd > 30" or "line skip 3" /
// "line activation 3".
func ParseCondition(expr string) (Condition, error) {
	fields := strings.Fields(expr)

	if len(fields) == 3 && strings.EqualFold(fields[0], "line") {
		line, err := strconv.Atoi(fields[2])
		if err != nil {
			return Condition{}, fmt.Errorf("%w: %q", ErrBadCondition, expr)
		}
		return Condition{Misc: fields[0] + " " + fields[1], Line: line}, nil
	}

	if len(fields) != 3 {
		return Condition{}, fmt.Errorf("%w: %q", ErrBadCondition, expr)
	}
	value, err := strconv.Atoi(fields[2])
	if err != nil {
		return Condition{}, fmt.Errorf("%w: %q", ErrBadCondition, expr)
	}
	return Condition{Attribute: fields[0], Operator: fields[1], Value: value}, nil
}

// Load reads a plan from a .yaml, .yml or .json file.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}

	var p Plan
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &p)
	default:
		err = yaml.Unmarshal(data, &p)
	}
	if err != nil {
		return nil, fmt.Errorf("decode plan %s: %w", path, err)
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Expanded returns the per-depth frames after applying Repeat.
func (p *Plan) Expanded() []Frame {
	var out []Frame
	for _, f := range p.Frames {
		n := repeats(f)
		f.Repeat = 0
		for i := 0; i < n; i++ {
			out = append(out, f)
		}
	}
	return out
}

// frameCount is len(Expanded()), saturating just past MaxDepth.
func (p *Plan) frameCount() int {
	n := 0
	for _, f := range p.Frames {
		n += repeats(f)
		if n > bruteforce.MaxDepth {
			return bruteforce.MaxDepth + 1
		}
	}
	return n
}

func repeats(f Frame) int {
	if f.Repeat <= 0 {
		return 1
	}
	return f.Repeat
}

// SearchDepth is the depth the plan searches.
func (p *Plan) SearchDepth() int {
	if p.Depth > 0 {
		return p.Depth
	}
	return p.frameCount()
}

// Validate checks what can be checked without a driver. Range and name
// errors surface from Apply.
func (p *Plan) Validate() error {
	if len(p.Frames) == 0 {
		return ErrNoFrames
	}
	depth := p.SearchDepth()
	if depth <= 0 || depth > bruteforce.MaxDepth {
		return fmt.Errorf("%w: %d", bruteforce.ErrInvalidDepth, depth)
	}
	n := p.frameCount()
	if n > bruteforce.MaxDepth {
		return fmt.Errorf("%w: more than %d frames", bruteforce.ErrInvalidDepth, bruteforce.MaxDepth)
	}
	if n < depth {
		return fmt.Errorf("%w: depth %d, frames %d", ErrMissingFrames, depth, n)
	}
	if len(p.Conditions) > bruteforce.MaxConditions {
		return bruteforce.ErrTooManyConditions
	}
	if p.World != nil {
		if err := p.World.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Apply replaces the driver's frames, conditions and target with the
// plan's. It does not start the search. On error the driver keeps its
// previous configuration.
func (p *Plan) Apply(d *bruteforce.Driver) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return d.Reconfigure(func() error {
		return p.apply(d)
	})
}

func (p *Plan) apply(d *bruteforce.Driver) error {
	if err := d.ResetConditions(); err != nil {
		return err
	}

	for i, f := range p.Expanded() {
		if err := d.AddFrame(i, f.Forward.Min, f.Forward.Max, f.Strafe.Min, f.Strafe.Max, f.Turn.Min, f.Turn.Max); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
	}

	for i, c := range p.Conditions {
		if err := applyCondition(d, c); err != nil {
			return fmt.Errorf("condition %d: %w", i, err)
		}
	}

	if p.Target != nil {
		attr, err := bruteforce.ParseAttribute(p.Target.Attribute)
		if err != nil {
			return fmt.Errorf("target: %w", err)
		}
		limit, err := bruteforce.ParseLimit(p.Target.Limit)
		if err != nil {
			return fmt.Errorf("target: %w", err)
		}
		if err := d.SetTarget(attr, limit, p.Target.Value); err != nil {
			return fmt.Errorf("target: %w", err)
		}
	}

	return d.SetFilterByConditions(p.Filter)
}

func applyCondition(d *bruteforce.Driver, c Condition) error {
	if c.Expr != "" {
		parsed, err := ParseCondition(c.Expr)
		if err != nil {
			return err
		}
		c = parsed
	}

	if c.Misc != "" {
		kind, err := bruteforce.ParseMisc(c.Misc)
		if err != nil {
			return err
		}
		return d.AddMiscCondition(kind, c.Line)
	}

	attr, err := bruteforce.ParseAttribute(c.Attribute)
	if err != nil {
		return err
	}
	op, err := bruteforce.ParseOperator(c.Operator)
	if err != nil {
		return err
	}
	return d.AddCondition(attr, op, c.Value)
}
