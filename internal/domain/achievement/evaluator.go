package achievement

import (
	"fmt"
	"sync"
	"time"

	"github.com/coursehub/course-tracker/internal/domain/shared"
	"github.com/coursehub/course-tracker/internal/domain/tracker"
)

// Progress is the evaluated state of one definition for one user.
type Progress struct {
	Definition Definition `json:"definition"`
	Progress   int        `json:"progress"`
	Achieved   bool       `json:"achieved"`
}

// Evaluator turns snapshots into catalog-ordered progress.
// It is safe for concurrent use.
type Evaluator struct {
	defs       []Definition
	rules      map[ID]Rule
	loc        *time.Location
	strict     bool
	onUnmapped func(Definition)

	warned sync.Map // ID -> struct{}
}

// EvaluatorOption configures an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithLocation sets the location used for every date-based metric.
func WithLocation(loc *time.Location) EvaluatorOption {
	return func(e *Evaluator) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// WithStrict makes an unmapped definition an error instead of zero progress.
func WithStrict(strict bool) EvaluatorOption {
	return func(e *Evaluator) {
		e.strict = strict
	}
}

// WithUnmappedHandler is called once per unmapped id in non-strict mode.
func WithUnmappedHandler(fn func(Definition)) EvaluatorOption {
	return func(e *Evaluator) {
		e.onUnmapped = fn
	}
}

// WithCatalog replaces the catalog and rule table.
func WithCatalog(defs []Definition, rules map[ID]Rule) EvaluatorOption {
	return func(e *Evaluator) {
		e.defs = defs
		e.rules = rules
	}
}

// NewEvaluator creates an evaluator over the built-in catalog.
func NewEvaluator(opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{
		defs:  catalog,
		rules: defaultRules,
		loc:   time.UTC,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Definitions returns the evaluator's catalog in order.
func (e *Evaluator) Definitions() []Definition {
	out := make([]Definition, len(e.defs))
	copy(out, e.defs)
	return out
}

// Location returns the location used for date predicates.
func (e *Evaluator) Location() *time.Location {
	return e.loc
}

// Validate reports catalog problems, including unmapped ids.
func (e *Evaluator) Validate() error {
	return ValidateCatalog(e.defs, e.rules)
}

// Evaluate extracts metrics from snap and evaluates every definition.
func (e *Evaluator) Evaluate(snap tracker.Snapshot) ([]Progress, Metrics, error) {
	m := Extract(snap, e.loc)
	results, err := e.EvaluateMetrics(m)
	return results, m, err
}

// EvaluateMetrics evaluates every definition against precomputed metrics.
// One result is returned per definition, in catalog order.
func (e *Evaluator) EvaluateMetrics(m Metrics) ([]Progress, error) {
	results := make([]Progress, 0, len(e.defs))

	for _, def := range e.defs {
		rule, ok := e.rules[def.ID]
		if !ok {
			if e.strict {
				return nil, fmt.Errorf("achievement %s: %w", def.ID, shared.ErrUnmappedAchievement)
			}
			e.warnUnmapped(def)
			results = append(results, Progress{Definition: def})
			continue
		}

		results = append(results, clamp(def, rule(m)))
	}

	return results, nil
}

func (e *Evaluator) warnUnmapped(def Definition) {
	if _, loaded := e.warned.LoadOrStore(def.ID, struct{}{}); loaded {
		return
	}
	if e.onUnmapped != nil {
		e.onUnmapped(def)
	}
}

// clamp bounds raw progress to [0, threshold].
func clamp(def Definition, raw int) Progress {
	threshold := def.Threshold()
	p := raw
	if p < 0 {
		p = 0
	}
	if p > threshold {
		p = threshold
	}
	return Progress{
		Definition: def,
		Progress:   p,
		Achieved:   p >= threshold,
	}
}

// NewlyAchieved returns the definitions that are achieved but not yet in
// earned, preserving the order of results.
func NewlyAchieved(results []Progress, earned EarnedSet) []Definition {
	var out []Definition
	for _, r := range results {
		if r.Achieved && !earned.Has(r.Definition.ID) {
			out = append(out, r.Definition)
		}
	}
	return out
}
