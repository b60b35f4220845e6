// Package transformer maps raw Previous-side values to the values used for
// comparison, following per-column trigger/directive rule sets.
//
// Directive text starting with "<<" prepends the rest as a literal, ">>"
// appends it, and anything else replaces the value. The trigger "*" matches
// any non-blank value that has no exact trigger. Transforms never touch blank
// values and never change what is reported, only what is compared.
package transformer

import (
	"sort"
	"strings"

	"csvreporter/internal/collate"
	"csvreporter/internal/headers"
)

type ruleSet struct {
	exact    map[string]*Rule // comparer key -> rule
	wildcard *Rule
	ordered  []*Rule // exact by key, wildcard last
}

// Engine applies rule sets. It is immutable once built; callers count rule
// applications themselves from the *Rule that Apply returns.
type Engine struct {
	cmp  *collate.Comparer
	sets map[string]*ruleSet
}

// NewEngine validates rules (column -> trigger -> directive) and builds an
// Engine keyed by normalized column and comparer trigger key. A nil or empty
// rules map yields an Engine that returns every value unchanged.
func NewEngine(rules map[string]map[string]string, cmp *collate.Comparer) (*Engine, []Warning, error) {
	e := &Engine{cmp: cmp, sets: make(map[string]*ruleSet, len(rules))}
	var warns []Warning

	for _, column := range sortedKeys(rules) {
		if strings.TrimSpace(column) == "" {
			return nil, nil, &InvalidTransformError{Column: column, Reason: "column name is blank"}
		}
		col := collate.Normalize(column)
		if _, dup := e.sets[col]; dup {
			return nil, nil, &InvalidTransformError{Column: column, Reason: "column configured more than once"}
		}

		set := &ruleSet{exact: map[string]*Rule{}}
		triggers := rules[column]
		kinds := map[Kind]bool{}
		for _, trigger := range sortedKeys(triggers) {
			directive := triggers[trigger]
			if strings.TrimSpace(trigger) == "" {
				return nil, nil, &InvalidTransformError{Column: column, Trigger: trigger, Reason: "trigger is blank"}
			}
			kind, literal := parseDirective(directive)
			if strings.TrimSpace(literal) == "" {
				return nil, nil, &InvalidTransformError{Column: column, Trigger: trigger, Reason: "directive value is blank"}
			}
			r := &Rule{Column: col, Trigger: trigger, Directive: directive, Kind: kind, Literal: literal}
			kinds[kind] = true

			if r.IsWildcard() {
				set.wildcard = r
				continue
			}
			k := cmp.Key(trigger)
			if prior, clash := set.exact[k]; clash {
				return nil, nil, &InvalidTransformError{Column: column, Trigger: trigger,
					Reason: "collides with trigger " + prior.Trigger + " under " + cmp.Mode() + " comparison"}
			}
			set.exact[k] = r
		}
		if len(set.exact) == 0 && set.wildcard == nil {
			continue
		}
		if kinds[Replace] && (kinds[Prepend] || kinds[Append]) {
			warns = append(warns, Warning{Column: col, Message: "rule set mixes replace with prepend/append directives"})
		}

		keys := make([]string, 0, len(set.exact))
		for k := range set.exact {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			set.ordered = append(set.ordered, set.exact[k])
		}
		if set.wildcard != nil {
			set.ordered = append(set.ordered, set.wildcard)
		}
		e.sets[col] = set
	}
	return e, warns, nil
}

// Bind checks the rule sets against the reconciled headers and returns an
// Engine restricted to the compared columns. Rules on an unknown column or on
// the anchor are errors; rules on an ignored column are dropped with a warning.
func (e *Engine) Bind(l *headers.Layout) (*Engine, []Warning, error) {
	out := &Engine{cmp: e.cmp, sets: make(map[string]*ruleSet, len(e.sets))}
	var warns []Warning
	for _, col := range e.Columns() {
		switch {
		case col == l.Anchor:
			return nil, nil, &InvalidTransformError{Column: col, Reason: "anchor column cannot be transformed"}
		case !l.Has(col):
			return nil, nil, &InvalidTransformError{Column: col, Reason: "column does not exist"}
		case l.IsIgnored(col):
			warns = append(warns, Warning{Column: col, Message: "column is ignored; transforms dropped"})
			continue
		}
		out.sets[col] = e.sets[col]
	}
	return out, warns, nil
}

// Apply returns the comparison value for raw in the normalized column and the
// rule that produced it, or raw and nil when no rule fired.
func (e *Engine) Apply(column, raw string) (string, *Rule) {
	set, ok := e.sets[column]
	if !ok || strings.TrimSpace(raw) == "" {
		return raw, nil
	}
	if r, ok := set.exact[e.cmp.Key(raw)]; ok {
		return r.apply(raw), r
	}
	if set.wildcard != nil {
		return set.wildcard.apply(raw), set.wildcard
	}
	return raw, nil
}

// Rules returns the column's rules, exact triggers in comparer order and the
// wildcard last.
func (e *Engine) Rules(column string) []*Rule {
	if set, ok := e.sets[column]; ok {
		return set.ordered
	}
	return nil
}

// Columns returns the normalized columns that have rules, sorted.
func (e *Engine) Columns() []string {
	cols := make([]string, 0, len(e.sets))
	for c := range e.sets {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// Empty reports whether no rules are configured.
func (e *Engine) Empty() bool { return len(e.sets) == 0 }

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
