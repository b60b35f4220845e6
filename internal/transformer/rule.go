package transformer

import (
	"fmt"
	"strings"
)

// Wildcard is the trigger that matches any non-blank value without an exact rule.
const Wildcard = "*"

const (
	prependMarker = "<<"
	appendMarker  = ">>"
)

// Kind is how a directive changes the matched value.
type Kind int

const (
	Replace Kind = iota
	Prepend
	Append
)

func (k Kind) String() string {
	switch k {
	case Prepend:
		return "prepend"
	case Append:
		return "append"
	default:
		return "replace"
	}
}

// Rule is one trigger/directive pair of a column's rule set.
type Rule struct {
	Column    string // normalized column name
	Trigger   string // as configured
	Directive string // as configured
	Kind      Kind
	Literal   string
}

// IsWildcard reports whether the rule is the column's fallback.
func (r *Rule) IsWildcard() bool { return r.Trigger == Wildcard }

// Label renders the rule the way it was configured.
func (r *Rule) Label() string { return r.Trigger + " -> " + r.Directive }

func (r *Rule) apply(raw string) string {
	switch r.Kind {
	case Prepend:
		return r.Literal + raw
	case Append:
		return raw + r.Literal
	default:
		return r.Literal
	}
}

// parseDirective splits directive text into its kind and literal.
func parseDirective(d string) (Kind, string) {
	if lit, ok := strings.CutPrefix(d, prependMarker); ok {
		return Prepend, lit
	}
	if lit, ok := strings.CutPrefix(d, appendMarker); ok {
		return Append, lit
	}
	return Replace, d
}

// InvalidTransformError reports a transform configuration the engine cannot use.
type InvalidTransformError struct {
	Column  string
	Trigger string
	Reason  string
}

func (e *InvalidTransformError) Error() string {
	if e.Trigger != "" {
		return fmt.Sprintf("transform %s[%q]: %s", e.Column, e.Trigger, e.Reason)
	}
	return fmt.Sprintf("transform %s: %s", e.Column, e.Reason)
}

// Warning is a tolerated configuration oddity.
type Warning struct {
	Column  string
	Message string
}

func (w Warning) String() string { return w.Column + ": " + w.Message }
