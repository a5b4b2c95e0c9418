// Package annotation flattens a parsed markup tree into a token sequence
// and records, for every element, the span of tokens it covers.
//
// Walking "go to <ne entity="Paris">NYC</ne>" yields the tokens
// [go to NYC] and one annotation {Tag: ne, Start: 2, Length: 1,
// Entity: Paris}. Spans of nested elements are contained in the spans of
// their ancestors.
package annotation

import (
	"math"
	"strconv"
	"strings"

	"github.com/FocuswithJustin/xmlinput/core/errors"
	"github.com/FocuswithJustin/xmlinput/core/markup"
)

// Attribute names read from annotated elements.
const (
	AttrTranslation = "translation"
	AttrEntity      = "entity"
	AttrProb        = "prob"
)

// UnspecifiedProb is the Prob of an annotation without a prob attribute.
const UnspecifiedProb = -1.0

// NoParent is the Parent of a top-level annotation.
const NoParent = -1

// Annotation describes one markup element and the tokens it covers.
type Annotation struct {
	// Tag is the element name; it selects the constraint kind.
	Tag string `json:"tag"`

	// Start is the index of the first token contributed by the element's subtree.
	Start int `json:"start"`

	// Length is the number of tokens contributed by the subtree. It is
	// only valid once the walk has left the element.
	Length int `json:"length"`

	Translation    string `json:"translation,omitempty"`
	HasTranslation bool   `json:"-"`

	Entity    string `json:"entity,omitempty"`
	HasEntity bool   `json:"-"`

	// Prob is the prob attribute, or UnspecifiedProb.
	Prob float64 `json:"prob"`

	// Depth is 1 for top-level elements.
	Depth int `json:"depth"`

	// Parent is the index of the enclosing annotation, or NoParent.
	Parent int `json:"parent"`
}

// End returns the index one past the last covered token.
func (a Annotation) End() int {
	return a.Start + a.Length
}

// HasProb reports whether a prob attribute was given.
func (a Annotation) HasProb() bool {
	return a.Prob >= 0
}

// Contains reports whether b's span lies within a's span.
func (a Annotation) Contains(b Annotation) bool {
	return b.Start >= a.Start && b.End() <= a.End()
}

func newAnnotation(n *markup.Node, start, depth, parent int) (Annotation, error) {
	a := Annotation{
		Tag:    n.Name(),
		Start:  start,
		Prob:   UnspecifiedProb,
		Depth:  depth,
		Parent: parent,
	}

	if v, ok := n.Attr(AttrTranslation); ok {
		a.Translation = v
		a.HasTranslation = true
	}
	if v, ok := n.Attr(AttrEntity); ok {
		a.Entity = v
		a.HasEntity = true
	}
	if v, ok := n.Attr(AttrProb); ok {
		p, err := parseProb(v)
		if err != nil {
			return Annotation{}, err
		}
		a.Prob = p
	}
	return a, nil
}

func parseProb(v string) (float64, error) {
	p, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, &errors.ParseError{Format: "prob", Input: v, Message: "not a number", Err: err}
	}
	if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
		return 0, errors.NewParse("prob", v, "must be a finite non-negative number")
	}
	return p, nil
}
