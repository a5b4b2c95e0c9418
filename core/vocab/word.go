package vocab

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/FocuswithJustin/xmlinput/core/errors"
)

// FactorDelimiter separates factors inside a factored token ("cat|NN|cat").
const FactorDelimiter = "|"

// Word is a token's multi-factor representation, indexed by factor slot.
// Unused slots are nil.
type Word []*Factor

// factoredGrammar is the participle grammar for factored tokens.
// Examples: "cat", "cat|NN", "cats|NNS|cat"
//
//nolint:govet // participle grammar tags are not standard struct tags
type factoredGrammar struct {
	Head string   `parser:"@Factor"`
	Tail []string `parser:"( \"|\" @Factor )*"`
}

// factorLexer defines the lexer for factored tokens.
var factorLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Factor", Pattern: `[^|]+`},
	{Name: "Delim", Pattern: `\|`},
})

// factorParser is the participle parser for factored tokens.
var factorParser = participle.MustBuild[factoredGrammar](
	participle.Lexer(factorLexer),
)

// ParseFactors splits a factored token into its factor strings. Empty
// factors ("a||b", "a|", "|a") are rejected.
func ParseFactors(token string) ([]string, error) {
	if token == "" {
		return nil, errors.NewParse("token", token, "empty token")
	}

	parsed, err := factorParser.ParseString("", token)
	if err != nil {
		return nil, &errors.ParseError{Format: "token", Input: token, Message: err.Error(), Err: err}
	}

	factors := make([]string, 0, 1+len(parsed.Tail))
	factors = append(factors, parsed.Head)
	factors = append(factors, parsed.Tail...)
	return factors, nil
}

// NewWord builds a word from an input token. order lists the factor slot
// filled by each input factor; with a single input factor the token is used
// verbatim, otherwise it is parsed as a factored token and must carry
// exactly len(order) factors.
func NewWord(c *Collection, token string, order []int, maxFactors int) (Word, error) {
	if len(order) == 0 {
		order = []int{0}
	}

	w := make(Word, maxFactors)
	if len(order) == 1 {
		if order[0] < 0 || order[0] >= maxFactors {
			return nil, slotError(order[0], maxFactors)
		}
		w[order[0]] = c.Add(token)
		return w, nil
	}

	factors, err := ParseFactors(token)
	if err != nil {
		return nil, err
	}
	if len(factors) != len(order) {
		return nil, errors.NewParse("token", token,
			fmt.Sprintf("has %d factors, want %d", len(factors), len(order)))
	}
	for i, slot := range order {
		if slot < 0 || slot >= maxFactors {
			return nil, slotError(slot, maxFactors)
		}
		w[slot] = c.Add(factors[i])
	}
	return w, nil
}

func slotError(slot, maxFactors int) error {
	return errors.NewValidation("input_factors",
		fmt.Sprintf("factor slot %d out of range [0,%d)", slot, maxFactors))
}

// Factor returns the factor in slot, or nil if the slot is empty or out of range.
func (w Word) Factor(slot int) *Factor {
	if slot < 0 || slot >= len(w) {
		return nil
	}
	return w[slot]
}

// Surface returns the text of slot 0.
func (w Word) Surface() string {
	if f := w.Factor(0); f != nil {
		return f.String()
	}
	return ""
}

// Strings returns the text of every slot; empty slots yield "".
func (w Word) Strings() []string {
	out := make([]string, len(w))
	for i, f := range w {
		if f != nil {
			out[i] = f.String()
		}
	}
	return out
}

// String renders the non-empty factors joined by FactorDelimiter.
func (w Word) String() string {
	parts := make([]string, 0, len(w))
	for _, f := range w {
		if f != nil {
			parts = append(parts, f.String())
		}
	}
	return strings.Join(parts, FactorDelimiter)
}
