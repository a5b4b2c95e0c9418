// Package sentence assembles a source sentence from raw input: tokens,
// factored words, the reordering constraint and any forced translations
// requested through inline markup.
package sentence

import (
	"github.com/FocuswithJustin/xmlinput/core/annotation"
	"github.com/FocuswithJustin/xmlinput/core/config"
	"github.com/FocuswithJustin/xmlinput/core/errors"
	"github.com/FocuswithJustin/xmlinput/core/markup"
	"github.com/FocuswithJustin/xmlinput/core/reorder"
	"github.com/FocuswithJustin/xmlinput/core/tokenize"
	"github.com/FocuswithJustin/xmlinput/core/vocab"
)

// Path names the ingestion path a sentence took.
type Path string

const (
	PathPlain  Path = "plain"
	PathMarkup Path = "markup"
)

// ForcedTranslation asks the search to translate a span with a fixed
// target string. HasTranslation is false when the element carried no
// translation attribute, which differs from an empty one.
type ForcedTranslation struct {
	Start          int     `json:"start"`
	Length         int     `json:"length"`
	Translation    string  `json:"translation"`
	HasTranslation bool    `json:"has_translation"`
	Prob           float64 `json:"prob"`
}

// End returns the index one past the last covered token.
func (f ForcedTranslation) End() int {
	return f.Start + f.Length
}

// Sentence is an ingested source sentence. It is immutable once returned by
// Build and may be shared between goroutines.
type Sentence struct {
	path        Path
	tokens      []string
	words       []vocab.Word
	constraint  *reorder.Constraint
	forced      []ForcedTranslation
	annotations []annotation.Annotation
}

// Len returns the number of tokens.
func (s *Sentence) Len() int {
	return len(s.tokens)
}

// Path reports whether the sentence was read as plain text or markup.
func (s *Sentence) Path() Path {
	return s.path
}

// Word returns the word at position i.
func (s *Sentence) Word(i int) vocab.Word {
	return s.words[i]
}

// Factor returns the factor in slot of the word at position i, or nil.
func (s *Sentence) Factor(i, slot int) *vocab.Factor {
	if i < 0 || i >= len(s.words) {
		return nil
	}
	return s.words[i].Factor(slot)
}

// Tokens returns a copy of the token sequence.
func (s *Sentence) Tokens() []string {
	out := make([]string, len(s.tokens))
	copy(out, s.tokens)
	return out
}

// Constraint returns the finalized reordering constraint.
func (s *Sentence) Constraint() *reorder.Constraint {
	return s.constraint
}

// ForcedTranslations returns the forced translations in document order.
func (s *Sentence) ForcedTranslations() []ForcedTranslation {
	out := make([]ForcedTranslation, len(s.forced))
	copy(out, s.forced)
	return out
}

// Annotations returns the markup annotations the sentence was built from.
// Plain sentences have none.
func (s *Sentence) Annotations() []annotation.Annotation {
	out := make([]annotation.Annotation, len(s.annotations))
	copy(out, s.annotations)
	return out
}

// Builder turns raw strings into sentences. A Builder is safe for
// concurrent use as long as its config is not modified.
type Builder struct {
	vocab *vocab.Collection
	cfg   *config.Config
}

// NewBuilder creates a builder interning into v. A nil cfg uses config.Default().
func NewBuilder(v *vocab.Collection, cfg *config.Config) *Builder {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Builder{vocab: v, cfg: cfg}
}

// Config returns the builder's configuration.
func (b *Builder) Config() *config.Config {
	return b.cfg
}

// Vocab returns the collection words are interned into.
func (b *Builder) Vocab() *vocab.Collection {
	return b.vocab
}

// Build ingests one raw sentence. With markup enabled the input is parsed
// as an annotated fragment; otherwise it is tokenized as plain text.
// On error no sentence is returned.
func (b *Builder) Build(input string) (*Sentence, error) {
	if b.cfg.Input.MarkupEnabled {
		return b.buildMarkup(input)
	}
	return b.buildPlain(input)
}

// CreateFromString is a convenience wrapper around NewBuilder and Build.
func CreateFromString(v *vocab.Collection, cfg *config.Config, input string) (*Sentence, error) {
	return NewBuilder(v, cfg).Build(input)
}

func (b *Builder) buildPlain(input string) (*Sentence, error) {
	tokens := tokenize.Tokenize(input)
	words, err := b.words(tokens)
	if err != nil {
		return nil, err
	}

	c := reorder.New(len(tokens), b.cfg.Reordering.MaxReorderDistance)
	if err := b.punctuationWalls(c, tokens, words); err != nil {
		return nil, err
	}
	c.FinalizeWalls()

	return &Sentence{
		path:       PathPlain,
		tokens:     tokens,
		words:      words,
		constraint: c,
	}, nil
}

func (b *Builder) buildMarkup(input string) (*Sentence, error) {
	doc, err := markup.Parse(input)
	if err != nil {
		return nil, err
	}

	tokens, anns, err := annotation.Walk(doc.Root(), annotation.Config{
		MaxDepth: b.cfg.Input.MaxMarkupDepth,
	})
	if err != nil {
		return nil, err
	}

	words, err := b.words(tokens)
	if err != nil {
		return nil, err
	}

	c := reorder.New(len(tokens), b.cfg.Reordering.MaxReorderDistance)
	forced, err := materialize(anns, tokens, words, c, b.vocab, &b.cfg.Input)
	if err != nil {
		return nil, err
	}
	if err := b.punctuationWalls(c, tokens, words); err != nil {
		return nil, err
	}
	c.FinalizeWalls()

	return &Sentence{
		path:        PathMarkup,
		tokens:      tokens,
		words:       words,
		constraint:  c,
		forced:      forced,
		annotations: anns,
	}, nil
}

// punctuationWalls applies monotone-at-punctuation when enabled. Words are
// classified by their surface factor, so ",|PUNC" counts as punctuation;
// a word without a surface factor falls back to its raw token.
func (b *Builder) punctuationWalls(c *reorder.Constraint, tokens []string, words []vocab.Word) error {
	if !b.cfg.Reordering.MonotoneAtPunctuation || len(words) == 0 {
		return nil
	}
	surfaces := make([]string, len(words))
	for i, w := range words {
		if surfaces[i] = w.Surface(); surfaces[i] == "" {
			surfaces[i] = tokens[i]
		}
	}
	return c.SetMonotoneAtPunctuation(surfaces, tokenize.IsPunctuation)
}

func (b *Builder) words(tokens []string) ([]vocab.Word, error) {
	words := make([]vocab.Word, len(tokens))
	for i, tok := range tokens {
		w, err := vocab.NewWord(b.vocab, tok, b.cfg.Input.InputFactors, b.cfg.Input.MaxFactors)
		if err != nil {
			return nil, errors.Wrapf(err, "token %d", i)
		}
		words[i] = w
	}
	return words, nil
}
