package annotation

import (
	"fmt"

	"github.com/FocuswithJustin/xmlinput/core/errors"
	"github.com/FocuswithJustin/xmlinput/core/markup"
	"github.com/FocuswithJustin/xmlinput/core/tokenize"
)

// Config controls a Walker.
type Config struct {
	// Tokenize splits text nodes. Defaults to tokenize.Tokenize.
	Tokenize func(string) []string

	// MaxDepth bounds element nesting; 0 means unlimited.
	MaxDepth int
}

// Walker linearizes a markup tree. It is not safe for concurrent use.
type Walker struct {
	tokenize    func(string) []string
	maxDepth    int
	tokens      []string
	annotations []Annotation
}

// frame is one open element on the walk stack.
type frame struct {
	children []*markup.Node
	next     int
	ann      int // index into annotations, or NoParent for the root
	depth    int
}

// NewWalker creates a walker.
func NewWalker(cfg Config) *Walker {
	tok := cfg.Tokenize
	if tok == nil {
		tok = tokenize.Tokenize
	}
	return &Walker{
		tokenize: tok,
		maxDepth: cfg.MaxDepth,
	}
}

// Walk visits the children of root in document order, appending the
// tokens of every text node and one annotation per element. The root
// itself is not annotated. Previous results are discarded.
//
// Spans are patched when the walk leaves an element, so Annotations is
// only meaningful after Walk returns nil.
func (w *Walker) Walk(root *markup.Node) error {
	w.tokens = w.tokens[:0]
	w.annotations = w.annotations[:0]

	stack := []frame{{children: root.Children(), ann: NoParent}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]

		if top.next == len(top.children) {
			if top.ann != NoParent {
				a := &w.annotations[top.ann]
				a.Length = len(w.tokens) - a.Start
			}
			stack = stack[:len(stack)-1]
			continue
		}

		child := top.children[top.next]
		top.next++

		start := len(w.tokens)
		if v := child.Value(); v != "" {
			w.tokens = append(w.tokens, w.tokenize(v)...)
		}
		if !child.IsElement() {
			continue
		}

		depth := top.depth + 1
		if w.maxDepth > 0 && depth > w.maxDepth {
			return &errors.ValidationError{
				Field:   "markup",
				Value:   child.Name(),
				Message: fmt.Sprintf("nesting deeper than %d elements", w.maxDepth),
			}
		}

		ann, err := newAnnotation(child, start, depth, top.ann)
		if err != nil {
			return errors.Wrapf(err, "<%s> at token %d", child.Name(), start)
		}
		w.annotations = append(w.annotations, ann)

		// top is invalid once the stack grows.
		stack = append(stack, frame{
			children: child.Children(),
			ann:      len(w.annotations) - 1,
			depth:    depth,
		})
	}
	return nil
}

// Tokens returns the flat token sequence of the last walk.
func (w *Walker) Tokens() []string {
	out := make([]string, len(w.tokens))
	copy(out, w.tokens)
	return out
}

// Annotations returns the annotations of the last walk in document order.
func (w *Walker) Annotations() []Annotation {
	out := make([]Annotation, len(w.annotations))
	copy(out, w.annotations)
	return out
}

// Walk is a convenience wrapper running a fresh Walker over root.
func Walk(root *markup.Node, cfg Config) ([]string, []Annotation, error) {
	w := NewWalker(cfg)
	if err := w.Walk(root); err != nil {
		return nil, nil, err
	}
	return w.Tokens(), w.Annotations(), nil
}
