// Package vocab interns token strings into factors with dense identifiers
// and builds multi-factor words from input tokens.
package vocab

import (
	"strconv"
	"sync"

	"github.com/FocuswithJustin/xmlinput/core/errors"
)

// FactorID is the dense identifier of an interned string.
type FactorID uint32

// Factor is one interned string. Factors are compared by pointer: two
// factors from the same Collection are equal iff they are the same pointer.
type Factor struct {
	id   FactorID
	text string
}

// ID returns the factor's dense identifier.
func (f *Factor) ID() FactorID {
	return f.id
}

// String returns the interned text.
func (f *Factor) String() string {
	return f.text
}

// Collection is a thread-safe string interner. A Collection is shared by
// all sentences of a run so that equal strings map to equal factors.
type Collection struct {
	mu     sync.RWMutex
	byText map[string]*Factor
	byID   []*Factor
}

// NewCollection creates an empty collection.
func NewCollection() *Collection {
	return &Collection{
		byText: make(map[string]*Factor),
	}
}

// Add interns text and returns its factor, creating it on first use.
func (c *Collection) Add(text string) *Factor {
	c.mu.RLock()
	f, ok := c.byText[text]
	c.mu.RUnlock()
	if ok {
		return f
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another goroutine may have added it between the locks.
	if f, ok := c.byText[text]; ok {
		return f
	}
	f = &Factor{id: FactorID(len(c.byID)), text: text}
	c.byText[text] = f
	c.byID = append(c.byID, f)
	return f
}

// Lookup returns the factor for text without interning it.
func (c *Collection) Lookup(text string) (*Factor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.byText[text]
	return f, ok
}

// ByID returns the factor with the given identifier.
func (c *Collection) ByID(id FactorID) (*Factor, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if int(id) >= len(c.byID) {
		return nil, errors.NewNotFound("factor", strconv.FormatUint(uint64(id), 10))
	}
	return c.byID[id], nil
}

// Len returns the number of interned strings.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byID)
}
