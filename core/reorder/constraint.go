// Package reorder holds the per-sentence reordering restrictions consumed by
// phrase-based search: walls between adjacent tokens and zones of tokens
// that must be translated as a self-contained block.
package reorder

import (
	"errors"
	"sort"

	xerrors "github.com/FocuswithJustin/xmlinput/core/errors"
)

// ErrFinalized is returned when a finalized constraint is modified.
var ErrFinalized = errors.New("reordering constraint is finalized")

// Unlimited is the max distortion value meaning "no limit".
const Unlimited = -1

// Zone is an inclusive token range [Start, End]. A zone whose End is before
// its Start covers no tokens.
type Zone struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Empty reports whether the zone covers no tokens.
func (z Zone) Empty() bool {
	return z.End < z.Start
}

// Contains reports whether pos lies inside the zone.
func (z Zone) Contains(pos int) bool {
	return pos >= z.Start && pos <= z.End
}

// Constraint is the reordering constraint of one sentence. Boundary i is
// the gap between token i and token i+1; boundary Size()-1 is the end of
// the sentence.
//
// A Constraint is built by one goroutine and becomes read-only after
// FinalizeWalls, at which point it may be shared freely.
type Constraint struct {
	size          int
	maxDistortion int
	walls         []bool
	zones         []Zone
	active        bool
	finalized     bool
}

// New creates an empty constraint for a sentence of size tokens.
// maxDistortion is carried for the search and not enforced here.
func New(size, maxDistortion int) *Constraint {
	if size < 0 {
		size = 0
	}
	return &Constraint{
		size:          size,
		maxDistortion: maxDistortion,
		walls:         make([]bool, size),
	}
}

// Size returns the sentence length the constraint was built for.
func (c *Constraint) Size() int {
	return c.size
}

// MaxDistortion returns the distortion limit passed to New.
func (c *Constraint) MaxDistortion() int {
	return c.maxDistortion
}

// Active reports whether any wall or zone was ever set.
func (c *Constraint) Active() bool {
	return c.active
}

// Finalized reports whether FinalizeWalls has run.
func (c *Constraint) Finalized() bool {
	return c.finalized
}

// SetWall forbids reordering across boundary. Boundaries outside
// [0, Size()-1] are rejected with a ConstraintRangeError.
func (c *Constraint) SetWall(boundary int) error {
	if c.finalized {
		return ErrFinalized
	}
	if boundary < 0 || boundary >= c.size {
		return xerrors.NewConstraintRange("wall", boundary, c.size)
	}
	c.walls[boundary] = true
	c.active = true
	return nil
}

// SetZone registers the inclusive range [start, end]. The range is not
// validated; overlapping and empty zones are accepted.
func (c *Constraint) SetZone(start, end int) error {
	if c.finalized {
		return ErrFinalized
	}
	c.zones = append(c.zones, Zone{Start: start, End: end})
	c.active = true
	return nil
}

// SetMonotoneAtPunctuation puts walls around every punctuation token, but
// never at the sentence start or end.
func (c *Constraint) SetMonotoneAtPunctuation(tokens []string, isPunct func(string) bool) error {
	if c.finalized {
		return ErrFinalized
	}
	for i, tok := range tokens {
		if i >= c.size || !isPunct(tok) {
			continue
		}
		if i > 0 && i < c.size-1 {
			c.walls[i] = true
			c.active = true
		}
		if i > 1 {
			c.walls[i-1] = true
			c.active = true
		}
	}
	return nil
}

// FinalizeWalls turns every zone edge into a wall and freezes the
// constraint. Existing walls are never cleared.
func (c *Constraint) FinalizeWalls() {
	if c.finalized {
		return
	}
	for _, z := range c.zones {
		if z.Empty() {
			continue
		}
		if left := z.Start - 1; left >= 0 && left < c.size {
			c.walls[left] = true
		}
		if z.End >= 0 && z.End < c.size {
			c.walls[z.End] = true
		}
	}
	c.finalized = true
}

// Wall reports whether reordering may not cross boundary. The boundary
// after the last token is always a wall.
func (c *Constraint) Wall(boundary int) bool {
	if boundary < 0 || boundary >= c.size {
		return false
	}
	if boundary == c.size-1 {
		return true
	}
	return c.walls[boundary]
}

// Walls returns every boundary holding a wall, in increasing order: walls
// set directly, punctuation walls and, once FinalizeWalls has run, zone
// edges. The sentence-end boundary is listed only when a wall was set on
// it, although Wall always reports it.
func (c *Constraint) Walls() []int {
	var out []int
	for i, w := range c.walls {
		if w {
			out = append(out, i)
		}
	}
	return out
}

// Zones returns a copy of the registered zones in registration order.
func (c *Constraint) Zones() []Zone {
	out := make([]Zone, len(c.zones))
	copy(out, c.zones)
	return out
}

// ZonesAt returns the zones containing pos, innermost first.
func (c *Constraint) ZonesAt(pos int) []Zone {
	var out []Zone
	for _, z := range c.zones {
		if z.Contains(pos) {
			out = append(out, z)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].End-out[i].Start < out[j].End-out[j].Start
	})
	return out
}

// InZone reports whether pos lies inside any zone.
func (c *Constraint) InZone(pos int) bool {
	for _, z := range c.zones {
		if z.Contains(pos) {
			return true
		}
	}
	return false
}
