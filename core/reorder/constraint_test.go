package reorder

import (
	"errors"
	"reflect"
	"testing"

	xerrors "github.com/FocuswithJustin/xmlinput/core/errors"
	"github.com/FocuswithJustin/xmlinput/core/tokenize"
)

func TestNewDefaults(t *testing.T) {
	c := New(4, 6)
	if c.Size() != 4 || c.MaxDistortion() != 6 {
		t.Errorf("Size, MaxDistortion = %d, %d; want 4, 6", c.Size(), c.MaxDistortion())
	}
	if c.Active() {
		t.Error("new constraint should be inactive")
	}
	if len(c.Walls()) != 0 {
		t.Errorf("Walls() = %v, want none", c.Walls())
	}
	for b := 0; b < 3; b++ {
		if c.Wall(b) {
			t.Errorf("Wall(%d) = true on a fresh constraint", b)
		}
	}
	if !c.Wall(3) {
		t.Error("the sentence end should always be a wall")
	}

	if New(-3, Unlimited).Size() != 0 {
		t.Error("negative size should clamp to 0")
	}
}

func TestSetWall(t *testing.T) {
	tests := []struct {
		name     string
		size     int
		boundary int
		wantErr  bool
	}{
		{"first boundary", 3, 0, false},
		{"last boundary", 3, 2, false},
		{"negative", 3, -1, true},
		{"past end", 3, 3, true},
		{"empty sentence", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(tt.size, Unlimited)
			err := c.SetWall(tt.boundary)
			if tt.wantErr {
				var rerr *xerrors.ConstraintRangeError
				if !errors.As(err, &rerr) {
					t.Fatalf("SetWall(%d) error = %v, want ConstraintRangeError", tt.boundary, err)
				}
				if c.Active() {
					t.Error("failed SetWall should not activate the constraint")
				}
				return
			}
			if err != nil {
				t.Fatalf("SetWall(%d) failed: %v", tt.boundary, err)
			}
			if !c.Wall(tt.boundary) {
				t.Errorf("Wall(%d) = false after SetWall", tt.boundary)
			}
			if !c.Active() {
				t.Error("SetWall should activate the constraint")
			}
		})
	}
}

func TestFinalizeZoneEdges(t *testing.T) {
	c := New(4, Unlimited)
	if err := c.SetZone(0, 2); err != nil {
		t.Fatalf("SetZone failed: %v", err)
	}
	c.FinalizeWalls()

	if got := c.Walls(); !reflect.DeepEqual(got, []int{2}) {
		t.Errorf("Walls() = %v, want [2]", got)
	}
	for pos := 0; pos <= 2; pos++ {
		if !c.InZone(pos) {
			t.Errorf("InZone(%d) = false, want true", pos)
		}
	}
	if c.InZone(3) {
		t.Error("InZone(3) = true, want false")
	}
}

func TestWallsListsZoneEdgesAfterFinalize(t *testing.T) {
	c := New(6, Unlimited)
	if err := c.SetWall(1); err != nil {
		t.Fatalf("SetWall failed: %v", err)
	}
	if err := c.SetZone(3, 4); err != nil {
		t.Fatalf("SetZone failed: %v", err)
	}
	if got := c.Walls(); !reflect.DeepEqual(got, []int{1}) {
		t.Errorf("Walls() before finalize = %v, want [1]", got)
	}

	c.FinalizeWalls()
	if got := c.Walls(); !reflect.DeepEqual(got, []int{1, 2, 4}) {
		t.Errorf("Walls() after finalize = %v, want [1 2 4]", got)
	}
	if !c.Wall(5) {
		t.Error("Wall(5) = false, the sentence end is always a wall")
	}
}

func TestFinalizeInnerZone(t *testing.T) {
	c := New(6, Unlimited)
	_ = c.SetZone(2, 3)
	c.FinalizeWalls()

	if got := c.Walls(); !reflect.DeepEqual(got, []int{1, 3}) {
		t.Errorf("Walls() = %v, want [1 3]", got)
	}
}

func TestFinalizeKeepsExplicitWalls(t *testing.T) {
	c := New(6, Unlimited)
	_ = c.SetWall(2)
	_ = c.SetZone(1, 4)
	c.FinalizeWalls()

	// The wall inside the zone survives; zones only add walls.
	if got := c.Walls(); !reflect.DeepEqual(got, []int{0, 2, 4}) {
		t.Errorf("Walls() = %v, want [0 2 4]", got)
	}
}

func TestFinalizeOverlappingAndEmptyZones(t *testing.T) {
	c := New(5, Unlimited)
	_ = c.SetZone(0, 2)
	_ = c.SetZone(1, 3)
	_ = c.SetZone(3, 2) // empty
	c.FinalizeWalls()

	if got := c.Walls(); !reflect.DeepEqual(got, []int{0, 2, 3}) {
		t.Errorf("Walls() = %v, want [0 2 3]", got)
	}
	if len(c.Zones()) != 3 {
		t.Errorf("len(Zones()) = %d, want 3", len(c.Zones()))
	}

	inner := c.ZonesAt(2)
	if len(inner) != 2 {
		t.Fatalf("ZonesAt(2) = %v, want two zones", inner)
	}
	if inner[0] != (Zone{Start: 0, End: 2}) && inner[0] != (Zone{Start: 1, End: 3}) {
		t.Errorf("ZonesAt(2)[0] = %v", inner[0])
	}
}

func TestZonesAtInnermostFirst(t *testing.T) {
	c := New(10, Unlimited)
	_ = c.SetZone(0, 9)
	_ = c.SetZone(3, 5)
	_ = c.SetZone(4, 4)

	got := c.ZonesAt(4)
	want := []Zone{{4, 4}, {3, 5}, {0, 9}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ZonesAt(4) = %v, want %v", got, want)
	}
}

func TestFinalizedIsImmutable(t *testing.T) {
	c := New(3, Unlimited)
	c.FinalizeWalls()

	if !c.Finalized() {
		t.Fatal("Finalized() = false after FinalizeWalls")
	}
	if err := c.SetWall(0); !errors.Is(err, ErrFinalized) {
		t.Errorf("SetWall after finalize = %v, want ErrFinalized", err)
	}
	if err := c.SetZone(0, 1); !errors.Is(err, ErrFinalized) {
		t.Errorf("SetZone after finalize = %v, want ErrFinalized", err)
	}
	if err := c.SetMonotoneAtPunctuation([]string{"a", ",", "b"}, tokenize.IsPunctuation); !errors.Is(err, ErrFinalized) {
		t.Errorf("SetMonotoneAtPunctuation after finalize = %v, want ErrFinalized", err)
	}

	z := c.Zones()
	if len(z) != 0 {
		t.Fatalf("Zones() = %v, want none", z)
	}
	_ = append(z, Zone{0, 0})
	if len(c.Zones()) != 0 {
		t.Error("Zones() must return a copy")
	}
}

func TestSetMonotoneAtPunctuation(t *testing.T) {
	tests := []struct {
		name   string
		tokens []string
		want   []int
	}{
		{"comma in the middle", []string{"a", "b", ",", "c", "d"}, []int{1, 2}},
		{"comma second", []string{"a", ",", "b"}, []int{1}},
		{"leading punctuation", []string{",", "a", "b"}, nil},
		{"final period", []string{"a", "b", "."}, []int{1}},
		{"no punctuation", []string{"a", "b", "c"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(len(tt.tokens), Unlimited)
			if err := c.SetMonotoneAtPunctuation(tt.tokens, tokenize.IsPunctuation); err != nil {
				t.Fatalf("SetMonotoneAtPunctuation failed: %v", err)
			}
			if got := c.Walls(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Walls() = %v, want %v", got, tt.want)
			}
		})
	}
}
