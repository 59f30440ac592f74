package regions

import "fmt"

// Region is one recognized text span.
type Region struct {
	Box        Rect    `json:"box" yaml:"box"`
	Text       string  `json:"text" yaml:"text"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// DuplicatePolicy decides what happens when two regions share a rectangle.
type DuplicatePolicy int

const (
	// KeepLast overwrites the earlier text; the entry keeps its build position.
	KeepLast DuplicatePolicy = iota
	// KeepFirst ignores later duplicates.
	KeepFirst
	// Merge joins the texts with a single space.
	Merge
)

// ParseDuplicatePolicy maps a configuration string to a DuplicatePolicy.
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch s {
	case "", "last":
		return KeepLast, nil
	case "first":
		return KeepFirst, nil
	case "merge":
		return Merge, nil
	default:
		return KeepLast, fmt.Errorf("invalid duplicate policy: %s (must be last, first or merge)", s)
	}
}

func (p DuplicatePolicy) String() string {
	switch p {
	case KeepFirst:
		return "first"
	case Merge:
		return "merge"
	default:
		return "last"
	}
}

// Index maps rectangles to recognized text for the current image. Entries keep
// build order and lookups scan linearly, so the earliest inserted rectangle
// wins when several contain the queried point. Pages carry tens to a few
// hundred regions.
//
// Index is not safe for concurrent use.
type Index struct {
	policy  DuplicatePolicy
	entries []Region
	byRect  map[Rect]int
}

// NewIndex creates an empty index using the given duplicate policy.
func NewIndex(policy DuplicatePolicy) *Index {
	return &Index{policy: policy, byRect: make(map[Rect]int)}
}

// Policy returns the duplicate policy in effect.
func (ix *Index) Policy() DuplicatePolicy { return ix.policy }

// Reset discards every entry.
func (ix *Index) Reset() {
	ix.entries = nil
	clear(ix.byRect)
}

// Rebuild replaces the whole index with regs, inserted in order.
func (ix *Index) Rebuild(regs []Region) {
	ix.Reset()
	for _, r := range regs {
		ix.insert(r)
	}
}

func (ix *Index) insert(r Region) {
	if ix.byRect == nil {
		ix.byRect = make(map[Rect]int)
	}
	i, dup := ix.byRect[r.Box]
	if !dup {
		ix.byRect[r.Box] = len(ix.entries)
		ix.entries = append(ix.entries, r)
		return
	}
	switch ix.policy {
	case KeepFirst:
	case Merge:
		ix.entries[i].Text += " " + r.Text
		ix.entries[i].Confidence = min(ix.entries[i].Confidence, r.Confidence)
	default:
		ix.entries[i].Text = r.Text
		ix.entries[i].Confidence = r.Confidence
	}
}

// HitTest returns the text of the first region containing (x, y).
func (ix *Index) HitTest(x, y int) (string, bool) {
	r, ok := ix.HitTestRegion(x, y)
	return r.Text, ok
}

// HitTestRegion returns the first region containing (x, y).
func (ix *Index) HitTestRegion(x, y int) (Region, bool) {
	for _, r := range ix.entries {
		if r.Box.Contains(x, y) {
			return r, true
		}
	}
	return Region{}, false
}

// Regions returns a copy of the entries in build order.
func (ix *Index) Regions() []Region {
	out := make([]Region, len(ix.entries))
	copy(out, ix.entries)
	return out
}

// Len returns the number of distinct rectangles.
func (ix *Index) Len() int { return len(ix.entries) }
