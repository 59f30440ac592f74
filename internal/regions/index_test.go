package regions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func box(l, t, r, b int) Rect { return Rect{Left: l, Top: t, Right: r, Bottom: b} }

func TestIndex_EmptyAlwaysMisses(t *testing.T) {
	ix := NewIndex(KeepLast)
	ix.Rebuild(nil)

	text, ok := ix.HitTest(10, 10)
	assert.False(t, ok)
	assert.Empty(t, text)
	assert.Equal(t, 0, ix.Len())
}

func TestIndex_OverlapFirstMatchWins(t *testing.T) {
	ix := NewIndex(KeepLast)
	ix.Rebuild([]Region{
		{Box: box(0, 0, 10, 10), Text: "A", Confidence: 0.9},
		{Box: box(5, 5, 15, 15), Text: "B", Confidence: 0.8},
	})

	tests := []struct {
		name  string
		x, y  int
		text  string
		found bool
	}{
		{name: "overlap resolves to earliest", x: 7, y: 7, text: "A", found: true},
		{name: "only second contains", x: 12, y: 12, text: "B", found: true},
		{name: "outside both", x: 20, y: 20, found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, ok := ix.HitTest(tt.x, tt.y)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.text, text)
		})
	}
}

func TestIndex_InclusiveBounds(t *testing.T) {
	ix := NewIndex(KeepLast)
	ix.Rebuild([]Region{{Box: box(0, 0, 10, 10), Text: "edge"}})

	for _, p := range [][2]int{{0, 0}, {10, 10}, {0, 10}, {10, 0}, {5, 0}, {0, 5}} {
		text, ok := ix.HitTest(p[0], p[1])
		assert.True(t, ok, "point %v should hit", p)
		assert.Equal(t, "edge", text)
	}
	for _, p := range [][2]int{{11, 5}, {5, 11}, {-1, 5}, {5, -1}} {
		_, ok := ix.HitTest(p[0], p[1])
		assert.False(t, ok, "point %v should miss", p)
	}
}

func TestIndex_RebuildDiscardsPreviousEntries(t *testing.T) {
	ix := NewIndex(KeepLast)
	ix.Rebuild([]Region{
		{Box: box(0, 0, 10, 10), Text: "old"},
		{Box: box(50, 50, 60, 60), Text: "shared"},
	})
	ix.Rebuild([]Region{
		{Box: box(50, 50, 60, 60), Text: "shared"},
		{Box: box(100, 100, 110, 110), Text: "new"},
	})

	_, ok := ix.HitTest(5, 5)
	assert.False(t, ok, "entries from the first build must be gone")

	text, ok := ix.HitTest(55, 55)
	require.True(t, ok)
	assert.Equal(t, "shared", text)

	text, ok = ix.HitTest(105, 105)
	require.True(t, ok)
	assert.Equal(t, "new", text)
	assert.Equal(t, 2, ix.Len())
}

func TestIndex_DuplicatePolicies(t *testing.T) {
	regs := []Region{
		{Box: box(0, 0, 10, 10), Text: "first", Confidence: 0.9},
		{Box: box(20, 20, 30, 30), Text: "other", Confidence: 0.7},
		{Box: box(0, 0, 10, 10), Text: "second", Confidence: 0.6},
	}

	tests := []struct {
		policy   DuplicatePolicy
		expected string
		conf     float64
	}{
		{policy: KeepLast, expected: "second", conf: 0.6},
		{policy: KeepFirst, expected: "first", conf: 0.9},
		{policy: Merge, expected: "first second", conf: 0.6},
	}

	for _, tt := range tests {
		t.Run(tt.policy.String(), func(t *testing.T) {
			ix := NewIndex(tt.policy)
			ix.Rebuild(regs)

			require.Equal(t, 2, ix.Len())
			r, ok := ix.HitTestRegion(5, 5)
			require.True(t, ok)
			assert.Equal(t, tt.expected, r.Text)
			assert.InDelta(t, tt.conf, r.Confidence, 1e-9)

			// The duplicate keeps the position of its first insertion.
			assert.Equal(t, box(0, 0, 10, 10), ix.Regions()[0].Box)
		})
	}
}

func TestIndex_DuplicateKeepsFirstMatchOrder(t *testing.T) {
	// A later duplicate must not move ahead of an earlier overlapping region.
	ix := NewIndex(KeepLast)
	ix.Rebuild([]Region{
		{Box: box(0, 0, 20, 20), Text: "outer"},
		{Box: box(5, 5, 10, 10), Text: "inner"},
		{Box: box(0, 0, 20, 20), Text: "outer-updated"},
	})

	text, ok := ix.HitTest(7, 7)
	require.True(t, ok)
	assert.Equal(t, "outer-updated", text)
}

func TestIndex_RegionsIsCopy(t *testing.T) {
	ix := NewIndex(KeepLast)
	ix.Rebuild([]Region{{Box: box(0, 0, 1, 1), Text: "x"}})
	regs := ix.Regions()
	regs[0].Text = "mutated"

	text, _ := ix.HitTest(0, 0)
	assert.Equal(t, "x", text)
}

func TestIndex_ZeroValueUsable(t *testing.T) {
	var ix Index
	ix.Rebuild([]Region{{Box: box(0, 0, 1, 1), Text: "x"}})
	text, ok := ix.HitTest(1, 1)
	assert.True(t, ok)
	assert.Equal(t, "x", text)

	ix.Reset()
	assert.Equal(t, 0, ix.Len())
}

func TestParseDuplicatePolicy(t *testing.T) {
	for in, want := range map[string]DuplicatePolicy{"": KeepLast, "last": KeepLast, "first": KeepFirst, "merge": Merge} {
		got, err := ParseDuplicatePolicy(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseDuplicatePolicy("newest")
	assert.Error(t, err)
}
