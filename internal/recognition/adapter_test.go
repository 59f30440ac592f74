package recognition

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/pogo-pad/internal/regions"
	"github.com/MeKo-Tech/pogo-pad/internal/testutil"
)

type fakeEngine struct {
	dets  []Detection
	err   error
	calls int
	last  Request
}

func (f *fakeEngine) Recognize(_ context.Context, req Request) ([]Detection, error) {
	f.calls++
	f.last = req
	return f.dets, f.err
}

func (f *fakeEngine) Name() string { return "fake" }
func (f *fakeEngine) Close() error { return nil }

func quad(l, t, r, b float64) regions.Quad {
	return regions.Quad{{X: l, Y: t}, {X: r, Y: t}, {X: r, Y: b}, {X: l, Y: b}}
}

func TestAdapter_Recognize(t *testing.T) {
	scan := testutil.WriteScan(t, t.TempDir(), "page.png", "x")
	engine := &fakeEngine{dets: []Detection{
		{Quad: quad(5, 5, 10, 10), Text: "  A ", Confidence: 0.9},
		{Quad: quad(8, 8, 15, 15), Text: "B", Confidence: 0.8},
		{Quad: quad(0, 0, 1, 1), Text: "   ", Confidence: 0.99},
	}}
	a := NewAdapter(engine, nil, AdapterOptions{})

	regs, err := a.Recognize(context.Background(), scan.Path)
	require.NoError(t, err)
	assert.Equal(t, 1, engine.calls)
	assert.Equal(t, scan.Path, engine.last.Path)
	require.NotNil(t, engine.last.Image)

	require.Len(t, regs, 2)
	assert.Equal(t, regions.Region{Box: regions.Rect{Left: 5, Top: 5, Right: 10, Bottom: 10}, Text: "A", Confidence: 0.9}, regs[0])
	assert.Equal(t, "B", regs[1].Text)

	path, cached, ok := a.LastResult()
	require.True(t, ok)
	assert.Equal(t, scan.Path, path)
	assert.Equal(t, regs, cached)
}

func TestAdapter_NormalisesToNFC(t *testing.T) {
	scan := testutil.WriteScan(t, t.TempDir(), "page.png", "x")
	// Katakana KA followed by a combining voiced sound mark.
	engine := &fakeEngine{dets: []Detection{{Quad: quad(0, 0, 4, 4), Text: "\u30ab\u3099", Confidence: 1}}}
	a := NewAdapter(engine, nil, AdapterOptions{})

	regs, err := a.Recognize(context.Background(), scan.Path)
	require.NoError(t, err)
	require.Len(t, regs, 1)
	assert.Equal(t, "\u30ac", regs[0].Text)
}

func TestAdapter_MinConfidenceAndRectMode(t *testing.T) {
	scan := testutil.WriteScan(t, t.TempDir(), "page.png", "x")
	skewed := regions.Quad{{X: 10, Y: 2}, {X: 20, Y: 4}, {X: 18, Y: 12}, {X: 8, Y: 10}}
	engine := &fakeEngine{dets: []Detection{
		{Quad: skewed, Text: "keep", Confidence: 0.6},
		{Quad: quad(0, 0, 1, 1), Text: "drop", Confidence: 0.3},
	}}
	a := NewAdapter(engine, nil, AdapterOptions{RectMode: regions.BoundsMode, MinConfidence: 0.5})

	regs, err := a.Recognize(context.Background(), scan.Path)
	require.NoError(t, err)
	require.Len(t, regs, 1)
	assert.Equal(t, regions.Rect{Left: 8, Top: 2, Right: 20, Bottom: 12}, regs[0].Box)
}

func TestAdapter_DropsBlankDetections(t *testing.T) {
	scan := testutil.WriteScan(t, t.TempDir(), "page.png", "x")
	engine := &fakeEngine{dets: []Detection{
		{Quad: quad(0, 0, 4, 4), Text: "", Confidence: 1},
		{Quad: quad(0, 0, 4, 4), Text: "first", Confidence: 1},
		{Quad: quad(0, 0, 4, 4), Text: " \t\n", Confidence: 1},
		{Quad: quad(0, 0, 4, 4), Text: "second", Confidence: 1},
	}}
	a := NewAdapter(engine, nil, AdapterOptions{})

	regs, err := a.Recognize(context.Background(), scan.Path)
	require.NoError(t, err)
	require.Len(t, regs, 2)
	assert.Equal(t, "first", regs[0].Text)
	assert.Equal(t, "second", regs[1].Text, "duplicates of one box stay in engine order")
}

func TestAdapter_DecodeFailure(t *testing.T) {
	engine := &fakeEngine{}
	a := NewAdapter(engine, nil, AdapterOptions{})

	_, err := a.Recognize(context.Background(), filepath.Join(t.TempDir(), "missing.png"))
	var decErr *DecodeError
	require.ErrorAs(t, err, &decErr)
	assert.Zero(t, engine.calls)
	_, _, ok := a.LastResult()
	assert.False(t, ok)
}

func TestAdapter_EngineFailureClearsCache(t *testing.T) {
	scan := testutil.WriteScan(t, t.TempDir(), "page.png", "x")
	engine := &fakeEngine{dets: []Detection{{Quad: quad(0, 0, 4, 4), Text: "a", Confidence: 1}}}
	a := NewAdapter(engine, nil, AdapterOptions{})

	_, err := a.Recognize(context.Background(), scan.Path)
	require.NoError(t, err)

	engine.err = errors.New("model crashed")
	_, err = a.Recognize(context.Background(), scan.Path)
	var recErr *RecognitionError
	require.ErrorAs(t, err, &recErr)
	assert.Equal(t, "fake", recErr.Engine)
	assert.ErrorContains(t, err, "model crashed")

	_, _, ok := a.LastResult()
	assert.False(t, ok)
}

func TestAdapter_LastResultIsACopy(t *testing.T) {
	scan := testutil.WriteScan(t, t.TempDir(), "page.png", "x")
	engine := &fakeEngine{dets: []Detection{{Quad: quad(0, 0, 4, 4), Text: "a", Confidence: 1}}}
	a := NewAdapter(engine, nil, AdapterOptions{})

	regs, err := a.Recognize(context.Background(), scan.Path)
	require.NoError(t, err)
	regs[0].Text = "mutated"

	_, cached, _ := a.LastResult()
	assert.Equal(t, "a", cached[0].Text)
	assert.Equal(t, "fake", a.EngineName())
}
