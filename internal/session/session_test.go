package session

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/pogo-pad/internal/recognition"
	"github.com/MeKo-Tech/pogo-pad/internal/regions"
	"github.com/MeKo-Tech/pogo-pad/internal/store"
)

type fakeRecognizer struct {
	results map[string][]regions.Region
	errs    map[string]error
	calls   []string
}

func newFakeRecognizer() *fakeRecognizer {
	return &fakeRecognizer{results: map[string][]regions.Region{}, errs: map[string]error{}}
}

func (f *fakeRecognizer) Recognize(_ context.Context, path string) ([]regions.Region, error) {
	f.calls = append(f.calls, path)
	if err := f.errs[path]; err != nil {
		return nil, err
	}
	return f.results[path], nil
}

var _ ResultCache = (*recognition.Adapter)(nil)

// cachingRecognizer remembers its last result the way the recognition
// adapter does.
type cachingRecognizer struct {
	*fakeRecognizer
	lastPath string
	last     []regions.Region
}

func (c *cachingRecognizer) Recognize(ctx context.Context, path string) ([]regions.Region, error) {
	regs, err := c.fakeRecognizer.Recognize(ctx, path)
	c.lastPath, c.last = path, regs
	if err != nil {
		c.lastPath, c.last = "", nil
	}
	return regs, err
}

func (c *cachingRecognizer) LastResult() (string, []regions.Region, bool) {
	return c.lastPath, c.last, c.lastPath != ""
}

func region(l, t, r, b int, text string) regions.Region {
	return regions.Region{Box: regions.Rect{Left: l, Top: t, Right: r, Bottom: b}, Text: text, Confidence: 1}
}

var twoRegions = []regions.Region{region(0, 0, 10, 10, "A"), region(5, 5, 15, 15, "B")}

func newTestSession(t *testing.T) (*Session, *fakeRecognizer, string) {
	t.Helper()
	dir := t.TempDir()
	rec := newFakeRecognizer()
	return New(rec, Options{Saver: store.NewFileStore(dir)}), rec, dir
}

func TestSession_ClickScenario(t *testing.T) {
	s, rec, _ := newTestSession(t)
	rec.results["scan.png"] = twoRegions

	n, out := s.Drop(context.Background(), []string{"scan.png"})
	require.Equal(t, 1, n)
	assert.Equal(t, StatusRecognized, out.Status)
	assert.Equal(t, 2, out.Regions)

	text, ok := s.Click(7, 7)
	assert.True(t, ok)
	assert.Equal(t, "A", text)
	_, ok = s.Click(12, 12)
	assert.True(t, ok)
	_, ok = s.Click(20, 20)
	assert.False(t, ok)

	assert.Equal(t, "AB", s.Text())
	assert.Equal(t, []string{"scan.png"}, rec.calls, "clicks must not re-run recognition")
}

func TestSession_DumpAllThenClick(t *testing.T) {
	s, rec, _ := newTestSession(t)
	rec.results["scan.png"] = []regions.Region{region(0, 0, 9, 9, "x"), region(20, 0, 29, 9, "y"), region(40, 0, 49, 9, "z")}
	s.Drop(context.Background(), []string{"scan.png"})

	assert.Equal(t, 3, s.DumpAll())
	s.Click(45, 5)
	assert.Equal(t, "x\ny\nz\nz", s.Text())
	assert.Len(t, rec.calls, 1)
}

func TestSession_DropRejected(t *testing.T) {
	s, rec, _ := newTestSession(t)

	n, out := s.Drop(context.Background(), []string{"notes.txt", "photo.jpeg"})
	assert.Zero(t, n)
	assert.Equal(t, StatusSkipped, out.Status)
	assert.Empty(t, rec.calls)
	_, ok := s.Current()
	assert.False(t, ok)
}

func TestSession_DropManyRecognizesLastOnce(t *testing.T) {
	s, rec, _ := newTestSession(t)
	n, _ := s.Drop(context.Background(), []string{"a.png", "skip.bmp", "b.pdf"})
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"b.pdf"}, rec.calls)
	assert.Equal(t, []string{"a.png", "b.pdf"}, s.Files())
}

func TestSession_OpenClearsEditor(t *testing.T) {
	s, rec, _ := newTestSession(t)
	rec.results["a.png"] = twoRegions
	s.Open(context.Background(), "a.png")
	s.Click(1, 1)
	require.Equal(t, "A", s.Text())

	ok, out := s.Open(context.Background(), "b.gif")
	assert.True(t, ok)
	assert.Equal(t, StatusRecognized, out.Status)
	assert.Empty(t, s.Text())

	ok, _ = s.Open(context.Background(), "c.tiff")
	assert.False(t, ok)
	cur, _ := s.Current()
	assert.Equal(t, "b.gif", cur)
}

func TestSession_RecognizeWithoutFile(t *testing.T) {
	s, rec, _ := newTestSession(t)
	out := s.Recognize(context.Background())
	assert.Equal(t, StatusNoCurrentFile, out.Status)
	assert.NoError(t, out.Err)
	assert.Empty(t, rec.calls)

	_, ok := s.Click(0, 0)
	assert.False(t, ok)
	assert.Zero(t, s.DumpAll())
}

func TestSession_FailuresLeaveEmptyIndex(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status Status
	}{
		{name: "decode", err: &recognition.DecodeError{Path: "b.png", Err: errors.New("bad header")}, status: StatusDecodeFailed},
		{name: "engine", err: &recognition.RecognitionError{Engine: "x", Path: "b.png", Err: errors.New("boom")}, status: StatusRecognitionFailed},
		{name: "plain", err: errors.New("boom"), status: StatusRecognitionFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, rec, _ := newTestSession(t)
			rec.results["a.png"] = twoRegions
			rec.errs["b.png"] = tt.err

			s.Drop(context.Background(), []string{"a.png"})
			_, out := s.Drop(context.Background(), []string{"b.png"})
			assert.Equal(t, tt.status, out.Status)
			assert.True(t, out.Failed())

			_, ok := s.Click(1, 1)
			assert.False(t, ok, "regions of the previous file must not survive a failure")
			path, regs := s.Regions()
			assert.Empty(t, path)
			assert.Empty(t, regs)
		})
	}
}

func TestSession_StaleResultsAreDiscarded(t *testing.T) {
	s, rec, _ := newTestSession(t)
	rec.results["a.png"] = []regions.Region{region(0, 0, 10, 10, "old")}
	rec.results["b.png"] = []regions.Region{region(0, 0, 10, 10, "new")}
	ctx := context.Background()

	s.Push("a.png")
	first := <-s.StartRecognize(ctx)
	s.Push("b.png")
	second := <-s.StartRecognize(ctx)

	out := s.Apply(second)
	assert.Equal(t, StatusRecognized, out.Status)
	out = s.Apply(first)
	assert.Equal(t, StatusStale, out.Status)

	text, _ := s.Click(5, 5)
	assert.Equal(t, "new", text)
}

func TestSession_ResultForSupersededFileIsDiscarded(t *testing.T) {
	s, rec, _ := newTestSession(t)
	rec.results["a.png"] = twoRegions
	s.Push("a.png")
	res := <-s.StartRecognize(context.Background())

	// A new file arrives before the result is applied.
	s.Push("b.png")
	assert.Equal(t, StatusStale, s.Apply(res).Status)
	assert.Zero(t, s.DumpAll())
}

func TestSession_PendingFileHidesPreviousRegions(t *testing.T) {
	s, rec, _ := newTestSession(t)
	rec.results["a.png"] = twoRegions
	rec.results["b.png"] = []regions.Region{region(100, 100, 110, 110, "far")}
	ctx := context.Background()
	s.Drop(ctx, []string{"a.png"})

	s.Push("b.png")
	pending := s.StartRecognize(ctx)

	_, ok := s.Click(7, 7)
	assert.False(t, ok, "regions of a.png must not answer for b.png")
	assert.Zero(t, s.DumpAll())
	path, regs := s.Regions()
	assert.Empty(t, path)
	assert.Empty(t, regs)
	assert.Empty(t, s.Text())

	assert.Equal(t, StatusRecognized, s.Apply(<-pending).Status)
	text, ok := s.Click(105, 105)
	assert.True(t, ok)
	assert.Equal(t, "far", text)
}

func TestSession_PushWithoutRecognizeHidesPreviousRegions(t *testing.T) {
	s, rec, _ := newTestSession(t)
	rec.results["a.png"] = twoRegions
	s.Drop(context.Background(), []string{"a.png"})

	s.Push("b.png")
	_, ok := s.Click(7, 7)
	assert.False(t, ok)
	assert.Zero(t, s.DumpAll())
}

func TestSession_RerunKeepsRegionsUntilApplied(t *testing.T) {
	s, rec, _ := newTestSession(t)
	rec.results["a.png"] = twoRegions
	ctx := context.Background()
	s.Drop(ctx, []string{"a.png"})

	pending := s.StartRecognize(ctx)
	text, ok := s.Click(7, 7)
	assert.True(t, ok)
	assert.Equal(t, "A", text)
	s.Apply(<-pending)
}

func TestSession_DumpAllKeepsDuplicateDetections(t *testing.T) {
	rec := &cachingRecognizer{fakeRecognizer: newFakeRecognizer()}
	rec.results["a.png"] = []regions.Region{region(0, 0, 10, 10, "first"), region(0, 0, 10, 10, "second")}
	s := New(rec, Options{Saver: store.NewFileStore(t.TempDir())})
	s.Drop(context.Background(), []string{"a.png"})

	assert.Equal(t, 2, s.DumpAll())
	assert.Equal(t, "first\nsecond\n", s.Text())

	text, _ := s.Click(5, 5)
	assert.Equal(t, "second", text, "the index still keeps the last duplicate")
}

func TestSession_DumpAllIgnoresCacheOfAnotherFile(t *testing.T) {
	rec := &cachingRecognizer{fakeRecognizer: newFakeRecognizer()}
	rec.results["a.png"] = []regions.Region{region(0, 0, 10, 10, "mine")}
	s := New(rec, Options{})
	s.Drop(context.Background(), []string{"a.png"})

	// Another session sharing the recognizer overwrote the cache.
	rec.lastPath, rec.last = "other.png", []regions.Region{region(0, 0, 1, 1, "theirs")}
	assert.Equal(t, 1, s.DumpAll())
	assert.Equal(t, "mine\n", s.Text())
}

func TestSession_Save(t *testing.T) {
	s, rec, dir := newTestSession(t)
	ctx := context.Background()

	loc, err := s.Save(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, store.DefaultFileName), loc)

	rec.results["/scans/invoice.pdf"] = twoRegions
	s.Drop(ctx, []string{"/scans/invoice.pdf"})
	s.DumpAll()
	assert.Equal(t, "invoice.txt", s.SuggestedName())

	loc, err = s.Save(ctx, "")
	require.NoError(t, err)
	data, err := os.ReadFile(loc)
	require.NoError(t, err)
	assert.Equal(t, "A\nB\n", string(data))
}

type failingSaver struct{}

func (failingSaver) Save(context.Context, string, io.Reader, int64) (string, error) {
	return "", errors.New("disk full")
}

func TestSession_SaveFailureKeepsBuffer(t *testing.T) {
	s := New(newFakeRecognizer(), Options{Saver: failingSaver{}})
	s.buf.Append("keep me")

	_, err := s.Save(context.Background(), "out.txt")
	assert.ErrorContains(t, err, "disk full")
	assert.Equal(t, "keep me", s.Text())
}

func TestSession_DuplicatePolicy(t *testing.T) {
	rec := newFakeRecognizer()
	rec.results["a.png"] = []regions.Region{region(0, 0, 5, 5, "one"), region(0, 0, 5, 5, "two")}

	for policy, want := range map[regions.DuplicatePolicy]string{
		regions.KeepLast:  "two",
		regions.KeepFirst: "one",
		regions.Merge:     "one two",
	} {
		s := New(rec, Options{DuplicatePolicy: policy})
		s.Drop(context.Background(), []string{"a.png"})
		text, ok := s.Click(2, 2)
		require.True(t, ok)
		assert.Equal(t, want, text, policy.String())
	}
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "skipped", StatusSkipped.String())
	assert.Equal(t, "recognized", StatusRecognized.String())
	assert.Equal(t, "no_current_file", StatusNoCurrentFile.String())
	assert.Equal(t, "decode_failed", StatusDecodeFailed.String())
	assert.Equal(t, "recognition_failed", StatusRecognitionFailed.String())
	assert.Equal(t, "stale", StatusStale.String())
}
