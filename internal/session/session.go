// Package session is the context object that ties the file stack, region
// index, recognizer, editor buffer and saver together. UI front ends translate
// their events into calls on a Session.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MeKo-Tech/pogo-pad/internal/editor"
	"github.com/MeKo-Tech/pogo-pad/internal/files"
	"github.com/MeKo-Tech/pogo-pad/internal/recognition"
	"github.com/MeKo-Tech/pogo-pad/internal/regions"
	"github.com/MeKo-Tech/pogo-pad/internal/store"
)

// Recognizer produces regions for an input file.
type Recognizer interface {
	Recognize(ctx context.Context, path string) ([]regions.Region, error)
}

// ResultCache exposes the most recent recognition result, every detection
// included. The recognition Adapter implements it.
type ResultCache interface {
	LastResult() (string, []regions.Region, bool)
}

// Status classifies the outcome of a recognition request.
type Status int

const (
	// StatusSkipped means no recognition was requested.
	StatusSkipped Status = iota
	// StatusRecognized means the index now holds the regions of the current file.
	StatusRecognized
	// StatusNoCurrentFile means the stack was empty; the index is empty.
	StatusNoCurrentFile
	// StatusDecodeFailed means the input could not be decoded; the index is empty.
	StatusDecodeFailed
	// StatusRecognitionFailed means the engine failed; the index is empty.
	StatusRecognitionFailed
	// StatusStale means a newer request superseded this result; nothing changed.
	StatusStale
)

func (s Status) String() string {
	switch s {
	case StatusRecognized:
		return "recognized"
	case StatusNoCurrentFile:
		return "no_current_file"
	case StatusDecodeFailed:
		return "decode_failed"
	case StatusRecognitionFailed:
		return "recognition_failed"
	case StatusStale:
		return "stale"
	default:
		return "skipped"
	}
}

// Outcome reports what a recognition request did to the session.
type Outcome struct {
	Status  Status
	Path    string
	Regions int
	Err     error
}

// Failed reports whether the outcome carries an error for the user.
func (o Outcome) Failed() bool { return o.Err != nil }

// Result is a finished recognition waiting to be applied.
type Result struct {
	Ticket   uint64
	Path     string
	Regions  []regions.Region
	Err      error
	Duration time.Duration
}

// Options configures a Session.
type Options struct {
	DuplicatePolicy regions.DuplicatePolicy
	Saver           store.Saver
	Logger          *slog.Logger

	// Cache is read by DumpAll. When nil, the Recognizer is used if it
	// implements ResultCache.
	Cache ResultCache
}

// Session holds the state of one editing session. It is owned by a single
// goroutine: every method except the goroutine started by StartRecognize must
// be called from the owner.
type Session struct {
	files  *files.Stack
	index  *regions.Index
	rec    Recognizer
	cache  ResultCache
	buf    *editor.Buffer
	saver  store.Saver
	logger *slog.Logger

	// ticket is the most recently issued recognition ticket.
	ticket      uint64
	indexedPath string
}

// New creates a session around rec. A nil Saver writes to the working directory.
func New(rec Recognizer, opts Options) *Session {
	if opts.Saver == nil {
		opts.Saver = store.NewFileStore("")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Cache == nil {
		opts.Cache, _ = rec.(ResultCache)
	}
	return &Session{
		files:  files.NewStack(),
		index:  regions.NewIndex(opts.DuplicatePolicy),
		rec:    rec,
		cache:  opts.Cache,
		buf:    editor.New(),
		saver:  opts.Saver,
		logger: opts.Logger,
	}
}

// Push adds paths to the file stack without recognizing anything and returns
// how many were accepted.
func (s *Session) Push(paths ...string) int {
	n := s.files.PushAll(paths)
	if rejected := len(paths) - n; rejected > 0 {
		s.logger.Debug("ignored unsupported files", "rejected", rejected)
	}
	return n
}

// Drop handles a drop of one or more paths. When any path is accepted the new
// current file is recognized once.
func (s *Session) Drop(ctx context.Context, paths []string) (int, Outcome) {
	n := s.Push(paths...)
	if n == 0 {
		return 0, Outcome{}
	}
	return n, s.Recognize(ctx)
}

// Open handles the open command: push, clear the editor, recognize.
func (s *Session) Open(ctx context.Context, path string) (bool, Outcome) {
	if s.Push(path) == 0 {
		return false, Outcome{}
	}
	s.buf.Clear()
	return true, s.Recognize(ctx)
}

// Recognize re-runs recognition on the current file and applies the result.
func (s *Session) Recognize(ctx context.Context) Outcome {
	ticket, path := s.begin()
	return s.Apply(s.run(ctx, ticket, path))
}

// StartRecognize runs recognition on the current file in a new goroutine. The
// returned channel yields exactly one Result; the owner passes it to Apply.
func (s *Session) StartRecognize(ctx context.Context) <-chan Result {
	ticket, path := s.begin()
	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		ch <- s.run(ctx, ticket, path)
	}()
	return ch
}

// Apply installs a finished result into the index. A result whose ticket is
// older than the latest request, or whose path is no longer the current file,
// is discarded.
func (s *Session) Apply(res Result) Outcome {
	current := s.currentPath()
	if res.Ticket != s.ticket || res.Path != current {
		staleResultsTotal.Inc()
		s.logger.Debug("discarding stale recognition result",
			"ticket", res.Ticket, "latest", s.ticket, "path", res.Path, "current", current)
		return Outcome{Status: StatusStale, Path: res.Path}
	}

	out := Outcome{Path: res.Path, Err: res.Err}
	var decErr *recognition.DecodeError
	switch {
	case res.Path == "":
		out.Status = StatusNoCurrentFile
	case res.Err == nil:
		out.Status = StatusRecognized
	case errors.As(res.Err, &decErr):
		out.Status = StatusDecodeFailed
	default:
		out.Status = StatusRecognitionFailed
	}

	if out.Status == StatusRecognized {
		s.index.Rebuild(res.Regions)
		s.indexedPath = res.Path
		out.Regions = s.index.Len()
	} else {
		s.index.Reset()
		s.indexedPath = ""
	}

	recognitionsTotal.WithLabelValues(out.Status.String()).Inc()
	if res.Duration > 0 {
		recognitionDuration.Observe(res.Duration.Seconds())
	}
	if out.Err != nil {
		s.logger.Warn("recognition failed", "path", res.Path, "status", out.Status.String(), "error", out.Err)
	} else {
		s.logger.Info("recognition applied", "path", res.Path, "regions", out.Regions)
	}
	return out
}

// Click hit-tests (x, y) and appends the text of the first containing region
// to the editor, without a separator.
func (s *Session) Click(x, y int) (string, bool) {
	if !s.indexCurrent() {
		hitTestsTotal.WithLabelValues("miss").Inc()
		return "", false
	}
	text, ok := s.index.HitTest(x, y)
	if !ok {
		hitTestsTotal.WithLabelValues("miss").Inc()
		return "", false
	}
	hitTestsTotal.WithLabelValues("hit").Inc()
	s.buf.Append(text)
	return text, true
}

// DumpAll appends the text of every region recognized in the current file,
// one per line, and returns how many were appended. Regions come from the
// recognition cache in engine order, duplicates included; the index is used
// when the cache holds another file.
func (s *Session) DumpAll() int {
	if !s.indexCurrent() {
		return 0
	}
	regs := s.index.Regions()
	if s.cache != nil {
		if path, cached, ok := s.cache.LastResult(); ok && path == s.indexedPath {
			regs = cached
		}
	}
	s.buf.AppendAll(regs)
	return len(regs)
}

// Clear empties the editor.
func (s *Session) Clear() { s.buf.Clear() }

// Save writes the editor contents to name, or to the default name derived
// from the current file when name is empty.
func (s *Session) Save(ctx context.Context, name string) (string, error) {
	if name == "" {
		name = store.DefaultName(s.currentPath())
	}
	contents := s.buf.Contents()
	loc, err := s.saver.Save(ctx, name, strings.NewReader(contents), int64(len(contents)))
	if err != nil {
		savesTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("save %s: %w", name, err)
	}
	savesTotal.WithLabelValues("success").Inc()
	s.logger.Info("saved editor contents", "location", loc, "bytes", len(contents))
	return loc, nil
}

// Current returns the current input file.
func (s *Session) Current() (string, bool) {
	f, ok := s.files.Current()
	return f.Path(), ok
}

// Files returns every accepted path, oldest first.
func (s *Session) Files() []string {
	fs := s.files.Files()
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.Path()
	}
	return out
}

// Regions returns the indexed regions and the file they belong to.
func (s *Session) Regions() (string, []regions.Region) {
	return s.indexedPath, s.index.Regions()
}

// Text returns the editor contents.
func (s *Session) Text() string { return s.buf.Contents() }

// SuggestedName is the name Save uses when given none.
func (s *Session) SuggestedName() string { return store.DefaultName(s.currentPath()) }

func (s *Session) currentPath() string {
	path, _ := s.Current()
	return path
}

// indexCurrent reports whether the index belongs to the current file.
func (s *Session) indexCurrent() bool {
	return s.indexedPath != "" && s.indexedPath == s.currentPath()
}

// begin issues a new ticket for the current file. Regions of any other file
// are dropped so nothing resolves against them while the result is pending.
func (s *Session) begin() (uint64, string) {
	s.ticket++
	path := s.currentPath()
	if path != s.indexedPath {
		s.index.Reset()
		s.indexedPath = ""
	}
	return s.ticket, path
}

func (s *Session) run(ctx context.Context, ticket uint64, path string) Result {
	res := Result{Ticket: ticket, Path: path}
	if path == "" {
		return res
	}
	start := time.Now()
	res.Regions, res.Err = s.rec.Recognize(ctx, path)
	res.Duration = time.Since(start)
	return res
}
