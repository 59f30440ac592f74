package support

import (
	"errors"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"

	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/pogo-pad/internal/recognition"
	"github.com/MeKo-Tech/pogo-pad/internal/regions"
	"github.com/MeKo-Tech/pogo-pad/internal/server"
	"github.com/MeKo-Tech/pogo-pad/internal/session"
	"github.com/MeKo-Tech/pogo-pad/internal/store"
	"github.com/MeKo-Tech/pogo-pad/internal/testutil"
)

// TestContext holds the state of one scenario.
type TestContext struct {
	// Test environment
	TempDir string
	Scans   map[string]testutil.Scan
	Adapter *recognition.Adapter
	Session *session.Session

	// Last session call
	LastAccepted int
	LastOutcome  session.Outcome
	LastSaved    string
	LastError    error

	// Server state
	HTTPServer *httptest.Server
	PadServer  *server.Server
	Conn       *websocket.Conn
	SessionID  string

	// Last responses
	LastHTTPStatusCode int
	LastHTTPResponse   string
	LastHTTPHeaders    map[string]string
	LastMessage        server.ServerMessage
}

// NewTestContext creates a scenario context with its own temp directory and a
// session backed by the sidecar engine.
func NewTestContext() (*TestContext, error) {
	tempDir, err := os.MkdirTemp("", "pogo-pad-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	adapter := recognition.NewAdapter(recognition.NewSidecarEngine(), recognition.NewDecoder(1), recognition.AdapterOptions{})
	testCtx := &TestContext{
		TempDir: tempDir,
		Scans:   make(map[string]testutil.Scan),
		Adapter: adapter,
	}
	testCtx.Session = testCtx.newSession()
	return testCtx, nil
}

func (testCtx *TestContext) newSession() *session.Session {
	return session.New(testCtx.Adapter, session.Options{
		DuplicatePolicy: regions.KeepLast,
		Saver:           store.NewFileStore(testCtx.TempDir),
	})
}

// Path resolves a scenario file name inside the temp directory.
func (testCtx *TestContext) Path(name string) string {
	return filepath.Join(testCtx.TempDir, name)
}

// scan returns the generated scan called name.
func (testCtx *TestContext) scan(name string) (testutil.Scan, error) {
	s, ok := testCtx.Scans[name]
	if !ok {
		return testutil.Scan{}, fmt.Errorf("no scan named %q in this scenario", name)
	}
	return s, nil
}

// Cleanup closes connections and removes the temp directory.
func (testCtx *TestContext) Cleanup() error {
	var errs []error
	if testCtx.Conn != nil {
		if err := testCtx.Conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close websocket: %w", err))
		}
		testCtx.Conn = nil
	}
	if testCtx.HTTPServer != nil {
		testCtx.HTTPServer.Close()
		testCtx.HTTPServer = nil
	}
	if err := testCtx.Adapter.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := os.RemoveAll(testCtx.TempDir); err != nil {
		errs = append(errs, fmt.Errorf("failed to remove %s: %w", testCtx.TempDir, err))
	}
	return errors.Join(errs...)
}
