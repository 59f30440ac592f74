package support

import (
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/cucumber/godog"
	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/pogo-pad/internal/server"
	"github.com/MeKo-Tech/pogo-pad/internal/session"
)

// RegisterServerSteps registers steps that talk to the session server.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the session server is running$`, testCtx.theSessionServerIsRunning)
	sc.Step(`^I request "([^"]*)"$`, testCtx.iRequest)
	sc.Step(`^I request the overlay of the client session$`, testCtx.iRequestTheOverlay)
	sc.Step(`^the HTTP status is (\d+)$`, testCtx.theHTTPStatusIs)
	sc.Step(`^the response contains "([^"]*)"$`, testCtx.theResponseContains)
	sc.Step(`^the response is a PNG image$`, testCtx.theResponseIsAPNG)

	sc.Step(`^a client connects$`, testCtx.aClientConnects)
	sc.Step(`^the client sends "([^"]*)"$`, testCtx.theClientSends)
	sc.Step(`^the client opens "([^"]*)"$`, testCtx.theClientOpens)
	sc.Step(`^the client clicks the center of line (\d+) of "([^"]*)"$`, testCtx.theClientClicks)
	sc.Step(`^the client receives a recognition of (\d+) regions?$`, testCtx.theClientReceivesARecognition)
	sc.Step(`^the client receives an? "([^"]*)" reply$`, testCtx.theClientReceivesAReply)
	sc.Step(`^the reply status is "([^"]*)"$`, testCtx.theReplyStatusIs)
	sc.Step(`^the reply buffer is "([^"]*)"$`, testCtx.theReplyBufferIs)
	sc.Step(`^the server has (\d+) sessions?$`, testCtx.theServerHasSessions)
}

func (testCtx *TestContext) theSessionServerIsRunning() error {
	padServer, err := server.NewServer(server.Config{OverlayEnabled: true}, func() *session.Session {
		return testCtx.newSession()
	}, testCtx.Adapter)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	padServer.SetupRoutes(mux)
	testCtx.PadServer = padServer
	testCtx.HTTPServer = httptest.NewServer(mux)
	return nil
}

func (testCtx *TestContext) requireServer() error {
	if testCtx.HTTPServer == nil {
		return errors.New("session server is not running")
	}
	return nil
}

func (testCtx *TestContext) iRequest(path string) error {
	if err := testCtx.requireServer(); err != nil {
		return err
	}
	resp, err := http.Get(testCtx.HTTPServer.URL + path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	testCtx.LastHTTPStatusCode = resp.StatusCode
	testCtx.LastHTTPResponse = string(body)
	testCtx.LastHTTPHeaders = make(map[string]string)
	for k, v := range resp.Header {
		if len(v) > 0 {
			testCtx.LastHTTPHeaders[k] = v[0]
		}
	}
	return nil
}

func (testCtx *TestContext) iRequestTheOverlay() error {
	return testCtx.iRequest("/overlay?session=" + testCtx.SessionID)
}

func (testCtx *TestContext) theHTTPStatusIs(code int) error {
	if testCtx.LastHTTPStatusCode != code {
		return fmt.Errorf("expected HTTP status %d, got %d: %s", code, testCtx.LastHTTPStatusCode, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseContains(text string) error {
	if !strings.Contains(testCtx.LastHTTPResponse, text) {
		return fmt.Errorf("expected response to contain %q, got: %s", text, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseIsAPNG() error {
	if ct := testCtx.LastHTTPHeaders["Content-Type"]; ct != "image/png" {
		return fmt.Errorf("expected image/png, got %q", ct)
	}
	if _, err := png.Decode(strings.NewReader(testCtx.LastHTTPResponse)); err != nil {
		return fmt.Errorf("response is not a PNG: %w", err)
	}
	return nil
}

func (testCtx *TestContext) aClientConnects() error {
	if err := testCtx.requireServer(); err != nil {
		return err
	}
	url := "ws" + strings.TrimPrefix(testCtx.HTTPServer.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	testCtx.Conn = conn

	if err := testCtx.theClientReceivesAReply(server.MsgSession); err != nil {
		return err
	}
	testCtx.SessionID = testCtx.LastMessage.Session
	return nil
}

func (testCtx *TestContext) send(msg server.ClientMessage) error {
	if testCtx.Conn == nil {
		return errors.New("no client connected")
	}
	return testCtx.Conn.WriteJSON(msg)
}

func (testCtx *TestContext) readMessage() (server.ServerMessage, error) {
	var msg server.ServerMessage
	if err := testCtx.Conn.SetReadDeadline(time.Now().Add(10 * time.Second)); err != nil {
		return msg, err
	}
	_, data, err := testCtx.Conn.ReadMessage()
	if err != nil {
		return msg, fmt.Errorf("failed to read message: %w", err)
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, fmt.Errorf("invalid message %s: %w", data, err)
	}
	return msg, nil
}

func (testCtx *TestContext) theClientSends(msgType string) error {
	return testCtx.send(server.ClientMessage{Type: msgType})
}

func (testCtx *TestContext) theClientOpens(name string) error {
	return testCtx.send(server.ClientMessage{Type: server.MsgOpen, Path: testCtx.Path(name)})
}

func (testCtx *TestContext) theClientClicks(line int, name string) error {
	scan, err := testCtx.scan(name)
	if err != nil {
		return err
	}
	if line < 1 || line > len(scan.Boxes) {
		return fmt.Errorf("scan %q has %d lines", name, len(scan.Boxes))
	}
	x, y := scan.Center(line - 1)
	return testCtx.send(server.ClientMessage{Type: server.MsgClick, X: x, Y: y})
}

// theClientReceivesAReply reads messages until one of msgType arrives.
func (testCtx *TestContext) theClientReceivesAReply(msgType string) error {
	for i := 0; i < 10; i++ {
		msg, err := testCtx.readMessage()
		if err != nil {
			return err
		}
		testCtx.LastMessage = msg
		if msg.Type == msgType {
			return nil
		}
	}
	return fmt.Errorf("no %q message received", msgType)
}

func (testCtx *TestContext) theClientReceivesARecognition(n int) error {
	if err := testCtx.theClientReceivesAReply(server.MsgOCR); err != nil {
		return err
	}
	if testCtx.LastMessage.Outcome != "recognized" {
		return fmt.Errorf("expected a recognition, got %q: %s", testCtx.LastMessage.Outcome, testCtx.LastMessage.Error)
	}
	if got := len(testCtx.LastMessage.Regions); got != n {
		return fmt.Errorf("expected %d regions, got %d", n, got)
	}
	return nil
}

func (testCtx *TestContext) theReplyStatusIs(status string) error {
	if testCtx.LastMessage.Status != status {
		return fmt.Errorf("expected reply status %q, got %q", status, testCtx.LastMessage.Status)
	}
	return nil
}

// theReplyBufferIs compares against buffer with \n escapes expanded.
func (testCtx *TestContext) theReplyBufferIs(buffer string) error {
	buffer = strings.ReplaceAll(buffer, `\n`, "\n")
	if testCtx.LastMessage.Buffer != buffer {
		return fmt.Errorf("expected buffer %q, got %q", buffer, testCtx.LastMessage.Buffer)
	}
	return nil
}

func (testCtx *TestContext) theServerHasSessions(n int) error {
	if got := testCtx.PadServer.SessionCount(); got != n {
		return fmt.Errorf("expected %d sessions, got %d", n, got)
	}
	return nil
}
