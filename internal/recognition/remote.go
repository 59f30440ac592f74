package recognition

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/MeKo-Tech/pogo-pad/internal/regions"
)

const defaultRemoteTimeout = 60 * time.Second

// remoteRegion mirrors one entry of a pogo server's /ocr/image response.
type remoteRegion struct {
	Polygon []struct {
		X float64 `json:"X"`
		Y float64 `json:"Y"`
	} `json:"polygon"`
	Box struct {
		X, Y, W, H int
	} `json:"box"`
	Text          string  `json:"text"`
	RecConfidence float64 `json:"rec_confidence"`
	DetConfidence float64 `json:"det_confidence"`
}

type remoteResponse struct {
	OCR *struct {
		Width   int            `json:"width"`
		Height  int            `json:"height"`
		Regions []remoteRegion `json:"regions"`
	} `json:"ocr"`
	Error string `json:"error"`
}

// RemoteEngine sends the decoded image to a pogo OCR server.
type RemoteEngine struct {
	endpoint string
	language string
	client   *http.Client
}

// NewRemoteEngine targets the server at baseURL, e.g. http://localhost:8080.
func NewRemoteEngine(baseURL string, langs []language.Tag, timeout time.Duration) (*RemoteEngine, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("%w: remote engine needs a server URL", ErrEngineUnavailable)
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid server URL %q", baseURL)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ocr/image"
	if timeout <= 0 {
		timeout = defaultRemoteTimeout
	}
	var lang string
	if len(langs) > 0 {
		base, _ := langs[0].Base()
		lang = base.String()
	}
	return &RemoteEngine{
		endpoint: u.String(),
		language: lang,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

// Name implements Engine.
func (*RemoteEngine) Name() string { return EngineRemote }

// Close implements Engine.
func (e *RemoteEngine) Close() error {
	e.client.CloseIdleConnections()
	return nil
}

// Recognize implements Engine.
func (e *RemoteEngine) Recognize(ctx context.Context, req Request) ([]Detection, error) {
	if req.Image == nil {
		return nil, errors.New("remote engine needs a decoded image")
	}
	body, contentType, err := e.encodeRequest(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEngineUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	var parsed remoteResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := parsed.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, msg)
	}
	if parsed.OCR == nil {
		return nil, errors.New("response carries no ocr result")
	}

	dets := make([]Detection, 0, len(parsed.OCR.Regions))
	for _, r := range parsed.OCR.Regions {
		dets = append(dets, Detection{
			Quad:       remoteQuad(r),
			Text:       r.Text,
			Confidence: r.RecConfidence,
		})
	}
	return dets, nil
}

func (e *RemoteEngine) encodeRequest(req Request) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", "page.png")
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if err := png.Encode(part, req.Image); err != nil {
		return nil, "", fmt.Errorf("encode image: %w", err)
	}
	if e.language != "" {
		if err := mw.WriteField("language", e.language); err != nil {
			return nil, "", fmt.Errorf("write language field: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart body: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}

// remoteQuad prefers the polygon and falls back to the axis-aligned box.
func remoteQuad(r remoteRegion) regions.Quad {
	if len(r.Polygon) == 4 {
		var q regions.Quad
		for i, p := range r.Polygon {
			q[i] = regions.Point{X: p.X, Y: p.Y}
		}
		return q
	}
	return regions.QuadFromRect(regions.Rect{
		Left: r.Box.X, Top: r.Box.Y, Right: r.Box.X + r.Box.W, Bottom: r.Box.Y + r.Box.H,
	})
}
