// Package engine connects the gateway to the external inference process.
//
// The engine itself is an opaque collaborator reached over HTTP: a sidecar
// that loads weight files on request and synthesizes speech from reference
// audio plus target text. This package provides the HTTP client and the
// process-wide handle that serializes weight swaps.
package engine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/book-expert/tts-gateway/internal/core"
)

// API endpoints and paths.
const (
	apiSetWeights = "/v1/weights"
	apiSynthesize = "/v1/synthesize"
	apiHealth     = "/health"
)

// HTTP headers.
const (
	headerContentType = "Content-Type"
	headerAccept      = "Accept"
	contentTypeJSON   = "application/json"
	contentTypeNDJSON = "application/x-ndjson"
)

// Error messages.
const (
	errFmtServiceErrorWithCode = "inference service error (%s): %s (code: %s)"
	errFmtServiceNonOKStatus   = "inference service returned non-OK status: %s, body: %s"
)

// Static errors.
var (
	// ErrEmptyClip indicates the engine produced a clip with no samples.
	ErrEmptyClip = errors.New("received empty clip")
	// ErrStreamClosed indicates Next was called on a closed clip stream.
	ErrStreamClosed = errors.New("clip stream is closed")
)

// Client is an HTTP client for the inference sidecar. It implements
// core.SynthesisEngine.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// weightsRequest is the JSON payload for weight-swap requests.
type weightsRequest struct {
	Kind core.WeightKind `json:"kind"`
	Path string          `json:"path"`
}

// clipLine is one NDJSON line of a synthesis response: the sample rate and
// the base64-encoded little-endian 16-bit PCM payload of a single clip.
type clipLine struct {
	SampleRate int    `json:"sample_rate"`
	PCM        string `json:"pcm"`
}

// errorResponse is the structured error body of the inference sidecar.
type errorResponse struct {
	Detail    string `json:"detail"`
	ErrorCode string `json:"error_code,omitempty"`
}

// NewClient creates and configures an HTTP client for the inference sidecar.
// The baseURL should include the protocol and port (e.g. "http://localhost:9880").
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SetActiveWeights asks the sidecar to load the weight file at path for the
// given kind, replacing whatever was loaded before.
func (c *Client) SetActiveWeights(ctx context.Context, kind core.WeightKind, path string) error {
	requestBody, err := json.Marshal(weightsRequest{Kind: kind, Path: path})
	if err != nil {
		return fmt.Errorf("failed to marshal weights request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+apiSetWeights,
		bytes.NewBuffer(requestBody),
	)
	if err != nil {
		return fmt.Errorf("failed to create weights request: %w", err)
	}

	httpReq.Header.Set(headerContentType, contentTypeJSON)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send weights request to %s: %w", c.baseURL, err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.parseErrorResponse(resp)
	}

	return nil
}

// Synthesize requests speech generation and returns the lazy clip sequence.
// The sidecar streams NDJSON, one clip per line; the returned stream decodes
// lines on demand and owns the response body.
func (c *Client) Synthesize(ctx context.Context, job core.SynthesisJob) (core.ClipStream, error) {
	requestBody, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal synthesis job: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+apiSynthesize,
		bytes.NewBuffer(requestBody),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create synthesis request: %w", err)
	}

	httpReq.Header.Set(headerContentType, contentTypeJSON)
	httpReq.Header.Set(headerAccept, contentTypeNDJSON)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf(
			"failed to send synthesis request to %s: %w",
			c.baseURL,
			err,
		)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()

		return nil, c.parseErrorResponse(resp)
	}

	return newClipStream(resp.Body), nil
}

// HealthCheck verifies that the inference sidecar is running and operational.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+apiHealth, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed for service at %s: %w", c.baseURL, err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed with status: %s", resp.Status)
	}

	return nil
}

// parseErrorResponse attempts to decode a structured JSON error from the
// sidecar, falling back to the raw body so diagnostics are preserved.
func (c *Client) parseErrorResponse(resp *http.Response) error {
	var errResp errorResponse

	err := json.NewDecoder(resp.Body).Decode(&errResp)
	if err == nil {
		return fmt.Errorf(errFmtServiceErrorWithCode,
			resp.Status, errResp.Detail, errResp.ErrorCode)
	}

	body, _ := io.ReadAll(resp.Body)

	return fmt.Errorf(errFmtServiceNonOKStatus, resp.Status, string(body))
}

// httpClipStream decodes NDJSON clip lines lazily from a response body.
type httpClipStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	closed  bool
}

// Scanner buffer sizing: a clip line can carry several seconds of base64 PCM.
const (
	scannerInitialBuffer = 64 * 1024
	scannerMaxBuffer     = 64 * 1024 * 1024
)

func newClipStream(body io.ReadCloser) *httpClipStream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, scannerInitialBuffer), scannerMaxBuffer)

	return &httpClipStream{
		body:    body,
		scanner: scanner,
		closed:  false,
	}
}

// Next decodes the next clip line. It returns io.EOF when the stream ends.
func (s *httpClipStream) Next() (*core.Clip, error) {
	if s.closed {
		return nil, ErrStreamClosed
	}

	for s.scanner.Scan() {
		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		return decodeClipLine(line)
	}

	scanErr := s.scanner.Err()
	if scanErr != nil {
		return nil, fmt.Errorf("failed to read clip stream: %w", scanErr)
	}

	return nil, io.EOF
}

// Close releases the underlying response body.
func (s *httpClipStream) Close() error {
	if s.closed {
		return nil
	}

	s.closed = true

	closeErr := s.body.Close()
	if closeErr != nil {
		return fmt.Errorf("failed to close clip stream: %w", closeErr)
	}

	return nil
}

// decodeClipLine parses one NDJSON line into a clip, expanding the 16-bit
// little-endian PCM payload into per-sample integers.
func decodeClipLine(line []byte) (*core.Clip, error) {
	var decoded clipLine

	err := json.Unmarshal(line, &decoded)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal clip line: %w", err)
	}

	pcm, err := base64.StdEncoding.DecodeString(decoded.PCM)
	if err != nil {
		return nil, fmt.Errorf("failed to decode clip PCM payload: %w", err)
	}

	if len(pcm) == 0 {
		return nil, ErrEmptyClip
	}

	samples := make([]int, len(pcm)/2)
	for i := range samples {
		samples[i] = int(int16(binary.LittleEndian.Uint16(pcm[2*i:])))
	}

	return &core.Clip{
		SampleRate: decoded.SampleRate,
		Samples:    samples,
	}, nil
}
