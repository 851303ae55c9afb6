package httpapi_test

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/book-expert/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/book-expert/tts-gateway/internal/artifact"
	"github.com/book-expert/tts-gateway/internal/catalog"
	"github.com/book-expert/tts-gateway/internal/core"
	"github.com/book-expert/tts-gateway/internal/engine"
	"github.com/book-expert/tts-gateway/internal/httpapi"
	"github.com/book-expert/tts-gateway/internal/preset"
	"github.com/book-expert/tts-gateway/internal/synth"
)

// stubEngine yields a constant clip, or fails on demand.
type stubEngine struct {
	mu   sync.Mutex
	fail bool
	jobs []core.SynthesisJob
}

func (e *stubEngine) SetActiveWeights(_ context.Context, _ core.WeightKind, _ string) error {
	return nil
}

func (e *stubEngine) Synthesize(
	_ context.Context,
	job core.SynthesisJob,
) (core.ClipStream, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.fail {
		return nil, core.ErrSynthesisFailed
	}

	e.jobs = append(e.jobs, job)

	return &stubClipStream{
		clip: &core.Clip{SampleRate: 32000, Samples: []int{10, -10, 20, -20}},
	}, nil
}

type stubClipStream struct {
	clip *core.Clip
}

func (s *stubClipStream) Next() (*core.Clip, error) {
	if s.clip == nil {
		return nil, io.EOF
	}

	clip := s.clip
	s.clip = nil

	return clip, nil
}

func (s *stubClipStream) Close() error { return nil }

// stubHealth reports a fixed engine health state.
type stubHealth struct {
	err error
}

func (h *stubHealth) HealthCheck(_ context.Context) error {
	return h.err
}

type apiFixture struct {
	router      http.Handler
	engine      *stubEngine
	health      *stubHealth
	artifactDir string
	gptRoot     string
	sovitsRoot  string
}

func writeWeightFile(t *testing.T, root, speaker, name string) {
	t.Helper()

	dir := filepath.Join(root, speaker)
	require.NoError(t, os.MkdirAll(dir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("weights"), 0o600))
}

func setupAPI(t *testing.T) *apiFixture {
	t.Helper()

	testLogger, err := logger.New(t.TempDir(), "httpapi-test.log")
	require.NoError(t, err)

	table, err := preset.ParseTable([]byte(`{
		"paimon": {
			"audio_path": "/refs/paimon.wav",
			"ref_text": "前面的区域，以后再来探索吧",
			"ref_language": "中文",
			"gpt_weights": "/models/paimon/gpt.ckpt",
			"sovits_weights": "/models/paimon/sovits.pth"
		}
	}`))
	require.NoError(t, err)

	artifactDir := t.TempDir()

	manager, err := artifact.NewManager(artifactDir, testLogger)
	require.NoError(t, err)

	gptRoot := t.TempDir()
	sovitsRoot := t.TempDir()
	writeWeightFile(t, gptRoot, "paimon", "gpt.ckpt")
	writeWeightFile(t, sovitsRoot, "paimon", "sovits.pth")

	gptCatalog, err := catalog.New(gptRoot)
	require.NoError(t, err)

	sovitsCatalog, err := catalog.New(sovitsRoot)
	require.NoError(t, err)

	stub := &stubEngine{mu: sync.Mutex{}, fail: false, jobs: nil}
	service := synth.NewService(
		table,
		engine.NewHandle(stub, testLogger),
		manager,
		nil,
		testLogger,
	)

	health := &stubHealth{err: nil}
	server := httpapi.NewServer(service, gptCatalog, sovitsCatalog, health, testLogger)

	return &apiFixture{
		router:      server.Router(),
		engine:      stub,
		health:      health,
		artifactDir: artifactDir,
		gptRoot:     gptRoot,
		sovitsRoot:  sovitsRoot,
	}
}

func (f *apiFixture) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()

	recorder := httptest.NewRecorder()
	f.router.ServeHTTP(recorder, req)

	return recorder
}

const inferenceBody = `{
	"character_name": "paimon",
	"text": "你好",
	"text_language": "中文"
}`

func TestInferenceReturnsWAV(t *testing.T) {
	t.Parallel()

	fixture := setupAPI(t)

	req := httptest.NewRequest(
		http.MethodPost, "/api/tts/inference", strings.NewReader(inferenceBody),
	)

	resp := fixture.do(t, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "audio/wav", resp.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(resp.Body.Bytes(), []byte("RIFF")))

	// The artifact was cleaned up once the response was written.
	leftovers, err := os.ReadDir(fixture.artifactDir)
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestInferenceAcceptsStringWrappedBody(t *testing.T) {
	t.Parallel()

	fixture := setupAPI(t)

	wrapped, err := json.Marshal(inferenceBody)
	require.NoError(t, err)

	req := httptest.NewRequest(
		http.MethodPost, "/api/tts/inference", bytes.NewReader(wrapped),
	)

	resp := fixture.do(t, req)
	require.Equal(t, http.StatusOK, resp.Code)
}

func TestInferenceUnknownCharacter(t *testing.T) {
	t.Parallel()

	fixture := setupAPI(t)

	req := httptest.NewRequest(
		http.MethodPost, "/api/tts/inference",
		strings.NewReader(`{"character_name": "nobody", "text": "你好", "text_language": "中文"}`),
	)

	resp := fixture.do(t, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)

	var body map[string]string

	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "missing necessary parameter")
	assert.Contains(t, body["error"], "nobody")
}

func TestInferenceEngineFailureIsOpaque(t *testing.T) {
	t.Parallel()

	fixture := setupAPI(t)
	fixture.engine.fail = true

	req := httptest.NewRequest(
		http.MethodPost, "/api/tts/inference", strings.NewReader(inferenceBody),
	)

	resp := fixture.do(t, req)

	require.Equal(t, http.StatusInternalServerError, resp.Code)

	var body map[string]string

	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "error during inference", body["error"])
}

func buildBatchUpload(t *testing.T, dataField string) (*bytes.Buffer, string) {
	t.Helper()

	workbook := excelize.NewFile()
	sheet := workbook.GetSheetName(0)

	header := []any{"text", "filename"}
	require.NoError(t, workbook.SetSheetRow(sheet, "A1", &header))

	rowOne := []any{"第一句", "one.wav"}
	require.NoError(t, workbook.SetSheetRow(sheet, "A2", &rowOne))

	rowTwo := []any{"第二句", "two.wav"}
	require.NoError(t, workbook.SetSheetRow(sheet, "A3", &rowTwo))

	var sheetBuffer bytes.Buffer

	require.NoError(t, workbook.Write(&sheetBuffer))

	var body bytes.Buffer

	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.WriteField("data", dataField))

	part, err := writer.CreateFormFile("excel_file", "batch.xlsx")
	require.NoError(t, err)

	_, err = part.Write(sheetBuffer.Bytes())
	require.NoError(t, err)

	require.NoError(t, writer.Close())

	return &body, writer.FormDataContentType()
}

func TestBatchInferenceReturnsZip(t *testing.T) {
	t.Parallel()

	fixture := setupAPI(t)

	body, contentType := buildBatchUpload(t, inferenceBody)

	req := httptest.NewRequest(http.MethodPost, "/api/tts/batch_inference", body)
	req.Header.Set("Content-Type", contentType)

	resp := fixture.do(t, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "application/zip", resp.Header().Get("Content-Type"))

	reader, err := zip.NewReader(
		bytes.NewReader(resp.Body.Bytes()), int64(resp.Body.Len()),
	)
	require.NoError(t, err)
	require.Len(t, reader.File, 2)
	assert.Equal(t, "one.wav", reader.File[0].Name)
	assert.Equal(t, "two.wav", reader.File[1].Name)

	leftovers, err := os.ReadDir(fixture.artifactDir)
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestBatchInferenceMissingUpload(t *testing.T) {
	t.Parallel()

	fixture := setupAPI(t)

	var body bytes.Buffer

	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.WriteField("data", inferenceBody))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/tts/batch_inference", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp := fixture.do(t, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "excel_file")
}

func TestCharacters(t *testing.T) {
	t.Parallel()

	fixture := setupAPI(t)

	resp := fixture.do(t, httptest.NewRequest(http.MethodGet, "/api/tts/characters", nil))

	require.Equal(t, http.StatusOK, resp.Code)

	var body map[string][]string

	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, []string{"paimon"}, body["characters"])
}

func TestModelsAndRefresh(t *testing.T) {
	t.Parallel()

	fixture := setupAPI(t)

	resp := fixture.do(t, httptest.NewRequest(http.MethodGet, "/api/tts/models", nil))
	require.Equal(t, http.StatusOK, resp.Code)

	var listing struct {
		GPT    map[string]map[string]string `json:"gpt"`
		Sovits map[string]map[string]string `json:"sovits"`
	}

	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &listing))
	assert.Contains(t, listing.GPT, "paimon")
	assert.Contains(t, listing.Sovits, "paimon")

	// A speaker added after startup appears once refreshed.
	writeWeightFile(t, fixture.gptRoot, "venti", "gpt.ckpt")

	resp = fixture.do(t, httptest.NewRequest(http.MethodPost, "/api/tts/models/refresh", nil))
	require.Equal(t, http.StatusOK, resp.Code)

	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &listing))
	assert.Contains(t, listing.GPT, "venti")
}

func TestHealth(t *testing.T) {
	t.Parallel()

	fixture := setupAPI(t)

	resp := fixture.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "ok")

	fixture.health.err = core.ErrSynthesisFailed

	resp = fixture.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
	assert.Contains(t, resp.Body.String(), "unhealthy")
}

func TestIndexPage(t *testing.T) {
	t.Parallel()

	fixture := setupAPI(t)

	resp := fixture.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, resp.Body.String(), "/api/tts/inference")
}
