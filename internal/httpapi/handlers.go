package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"

	"github.com/book-expert/tts-gateway/internal/core"
	"github.com/book-expert/tts-gateway/internal/synth"
)

// Request size limits.
const (
	maxInferenceBodyBytes = 1 << 20  // 1 MiB of JSON is already absurd
	maxBatchUploadBytes   = 32 << 20 // workbook plus form fields
)

// Multipart field names. Both upload names are accepted.
const (
	formFieldData      = "data"
	formFieldExcelFile = "excel_file"
	formFieldFile      = "file"
)

const (
	contentTypeJSON = "application/json"
	contentTypeWAV  = "audio/wav"
	contentTypeZip  = "application/zip"
)

// Error bodies never leak synthesis internals; the detail goes to the log.
const (
	msgInferenceFailed = "error during inference"
	msgBadUpload       = "missing necessary parameter: excel_file"
)

const (
	logFmtClientError   = "Rejected request: %v"
	logFmtInternalError = "Inference failed: %v"
	logFmtHealthFailed  = "Engine health check failed: %v"
)

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status string `json:"status"`
}

// writeJSON serializes v with the given status. Encoding failures are logged
// and otherwise dropped; the status line is already on the wire.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		s.log.Error("Failed to encode response: %v", err)
	}
}

// writeError maps the error taxonomy onto HTTP statuses: parameter problems
// are the client's fault, everything else is an opaque 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	if core.IsMissingParameter(err) || errors.Is(err, core.ErrInvalidParameter) {
		s.log.Warn(logFmtClientError, err)
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})

		return
	}

	s.log.Error(logFmtInternalError, err)
	s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: msgInferenceFailed})
}

// serveArtifact streams a finished artifact back to the client. The download
// name is the artifact's own base name, which carries any caller-requested
// rename.
func (s *Server) serveArtifact(
	w http.ResponseWriter,
	r *http.Request,
	path, contentType string,
) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filepath.Base(path)+`"`)

	http.ServeFile(w, r, path)
}

func (s *Server) handleInference(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxInferenceBodyBytes))
	if err != nil {
		s.writeError(w, err)

		return
	}

	req, err := synth.DecodeRequest(body)
	if err != nil {
		s.log.Warn(logFmtClientError, err)
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})

		return
	}

	path, err := s.service.Synthesize(r.Context(), req)
	if err != nil {
		s.writeError(w, err)

		return
	}

	defer s.service.Artifacts().CleanupFunc(path)()

	s.serveArtifact(w, r, path, contentTypeWAV)
}

func (s *Server) handleBatchInference(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBatchUploadBytes)

	err := r.ParseMultipartForm(maxBatchUploadBytes)
	if err != nil {
		s.log.Warn(logFmtClientError, err)
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})

		return
	}

	req, err := synth.DecodeRequest([]byte(r.FormValue(formFieldData)))
	if err != nil {
		s.log.Warn(logFmtClientError, err)
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})

		return
	}

	upload, _, err := r.FormFile(formFieldExcelFile)
	if err != nil {
		upload, _, err = r.FormFile(formFieldFile)
	}

	if err != nil {
		s.log.Warn(logFmtClientError, err)
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgBadUpload})

		return
	}

	defer func() { _ = upload.Close() }()

	rows, err := synth.ReadBatchSheet(upload)
	if err != nil {
		s.log.Warn(logFmtClientError, err)
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})

		return
	}

	result, err := s.service.SynthesizeBatch(r.Context(), req, rows)
	if err != nil {
		s.writeError(w, err)

		return
	}

	defer s.service.Artifacts().CleanupFunc(result.ZipPath)()
	defer s.service.Artifacts().CleanupFunc(result.RowDir)()

	s.serveArtifact(w, r, result.ZipPath, contentTypeZip)
}

func (s *Server) handleCharacters(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string][]string{
		"characters": s.service.Characters(),
	})
}

// modelListing groups the discovered weight files by kind and speaker.
type modelListing struct {
	GPT    map[string]map[string]string `json:"gpt"`
	Sovits map[string]map[string]string `json:"sovits"`
}

func (s *Server) listing() modelListing {
	return modelListing{
		GPT:    s.gptCatalog.ModelsBySpeaker(),
		Sovits: s.sovitsCatalog.ModelsBySpeaker(),
	}
}

func (s *Server) handleModels(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.listing())
}

func (s *Server) handleModelsRefresh(w http.ResponseWriter, _ *http.Request) {
	err := s.gptCatalog.Refresh()
	if err != nil {
		s.writeError(w, err)

		return
	}

	err = s.sovitsCatalog.Refresh()
	if err != nil {
		s.writeError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, s.listing())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	err := s.health.HealthCheck(r.Context())
	if err != nil {
		s.log.Warn(logFmtHealthFailed, err)
		s.writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unhealthy"})

		return
	}

	s.writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	page, err := webFS.ReadFile("web/index.html")
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	_, writeErr := w.Write(page)
	if writeErr != nil {
		s.log.Error("Failed to write index page: %v", writeErr)
	}
}
