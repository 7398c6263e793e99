// Package api exposes the execution engine over HTTP. Handlers are thin
// adapters: they translate wire types, apply deduplication, and call the
// engine.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/iarunsaragadam/isobox/auth"
	"github.com/iarunsaragadam/isobox/events"
	"github.com/iarunsaragadam/isobox/executor"
	"github.com/iarunsaragadam/isobox/model"
	"github.com/iarunsaragadam/isobox/pkg/metrics"
)

// maxTestCaseBody caps the size of a downloaded test case input.
const maxTestCaseBody = 10 * 1024 * 1024

// Engine is the handler's view of the execution engine.
type Engine interface {
	Execute(ctx context.Context, req model.ExecuteRequest) (*model.ExecuteResponse, error)
	Languages() []model.LanguageInfo
}

// TestCaseFile carries a named stdin payload for the test-files endpoint
type TestCaseFile struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// TestCaseURL points at a remote stdin payload for the test-urls endpoint
type TestCaseURL struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// ExecuteWithTestCasesRequest is the body of the test-cases endpoint
type ExecuteWithTestCasesRequest struct {
	Language  string           `json:"language"`
	Code      string           `json:"code"`
	TestCases []model.TestCase `json:"test_cases"`
}

// ExecuteWithTestFilesRequest is the body of the test-files endpoint
type ExecuteWithTestFilesRequest struct {
	Language  string         `json:"language"`
	Code      string         `json:"code"`
	TestFiles []TestCaseFile `json:"test_files"`
}

// ExecuteWithTestURLsRequest is the body of the test-urls endpoint
type ExecuteWithTestURLsRequest struct {
	Language string        `json:"language"`
	Code     string        `json:"code"`
	TestURLs []TestCaseURL `json:"test_urls"`
}

// Handler serves the isobox HTTP API
type Handler struct {
	engine    Engine
	auth      *auth.Service
	dedup     *auth.DedupCache
	publisher *events.Publisher
	client    *http.Client
}

// NewHandler creates a new handler
func NewHandler(engine Engine, authService *auth.Service, dedup *auth.DedupCache, publisher *events.Publisher) *Handler {
	return &Handler{
		engine:    engine,
		auth:      authService,
		dedup:     dedup,
		publisher: publisher,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

// RegisterRoutes registers the API routes
func (h *Handler) RegisterRoutes(router *mux.Router) {
	apiRouter := router.PathPrefix("/api/v1").Subrouter()
	apiRouter.HandleFunc("/execute", h.Execute).Methods("POST")
	apiRouter.HandleFunc("/execute/test-cases", h.ExecuteWithTestCases).Methods("POST")
	apiRouter.HandleFunc("/execute/test-files", h.ExecuteWithTestFiles).Methods("POST")
	apiRouter.HandleFunc("/execute/test-urls", h.ExecuteWithTestURLs).Methods("POST")
	apiRouter.HandleFunc("/languages", h.Languages).Methods("GET")

	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
	router.HandleFunc("/auth/status", h.AuthStatus).Methods("GET")
	router.HandleFunc("/admin/dedup/stats", h.DedupStats).Methods("GET")
}

// Execute handles single-shot and test-case execution requests
func (h *Handler) Execute(w http.ResponseWriter, r *http.Request) {
	var req model.ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	h.run(w, r, req)
}

// ExecuteWithTestCases handles execution requests with explicit test cases
func (h *Handler) ExecuteWithTestCases(w http.ResponseWriter, r *http.Request) {
	var req ExecuteWithTestCasesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	if req.TestCases == nil {
		req.TestCases = []model.TestCase{}
	}
	h.run(w, r, model.ExecuteRequest{Language: req.Language, Code: req.Code, TestCases: req.TestCases})
}

// ExecuteWithTestFiles converts uploaded files into test cases and executes
func (h *Handler) ExecuteWithTestFiles(w http.ResponseWriter, r *http.Request) {
	var req ExecuteWithTestFilesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	testCases := make([]model.TestCase, 0, len(req.TestFiles))
	for _, file := range req.TestFiles {
		testCases = append(testCases, model.TestCase{Name: file.Name, Input: file.Content})
	}
	h.run(w, r, model.ExecuteRequest{Language: req.Language, Code: req.Code, TestCases: testCases})
}

// ExecuteWithTestURLs downloads test case inputs and executes
func (h *Handler) ExecuteWithTestURLs(w http.ResponseWriter, r *http.Request) {
	var req ExecuteWithTestURLsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	testCases := make([]model.TestCase, 0, len(req.TestURLs))
	for _, testURL := range req.TestURLs {
		content, err := h.fetchTestCase(r.Context(), testURL.URL)
		if err != nil {
			writeError(w, http.StatusBadRequest, "test_case_download",
				fmt.Sprintf("failed to download %s: %v", testURL.URL, err))
			return
		}
		testCases = append(testCases, model.TestCase{Name: testURL.Name, Input: content})
	}
	h.run(w, r, model.ExecuteRequest{Language: req.Language, Code: req.Code, TestCases: testCases})
}

// run executes the request through the dedup cache and the engine.
func (h *Handler) run(w http.ResponseWriter, r *http.Request, req model.ExecuteRequest) {
	// Only single-shot requests are deduplicated; test inputs vary per call.
	singleShot := req.TestCases == nil
	if singleShot && h.dedup.Enabled() {
		if cached, ok := h.dedup.Check(req.Language, req.Code); ok {
			metrics.RecordDedupLookup(true)
			writeJSON(w, http.StatusOK, cached)
			return
		}
		metrics.RecordDedupLookup(false)
	}

	response, err := h.engine.Execute(r.Context(), req)
	if err != nil {
		h.writeEngineError(w, req.Language, err)
		return
	}

	recordExecutionMetrics(req.Language, response)

	if singleShot && h.dedup.Enabled() {
		h.dedup.Store(req.Language, req.Code, response)
	}

	h.publisher.PublishExecution(r.Context(), req.Language, response)

	writeJSON(w, http.StatusOK, response)
}

// Languages handles the supported-language enumeration
func (h *Handler) Languages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"languages": h.engine.Languages(),
	})
}

// HealthCheck handles health check requests
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "isobox",
	})
}

// AuthStatus reports the configured strategy and whether this request's
// credentials authenticate.
func (h *Handler) AuthStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"strategy":      h.auth.StrategyName(),
		"authenticated": false,
	}
	if result, err := h.auth.Authenticate(r); err == nil {
		status["authenticated"] = result.Authenticated
		if result.UserID != "" {
			status["user_id"] = result.UserID
		}
	}
	writeJSON(w, http.StatusOK, status)
}

// DedupStats reports dedup cache statistics
func (h *Handler) DedupStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.dedup.Stats())
}

// fetchTestCase downloads one test case input.
func (h *Handler) fetchTestCase(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTestCaseBody))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// writeEngineError maps the engine error taxonomy onto HTTP statuses.
func (h *Handler) writeEngineError(w http.ResponseWriter, language string, err error) {
	var execErr *executor.Error
	if errors.As(err, &execErr) {
		metrics.RecordExecution(language, string(execErr.Kind), 0)
		status := http.StatusInternalServerError
		if execErr.Kind == executor.KindUnsupportedLanguage {
			status = http.StatusBadRequest
		}
		writeError(w, status, string(execErr.Kind), execErr.Error())
		return
	}

	metrics.RecordExecution(language, "internal_error", 0)
	writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
}

func recordExecutionMetrics(language string, response *model.ExecuteResponse) {
	status := "success"
	if response.ExitCode != 0 {
		status = "runtime_error"
	}
	duration := 0.0
	if response.TimeTaken != nil {
		duration = *response.TimeTaken
	}
	metrics.RecordExecution(language, status, duration)

	for _, result := range response.TestResults {
		metrics.RecordTestCaseResult(result.Passed)
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, map[string]string{
		"error":   kind,
		"message": message,
	})
}
