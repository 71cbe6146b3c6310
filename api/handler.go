package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/tldrapp/scan-summary-service/internal/auth"
	"github.com/tldrapp/scan-summary-service/internal/models"
	"github.com/tldrapp/scan-summary-service/internal/pipeline"
	"github.com/tldrapp/scan-summary-service/internal/scan"
)

const (
	MaxUploadSize = 50 * 1024 * 1024 // 50MB
	Version       = "1.0.0"
)

// Pipeline is the part of the coordinator the API drives
type Pipeline interface {
	Submit(ctx context.Context, doc *models.ScanDocument) (*pipeline.Run, error)
	State() pipeline.State
	LastError() error
	Current() *pipeline.Run
}

// Handler handles HTTP requests for scan summarization
type Handler struct {
	config   *models.Config
	pipeline Pipeline
	loader   *scan.Loader
	board    *ScanBoard
	logger   *slog.Logger
}

// NewHandler creates a new API handler. board must be the presenter the
// pipeline was built with.
func NewHandler(config *models.Config, p Pipeline, loader *scan.Loader, board *ScanBoard, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		config:   config,
		pipeline: p,
		loader:   loader,
		board:    board,
		logger:   logger,
	}
}

// SetupRoutes configures the HTTP routes
func (h *Handler) SetupRoutes() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/api/scans", h.SubmitScan).Methods("POST")
	router.HandleFunc("/api/scans/current", h.CurrentScan).Methods("GET")

	// Health check
	router.HandleFunc("/health", h.Health).Methods("GET")

	return router
}

// SubmitResponse is returned when a scan is accepted
type SubmitResponse struct {
	RunID  string `json:"runId"`
	ScanID string `json:"scanId"`
	Pages  int    `json:"pages"`
}

// SubmitScan accepts a multipart scan and starts a pipeline run
func (h *Handler) SubmitScan(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		h.sendError(w, http.StatusBadRequest, "File too large or invalid form data")
		return
	}
	defer r.MultipartForm.RemoveAll()

	doc, err := h.loader.FromMultipart(r.Context(), r.MultipartForm)
	if err != nil {
		switch {
		case errors.Is(err, scan.ErrNoPages):
			h.sendError(w, http.StatusBadRequest, fmt.Sprintf("No pages provided (use '%s' or '%s' field)", scan.FieldPages, scan.FieldFile))
		case errors.Is(err, scan.ErrUnsupportedFile), errors.Is(err, scan.ErrTooManyPages):
			h.sendError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("failed to read upload", "error", err)
			h.sendError(w, http.StatusInternalServerError, "Failed to read upload")
		}
		return
	}
	if claims, err := auth.GetClaimsFromContext(r.Context()); err == nil {
		doc.Source = "upload:" + claims.UserID
	}

	// the run outlives the request
	run, err := h.pipeline.Submit(context.WithoutCancel(r.Context()), doc)
	if err != nil {
		if errors.Is(err, pipeline.ErrScanInProgress) {
			h.sendError(w, http.StatusConflict, err.Error())
			return
		}
		h.sendError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(SubmitResponse{
		RunID:  run.ID,
		ScanID: run.ScanID,
		Pages:  doc.PageCount(),
	})
}

// CurrentResponse describes what the user currently sees
type CurrentResponse struct {
	State     pipeline.State `json:"state"`
	RunID     string         `json:"runId,omitempty"`
	LastError string         `json:"lastError,omitempty"`
	BoardSnapshot
}

// CurrentScan reports pipeline state and the latest scanned text and summary
func (h *Handler) CurrentScan(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	resp := CurrentResponse{
		State:         h.pipeline.State(),
		BoardSnapshot: h.board.Snapshot(),
	}
	if run := h.pipeline.Current(); run != nil {
		resp.RunID = run.ID
	}
	if err := h.pipeline.LastError(); err != nil {
		resp.LastError = err.Error()
	}

	json.NewEncoder(w).Encode(resp)
}

// HealthResponse represents the health check response structure
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Timestamp string            `json:"timestamp"`
	Uptime    string            `json:"uptime"`
	Memory    MemoryStats       `json:"memory"`
	Tesseract ServiceStatus     `json:"tesseract"`
	Pdftoppm  ServiceStatus     `json:"pdftoppm"`
	Pipeline  string            `json:"pipeline"`
	AI        map[string]string `json:"ai"`
}

// MemoryStats represents memory usage statistics
type MemoryStats struct {
	Allocated string `json:"allocated"`
	Total     string `json:"total"`
	System    string `json:"system"`
}

// ServiceStatus represents the status of a service dependency
type ServiceStatus struct {
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
	Error     string `json:"error,omitempty"`
}

var startTime = time.Now()

// Health endpoint - reports external engines and pipeline state
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	tesseractStatus := checkCommand("tesseract", "--version")
	pdftoppmStatus := checkCommand("pdftoppm", "-v")

	response := HealthResponse{
		Status:    "healthy",
		Version:   Version,
		Timestamp: time.Now().Format(time.RFC3339),
		Uptime:    time.Since(startTime).String(),
		Memory: MemoryStats{
			Allocated: fmt.Sprintf("%.2f MB", float64(m.Alloc)/1024/1024),
			Total:     fmt.Sprintf("%.2f MB", float64(m.TotalAlloc)/1024/1024),
			System:    fmt.Sprintf("%.2f MB", float64(m.Sys)/1024/1024),
		},
		Tesseract: tesseractStatus,
		Pdftoppm:  pdftoppmStatus,
		Pipeline:  h.pipeline.State().String(),
		AI: map[string]string{
			"defaultProvider": h.config.AI.DefaultProvider,
			"ocrEngine":       h.config.OCR.Engine,
		},
	}

	// PDFs are optional; tesseract is only critical when it is the OCR engine
	if h.config.OCR.Engine == "tesseract" && !tesseractStatus.Available {
		response.Status = "degraded"
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	json.NewEncoder(w).Encode(response)
}

// checkCommand verifies an external binary runs and reports its version line
func checkCommand(name string, args ...string) ServiceStatus {
	output, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return ServiceStatus{
			Available: false,
			Error:     name + " not found or not executable",
		}
	}

	version := "unknown"
	lines := strings.Split(string(output), "\n")
	if len(lines) > 0 && strings.TrimSpace(lines[0]) != "" {
		version = strings.TrimSpace(lines[0])
	}

	return ServiceStatus{
		Available: true,
		Version:   version,
	}
}

// sendError sends an error response
func (h *Handler) sendError(w http.ResponseWriter, statusCode int, message string) {
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}
