package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/local/pdf2docx/internal/config"
	"github.com/local/pdf2docx/internal/fetch"
	"github.com/local/pdf2docx/internal/filetype"
	"github.com/local/pdf2docx/internal/limiter"
	"github.com/local/pdf2docx/internal/metrics"
)

// Server owns the HTTP surface of the conversion service.
type Server struct {
	cfg     config.Config
	det     *filetype.Detector
	fetcher *fetch.Fetcher
	slots   *limiter.Slots
}

// New prepares temp directories and constructs the server.
func New(cfg config.Config) (*Server, error) {
	for _, dir := range []string{cfg.Upload.UploadDir, cfg.Upload.OutDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create temp dir %s: %w", dir, err)
		}
	}
	return &Server{
		cfg:     cfg,
		det:     filetype.New(),
		fetcher: fetch.New(cfg.Upload.UploadDir),
		slots:   limiter.New(cfg.Convert.MaxConcurrent),
	}, nil
}

// RegisterRoutes attaches all handlers to mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/convert", s.handleConvert)
	mux.Handle("/metrics", metrics.Handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Status represents the readiness of a subsystem.
type Status struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Summary bundles all subsystem statuses.
type Summary struct {
	UploadDir Status `json:"upload_dir"`
	OutDir    Status `json:"out_dir"`
	Renderer  Status `json:"renderer"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	sum := Summary{
		UploadDir: checkDirWritable(s.cfg.Upload.UploadDir),
		OutDir:    checkDirWritable(s.cfg.Upload.OutDir),
		// MuPDF is linked in; nothing external to probe
		Renderer: Status{OK: true, Message: "Available"},
	}
	code := http.StatusOK
	if !sum.UploadDir.OK || !sum.OutDir.OK {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, sum)
}

func checkDirWritable(dir string) Status {
	probe := filepath.Join(dir, ".probe-"+uuid.NewString())
	f, err := os.Create(probe)
	if err != nil {
		return Status{OK: false, Message: err.Error()}
	}
	f.Close()
	os.Remove(probe)
	return Status{OK: true, Message: "Writable"}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
