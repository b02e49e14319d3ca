package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/local/pdf2docx/internal/docbuild"
	"github.com/local/pdf2docx/internal/metrics"
	"github.com/local/pdf2docx/internal/overlay"
	"github.com/local/pdf2docx/internal/render"
	"github.com/local/pdf2docx/internal/tempfiles"
)

const docxMIME = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// handleConvert accepts a PDF (multipart "file" field, or "source_url"
// reference) and returns the rasterized pages reassembled as a .docx.
// Optional fields: dpi (capped at the configured max), fix_overlay
// (default true).
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	release, ok := s.slots.Allow()
	if !ok {
		metrics.IncConversion("busy")
		writeError(w, http.StatusServiceUnavailable, "server busy, try again later")
		return
	}
	defer release()
	metrics.IncInflight()
	defer metrics.DecInflight()

	start := time.Now()
	uid := strings.ReplaceAll(uuid.NewString(), "-", "")

	var temps tempfiles.Set
	defer temps.RemoveAll()

	inPath, origName, ok := s.intake(w, r, uid, &temps)
	if !ok {
		return
	}

	if fi, err := os.Stat(inPath); err == nil {
		if fi.Size() > s.cfg.Upload.MaxBytes {
			metrics.IncConversion("client_error")
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		metrics.ObserveUploadSize(fi.Size())
	}

	isPDF, err := s.det.IsPDF(inPath)
	if err != nil || !isPDF {
		metrics.IncConversion("client_error")
		writeError(w, http.StatusBadRequest, "only PDF allowed")
		return
	}

	dpi := s.cfg.Render.DefaultDPI
	if v := r.FormValue("dpi"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			dpi = n
		}
	}
	if dpi > s.cfg.Render.MaxDPI {
		dpi = s.cfg.Render.MaxDPI
	}
	fixOverlay := !strings.EqualFold(r.FormValue("fix_overlay"), "false")

	// Structural validation before any rasterization
	pages, err := render.PageCount(inPath)
	if err != nil {
		log.Warn().Err(err).Str("job_id", uid).Msg("invalid pdf")
		metrics.IncConversion("client_error")
		writeError(w, http.StatusBadRequest, "failed opening pdf")
		return
	}

	outDocx, err := s.convert(uid, inPath, dpi, fixOverlay, pages, &temps)
	if err != nil {
		log.Error().Err(err).Str("job_id", uid).Msg("conversion failed")
		metrics.IncConversion("render_error")
		writeError(w, http.StatusInternalServerError, "conversion failed")
		return
	}

	name := strings.TrimSuffix(filepath.Base(origName), filepath.Ext(origName))
	if name == "" || name == "." {
		name = "converted"
	}
	if err := streamFile(w, outDocx, name+".docx"); err != nil {
		// headers already sent; nothing more to report to the client
		log.Error().Err(err).Str("job_id", uid).Msg("response streaming failed")
		return
	}

	metrics.IncConversion("success")
	metrics.ObserveConversion(time.Since(start))
	log.Info().
		Str("job_id", uid).
		Str("file", origName).
		Int("pages", pages).
		Int("dpi", dpi).
		Bool("fix_overlay", fixOverlay).
		Dur("took", time.Since(start)).
		Msg("conversion complete")
}

// intake materializes the source PDF on local disk: either the uploaded
// multipart file or a fetched source_url reference. On failure the HTTP
// error has been written and ok is false.
func (s *Server) intake(w http.ResponseWriter, r *http.Request, uid string, temps *tempfiles.Set) (path, origName string, ok bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		metrics.IncConversion("client_error")
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
		} else {
			writeError(w, http.StatusBadRequest, "invalid multipart form")
		}
		return "", "", false
	}

	file, hdr, err := r.FormFile("file")
	if err == nil {
		defer file.Close()
		dst := filepath.Join(s.cfg.Upload.UploadDir, "conv-"+uid+".pdf")
		out, err := os.Create(dst)
		if err != nil {
			metrics.IncConversion("render_error")
			writeError(w, http.StatusInternalServerError, "cannot save upload")
			return "", "", false
		}
		temps.Add(dst)
		if _, err := io.Copy(out, file); err != nil {
			out.Close()
			metrics.IncConversion("client_error")
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			} else {
				writeError(w, http.StatusBadRequest, "upload read failed")
			}
			return "", "", false
		}
		if err := out.Close(); err != nil {
			metrics.IncConversion("render_error")
			writeError(w, http.StatusInternalServerError, "cannot save upload")
			return "", "", false
		}
		name := hdr.Filename
		if name == "" {
			name = "upload.pdf"
		}
		return dst, name, true
	}

	if ref := r.FormValue("source_url"); ref != "" {
		local, temp, err := s.fetcher.Resolve(r.Context(), ref)
		if err != nil {
			log.Warn().Err(err).Str("ref", ref).Msg("source fetch failed")
			metrics.IncConversion("client_error")
			writeError(w, http.StatusBadGateway, "failed to fetch source")
			return "", "", false
		}
		if temp {
			temps.Add(local)
		}
		return local, filepath.Base(ref), true
	}

	metrics.IncConversion("client_error")
	writeError(w, http.StatusBadRequest, "no file provided")
	return "", "", false
}

// convert renders every page to a PNG and assembles them into a docx.
// All intermediate artifacts are registered with temps.
func (s *Server) convert(uid, inPath string, dpi int, fixOverlay bool, pages int, temps *tempfiles.Set) (string, error) {
	doc, err := render.Open(inPath)
	if err != nil {
		return "", err
	}
	defer doc.Close()

	if n := doc.NumPages(); n != pages {
		log.Warn().Int("pdfcpu", pages).Int("mupdf", n).Str("job_id", uid).Msg("page count mismatch, trusting renderer")
		pages = n
	}

	opts := overlay.Options{
		DarkThreshold: s.cfg.Overlay.DarkThreshold,
		MinAreaRatio:  s.cfg.Overlay.MinAreaRatio,
		KernelSize:    s.cfg.Overlay.KernelSize,
		ContrastPct:   s.cfg.Overlay.ContrastPct,
	}

	imagePaths := make([]string, 0, pages)
	for i := 0; i < pages; i++ {
		img, err := doc.Render(i, dpi)
		if err != nil {
			return "", err
		}
		if fixOverlay {
			cleaned, removed := overlay.Clean(img, opts)
			if removed {
				metrics.IncOverlayRemoved()
			}
			img = cleaned
		}
		imgPath := filepath.Join(s.cfg.Upload.OutDir, fmt.Sprintf("conv-%s_p%d.png", uid, i+1))
		if err := render.SavePNG(img, imgPath); err != nil {
			return "", err
		}
		temps.Add(imgPath)
		imagePaths = append(imagePaths, imgPath)
	}
	metrics.AddPagesRendered(len(imagePaths))

	outDocx := filepath.Join(s.cfg.Upload.OutDir, "conv-"+uid+".docx")
	temps.Add(outDocx)
	if err := docbuild.FromImages(imagePaths, outDocx); err != nil {
		return "", err
	}
	return outDocx, nil
}

// streamFile sends path as a download attachment.
func streamFile(w http.ResponseWriter, path, downloadName string) error {
	f, err := os.Open(path)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "result not available")
		return err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "result not available")
		return err
	}
	w.Header().Set("Content-Type", docxMIME)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", downloadName))
	w.Header().Set("Content-Length", strconv.FormatInt(fi.Size(), 10))
	_, err = io.Copy(w, f)
	return err
}
