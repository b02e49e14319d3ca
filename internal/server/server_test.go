package server

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/local/pdf2docx/internal/config"
	"github.com/local/pdf2docx/internal/pdftest"
)

func newTestServer(t *testing.T, mutate func(*config.Config)) (*httptest.Server, config.Config) {
	t.Helper()
	cfg := config.FromEnv()
	cfg.Upload.UploadDir = t.TempDir()
	cfg.Upload.OutDir = t.TempDir()
	cfg.Render.DefaultDPI = 72
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := New(cfg)
	require.NoError(t, err)
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts, cfg
}

func postMultipart(t *testing.T, url, filename string, content []byte, fields map[string]string) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, url+"/convert", &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func dirEmpty(dir string) bool {
	entries, err := os.ReadDir(dir)
	return err == nil && len(entries) == 0
}

func errorBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out["error"]
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	b, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"status":"ok"}`, string(b))
}

func TestStatusReportsWritableDirs(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	resp, err := http.Get(ts.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var sum Summary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sum))
	assert.True(t, sum.UploadDir.OK)
	assert.True(t, sum.OutDir.OK)
	assert.True(t, sum.Renderer.OK)
}

func TestConvertRejectsGet(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	resp, err := http.Get(ts.URL + "/convert")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestConvertMissingFile(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	resp := postMultipart(t, ts.URL, "", nil, map[string]string{"dpi": "100"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "no file provided", errorBody(t, resp))
}

func TestConvertRejectsNonPDF(t *testing.T) {
	ts, cfg := newTestServer(t, nil)
	resp := postMultipart(t, ts.URL, "notes.pdf", []byte("plain text pretending"), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "only PDF allowed", errorBody(t, resp))

	assert.Eventually(t, func() bool { return dirEmpty(cfg.Upload.UploadDir) },
		2*time.Second, 10*time.Millisecond, "rejected upload must not leave temp files")
}

func TestConvertRejectsOversized(t *testing.T) {
	ts, cfg := newTestServer(t, func(c *config.Config) { c.Upload.MaxBytes = 512 })
	resp := postMultipart(t, ts.URL, "big.pdf", pdftest.MinimalPDF(5), nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	resp.Body.Close()

	assert.Eventually(t, func() bool {
		return dirEmpty(cfg.Upload.UploadDir) && dirEmpty(cfg.Upload.OutDir)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestConvertRejectsCorruptPDF(t *testing.T) {
	ts, cfg := newTestServer(t, nil)
	// has the PDF magic so type detection passes, but no structure
	resp := postMultipart(t, ts.URL, "broken.pdf", []byte("%PDF-1.4\ngarbage"), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "failed opening pdf", errorBody(t, resp))

	assert.Eventually(t, func() bool {
		return dirEmpty(cfg.Upload.UploadDir) && dirEmpty(cfg.Upload.OutDir)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestConvertEndToEnd(t *testing.T) {
	ts, cfg := newTestServer(t, nil)
	const pages = 3

	resp := postMultipart(t, ts.URL, "report.pdf", pdftest.MinimalPDF(pages), map[string]string{"dpi": "72"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, docxMIME, resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), `filename="report.docx"`)

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	require.NoError(t, err)
	media := 0
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, "word/media/") {
			media++
		}
	}
	assert.Equal(t, pages, media, "output document embeds one image per source page")

	assert.Eventually(t, func() bool {
		return dirEmpty(cfg.Upload.UploadDir) && dirEmpty(cfg.Upload.OutDir)
	}, 2*time.Second, 10*time.Millisecond, "all request artifacts removed after streaming")
}

func TestConvertDPIClamped(t *testing.T) {
	ts, _ := newTestServer(t, func(c *config.Config) { c.Render.MaxDPI = 96 })
	// absurd dpi value gets clamped instead of rejected
	resp := postMultipart(t, ts.URL, "one.pdf", pdftest.MinimalPDF(1), map[string]string{"dpi": "5000"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestConvertSourceURL(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(pdftest.MinimalPDF(2))
	}))
	defer origin.Close()

	ts, cfg := newTestServer(t, nil)
	resp := postMultipart(t, ts.URL, "", nil, map[string]string{"source_url": origin.URL + "/remote.pdf"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), `filename="remote.docx"`)

	assert.Eventually(t, func() bool {
		return dirEmpty(cfg.Upload.UploadDir) && dirEmpty(cfg.Upload.OutDir)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestConvertSourceURLFetchFailure(t *testing.T) {
	origin := httptest.NewServer(http.NotFoundHandler())
	defer origin.Close()

	ts, _ := newTestServer(t, nil)
	resp := postMultipart(t, ts.URL, "", nil, map[string]string{"source_url": origin.URL + "/missing.pdf"})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "failed to fetch source", errorBody(t, resp))
}
