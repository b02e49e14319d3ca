package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveLocalPassthrough(t *testing.T) {
	f := New(t.TempDir())

	p, temp, err := f.Resolve(context.Background(), "/data/in.pdf")
	require.NoError(t, err)
	assert.False(t, temp)
	assert.Equal(t, "/data/in.pdf", p)

	p, temp, err = f.Resolve(context.Background(), "file:///data/in.pdf#page=3")
	require.NoError(t, err)
	assert.False(t, temp)
	assert.Equal(t, "/data/in.pdf", p)
}

func TestResolveHTTPDownload(t *testing.T) {
	payload := []byte("%PDF-1.4 fake body")
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer ts.Close()

	dir := t.TempDir()
	f := New(dir)
	p, temp, err := f.Resolve(context.Background(), ts.URL+"/doc.pdf")
	require.NoError(t, err)
	assert.True(t, temp)
	assert.True(t, strings.HasPrefix(filepath.Base(p), "pdfdl-"))

	got, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestResolveHTTPErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer ts.Close()

	f := New(t.TempDir())
	_, _, err := f.Resolve(context.Background(), ts.URL+"/missing.pdf")
	assert.ErrorContains(t, err, "http 404")
}

func TestResolveInvalidS3URL(t *testing.T) {
	f := New(t.TempDir())
	_, _, err := f.Resolve(context.Background(), "s3://bucket-without-key")
	assert.ErrorContains(t, err, "invalid s3 url")
}
