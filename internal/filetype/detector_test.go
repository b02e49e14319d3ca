package filetype

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/local/pdf2docx/internal/pdftest"
)

func TestDetectPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.bin") // extension deliberately wrong
	require.NoError(t, pdftest.WriteFile(path, 1))

	d := New()
	info, err := d.Detect(path)
	require.NoError(t, err)
	assert.True(t, info.IsPDF)
	assert.Equal(t, "application/pdf", info.MIMEType)
}

func TestDetectRejectsPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.pdf") // extension lies
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewNRGBA(image.Rect(0, 0, 4, 4))))
	require.NoError(t, f.Close())

	d := New()
	ok, err := d.IsPDF(path)
	require.NoError(t, err)
	assert.False(t, ok, "content detection must ignore the file extension")
}

func TestDetectMissingFile(t *testing.T) {
	d := New()
	_, err := d.Detect(filepath.Join(t.TempDir(), "absent.pdf"))
	assert.Error(t, err)
}
