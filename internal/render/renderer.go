package render

import (
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/rs/zerolog/log"
)

// PageCount returns the number of pages of the PDF at path. pdfcpu parses
// the document structure, so a failure here doubles as a cheap validity
// check before any rasterization starts.
func PageCount(path string) (int, error) {
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("pdf page count failed: %w", err)
	}
	return n, nil
}

// Document wraps an open MuPDF document for page rasterization.
type Document struct {
	doc *fitz.Document
}

// Open opens the PDF at path.
func Open(path string) (*Document, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	return &Document{doc: doc}, nil
}

// NumPages returns the page count of the open document.
func (d *Document) NumPages() int { return d.doc.NumPage() }

// Render rasterizes page i (0-based) at the given DPI.
func (d *Document) Render(i, dpi int) (image.Image, error) {
	img, err := d.doc.ImageDPI(i, float64(dpi))
	if err != nil {
		return nil, fmt.Errorf("failed to render page %d: %w", i+1, err)
	}

	bounds := img.Bounds()
	log.Debug().
		Int("page", i+1).
		Int("width", bounds.Dx()).
		Int("height", bounds.Dy()).
		Int("dpi", dpi).
		Msg("rendered page")

	return img, nil
}

// Close releases the underlying document.
func (d *Document) Close() error { return d.doc.Close() }

// SavePNG encodes img as PNG at path.
func SavePNG(img image.Image, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create image file: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode PNG: %w", err)
	}
	return f.Close()
}
