package docbuild

import (
	"fmt"
	"os"

	docx "github.com/fumiama/go-docx"
	"github.com/rs/zerolog/log"
)

// FromImages assembles rendered page images into a Word document at
// outPath. Each image gets its own paragraph, with an explicit page break
// between consecutive pages, so the output page order follows the input
// slice order. Oversized images are scaled down to page width by the
// drawing layer.
func FromImages(imagePaths []string, outPath string) error {
	if len(imagePaths) == 0 {
		return fmt.Errorf("no page images to assemble")
	}

	doc := docx.New().WithDefaultTheme()
	for i, p := range imagePaths {
		para := doc.AddParagraph()
		if _, err := para.AddInlineDrawingFrom(p); err != nil {
			return fmt.Errorf("embed page %d: %w", i+1, err)
		}
		if i < len(imagePaths)-1 {
			doc.AddParagraph().AddPageBreaks()
		}
	}

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create output document: %w", err)
	}
	if _, err := doc.WriteTo(f); err != nil {
		f.Close()
		os.Remove(outPath)
		return fmt.Errorf("write document: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(outPath)
		return fmt.Errorf("close document: %w", err)
	}

	log.Debug().Int("pages", len(imagePaths)).Str("out", outPath).Msg("assembled document")
	return nil
}
