package pdftest

import (
	"bytes"
	"fmt"
	"os"
	"strings"
)

// MinimalPDF builds a small but fully valid PDF with the given number of
// pages. Each page carries one content stream painting a gray rectangle so
// renderers have something to rasterize. The cross-reference table is
// computed from real byte offsets, which keeps strict parsers happy.
func MinimalPDF(pages int) []byte {
	if pages < 1 {
		pages = 1
	}

	var buf bytes.Buffer
	var offsets []int
	addObj := func(body string) {
		offsets = append(offsets, buf.Len())
		buf.WriteString(body)
	}

	buf.WriteString("%PDF-1.4\n")

	kids := make([]string, pages)
	for i := range kids {
		kids[i] = fmt.Sprintf("%d 0 R", 3+2*i)
	}
	addObj("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	addObj(fmt.Sprintf("2 0 obj\n<< /Type /Pages /Kids [%s] /Count %d >>\nendobj\n",
		strings.Join(kids, " "), pages))

	content := "0.2 0.2 0.2 rg\n100 100 120 60 re f\n"
	for i := 0; i < pages; i++ {
		pageObj := 3 + 2*i
		contentObj := pageObj + 1
		addObj(fmt.Sprintf("%d 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> /Contents %d 0 R >>\nendobj\n",
			pageObj, contentObj))
		addObj(fmt.Sprintf("%d 0 obj\n<< /Length %d >>\nstream\n%sendstream\nendobj\n",
			contentObj, len(content), content))
	}

	xrefOff := buf.Len()
	size := len(offsets) + 1
	fmt.Fprintf(&buf, "xref\n0 %d\n", size)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", size, xrefOff)
	return buf.Bytes()
}

// WriteFile writes a minimal PDF with the given page count to path.
func WriteFile(path string, pages int) error {
	return os.WriteFile(path, MinimalPDF(pages), 0o644)
}
