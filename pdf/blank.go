package pdf

import (
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
)

// paperSizes are the fpdf standard page sizes accepted for padding pages.
var paperSizes = []string{"A3", "A4", "A5", "Letter", "Legal"}

// ValidatePaperSize reports whether size is a known paper size name.
func ValidatePaperSize(size string) error {
	for _, s := range paperSizes {
		if strings.EqualFold(s, size) {
			return nil
		}
	}
	return fmt.Errorf("unknown paper size %q (want one of %s)", size, strings.Join(paperSizes, ", "))
}

// writeBlankPage writes a one-page PDF with nothing on the page.
func writeBlankPage(dst, paper string) error {
	doc := fpdf.New("P", "pt", paper, "")
	doc.SetCreator("petprint", true)
	doc.AddPage()
	if err := doc.OutputFileAndClose(dst); err != nil {
		return fmt.Errorf("failed to write blank page: %w", err)
	}
	return nil
}
