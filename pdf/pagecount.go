package pdf

import (
	"fmt"

	lpdf "github.com/ledongthuc/pdf"
)

// ReaderCounter counts pages with the ledongthuc/pdf reader. It is more
// forgiving than pdfcpu about some malformed cross-reference tables.
type ReaderCounter struct{}

func (ReaderCounter) PageCount(path string) (n int, err error) {
	// the reader panics on some corrupt inputs
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("failed to read %s: %v", path, r)
		}
	}()

	f, r, err := lpdf.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	return r.NumPage(), nil
}
