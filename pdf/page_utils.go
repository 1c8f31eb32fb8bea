package pdf

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var whitespace = regexp.MustCompile(`\s`)

// ParsePageRange turns a range string such as "1-3,5,8-9" into the 1-based
// page numbers it names, for a document with totalPages pages.
//
// An empty (or all-whitespace) range selects every page. Tokens are either a
// single page or an inclusive "start-end" pair; a reversed pair is rejected.
// Pages outside 1..totalPages are dropped without error. Order and duplicates
// are kept as written, so "1,1" yields page 1 twice.
func ParsePageRange(rangeText string, totalPages int) ([]int, error) {
	compact := whitespace.ReplaceAllString(rangeText, "")
	if compact == "" {
		return AllPages(totalPages), nil
	}

	pages := []int{}
	for _, part := range strings.Split(compact, ",") {
		expanded, err := expandToken(part, totalPages)
		if err != nil {
			return nil, &ParseError{Input: rangeText, Token: part}
		}
		pages = append(pages, expanded...)
	}
	return pages, nil
}

// expandToken expands one comma-separated token, keeping only pages in
// 1..totalPages.
func expandToken(part string, totalPages int) ([]int, error) {
	if !strings.Contains(part, "-") {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		if n < 1 || n > totalPages {
			return nil, nil
		}
		return []int{n}, nil
	}

	bounds := strings.Split(part, "-")
	if len(bounds) != 2 {
		return nil, fmt.Errorf("invalid range: %s", part)
	}
	start, err := strconv.Atoi(bounds[0])
	if err != nil {
		return nil, err
	}
	end, err := strconv.Atoi(bounds[1])
	if err != nil {
		return nil, err
	}
	if start > end {
		return nil, fmt.Errorf("invalid range: start > end (%d > %d)", start, end)
	}

	start = max(start, 1)
	end = min(end, totalPages)
	var out []int
	for i := start; i <= end; i++ {
		out = append(out, i)
	}
	return out, nil
}

// AllPages returns 1..total.
func AllPages(total int) []int {
	if total <= 0 {
		return []int{}
	}
	pages := make([]int, total)
	for i := range pages {
		pages[i] = i + 1
	}
	return pages
}

// ValidatePageNumbers checks if all page numbers are valid for a given total number of pages
func ValidatePageNumbers(pages []int, totalPages int) error {
	for _, page := range pages {
		if page < 1 {
			return fmt.Errorf("page numbers must be positive, got %d", page)
		}
		if page > totalPages {
			return fmt.Errorf("page %d exceeds total pages (%d)", page, totalPages)
		}
	}
	return nil
}

// formatPages renders pages as pdfcpu page selection strings, one per page.
func formatPages(pages []int) []string {
	out := make([]string, len(pages))
	for i, p := range pages {
		out[i] = strconv.Itoa(p)
	}
	return out
}
