package pdf

// Item is one source document with the pages chosen from it.
type Item struct {
	Path  string
	Pages []int
}

// Selection maps source documents to their pages. Order is significant: it is
// the order the documents were listed in.
type Selection []Item

// Len returns the number of documents in the selection.
func (s Selection) Len() int { return len(s) }

// Paths returns the source paths in selection order.
func (s Selection) Paths() []string {
	paths := make([]string, len(s))
	for i, item := range s {
		paths[i] = item.Path
	}
	return paths
}

// TotalPages is the number of selected pages before any padding.
func (s Selection) TotalPages() int {
	n := 0
	for _, item := range s {
		n += len(item.Pages)
	}
	return n
}

// Reversed returns a copy of the selection in reverse order.
func (s Selection) Reversed() Selection {
	out := make(Selection, len(s))
	for i, item := range s {
		out[len(s)-1-i] = item
	}
	return out
}
