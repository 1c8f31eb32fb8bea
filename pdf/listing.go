package pdf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Entry is one PDF of a listing together with the user's choices for it.
type Entry struct {
	Name      string
	Path      string
	PageCount int
	Size      int64
	Enabled   bool
	RangeText string
	Err       error // set when the page count could not be read
}

// Listing is the set of PDFs found in a directory. It owns the per-file
// selection state and turns it into a Selection on demand.
type Listing struct {
	Dir     string
	Entries []Entry
	index   map[string]int
}

// ListPDFs lists the PDF files of dir in name order and probes their page
// counts. A file whose count cannot be read stays in the listing with Err set.
func ListPDFs(ctx context.Context, dir string, counter PageCounter) (*Listing, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	l := &Listing{Dir: dir, index: map[string]int{}}
	for _, e := range dirEntries {
		name := e.Name()
		if !strings.HasSuffix(strings.ToLower(name), PDFExtension) {
			continue
		}
		path := filepath.Join(dir, name)

		// os.Stat follows symlinks, so linked PDFs are listed like plain ones
		info, err := os.Stat(path)
		if err != nil {
			log.WithField("file", name).Debugf("skipping: %v", err)
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		l.Entries = append(l.Entries, Entry{Name: name, Path: path, Size: info.Size()})
	}
	sort.Slice(l.Entries, func(i, j int) bool { return l.Entries[i].Name < l.Entries[j].Name })
	for i, e := range l.Entries {
		l.index[e.Name] = i
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(MaxProbeWorkers)
	for i := range l.Entries {
		entry := &l.Entries[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			n, err := counter.PageCount(entry.Path)
			if err != nil {
				log.WithField("file", entry.Name).Warnf("cannot read page count: %v", err)
				entry.Err = err
				return nil
			}
			entry.PageCount = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.WithField("dir", dir).Debugf("listed %d PDF files", len(l.Entries))
	return l, nil
}

// Lookup returns the entry with the given file name.
func (l *Listing) Lookup(name string) (*Entry, error) {
	i, ok := l.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFile, name)
	}
	return &l.Entries[i], nil
}

// Select enables a file with the given range text ("" means all pages).
// Files listed with an error cannot be selected.
func (l *Listing) Select(name, rangeText string) error {
	e, err := l.Lookup(name)
	if err != nil {
		return err
	}
	if e.Err != nil {
		return fmt.Errorf("%s: %w: %w", e.Name, ErrUnreadableFile, e.Err)
	}
	e.Enabled = true
	e.RangeText = rangeText
	return nil
}

// Deselect disables a file and forgets its range text.
func (l *Listing) Deselect(name string) error {
	e, err := l.Lookup(name)
	if err != nil {
		return err
	}
	e.Enabled = false
	e.RangeText = ""
	return nil
}

// SelectAll enables every readable file with all of its pages.
func (l *Listing) SelectAll() {
	for i := range l.Entries {
		if l.Entries[i].Err == nil {
			l.Entries[i].Enabled = true
			l.Entries[i].RangeText = ""
		}
	}
}

// Selection gathers the enabled files, in listing order, with their parsed
// pages. A malformed range aborts the gather; the error names the file.
func (l *Listing) Selection() (Selection, error) {
	var sel Selection
	for _, e := range l.Entries {
		if !e.Enabled {
			continue
		}
		if e.Err != nil {
			return nil, fmt.Errorf("%s: %w: %w", e.Name, ErrUnreadableFile, e.Err)
		}
		pages, err := ParsePageRange(e.RangeText, e.PageCount)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name, err)
		}
		sel = append(sel, Item{Path: e.Path, Pages: pages})
	}
	return sel, nil
}
