package pdf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Order is the order in which a build walks its selection.
type Order int

const (
	// OrderForward processes documents in listing order.
	OrderForward Order = iota
	// OrderReverse processes the last listed document first.
	OrderReverse
)

// ParseOrder accepts "forward" or "reverse"; "" means forward.
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(s) {
	case "", "forward":
		return OrderForward, nil
	case "reverse":
		return OrderReverse, nil
	}
	return OrderForward, fmt.Errorf("unknown order %q", s)
}

func (o Order) String() string {
	if o == OrderReverse {
		return "reverse"
	}
	return "forward"
}

// Status is the outcome of one source document in a build.
type Status string

const (
	StatusIncluded Status = "included"
	StatusSkipped  Status = "skipped" // file vanished before the build
	StatusEmpty    Status = "empty"   // no page of the range exists
	StatusFailed   Status = "failed"
)

// SourceResult records what a build did with one source document.
type SourceResult struct {
	Path   string
	Status Status
	Pages  int  // pages taken from the source
	Padded bool // a blank page follows this source's pages
	Err    error
}

// Report lists the source results in processing order.
type Report []SourceResult

// Count returns how many sources ended with the given status.
func (r Report) Count(s Status) int {
	n := 0
	for _, res := range r {
		if res.Status == s {
			n++
		}
	}
	return n
}

// Summary is a one-line tally such as "2 included, 1 skipped, 0 failed".
func (r Report) Summary() string {
	parts := []string{
		fmt.Sprintf("%d included", r.Count(StatusIncluded)),
		fmt.Sprintf("%d skipped", r.Count(StatusSkipped)+r.Count(StatusEmpty)),
		fmt.Sprintf("%d failed", r.Count(StatusFailed)),
	}
	return strings.Join(parts, ", ")
}

// MergedDocument is the single PDF a build produces. It lives in a temp
// directory until Remove is called.
type MergedDocument struct {
	Path      string
	PageCount int
	Report    Report
}

// Remove deletes the merged file. It is safe to call more than once.
func (m *MergedDocument) Remove() error {
	if m == nil || m.Path == "" {
		return nil
	}
	err := os.Remove(m.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// SaveAs moves the merged file to dst and updates Path. It falls back to a
// copy when dst is on another file system.
func (m *MergedDocument) SaveAs(dst string) error {
	if err := os.Rename(m.Path, dst); err == nil {
		m.Path = dst
		return nil
	}
	if err := copyFile(m.Path, dst); err != nil {
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}
	os.Remove(m.Path)
	m.Path = dst
	return nil
}

// BuildError is returned when a build produced nothing. Report says why each
// source was left out.
type BuildError struct {
	Report Report
	Err    error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("%v (%s)", e.Err, e.Report.Summary())
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

// Builder assembles a Selection into one merged document.
type Builder struct {
	engine   Engine
	tempDir  string
	order    Order
	padding  bool
	optimize bool
	progress func(SourceResult)
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithTempDir sets where merged documents and work files are created.
// Defaults to os.TempDir().
func WithTempDir(dir string) BuilderOption {
	return func(b *Builder) { b.tempDir = dir }
}

// WithOrder sets the processing order. Defaults to OrderForward.
func WithOrder(o Order) BuilderOption {
	return func(b *Builder) { b.order = o }
}

// WithDuplexPadding turns blank-page padding between sources on or off.
// Defaults to on.
func WithDuplexPadding(on bool) BuilderOption {
	return func(b *Builder) { b.padding = on }
}

// WithOptimize runs the engine's optimizer over the merged document.
func WithOptimize(on bool) BuilderOption {
	return func(b *Builder) { b.optimize = on }
}

// WithProgress registers fn to be called after each source is processed.
func WithProgress(fn func(SourceResult)) BuilderOption {
	return func(b *Builder) { b.progress = fn }
}

// NewBuilder returns a Builder backed by engine.
func NewBuilder(engine Engine, opts ...BuilderOption) *Builder {
	b := &Builder{engine: engine, padding: true}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// part is one collected page group ready to be merged.
type part struct {
	path   string
	pages  int
	result int // index into the report
}

// Build collects the selected pages of every source, pads odd page groups
// for duplex printing and merges everything into a new temp file.
//
// A missing source is skipped and a source that cannot be read is reported
// as failed; neither stops the build. A blank page follows a group with an
// odd number of pages unless it is the last group that made it into the
// document.
func (b *Builder) Build(ctx context.Context, sel Selection) (*MergedDocument, error) {
	if sel.Len() == 0 {
		return nil, ErrEmptySelection
	}
	if b.order == OrderReverse {
		sel = sel.Reversed()
	}

	if b.tempDir != "" {
		if err := os.MkdirAll(b.tempDir, DefaultFilePermissions); err != nil {
			return nil, fmt.Errorf("failed to create temp directory: %w", err)
		}
	}
	workDir, err := os.MkdirTemp(b.tempDir, WorkDirPattern)
	if err != nil {
		return nil, fmt.Errorf("failed to create work directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	report := make(Report, 0, sel.Len())
	var parts []part
	for i, item := range sel {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		partPath := filepath.Join(workDir, fmt.Sprintf("part_%03d.pdf", i))
		res := b.collect(item, partPath)
		report = append(report, res)
		if res.Status == StatusIncluded {
			parts = append(parts, part{
				path:   partPath,
				pages:  res.Pages,
				result: len(report) - 1,
			})
		}
		if b.progress != nil {
			b.progress(res)
		}
	}

	if len(parts) == 0 {
		return nil, &BuildError{Report: report, Err: ErrNothingAssembled}
	}

	files, total, err := b.layout(parts, report, workDir)
	if err != nil {
		return nil, err
	}

	out, err := os.CreateTemp(b.tempDir, MergedFilePattern)
	if err != nil {
		return nil, fmt.Errorf("failed to create merged file: %w", err)
	}
	out.Close()

	doc := &MergedDocument{Path: out.Name(), PageCount: total, Report: report}
	if err := b.engine.Merge(files, doc.Path); err != nil {
		doc.Remove()
		return nil, fmt.Errorf("failed to merge documents: %w", err)
	}

	if b.optimize {
		if err := b.engine.Optimize(doc.Path); err != nil {
			log.WithField("file", doc.Path).Warnf("optimize failed, keeping unoptimized output: %v", err)
		}
	}

	log.WithField("file", doc.Path).Infof("assembled %d pages (%s, %s order)",
		doc.PageCount, report.Summary(), b.order)
	return doc, nil
}

// collect extracts the pages of one source into dst.
func (b *Builder) collect(item Item, dst string) SourceResult {
	res := SourceResult{Path: item.Path}

	if _, err := os.Stat(item.Path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.WithField("file", item.Path).Info("source no longer exists, skipping")
			res.Status = StatusSkipped
			res.Err = ErrMissingFile
			return res
		}
		res.Status = StatusFailed
		res.Err = &SourceError{Path: item.Path, Op: "stat", Err: err}
		return res
	}

	if len(item.Pages) == 0 {
		res.Status = StatusEmpty
		return res
	}

	// the file may have changed since it was listed
	total, err := b.engine.PageCount(item.Path)
	if err != nil {
		res.Status = StatusFailed
		res.Err = &SourceError{Path: item.Path, Op: "count", Err: err}
		return res
	}
	if err := ValidatePageNumbers(item.Pages, total); err != nil {
		res.Status = StatusFailed
		res.Err = &SourceError{Path: item.Path, Op: "validate", Err: err}
		return res
	}

	if err := b.engine.Collect(item.Path, dst, item.Pages); err != nil {
		log.WithField("file", item.Path).Errorf("cannot extract pages: %v", err)
		res.Status = StatusFailed
		res.Err = &SourceError{Path: item.Path, Op: "collect", Err: err}
		return res
	}

	res.Status = StatusIncluded
	res.Pages = len(item.Pages)
	return res
}

// layout returns the files to merge, in order, with blank pages inserted
// after odd groups, and the resulting page count.
func (b *Builder) layout(parts []part, report Report, workDir string) ([]string, int, error) {
	var (
		files []string
		total int
		blank string
	)
	for i, p := range parts {
		files = append(files, p.path)
		total += p.pages

		if !b.padding || p.pages%2 == 0 || i == len(parts)-1 {
			continue
		}
		if blank == "" {
			blank = filepath.Join(workDir, "blank.pdf")
			if err := b.engine.Blank(blank); err != nil {
				return nil, 0, fmt.Errorf("failed to create padding page: %w", err)
			}
		}
		files = append(files, blank)
		total++
		report[p.result].Padded = true
	}
	return files, total, nil
}
