package pdf

import (
	"fmt"
	"io"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PageCounter reports the number of pages of a PDF file.
type PageCounter interface {
	PageCount(path string) (int, error)
}

// Engine is the set of document operations a build needs. Pages are 1-based.
type Engine interface {
	PageCounter
	// Collect writes the given pages of src to dst, one page per entry and in
	// the given order.
	Collect(src, dst string, pages []int) error
	// Blank writes a single empty page to dst.
	Blank(dst string) error
	// Merge concatenates parts into dst.
	Merge(parts []string, dst string) error
	// Optimize rewrites path in place with a smaller encoding.
	Optimize(path string) error
}

// PdfcpuEngine implements Engine with pdfcpu. Blank pages come from fpdf and
// page counting falls back to a second reader when pdfcpu gives up.
type PdfcpuEngine struct {
	conf     *model.Configuration
	paper    string
	fallback PageCounter
}

// NewPdfcpuEngine returns an engine that pads with blank pages of the given
// paper size ("A4", "Letter", ...). An empty size means DefaultPaperSize.
func NewPdfcpuEngine(paper string) (*PdfcpuEngine, error) {
	if paper == "" {
		paper = DefaultPaperSize
	}
	if err := ValidatePaperSize(paper); err != nil {
		return nil, err
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	return &PdfcpuEngine{
		conf:     conf,
		paper:    paper,
		fallback: ReaderCounter{},
	}, nil
}

// config returns a private copy so concurrent probes never share state.
func (e *PdfcpuEngine) config() *model.Configuration {
	c := *e.conf
	return &c
}

func (e *PdfcpuEngine) PageCount(path string) (int, error) {
	n, err := e.count(path)
	if err == nil {
		return n, nil
	}
	log.WithField("file", path).Debugf("pdfcpu page count failed, trying fallback reader: %v", err)

	n, fbErr := e.fallback.PageCount(path)
	if fbErr != nil {
		return 0, fmt.Errorf("failed to get page count: %w", err)
	}
	return n, nil
}

// count reads the page count with the engine's relaxed validation, the same
// configuration Collect and Merge use.
func (e *PdfcpuEngine) count(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return api.PageCount(f, e.config())
}

func (e *PdfcpuEngine) Collect(src, dst string, pages []int) error {
	if len(pages) == 0 {
		return fmt.Errorf("no pages to collect from %s", src)
	}
	if err := api.CollectFile(src, dst, formatPages(pages), e.config()); err != nil {
		return fmt.Errorf("pdfcpu collect failed: %w", err)
	}
	return nil
}

func (e *PdfcpuEngine) Blank(dst string) error {
	return writeBlankPage(dst, e.paper)
}

func (e *PdfcpuEngine) Merge(parts []string, dst string) error {
	switch len(parts) {
	case 0:
		return fmt.Errorf("no input files provided")
	case 1:
		return copyFile(parts[0], dst)
	}
	if err := api.MergeCreateFile(parts, dst, false, e.config()); err != nil {
		return fmt.Errorf("pdfcpu merge failed: %w", err)
	}
	return nil
}

// Optimize is the library form of the pdfcpu optimize command.
func (e *PdfcpuEngine) Optimize(path string) error {
	tmp := path + ".opt"
	if err := api.OptimizeFile(path, tmp, e.config()); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("pdfcpu optimize failed: %w", err)
	}
	return os.Rename(tmp, path)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
