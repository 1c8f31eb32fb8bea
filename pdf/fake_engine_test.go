package pdf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// fakeEngine writes text labels instead of PDFs so tests can read back the
// order in which pages were merged.
type fakeEngine struct {
	counts      map[string]int
	failCollect map[string]bool
	failBlank   bool
	failMerge   bool
	failOpt     bool

	merged    []string // labels of the merged parts, in order
	blanks    int
	optimized []string
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{counts: map[string]int{}, failCollect: map[string]bool{}}
}

func (f *fakeEngine) PageCount(path string) (int, error) {
	n, ok := f.counts[path]
	if !ok {
		return 0, fmt.Errorf("not a PDF: %s", path)
	}
	return n, nil
}

func (f *fakeEngine) Collect(src, dst string, pages []int) error {
	if f.failCollect[src] {
		return errors.New("corrupt document")
	}
	nums := make([]string, len(pages))
	for i, p := range pages {
		nums[i] = fmt.Sprint(p)
	}
	label := filepath.Base(src) + ":" + strings.Join(nums, ",")
	return os.WriteFile(dst, []byte(label), 0o644)
}

func (f *fakeEngine) Blank(dst string) error {
	if f.failBlank {
		return errors.New("no paper")
	}
	f.blanks++
	return os.WriteFile(dst, []byte("blank"), 0o644)
}

func (f *fakeEngine) Merge(parts []string, dst string) error {
	if f.failMerge {
		return errors.New("merge failed")
	}
	f.merged = nil
	for _, p := range parts {
		b, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		f.merged = append(f.merged, string(b))
	}
	return os.WriteFile(dst, []byte(strings.Join(f.merged, "\n")), 0o644)
}

func (f *fakeEngine) Optimize(path string) error {
	if f.failOpt {
		return errors.New("optimize failed")
	}
	f.optimized = append(f.optimized, path)
	return nil
}

// addSource creates an (empty) file in dir and registers its page count.
func (f *fakeEngine) addSource(dir, name string, pages int) string {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o644); err != nil {
		panic(err)
	}
	f.counts[path] = pages
	return path
}
