package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/go-pdf/fpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petprint/pdf"
	"petprint/printer"
)

type recordingPrinter struct {
	printed []string
	opened  []string
	err     error
}

func (p *recordingPrinter) Print(_ context.Context, path string) error {
	p.printed = append(p.printed, path)
	return p.err
}

func (p *recordingPrinter) Open(_ context.Context, path string) error {
	p.opened = append(p.opened, path)
	return nil
}

func writeTestPDF(t *testing.T, path string, pages int) {
	t.Helper()
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetFont("Helvetica", "", 14)
	for i := 1; i <= pages; i++ {
		doc.AddPage()
		doc.Cell(40, 10, fmt.Sprintf("page %d", i))
	}
	require.NoError(t, doc.OutputFileAndClose(path))
}

type fixture struct {
	router  *gin.Engine
	svc     *Service
	printer *recordingPrinter
	dir     string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	writeTestPDF(t, filepath.Join(dir, "a.pdf"), 3)
	writeTestPDF(t, filepath.Join(dir, "b.pdf"), 1)

	engine, err := pdf.NewPdfcpuEngine("A4")
	require.NoError(t, err)

	rec := &recordingPrinter{}
	svc := &Service{
		Config:  &Config{TempDir: t.TempDir()},
		Engine:  engine,
		Printer: rec,
		Viewer:  rec,
	}
	r := gin.New()
	SetupRoutes(r, svc)
	return &fixture{router: r, svc: svc, printer: rec, dir: dir}
}

func (f *fixture) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealthAndIndex(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "petprint", decode(t, w)["service"])

	w = f.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<title>PetPDFPrint</title>")
	assert.Contains(t, w.Body.String(), "Save to combined PDF")
}

func TestHandleList(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/pdf/list?dir="+f.dir, nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	files := body["files"].([]any)
	require.Len(t, files, 2)
	first := files[0].(map[string]any)
	assert.Equal(t, "a.pdf", first["name"])
	assert.Equal(t, float64(3), first["page_count"])
	assert.NotContains(t, first, "error")
}

func TestHandleList_Errors(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/pdf/list", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodGet, "/api/pdf/list?dir="+filepath.Join(f.dir, "missing"), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "failed to read directory")
}

func TestHandleList_SizeLimit(t *testing.T) {
	f := newFixture(t)
	f.svc.Config.MaxFileSize = 10

	w := f.do(t, http.MethodGet, "/api/pdf/list?dir="+f.dir, nil)
	require.Equal(t, http.StatusOK, w.Code)
	first := decode(t, w)["files"].([]any)[0].(map[string]any)
	assert.Contains(t, first["error"], "exceeds maximum allowed 10 bytes")

	w = f.do(t, http.MethodPost, "/api/pdf/print", gin.H{
		"dir":   f.dir,
		"items": []gin.H{{"name": "a.pdf"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, f.printer.printed)
}

func TestHandleList_RootDir(t *testing.T) {
	f := newFixture(t)
	f.svc.Config.RootDir = f.dir

	w := f.do(t, http.MethodGet, "/api/pdf/list?dir=../", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, errOutsideRoot.Error(), decode(t, w)["error"])

	w = f.do(t, http.MethodGet, "/api/pdf/list", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, ".", body["dir"])
	files := body["files"].([]any)
	require.Len(t, files, 2)
	assert.Equal(t, "a.pdf", files[0].(map[string]any)["path"])
}

func TestHandleList_RootDirSymlinks(t *testing.T) {
	f := newFixture(t)
	root := t.TempDir()
	f.svc.Config.RootDir = root
	if err := os.Symlink(f.dir, filepath.Join(root, "link")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
	require.NoError(t, os.Mkdir(filepath.Join(root, "inside"), 0o755))
	writeTestPDF(t, filepath.Join(root, "inside", "c.pdf"), 2)
	require.NoError(t, os.Symlink(filepath.Join(f.dir, "a.pdf"), filepath.Join(root, "inside", "escape.pdf")))

	w := f.do(t, http.MethodGet, "/api/pdf/list?dir=link", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, errOutsideRoot.Error(), decode(t, w)["error"])

	w = f.do(t, http.MethodPost, "/api/pdf/print", gin.H{
		"dir":   "link",
		"items": []gin.H{{"name": "a.pdf"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodGet, "/api/pdf/list?dir=inside", nil)
	require.Equal(t, http.StatusOK, w.Code)
	files := decode(t, w)["files"].([]any)
	require.Len(t, files, 2)
	c := files[0].(map[string]any)
	assert.Equal(t, "c.pdf", c["name"])
	assert.Equal(t, filepath.Join("inside", "c.pdf"), c["path"])
	assert.NotContains(t, c, "error")
	escape := files[1].(map[string]any)
	assert.Equal(t, "escape.pdf", escape["name"])
	assert.Equal(t, errOutsideRoot.Error(), escape["error"])

	w = f.do(t, http.MethodPost, "/api/pdf/print", gin.H{
		"dir":   "inside",
		"items": []gin.H{{"name": "escape.pdf"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, f.printer.printed)
}

func TestHandlePrint(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/pdf/print", gin.H{
		"dir": f.dir,
		"items": []gin.H{
			{"name": "a.pdf", "range": "1-3"},
			{"name": "b.pdf"},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Equal(t, "Printing completed", body["message"])
	assert.Equal(t, float64(5), body["pages"])
	assert.Equal(t, "2 included, 0 skipped, 0 failed", body["summary"])

	sources := body["sources"].([]any)
	require.Len(t, sources, 2)
	assert.Equal(t, true, sources[0].(map[string]any)["padded"])

	require.Len(t, f.printer.printed, 1)
	assert.NoFileExists(t, f.printer.printed[0])
}

func TestHandlePrint_ReverseWithoutPadding(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/pdf/print", gin.H{
		"dir":     f.dir,
		"items":   []gin.H{{"name": "a.pdf"}, {"name": "b.pdf"}},
		"order":   "reverse",
		"padding": false,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Equal(t, float64(4), body["pages"])
	assert.Equal(t, "b.pdf", body["sources"].([]any)[0].(map[string]any)["file"])
}

func TestHandlePrint_BadRequests(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		body any
		code int
		msg  string
	}{
		{"malformed range", gin.H{"dir": f.dir, "items": []gin.H{{"name": "a.pdf", "range": "1-x"}}}, http.StatusBadRequest, "invalid page range format"},
		{"reversed range", gin.H{"dir": f.dir, "items": []gin.H{{"name": "a.pdf", "range": "3-1"}}}, http.StatusBadRequest, "invalid page range format"},
		{"nothing selected", gin.H{"dir": f.dir}, http.StatusBadRequest, "no documents selected"},
		{"unknown file", gin.H{"dir": f.dir, "items": []gin.H{{"name": "zzz.pdf"}}}, http.StatusBadRequest, "file is not part of the listing"},
		{"bad order", gin.H{"dir": f.dir, "order": "sideways"}, http.StatusBadRequest, "unknown order"},
		{"missing dir", gin.H{"items": []gin.H{}}, http.StatusBadRequest, "Invalid request"},
		{"out of range pages only", gin.H{"dir": f.dir, "items": []gin.H{{"name": "b.pdf", "range": "5"}}}, http.StatusUnprocessableEntity, "no pages could be assembled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodPost, "/api/pdf/print", tt.body)
			assert.Equal(t, tt.code, w.Code)
			assert.Contains(t, decode(t, w)["error"], tt.msg)
		})
	}
	assert.Empty(t, f.printer.printed)
}

func TestHandlePrint_PrinterFailure(t *testing.T) {
	f := newFixture(t)
	f.printer.err = &printer.PrintError{Queue: "office", Err: errors.New("queue stopped")}

	w := f.do(t, http.MethodPost, "/api/pdf/print", gin.H{
		"dir":   f.dir,
		"items": []gin.H{{"name": "b.pdf"}},
	})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, decode(t, w)["error"], "queue stopped")
}

func TestHandleSave(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/pdf/save", gin.H{
		"dir":   f.dir,
		"items": []gin.H{{"name": "a.pdf", "range": "2"}, {"name": "b.pdf"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), CombinedFilename)
	assert.Equal(t, "2 included, 0 skipped, 0 failed", w.Header().Get("X-Petprint-Summary"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "%PDF"))
	assert.Empty(t, f.printer.opened)
}

func TestHandleSave_Open(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/pdf/save?open=true", gin.H{
		"dir":   f.dir,
		"items": []gin.H{{"name": "b.pdf"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, f.printer.opened, 1)
	assert.FileExists(t, f.printer.opened[0])
}

func TestResolveDir(t *testing.T) {
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0o755))
	config := &Config{RootDir: root}

	got, gotRoot, err := resolveDir(&Config{}, " /data/pdfs/ ")
	require.NoError(t, err)
	assert.Equal(t, filepath.Clean("/data/pdfs"), got)
	assert.Empty(t, gotRoot)

	_, _, err = resolveDir(&Config{}, "")
	assert.Error(t, err)

	got, gotRoot, err = resolveDir(config, "sub")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "sub"), got)
	assert.Equal(t, root, gotRoot)

	got, _, err = resolveDir(config, "")
	require.NoError(t, err)
	assert.Equal(t, root, got)

	_, _, err = resolveDir(config, "sub/../../etc")
	assert.ErrorIs(t, err, errOutsideRoot)

	_, _, err = resolveDir(config, "/etc")
	assert.ErrorIs(t, err, errOutsideRoot)

	_, _, err = resolveDir(config, "missing")
	assert.ErrorContains(t, err, `directory "missing" does not exist`)
	assert.NotContains(t, err.Error(), root)
}

func TestResolveDir_SymlinkOutsideRoot(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	if err := os.Symlink(outside, filepath.Join(root, "link")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
	require.NoError(t, os.Mkdir(filepath.Join(root, "real"), 0o755))
	require.NoError(t, os.Symlink(filepath.Join(root, "real"), filepath.Join(root, "alias")))

	_, _, err := resolveDir(&Config{RootDir: root}, "link")
	assert.ErrorIs(t, err, errOutsideRoot)

	_, _, err = resolveDir(&Config{RootDir: root}, filepath.Join(root, "link"))
	assert.ErrorIs(t, err, errOutsideRoot)

	got, _, err := resolveDir(&Config{RootDir: root}, "alias")
	require.NoError(t, err)
	want, err := filepath.EvalSymlinks(filepath.Join(root, "real"))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestTruncate(t *testing.T) {
	short := "file not found"
	assert.Equal(t, short, truncate(short))

	ascii := strings.Repeat("x", MaxErrorLength+10)
	assert.Equal(t, strings.Repeat("x", MaxErrorLength)+"...", truncate(ascii))

	// the two-byte "é" straddles the cut
	msg := strings.Repeat("a", MaxErrorLength-1) + "é" + strings.Repeat("b", 20)
	got := truncate(msg)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("a", MaxErrorLength-1)+"...", got)
}

func TestErrorText(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "srv", "pdfs")
	err := fmt.Errorf("collect %s: corrupt", filepath.Join(root, "a", "b.pdf"))

	assert.Equal(t, "collect "+filepath.Join("a", "b.pdf")+": corrupt", errorText(root, err))
	assert.Equal(t, err.Error(), errorText("", err))
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(fmt.Errorf("x.pdf: %w", pdf.ErrInvalidPageRange)))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(&pdf.BuildError{Err: pdf.ErrNothingAssembled}))
	assert.Equal(t, http.StatusBadGateway, statusFor(&printer.PrintError{Err: printer.ErrNoPrinter}))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
}
