package api

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"petprint/logger"
	"petprint/pdf"
	"petprint/printer"
)

var log = logger.WithNamespace("api")

var errOutsideRoot = errors.New("directory is outside the allowed root")

type fileResponse struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	PageCount int    `json:"page_count"`
	Size      int64  `json:"size"`
	Error     string `json:"error,omitempty"`
}

type itemRequest struct {
	Name  string `json:"name" binding:"required"`
	Range string `json:"range"`
}

type selectionRequest struct {
	Dir      string        `json:"dir" binding:"required"`
	Items    []itemRequest `json:"items"`
	Order    string        `json:"order"`
	Padding  *bool         `json:"padding"`
	Optimize bool          `json:"optimize"`
	Open     bool          `json:"open"`
}

type sourceResponse struct {
	File   string `json:"file"`
	Status string `json:"status"`
	Pages  int    `json:"pages"`
	Padded bool   `json:"padded"`
	Error  string `json:"error,omitempty"`
}

func HandleList(c *gin.Context, svc *Service) {
	dir, root, err := resolveDir(svc.Config, c.Query("dir"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	listing, err := listDir(c, svc, dir, root)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errorText(root, err)})
		return
	}

	files := make([]fileResponse, 0, len(listing.Entries))
	for _, e := range listing.Entries {
		f := fileResponse{
			Name:      e.Name,
			Path:      displayPath(root, e.Path),
			PageCount: e.PageCount,
			Size:      e.Size,
		}
		if e.Err != nil {
			f.Error = errorText(root, e.Err)
		}
		files = append(files, f)
	}
	c.JSON(http.StatusOK, gin.H{"dir": displayPath(root, dir), "files": files})
}

func HandlePrint(c *gin.Context, svc *Service) {
	doc, _, root, ok := buildFromRequest(c, svc)
	if !ok {
		return
	}
	defer doc.Remove()

	if err := svc.Printer.Print(c.Request.Context(), doc.Path); err != nil {
		log.Errorf("print failed: %v", err)
		c.JSON(statusFor(err), gin.H{
			"error":   errorText(root, err),
			"sources": sourcesResponse(root, doc.Report),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Printing completed",
		"summary": doc.Report.Summary(),
		"pages":   doc.PageCount,
		"sources": sourcesResponse(root, doc.Report),
	})
}

func HandleSave(c *gin.Context, svc *Service) {
	doc, req, _, ok := buildFromRequest(c, svc)
	if !ok {
		return
	}

	c.Header("X-Petprint-Summary", doc.Report.Summary())
	c.FileAttachment(doc.Path, CombinedFilename)

	if req.Open || c.Query("open") == "true" {
		// the viewer reads the file after we return; the OS temp cleanup owns it
		if err := svc.Viewer.Open(c.Request.Context(), doc.Path); err != nil {
			log.Warnf("cannot open combined document: %v", err)
		}
		return
	}

	// Clean up after the response is written
	defer func() {
		go func() {
			time.Sleep(FileCleanupDelay)
			doc.Remove()
		}()
	}()
}

// buildFromRequest binds a selection request, lists its directory, applies
// the selection and builds the merged document. The returned root is the
// resolved RootDir, empty when none is configured. On failure the error
// response has already been written.
func buildFromRequest(c *gin.Context, svc *Service) (*pdf.MergedDocument, *selectionRequest, string, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxRequestBodySize)

	var req selectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + truncate(err.Error())})
		return nil, nil, "", false
	}

	order, err := pdf.ParseOrder(req.Order)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": truncate(err.Error())})
		return nil, nil, "", false
	}

	dir, root, err := resolveDir(svc.Config, req.Dir)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, nil, "", false
	}

	listing, err := listDir(c, svc, dir, root)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errorText(root, err)})
		return nil, nil, "", false
	}
	for _, item := range req.Items {
		if err := listing.Select(item.Name, item.Range); err != nil {
			c.JSON(statusFor(err), gin.H{"error": errorText(root, err)})
			return nil, nil, "", false
		}
	}

	sel, err := listing.Selection()
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": errorText(root, err)})
		return nil, nil, "", false
	}

	opts := []pdf.BuilderOption{
		pdf.WithTempDir(svc.Config.TempDir),
		pdf.WithOrder(order),
		pdf.WithOptimize(req.Optimize),
	}
	if req.Padding != nil {
		opts = append(opts, pdf.WithDuplexPadding(*req.Padding))
	}

	doc, err := pdf.NewBuilder(svc.Engine, opts...).Build(c.Request.Context(), sel)
	if err != nil {
		log.Errorf("build failed: %v", err)
		body := gin.H{"error": errorText(root, err)}
		var buildErr *pdf.BuildError
		if errors.As(err, &buildErr) {
			body["sources"] = sourcesResponse(root, buildErr.Report)
		}
		c.JSON(statusFor(err), body)
		return nil, nil, "", false
	}
	return doc, &req, root, true
}

// listDir lists dir and marks files above the configured size limit, or
// linked from outside root, as unreadable so they cannot be selected.
func listDir(c *gin.Context, svc *Service, dir, root string) (*pdf.Listing, error) {
	listing, err := pdf.ListPDFs(c.Request.Context(), dir, svc.Engine)
	if err != nil {
		return nil, err
	}
	limit := svc.Config.MaxFileSize
	for i := range listing.Entries {
		e := &listing.Entries[i]
		if e.Err != nil {
			continue
		}
		if root != "" {
			resolved, err := filepath.EvalSymlinks(e.Path)
			if err != nil || !within(root, resolved) {
				e.Err = errOutsideRoot
				continue
			}
		}
		if limit > 0 && e.Size > limit {
			e.Err = fmt.Errorf("file size %d exceeds maximum allowed %d bytes", e.Size, limit)
		}
	}
	return listing, nil
}

// resolveDir cleans dir and, when a root is configured, resolves it below
// the root with symlinks followed and rejects anything that escapes it. The
// returned root is the resolved RootDir, or empty without one.
func resolveDir(config *Config, dir string) (string, string, error) {
	dir = strings.TrimSpace(dir)
	if config.RootDir == "" {
		if dir == "" {
			return "", "", fmt.Errorf("no directory given")
		}
		return filepath.Clean(dir), "", nil
	}

	absRoot, err := filepath.Abs(config.RootDir)
	if err != nil {
		return "", "", err
	}
	root, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return "", "", fmt.Errorf("root directory is not accessible: %w", err)
	}

	full := dir
	if !filepath.IsAbs(full) {
		full = filepath.Join(absRoot, dir)
	}
	full = filepath.Clean(full)
	if !within(absRoot, full) && !within(root, full) {
		return "", "", errOutsideRoot
	}

	resolved, err := filepath.EvalSymlinks(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", "", fmt.Errorf("directory %q does not exist", dir)
		}
		return "", "", fmt.Errorf("directory %q is not accessible", dir)
	}
	if !within(root, resolved) {
		return "", "", errOutsideRoot
	}
	return resolved, root, nil
}

// within reports whether path is root or lies below it.
func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// displayPath shows p relative to root; without a root p is returned as is.
func displayPath(root, p string) string {
	if root == "" {
		return p
	}
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return filepath.Base(p)
	}
	return rel
}

// errorText renders err for a client, with paths below root made relative.
func errorText(root string, err error) string {
	msg := err.Error()
	if root != "" {
		msg = strings.ReplaceAll(msg, root+string(filepath.Separator), "")
	}
	return truncate(msg)
}

func statusFor(err error) int {
	var printErr *printer.PrintError
	switch {
	case errors.Is(err, pdf.ErrInvalidPageRange),
		errors.Is(err, pdf.ErrEmptySelection),
		errors.Is(err, pdf.ErrUnknownFile),
		errors.Is(err, pdf.ErrUnreadableFile):
		return http.StatusBadRequest
	case errors.Is(err, pdf.ErrNothingAssembled):
		return http.StatusUnprocessableEntity
	case errors.As(err, &printErr):
		return http.StatusBadGateway
	case errors.Is(err, os.ErrNotExist):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func sourcesResponse(root string, report pdf.Report) []sourceResponse {
	out := make([]sourceResponse, 0, len(report))
	for _, r := range report {
		s := sourceResponse{
			File:   filepath.Base(r.Path),
			Status: string(r.Status),
			Pages:  r.Pages,
			Padded: r.Padded,
		}
		if r.Err != nil {
			s.Error = errorText(root, r.Err)
		}
		out = append(out, s)
	}
	return out
}

// truncate shortens long error messages but keeps the key info. The cut
// never splits a UTF-8 sequence.
func truncate(msg string) string {
	if len(msg) <= MaxErrorLength {
		return msg
	}
	cut := MaxErrorLength
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut] + "..."
}
