package pdf

const (
	// PDFExtension is matched case-insensitively when listing a directory
	PDFExtension = ".pdf"

	// MaxProbeWorkers bounds concurrent page-count probes during a listing
	MaxProbeWorkers = 4

	// DefaultPaperSize is used for duplex padding pages
	DefaultPaperSize = "A4"

	// MergedFilePattern is the os.CreateTemp pattern for merged documents
	MergedFilePattern = "petprint_*.pdf"

	// WorkDirPattern is the os.MkdirTemp pattern for per-build part files
	WorkDirPattern = "petprint_parts_*"

	// DefaultFilePermissions for directories created by the builder
	DefaultFilePermissions = 0755
)
