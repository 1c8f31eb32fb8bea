package api

import "time"

const (
	// FileCleanupDelay is the delay before removing a merged file after it was sent
	FileCleanupDelay = 2 * time.Second

	// MaxRequestBodySize caps JSON selection requests (1MB)
	MaxRequestBodySize = 1 << 20

	// CombinedFilename is the download name of a saved combined document
	CombinedFilename = "combined.pdf"

	// MaxErrorLength truncates error messages returned to clients
	MaxErrorLength = 200
)
