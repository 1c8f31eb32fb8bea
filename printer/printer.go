// Package printer hands finished documents to the operating system: either to
// a print queue or to the default viewer application.
//
// The implementation for the running platform is picked once by New; callers
// only see the Printer and Viewer interfaces.
package printer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"petprint/logger"
)

var log = logger.WithNamespace("printer")

// ErrNoPrinter is returned when no print queue is configured or available.
var ErrNoPrinter = errors.New("no printer available")

// Printer sends a document to a print queue.
type Printer interface {
	Print(ctx context.Context, path string) error
}

// Viewer opens a document with the system's default application.
type Viewer interface {
	Open(ctx context.Context, path string) error
}

// PrintError reports a failed print job.
type PrintError struct {
	Queue string
	Err   error
}

func (e *PrintError) Error() string {
	if e.Queue == "" {
		return fmt.Sprintf("unable to print: %v", e.Err)
	}
	return fmt.Sprintf("unable to print on %s: %v", e.Queue, e.Err)
}

func (e *PrintError) Unwrap() error {
	return e.Err
}

// Config selects and tunes the platform implementations.
type Config struct {
	Queue   string        // print queue name; empty means the system default
	DryRun  bool          // log instead of printing or opening
	Timeout time.Duration // per external command
}

// New returns the printer and viewer for the running platform.
func New(cfg Config) (Printer, Viewer) {
	if cfg.DryRun {
		return DryRun{}, DryRun{}
	}
	runner := ExecRunner{Timeout: cfg.Timeout}
	return newPlatformPrinter(cfg.Queue, runner), newPlatformViewer(runner)
}

// DryRun logs the documents it is given and never fails.
type DryRun struct{}

func (DryRun) Print(_ context.Context, path string) error {
	log.WithField("file", path).Info("dry run: would print")
	return nil
}

func (DryRun) Open(_ context.Context, path string) error {
	log.WithField("file", path).Info("dry run: would open")
	return nil
}
