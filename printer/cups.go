package printer

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// CUPS prints through the CUPS command line tools (lp, lpstat).
type CUPS struct {
	Queue  string // fixed queue; empty means look one up for every job
	Runner Runner
}

// Print submits path to the configured queue, or to the CUPS default
// destination, or failing that to the first printer CUPS knows about.
func (p CUPS) Print(ctx context.Context, path string) error {
	queue, err := p.resolveQueue(ctx)
	if err != nil {
		return &PrintError{Err: err}
	}

	title := "Print " + filepath.Base(path)
	output, err := p.Runner.Run(ctx, "lp", "-d", queue, "-t", title, path)
	if err != nil {
		return &PrintError{Queue: queue, Err: fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))}
	}

	log.WithField("queue", queue).Infof("submitted %s: %s", path, strings.TrimSpace(string(output)))
	return nil
}

func (p CUPS) resolveQueue(ctx context.Context) (string, error) {
	if p.Queue != "" {
		return p.Queue, nil
	}

	// "system default destination: NAME"
	if out, err := p.Runner.Run(ctx, "lpstat", "-d"); err == nil {
		if _, name, ok := strings.Cut(string(out), "destination:"); ok {
			if name = strings.TrimSpace(name); name != "" {
				return name, nil
			}
		}
	}

	out, err := p.Runner.Run(ctx, "lpstat", "-p")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoPrinter, err)
	}
	if name := firstPrinter(out); name != "" {
		return name, nil
	}
	return "", ErrNoPrinter
}

// firstPrinter picks the first queue from "lpstat -p" output, whose lines
// read "printer NAME is idle. ...".
func firstPrinter(out []byte) string {
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) >= 2 && fields[0] == "printer" {
			return fields[1]
		}
	}
	return ""
}
