package printer

import (
	"context"
	"fmt"
	"strings"
)

// Spooler prints on Windows by asking the shell to run the registered
// "print" verb for the document, which queues it on the default printer (or
// "printto" for a named queue).
type Spooler struct {
	Queue  string
	Runner Runner
}

func (p Spooler) Print(ctx context.Context, path string) error {
	script := fmt.Sprintf("Start-Process -FilePath %s -Verb Print -WindowStyle Hidden -Wait", psQuote(path))
	if p.Queue != "" {
		script = fmt.Sprintf("Start-Process -FilePath %s -Verb PrintTo -ArgumentList %s -WindowStyle Hidden -Wait",
			psQuote(path), psQuote(`"`+p.Queue+`"`))
	}

	output, err := p.Runner.Run(ctx, "powershell", "-NoProfile", "-NonInteractive", "-Command", script)
	if err != nil {
		return &PrintError{Queue: p.Queue, Err: fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))}
	}
	log.WithField("queue", p.Queue).Infof("submitted %s to the spooler", path)
	return nil
}

// psQuote quotes s as a PowerShell single-quoted string.
func psQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
