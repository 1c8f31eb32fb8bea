//go:build !windows

package printer

import "runtime"

func newPlatformPrinter(queue string, runner Runner) Printer {
	return CUPS{Queue: queue, Runner: runner}
}

func newPlatformViewer(runner Runner) Viewer {
	if runtime.GOOS == "darwin" {
		return CommandViewer{Name: "open", Runner: runner}
	}
	return CommandViewer{Name: "xdg-open", Runner: runner}
}
