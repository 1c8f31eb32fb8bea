//go:build windows

package printer

func newPlatformPrinter(queue string, runner Runner) Printer {
	return Spooler{Queue: queue, Runner: runner}
}

func newPlatformViewer(runner Runner) Viewer {
	return CommandViewer{Name: "rundll32", Args: []string{"url.dll,FileProtocolHandler"}, Runner: runner}
}
