package printer

import (
	"context"
	"fmt"
)

// CommandViewer opens documents by running Name with Args followed by the
// document path ("xdg-open", "open", ...).
type CommandViewer struct {
	Name   string
	Args   []string
	Runner Runner
}

func (v CommandViewer) Open(ctx context.Context, path string) error {
	args := append(append([]string{}, v.Args...), path)
	if _, err := v.Runner.Run(ctx, v.Name, args...); err != nil {
		return fmt.Errorf("unable to open %s: %w", path, err)
	}
	return nil
}
