package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"

	"petprint/pdf"
)

// buildFlags are shared by print and save.
func buildFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "reverse",
			Usage: "process documents last-listed first",
		},
		&cli.BoolFlag{
			Name:  "no-padding",
			Usage: "do not insert blank pages after odd page groups",
		},
		&cli.BoolFlag{
			Name:  "optimize",
			Usage: "optimize the combined document",
		},
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:      "list",
		Usage:     "List the PDFs of a directory with their page counts",
		ArgsUsage: "DIR",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			listing, _, err := openListing(ctx, cmd)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "FILE\tPAGES")
			for _, e := range listing.Entries {
				pages := fmt.Sprint(e.PageCount)
				if e.Err != nil {
					pages = "error: " + e.Err.Error()
				}
				fmt.Fprintf(w, "%s\t%s\n", e.Name, pages)
			}
			return w.Flush()
		},
	}
}

func printCommand() *cli.Command {
	return &cli.Command{
		Name:      "print",
		Usage:     "Print the selected pages on the default printer",
		ArgsUsage: "DIR [NAME[:RANGE]]...",
		Flags:     buildFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			doc, err := buildSelection(ctx, cmd)
			if err != nil {
				return err
			}
			defer doc.Remove()

			prn, _ := newPrinter(cmd)
			if err := prn.Print(ctx, doc.Path); err != nil {
				return err
			}
			fmt.Printf("Printing completed: %d pages (%s)\n", doc.PageCount, doc.Report.Summary())
			return nil
		},
	}
}

func saveCommand() *cli.Command {
	flags := append(buildFlags(),
		&cli.StringFlag{
			Name:    "out",
			Aliases: []string{"o"},
			Usage:   "write the combined PDF here instead of opening a temp copy",
		},
		&cli.BoolFlag{
			Name:  "open",
			Usage: "open the combined PDF with the default viewer (implied without --out)",
		},
	)
	return &cli.Command{
		Name:      "save",
		Usage:     "Combine the selected pages into one PDF",
		ArgsUsage: "DIR [NAME[:RANGE]]...",
		Flags:     flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			doc, err := buildSelection(ctx, cmd)
			if err != nil {
				return err
			}

			if out := cmd.String("out"); out != "" {
				if err := doc.SaveAs(out); err != nil {
					doc.Remove()
					return err
				}
			}
			fmt.Printf("Saved %s: %d pages (%s)\n", doc.Path, doc.PageCount, doc.Report.Summary())

			if cmd.String("out") == "" || cmd.Bool("open") {
				_, viewer := newPrinter(cmd)
				return viewer.Open(ctx, doc.Path)
			}
			return nil
		},
	}
}

// openListing lists the directory named by the first argument.
func openListing(ctx context.Context, cmd *cli.Command) (*pdf.Listing, pdf.Engine, error) {
	dir := cmd.Args().First()
	if dir == "" {
		return nil, nil, errors.New("missing directory argument")
	}
	engine, err := pdf.NewPdfcpuEngine(cmd.String("paper"))
	if err != nil {
		return nil, nil, err
	}
	listing, err := pdf.ListPDFs(ctx, dir, engine)
	if err != nil {
		return nil, nil, err
	}
	return listing, engine, nil
}

// buildSelection applies the NAME[:RANGE] arguments to the listing and
// builds the combined document. Without NAME arguments every readable PDF is
// selected in full.
func buildSelection(ctx context.Context, cmd *cli.Command) (*pdf.MergedDocument, error) {
	listing, engine, err := openListing(ctx, cmd)
	if err != nil {
		return nil, err
	}

	args := cmd.Args().Tail()
	if len(args) == 0 {
		listing.SelectAll()
	}
	for _, arg := range args {
		name, rangeText := splitSelectionArg(arg)
		if err := listing.Select(name, rangeText); err != nil {
			return nil, err
		}
	}

	sel, err := listing.Selection()
	if err != nil {
		return nil, err
	}

	order := pdf.OrderForward
	if cmd.Bool("reverse") {
		order = pdf.OrderReverse
	}

	bar := progressbar.NewOptions(sel.Len(),
		progressbar.OptionSetDescription("Assembling"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(os.Stderr)
		}),
	)

	builder := pdf.NewBuilder(engine,
		pdf.WithTempDir(cmd.String("temp-dir")),
		pdf.WithOrder(order),
		pdf.WithDuplexPadding(!cmd.Bool("no-padding")),
		pdf.WithOptimize(cmd.Bool("optimize")),
		pdf.WithProgress(reportProgress(bar)),
	)
	return builder.Build(ctx, sel)
}

// reportProgress advances bar once per source and logs sources that did
// not make it into the document.
func reportProgress(bar *progressbar.ProgressBar) func(pdf.SourceResult) {
	return func(res pdf.SourceResult) {
		if err := bar.Add(1); err != nil {
			log.Debugf("progress bar: %v", err)
		}
		if res.Err != nil {
			log.WithField("file", res.Path).Warnf("%s: %v", res.Status, res.Err)
		}
	}
}

// splitSelectionArg splits "name.pdf:1-3" into its file name and range. A
// bare name selects every page.
func splitSelectionArg(arg string) (name, rangeText string) {
	lower := strings.ToLower(arg)
	i := strings.LastIndex(lower, pdf.PDFExtension+":")
	if i < 0 {
		return arg, ""
	}
	cut := i + len(pdf.PDFExtension)
	return arg[:cut], arg[cut+1:]
}
