package cmd

import (
	"fmt"

	"github.com/choiway/contactsheet/internal/config"
	"github.com/choiway/contactsheet/internal/document"
	"github.com/spf13/cobra"
)

// newPrinter is swapped out in tests.
var newPrinter = func(c config.Document) document.Printer {
	return document.RodPrinter{Bin: c.BrowserBin, NoSandbox: c.NoSandbox}
}

var pdfCmd = &cobra.Command{
	Use:   "pdf",
	Short: "Render a markdown manuscript to PDF",
	Long: `Converts the markdown input to a print styled PDF with a cover page and a
table of contents. Every level 2 heading starts a new page.

Printing uses headless Chrome. Set document.browser_bin or
CONTACTSHEET_BROWSER_BIN to use an installed browser.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d := &cfg.Document
		stringFlag(cmd, "input", &d.Input)
		stringFlag(cmd, "output", &d.Output)
		stringFlag(cmd, "title", &d.Title)
		stringFlag(cmd, "subtitle", &d.Subtitle)
		stringFlag(cmd, "author", &d.Author)
		stringFlag(cmd, "doc-version", &d.Version)
		intFlag(cmd, "toc-depth", &d.TOCDepth)

		r := document.NewRenderer(documentOptions(*d), newPrinter(*d), logger)
		res, err := r.Render(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "PDF created successfully: %s\n", res.Output)
		fmt.Fprintf(out, "File size: %s\n", document.HumanSize(res.Size))
		if res.Pages > 0 {
			fmt.Fprintf(out, "Pages: %d\n", res.Pages)
		}
		return nil
	},
}

func documentOptions(d config.Document) document.Options {
	return document.Options{
		Input:     d.Input,
		Output:    d.Output,
		Title:     d.Title,
		Subtitle:  d.Subtitle,
		Author:    d.Author,
		Version:   d.Version,
		TOCTitle:  d.TOCTitle,
		TOCDepth:  d.TOCDepth,
		CodeStyle: d.CodeStyle,
		Page: document.Page{
			Size:         d.Page.Size,
			Width:        d.Page.Width,
			Height:       d.Page.Height,
			MarginTop:    d.Page.MarginTop,
			MarginBottom: d.Page.MarginBottom,
			MarginSide:   d.Page.MarginSide,
		},
	}
}

func init() {
	rootCmd.AddCommand(pdfCmd)

	pdfCmd.Flags().StringP("input", "i", "", "markdown file (overrides document.input)")
	pdfCmd.Flags().StringP("output", "o", "", "pdf file (overrides document.output)")
	pdfCmd.Flags().String("title", "", "cover title, defaults to the first level 1 heading")
	pdfCmd.Flags().String("subtitle", "", "cover subtitle")
	pdfCmd.Flags().String("author", "", "cover author")
	pdfCmd.Flags().String("doc-version", "", "cover version line")
	pdfCmd.Flags().Int("toc-depth", 0, "deepest heading level listed in the table of contents")
}
