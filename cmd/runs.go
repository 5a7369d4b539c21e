package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/choiway/contactsheet/internal/index"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var errNoIndex = errors.New("no index: run `contactsheet init` or set index.dsn")

var runsCmd = &cobra.Command{
	Use:   "runs [run-id]",
	Short: "List recorded metadata runs",
	Long: `Without arguments lists the most recent metadata runs. With a run id lists
the photos that run resolved, with their hash and the field the date came
from.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openIndex(cmd.Context())
		if err != nil {
			return err
		}
		if store == nil {
			return errNoIndex
		}
		defer store.Close()

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		defer tw.Flush()

		if len(args) == 1 {
			return printPhotos(cmd, tw, store, args[0])
		}

		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := store.Runs(cmd.Context(), limit)
		if err != nil {
			return err
		}

		// status goes last: its color escapes would skew tabwriter's widths
		fmt.Fprintln(tw, "ID\tSTARTED\tDATED\tDIR\tSTATUS")
		for _, r := range runs {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
				r.ID, r.StartedAt.Local().Format(time.DateTime), r.PhotoCount, r.Dir, status(r.Status))
		}
		return nil
	},
}

func printPhotos(cmd *cobra.Command, tw *tabwriter.Writer, store index.Store, runID string) error {
	recs, err := store.Photos(cmd.Context(), runID)
	if err != nil {
		return err
	}

	fmt.Fprintln(tw, "FILE\tDATE\tFIELD\tSHA256")
	for _, r := range recs {
		date, field := r.DateTaken, r.Field
		if date == "" {
			date, field = "-", "-"
		}
		sha := r.ShaHash
		if len(sha) > 12 {
			sha = sha[:12]
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Filename, date, field, sha)
	}
	return nil
}

func status(s string) string {
	if s == index.StatusCompleted {
		return color.GreenString(s)
	}
	return color.YellowString(s)
}

func init() {
	rootCmd.AddCommand(runsCmd)

	runsCmd.Flags().IntP("limit", "n", 20, "number of runs to list")
}
