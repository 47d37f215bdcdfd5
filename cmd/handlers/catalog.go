package handlers

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"storydesk/internal/core"
	"storydesk/internal/selection"
)

// NewCatalogCmd creates the catalog command
func NewCatalogCmd() *cobra.Command {
	var (
		days   int
		format string
	)

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Show categories and subcategories with recent coverage",
		Long: `List each category's subcategories with article counts and importance for
articles published in the last --days days.

Examples:
  storydesk catalog
  storydesk catalog --days 1 --format json
  storydesk catalog stats`,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDatabase(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			categories, err := selection.NewCatalog(db.Selection()).
				Categories(cmd.Context(), time.Duration(days)*24*time.Hour)
			if err != nil {
				return err
			}
			return writeCatalog(cmd.OutOrStdout(), categories, format)
		},
	}

	cmd.Flags().IntVar(&days, "days", 7, "look-back window in days")
	cmd.Flags().StringVar(&format, "format", "table", "output format: table or json")

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show an overview of the article store",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDatabase(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			stats, err := selection.NewCatalog(db.Selection()).Stats(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), stats)
		},
	})

	return cmd
}

func writeCatalog(out io.Writer, categories []core.CategoryStats, format string) error {
	if strings.EqualFold(format, "json") {
		return printJSON(out, categories)
	}
	if len(categories) == 0 {
		fmt.Fprintln(out, "No articles in window")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tSUBCATEGORY\tARTICLES\tAVG\tMAX")
	for _, c := range categories {
		fmt.Fprintf(tw, "%s\t\t%d\t%.1f\t%d\n", c.Category, c.TotalArticles, c.AvgImportance, c.MaxImportance)
		for _, s := range c.Subcategories {
			fmt.Fprintf(tw, "\t%s\t%d\t%.1f\t%d\n", s.Subcategory, s.ArticleCount, s.AvgImportance, s.MaxImportance)
		}
	}
	return tw.Flush()
}
