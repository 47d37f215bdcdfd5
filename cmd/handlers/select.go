package handlers

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"storydesk/internal/core"
	"storydesk/internal/selection"
)

// NewSelectCmd creates the select command
func NewSelectCmd() *cobra.Command {
	var (
		subcategories []string
		categories    []string
		total         int
		minImportance int
		format        string
	)

	cmd := &cobra.Command{
		Use:   "select",
		Short: "Select important, story-distinct articles",
		Long: `Select one representative article per story, ordered by story importance.

With --categories the total is split evenly across categories (the first
total % n categories get one extra); --subcategories then narrows each category.
With only --subcategories the best stories across those subcategories are taken.

Examples:
  storydesk select --subcategories "AI & Machine Learning,Cybersecurity" --total 8
  storydesk select --categories Technology,Business,Sports --total 15 --min-importance 5
  storydesk select top --hours 12`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(categories) == 0 && len(subcategories) == 0 {
				return fmt.Errorf("provide --categories or --subcategories")
			}
			if !cmd.Flags().Changed("total") {
				total = selection.DefaultSubcategoryTarget
				if len(categories) > 0 {
					total = selection.DefaultCategoryTarget
				}
			}
			return runSelect(cmd.Context(), cmd.OutOrStdout(), categories, subcategories, total, minImportance, format)
		},
	}

	cmd.Flags().StringSliceVar(&subcategories, "subcategories", nil, "comma-separated subcategories")
	cmd.Flags().StringSliceVar(&categories, "categories", nil, "comma-separated categories")
	cmd.Flags().IntVarP(&total, "total", "n", selection.DefaultSubcategoryTarget, "number of articles to return")
	cmd.Flags().IntVar(&minImportance, "min-importance", selection.DefaultMinImportance, "minimum story importance (1-10)")
	cmd.Flags().StringVar(&format, "format", "table", "output format: table or json")

	cmd.AddCommand(newSelectTopCmd())
	return cmd
}

func newSelectTopCmd() *cobra.Command {
	var (
		limit         int
		minImportance int
		hours         int
		format        string
	)

	cmd := &cobra.Command{
		Use:   "top",
		Short: "Show the most important recent stories",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDatabase(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			articles, err := selection.NewSelector(db.Selection()).
				TopStories(cmd.Context(), limit, minImportance, time.Duration(hours)*time.Hour)
			if err != nil {
				return err
			}
			return writeSelection(cmd.OutOrStdout(), articles, format)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", selection.DefaultTopStoriesLimit, "number of stories")
	cmd.Flags().IntVar(&minImportance, "min-importance", selection.DefaultTopStoriesMinImportance, "minimum story importance")
	cmd.Flags().IntVar(&hours, "hours", 24, "look-back window in hours")
	cmd.Flags().StringVar(&format, "format", "table", "output format: table or json")
	return cmd
}

func runSelect(ctx context.Context, out io.Writer, categories, subcategories []string, total, minImportance int, format string) error {
	db, err := openDatabase(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	selector := selection.NewSelector(db.Selection())
	var articles []core.SelectedArticle
	if len(categories) > 0 {
		articles, err = selector.SelectByCategories(ctx, categories, subcategories, total, minImportance)
	} else {
		articles, err = selector.SelectBySubcategories(ctx, subcategories, total, minImportance)
	}
	if err != nil {
		return err
	}
	return writeSelection(out, articles, format)
}

func writeSelection(out io.Writer, articles []core.SelectedArticle, format string) error {
	if strings.EqualFold(format, "json") {
		return printJSON(out, articles)
	}

	if len(articles) == 0 {
		fmt.Fprintln(out, "No articles matched")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "IMP\tCATEGORY\tSUBCATEGORY\tSOURCE\tTITLE")
	for _, a := range articles {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", a.ImportanceScore, a.Category, a.Subcategory, a.SourceName, truncate(a.Title, 80))
	}
	return tw.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
