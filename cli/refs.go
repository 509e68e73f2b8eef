package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/ka2n/cmsrelay/api"
	"github.com/ka2n/cmsrelay/api/reference"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var (
	refsJSON bool

	refsCmd = &cobra.Command{
		Use:   "refs",
		Short: "List the file references a relay would process",
		Long: `refs reads the listing and prints the file references found in it
without downloading or uploading anything.`,
		Args: cobra.NoArgs,
		RunE: runRefs,
	}
)

func init() {
	refsCmd.Flags().BoolVar(&refsJSON, "json", false, "Print references as JSON")
	rootCmd.AddCommand(refsCmd)
}

func runRefs(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(rootCmd.PersistentFlags(), &flags)
	if err != nil {
		return err
	}
	runner, err := api.NewRunner(cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	plan, err := runner.References(ctx)
	if err != nil {
		return err
	}

	if refsJSON {
		return writeRefsJSON(os.Stdout, plan)
	}
	return writeRefsTable(os.Stdout, plan)
}

func writeRefsJSON(w io.Writer, plan *api.Plan) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(plan)
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func writeRefsTable(w io.Writer, plan *api.Plan) error {
	rows := lo.Map(plan.References, func(r reference.FileReference, _ int) []string {
		return []string{r.Owner, r.ID, r.Name, r.URL}
	})
	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers("OWNER", "ID", "NAME", "URL").
		Rows(rows...)

	if _, err := fmt.Fprintln(w, t.Render()); err != nil {
		return err
	}
	summary := fmt.Sprintf("%d reference(s) from %d page(s)", len(plan.References), plan.Pages)
	if plan.Partial {
		summary += ", listing incomplete"
	}
	_, err := fmt.Fprintln(w, summary)
	return err
}
