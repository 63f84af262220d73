package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"demandcast/internal/domain"
)

var (
	askQuery string
	askJSON  bool
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Forecast consumption for the items a question names",
	Long: `Resolve the items named in a question and forecast their daily consumption
and stock. The period is read from the question ("10 days", "2 weeks") and
defaults to forecast.default_horizon.

Examples:
  demandcast ask -q "INV00042"
  demandcast ask -q "surgical masks for 2 weeks" --json`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askQuery, "query", "q", "", "question (required)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output as JSON")
	askCmd.MarkFlagRequired("query")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := buildApp(ctx, GetConfig(), GetRootDir(), buildOptions{predictor: true})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.syncIndex(ctx); err != nil {
		return err
	}

	out := a.assistant.Answer(ctx, askQuery)
	if askJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	printOutcomes(os.Stdout, out)
	return nil
}

func printOutcomes(w io.Writer, out []domain.Outcome) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	header := false
	for _, o := range out {
		if o.Error != nil {
			if o.Error.ID != "" {
				fmt.Fprintf(w, "%s (%s): %s\n", o.Error.ID, o.Error.Kind, o.Error.Message)
			} else {
				fmt.Fprintln(w, o.Error.Message)
			}
			continue
		}
		if !header {
			fmt.Fprintln(tw, "DATE\tITEM\tPREDICTED\tSTOCK\tWARNING\tMATCH")
			header = true
		}
		p := o.Point
		warn := ""
		if p.StockWarning {
			warn = "LOW"
		}
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%.2f\t%s\t%s\n", p.Date, p.ID, p.PredictedConsumption, p.AvailableStock, warn, p.Method)
	}
	tw.Flush()
}
