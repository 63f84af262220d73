package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	resolveQuery string
	resolveJSON  bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Show which inventory items a query refers to",
	Long: `Run the resolution cascade (exact id, fuzzy name, substring, semantic)
and print the matches of the first strategy that finds any.

Examples:
  demandcast resolve -q "inv 00042"
  demandcast resolve -q "gloves" --json`,
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
	resolveCmd.Flags().StringVarP(&resolveQuery, "query", "q", "", "product name or id (required)")
	resolveCmd.Flags().BoolVar(&resolveJSON, "json", false, "output as JSON")
	resolveCmd.MarkFlagRequired("query")
}

func runResolve(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := buildApp(ctx, GetConfig(), GetRootDir(), buildOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.syncIndex(ctx); err != nil {
		return err
	}

	matches, err := a.resolver.Resolve(ctx, resolveQuery)
	if err != nil {
		return err
	}

	if resolveJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(matches)
	}

	if len(matches) == 0 {
		fmt.Println("No matching items.")
		return nil
	}
	for _, m := range matches {
		name := ""
		if item, ok := a.snapshot.Lookup(m.ID); ok {
			name = item.DisplayName
		}
		if m.Score != nil {
			fmt.Printf("%-12s %-10s %6.2f  %s\n", m.ID, m.Method, *m.Score, name)
		} else {
			fmt.Printf("%-12s %-10s %6s  %s\n", m.ID, m.Method, "-", name)
		}
	}
	return nil
}
