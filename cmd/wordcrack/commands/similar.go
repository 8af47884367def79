package commands

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	similarTopK     int
	similarStrategy string
	similarJSON     bool
)

var similarCmd = &cobra.Command{
	Use:   "similar <word>",
	Short: "Print the nearest neighbours of a word",
	Args:  cobra.ExactArgs(1),
	RunE:  runSimilar,
}

func init() {
	similarCmd.Flags().IntVarP(&similarTopK, "top-k", "k", 0, "number of neighbours (default from config)")
	similarCmd.Flags().StringVar(&similarStrategy, "strategy", "", "auto, brute or index (default from config)")
	similarCmd.Flags().BoolVar(&similarJSON, "json", false, "output as JSON")
}

func runSimilar(cmd *cobra.Command, args []string) error {
	if similarStrategy != "" {
		globalConfig.Similarity.Strategy = similarStrategy
	}
	topK := similarTopK
	if topK == 0 {
		topK = globalConfig.Similarity.TopK
	}

	app, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer app.Close()

	results, err := app.Engine.SimilarStrict(cmd.Context(), args[0], topK)
	if err != nil {
		return err
	}

	if similarJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "no neighbours for %q (unknown word or not embedded yet)\n", args[0])
		return nil
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SCORE\tWORD\tPOS\tTRANSLATION\tLEVEL")
	for _, r := range results {
		fmt.Fprintf(tw, "%.4f\t%s\t%s\t%s\t%s\n", r.Score, r.Word, r.PartOfSpeech, r.Translation, r.Level)
	}
	return tw.Flush()
}
