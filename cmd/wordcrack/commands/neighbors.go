package commands

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/hubenschmidt/go-wordcrack/monitor"
	"github.com/hubenschmidt/go-wordcrack/similar"
)

var neighborsTopK int

var neighborsCmd = &cobra.Command{
	Use:   "neighbors",
	Short: "Manage precomputed neighbour lists",
}

var neighborsBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Compute and store the top-k neighbours of every embedded word",
	Args:  cobra.NoArgs,
	RunE:  runNeighborsBuild,
}

func init() {
	neighborsBuildCmd.Flags().IntVarP(&neighborsTopK, "top-k", "k", 0, "neighbours per word (default from config)")
	neighborsCmd.AddCommand(neighborsBuildCmd)
}

func runNeighborsBuild(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	topK := neighborsTopK
	if topK == 0 {
		topK = globalConfig.Similarity.TopK
	}

	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	cache, ok := app.NeighborCache()
	if !ok {
		return fmt.Errorf("backend %T cannot store neighbour lists", app.Backend)
	}

	out := cmd.ErrOrStderr()
	res, err := similar.Precompute(ctx, app.Backend, cache, similar.PrecomputeConfig{
		TopK:       topK,
		Dimension:  app.Config.Embedding.Dimension,
		Logger:     logger,
		OnProgress: func(p monitor.Progress) { fmt.Fprintf(out, "neighbours %s\n", p) },
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "stored neighbours for %s words (%d skipped) in %s\n",
		humanize.Comma(int64(res.Words)), res.Skipped, res.Duration.Round(time.Millisecond))
	return nil
}
