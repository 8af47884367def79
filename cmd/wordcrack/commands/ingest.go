package commands

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/hubenschmidt/go-wordcrack/monitor"
)

var ingestBatchSize int

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Embed every word that has no vector yet",
	Long: `Embed every vocabulary entry that has no stored vector.

The run is idempotent: words that already have a vector are skipped and
each batch is committed as a unit, so an interrupted or failed run can be
resumed by running the command again.`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().IntVar(&ingestBatchSize, "batch-size", 0, "texts per embedding request (default from config)")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if ingestBatchSize > 0 {
		globalConfig.Embedding.BatchSize = ingestBatchSize
	}

	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	pipeline, err := app.Pipeline()
	if err != nil {
		return err
	}

	out := cmd.ErrOrStderr()
	res, err := pipeline.Run(ctx, func(p monitor.Progress) {
		fmt.Fprintf(out, "embedded %s\n", p)
	})
	if err != nil {
		fmt.Fprintf(out, "stopped after %s of %s words; run ingest again to resume\n",
			humanize.Comma(int64(res.Embedded)), humanize.Comma(int64(res.Pending)))
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "embedded %s words in %d batches (%s)\n",
		humanize.Comma(int64(res.Embedded)), res.Batches, res.Duration.Round(time.Millisecond))
	return nil
}
