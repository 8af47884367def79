package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/hubenschmidt/go-wordcrack/vocab"
)

var exportVectors bool

var importCmd = &cobra.Command{
	Use:   "import <csv>",
	Short: "Load vocabulary from CSV",
	Long: `Load vocabulary entries from CSV.

Recognised columns: id, level/級別, word/單字, part_of_speech/屬性,
translation/chinese/中文 and embedding (a JSON array). Entries with an
existing id are replaced.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write vocabulary as CSV (stdout when no file is given)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().BoolVar(&exportVectors, "vectors", false, "include stored vectors as JSON")
}

func runImport(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := vocab.ReadCSV(f)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	app, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer app.Close()

	res, err := vocab.Import(cmd.Context(), app.Backend, rows, globalConfig.Embedding.BatchSize)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %s words, %s vectors\n",
		humanize.Comma(int64(res.Words)), humanize.Comma(int64(res.Vectors)))
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	app, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer app.Close()

	rows, err := vocab.Export(cmd.Context(), app.Backend, exportVectors)
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if len(args) == 1 {
		f, err := os.Create(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return vocab.WriteCSV(w, rows)
}
