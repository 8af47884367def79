// Package vocab reads and writes the vocabulary CSV.
//
// Headers may be the original Chinese column names (級別, 單字, 屬性, 中文) or
// their English equivalents. An optional id column fixes IDs; otherwise rows
// are numbered from 1 in file order. An optional embedding column carries a
// JSON array and is used to move vectors between backends.
package vocab

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hubenschmidt/go-wordcrack/core"
	"github.com/hubenschmidt/go-wordcrack/vector"
)

var aliases = map[string]string{
	"id":             "id",
	"級別":             "level",
	"level":          "level",
	"單字":             "word",
	"word":           "word",
	"屬性":             "part_of_speech",
	"part_of_speech": "part_of_speech",
	"中文":             "translation",
	"chinese":        "translation",
	"translation":    "translation",
	"embedding":      "embedding",
}

// Row is one parsed line. Vector is nil when the file has no embedding.
type Row struct {
	Word   core.WordEntry
	Vector []float32
}

// ReadCSV parses every row. Rows with an empty headword are skipped.
func ReadCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if name, ok := aliases[strings.ToLower(h)]; ok {
			cols[name] = i
		}
	}
	if _, ok := cols["word"]; !ok {
		return nil, fmt.Errorf("csv has no word column: %w", core.ErrInvalidArgument)
	}

	field := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var rows []Row
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		w := core.WordEntry{
			Headword:     field(rec, "word"),
			PartOfSpeech: field(rec, "part_of_speech"),
			Translation:  field(rec, "translation"),
			Level:        field(rec, "level"),
		}
		if w.Headword == "" {
			continue
		}

		w.ID = core.WordID(len(rows) + 1)
		if v := field(rec, "id"); v != "" {
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil || id <= 0 {
				return nil, fmt.Errorf("line %d: bad id %q: %w", line, v, core.ErrInvalidArgument)
			}
			w.ID = core.WordID(id)
		}

		row := Row{Word: w}
		if v := field(rec, "embedding"); v != "" {
			vec, err := vector.DecodeJSON([]byte(v))
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			row.Vector = vec
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// WriteCSV writes rows with English headers. The embedding column is added
// when any row carries a vector.
func WriteCSV(w io.Writer, rows []Row) error {
	withVectors := false
	for _, r := range rows {
		if r.Vector != nil {
			withVectors = true
			break
		}
	}

	cw := csv.NewWriter(w)
	header := []string{"id", "level", "word", "part_of_speech", "translation"}
	if withVectors {
		header = append(header, "embedding")
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, r := range rows {
		rec := []string{
			strconv.FormatInt(int64(r.Word.ID), 10),
			r.Word.Level,
			r.Word.Headword,
			r.Word.PartOfSpeech,
			r.Word.Translation,
		}
		if withVectors {
			var enc string
			if r.Vector != nil {
				b, err := vector.EncodeJSON(r.Vector)
				if err != nil {
					return err
				}
				enc = string(b)
			}
			rec = append(rec, enc)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
