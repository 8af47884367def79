package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hubenschmidt/go-wordcrack/core"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	if err := Execute(); err != nil {
		t.Fatalf("wordcrack %s: %v\n%s", strings.Join(args, " "), err, out.String())
	}
	return out.String()
}

func TestImportThenSimilar(t *testing.T) {
	t.Setenv("WORDCRACK_EMBED_DIMENSION", "2")
	dir := t.TempDir()
	db := filepath.Join(dir, "words.db")
	csvPath := filepath.Join(dir, "words.csv")
	csv := "級別,單字,屬性,中文,embedding\n" +
		"1,apple,n.,蘋果,\"[1,0]\"\n" +
		"1,pear,n.,梨,\"[0.9,0.1]\"\n" +
		"2,run,v.,跑,\"[0,1]\"\n"
	if err := os.WriteFile(csvPath, []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}

	out := run(t, "--db", db, "--log-level", "error", "import", csvPath)
	if !strings.Contains(out, "imported 3 words, 3 vectors") {
		t.Fatalf("import output = %q", out)
	}

	out = run(t, "--db", db, "--log-level", "error", "similar", "apple", "--top-k", "2", "--json")
	var results []core.NeighborResult
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("similar output %q: %v", out, err)
	}
	if len(results) != 2 || results[0].Word != "pear" || results[1].Word != "run" {
		t.Fatalf("results = %+v", results)
	}

	out = run(t, "--db", db, "--log-level", "error", "neighbors", "build", "--top-k", "1")
	if !strings.Contains(out, "stored neighbours for 3 words") {
		t.Fatalf("neighbors output = %q", out)
	}
}

func TestVersion(t *testing.T) {
	if out := run(t, "version"); !strings.HasPrefix(out, "wordcrack ") {
		t.Fatalf("version output = %q", out)
	}
}
