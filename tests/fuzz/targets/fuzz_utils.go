package targets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/tools/txtar"

	"github.com/funvibe/expect/internal/token"
)

// LoadCorpus seeds f with every input.py found in the txtar archives under
// dirs.
func LoadCorpus(f *testing.F, dirs ...string) {
	for _, dir := range dirs {
		err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() || !strings.HasSuffix(path, ".txtar") {
				return nil
			}
			ar, err := txtar.ParseFile(path)
			if err != nil {
				return err
			}
			for _, file := range ar.Files {
				if strings.HasSuffix(file.Name, ".py") {
					f.Add(file.Data)
				}
			}
			return nil
		})
		if err != nil {
			// It's okay if we can't load the corpus, just log it
			f.Logf("Failed to load corpus from %s: %v", dir, err)
		}
	}
}

// checkLayout reports the first token that starts before the previous one
// ended on the same row. A stream that passes can be printed back.
func checkLayout(t *testing.T, tokens []token.Token) {
	t.Helper()
	for i := 1; i < len(tokens); i++ {
		prev, cur := tokens[i-1], tokens[i]
		if cur.Start.Row == prev.End.Row && cur.Start.Col < prev.End.Col {
			t.Fatalf("token %d %s overlaps %s", i, cur, prev)
		}
		if cur.Start.Row < prev.Start.Row {
			t.Fatalf("token %d %s goes back a row from %s", i, cur, prev)
		}
	}
}

func hasTrigger(tokens []token.Token) bool {
	for _, tok := range tokens {
		if tok.IsName("expect") {
			return true
		}
	}
	return false
}
