package snippet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caffeineduck/coderunner/language"
)

const manifest = `
snippets:
  - id: hello
    title: Hello
    language: py
    code: |
      print("hello")
  - id: sum
    language: go
    code: |
      package main
    stdin: "1 2"
`

func TestParse(t *testing.T) {
	f, err := Parse([]byte(manifest))
	require.NoError(t, err)
	require.Len(t, f.Snippets, 2)

	assert.Equal(t, Snippet{
		ID:       "hello",
		Title:    "Hello",
		Language: "python",
		Code:     "print(\"hello\")\n",
	}, f.Snippets[0])
	assert.Equal(t, "1 2", f.Snippets[1].Stdin)
}

func TestParseValidation(t *testing.T) {
	cases := map[string]string{
		"missing id":       "snippets:\n  - language: python\n    code: x\n",
		"duplicate id":     "snippets:\n  - {id: a, language: python, code: x}\n  - {id: a, language: python, code: y}\n",
		"unknown language": "snippets:\n  - {id: a, language: cobol, code: x}\n",
		"empty code":       "snippets:\n  - {id: a, language: python}\n",
		"bad yaml":         "snippets: [",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestParseUnknownLanguageIsWrapped(t *testing.T) {
	_, err := Parse([]byte("snippets:\n  - {id: a, language: cobol, code: x}\n"))
	assert.ErrorIs(t, err, language.ErrUnknownLanguage)
}

func TestLoadAndGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snippets.yaml")
	require.NoError(t, os.WriteFile(path, []byte(manifest), 0o644))

	f, err := Load(path)
	require.NoError(t, err)

	s, err := f.Get("sum")
	require.NoError(t, err)
	assert.Equal(t, "go", s.Language)

	_, err = f.Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
