package language

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupEveryKey(t *testing.T) {
	want := map[string]struct {
		id   int
		name string
		ext  string
	}{
		"python":     {71, "Python", "py"},
		"cpp":        {54, "C++", "cpp"},
		"c":          {50, "C", "c"},
		"java":       {62, "Java", "java"},
		"javascript": {63, "JavaScript", "js"},
		"typescript": {74, "TypeScript", "ts"},
		"go":         {60, "Go", "go"},
		"rust":       {73, "Rust", "rs"},
		"ruby":       {72, "Ruby", "rb"},
		"php":        {68, "PHP", "php"},
		"csharp":     {51, "C#", "cs"},
		"kotlin":     {78, "Kotlin", "kt"},
		"swift":      {83, "Swift", "swift"},
		"bash":       {46, "Bash", "sh"},
		"sql":        {82, "SQL", "sql"},
	}

	require.Len(t, All(), len(want))

	for key, w := range want {
		d, err := Lookup(key)
		require.NoError(t, err, key)
		assert.Equal(t, key, d.Key)
		assert.Equal(t, w.id, d.ID, key)
		assert.Equal(t, w.name, d.Name, key)
		assert.Equal(t, w.ext, d.Ext, key)
	}
}

func TestLookupUnknown(t *testing.T) {
	_, err := Lookup("cobol")
	require.ErrorIs(t, err, ErrUnknownLanguage)
	assert.Contains(t, err.Error(), `"cobol"`)

	// Lookup is exact; aliases only go through Resolve.
	_, err = Lookup("py")
	require.ErrorIs(t, err, ErrUnknownLanguage)
}

func TestResolveAliases(t *testing.T) {
	cases := map[string]string{
		"py":     "python",
		"JS":     "javascript",
		" c++ ":  "cpp",
		"golang": "go",
		"C#":     "csharp",
		"sh":     "bash",
		"Python": "python",
		"kotlin": "kotlin",
	}
	for in, key := range cases {
		d, err := Resolve(in)
		require.NoError(t, err, in)
		assert.Equal(t, key, d.Key, in)
	}

	_, err := Resolve("brainfuck")
	assert.ErrorIs(t, err, ErrUnknownLanguage)
}

func TestFromExt(t *testing.T) {
	d, ok := FromExt("hello.py")
	require.True(t, ok)
	assert.Equal(t, "python", d.Key)

	d, ok = FromExt("/tmp/MAIN.RS")
	require.True(t, ok)
	assert.Equal(t, "rust", d.Key)

	d, ok = FromExt("bundle.mjs")
	require.True(t, ok)
	assert.Equal(t, "javascript", d.Key)

	_, ok = FromExt("Makefile")
	assert.False(t, ok)

	_, ok = FromExt("notes.txt")
	assert.False(t, ok)
}

func TestKeysSorted(t *testing.T) {
	keys := Keys()
	require.Len(t, keys, 15)
	assert.IsIncreasing(t, keys)
	assert.Equal(t, "bash", keys[0])
}
