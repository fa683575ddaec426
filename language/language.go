// Package language holds the fixed table of languages a snippet can be
// written in, keyed the way snippet authors refer to them.
//
// Each [Descriptor] carries the numeric identifier the remote execution
// service uses for that language. The table is reference data: it never
// changes at runtime.
package language

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// ErrUnknownLanguage is returned when a key is not in the descriptor table.
var ErrUnknownLanguage = errors.New("unknown language")

// Descriptor describes one supported language.
type Descriptor struct {
	Key  string // snippet key, e.g. "python"
	ID   int    // remote execution service language id
	Name string // display name
	Ext  string // file extension without the dot
}

var descriptors = map[string]Descriptor{
	"python":     {Key: "python", ID: 71, Name: "Python", Ext: "py"},
	"cpp":        {Key: "cpp", ID: 54, Name: "C++", Ext: "cpp"},
	"c":          {Key: "c", ID: 50, Name: "C", Ext: "c"},
	"java":       {Key: "java", ID: 62, Name: "Java", Ext: "java"},
	"javascript": {Key: "javascript", ID: 63, Name: "JavaScript", Ext: "js"},
	"typescript": {Key: "typescript", ID: 74, Name: "TypeScript", Ext: "ts"},
	"go":         {Key: "go", ID: 60, Name: "Go", Ext: "go"},
	"rust":       {Key: "rust", ID: 73, Name: "Rust", Ext: "rs"},
	"ruby":       {Key: "ruby", ID: 72, Name: "Ruby", Ext: "rb"},
	"php":        {Key: "php", ID: 68, Name: "PHP", Ext: "php"},
	"csharp":     {Key: "csharp", ID: 51, Name: "C#", Ext: "cs"},
	"kotlin":     {Key: "kotlin", ID: 78, Name: "Kotlin", Ext: "kt"},
	"swift":      {Key: "swift", ID: 83, Name: "Swift", Ext: "swift"},
	"bash":       {Key: "bash", ID: 46, Name: "Bash", Ext: "sh"},
	"sql":        {Key: "sql", ID: 82, Name: "SQL", Ext: "sql"},
}

// aliases maps the short names people type on a command line to table keys.
var aliases = map[string]string{
	"py":     "python",
	"js":     "javascript",
	"ts":     "typescript",
	"c++":    "cpp",
	"cs":     "csharp",
	"c#":     "csharp",
	"sh":     "bash",
	"golang": "go",
	"rs":     "rust",
	"rb":     "ruby",
	"kt":     "kotlin",
}

// Lookup returns the descriptor for an exact table key.
func Lookup(key string) (Descriptor, error) {
	d, ok := descriptors[key]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %q", ErrUnknownLanguage, key)
	}
	return d, nil
}

// Resolve is like Lookup but also accepts aliases and ignores case.
func Resolve(name string) (Descriptor, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := aliases[key]; ok {
		key = alias
	}
	return Lookup(key)
}

// FromExt returns the descriptor whose extension matches filename.
func FromExt(filename string) (Descriptor, bool) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ext == "" {
		return Descriptor{}, false
	}
	if ext == "mjs" {
		ext = "js"
	}
	for _, d := range descriptors {
		if d.Ext == ext {
			return d, true
		}
	}
	return Descriptor{}, false
}

// All returns every descriptor, sorted by key.
func All() []Descriptor {
	out := make([]Descriptor, 0, len(descriptors))
	for _, d := range descriptors {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Keys returns every table key, sorted.
func Keys() []string {
	all := All()
	keys := make([]string, len(all))
	for i, d := range all {
		keys[i] = d.Key
	}
	return keys
}
