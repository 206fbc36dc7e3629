package accept

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"

	"github.com/Mohsinsiddi/quarkcheck/internal/chain"
	"gopkg.in/yaml.v3"
)

// knownChains is the registry scenario files are checked against.
var knownChains = chain.NewRegistry()

//go:embed corpus/*.yaml
var corpus embed.FS

// file is the on-disk layout: a table of scenarios sharing a name prefix.
type file struct {
	Prefix string           `yaml:"prefix"`
	Tests  []AcceptanceTest `yaml:"tests"`
}

// Corpus returns the built-in scenario table.
func Corpus() ([]AcceptanceTest, error) {
	sub, err := fs.Sub(corpus, "corpus")
	if err != nil {
		return nil, err
	}
	return LoadFS(sub)
}

// LoadDir loads every *.yaml file directly under dir.
func LoadDir(dir string) ([]AcceptanceTest, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("scenario dir: %w", err)
	}
	return LoadFS(os.DirFS(dir))
}

// LoadFS loads and validates every *.yaml file at the root of fsys.
func LoadFS(fsys fs.FS) ([]AcceptanceTest, error) {
	matches, err := fs.Glob(fsys, "*.yaml")
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)

	var all []AcceptanceTest
	for _, name := range matches {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, err
		}
		tests, err := Parse(name, data)
		if err != nil {
			return nil, err
		}
		all = append(all, tests...)
	}
	return all, checkUnique(all)
}

// Load is Corpus followed by every directory in dirs.
func Load(dirs ...string) ([]AcceptanceTest, error) {
	all, err := Corpus()
	if err != nil {
		return nil, err
	}
	for _, dir := range dirs {
		tests, err := LoadDir(dir)
		if err != nil {
			return nil, err
		}
		all = append(all, tests...)
	}
	return all, checkUnique(all)
}

// Parse decodes one scenario file and validates each test against the
// chain registry. Unknown fields are rejected.
func Parse(source string, data []byte) ([]AcceptanceTest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f file
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	for i := range f.Tests {
		t := &f.Tests[i]
		t.Source = source
		if f.Prefix != "" && t.Name != "" {
			t.Name = f.Prefix + "/" + t.Name
		}
		if err := t.Validate(knownChains); err != nil {
			return nil, fmt.Errorf("%s: %w", source, err)
		}
	}
	return f.Tests, nil
}

func checkUnique(tests []AcceptanceTest) error {
	seen := make(map[string]string, len(tests))
	for _, t := range tests {
		if prev, ok := seen[t.Name]; ok {
			return fmt.Errorf("%w: %q defined in %s and %s", ErrInvalidScenario, t.Name, prev, t.Source)
		}
		seen[t.Name] = t.Source
	}
	return nil
}

func matchName(pattern, name string) bool {
	if pattern == name {
		return true
	}
	ok, err := path.Match(pattern, name)
	return err == nil && ok
}
