package knowledge

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// Note is one entry of the local knowledge base: a markdown file whose YAML
// front matter describes a solution approach.
//
//	---
//	title: Hosted card checkout
//	summary: Take card payments through a hosted checkout page
//	tradeoffs: [per-transaction fees, redirect away from the shop]
//	published: 2025-03-01
//	source: https://example.com/hosted-checkout
//	---
//	Longer discussion...
type Note struct {
	ID        string    `yaml:"-"`
	Title     string    `yaml:"title"`
	Summary   string    `yaml:"summary"`
	Rationale string    `yaml:"rationale"`
	Tradeoffs []string  `yaml:"tradeoffs"`
	Published time.Time `yaml:"published"`
	Source    string    `yaml:"source"`
	Topics    []string  `yaml:"topics"`
	Body      string    `yaml:"-"`
}

// DefaultInclude matches markdown notes anywhere under the root.
var DefaultInclude = []string{"**/*.md"}

// LoadNotes walks root and parses every file matching include and not
// matching exclude (doublestar globs relative to root). Files without a
// summary are skipped.
func LoadNotes(root string, include, exclude []string) ([]Note, error) {
	if len(include) == 0 {
		include = DefaultInclude
	}

	var notes []Note
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if rel != "." && matchesAny(rel+"/", exclude) {
				return filepath.SkipDir
			}
			return nil
		}
		if !matchesAny(rel, include) || matchesAny(rel, exclude) {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", rel, err)
		}
		note, err := ParseNote(data)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", rel, err)
		}
		if note.Summary == "" {
			return nil
		}
		note.ID = rel
		if note.Source == "" {
			note.Source = "note:" + rel
		}
		notes = append(notes, note)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return notes, nil
}

var frontMatterFence = []byte("---")

// ParseNote splits YAML front matter from the markdown body.
func ParseNote(data []byte) (Note, error) {
	var note Note
	trimmed := bytes.TrimLeft(data, "\ufeff \t\r\n")
	if !bytes.HasPrefix(trimmed, frontMatterFence) {
		note.Body = strings.TrimSpace(string(data))
		return note, nil
	}

	rest := trimmed[len(frontMatterFence):]
	end := bytes.Index(rest, append([]byte("\n"), frontMatterFence...))
	if end < 0 {
		return note, fmt.Errorf("unterminated front matter")
	}
	if err := yaml.Unmarshal(rest[:end], &note); err != nil {
		return note, fmt.Errorf("front matter: %w", err)
	}
	body := rest[end+1+len(frontMatterFence):]
	note.Body = strings.TrimSpace(string(body))
	return note, nil
}

func matchesAny(rel string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(filepath.ToSlash(pattern), rel); err == nil && ok {
			return true
		}
		// "vendor/**" should also prune the directory itself.
		if strings.HasSuffix(rel, "/") {
			if ok, err := doublestar.Match(filepath.ToSlash(pattern), strings.TrimSuffix(rel, "/")); err == nil && ok {
				return true
			}
		}
	}
	return false
}
