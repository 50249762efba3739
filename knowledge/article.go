// Package knowledge loads the help-desk knowledge corpus and splits articles
// into bounded text spans ready for embedding.
package knowledge

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidCorpus is returned when a corpus violates an identity constraint
// (missing or duplicate article ids).
var ErrInvalidCorpus = errors.New("invalid knowledge corpus")

// Article is a single knowledge base entry. Articles are immutable once loaded.
type Article struct {
	ID            string   `json:"id" yaml:"id"`
	Category      string   `json:"category" yaml:"category"`
	Title         string   `json:"title" yaml:"title"`
	Content       string   `json:"content" yaml:"content"`
	Tags          []string `json:"tags" yaml:"tags"`
	RelatedIssues []string `json:"related_issues,omitempty" yaml:"related_issues,omitempty"`
}

// Document renders the text that gets chunked and embedded for the article.
func (a Article) Document() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\nCategory: %s\nID: %s\n\n", a.Title, a.Category, a.ID)
	b.WriteString(strings.TrimSpace(a.Content))
	if len(a.Tags) > 0 {
		fmt.Fprintf(&b, "\n\nTags: %s", strings.Join(a.Tags, ", "))
	}
	return b.String()
}

// LoadCorpus reads an ordered article collection from path. Files ending in
// .yaml or .yml are parsed as YAML, everything else as JSON.
func LoadCorpus(path string) ([]Article, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}

	var articles []Article
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &articles)
	default:
		err = json.Unmarshal(data, &articles)
	}
	if err != nil {
		return nil, fmt.Errorf("parse corpus %s: %w", path, err)
	}

	return Normalize(articles)
}

// Normalize validates article identity and deduplicates tags, preserving the
// first occurrence order.
func Normalize(articles []Article) ([]Article, error) {
	seen := make(map[string]struct{}, len(articles))
	out := make([]Article, 0, len(articles))

	for i, a := range articles {
		a.ID = strings.TrimSpace(a.ID)
		if a.ID == "" {
			return nil, fmt.Errorf("%w: article %d has no id", ErrInvalidCorpus, i)
		}
		if _, dup := seen[a.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate article id %q", ErrInvalidCorpus, a.ID)
		}
		seen[a.ID] = struct{}{}

		a.Tags = dedupe(a.Tags)
		a.RelatedIssues = append([]string(nil), a.RelatedIssues...)
		out = append(out, a)
	}

	return out, nil
}

func dedupe(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
