// Package rules loads user rule files that extend the classifier
// tables with extra known words, short words, and impossible key
// patterns. Files are JSON and are validated against an embedded
// schema before anything is merged, so a malformed file cannot leave
// the tables half-updated.
package rules

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"layoutd/internal/classifier"
	"layoutd/internal/layout"
)

//go:embed schema.json
var schemaJSON []byte

const schemaID = "rules-v1.schema.json"

// File is the parsed form of a rule file.
type File struct {
	Version            int                 `json:"version"`
	KnownWords         map[string][]string `json:"known_words"`
	ShortWords         map[string][]string `json:"short_words"`
	ImpossiblePatterns map[string][]string `json:"impossible_patterns"`
}

// Loader validates and merges rule files.
type Loader struct {
	schema *jsonschema.Schema
}

// NewLoader compiles the embedded schema. Compilation cannot fail for
// a well-formed build, so an error here means a broken binary.
func NewLoader() (*Loader, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaID, bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := compiler.Compile(schemaID)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Loader{schema: schema}, nil
}

// Parse validates raw JSON against the schema and decodes it.
func (l *Loader) Parse(data []byte) (*File, error) {
	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return nil, fmt.Errorf("parse rule file: %w", err)
	}
	if err := l.schema.Validate(instance); err != nil {
		return nil, fmt.Errorf("invalid rule file: %w", err)
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode rule file: %w", err)
	}
	return &f, nil
}

// LoadFile reads, validates, and decodes one rule file.
func (l *Loader) LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule file: %w", err)
	}
	f, err := l.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Merge applies a parsed rule file to the classifier tables.
func Merge(tables *classifier.Tables, f *File) error {
	for name, words := range f.KnownWords {
		lang, err := langFor(name)
		if err != nil {
			return err
		}
		tables.AddKnownWords(lang, words...)
	}
	for name, words := range f.ShortWords {
		lang, err := langFor(name)
		if err != nil {
			return err
		}
		tables.AddShortWords(lang, words...)
	}
	for name, patterns := range f.ImpossiblePatterns {
		lang, err := langFor(name)
		if err != nil {
			return err
		}
		tables.AddImpossiblePatterns(lang, patterns...)
	}
	return nil
}

// LoadAll loads every path into the tables, stopping on the first
// failure. Order matters only for error reporting; merges are
// additive.
func (l *Loader) LoadAll(tables *classifier.Tables, paths []string) error {
	for _, path := range paths {
		f, err := l.LoadFile(path)
		if err != nil {
			return err
		}
		if err := Merge(tables, f); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}

func langFor(name string) (layout.Language, error) {
	lang, err := layout.Parse(name)
	if err != nil {
		return layout.LangUnknown, err
	}
	if lang == layout.LangUnknown {
		return lang, fmt.Errorf("unknown language %q", name)
	}
	return lang, nil
}
