package dictionary

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// Source supplies raw dictionary content, keyed by domain. Implementations
// exist for a JSON file and for PostgreSQL.
type Source interface {
	Fetch(ctx context.Context) (map[string]DomainFile, error)
	Name() string
}

// DomainFile is the raw per-domain section of a dictionary source.
type DomainFile struct {
	Compounds     []Compound          `json:"compounds"`
	Synonyms      map[string][]string `json:"synonyms"`
	Abbreviations map[string]string   `json:"abbreviations"`
}

// Compound is one compound declaration. The JSON form is either a plain
// string or an object with optional variations, synonyms, and confidence.
type Compound struct {
	Word       string   `json:"word"`
	Variations []string `json:"variations"`
	Synonyms   []string `json:"synonyms"`
	Confidence float64  `json:"confidence"`
}

// UnmarshalJSON accepts both `"คำ"` and `{"word": "คำ", ...}`.
func (c *Compound) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &c.Word)
	}
	type plain Compound
	return json.Unmarshal(data, (*plain)(c))
}

// FileSource reads the dictionary from a JSON file on disk.
type FileSource struct {
	path string
}

// NewFileSource creates a FileSource for the given path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Name() string {
	return "file:" + s.path
}

// Fetch parses the dictionary file. A parse failure rejects the whole file;
// per-entry validation happens later, during generation building.
func (s *FileSource) Fetch(ctx context.Context) (map[string]DomainFile, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("reading dictionary file %s: %w", s.path, err)
	}
	var domains map[string]DomainFile
	if err := json.Unmarshal(data, &domains); err != nil {
		return nil, fmt.Errorf("parsing dictionary file %s: %w", s.path, err)
	}
	return domains, nil
}
