package audience

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrEmptyTaxonomy = errors.New("taxonomy is empty")

// Taxonomy is the closed set of codes the classifier may choose from. Its
// structure is opaque to the program; it is only rendered into prompts.
type Taxonomy map[string]any

// LoadTaxonomy reads a taxonomy from a JSON or YAML file.
func LoadTaxonomy(path string) (Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy %q: %w", path, err)
	}

	var taxonomy Taxonomy
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &taxonomy)
	default:
		err = json.Unmarshal(data, &taxonomy)
	}
	if err != nil {
		return nil, fmt.Errorf("decode taxonomy %q: %w", path, err)
	}

	if len(taxonomy) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyTaxonomy)
	}

	return taxonomy, nil
}

// Render returns the taxonomy as indented JSON.
func (t Taxonomy) Render() (string, error) {
	if len(t) == 0 {
		return "", ErrEmptyTaxonomy
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(t); err != nil {
		return "", fmt.Errorf("render taxonomy: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}
