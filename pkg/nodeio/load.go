package nodeio

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Envelopes are the top-level keys a JSON or YAML object may carry the
// record list under.
var Envelopes = []string{"nodes", "taxons", "menu_items"}

// Load reads records from path, choosing the format by extension
// (.json, .yaml/.yml, .csv, .xlsx), and validates them.
func Load(path string) (Records, error) {
	var (
		rs  Records
		err error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		rs, err = loadJSON(path)
	case ".yaml", ".yml":
		rs, err = loadYAML(path)
	case ".csv":
		rs, err = loadCSV(path)
	case ".xlsx":
		rs, err = loadXLSX(path)
	default:
		return nil, fmt.Errorf("unsupported input format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if err := rs.Validate(); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return rs, nil
}

func loadJSON(path string) (Records, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var rs Records
		if err := json.Unmarshal(b, &rs); err != nil {
			return nil, err
		}
		return rs, nil
	}

	var env map[string]json.RawMessage
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, err
	}
	for _, key := range Envelopes {
		raw, ok := env[key]
		if !ok {
			continue
		}
		var rs Records
		if err := json.Unmarshal(raw, &rs); err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		return rs, nil
	}
	return nil, envelopeError(keysOf(env))
}

func loadYAML(path string) (Records, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]
	if root.Kind == yaml.SequenceNode {
		var rs Records
		if err := root.Decode(&rs); err != nil {
			return nil, err
		}
		return rs, nil
	}

	var env map[string]yaml.Node
	if err := root.Decode(&env); err != nil {
		return nil, err
	}
	for _, key := range Envelopes {
		n, ok := env[key]
		if !ok {
			continue
		}
		var rs Records
		if err := n.Decode(&rs); err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		return rs, nil
	}
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return nil, envelopeError(keys)
}

func keysOf(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func envelopeError(keys []string) error {
	return fmt.Errorf("expected an array or an object with one of [%s], got keys [%s]",
		strings.Join(Envelopes, ", "), strings.Join(keys, ", "))
}
