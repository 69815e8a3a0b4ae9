package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

func writeJSONLine(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return withCode(exitDB, fmt.Errorf("json encode: %w", err))
	}
	return nil
}

// createOutput opens path for writing, creating parent directories.
func createOutput(path string) (*os.File, error) {
	if strings.TrimSpace(path) == "" {
		return nil, withCode(exitUsage, fmt.Errorf("--output is required"))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, withCode(exitUsage, fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err))
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, withCode(exitUsage, fmt.Errorf("create %s: %w", path, err))
	}
	return f, nil
}

func newRunID() string {
	return uuid.NewString()
}
