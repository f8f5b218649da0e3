package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func writeJSONFile(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return withCode(exitWrite, fmt.Errorf("mkdir %s: %w", dir, err))
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return withCode(exitWrite, fmt.Errorf("json marshal: %w", err))
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return withCode(exitWrite, fmt.Errorf("write %s: %w", path, err))
	}
	return nil
}

func isXLSX(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".xlsx")
}
