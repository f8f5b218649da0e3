package main

import (
	"encoding/json"
	"fmt"
	"io"
)

func writeJSONLine(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return withCode(exitWrite, fmt.Errorf("json encode: %w", err))
	}
	return nil
}
