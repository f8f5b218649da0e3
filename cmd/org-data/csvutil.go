package main

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/iota-uz/orgcascade/modules/org/services"
)


func openCSV(path string) (*csv.Reader, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	br := bufio.NewReader(f)
	br = stripUTF8BOM(br)

	r := csv.NewReader(br)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = false
	return r, f.Close, nil
}

func stripUTF8BOM(r *bufio.Reader) *bufio.Reader {
	b, err := r.Peek(3)
	if err == nil && len(b) == 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		_, _ = r.Discard(3)
	}
	return r
}

func readHeader(r *csv.Reader) ([]string, error) {
	h, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("missing header")
		}
		return nil, err
	}
	for i := range h {
		h[i] = strings.ToLower(strings.TrimSpace(h[i]))
		if !utf8.ValidString(h[i]) {
			return nil, fmt.Errorf("invalid header encoding")
		}
	}
	return h, nil
}

func headerIndex(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, name := range header {
		m[name] = i
	}
	return m
}

// requireHeader checks required columns; extra columns are rejected only
// when allowed is non-empty.
func requireHeader(header []string, required []string, allowed []string) error {
	hset := make(map[string]struct{}, len(header))
	for _, h := range header {
		hset[h] = struct{}{}
	}
	for _, req := range required {
		if _, ok := hset[req]; !ok {
			return fmt.Errorf("missing required header column: %s", req)
		}
	}
	if len(allowed) == 0 {
		return nil
	}
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		allowedSet[a] = struct{}{}
	}
	for _, h := range header {
		if _, ok := allowedSet[h]; !ok {
			return fmt.Errorf("unexpected header column: %s", h)
		}
	}
	return nil
}

// readUsers loads the network user registry. Only usuario_red is required;
// missing columns read as empty and unknown ones are ignored.
func readUsers(path string) ([]services.NetworkUser, error) {
	r, closeFn, err := openCSV(path)
	if err != nil {
		return nil, withCode(exitUsage, fmt.Errorf("open %s: %w", path, err))
	}
	defer func() { _ = closeFn() }()

	header, err := readHeader(r)
	if err != nil {
		return nil, withCode(exitValidation, fmt.Errorf("%s: %w", path, err))
	}
	if err := requireHeader(header, []string{"usuario_red"}, nil); err != nil {
		return nil, withCode(exitValidation, fmt.Errorf("%s: %w", path, err))
	}
	idx := headerIndex(header)
	field := func(row []string, name string) string {
		i, ok := idx[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var users []services.NetworkUser
	line := 1
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, withCode(exitValidation, fmt.Errorf("%s:%d: %w", path, line, err))
		}
		users = append(users, services.NetworkUser{
			Username:      field(row, "usuario_red"),
			FullName:      field(row, "nombres"),
			ContractType:  field(row, "tipo_contrato"),
			Site:          field(row, "sede"),
			Department:    field(row, "dependencia"),
			Subdepartment: field(row, "subdependencia"),
			Status:        field(row, "estado"),
		})
	}
	return users, nil
}
