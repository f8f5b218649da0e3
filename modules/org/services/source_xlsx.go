package services

import (
	"context"
	"io"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/iota-uz/orgcascade/modules/org/domain/hierarchy"
)

// DefaultXLSXSite names rows whose site cell is blank.
const DefaultXLSXSite = "OFICINA CENTRAL"

var (
	xlsxSiteHeaders          = []string{"SEDE"}
	xlsxDepartmentHeaders    = []string{"DIRECCION", "DEPENDENCIA"}
	xlsxSubdepartmentHeaders = []string{"SUBDIRECCION", "SUBDEPENDENCIA"}
)

// XLSXSource reads the organization from the first worksheet of a workbook
// with SEDE / DIRECCION / SUBDIRECCION columns.
type XLSXSource struct {
	path string
}

func NewXLSXSource(path string) (*XLSXSource, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, ErrNoSource
	}
	return &XLSXSource{path: path}, nil
}

func (s *XLSXSource) Name() string { return "xlsx" }

func (s *XLSXSource) Load(_ context.Context) (*hierarchy.Hierarchy, error) {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", s.path)
	}
	defer func() { _ = f.Close() }()
	return hierarchyFromWorkbook(f)
}

// ReadXLSX builds the hierarchy from a workbook stream.
func ReadXLSX(r io.Reader) (*hierarchy.Hierarchy, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "open workbook")
	}
	defer func() { _ = f.Close() }()
	return hierarchyFromWorkbook(f)
}

func hierarchyFromWorkbook(f *excelize.File) (*hierarchy.Hierarchy, error) {
	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, errors.New("no worksheet found")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrapf(err, "read sheet %s", sheet)
	}
	return HierarchyFromRows(rows)
}

// HierarchyFromRows builds the hierarchy from spreadsheet rows, the first of
// which is the header. Sites, departments and sub-departments are
// de-duplicated and sorted; every site is kept even without departments.
func HierarchyFromRows(rows [][]string) (*hierarchy.Hierarchy, error) {
	if len(rows) == 0 {
		return hierarchy.New(), nil
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.ToUpper(cleanCell(h))
	}
	iSite := headerPos(header, xlsxSiteHeaders)
	iDep := headerPos(header, xlsxDepartmentHeaders)
	iSub := headerPos(header, xlsxSubdepartmentHeaders)
	if iSite < 0 || iDep < 0 || iSub < 0 {
		return nil, errors.Errorf("expected headers SEDE, DIRECCION, SUBDIRECCION; got %v", header)
	}

	sites := map[string]map[string]map[string]struct{}{}
	for _, row := range rows[1:] {
		site := cleanCell(cell(row, iSite))
		dep := cleanCell(cell(row, iDep))
		sub := cleanCell(cell(row, iSub))
		if site == "" {
			site = DefaultXLSXSite
		}
		if _, ok := sites[site]; !ok {
			sites[site] = map[string]map[string]struct{}{}
		}
		if dep == "" || dep == "-" {
			continue
		}
		switch strings.ToUpper(sub) {
		case "", "-", "NONE":
			sub = ""
		}
		if _, ok := sites[site][dep]; !ok {
			sites[site][dep] = map[string]struct{}{}
		}
		if sub != "" {
			sites[site][dep][sub] = struct{}{}
		}
	}

	h := hierarchy.New()
	for _, site := range sortedKeys(sites) {
		h.EnsureSite(site)
		for _, dep := range sortedKeys(sites[site]) {
			h.SetDepartment(site, dep, sortedKeys(sites[site][dep]))
		}
	}
	return h, nil
}

func headerPos(header []string, names []string) int {
	for _, n := range names {
		for i, h := range header {
			if h == n {
				return i
			}
		}
	}
	return -1
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

func cleanCell(v string) string {
	for strings.Contains(v, "  ") {
		v = strings.ReplaceAll(v, "  ", " ")
	}
	return strings.TrimSpace(v)
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
