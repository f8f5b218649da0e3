package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/iota-uz/orgcascade/modules/org/services"
)

const sedesDoc = `{"sedes": [
	{"nombre": "Zona Sur", "dependencias": [
		{"nombre": "Tesorería", "subdependencias": ["Pagos", {"nombre": "Cobros"}]},
		{"nombre": "Archivo", "subdependencias": []}
	]},
	{"name": "Área Norte", "dependencies": [
		{"name": "Jurídica", "subdependencies": ["Contratos"]}
	]}
]}`

const usersCSV = "\xEF\xBB\xBFusuario_red,nombres,tipo_contrato,sede,dependencia,subdependencia,estado,extra\n" +
	"jperez,Juan Pérez,Planta,Zona Sur,Tesorería,Pagos,Activo,x\n" +
	"mgomez,María Gómez,Contrato,Zona Sur,Tesorería,Cobros,Activo,x\n" +
	"lrojas,Luis Rojas,Planta,Zona Sur,Archivo,,Inactivo,x\n" +
	"aruiz,Ana Ruiz,Planta,Área Norte,Jurídica,Contratos,Activo,x\n" +
	"sinorg,Sin Org,Planta,,,,Activo,x\n"

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func jsonLines(t *testing.T, out string) []map[string]any {
	t.Helper()
	var lines []map[string]any
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		var v map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &v))
		lines = append(lines, v)
	}
	return lines
}

func TestNormalizeCmd(t *testing.T) {
	input := writeFile(t, "org.json", sedesDoc)

	out, err := run(t, "normalize", "--input", input)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"Zona Sur": {"Tesorería": ["Pagos", "Cobros"], "Archivo": []},
		"Área Norte": {"Jurídica": ["Contratos"]}
	}`, out)
	require.Less(t, strings.Index(out, "Zona Sur"), strings.Index(out, "Área Norte"))

	output := filepath.Join(t.TempDir(), "nested", "canonical.json")
	out, err = run(t, "normalize", "--input", input, "--output", output)
	require.NoError(t, err)
	require.Empty(t, out)
	written, err := os.ReadFile(output)
	require.NoError(t, err)
	require.Contains(t, string(written), `"Tesorería": [`)
}

func TestNormalizeCmd_Malformed(t *testing.T) {
	input := writeFile(t, "broken.json", `{"HQ": `)

	out, err := run(t, "normalize", "--input", input)
	require.NoError(t, err)
	require.Equal(t, "{}\n", out)

	_, err = run(t, "normalize", "--input", input, "--strict")
	require.Equal(t, exitValidation, exitCode(err))
	require.ErrorIs(t, err, services.ErrInvalidJSON)

	_, err = run(t, "normalize", "--input", filepath.Join(t.TempDir(), "missing.json"))
	require.Equal(t, exitUsage, exitCode(err))
}

func TestImportXLSXCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "org.xlsx")
	f := excelize.NewFile()
	rows := [][]interface{}{
		{"SEDE", "DIRECCION", "SUBDIRECCION"},
		{"NORTE", "OPERACIONES", "FLOTA"},
		{"NORTE", "OPERACIONES", "ALMACEN"},
		{"", "FINANZAS", "-"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	out, err := run(t, "import-xlsx", "--input", path)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"NORTE": {"OPERACIONES": ["ALMACEN", "FLOTA"]},
		"OFICINA CENTRAL": {"FINANZAS": []}
	}`, out)

	out, err = run(t, "options", "--input", path, "--site", "NORTE", "--department", "OPERACIONES")
	require.NoError(t, err)
	require.Contains(t, out, `"options":["ALMACEN","FLOTA"]`)
}

func TestOptionsCmd_Edit(t *testing.T) {
	input := writeFile(t, "org.json", sedesDoc)

	out, err := run(t, "options", "--input", input, "--site", "Zona Sur", "--department", "Tesorería", "--subdepartment", "Gone")
	require.NoError(t, err)

	var res optionsResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Equal(t, "edit", res.Mode)
	require.Equal(t, "Zona Sur", res.Selection.Site)
	require.Equal(t, "Tesorería", res.Selection.Department)
	require.Empty(t, res.Selection.Subdepartment)
	require.Equal(t, "Gone", res.Requested.Subdepartment)
	require.Equal(t, []string{"Zona Sur", "Área Norte"}, res.Site.Options)
	require.Equal(t, []string{"Pagos", "Cobros"}, res.Subdepartment.Options)
	require.Equal(t, "Select sub-department", res.Subdepartment.Placeholder)
}

func TestOptionsCmd_Filter(t *testing.T) {
	input := writeFile(t, "org.json", sedesDoc)

	out, err := run(t, "options", "--input", input, "--mode", "filter", "--site", "Zona Sur")
	require.NoError(t, err)

	var res optionsResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Equal(t, []string{"Área Norte", "Zona Sur"}, res.Site.Options)
	require.Equal(t, []string{"Archivo", "Tesorería"}, res.Department.Options)
	require.Equal(t, "All", res.Department.Placeholder)
	require.Empty(t, res.Selection.Department)
}

func TestOptionsCmd_FromURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, sedesDoc)
	}))
	defer srv.Close()

	out, err := run(t, "options", "--url", srv.URL, "--site", "Área Norte")
	require.NoError(t, err)
	require.Contains(t, out, `"options":["Jurídica"]`)
}

func TestOptionsCmd_Errors(t *testing.T) {
	input := writeFile(t, "org.json", sedesDoc)

	cases := []struct {
		name string
		args []string
		code int
	}{
		{"no source", []string{"options"}, exitUsage},
		{"two sources", []string{"options", "--input", input, "--url", "http://localhost"}, exitUsage},
		{"bad mode", []string{"options", "--input", input, "--mode", "browse"}, exitUsage},
		{"bad log level", []string{"options", "--input", input, "--log-level", "loud"}, exitUsage},
		{"unreachable source", []string{"options", "--input", filepath.Join(t.TempDir(), "missing.json")}, exitSource},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := run(t, tc.args...)
			require.Error(t, err)
			require.Equal(t, tc.code, exitCode(err))
		})
	}
}

func TestFilterCmd_Users(t *testing.T) {
	input := writeFile(t, "org.json", sedesDoc)
	users := writeFile(t, "users.csv", usersCSV)

	out, err := run(t, "filter", "--input", input, "--users", users, "--site", "Zona Sur", "--department", "Tesorería")
	require.NoError(t, err)
	lines := jsonLines(t, out)
	require.Len(t, lines, 2)
	require.Equal(t, "jperez", lines[0]["usuario_red"])
	require.Equal(t, "mgomez", lines[1]["usuario_red"])

	out, err = run(t, "filter", "--input", input, "--users", users, "--q", "PÉREZ")
	require.NoError(t, err)
	require.Len(t, jsonLines(t, out), 1)

	out, err = run(t, "filter", "--input", input, "--users", users, "--status", "activo")
	require.NoError(t, err)
	require.Len(t, jsonLines(t, out), 4)
}

func TestFilterCmd_StaleSelectionMatchesAll(t *testing.T) {
	input := writeFile(t, "org.json", sedesDoc)
	users := writeFile(t, "users.csv", usersCSV)

	out, err := run(t, "filter", "--input", input, "--users", users, "--site", "Closed Site", "--department", "Tesorería")
	require.NoError(t, err)
	require.Len(t, jsonLines(t, out), 5)
}

func TestFilterCmd_CountBy(t *testing.T) {
	input := writeFile(t, "org.json", sedesDoc)
	users := writeFile(t, "users.csv", usersCSV)

	out, err := run(t, "filter", "--input", input, "--users", users, "--count-by", "site", "--top", "1")
	require.NoError(t, err)

	var res countResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Equal(t, 5, res.Series.Total)
	require.Equal(t, []services.CountItem{{Label: "Zona Sur", Count: 3, Pct: 60}}, res.Series.Items)
	require.Equal(t, 2, res.Series.Others)

	_, err = run(t, "filter", "--input", input, "--users", users, "--count-by", "floor")
	require.Equal(t, exitUsage, exitCode(err))
}

func TestFilterCmd_BadUsersFile(t *testing.T) {
	input := writeFile(t, "org.json", sedesDoc)
	users := writeFile(t, "users.csv", "nombres,sede\nJuan,HQ\n")

	_, err := run(t, "filter", "--input", input, "--users", users)
	require.Equal(t, exitValidation, exitCode(err))
	require.Contains(t, err.Error(), "usuario_red")
}

func TestExitCodes(t *testing.T) {
	inner := withCode(exitValidation, fmt.Errorf("bad row"))
	require.Equal(t, exitValidation, exitCode(withCode(exitSource, inner)))
	require.Equal(t, exitFailure, exitCode(fmt.Errorf("plain")))
	require.Equal(t, exitOK, exitCode(nil))
	require.NoError(t, withCode(exitUsage, nil))

	require.Equal(t, "org source unavailable: down", describe(withCode(exitSource, fmt.Errorf("down"))))
	require.Equal(t, "error: plain", describe(fmt.Errorf("plain")))
}
