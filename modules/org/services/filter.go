package services

import (
	"math"
	"sort"
	"strings"

	"github.com/iota-uz/orgcascade/modules/org/domain/hierarchy"
)

// EmptyLabel stands for a blank value in count series.
const EmptyLabel = "—"

// NetworkUser is one row of the network user registry.
type NetworkUser struct {
	Username      string `json:"usuario_red" csv:"usuario_red"`
	FullName      string `json:"nombres" csv:"nombres"`
	ContractType  string `json:"tipo_contrato" csv:"tipo_contrato"`
	Site          string `json:"sede" csv:"sede"`
	Department    string `json:"dependencia" csv:"dependencia"`
	Subdepartment string `json:"subdependencia" csv:"subdependencia"`
	Status        string `json:"estado" csv:"estado"`
}

func (u NetworkUser) Value(level hierarchy.Level) string {
	switch level {
	case hierarchy.LevelSite:
		return u.Site
	case hierarchy.LevelDepartment:
		return u.Department
	case hierarchy.LevelSubdepartment:
		return u.Subdepartment
	default:
		return ""
	}
}

// UserFilter is the filter panel's query. Empty fields match everything.
type UserFilter struct {
	// Query matches case-insensitively anywhere in the username, the full
	// name or the department.
	Query     string
	Selection hierarchy.Selection
	Status    string
}

func (f UserFilter) Matches(u NetworkUser) bool {
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !strings.Contains(strings.ToLower(u.Username), q) &&
			!strings.Contains(strings.ToLower(u.FullName), q) &&
			!strings.Contains(strings.ToLower(u.Department), q) {
			return false
		}
	}
	for _, level := range []hierarchy.Level{hierarchy.LevelSite, hierarchy.LevelDepartment, hierarchy.LevelSubdepartment} {
		if want := f.Selection.Value(level); want != "" && u.Value(level) != want {
			return false
		}
	}
	if f.Status != "" && !strings.EqualFold(u.Status, f.Status) {
		return false
	}
	return true
}

func FilterUsers(users []NetworkUser, f UserFilter) []NetworkUser {
	out := make([]NetworkUser, 0, len(users))
	for _, u := range users {
		if f.Matches(u) {
			out = append(out, u)
		}
	}
	return out
}

type CountItem struct {
	Label string `json:"label"`
	Count int    `json:"count"`
	Pct   int    `json:"pct"`
}

type CountSeries struct {
	Total  int         `json:"total"`
	Items  []CountItem `json:"items"`
	Others int         `json:"otros_count"`
}

// CountByLevel counts users per value of level, largest first (ties by
// label). topN <= 0 keeps every value; otherwise the remainder is reported
// as Others.
func CountByLevel(users []NetworkUser, level hierarchy.Level, topN int) CountSeries {
	total := len(users)
	counts := map[string]int{}
	for _, u := range users {
		v := strings.TrimSpace(u.Value(level))
		if v == "" {
			v = EmptyLabel
		}
		counts[v]++
	}

	items := make([]CountItem, 0, len(counts))
	for label, n := range counts {
		items = append(items, CountItem{Label: label, Count: n, Pct: percent(n, total)})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Count != items[j].Count {
			return items[i].Count > items[j].Count
		}
		return items[i].Label < items[j].Label
	})
	if topN > 0 && len(items) > topN {
		items = items[:topN]
	}

	kept := 0
	for _, it := range items {
		kept += it.Count
	}
	return CountSeries{Total: total, Items: items, Others: total - kept}
}

func percent(n, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.RoundToEven(float64(n*100) / float64(total)))
}
