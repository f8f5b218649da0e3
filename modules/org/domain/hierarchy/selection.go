package hierarchy

// Selection is the (site, department, sub-department) choice of one widget
// group. An empty field means "unselected".
type Selection struct {
	Site          string `json:"site" form:"site"`
	Department    string `json:"department" form:"department"`
	Subdepartment string `json:"subdepartment" form:"subdepartment"`
}

func (s Selection) IsZero() bool {
	return s.Site == "" && s.Department == "" && s.Subdepartment == ""
}

func (s Selection) Value(level Level) string {
	switch level {
	case LevelSite:
		return s.Site
	case LevelDepartment:
		return s.Department
	case LevelSubdepartment:
		return s.Subdepartment
	default:
		return ""
	}
}

// Consistent reports whether s satisfies the parent-implies-children rule
// against h.
func (s Selection) Consistent(h *Hierarchy) bool {
	if s.Site != "" && !h.HasSite(s.Site) {
		return false
	}
	if s.Department != "" && (s.Site == "" || !h.HasDepartment(s.Site, s.Department)) {
		return false
	}
	if s.Subdepartment != "" && (s.Department == "" || !h.HasSubdepartment(s.Site, s.Department, s.Subdepartment)) {
		return false
	}
	return true
}
