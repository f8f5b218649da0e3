package services

import (
	"encoding/json"
	"slices"
)

// Slot is one selection widget as the cascade sees it: a current value and
// an option list headed by a placeholder. The empty value is the placeholder.
//
// SetOptions need not touch the value: the controller unselects a slot
// itself after replacing its options, and only sets values it has checked
// against the hierarchy.
type Slot interface {
	Value() string
	SetValue(v string)
	SetOptions(placeholder string, options []string)
}

// Slots are the three widgets of one widget group.
type Slots struct {
	Site          Slot
	Department    Slot
	Subdepartment Slot
}

func (s Slots) valid() bool {
	return s.Site != nil && s.Department != nil && s.Subdepartment != nil
}

// SlotView is the rendered state of a slot.
type SlotView struct {
	Value       string   `json:"value"`
	Placeholder string   `json:"placeholder"`
	Options     []string `json:"options"`
}

// SelectSlot behaves like an HTML select: replacing the options drops the
// current value, and a value that is not one of the options is not kept.
type SelectSlot struct {
	value       string
	placeholder string
	options     []string
}

func NewSelectSlot() *SelectSlot {
	return &SelectSlot{options: []string{}}
}

func (s *SelectSlot) Value() string {
	return s.value
}

func (s *SelectSlot) SetValue(v string) {
	if v != "" && !slices.Contains(s.options, v) {
		v = ""
	}
	s.value = v
}

func (s *SelectSlot) SetOptions(placeholder string, options []string) {
	s.placeholder = placeholder
	s.options = append(make([]string, 0, len(options)), options...)
	s.value = ""
}

func (s *SelectSlot) Placeholder() string {
	return s.placeholder
}

func (s *SelectSlot) Options() []string {
	return append([]string(nil), s.options...)
}

func (s *SelectSlot) View() SlotView {
	return SlotView{
		Value:       s.value,
		Placeholder: s.placeholder,
		Options:     append(make([]string, 0, len(s.options)), s.options...),
	}
}

func (s *SelectSlot) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.View())
}

// SelectGroup is a widget group backed by SelectSlots.
type SelectGroup struct {
	Site          *SelectSlot `json:"site"`
	Department    *SelectSlot `json:"department"`
	Subdepartment *SelectSlot `json:"subdepartment"`
}

func NewSelectGroup() *SelectGroup {
	return &SelectGroup{
		Site:          NewSelectSlot(),
		Department:    NewSelectSlot(),
		Subdepartment: NewSelectSlot(),
	}
}

func (g *SelectGroup) Slots() Slots {
	return Slots{Site: g.Site, Department: g.Department, Subdepartment: g.Subdepartment}
}
