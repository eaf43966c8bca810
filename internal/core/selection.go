package core

import "strings"

// Selector picks the records shown in a view: one category, or All.
type Selector string

// All selects every record.
const All Selector = "All"

// ParseSelector accepts a category name, "All", or the empty string (All).
func ParseSelector(s string) (Selector, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == string(All) {
		return All, nil
	}
	c, err := ParseCategory(s)
	if err != nil {
		return "", err
	}
	return Selector(c), nil
}

// SelectorFor selects a single category.
func SelectorFor(c Category) Selector {
	return Selector(c)
}

func (s Selector) IsAll() bool {
	return s == All || s == ""
}

func (s Selector) String() string {
	if s.IsAll() {
		return string(All)
	}
	return string(s)
}

// FilterByCategory returns the records matching sel, preserving relative
// order. For All the input slice itself is returned.
func FilterByCategory(records []Expense, sel Selector) []Expense {
	if sel.IsAll() {
		return records
	}
	out := make([]Expense, 0, len(records))
	for _, e := range records {
		if Selector(e.Category) == sel {
			out = append(out, e)
		}
	}
	return out
}

// VisibleAt returns the record shown at position idx of the view filtered by
// sel.
func VisibleAt(ledger []Expense, sel Selector, idx int) (Expense, bool) {
	visible := FilterByCategory(ledger, sel)
	if idx < 0 || idx >= len(visible) {
		return Expense{}, false
	}
	return visible[idx], true
}

// ResolveVisible maps position idx of the view filtered by sel to a position
// in the full ledger by value: it takes the field values of the visible
// record and returns the first ledger record with the same Key. When the
// ledger holds identical records this is always the first of them, even if
// a later duplicate was the one displayed at idx.
func ResolveVisible(ledger []Expense, sel Selector, idx int) (int, bool) {
	target, ok := VisibleAt(ledger, sel, idx)
	if !ok {
		return -1, false
	}
	return FirstMatch(ledger, target.Key())
}

// FirstMatch returns the position of the first record whose Key equals k.
func FirstMatch(ledger []Expense, k Key) (int, bool) {
	for i, e := range ledger {
		if e.Key() == k {
			return i, true
		}
	}
	return -1, false
}

// IndexOf returns the position of the record with the given ID.
func IndexOf(ledger []Expense, id string) (int, bool) {
	if id == "" {
		return -1, false
	}
	for i, e := range ledger {
		if e.ID == id {
			return i, true
		}
	}
	return -1, false
}
