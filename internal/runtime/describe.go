package runtime

import (
	"fmt"
	"strings"

	"github.com/roach88/aural/internal/a11y"
)

var roleWords = map[a11y.Role]string{
	a11y.RoleWindow:       "window",
	a11y.RoleDocument:     "document",
	a11y.RoleLink:         "link",
	a11y.RoleButton:       "button",
	a11y.RoleCheckBox:     "check box",
	a11y.RoleRadioButton:  "radio button",
	a11y.RoleEditableText: "edit",
	a11y.RoleComboBox:     "combo box",
	a11y.RoleSlider:       "slider",
	a11y.RoleProgressBar:  "progress bar",
	a11y.RoleList:         "list",
	a11y.RoleListItem:     "list item",
	a11y.RoleTable:        "table",
	a11y.RoleRow:          "row",
	a11y.RoleColumnHeader: "column header",
	a11y.RoleImage:        "graphic",
	a11y.RoleSeparator:    "separator",
	a11y.RoleMenu:         "menu",
	a11y.RoleMenuItem:     "menu item",
	a11y.RoleDialog:       "dialog",
	a11y.RoleStatusBar:    "status bar",
}

// Describe renders a snapshot as one announcement:
// name, role, states, value, description.
func Describe(s a11y.Snapshot) string {
	var parts []string
	add := func(p string) {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}

	name := s.Name
	if name == "" && s.HasText {
		name = s.Text
	}
	add(name)
	add(roleText(s))
	add(stateWords(s))
	if s.Value != name {
		add(s.Value)
	}
	add(s.Description)
	return strings.Join(parts, " ")
}

func roleText(s a11y.Snapshot) string {
	switch s.Role {
	case a11y.RoleHeading:
		if s.Level > 0 {
			return fmt.Sprintf("heading level %d", s.Level)
		}
		return "heading"
	case a11y.RoleLandmark:
		return strings.TrimSpace(s.Landmark + " landmark")
	case a11y.RoleCell:
		if s.Row >= 0 && s.Col >= 0 {
			return fmt.Sprintf("row %d column %d", s.Row+1, s.Col+1)
		}
		return ""
	}
	return roleWords[s.Role]
}

func checkable(r a11y.Role) bool {
	return r == a11y.RoleCheckBox || r == a11y.RoleRadioButton
}

// stateWords lists the announced states of s.
func stateWords(s a11y.Snapshot) string {
	var words []string
	if checkable(s.Role) {
		if s.States.Has(a11y.StateChecked) {
			words = append(words, "checked")
		} else {
			words = append(words, "not checked")
		}
	}
	for _, f := range []struct {
		flag a11y.State
		word string
	}{
		{a11y.StateExpanded, "expanded"},
		{a11y.StateCollapsed, "collapsed"},
		{a11y.StateSelected, "selected"},
		{a11y.StateBusy, "busy"},
		{a11y.StateUnavailable, "unavailable"},
	} {
		if s.States.Has(f.flag) {
			words = append(words, f.word)
		}
	}
	if s.Role == a11y.RoleEditableText && s.States.Has(a11y.StateReadOnly) {
		words = append(words, "read only")
	}
	return strings.Join(words, " ")
}

// StateChange describes what changed between two snapshots of one element.
func StateChange(prev, cur a11y.Snapshot) string {
	var words []string
	flipped := func(f a11y.State) (on, off bool) {
		was, is := prev.States.Has(f), cur.States.Has(f)
		return is && !was, was && !is
	}

	if checkable(cur.Role) {
		if on, off := flipped(a11y.StateChecked); on {
			words = append(words, "checked")
		} else if off {
			words = append(words, "not checked")
		}
	}
	if on, _ := flipped(a11y.StateExpanded); on {
		words = append(words, "expanded")
	}
	if on, _ := flipped(a11y.StateCollapsed); on {
		words = append(words, "collapsed")
	}
	if on, off := flipped(a11y.StateSelected); on {
		words = append(words, "selected")
	} else if off {
		words = append(words, "not selected")
	}
	if on, _ := flipped(a11y.StateBusy); on {
		words = append(words, "busy")
	}
	if on, off := flipped(a11y.StateUnavailable); on {
		words = append(words, "unavailable")
	} else if off {
		words = append(words, "available")
	}
	return strings.Join(words, " ")
}
