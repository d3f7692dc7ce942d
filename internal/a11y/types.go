package a11y

import (
	"fmt"
	"strings"
)

// APIKind names the native accessibility API a handle belongs to.
type APIKind string

const (
	APISimulated   APIKind = "sim"
	APIAutomation  APIKind = "uia"
	APILegacy      APIKind = "msaa"
	APIWebContent  APIKind = "web"
	APIDesktopAtSp APIKind = "atspi"
)

// Handle identifies a native element. Identity is (API kind, native id).
// Handles are comparable and safe to use as map keys.
type Handle struct {
	API APIKind
	ID  string
}

// IsZero reports whether h is the zero handle.
func (h Handle) IsZero() bool {
	return h.API == "" && h.ID == ""
}

// String returns "api:id".
func (h Handle) String() string {
	return string(h.API) + ":" + h.ID
}

// Role is the normalised role of an element.
type Role int

const (
	RoleUnknown Role = iota
	RoleWindow
	RoleDocument
	RolePane
	RoleGroup
	RoleParagraph
	RoleText
	RoleHeading
	RoleLink
	RoleButton
	RoleCheckBox
	RoleRadioButton
	RoleEditableText
	RoleComboBox
	RoleSlider
	RoleProgressBar
	RoleList
	RoleListItem
	RoleTable
	RoleRow
	RoleCell
	RoleColumnHeader
	RoleImage
	RoleLandmark
	RoleSeparator
	RoleMenu
	RoleMenuItem
	RoleDialog
	RoleStatusBar
	RolePresentation
)

var roleNames = map[Role]string{
	RoleUnknown:      "unknown",
	RoleWindow:       "window",
	RoleDocument:     "document",
	RolePane:         "pane",
	RoleGroup:        "group",
	RoleParagraph:    "paragraph",
	RoleText:         "text",
	RoleHeading:      "heading",
	RoleLink:         "link",
	RoleButton:       "button",
	RoleCheckBox:     "checkbox",
	RoleRadioButton:  "radio",
	RoleEditableText: "edit",
	RoleComboBox:     "combobox",
	RoleSlider:       "slider",
	RoleProgressBar:  "progressbar",
	RoleList:         "list",
	RoleListItem:     "listitem",
	RoleTable:        "table",
	RoleRow:          "row",
	RoleCell:         "cell",
	RoleColumnHeader: "columnheader",
	RoleImage:        "image",
	RoleLandmark:     "landmark",
	RoleSeparator:    "separator",
	RoleMenu:         "menu",
	RoleMenuItem:     "menuitem",
	RoleDialog:       "dialog",
	RoleStatusBar:    "statusbar",
	RolePresentation: "presentation",
}

var rolesByName = func() map[string]Role {
	m := make(map[string]Role, len(roleNames))
	for r, n := range roleNames {
		m[n] = r
	}
	return m
}()

// String returns the lower-case role name.
func (r Role) String() string {
	if n, ok := roleNames[r]; ok {
		return n
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// ParseRole converts a role name back to a Role.
func ParseRole(s string) (Role, error) {
	r, ok := rolesByName[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return RoleUnknown, fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// IsBlock reports whether the role starts a new line in linear text.
func (r Role) IsBlock() bool {
	switch r {
	case RoleDocument, RoleParagraph, RoleHeading, RoleListItem, RoleRow,
		RoleSeparator, RoleLandmark, RoleDialog, RoleList, RoleTable:
		return true
	}
	return false
}

// IsFormField reports whether the role is an interactive form control.
func (r Role) IsFormField() bool {
	switch r {
	case RoleButton, RoleCheckBox, RoleRadioButton, RoleEditableText,
		RoleComboBox, RoleSlider:
		return true
	}
	return false
}

// State is a set of element state flags.
type State uint32

const (
	StateFocused State = 1 << iota
	StateFocusable
	StateSelected
	StateExpanded
	StateCollapsed
	StateChecked
	StateInvisible
	StateOffscreen
	StateReadOnly
	StateBusy
	StateUnavailable
)

var stateNames = []struct {
	flag State
	name string
}{
	{StateFocused, "focused"},
	{StateFocusable, "focusable"},
	{StateSelected, "selected"},
	{StateExpanded, "expanded"},
	{StateCollapsed, "collapsed"},
	{StateChecked, "checked"},
	{StateInvisible, "invisible"},
	{StateOffscreen, "offscreen"},
	{StateReadOnly, "readonly"},
	{StateBusy, "busy"},
	{StateUnavailable, "unavailable"},
}

// Has reports whether every flag in f is set.
func (s State) Has(f State) bool {
	return s&f == f
}

// Names lists the set flags in declaration order.
func (s State) Names() []string {
	var out []string
	for _, sn := range stateNames {
		if s.Has(sn.flag) {
			out = append(out, sn.name)
		}
	}
	return out
}

// String joins Names with "|".
func (s State) String() string {
	return strings.Join(s.Names(), "|")
}

// ParseStates builds a State from flag names.
func ParseStates(names []string) (State, error) {
	var s State
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		found := false
		for _, sn := range stateNames {
			if sn.name == n {
				s |= sn.flag
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown state %q", n)
		}
	}
	return s, nil
}

// Rect is a screen rectangle in pixels.
type Rect struct {
	X, Y, W, H int
}

// Snapshot is the cached property set of an element at read time.
// It may be stale by the time it is used.
type Snapshot struct {
	Handle      Handle
	Role        Role
	Name        string
	Value       string
	Description string
	States      State
	Bounds      Rect

	// Text is the element's own text content. HasText distinguishes an
	// empty text node from an element that exposes no text interface.
	Text    string
	HasText bool

	// Caret is the caret offset inside Text, or -1.
	Caret int

	Level    int    // heading level, 0 when not applicable
	Landmark string // landmark kind (main, navigation, search, ...)

	// Row and Col locate table cells; -1 outside tables.
	Row, Col int

	ChildCount int
}

// Node is a weak reference to a live element plus its last snapshot.
type Node struct {
	Handle   Handle
	Snapshot Snapshot
}

// Direction selects a navigation relation.
type Direction int

const (
	DirParent Direction = iota
	DirFirstChild
	DirLastChild
	DirNext
	DirPrevious
	DirCellLeft
	DirCellRight
	DirCellUp
	DirCellDown
)

var directionNames = map[Direction]string{
	DirParent:     "parent",
	DirFirstChild: "first_child",
	DirLastChild:  "last_child",
	DirNext:       "next",
	DirPrevious:   "previous",
	DirCellLeft:   "cell_left",
	DirCellRight:  "cell_right",
	DirCellUp:     "cell_up",
	DirCellDown:   "cell_down",
}

func (d Direction) String() string {
	if n, ok := directionNames[d]; ok {
		return n
	}
	return fmt.Sprintf("direction(%d)", int(d))
}

// ParseDirection converts a direction name back to a Direction.
func ParseDirection(s string) (Direction, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d, n := range directionNames {
		if n == s {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}
