package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/aural/internal/a11y"
)

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		snap a11y.Snapshot
		want string
	}{
		{"link", a11y.Snapshot{Role: a11y.RoleLink, Name: "Home"}, "Home link"},
		{"unchecked box", a11y.Snapshot{Role: a11y.RoleCheckBox, Name: "I agree"}, "I agree check box not checked"},
		{"checked radio", a11y.Snapshot{Role: a11y.RoleRadioButton, Name: "Yes", States: a11y.StateChecked}, "Yes radio button checked"},
		{"heading", a11y.Snapshot{Role: a11y.RoleHeading, Name: "Intro", Level: 2}, "Intro heading level 2"},
		{"landmark", a11y.Snapshot{Role: a11y.RoleLandmark, Landmark: "main"}, "main landmark"},
		{"cell", a11y.Snapshot{Role: a11y.RoleCell, Name: "B", Row: 0, Col: 1}, "B row 1 column 2"},
		{"cell outside table", a11y.Snapshot{Role: a11y.RoleCell, Name: "B", Row: -1, Col: -1}, "B"},
		{"text node", a11y.Snapshot{Role: a11y.RoleText, Text: "Hello", HasText: true}, "Hello"},
		{"slider value", a11y.Snapshot{Role: a11y.RoleSlider, Name: "Volume", Value: "40"}, "Volume slider 40"},
		{"read only edit", a11y.Snapshot{Role: a11y.RoleEditableText, Name: "Id", States: a11y.StateReadOnly}, "Id edit read only"},
		{"collapsed combo", a11y.Snapshot{Role: a11y.RoleComboBox, Name: "Size", States: a11y.StateCollapsed}, "Size combo box collapsed"},
		{"description", a11y.Snapshot{Role: a11y.RoleButton, Name: "Send", Description: "sends the form"}, "Send button sends the form"},
		{"empty paragraph", a11y.Snapshot{Role: a11y.RoleParagraph}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Describe(tt.snap))
		})
	}
}

func TestStateChange(t *testing.T) {
	box := a11y.Snapshot{Role: a11y.RoleCheckBox}
	checked := box
	checked.States = a11y.StateChecked

	tests := []struct {
		name      string
		prev, cur a11y.Snapshot
		want      string
	}{
		{"checked", box, checked, "checked"},
		{"unchecked", checked, box, "not checked"},
		{"no change", box, box, ""},
		{"expanded", a11y.Snapshot{Role: a11y.RoleComboBox, States: a11y.StateCollapsed},
			a11y.Snapshot{Role: a11y.RoleComboBox, States: a11y.StateExpanded}, "expanded"},
		{"selected", a11y.Snapshot{Role: a11y.RoleListItem},
			a11y.Snapshot{Role: a11y.RoleListItem, States: a11y.StateSelected}, "selected"},
		{"available again", a11y.Snapshot{Role: a11y.RoleButton, States: a11y.StateUnavailable},
			a11y.Snapshot{Role: a11y.RoleButton}, "available"},
		{"focus only", a11y.Snapshot{Role: a11y.RoleButton},
			a11y.Snapshot{Role: a11y.RoleButton, States: a11y.StateFocused}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StateChange(tt.prev, tt.cur))
		})
	}
}

func TestLineAt(t *testing.T) {
	tests := []struct {
		text  string
		caret int
		want  string
	}{
		{"Hello", 2, "Hello"},
		{"one\ntwo\nthree", 5, "two"},
		{"one\ntwo", 3, "one"},
		{"one\n\nthree", 4, "blank"},
		{"", 0, "blank"},
		{"abc", 99, "abc"},
		{"abc", -4, "abc"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, lineAt(tt.text, tt.caret), "lineAt(%q, %d)", tt.text, tt.caret)
	}
}
