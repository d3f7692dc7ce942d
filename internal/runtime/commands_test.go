package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/aural/internal/a11y"
	"github.com/roach88/aural/internal/vbuf"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line string
		want Command
	}{
		{"nav next", Command{Kind: CmdNavigate, Direction: a11y.DirNext}},
		{"NAV cell_down", Command{Kind: CmdNavigate, Direction: a11y.DirCellDown}},
		{"activate", Command{Kind: CmdActivate}},
		{"line", Command{Kind: CmdReadLine}},
		{"landmark", Command{Kind: CmdNextLandmark}},
		{"landmark navigation", Command{Kind: CmdNextLandmark, Label: "navigation"}},
		{"next heading", Command{Kind: CmdNextMarker, Marker: vbuf.MarkerHeading}},
		{"prev landmark main", Command{Kind: CmdPrevMarker, Marker: vbuf.MarkerLandmark, Label: "main"}},
		{"next link About us", Command{Kind: CmdNextMarker, Marker: vbuf.MarkerLink, Label: "About us"}},
		{"silence", Command{Kind: CmdSilence}},
		{"scroll", Command{Kind: CmdScrollBraille, Delta: 1}},
		{"scroll -2", Command{Kind: CmdScrollBraille, Delta: -2}},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := ParseCommand(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCommand_Errors(t *testing.T) {
	for _, line := range []string{
		"",
		"dance",
		"nav",
		"nav sideways",
		"next",
		"next paragraph",
		"scroll far",
		"silence now",
	} {
		_, err := ParseCommand(line)
		assert.Error(t, err, "ParseCommand(%q)", line)
	}
}

func TestCommand_String(t *testing.T) {
	assert.Equal(t, "nav first_child", Command{Kind: CmdNavigate, Direction: a11y.DirFirstChild}.String())
	assert.Equal(t, "next heading Intro", Command{Kind: CmdNextMarker, Marker: vbuf.MarkerHeading, Label: "Intro"}.String())
	assert.Equal(t, "scroll -1", Command{Kind: CmdScrollBraille, Delta: -1}.String())
	assert.Equal(t, "silence", Command{Kind: CmdSilence}.String())
	assert.Equal(t, "landmark", Command{Kind: CmdNextLandmark}.String())
	assert.Equal(t, "landmark main", Command{Kind: CmdNextLandmark, Label: "main"}.String())
}
