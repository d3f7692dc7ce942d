package output

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCell(t *testing.T) {
	tests := []struct {
		name string
		in   rune
		want rune
	}{
		{"space", ' ', '⠀'},
		{"a is dot 1", 'a', '⠁'},
		{"upper A adds dot 7", 'A', '⡁'},
		{"b", 'b', '⠃'},
		{"z", 'z', '⠵'},
		{"digit 1", '1', '⠂'},
		{"period", '.', '⠨'},
		{"equals is full cell", '=', '⠿'},
		{"brace reuses bracket", '{', Cell('[')},
		{"pattern passes through", '⠇', '⠇'},
		{"newline is blank", '\n', '⠀'},
		{"unknown falls back", 'é', Cell('?')},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, string(tt.want), string(Cell(tt.in)))
		})
	}
}

func TestCells(t *testing.T) {
	assert.Equal(t, []rune("⠓⠑⠇⠇⠕"), Cells("hello"))
	assert.Empty(t, Cells(""))
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width int
		want  []string
	}{
		{"fits", "hello world", 11, []string{"hello world"}},
		{"word boundary", "hello world", 5, []string{"hello", "world"}},
		{"packs words", "a bb ccc", 4, []string{"a bb", "ccc"}},
		{"hard split", "abcdefghij", 4, []string{"abcd", "efgh", "ij"}},
		{"whitespace collapses", "one\n\ntwo", 20, []string{"one two"}},
		{"empty", "   ", 10, []string{""}},
		{"default width", "x", 0, []string{"x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Paginate(tt.text, tt.width))
		})
	}
}

func TestPaginate_PagesFitWidth(t *testing.T) {
	text := "The quick brown fox jumps over the lazy dog and keeps running far away"
	for _, w := range []int{5, 8, 13, 20, 40} {
		for _, p := range Paginate(text, w) {
			assert.LessOrEqual(t, len([]rune(p)), w)
		}
	}
}
