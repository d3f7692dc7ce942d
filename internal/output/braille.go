package output

import (
	"strings"
	"unicode/utf8"
)

// DefaultBrailleWidth is a common 40-cell display.
const DefaultBrailleWidth = 40

// nabcc lists the North American computer braille characters by dot
// pattern: index i is the cell whose dots are the bits of i (dot 1 = bit 0).
const nabcc = " A1B'K2L@CIF/MSP\"E3H9O6R^DJG>NTQ,*5<-U8V.%[$+X!&;:4\\0Z7(_?W]#Y)="

const (
	brailleBase = 0x2800
	dot7        = 0x40
)

var nabccDots = func() map[rune]rune {
	m := make(map[rune]rune, len(nabcc))
	for i, c := range nabcc {
		m[c] = rune(i)
	}
	return m
}()

// Cell converts one character to a Unicode braille pattern. Lower-case
// letters use the plain letter cell, upper-case letters add dot 7.
// Characters outside the table render as '?'. Braille patterns pass
// through unchanged.
func Cell(r rune) rune {
	if r >= brailleBase && r <= brailleBase+0xFF {
		return r
	}
	switch {
	case r >= 'a' && r <= 'z':
		return brailleBase + nabccDots[r-'a'+'A']
	case r >= 'A' && r <= 'Z':
		return brailleBase + (nabccDots[r] | dot7)
	case r == '`' || (r >= '{' && r <= '~'):
		// The upper ASCII block reuses the cells of @ [ \ ] ^.
		return brailleBase + nabccDots[r-0x20]
	case r == '\n' || r == '\t':
		return brailleBase
	}
	if d, ok := nabccDots[r]; ok {
		return brailleBase + d
	}
	return brailleBase + nabccDots['?']
}

// Cells converts text to braille cells.
func Cells(s string) []rune {
	out := make([]rune, 0, utf8.RuneCountInString(s))
	for _, r := range s {
		out = append(out, Cell(r))
	}
	return out
}

// Paginate splits text into display-width pages, breaking at spaces. Words
// longer than a page are split hard. Always returns at least one page.
func Paginate(text string, width int) []string {
	if width <= 0 {
		width = DefaultBrailleWidth
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}

	var pages []string
	var cur []rune
	flush := func() {
		pages = append(pages, string(cur))
		cur = cur[:0]
	}
	for _, w := range words {
		wr := []rune(w)
		for len(wr) > width {
			if len(cur) > 0 {
				flush()
			}
			cur = append(cur, wr[:width]...)
			flush()
			wr = wr[width:]
		}
		need := len(wr)
		if len(cur) > 0 {
			need++
		}
		if len(cur)+need > width {
			flush()
		}
		if len(cur) > 0 {
			cur = append(cur, ' ')
		}
		cur = append(cur, wr...)
	}
	if len(cur) > 0 {
		flush()
	}
	return pages
}

// display is the braille channel's current content.
type display struct {
	messageID string
	text      string
	pages     []string
	page      int
}

// show replaces or extends the displayed message and returns the page to
// render.
func (d *display) show(req Request, width int) string {
	if req.MessageID != "" && req.MessageID == d.messageID {
		d.text = strings.TrimSpace(d.text + " " + req.Text)
	} else {
		d.messageID = req.MessageID
		d.text = req.Text
		d.page = 0
	}
	d.pages = Paginate(d.text, width)
	d.page = min(d.page, len(d.pages)-1)
	return d.pages[d.page]
}

// scroll moves the page cursor. Returns false at either end.
func (d *display) scroll(delta int) (string, bool) {
	if len(d.pages) == 0 {
		return "", false
	}
	p := max(0, min(d.page+delta, len(d.pages)-1))
	if p == d.page {
		return "", false
	}
	d.page = p
	return d.pages[p], true
}
