package sink

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/rankbars/pkg/render/bars/engine"
	"github.com/matzehuels/rankbars/pkg/render/bars/styles"
)

const (
	rankGutter   = 5  // columns reserved for the rank label
	valueReserve = 12 // columns reserved after the longest bar
	faintBelow   = 0.999
	hiddenBelow  = 0.05
)

// TerminalCanvas is a frame-based [engine.Target] that draws the chart as
// colored text rows. One terminal line corresponds to one bar band.
type TerminalCanvas struct {
	columns  int
	theme    styles.Theme
	selected string

	width float64
	rows  map[string]*termRow
	ticks []engine.Text
	keys  []string
	out   string
}

type termRow struct {
	key   string
	bar   engine.Rect
	rank  string
	label string
	value string
}

// NewTerminalCanvas returns a canvas rendering into columns terminal cells.
func NewTerminalCanvas(columns int, theme styles.Theme) *TerminalCanvas {
	return &TerminalCanvas{columns: columns, theme: theme}
}

// SetColumns changes the number of terminal cells per line.
func (c *TerminalCanvas) SetColumns(n int) { c.columns = n }

// Select highlights the row of key.
func (c *TerminalCanvas) Select(key string) { c.selected = key }

// String returns the last completed frame.
func (c *TerminalCanvas) String() string { return c.out }

// Keys returns the visible row keys from top to bottom.
func (c *TerminalCanvas) Keys() []string { return slices.Clone(c.keys) }

func (c *TerminalCanvas) Begin(width, _ float64) {
	c.width = width
	c.rows = make(map[string]*termRow)
	c.ticks = c.ticks[:0]
}

func (c *TerminalCanvas) row(id string) (*termRow, engine.Part) {
	part, key, ok := engine.ParseElementID(id)
	if !ok || !part.IsRow() {
		return nil, part
	}
	r, ok := c.rows[key]
	if !ok {
		r = &termRow{key: key}
		c.rows[key] = r
	}
	return r, part
}

func (c *TerminalCanvas) Rect(id string, v engine.Rect) {
	if r, part := c.row(id); r != nil && part == engine.PartBar {
		r.bar = v
	}
}

func (c *TerminalCanvas) Text(id string, t engine.Text) {
	r, part := c.row(id)
	if r == nil {
		if part == engine.PartTick {
			c.ticks = append(c.ticks, t)
		}
		return
	}
	switch part {
	case engine.PartRank:
		r.rank = t.Content
	case engine.PartLabel:
		r.label = t.Content
	case engine.PartValue:
		r.value = t.Content
	}
}

func (c *TerminalCanvas) Image(string, engine.Image) {}
func (c *TerminalCanvas) Line(string, engine.Line)   {}

func (c *TerminalCanvas) End() error {
	rows := make([]*termRow, 0, len(c.rows))
	for _, r := range c.rows {
		if r.bar.Opacity >= hiddenBelow {
			rows = append(rows, r)
		}
	}
	slices.SortFunc(rows, func(a, b *termRow) int {
		return cmp.Or(cmp.Compare(a.bar.Y, b.bar.Y), cmp.Compare(a.key, b.key))
	})

	plotCols := max(1, c.columns-rankGutter-valueReserve)
	pxPerCol := c.width / float64(plotCols)

	var lines []string
	if len(rows) > 0 {
		lines = append(lines, c.axis(pxPerCol, plotCols))
	}
	c.keys = c.keys[:0]
	for _, r := range rows {
		c.keys = append(c.keys, r.key)
		lines = append(lines, c.line(r, pxPerCol, plotCols))
	}
	c.out = strings.Join(lines, "\n")
	return nil
}

func (c *TerminalCanvas) axis(pxPerCol float64, plotCols int) string {
	cells := []rune(strings.Repeat(" ", rankGutter+plotCols+valueReserve))
	for _, t := range c.ticks {
		col := rankGutter + int(math.Round(t.X/pxPerCol)) - len(t.Content)/2
		for i, ch := range t.Content {
			if p := col + i; p >= 0 && p < len(cells) {
				cells[p] = ch
			}
		}
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(c.theme.AxisColor)).Render(strings.TrimRight(string(cells), " "))
}

func (c *TerminalCanvas) line(r *termRow, pxPerCol float64, plotCols int) string {
	th := c.theme
	faint := r.bar.Opacity < faintBelow

	barCols := min(plotCols, int(math.Round(r.bar.W/pxPerCol)))
	label := truncate(r.label, barCols)
	barText := label + strings.Repeat(" ", max(0, barCols-lipgloss.Width(label)))

	rankStyle := lipgloss.NewStyle().Width(rankGutter-1).Align(lipgloss.Right).Bold(true).
		Foreground(lipgloss.Color(th.RankColor)).Faint(faint)
	barStyle := lipgloss.NewStyle().Background(lipgloss.Color(r.bar.Fill)).
		Foreground(lipgloss.Color(th.LabelColor)).Bold(true).Faint(faint)
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(th.ValueColor)).Faint(faint)

	if r.key == c.selected {
		rankStyle = rankStyle.Reverse(true)
		barStyle = barStyle.Underline(true)
	}

	var b strings.Builder
	b.WriteString(rankStyle.Render(r.rank))
	b.WriteString(" ")
	if barCols > 0 {
		b.WriteString(barStyle.Render(barText))
	}
	b.WriteString(" ")
	b.WriteString(valueStyle.Render(r.value))
	return b.String()
}

func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 2 {
		return string(runes[:n])
	}
	return string(runes[:n-2]) + ".."
}
