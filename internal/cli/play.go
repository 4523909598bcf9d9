package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/matzehuels/rankbars/pkg/config"
	"github.com/matzehuels/rankbars/pkg/pipeline"
	"github.com/matzehuels/rankbars/pkg/render/bars/engine"
	"github.com/matzehuels/rankbars/pkg/render/bars/sink"
	"github.com/matzehuels/rankbars/pkg/render/bars/styles"
	"github.com/matzehuels/rankbars/pkg/snapshot"
	"github.com/matzehuels/rankbars/pkg/store"
	"github.com/matzehuels/rankbars/pkg/viewport"
)

const (
	frameInterval = time.Second / 30
	pxPerColumn   = 10.0 // chart pixels per terminal cell
	autoplayHold  = 2 * time.Second
	eventBuffer   = 16
)

type playFlags struct {
	watch    bool
	autoplay bool
	theme    string
	noCache  bool
}

func (c *CLI) playCommand() *cobra.Command {
	var flags playFlags

	cmd := &cobra.Command{
		Use:   "play [year]",
		Short: "Animate the ranking through the years in the terminal",
		Long: `Animate the ranking through the years in the terminal.

Keys:
  ←/→  previous / next year      ↑/↓  select a company
  ⏎    show the company's notes  a    toggle autoplay
  q    quit

Resizing the terminal re-lays out the chart once the size settles. With
--watch, edits to the dataset CSV of the shown year reload it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			year := 0
			if len(args) == 1 {
				y, err := parseYear(args[0])
				if err != nil {
					return err
				}
				year = y
			}
			return c.runPlay(cmd.Context(), year, flags)
		},
	}

	cmd.Flags().BoolVar(&flags.watch, "watch", false, "reload the shown year when its CSV file changes")
	cmd.Flags().BoolVar(&flags.autoplay, "autoplay", false, "advance through the years automatically")
	cmd.Flags().StringVar(&flags.theme, "theme", "", "theme: default, dark, or a TOML theme file")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runPlay(ctx context.Context, year int, flags playFlags) error {
	if !isTerminal(os.Stdout) {
		return errors.New("play needs an interactive terminal; use render for files")
	}

	b, err := c.newBackend(ctx, flags.noCache)
	if err != nil {
		return err
	}
	defer b.Close(ctx)

	years := b.runner.Source.Years()
	if len(years) == 0 {
		return errors.New("no years configured")
	}
	start := len(years) - 1
	if year != 0 {
		if start = indexOf(years, year); start < 0 {
			return fmt.Errorf("year %d is outside %d-%d", year, years[0], years[len(years)-1])
		}
	}

	ref := flags.theme
	if ref == "" {
		ref = c.cfg.Theme
	}
	theme, err := styles.Resolve(ref)
	if err != nil {
		return err
	}

	var notes store.NoteStore
	if b.store != nil {
		notes = b.store
	}
	m := newPlayModel(ctx, b.runner, notes, years, start, theme, c.cfg.Chart)
	m.autoplay = flags.autoplay
	defer m.tracker.Stop()

	if flags.watch {
		if c.source == sourceStore {
			return errors.New("--watch requires the csv source")
		}
		w, err := watchDataset(c.cfg.DataDir, m.events)
		if err != nil {
			return err
		}
		defer w.Close()
	}

	// The alt screen owns the terminal; keep log lines out of it.
	c.Logger.SetLevel(log.ErrorLevel)
	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func indexOf(years []int, year int) int {
	for i, y := range years {
		if y == year {
			return i
		}
	}
	return -1
}

// =============================================================================
// Messages
// =============================================================================

type frameMsg time.Time

// widthMsg carries a settled viewport width from the tracker.
type widthMsg float64

type yearMsg struct {
	year int
	snap snapshot.Snapshot
	err  error
}

type noteMsg struct {
	key  string
	note store.Note
	err  error
}

// reloadMsg reports a changed dataset file.
type reloadMsg struct{ year int }

type watchErrMsg struct{ err error }

func frame() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return frameMsg(t) })
}

// waitForEvent delivers the next message posted from a background goroutine.
func waitForEvent(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg { return <-ch }
}

// =============================================================================
// Model
// =============================================================================

// playModel drives an engine with a terminal canvas from the bubbletea
// update loop. Tracker and watcher callbacks post into events; every engine
// call happens inside Update.
type playModel struct {
	ctx    context.Context
	runner *pipeline.Runner
	notes  store.NoteStore
	years  []int
	idx    int

	engine  *engine.Engine
	canvas  *sink.TerminalCanvas
	tracker *viewport.Tracker
	events  chan tea.Msg

	current   snapshot.Snapshot
	cursor    int
	clicked   string
	detail    string
	err       error
	lastFrame time.Time
	autoplay  bool
	idleSince time.Time
}

func newPlayModel(ctx context.Context, runner *pipeline.Runner, notes store.NoteStore, years []int, start int, theme styles.Theme, chart config.Chart) *playModel {
	chart = chart.Normalize()
	m := &playModel{
		ctx:    ctx,
		runner: runner,
		notes:  notes,
		years:  years,
		idx:    start,
		canvas: sink.NewTerminalCanvas(80, theme),
		events: make(chan tea.Msg, eventBuffer),
	}
	m.engine = engine.New(m.canvas,
		engine.WithChart(chart),
		engine.WithTheme(theme),
		engine.WithLogger(runner.Logger),
		engine.WithClickHandler(func(key string) { m.clicked = key }),
	)
	m.tracker = viewport.New(func(w float64) { m.post(widthMsg(w)) }, viewport.WithMinWidth(chart.MinViewportWidth))
	return m
}

// post hands a message to the update loop without blocking the sender.
func (m *playModel) post(msg tea.Msg) { post(m.events, msg) }

func (m *playModel) year() int { return m.years[m.idx] }

func (m *playModel) loadYear(year int, refresh bool) tea.Cmd {
	return func() tea.Msg {
		snap, _, err := m.runner.LoadWithCacheInfo(m.ctx, year, refresh)
		return yearMsg{year: year, snap: snap, err: err}
	}
}

func (m *playModel) fetchNote(key string) tea.Cmd {
	if m.notes == nil {
		return nil
	}
	return func() tea.Msg {
		n, err := m.notes.GetNote(m.ctx, key)
		return noteMsg{key: key, note: n, err: err}
	}
}

func (m *playModel) Init() tea.Cmd {
	return tea.Batch(m.loadYear(m.year(), false), frame(), waitForEvent(m.events))
}

func (m *playModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.canvas.SetColumns(msg.Width)
		m.tracker.Observe(float64(msg.Width) * pxPerColumn)
		if m.tracker.Width() == 0 {
			// First size of the session lays out without waiting.
			m.tracker.Flush()
		}

	case widthMsg:
		m.setErr(m.engine.SetWidth(float64(msg)))
		return m, waitForEvent(m.events)

	case frameMsg:
		m.advance(time.Time(msg))
		return m, frame()

	case yearMsg:
		if msg.year != m.year() {
			return m, nil
		}
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.current = msg.snap
		m.setErr(m.engine.Render(msg.snap))
		m.selectRow()

	case noteMsg:
		m.detail = m.formatDetail(msg)

	case reloadMsg:
		var cmd tea.Cmd
		if msg.year == m.year() {
			cmd = m.loadYear(msg.year, true)
		}
		return m, tea.Batch(cmd, waitForEvent(m.events))

	case watchErrMsg:
		m.err = msg.err
		return m, waitForEvent(m.events)
	}
	return m, nil
}

func (m *playModel) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.tracker.Stop()
		return tea.Quit
	case "left", "h":
		return m.step(-1)
	case "right", "l":
		return m.step(1)
	case "up", "k":
		m.cursor--
		m.selectRow()
	case "down", "j":
		m.cursor++
		m.selectRow()
	case "enter":
		key := m.selectRow()
		m.clicked = ""
		if key == "" || !m.engine.Click(key) {
			return nil
		}
		m.detail = m.formatDetail(noteMsg{key: m.clicked})
		return m.fetchNote(m.clicked)
	case "a", " ":
		m.autoplay = !m.autoplay
		m.idleSince = time.Time{}
	}
	return nil
}

// step moves to the neighbouring year and loads it.
func (m *playModel) step(delta int) tea.Cmd {
	next := m.idx + delta
	if next < 0 || next >= len(m.years) {
		return nil
	}
	m.idx = next
	m.detail = ""
	m.idleSince = time.Time{}
	return m.loadYear(m.year(), false)
}

// advance ticks the engine to now and handles autoplay.
func (m *playModel) advance(now time.Time) {
	var dt time.Duration
	if !m.lastFrame.IsZero() {
		dt = now.Sub(m.lastFrame)
	}
	m.lastFrame = now
	m.setErr(m.engine.Tick(dt))

	if !m.autoplay || !m.engine.Idle() {
		m.idleSince = time.Time{}
		return
	}
	if m.idleSince.IsZero() {
		m.idleSince = now
		return
	}
	if now.Sub(m.idleSince) < autoplayHold {
		return
	}
	if m.idx == len(m.years)-1 {
		m.autoplay = false
		return
	}
	m.idleSince = time.Time{}
	m.idx++
	m.detail = ""
	// Autoplay loads synchronously so the next frame shows the new year.
	if msg, ok := m.loadYear(m.year(), false)().(yearMsg); ok {
		m.Update(msg)
	}
}

// selectRow clamps the cursor to the visible rows and highlights the row
// under it. It returns the selected key.
func (m *playModel) selectRow() string {
	keys := m.canvas.Keys()
	if len(keys) == 0 {
		keys = m.current.Presentation().Keys()
	}
	if len(keys) == 0 {
		m.cursor = 0
		m.canvas.Select("")
		return ""
	}
	m.cursor = min(max(m.cursor, 0), len(keys)-1)
	key := keys[m.cursor]
	m.canvas.Select(key)
	return key
}

func (m *playModel) setErr(err error) {
	if err != nil {
		m.err = err
	}
}

var (
	detailStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorDim).Padding(0, 1)
	yearStyle   = lipgloss.NewStyle().Foreground(colorDim)
	helpText    = "←/→ year  ↑/↓ select  ⏎ notes  a autoplay  q quit"
)

func (m *playModel) formatDetail(msg noteMsg) string {
	var b strings.Builder
	b.WriteString(StyleTitle.Render(msg.key))
	if r, ok := m.current.Lookup(msg.key); ok {
		b.WriteString("  " + StyleDim.Render(fmt.Sprintf("rank %s · %s", rankCell(r), valueCell(r))))
	}
	switch {
	case msg.err != nil:
		b.WriteString("\n" + StyleWarning.Render(msg.err.Error()))
	case m.notes == nil:
		b.WriteString("\n" + StyleDim.Render("no note store configured"))
	case msg.note.LastUpdated == nil && msg.note.Company != "":
		b.WriteString("\n" + StyleDim.Render("no notes yet"))
	default:
		for _, field := range store.NoteFields {
			if v := msg.note.Field(field); v != "" {
				b.WriteString("\n" + StyleDim.Render(strings.ReplaceAll(field, "_", " ")+": ") + v)
			}
		}
	}
	return detailStyle.Render(b.String())
}

func (m *playModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(appName+" "+strconv.Itoa(m.year())) + "  ")
	for i, y := range m.years {
		label := strconv.Itoa(y)
		if i == m.idx {
			b.WriteString(StyleValue.Bold(true).Render("[" + label + "]"))
		} else {
			b.WriteString(yearStyle.Render(" " + label + " "))
		}
	}
	if m.autoplay {
		b.WriteString("  " + styleCached.Render("▶"))
	}
	b.WriteString("\n\n")

	if frame := m.canvas.String(); frame != "" {
		b.WriteString(frame)
	} else if len(m.current) == 0 && m.err == nil {
		b.WriteString(StyleDim.Render("no companies"))
	}
	b.WriteString("\n")

	if m.detail != "" {
		b.WriteString("\n" + m.detail + "\n")
	}
	if m.err != nil {
		b.WriteString("\n" + styleIconError.Render(iconError) + " " + m.err.Error() + "\n")
	}
	b.WriteString("\n" + StyleDim.Render(helpText))
	return b.String()
}

// =============================================================================
// Dataset watching
// =============================================================================

var datasetFileRe = regexp.MustCompile(`^market_cap_(\d{4})\.csv$`)

// watchDataset posts a reloadMsg for every write to a dataset file in dir.
func watchDataset(dir string, events chan<- tea.Msg) (*fsnotify.Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				if year, ok := datasetYear(ev.Name); ok {
					post(events, reloadMsg{year: year})
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				post(events, watchErrMsg{err: err})
			}
		}
	}()
	return w, nil
}

func datasetYear(path string) (int, bool) {
	m := datasetFileRe.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return 0, false
	}
	y, err := strconv.Atoi(m[1])
	return y, err == nil
}

// post sends msg unless the buffer is full; the update loop drains it.
func post(events chan<- tea.Msg, msg tea.Msg) {
	select {
	case events <- msg:
	default:
	}
}
