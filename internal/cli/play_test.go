package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/rankbars/pkg/config"
	"github.com/matzehuels/rankbars/pkg/pipeline"
	"github.com/matzehuels/rankbars/pkg/render/bars/styles"
	"github.com/matzehuels/rankbars/pkg/snapshot"
	"github.com/matzehuels/rankbars/pkg/store"
)

func newTestPlayModel(t *testing.T, start int) (*playModel, *store.Memory) {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemory()
	_ = mem.SaveSnapshot(ctx, 2015, snapshot.Snapshot{
		{Key: "Globex", Rank: 1, Value: 90},
		{Key: "Initech", Rank: 2, Value: 70},
	})
	_ = mem.SaveSnapshot(ctx, 2016, snapshot.Snapshot{
		{Key: "Acme", Rank: 1, Value: 100, DisplayValue: "$100"},
		{Key: "Globex", Rank: 2, Value: 80, DisplayValue: "$80"},
	})
	runner := pipeline.NewRunner(pipeline.StoreSource{Store: mem, First: 2015, Last: 2016}, nil, nil, nil)
	m := newPlayModel(ctx, runner, mem, []int{2015, 2016}, start, styles.Default(), config.DefaultChart())
	t.Cleanup(m.tracker.Stop)
	return m, mem
}

// load runs the year load synchronously and plays the transition out.
func load(t *testing.T, m *playModel) time.Time {
	t.Helper()
	m.Update(m.loadYear(m.year(), false)())
	now := time.Unix(0, 0)
	m.advance(now)
	now = now.Add(2 * time.Second)
	m.advance(now)
	return now
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestPlayModelRendersYear(t *testing.T) {
	m, _ := newTestPlayModel(t, 1)
	load(t, m)

	if got := m.canvas.Keys(); len(got) != 2 || got[0] != "Acme" || got[1] != "Globex" {
		t.Fatalf("visible rows = %v", got)
	}
	view := m.View()
	for _, want := range []string{"rankbars 2016", "[2016]", "$100", "$80"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
	if !m.engine.Idle() {
		t.Error("transition should be finished")
	}
}

func TestPlayModelStaleYearIgnored(t *testing.T) {
	m, _ := newTestPlayModel(t, 1)
	m.Update(yearMsg{year: 2015, snap: snapshot.Snapshot{{Key: "Stale", Rank: 1, Value: 1}}})
	if len(m.current) != 0 {
		t.Errorf("stale load should be dropped, current = %v", m.current)
	}
}

func TestPlayModelNotes(t *testing.T) {
	m, mem := newTestPlayModel(t, 1)
	if err := mem.SetNoteField(context.Background(), "Globex", "industry", "Conglomerate"); err != nil {
		t.Fatalf("SetNoteField: %v", err)
	}
	load(t, m)

	m.Update(keyMsg("down"))
	if got := m.selectRow(); got != "Globex" {
		t.Fatalf("selected = %q, want Globex", got)
	}

	_, cmd := m.Update(keyMsg("enter"))
	if cmd == nil {
		t.Fatal("enter on a row should fetch its note")
	}
	if m.clicked != "Globex" {
		t.Errorf("clicked = %q", m.clicked)
	}
	m.Update(cmd())
	for _, want := range []string{"Globex", "rank 2", "industry", "Conglomerate"} {
		if !strings.Contains(m.detail, want) {
			t.Errorf("detail missing %q:\n%s", want, m.detail)
		}
	}
}

func TestPlayModelStep(t *testing.T) {
	m, _ := newTestPlayModel(t, 0)
	load(t, m)

	_, cmd := m.Update(keyMsg("right"))
	if m.year() != 2016 || cmd == nil {
		t.Fatalf("year = %d, cmd = %v", m.year(), cmd)
	}
	m.Update(cmd())
	if _, ok := m.current.Lookup("Acme"); !ok {
		t.Error("2016 should be loaded")
	}
	if m.engine.Idle() {
		t.Error("year change should start a transition")
	}

	if _, cmd := m.Update(keyMsg("right")); cmd != nil || m.year() != 2016 {
		t.Error("stepping past the last year should do nothing")
	}
}

func TestPlayModelAutoplay(t *testing.T) {
	m, _ := newTestPlayModel(t, 0)
	now := load(t, m)

	m.Update(keyMsg("a"))
	if !m.autoplay {
		t.Fatal("a should toggle autoplay")
	}
	m.advance(now)
	if m.year() != 2015 {
		t.Fatal("autoplay should hold the settled year first")
	}
	m.advance(now.Add(autoplayHold))
	if m.year() != 2016 {
		t.Fatalf("year = %d, want 2016 after the hold", m.year())
	}
	if _, ok := m.current.Lookup("Acme"); !ok {
		t.Error("autoplay should load the next year")
	}

	now = now.Add(autoplayHold + 2*time.Second)
	m.advance(now)
	m.advance(now.Add(autoplayHold))
	if m.autoplay {
		t.Error("autoplay should stop at the last year")
	}
}

func TestPlayModelLoadError(t *testing.T) {
	m, _ := newTestPlayModel(t, 0)
	m.years = []int{2014}
	m.Update(m.loadYear(2014, false)())
	if m.err == nil {
		t.Fatal("expected load error")
	}
	if !strings.Contains(m.View(), "2014") {
		t.Error("view should still show the year")
	}
}

func TestPlayModelFirstSizeIsImmediate(t *testing.T) {
	m, _ := newTestPlayModel(t, 1)

	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	select {
	case msg := <-m.events:
		if w, ok := msg.(widthMsg); !ok || float64(w) != 1200 {
			t.Fatalf("msg = %#v, want widthMsg(1200)", msg)
		}
	default:
		t.Fatal("first window size should be delivered without debounce")
	}

	m.Update(tea.WindowSizeMsg{Width: 150, Height: 40})
	select {
	case msg := <-m.events:
		t.Errorf("resize should be debounced, got %#v", msg)
	default:
	}
}

func TestDatasetYear(t *testing.T) {
	tests := []struct {
		path string
		year int
		ok   bool
	}{
		{"/data/market_cap_2024.csv", 2024, true},
		{"market_cap_1999.csv", 1999, true},
		{"/data/market_cap_2024.csv.swp", 0, false},
		{"/data/notes.csv", 0, false},
	}
	for _, tt := range tests {
		year, ok := datasetYear(tt.path)
		if year != tt.year || ok != tt.ok {
			t.Errorf("datasetYear(%q) = %d, %v", tt.path, year, ok)
		}
	}
}

func TestWatchDataset(t *testing.T) {
	dir := t.TempDir()
	events := make(chan tea.Msg, eventBuffer)
	w, err := watchDataset(dir, events)
	if err != nil {
		t.Fatalf("watchDataset: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(filepath.Join(dir, "market_cap_2020.csv"), []byte("rank\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case msg := <-events:
		if rm, ok := msg.(reloadMsg); !ok || rm.year != 2020 {
			t.Errorf("msg = %#v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no reload event")
	}
}

func TestPostDropsWhenFull(t *testing.T) {
	events := make(chan tea.Msg, 1)
	post(events, reloadMsg{year: 1})
	post(events, reloadMsg{year: 2})
	if got := (<-events).(reloadMsg); got.year != 1 {
		t.Errorf("got year %d", got.year)
	}
	select {
	case msg := <-events:
		t.Errorf("unexpected %v", msg)
	default:
	}
}
