package pipeline

import (
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/matzehuels/rankbars/pkg/cache"
	rberr "github.com/matzehuels/rankbars/pkg/errors"
	"github.com/matzehuels/rankbars/pkg/snapshot"
	"github.com/matzehuels/rankbars/pkg/store"
)

type countingSource struct {
	StoreSource
	loads atomic.Int32
}

func (s *countingSource) Load(ctx context.Context, year int) (snapshot.Snapshot, error) {
	s.loads.Add(1)
	return s.StoreSource.Load(ctx, year)
}

func newSource(t *testing.T) *countingSource {
	t.Helper()
	ctx := context.Background()
	m := store.NewMemory()
	_ = m.SaveSnapshot(ctx, 2015, snapshot.Snapshot{
		{Key: "Globex", Rank: 1, Value: 90},
		{Key: "Initech", Rank: 2, Value: 70},
	})
	_ = m.SaveSnapshot(ctx, 2016, snapshot.Snapshot{
		{Key: "Acme", Rank: 1, Value: 100},
		{Key: "Globex", Rank: 2, Value: 80},
	})
	return &countingSource{StoreSource: StoreSource{Store: m, First: 2015, Last: 2017}}
}

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"svg", false},
		{"png", false},
		{"pdf", false},
		{"json", false},
		{"flow", false},
		{"invalid", true},
		{"SVG", true},
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
	}
}

func TestValidateAndSetDefaults(t *testing.T) {
	var o Options
	if err := o.ValidateAndSetDefaults(); err == nil {
		t.Error("missing year should fail")
	}

	o = Options{Year: 2016, Width: 300}
	if err := o.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults: %v", err)
	}
	if len(o.Formats) != 1 || o.Formats[0] != FormatSVG {
		t.Errorf("Formats = %v, want [svg]", o.Formats)
	}
	if o.Width != 800 {
		t.Errorf("Width = %v, want clamped 800", o.Width)
	}
	if o.Scale != DefaultScale || o.Logger == nil {
		t.Errorf("defaults not applied: %+v", o)
	}

	o = Options{Year: 2016, Formats: []string{"gif"}}
	if err := o.ValidateAndSetDefaults(); err == nil {
		t.Error("invalid format should fail")
	}
}

func TestArtifactKeyOpts(t *testing.T) {
	o := Options{Year: 2016, Animate: true}
	_ = o.ValidateAndSetDefaults()

	if k := o.ArtifactKeyOpts(FormatSVG, "prev"); k.PreviousHash != "prev" {
		t.Error("animated SVG depends on the previous snapshot")
	}
	if k := o.ArtifactKeyOpts(FormatPNG, "prev"); k.PreviousHash != "" || k.Scale != DefaultScale {
		t.Errorf("PNG key = %+v", k)
	}
	o.Static = true
	if k := o.ArtifactKeyOpts(FormatSVG, "prev"); k.PreviousHash != "" {
		t.Error("static SVG does not depend on the previous snapshot")
	}
}

func TestPeriod(t *testing.T) {
	ctx := context.Background()
	r := NewRunner(newSource(t), nil, nil, nil)

	tests := []struct {
		name        string
		year        int
		wantPrev    int
		wantEntries []string
		wantExits   []string
	}{
		{"first year", 2015, 0, nil, nil},
		{"second year", 2016, 2, []string{"Acme"}, []string{"Initech"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := r.Period(ctx, tt.year)
			if err != nil {
				t.Fatalf("Period(%d): %v", tt.year, err)
			}
			if len(p.Previous) != tt.wantPrev {
				t.Errorf("Previous = %v", p.Previous)
			}
			if got := keys(p.Diff.Entries); got != strings.Join(tt.wantEntries, ",") {
				t.Errorf("Entries = %s", got)
			}
			if got := keys(p.Diff.Exits); got != strings.Join(tt.wantExits, ",") {
				t.Errorf("Exits = %s", got)
			}
		})
	}
}

func TestPeriodMissingYear(t *testing.T) {
	r := NewRunner(newSource(t), nil, nil, nil)
	// 2017 is in range but was never saved.
	if _, err := r.Period(context.Background(), 2017); !rberr.Is(err, rberr.ErrCodeNotFound) {
		t.Errorf("err = %v, want NOT_FOUND", err)
	}
}

func TestLoadCaching(t *testing.T) {
	ctx := context.Background()
	src := newSource(t)
	fc, _ := cache.NewFileCache(t.TempDir())
	r := NewRunner(src, fc, nil, nil)

	if _, hit, err := r.LoadWithCacheInfo(ctx, 2016, false); err != nil || hit {
		t.Fatalf("first load: hit=%v err=%v", hit, err)
	}
	s, hit, err := r.LoadWithCacheInfo(ctx, 2016, false)
	if err != nil || !hit || len(s) != 2 {
		t.Fatalf("second load: %v hit=%v err=%v", s, hit, err)
	}
	if _, hit, _ := r.LoadWithCacheInfo(ctx, 2016, true); hit {
		t.Error("refresh should bypass the cache")
	}
	if got := src.loads.Load(); got != 2 {
		t.Errorf("source loads = %d, want 2", got)
	}
}

func TestLoadAll(t *testing.T) {
	r := NewRunner(newSource(t), nil, nil, nil)
	all, err := r.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(all) != 2 || len(all[2015]) != 2 || len(all[2016]) != 2 {
		t.Errorf("LoadAll = %v", all)
	}
}

func TestNoSource(t *testing.T) {
	r := NewRunner(nil, nil, nil, nil)
	if _, err := r.Load(context.Background(), 2016); !rberr.Is(err, rberr.ErrCodeUnavailable) {
		t.Errorf("err = %v, want UNAVAILABLE", err)
	}
}

func TestExecute(t *testing.T) {
	ctx := context.Background()
	fc, _ := cache.NewFileCache(t.TempDir())
	r := NewRunner(newSource(t), fc, nil, nil)
	opts := Options{Year: 2016, Formats: []string{FormatSVG, FormatJSON}, Animate: true}

	res, err := r.Execute(ctx, opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.CacheInfo.RenderHit {
		t.Error("first run should render")
	}
	if res.Stats.Entries != 1 || res.Stats.Exits != 1 || res.Stats.Records != 2 {
		t.Errorf("Stats = %+v", res.Stats)
	}
	svg := string(res.Artifacts[FormatSVG])
	if !strings.Contains(svg, `data-key="Initech"`) {
		t.Error("animated SVG should draw the exiting row")
	}

	var frame struct {
		Year int `json:"year"`
		Rows []struct {
			Key string `json:"key"`
		} `json:"rows"`
	}
	if err := json.Unmarshal(res.Artifacts[FormatJSON], &frame); err != nil {
		t.Fatalf("json artifact: %v", err)
	}
	if frame.Year != 2016 || len(frame.Rows) != 2 {
		t.Errorf("json artifact = %+v", frame)
	}

	again, err := r.Execute(ctx, opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !again.CacheInfo.RenderHit || !again.CacheInfo.LoadHit {
		t.Errorf("second run CacheInfo = %+v, want hits", again.CacheInfo)
	}
	if string(again.Artifacts[FormatSVG]) != svg {
		t.Error("cached SVG differs")
	}
}

func TestExecuteInvalid(t *testing.T) {
	r := NewRunner(newSource(t), nil, nil, nil)
	_, err := r.Execute(context.Background(), Options{})
	if !rberr.Is(err, rberr.ErrCodeInvalidInput) {
		t.Errorf("err = %v, want INVALID_INPUT", err)
	}
}

func TestRenderPeriodFlow(t *testing.T) {
	p := NewPeriod(2016,
		snapshot.Snapshot{{Key: "Acme", Rank: 1, Value: 100}},
		snapshot.Snapshot{{Key: "Globex", Rank: 1, Value: 90}},
		20)
	out, err := RenderPeriod(context.Background(), p, Options{Formats: []string{FormatFlow}})
	if err != nil {
		t.Fatalf("RenderPeriod: %v", err)
	}
	if !strings.Contains(string(out[FormatFlow]), "<svg") {
		t.Error("flow artifact should be SVG")
	}
}

func TestRenderPeriodUnknownTheme(t *testing.T) {
	p := NewPeriod(2016, nil, nil, 20)
	if _, err := RenderPeriod(context.Background(), p, Options{Theme: "/does/not/exist.toml"}); err == nil {
		t.Error("missing theme file should fail")
	}
}

func keys(recs []snapshot.Record) string {
	return strings.Join(snapshot.Snapshot(recs).Keys(), ",")
}
