package sink

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/matzehuels/rankbars/pkg/config"
	"github.com/matzehuels/rankbars/pkg/render/bars/engine"
	"github.com/matzehuels/rankbars/pkg/render/bars/styles"
	"github.com/matzehuels/rankbars/pkg/snapshot"
)

const rowInteractionCSS = `
    [data-key] { cursor: pointer; }
    .row-hover { filter: brightness(1.08); }`

const rowInteractionJS = `
    document.querySelectorAll('[data-key]').forEach(el => {
      el.addEventListener('click', () => {
        const key = el.dataset.key;
        document.dispatchEvent(new CustomEvent('rankbars:click', { detail: { key } }));
        if (window.parent !== window) {
          window.parent.postMessage({ type: 'rankbars:click', key }, '*');
        }
      });
    });`

// keySplines approximates the cubic in-out easing for SMIL.
const keySplines = "0.65 0 0.35 1"

// SVGOption configures SVG rendering.
type SVGOption func(*svgRenderer)

type svgRenderer struct {
	theme       styles.Theme
	chart       config.Chart
	width       float64
	previous    snapshot.Snapshot
	static      bool
	interactive bool
}

// WithTheme sets the visual theme.
func WithTheme(t styles.Theme) SVGOption { return func(r *svgRenderer) { r.theme = t } }

// WithChart sets the chart configuration.
func WithChart(c config.Chart) SVGOption { return func(r *svgRenderer) { r.chart = c } }

// WithWidth sets the viewport width. Values below the chart minimum are clamped.
func WithWidth(w float64) SVGOption { return func(r *svgRenderer) { r.width = w } }

// WithPrevious animates the chart from the previous period's snapshot.
func WithPrevious(prev snapshot.Snapshot) SVGOption {
	return func(r *svgRenderer) { r.previous = prev }
}

// WithStatic renders the settled end state without animations.
func WithStatic() SVGOption { return func(r *svgRenderer) { r.static = true } }

// WithInteraction embeds a script that reports row clicks as
// "rankbars:click" events to the page and to a parent frame.
func WithInteraction() SVGOption { return func(r *svgRenderer) { r.interactive = true } }

// RenderSVG renders snap as an SVG document. By default every row enters
// with the chart's transition; with [WithPrevious] rows animate from the
// previous snapshot instead.
func RenderSVG(snap snapshot.Snapshot, opts ...SVGOption) ([]byte, error) {
	r := newSVGRenderer(opts...)
	canvas := NewSVGCanvas(r.theme, r.interactive)
	e := engine.New(canvas,
		engine.WithChart(r.chart),
		engine.WithTheme(r.theme),
		engine.WithWidth(r.width),
	)

	if len(r.previous) > 0 {
		if err := e.Render(r.previous); err != nil {
			return nil, err
		}
		if err := settle(e, r.chart); err != nil {
			return nil, err
		}
	}
	if err := e.Render(snap); err != nil {
		return nil, err
	}
	if r.static {
		if err := settle(e, r.chart); err != nil {
			return nil, err
		}
	}
	return canvas.Bytes(), nil
}

func newSVGRenderer(opts ...SVGOption) svgRenderer {
	r := svgRenderer{theme: styles.Default(), chart: config.DefaultChart()}
	for _, opt := range opts {
		opt(&r)
	}
	r.chart = r.chart.Normalize()
	return r
}

// settle advances e past the longest possible transition.
func settle(e *engine.Engine, c config.Chart) error {
	return e.Tick(c.EnterDelay + c.TransitionDuration)
}

// SVGCanvas is an [engine.Target] and [engine.Animator] producing SVG
// with SMIL animations. Each drawn frame replaces the previous document.
type SVGCanvas struct {
	theme       styles.Theme
	interactive bool

	width, height float64
	elems         []*svgElem
	byID          map[string]*svgElem
	out           []byte
}

type svgElem struct {
	id      string
	tag     string
	attrs   string
	content string
	anims   []engine.Animation
}

// NewSVGCanvas returns an empty canvas.
func NewSVGCanvas(theme styles.Theme, interactive bool) *SVGCanvas {
	return &SVGCanvas{theme: theme, interactive: interactive}
}

// Bytes returns the document of the last completed frame.
func (c *SVGCanvas) Bytes() []byte { return c.out }

func (c *SVGCanvas) Begin(width, height float64) {
	c.width, c.height = width, height
	c.elems = c.elems[:0]
	c.byID = make(map[string]*svgElem)
}

func (c *SVGCanvas) add(id, tag, attrs, content string) {
	el := &svgElem{id: id, tag: tag, attrs: attrs, content: content}
	c.elems = append(c.elems, el)
	c.byID[id] = el
}

func (c *SVGCanvas) Rect(id string, r engine.Rect) {
	c.add(id, "rect", fmt.Sprintf(`x="%s" y="%s" width="%s" height="%s" rx="%s" fill="%s" opacity="%s"`,
		num(r.X), num(r.Y), num(r.W), num(r.H), num(r.RX), escape(r.Fill), num(r.Opacity)), "")
}

func (c *SVGCanvas) Text(id string, t engine.Text) {
	weight := ""
	if t.Weight > 0 {
		weight = fmt.Sprintf(` font-weight="%d"`, t.Weight)
	}
	c.add(id, "text", fmt.Sprintf(`x="%s" y="%s" font-family="%s" font-size="%s"%s fill="%s" text-anchor="%s" dominant-baseline="middle" opacity="%s"`,
		num(t.X), num(t.Y), escape(t.Family), num(t.Size), weight, escape(t.Fill), escape(t.Anchor), num(t.Opacity)),
		escape(t.Content))
}

func (c *SVGCanvas) Image(id string, img engine.Image) {
	c.add(id, "image", fmt.Sprintf(`href="%s" x="%s" y="%s" width="%s" height="%s" preserveAspectRatio="xMidYMid meet" opacity="%s"`,
		escape(img.Href), num(img.X), num(img.Y), num(img.W), num(img.H), num(img.Opacity)), "")
}

func (c *SVGCanvas) Line(id string, l engine.Line) {
	dash := ""
	if l.Dash != "" {
		dash = fmt.Sprintf(` stroke-dasharray="%s"`, escape(l.Dash))
	}
	c.add(id, "line", fmt.Sprintf(`x1="%s" y1="%s" x2="%s" y2="%s" stroke="%s"%s opacity="%s"`,
		num(l.X1), num(l.Y1), num(l.X2), num(l.Y2), escape(l.Stroke), dash, num(l.Opacity)), "")
}

// Animate attaches an animation to a shape drawn in the current frame.
func (c *SVGCanvas) Animate(id string, a engine.Animation) {
	if el, ok := c.byID[id]; ok {
		el.anims = append(el.anims, a)
	}
}

func (c *SVGCanvas) End() error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f">`+"\n",
		c.width, c.height, c.width, c.height)
	if c.theme.Background != "" {
		fmt.Fprintf(&buf, `  <rect width="100%%" height="100%%" fill="%s"/>`+"\n", escape(c.theme.Background))
	}

	for _, el := range c.elems {
		writeElem(&buf, el)
	}

	if c.interactive {
		fmt.Fprintf(&buf, "  <style>%s\n  </style>\n", rowInteractionCSS)
		fmt.Fprintf(&buf, "  <script type=\"text/javascript\"><![CDATA[%s\n  ]]></script>\n", rowInteractionJS)
	}
	buf.WriteString("</svg>\n")
	c.out = buf.Bytes()
	return nil
}

func writeElem(buf *bytes.Buffer, el *svgElem) {
	fmt.Fprintf(buf, `  <%s data-id="%s"`, el.tag, escape(el.id))
	if part, key, ok := engine.ParseElementID(el.id); ok && part.IsRow() {
		fmt.Fprintf(buf, ` data-key="%s"`, escape(key))
	}
	buf.WriteString(" " + el.attrs)

	if len(el.anims) == 0 && el.content == "" {
		buf.WriteString("/>\n")
		return
	}
	buf.WriteString(">")
	buf.WriteString(el.content)
	for _, a := range el.anims {
		writeAnimation(buf, a)
	}
	fmt.Fprintf(buf, "</%s>\n", el.tag)
}

func writeAnimation(buf *bytes.Buffer, a engine.Animation) {
	if a.Duration <= 0 {
		fmt.Fprintf(buf, `<set attributeName="%s" to="%s" begin="%.3fs" fill="freeze"/>`,
			a.Attr, num(a.To), a.Delay.Seconds())
		return
	}
	fmt.Fprintf(buf, `<animate attributeName="%s" from="%s" to="%s" begin="%.3fs" dur="%.3fs" fill="freeze" calcMode="spline" keyTimes="0;1" keySplines="%s"/>`,
		a.Attr, num(a.From), num(a.To), a.Delay.Seconds(), a.Duration.Seconds(), keySplines)
}

func num(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

func escape(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
