// Package dom is the host document papyrus elements live in: an HTML tree
// with inline-style metrics, size notifications and serialization.
package dom

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"
	"io"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/net/html"

	"github.com/ByLCY/papyrender/element"
)

// Document is safe for concurrent use by the elements mounted in it.
type Document struct {
	mu        sync.Mutex
	root      *html.Node
	style     Style
	widths    map[*html.Node]float64
	observers map[*html.Node]map[int]func(float64)
	nextObs   int
	canvases  map[*html.Node]*element.Surface
}

// Parse reads an HTML document.
func Parse(r io.Reader, style Style) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("解析 HTML 失败: %w", err)
	}
	return newDocument(root, style), nil
}

func newDocument(root *html.Node, style Style) *Document {
	return &Document{
		root:      root,
		style:     style,
		widths:    map[*html.Node]float64{},
		observers: map[*html.Node]map[int]func(float64){},
		canvases:  map[*html.Node]*element.Surface{},
	}
}

// Find returns the elements named tag in document order.
func (d *Document) Find(tag string) []*html.Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && strings.EqualFold(n.Data, tag) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(d.root)
	return out
}

// Resize sets the content width of n and notifies observers in its subtree.
func (d *Document) Resize(n *html.Node, width float64) {
	d.mu.Lock()
	d.widths[n] = width
	type note struct {
		fn   func(float64)
		size float64
	}
	var notes []note
	for observed, fns := range d.observers {
		if !contains(n, observed) {
			continue
		}
		size := d.metricsLocked(observed).ContentWidth
		for _, fn := range fns {
			notes = append(notes, note{fn, size})
		}
	}
	d.mu.Unlock()

	for _, nt := range notes {
		nt.fn(nt.size)
	}
}

// Metrics computes the layout values of n.
func (d *Document) Metrics(n *html.Node) element.Metrics {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.metricsLocked(n)
}

func (d *Document) metricsLocked(n *html.Node) element.Metrics {
	var chain []*html.Node
	for a := n; a != nil; a = a.Parent {
		chain = append(chain, a)
	}

	fontSize := d.style.FontSize
	width := d.style.ContentWidth
	lhRaw := ""
	for i := len(chain) - 1; i >= 0; i-- {
		a := chain[i]
		if a.Type != html.ElementNode {
			continue
		}
		decl := declarations(attr(a, "style"))
		if v, ok := decl["font-size"]; ok {
			if px, ok := length(v, fontSize); ok && px > 0 {
				fontSize = px
			}
		}
		if v, ok := decl["line-height"]; ok {
			lhRaw = v
		}
		if v, ok := decl["width"]; ok {
			if px, ok := length(v, fontSize); ok {
				width = px
			}
		}
		if w, ok := d.widths[a]; ok {
			width = w
		}
	}

	lh := d.style.LineHeight * fontSize
	if lhRaw != "" {
		if px, ok := lineHeight(lhRaw, fontSize); ok {
			lh = px
		}
	}
	return element.Metrics{FontSize: fontSize, ContentWidth: width, LineHeight: lh}
}

// Render writes the document. Canvases carry their backing size and pixels
// as a PNG data URL in data-src.
func (d *Document) Render(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for n, s := range d.canvases {
		setAttr(n, "width", strconv.Itoa(s.Width()))
		setAttr(n, "height", strconv.Itoa(s.Height()))
		if s.Width() == 0 || s.Height() == 0 {
			continue
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, s.Snapshot()); err != nil {
			return fmt.Errorf("编码 canvas 失败: %w", err)
		}
		setAttr(n, "data-src", "data:image/png;base64,"+base64.StdEncoding.EncodeToString(buf.Bytes()))
	}
	return html.Render(w, d.root)
}

func (d *Document) observe(n *html.Node, fn func(float64)) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.nextObs
	d.nextObs++
	if d.observers[n] == nil {
		d.observers[n] = map[int]func(float64){}
	}
	d.observers[n][id] = fn
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.observers[n], id)
		if len(d.observers[n]) == 0 {
			delete(d.observers, n)
		}
	}
}

// observed reports how many callbacks watch n.
func (d *Document) observed(n *html.Node) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.observers[n])
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return true
		}
	}
	return false
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// contains reports whether n is ancestor-or-self of m.
func contains(n, m *html.Node) bool {
	for a := m; a != nil; a = a.Parent {
		if a == n {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func removeChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; c = n.FirstChild {
		n.RemoveChild(c)
	}
}
