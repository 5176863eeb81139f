package dom

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/net/html"

	"github.com/ByLCY/papyrender/element"
	"github.com/ByLCY/papyrender/render"
)

// DefaultTag is the element name papyrus fragments are written in.
const DefaultTag = "papyrus-render"

// MountOptions selects which elements are mounted and how.
type MountOptions struct {
	Tag string
	// Format applies to elements without a format attribute.
	Format render.Format
}

// Mounted is the set of elements created by one Mount call.
type Mounted struct {
	nodes    []*html.Node
	elements []*element.Element
	outcomes []element.Outcome
}

// Mount builds an element for every matching node, moves the node's text into
// the element's source, and connects them all. It returns once each element
// has settled its first draw.
//
// Attributes: path (reference path of the source), format (image|svg) and
// display (present, or "true", for block elements).
func Mount(ctx context.Context, doc *Document, env element.Env, opts MountOptions) (*Mounted, error) {
	tag := opts.Tag
	if tag == "" {
		tag = DefaultTag
	}
	// 先校验全部节点，任何一个出错都不改动文档
	m := &Mounted{}
	for _, n := range doc.Find(tag) {
		cfg, err := doc.configure(n, opts.Format)
		if err != nil {
			return nil, err
		}
		e, err := element.New(cfg, &host{doc: doc, node: n}, env)
		if err != nil {
			return nil, err
		}
		m.nodes = append(m.nodes, n)
		m.elements = append(m.elements, e)
	}
	doc.takeSources(m.nodes)

	m.outcomes = make([]element.Outcome, len(m.elements))
	var wg sync.WaitGroup
	for i, e := range m.elements {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.outcomes[i] = e.Connect(ctx)
		}()
	}
	wg.Wait()
	return m, nil
}

// configure reads the element's attributes and its text as source. The
// document is left untouched.
func (d *Document) configure(n *html.Node, format render.Format) (element.Config, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cfg := element.Config{
		Path:   attr(n, "path"),
		Source: strings.TrimSpace(textContent(n)),
		Format: format,
	}
	if v := attr(n, "format"); v != "" {
		f, err := render.ParseFormat(v)
		if err != nil {
			return cfg, fmt.Errorf("<%s path=%q>: %w", n.Data, cfg.Path, err)
		}
		cfg.Format = f
	}
	if hasAttr(n, "display") {
		v := strings.ToLower(attr(n, "display"))
		cfg.Display = v == "" || v == "true" || v == "display" || v == "block"
	}
	return cfg, nil
}

// takeSources drops the source text the elements now own.
func (d *Document) takeSources(nodes []*html.Node) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, n := range nodes {
		removeChildren(n)
	}
}

// Elements returns the mounted elements in document order.
func (m *Mounted) Elements() []*element.Element { return m.elements }

// Nodes returns the element nodes in document order.
func (m *Mounted) Nodes() []*html.Node { return m.nodes }

// Outcomes returns the result of each element's first draw.
func (m *Mounted) Outcomes() []element.Outcome { return m.outcomes }

// Wait blocks until redraws triggered by resizes have settled.
func (m *Mounted) Wait() {
	for _, e := range m.elements {
		e.Wait()
	}
}

// Unmount detaches every element.
func (m *Mounted) Unmount() {
	for _, e := range m.elements {
		e.Disconnect()
	}
}
