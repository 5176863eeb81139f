package dom

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/ByLCY/papyrender/element"
)

// host adapts one node of a Document to element.Host.
type host struct {
	doc  *Document
	node *html.Node
}

var _ element.Host = (*host)(nil)

func (h *host) IsConnected() bool {
	h.doc.mu.Lock()
	defer h.doc.mu.Unlock()
	return contains(h.doc.root, h.node)
}

func (h *host) Metrics() element.Metrics {
	return h.doc.Metrics(h.node)
}

func (h *host) SetDisplayBlock() {
	h.doc.mu.Lock()
	defer h.doc.mu.Unlock()
	setAttr(h.node, "style", withDeclaration(attr(h.node, "style"), "display", "block"))
}

func (h *host) AttachCanvas(s *element.Surface) {
	h.doc.mu.Lock()
	defer h.doc.mu.Unlock()
	c := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Canvas,
		Data:     "canvas",
		Attr: []html.Attribute{
			{Key: "height", Val: fmt.Sprint(s.Height())},
			{Key: "class", Val: "papyrus-doc"},
		},
	}
	h.node.AppendChild(c)
	h.doc.canvases[c] = s
}

func (h *host) SetMarkup(markup string) (element.Child, error) {
	nodes, err := html.ParseFragment(strings.NewReader(markup), &html.Node{
		Type: html.ElementNode,
		Data: h.node.Data,
	})
	if err != nil {
		return nil, fmt.Errorf("解析标记失败: %w", err)
	}

	h.doc.mu.Lock()
	defer h.doc.mu.Unlock()
	var first *html.Node
	for _, n := range nodes {
		if first == nil && n.Type == html.ElementNode {
			first = n
		}
	}
	if first == nil {
		return nil, errors.New("标记中没有元素")
	}
	for c := h.node.FirstChild; c != nil; c = c.NextSibling {
		delete(h.doc.canvases, c)
	}
	removeChildren(h.node)
	for _, n := range nodes {
		h.node.AppendChild(n)
	}
	return &child{doc: h.doc, node: first}, nil
}

func (h *host) ReplaceWithError(text string) {
	h.doc.mu.Lock()
	defer h.doc.mu.Unlock()
	parent := h.node.Parent
	if parent == nil {
		return
	}
	pre := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Pre,
		Data:     "pre",
		Attr:     []html.Attribute{{Key: "style", Val: "white-space: pre;"}},
	}
	pre.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	parent.InsertBefore(pre, h.node)
	parent.RemoveChild(h.node)
	for c := h.node.FirstChild; c != nil; c = c.NextSibling {
		delete(h.doc.canvases, c)
	}
}

func (h *host) Observe(fn func(float64)) func() {
	return h.doc.observe(h.node, fn)
}

// child is the root element of inserted markup.
type child struct {
	doc  *Document
	node *html.Node
}

func (c *child) Padding() element.Box {
	c.doc.mu.Lock()
	defer c.doc.mu.Unlock()
	fontSize := c.doc.metricsLocked(c.node).FontSize
	return padding(declarations(attr(c.node, "style")), fontSize, c.doc.style.Padding)
}

func (c *child) SetAttr(key, value string) {
	c.doc.mu.Lock()
	defer c.doc.mu.Unlock()
	setAttr(c.node, key, value)
}
