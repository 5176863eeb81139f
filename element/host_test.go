package element

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ByLCY/papyrender/render"
)

// fakeHost records every write an element makes to its document.
type fakeHost struct {
	mu        sync.Mutex
	connected bool
	metrics   Metrics
	padding   Box
	block     bool
	canvas    *Surface
	canvases  int
	markup    string
	markups   int
	child     *fakeChild
	errText   string
	replaced  int
	observer  func(float64)
	observes  int
}

func newFakeHost(m Metrics) *fakeHost {
	return &fakeHost{connected: true, metrics: m}
}

func (h *fakeHost) IsConnected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.connected
}

func (h *fakeHost) Metrics() Metrics {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.metrics
}

func (h *fakeHost) SetDisplayBlock() {
	h.mu.Lock()
	h.block = true
	h.mu.Unlock()
}

func (h *fakeHost) AttachCanvas(s *Surface) {
	h.mu.Lock()
	h.canvas = s
	h.canvases++
	h.mu.Unlock()
}

func (h *fakeHost) SetMarkup(markup string) (Child, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.markup = markup
	h.markups++
	h.child = &fakeChild{pad: h.padding, attrs: map[string]string{}}
	return h.child, nil
}

func (h *fakeHost) ReplaceWithError(text string) {
	h.mu.Lock()
	h.errText = text
	h.replaced++
	h.mu.Unlock()
}

func (h *fakeHost) Observe(fn func(float64)) func() {
	h.mu.Lock()
	h.observer = fn
	h.observes++
	h.mu.Unlock()
	return func() {
		h.mu.Lock()
		h.observer = nil
		h.mu.Unlock()
	}
}

// resize changes the content width and notifies the observer like a
// ResizeObserver would.
func (h *fakeHost) resize(width float64) {
	h.mu.Lock()
	h.metrics.ContentWidth = width
	fn := h.observer
	h.mu.Unlock()
	if fn != nil {
		fn(width)
	}
}

func (h *fakeHost) observing() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.observer != nil
}

// hostView is a copy of what the host currently shows.
type hostView struct {
	markup   string
	markups  int
	child    *fakeChild
	errText  string
	replaced int
	block    bool
	canvases int
}

func (h *fakeHost) view() hostView {
	h.mu.Lock()
	defer h.mu.Unlock()
	return hostView{markup: h.markup, markups: h.markups, child: h.child, errText: h.errText, replaced: h.replaced, block: h.block, canvases: h.canvases}
}

type fakeChild struct {
	pad   Box
	attrs map[string]string
}

func (c *fakeChild) Padding() Box              { return c.pad }
func (c *fakeChild) SetAttr(key, value string) { c.attrs[key] = value }

// call is one pending compile the test resolves by hand.
type call struct {
	req   render.Request
	ctx   context.Context
	reply chan reply
}

type reply struct {
	res render.Result
	err error
}

func (c *call) resolve(res render.Result, err error) { c.reply <- reply{res, err} }

// scriptCompiler parks every compile until the test resolves it and
// remembers how many compiles overlapped.
type scriptCompiler struct {
	calls     chan *call
	honourCtx bool
	active    atomic.Int32
	maxActive atomic.Int32
	total     atomic.Int32
}

func newScriptCompiler(honourCtx bool) *scriptCompiler {
	return &scriptCompiler{calls: make(chan *call, 16), honourCtx: honourCtx}
}

func (c *scriptCompiler) Compile(ctx context.Context, req render.Request) (render.Result, error) {
	n := c.active.Add(1)
	defer c.active.Add(-1)
	c.total.Add(1)
	for {
		m := c.maxActive.Load()
		if n <= m || c.maxActive.CompareAndSwap(m, n) {
			break
		}
	}

	cl := &call{req: req, ctx: ctx, reply: make(chan reply, 1)}
	c.calls <- cl
	if c.honourCtx {
		select {
		case r := <-cl.reply:
			return r.res, r.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	r := <-cl.reply
	return r.res, r.err
}

// countingCompiler answers immediately with the result of fn.
type countingCompiler struct {
	mu   sync.Mutex
	reqs []render.Request
	fn   func(render.Request) (render.Result, error)
}

func (c *countingCompiler) Compile(_ context.Context, req render.Request) (render.Result, error) {
	c.mu.Lock()
	c.reqs = append(c.reqs, req)
	c.mu.Unlock()
	return c.fn(req)
}

func (c *countingCompiler) requests() []render.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]render.Request(nil), c.reqs...)
}

func markupResult(text string) func(render.Request) (render.Result, error) {
	return func(render.Request) (render.Result, error) { return render.Markup{Text: text}, nil }
}

func imageResult(w, h int) func(render.Request) (render.Result, error) {
	return func(render.Request) (render.Result, error) {
		return render.Image{Width: w, Height: h, Pix: make([]uint8, 4*w*h)}, nil
	}
}
