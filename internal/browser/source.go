package browser

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"sjsage522/silkdeal/internal/pager"
)

const (
	pollInterval       = 100 * time.Millisecond
	defaultCallTimeout = 30 * time.Second
)

const (
	jsConnected    = `function() { return this.isConnected; }`
	jsScrollCenter = `function() { this.scrollIntoView({block: 'center'}); }`
	jsClickable    = `function() {
		if (!this.isConnected || this.disabled) return false;
		const r = this.getBoundingClientRect();
		const st = window.getComputedStyle(this);
		return r.width > 0 && r.height > 0 &&
			st.visibility !== 'hidden' && st.display !== 'none' && st.pointerEvents !== 'none';
	}`
)

type nodeEntry struct {
	node   *cdp.Node
	object runtime.RemoteObjectID
}

// Source is a pager.DocumentSource backed by a Chrome tab.
//
// Node references are handles to live DOM nodes. A handle whose node was
// detached, or whose document was replaced, is stale.
type Source struct {
	ctx         context.Context
	callTimeout time.Duration

	mu     sync.Mutex
	nodes  map[pager.NodeRef]nodeEntry
	nextID int
	px, py float64
}

var _ pager.DocumentSource = (*Source)(nil)

func newSource(tabCtx context.Context, callTimeout time.Duration) *Source {
	if callTimeout <= 0 {
		callTimeout = defaultCallTimeout
	}
	return &Source{
		ctx:         tabCtx,
		callTimeout: callTimeout,
		nodes:       make(map[pager.NodeRef]nodeEntry),
	}
}

// Navigate loads url in the tab and forgets every node reference.
func (s *Source) Navigate(ctx context.Context, url string) error {
	s.mu.Lock()
	s.nodes = make(map[pager.NodeRef]nodeEntry)
	s.mu.Unlock()
	return s.run(ctx, s.callTimeout, "navigate", chromedp.Navigate(url))
}

func (s *Source) Markup(ctx context.Context) (string, error) {
	var markup string
	err := s.run(ctx, s.callTimeout, "read markup", chromedp.OuterHTML("html", &markup, chromedp.ByQuery))
	return markup, err
}

func (s *Source) Capture(ctx context.Context, selector string) (pager.NodeRef, error) {
	var ref pager.NodeRef
	err := s.run(ctx, s.callTimeout, "capture", chromedp.ActionFunc(func(ctx context.Context) error {
		var nodes []*cdp.Node
		if err := chromedp.Nodes(selector, &nodes, chromedp.ByQuery, chromedp.AtLeast(0)).Do(ctx); err != nil {
			return err
		}
		if len(nodes) == 0 {
			return fmt.Errorf("%s: %w", selector, pager.ErrNoNode)
		}
		var err error
		ref, err = s.remember(ctx, nodes[0])
		return err
	}))
	return ref, err
}

func (s *Source) WaitClickable(ctx context.Context, selector string, timeout time.Duration) (pager.NodeRef, error) {
	var ref pager.NodeRef
	err := s.run(ctx, timeout, "wait clickable", chromedp.ActionFunc(func(ctx context.Context) error {
		return poll(ctx, func() (bool, error) {
			var nodes []*cdp.Node
			if err := chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)).Do(ctx); err != nil {
				return false, err
			}
			for _, n := range nodes {
				obj, err := dom.ResolveNode().WithNodeID(n.NodeID).Do(ctx)
				if err != nil || obj == nil {
					continue
				}
				ok, err := callBool(ctx, obj.ObjectID, jsClickable)
				if err != nil || !ok {
					_ = runtime.ReleaseObject(obj.ObjectID).Do(ctx)
					continue
				}
				ref = s.store(n, obj.ObjectID)
				return true, nil
			}
			return false, nil
		})
	}))
	return ref, err
}

func (s *Source) WaitStale(ctx context.Context, ref pager.NodeRef, timeout time.Duration) error {
	entry, err := s.lookup(ref)
	if err != nil {
		return err
	}
	err = s.run(ctx, timeout, "wait stale", chromedp.ActionFunc(func(ctx context.Context) error {
		return poll(ctx, func() (bool, error) {
			connected, err := callBool(ctx, entry.object, jsConnected)
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			return err != nil || !connected, nil
		})
	}))
	if err == nil {
		s.forget(ref)
	}
	return err
}

func (s *Source) WaitPresent(ctx context.Context, selector string, timeout time.Duration) error {
	return s.run(ctx, timeout, "wait present", chromedp.WaitReady(selector, chromedp.ByQuery))
}

func (s *Source) ScrollIntoView(ctx context.Context, ref pager.NodeRef) error {
	entry, err := s.lookup(ref)
	if err != nil {
		return err
	}
	return s.run(ctx, s.callTimeout, "scroll into view", chromedp.ActionFunc(func(ctx context.Context) error {
		_, exc, err := runtime.CallFunctionOn(jsScrollCenter).WithObjectID(entry.object).Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return fmt.Errorf("script exception: %s", exc.Text)
		}
		return nil
	}))
}

func (s *Source) Click(ctx context.Context, ref pager.NodeRef) error {
	entry, err := s.lookup(ref)
	if err != nil {
		return err
	}
	return s.run(ctx, s.callTimeout, "click", chromedp.MouseClickNode(entry.node))
}

func (s *Source) PressKey(ctx context.Context, selector, key string) error {
	if key == pager.KeyPageDown {
		key = kb.PageDown
	}
	if selector == "" || selector == "body" {
		return s.run(ctx, s.callTimeout, "press key", chromedp.KeyEvent(key))
	}
	return s.run(ctx, s.callTimeout, "press key", chromedp.SendKeys(selector, key, chromedp.ByQuery))
}

func (s *Source) MovePointer(ctx context.Context, dx, dy float64) error {
	s.mu.Lock()
	x, y := s.px+dx, s.py+dy
	s.mu.Unlock()

	if err := s.run(ctx, s.callTimeout, "move pointer", chromedp.MouseEvent(input.MouseMoved, x, y)); err != nil {
		return err
	}

	s.mu.Lock()
	s.px, s.py = x, y
	s.mu.Unlock()
	return nil
}

// run executes actions on the tab, bounded by timeout and by ctx.
func (s *Source) run(ctx context.Context, timeout time.Duration, op string, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return s.classify(ctx, op, chromedp.Run(runCtx, actions...))
}

// classify maps a chromedp failure onto the pager's error vocabulary.
func (s *Source) classify(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, pager.ErrNoNode) {
		return err
	}
	if s.ctx.Err() != nil ||
		errors.Is(err, chromedp.ErrChannelClosed) ||
		errors.Is(err, chromedp.ErrInvalidTarget) ||
		errors.Is(err, chromedp.ErrInvalidContext) {
		return fmt.Errorf("%s: %v: %w", op, err, pager.ErrSourceUnavailable)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, pager.ErrTimeout)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (s *Source) remember(ctx context.Context, n *cdp.Node) (pager.NodeRef, error) {
	obj, err := dom.ResolveNode().WithNodeID(n.NodeID).Do(ctx)
	if err != nil {
		return "", err
	}
	if obj == nil || obj.ObjectID == "" {
		return "", fmt.Errorf("node %d: %w", n.NodeID, pager.ErrNoNode)
	}
	return s.store(n, obj.ObjectID), nil
}

func (s *Source) store(n *cdp.Node, object runtime.RemoteObjectID) pager.NodeRef {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	ref := pager.NodeRef("node-" + strconv.Itoa(s.nextID))
	s.nodes[ref] = nodeEntry{node: n, object: object}
	return ref
}

func (s *Source) lookup(ref pager.NodeRef) (nodeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.nodes[ref]
	if !ok {
		return nodeEntry{}, fmt.Errorf("unknown node reference %q: %w", ref, pager.ErrNoNode)
	}
	return entry, nil
}

func (s *Source) forget(ref pager.NodeRef) {
	s.mu.Lock()
	delete(s.nodes, ref)
	s.mu.Unlock()
}

func callBool(ctx context.Context, object runtime.RemoteObjectID, fn string) (bool, error) {
	res, exc, err := runtime.CallFunctionOn(fn).
		WithObjectID(object).
		WithReturnByValue(true).
		Do(ctx)
	if err != nil {
		return false, err
	}
	if exc != nil {
		return false, fmt.Errorf("script exception: %s", exc.Text)
	}
	return res != nil && string(res.Value) == "true", nil
}

// poll calls check until it reports done, fails, or ctx ends.
func poll(ctx context.Context, check func() (bool, error)) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		done, err := check()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
