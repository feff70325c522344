package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/lo"

	"github.com/ppiankov/wiresync/internal/metrics"
	"github.com/ppiankov/wiresync/internal/types"
)

// cycle holds the per-run visited sets. fetched covers every guid passed to
// Items. queued covers every item guid pushed for saving.
type cycle struct {
	syncer  *Syncer
	source  string
	log     *slog.Logger
	fetched map[string]bool
	queued  map[string]bool
	res     *Result
}

// frame is an item waiting on its remaining asset refs. A started frame
// still on the stack is an ancestor of the frame on top.
type frame struct {
	item    types.Item
	pending []string
	started bool
}

// workStack holds the frames of one fetched batch and its assets. byGUID
// indexes the frames still on the stack.
type workStack struct {
	frames []*frame
	byGUID map[string]*frame
}

func (s *workStack) top() *frame { return s.frames[len(s.frames)-1] }

func (s *workStack) pop() *frame {
	f := s.top()
	s.frames = s.frames[:len(s.frames)-1]
	delete(s.byGUID, f.item.GUID)
	return f
}

// raise moves f to the top of the stack.
func (s *workStack) raise(f *frame) {
	for i, g := range s.frames {
		if g == f {
			s.frames = append(s.frames[:i], s.frames[i+1:]...)
			break
		}
	}
	s.frames = append(s.frames, f)
}

func (c *cycle) run(ctx context.Context) error {
	channels, err := c.syncer.api.Channels(ctx)
	if err != nil {
		return fmt.Errorf("list channels: %w", err)
	}
	c.res.Channels = len(channels)

	for _, channel := range channels {
		ids, err := c.syncer.api.IDs(ctx, channel, c.res.Start, c.res.End)
		if err != nil {
			return fmt.Errorf("list ids for channel %s: %w", channel, err)
		}
		c.res.IDs += len(ids)
		c.log.Debug("listed ids", "channel", channel, "count", len(ids))

		for _, guid := range ids {
			if c.fetched[guid] || c.queued[guid] {
				c.res.Skipped++
				continue
			}
			items, err := c.fetch(ctx, guid)
			if err != nil {
				return err
			}
			if err := c.saveItems(ctx, items); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *cycle) fetch(ctx context.Context, guid string) ([]types.Item, error) {
	c.fetched[guid] = true
	c.res.Fetched++

	items, err := c.syncer.api.Items(ctx, guid)
	if err != nil {
		return nil, fmt.Errorf("fetch item %s: %w", guid, err)
	}
	return items, nil
}

// saveItems stores items last to first. Every item is stored only after the
// items named by its residRefs, recursively. A ref to a sibling from the same
// batch raises that sibling so it is stored first. Only refs to ancestors
// (reference cycles) and to already stored items are skipped. The traversal
// keeps an explicit stack so reference depth is bounded by memory, not the
// call stack.
func (c *cycle) saveItems(ctx context.Context, items []types.Item) error {
	stack := &workStack{byGUID: make(map[string]*frame)}
	c.push(stack, items)

	for len(stack.frames) > 0 {
		top := stack.top()
		top.started = true

		if len(top.pending) > 0 {
			ref := top.pending[0]
			top.pending = top.pending[1:]

			if f, ok := stack.byGUID[ref]; ok {
				if f.started {
					c.res.Skipped++
					continue
				}
				stack.raise(f)
				continue
			}
			if c.fetched[ref] || c.queued[ref] {
				c.res.Skipped++
				continue
			}
			assets, err := c.fetch(ctx, ref)
			if err != nil {
				return fmt.Errorf("resolve assets of %s: %w", top.item.GUID, err)
			}
			c.push(stack, assets)
			continue
		}

		done := stack.pop()
		if err := c.syncer.items.InsertItem(ctx, c.source, done.item); err != nil {
			return &types.StoreError{Op: "insert item " + done.item.GUID, Err: err}
		}
		c.res.Saved++
		metrics.ItemSaved(c.source)
		c.log.Debug("saved item", "guid", done.item.GUID, "version", done.item.Version, "class", done.item.ItemClass)
	}
	return nil
}

// push adds items in response order so the last one is processed first.
// Items already queued this cycle are dropped.
func (c *cycle) push(stack *workStack, items []types.Item) {
	unique := lo.UniqBy(items, func(it types.Item) string { return it.GUID })
	fresh := lo.Filter(unique, func(it types.Item, _ int) bool { return !c.queued[it.GUID] })
	c.res.Skipped += len(items) - len(fresh)

	for _, it := range fresh {
		c.queued[it.GUID] = true
		f := &frame{item: it, pending: it.ResidRefs()}
		stack.frames = append(stack.frames, f)
		stack.byGUID[it.GUID] = f
	}
}
