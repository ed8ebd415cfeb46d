// Package cache implements the tile cache of spec.md §4.8: it keys
// decoded tile state by tile index, retains entries according to a
// strategy, and assembles a composite output image as tiles are
// produced.
package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// Strategy controls which decoded tiles the cache retains.
type Strategy int

const (
	// StrategyNone evicts a tile's entry immediately after Put, for
	// streaming decode where nothing after the current tile needs it.
	StrategyNone Strategy = iota
	// StrategyLastTile retains only the most recently put entry.
	StrategyLastTile
	// StrategyAllTiles retains every entry; required when the composite
	// image is built incrementally across multiple Get calls.
	StrategyAllTiles
)

// Processor is the transient compute state associated with decoding or
// encoding one tile. It is opaque to the cache.
type Processor interface{}

// ComponentPlane is one component's decoded samples for a tile, a row-major
// plane covering X0..X1 x Y0..Y1 of the composite image, ready to be copied
// into it.
type ComponentPlane struct {
	X0, Y0, X1, Y1 int // composite coordinates: canvas position minus the image offset
	Data           []int32
}

// Entry owns a tile's Processor and, optionally, its decoded component
// planes.
type Entry struct {
	Processor Processor
	Planes    []ComponentPlane
}

// Composite is the output image the cache assembles tiles into: one
// int32 plane per component, sized to the image area (the canvas extent
// minus the image offset).
type Composite struct {
	Width, Height int
	Planes        [][]int32 // one per component
}

// NewComposite allocates a Composite with numComponents planes of
// width*height samples each.
func NewComposite(width, height, numComponents int) *Composite {
	c := &Composite{Width: width, Height: height, Planes: make([][]int32, numComponents)}
	for i := range c.Planes {
		c.Planes[i] = make([]int32, width*height)
	}
	return c
}

// put copies one component plane into the composite at the position its
// rectangle names, clipping to the composite bounds.
func (c *Composite) put(compIdx int, plane ComponentPlane) {
	if compIdx >= len(c.Planes) {
		return
	}
	dst := c.Planes[compIdx]
	w := plane.X1 - plane.X0
	for y := plane.Y0; y < plane.Y1; y++ {
		if y < 0 || y >= c.Height {
			continue
		}
		srcRow := (y - plane.Y0) * w
		for x := plane.X0; x < plane.X1; x++ {
			if x < 0 || x >= c.Width {
				continue
			}
			dst[y*c.Width+x] = plane.Data[srcRow+(x-plane.X0)]
		}
	}
}

// Cache maps tile index to Entry and owns the Composite image the
// caller is assembling.
type Cache struct {
	strategy  Strategy
	composite *Composite
	entries   map[uint16]*Entry
	lastTile  *lru.Cache[uint16, *Entry]
}

// New creates a Cache with the given strategy and a Composite of the
// given canvas size and component count.
func New(strategy Strategy, width, height, numComponents int) *Cache {
	c := &Cache{
		strategy:  strategy,
		composite: NewComposite(width, height, numComponents),
		entries:   make(map[uint16]*Entry),
	}
	if strategy == StrategyLastTile {
		l, _ := lru.New[uint16, *Entry](1)
		c.lastTile = l
	}
	return c
}

// SetStrategy changes the retention policy for subsequent Put calls.
func (c *Cache) SetStrategy(s Strategy) {
	c.strategy = s
	if s == StrategyLastTile && c.lastTile == nil {
		l, _ := lru.New[uint16, *Entry](1)
		c.lastTile = l
	}
}

// Composite returns the cache's output image.
func (c *Cache) Composite() *Composite { return c.composite }

// Put records entry for tileIndex, composites its planes into the output
// image, and applies the retention strategy.
func (c *Cache) Put(tileIndex uint16, entry *Entry) {
	for compIdx, plane := range entry.Planes {
		c.composite.put(compIdx, plane)
	}
	switch c.strategy {
	case StrategyNone:
		// Nothing retained; the composite already has what it needs.
	case StrategyLastTile:
		c.lastTile.Purge()
		c.lastTile.Add(tileIndex, entry)
	case StrategyAllTiles:
		c.entries[tileIndex] = entry
	}
}

// Get returns the retained entry for tileIndex, or nil if none is
// retained (either never put, or evicted by the strategy).
func (c *Cache) Get(tileIndex uint16) *Entry {
	switch c.strategy {
	case StrategyLastTile:
		if c.lastTile == nil {
			return nil
		}
		e, ok := c.lastTile.Get(tileIndex)
		if !ok {
			return nil
		}
		return e
	case StrategyAllTiles:
		return c.entries[tileIndex]
	default:
		return nil
	}
}

// Flush drops the retained entry for tileIndex, if any.
func (c *Cache) Flush(tileIndex uint16) {
	if c.lastTile != nil {
		c.lastTile.Remove(tileIndex)
	}
	delete(c.entries, tileIndex)
}

// Close drops every retained entry.
func (c *Cache) Close() {
	if c.lastTile != nil {
		c.lastTile.Purge()
	}
	c.entries = make(map[uint16]*Entry)
}
