package tcd

import (
	"github.com/tilewave/jp2k/internal/geom"
	"github.com/tilewave/jp2k/internal/sparse"
)

// windowBlockExponent sizes a TileComponentBuffer's sparse backing at
// 64x64-sample blocks: coarse enough that a windowed decode's one or two
// touched blocks stay cheap to allocate, fine enough that a narrow AOI
// near a tile edge doesn't pull in a whole tile's worth of blocks.
const windowBlockExponent = 6

// TileComponentBuffer is a decoded tile-component's output-side storage,
// in either of the two modes spec.md §4.5 distinguishes: owning a dense
// plane sized to the whole tile-component (the default, whole-tile
// decode), or attaching to a window of it backed by internal/sparse, so
// only the samples a Config.DecodeArea request actually touches get
// allocated. internal/scheduler decides which mode a given tile-component
// uses; this type just implements both uniformly so the caller (the
// per-tile decode loop in decoder.go) doesn't need to branch on it.
type TileComponentBuffer struct {
	rect   geom.Rect
	dense  []int32
	sparse *sparse.Buffer
}

// NewOwnedTileComponentBuffer allocates a dense plane covering rect, the
// whole-tile-component default.
func NewOwnedTileComponentBuffer(rect geom.Rect) *TileComponentBuffer {
	return &TileComponentBuffer{rect: rect, dense: make([]int32, rect.Width()*rect.Height())}
}

// NewAttachedTileComponentBuffer creates a buffer over rect backed by a
// sparse.Buffer: nothing is allocated until WriteWindow touches it.
func NewAttachedTileComponentBuffer(rect geom.Rect) *TileComponentBuffer {
	return &TileComponentBuffer{
		rect:   rect,
		sparse: sparse.New(rect.Width(), rect.Height(), windowBlockExponent, windowBlockExponent),
	}
}

// Attached reports whether this buffer is windowed (sparse-backed) rather
// than owning a dense plane.
func (b *TileComponentBuffer) Attached() bool { return b.sparse != nil }

// Rect returns the tile-component rectangle this buffer covers.
func (b *TileComponentBuffer) Rect() geom.Rect { return b.rect }

// WriteWindow stores plane (row-major, width win.Width()) at win, given in
// the same coordinate space as Rect(). Out-of-bounds and empty windows are
// silently ignored, matching sparse.Buffer's forgiving-mode contract,
// since a scheduler-computed window can legitimately land outside a
// component whose subsampling shrank it past the AOI.
func (b *TileComponentBuffer) WriteWindow(win geom.Rect, plane []int32) error {
	local := b.toLocal(win)
	w := int(local.X1 - local.X0)
	if b.sparse != nil {
		return b.sparse.Write(local, plane, 1, w, true)
	}
	if w <= 0 || local.Y1 <= local.Y0 {
		return nil
	}
	full := int(b.rect.Width())
	for y := int(local.Y0); y < int(local.Y1); y++ {
		row := y - int(local.Y0)
		copy(b.dense[y*full+int(local.X0):y*full+int(local.X0)+w], plane[row*w:row*w+w])
	}
	return nil
}

// ReadWindow reads win (in Rect()'s coordinate space) into a freshly
// allocated row-major plane, zero outside whatever was previously written.
func (b *TileComponentBuffer) ReadWindow(win geom.Rect) []int32 {
	local := b.toLocal(win)
	w := int(local.X1 - local.X0)
	h := int(local.Y1 - local.Y0)
	out := make([]int32, w*h)
	if w <= 0 || h <= 0 {
		return out
	}
	if b.sparse != nil {
		b.sparse.Read(local, out, 1, w, true)
		return out
	}
	full := int(b.rect.Width())
	for y := 0; y < h; y++ {
		srcY := int(local.Y0) + y
		if srcY < 0 || srcY >= int(b.rect.Height()) {
			continue
		}
		copy(out[y*w:y*w+w], b.dense[srcY*full+int(local.X0):srcY*full+int(local.X0)+w])
	}
	return out
}

func (b *TileComponentBuffer) toLocal(r geom.Rect) geom.Rect {
	return geom.Rect{
		X0: geom.SatSub(r.X0, b.rect.X0), Y0: geom.SatSub(r.Y0, b.rect.Y0),
		X1: geom.SatSub(r.X1, b.rect.X0), Y1: geom.SatSub(r.Y1, b.rect.Y0),
	}
}
