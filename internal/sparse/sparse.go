// Package sparse implements a block-backed, lazily allocated 2-D plane for
// regions of a large logical image, as spec.md §4.3 describes and as
// original_source/.../sparse_array.h specifies. Reads of an unwritten
// region return zero; writes allocate the blocks they touch on first
// touch.
package sparse

import (
	"github.com/tilewave/jp2k/internal/errs"
	"github.com/tilewave/jp2k/internal/geom"
)

// Buffer is a logical W×H plane of int32 samples, tiled into 2^Bx × 2^By
// blocks that are allocated on first touch.
type Buffer struct {
	width, height uint32
	bx, by        uint32 // block exponents
	blockW, blockH uint32
	gridW, gridH  uint32
	blocks        []block
}

type block struct {
	samples []int32
}

// New creates a Buffer of the given logical size with blocks of
// 2^bx × 2^by samples.
func New(width, height, bx, by uint32) *Buffer {
	blockW := uint32(1) << bx
	blockH := uint32(1) << by
	gridW := geom.CeilDivPow2(width, bx)
	gridH := geom.CeilDivPow2(height, by)
	return &Buffer{
		width: width, height: height,
		bx: bx, by: by,
		blockW: blockW, blockH: blockH,
		gridW: gridW, gridH: gridH,
		blocks: make([]block, gridW*gridH),
	}
}

// Width returns the buffer's logical width.
func (b *Buffer) Width() uint32 { return b.width }

// Height returns the buffer's logical height.
func (b *Buffer) Height() uint32 { return b.height }

func (b *Buffer) regionValid(r geom.Rect) bool {
	return r.X0 < r.X1 && r.Y0 < r.Y1 && r.X1 <= b.width && r.Y1 <= b.height
}

// IsRegionValid reports whether r is non-empty and within bounds.
func (b *Buffer) IsRegionValid(r geom.Rect) bool {
	return b.regionValid(r)
}

func (b *Buffer) blockIndex(bxi, byi uint32) uint32 {
	return byi*b.gridW + bxi
}

// Alloc ensures every block intersecting rect is allocated. Idempotent.
func (b *Buffer) Alloc(rect geom.Rect) error {
	if !b.regionValid(rect) {
		return errs.New(errs.InvalidRegion, nil)
	}
	b.allocRegion(rect)
	return nil
}

func (b *Buffer) allocRegion(rect geom.Rect) {
	bx0 := rect.X0 >> b.bx
	by0 := rect.Y0 >> b.by
	bx1 := (rect.X1 - 1) >> b.bx
	by1 := (rect.Y1 - 1) >> b.by
	for by := by0; by <= by1; by++ {
		for bxi := bx0; bxi <= bx1; bxi++ {
			idx := b.blockIndex(bxi, by)
			if b.blocks[idx].samples == nil {
				b.blocks[idx].samples = make([]int32, b.blockW*b.blockH)
			}
		}
	}
}

// Read copies the intersection of rect with each intersecting block into
// dest, using colStride/lineStride (in elements) to address dest. A region
// that is empty or out of bounds fails with errs.InvalidRegion unless
// forgiving is true, in which case it trivially succeeds.
func (b *Buffer) Read(rect geom.Rect, dest []int32, colStride, lineStride int, forgiving bool) error {
	if !b.regionValid(rect) {
		if forgiving {
			return nil
		}
		return errs.New(errs.InvalidRegion, nil)
	}
	b.walk(rect, func(bxi, byi uint32, blk *block, bRect geom.Rect) {
		for y := bRect.Y0; y < bRect.Y1; y++ {
			destRow := int(y-rect.Y0)*lineStride - int(rect.X0)*colStride
			for x := bRect.X0; x < bRect.X1; x++ {
				var v int32
				if blk.samples != nil {
					lx := x - bxi*b.blockW
					ly := y - byi*b.blockH
					v = blk.samples[ly*b.blockW+lx]
				}
				dest[destRow+int(x)*colStride] = v
			}
		}
	})
	return nil
}

// Write copies src into the intersection of rect with each intersecting
// block, allocating missing blocks first. Same stride/forgiving contract
// as Read.
func (b *Buffer) Write(rect geom.Rect, src []int32, colStride, lineStride int, forgiving bool) error {
	if !b.regionValid(rect) {
		if forgiving {
			return nil
		}
		return errs.New(errs.InvalidRegion, nil)
	}
	b.allocRegion(rect)
	b.walk(rect, func(bxi, byi uint32, blk *block, bRect geom.Rect) {
		for y := bRect.Y0; y < bRect.Y1; y++ {
			srcRow := int(y-rect.Y0)*lineStride - int(rect.X0)*colStride
			for x := bRect.X0; x < bRect.X1; x++ {
				lx := x - bxi*b.blockW
				ly := y - byi*b.blockH
				blk.samples[ly*b.blockW+lx] = src[srcRow+int(x)*colStride]
			}
		}
	})
	return nil
}

// walk invokes fn once per block intersecting rect, with bRect the
// intersection of rect and that block's extent in buffer coordinates.
func (b *Buffer) walk(rect geom.Rect, fn func(bxi, byi uint32, blk *block, bRect geom.Rect)) {
	bx0 := rect.X0 >> b.bx
	by0 := rect.Y0 >> b.by
	bx1 := (rect.X1 - 1) >> b.bx
	by1 := (rect.Y1 - 1) >> b.by
	for byi := by0; byi <= by1; byi++ {
		blockRectY0 := byi * b.blockH
		blockRectY1 := blockRectY0 + b.blockH
		for bxi := bx0; bxi <= bx1; bxi++ {
			idx := b.blockIndex(bxi, byi)
			blk := &b.blocks[idx]
			blockRect := geom.Rect{
				X0: bxi * b.blockW, Y0: blockRectY0,
				X1: bxi*b.blockW + b.blockW, Y1: blockRectY1,
			}
			inter := rect.Intersect(blockRect)
			if inter.Empty() {
				continue
			}
			fn(bxi, byi, blk, inter)
		}
	}
}
