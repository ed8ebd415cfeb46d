// Package scheduler implements the windowed-decode scheduling of
// spec.md §4.9: given a requested area of interest, it decides which
// tiles a decode can skip outright and, for every tile it can't skip,
// which per-resolution subband window the inverse DWT actually needs to
// reconstruct that area, so a decoder only entropy-decodes the
// code-blocks the caller will read back out.
package scheduler

import "github.com/tilewave/jp2k/internal/geom"

// FilterMargin is the number of extra samples of context a resolution's
// window is grown by on every side before clamping to that resolution's
// bounds. The 9-7 synthesis filter has the longer support of the two this
// package's caller implements; using its margin for 5-3 tiles too keeps
// one formula and only costs a few extra samples of decode.
const FilterMargin = 4

// TileWindow is what a windowed tile-component decode needs to know: the
// requested area clipped to the tile-component's own bounds, and one
// window rectangle per resolution level (index-aligned with
// TileComponent.Resolutions, coarsest first) that a selective code-block
// decode should restrict itself to.
type TileWindow struct {
	// AOI is the caller's requested rectangle, clipped to the
	// tile-component's bounds, in that tile-component's coordinate space.
	AOI geom.Rect

	// Resolutions holds numRes window rectangles, each in its own
	// resolution's coordinate space (the same space Resolution.X0..Y1
	// use), already grown by FilterMargin and clamped to the resolution's
	// bounds.
	Resolutions []geom.Rect
}

// Full reports whether win covers the whole of res (within res's own
// bounds), meaning a windowed decode gains nothing over a whole-resolution
// one for this particular resolution level.
func (w TileWindow) Full(level int, res geom.Rect) bool {
	if level < 0 || level >= len(w.Resolutions) {
		return true
	}
	win := w.Resolutions[level].Intersect(res)
	return win == res
}

// Skip reports whether a tile with bounds tileRect can be skipped entirely
// for a decode restricted to aoi: no entropy decode, no inverse DWT, no
// assembly. decoder.go calls this once per tile as it reads tile-parts off
// the codestream in order — tile-parts must still be read sequentially
// either way (Psot governs where the next SOT lands), so there is no
// batch "which tiles intersect aoi" query to precompute ahead of that scan.
func Skip(tileRect, aoi geom.Rect) bool {
	return tileRect.Intersect(aoi).Empty()
}

// ForTileComponent derives the per-resolution windows a windowed decode of
// one tile-component needs to reconstruct aoi. tcRect and aoi share the
// same tile-component coordinate space (the one TileComponent.X0..Y1 and
// Resolution.X0..Y1 use); numRes is the tile-component's resolution count
// (index numRes-1 is the finest, matching buildResolution's convention).
//
// Resolution numRes-1 gets the clipped AOI itself, grown by FilterMargin.
// Each coarser level starts from the next-finer level's window before its
// margin was added, halved with the lower edges rounded down (FloorDivPow2
// by 1) and the upper edges rounded up (CeilDivPow2 by 1), and is then
// grown by FilterMargin once and clamped to that level's bounds; margins
// do not accumulate from one level to the next.
func ForTileComponent(tcRect, aoi geom.Rect, numRes int) TileWindow {
	clipped := tcRect.Intersect(aoi)
	resolutions := make([]geom.Rect, numRes)

	win := clipped
	for r := numRes - 1; r >= 0; r-- {
		resBounds := geom.ResolutionRect(tcRect, uint32(r), uint32(numRes))
		grown := win.Grow(FilterMargin).Intersect(resBounds)
		resolutions[r] = grown
		win = geom.Rect{
			X0: geom.FloorDivPow2(win.X0, 1),
			Y0: geom.FloorDivPow2(win.Y0, 1),
			X1: geom.CeilDivPow2(win.X1, 1),
			Y1: geom.CeilDivPow2(win.Y1, 1),
		}
	}

	return TileWindow{AOI: clipped, Resolutions: resolutions}
}
