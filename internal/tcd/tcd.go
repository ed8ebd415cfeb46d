// Package tcd implements the Tile Coder/Decoder for JPEG 2000.
//
// The TCD orchestrates the encoding and decoding of individual tiles,
// including:
// - Wavelet transform (DWT)
// - Quantization
// - Code-block entropy coding (T1)
// - Packet assembly (T2)
package tcd

import (
	"github.com/tilewave/jp2k/internal/bio"
	"github.com/tilewave/jp2k/internal/codestream"
	"github.com/tilewave/jp2k/internal/dwt"
	"github.com/tilewave/jp2k/internal/entropy"
	"github.com/tilewave/jp2k/internal/geom"
)

// Tile represents a single tile in the image.
type Tile struct {
	// Tile index
	Index int

	// Tile bounds in image coordinates
	X0, Y0, X1, Y1 int

	// Components
	Components []*TileComponent
}

// TileComponent represents a single component within a tile.
type TileComponent struct {
	// Component index
	Index int

	// Component bounds (may differ due to subsampling)
	X0, Y0, X1, Y1 int

	// Resolution levels
	Resolutions []*Resolution

	// Coefficient data
	Data []int32

	// Floating point data for 9-7 transform
	DataFloat []float64
}

// Resolution represents a resolution level within a tile-component.
type Resolution struct {
	// Resolution level (0 = finest)
	Level int

	// Bounds at this resolution
	X0, Y0, X1, Y1 int

	// Number of bands (1 for LL, 3 for others)
	NumBands int

	// Bands at this resolution
	Bands []*Band

	// Precincts
	Precincts []*Precinct

	// Precinct grid dimensions
	PrecinctsX, PrecinctsY int
}

// Band represents a subband within a resolution level.
type Band struct {
	// Band type (LL, HL, LH, HH)
	Type int

	// Band bounds
	X0, Y0, X1, Y1 int

	// Quantization step size
	StepSize float64

	// Code-blocks
	CodeBlocks []*CodeBlock

	// Code-block grid dimensions
	CodeBlocksX, CodeBlocksY int
}

// Precinct represents a precinct for packet organization.
type Precinct struct {
	// Precinct index
	Index int

	// Bounds
	X0, Y0, X1, Y1 int

	// Code-blocks in this precinct, per band
	CodeBlocks [][]*CodeBlock

	// Code-block grid dimensions, per band (parallel to CodeBlocks)
	CodeBlocksX, CodeBlocksY []int

	// Inclusion and zero-bit-plane tag trees, one per band
	InclusionTrees []*TagTree
	IMSBTrees      []*TagTree
}

// CodeBlock represents a code-block for entropy coding.
type CodeBlock struct {
	// Code-block index
	Index int

	// Bounds
	X0, Y0, X1, Y1 int

	// Encoded data
	Data []byte

	// Coding passes
	Passes []CodingPass

	// Number of zero bit-planes
	ZeroBitPlanes int

	// Total number of bit-planes
	TotalBitPlanes int

	// Layer at which this code-block first became included, or -1 if it
	// has not been included in any layer yet.
	IncludedInLayers int

	// Running length-increment counter (spec.md §4.7); 0 means not yet
	// initialized. Set to 3 on first inclusion.
	Lblock int

	// Decoded coefficient data
	Coefficients []int32
}

// CodingPass represents a single coding pass.
type CodingPass struct {
	// Pass type (significance, refinement, cleanup)
	Type int

	// Length in bytes
	Length int

	// Cumulative length
	CumulativeLength int

	// Rate-distortion slope
	Slope float64

	// Terminated flag
	Terminated bool
}

// Pass type constants.
const (
	PassSignificance = iota
	PassRefinement
	PassCleanup
)

// TagTree implements the lazy tag tree of spec.md §4.7: a quad hierarchy
// over a width x height leaf grid where each node holds the minimum value
// set at or below it, plus the low/known coding state that lets inclusion
// and zero-bit-plane information be coded incrementally across layers.
type TagTree struct {
	width, height int
	levels        int
	levelWidths   []int
	levelHeights  []int
	nodes         [][]tagNode
}

type tagNode struct {
	value int
	low   int
	known bool
}

const tagTreeMaxValue = int(^uint(0) >> 1)

// NewTagTree creates a tag tree over a width x height leaf grid.
func NewTagTree(width, height int) *TagTree {
	if width <= 0 {
		width = 1
	}
	if height <= 0 {
		height = 1
	}
	t := &TagTree{width: width, height: height}

	w, h := width, height
	for {
		t.levels++
		t.levelWidths = append(t.levelWidths, w)
		t.levelHeights = append(t.levelHeights, h)
		if w == 1 && h == 1 {
			break
		}
		w = (w + 1) / 2
		h = (h + 1) / 2
	}

	t.nodes = make([][]tagNode, t.levels)
	for level := 0; level < t.levels; level++ {
		n := t.levelWidths[level] * t.levelHeights[level]
		t.nodes[level] = make([]tagNode, n)
		for i := range t.nodes[level] {
			t.nodes[level][i].value = tagTreeMaxValue
		}
	}
	return t
}

// SetValue records value at leaf (x,y), propagating the running minimum up
// to the root, per the standard tag-tree construction rule.
func (t *TagTree) SetValue(x, y, value int) {
	lx, ly := x, y
	for level := 0; level < t.levels; level++ {
		idx := ly*t.levelWidths[level] + lx
		if t.nodes[level][idx].value <= value {
			break
		}
		t.nodes[level][idx].value = value
		lx /= 2
		ly /= 2
	}
}

// Reset clears the low/known coding state for a new encode or decode pass,
// leaving the values set by SetValue untouched.
func (t *TagTree) Reset() {
	for level := range t.nodes {
		for i := range t.nodes[level] {
			t.nodes[level][i].low = 0
			t.nodes[level][i].known = false
		}
	}
}

type tagTreeNodeRef struct{ level, idx int }

func (t *TagTree) pathToRoot(x, y int) []tagTreeNodeRef {
	path := make([]tagTreeNodeRef, 0, t.levels)
	lx, ly := x, y
	for level := 0; level < t.levels; level++ {
		path = append(path, tagTreeNodeRef{level, ly*t.levelWidths[level] + lx})
		lx /= 2
		ly /= 2
	}
	return path
}

// Encode codes whether leaf (x,y)'s value is below threshold, writing only
// the bits not already implied by state coded for earlier leaves.
func (t *TagTree) Encode(w *bio.Writer, x, y, threshold int) error {
	path := t.pathToRoot(x, y)
	low := 0
	for i := len(path) - 1; i >= 0; i-- {
		n := &t.nodes[path[i].level][path[i].idx]
		if low > n.low {
			n.low = low
		} else {
			low = n.low
		}
		for low < threshold {
			if low >= n.value {
				if !n.known {
					if err := w.WriteBit(1); err != nil {
						return err
					}
					n.known = true
				}
				break
			}
			if err := w.WriteBit(0); err != nil {
				return err
			}
			low++
		}
		n.low = low
	}
	return nil
}

// Decode is the decoder-side counterpart of Encode: it reads exactly the
// bits Encode wrote and reports whether the leaf's value is below
// threshold.
func (t *TagTree) Decode(r *bio.Reader, x, y, threshold int) (bool, error) {
	path := t.pathToRoot(x, y)
	low := 0
	for i := len(path) - 1; i >= 0; i-- {
		n := &t.nodes[path[i].level][path[i].idx]
		if low > n.low {
			n.low = low
		} else {
			low = n.low
		}
		for low < threshold && low < n.value {
			bit, err := r.ReadBit()
			if err != nil {
				return false, err
			}
			if bit != 0 {
				n.value = low
			} else {
				low++
			}
		}
		n.low = low
	}
	leaf := &t.nodes[0][y*t.levelWidths[0]+x]
	return leaf.value < threshold, nil
}

// TileDecoder decodes a single tile.
type TileDecoder struct {
	header     *codestream.Header
	tileHeader *codestream.TilePartHeader
	tile       *Tile
	htj2k      bool // True if using High-Throughput mode
}

// NewTileDecoder creates a new tile decoder.
func NewTileDecoder(header *codestream.Header) *TileDecoder {
	return &TileDecoder{
		header: header,
		htj2k:  header.IsHTJ2K(),
	}
}

// SetHTJ2K sets whether this decoder uses High-Throughput mode.
func (d *TileDecoder) SetHTJ2K(htj2k bool) {
	d.htj2k = htj2k
}

// Tile returns the current tile being decoded.
func (d *TileDecoder) Tile() *Tile {
	return d.tile
}

// InitTile initializes a tile for decoding.
func (d *TileDecoder) InitTile(tileIndex int) {
	h := d.header

	// Calculate tile bounds
	tileX := tileIndex % int(h.NumTilesX)
	tileY := tileIndex / int(h.NumTilesX)

	x0 := max(int(h.TileXOffset)+tileX*int(h.TileWidth), int(h.ImageXOffset))
	y0 := max(int(h.TileYOffset)+tileY*int(h.TileHeight), int(h.ImageYOffset))
	x1 := min(int(h.TileXOffset)+(tileX+1)*int(h.TileWidth), int(h.ImageWidth))
	y1 := min(int(h.TileYOffset)+(tileY+1)*int(h.TileHeight), int(h.ImageHeight))

	d.tile = &Tile{
		Index:      tileIndex,
		X0:         x0,
		Y0:         y0,
		X1:         x1,
		Y1:         y1,
		Components: make([]*TileComponent, h.NumComponents),
	}

	// Initialize components
	for c := 0; c < int(h.NumComponents); c++ {
		comp := h.ComponentInfo[c]

		// Apply subsampling
		cx0 := ceilDiv(x0, int(comp.SubsamplingX))
		cy0 := ceilDiv(y0, int(comp.SubsamplingY))
		cx1 := ceilDiv(x1, int(comp.SubsamplingX))
		cy1 := ceilDiv(y1, int(comp.SubsamplingY))

		tc := &TileComponent{
			Index: c,
			X0:    cx0,
			Y0:    cy0,
			X1:    cx1,
			Y1:    cy1,
		}

		// Allocate data
		width := cx1 - cx0
		height := cy1 - cy0
		tc.Data = make([]int32, width*height)

		// Initialize resolutions
		numRes := int(h.CodingStyle.NumDecompositions) + 1
		tc.Resolutions = make([]*Resolution, numRes)

		for r := 0; r < numRes; r++ {
			tc.Resolutions[r] = buildResolution(h.CodingStyle, tc, r, numRes)
		}

		d.tile.Components[c] = tc
	}
}

// tcRect converts a tile-component's bounds to the geom.Rect form the
// subband-rectangle equations operate on.
func tcRect(tc *TileComponent) geom.Rect {
	return geom.Rect{X0: uint32(tc.X0), Y0: uint32(tc.Y0), X1: uint32(tc.X1), Y1: uint32(tc.Y1)}
}

// buildResolution constructs one resolution level of a tile-component,
// including its bands, code-block grids, and nominal precinct. Band
// rectangles follow ISO/IEC 15444-1 equation B-15 (internal/geom), not a
// naive halving of the resolution rectangle: a resolution's LL band is the
// rectangle of resolution r-1, and its HL/LH/HH bands are SubbandRect at
// decomposition level nb = numRes-r, which is the same level used to reach
// resolution r-1. This is what keeps the four bands tiling resolution r
// exactly, per spec.md's P2 invariant.
func buildResolution(h codestream.CodingStyleDefault, tc *TileComponent, resLevel, numRes int) *Resolution {
	rc := geom.ResolutionRect(tcRect(tc), uint32(resLevel), uint32(numRes))

	res := &Resolution{
		Level: resLevel,
		X0:    int(rc.X0),
		Y0:    int(rc.Y0),
		X1:    int(rc.X1),
		Y1:    int(rc.Y1),
	}

	if resLevel == 0 {
		res.NumBands = 1
		res.Bands = []*Band{initBand(h, tcRect(tc), rc, entropy.BandLL, 0)}
	} else {
		nb := uint32(numRes - resLevel)
		res.NumBands = 3
		res.Bands = []*Band{
			initBand(h, tcRect(tc), rc, entropy.BandHL, nb),
			initBand(h, tcRect(tc), rc, entropy.BandLH, nb),
			initBand(h, tcRect(tc), rc, entropy.BandHH, nb),
		}
	}

	initPrecincts(res)

	return res
}

// initPrecincts builds the single precinct spanning the whole resolution,
// the nominal case when no PRCW/PRCH override is signaled (spec.md §4.4).
// Each band contributes its own code-block grid and tag trees, since
// inclusion and zero-bit-plane state is tracked per subband.
func initPrecincts(res *Resolution) {
	p := &Precinct{
		X0: res.X0, Y0: res.Y0, X1: res.X1, Y1: res.Y1,
		CodeBlocks:     make([][]*CodeBlock, len(res.Bands)),
		CodeBlocksX:    make([]int, len(res.Bands)),
		CodeBlocksY:    make([]int, len(res.Bands)),
		InclusionTrees: make([]*TagTree, len(res.Bands)),
		IMSBTrees:      make([]*TagTree, len(res.Bands)),
	}
	for i, band := range res.Bands {
		p.CodeBlocks[i] = band.CodeBlocks
		p.CodeBlocksX[i] = band.CodeBlocksX
		p.CodeBlocksY[i] = band.CodeBlocksY
		p.InclusionTrees[i] = NewTagTree(band.CodeBlocksX, band.CodeBlocksY)
		p.IMSBTrees[i] = NewTagTree(band.CodeBlocksX, band.CodeBlocksY)
	}
	res.Precincts = []*Precinct{p}
	res.PrecinctsX, res.PrecinctsY = 1, 1
}

// initBand initializes a band. rc is the enclosing resolution's rectangle
// (used only to size the code-block grid's caller-visible X0/Y0 origin);
// tcR and nb feed the actual equation B-15 rectangle computation, with
// nb==0 meaning the LL band of resolution 0 (which equals tcR exactly).
func initBand(h codestream.CodingStyleDefault, tcR, rc geom.Rect, bandType int, nb uint32) *Band {
	band := &Band{
		Type: bandType,
	}

	var orient geom.Orientation
	switch bandType {
	case entropy.BandLL:
		orient = geom.OrientLL
	case entropy.BandHL:
		orient = geom.OrientHL
	case entropy.BandLH:
		orient = geom.OrientLH
	case entropy.BandHH:
		orient = geom.OrientHH
	}
	br := geom.SubbandRect(tcR, nb, orient)
	band.X0, band.Y0, band.X1, band.Y1 = int(br.X0), int(br.Y0), int(br.X1), int(br.Y1)

	// Calculate code-block grid
	cbWidth := 1 << (h.CodeBlockWidthExp + 2)
	cbHeight := 1 << (h.CodeBlockHeightExp + 2)

	band.CodeBlocksX = ceilDiv(band.X1-band.X0, cbWidth)
	band.CodeBlocksY = ceilDiv(band.Y1-band.Y0, cbHeight)

	// Initialize code-blocks
	numCB := band.CodeBlocksX * band.CodeBlocksY
	band.CodeBlocks = make([]*CodeBlock, numCB)

	for i := 0; i < numCB; i++ {
		cbX := i % band.CodeBlocksX
		cbY := i / band.CodeBlocksX

		cb := &CodeBlock{
			Index:             i,
			X0:                band.X0 + cbX*cbWidth,
			Y0:                band.Y0 + cbY*cbHeight,
			X1:                min(band.X0+(cbX+1)*cbWidth, band.X1),
			Y1:                min(band.Y0+(cbY+1)*cbHeight, band.Y1),
			IncludedInLayers:  -1,
		}
		band.CodeBlocks[i] = cb
	}

	return band
}

// DecodeCodeBlock decodes a single code-block.
func (d *TileDecoder) DecodeCodeBlock(cb *CodeBlock, bandType int) error {
	if len(cb.Data) == 0 {
		return nil
	}

	width := cb.X1 - cb.X0
	height := cb.Y1 - cb.Y0

	if d.htj2k {
		// Use HTJ2K decoder
		htDec := entropy.GetHTDecoder(width, height)
		cb.Coefficients = htDec.Decode(cb.Data, cb.TotalBitPlanes, bandType)
		entropy.PutHTDecoder(htDec)
	} else {
		// Use standard EBCOT decoder
		t1 := entropy.NewT1(width, height)
		cb.Coefficients = t1.Decode(cb.Data, cb.TotalBitPlanes, bandType)
	}

	return nil
}

// ApplyInverseDWT applies the inverse wavelet transform.
func (d *TileDecoder) ApplyInverseDWT(tc *TileComponent) {
	h := d.header.CodingStyle
	numLevels := int(h.NumDecompositions)

	width := tc.X1 - tc.X0
	height := tc.Y1 - tc.Y0

	if h.WaveletTransform == 1 {
		// 5-3 reversible
		dwt.ReconstructMultiLevel53(tc.Data, width, height, numLevels)
	} else {
		// 9-7 irreversible
		tc.DataFloat = make([]float64, len(tc.Data))
		for i, v := range tc.Data {
			tc.DataFloat[i] = float64(v)
		}
		dwt.ReconstructMultiLevel97(tc.DataFloat, width, height, numLevels)
		for i, v := range tc.DataFloat {
			tc.Data[i] = int32(v + 0.5)
		}
	}
}

// TileEncoder encodes a single tile.
type TileEncoder struct {
	header *codestream.Header
	tile   *Tile
	htj2k  bool // True if using High-Throughput mode
}

// NewTileEncoder creates a new tile encoder.
func NewTileEncoder(header *codestream.Header) *TileEncoder {
	return &TileEncoder{
		header: header,
		htj2k:  header.IsHTJ2K(),
	}
}

// SetHTJ2K sets whether this encoder uses High-Throughput mode.
func (e *TileEncoder) SetHTJ2K(htj2k bool) {
	e.htj2k = htj2k
}

// Tile returns the current tile being encoded.
func (e *TileEncoder) Tile() *Tile {
	return e.tile
}

// InitTile initializes a tile for encoding.
func (e *TileEncoder) InitTile(tileIndex int, componentData [][]int32) {
	h := e.header

	// Calculate tile bounds (same as decoder)
	tileX := tileIndex % int(h.NumTilesX)
	tileY := tileIndex / int(h.NumTilesX)

	x0 := max(int(h.TileXOffset)+tileX*int(h.TileWidth), int(h.ImageXOffset))
	y0 := max(int(h.TileYOffset)+tileY*int(h.TileHeight), int(h.ImageYOffset))
	x1 := min(int(h.TileXOffset)+(tileX+1)*int(h.TileWidth), int(h.ImageWidth))
	y1 := min(int(h.TileYOffset)+(tileY+1)*int(h.TileHeight), int(h.ImageHeight))

	e.tile = &Tile{
		Index:      tileIndex,
		X0:         x0,
		Y0:         y0,
		X1:         x1,
		Y1:         y1,
		Components: make([]*TileComponent, h.NumComponents),
	}

	// Initialize components with provided data
	for c := 0; c < int(h.NumComponents); c++ {
		comp := h.ComponentInfo[c]

		cx0 := ceilDiv(x0, int(comp.SubsamplingX))
		cy0 := ceilDiv(y0, int(comp.SubsamplingY))
		cx1 := ceilDiv(x1, int(comp.SubsamplingX))
		cy1 := ceilDiv(y1, int(comp.SubsamplingY))

		tc := &TileComponent{
			Index: c,
			X0:    cx0,
			Y0:    cy0,
			X1:    cx1,
			Y1:    cy1,
			Data:  componentData[c],
		}

		// Initialize resolutions (same layout the decoder builds)
		numRes := int(h.CodingStyle.NumDecompositions) + 1
		tc.Resolutions = make([]*Resolution, numRes)
		for r := 0; r < numRes; r++ {
			tc.Resolutions[r] = buildResolution(h.CodingStyle, tc, r, numRes)
		}

		e.tile.Components[c] = tc
	}
}

// ApplyForwardDWT applies the forward wavelet transform.
func (e *TileEncoder) ApplyForwardDWT(tc *TileComponent) {
	h := e.header.CodingStyle
	numLevels := int(h.NumDecompositions)

	width := tc.X1 - tc.X0
	height := tc.Y1 - tc.Y0

	if h.WaveletTransform == 1 {
		// 5-3 reversible
		dwt.DecomposeMultiLevel53(tc.Data, width, height, numLevels)
	} else {
		// 9-7 irreversible
		tc.DataFloat = make([]float64, len(tc.Data))
		for i, v := range tc.Data {
			tc.DataFloat[i] = float64(v)
		}
		dwt.DecomposeMultiLevel97(tc.DataFloat, width, height, numLevels)
		// Quantize back to integers
		for i, v := range tc.DataFloat {
			if v >= 0 {
				tc.Data[i] = int32(v + 0.5)
			} else {
				tc.Data[i] = int32(v - 0.5)
			}
		}
	}
}

// EncodeCodeBlock encodes a single code-block.
func (e *TileEncoder) EncodeCodeBlock(cb *CodeBlock, data []int32, bandType int) {
	width := cb.X1 - cb.X0
	height := cb.Y1 - cb.Y0

	if e.htj2k {
		// Use HTJ2K encoder
		htEnc := entropy.GetHTEncoder(width, height)
		htEnc.SetData(data)
		cb.Data = htEnc.Encode(bandType)
		entropy.PutHTEncoder(htEnc)
	} else {
		// Use standard EBCOT encoder
		t1 := entropy.NewT1(width, height)
		t1.SetData(data)
		cb.Data = t1.Encode(bandType)
	}
}

// bandIndex returns a band's position in the SPqcd/SPqcc step-size table
// (ISO/IEC 15444-1 Table A.28): index 0 is resolution 0's LL band; for
// resolution r>=1 the HL/LH/HH triple occupies 3*(r-1)+1, +2, +3.
func bandIndex(resLevel, bandType int) int {
	if resLevel == 0 {
		return 0
	}
	var offset int
	switch bandType {
	case entropy.BandHL:
		offset = 0
	case entropy.BandLH:
		offset = 1
	case entropy.BandHH:
		offset = 2
	}
	return 3*(resLevel-1) + 1 + offset
}

// quantExponentStep returns the (step size, magnitude exponent) for one band
// given a quantization style and its step-size table. Style 0 (none, used
// with the reversible transform) and style 2 (scalar expounded) carry one
// StepSize entry per band in bandIndex order. Style 1 (scalar derived)
// transmits only the resolution-0 LL entry and derives the rest by
// subtracting the band's decomposition level from the base exponent, per
// spec.md's Annex E.1 simplification noted in DESIGN.md.
func quantExponentStep(style uint8, steps []StepSizeTable, resLevel, bandType, numRes int) (stepSize float64, exponent int) {
	if len(steps) == 0 {
		return 1.0, 0
	}
	switch style & 0x1F {
	case 1:
		base := steps[0]
		level := numRes - 1 - resLevel
		exponent = int(base.Exponent) - level
		derived := StepSizeTable{Mantissa: base.Mantissa, Exponent: uint8(exponent)}
		return derived.Value(), exponent
	default:
		idx := bandIndex(resLevel, bandType)
		if idx >= len(steps) {
			idx = len(steps) - 1
		}
		s := steps[idx]
		return s.Value(), int(s.Exponent)
	}
}

// StepSizeTable is a type alias so quantExponentStep can accept either the
// main QCD table or a per-component QCC override without duplicating logic.
type StepSizeTable = codestream.StepSize

// bandQuant resolves the step size, magnitude exponent, and guard-bit count
// that apply to one band of one component, honoring a QCC override when
// present and falling back to the main QCD marker otherwise.
func bandQuant(h *codestream.Header, compIdx, resLevel, bandType, numRes int) (stepSize float64, exponent, guardBits int) {
	if qc, ok := h.ComponentQuantization[uint16(compIdx)]; ok {
		stepSize, exponent = quantExponentStep(qc.QuantizationStyle, qc.StepSizes, resLevel, bandType, numRes)
		return stepSize, exponent, int(qc.NumGuardBits >> 5)
	}
	q := h.Quantization
	stepSize, exponent = quantExponentStep(q.QuantizationStyle, q.StepSizes, resLevel, bandType, numRes)
	return stepSize, exponent, q.GuardBits()
}

// codeBlockBitPlanes returns the number of coded bit-planes for a
// code-block: the magnitude bit depth implied by guard bits and the band's
// quantization exponent, minus the zero bit-planes signaled by the packet
// header's inclusion/IMSB tag trees (spec.md §4.7).
func codeBlockBitPlanes(guardBits, exponent, zeroBitPlanes int) int {
	mb := guardBits + exponent - 1
	n := mb - zeroBitPlanes
	if n < 0 {
		n = 0
	}
	return n
}

// gatherBand collects a band's code-block coefficients into one
// contiguous, row-major buffer sized to the band's own rectangle.
func gatherBand(band *Band) []int32 {
	w := band.X1 - band.X0
	h := band.Y1 - band.Y0
	out := make([]int32, w*h)
	for _, cb := range band.CodeBlocks {
		cw := cb.X1 - cb.X0
		if len(cb.Coefficients) == 0 {
			continue
		}
		for y := cb.Y0; y < cb.Y1; y++ {
			srcRow := cb.Coefficients[(y-cb.Y0)*cw : (y-cb.Y0)*cw+cw]
			copy(out[(y-band.Y0)*w+(cb.X0-band.X0):(y-band.Y0)*w+(cb.X0-band.X0)+cw], srcRow)
		}
	}
	return out
}

// scatterBand splits a band-sized coefficient buffer back into each
// code-block's own Coefficients slice, the encoder-side counterpart of
// gatherBand.
func scatterBand(band *Band, plane []int32) {
	w := band.X1 - band.X0
	for _, cb := range band.CodeBlocks {
		cw := cb.X1 - cb.X0
		ch := cb.Y1 - cb.Y0
		cb.Coefficients = make([]int32, cw*ch)
		for y := cb.Y0; y < cb.Y1; y++ {
			srcRow := plane[(y-band.Y0)*w+(cb.X0-band.X0) : (y-band.Y0)*w+(cb.X0-band.X0)+cw]
			copy(cb.Coefficients[(y-cb.Y0)*cw:(y-cb.Y0)*cw+cw], srcRow)
		}
	}
}

// dequantizeBand converts a band's integer coefficients to floating point
// sample values using its scalar step size. The reversible transform uses
// step size 1 (no scalar quantization), so it is normally called only for
// the irreversible 9-7 path.
func dequantizeBand(coef []int32, stepSize float64) []float64 {
	out := make([]float64, len(coef))
	for i, v := range coef {
		out[i] = float64(v) * stepSize
	}
	return out
}

// quantizeBand is dequantizeBand's forward counterpart.
func quantizeBand(data []float64, stepSize float64) []int32 {
	out := make([]int32, len(data))
	for i, v := range data {
		q := v / stepSize
		if q >= 0 {
			out[i] = int32(q + 0.5)
		} else {
			out[i] = int32(q - 0.5)
		}
	}
	return out
}

// AssembleTileComponent reconstructs a tile-component's samples from its
// code-blocks' decoded coefficients: each resolution's bands are gathered,
// dequantized (irreversible transform only), merged into that resolution's
// interleaved plane, and inverse-lifted, working from resolution 0 (the
// coarsest) up to populate tc.Data with the finest resolution's samples.
// This replaces directly calling ApplyInverseDWT on an unpopulated tc.Data.
func (d *TileDecoder) AssembleTileComponent(tc *TileComponent, compIdx int) {
	h := d.header
	reversible := h.CodingStyle.IsReversible()
	if cs, ok := h.ComponentCodingStyles[uint16(compIdx)]; ok {
		reversible = cs.WaveletTransform == 1
	}
	numRes := len(tc.Resolutions)

	res0 := tc.Resolutions[0]
	ll := res0.Bands[0]

	if reversible {
		plane := gatherBand(ll)
		llW, llH := ll.X1-ll.X0, ll.Y1-ll.Y0

		for r := 1; r < numRes; r++ {
			res := tc.Resolutions[r]
			hl, lh, hh := res.Bands[0], res.Bands[1], res.Bands[2]
			hlData := gatherBand(hl)
			lhData := gatherBand(lh)
			hhData := gatherBand(hh)
			w := res.X1 - res.X0
			hgt := res.Y1 - res.Y0
			plane = dwt.MergeSubbands53(w, hgt, plane, llW, llH,
				hlData, hl.X1-hl.X0, hl.Y1-hl.Y0,
				lhData, lh.X1-lh.X0, lh.Y1-lh.Y0,
				hhData, hh.X1-hh.X0, hh.Y1-hh.Y0)
			llW, llH = w, hgt
		}
		copy(tc.Data, plane)
		return
	}

	stepLL, _, guardLL := bandQuant(h, compIdx, 0, entropy.BandLL, numRes)
	plane := dequantizeBand(gatherBand(ll), stepLL)
	_ = guardLL
	llW, llH := ll.X1-ll.X0, ll.Y1-ll.Y0

	for r := 1; r < numRes; r++ {
		res := tc.Resolutions[r]
		hl, lh, hh := res.Bands[0], res.Bands[1], res.Bands[2]
		stepHL, _, _ := bandQuant(h, compIdx, r, entropy.BandHL, numRes)
		stepLH, _, _ := bandQuant(h, compIdx, r, entropy.BandLH, numRes)
		stepHH, _, _ := bandQuant(h, compIdx, r, entropy.BandHH, numRes)
		hlData := dequantizeBand(gatherBand(hl), stepHL)
		lhData := dequantizeBand(gatherBand(lh), stepLH)
		hhData := dequantizeBand(gatherBand(hh), stepHH)
		w := res.X1 - res.X0
		hgt := res.Y1 - res.Y0
		plane = dwt.MergeSubbands97(w, hgt, plane, llW, llH,
			hlData, hl.X1-hl.X0, hl.Y1-hl.Y0,
			lhData, lh.X1-lh.X0, lh.Y1-lh.Y0,
			hhData, hh.X1-hh.X0, hh.Y1-hh.Y0)
		llW, llH = w, hgt
	}

	tc.DataFloat = plane
	tc.Data = make([]int32, len(plane))
	for i, v := range plane {
		tc.Data[i] = int32(v + 0.5)
	}
}

// DecodeAllCodeBlocks runs entropy decoding for every code-block of tc that
// a packet decode marked included, computing each block's coded bit-plane
// count from its band's quantization exponent and the zero-bit-planes value
// the packet header's IMSB tag tree carried. Call this once all of a
// tile-component's packets have been decoded, before AssembleTileComponent.
func (d *TileDecoder) DecodeAllCodeBlocks(tc *TileComponent, compIdx int) error {
	h := d.header
	numRes := len(tc.Resolutions)
	for r, res := range tc.Resolutions {
		for _, band := range res.Bands {
			_, exponent, guardBits := bandQuant(h, compIdx, r, band.Type, numRes)
			for _, cb := range band.CodeBlocks {
				if cb.IncludedInLayers < 0 {
					continue
				}
				cb.TotalBitPlanes = codeBlockBitPlanes(guardBits, exponent, cb.ZeroBitPlanes)
				if err := d.DecodeCodeBlock(cb, band.Type); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// DecodeAllCodeBlocksWindowed is DecodeAllCodeBlocks restricted to the
// code-blocks a windowed decode actually needs: windows holds, per
// resolution index, the rectangle (in that resolution's own band
// coordinate space) internal/scheduler computed from a Config.DecodeArea
// request. A resolution absent from windows decodes in full. A code-block
// outside its resolution's window is left with a nil Coefficients slice;
// gatherBand already treats that as all-zero, which is correct here since
// nothing will ever read that part of the reconstructed plane back out.
func (d *TileDecoder) DecodeAllCodeBlocksWindowed(tc *TileComponent, compIdx int, windows map[int]geom.Rect) error {
	h := d.header
	numRes := len(tc.Resolutions)
	for r, res := range tc.Resolutions {
		win, restricted := windows[r]
		for _, band := range res.Bands {
			_, exponent, guardBits := bandQuant(h, compIdx, r, band.Type, numRes)
			for _, cb := range band.CodeBlocks {
				if cb.IncludedInLayers < 0 {
					continue
				}
				if restricted && !codeBlockIntersects(cb, win) {
					continue
				}
				cb.TotalBitPlanes = codeBlockBitPlanes(guardBits, exponent, cb.ZeroBitPlanes)
				if err := d.DecodeCodeBlock(cb, band.Type); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// codeBlockIntersects reports whether cb's bounds overlap window.
func codeBlockIntersects(cb *CodeBlock, window geom.Rect) bool {
	return cb.X0 < int(window.X1) && cb.X1 > int(window.X0) &&
		cb.Y0 < int(window.Y1) && cb.Y1 > int(window.Y0)
}

// EncodeAllCodeBlocks entropy-encodes every code-block of tc once
// DecomposeTileComponent has populated each one's Coefficients, deriving
// ZeroBitPlanes from the actual coefficient magnitudes and marking every
// block included starting at layer 0 (this encoder emits a single quality
// layer; see DESIGN.md).
func (e *TileEncoder) EncodeAllCodeBlocks(tc *TileComponent, compIdx int) {
	h := e.header
	numRes := len(tc.Resolutions)
	for r, res := range tc.Resolutions {
		for _, band := range res.Bands {
			_, exponent, guardBits := bandQuant(h, compIdx, r, band.Type, numRes)
			mb := guardBits + exponent - 1
			for _, cb := range band.CodeBlocks {
				e.EncodeCodeBlock(cb, cb.Coefficients, band.Type)

				var maxVal int32
				for _, v := range cb.Coefficients {
					av := v
					if av < 0 {
						av = -av
					}
					if av > maxVal {
						maxVal = av
					}
				}
				bitsNeeded := 0
				for (int32(1) << uint(bitsNeeded)) <= maxVal {
					bitsNeeded++
				}
				zero := mb - bitsNeeded
				if zero < 0 {
					zero = 0
				}
				cb.ZeroBitPlanes = zero
				cb.IncludedInLayers = 0
			}
		}
	}
}

// DecomposeTileComponent is AssembleTileComponent's forward counterpart: it
// forward-lifts tc.Data one level at a time, splitting each level's plane
// into its LL carry-forward and three detail subbands, quantizing the
// detail (and, at resolution 0, the LL) bands, and scattering the results
// into each band's code-blocks ready for EncodeCodeBlock.
func (e *TileEncoder) DecomposeTileComponent(tc *TileComponent, compIdx int) {
	h := e.header
	reversible := h.CodingStyle.IsReversible()
	if cs, ok := h.ComponentCodingStyles[uint16(compIdx)]; ok {
		reversible = cs.WaveletTransform == 1
	}
	numRes := len(tc.Resolutions)
	width := tc.X1 - tc.X0
	height := tc.Y1 - tc.Y0

	type level struct {
		w, h int
	}
	dims := make([]level, numRes)
	w, hgt := width, height
	for r := numRes - 1; r >= 0; r-- {
		dims[r] = level{w, hgt}
		w = (w + 1) / 2
		hgt = (hgt + 1) / 2
	}

	if reversible {
		plane := make([]int32, len(tc.Data))
		copy(plane, tc.Data)
		for r := numRes - 1; r >= 1; r-- {
			res := tc.Resolutions[r]
			hl, lh, hh := res.Bands[0], res.Bands[1], res.Bands[2]
			ll, hlData, lhData, hhData := dwt.SplitSubbands53(plane, dims[r].w, dims[r].h,
				dims[r-1].w, dims[r-1].h,
				hl.X1-hl.X0, hl.Y1-hl.Y0,
				lh.X1-lh.X0, lh.Y1-lh.Y0,
				hh.X1-hh.X0, hh.Y1-hh.Y0)
			scatterBand(hl, hlData)
			scatterBand(lh, lhData)
			scatterBand(hh, hhData)
			plane = ll
		}
		scatterBand(tc.Resolutions[0].Bands[0], plane)
		return
	}

	planeFloat := make([]float64, len(tc.Data))
	for i, v := range tc.Data {
		planeFloat[i] = float64(v)
	}
	for r := numRes - 1; r >= 1; r-- {
		res := tc.Resolutions[r]
		hl, lh, hh := res.Bands[0], res.Bands[1], res.Bands[2]
		ll, hlData, lhData, hhData := dwt.SplitSubbands97(planeFloat, dims[r].w, dims[r].h,
			dims[r-1].w, dims[r-1].h,
			hl.X1-hl.X0, hl.Y1-hl.Y0,
			lh.X1-lh.X0, lh.Y1-lh.Y0,
			hh.X1-hh.X0, hh.Y1-hh.Y0)
		stepHL, _, _ := bandQuant(h, compIdx, r, entropy.BandHL, numRes)
		stepLH, _, _ := bandQuant(h, compIdx, r, entropy.BandLH, numRes)
		stepHH, _, _ := bandQuant(h, compIdx, r, entropy.BandHH, numRes)
		scatterBand(hl, quantizeBand(hlData, stepHL))
		scatterBand(lh, quantizeBand(lhData, stepLH))
		scatterBand(hh, quantizeBand(hhData, stepHH))
		planeFloat = ll
	}
	stepLL, _, _ := bandQuant(h, compIdx, 0, entropy.BandLL, numRes)
	scatterBand(tc.Resolutions[0].Bands[0], quantizeBand(planeFloat, stepLL))
}

// Helper functions

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
