package jpeg2000

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/tilewave/jp2k/internal/box"
	"github.com/tilewave/jp2k/internal/cache"
	"github.com/tilewave/jp2k/internal/codestream"
	"github.com/tilewave/jp2k/internal/geom"
	"github.com/tilewave/jp2k/internal/mct"
	"github.com/tilewave/jp2k/internal/scheduler"
	"github.com/tilewave/jp2k/internal/tcd"
)

// decoder handles JPEG 2000 decoding.
type decoder struct {
	r          *bufio.Reader
	format     Format
	header     *codestream.Header
	jp2Header  *box.JP2Header
	codestream []byte

	parser     *codestream.Parser
	byteReader *byteReader
}

// newDecoder creates a new decoder.
func newDecoder(r io.Reader) *decoder {
	return &decoder{
		r: bufio.NewReader(r),
	}
}

// decode decodes the image.
func (d *decoder) decode(cfg *Config) (image.Image, error) {
	// Detect format and read headers
	if err := d.readFormat(); err != nil {
		return nil, fmt.Errorf("reading format: %w", err)
	}

	// Parse codestream header
	if err := d.parseCodestream(); err != nil {
		return nil, fmt.Errorf("parsing codestream: %w", err)
	}

	// Decode tiles
	img, err := d.decodeTiles(cfg)
	if err != nil {
		return nil, fmt.Errorf("decoding tiles: %w", err)
	}

	return img, nil
}

// readMetadata reads only the metadata without decoding.
func (d *decoder) readMetadata() (*Metadata, error) {
	if err := d.readFormat(); err != nil {
		return nil, err
	}

	if err := d.parseCodestream(); err != nil {
		return nil, err
	}

	h := d.header
	m := &Metadata{
		Format:           d.format,
		Width:            int(h.ImageWidth - h.ImageXOffset),
		Height:           int(h.ImageHeight - h.ImageYOffset),
		NumComponents:    int(h.NumComponents),
		BitsPerComponent: make([]int, h.NumComponents),
		Signed:           make([]bool, h.NumComponents),
		Profile:          Profile(h.Profile),
		NumResolutions:   int(h.CodingStyle.NumDecompositions) + 1,
		NumQualityLayers: int(h.CodingStyle.NumLayers),
		TileWidth:        int(h.TileWidth),
		TileHeight:       int(h.TileHeight),
		NumTilesX:        int(h.NumTilesX),
		NumTilesY:        int(h.NumTilesY),
		Comment:          h.Comment,
		ColorSpace:       ColorSpaceUnspecified, // Default for J2K without JP2 container
	}

	for i, c := range h.ComponentInfo {
		m.BitsPerComponent[i] = c.Precision()
		m.Signed[i] = c.IsSigned()
	}

	// Get color space from JP2 header if available
	if d.jp2Header != nil && d.jp2Header.ColorSpec != nil {
		switch d.jp2Header.ColorSpec.EnumeratedColorspace {
		case box.CSBilevel1, box.CSBilevel2:
			m.ColorSpace = ColorSpaceBilevel
		case box.CSGray:
			m.ColorSpace = ColorSpaceGray
		case box.CSSRGB:
			m.ColorSpace = ColorSpaceSRGB
		case box.CSYCbCr1, box.CSsYCC:
			m.ColorSpace = ColorSpaceSYCC
		case box.CSYCbCr2:
			m.ColorSpace = ColorSpaceYCbCr2
		case box.CSYCbCr3:
			m.ColorSpace = ColorSpaceYCbCr3
		case box.CSPhotoYCC:
			m.ColorSpace = ColorSpacePhotoYCC
		case box.CSCMY:
			m.ColorSpace = ColorSpaceCMY
		case box.CSCMYK:
			m.ColorSpace = ColorSpaceCMYK
		case box.CSYCCK:
			m.ColorSpace = ColorSpaceYCCK
		case box.CSCIELab:
			m.ColorSpace = ColorSpaceCIELab
		case box.CSCIEJab:
			m.ColorSpace = ColorSpaceCIEJab
		case box.CSeSRGB:
			m.ColorSpace = ColorSpaceESRGB
		case box.CSROMMRGB:
			m.ColorSpace = ColorSpaceROMMRGB
		case box.CSYPbPr1125:
			m.ColorSpace = ColorSpaceYPbPr60
		case box.CSYPbPr1250:
			m.ColorSpace = ColorSpaceYPbPr50
		case box.CSeSYCC:
			m.ColorSpace = ColorSpaceEYCC
		default:
			// Unknown enumcs value - not supported
			m.ColorSpace = ColorSpaceUnknown
		}
		m.ICCProfile = d.jp2Header.ColorSpec.ICCProfile
	}

	return m, nil
}

// getColorSpace returns the ColorSpace from the JP2 header.
func (d *decoder) getColorSpace() ColorSpace {
	if d.jp2Header == nil || d.jp2Header.ColorSpec == nil {
		return ColorSpaceUnspecified
	}

	switch d.jp2Header.ColorSpec.EnumeratedColorspace {
	case box.CSBilevel1, box.CSBilevel2:
		return ColorSpaceBilevel
	case box.CSGray:
		return ColorSpaceGray
	case box.CSSRGB:
		return ColorSpaceSRGB
	case box.CSYCbCr1, box.CSsYCC:
		return ColorSpaceSYCC
	case box.CSYCbCr2:
		return ColorSpaceYCbCr2
	case box.CSYCbCr3:
		return ColorSpaceYCbCr3
	case box.CSPhotoYCC:
		return ColorSpacePhotoYCC
	case box.CSCMY:
		return ColorSpaceCMY
	case box.CSCMYK:
		return ColorSpaceCMYK
	case box.CSYCCK:
		return ColorSpaceYCCK
	case box.CSCIELab:
		return ColorSpaceCIELab
	case box.CSCIEJab:
		return ColorSpaceCIEJab
	case box.CSeSRGB:
		return ColorSpaceESRGB
	case box.CSROMMRGB:
		return ColorSpaceROMMRGB
	case box.CSYPbPr1125:
		return ColorSpaceYPbPr60
	case box.CSYPbPr1250:
		return ColorSpaceYPbPr50
	case box.CSeSYCC:
		return ColorSpaceEYCC
	default:
		return ColorSpaceUnknown
	}
}

// readFormat detects the file format and reads file-level structures.
func (d *decoder) readFormat() error {
	// Peek at first bytes to detect format
	magic, err := d.r.Peek(12)
	if err != nil {
		return err
	}

	// Check for JP2 signature
	if len(magic) >= 12 &&
		magic[0] == 0x00 && magic[1] == 0x00 && magic[2] == 0x00 && magic[3] == 0x0C &&
		magic[4] == 'j' && magic[5] == 'P' && magic[6] == ' ' && magic[7] == ' ' {
		d.format = FormatJP2
		return d.readJP2()
	}

	// Check for J2K codestream (SOC marker)
	if len(magic) >= 2 && magic[0] == 0xFF && magic[1] == 0x4F {
		d.format = FormatJ2K
		return d.readJ2K()
	}

	return fmt.Errorf("unrecognized file format")
}

// readJP2 reads a JP2 file.
func (d *decoder) readJP2() error {
	boxReader := box.NewReader(d.r)

	for {
		b, err := boxReader.ReadBox()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		switch b.Type {
		case box.TypeJP2Signature:
			// Verify signature
			if len(b.Contents) < 4 ||
				b.Contents[0] != 0x0D || b.Contents[1] != 0x0A ||
				b.Contents[2] != 0x87 || b.Contents[3] != 0x0A {
				return fmt.Errorf("invalid JP2 signature")
			}

		case box.TypeFileType:
			// Parse file type box
			ftyp := &box.FileTypeBox{}
			if err := ftyp.Parse(b.Contents); err != nil {
				return err
			}

		case box.TypeJP2Header:
			// Parse JP2 header
			var err error
			d.jp2Header, err = box.ParseJP2Header(b.Contents)
			if err != nil {
				return err
			}

		case box.TypeContCodestream:
			// Store codestream for later parsing
			d.codestream = b.Contents
			return nil
		}
	}

	if d.codestream == nil {
		return fmt.Errorf("no codestream found in JP2 file")
	}
	return nil
}

// readJ2K reads a raw J2K codestream.
func (d *decoder) readJ2K() error {
	// Read entire codestream
	data, err := io.ReadAll(d.r)
	if err != nil {
		return err
	}
	d.codestream = data
	return nil
}

// parseCodestream parses the codestream header.
func (d *decoder) parseCodestream() error {
	if d.codestream == nil {
		return fmt.Errorf("no codestream available")
	}

	d.byteReader = &byteReader{data: d.codestream}
	d.parser = codestream.NewParser(d.byteReader)
	header, err := d.parser.ReadHeader()
	if err != nil {
		return err
	}
	d.header = header
	return nil
}

// decodeTiles decodes all tiles and assembles the output image.
func (d *decoder) decodeTiles(cfg *Config) (image.Image, error) {
	h := d.header
	log := cfg.logger()

	// Calculate output dimensions
	width := int(h.ImageWidth - h.ImageXOffset)
	height := int(h.ImageHeight - h.ImageYOffset)

	if cfg != nil && cfg.ReduceResolution > 0 {
		// Reduce resolution
		for i := 0; i < cfg.ReduceResolution; i++ {
			width = (width + 1) / 2
			height = (height + 1) / 2
		}
	}

	// Create output image based on number of components
	numComp := int(h.NumComponents)
	if numComp == 0 || len(h.ComponentInfo) == 0 {
		return nil, fmt.Errorf("invalid image: no components")
	}
	precision := h.ComponentInfo[0].Precision()
	signed := h.ComponentInfo[0].IsSigned()

	// aoi is the requested area of interest in image coordinates, or the
	// whole image when the caller didn't ask for a window. Every tile
	// outside it is skipped entirely (its bytes are still consumed off
	// the codestream, since tile-parts are sequential, but neither its
	// entropy decoder nor its inverse DWT runs); every tile that
	// intersects it decodes only the per-resolution subband window
	// internal/scheduler derives, per spec.md §4.9.
	aoi := h.ImageRect()
	windowed := false
	if cfg != nil && cfg.DecodeArea != nil {
		r := *cfg.DecodeArea
		aoi = geom.Rect{X0: uint32(max(r.Min.X, 0)), Y0: uint32(max(r.Min.Y, 0)),
			X1: uint32(max(r.Max.X, 0)), Y1: uint32(max(r.Max.Y, 0))}.Intersect(h.ImageRect())
		windowed = true
		log.Debug("windowed decode requested", "area", r, "clipped", aoi)
	}

	tileCache := cache.New(cfg.cacheStrategy(), width, height, numComp)

	// Decode each tile. Tile-parts are expected one per tile, in tile
	// order: the encoder this package pairs with never splits a tile
	// across multiple tile-parts, and reordering beyond that is not
	// supported (see DESIGN.md).
	tileDecoder := tcd.NewTileDecoder(h)
	numTiles := int(h.NumTilesX * h.NumTilesY)

	for tileIdx := 0; tileIdx < numTiles; tileIdx++ {
		if tileIdx > 0 {
			marker, err := d.parser.NextMarker()
			if err != nil {
				return nil, fmt.Errorf("reading tile %d marker: %w", tileIdx, err)
			}
			if marker != codestream.SOT {
				return nil, fmt.Errorf("expected SOT marker before tile %d, got 0x%04X", tileIdx, marker)
			}
		}
		tilePartStart := d.byteReader.Pos() - 2

		tph, err := d.parser.ReadTilePartHeader()
		if err != nil {
			return nil, fmt.Errorf("reading tile-part header %d: %w", tileIdx, err)
		}

		packetLen := int(tph.TilePartLength) - (d.byteReader.Pos() - tilePartStart)
		if packetLen < 0 {
			packetLen = 0
		}
		packetData, err := d.parser.ReadBytes(packetLen)
		if err != nil {
			return nil, fmt.Errorf("reading tile %d packet data: %w", tileIdx, err)
		}

		tileX := uint32(tileIdx % int(h.NumTilesX))
		tileY := uint32(tileIdx / int(h.NumTilesX))
		tileRect := h.TileRect(tileX, tileY)

		if windowed && scheduler.Skip(tileRect, aoi) {
			log.Debug("skipping tile outside decode area", "tile", tileIdx, "rect", tileRect)
			continue
		}

		if err := d.decodeTile(tileDecoder, tileIdx, tph, packetData, tileCache, aoi, windowed, cfg); err != nil {
			return nil, fmt.Errorf("decoding tile %d: %w", tileIdx, err)
		}
	}

	componentData := tileCache.Composite().Planes

	// Apply inverse MCT if needed
	if h.CodingStyle.MultipleComponentXf != 0 && numComp >= 3 {
		if h.CodingStyle.IsReversible() {
			mct.InverseRCT(componentData[0], componentData[1], componentData[2])
		} else {
			// Convert to float for ICT
			compFloat := make([][]float64, 3)
			for c := 0; c < 3; c++ {
				compFloat[c] = make([]float64, len(componentData[c]))
				for i, v := range componentData[c] {
					compFloat[c][i] = float64(v)
				}
			}
			mct.InverseICT(compFloat[0], compFloat[1], compFloat[2])
			for c := 0; c < 3; c++ {
				for i, v := range compFloat[c] {
					componentData[c][i] = int32(v + 0.5)
				}
			}
		}
	}

	// Apply DC level shift
	for c := 0; c < numComp; c++ {
		if !h.ComponentInfo[c].IsSigned() {
			mct.DCLevelShiftInverse(componentData[c], h.ComponentInfo[c].Precision())
		}
	}

	// Apply color space conversion if needed
	if d.jp2Header != nil && d.jp2Header.ColorSpec != nil {
		cs := d.getColorSpace()
		if conv := getColorConversion(cs); conv != nil {
			conv(componentData, precision)
		}
	}

	// Create output image
	return d.createImage(componentData, width, height, numComp, precision, signed)
}

// extractWindow copies the win portion of full (a dense plane covering
// fullRect) into a freshly allocated row-major buffer sized to win. win
// must lie within fullRect.
func extractWindow(full []int32, fullRect, win geom.Rect) []int32 {
	fw := int(fullRect.Width())
	w := int(win.Width())
	h := int(win.Height())
	out := make([]int32, w*h)
	lx0 := int(win.X0 - fullRect.X0)
	ly0 := int(win.Y0 - fullRect.Y0)
	for y := 0; y < h; y++ {
		srcOff := (ly0+y)*fw + lx0
		copy(out[y*w:y*w+w], full[srcOff:srcOff+w])
	}
	return out
}

// decodeTile decodes a single tile that intersects aoi: it walks tph's
// packet data in progression order, decoding each packet's header, then
// entropy-decodes either every code-block (windowed==false) or only the
// code-blocks internal/scheduler's per-resolution windows touch
// (windowed==true), reconstructs every component's samples, and puts the
// result into tileCache so its Composite ends up with every decoded
// tile's contribution.
func (d *decoder) decodeTile(
	tileDecoder *tcd.TileDecoder,
	tileIdx int,
	tph *codestream.TilePartHeader,
	packetData []byte,
	tileCache *cache.Cache,
	aoi geom.Rect,
	windowed bool,
	cfg *Config,
) error {
	h := d.header
	log := cfg.logger()

	// Initialize tile
	tileDecoder.InitTile(tileIdx)

	tile := tileDecoder.Tile()
	if tile == nil {
		return fmt.Errorf("tile %d not initialized", tileIdx)
	}

	cod := h.CodingStyle
	if tph.CodingStyle != nil {
		cod = *tph.CodingStyle
	}
	numComp := len(tile.Components)
	numRes := cod.NumResolutions()

	layers := int(cod.NumLayers)
	if cfg != nil && cfg.QualityLayers > 0 && cfg.QualityLayers < layers {
		log.Debug("truncating quality layers", "tile", tileIdx, "available", cod.NumLayers, "requested", cfg.QualityLayers)
		layers = cfg.QualityLayers
	}

	precincts := make([][][]int, numComp)
	for c := 0; c < numComp; c++ {
		precincts[c] = make([][]int, numRes)
		for r := 0; r < numRes; r++ {
			precincts[c][r] = []int{1}
		}
	}

	sopEnabled := cod.CodingStyle&codestream.CodingStyleSOP != 0
	ephEnabled := cod.CodingStyle&codestream.CodingStyleEPH != 0

	pd := tcd.NewPacketDecoder(packetData)
	it := tcd.NewPacketIterator(numComp, numRes, layers, precincts, codestream.ProgressionOrder(cod.ProgressionOrder))
	for {
		pkt, ok := it.Next()
		if !ok {
			break
		}
		tc := tile.Components[pkt.Component]
		if tc == nil || pkt.Resolution >= len(tc.Resolutions) {
			continue
		}
		res := tc.Resolutions[pkt.Resolution]
		if len(res.Precincts) == 0 {
			continue
		}
		if err := pd.DecodePacket(res.Precincts[0], pkt.Layer, sopEnabled, ephEnabled); err != nil {
			return fmt.Errorf("decoding packet (c=%d r=%d l=%d): %w", pkt.Component, pkt.Resolution, pkt.Layer, err)
		}
	}

	planes := make([]cache.ComponentPlane, numComp)

	for c := 0; c < numComp; c++ {
		tc := tile.Components[c]
		if tc == nil {
			continue
		}

		comp := h.ComponentInfo[c]
		tcRect := geom.Rect{X0: uint32(tc.X0), Y0: uint32(tc.Y0), X1: uint32(tc.X1), Y1: uint32(tc.Y1)}

		var win scheduler.TileWindow
		if windowed {
			aoiTC := geom.Rect{
				X0: geom.CeilDiv(aoi.X0, uint32(comp.SubsamplingX)), Y0: geom.CeilDiv(aoi.Y0, uint32(comp.SubsamplingY)),
				X1: geom.CeilDiv(aoi.X1, uint32(comp.SubsamplingX)), Y1: geom.CeilDiv(aoi.Y1, uint32(comp.SubsamplingY)),
			}
			win = scheduler.ForTileComponent(tcRect, aoiTC, numRes)

			windows := make(map[int]geom.Rect, numRes)
			for r := range win.Resolutions {
				windows[r] = win.Resolutions[r]
			}
			if err := tileDecoder.DecodeAllCodeBlocksWindowed(tc, c, windows); err != nil {
				return fmt.Errorf("decoding code-blocks for component %d: %w", c, err)
			}
			log.Debug("windowed code-block decode", "tile", tileIdx, "component", c, "aoi", win.AOI)
		} else {
			if err := tileDecoder.DecodeAllCodeBlocks(tc, c); err != nil {
				return fmt.Errorf("decoding code-blocks for component %d: %w", c, err)
			}
		}

		// Reconstruct the tile-component's samples from its code-blocks.
		tileDecoder.AssembleTileComponent(tc, c)

		var buf *tcd.TileComponentBuffer
		writeRect := tcRect
		if windowed {
			buf = tcd.NewAttachedTileComponentBuffer(tcRect)
			writeRect = win.Resolutions[numRes-1]
		} else {
			buf = tcd.NewOwnedTileComponentBuffer(tcRect)
		}
		if err := buf.WriteWindow(writeRect, extractWindow(tc.Data, tcRect, writeRect)); err != nil {
			return fmt.Errorf("storing windowed output for component %d: %w", c, err)
		}

		plane := buf.ReadWindow(writeRect)
		planes[c] = cache.ComponentPlane{
			X0: int(writeRect.X0) - int(h.ImageXOffset), Y0: int(writeRect.Y0) - int(h.ImageYOffset),
			X1: int(writeRect.X1) - int(h.ImageXOffset), Y1: int(writeRect.Y1) - int(h.ImageYOffset),
			Data: plane,
		}
	}

	// tileDecoder is a reused scratch object (its *Tile is overwritten by
	// the next InitTile call), so it can't serve as a retainable Processor
	// snapshot; Planes is what StrategyAllTiles/StrategyLastTile actually
	// exist to let a caller re-Get.
	tileCache.Put(uint16(tileIdx), &cache.Entry{Planes: planes})

	return nil
}

// createImage creates the output image from component data.
func (d *decoder) createImage(
	componentData [][]int32,
	width, height int,
	numComp int,
	precision int,
	signed bool,
) (image.Image, error) {
	// Determine scaling factor
	maxVal := int32((1 << precision) - 1)

	switch numComp {
	case 1:
		// Grayscale
		if precision <= 8 {
			img := image.NewGray(image.Rect(0, 0, width, height))
			for y := 0; y < height; y++ {
				for x := 0; x < width; x++ {
					idx := y*width + x
					v := componentData[0][idx]
					if v < 0 {
						v = 0
					}
					if v > maxVal {
						v = maxVal
					}
					// Scale to 8-bit
					if precision != 8 {
						v = v * 255 / maxVal
					}
					img.SetGray(x, y, color.Gray{Y: uint8(v)})
				}
			}
			return img, nil
		}
		// 16-bit grayscale
		img := image.NewGray16(image.Rect(0, 0, width, height))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				idx := y*width + x
				v := componentData[0][idx]
				if v < 0 {
					v = 0
				}
				if v > maxVal {
					v = maxVal
				}
				// Scale to 16-bit
				v = v * 65535 / maxVal
				img.SetGray16(x, y, color.Gray16{Y: uint16(v)})
			}
		}
		return img, nil

	case 3:
		// RGB
		if precision <= 8 {
			img := image.NewRGBA(image.Rect(0, 0, width, height))
			for y := 0; y < height; y++ {
				for x := 0; x < width; x++ {
					idx := y*width + x
					r := componentData[0][idx]
					g := componentData[1][idx]
					b := componentData[2][idx]

					// Clamp values
					r = clampInt32(r, 0, maxVal)
					g = clampInt32(g, 0, maxVal)
					b = clampInt32(b, 0, maxVal)

					// Scale to 8-bit
					if precision != 8 {
						r = r * 255 / maxVal
						g = g * 255 / maxVal
						b = b * 255 / maxVal
					}

					img.SetRGBA(x, y, color.RGBA{
						R: uint8(r),
						G: uint8(g),
						B: uint8(b),
						A: 255,
					})
				}
			}
			return img, nil
		}
		// 16-bit RGB
		img := image.NewRGBA64(image.Rect(0, 0, width, height))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				idx := y*width + x
				r := componentData[0][idx]
				g := componentData[1][idx]
				b := componentData[2][idx]

				r = clampInt32(r, 0, maxVal)
				g = clampInt32(g, 0, maxVal)
				b = clampInt32(b, 0, maxVal)

				// Scale to 16-bit
				r = r * 65535 / maxVal
				g = g * 65535 / maxVal
				b = b * 65535 / maxVal

				img.SetRGBA64(x, y, color.RGBA64{
					R: uint16(r),
					G: uint16(g),
					B: uint16(b),
					A: 65535,
				})
			}
		}
		return img, nil

	case 4:
		// RGBA
		if precision <= 8 {
			img := image.NewRGBA(image.Rect(0, 0, width, height))
			for y := 0; y < height; y++ {
				for x := 0; x < width; x++ {
					idx := y*width + x
					r := clampInt32(componentData[0][idx], 0, maxVal)
					g := clampInt32(componentData[1][idx], 0, maxVal)
					b := clampInt32(componentData[2][idx], 0, maxVal)
					a := clampInt32(componentData[3][idx], 0, maxVal)

					if precision != 8 {
						r = r * 255 / maxVal
						g = g * 255 / maxVal
						b = b * 255 / maxVal
						a = a * 255 / maxVal
					}

					img.SetRGBA(x, y, color.RGBA{
						R: uint8(r),
						G: uint8(g),
						B: uint8(b),
						A: uint8(a),
					})
				}
			}
			return img, nil
		}
		// 16-bit RGBA
		img := image.NewRGBA64(image.Rect(0, 0, width, height))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				idx := y*width + x
				r := clampInt32(componentData[0][idx], 0, maxVal)
				g := clampInt32(componentData[1][idx], 0, maxVal)
				b := clampInt32(componentData[2][idx], 0, maxVal)
				a := clampInt32(componentData[3][idx], 0, maxVal)

				r = r * 65535 / maxVal
				g = g * 65535 / maxVal
				b = b * 65535 / maxVal
				a = a * 65535 / maxVal

				img.SetRGBA64(x, y, color.RGBA64{
					R: uint16(r),
					G: uint16(g),
					B: uint16(b),
					A: uint16(a),
				})
			}
		}
		return img, nil

	default:
		return nil, fmt.Errorf("unsupported number of components: %d", numComp)
	}
}

// Helper function
func clampInt32(v, min, max int32) int32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// byteReader wraps a byte slice as an io.Reader.
type byteReader struct {
	data []byte
	pos  int
}

func (r *byteReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}

// Pos returns the number of bytes consumed so far.
func (r *byteReader) Pos() int {
	return r.pos
}
