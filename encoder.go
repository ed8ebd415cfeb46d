package jpeg2000

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/tilewave/jp2k/internal/box"
	"github.com/tilewave/jp2k/internal/codestream"
	"github.com/tilewave/jp2k/internal/mct"
	"github.com/tilewave/jp2k/internal/tcd"
)

// encoder handles JPEG 2000 encoding.
type encoder struct {
	w       io.Writer
	img     image.Image
	options *Options

	// Image parameters
	width         int
	height        int
	numComponents int
	precision     int
	signed        bool

	// Component data
	componentData [][]int32

	// header is the main codestream header this encoder builds once, up
	// front: generateSIZ/COD/QCD serialize it to bytes, and encodeTile
	// hands it to tcd.TileEncoder, so the two never drift apart.
	header *codestream.Header
}

// newEncoder creates a new encoder.
func newEncoder(w io.Writer, img image.Image, options *Options) *encoder {
	bounds := img.Bounds()
	return &encoder{
		w:       w,
		img:     img,
		options: options,
		width:   bounds.Dx(),
		height:  bounds.Dy(),
	}
}

// encode encodes the image.
func (e *encoder) encode() error {
	// Extract image data
	if err := e.extractImageData(); err != nil {
		return fmt.Errorf("extracting image data: %w", err)
	}

	// Apply preprocessing
	if err := e.preprocess(); err != nil {
		return fmt.Errorf("preprocessing: %w", err)
	}

	e.header = e.buildHeader()

	// Generate codestream
	codestream, err := e.generateCodestream()
	if err != nil {
		return fmt.Errorf("generating codestream: %w", err)
	}

	// Write output based on format
	switch e.options.Format {
	case FormatJP2:
		return e.writeJP2(codestream)
	case FormatJ2K:
		_, err := e.w.Write(codestream)
		return err
	default:
		return fmt.Errorf("unsupported format: %s", e.options.Format)
	}
}

// extractImageData extracts pixel data from the source image.
func (e *encoder) extractImageData() error {
	bounds := e.img.Bounds()

	// Determine image properties based on type
	switch img := e.img.(type) {
	case *image.Gray:
		e.numComponents = 1
		e.precision = 8
		e.componentData = make([][]int32, 1)
		e.componentData[0] = make([]int32, e.width*e.height)
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				idx := (y-bounds.Min.Y)*e.width + (x - bounds.Min.X)
				e.componentData[0][idx] = int32(img.GrayAt(x, y).Y)
			}
		}

	case *image.Gray16:
		e.numComponents = 1
		e.precision = 16
		e.componentData = make([][]int32, 1)
		e.componentData[0] = make([]int32, e.width*e.height)
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				idx := (y-bounds.Min.Y)*e.width + (x - bounds.Min.X)
				e.componentData[0][idx] = int32(img.Gray16At(x, y).Y)
			}
		}

	case *image.RGBA:
		e.numComponents = 3 // We'll ignore alpha for now
		e.precision = 8
		e.componentData = make([][]int32, 3)
		for c := 0; c < 3; c++ {
			e.componentData[c] = make([]int32, e.width*e.height)
		}
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				idx := (y-bounds.Min.Y)*e.width + (x - bounds.Min.X)
				c := img.RGBAAt(x, y)
				e.componentData[0][idx] = int32(c.R)
				e.componentData[1][idx] = int32(c.G)
				e.componentData[2][idx] = int32(c.B)
			}
		}

	case *image.RGBA64:
		e.numComponents = 3
		e.precision = 16
		e.componentData = make([][]int32, 3)
		for c := 0; c < 3; c++ {
			e.componentData[c] = make([]int32, e.width*e.height)
		}
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				idx := (y-bounds.Min.Y)*e.width + (x - bounds.Min.X)
				c := img.RGBA64At(x, y)
				e.componentData[0][idx] = int32(c.R)
				e.componentData[1][idx] = int32(c.G)
				e.componentData[2][idx] = int32(c.B)
			}
		}

	case *image.NRGBA:
		e.numComponents = 4
		e.precision = 8
		e.componentData = make([][]int32, 4)
		for c := 0; c < 4; c++ {
			e.componentData[c] = make([]int32, e.width*e.height)
		}
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				idx := (y-bounds.Min.Y)*e.width + (x - bounds.Min.X)
				c := img.NRGBAAt(x, y)
				e.componentData[0][idx] = int32(c.R)
				e.componentData[1][idx] = int32(c.G)
				e.componentData[2][idx] = int32(c.B)
				e.componentData[3][idx] = int32(c.A)
			}
		}

	case *image.NRGBA64:
		e.numComponents = 4
		e.precision = 16
		e.componentData = make([][]int32, 4)
		for c := 0; c < 4; c++ {
			e.componentData[c] = make([]int32, e.width*e.height)
		}
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				idx := (y-bounds.Min.Y)*e.width + (x - bounds.Min.X)
				c := img.NRGBA64At(x, y)
				e.componentData[0][idx] = int32(c.R)
				e.componentData[1][idx] = int32(c.G)
				e.componentData[2][idx] = int32(c.B)
				e.componentData[3][idx] = int32(c.A)
			}
		}

	default:
		// Generic fallback - convert to RGBA
		e.numComponents = 3
		e.precision = 8
		e.componentData = make([][]int32, 3)
		for c := 0; c < 3; c++ {
			e.componentData[c] = make([]int32, e.width*e.height)
		}
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				idx := (y-bounds.Min.Y)*e.width + (x - bounds.Min.X)
				r, g, b, _ := e.img.At(x, y).RGBA()
				e.componentData[0][idx] = int32(r >> 8)
				e.componentData[1][idx] = int32(g >> 8)
				e.componentData[2][idx] = int32(b >> 8)
			}
		}
	}

	// Apply precision override if specified
	if e.options.Precision > 0 && e.options.Precision <= 16 && e.options.Precision != e.precision {
		targetPrecision := e.options.Precision
		srcMax := int32((1 << e.precision) - 1)
		dstMax := int32((1 << targetPrecision) - 1)

		for c := 0; c < e.numComponents; c++ {
			for i := range e.componentData[c] {
				// Scale from source precision to target precision
				e.componentData[c][i] = e.componentData[c][i] * dstMax / srcMax
			}
		}
		e.precision = targetPrecision
	}

	return nil
}

// preprocess applies preprocessing transforms.
func (e *encoder) preprocess() error {
	// Apply DC level shift
	for c := 0; c < e.numComponents; c++ {
		mct.DCLevelShiftForward(e.componentData[c], e.precision)
	}

	// Apply MCT if we have 3+ components
	if e.numComponents >= 3 {
		if e.options.Lossless {
			mct.ForwardRCT(e.componentData[0], e.componentData[1], e.componentData[2])
		} else {
			// Convert to float for ICT
			compFloat := make([][]float64, 3)
			for c := 0; c < 3; c++ {
				compFloat[c] = make([]float64, len(e.componentData[c]))
				for i, v := range e.componentData[c] {
					compFloat[c][i] = float64(v)
				}
			}
			mct.ForwardICT(compFloat[0], compFloat[1], compFloat[2])
			for c := 0; c < 3; c++ {
				for i, v := range compFloat[c] {
					if v >= 0 {
						e.componentData[c][i] = int32(v + 0.5)
					} else {
						e.componentData[c][i] = int32(v - 0.5)
					}
				}
			}
		}
	}

	// The forward DWT and quantization happen per tile-component in
	// encodeTile, via TileEncoder.DecomposeTileComponent: that is where the
	// real resolution/subband geometry (internal/geom) is available, which
	// this flat preprocessing stage does not have.

	return nil
}

// generateCodestream generates the JPEG 2000 codestream.
func (e *encoder) generateCodestream() ([]byte, error) {
	var buf []byte

	// SOC marker
	buf = append(buf, 0xFF, 0x4F)

	// SIZ marker
	siz := e.generateSIZ()
	buf = append(buf, siz...)

	// CAP marker (required for HTJ2K mode)
	if e.options.HighThroughput {
		cap := e.generateCAP()
		buf = append(buf, cap...)
	}

	// COD marker
	cod := e.generateCOD()
	buf = append(buf, cod...)

	// QCD marker
	qcd := e.generateQCD()
	buf = append(buf, qcd...)

	// Comment marker (optional)
	if e.options.Comment != "" {
		com := e.generateCOM()
		buf = append(buf, com...)
	}

	// Generate tile data
	tileData, err := e.generateTiles()
	if err != nil {
		return nil, err
	}
	buf = append(buf, tileData...)

	// EOC marker
	buf = append(buf, 0xFF, 0xD9)

	return buf, nil
}

// buildHeader constructs the main codestream header this encoder targets.
// It is built once, before any marker bytes are written, so generateSIZ,
// generateCOD and generateQCD can serialize it instead of recomputing the
// same parameters independently, and so encodeTile's tcd.TileEncoder sees
// exactly the geometry and quantization a decoder will parse back out of
// the bytes those functions emit.
func (e *encoder) buildHeader() *codestream.Header {
	numRes := e.options.NumResolutions
	if numRes <= 0 {
		numRes = 6
	}

	tileWidth := e.width
	tileHeight := e.height
	if e.options.TileSize.X > 0 {
		tileWidth = e.options.TileSize.X
	}
	if e.options.TileSize.Y > 0 {
		tileHeight = e.options.TileSize.Y
	}

	ssiz := uint8(e.precision - 1)
	if e.signed {
		ssiz |= 0x80
	}
	compInfo := make([]codestream.ComponentInfo, e.numComponents)
	for c := range compInfo {
		compInfo[c] = codestream.ComponentInfo{BitDepth: ssiz, SubsamplingX: 1, SubsamplingY: 1}
	}

	cbWidth := e.options.CodeBlockSize.X
	cbHeight := e.options.CodeBlockSize.Y
	if e.options.HighThroughput {
		htWidth := e.options.HTBlockWidth
		htHeight := e.options.HTBlockHeight
		if htWidth == 0 {
			htWidth = 128
		}
		if htHeight == 0 {
			htHeight = 128
		}
		switch htWidth {
		case 32:
			cbWidth = 5
		default:
			cbWidth = 7
		}
		switch htHeight {
		case 32:
			cbHeight = 5
		default:
			cbHeight = 7
		}
	} else {
		if cbWidth <= 0 {
			cbWidth = 6
		}
		if cbHeight <= 0 {
			cbHeight = 6
		}
	}

	scod := uint8(0)
	if e.options.EnableSOP {
		scod |= codestream.CodingStyleSOP
	}
	if e.options.EnableEPH {
		scod |= codestream.CodingStyleEPH
	}

	numLayers := e.options.NumLayers
	if numLayers <= 0 {
		numLayers = 1
	}

	mctFlag := uint8(0)
	if e.numComponents >= 3 {
		mctFlag = 1
	}

	waveletTransform := uint8(0)
	if e.options.Lossless {
		waveletTransform = 1
	}

	cbStyle := uint8(0)
	if e.options.HighThroughput {
		cbStyle |= codestream.CodeBlockHT
	}

	cod := codestream.CodingStyleDefault{
		CodingStyle:         scod,
		ProgressionOrder:    uint8(e.options.ProgressionOrder),
		NumLayers:           uint16(numLayers),
		MultipleComponentXf: mctFlag,
		NumDecompositions:   uint8(numRes - 1),
		CodeBlockWidthExp:   uint8(cbWidth - 2),
		CodeBlockHeightExp:  uint8(cbHeight - 2),
		CodeBlockStyle:      cbStyle,
		WaveletTransform:    waveletTransform,
	}

	numBands := 3*(numRes-1) + 1
	var quant codestream.QuantizationDefault
	if e.options.Lossless {
		steps := make([]codestream.StepSize, numBands)
		for i := range steps {
			steps[i] = codestream.StepSize{Exponent: uint8(e.precision + i/3)}
		}
		// NumGuardBits carries the raw Sqcd byte (style in bits 0-4, guard
		// bits in bits 5-7), matching how the parser populates it; 0 guard
		// bits here leaves it equal to the style byte alone.
		quant = codestream.QuantizationDefault{
			QuantizationStyle: codestream.QuantizationNone,
			NumGuardBits:      codestream.QuantizationNone,
			StepSizes:         steps,
		}
	} else {
		// SPqcd for scalar derived quantization packs exponent:mantissa as
		// (5 bits):(11 bits) in a single uint16 (ISO/IEC 15444-1 Table
		// A.29). StepSize.Value() reads the exponent against a 31-bit
		// fixed-point scale, so a higher Quality (finer step) needs a
		// larger exponent; map Quality down to a small log2 step-size
		// budget and invert it against that scale.
		log2Step := 8
		if e.options.Quality > 0 {
			log2Step = (100 - e.options.Quality) / 10
		}
		exponent := 31 - log2Step
		mantissa := uint16(0)
		if e.options.Quality > 0 {
			mantissa = uint16(((100 - e.options.Quality) % 10) * 200)
			if mantissa > 0x07FF {
				mantissa = 0x07FF
			}
		}
		quant = codestream.QuantizationDefault{
			QuantizationStyle: codestream.QuantizationScalarDerived,
			NumGuardBits:      codestream.QuantizationScalarDerived | (1 << 5),
			StepSizes:         []codestream.StepSize{{Mantissa: mantissa, Exponent: uint8(exponent)}},
		}
	}

	h := &codestream.Header{
		Profile:       uint16(e.options.Profile),
		ImageWidth:    uint32(e.width),
		ImageHeight:   uint32(e.height),
		TileWidth:     uint32(tileWidth),
		TileHeight:    uint32(tileHeight),
		NumComponents: uint16(e.numComponents),
		ComponentInfo: compInfo,
		CodingStyle:   cod,
		Quantization:  quant,
	}
	h.CalculateDerivedValues()
	return h
}

// generateSIZ generates the SIZ marker segment.
func (e *encoder) generateSIZ() []byte {
	h := e.header
	numComp := int(h.NumComponents)

	// Length = 38 + 3*numComponents
	length := 38 + 3*numComp

	buf := make([]byte, 2+length)
	binary.BigEndian.PutUint16(buf[0:2], uint16(codestream.SIZ))
	binary.BigEndian.PutUint16(buf[2:4], uint16(length))

	binary.BigEndian.PutUint16(buf[4:6], h.Profile)
	binary.BigEndian.PutUint32(buf[6:10], h.ImageWidth)
	binary.BigEndian.PutUint32(buf[10:14], h.ImageHeight)
	binary.BigEndian.PutUint32(buf[14:18], h.ImageXOffset)
	binary.BigEndian.PutUint32(buf[18:22], h.ImageYOffset)
	binary.BigEndian.PutUint32(buf[22:26], h.TileWidth)
	binary.BigEndian.PutUint32(buf[26:30], h.TileHeight)
	binary.BigEndian.PutUint32(buf[30:34], h.TileXOffset)
	binary.BigEndian.PutUint32(buf[34:38], h.TileYOffset)
	binary.BigEndian.PutUint16(buf[38:40], uint16(numComp))

	for c := 0; c < numComp; c++ {
		offset := 40 + c*3
		ci := h.ComponentInfo[c]
		buf[offset] = ci.BitDepth
		buf[offset+1] = ci.SubsamplingX
		buf[offset+2] = ci.SubsamplingY
	}

	return buf
}

// generateCOD generates the COD marker segment.
func (e *encoder) generateCOD() []byte {
	cod := e.header.CodingStyle

	// Base length = 12 (without precinct sizes)
	length := 12

	buf := make([]byte, 2+length)
	binary.BigEndian.PutUint16(buf[0:2], uint16(codestream.COD))
	binary.BigEndian.PutUint16(buf[2:4], uint16(length))

	buf[4] = cod.CodingStyle
	buf[5] = cod.ProgressionOrder
	binary.BigEndian.PutUint16(buf[6:8], cod.NumLayers)
	buf[8] = cod.MultipleComponentXf
	buf[9] = cod.NumDecompositions
	buf[10] = cod.CodeBlockWidthExp
	buf[11] = cod.CodeBlockHeightExp
	buf[12] = cod.CodeBlockStyle
	buf[13] = cod.WaveletTransform

	return buf
}

// generateQCD generates the QCD marker segment.
func (e *encoder) generateQCD() []byte {
	q := e.header.Quantization

	var buf []byte
	switch q.Style() {
	case codestream.QuantizationNone:
		numBands := len(q.StepSizes)
		length := 3 + numBands
		buf = make([]byte, 2+length)
		binary.BigEndian.PutUint16(buf[0:2], uint16(codestream.QCD))
		binary.BigEndian.PutUint16(buf[2:4], uint16(length))
		buf[4] = q.NumGuardBits
		for i, s := range q.StepSizes {
			buf[5+i] = s.Exponent << 3
		}
	default:
		length := 5
		buf = make([]byte, 2+length)
		binary.BigEndian.PutUint16(buf[0:2], uint16(codestream.QCD))
		binary.BigEndian.PutUint16(buf[2:4], uint16(length))
		buf[4] = q.NumGuardBits
		base := q.StepSizes[0]
		binary.BigEndian.PutUint16(buf[5:7], (uint16(base.Exponent)<<11)|(base.Mantissa&0x07FF))
	}

	return buf
}

// generateCOM generates the COM marker segment.
func (e *encoder) generateCOM() []byte {
	comment := []byte(e.options.Comment)
	length := 4 + len(comment)

	buf := make([]byte, 2+length)
	binary.BigEndian.PutUint16(buf[0:2], uint16(codestream.COM))
	binary.BigEndian.PutUint16(buf[2:4], uint16(length))
	binary.BigEndian.PutUint16(buf[4:6], codestream.CommentLatin1)
	copy(buf[6:], comment)

	return buf
}

// generateCAP generates the CAP (extended capabilities) marker segment.
// This marker is required for HTJ2K mode to signal the use of the
// High-Throughput block coder.
func (e *encoder) generateCAP() []byte {
	// CAP marker format:
	// - Marker (2 bytes): 0xFF50
	// - Length (2 bytes): 6 (length field + Pcap)
	// - Pcap (4 bytes): capabilities flags
	// Total: 8 bytes

	length := 6 // Length includes itself and Pcap

	buf := make([]byte, 8)
	binary.BigEndian.PutUint16(buf[0:2], uint16(codestream.CAP))
	binary.BigEndian.PutUint16(buf[2:4], uint16(length))

	// Set Pcap with HTJ2K capability flag (bit 15)
	pcap := codestream.CapPcapHTJ2K
	binary.BigEndian.PutUint32(buf[4:8], pcap)

	return buf
}

// generateTiles generates tile data.
func (e *encoder) generateTiles() ([]byte, error) {
	var buf []byte

	numTiles := int(e.header.NumTilesX * e.header.NumTilesY)
	if numTiles == 0 {
		numTiles = 1
	}
	tileEncoder := tcd.NewTileEncoder(e.header)
	for tileIdx := 0; tileIdx < numTiles; tileIdx++ {
		tileData, err := e.encodeTile(tileEncoder, tileIdx)
		if err != nil {
			return nil, err
		}
		buf = append(buf, tileData...)
	}

	return buf, nil
}

// encodeTile forward-transforms, quantizes and entropy-codes one tile's
// components via tcd.TileEncoder, then packs the resulting code-block data
// into packets in the header's progression order via tcd.PacketEncoder.
func (e *encoder) encodeTile(tileEncoder *tcd.TileEncoder, tileIdx int) ([]byte, error) {
	h := e.header
	tileEncoder.InitTile(tileIdx, e.componentData)
	tile := tileEncoder.Tile()

	numComp := len(tile.Components)
	for c := 0; c < numComp; c++ {
		tc := tile.Components[c]
		tileEncoder.DecomposeTileComponent(tc, c)
		tileEncoder.EncodeAllCodeBlocks(tc, c)
	}

	numRes := h.CodingStyle.NumResolutions()
	numLayers := int(h.CodingStyle.NumLayers)
	precincts := make([][][]int, numComp)
	for c := 0; c < numComp; c++ {
		precincts[c] = make([][]int, numRes)
		for r := 0; r < numRes; r++ {
			precincts[c][r] = []int{1}
		}
	}

	var packetBuf bytes.Buffer
	pe := tcd.NewPacketEncoder(&packetBuf)
	it := tcd.NewPacketIterator(numComp, numRes, numLayers, precincts, codestream.ProgressionOrder(h.CodingStyle.ProgressionOrder))
	for {
		pkt, ok := it.Next()
		if !ok {
			break
		}
		tc := tile.Components[pkt.Component]
		if pkt.Resolution >= len(tc.Resolutions) {
			continue
		}
		res := tc.Resolutions[pkt.Resolution]
		if len(res.Precincts) == 0 {
			continue
		}
		if err := pe.EncodePacket(res.Precincts[0], pkt.Layer, e.options.EnableSOP, e.options.EnableEPH); err != nil {
			return nil, fmt.Errorf("encoding packet (c=%d r=%d l=%d): %w", pkt.Component, pkt.Resolution, pkt.Layer, err)
		}
	}

	return e.createTileHeader(tileIdx, packetBuf.Bytes()), nil
}

// createTileHeader creates the tile-part header.
func (e *encoder) createTileHeader(tileIdx int, tileData []byte) []byte {
	sotLength := 10
	tilePartLength := uint32(14 + len(tileData))

	header := make([]byte, 14)
	binary.BigEndian.PutUint16(header[0:2], uint16(codestream.SOT))
	binary.BigEndian.PutUint16(header[2:4], uint16(sotLength))
	binary.BigEndian.PutUint16(header[4:6], uint16(tileIdx))
	binary.BigEndian.PutUint32(header[6:10], tilePartLength)
	header[10] = 0 // Tile-part index
	header[11] = 1 // Number of tile-parts
	binary.BigEndian.PutUint16(header[12:14], uint16(codestream.SOD))

	return append(header, tileData...)
}

// writeJP2 writes a JP2 file.
func (e *encoder) writeJP2(codestream []byte) error {
	boxWriter := box.NewWriter(e.w)

	// Write signature
	if err := boxWriter.WriteSignature(); err != nil {
		return err
	}

	// Write file type box
	ftypBox := box.CreateFileTypeBox()
	if err := boxWriter.WriteBox(ftypBox); err != nil {
		return err
	}

	// Determine colorspace from options or default based on components
	var colorspace uint32
	switch e.options.ColorSpace {
	case ColorSpaceBilevel:
		colorspace = box.CSBilevel1
	case ColorSpaceGray:
		colorspace = box.CSGray
	case ColorSpaceSRGB:
		colorspace = box.CSSRGB
	case ColorSpaceSYCC:
		colorspace = box.CSYCbCr1
	case ColorSpaceYCbCr2:
		colorspace = box.CSYCbCr2
	case ColorSpaceYCbCr3:
		colorspace = box.CSYCbCr3
	case ColorSpacePhotoYCC:
		colorspace = box.CSPhotoYCC
	case ColorSpaceCMY:
		colorspace = box.CSCMY
	case ColorSpaceCMYK:
		colorspace = box.CSCMYK
	case ColorSpaceYCCK:
		colorspace = box.CSYCCK
	case ColorSpaceCIELab:
		colorspace = box.CSCIELab
	case ColorSpaceCIEJab:
		colorspace = box.CSCIEJab
	case ColorSpaceESRGB:
		colorspace = box.CSeSRGB
	case ColorSpaceROMMRGB:
		colorspace = box.CSROMMRGB
	case ColorSpaceYPbPr60:
		colorspace = box.CSYPbPr1125
	case ColorSpaceYPbPr50:
		colorspace = box.CSYPbPr1250
	case ColorSpaceEYCC:
		colorspace = box.CSeSYCC
	default:
		// Default based on number of components
		if e.numComponents == 1 {
			colorspace = box.CSGray
		} else {
			// 3 or 4 components default to sRGB (4th component is alpha)
			colorspace = box.CSSRGB
		}
	}

	// Write JP2 header
	jp2hBox := box.CreateJP2Header(
		uint32(e.width),
		uint32(e.height),
		uint16(e.numComponents),
		uint8(e.precision-1),
		colorspace,
	)
	if err := boxWriter.WriteBox(jp2hBox); err != nil {
		return err
	}

	// Write codestream
	jp2cBox := box.CreateCodestreamBox(codestream)
	if err := boxWriter.WriteBox(jp2cBox); err != nil {
		return err
	}

	return nil
}

// Ensure encoder implements required interfaces
var _ color.Model = (*encoder)(nil).colorModel()

func (e *encoder) colorModel() color.Model {
	return nil
}
