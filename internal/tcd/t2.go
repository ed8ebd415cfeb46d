// Package tcd - t2.go implements Tier-2 packet coding.
//
// Tier-2 handles the organization of code-block data into packets
// according to the progression order. Each packet contains data for
// a specific layer, resolution, component, and precinct.
package tcd

import (
	"encoding/binary"
	"io"

	"github.com/tilewave/jp2k/internal/bio"
	"github.com/tilewave/jp2k/internal/codestream"
	"github.com/tilewave/jp2k/internal/errs"
)

// PacketIterator iterates over packets in progression order.
type PacketIterator struct {
	// Image parameters
	numComponents  int
	numResolutions int
	numLayers      int
	precincts      [][][]int // [component][resolution]numPrecincts

	// Current position
	layer      int
	resolution int
	component  int
	precinct   int

	// Progression order
	order codestream.ProgressionOrder

	// Bounds
	resStart, resEnd   int
	compStart, compEnd int
	layStart, layEnd   int
}

// NewPacketIterator creates a packet iterator.
func NewPacketIterator(
	numComponents, numResolutions, numLayers int,
	precincts [][][]int,
	order codestream.ProgressionOrder,
) *PacketIterator {
	return &PacketIterator{
		numComponents:  numComponents,
		numResolutions: numResolutions,
		numLayers:      numLayers,
		precincts:      precincts,
		order:          order,
		resEnd:         numResolutions,
		compEnd:        numComponents,
		layEnd:         numLayers,
	}
}

// Packet represents the current packet position.
type Packet struct {
	Layer      int
	Resolution int
	Component  int
	Precinct   int
}

// Next advances to the next packet position.
// Returns false when all packets have been visited.
func (pi *PacketIterator) Next() (Packet, bool) {
	if !pi.hasMore() {
		return Packet{}, false
	}

	p := Packet{
		Layer:      pi.layer,
		Resolution: pi.resolution,
		Component:  pi.component,
		Precinct:   pi.precinct,
	}

	pi.advance()
	return p, true
}

func (pi *PacketIterator) hasMore() bool {
	switch pi.order {
	case codestream.LRCP:
		return pi.layer < pi.layEnd
	case codestream.RLCP:
		return pi.resolution < pi.resEnd
	case codestream.RPCL:
		return pi.resolution < pi.resEnd
	case codestream.PCRL:
		return pi.precinct < pi.maxPrecincts()
	case codestream.CPRL:
		return pi.component < pi.compEnd
	}
	return false
}

func (pi *PacketIterator) maxPrecincts() int {
	max := 0
	for c := 0; c < pi.numComponents; c++ {
		for r := 0; r < pi.numResolutions; r++ {
			if len(pi.precincts) > c && len(pi.precincts[c]) > r {
				if pi.precincts[c][r][0] > max {
					max = pi.precincts[c][r][0]
				}
			}
		}
	}
	return max
}

func (pi *PacketIterator) advance() {
	switch pi.order {
	case codestream.LRCP:
		pi.advanceLRCP()
	case codestream.RLCP:
		pi.advanceRLCP()
	case codestream.RPCL:
		pi.advanceRPCL()
	case codestream.PCRL:
		pi.advancePCRL()
	case codestream.CPRL:
		pi.advanceCPRL()
	}
}

func (pi *PacketIterator) numPrecinctsAt(comp, res int) int {
	if len(pi.precincts) > comp && len(pi.precincts[comp]) > res {
		return pi.precincts[comp][res][0]
	}
	return 1
}

func (pi *PacketIterator) advanceLRCP() {
	pi.precinct++
	if pi.precinct >= pi.numPrecinctsAt(pi.component, pi.resolution) {
		pi.precinct = 0
		pi.component++
		if pi.component >= pi.compEnd {
			pi.component = pi.compStart
			pi.resolution++
			if pi.resolution >= pi.resEnd {
				pi.resolution = pi.resStart
				pi.layer++
			}
		}
	}
}

func (pi *PacketIterator) advanceRLCP() {
	pi.precinct++
	if pi.precinct >= pi.numPrecinctsAt(pi.component, pi.resolution) {
		pi.precinct = 0
		pi.component++
		if pi.component >= pi.compEnd {
			pi.component = pi.compStart
			pi.layer++
			if pi.layer >= pi.layEnd {
				pi.layer = pi.layStart
				pi.resolution++
			}
		}
	}
}

func (pi *PacketIterator) advanceRPCL() {
	pi.layer++
	if pi.layer >= pi.layEnd {
		pi.layer = pi.layStart
		pi.component++
		if pi.component >= pi.compEnd {
			pi.component = pi.compStart
			pi.precinct++
			if pi.precinct >= pi.numPrecinctsAt(pi.component, pi.resolution) {
				pi.precinct = 0
				pi.resolution++
			}
		}
	}
}

func (pi *PacketIterator) advancePCRL() {
	pi.layer++
	if pi.layer >= pi.layEnd {
		pi.layer = pi.layStart
		pi.resolution++
		if pi.resolution >= pi.resEnd {
			pi.resolution = pi.resStart
			pi.component++
			if pi.component >= pi.compEnd {
				pi.component = pi.compStart
				pi.precinct++
			}
		}
	}
}

func (pi *PacketIterator) advanceCPRL() {
	pi.layer++
	if pi.layer >= pi.layEnd {
		pi.layer = pi.layStart
		pi.resolution++
		if pi.resolution >= pi.resEnd {
			pi.resolution = pi.resStart
			pi.precinct++
			if pi.precinct >= pi.numPrecinctsAt(pi.component, pi.resolution) {
				pi.precinct = 0
				pi.component++
			}
		}
	}
}

// Reset resets the iterator to the beginning.
func (pi *PacketIterator) Reset() {
	pi.layer = pi.layStart
	pi.resolution = pi.resStart
	pi.component = pi.compStart
	pi.precinct = 0
}

// bitLen returns the number of bits required to hold v in unsigned binary
// (0 for v == 0).
func bitLen(v uint32) int {
	n := 0
	for v > 0 {
		n++
		v >>= 1
	}
	return n
}

// passBits returns floor(log2(n)) for n >= 1, the number of extra length
// bits a code-block's coding-pass count contributes (spec.md §4.7).
func passBits(n int) int {
	b := 0
	for n > 1 {
		n >>= 1
		b++
	}
	return b
}

// PacketEncoder encodes packets to a bit stream.
type PacketEncoder struct {
	w io.Writer
}

// NewPacketEncoder creates a new packet encoder.
func NewPacketEncoder(w io.Writer) *PacketEncoder {
	return &PacketEncoder{w: w}
}

// EncodePacket encodes a single packet.
func (e *PacketEncoder) EncodePacket(
	precinct *Precinct,
	layer int,
	enableSOP bool,
	enableEPH bool,
) error {
	if enableSOP {
		sop := []byte{0xFF, 0x91, 0x00, 0x04, 0x00, 0x00}
		binary.BigEndian.PutUint16(sop[4:], uint16(layer))
		if _, err := e.w.Write(sop); err != nil {
			return err
		}
	}

	if err := e.encodePacketHeader(precinct, layer); err != nil {
		return err
	}

	if enableEPH {
		eph := []byte{0xFF, 0x92}
		if _, err := e.w.Write(eph); err != nil {
			return err
		}
	}

	for _, bandCBs := range precinct.CodeBlocks {
		for _, cb := range bandCBs {
			if cb.IncludedInLayers <= layer && len(cb.Data) > 0 {
				if _, err := e.w.Write(cb.Data); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

func packetHasData(precinct *Precinct, layer int) bool {
	for _, bandCBs := range precinct.CodeBlocks {
		for _, cb := range bandCBs {
			if cb.IncludedInLayers <= layer && len(cb.Data) > 0 {
				return true
			}
		}
	}
	return false
}

// encodePacketHeader encodes the packet header.
func (e *PacketEncoder) encodePacketHeader(precinct *Precinct, layer int) error {
	var buf writeBuf
	w := bio.NewWriter(&buf)

	if !packetHasData(precinct, layer) {
		if err := w.WriteBit(0); err != nil {
			return err
		}
		if err := w.Flush(); err != nil {
			return err
		}
		_, err := e.w.Write(buf)
		return err
	}

	if err := w.WriteBit(1); err != nil {
		return err
	}

	for bandIdx, bandCBs := range precinct.CodeBlocks {
		inclusionTree := precinct.InclusionTrees[bandIdx]
		imsbTree := precinct.IMSBTrees[bandIdx]
		width := precinct.CodeBlocksX[bandIdx]

		for cbIdx, cb := range bandCBs {
			x, y := cbIdx%width, cbIdx/width
			included := cb.IncludedInLayers >= 0 && cb.IncludedInLayers <= layer

			if cb.IncludedInLayers < 0 {
				inclusionTree.SetValue(x, y, tagTreeMaxValue)
			} else {
				inclusionTree.SetValue(x, y, cb.IncludedInLayers)
			}

			firstInclusion := included && cb.IncludedInLayers == layer

			if err := inclusionTree.Encode(w, x, y, layer+1); err != nil {
				return err
			}
			if !included {
				continue
			}

			if firstInclusion {
				imsbTree.SetValue(x, y, cb.ZeroBitPlanes)
				if err := imsbTree.Encode(w, x, y, tagTreeMaxValue); err != nil {
					return err
				}
			}

			numPasses := len(cb.Passes)
			if numPasses == 0 {
				numPasses = 1
			}
			if err := w.PutNumPasses(numPasses); err != nil {
				return err
			}
			if err := encodeBlockLength(w, cb, len(cb.Data), numPasses); err != nil {
				return err
			}
		}
	}

	if err := w.Flush(); err != nil {
		return err
	}
	_, err := e.w.Write(buf)
	return err
}

func encodeBlockLength(w *bio.Writer, cb *CodeBlock, length, numPasses int) error {
	if cb.Lblock == 0 {
		cb.Lblock = 3
	}
	extra := passBits(numPasses)
	before := cb.Lblock
	needed := bitLen(uint32(length))
	for cb.Lblock+extra < needed {
		cb.Lblock++
	}
	if err := w.PutCommaCode(cb.Lblock - before); err != nil {
		return err
	}
	return w.Write(uint32(length), uint(cb.Lblock+extra))
}

func decodeBlockLength(r *bio.Reader, cb *CodeBlock, numPasses int) (int, error) {
	if cb.Lblock == 0 {
		cb.Lblock = 3
	}
	inc, err := r.GetCommaCode()
	if err != nil {
		return 0, err
	}
	cb.Lblock += inc
	extra := passBits(numPasses)
	v, err := r.Read(uint(cb.Lblock + extra))
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

// writeBuf is an io.Writer that accumulates bytes, used to size a packet
// header before it is appended to the output stream.
type writeBuf []byte

func (b *writeBuf) Write(p []byte) (int, error) {
	*b = append(*b, p...)
	return len(p), nil
}

// PacketDecoder decodes packets from a bit stream.
type PacketDecoder struct {
	buf []byte
	pos int
}

// NewPacketDecoder creates a new packet decoder.
func NewPacketDecoder(data []byte) *PacketDecoder {
	return &PacketDecoder{buf: data}
}

// DecodePacket decodes a single packet.
func (d *PacketDecoder) DecodePacket(
	precinct *Precinct,
	layer int,
	sopEnabled bool,
	ephEnabled bool,
) error {
	if sopEnabled {
		if d.pos+6 <= len(d.buf) && d.buf[d.pos] == 0xFF && d.buf[d.pos+1] == 0x91 {
			d.pos += 6
		}
	}

	if err := d.decodePacketHeader(precinct, layer); err != nil {
		return err
	}

	if ephEnabled {
		if d.pos+2 <= len(d.buf) && d.buf[d.pos] == 0xFF && d.buf[d.pos+1] == 0x92 {
			d.pos += 2
		}
	}

	for _, bandCBs := range precinct.CodeBlocks {
		for _, cb := range bandCBs {
			if cb.IncludedInLayers == layer && len(cb.Data) > 0 {
				dataLen := len(cb.Data)
				if d.pos+dataLen > len(d.buf) {
					return errs.New(errs.UnexpectedEOF, nil)
				}
				copy(cb.Data, d.buf[d.pos:d.pos+dataLen])
				d.pos += dataLen
			}
		}
	}

	return nil
}

// decodePacketHeader decodes the packet header.
func (d *PacketDecoder) decodePacketHeader(precinct *Precinct, layer int) error {
	r := bio.NewReader(d.buf[d.pos:])

	present, err := r.ReadBit()
	if err != nil {
		return err
	}
	if present == 0 {
		d.pos += r.BytePos()
		return nil
	}

	for bandIdx, bandCBs := range precinct.CodeBlocks {
		inclusionTree := precinct.InclusionTrees[bandIdx]
		imsbTree := precinct.IMSBTrees[bandIdx]
		width := precinct.CodeBlocksX[bandIdx]

		for cbIdx, cb := range bandCBs {
			x, y := cbIdx%width, cbIdx/width

			included, err := inclusionTree.Decode(r, x, y, layer+1)
			if err != nil {
				return err
			}
			firstInclusion := included && cb.IncludedInLayers < 0
			if firstInclusion {
				cb.IncludedInLayers = layer
			}
			if !included {
				continue
			}

			if firstInclusion {
				_, err := imsbTree.Decode(r, x, y, tagTreeMaxValue)
				if err != nil {
					return err
				}
				cb.ZeroBitPlanes = imsbTree.nodes[0][y*imsbTree.levelWidths[0]+x].value
			}

			numPasses, err := r.GetNumPasses()
			if err != nil {
				return err
			}

			length, err := decodeBlockLength(r, cb, numPasses)
			if err != nil {
				return err
			}

			cb.Passes = make([]CodingPass, numPasses)
			cb.Data = make([]byte, length)
		}
	}

	if err := r.Inalign(); err != nil {
		return err
	}
	d.pos += r.BytePos()
	return nil
}

// Position returns the current position in the data.
func (d *PacketDecoder) Position() int {
	return d.pos
}
