package sf2

import (
	"bytes"
	"encoding/binary"

	"github.com/go-audio/riff"
)

// Record widths of the pdta sub-chunks.
const (
	presetHeaderSize = 38
	bagSize          = 4
	modulatorSize    = 10
	generatorSize    = 4
	instrumentSize   = 22
	sampleHeaderSize = 46
)

var (
	listID = [4]byte{'L', 'I', 'S', 'T'}
	sfbkID = [4]byte{'s', 'f', 'b', 'k'}
)

// chunk is a RIFF chunk located inside the bank buffer.
type chunk struct {
	id     [4]byte
	offset int // offset of the chunk header in the bank buffer
	data   []byte
}

func (c chunk) tag() string { return string(c.id[:]) }

// dataOffset is the absolute offset of the chunk payload.
func (c chunk) dataOffset() int { return c.offset + 8 }

// readChunk decodes the chunk header at offset. buf must end where the
// enclosing container ends so children cannot spill over their parent.
func readChunk(buf []byte, offset int) (chunk, int, error) {
	if offset+8 > len(buf) {
		return chunk{}, 0, formatError("", offset, "truncated chunk header")
	}
	var c chunk
	copy(c.id[:], buf[offset:offset+4])
	c.offset = offset
	size := int64(binary.LittleEndian.Uint32(buf[offset+4 : offset+8]))
	start := offset + 8
	if size > int64(len(buf)-start) {
		return chunk{}, 0, formatError(c.tag(), offset, "declared size %d exceeds the %d bytes available", size, len(buf)-start)
	}
	c.data = buf[start : start+int(size)]
	next := start + int(size)
	if size&1 == 1 && next < len(buf) {
		next++
	}
	return c, next, nil
}

// children walks the sub-chunks of a LIST payload.
func children(list chunk, fn func(chunk) error) error {
	region := list.data[4:]
	base := list.dataOffset() + 4
	for off := 0; off < len(region); {
		c, next, err := readChunk(region, off)
		if err != nil {
			return rebase(err, base)
		}
		c.offset += base
		if err := fn(c); err != nil {
			return err
		}
		off = next
	}
	return nil
}

func rebase(err error, base int) error {
	if fe, ok := err.(*FormatError); ok {
		fe.Offset += base
	}
	return err
}

// rawBank is the flat record view of a bank before zones are assembled.
type rawBank struct {
	info Info
	pcm  []int16

	presets     []presetRecord
	presetBags  []bagRecord
	presetMods  []Modulator
	presetGens  []GeneratorRecord
	instruments []instrumentRecord
	instBags    []bagRecord
	instMods    []Modulator
	instGens    []GeneratorRecord
	samples     []SampleHeader

	// payload offsets per pdta tag for diagnostics
	offsets map[string]int
}

type presetRecord struct {
	name       string
	program    uint16
	bank       uint16
	bagIndex   uint16
	library    uint32
	genre      uint32
	morphology uint32
}

type bagRecord struct {
	genIndex uint16
	modIndex uint16
}

type instrumentRecord struct {
	name     string
	bagIndex uint16
}

var requiredHydra = [...]string{"phdr", "pbag", "pmod", "pgen", "inst", "ibag", "imod", "igen", "shdr"}

// decodeRaw walks the RIFF structure and decodes every record array.
func decodeRaw(buf []byte) (*rawBank, error) {
	top, _, err := readChunk(buf, 0)
	if err != nil {
		return nil, err
	}
	if top.id != riff.RiffID {
		return nil, formatError(top.tag(), 0, "not a RIFF file")
	}
	if len(top.data) < 4 || !bytes.Equal(top.data[:4], sfbkID[:]) {
		return nil, formatError(top.tag(), 8, "form type is not sfbk")
	}

	raw := &rawBank{offsets: make(map[string]int, len(requiredHydra))}
	seenSamples := false
	seenHydra := false
	err = children(top, func(list chunk) error {
		if list.id != listID {
			return formatError(list.tag(), list.offset, "unexpected top-level chunk")
		}
		if len(list.data) < 4 {
			return formatError(list.tag(), list.offset, "LIST without a type")
		}
		switch kind := string(list.data[:4]); kind {
		case "INFO":
			return children(list, raw.decodeInfo)
		case "sdta":
			seenSamples = true
			return children(list, raw.decodeSampleData)
		case "pdta":
			seenHydra = true
			return children(list, raw.decodeHydra)
		default:
			return formatError(kind, list.offset, "unknown LIST type")
		}
	})
	if err != nil {
		return nil, err
	}
	if !seenSamples {
		return nil, formatError("sdta", len(buf), "missing sample data list")
	}
	if !seenHydra {
		return nil, formatError("pdta", len(buf), "missing preset data list")
	}
	for _, tag := range requiredHydra {
		if _, ok := raw.offsets[tag]; !ok {
			return nil, formatError(tag, len(buf), "missing required chunk")
		}
	}
	return raw, nil
}

func (r *rawBank) decodeInfo(c chunk) error {
	switch c.tag() {
	case "ifil":
		v, err := decodeVersion(c)
		r.info.Version = v
		return err
	case "iver":
		v, err := decodeVersion(c)
		r.info.ROMVersion = v
		return err
	case "isng":
		r.info.Engine = cString(c.data)
	case "INAM":
		r.info.Name = cString(c.data)
	case "irom":
		r.info.ROMName = cString(c.data)
	case "ICRD":
		r.info.Created = cString(c.data)
	case "IENG":
		r.info.Engineers = cString(c.data)
	case "IPRD":
		r.info.Product = cString(c.data)
	case "ICOP":
		r.info.Copyright = cString(c.data)
	case "ICMT":
		r.info.Comment = cString(c.data)
	case "ISFT":
		r.info.Software = cString(c.data)
	}
	return nil
}

func decodeVersion(c chunk) (Version, error) {
	if len(c.data) != 4 {
		return Version{}, formatError(c.tag(), c.offset, "version chunk is %d bytes, want 4", len(c.data))
	}
	return Version{
		Major: binary.LittleEndian.Uint16(c.data[0:2]),
		Minor: binary.LittleEndian.Uint16(c.data[2:4]),
	}, nil
}

func (r *rawBank) decodeSampleData(c chunk) error {
	if c.tag() != "smpl" {
		// sm24 and vendor chunks carry nothing this engine plays.
		return nil
	}
	if len(c.data)%2 != 0 {
		return formatError(c.tag(), c.offset, "odd sample data size %d", len(c.data))
	}
	pcm := make([]int16, len(c.data)/2)
	for i := range pcm {
		pcm[i] = int16(binary.LittleEndian.Uint16(c.data[i*2:]))
	}
	r.pcm = pcm
	return nil
}

func (r *rawBank) decodeHydra(c chunk) error {
	var err error
	switch tag := c.tag(); tag {
	case "phdr":
		r.presets, err = decodeRecords(c, presetHeaderSize, func(b []byte) presetRecord {
			return presetRecord{
				name:       cString(b[0:20]),
				program:    binary.LittleEndian.Uint16(b[20:]),
				bank:       binary.LittleEndian.Uint16(b[22:]),
				bagIndex:   binary.LittleEndian.Uint16(b[24:]),
				library:    binary.LittleEndian.Uint32(b[26:]),
				genre:      binary.LittleEndian.Uint32(b[30:]),
				morphology: binary.LittleEndian.Uint32(b[34:]),
			}
		})
	case "pbag":
		r.presetBags, err = decodeRecords(c, bagSize, decodeBag)
	case "pmod":
		r.presetMods, err = decodeRecords(c, modulatorSize, decodeModulator)
	case "pgen":
		r.presetGens, err = decodeRecords(c, generatorSize, decodeGenerator)
	case "inst":
		r.instruments, err = decodeRecords(c, instrumentSize, func(b []byte) instrumentRecord {
			return instrumentRecord{name: cString(b[0:20]), bagIndex: binary.LittleEndian.Uint16(b[20:])}
		})
	case "ibag":
		r.instBags, err = decodeRecords(c, bagSize, decodeBag)
	case "imod":
		r.instMods, err = decodeRecords(c, modulatorSize, decodeModulator)
	case "igen":
		r.instGens, err = decodeRecords(c, generatorSize, decodeGenerator)
	case "shdr":
		r.samples, err = decodeRecords(c, sampleHeaderSize, decodeSampleHeader)
	default:
		return nil
	}
	if err != nil {
		return err
	}
	r.offsets[c.tag()] = c.dataOffset()
	return nil
}

func decodeRecords[T any](c chunk, width int, fn func([]byte) T) ([]T, error) {
	if len(c.data)%width != 0 {
		return nil, formatError(c.tag(), c.offset, "size %d is not a multiple of the %d byte record", len(c.data), width)
	}
	out := make([]T, len(c.data)/width)
	for i := range out {
		out[i] = fn(c.data[i*width : (i+1)*width])
	}
	return out, nil
}

func decodeBag(b []byte) bagRecord {
	return bagRecord{
		genIndex: binary.LittleEndian.Uint16(b[0:]),
		modIndex: binary.LittleEndian.Uint16(b[2:]),
	}
}

func decodeModulator(b []byte) Modulator {
	return Modulator{
		Source:       Source(binary.LittleEndian.Uint16(b[0:])),
		Dest:         binary.LittleEndian.Uint16(b[2:]),
		Amount:       int16(binary.LittleEndian.Uint16(b[4:])),
		AmountSource: Source(binary.LittleEndian.Uint16(b[6:])),
		Transform:    Transform(binary.LittleEndian.Uint16(b[8:])),
	}
}

func decodeGenerator(b []byte) GeneratorRecord {
	return GeneratorRecord{
		Oper:   Generator(binary.LittleEndian.Uint16(b[0:])),
		Amount: Amount(binary.LittleEndian.Uint16(b[2:])),
	}
}

func decodeSampleHeader(b []byte) SampleHeader {
	return SampleHeader{
		Name:            cString(b[0:20]),
		Start:           binary.LittleEndian.Uint32(b[20:]),
		End:             binary.LittleEndian.Uint32(b[24:]),
		LoopStart:       binary.LittleEndian.Uint32(b[28:]),
		LoopEnd:         binary.LittleEndian.Uint32(b[32:]),
		SampleRate:      binary.LittleEndian.Uint32(b[36:]),
		OriginalPitch:   b[40],
		PitchCorrection: int8(b[41]),
		Link:            binary.LittleEndian.Uint16(b[42:]),
		Type:            SampleType(binary.LittleEndian.Uint16(b[44:])),
	}
}

// cString returns the text before the first NUL with trailing spaces removed.
func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(bytes.TrimRight(b, " "))
}
