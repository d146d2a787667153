// Package sf2test builds small SoundFont images in memory for tests.
package sf2test

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/cbegin/sf2synth-go/internal/sf2"
)

// Gen is one generator of a zone.
type Gen struct {
	Oper   sf2.Generator
	Amount sf2.Amount
}

// G returns a signed generator.
func G(oper sf2.Generator, v int) Gen { return Gen{Oper: oper, Amount: sf2.IntAmount(v)} }

// R returns a key or velocity range generator.
func R(oper sf2.Generator, lo, hi int) Gen {
	return Gen{Oper: oper, Amount: sf2.RangeAmount(uint8(lo), uint8(hi))}
}

// Zone lists generators in file order, link generator included.
type Zone struct {
	Gens []Gen
	Mods []sf2.Modulator
}

type Preset struct {
	Name    string
	Program int
	Bank    int
	Zones   []Zone
}

type Instrument struct {
	Name  string
	Zones []Zone
}

// Sample is PCM data plus header fields. Loop points are relative to the
// first frame of Data.
type Sample struct {
	Name       string
	Data       []int16
	LoopStart  int
	LoopEnd    int
	Rate       int
	Root       int
	Correction int
	Type       sf2.SampleType
}

// Builder assembles an SF2 image.
type Builder struct {
	Name        string
	Presets     []Preset
	Instruments []Instrument
	Samples     []Sample

	// Override replaces a chunk payload by tag; a nil payload drops the chunk.
	Override map[string][]byte
	// ExtraInfo and ExtraHydra are appended to the INFO and pdta lists.
	ExtraInfo  [][]byte
	ExtraHydra [][]byte
}

func (b *Builder) chunk(tag string, data []byte) []byte {
	if v, ok := b.Override[tag]; ok {
		if v == nil {
			return nil
		}
		data = v
	}
	return Chunk(tag, data)
}

// Bytes serializes the bank. Each sample is followed by 46 zero frames as
// SF2 requires.
func (b *Builder) Bytes() []byte {
	var smpl bytes.Buffer
	var shdr bytes.Buffer
	pos := 0
	for _, s := range b.Samples {
		for _, v := range s.Data {
			_ = binary.Write(&smpl, binary.LittleEndian, v)
		}
		smpl.Write(make([]byte, 46*2))
		start := pos
		end := pos + len(s.Data)
		rate := s.Rate
		if rate == 0 {
			rate = 44100
		}
		typ := s.Type
		if typ == 0 {
			typ = sf2.SampleMono
		}
		writeName(&shdr, s.Name)
		writeU32(&shdr, uint32(start), uint32(end), uint32(start+s.LoopStart), uint32(start+s.LoopEnd), uint32(rate))
		shdr.WriteByte(uint8(s.Root))
		shdr.WriteByte(uint8(int8(s.Correction)))
		writeU16(&shdr, 0, uint16(typ))
		pos = end + 46
	}
	writeName(&shdr, "EOS")
	shdr.Write(make([]byte, 26))

	var phdr, pbag, pmod, pgen bytes.Buffer
	bagIdx, genIdx, modIdx := 0, 0, 0
	for _, p := range b.Presets {
		writeName(&phdr, p.Name)
		writeU16(&phdr, uint16(p.Program), uint16(p.Bank), uint16(bagIdx))
		writeU32(&phdr, 0, 0, 0)
		for _, z := range p.Zones {
			writeU16(&pbag, uint16(genIdx), uint16(modIdx))
			genIdx += writeGens(&pgen, z.Gens)
			modIdx += writeMods(&pmod, z.Mods)
			bagIdx++
		}
	}
	writeName(&phdr, "EOP")
	writeU16(&phdr, 0, 0, uint16(bagIdx))
	writeU32(&phdr, 0, 0, 0)
	writeU16(&pbag, uint16(genIdx), uint16(modIdx))
	pmod.Write(make([]byte, 10))
	pgen.Write(make([]byte, 4))

	var inst, ibag, imod, igen bytes.Buffer
	bagIdx, genIdx, modIdx = 0, 0, 0
	for _, in := range b.Instruments {
		writeName(&inst, in.Name)
		writeU16(&inst, uint16(bagIdx))
		for _, z := range in.Zones {
			writeU16(&ibag, uint16(genIdx), uint16(modIdx))
			genIdx += writeGens(&igen, z.Gens)
			modIdx += writeMods(&imod, z.Mods)
			bagIdx++
		}
	}
	writeName(&inst, "EOI")
	writeU16(&inst, uint16(bagIdx))
	writeU16(&ibag, uint16(genIdx), uint16(modIdx))
	imod.Write(make([]byte, 10))
	igen.Write(make([]byte, 4))

	name := b.Name
	if name == "" {
		name = "Test Bank"
	}
	var ifil bytes.Buffer
	writeU16(&ifil, 2, 1)

	info := List("INFO", append([][]byte{
		b.chunk("ifil", ifil.Bytes()),
		b.chunk("isng", zstr("EMU8000")),
		b.chunk("INAM", zstr(name)),
	}, b.ExtraInfo...)...)
	sdta := List("sdta", b.chunk("smpl", smpl.Bytes()))
	pdta := List("pdta", append([][]byte{
		b.chunk("phdr", phdr.Bytes()),
		b.chunk("pbag", pbag.Bytes()),
		b.chunk("pmod", pmod.Bytes()),
		b.chunk("pgen", pgen.Bytes()),
		b.chunk("inst", inst.Bytes()),
		b.chunk("ibag", ibag.Bytes()),
		b.chunk("imod", imod.Bytes()),
		b.chunk("igen", igen.Bytes()),
		b.chunk("shdr", shdr.Bytes()),
	}, b.ExtraHydra...)...)
	return RIFF("sfbk", info, sdta, pdta)
}

// Chunk encodes a leaf chunk with padding.
func Chunk(tag string, data []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString(tag)
	writeU32(&buf, uint32(len(data)))
	buf.Write(data)
	if len(data)%2 == 1 {
		buf.WriteByte(0)
	}
	return buf.Bytes()
}

// List encodes a LIST chunk of the given type.
func List(kind string, children ...[]byte) []byte {
	body := []byte(kind)
	for _, c := range children {
		body = append(body, c...)
	}
	return Chunk("LIST", body)
}

// RIFF encodes the outer container.
func RIFF(form string, children ...[]byte) []byte {
	body := []byte(form)
	for _, c := range children {
		body = append(body, c...)
	}
	return Chunk("RIFF", body)
}

// Sine returns n frames of a full-scale sine with the given period.
func Sine(n, period int) []int16 {
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(math.Round(32000 * math.Sin(2*math.Pi*float64(i)/float64(period))))
	}
	return out
}

// Fixture is the canonical test bank:
//
//	sample 0 "Sine"   2048 frames, loop [1000, 2000), root 60
//	sample 1 "Click"   512 frames, no loop, root 60, -5 cents
//	instrument 0 "Lead"  global attack/release, two key-split zones
//	instrument 1 "Kit"   exclusive class 1 on keys 42 and 46
//	preset 0:0 "Lead"   global attenuation, coarse tune on the zone
//	preset 128:0 "Drums"
func Fixture() []byte {
	b := &Builder{
		Name: "Fixture",
		Samples: []Sample{
			{Name: "Sine", Data: Sine(2048, 100), LoopStart: 1000, LoopEnd: 2000, Root: 60},
			{Name: "Click", Data: Sine(512, 16), Root: 60, Correction: -5},
		},
		Instruments: []Instrument{
			{Name: "Lead", Zones: []Zone{
				{Gens: []Gen{G(sf2.AttackVolEnv, -7973), G(sf2.ReleaseVolEnv, -3986)}},
				{Gens: []Gen{R(sf2.KeyRange, 0, 63), G(sf2.SampleModes, 1), G(sf2.SampleID, 0)}},
				{Gens: []Gen{R(sf2.KeyRange, 64, 127), G(sf2.Pan, -200), G(sf2.OverridingRootKey, 72), G(sf2.SampleModes, 1), G(sf2.SampleID, 0)}},
			}},
			{Name: "Kit", Zones: []Zone{
				{Gens: []Gen{R(sf2.KeyRange, 42, 42), G(sf2.ExclusiveClass, 1), G(sf2.SampleID, 1)}},
				{Gens: []Gen{R(sf2.KeyRange, 46, 46), G(sf2.ExclusiveClass, 1), G(sf2.SampleID, 1)}},
				{Gens: []Gen{R(sf2.KeyRange, 36, 36), G(sf2.SampleID, 1)}},
			}},
		},
		Presets: []Preset{
			{Name: "Lead", Program: 0, Bank: 0, Zones: []Zone{
				{Gens: []Gen{G(sf2.InitialAttenuation, 60)}},
				{Gens: []Gen{G(sf2.CoarseTune, 2), G(sf2.StartAddrsOffset, 50), G(sf2.InstrumentID, 0)}},
			}},
			{Name: "Drums", Program: 0, Bank: 128, Zones: []Zone{
				{Gens: []Gen{R(sf2.KeyRange, 35, 50), G(sf2.InstrumentID, 1)}},
			}},
		},
	}
	return b.Bytes()
}

func writeName(buf *bytes.Buffer, name string) {
	var b [20]byte
	copy(b[:19], name)
	buf.Write(b[:])
}

func writeU16(buf *bytes.Buffer, vs ...uint16) {
	for _, v := range vs {
		_ = binary.Write(buf, binary.LittleEndian, v)
	}
}

func writeU32(buf *bytes.Buffer, vs ...uint32) {
	for _, v := range vs {
		_ = binary.Write(buf, binary.LittleEndian, v)
	}
}

func writeGens(buf *bytes.Buffer, gens []Gen) int {
	for _, g := range gens {
		writeU16(buf, uint16(g.Oper), uint16(g.Amount))
	}
	return len(gens)
}

func writeMods(buf *bytes.Buffer, mods []sf2.Modulator) int {
	for _, m := range mods {
		writeU16(buf, uint16(m.Source), m.Dest, uint16(m.Amount), uint16(m.AmountSource), uint16(m.Transform))
	}
	return len(mods)
}

func zstr(s string) []byte {
	b := []byte(s)
	b = append(b, 0)
	if len(b)%2 == 1 {
		b = append(b, 0)
	}
	return b
}

// MustDecode decodes data or panics.
func MustDecode(data []byte) *sf2.Bank {
	bank, err := sf2.Decode(data)
	if err != nil {
		panic(err)
	}
	return bank
}
