package modulation

import (
	"math"

	"github.com/cbegin/sf2synth-go/internal/sf2"
)

// MaxModulators bounds the modulators one voice evaluates.
const MaxModulators = 64

// Zones are the four zones that feed one voice. Either global may be nil.
type Zones struct {
	PresetGlobal     *sf2.Zone
	Preset           *sf2.Zone
	InstrumentGlobal *sf2.Zone
	Instrument       *sf2.Zone
}

type voiceMod struct {
	mod sf2.Modulator
	// dest is out of range for linked modulators, which feed mods[link].
	dest sf2.Generator
	link int
	// input carries the summed output of modulators linked into this one.
	input float64
}

// State holds the resolved generator values of one voice. All storage is
// fixed size so Prepare and Update never allocate.
type State struct {
	channel  *ChannelState
	key      int
	velocity int

	base   [sf2.NumGenerators]float64
	values [sf2.NumGenerators]float64

	mods     [MaxModulators]voiceMod
	modCount int
	// remap translates zone-local modulator indices while merging.
	remap [MaxModulators]int
}

// Prepare resolves zones into base values and the modulator list, then
// evaluates the modulators once.
func (s *State) Prepare(z Zones, ch *ChannelState, key, velocity int) {
	s.channel = ch
	s.key = key
	s.velocity = velocity
	s.modCount = 0

	for g := 0; g < sf2.NumGenerators; g++ {
		s.base[g] = float64(sf2.Generator(g).Definition().Default)
	}
	s.applyInstrument(z.InstrumentGlobal)
	s.applyInstrument(z.Instrument)
	for g := sf2.Generator(0); int(g) < sf2.NumGenerators; g++ {
		if g.Policy() != sf2.PolicyAdditive {
			continue
		}
		if a, ok := presetAmount(z, g); ok {
			s.base[g] += float64(a.Int())
		}
	}

	if k := int(s.base[sf2.Keynum]); k >= 0 && k <= 127 {
		s.key = k
	}
	if v := int(s.base[sf2.Velocity]); v >= 0 && v <= 127 {
		s.velocity = v
	}

	for _, m := range sf2.DefaultModulators {
		s.mergeMod(m, false)
	}
	s.mergeZoneMods(z.InstrumentGlobal, z.Instrument, false)
	s.mergeZoneMods(z.PresetGlobal, z.Preset, true)
	s.Update()
}

func (s *State) applyInstrument(z *sf2.Zone) {
	if z == nil {
		return
	}
	for g := 0; g < sf2.NumGenerators; g++ {
		gen := sf2.Generator(g)
		if gen.Policy() == sf2.PolicyRange || gen.Policy() == sf2.PolicyLink {
			continue
		}
		if z.Generators.Has(gen) {
			s.base[g] = float64(z.Generators.Value(gen))
		}
	}
}

// presetAmount returns the preset-level adjustment for g; a local zone value
// replaces the preset global one.
func presetAmount(z Zones, g sf2.Generator) (sf2.Amount, bool) {
	if z.Preset != nil {
		if a, ok := z.Preset.Generators.Amount(g); ok {
			return a, true
		}
	}
	if z.PresetGlobal != nil {
		return z.PresetGlobal.Generators.Amount(g)
	}
	return 0, false
}

// mergeZoneMods folds a global and local modulator list into the voice.
// Local modulators replace identical global ones. At the instrument level the
// result replaces identical defaults; at the preset level it is added.
func (s *State) mergeZoneMods(global, local *sf2.Zone, additive bool) {
	if global == nil && local == nil {
		return
	}
	var localMods []sf2.Modulator
	if local != nil {
		localMods = local.Modulators
	}
	if global != nil {
		for i, m := range global.Modulators {
			if i < MaxModulators {
				s.remap[i] = -1
			}
			if containsIdentical(localMods, m) {
				continue
			}
			idx := s.mergeMod(m, additive)
			if i < MaxModulators {
				s.remap[i] = idx
			}
		}
		s.fixLinks(global.Modulators)
	}
	for i, m := range localMods {
		if i < MaxModulators {
			s.remap[i] = -1
		}
		idx := s.mergeMod(m, additive)
		if i < MaxModulators {
			s.remap[i] = idx
		}
	}
	s.fixLinks(localMods)
}

func containsIdentical(list []sf2.Modulator, m sf2.Modulator) bool {
	for _, o := range list {
		if o.Identical(m) {
			return true
		}
	}
	return false
}

// mergeMod stores m and returns its voice-level index, or -1 when dropped.
func (s *State) mergeMod(m sf2.Modulator, additive bool) int {
	if !m.Usable() {
		return -1
	}
	dest := sf2.Generator(math.MaxUint16)
	if g, ok := m.Destination(); ok {
		dest = g
	}
	for i := 0; i < s.modCount; i++ {
		if s.mods[i].mod.Identical(m) {
			if additive {
				s.mods[i].mod.Amount = saturate16(int(s.mods[i].mod.Amount) + int(m.Amount))
			} else {
				s.mods[i].mod = m
			}
			return i
		}
	}
	if s.modCount == MaxModulators {
		return -1
	}
	s.mods[s.modCount] = voiceMod{mod: m, dest: dest, link: -1}
	s.modCount++
	return s.modCount - 1
}

// fixLinks points linked modulators merged from list at the voice-level index
// of their zone-local target.
func (s *State) fixLinks(list []sf2.Modulator) {
	for i, m := range list {
		if i >= MaxModulators {
			return
		}
		target, ok := m.LinkTarget()
		idx := s.remap[i]
		if !ok || idx < 0 {
			continue
		}
		s.mods[idx].link = -1
		if target < len(list) && target < MaxModulators && s.remap[target] >= 0 && target != i {
			s.mods[idx].link = s.remap[target]
		}
	}
}

func saturate16(v int) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}

// Update re-evaluates every modulator against the current channel state and
// recomputes the generator values.
func (s *State) Update() {
	var sums [sf2.NumGenerators]float64
	for i := 0; i < s.modCount; i++ {
		s.mods[i].input = 0
	}
	// Modulators reading a link source run after the ones feeding them.
	for pass := 0; pass < 2; pass++ {
		for i := 0; i < s.modCount; i++ {
			vm := &s.mods[i]
			if vm.mod.Source.IsLink() != (pass == 1) {
				continue
			}
			out := s.evaluate(vm)
			switch {
			case vm.link >= 0:
				s.mods[vm.link].input += out
			case int(vm.dest) < sf2.NumGenerators:
				sums[vm.dest] += out
			}
		}
	}
	for g := 0; g < sf2.NumGenerators; g++ {
		gen := sf2.Generator(g)
		v := gen.Clamp(s.base[g]+float64(s.channelNRPN(gen))) + sums[g]
		s.values[g] = clampModulated(gen, v)
	}
}

func (s *State) channelNRPN(g sf2.Generator) int32 {
	if s.channel == nil {
		return 0
	}
	return s.channel.NRPNOffset(g)
}

// clampModulated bounds a modulated value. Pitch accumulators may exceed
// their file range since the pitch wheel drives fineTune.
func clampModulated(g sf2.Generator, v float64) float64 {
	switch g {
	case sf2.FineTune, sf2.CoarseTune:
		return math.Max(-12700, math.Min(12700, v))
	}
	return g.Clamp(v)
}

func (s *State) evaluate(vm *voiceMod) float64 {
	m := vm.mod
	src := s.sourceValue(m.Source, vm.input)
	if src == 0 {
		return 0
	}
	amt := 1.0
	if !m.AmountSource.None() {
		amt = s.sourceValue(m.AmountSource, 0)
	}
	out := src * amt * float64(m.Amount)
	if m.Transform == sf2.TransformAbsolute {
		out = math.Abs(out)
	}
	return out
}

// sourceValue returns the curve-mapped value of a source. linkInput is used
// for link sources and is already a summed modulator output.
func (s *State) sourceValue(src sf2.Source, linkInput float64) float64 {
	if src.None() {
		return 0
	}
	var raw int
	switch {
	case src.CC():
		if s.channel != nil {
			raw = s.channel.Controller(src.Index())
		}
	case src.IsLink():
		return linkInput
	default:
		switch src.Index() {
		case sf2.SourceNoteOnVelocity:
			raw = s.velocity
		case sf2.SourceNoteOnKey:
			raw = s.key
		case sf2.SourcePolyPressure:
			if s.channel != nil {
				raw = s.channel.KeyPressure(s.key)
			}
		case sf2.SourceChannelPressure:
			if s.channel != nil {
				raw = s.channel.ChannelPressure()
			}
		case sf2.SourcePitchWheel:
			raw = PitchWheelCenter >> 7
			if s.channel != nil {
				raw = s.channel.PitchWheel() >> 7
			}
		case sf2.SourcePitchWheelSensitivity:
			raw = defaultBend / 100
			if s.channel != nil {
				raw = s.channel.BendRange() / 100
			}
		}
	}
	return Curve(src, raw)
}

// Value returns the current value of g including modulation.
func (s *State) Value(g sf2.Generator) float64 {
	if int(g) >= sf2.NumGenerators {
		return 0
	}
	return s.values[g]
}

// Int returns Value rounded toward zero.
func (s *State) Int(g sf2.Generator) int { return int(s.Value(g)) }

// Base returns the zone-resolved value of g before modulation.
func (s *State) Base(g sf2.Generator) float64 {
	if int(g) >= sf2.NumGenerators {
		return 0
	}
	return s.base[g]
}

// Key is the effective key after any keynum override.
func (s *State) Key() int { return s.key }

// Velocity is the effective velocity after any velocity override.
func (s *State) Velocity() int { return s.velocity }

// ModulatorCount returns the number of live modulators.
func (s *State) ModulatorCount() int { return s.modCount }

// Modulator returns live modulator i.
func (s *State) Modulator(i int) sf2.Modulator { return s.mods[i].mod }
