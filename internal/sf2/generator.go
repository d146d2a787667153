package sf2

// Generator identifies an SF2 generator operator (sfGenOper).
type Generator uint16

const (
	StartAddrsOffset Generator = iota
	EndAddrsOffset
	StartLoopAddrsOffset
	EndLoopAddrsOffset
	StartAddrsCoarseOffset
	ModLFOToPitch
	VibLFOToPitch
	ModEnvToPitch
	InitialFilterFc
	InitialFilterQ
	ModLFOToFilterFc
	ModEnvToFilterFc
	EndAddrsCoarseOffset
	ModLFOToVolume
	unused1
	ChorusEffectsSend
	ReverbEffectsSend
	Pan
	unused2
	unused3
	unused4
	DelayModLFO
	FreqModLFO
	DelayVibLFO
	FreqVibLFO
	DelayModEnv
	AttackModEnv
	HoldModEnv
	DecayModEnv
	SustainModEnv
	ReleaseModEnv
	KeynumToModEnvHold
	KeynumToModEnvDecay
	DelayVolEnv
	AttackVolEnv
	HoldVolEnv
	DecayVolEnv
	SustainVolEnv
	ReleaseVolEnv
	KeynumToVolEnvHold
	KeynumToVolEnvDecay
	InstrumentID
	reserved1
	KeyRange
	VelRange
	StartLoopAddrsCoarseOffset
	Keynum
	Velocity
	InitialAttenuation
	reserved2
	EndLoopAddrsCoarseOffset
	CoarseTune
	FineTune
	SampleID
	SampleModes
	reserved3
	ScaleTuning
	ExclusiveClass
	OverridingRootKey
)

// NumGenerators is the number of generator slots a zone or voice can hold.
const NumGenerators = int(OverridingRootKey) + 1

// Policy says how a generator combines across the preset and instrument levels.
type Policy uint8

const (
	// PolicyUnused marks reserved and unused operators; they are ignored.
	PolicyUnused Policy = iota
	// PolicyAdditive generators take the instrument value plus the preset offset.
	PolicyAdditive
	// PolicyInstrumentOnly generators are ignored when they appear in a preset zone.
	PolicyInstrumentOnly
	// PolicyRange generators only take part in zone selection.
	PolicyRange
	// PolicyLink generators terminate a zone and reference an instrument or sample.
	PolicyLink
)

func (p Policy) String() string {
	switch p {
	case PolicyAdditive:
		return "additive"
	case PolicyInstrumentOnly:
		return "instrument-only"
	case PolicyRange:
		return "range"
	case PolicyLink:
		return "link"
	default:
		return "unused"
	}
}

// Unit is the physical unit a generator amount is expressed in.
type Unit uint8

const (
	UnitNone Unit = iota
	UnitSamples
	UnitCoarseSamples
	UnitCents
	UnitAbsoluteCents
	UnitCentibels
	UnitPermille
	UnitTimecents
	UnitSemitones
	UnitKeyRange
	UnitIndex
	UnitFlags
)

// Definition describes one generator operator.
type Definition struct {
	Name   string
	Unit   Unit
	Policy Policy
	Min    int32
	Max    int32
	// Default is the value a voice starts from when no zone sets the generator.
	Default int32
	// NRPNScale multiplies the 14-bit NRPN data value applied to this generator.
	NRPNScale int32
	// Unsigned amounts are read as uint16 rather than int16.
	Unsigned bool
}

const (
	minShort = -32768
	maxShort = 32767
)

var definitions = [NumGenerators]Definition{
	StartAddrsOffset:           {Name: "startAddrsOffset", Unit: UnitSamples, Policy: PolicyInstrumentOnly, Min: minShort, Max: maxShort, NRPNScale: 1},
	EndAddrsOffset:             {Name: "endAddrsOffset", Unit: UnitSamples, Policy: PolicyInstrumentOnly, Min: minShort, Max: maxShort, NRPNScale: 1},
	StartLoopAddrsOffset:       {Name: "startloopAddrsOffset", Unit: UnitSamples, Policy: PolicyInstrumentOnly, Min: minShort, Max: maxShort, NRPNScale: 1},
	EndLoopAddrsOffset:         {Name: "endloopAddrsOffset", Unit: UnitSamples, Policy: PolicyInstrumentOnly, Min: minShort, Max: maxShort, NRPNScale: 1},
	StartAddrsCoarseOffset:     {Name: "startAddrsCoarseOffset", Unit: UnitCoarseSamples, Policy: PolicyInstrumentOnly, Min: minShort, Max: maxShort, NRPNScale: 1},
	ModLFOToPitch:              {Name: "modLfoToPitch", Unit: UnitCents, Policy: PolicyAdditive, Min: -12000, Max: 12000, NRPNScale: 2},
	VibLFOToPitch:              {Name: "vibLfoToPitch", Unit: UnitCents, Policy: PolicyAdditive, Min: -12000, Max: 12000, NRPNScale: 2},
	ModEnvToPitch:              {Name: "modEnvToPitch", Unit: UnitCents, Policy: PolicyAdditive, Min: -12000, Max: 12000, NRPNScale: 2},
	InitialFilterFc:            {Name: "initialFilterFc", Unit: UnitAbsoluteCents, Policy: PolicyAdditive, Min: 1500, Max: 13500, Default: 13500, NRPNScale: 2},
	InitialFilterQ:             {Name: "initialFilterQ", Unit: UnitCentibels, Policy: PolicyAdditive, Min: 0, Max: 960, NRPNScale: 1},
	ModLFOToFilterFc:           {Name: "modLfoToFilterFc", Unit: UnitCents, Policy: PolicyAdditive, Min: -12000, Max: 12000, NRPNScale: 2},
	ModEnvToFilterFc:           {Name: "modEnvToFilterFc", Unit: UnitCents, Policy: PolicyAdditive, Min: -12000, Max: 12000, NRPNScale: 2},
	EndAddrsCoarseOffset:       {Name: "endAddrsCoarseOffset", Unit: UnitCoarseSamples, Policy: PolicyInstrumentOnly, Min: minShort, Max: maxShort, NRPNScale: 1},
	ModLFOToVolume:             {Name: "modLfoToVolume", Unit: UnitCentibels, Policy: PolicyAdditive, Min: -960, Max: 960, NRPNScale: 1},
	unused1:                    {Name: "unused1"},
	ChorusEffectsSend:          {Name: "chorusEffectsSend", Unit: UnitPermille, Policy: PolicyAdditive, Min: 0, Max: 1000, NRPNScale: 1},
	ReverbEffectsSend:          {Name: "reverbEffectsSend", Unit: UnitPermille, Policy: PolicyAdditive, Min: 0, Max: 1000, NRPNScale: 1},
	Pan:                        {Name: "pan", Unit: UnitPermille, Policy: PolicyAdditive, Min: -500, Max: 500, NRPNScale: 1},
	unused2:                    {Name: "unused2"},
	unused3:                    {Name: "unused3"},
	unused4:                    {Name: "unused4"},
	DelayModLFO:                {Name: "delayModLFO", Unit: UnitTimecents, Policy: PolicyAdditive, Min: -12000, Max: 5000, Default: -12000, NRPNScale: 2},
	FreqModLFO:                 {Name: "freqModLFO", Unit: UnitAbsoluteCents, Policy: PolicyAdditive, Min: -16000, Max: 4500, NRPNScale: 4},
	DelayVibLFO:                {Name: "delayVibLFO", Unit: UnitTimecents, Policy: PolicyAdditive, Min: -12000, Max: 5000, Default: -12000, NRPNScale: 2},
	FreqVibLFO:                 {Name: "freqVibLFO", Unit: UnitAbsoluteCents, Policy: PolicyAdditive, Min: -16000, Max: 4500, NRPNScale: 4},
	DelayModEnv:                {Name: "delayModEnv", Unit: UnitTimecents, Policy: PolicyAdditive, Min: -12000, Max: 5000, Default: -12000, NRPNScale: 2},
	AttackModEnv:               {Name: "attackModEnv", Unit: UnitTimecents, Policy: PolicyAdditive, Min: -12000, Max: 8000, Default: -12000, NRPNScale: 2},
	HoldModEnv:                 {Name: "holdModEnv", Unit: UnitTimecents, Policy: PolicyAdditive, Min: -12000, Max: 5000, Default: -12000, NRPNScale: 2},
	DecayModEnv:                {Name: "decayModEnv", Unit: UnitTimecents, Policy: PolicyAdditive, Min: -12000, Max: 8000, Default: -12000, NRPNScale: 2},
	SustainModEnv:              {Name: "sustainModEnv", Unit: UnitPermille, Policy: PolicyAdditive, Min: 0, Max: 1000, NRPNScale: 1},
	ReleaseModEnv:              {Name: "releaseModEnv", Unit: UnitTimecents, Policy: PolicyAdditive, Min: -12000, Max: 8000, Default: -12000, NRPNScale: 2},
	KeynumToModEnvHold:         {Name: "keynumToModEnvHold", Unit: UnitTimecents, Policy: PolicyAdditive, Min: -1200, Max: 1200, NRPNScale: 1},
	KeynumToModEnvDecay:        {Name: "keynumToModEnvDecay", Unit: UnitTimecents, Policy: PolicyAdditive, Min: -1200, Max: 1200, NRPNScale: 1},
	DelayVolEnv:                {Name: "delayVolEnv", Unit: UnitTimecents, Policy: PolicyAdditive, Min: -12000, Max: 5000, Default: -12000, NRPNScale: 2},
	AttackVolEnv:               {Name: "attackVolEnv", Unit: UnitTimecents, Policy: PolicyAdditive, Min: -12000, Max: 8000, Default: -12000, NRPNScale: 2},
	HoldVolEnv:                 {Name: "holdVolEnv", Unit: UnitTimecents, Policy: PolicyAdditive, Min: -12000, Max: 5000, Default: -12000, NRPNScale: 2},
	DecayVolEnv:                {Name: "decayVolEnv", Unit: UnitTimecents, Policy: PolicyAdditive, Min: -12000, Max: 8000, Default: -12000, NRPNScale: 2},
	SustainVolEnv:              {Name: "sustainVolEnv", Unit: UnitCentibels, Policy: PolicyAdditive, Min: 0, Max: 1440, NRPNScale: 1},
	ReleaseVolEnv:              {Name: "releaseVolEnv", Unit: UnitTimecents, Policy: PolicyAdditive, Min: -12000, Max: 8000, Default: -12000, NRPNScale: 2},
	KeynumToVolEnvHold:         {Name: "keynumToVolEnvHold", Unit: UnitTimecents, Policy: PolicyAdditive, Min: -1200, Max: 1200, NRPNScale: 1},
	KeynumToVolEnvDecay:        {Name: "keynumToVolEnvDecay", Unit: UnitTimecents, Policy: PolicyAdditive, Min: -1200, Max: 1200, NRPNScale: 1},
	InstrumentID:               {Name: "instrument", Unit: UnitIndex, Policy: PolicyLink, Min: 0, Max: 65535, NRPNScale: 1, Unsigned: true},
	reserved1:                  {Name: "reserved1"},
	KeyRange:                   {Name: "keyRange", Unit: UnitKeyRange, Policy: PolicyRange, Min: 0, Max: 127, NRPNScale: 1},
	VelRange:                   {Name: "velRange", Unit: UnitKeyRange, Policy: PolicyRange, Min: 0, Max: 127, NRPNScale: 1},
	StartLoopAddrsCoarseOffset: {Name: "startloopAddrsCoarseOffset", Unit: UnitCoarseSamples, Policy: PolicyInstrumentOnly, Min: minShort, Max: maxShort, NRPNScale: 1},
	Keynum:                     {Name: "keynum", Unit: UnitIndex, Policy: PolicyInstrumentOnly, Min: -1, Max: 127, Default: -1, NRPNScale: 1},
	Velocity:                   {Name: "velocity", Unit: UnitIndex, Policy: PolicyInstrumentOnly, Min: -1, Max: 127, Default: -1, NRPNScale: 1},
	InitialAttenuation:         {Name: "initialAttenuation", Unit: UnitCentibels, Policy: PolicyAdditive, Min: 0, Max: 1440, NRPNScale: 1},
	reserved2:                  {Name: "reserved2"},
	EndLoopAddrsCoarseOffset:   {Name: "endloopAddrsCoarseOffset", Unit: UnitCoarseSamples, Policy: PolicyInstrumentOnly, Min: minShort, Max: maxShort, NRPNScale: 1},
	CoarseTune:                 {Name: "coarseTune", Unit: UnitSemitones, Policy: PolicyAdditive, Min: -120, Max: 120, NRPNScale: 1},
	FineTune:                   {Name: "fineTune", Unit: UnitCents, Policy: PolicyAdditive, Min: -99, Max: 99, NRPNScale: 1},
	SampleID:                   {Name: "sampleID", Unit: UnitIndex, Policy: PolicyLink, Min: 0, Max: 65535, NRPNScale: 1, Unsigned: true},
	SampleModes:                {Name: "sampleModes", Unit: UnitFlags, Policy: PolicyInstrumentOnly, Min: 0, Max: 3, NRPNScale: 1, Unsigned: true},
	reserved3:                  {Name: "reserved3"},
	ScaleTuning:                {Name: "scaleTuning", Unit: UnitCents, Policy: PolicyAdditive, Min: 0, Max: 1200, Default: 100, NRPNScale: 1},
	ExclusiveClass:             {Name: "exclusiveClass", Unit: UnitIndex, Policy: PolicyInstrumentOnly, Min: 0, Max: 127, NRPNScale: 1},
	OverridingRootKey:          {Name: "overridingRootKey", Unit: UnitIndex, Policy: PolicyInstrumentOnly, Min: -1, Max: 127, Default: -1, NRPNScale: 1},
}

// Valid reports whether g is a defined, non-reserved operator.
func (g Generator) Valid() bool {
	return int(g) < NumGenerators && definitions[g].Policy != PolicyUnused
}

// Definition returns the table entry for g. Out-of-range operators yield an
// unused definition.
func (g Generator) Definition() Definition {
	if int(g) >= NumGenerators {
		return Definition{Name: "unknown"}
	}
	return definitions[g]
}

func (g Generator) String() string { return g.Definition().Name }

// Policy returns how g combines across levels.
func (g Generator) Policy() Policy { return g.Definition().Policy }

// AllowedInPreset reports whether a preset zone may adjust g.
func (g Generator) AllowedInPreset() bool {
	switch g.Policy() {
	case PolicyAdditive, PolicyRange:
		return true
	case PolicyLink:
		return g == InstrumentID
	}
	return false
}

// Clamp limits v to g's legal range.
func (g Generator) Clamp(v float64) float64 {
	d := g.Definition()
	if d.Policy == PolicyUnused {
		return v
	}
	if v < float64(d.Min) {
		return float64(d.Min)
	}
	if v > float64(d.Max) {
		return float64(d.Max)
	}
	return v
}

// Amount is the raw 16-bit generator operand (genAmountType).
type Amount uint16

// Int returns the amount as a two's complement short.
func (a Amount) Int() int { return int(int16(a)) }

// Uint returns the amount as an unsigned word.
func (a Amount) Uint() int { return int(uint16(a)) }

// Range returns the low and high bytes of a range amount.
func (a Amount) Range() (lo, hi uint8) { return uint8(a), uint8(a >> 8) }

// RangeAmount packs a key or velocity range.
func RangeAmount(lo, hi uint8) Amount { return Amount(uint16(hi)<<8 | uint16(lo)) }

// IntAmount encodes a signed value.
func IntAmount(v int) Amount { return Amount(uint16(int16(v))) }

// GeneratorRecord is one pgen/igen entry.
type GeneratorRecord struct {
	Oper   Generator
	Amount Amount
}

// GeneratorSet records the generators a zone sets explicitly.
type GeneratorSet struct {
	amounts [NumGenerators]Amount
	present uint64
}

// Set stores a for g. Invalid operators are ignored.
func (s *GeneratorSet) Set(g Generator, a Amount) {
	if !g.Valid() {
		return
	}
	s.amounts[g] = a
	s.present |= 1 << uint(g)
}

// Has reports whether g was set.
func (s *GeneratorSet) Has(g Generator) bool {
	return int(g) < NumGenerators && s.present&(1<<uint(g)) != 0
}

// Amount returns the raw amount for g and whether it was set.
func (s *GeneratorSet) Amount(g Generator) (Amount, bool) {
	if !s.Has(g) {
		return 0, false
	}
	return s.amounts[g], true
}

// Value returns the interpreted value of g, or its default when unset.
func (s *GeneratorSet) Value(g Generator) int {
	a, ok := s.Amount(g)
	if !ok {
		return int(g.Definition().Default)
	}
	if g.Definition().Unsigned {
		return a.Uint()
	}
	return a.Int()
}

// Len returns the number of generators set.
func (s *GeneratorSet) Len() int {
	n := 0
	for p := s.present; p != 0; p &= p - 1 {
		n++
	}
	return n
}
