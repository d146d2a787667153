package sf2

// span returns the half-open record range [starts(i), starts(i+1)) owned by
// entity i. The final entity's range ends at total.
func span(starts func(int) int, count, i, total int) (int, int, bool) {
	begin := starts(i)
	end := total
	if i+1 < count {
		end = starts(i + 1)
	}
	if begin < 0 || begin > end || end > total {
		return 0, 0, false
	}
	return begin, end, true
}

// level carries the arrays one hierarchy level assembles its zones from.
type level struct {
	bagTag  string
	genTag  string
	bags    []bagRecord
	gens    []GeneratorRecord
	mods    []Modulator
	offsets map[string]int
	preset  bool
	links   int
}

func (lv *level) zones(owner string, bagBegin, bagEnd int) (*Zone, []Zone, error) {
	var global *Zone
	zones := make([]Zone, 0, bagEnd-bagBegin)
	genStart := func(i int) int { return int(lv.bags[i].genIndex) }
	modStart := func(i int) int { return int(lv.bags[i].modIndex) }
	for b := bagBegin; b < bagEnd; b++ {
		gb, ge, ok := span(genStart, len(lv.bags), b, len(lv.gens))
		if !ok {
			return nil, nil, formatError(lv.bagTag, lv.offsets[lv.bagTag]+b*bagSize, "%s: generator index out of order or out of range", owner)
		}
		mb, me, ok := span(modStart, len(lv.bags), b, len(lv.mods))
		if !ok {
			return nil, nil, formatError(lv.bagTag, lv.offsets[lv.bagTag]+b*bagSize, "%s: modulator index out of order or out of range", owner)
		}
		z := Zone{KeyRange: FullRange, VelRange: FullRange, Link: -1}
		for i, g := range lv.gens[gb:ge] {
			switch {
			case g.Oper == KeyRange:
				// Only honoured as the first generator of a zone.
				if i == 0 {
					z.KeyRange = rangeOf(g.Amount)
					z.Generators.Set(g.Oper, g.Amount)
				}
			case g.Oper == VelRange:
				if i == 0 || (i == 1 && lv.gens[gb].Oper == KeyRange) {
					z.VelRange = rangeOf(g.Amount)
					z.Generators.Set(g.Oper, g.Amount)
				}
			case g.Oper == lv.linkOper():
				z.Link = g.Amount.Uint()
				if z.Link >= lv.links {
					return nil, nil, formatError(lv.genTag, lv.offsets[lv.genTag]+(gb+i)*generatorSize,
						"%s: %s %d out of range (have %d)", owner, g.Oper, z.Link, lv.links)
				}
			case !g.Oper.Valid(), g.Oper.Policy() == PolicyLink:
			case lv.preset && !g.Oper.AllowedInPreset():
			default:
				z.Generators.Set(g.Oper, g.Amount)
			}
			if z.Link >= 0 {
				// The link generator terminates the zone.
				break
			}
		}
		for _, m := range lv.mods[mb:me] {
			z.Modulators = addModulator(z.Modulators, m)
		}
		if z.Link < 0 {
			if b == bagBegin && global == nil {
				g := z
				global = &g
			}
			continue
		}
		zones = append(zones, z)
	}
	if global != nil {
		for i := range zones {
			inheritRanges(&zones[i], global)
		}
	}
	return global, zones, nil
}

func (lv *level) linkOper() Generator {
	if lv.preset {
		return InstrumentID
	}
	return SampleID
}

func rangeOf(a Amount) Range {
	lo, hi := a.Range()
	if hi > 127 {
		hi = 127
	}
	return Range{Lo: lo, Hi: hi}
}

func inheritRanges(z, global *Zone) {
	if !z.Generators.Has(KeyRange) && global.Generators.Has(KeyRange) {
		z.KeyRange = global.KeyRange
	}
	if !z.Generators.Has(VelRange) && global.Generators.Has(VelRange) {
		z.VelRange = global.VelRange
	}
}

// addModulator appends m, replacing an identical modulator earlier in the
// same zone. Zero-amount modulators are kept since they still override;
// modulators that can never contribute are dropped.
func addModulator(list []Modulator, m Modulator) []Modulator {
	if !m.Usable() {
		return list
	}
	for i := range list {
		if list[i].Identical(m) {
			list[i] = m
			return list
		}
	}
	return append(list, m)
}

func build(raw *rawBank) (*Bank, error) {
	if len(raw.presets) == 0 {
		return nil, formatError("phdr", raw.offsets["phdr"], "missing terminal preset record")
	}
	if len(raw.instruments) == 0 {
		return nil, formatError("inst", raw.offsets["inst"], "missing terminal instrument record")
	}
	if len(raw.samples) == 0 {
		return nil, formatError("shdr", raw.offsets["shdr"], "missing terminal sample record")
	}

	bank := &Bank{
		Info:    raw.info,
		PCM:     raw.pcm,
		Samples: raw.samples[:len(raw.samples)-1],
	}
	for i, h := range bank.Samples {
		if h.Type.ROM() {
			continue
		}
		if h.Start > h.End || int64(h.End) > int64(len(raw.pcm)) {
			return nil, formatError("shdr", raw.offsets["shdr"]+i*sampleHeaderSize,
				"sample %q spans [%d, %d) outside %d frames of sample data", h.Name, h.Start, h.End, len(raw.pcm))
		}
	}

	inst := level{
		bagTag: "ibag", genTag: "igen",
		bags: raw.instBags, gens: raw.instGens, mods: raw.instMods,
		offsets: raw.offsets, links: len(bank.Samples),
	}
	instCount := len(raw.instruments) - 1
	instStart := func(i int) int { return int(raw.instruments[i].bagIndex) }
	bank.Instruments = make([]Instrument, instCount)
	for i := 0; i < instCount; i++ {
		rec := raw.instruments[i]
		begin, end, ok := span(instStart, len(raw.instruments), i, len(raw.instBags))
		if !ok {
			return nil, formatError("inst", raw.offsets["inst"]+i*instrumentSize, "instrument %q: bag index out of order or out of range", rec.name)
		}
		global, zones, err := inst.zones(rec.name, begin, end)
		if err != nil {
			return nil, err
		}
		for _, z := range zones {
			if bank.Samples[z.Link].Type.ROM() {
				return nil, formatError("shdr", raw.offsets["shdr"]+z.Link*sampleHeaderSize,
					"instrument %q uses ROM sample %q", rec.name, bank.Samples[z.Link].Name)
			}
		}
		bank.Instruments[i] = Instrument{Name: rec.name, Global: global, Zones: zones}
	}

	pre := level{
		bagTag: "pbag", genTag: "pgen",
		bags: raw.presetBags, gens: raw.presetGens, mods: raw.presetMods,
		offsets: raw.offsets, links: instCount, preset: true,
	}
	presetCount := len(raw.presets) - 1
	presetStart := func(i int) int { return int(raw.presets[i].bagIndex) }
	bank.Presets = make([]Preset, presetCount)
	bank.byNumber = make(map[int]int, presetCount)
	for i := 0; i < presetCount; i++ {
		rec := raw.presets[i]
		begin, end, ok := span(presetStart, len(raw.presets), i, len(raw.presetBags))
		if !ok {
			return nil, formatError("phdr", raw.offsets["phdr"]+i*presetHeaderSize, "preset %q: bag index out of order or out of range", rec.name)
		}
		global, zones, err := pre.zones(rec.name, begin, end)
		if err != nil {
			return nil, err
		}
		bank.Presets[i] = Preset{
			Name:       rec.name,
			Program:    int(rec.program),
			Bank:       int(rec.bank),
			Library:    rec.library,
			Genre:      rec.genre,
			Morphology: rec.morphology,
			Global:     global,
			Zones:      zones,
		}
		key := presetKey(int(rec.bank), int(rec.program))
		if _, dup := bank.byNumber[key]; !dup {
			bank.byNumber[key] = i
		}
	}
	return bank, nil
}
