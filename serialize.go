package pxc

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Serialize renders the apparatus to the §6.3 two-section text descriptor:
// an INSTRUMENTS: table of bound addresses, then a COMMANDS: section with
// one "Sequence Command N:" block per step, in the teacher's "own render"
// idiom rather than a generic reflection-based encoder.
func (a *Apparatus) Serialize() string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var b strings.Builder
	b.WriteString("INSTRUMENTS:\n")
	for _, inst := range a.instruments {
		if inst.Model == nil {
			continue
		}
		if inst.Name != "" {
			fmt.Fprintf(&b, "%s\t%s\t%s\n", inst.Address, inst.Model.Name, inst.Name)
		} else {
			fmt.Fprintf(&b, "%s\t%s\n", inst.Address, inst.Model.Name)
		}
	}
	b.WriteString("COMMANDS:\n")
	for i, step := range a.sequence {
		fmt.Fprintf(&b, "Sequence Command %d:\n", i+1)
		fmt.Fprintf(&b, "    type = %s\n", step.Kind())
		b.WriteString(step.Describe())
	}
	return b.String()
}

// Deserialize parses a §6.3 descriptor into a fresh Apparatus bound to
// transport (nil is fine for an editor-only apparatus). Instruments are
// reconstructed as unbound *Instrument values resolved against the model
// registry; steps are reconstructed by dispatching on the "type" attribute
// each Serialize call writes first. A LoopEndCommand with no open Loop on
// the pairing stack is a *Error(CodeStructureError) — spec §7's only
// deserialise-time rejection.
func Deserialize(text string, transport Transport) (*Apparatus, error) {
	lines := strings.Split(text, "\n")

	start := -1
	for i, ln := range lines {
		if strings.TrimSpace(ln) == "INSTRUMENTS:" {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return nil, NewError("Deserialize", CodeStructureError, "missing INSTRUMENTS: section")
	}

	app := NewApparatus(transport)

	i := start
	for ; i < len(lines); i++ {
		ln := strings.TrimRight(lines[i], "\r")
		if strings.TrimSpace(ln) == "COMMANDS:" {
			i++
			break
		}
		if strings.TrimSpace(ln) == "" {
			continue
		}
		fields := strings.Split(ln, "\t")
		if len(fields) < 2 {
			continue
		}
		address, modelName := fields[0], fields[1]
		name := ""
		if len(fields) >= 3 {
			name = fields[2]
		}
		model := ModelByName(modelName)
		inst := NewInstrument(name, address, model)
		app.instruments = append(app.instruments, inst)
	}

	var seq []Step
	loopStack := []*Loop{}

	var attrs map[string]string
	flush := func() error {
		if attrs == nil {
			return nil
		}
		step, err := buildStep(attrs, &loopStack)
		if err != nil {
			return err
		}
		seq = append(seq, step)
		return nil
	}

	for ; i < len(lines); i++ {
		ln := strings.TrimRight(lines[i], "\r")
		trimmed := strings.TrimSpace(ln)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "Sequence Command") {
			if err := flush(); err != nil {
				return nil, err
			}
			attrs = map[string]string{}
			continue
		}
		if attrs == nil {
			continue
		}
		eq := strings.Index(trimmed, "=")
		if eq < 0 {
			continue
		}
		key := strings.TrimSpace(trimmed[:eq])
		val := strings.TrimSpace(trimmed[eq+1:])
		attrs[key] = val
	}
	if err := flush(); err != nil {
		return nil, err
	}

	byName := make(map[string]InstrumentRef, len(app.instruments))
	for _, inst := range app.instruments {
		if inst.Name != "" {
			byName[inst.Name] = inst.Ref()
		}
	}
	for _, s := range seq {
		s.BindInstrumentRefs(byName)
	}

	app.sequence = seq
	app.renumberLocked()
	return app, nil
}

// buildStep reconstructs one Step from its attribute block, maintaining the
// Loop/LoopEnd pairing stack as it goes (spec §6.3, §4.3 invariant 1: a
// LoopEndCommand always pairs with the most recently opened unmatched Loop).
func buildStep(attrs map[string]string, loopStack *[]*Loop) (Step, error) {
	kind := attrs["type"]
	enabled := parseBool(attrs["enabled"])

	switch kind {
	case "SetCommand":
		s := NewSet(parseEntries(attrs, func(inst InstrumentRef, param string, i int) SetEntry {
			return SetEntry{Inst: inst, Param: param, Value: attrs[fmt.Sprintf("value%d", i)]}
		}))
		s.enabled = enabled
		return s, nil

	case "SingleMeasurementCommand":
		s := NewSMeas(parseMeasEntries(attrs))
		s.enabled = enabled
		return s, nil

	case "ContinuousMeasurementCommand":
		c := NewCMeas(parseMeasEntries(attrs))
		c.enabled = enabled
		c.Wait = parseWaitMode(attrs["wait"])
		c.Poll = parseSeconds(attrs["poll"])
		c.Timeout = parseSeconds(attrs["timeout"])
		c.WaitInst = InstrumentRef{Name: attrs["waitInst"]}
		c.WaitParam = attrs["waitParam"]
		c.Target = parseFloat(attrs["target"])
		c.Stability = parseFloat(attrs["stability"])
		c.StableTime = parseSeconds(attrs["stableTime"])
		return c, nil

	case "WaitCommand":
		w := NewWait()
		w.enabled = enabled
		w.Wait = parseWaitMode(attrs["wait"])
		w.Poll = parseSeconds(attrs["poll"])
		w.Timeout = parseSeconds(attrs["timeout"])
		w.WaitInst = InstrumentRef{Name: attrs["waitInst"]}
		w.WaitParam = attrs["waitParam"]
		w.Target = parseFloat(attrs["target"])
		w.Stability = parseFloat(attrs["stability"])
		w.StableTime = parseSeconds(attrs["stableTime"])
		return w, nil

	case "LoopCommand":
		l := NewLoop()
		l.enabled = enabled
		l.SweepInst = InstrumentRef{Name: attrs["sweepInst"]}
		l.SweepParam = attrs["sweepParam"]
		l.Mode = parseLoopMode(attrs["mode"])
		l.Spacing = parseSpacing(attrs["spacing"])
		l.Start = parseFloat(attrs["start"])
		l.Stop = parseFloat(attrs["stop"])
		l.NPoints = int(parseFloat(attrs["npoints"]))
		l.Min = parseFloat(attrs["min"])
		l.Max = parseFloat(attrs["max"])
		l.Cycles = parseFloat(attrs["cycles"])
		l.Direction = parseDirection(attrs["direction"])
		l.Wait = parseWaitMode(attrs["wait"])
		l.Poll = parseSeconds(attrs["poll"])
		l.Timeout = parseSeconds(attrs["timeout"])
		l.WaitInst = InstrumentRef{Name: attrs["waitInst"]}
		l.WaitParam = attrs["waitParam"]
		l.Target = parseFloat(attrs["target"])
		l.Stability = parseFloat(attrs["stability"])
		l.StableTime = parseSeconds(attrs["stableTime"])
		l.GenerateSchedule()
		*loopStack = append(*loopStack, l)
		return l, nil

	case "LoopEndCommand":
		if len(*loopStack) == 0 {
			return nil, NewError("Deserialize", CodeStructureError, "LoopEndCommand with no open Loop")
		}
		top := (*loopStack)[len(*loopStack)-1]
		*loopStack = (*loopStack)[:len(*loopStack)-1]
		e := NewLoopEnd(top)
		e.enabled = enabled
		return e, nil

	default:
		return nil, NewError("Deserialize", CodeStructureError, fmt.Sprintf("unknown step type %q", kind))
	}
}

func parseEntries(attrs map[string]string, build func(inst InstrumentRef, param string, i int) SetEntry) []SetEntry {
	n := int(parseFloat(attrs["count"]))
	out := make([]SetEntry, 0, n)
	for i := 0; i < n; i++ {
		inst := InstrumentRef{Name: attrs[fmt.Sprintf("inst%d", i)]}
		param := attrs[fmt.Sprintf("param%d", i)]
		out = append(out, build(inst, param, i))
	}
	return out
}

func parseMeasEntries(attrs map[string]string) []MeasEntry {
	n := int(parseFloat(attrs["count"]))
	out := make([]MeasEntry, 0, n)
	for i := 0; i < n; i++ {
		inst := InstrumentRef{Name: attrs[fmt.Sprintf("inst%d", i)]}
		param := attrs[fmt.Sprintf("param%d", i)]
		out = append(out, MeasEntry{Inst: inst, Param: param})
	}
	return out
}

func formatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

func parseBool(s string) bool {
	return s == "True"
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}

func parseSeconds(s string) time.Duration {
	v, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return time.Duration(v * float64(time.Second))
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return v
}

func parseWaitMode(s string) WaitMode {
	if s == "Condition" {
		return WaitCondition
	}
	return WaitTime
}

func parseLoopMode(s string) LoopMode {
	if s == "Cycle" {
		return Cycle
	}
	return Ramp
}

func parseSpacing(s string) Spacing {
	switch s {
	case "Logarithmic":
		return Logarithmic
	case "Sinusoidal":
		return Sinusoidal
	case "Uniform Random":
		return UniformRandom
	default:
		return Linear
	}
}

func parseDirection(s string) Direction {
	if s == "Down First" {
		return DownFirst
	}
	return UpFirst
}

// parseListLiteral splits a §6.3 list literal `[a, b, c]` into its trimmed,
// unquoted elements. No current step attribute uses list syntax, but the
// format is part of the descriptor contract (spec §6.3) so a tolerant parser
// that future attributes can reuse lives here rather than being invented ad
// hoc at the call site.
func parseListLiteral(s string) []string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strings.Trim(strings.TrimSpace(p), `"'`)
	}
	return out
}
