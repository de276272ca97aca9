package pxc

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Spacing selects how a Ramp/Cycle schedule's points are distributed (spec
// §4.4.4).
type Spacing int

const (
	Linear Spacing = iota
	Logarithmic
	Sinusoidal
	UniformRandom
)

func (s Spacing) String() string {
	switch s {
	case Logarithmic:
		return "Logarithmic"
	case Sinusoidal:
		return "Sinusoidal"
	case UniformRandom:
		return "Uniform Random"
	default:
		return "Linear"
	}
}

// LoopMode selects a one-way Ramp or a there-and-back Cycle (spec §4.4.4).
type LoopMode int

const (
	Ramp LoopMode = iota
	Cycle
)

func (m LoopMode) String() string {
	if m == Cycle {
		return "Cycle"
	}
	return "Ramp"
}

// Direction selects which half-period a Cycle plays first.
type Direction int

const (
	UpFirst Direction = iota
	DownFirst
)

func (d Direction) String() string {
	if d == DownFirst {
		return "Down First"
	}
	return "Up First"
}

// Loop is a prefix step paired with a suffix LoopEnd, sweeping an
// instrument parameter across a generated value schedule (spec §4.4.4).
type Loop struct {
	base

	SweepInst  InstrumentRef
	SweepParam string

	Mode    LoopMode
	Spacing Spacing

	// Ramp
	Start, Stop float64
	NPoints     int

	// Cycle
	Min, Max  float64
	Cycles    float64 // half-integer
	Direction Direction

	// Per-iteration wait, same sub-contract as Wait/CMeas.
	Wait       WaitMode
	Poll       time.Duration
	Timeout    time.Duration
	WaitInst   InstrumentRef
	WaitParam  string
	Target     float64
	Stability  float64
	StableTime time.Duration

	iteration int
	values    []float64
}

// NewLoop constructs a Loop with Ramp/Linear defaults.
func NewLoop() *Loop {
	l := &Loop{base: newBase(KindLoop), NPoints: 2, Poll: MinPollInterval}
	l.title = enumerateTitle(0, "Loop")
	return l
}

// GenerateSchedule computes and caches the value sequence from the loop's
// current fields (spec §4.4.4), the moment the editor commits a change —
// mirroring the original's "accept changes" step rather than recomputing on
// every visit. Execute calls this lazily if it hasn't been called yet.
func (l *Loop) GenerateSchedule() {
	l.values = l.schedule()
	l.iteration = 0
}

func (l *Loop) schedule() []float64 {
	switch l.Mode {
	case Cycle:
		return cycleSchedule(l.Start, l.Min, l.Max, l.NPoints, l.Cycles, l.Direction, l.Spacing)
	default:
		return rampSchedule(l.Start, l.Stop, l.NPoints, l.Spacing)
	}
}

// UpdateTitle implements Step.
func (l *Loop) UpdateTitle(seq []Step) {
	l.title = enumerateTitle(l.pos, fmt.Sprintf("Loop (%s)", l.SweepParam))
}

// MeasurementHeaders implements Step: a Loop contributes only its
// per-iteration wait parameter's column, in condition mode.
func (l *Loop) MeasurementHeaders() []string {
	if l.Wait == WaitCondition {
		return staticHeaders(l.WaitInst, l.WaitParam)
	}
	return nil
}

// BindInstrumentRefs implements Step.
func (l *Loop) BindInstrumentRefs(byName map[string]InstrumentRef) {
	rebindRef(&l.SweepInst, byName)
	rebindRef(&l.WaitInst, byName)
}

// Copy implements Step. The schedule is dropped and recomputed lazily so a
// duplicated Loop starts at iteration 0 with a freshly generated (possibly
// reshuffled, for Uniform Random) sequence.
func (l *Loop) Copy() Step {
	cp := *l
	cp.values = nil
	cp.iteration = 0
	return &cp
}

// Describe implements Step.
func (l *Loop) Describe() string {
	out := fmt.Sprintf("    enabled = %s\n    sweepInst = %s\n    sweepParam = %s\n    mode = %s\n    spacing = %s\n",
		formatBool(l.enabled), l.SweepInst.Name, l.SweepParam, l.Mode, l.Spacing)
	out += fmt.Sprintf("    start = %v\n    stop = %v\n    npoints = %d\n    min = %v\n    max = %v\n    cycles = %v\n    direction = %s\n",
		l.Start, l.Stop, l.NPoints, l.Min, l.Max, l.Cycles, l.Direction)
	out += fmt.Sprintf("    wait = %s\n    poll = %s\n    timeout = %s\n", l.Wait, formatSeconds(l.Poll), formatSeconds(l.Timeout))
	out += fmt.Sprintf("    waitInst = %s\n    waitParam = %s\n    target = %v\n    stability = %v\n    stableTime = %s\n",
		l.WaitInst.Name, l.WaitParam, l.Target, l.Stability, formatSeconds(l.StableTime))
	return out
}

// Execute writes the next scheduled value, advances the iteration counter,
// and runs the per-iteration wait (spec §4.4.4).
func (l *Loop) Execute(rc *RunContext, app *Apparatus) (int, bool, error) {
	if rc.Abort.IsRaised() {
		return 0, false, ErrAbort
	}
	if l.values == nil {
		l.GenerateSchedule()
	}
	if len(l.values) == 0 {
		return 0, false, nil
	}
	if l.iteration >= len(l.values) {
		l.iteration = 0
	}

	inst, err := resolveInst("Loop", l.SweepInst, app)
	if err != nil {
		rc.Logger.Errorf("Loop: %v", err)
	} else if err := inst.WriteContinuous(l.SweepParam, l.values[l.iteration], inst.defaultTimeout, rc.Observer); err != nil {
		rc.Logger.Errorf("Loop %s.%s: %v", inst.Name, l.SweepParam, err)
	}

	k := l.iteration + 1
	rc.Status.Publish([4]string{fmt.Sprintf("%s, %d/%d", l.SweepParam, k, len(l.values)), l.Title(), "", ""})
	l.iteration++

	if err := runWait(rc, app, l.Wait, l.Poll, l.Timeout, l.WaitInst, l.WaitParam, l.Target, l.Stability, l.StableTime); err != nil {
		if IsCode(err, CodeAbortRequested) {
			return 0, false, ErrAbort
		}
		rc.Logger.Errorf("Loop wait: %v", err)
	}

	return 0, false, nil
}

// LoopEnd is the suffix step of a Loop/LoopEnd pair (spec §4.4.4).
type LoopEnd struct {
	base
	loop *Loop
}

// NewLoopEnd constructs a LoopEnd paired with loop.
func NewLoopEnd(loop *Loop) *LoopEnd {
	e := &LoopEnd{base: newBase(KindLoopEnd), loop: loop}
	e.title = enumerateTitle(0, "End Loop")
	return e
}

// UpdateTitle implements Step.
func (e *LoopEnd) UpdateTitle(seq []Step) {
	e.title = enumerateTitle(e.pos, "End Loop")
}

// MeasurementHeaders implements Step: LoopEnd contributes no columns.
func (e *LoopEnd) MeasurementHeaders() []string { return nil }

// Copy implements Step. The returned LoopEnd still points at the original
// Loop; DuplicateSteps rebinds it to the duplicated Loop when both halves
// of the pair are copied together.
func (e *LoopEnd) Copy() Step {
	cp := *e
	return &cp
}

// Describe implements Step.
func (e *LoopEnd) Describe() string {
	return fmt.Sprintf("    enabled = %s\n", formatBool(e.enabled))
}

// Execute implements LoopEnd.execute (spec §4.4.4): while the paired Loop
// has iterations remaining, jump back to it; otherwise reset the Loop's
// iteration counter and fall through.
func (e *LoopEnd) Execute(rc *RunContext, app *Apparatus) (int, bool, error) {
	if rc.Abort.IsRaised() {
		return 0, false, ErrAbort
	}
	if e.loop == nil {
		return 0, false, NewError("LoopEnd", CodeStructureError, "LoopEnd has no paired Loop")
	}
	if e.loop.iteration < len(e.loop.values) {
		if idx := app.indexOf(Step(e.loop)); idx >= 0 {
			return idx, true, nil
		}
	}
	e.loop.iteration = 0
	return 0, false, nil
}

// linspace returns n evenly spaced points from start to stop, inclusive.
func linspace(start, stop float64, n int) []float64 {
	if n < 1 {
		n = 1
	}
	out := make([]float64, n)
	if n == 1 {
		out[0] = start
		return out
	}
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

// logspace returns n log-spaced points between 10^startLog and 10^stopLog.
func logspace(startLog, stopLog float64, n int) []float64 {
	lin := linspace(startLog, stopLog, n)
	out := make([]float64, len(lin))
	for i, v := range lin {
		out[i] = math.Pow(10, v)
	}
	return out
}

// positiveOrFloor enforces the spec §4.4.4 Logarithmic rule: non-positive
// bounds become a small positive sentinel rather than producing NaN/Inf
// through log10.
func positiveOrFloor(v float64) float64 {
	if v <= 0 {
		return 1e-9
	}
	return v
}

// sinusoidalSchedule implements spec §4.4.4's Ramp/Sinusoidal formula.
func sinusoidalSchedule(start, stop float64, n int) []float64 {
	if n < 1 {
		n = 1
	}
	out := make([]float64, n)
	if n == 1 {
		out[0] = start
		return out
	}
	for i := range out {
		x := math.Pi / 2 * float64(i) / float64(n-1)
		out[i] = start + (stop-start)*math.Sin(x)
	}
	return out
}

// shuffledLinspace implements spec §4.4.4's Ramp/Uniform Random rule.
func shuffledLinspace(start, stop float64, n int) []float64 {
	vals := linspace(start, stop, n)
	rand.Shuffle(len(vals), func(i, j int) { vals[i], vals[j] = vals[j], vals[i] })
	return vals
}

// rampSchedule computes a one-way value schedule for the given spacing
// (spec §4.4.4), also used to build each half of a Cycle schedule.
func rampSchedule(start, stop float64, n int, spacing Spacing) []float64 {
	switch spacing {
	case Logarithmic:
		return logspace(math.Log10(positiveOrFloor(start)), math.Log10(positiveOrFloor(stop)), n)
	case Sinusoidal:
		return sinusoidalSchedule(start, stop, n)
	case UniformRandom:
		return shuffledLinspace(start, stop, n)
	default:
		return linspace(start, stop, n)
	}
}

// bounce turns a one-way ramp [start...extreme] into a there-and-back
// sequence [start...extreme...start] without duplicating the extreme
// value, matching the original's `concatenate(half, half[::-1][1:])`.
func bounce(half []float64) []float64 {
	out := append([]float64{}, half...)
	for i := len(half) - 2; i >= 0; i-- {
		out = append(out, half[i])
	}
	return out
}

// cycleSchedule implements spec §4.4.4's Cycle algorithm: split n points
// proportionally between the up-excursion (start→max) and down-excursion
// (start→min) spans, build a there-and-back "bounce" for each, then walk
// 2·cycles half-periods alternating between them per direction, starting
// from start.
func cycleSchedule(start, min, max float64, n int, cycles float64, direction Direction, spacing Spacing) []float64 {
	span := max - min
	var nup, ndown float64
	if span != 0 {
		nup = math.Abs(float64(n) * (max - start) / span)
		ndown = math.Abs(float64(n) * (start - min) / span)
	}
	upCount := int(math.Ceil(nup / 2))
	downCount := int(math.Ceil(ndown / 2))
	if upCount < 1 {
		upCount = 1
	}
	if downCount < 1 {
		downCount = 1
	}

	upCycle := bounce(rampSchedule(start, max, upCount, spacing))
	downCycle := bounce(rampSchedule(start, min, downCount, spacing))

	dirFlag := 0
	if direction == UpFirst {
		dirFlag = 1
	}

	values := []float64{start}
	halfPeriods := int(math.Round(cycles * 2))
	for ii := 0; ii < halfPeriods; ii++ {
		var this []float64
		if ii%2 == dirFlag {
			this = downCycle
		} else {
			this = upCycle
		}
		if len(this) > 1 {
			values = append(values, this[1:]...)
		}
	}
	return values
}
