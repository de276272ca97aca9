package pxc

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// CMeas repeatedly polls N parameters until a time or condition termination
// rule is satisfied (spec §4.4.3).
type CMeas struct {
	base
	Entries []MeasEntry

	Wait    WaitMode
	Poll    time.Duration
	Timeout time.Duration // 0 means indefinite (spec §5, §9 open question decided explicit)

	// Condition mode only.
	WaitInst   InstrumentRef
	WaitParam  string
	Target     float64
	Stability  float64
	StableTime time.Duration
}

// NewCMeas constructs a ContinuousMeasurement step.
func NewCMeas(entries []MeasEntry) *CMeas {
	c := &CMeas{base: newBase(KindCMeas), Entries: entries, Poll: MinPollInterval}
	c.title = enumerateTitle(0, "Continuous Measure")
	return c
}

// UpdateTitle implements Step.
func (c *CMeas) UpdateTitle(seq []Step) {
	c.title = enumerateTitle(c.pos, "Continuous Measure")
}

// MeasurementHeaders implements Step: the measured entries, plus the wait
// parameter's column when waiting on a condition (spec §4.4.3: "condition
// mode appends the wait parameter to the measured set").
func (c *CMeas) MeasurementHeaders() []string {
	var out []string
	for _, e := range c.Entries {
		out = append(out, staticHeaders(e.Inst, e.Param)...)
	}
	if c.Wait == WaitCondition {
		out = append(out, staticHeaders(c.WaitInst, c.WaitParam)...)
	}
	return out
}

// BindInstrumentRefs implements Step.
func (c *CMeas) BindInstrumentRefs(byName map[string]InstrumentRef) {
	for i := range c.Entries {
		rebindRef(&c.Entries[i].Inst, byName)
	}
	rebindRef(&c.WaitInst, byName)
}

// Copy implements Step.
func (c *CMeas) Copy() Step {
	cp := *c
	cp.Entries = append([]MeasEntry{}, c.Entries...)
	return &cp
}

// Describe implements Step.
func (c *CMeas) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "    enabled = %s\n    count = %d\n", formatBool(c.enabled), len(c.Entries))
	for i, e := range c.Entries {
		fmt.Fprintf(&b, "    inst%d = %s\n    param%d = %s\n", i, e.Inst.Name, i, e.Param)
	}
	fmt.Fprintf(&b, "    wait = %s\n    poll = %s\n    timeout = %s\n", c.Wait, formatSeconds(c.Poll), formatSeconds(c.Timeout))
	fmt.Fprintf(&b, "    waitInst = %s\n    waitParam = %s\n    target = %v\n    stability = %v\n    stableTime = %s\n",
		c.WaitInst.Name, c.WaitParam, c.Target, c.Stability, formatSeconds(c.StableTime))
	return b.String()
}

// stabilityBuffer seeds a ring buffer of size n with values clearly outside
// the [target-stability, target+stability] window, so a condition wait
// cannot terminate before the buffer has filled with real samples (spec
// §4.4.3).
func stabilityBuffer(n int, target, stability float64) []float64 {
	if n < 1 {
		n = 1
	}
	buf := make([]float64, n)
	for i := range buf {
		buf[i] = target + stability*2 + 1
	}
	return buf
}

func minMax(buf []float64) (min, max float64) {
	min, max = buf[0], buf[0]
	for _, v := range buf[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return
}

// pollPeriod coerces a requested poll interval to spec §4.4.3's floor.
func pollPeriod(d time.Duration) time.Duration {
	if d < MinPollInterval {
		return MinPollInterval
	}
	return d
}

// runWait implements the condition/time wait sub-contract shared by Wait and
// Loop's per-iteration wait (spec §4.4.4, §4.4.5): unlike CMeas it has no
// extra measured entries, only the optional wait-parameter column emitted
// in condition mode.
func runWait(rc *RunContext, app *Apparatus, mode WaitMode, poll, timeout time.Duration,
	waitRef InstrumentRef, waitParam string, target, stability float64, stableTime time.Duration) error {

	start := time.Now()

	if mode == WaitTime {
		for {
			if rc.Abort.IsRaised() {
				return ErrAbort
			}
			if timeout > 0 && time.Since(start) >= timeout {
				return nil
			}
			rc.sleepInterruptible(CoarseWaitPoll)
		}
	}

	waitInst, err := resolveInst("Wait", waitRef, app)
	if err != nil {
		return err
	}

	p := pollPeriod(poll)
	size := int(math.Ceil(stableTime.Seconds() / p.Seconds()))
	buf := stabilityBuffer(size, target, stability)
	bufIdx := 0
	headers := staticHeaders(waitRef, waitParam)

	for {
		if rc.Abort.IsRaised() {
			return ErrAbort
		}

		rec := NewRecord()
		conditionMet := false
		vals, err := waitInst.ReadContinuous(waitParam, waitInst.defaultTimeout, rc.Observer)
		if err != nil {
			rc.Logger.Errorf("Wait %s.%s: %v", waitInst.Name, waitParam, err)
		} else {
			for i, h := range headers {
				if i < len(vals) {
					rec.Set(h, strconv.FormatFloat(vals[i], 'f', -1, 64))
				}
			}
			if len(vals) > 0 {
				buf[bufIdx%len(buf)] = vals[0]
				bufIdx++
			}
			min, max := minMax(buf)
			conditionMet = max-target < stability && target-min < stability
		}

		rc.Status.PublishLatest(rec.values)
		rc.emitRecord(app.GetVarsList(), rec)

		timedOut := timeout > 0 && time.Since(start) >= timeout
		if timedOut || conditionMet {
			return nil
		}
		rc.sleepInterruptible(p)
	}
}

// Execute polls until termination (spec §4.4.3). Abort is checked before
// every sleep and every record (spec §5).
func (c *CMeas) Execute(rc *RunContext, app *Apparatus) (int, bool, error) {
	if rc.Abort.IsRaised() {
		return 0, false, ErrAbort
	}

	poll := pollPeriod(c.Poll)
	start := time.Now()

	var waitInst *Instrument
	var buf []float64
	var bufIdx int
	if c.Wait == WaitCondition {
		var err error
		waitInst, err = resolveInst("CMeas", c.WaitInst, app)
		if err != nil {
			rc.Logger.Errorf("CMeas: %v", err)
		}
		size := int(math.Ceil(c.StableTime.Seconds() / poll.Seconds()))
		buf = stabilityBuffer(size, c.Target, c.Stability)
	}

	for {
		if rc.Abort.IsRaised() {
			return 0, false, ErrAbort
		}

		rec := NewRecord()
		rc.Status.Publish([4]string{"Continuous Measurement", c.Title(), "", ""})
		for _, e := range c.Entries {
			inst, err := resolveInst("CMeas", e.Inst, app)
			if err != nil {
				rc.Logger.Errorf("CMeas: %v", err)
				continue
			}
			if err := recordMeasurement(rc, inst, e.Param, rec); err != nil {
				rc.Logger.Errorf("CMeas %s.%s: %v", inst.Name, e.Param, err)
			}
		}

		conditionMet := false
		if c.Wait == WaitCondition && waitInst != nil {
			vals, err := waitInst.ReadContinuous(c.WaitParam, waitInst.defaultTimeout, rc.Observer)
			if err != nil {
				rc.Logger.Errorf("CMeas wait %s.%s: %v", waitInst.Name, c.WaitParam, err)
			} else {
				for i, h := range staticHeaders(c.WaitInst, c.WaitParam) {
					if i < len(vals) {
						rec.Set(h, strconv.FormatFloat(vals[i], 'f', -1, 64))
					}
				}
				if len(vals) > 0 {
					buf[bufIdx%len(buf)] = vals[0]
					bufIdx++
				}
				min, max := minMax(buf)
				conditionMet = max-c.Target < c.Stability && c.Target-min < c.Stability
			}
		}

		rc.Status.PublishLatest(rec.values)
		rc.emitRecord(app.GetVarsList(), rec)

		timedOut := c.Timeout > 0 && time.Since(start) >= c.Timeout
		if timedOut || conditionMet {
			return 0, false, nil
		}

		rc.sleepInterruptible(poll)
	}
}
