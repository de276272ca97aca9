package pxc

// This file implements the Loop/LoopEnd structural invariants of spec §4.3:
// protectLoops repairs nesting after any mutation, and Delete/Duplicate/
// MoveUp/MoveDown are the mutations that must call it.

// pairedLoopEnd finds the LoopEnd in seq whose Loop field is the *Loop at
// loopIdx, or -1 if none.
func pairedLoopEnd(seq []Step, loopIdx int) int {
	loop, ok := seq[loopIdx].(*Loop)
	if !ok {
		return -1
	}
	for i, s := range seq {
		if end, ok := s.(*LoopEnd); ok && end.loop == loop {
			return i
		}
	}
	return -1
}

// pairedLoop finds the *Loop a LoopEnd at endIdx pairs with, or -1.
func pairedLoop(seq []Step, endIdx int) int {
	end, ok := seq[endIdx].(*LoopEnd)
	if !ok {
		return -1
	}
	for i, s := range seq {
		if s == end.loop {
			return i
		}
	}
	return -1
}

// ProtectLoops repairs the Loop/LoopEnd nesting invariant after a structural
// mutation (spec §4.3 protectLoops, §8 property 1):
//
//  1. Any LoopEnd appearing before its paired Loop is swapped into place.
//  2. Walking the sequence with a stack of open loops, where a LoopEnd
//     doesn't pair with the stack top, the stack top's own LoopEnd is
//     found further down and moved up into that position.
func (a *Apparatus) ProtectLoops() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.protectLoopsLocked()
}

func (a *Apparatus) protectLoopsLocked() {
	seq := a.sequence

	for i := 0; i < len(seq); i++ {
		end, ok := seq[i].(*LoopEnd)
		if !ok {
			continue
		}
		j := pairedLoop(seq, i)
		if j < 0 || i >= j {
			continue
		}
		seq[i], seq[j] = seq[j], seq[i]
	}

	var openLoops []*Loop
	for i := 0; i < len(seq); i++ {
		switch s := seq[i].(type) {
		case *Loop:
			openLoops = append(openLoops, s)
		case *LoopEnd:
			if len(openLoops) == 0 {
				continue // unrepairable: a LoopEnd with no enclosing Loop
			}
			top := openLoops[len(openLoops)-1]
			openLoops = openLoops[:len(openLoops)-1]
			if s.loop != top {
				for j := i; j < len(seq); j++ {
					if otherEnd, ok := seq[j].(*LoopEnd); ok && otherEnd.loop == top {
						moved := seq[j]
						copy(seq[i+1:j+1], seq[i:j])
						seq[i] = moved
						break
					}
				}
			}
		}
	}

	a.sequence = seq
	a.renumberLocked()
}

// DeleteSteps removes the steps at the given indices. Deleting one half of
// a Loop/LoopEnd pair extends the selection to include the other half
// (spec §4.3 deleteSteps), then removes in descending order so earlier
// indices stay valid.
func (a *Apparatus) DeleteSteps(indices []int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	seq := a.sequence
	selected := map[int]bool{}
	for _, i := range indices {
		if i < 0 || i >= len(seq) {
			continue
		}
		selected[i] = true
	}
	for i := range selected {
		switch seq[i].(type) {
		case *Loop:
			if j := pairedLoopEnd(seq, i); j >= 0 {
				selected[j] = true
			}
		case *LoopEnd:
			if j := pairedLoop(seq, i); j >= 0 {
				selected[j] = true
			}
		}
	}

	var ordered []int
	for i := range selected {
		ordered = append(ordered, i)
	}
	ordered = sortedIndices(ordered)
	for i := len(ordered) - 1; i >= 0; i-- {
		idx := ordered[i]
		seq = append(seq[:idx], seq[idx+1:]...)
	}

	a.sequence = seq
	a.renumberLocked()
}

// DuplicateSteps copies the steps at the given indices and inserts the
// copies immediately after the highest selected index, preserving adjacency
// for consecutive runs and rebinding duplicated LoopEnd.loop references to
// the duplicated Loop (spec §4.3 duplicate). Selecting exactly one half of
// a pair extends the selection to the other half first. Returns the
// indices of the inserted copies.
func (a *Apparatus) DuplicateSteps(indices []int) []int {
	a.mu.Lock()
	defer a.mu.Unlock()

	seq := a.sequence
	selected := map[int]bool{}
	for _, i := range indices {
		if i < 0 || i >= len(seq) {
			continue
		}
		selected[i] = true
	}
	for i := range selected {
		switch seq[i].(type) {
		case *Loop:
			if j := pairedLoopEnd(seq, i); j >= 0 {
				selected[j] = true
			}
		case *LoopEnd:
			if j := pairedLoop(seq, i); j >= 0 {
				selected[j] = true
			}
		}
	}

	ordered := sortedIndices(func() []int {
		var out []int
		for i := range selected {
			out = append(out, i)
		}
		return out
	}())
	if len(ordered) == 0 {
		a.sequence = seq
		return nil
	}

	// Group consecutive indices so adjacent runs are copied and inserted
	// together, preserving their relative order.
	var groups [][]int
	cur := []int{ordered[0]}
	for _, idx := range ordered[1:] {
		if idx == cur[len(cur)-1]+1 {
			cur = append(cur, idx)
		} else {
			groups = append(groups, cur)
			cur = []int{idx}
		}
	}
	groups = append(groups, cur)

	insertAt := ordered[len(ordered)-1] + 1
	loopRebind := map[*Loop]*Loop{}
	var newIndices []int
	offset := 0

	for _, group := range groups {
		var copies []Step
		for _, idx := range group {
			cp := seq[idx].Copy()
			if loop, ok := seq[idx].(*Loop); ok {
				loopRebind[loop] = cp.(*Loop)
			}
			copies = append(copies, cp)
		}
		for _, cp := range copies {
			if end, ok := cp.(*LoopEnd); ok {
				if newLoop, ok := loopRebind[end.loop]; ok {
					end.loop = newLoop
				}
			}
		}
		pos := insertAt + offset
		tail := append([]Step{}, seq[pos:]...)
		seq = append(seq[:pos], append(copies, tail...)...)
		for k := range copies {
			newIndices = append(newIndices, pos+k)
		}
		offset += len(copies)
	}

	a.sequence = seq
	a.protectLoopsLocked()
	return newIndices
}

// MoveUp shifts the step at index one position earlier, unless it is
// already at the top, then restores nesting (spec §4.3 move up/down).
func (a *Apparatus) MoveUp(index int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if index <= 0 || index >= len(a.sequence) {
		return
	}
	a.sequence[index-1], a.sequence[index] = a.sequence[index], a.sequence[index-1]
	a.protectLoopsLocked()
}

// MoveDown shifts the step at index one position later, unless it is
// already at the bottom, then restores nesting.
func (a *Apparatus) MoveDown(index int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if index < 0 || index >= len(a.sequence)-1 {
		return
	}
	a.sequence[index+1], a.sequence[index] = a.sequence[index], a.sequence[index+1]
	a.protectLoopsLocked()
}
