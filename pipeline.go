package mleml

import "slices"

// Pipeline is an ordered chain of mods, in which the output type of every
// mod equals the input type of the next one. The mods are shared, not
// copied: the same mod may be part of any number of pipelines.
type Pipeline []Mod

// IsValid scans the adjacent pairs of mods and returns a
// *PipelineBrokenError for the first mod whose input type does not match the
// output type of its predecessor.
func (p Pipeline) IsValid() error {
	for i := 1; i < len(p); i++ {
		if p[i-1].OutputType() != p[i].InputType() {
			return &PipelineBrokenError{Index: i}
		}
	}
	return nil
}

// TypeFlow returns the output types of the mods that change the type of the
// data, in order. Mods whose input and output types are equal are left out.
func (p Pipeline) TypeFlow() ([]DataType, error) {
	if err := p.IsValid(); err != nil {
		return nil, err
	}
	var ret []DataType
	for _, m := range p {
		if m.InputType() != m.OutputType() {
			ret = append(ret, m.OutputType())
		}
	}
	return ret, nil
}

// TypeChanges returns the indices of the mods listed by TypeFlow.
func (p Pipeline) TypeChanges() ([]int, error) {
	if err := p.IsValid(); err != nil {
		return nil, err
	}
	var ret []int
	for i, m := range p {
		if m.InputType() != m.OutputType() {
			ret = append(ret, i)
		}
	}
	return ret, nil
}

// InputType returns the input type of the first mod.
func (p Pipeline) InputType() (DataType, bool) {
	if len(p) == 0 {
		return 0, false
	}
	return p[0].InputType(), true
}

// OutputType returns the output type of the last mod.
func (p Pipeline) OutputType() (DataType, bool) {
	if len(p) == 0 {
		return 0, false
	}
	return p[len(p)-1].OutputType(), true
}

// InsertChecked inserts m before index, but only if the pipeline stays
// valid. Into an empty pipeline, any mod can be inserted. Between two mods,
// m must take the output type of its predecessor and produce the input type
// of its successor. At either end, m must not change the type of the data,
// so that the input and output types of the pipeline stay the same, and the
// type must fit the neighbouring mod.
func (p *Pipeline) InsertChecked(index int, m Mod) error {
	n := len(*p)
	if index < 0 || index > n {
		return ErrIndexOutsideRange
	}
	if n == 0 {
		*p = append(*p, m)
		return nil
	}
	in, out := m.InputType(), m.OutputType()
	switch {
	case index > 0 && index < n && (*p)[index-1].OutputType() == in && (*p)[index].InputType() == out:
	case index == 0 && in == out && (*p)[0].InputType() == out:
	case index == n && in == out && (*p)[n-1].OutputType() == in:
	default:
		return ErrInsertBreaksPipeline
	}
	*p = slices.Insert(*p, index, m)
	return nil
}

// Insert inserts m before index without checking the types. Use IsValid
// afterwards.
func (p *Pipeline) Insert(index int, m Mod) error {
	if index < 0 || index > len(*p) {
		return ErrIndexOutsideRange
	}
	*p = slices.Insert(*p, index, m)
	return nil
}

// Remove removes the mod at index.
func (p *Pipeline) Remove(index int) error {
	if index < 0 || index >= len(*p) {
		return ErrIndexOutsideRange
	}
	*p = slices.Delete(*p, index, index+1)
	return nil
}

// Copy returns a new pipeline sharing the same mods.
func (p Pipeline) Copy() Pipeline {
	return slices.Clone(p)
}

// Apply folds input through all the mods, each with its own config and
// state. Either all new states are returned or, on the first failing mod,
// none of them.
func (p Pipeline) Apply(input ModData, confs []ResConfig, states []ResState) (ModData, []ResState, error) {
	if len(confs) != len(p) || len(states) != len(p) {
		return nil, nil, ErrStateCountMismatch
	}
	if err := p.IsValid(); err != nil {
		return nil, nil, err
	}
	newStates := make([]ResState, len(p))
	data := input
	for i, m := range p {
		out, st, err := m.Apply(data, confs[i], states[i])
		if err != nil {
			return nil, nil, &StageError{Stage: "mod", Index: i, Err: err}
		}
		data, newStates[i] = out, st
	}
	return data, newStates, nil
}
