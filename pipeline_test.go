package mleml_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/vsariola/mleml"
)

// shape returns a mod of the given type that passes its input through, or
// produces a zero value of the output type.
func shape(name string, in, out mleml.DataType) *mleml.SimpleMod {
	return mleml.NewSimpleMod(mleml.Info{ID: name, Name: name}, in, out,
		func(input mleml.ModData, _ mleml.ResConfig, state mleml.ResState) (mleml.ModData, mleml.ResState, error) {
			if in == out {
				return input, state, nil
			}
			switch out {
			case mleml.StringType:
				return mleml.Text(name), state, nil
			case mleml.NoteType:
				return mleml.Note{}, state, nil
			case mleml.ReadyNoteType:
				return mleml.ReadyNote{}, state, nil
			}
			return mleml.Silence(0, 44100), state, nil
		}, nil)
}

var dataTypes = []mleml.DataType{mleml.StringType, mleml.NoteType, mleml.ReadyNoteType, mleml.SoundType}

func TestTypeFlow(t *testing.T) {
	p := mleml.Pipeline{
		shape("a", mleml.NoteType, mleml.NoteType),
		shape("b", mleml.NoteType, mleml.ReadyNoteType),
		shape("c", mleml.ReadyNoteType, mleml.SoundType),
	}
	flow, err := p.TypeFlow()
	if err != nil {
		t.Fatalf("TypeFlow failed: %v", err)
	}
	if want := []mleml.DataType{mleml.ReadyNoteType, mleml.SoundType}; !slices.Equal(flow, want) {
		t.Errorf("got %v, want %v", flow, want)
	}
	changes, err := p.TypeChanges()
	if err != nil || !slices.Equal(changes, []int{1, 2}) {
		t.Errorf("TypeChanges() = %v, %v, want [1 2]", changes, err)
	}
	if in, ok := p.InputType(); !ok || in != mleml.NoteType {
		t.Errorf("InputType() = %v, %v", in, ok)
	}
	if out, ok := p.OutputType(); !ok || out != mleml.SoundType {
		t.Errorf("OutputType() = %v, %v", out, ok)
	}
}

func TestBrokenPipeline(t *testing.T) {
	p := mleml.Pipeline{
		shape("a", mleml.NoteType, mleml.ReadyNoteType),
		shape("b", mleml.ReadyNoteType, mleml.SoundType),
		shape("c", mleml.NoteType, mleml.NoteType),
	}
	var broken *mleml.PipelineBrokenError
	if err := p.IsValid(); !errors.As(err, &broken) || broken.Index != 2 {
		t.Fatalf("IsValid() = %v, want broken at mod 2", err)
	}
	if _, err := p.TypeFlow(); err == nil {
		t.Error("TypeFlow of a broken pipeline should fail")
	}
}

func TestInsertIntoEmptyPipeline(t *testing.T) {
	for _, in := range dataTypes {
		for _, out := range dataTypes {
			var p mleml.Pipeline
			if err := p.InsertChecked(0, shape("m", in, out)); err != nil {
				t.Errorf("inserting %v->%v into an empty pipeline: %v", in, out, err)
			}
		}
	}
}

func TestInsertInTheMiddle(t *testing.T) {
	for _, in := range dataTypes {
		for _, out := range dataTypes {
			p := mleml.Pipeline{
				shape("a", mleml.NoteType, mleml.ReadyNoteType),
				shape("b", mleml.ReadyNoteType, mleml.SoundType),
			}
			err := p.InsertChecked(1, shape("m", in, out))
			fits := in == mleml.ReadyNoteType && out == mleml.ReadyNoteType
			if fits && err != nil {
				t.Errorf("inserting %v->%v: %v", in, out, err)
			}
			if !fits && !errors.Is(err, mleml.ErrInsertBreaksPipeline) {
				t.Errorf("inserting %v->%v: got %v, want ErrInsertBreaksPipeline", in, out, err)
			}
			if err := p.IsValid(); err != nil {
				t.Errorf("pipeline invalid after inserting %v->%v: %v", in, out, err)
			}
		}
	}
}

func TestInsertAtTheEdges(t *testing.T) {
	base := func() mleml.Pipeline {
		return mleml.Pipeline{shape("a", mleml.NoteType, mleml.SoundType)}
	}
	p := base()
	if err := p.InsertChecked(0, shape("n", mleml.NoteType, mleml.NoteType)); err != nil {
		t.Errorf("Note->Note at the start: %v", err)
	}
	p = base()
	if err := p.InsertChecked(1, shape("s", mleml.SoundType, mleml.SoundType)); err != nil {
		t.Errorf("Sound->Sound at the end: %v", err)
	}
	p = base()
	if err := p.InsertChecked(0, shape("x", mleml.ReadyNoteType, mleml.NoteType)); !errors.Is(err, mleml.ErrInsertBreaksPipeline) {
		t.Errorf("type changing mod at the start: got %v", err)
	}
	p = base()
	if err := p.InsertChecked(1, shape("x", mleml.NoteType, mleml.NoteType)); !errors.Is(err, mleml.ErrInsertBreaksPipeline) {
		t.Errorf("Note->Note at the end: got %v", err)
	}
	p = base()
	if err := p.InsertChecked(2, shape("s", mleml.SoundType, mleml.SoundType)); !errors.Is(err, mleml.ErrIndexOutsideRange) {
		t.Errorf("index past the end: got %v", err)
	}
	if err := p.InsertChecked(-1, shape("s", mleml.SoundType, mleml.SoundType)); !errors.Is(err, mleml.ErrIndexOutsideRange) {
		t.Errorf("negative index: got %v", err)
	}
}

func TestCheckedInsertsKeepPipelineValid(t *testing.T) {
	var p mleml.Pipeline
	for i := 0; i < 200; i++ {
		in, out := dataTypes[i%4], dataTypes[(i*7/3)%4]
		p.InsertChecked((i*13)%(len(p)+1), shape("m", in, out))
		if err := p.IsValid(); err != nil {
			t.Fatalf("pipeline invalid after %d inserts: %v", i+1, err)
		}
	}
}

func TestPipelineApplyAllOrNothing(t *testing.T) {
	counter := mleml.NewSimpleMod(mleml.Info{Name: "counter"}, mleml.StringType, mleml.StringType,
		func(input mleml.ModData, _ mleml.ResConfig, state mleml.ResState) (mleml.ModData, mleml.ResState, error) {
			return input, mleml.ResState{byte(len(state) + 1)}, nil
		}, nil)
	failing := mleml.NewSimpleMod(mleml.Info{Name: "failing"}, mleml.StringType, mleml.StringType,
		func(mleml.ModData, mleml.ResConfig, mleml.ResState) (mleml.ModData, mleml.ResState, error) {
			return nil, nil, mleml.Errorf("refusing")
		}, nil)
	p := mleml.Pipeline{counter, counter}
	out, states, err := p.Apply(mleml.Text("x"), make([]mleml.ResConfig, 2), make([]mleml.ResState, 2))
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if out != mleml.Text("x") || len(states) != 2 || !states[1].Equal(mleml.ResState{1}) {
		t.Errorf("got %v %v", out, states)
	}
	p = append(p, failing)
	out, states, err = p.Apply(mleml.Text("x"), make([]mleml.ResConfig, 3), make([]mleml.ResState, 3))
	var stage *mleml.StageError
	if !errors.As(err, &stage) || stage.Index != 2 {
		t.Fatalf("expected failure at mod 2, got %v", err)
	}
	if out != nil || states != nil {
		t.Errorf("failed Apply returned %v %v", out, states)
	}
	if _, _, err := p.Apply(mleml.Text("x"), nil, nil); !errors.Is(err, mleml.ErrStateCountMismatch) {
		t.Errorf("missing configs: got %v", err)
	}
}

func TestModRejectsWrongInput(t *testing.T) {
	called := false
	m := mleml.NewSimpleMod(mleml.Info{}, mleml.NoteType, mleml.NoteType,
		func(input mleml.ModData, _ mleml.ResConfig, state mleml.ResState) (mleml.ModData, mleml.ResState, error) {
			called = true
			return input, state, nil
		}, nil)
	_, _, err := m.Apply(mleml.Text("not a note"), nil, nil)
	var ite *mleml.InputTypeError
	if !errors.As(err, &ite) || ite.Got != mleml.StringType {
		t.Errorf("got %v, want *InputTypeError", err)
	}
	if called {
		t.Error("apply function ran for wrong input")
	}
	if m.ID() == "" {
		t.Error("mod without ID did not get one")
	}
}
