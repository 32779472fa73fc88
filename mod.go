package mleml

type (
	// Mod is a resource with one pure transformation. Calling Apply twice
	// with the same arguments must return the same output and the same new
	// state; everything the mod remembers between calls goes through state.
	Mod interface {
		Resource
		// Apply transforms input. Input of the wrong variant is rejected
		// before any work is done.
		Apply(input ModData, conf ResConfig, state ResState) (ModData, ResState, error)
		InputType() DataType
		OutputType() DataType
	}

	// ModFunc is the transformation of a SimpleMod. The input is guaranteed
	// to be of the mod's input type and conf to match the mod's schema.
	ModFunc func(input ModData, conf ResConfig, state ResState) (ModData, ResState, error)

	// SimpleMod is a Mod built out of plain functions.
	SimpleMod struct {
		template
		input, output DataType
		apply         ModFunc
	}

	// template implements the Resource part of SimpleMod and SimplePlatform.
	template struct {
		info       Info
		checkState func(ResState) bool
	}
)

// NewSimpleMod returns a mod that checks the input type and the config
// before calling apply. If info.ID is empty, a random ID is generated. A nil
// checkState accepts every state.
func NewSimpleMod(info Info, input, output DataType, apply ModFunc, checkState func(ResState) bool) *SimpleMod {
	return &SimpleMod{
		template: template{info: info.withID(), checkState: checkState},
		input:    input,
		output:   output,
		apply:    apply,
	}
}

func (t *template) ID() string          { return t.info.ID }
func (t *template) Description() string { return t.info.Description }
func (t *template) Schema() ResConfig   { return t.info.Schema.Copy() }

func (t *template) OrigName() (string, bool) {
	return t.info.Name, t.info.Name != ""
}

func (t *template) CheckConfig(conf ResConfig) error {
	return conf.CheckSchema(t.info.Schema)
}

func (t *template) CheckState(state ResState) bool {
	if t.checkState == nil {
		return true
	}
	return t.checkState(state)
}

func (m *SimpleMod) InputType() DataType  { return m.input }
func (m *SimpleMod) OutputType() DataType { return m.output }

func (m *SimpleMod) Apply(input ModData, conf ResConfig, state ResState) (ModData, ResState, error) {
	if err := CheckInput(m, input); err != nil {
		return nil, nil, err
	}
	if err := m.CheckConfig(conf); err != nil {
		return nil, nil, err
	}
	if !m.CheckState(state) {
		return nil, nil, Errorf("invalid state for %v", Name(m))
	}
	out, newState, err := m.apply(input, conf, state)
	if err != nil {
		return nil, nil, err
	}
	if out == nil || out.Type() != m.output {
		return nil, nil, Errorf("%v produced %v, declared %v", Name(m), typeOf(out), m.output)
	}
	return out, newState, nil
}

// CheckInput returns an *InputTypeError if input is not of the input type of
// the mod.
func CheckInput(m Mod, input ModData) error {
	if input == nil {
		return &InputTypeError{Expected: m.InputType(), Got: -1}
	}
	if got := input.Type(); got != m.InputType() {
		return &InputTypeError{Expected: m.InputType(), Got: got}
	}
	return nil
}

func typeOf(d ModData) DataType {
	if d == nil {
		return -1
	}
	return d.Type()
}
