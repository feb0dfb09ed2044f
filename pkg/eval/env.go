package eval

import "github.com/GriffinCanCode/qirc/pkg/fir"

// Variable is a bound local.
type Variable struct {
	Name  string
	Value Value
	Span  fir.Span
}

// Env is a stack of lexical frames. The bottom frame is the root and is
// never popped.
type Env struct {
	frames []map[fir.LocalVarID]*Variable
}

// NewEnv creates an environment holding only the root frame.
func NewEnv() *Env {
	return &Env{frames: []map[fir.LocalVarID]*Variable{{}}}
}

// PushScope opens a frame.
func (e *Env) PushScope() {
	e.frames = append(e.frames, map[fir.LocalVarID]*Variable{})
}

// PopScope closes the innermost frame.
func (e *Env) PopScope() {
	if len(e.frames) == 1 {
		panic("cannot pop the root frame")
	}
	e.frames = e.frames[:len(e.frames)-1]
}

// Len is the number of open frames including the root.
func (e *Env) Len() int { return len(e.frames) }

// Truncate drops frames until n remain.
func (e *Env) Truncate(n int) {
	if n < 1 {
		n = 1
	}
	if n < len(e.frames) {
		e.frames = e.frames[:n]
	}
}

// Bind defines id in the innermost frame.
func (e *Env) Bind(id fir.LocalVarID, v *Variable) {
	e.frames[len(e.frames)-1][id] = v
}

// Get finds id in the innermost frame that defines it.
func (e *Env) Get(id fir.LocalVarID) (*Variable, bool) {
	for i := len(e.frames) - 1; i >= 0; i-- {
		if v, ok := e.frames[i][id]; ok {
			return v, true
		}
	}
	return nil, false
}

// Update overwrites the value of an existing binding.
func (e *Env) Update(id fir.LocalVarID, value Value) bool {
	v, ok := e.Get(id)
	if !ok {
		return false
	}
	v.Value = value
	return true
}
