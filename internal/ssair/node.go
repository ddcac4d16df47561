// Package ssair defines the SSA intermediate representation the Lifter
// produces: a closed set of value-producing Expression nodes and
// side-effecting or control-flow Operation nodes, forming a DAG of shared
// subexpressions addressed by ordinary Go pointers.
package ssair

import (
	"errors"
	"fmt"

	"github.com/ibexlift/classlift/internal/jtype"
	"github.com/ibexlift/classlift/internal/symref"
)

// ErrNoType is returned by ReturnAddress.Type, which has no meaningful type
// and must not be queried for one.
var ErrNoType = errors.New("ssair: node has no type")

// Expression is any value-producing IR node. Every Expression can answer
// Type() from its own structure, without external context.
type Expression interface {
	Type() (jtype.Type, error)
}

// Operation is any side-effecting or control-flow IR node.
type Operation interface {
	isOperation()
}

// ArithOp enumerates the binary arithmetic operators.
type ArithOp int

const (
	Add ArithOp = iota
	Sub
	Mul
	Div
	Rem
	Shl
	Shr
	UShr
	And
	Or
	Xor
)

// CompareOp enumerates the comparison operators.
type CompareOp int

const (
	Eq CompareOp = iota
	Lt
	Gt
)

// InvokeKind enumerates the four invocation forms.
type InvokeKind int

const (
	Static InvokeKind = iota
	Virtual
	Interface
	Special
)

// Argument is one method parameter, pre-seeded into the local environment.
type Argument struct {
	Name string
	Typ  jtype.Type
}

func (a *Argument) Type() (jtype.Type, error) { return a.Typ, nil }

// Constant is a literal value pushed from the constant pool or an
// immediate-encoded numeric instruction.
type Constant struct {
	Value interface{} // nil, int32, int64, float32, float64, string, or a class-literal jtype.Type
	Typ   jtype.Type
}

func (c *Constant) Type() (jtype.Type, error) { return c.Typ, nil }

// Phi reconciles differing bindings at a control-flow join point. Inputs
// are ordered by ascending predecessor instruction index.
type Phi struct {
	Inputs []Expression
	Typ    jtype.Type // set by unify() at construction; a phi with pending inputs is re-unified once they are patched in (see lift.joinResolver)
}

func (p *Phi) Type() (jtype.Type, error) { return p.Typ, nil }

// BinaryArithmetic requires Lhs.Type() == Rhs.Type(); its own Type() is
// that common type.
type BinaryArithmetic struct {
	Op       ArithOp
	Lhs, Rhs Expression
}

func (b *BinaryArithmetic) Type() (jtype.Type, error) {
	lt, err := b.Lhs.Type()
	if err != nil {
		return jtype.Type{}, err
	}
	rt, err := b.Rhs.Type()
	if err != nil {
		return jtype.Type{}, err
	}
	if !lt.Equal(rt) {
		return jtype.Type{}, fmt.Errorf("ssair: BinaryArithmetic operand type mismatch: %s vs %s", lt, rt)
	}
	return lt, nil
}

// Comparison always has type boolean.
type Comparison struct {
	Op       CompareOp
	Lhs, Rhs Expression
}

func (c *Comparison) Type() (jtype.Type, error) { return jtype.NewPrimitive(jtype.Boolean), nil }

// LogicalNot negates a boolean-typed inner expression; type is boolean.
type LogicalNot struct {
	Inner Expression
}

func (n *LogicalNot) Type() (jtype.Type, error) { return jtype.NewPrimitive(jtype.Boolean), nil }

// Cast covers both widening numeric conversions and checked reference casts.
type Cast struct {
	Inner  Expression
	Target jtype.Type
}

func (c *Cast) Type() (jtype.Type, error) { return c.Target, nil }

// InstanceCheck always has type boolean.
type InstanceCheck struct {
	Inner     Expression
	ProbeType jtype.Type
}

func (c *InstanceCheck) Type() (jtype.Type, error) { return jtype.NewPrimitive(jtype.Boolean), nil }

// FieldRead reads an instance field (Receiver set) or a static field
// (Receiver nil); type is the field's declared type.
type FieldRead struct {
	Field    symref.FieldRef
	Receiver Expression // nil iff static
}

func (f *FieldRead) Type() (jtype.Type, error) { return f.Field.Type, nil }

// ArrayLoad reads one element; type is the element type of Array's type.
type ArrayLoad struct {
	Array, Index Expression
}

func (a *ArrayLoad) Type() (jtype.Type, error) {
	at, err := a.Array.Type()
	if err != nil {
		return jtype.Type{}, err
	}
	return at.ElementType()
}

// ArrayLength always has type int.
type ArrayLength struct {
	Array Expression
}

func (a *ArrayLength) Type() (jtype.Type, error) { return jtype.NewPrimitive(jtype.Int), nil }

// Allocate constructs a scalar (Dims nil) or array (Dims non-nil, one
// length expression per dimension) instance of Typ.
type Allocate struct {
	Typ  jtype.Type
	Dims []Expression
}

func (a *Allocate) Type() (jtype.Type, error) { return a.Typ, nil }

// Invoke is both an Expression (when Method.ReturnType is non-void) and,
// when its result is discarded or its return type is void, recorded by the
// Lifter as an emitted Operation via InvokeStatement.
type Invoke struct {
	Kind      InvokeKind
	Method    symref.MethodRef
	Arguments []Expression
	Receiver  Expression // nil iff Kind == Static
}

func (i *Invoke) Type() (jtype.Type, error) { return i.Method.ReturnType, nil }

// ReturnAddress is the pseudo-value pushed by jsr; it has no type and must
// not be queried for one.
type ReturnAddress struct {
	TargetLabel int
}

func (r *ReturnAddress) Type() (jtype.Type, error) {
	return jtype.Type{}, fmt.Errorf("%w: ReturnAddress", ErrNoType)
}

// --- Operations ---

// FieldWrite stores Value into an instance field (Receiver set) or a
// static field (Receiver nil).
type FieldWrite struct {
	Field    symref.FieldRef
	Value    Expression
	Receiver Expression
}

func (*FieldWrite) isOperation() {}

// ArrayStore stores Value at Index in Array.
type ArrayStore struct {
	Array, Index, Value Expression
}

func (*ArrayStore) isOperation() {}

// Return is a typed return (Value set) or a void return (Value nil).
type Return struct {
	Value Expression
}

func (*Return) isOperation() {}

// Throw raises Value as an exception.
type Throw struct {
	Value Expression
}

func (*Throw) isOperation() {}

// Branch is unconditional (Condition nil) or conditional.
type Branch struct {
	Condition   Expression
	Destination int
}

func (*Branch) isOperation() {}

// SubroutineCall is the legacy jsr target.
type SubroutineCall struct {
	Destination int
}

func (*SubroutineCall) isOperation() {}

// SubroutineReturn is the legacy ret; no local-slot target resolution is
// reconstructed (see DESIGN.md JSR/RET simplification).
type SubroutineReturn struct{}

func (*SubroutineReturn) isOperation() {}

// SwitchCase is one decoded (key, target) entry.
type SwitchCase struct {
	Key    int32
	Target int
}

// Switch is a decoded tableswitch/lookupswitch.
type Switch struct {
	Selector Expression
	Cases    []SwitchCase
	Default  int
}

func (*Switch) isOperation() {}

// MonitorEnter and MonitorExit bracket a synchronized region.
type MonitorEnter struct{ Value Expression }

func (*MonitorEnter) isOperation() {}

type MonitorExit struct{ Value Expression }

func (*MonitorExit) isOperation() {}

// InvokeStatement wraps an Invoke whose result is discarded (or which
// returns void) so it can be recorded in the emitted-operations array
// without being mistaken for a pure Expression-only node; see spec §9
// "node-kind polymorphism".
type InvokeStatement struct {
	Invoke *Invoke
}

func (*InvokeStatement) isOperation() {}
