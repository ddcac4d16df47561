package lift

import (
	"github.com/ibexlift/classlift/internal/bcview"
	"github.com/ibexlift/classlift/internal/jtype"
	"github.com/ibexlift/classlift/internal/ssair"
	"github.com/ibexlift/classlift/internal/symref"
)

// MethodEnvelope is the decoded method description the Lifter consumes.
// Collaborators (class-file parsers, fixture loaders) construct this; the
// Lifter never parses a class file itself.
type MethodEnvelope struct {
	OwningClass   jtype.Type
	MethodName    string
	ArgumentTypes []jtype.Type
	ReturnType    jtype.Type
	IsStatic      bool
	MaxLocals     int
	MaxStack      int
	Instructions  bcview.InstructionView
}

// ConstantPool resolves constant-pool indices referenced by instruction
// operands into typed constants or symbol references. Collaborators supply
// an implementation; the Lifter only calls it.
type ConstantPool interface {
	Constant(index int) (bcview.ConstValue, error)
	Field(index int) (symref.FieldRef, error)
	Method(index int) (symref.MethodRef, error)
	Class(index int) (jtype.Type, error)
}

// IndexedOperation pairs an emitted Operation with the source instruction
// index that produced it.
type IndexedOperation struct {
	SourceIndex int
	Operation   ssair.Operation
}

// NodeRef names what, if anything, an instruction contributed to the lift:
// a pushed Expression, an emitted Operation, or neither.
type NodeRefKind int

const (
	RefNone NodeRefKind = iota
	RefExpression
	RefOperation
	RefStackOnly
)

// NodeRef is one entry of LiftedMethod.ByInstruction.
type NodeRef struct {
	Kind NodeRefKind
}

// LiftedMethod is the Lifter's output: the produced interface of §6.
type LiftedMethod struct {
	Arguments          []ssair.Expression
	Operations         []IndexedOperation
	ExpressionsByIndex map[int]ssair.Expression
	ByInstruction      []NodeRef
	Diagnostics        []*Failure
}
