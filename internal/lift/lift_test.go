package lift

import (
	"errors"
	"testing"

	"github.com/ibexlift/classlift/internal/bcview"
	"github.com/ibexlift/classlift/internal/jtype"
	"github.com/ibexlift/classlift/internal/ssair"
	"github.com/ibexlift/classlift/internal/symref"
)

// stubPool is a ConstantPool that answers fixed indices, for tests that
// need field, method, or class-literal resolution.
type stubPool struct {
	constants map[int]bcview.ConstValue
	fields    map[int]symref.FieldRef
	methods   map[int]symref.MethodRef
	classes   map[int]jtype.Type
}

func newStubPool() *stubPool {
	return &stubPool{
		constants: map[int]bcview.ConstValue{},
		fields:    map[int]symref.FieldRef{},
		methods:   map[int]symref.MethodRef{},
		classes:   map[int]jtype.Type{},
	}
}

func (p *stubPool) Constant(index int) (bcview.ConstValue, error) {
	if v, ok := p.constants[index]; ok {
		return v, nil
	}
	return bcview.ConstValue{}, errors.New("no such constant")
}

func (p *stubPool) Field(index int) (symref.FieldRef, error) {
	if v, ok := p.fields[index]; ok {
		return v, nil
	}
	return symref.FieldRef{}, errors.New("no such field")
}

func (p *stubPool) Method(index int) (symref.MethodRef, error) {
	if v, ok := p.methods[index]; ok {
		return v, nil
	}
	return symref.MethodRef{}, errors.New("no such method")
}

func (p *stubPool) Class(index int) (jtype.Type, error) {
	if v, ok := p.classes[index]; ok {
		return v, nil
	}
	return jtype.Type{}, errors.New("no such class")
}

func view(instrs ...bcview.Instruction) bcview.InstructionView {
	return bcview.NewView(instrs)
}

func instr(op bcview.Opcode, operand bcview.Operand) bcview.Instruction {
	return bcview.Instruction{Op: op, Operand: operand}
}

func envFor(static bool, args []jtype.Type, ret jtype.Type, maxLocals, maxStack int, v bcview.InstructionView) MethodEnvelope {
	return MethodEnvelope{
		OwningClass:   jtype.NewReference("com/example/Widget"),
		MethodName:    "m",
		ArgumentTypes: args,
		ReturnType:    ret,
		IsStatic:      static,
		MaxLocals:     maxLocals,
		MaxStack:      maxStack,
		Instructions:  v,
	}
}

// --- S1: constant return ---

func TestScenarioConstantReturn(t *testing.T) {
	v := view(
		instr(bcview.Iconst1, bcview.Operand{}),
		instr(bcview.Ireturn, bcview.Operand{}),
	)
	env := envFor(true, nil, jtype.NewPrimitive(jtype.Int), 0, 2, v)

	lifted, fail := NewLifter().Lift(env, newStubPool())
	if fail != nil {
		t.Fatalf("unexpected failure: %v", fail)
	}
	if len(lifted.Operations) != 1 {
		t.Fatalf("expected 1 operation, got %d", len(lifted.Operations))
	}
	ret, ok := lifted.Operations[0].Operation.(*ssair.Return)
	if !ok {
		t.Fatalf("expected Return operation, got %T", lifted.Operations[0].Operation)
	}
	c, ok := ret.Value.(*ssair.Constant)
	if !ok {
		t.Fatalf("expected Constant return value, got %T", ret.Value)
	}
	if c.Value.(int32) != 1 {
		t.Errorf("expected constant 1, got %v", c.Value)
	}
}

// --- S2: add two arguments ---

func TestScenarioAddArguments(t *testing.T) {
	v := view(
		instr(bcview.Iload0, bcview.Operand{}),
		instr(bcview.Iload1, bcview.Operand{}),
		instr(bcview.Iadd, bcview.Operand{}),
		instr(bcview.Ireturn, bcview.Operand{}),
	)
	env := envFor(true, []jtype.Type{jtype.NewPrimitive(jtype.Int), jtype.NewPrimitive(jtype.Int)}, jtype.NewPrimitive(jtype.Int), 2, 2, v)

	lifted, fail := NewLifter().Lift(env, newStubPool())
	if fail != nil {
		t.Fatalf("unexpected failure: %v", fail)
	}
	if len(lifted.Arguments) != 2 {
		t.Fatalf("expected 2 arguments, got %d", len(lifted.Arguments))
	}
	ret := lifted.Operations[len(lifted.Operations)-1].Operation.(*ssair.Return)
	sum, ok := ret.Value.(*ssair.BinaryArithmetic)
	if !ok {
		t.Fatalf("expected BinaryArithmetic, got %T", ret.Value)
	}
	if sum.Op != ssair.Add {
		t.Errorf("expected Add, got %v", sum.Op)
	}
	if sum.Lhs != lifted.Arguments[0] || sum.Rhs != lifted.Arguments[1] {
		t.Errorf("expected operands to be arg0, arg1 in that order")
	}
}

// --- S3: static field increment ---

func TestScenarioStaticFieldIncrement(t *testing.T) {
	field := symref.FieldRef{
		Owner: jtype.NewReference("com/example/Widget"),
		Name:  "counter",
		Type:  jtype.NewPrimitive(jtype.Int),
	}
	pool := newStubPool()
	pool.fields[0] = field

	v := view(
		instr(bcview.Getstatic, bcview.Operand{SymbolIndex: 0}),
		instr(bcview.Iconst1, bcview.Operand{}),
		instr(bcview.Iadd, bcview.Operand{}),
		instr(bcview.Putstatic, bcview.Operand{SymbolIndex: 0}),
		instr(bcview.Return, bcview.Operand{}),
	)
	env := envFor(true, nil, jtype.Void, 0, 2, v)

	lifted, fail := NewLifter().Lift(env, pool)
	if fail != nil {
		t.Fatalf("unexpected failure: %v", fail)
	}
	write, ok := lifted.Operations[len(lifted.Operations)-2].Operation.(*ssair.FieldWrite)
	if !ok {
		t.Fatalf("expected FieldWrite, got %T", lifted.Operations[len(lifted.Operations)-2].Operation)
	}
	if write.Receiver != nil {
		t.Errorf("expected nil receiver for a static field write")
	}
	sum, ok := write.Value.(*ssair.BinaryArithmetic)
	if !ok {
		t.Fatalf("expected BinaryArithmetic value, got %T", write.Value)
	}
	read, ok := sum.Lhs.(*ssair.FieldRead)
	if !ok || read.Field.Name != "counter" {
		t.Fatalf("expected FieldRead(counter) as lhs, got %#v", sum.Lhs)
	}
}

// --- S4: iinc local increment ---

func TestScenarioIincLocal(t *testing.T) {
	v := view(
		instr(bcview.Iinc, bcview.Operand{Inc: bcview.IncTarget{Slot: 0, Delta: 3}}),
		instr(bcview.Iload0, bcview.Operand{}),
		instr(bcview.Ireturn, bcview.Operand{}),
	)
	env := envFor(true, []jtype.Type{jtype.NewPrimitive(jtype.Int)}, jtype.NewPrimitive(jtype.Int), 1, 1, v)

	lifted, fail := NewLifter().Lift(env, newStubPool())
	if fail != nil {
		t.Fatalf("unexpected failure: %v", fail)
	}
	ret := lifted.Operations[0].Operation.(*ssair.Return)
	add, ok := ret.Value.(*ssair.BinaryArithmetic)
	if !ok {
		t.Fatalf("expected BinaryArithmetic, got %T", ret.Value)
	}
	if add.Lhs != lifted.Arguments[0] {
		t.Errorf("expected iinc lhs to be the pre-increment argument")
	}
	delta, ok := add.Rhs.(*ssair.Constant)
	if !ok || delta.Value.(int32) != 3 {
		t.Fatalf("expected constant delta 3, got %#v", add.Rhs)
	}
}

// --- S5: virtual invocation, void return ---

func TestScenarioVirtualInvokeVoidReturn(t *testing.T) {
	method := symref.MethodRef{
		Owner:      jtype.NewReference("com/example/Widget"),
		Name:       "touch",
		ArgTypes:   nil,
		ReturnType: jtype.Void,
	}
	pool := newStubPool()
	pool.methods[0] = method

	v := view(
		instr(bcview.Aload0, bcview.Operand{}),
		instr(bcview.Invokevirtual, bcview.Operand{SymbolIndex: 0}),
		instr(bcview.Return, bcview.Operand{}),
	)
	env := envFor(false, nil, jtype.Void, 1, 1, v)

	lifted, fail := NewLifter().Lift(env, pool)
	if fail != nil {
		t.Fatalf("unexpected failure: %v", fail)
	}
	invoke, ok := lifted.Operations[0].Operation.(*ssair.InvokeStatement)
	if !ok {
		t.Fatalf("expected InvokeStatement, got %T", lifted.Operations[0].Operation)
	}
	if invoke.Invoke.Kind != ssair.Virtual {
		t.Errorf("expected Virtual invoke kind")
	}
	if invoke.Invoke.Receiver != lifted.Arguments[0] {
		t.Errorf("expected receiver to be the implicit this argument")
	}
}

// a non-void invoke whose result is popped stays recorded as an Expression
// at its own index; the pop that discards it emits an InvokeStatement
// wrapping the same node, so the call still appears among the operations.
func TestInvariantDiscardedNonVoidInvokeStaysExpression(t *testing.T) {
	method := symref.MethodRef{
		Owner:      jtype.NewReference("com/example/Widget"),
		Name:       "touch",
		ArgTypes:   nil,
		ReturnType: jtype.NewPrimitive(jtype.Int),
	}
	pool := newStubPool()
	pool.methods[0] = method

	v := view(
		instr(bcview.Aload0, bcview.Operand{}),
		instr(bcview.Invokevirtual, bcview.Operand{SymbolIndex: 0}),
		instr(bcview.Pop, bcview.Operand{}),
		instr(bcview.Return, bcview.Operand{}),
	)
	env := envFor(false, nil, jtype.Void, 1, 1, v)

	lifted, fail := NewLifter().Lift(env, pool)
	if fail != nil {
		t.Fatalf("unexpected failure: %v", fail)
	}
	invoke, ok := lifted.ExpressionsByIndex[1].(*ssair.Invoke)
	if !ok {
		t.Fatalf("expected the invoke to be recorded as an Expression, got %T", lifted.ExpressionsByIndex[1])
	}
	if invoke.Receiver != lifted.Arguments[0] {
		t.Errorf("expected receiver to be the implicit this argument")
	}
	var stmts []IndexedOperation
	for _, op := range lifted.Operations {
		if _, ok := op.Operation.(*ssair.InvokeStatement); ok {
			stmts = append(stmts, op)
		}
	}
	if len(stmts) != 1 || stmts[0].SourceIndex != 2 || stmts[0].Operation.(*ssair.InvokeStatement).Invoke != invoke {
		t.Errorf("expected the pop at index 2 to emit one InvokeStatement wrapping the discarded invoke, got %+v", stmts)
	}
}

// --- S6: array store ---

func TestScenarioArrayStore(t *testing.T) {
	v := view(
		instr(bcview.Aload0, bcview.Operand{}),
		instr(bcview.Iconst0, bcview.Operand{}),
		instr(bcview.Iconst5, bcview.Operand{}),
		instr(bcview.Iastore, bcview.Operand{}),
		instr(bcview.Return, bcview.Operand{}),
	)
	arrTy := jtype.MakeArray(jtype.NewPrimitive(jtype.Int), 1)
	env := envFor(true, []jtype.Type{arrTy}, jtype.Void, 1, 3, v)

	lifted, fail := NewLifter().Lift(env, newStubPool())
	if fail != nil {
		t.Fatalf("unexpected failure: %v", fail)
	}
	store, ok := lifted.Operations[0].Operation.(*ssair.ArrayStore)
	if !ok {
		t.Fatalf("expected ArrayStore, got %T", lifted.Operations[0].Operation)
	}
	if store.Array != lifted.Arguments[0] {
		t.Errorf("expected array operand to be arg0")
	}
	idx := store.Index.(*ssair.Constant)
	if idx.Value.(int32) != 0 {
		t.Errorf("expected index constant 0, got %v", idx.Value)
	}
	val := store.Value.(*ssair.Constant)
	if val.Value.(int32) != 5 {
		t.Errorf("expected value constant 5, got %v", val.Value)
	}
}

// --- invariants ---

func TestInvariantEmptyInstructionList(t *testing.T) {
	env := envFor(true, nil, jtype.Void, 0, 0, view())
	lifted, fail := NewLifter().Lift(env, newStubPool())
	if fail != nil {
		t.Fatalf("unexpected failure: %v", fail)
	}
	if len(lifted.Operations) != 0 || len(lifted.ExpressionsByIndex) != 0 {
		t.Errorf("expected an empty lift, got %+v", lifted)
	}
}

func TestInvariantBinaryArithmeticTypeMismatch(t *testing.T) {
	v := view(
		instr(bcview.Iload0, bcview.Operand{}),
		instr(bcview.Lload1, bcview.Operand{}),
		instr(bcview.Iadd, bcview.Operand{}),
		instr(bcview.Ireturn, bcview.Operand{}),
	)
	env := envFor(true, []jtype.Type{jtype.NewPrimitive(jtype.Int), jtype.NewPrimitive(jtype.Long)}, jtype.NewPrimitive(jtype.Int), 3, 2, v)

	_, fail := NewLifter().Lift(env, newStubPool())
	if fail == nil {
		t.Fatal("expected a type-mismatch failure")
	}
	if !errors.Is(fail, ErrTypeMismatch) {
		t.Errorf("expected ErrTypeMismatch, got %v", fail)
	}
}

func TestInvariantArrayLoadElementType(t *testing.T) {
	v := view(
		instr(bcview.Aload0, bcview.Operand{}),
		instr(bcview.Iconst0, bcview.Operand{}),
		instr(bcview.Iaload, bcview.Operand{}),
		instr(bcview.Ireturn, bcview.Operand{}),
	)
	arrTy := jtype.MakeArray(jtype.NewPrimitive(jtype.Int), 1)
	env := envFor(true, []jtype.Type{arrTy}, jtype.NewPrimitive(jtype.Int), 1, 2, v)

	lifted, fail := NewLifter().Lift(env, newStubPool())
	if fail != nil {
		t.Fatalf("unexpected failure: %v", fail)
	}
	ret := lifted.Operations[0].Operation.(*ssair.Return)
	load := ret.Value.(*ssair.ArrayLoad)
	ty, err := load.Type()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ty.Equal(jtype.NewPrimitive(jtype.Int)) {
		t.Errorf("expected element type int, got %s", ty)
	}
}

func TestInvariantInvokeArgumentCount(t *testing.T) {
	method := symref.MethodRef{
		Owner:      jtype.NewReference("com/example/Widget"),
		Name:       "combine",
		ArgTypes:   []jtype.Type{jtype.NewPrimitive(jtype.Int), jtype.NewPrimitive(jtype.Int)},
		ReturnType: jtype.NewPrimitive(jtype.Int),
	}
	pool := newStubPool()
	pool.methods[0] = method

	v := view(
		instr(bcview.Aload0, bcview.Operand{}),
		instr(bcview.Iconst1, bcview.Operand{}),
		instr(bcview.Iconst2, bcview.Operand{}),
		instr(bcview.Invokevirtual, bcview.Operand{SymbolIndex: 0}),
		instr(bcview.Ireturn, bcview.Operand{}),
	)
	env := envFor(false, nil, jtype.NewPrimitive(jtype.Int), 1, 3, v)

	lifted, fail := NewLifter().Lift(env, pool)
	if fail != nil {
		t.Fatalf("unexpected failure: %v", fail)
	}
	ret := lifted.Operations[0].Operation.(*ssair.Return)
	invoke := ret.Value.(*ssair.Invoke)
	if len(invoke.Arguments) != len(method.ArgTypes) {
		t.Fatalf("expected %d arguments, got %d", len(method.ArgTypes), len(invoke.Arguments))
	}
	first := invoke.Arguments[0].(*ssair.Constant)
	second := invoke.Arguments[1].(*ssair.Constant)
	if first.Value.(int32) != 1 || second.Value.(int32) != 2 {
		t.Errorf("expected arguments in push order [1, 2], got [%v, %v]", first.Value, second.Value)
	}
}

func TestInvariantBranchTargetStackMustBeEmpty(t *testing.T) {
	v := view(
		instr(bcview.Iconst1, bcview.Operand{}),
		instr(bcview.Goto, bcview.Operand{BranchTarget: 2}),
		instr(bcview.Return, bcview.Operand{}),
	)
	env := envFor(true, nil, jtype.Void, 0, 2, v)

	_, fail := NewLifter().Lift(env, newStubPool())
	if fail == nil {
		t.Fatal("expected a join-stack-non-empty failure")
	}
	if !errors.Is(fail, ErrJoinStackNonEmpty) {
		t.Errorf("expected ErrJoinStackNonEmpty, got %v", fail)
	}
}

func TestInvariantConditionalBranchNegation(t *testing.T) {
	v := view(
		instr(bcview.Iload0, bcview.Operand{}),
		instr(bcview.Ifne, bcview.Operand{BranchTarget: 3}),
		instr(bcview.Return, bcview.Operand{}),
		instr(bcview.Return, bcview.Operand{}),
	)
	env := envFor(true, []jtype.Type{jtype.NewPrimitive(jtype.Int)}, jtype.Void, 1, 1, v)

	lifted, fail := NewLifter().Lift(env, newStubPool())
	if fail != nil {
		t.Fatalf("unexpected failure: %v", fail)
	}
	branch := lifted.Operations[0].Operation.(*ssair.Branch)
	not, ok := branch.Condition.(*ssair.LogicalNot)
	if !ok {
		t.Fatalf("expected ifne to wrap its comparison in LogicalNot, got %T", branch.Condition)
	}
	cmp, ok := not.Inner.(*ssair.Comparison)
	if !ok || cmp.Op != ssair.Eq {
		t.Fatalf("expected the inner comparison to test equality, got %#v", not.Inner)
	}
}

func TestInvariantPhiUnifiesLoopBackedge(t *testing.T) {
	// a loop whose header (index 2) merges the entry binding of local0 (a
	// constant 0, already visited when the join is first resolved) with a
	// binding rebuilt fresh in the loop body (a constant 1, bound only once
	// the backward goto at index 6 is visited) — a pending predecessor
	// patched in after the fact, per the incomplete-phi construction.
	v := view(
		instr(bcview.Iconst0, bcview.Operand{}),
		instr(bcview.Istore0, bcview.Operand{}),
		instr(bcview.Iload0, bcview.Operand{}), // 2: loop header, join point
		instr(bcview.Ifge, bcview.Operand{BranchTarget: 7}),
		instr(bcview.Iconst1, bcview.Operand{}),
		instr(bcview.Istore0, bcview.Operand{}),
		instr(bcview.Goto, bcview.Operand{BranchTarget: 2}),
		instr(bcview.Iload0, bcview.Operand{}),
		instr(bcview.Ireturn, bcview.Operand{}),
	)
	env := envFor(true, nil, jtype.NewPrimitive(jtype.Int), 1, 1, v)

	lifted, fail := NewLifter().Lift(env, newStubPool())
	if fail != nil {
		t.Fatalf("unexpected failure: %v", fail)
	}
	exitRet := lifted.Operations[len(lifted.Operations)-1].Operation.(*ssair.Return)
	header, ok := exitRet.Value.(*ssair.Phi)
	if !ok {
		t.Fatalf("expected the exit path to read back the header's Phi, got %T", exitRet.Value)
	}
	if len(header.Inputs) != 2 {
		t.Fatalf("expected 2 phi inputs, got %d", len(header.Inputs))
	}
	ty, err := header.Type()
	if err != nil {
		t.Fatalf("unexpected error resolving phi type: %v", err)
	}
	if !ty.Equal(jtype.NewPrimitive(jtype.Int)) {
		t.Errorf("expected phi type int, got %s", ty)
	}
}

func TestInvariantExpressionsByIndexAndOperationsKeysUnique(t *testing.T) {
	v := view(
		instr(bcview.Iconst1, bcview.Operand{}),
		instr(bcview.Iconst2, bcview.Operand{}),
		instr(bcview.Iadd, bcview.Operand{}),
		instr(bcview.Ireturn, bcview.Operand{}),
	)
	env := envFor(true, nil, jtype.NewPrimitive(jtype.Int), 0, 2, v)

	lifted, fail := NewLifter().Lift(env, newStubPool())
	if fail != nil {
		t.Fatalf("unexpected failure: %v", fail)
	}
	seen := map[int]bool{}
	for idx := range lifted.ExpressionsByIndex {
		if seen[idx] {
			t.Fatalf("duplicate ExpressionsByIndex key %d", idx)
		}
		seen[idx] = true
	}
	seenOps := map[int]bool{}
	for _, op := range lifted.Operations {
		if seenOps[op.SourceIndex] {
			t.Fatalf("duplicate Operations source index %d", op.SourceIndex)
		}
		seenOps[op.SourceIndex] = true
	}
}

func TestSeedArgumentsWideSlotsAlign(t *testing.T) {
	// a non-static method taking (long, int): receiver at slot 0, the long
	// argument occupies slots 1-2, and the trailing int argument must land
	// at slot 3, not slot 2.
	v := view(
		instr(bcview.Iload3, bcview.Operand{}),
		instr(bcview.Ireturn, bcview.Operand{}),
	)
	env := envFor(false, []jtype.Type{jtype.NewPrimitive(jtype.Long), jtype.NewPrimitive(jtype.Int)}, jtype.NewPrimitive(jtype.Int), 4, 1, v)

	lifted, fail := NewLifter().Lift(env, newStubPool())
	if fail != nil {
		t.Fatalf("unexpected failure: %v", fail)
	}
	ret := lifted.Operations[0].Operation.(*ssair.Return)
	if ret.Value != lifted.Arguments[2] {
		t.Errorf("expected iload_3 to read the trailing int argument, not a stale long slot")
	}
}

func TestLocalOverflowOnTooManyArgumentSlots(t *testing.T) {
	env := envFor(true, []jtype.Type{jtype.NewPrimitive(jtype.Long)}, jtype.Void, 1, 0, view())
	_, fail := NewLifter().Lift(env, newStubPool())
	if fail == nil {
		t.Fatal("expected a local-overflow failure")
	}
	if !errors.Is(fail, ErrLocalOverflow) {
		t.Errorf("expected ErrLocalOverflow, got %v", fail)
	}
}
