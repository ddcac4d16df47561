// Package lift implements the central abstract interpreter: given a decoded
// MethodEnvelope and a ConstantPool, it walks the instruction stream in
// source order and produces a LiftedMethod.
package lift

import (
	"github.com/ibexlift/classlift/internal/bcview"
	"github.com/ibexlift/classlift/internal/jtype"
	"github.com/ibexlift/classlift/internal/ssair"
)

// Lifter lifts one method at a time; it carries no state across calls to
// Lift and is safe to reuse or share across goroutines lifting distinct
// methods concurrently.
type Lifter struct{}

// NewLifter constructs a Lifter. There is no configuration: all behavior is
// fixed by the opcode dispatch table.
func NewLifter() *Lifter { return &Lifter{} }

// walkState is the per-call mutable state of one Lift invocation.
type walkState struct {
	env  MethodEnvelope
	pool ConstantPool
	view bcview.InstructionView

	locals []ssair.Expression
	stack  []ssair.Expression

	resolver  *joinResolver
	snapshots map[int][]ssair.Expression // exit-local snapshots needed by some join

	result *LiftedMethod
}

// Lift runs the abstract interpreter over env.Instructions. On a Failure it
// returns the failure and does not expose a partial LiftedMethod as
// successful (the returned *LiftedMethod is nil).
func (l *Lifter) Lift(env MethodEnvelope, pool ConstantPool) (*LiftedMethod, *Failure) {
	view := env.Instructions
	n := view.Length()

	ws := &walkState{
		env:    env,
		pool:   pool,
		view:   view,
		locals: make([]ssair.Expression, env.MaxLocals),
		stack:  make([]ssair.Expression, 0, env.MaxStack),
		result: &LiftedMethod{
			ExpressionsByIndex: make(map[int]ssair.Expression),
			ByInstruction:      make([]NodeRef, n),
		},
	}

	args, fail := seedArguments(env, ws.locals)
	if fail != nil {
		return nil, fail
	}
	ws.result.Arguments = args

	if n == 0 {
		return ws.result, nil
	}

	info := analyzePredecessors(view)
	ws.resolver = newJoinResolver(info)
	ws.snapshots = make(map[int][]ssair.Expression)
	for target, preds := range info.preds {
		if len(preds) == 1 && preds[0] == target-1 {
			continue // pure fallthrough: locals are already correct in place
		}
		for _, p := range preds {
			if p < target {
				ws.snapshots[p] = nil // mark: snapshot needed after visiting p
			}
		}
	}

	for i := 0; i < n; i++ {
		if info.branchTargets[i] && len(ws.stack) != 0 {
			return nil, newFailure(KindJoinStackNonEmpty, i, view.Opcode(i).Mnemonic(), "operand stack non-empty at branch target")
		}
		if fail := ws.resolver.resolve(i, ws.locals, ws.snapshots); fail != nil {
			return nil, fail
		}

		fail := ws.step(i)
		if fail != nil {
			return nil, fail
		}

		if _, needed := ws.snapshots[i]; needed {
			snap := make([]ssair.Expression, len(ws.locals))
			copy(snap, ws.locals)
			ws.snapshots[i] = snap
		}
		if fail := ws.resolver.notifyVisited(i, ws.locals); fail != nil {
			return nil, fail
		}
	}

	return ws.result, nil
}

// seedArguments builds the one-per-parameter Arguments list (receiver
// included, for non-static methods) and writes each argument into its
// proper slot of locals, accounting for the two slots a wide (long/double)
// argument occupies.
func seedArguments(env MethodEnvelope, locals []ssair.Expression) ([]ssair.Expression, *Failure) {
	var args []ssair.Expression
	name := func(i int) string {
		return "arg" + itoa(i)
	}

	place := func(slot int, e ssair.Expression) *Failure {
		if slot >= len(locals) {
			return newFailure(KindLocalOverflow, -1, "", "argument slots exceed max_locals")
		}
		locals[slot] = e
		return nil
	}

	slot := 0
	if !env.IsStatic {
		recv := &ssair.Argument{Name: name(0), Typ: env.OwningClass}
		args = append(args, recv)
		if fail := place(slot, recv); fail != nil {
			return nil, fail
		}
		slot = 1
	}
	for i, t := range env.ArgumentTypes {
		argIdx := i
		if !env.IsStatic {
			argIdx = i + 1
		}
		arg := &ssair.Argument{Name: name(argIdx), Typ: t}
		args = append(args, arg)
		if fail := place(slot, arg); fail != nil {
			return nil, fail
		}
		slot++
		if t.IsWide() {
			if slot >= len(locals) {
				return nil, newFailure(KindLocalOverflow, -1, "", "argument slots exceed max_locals")
			}
			slot++
		}
	}
	return args, nil
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}

// --- stack/local helpers ---

func (ws *walkState) pop(i int, op bcview.Opcode) (ssair.Expression, *Failure) {
	if len(ws.stack) == 0 {
		return nil, newFailure(KindStackUnderflow, i, op.Mnemonic(), "pop from empty stack")
	}
	top := ws.stack[len(ws.stack)-1]
	ws.stack = ws.stack[:len(ws.stack)-1]
	return top, nil
}

func (ws *walkState) popN(i int, op bcview.Opcode, k int) ([]ssair.Expression, *Failure) {
	out := make([]ssair.Expression, k)
	for j := k - 1; j >= 0; j-- {
		e, fail := ws.pop(i, op)
		if fail != nil {
			return nil, fail
		}
		out[j] = e
	}
	return out, nil
}

func (ws *walkState) pushAt(i int, op bcview.Opcode, e ssair.Expression) *Failure {
	if len(ws.stack) >= ws.env.MaxStack {
		return newFailure(KindStackOverflow, i, op.Mnemonic(), "operand stack exceeds max_stack")
	}
	ws.stack = append(ws.stack, e)
	return nil
}

func (ws *walkState) getLocal(i int, op bcview.Opcode, slot int) (ssair.Expression, *Failure) {
	if slot < 0 || slot >= len(ws.locals) {
		return nil, newFailure(KindLocalOverflow, i, op.Mnemonic(), "local slot out of range")
	}
	v := ws.locals[slot]
	if v == nil {
		return nil, newFailure(KindStackUnderflow, i, op.Mnemonic(), "read of unbound local slot")
	}
	return v, nil
}

func (ws *walkState) setLocal(i int, op bcview.Opcode, slot int, e ssair.Expression) *Failure {
	if slot < 0 || slot >= len(ws.locals) {
		return newFailure(KindLocalOverflow, i, op.Mnemonic(), "local slot out of range")
	}
	ws.locals[slot] = e
	return nil
}

func (ws *walkState) recordExpression(i int, e ssair.Expression) {
	ws.result.ExpressionsByIndex[i] = e
	ws.result.ByInstruction[i] = NodeRef{Kind: RefExpression}
}

func (ws *walkState) recordOperation(i int, op ssair.Operation) {
	ws.result.Operations = append(ws.result.Operations, IndexedOperation{SourceIndex: i, Operation: op})
	ws.result.ByInstruction[i] = NodeRef{Kind: RefOperation}
}

func (ws *walkState) recordNoop(i int) {
	ws.result.ByInstruction[i] = NodeRef{Kind: RefNone}
}

func (ws *walkState) recordStackOnly(i int) {
	ws.result.ByInstruction[i] = NodeRef{Kind: RefStackOnly}
}

func constValueToExpr(cv bcview.ConstValue) (*ssair.Constant, *jtype.Type) {
	switch cv.Kind {
	case bcview.ConstNull:
		t := jtype.NewReference("java/lang/Object")
		return &ssair.Constant{Value: nil, Typ: t}, &t
	case bcview.ConstInt:
		t := jtype.NewPrimitive(jtype.Int)
		return &ssair.Constant{Value: cv.Int, Typ: t}, &t
	case bcview.ConstLong:
		t := jtype.NewPrimitive(jtype.Long)
		return &ssair.Constant{Value: cv.Long, Typ: t}, &t
	case bcview.ConstFloat:
		t := jtype.NewPrimitive(jtype.Float)
		return &ssair.Constant{Value: cv.Float, Typ: t}, &t
	case bcview.ConstDouble:
		t := jtype.NewPrimitive(jtype.Double)
		return &ssair.Constant{Value: cv.Double, Typ: t}, &t
	case bcview.ConstString:
		t := jtype.NewReference("java/lang/String")
		return &ssair.Constant{Value: cv.Str, Typ: t}, &t
	case bcview.ConstClass:
		t := jtype.NewReference("java/lang/Class")
		return &ssair.Constant{Value: jtype.NewReference(cv.Str), Typ: t}, &t
	default:
		t := jtype.Void
		return &ssair.Constant{Typ: t}, &t
	}
}
