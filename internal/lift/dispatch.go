package lift

import (
	"github.com/ibexlift/classlift/internal/bcview"
	"github.com/ibexlift/classlift/internal/jtype"
	"github.com/ibexlift/classlift/internal/ssair"
)

// step lifts the single instruction at index i, mutating ws.locals/ws.stack
// and recording any produced Expression/Operation. It is the Lifter's
// opcode dispatch table, organized by family exactly as spec §4.4 describes.
func (ws *walkState) step(i int) *Failure {
	op := ws.view.Opcode(i)
	operand := ws.view.Operand(i)

	switch {
	case op == bcview.Nop:
		ws.recordNoop(i)
		return nil

	case isDirectConstOpcode(op):
		return ws.stepDirectConst(i, op)

	case op == bcview.Bipush:
		return ws.pushExpr(i, op, &ssair.Constant{Value: int32(operand.Byte), Typ: jtype.NewPrimitive(jtype.Int)})
	case op == bcview.Sipush:
		return ws.pushExpr(i, op, &ssair.Constant{Value: int32(operand.Short), Typ: jtype.NewPrimitive(jtype.Int)})
	case op == bcview.Ldc || op == bcview.LdcW || op == bcview.Ldc2W:
		return ws.stepLdc(i, op, operand)

	case isLoadOpcode(op):
		return ws.stepLocalLoad(i, op, operand)
	case isStoreOpcode(op):
		return ws.stepLocalStore(i, op, operand)
	case op == bcview.Iinc:
		return ws.stepIinc(i, op, operand)

	case op == bcview.Pop:
		v, fail := ws.pop(i, op)
		if fail != nil {
			return fail
		}
		if inv, ok := v.(*ssair.Invoke); ok {
			// a discarded invoke result is still a side effect to emit
			ws.recordOperation(i, &ssair.InvokeStatement{Invoke: inv})
			return nil
		}
		ws.recordStackOnly(i)
		return nil
	case op == bcview.Pop2:
		return ws.stepPop2(i, op)
	case op == bcview.Dup:
		return ws.stepDup(i, op)
	case op == bcview.Dup2:
		return ws.stepDup2(i, op)
	case op == bcview.Swap:
		return ws.stepSwap(i, op)
	case op == bcview.DupX1 || op == bcview.DupX2 || op == bcview.Dup2X1 || op == bcview.Dup2X2:
		return unimplemented(i, op)

	case isConversionOpcode(op):
		return ws.stepConversion(i, op)
	case op == bcview.Checkcast:
		return ws.stepCheckcast(i, op, operand)

	case isArithmeticOpcode(op):
		return ws.stepArithmetic(i, op)

	case op == bcview.Lcmp || op == bcview.Fcmpl || op == bcview.Fcmpg || op == bcview.Dcmpl || op == bcview.Dcmpg:
		return unimplemented(i, op)

	case isConditionalBranch(op):
		return ws.stepConditionalBranch(i, op, operand)
	case op == bcview.Goto:
		ws.recordOperation(i, &ssair.Branch{Destination: operand.BranchTarget})
		return nil
	case op == bcview.GotoW:
		return unimplemented(i, op)

	case op == bcview.Jsr:
		return ws.stepJsr(i, op, operand)
	case op == bcview.JsrW:
		return unimplemented(i, op)
	case op == bcview.Ret:
		ws.recordOperation(i, &ssair.SubroutineReturn{})
		return nil

	case isReturnOpcode(op):
		return ws.stepReturn(i, op)

	case isArrayLoadOpcode(op):
		return ws.stepArrayLoad(i, op)
	case isArrayStoreOpcode(op):
		return ws.stepArrayStore(i, op)

	case op == bcview.Getstatic:
		return ws.stepFieldRead(i, op, operand, false)
	case op == bcview.Getfield:
		return ws.stepFieldRead(i, op, operand, true)
	case op == bcview.Putstatic:
		return ws.stepFieldWrite(i, op, operand, false)
	case op == bcview.Putfield:
		return ws.stepFieldWrite(i, op, operand, true)

	case isInvokeOpcode(op):
		return ws.stepInvoke(i, op, operand)

	case op == bcview.New:
		return ws.stepNew(i, op, operand)
	case op == bcview.Newarray:
		return ws.stepNewarray(i, op, operand)
	case op == bcview.Anewarray:
		return ws.stepAnewarray(i, op, operand)
	case op == bcview.Multianewarray:
		return ws.stepMultianewarray(i, op, operand)
	case op == bcview.Arraylength:
		return ws.stepArraylength(i, op)

	case op == bcview.Instanceof:
		return ws.stepInstanceof(i, op, operand)

	case op == bcview.Athrow:
		v, fail := ws.pop(i, op)
		if fail != nil {
			return fail
		}
		ws.recordOperation(i, &ssair.Throw{Value: v})
		return nil

	case op == bcview.Tableswitch || op == bcview.Lookupswitch:
		return ws.stepSwitch(i, op, operand)

	case op == bcview.Monitorenter:
		v, fail := ws.pop(i, op)
		if fail != nil {
			return fail
		}
		ws.recordOperation(i, &ssair.MonitorEnter{Value: v})
		return nil
	case op == bcview.Monitorexit:
		v, fail := ws.pop(i, op)
		if fail != nil {
			return fail
		}
		ws.recordOperation(i, &ssair.MonitorExit{Value: v})
		return nil

	case op == bcview.Wide:
		return ws.stepWide(i, op, operand)

	default:
		return unimplemented(i, op)
	}
}

func unimplemented(i int, op bcview.Opcode) *Failure {
	return newFailure(KindUnimplemented, i, op.Mnemonic(), "opcode not handled by this lifter")
}

// pushExpr pushes e onto the operand stack and records it as the
// instruction's produced expression.
func (ws *walkState) pushExpr(i int, op bcview.Opcode, e ssair.Expression) *Failure {
	if fail := ws.pushAt(i, op, e); fail != nil {
		return fail
	}
	ws.recordExpression(i, e)
	return nil
}

// --- constants ---

var directConstValues = map[bcview.Opcode]struct {
	val interface{}
	typ jtype.Type
}{
	bcview.AconstNull: {nil, jtype.NewReference("java/lang/Object")},
	bcview.IconstM1:    {int32(-1), jtype.NewPrimitive(jtype.Int)},
	bcview.Iconst0:     {int32(0), jtype.NewPrimitive(jtype.Int)},
	bcview.Iconst1:     {int32(1), jtype.NewPrimitive(jtype.Int)},
	bcview.Iconst2:     {int32(2), jtype.NewPrimitive(jtype.Int)},
	bcview.Iconst3:     {int32(3), jtype.NewPrimitive(jtype.Int)},
	bcview.Iconst4:     {int32(4), jtype.NewPrimitive(jtype.Int)},
	bcview.Iconst5:     {int32(5), jtype.NewPrimitive(jtype.Int)},
	bcview.Lconst0:      {int64(0), jtype.NewPrimitive(jtype.Long)},
	bcview.Lconst1:      {int64(1), jtype.NewPrimitive(jtype.Long)},
	bcview.Fconst0:      {float32(0), jtype.NewPrimitive(jtype.Float)},
	bcview.Fconst1:      {float32(1), jtype.NewPrimitive(jtype.Float)},
	bcview.Fconst2:      {float32(2), jtype.NewPrimitive(jtype.Float)},
	bcview.Dconst0:      {float64(0), jtype.NewPrimitive(jtype.Double)},
	bcview.Dconst1:      {float64(1), jtype.NewPrimitive(jtype.Double)},
}

func isDirectConstOpcode(op bcview.Opcode) bool {
	_, ok := directConstValues[op]
	return ok
}

func (ws *walkState) stepDirectConst(i int, op bcview.Opcode) *Failure {
	v := directConstValues[op]
	return ws.pushExpr(i, op, &ssair.Constant{Value: v.val, Typ: v.typ})
}

func (ws *walkState) stepLdc(i int, op bcview.Opcode, operand bcview.Operand) *Failure {
	cv, err := ws.pool.Constant(operand.SymbolIndex)
	if err != nil {
		return newFailure(KindBadDescriptor, i, op.Mnemonic(), err.Error())
	}
	c, _ := constValueToExpr(cv)
	return ws.pushExpr(i, op, c)
}

// --- local load/store ---

var loadOpcodeType = map[bcview.Opcode]jtype.Type{
	bcview.Iload: jtype.NewPrimitive(jtype.Int), bcview.Iload0: jtype.NewPrimitive(jtype.Int),
	bcview.Iload1: jtype.NewPrimitive(jtype.Int), bcview.Iload2: jtype.NewPrimitive(jtype.Int), bcview.Iload3: jtype.NewPrimitive(jtype.Int),
	bcview.Lload: jtype.NewPrimitive(jtype.Long), bcview.Lload0: jtype.NewPrimitive(jtype.Long),
	bcview.Lload1: jtype.NewPrimitive(jtype.Long), bcview.Lload2: jtype.NewPrimitive(jtype.Long), bcview.Lload3: jtype.NewPrimitive(jtype.Long),
	bcview.Fload: jtype.NewPrimitive(jtype.Float), bcview.Fload0: jtype.NewPrimitive(jtype.Float),
	bcview.Fload1: jtype.NewPrimitive(jtype.Float), bcview.Fload2: jtype.NewPrimitive(jtype.Float), bcview.Fload3: jtype.NewPrimitive(jtype.Float),
	bcview.Dload: jtype.NewPrimitive(jtype.Double), bcview.Dload0: jtype.NewPrimitive(jtype.Double),
	bcview.Dload1: jtype.NewPrimitive(jtype.Double), bcview.Dload2: jtype.NewPrimitive(jtype.Double), bcview.Dload3: jtype.NewPrimitive(jtype.Double),
	bcview.Aload: jtype.NewReference("java/lang/Object"), bcview.Aload0: jtype.NewReference("java/lang/Object"),
	bcview.Aload1: jtype.NewReference("java/lang/Object"), bcview.Aload2: jtype.NewReference("java/lang/Object"), bcview.Aload3: jtype.NewReference("java/lang/Object"),
}

func isLoadOpcode(op bcview.Opcode) bool {
	_, ok := loadOpcodeType[op]
	return ok
}

var fixedLoadSlot = map[bcview.Opcode]int{
	bcview.Iload0: 0, bcview.Iload1: 1, bcview.Iload2: 2, bcview.Iload3: 3,
	bcview.Lload0: 0, bcview.Lload1: 1, bcview.Lload2: 2, bcview.Lload3: 3,
	bcview.Fload0: 0, bcview.Fload1: 1, bcview.Fload2: 2, bcview.Fload3: 3,
	bcview.Dload0: 0, bcview.Dload1: 1, bcview.Dload2: 2, bcview.Dload3: 3,
	bcview.Aload0: 0, bcview.Aload1: 1, bcview.Aload2: 2, bcview.Aload3: 3,
}

func (ws *walkState) stepLocalLoad(i int, op bcview.Opcode, operand bcview.Operand) *Failure {
	slot := operand.LocalSlot
	if fixed, ok := fixedLoadSlot[op]; ok {
		slot = fixed
	}
	v, fail := ws.getLocal(i, op, slot)
	if fail != nil {
		return fail
	}
	if fail := ws.pushAt(i, op, v); fail != nil {
		return fail
	}
	ws.recordStackOnly(i)
	return nil
}

var fixedStoreSlot = map[bcview.Opcode]int{
	bcview.Istore0: 0, bcview.Istore1: 1, bcview.Istore2: 2, bcview.Istore3: 3,
	bcview.Lstore0: 0, bcview.Lstore1: 1, bcview.Lstore2: 2, bcview.Lstore3: 3,
	bcview.Fstore0: 0, bcview.Fstore1: 1, bcview.Fstore2: 2, bcview.Fstore3: 3,
	bcview.Dstore0: 0, bcview.Dstore1: 1, bcview.Dstore2: 2, bcview.Dstore3: 3,
	bcview.Astore0: 0, bcview.Astore1: 1, bcview.Astore2: 2, bcview.Astore3: 3,
}

var storeOpcodes = map[bcview.Opcode]bool{
	bcview.Istore: true, bcview.Istore0: true, bcview.Istore1: true, bcview.Istore2: true, bcview.Istore3: true,
	bcview.Lstore: true, bcview.Lstore0: true, bcview.Lstore1: true, bcview.Lstore2: true, bcview.Lstore3: true,
	bcview.Fstore: true, bcview.Fstore0: true, bcview.Fstore1: true, bcview.Fstore2: true, bcview.Fstore3: true,
	bcview.Dstore: true, bcview.Dstore0: true, bcview.Dstore1: true, bcview.Dstore2: true, bcview.Dstore3: true,
	bcview.Astore: true, bcview.Astore0: true, bcview.Astore1: true, bcview.Astore2: true, bcview.Astore3: true,
}

func isStoreOpcode(op bcview.Opcode) bool { return storeOpcodes[op] }

func (ws *walkState) stepLocalStore(i int, op bcview.Opcode, operand bcview.Operand) *Failure {
	slot := operand.LocalSlot
	if fixed, ok := fixedStoreSlot[op]; ok {
		slot = fixed
	}
	v, fail := ws.pop(i, op)
	if fail != nil {
		return fail
	}
	if fail := ws.setLocal(i, op, slot, v); fail != nil {
		return fail
	}
	ws.recordStackOnly(i)
	return nil
}

func (ws *walkState) stepIinc(i int, op bcview.Opcode, operand bcview.Operand) *Failure {
	cur, fail := ws.getLocal(i, op, operand.Inc.Slot)
	if fail != nil {
		return fail
	}
	add := &ssair.BinaryArithmetic{
		Op:  ssair.Add,
		Lhs: cur,
		Rhs: &ssair.Constant{Value: operand.Inc.Delta, Typ: jtype.NewPrimitive(jtype.Int)},
	}
	if fail := ws.setLocal(i, op, operand.Inc.Slot, add); fail != nil {
		return fail
	}
	ws.recordNoop(i)
	return nil
}

func (ws *walkState) stepWide(i int, op bcview.Opcode, operand bcview.Operand) *Failure {
	w := operand.Wide
	switch {
	case isLoadOpcode(w.Op):
		v, fail := ws.getLocal(i, w.Op, w.Slot)
		if fail != nil {
			return fail
		}
		if fail := ws.pushAt(i, w.Op, v); fail != nil {
			return fail
		}
		ws.recordStackOnly(i)
		return nil
	case isStoreOpcode(w.Op):
		v, fail := ws.pop(i, w.Op)
		if fail != nil {
			return fail
		}
		if fail := ws.setLocal(i, w.Op, w.Slot, v); fail != nil {
			return fail
		}
		ws.recordStackOnly(i)
		return nil
	case w.Op == bcview.Iinc:
		cur, fail := ws.getLocal(i, w.Op, w.Slot)
		if fail != nil {
			return fail
		}
		add := &ssair.BinaryArithmetic{Op: ssair.Add, Lhs: cur, Rhs: &ssair.Constant{Value: w.Value, Typ: jtype.NewPrimitive(jtype.Int)}}
		if fail := ws.setLocal(i, w.Op, w.Slot, add); fail != nil {
			return fail
		}
		ws.recordNoop(i)
		return nil
	case w.Op == bcview.Ret:
		ws.recordOperation(i, &ssair.SubroutineReturn{})
		return nil
	default:
		return unimplemented(i, op)
	}
}

// --- stack juggling ---

func (ws *walkState) stepPop2(i int, op bcview.Opcode) *Failure {
	top, fail := ws.pop(i, op)
	if fail != nil {
		return fail
	}
	if isWideExpr(top) {
		ws.recordStackOnly(i)
		return nil
	}
	if _, fail := ws.pop(i, op); fail != nil {
		return fail
	}
	ws.recordStackOnly(i)
	return nil
}

func (ws *walkState) stepDup(i int, op bcview.Opcode) *Failure {
	top, fail := ws.pop(i, op)
	if fail != nil {
		return fail
	}
	if fail := ws.pushAt(i, op, top); fail != nil {
		return fail
	}
	if fail := ws.pushAt(i, op, top); fail != nil {
		return fail
	}
	ws.recordStackOnly(i)
	return nil
}

func (ws *walkState) stepDup2(i int, op bcview.Opcode) *Failure {
	top, fail := ws.pop(i, op)
	if fail != nil {
		return fail
	}
	if isWideExpr(top) {
		if fail := ws.pushAt(i, op, top); fail != nil {
			return fail
		}
		if fail := ws.pushAt(i, op, top); fail != nil {
			return fail
		}
		ws.recordStackOnly(i)
		return nil
	}
	second, fail := ws.pop(i, op)
	if fail != nil {
		return fail
	}
	for _, v := range []ssair.Expression{second, top, second, top} {
		if fail := ws.pushAt(i, op, v); fail != nil {
			return fail
		}
	}
	ws.recordStackOnly(i)
	return nil
}

func (ws *walkState) stepSwap(i int, op bcview.Opcode) *Failure {
	a, fail := ws.pop(i, op)
	if fail != nil {
		return fail
	}
	b, fail := ws.pop(i, op)
	if fail != nil {
		return fail
	}
	if fail := ws.pushAt(i, op, a); fail != nil {
		return fail
	}
	if fail := ws.pushAt(i, op, b); fail != nil {
		return fail
	}
	ws.recordStackOnly(i)
	return nil
}

func isWideExpr(e ssair.Expression) bool {
	t, err := e.Type()
	if err != nil {
		return false
	}
	return t.IsWide()
}

// --- conversions ---

var conversionTarget = map[bcview.Opcode]jtype.Type{
	bcview.I2l: jtype.NewPrimitive(jtype.Long), bcview.I2f: jtype.NewPrimitive(jtype.Float), bcview.I2d: jtype.NewPrimitive(jtype.Double),
	bcview.L2i: jtype.NewPrimitive(jtype.Int), bcview.L2f: jtype.NewPrimitive(jtype.Float), bcview.L2d: jtype.NewPrimitive(jtype.Double),
	bcview.F2i: jtype.NewPrimitive(jtype.Int), bcview.F2l: jtype.NewPrimitive(jtype.Long), bcview.F2d: jtype.NewPrimitive(jtype.Double),
	bcview.D2i: jtype.NewPrimitive(jtype.Int), bcview.D2l: jtype.NewPrimitive(jtype.Long), bcview.D2f: jtype.NewPrimitive(jtype.Float),
	bcview.I2b: jtype.NewPrimitive(jtype.Byte), bcview.I2c: jtype.NewPrimitive(jtype.Char), bcview.I2s: jtype.NewPrimitive(jtype.Short),
}

func isConversionOpcode(op bcview.Opcode) bool {
	_, ok := conversionTarget[op]
	return ok
}

func (ws *walkState) stepConversion(i int, op bcview.Opcode) *Failure {
	v, fail := ws.pop(i, op)
	if fail != nil {
		return fail
	}
	c := &ssair.Cast{Inner: v, Target: conversionTarget[op]}
	return ws.pushExpr(i, op, c)
}

func (ws *walkState) stepCheckcast(i int, op bcview.Opcode, operand bcview.Operand) *Failure {
	target, err := ws.pool.Class(operand.SymbolIndex)
	if err != nil {
		return newFailure(KindBadDescriptor, i, op.Mnemonic(), err.Error())
	}
	v, fail := ws.pop(i, op)
	if fail != nil {
		return fail
	}
	return ws.pushExpr(i, op, &ssair.Cast{Inner: v, Target: target})
}

// --- arithmetic ---

var arithOpOf = map[bcview.Opcode]ssair.ArithOp{
	bcview.Iadd: ssair.Add, bcview.Ladd: ssair.Add, bcview.Fadd: ssair.Add, bcview.Dadd: ssair.Add,
	bcview.Isub: ssair.Sub, bcview.Lsub: ssair.Sub, bcview.Fsub: ssair.Sub, bcview.Dsub: ssair.Sub,
	bcview.Imul: ssair.Mul, bcview.Lmul: ssair.Mul, bcview.Fmul: ssair.Mul, bcview.Dmul: ssair.Mul,
	bcview.Idiv: ssair.Div, bcview.Ldiv: ssair.Div, bcview.Fdiv: ssair.Div, bcview.Ddiv: ssair.Div,
	bcview.Irem: ssair.Rem, bcview.Lrem: ssair.Rem, bcview.Frem: ssair.Rem, bcview.Drem: ssair.Rem,
	bcview.Ishl: ssair.Shl, bcview.Lshl: ssair.Shl,
	bcview.Ishr: ssair.Shr, bcview.Lshr: ssair.Shr,
	bcview.Iushr: ssair.UShr, bcview.Lushr: ssair.UShr,
	bcview.Iand: ssair.And, bcview.Land: ssair.And,
	bcview.Ior: ssair.Or, bcview.Lor: ssair.Or,
	bcview.Ixor: ssair.Xor, bcview.Lxor: ssair.Xor,
}

func isArithmeticOpcode(op bcview.Opcode) bool {
	_, ok := arithOpOf[op]
	return ok
}

func (ws *walkState) stepArithmetic(i int, op bcview.Opcode) *Failure {
	right, fail := ws.pop(i, op)
	if fail != nil {
		return fail
	}
	left, fail := ws.pop(i, op)
	if fail != nil {
		return fail
	}
	b := &ssair.BinaryArithmetic{Op: arithOpOf[op], Lhs: left, Rhs: right}
	if _, err := b.Type(); err != nil {
		return newFailure(KindTypeMismatch, i, op.Mnemonic(), err.Error())
	}
	return ws.pushExpr(i, op, b)
}

// --- conditional branches ---

type branchShape struct {
	cmp      ssair.CompareOp
	negate   bool
	unary    bool // compares against zero/null rather than two popped values
	nullCmp  bool
}

var branchShapeOf = map[bcview.Opcode]branchShape{
	bcview.Ifeq: {cmp: ssair.Eq, unary: true},
	bcview.Ifne: {cmp: ssair.Eq, unary: true, negate: true},
	bcview.Iflt: {cmp: ssair.Lt, unary: true},
	bcview.Ifge: {cmp: ssair.Lt, unary: true, negate: true},
	bcview.Ifgt: {cmp: ssair.Gt, unary: true},
	bcview.Ifle: {cmp: ssair.Gt, unary: true, negate: true},
	bcview.IfIcmpeq: {cmp: ssair.Eq},
	bcview.IfIcmpne: {cmp: ssair.Eq, negate: true},
	bcview.IfIcmplt: {cmp: ssair.Lt},
	bcview.IfIcmpge: {cmp: ssair.Lt, negate: true},
	bcview.IfIcmpgt: {cmp: ssair.Gt},
	bcview.IfIcmple: {cmp: ssair.Gt, negate: true},
	bcview.IfAcmpeq: {cmp: ssair.Eq},
	bcview.IfAcmpne: {cmp: ssair.Eq, negate: true},
	bcview.Ifnull:    {cmp: ssair.Eq, unary: true, nullCmp: true},
	bcview.Ifnonnull: {cmp: ssair.Eq, unary: true, nullCmp: true, negate: true},
}

func isConditionalBranch(op bcview.Opcode) bool {
	_, ok := branchShapeOf[op]
	return ok
}

func (ws *walkState) stepConditionalBranch(i int, op bcview.Opcode, operand bcview.Operand) *Failure {
	shape := branchShapeOf[op]

	var lhs, rhs ssair.Expression
	if shape.unary {
		v, fail := ws.pop(i, op)
		if fail != nil {
			return fail
		}
		lhs = v
		if shape.nullCmp {
			rhs = &ssair.Constant{Value: nil, Typ: jtype.NewReference("java/lang/Object")}
		} else {
			rhs = &ssair.Constant{Value: int32(0), Typ: jtype.NewPrimitive(jtype.Int)}
		}
	} else {
		r, fail := ws.pop(i, op)
		if fail != nil {
			return fail
		}
		l, fail := ws.pop(i, op)
		if fail != nil {
			return fail
		}
		lhs, rhs = l, r
	}

	var cond ssair.Expression = &ssair.Comparison{Op: shape.cmp, Lhs: lhs, Rhs: rhs}
	if shape.negate {
		cond = &ssair.LogicalNot{Inner: cond}
	}
	ws.recordOperation(i, &ssair.Branch{Condition: cond, Destination: operand.BranchTarget})
	return nil
}

func (ws *walkState) stepJsr(i int, op bcview.Opcode, operand bcview.Operand) *Failure {
	ra := &ssair.ReturnAddress{TargetLabel: i + 1}
	if fail := ws.pushAt(i, op, ra); fail != nil {
		return fail
	}
	ws.recordOperation(i, &ssair.SubroutineCall{Destination: operand.BranchTarget})
	return nil
}

// --- returns ---

var returnValueType = map[bcview.Opcode]bool{
	bcview.Ireturn: true, bcview.Lreturn: true, bcview.Freturn: true, bcview.Dreturn: true, bcview.Areturn: true,
}

func isReturnOpcode(op bcview.Opcode) bool {
	return op == bcview.Return || returnValueType[op]
}

func (ws *walkState) stepReturn(i int, op bcview.Opcode) *Failure {
	if op == bcview.Return {
		ws.recordOperation(i, &ssair.Return{})
		return nil
	}
	v, fail := ws.pop(i, op)
	if fail != nil {
		return fail
	}
	ws.recordOperation(i, &ssair.Return{Value: v})
	return nil
}

// --- arrays ---

var arrayLoadOpcodes = map[bcview.Opcode]bool{
	bcview.Iaload: true, bcview.Laload: true, bcview.Faload: true, bcview.Daload: true,
	bcview.Aaload: true, bcview.Baload: true, bcview.Caload: true, bcview.Saload: true,
}

func isArrayLoadOpcode(op bcview.Opcode) bool { return arrayLoadOpcodes[op] }

func (ws *walkState) stepArrayLoad(i int, op bcview.Opcode) *Failure {
	index, fail := ws.pop(i, op)
	if fail != nil {
		return fail
	}
	array, fail := ws.pop(i, op)
	if fail != nil {
		return fail
	}
	load := &ssair.ArrayLoad{Array: array, Index: index}
	if _, err := load.Type(); err != nil {
		return newFailure(KindTypeMismatch, i, op.Mnemonic(), err.Error())
	}
	return ws.pushExpr(i, op, load)
}

var arrayStoreOpcodes = map[bcview.Opcode]bool{
	bcview.Iastore: true, bcview.Lastore: true, bcview.Fastore: true, bcview.Dastore: true,
	bcview.Aastore: true, bcview.Bastore: true, bcview.Castore: true, bcview.Sastore: true,
}

func isArrayStoreOpcode(op bcview.Opcode) bool { return arrayStoreOpcodes[op] }

func (ws *walkState) stepArrayStore(i int, op bcview.Opcode) *Failure {
	value, fail := ws.pop(i, op)
	if fail != nil {
		return fail
	}
	index, fail := ws.pop(i, op)
	if fail != nil {
		return fail
	}
	array, fail := ws.pop(i, op)
	if fail != nil {
		return fail
	}
	ws.recordOperation(i, &ssair.ArrayStore{Array: array, Index: index, Value: value})
	return nil
}

func (ws *walkState) stepArraylength(i int, op bcview.Opcode) *Failure {
	array, fail := ws.pop(i, op)
	if fail != nil {
		return fail
	}
	return ws.pushExpr(i, op, &ssair.ArrayLength{Array: array})
}

// --- fields ---

func (ws *walkState) stepFieldRead(i int, op bcview.Opcode, operand bcview.Operand, instance bool) *Failure {
	field, err := ws.pool.Field(operand.SymbolIndex)
	if err != nil {
		return newFailure(KindBadDescriptor, i, op.Mnemonic(), err.Error())
	}
	var receiver ssair.Expression
	if instance {
		v, fail := ws.pop(i, op)
		if fail != nil {
			return fail
		}
		receiver = v
	}
	return ws.pushExpr(i, op, &ssair.FieldRead{Field: field, Receiver: receiver})
}

func (ws *walkState) stepFieldWrite(i int, op bcview.Opcode, operand bcview.Operand, instance bool) *Failure {
	field, err := ws.pool.Field(operand.SymbolIndex)
	if err != nil {
		return newFailure(KindBadDescriptor, i, op.Mnemonic(), err.Error())
	}
	value, fail := ws.pop(i, op)
	if fail != nil {
		return fail
	}
	var receiver ssair.Expression
	if instance {
		r, fail := ws.pop(i, op)
		if fail != nil {
			return fail
		}
		receiver = r
	}
	ws.recordOperation(i, &ssair.FieldWrite{Field: field, Value: value, Receiver: receiver})
	return nil
}

// --- invocation ---

var invokeKindOf = map[bcview.Opcode]ssair.InvokeKind{
	bcview.Invokestatic: ssair.Static, bcview.Invokevirtual: ssair.Virtual,
	bcview.Invokeinterface: ssair.Interface, bcview.Invokespecial: ssair.Special,
}

func isInvokeOpcode(op bcview.Opcode) bool {
	_, ok := invokeKindOf[op]
	return ok
}

func (ws *walkState) stepInvoke(i int, op bcview.Opcode, operand bcview.Operand) *Failure {
	method, err := ws.pool.Method(operand.SymbolIndex)
	if err != nil {
		return newFailure(KindBadDescriptor, i, op.Mnemonic(), err.Error())
	}
	kind := invokeKindOf[op]

	args, fail := ws.popN(i, op, len(method.ArgTypes))
	if fail != nil {
		return fail
	}
	var receiver ssair.Expression
	if kind != ssair.Static {
		r, fail := ws.pop(i, op)
		if fail != nil {
			return fail
		}
		receiver = r
	}
	invoke := &ssair.Invoke{Kind: kind, Method: method, Arguments: args, Receiver: receiver}

	if method.ReturnType.Kind() == jtype.KindVoid {
		ws.recordOperation(i, &ssair.InvokeStatement{Invoke: invoke})
		return nil
	}
	return ws.pushExpr(i, op, invoke)
}

// --- allocation ---

func (ws *walkState) stepNew(i int, op bcview.Opcode, operand bcview.Operand) *Failure {
	t, err := ws.pool.Class(operand.SymbolIndex)
	if err != nil {
		return newFailure(KindBadDescriptor, i, op.Mnemonic(), err.Error())
	}
	return ws.pushExpr(i, op, &ssair.Allocate{Typ: t})
}

var primitiveArrayType = map[int8]jtype.Primitive{
	4: jtype.Boolean, 5: jtype.Char, 6: jtype.Float, 7: jtype.Double,
	8: jtype.Byte, 9: jtype.Short, 10: jtype.Int, 11: jtype.Long,
}

func (ws *walkState) stepNewarray(i int, op bcview.Opcode, operand bcview.Operand) *Failure {
	length, fail := ws.pop(i, op)
	if fail != nil {
		return fail
	}
	elem := jtype.NewPrimitive(primitiveArrayType[operand.Byte])
	arrTy := jtype.MakeArray(elem, 1)
	return ws.pushExpr(i, op, &ssair.Allocate{Typ: arrTy, Dims: []ssair.Expression{length}})
}

func (ws *walkState) stepAnewarray(i int, op bcview.Opcode, operand bcview.Operand) *Failure {
	elem, err := ws.pool.Class(operand.SymbolIndex)
	if err != nil {
		return newFailure(KindBadDescriptor, i, op.Mnemonic(), err.Error())
	}
	length, fail := ws.pop(i, op)
	if fail != nil {
		return fail
	}
	arrTy := jtype.MakeArray(elem, 1)
	return ws.pushExpr(i, op, &ssair.Allocate{Typ: arrTy, Dims: []ssair.Expression{length}})
}

func (ws *walkState) stepMultianewarray(i int, op bcview.Opcode, operand bcview.Operand) *Failure {
	arrTy, err := ws.pool.Class(operand.SymbolIndex)
	if err != nil {
		return newFailure(KindBadDescriptor, i, op.Mnemonic(), err.Error())
	}
	k := int(operand.Byte)
	dims, fail := ws.popN(i, op, k)
	if fail != nil {
		return fail
	}
	return ws.pushExpr(i, op, &ssair.Allocate{Typ: arrTy, Dims: dims})
}

func (ws *walkState) stepInstanceof(i int, op bcview.Opcode, operand bcview.Operand) *Failure {
	probe, err := ws.pool.Class(operand.SymbolIndex)
	if err != nil {
		return newFailure(KindBadDescriptor, i, op.Mnemonic(), err.Error())
	}
	v, fail := ws.pop(i, op)
	if fail != nil {
		return fail
	}
	return ws.pushExpr(i, op, &ssair.InstanceCheck{Inner: v, ProbeType: probe})
}

// --- switches ---

func (ws *walkState) stepSwitch(i int, op bcview.Opcode, operand bcview.Operand) *Failure {
	selector, fail := ws.pop(i, op)
	if fail != nil {
		return fail
	}
	cases := make([]ssair.SwitchCase, len(operand.Switch.Cases))
	for idx, c := range operand.Switch.Cases {
		cases[idx] = ssair.SwitchCase{Key: c.Key, Target: c.Target}
	}
	ws.recordOperation(i, &ssair.Switch{Selector: selector, Cases: cases, Default: operand.Switch.Default})
	return nil
}
