package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/ibexlift/classlift/internal/lift"
	"github.com/ibexlift/classlift/internal/ssair"
)

// writeExpr renders an Expression and its operands as indented lines, one
// node per line, children nested beneath their parent.
func writeExpr(w io.Writer, e ssair.Expression, indent int) {
	pad := strings.Repeat("  ", indent)
	switch v := e.(type) {
	case *ssair.Argument:
		fmt.Fprintf(w, "%sArgument %s %s\n", pad, v.Name, v.Typ)
	case *ssair.Constant:
		fmt.Fprintf(w, "%sConstant %v %s\n", pad, v.Value, v.Typ)
	case *ssair.Phi:
		fmt.Fprintf(w, "%sPhi (%d inputs)\n", pad, len(v.Inputs))
		for _, in := range v.Inputs {
			writeExpr(w, in, indent+1)
		}
	case *ssair.BinaryArithmetic:
		fmt.Fprintf(w, "%sBinaryArithmetic %s\n", pad, arithOpName(v.Op))
		writeExpr(w, v.Lhs, indent+1)
		writeExpr(w, v.Rhs, indent+1)
	case *ssair.Comparison:
		fmt.Fprintf(w, "%sComparison %s\n", pad, compareOpName(v.Op))
		writeExpr(w, v.Lhs, indent+1)
		writeExpr(w, v.Rhs, indent+1)
	case *ssair.LogicalNot:
		fmt.Fprintf(w, "%sLogicalNot\n", pad)
		writeExpr(w, v.Inner, indent+1)
	case *ssair.Cast:
		fmt.Fprintf(w, "%sCast -> %s\n", pad, v.Target)
		writeExpr(w, v.Inner, indent+1)
	case *ssair.InstanceCheck:
		fmt.Fprintf(w, "%sInstanceCheck %s\n", pad, v.ProbeType)
		writeExpr(w, v.Inner, indent+1)
	case *ssair.FieldRead:
		fmt.Fprintf(w, "%sFieldRead %s\n", pad, v.Field.Key())
		if v.Receiver != nil {
			writeExpr(w, v.Receiver, indent+1)
		}
	case *ssair.ArrayLoad:
		fmt.Fprintf(w, "%sArrayLoad\n", pad)
		writeExpr(w, v.Array, indent+1)
		writeExpr(w, v.Index, indent+1)
	case *ssair.ArrayLength:
		fmt.Fprintf(w, "%sArrayLength\n", pad)
		writeExpr(w, v.Array, indent+1)
	case *ssair.Allocate:
		fmt.Fprintf(w, "%sAllocate %s\n", pad, v.Typ)
		for _, d := range v.Dims {
			writeExpr(w, d, indent+1)
		}
	case *ssair.Invoke:
		fmt.Fprintf(w, "%sInvoke %s\n", pad, v.Method.Key())
		if v.Receiver != nil {
			writeExpr(w, v.Receiver, indent+1)
		}
		for _, a := range v.Arguments {
			writeExpr(w, a, indent+1)
		}
	case *ssair.ReturnAddress:
		fmt.Fprintf(w, "%sReturnAddress -> %d\n", pad, v.TargetLabel)
	default:
		fmt.Fprintf(w, "%s%T\n", pad, v)
	}
}

// writeOp renders one emitted Operation the same way writeExpr renders an
// Expression.
func writeOp(w io.Writer, op ssair.Operation, indent int) {
	pad := strings.Repeat("  ", indent)
	switch v := op.(type) {
	case *ssair.FieldWrite:
		fmt.Fprintf(w, "%sFieldWrite %s\n", pad, v.Field.Key())
		if v.Receiver != nil {
			writeExpr(w, v.Receiver, indent+1)
		}
		writeExpr(w, v.Value, indent+1)
	case *ssair.ArrayStore:
		fmt.Fprintf(w, "%sArrayStore\n", pad)
		writeExpr(w, v.Array, indent+1)
		writeExpr(w, v.Index, indent+1)
		writeExpr(w, v.Value, indent+1)
	case *ssair.Return:
		fmt.Fprintf(w, "%sReturn\n", pad)
		if v.Value != nil {
			writeExpr(w, v.Value, indent+1)
		}
	case *ssair.Throw:
		fmt.Fprintf(w, "%sThrow\n", pad)
		writeExpr(w, v.Value, indent+1)
	case *ssair.Branch:
		if v.Condition != nil {
			fmt.Fprintf(w, "%sBranch -> %d\n", pad, v.Destination)
			writeExpr(w, v.Condition, indent+1)
		} else {
			fmt.Fprintf(w, "%sBranch -> %d (unconditional)\n", pad, v.Destination)
		}
	case *ssair.SubroutineCall:
		fmt.Fprintf(w, "%sSubroutineCall -> %d\n", pad, v.Destination)
	case *ssair.SubroutineReturn:
		fmt.Fprintf(w, "%sSubroutineReturn\n", pad)
	case *ssair.Switch:
		fmt.Fprintf(w, "%sSwitch (default -> %d)\n", pad, v.Default)
		writeExpr(w, v.Selector, indent+1)
	case *ssair.MonitorEnter:
		fmt.Fprintf(w, "%sMonitorEnter\n", pad)
		writeExpr(w, v.Value, indent+1)
	case *ssair.MonitorExit:
		fmt.Fprintf(w, "%sMonitorExit\n", pad)
		writeExpr(w, v.Value, indent+1)
	case *ssair.InvokeStatement:
		fmt.Fprintf(w, "%sInvokeStatement\n", pad)
		writeExpr(w, v.Invoke, indent+1)
	default:
		fmt.Fprintf(w, "%s%T\n", pad, v)
	}
}

func arithOpName(op ssair.ArithOp) string {
	names := []string{"add", "sub", "mul", "div", "rem", "shl", "shr", "ushr", "and", "or", "xor"}
	if int(op) < len(names) {
		return names[op]
	}
	return "unknown"
}

func compareOpName(op ssair.CompareOp) string {
	names := []string{"eq", "lt", "gt"}
	if int(op) < len(names) {
		return names[op]
	}
	return "unknown"
}

// printTree writes one method's lifted IR as an indented line-oriented tree.
func printTree(out io.Writer, name string, lifted *lift.LiftedMethod) {
	fmt.Fprintf(out, "method %s\n", name)
	if len(lifted.Arguments) > 0 {
		fmt.Fprintln(out, "  arguments:")
		for _, a := range lifted.Arguments {
			writeExpr(out, a, 2)
		}
	}
	fmt.Fprintln(out, "  operations:")
	for _, op := range lifted.Operations {
		fmt.Fprintf(out, "    [%d]\n", op.SourceIndex)
		writeOp(out, op.Operation, 3)
	}
}
