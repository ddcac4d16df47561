package lift

import "github.com/ibexlift/classlift/internal/bcview"

// predecessorInfo is the static control-flow skeleton computed before the
// main lift walk: for every instruction, its ordered (ascending) set of
// predecessor indices, and the set of indices that are the explicit target
// of some branch (used for the "operand stack empty at every branch
// target" invariant).
type predecessorInfo struct {
	preds         map[int][]int
	branchTargets map[int]bool
}

// terminalOpcodes never fall through to the next instruction.
var terminalOpcodes = map[bcview.Opcode]bool{
	bcview.Goto: true, bcview.GotoW: true,
	bcview.Ireturn: true, bcview.Lreturn: true, bcview.Freturn: true,
	bcview.Dreturn: true, bcview.Areturn: true, bcview.Return: true,
	bcview.Athrow:       true,
	bcview.Tableswitch:  true,
	bcview.Lookupswitch: true,
	bcview.Jsr:          true,
	bcview.JsrW:         true,
	bcview.Ret:          true,
}

var conditionalOpcodes = map[bcview.Opcode]bool{
	bcview.Ifeq: true, bcview.Ifne: true, bcview.Iflt: true, bcview.Ifge: true,
	bcview.Ifgt: true, bcview.Ifle: true,
	bcview.IfIcmpeq: true, bcview.IfIcmpne: true, bcview.IfIcmplt: true,
	bcview.IfIcmpge: true, bcview.IfIcmpgt: true, bcview.IfIcmple: true,
	bcview.IfAcmpeq: true, bcview.IfAcmpne: true,
	bcview.Ifnull: true, bcview.Ifnonnull: true,
}

func analyzePredecessors(view bcview.InstructionView) *predecessorInfo {
	info := &predecessorInfo{preds: make(map[int][]int), branchTargets: make(map[int]bool)}
	n := view.Length()

	addEdge := func(from, to int) {
		info.preds[to] = append(info.preds[to], from)
	}
	addBranchEdge := func(from, to int) {
		addEdge(from, to)
		info.branchTargets[to] = true
	}

	for i := 0; i < n; i++ {
		op := view.Opcode(i)
		operand := view.Operand(i)

		switch {
		case op == bcview.Goto || op == bcview.GotoW || op == bcview.Jsr || op == bcview.JsrW:
			addBranchEdge(i, operand.BranchTarget)
		case conditionalOpcodes[op]:
			addBranchEdge(i, operand.BranchTarget)
			if i+1 < n {
				addEdge(i, i+1)
			}
		case op == bcview.Tableswitch || op == bcview.Lookupswitch:
			for _, c := range operand.Switch.Cases {
				addBranchEdge(i, c.Target)
			}
			addBranchEdge(i, operand.Switch.Default)
		case terminalOpcodes[op]:
			// no outgoing edges (ret, return family, athrow)
		default:
			if i+1 < n {
				addEdge(i, i+1)
			}
		}
	}

	for target, ps := range info.preds {
		info.preds[target] = sortedUnique(ps)
	}
	return info
}

func sortedUnique(xs []int) []int {
	seen := make(map[int]bool, len(xs))
	out := xs[:0:0]
	for _, x := range xs {
		if !seen[x] {
			seen[x] = true
			out = append(out, x)
		}
	}
	// simple insertion sort; predecessor lists are small
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
