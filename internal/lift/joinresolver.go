package lift

import (
	"github.com/ibexlift/classlift/internal/jtype"
	"github.com/ibexlift/classlift/internal/ssair"
)

// pendingPatch records one unresolved input slot of an incomplete Phi,
// waiting on a backward predecessor the forward walk has not reached yet.
type pendingPatch struct {
	phi       *ssair.Phi
	inputIdx  int
	slot      int
	remaining *int // shared countdown; when it reaches zero the phi's type is finalized
}

// joinResolver implements the incomplete-phi, sealed-block style of SSA
// construction: for join points whose predecessor set is fully known
// (forward edges only, already visited in this single forward pass) it
// resolves directly; for join points with at least one backward
// (not-yet-visited) predecessor it eagerly materializes a Phi with
// placeholder inputs and patches them in as the walk later visits each
// pending predecessor.
type joinResolver struct {
	info *predecessorInfo
	// pendingByPred[p] is the list of patches to apply once instruction p
	// has been visited and its exit locals are known.
	pendingByPred map[int][]pendingPatch
	resolved      map[int]bool
}

func newJoinResolver(info *predecessorInfo) *joinResolver {
	return &joinResolver{
		info:          info,
		pendingByPred: make(map[int][]pendingPatch),
		resolved:      make(map[int]bool),
	}
}

// resolve reconciles the incoming local maps for instruction target,
// mutating locals in place. snapshots holds, for every previously-visited
// instruction index that is a known predecessor of some join, a copy of the
// local map as it stood right after that instruction was processed.
func (jr *joinResolver) resolve(target int, locals []ssair.Expression, snapshots map[int][]ssair.Expression) *Failure {
	preds := jr.info.preds[target]
	if len(preds) == 0 || jr.resolved[target] {
		return nil
	}
	if len(preds) == 1 && preds[0] == target-1 {
		// pure fallthrough from the immediately preceding instruction: locals
		// are already correct by straight-line construction, nothing to do.
		return nil
	}
	jr.resolved[target] = true

	var known, pending []int
	for _, p := range preds {
		if p < target {
			known = append(known, p)
		} else {
			pending = append(pending, p)
		}
	}

	for slot := range locals {
		bindings := make([]ssair.Expression, len(preds))
		boundCount := 0
		for idx, p := range preds {
			if p < target {
				if snap, ok := snapshots[p]; ok && snap[slot] != nil {
					bindings[idx] = snap[slot]
					boundCount++
				}
			}
		}
		if boundCount == 0 {
			continue // slot unreferenced by any known predecessor; leave unbound for now
		}

		if len(pending) == 0 {
			if boundCount == len(preds) && allSame(bindings) {
				locals[slot] = bindings[0]
				continue
			}
			phi, err := buildPhi(bindings)
			if err != nil {
				return newFailure(KindPhiDisagreement, target, "", err.Error())
			}
			locals[slot] = phi
			continue
		}

		// at least one predecessor not yet visited: build an incomplete phi now.
		phi := &ssair.Phi{Inputs: make([]ssair.Expression, len(preds))}
		remaining := new(int)
		*remaining = 0
		var knownInputs []ssair.Expression
		for idx, p := range preds {
			if p < target {
				phi.Inputs[idx] = bindings[idx]
				if bindings[idx] != nil {
					knownInputs = append(knownInputs, bindings[idx])
				}
			} else {
				*remaining++
				jr.pendingByPred[p] = append(jr.pendingByPred[p], pendingPatch{
					phi: phi, inputIdx: idx, slot: slot, remaining: remaining,
				})
			}
		}
		// provisional type from the already-visited inputs, so expressions
		// built on this phi inside the loop body type-check before the
		// pending inputs are patched in and the type is re-unified.
		ty, err := unify(knownInputs)
		if err != nil {
			return newFailure(KindPhiDisagreement, target, "", err.Error())
		}
		phi.Typ = ty
		locals[slot] = phi
	}
	return nil
}

// notifyVisited is called immediately after instruction p has been
// processed and its exit locals computed; it patches every incomplete phi
// waiting on p.
func (jr *joinResolver) notifyVisited(p int, localsAfter []ssair.Expression) *Failure {
	patches := jr.pendingByPred[p]
	if len(patches) == 0 {
		return nil
	}
	delete(jr.pendingByPred, p)
	for _, patch := range patches {
		patch.phi.Inputs[patch.inputIdx] = localsAfter[patch.slot]
		*patch.remaining--
		if *patch.remaining == 0 {
			nonNil := patch.phi.Inputs[:0:0]
			for _, in := range patch.phi.Inputs {
				if in != nil {
					nonNil = append(nonNil, in)
				}
			}
			ty, err := unify(nonNil)
			if err != nil {
				return newFailure(KindPhiDisagreement, p, "", err.Error())
			}
			patch.phi.Typ = ty
		}
	}
	return nil
}

func allSame(xs []ssair.Expression) bool {
	for i := 1; i < len(xs); i++ {
		if xs[i] != xs[0] {
			return false
		}
	}
	return true
}

func buildPhi(bindings []ssair.Expression) (*ssair.Phi, error) {
	var inputs []ssair.Expression
	for _, b := range bindings {
		if b != nil {
			inputs = append(inputs, b)
		}
	}
	ty, err := unify(inputs)
	if err != nil {
		return nil, err
	}
	return &ssair.Phi{Inputs: inputs, Typ: ty}, nil
}

// unify computes the Phi's reconciled type across its (non-nil) inputs.
// null unifies with any reference/array type; two differing reference/array
// types unify to java/lang/Object; any other mismatch disagrees.
func unify(inputs []ssair.Expression) (jtype.Type, error) {
	var result jtype.Type
	haveResult := false
	for _, in := range inputs {
		ty, err := in.Type()
		if err != nil {
			return jtype.Type{}, err
		}
		if !haveResult {
			result = ty
			haveResult = true
			continue
		}
		if result.Equal(ty) {
			continue
		}
		if result.IsReference() && ty.IsReference() {
			result = jtype.NewReference("java/lang/Object")
			continue
		}
		return jtype.Type{}, errPhiDisagreement(result, ty)
	}
	return result, nil
}

type phiDisagreementError struct {
	a, b jtype.Type
}

func (e *phiDisagreementError) Error() string {
	return "phi inputs disagree: " + e.a.String() + " vs " + e.b.String()
}

func errPhiDisagreement(a, b jtype.Type) error { return &phiDisagreementError{a: a, b: b} }
