// Package fixture loads method envelopes and their constant pools from a
// human-writable YAML file, standing in for a real class-file method table
// since parsing actual class-file bytes is out of this module's scope. It is
// the only package that parses fixture YAML; internal/lift never parses
// fixture text itself.
package fixture

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ibexlift/classlift/internal/bcview"
	"github.com/ibexlift/classlift/internal/jtype"
	"github.com/ibexlift/classlift/internal/lift"
	"github.com/ibexlift/classlift/internal/symref"
)

// Method pairs one decoded MethodEnvelope with the ConstantPool its
// instructions reference.
type Method struct {
	Name string
	Env  lift.MethodEnvelope
	Pool lift.ConstantPool
}

type document struct {
	Methods []methodDecl `yaml:"methods"`
}

type methodDecl struct {
	Name         string            `yaml:"name"`
	Owner        string            `yaml:"owner"`
	Static       bool              `yaml:"static"`
	Descriptor   string            `yaml:"descriptor"`
	MaxLocals    int               `yaml:"max_locals"`
	MaxStack     int               `yaml:"max_stack"`
	Constants    []constEntry      `yaml:"constants"`
	Fields       []fieldEntry      `yaml:"fields"`
	MethodRefs   []methodRefEntry  `yaml:"method_refs"`
	Classes      []classEntry      `yaml:"classes"`
	Instructions []instructionDecl `yaml:"instructions"`
}

type constEntry struct {
	Index  int     `yaml:"index"`
	Kind   string  `yaml:"kind"`
	Int    int32   `yaml:"int,omitempty"`
	Long   int64   `yaml:"long,omitempty"`
	Float  float32 `yaml:"float,omitempty"`
	Double float64 `yaml:"double,omitempty"`
	String string  `yaml:"string,omitempty"`
	Class  string  `yaml:"class,omitempty"`
}

type fieldEntry struct {
	Index int    `yaml:"index"`
	Owner string `yaml:"owner"`
	Name  string `yaml:"name"`
	Type  string `yaml:"type"`
}

type methodRefEntry struct {
	Index      int    `yaml:"index"`
	Owner      string `yaml:"owner"`
	Name       string `yaml:"name"`
	Descriptor string `yaml:"descriptor"`
}

type classEntry struct {
	Index int    `yaml:"index"`
	Class string `yaml:"class"`
}

type instructionDecl struct {
	Op      string     `yaml:"op"`
	Slot    *int       `yaml:"slot,omitempty"`
	Byte    *int8      `yaml:"byte,omitempty"`
	Short   *int16     `yaml:"short,omitempty"`
	Branch  *int       `yaml:"branch,omitempty"`
	Index   *int       `yaml:"index,omitempty"`
	Inc     *incDecl   `yaml:"inc,omitempty"`
	Wide    *wideDecl  `yaml:"wide,omitempty"`
	Cases   []caseDecl `yaml:"cases,omitempty"`
	Default *int       `yaml:"default,omitempty"`
}

type incDecl struct {
	Slot  int   `yaml:"slot"`
	Delta int32 `yaml:"delta"`
}

type wideDecl struct {
	Op    string `yaml:"op"`
	Slot  int    `yaml:"slot"`
	Value int32  `yaml:"value"`
}

type caseDecl struct {
	Key    int32 `yaml:"key"`
	Target int   `yaml:"target"`
}

// Load reads path and decodes every method it describes.
func Load(path string) ([]Method, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fixture: read %s: %w", path, err)
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("fixture: parse %s: %w", path, err)
	}

	out := make([]Method, 0, len(doc.Methods))
	for _, m := range doc.Methods {
		env, err := buildEnvelope(m)
		if err != nil {
			return nil, err
		}
		pool, err := buildPool(m)
		if err != nil {
			return nil, err
		}
		out = append(out, Method{Name: m.Name, Env: env, Pool: pool})
	}
	return out, nil
}

func buildEnvelope(m methodDecl) (lift.MethodEnvelope, error) {
	argTypes, err := jtype.ArgTypes(m.Descriptor)
	if err != nil {
		return lift.MethodEnvelope{}, fmt.Errorf("fixture: method %s: %w", m.Name, err)
	}
	retTy, err := jtype.ReturnType(m.Descriptor)
	if err != nil {
		return lift.MethodEnvelope{}, fmt.Errorf("fixture: method %s: %w", m.Name, err)
	}

	instrs := make([]bcview.Instruction, len(m.Instructions))
	for i, d := range m.Instructions {
		op, ok := bcview.ParseMnemonic(d.Op)
		if !ok {
			return lift.MethodEnvelope{}, fmt.Errorf("fixture: method %s: unknown opcode %q at instruction %d", m.Name, d.Op, i)
		}
		operand, err := buildOperand(d)
		if err != nil {
			return lift.MethodEnvelope{}, fmt.Errorf("fixture: method %s: instruction %d: %w", m.Name, i, err)
		}
		instrs[i] = bcview.Instruction{Op: op, Operand: operand, Offset: i}
	}

	return lift.MethodEnvelope{
		OwningClass:   jtype.NewReference(m.Owner),
		MethodName:    m.Name,
		ArgumentTypes: argTypes,
		ReturnType:    retTy,
		IsStatic:      m.Static,
		MaxLocals:     m.MaxLocals,
		MaxStack:      m.MaxStack,
		Instructions:  bcview.NewView(instrs),
	}, nil
}

func buildOperand(d instructionDecl) (bcview.Operand, error) {
	var op bcview.Operand
	switch {
	case d.Slot != nil:
		op.Kind = bcview.OperandLocalSlot
		op.LocalSlot = *d.Slot
	case d.Branch != nil:
		op.Kind = bcview.OperandBranchTarget
		op.BranchTarget = *d.Branch
	case d.Index != nil:
		op.Kind = bcview.OperandConstSymbol
		op.SymbolIndex = *d.Index
	case d.Byte != nil:
		op.Kind = bcview.OperandByte
		op.Byte = *d.Byte
	case d.Short != nil:
		op.Kind = bcview.OperandShort
		op.Short = *d.Short
	case d.Inc != nil:
		op.Kind = bcview.OperandIncTarget
		op.Inc = bcview.IncTarget{Slot: d.Inc.Slot, Delta: d.Inc.Delta}
	case d.Wide != nil:
		wideOp, ok := bcview.ParseMnemonic(d.Wide.Op)
		if !ok {
			return op, fmt.Errorf("unknown wide opcode %q", d.Wide.Op)
		}
		op.Kind = bcview.OperandWideLocal
		op.Wide = bcview.WideLocal{Op: wideOp, Slot: d.Wide.Slot, Value: d.Wide.Value}
	case len(d.Cases) > 0 || d.Default != nil:
		op.Kind = bcview.OperandSwitchTable
		cases := make([]bcview.SwitchCase, len(d.Cases))
		for i, c := range d.Cases {
			cases[i] = bcview.SwitchCase{Key: c.Key, Target: c.Target}
		}
		def := 0
		if d.Default != nil {
			def = *d.Default
		}
		op.Switch = bcview.SwitchTable{Cases: cases, Default: def}
	}
	return op, nil
}

func buildPool(m methodDecl) (lift.ConstantPool, error) {
	p := &pool{
		constants: make(map[int]bcview.ConstValue, len(m.Constants)),
		fields:    make(map[int]symref.FieldRef, len(m.Fields)),
		methods:   make(map[int]symref.MethodRef, len(m.MethodRefs)),
		classes:   make(map[int]jtype.Type, len(m.Classes)),
	}

	for _, c := range m.Constants {
		v, err := constEntryToValue(c)
		if err != nil {
			return nil, fmt.Errorf("fixture: method %s: constant %d: %w", m.Name, c.Index, err)
		}
		p.constants[c.Index] = v
	}
	for _, f := range m.Fields {
		ty, err := jtype.ParseDescriptor(f.Type)
		if err != nil {
			return nil, fmt.Errorf("fixture: method %s: field %d: %w", m.Name, f.Index, err)
		}
		p.fields[f.Index] = symref.FieldRef{Owner: jtype.NewReference(f.Owner), Name: f.Name, Type: ty}
	}
	for _, mr := range m.MethodRefs {
		argTypes, err := jtype.ArgTypes(mr.Descriptor)
		if err != nil {
			return nil, fmt.Errorf("fixture: method %s: method_ref %d: %w", m.Name, mr.Index, err)
		}
		retTy, err := jtype.ReturnType(mr.Descriptor)
		if err != nil {
			return nil, fmt.Errorf("fixture: method %s: method_ref %d: %w", m.Name, mr.Index, err)
		}
		p.methods[mr.Index] = symref.MethodRef{
			Owner:      jtype.NewReference(mr.Owner),
			Name:       mr.Name,
			ArgTypes:   argTypes,
			ReturnType: retTy,
		}
	}
	for _, cl := range m.Classes {
		p.classes[cl.Index] = jtype.NewReference(cl.Class)
	}
	return p, nil
}

func constEntryToValue(c constEntry) (bcview.ConstValue, error) {
	switch strings.ToLower(c.Kind) {
	case "int":
		return bcview.ConstValue{Kind: bcview.ConstInt, Int: c.Int}, nil
	case "long":
		return bcview.ConstValue{Kind: bcview.ConstLong, Long: c.Long}, nil
	case "float":
		return bcview.ConstValue{Kind: bcview.ConstFloat, Float: c.Float}, nil
	case "double":
		return bcview.ConstValue{Kind: bcview.ConstDouble, Double: c.Double}, nil
	case "string":
		return bcview.ConstValue{Kind: bcview.ConstString, Str: c.String}, nil
	case "null":
		return bcview.ConstValue{Kind: bcview.ConstNull}, nil
	case "class":
		return bcview.ConstValue{Kind: bcview.ConstClass, Str: c.Class}, nil
	default:
		return bcview.ConstValue{}, fmt.Errorf("unknown constant kind %q", c.Kind)
	}
}

// pool is the fixture-backed lift.ConstantPool: every index is resolved from
// the per-method pool sections decoded out of the YAML document.
type pool struct {
	constants map[int]bcview.ConstValue
	fields    map[int]symref.FieldRef
	methods   map[int]symref.MethodRef
	classes   map[int]jtype.Type
}

func (p *pool) Constant(index int) (bcview.ConstValue, error) {
	if v, ok := p.constants[index]; ok {
		return v, nil
	}
	return bcview.ConstValue{}, fmt.Errorf("fixture: no constant at index %d", index)
}

func (p *pool) Field(index int) (symref.FieldRef, error) {
	if v, ok := p.fields[index]; ok {
		return v, nil
	}
	return symref.FieldRef{}, fmt.Errorf("fixture: no field at index %d", index)
}

func (p *pool) Method(index int) (symref.MethodRef, error) {
	if v, ok := p.methods[index]; ok {
		return v, nil
	}
	return symref.MethodRef{}, fmt.Errorf("fixture: no method at index %d", index)
}

func (p *pool) Class(index int) (jtype.Type, error) {
	if v, ok := p.classes[index]; ok {
		return v, nil
	}
	return jtype.Type{}, fmt.Errorf("fixture: no class at index %d", index)
}
