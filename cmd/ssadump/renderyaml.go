package main

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/ibexlift/classlift/internal/lift"
	"github.com/ibexlift/classlift/internal/ssair"
)

// yamlNode is a materialized, cycle-free rendering of one Expression or
// Operation node and its children, built fresh at print time so the encoder
// never has to reason about the IR's shared-subexpression pointer DAG.
type yamlNode struct {
	Kind     string     `yaml:"kind"`
	Detail   string     `yaml:"detail,omitempty"`
	Children []yamlNode `yaml:"children,omitempty"`
}

type yamlOperation struct {
	SourceIndex int      `yaml:"source_index"`
	Node        yamlNode `yaml:"node"`
}

type yamlMethod struct {
	Name       string          `yaml:"name"`
	Arguments  []yamlNode      `yaml:"arguments,omitempty"`
	Operations []yamlOperation `yaml:"operations"`
}

func exprNode(e ssair.Expression) yamlNode {
	switch v := e.(type) {
	case *ssair.Argument:
		return yamlNode{Kind: "argument", Detail: v.Name + " " + v.Typ.String()}
	case *ssair.Constant:
		return yamlNode{Kind: "constant", Detail: v.Typ.String()}
	case *ssair.Phi:
		n := yamlNode{Kind: "phi"}
		for _, in := range v.Inputs {
			n.Children = append(n.Children, exprNode(in))
		}
		return n
	case *ssair.BinaryArithmetic:
		return yamlNode{Kind: "binary_arithmetic", Detail: arithOpName(v.Op), Children: []yamlNode{exprNode(v.Lhs), exprNode(v.Rhs)}}
	case *ssair.Comparison:
		return yamlNode{Kind: "comparison", Detail: compareOpName(v.Op), Children: []yamlNode{exprNode(v.Lhs), exprNode(v.Rhs)}}
	case *ssair.LogicalNot:
		return yamlNode{Kind: "logical_not", Children: []yamlNode{exprNode(v.Inner)}}
	case *ssair.Cast:
		return yamlNode{Kind: "cast", Detail: v.Target.String(), Children: []yamlNode{exprNode(v.Inner)}}
	case *ssair.InstanceCheck:
		return yamlNode{Kind: "instance_check", Detail: v.ProbeType.String(), Children: []yamlNode{exprNode(v.Inner)}}
	case *ssair.FieldRead:
		n := yamlNode{Kind: "field_read", Detail: v.Field.Key()}
		if v.Receiver != nil {
			n.Children = append(n.Children, exprNode(v.Receiver))
		}
		return n
	case *ssair.ArrayLoad:
		return yamlNode{Kind: "array_load", Children: []yamlNode{exprNode(v.Array), exprNode(v.Index)}}
	case *ssair.ArrayLength:
		return yamlNode{Kind: "array_length", Children: []yamlNode{exprNode(v.Array)}}
	case *ssair.Allocate:
		n := yamlNode{Kind: "allocate", Detail: v.Typ.String()}
		for _, d := range v.Dims {
			n.Children = append(n.Children, exprNode(d))
		}
		return n
	case *ssair.Invoke:
		n := yamlNode{Kind: "invoke", Detail: v.Method.Key()}
		if v.Receiver != nil {
			n.Children = append(n.Children, exprNode(v.Receiver))
		}
		for _, a := range v.Arguments {
			n.Children = append(n.Children, exprNode(a))
		}
		return n
	case *ssair.ReturnAddress:
		return yamlNode{Kind: "return_address"}
	default:
		return yamlNode{Kind: "unknown"}
	}
}

func opNode(op ssair.Operation) yamlNode {
	switch v := op.(type) {
	case *ssair.FieldWrite:
		n := yamlNode{Kind: "field_write", Detail: v.Field.Key()}
		if v.Receiver != nil {
			n.Children = append(n.Children, exprNode(v.Receiver))
		}
		n.Children = append(n.Children, exprNode(v.Value))
		return n
	case *ssair.ArrayStore:
		return yamlNode{Kind: "array_store", Children: []yamlNode{exprNode(v.Array), exprNode(v.Index), exprNode(v.Value)}}
	case *ssair.Return:
		n := yamlNode{Kind: "return"}
		if v.Value != nil {
			n.Children = append(n.Children, exprNode(v.Value))
		}
		return n
	case *ssair.Throw:
		return yamlNode{Kind: "throw", Children: []yamlNode{exprNode(v.Value)}}
	case *ssair.Branch:
		n := yamlNode{Kind: "branch"}
		if v.Condition != nil {
			n.Children = append(n.Children, exprNode(v.Condition))
		}
		return n
	case *ssair.SubroutineCall:
		return yamlNode{Kind: "subroutine_call"}
	case *ssair.SubroutineReturn:
		return yamlNode{Kind: "subroutine_return"}
	case *ssair.Switch:
		return yamlNode{Kind: "switch", Children: []yamlNode{exprNode(v.Selector)}}
	case *ssair.MonitorEnter:
		return yamlNode{Kind: "monitor_enter", Children: []yamlNode{exprNode(v.Value)}}
	case *ssair.MonitorExit:
		return yamlNode{Kind: "monitor_exit", Children: []yamlNode{exprNode(v.Value)}}
	case *ssair.InvokeStatement:
		return yamlNode{Kind: "invoke_statement", Children: []yamlNode{exprNode(v.Invoke)}}
	default:
		return yamlNode{Kind: "unknown"}
	}
}

// printYAML writes one method's lifted IR as a YAML document.
func printYAML(out io.Writer, name string, lifted *lift.LiftedMethod) error {
	ym := yamlMethod{Name: name}
	for _, a := range lifted.Arguments {
		ym.Arguments = append(ym.Arguments, exprNode(a))
	}
	for _, op := range lifted.Operations {
		ym.Operations = append(ym.Operations, yamlOperation{SourceIndex: op.SourceIndex, Node: opNode(op.Operation)})
	}
	enc := yaml.NewEncoder(out)
	defer enc.Close()
	return enc.Encode(ym)
}
