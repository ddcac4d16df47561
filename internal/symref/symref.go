// Package symref holds lightweight, comparable records for field and method
// references as resolved from a constant pool: the owning class, the member
// name, and its type information.
package symref

import "github.com/ibexlift/classlift/internal/jtype"

// FieldRef identifies a field by owning class, name, and declared type.
type FieldRef struct {
	Owner jtype.Type // reference type of the declaring class
	Name  string
	Type  jtype.Type
}

// Key returns a string uniquely identifying this field reference, suitable
// for use as a map key in constant-pool lookup tables.
func (f FieldRef) Key() string {
	return "fieldref:" + f.Owner.Descriptor() + "." + f.Name + ":" + f.Type.Descriptor()
}

// MethodRef identifies a method by owning class, name, ordered argument
// types, and return type.
type MethodRef struct {
	Owner      jtype.Type
	Name       string
	ArgTypes   []jtype.Type
	ReturnType jtype.Type
}

// Key returns a string uniquely identifying this method reference.
func (m MethodRef) Key() string {
	key := "methodref:" + m.Owner.Descriptor() + "." + m.Name + "("
	for _, a := range m.ArgTypes {
		key += a.Descriptor()
	}
	return key + ")" + m.ReturnType.Descriptor()
}

// Descriptor reconstructs the method descriptor string "(args)ret".
func (m MethodRef) Descriptor() string {
	d := "("
	for _, a := range m.ArgTypes {
		d += a.Descriptor()
	}
	return d + ")" + m.ReturnType.Descriptor()
}
