// Package jtype models the closed set of value types a lifted method can
// carry: void, the eight JVM primitives, reference types, and arrays of any
// element type. Equality and identity are defined by descriptor string.
package jtype

import (
	"errors"
	"fmt"
	"strings"
)

// ErrBadDescriptor is returned when a descriptor string cannot be parsed.
var ErrBadDescriptor = errors.New("jtype: bad descriptor")

// ErrNotAnArray is returned by ElementType when called on a non-array Type.
var ErrNotAnArray = errors.New("jtype: not an array type")

// Kind discriminates the closed set of Type variants.
type Kind int

const (
	KindVoid Kind = iota
	KindPrimitive
	KindReference
	KindArray
)

// Primitive names the eight JVM primitive kinds.
type Primitive int

const (
	Boolean Primitive = iota
	Byte
	Char
	Short
	Int
	Long
	Float
	Double
)

var primitiveDescriptors = map[Primitive]string{
	Boolean: "Z",
	Byte:    "B",
	Char:    "C",
	Short:   "S",
	Int:     "I",
	Long:    "J",
	Float:   "F",
	Double:  "D",
}

var descriptorToPrimitive = map[byte]Primitive{
	'Z': Boolean,
	'B': Byte,
	'C': Char,
	'S': Short,
	'I': Int,
	'J': Long,
	'F': Float,
	'D': Double,
}

// Type is a tagged union over Void, Primitive, Reference, and Array. Two
// Types are equal iff their descriptors are equal; the zero Type is Void.
type Type struct {
	kind      Kind
	primitive Primitive
	className string // Reference: fully qualified class name, '/'-separated
	element   *Type  // Array: element type
	dim       int     // Array: dimension, >= 1
}

// Void is the void pseudo-type, used only as a method return type.
var Void = Type{kind: KindVoid}

// NewPrimitive constructs the Type for a given primitive kind.
func NewPrimitive(p Primitive) Type {
	return Type{kind: KindPrimitive, primitive: p}
}

// NewReference constructs a reference Type for the given class name. The
// name may be given in either "java/lang/Object" or "java.lang.Object" form;
// it is normalized to the internal ('/'-separated) form.
func NewReference(className string) Type {
	return Type{kind: KindReference, className: strings.ReplaceAll(className, ".", "/")}
}

// MakeArray builds an array type with the given element type and dimension.
// dim must be >= 1.
func MakeArray(element Type, dim int) Type {
	if dim < 1 {
		dim = 1
	}
	e := element
	return Type{kind: KindArray, element: &e, dim: dim}
}

// Kind reports which variant this Type is.
func (t Type) Kind() Kind { return t.kind }

// IsReference reports whether t is a reference type. Arrays are references.
func (t Type) IsReference() bool { return t.kind == KindReference || t.kind == KindArray }

// IsArray reports whether t is an array type.
func (t Type) IsArray() bool { return t.kind == KindArray }

// IsWide reports whether the primitive occupies two local slots (long, double).
func (t Type) IsWide() bool {
	return t.kind == KindPrimitive && (t.primitive == Long || t.primitive == Double)
}

// Primitive returns the primitive kind and true if t is a primitive type.
func (t Type) Primitive() (Primitive, bool) {
	if t.kind != KindPrimitive {
		return 0, false
	}
	return t.primitive, true
}

// ClassName returns the '/'-separated class name and true if t is a
// reference type (not an array).
func (t Type) ClassName() (string, bool) {
	if t.kind != KindReference {
		return "", false
	}
	return t.className, true
}

// ElementType returns the element type of an array, failing with
// ErrNotAnArray otherwise.
func (t Type) ElementType() (Type, error) {
	if t.kind != KindArray {
		return Type{}, fmt.Errorf("%w: %s", ErrNotAnArray, t.Descriptor())
	}
	if t.dim == 1 {
		return *t.element, nil
	}
	return Type{kind: KindArray, element: t.element, dim: t.dim - 1}, nil
}

// Descriptor returns the canonical JVM descriptor string for t.
func (t Type) Descriptor() string {
	switch t.kind {
	case KindVoid:
		return "V"
	case KindPrimitive:
		return primitiveDescriptors[t.primitive]
	case KindReference:
		return "L" + t.className + ";"
	case KindArray:
		return strings.Repeat("[", t.dim) + t.element.Descriptor()
	default:
		return ""
	}
}

// String implements fmt.Stringer using the descriptor form.
func (t Type) String() string { return t.Descriptor() }

// Equal reports whether two types have identical descriptors.
func (t Type) Equal(o Type) bool { return t.Descriptor() == o.Descriptor() }

// ParseDescriptor parses a single JVM type descriptor (e.g. "I", "[I",
// "Ljava/lang/String;"). It fails with ErrBadDescriptor for malformed input.
func ParseDescriptor(d string) (Type, error) {
	t, rest, err := parseOne(d)
	if err != nil {
		return Type{}, err
	}
	if rest != "" {
		return Type{}, fmt.Errorf("%w: trailing data %q in %q", ErrBadDescriptor, rest, d)
	}
	return t, nil
}

func parseOne(d string) (Type, string, error) {
	if d == "" {
		return Type{}, "", fmt.Errorf("%w: empty descriptor", ErrBadDescriptor)
	}
	switch d[0] {
	case 'V':
		return Void, d[1:], nil
	case 'Z', 'B', 'C', 'S', 'I', 'J', 'F', 'D':
		return NewPrimitive(descriptorToPrimitive[d[0]]), d[1:], nil
	case 'L':
		idx := strings.IndexByte(d, ';')
		if idx < 0 {
			return Type{}, "", fmt.Errorf("%w: unterminated class descriptor %q", ErrBadDescriptor, d)
		}
		return NewReference(d[1:idx]), d[idx+1:], nil
	case '[':
		dim := 0
		rest := d
		for len(rest) > 0 && rest[0] == '[' {
			dim++
			rest = rest[1:]
		}
		elem, rest, err := parseOne(rest)
		if err != nil {
			return Type{}, "", err
		}
		return MakeArray(elem, dim), rest, nil
	default:
		return Type{}, "", fmt.Errorf("%w: unrecognized tag %q in %q", ErrBadDescriptor, string(d[0]), d)
	}
}

// ArgTypes parses the ordered argument types out of a "(...)..." method
// descriptor, e.g. "(II)I" -> [int, int].
func ArgTypes(methodDescriptor string) ([]Type, error) {
	open := strings.IndexByte(methodDescriptor, '(')
	close := strings.IndexByte(methodDescriptor, ')')
	if open != 0 || close < open {
		return nil, fmt.Errorf("%w: malformed method descriptor %q", ErrBadDescriptor, methodDescriptor)
	}
	rest := methodDescriptor[1:close]
	var args []Type
	for rest != "" {
		t, r, err := parseOne(rest)
		if err != nil {
			return nil, err
		}
		args = append(args, t)
		rest = r
	}
	return args, nil
}

// ReturnType parses the return type out of a "(...)..." method descriptor.
func ReturnType(methodDescriptor string) (Type, error) {
	close := strings.IndexByte(methodDescriptor, ')')
	if close < 0 || close+1 > len(methodDescriptor) {
		return Type{}, fmt.Errorf("%w: malformed method descriptor %q", ErrBadDescriptor, methodDescriptor)
	}
	return ParseDescriptor(methodDescriptor[close+1:])
}
