// Package schema describes the shape of a package manifest as a tree of
// typed nodes. A schema is plain data: it is declared once and only read
// afterwards, mainly to decide the canonical order of manifest fields.
package schema

// Wildcard is the property name that matches any field not declared
// explicitly, e.g. arbitrary dependency names.
const Wildcard = "*"

// Kind discriminates the node variants.
type Kind string

const (
	KindString  Kind = "string"
	KindNumber  Kind = "number"
	KindBoolean Kind = "boolean"
	KindObject  Kind = "object"
	KindArray   Kind = "array"
)

// Format is a hint for string values.
type Format string

const (
	FormatNone  Format = ""
	FormatEmail Format = "email"
	FormatURI   Format = "uri"
	FormatPhone Format = "phone"
)

// Meta holds the attributes every node carries.
type Meta struct {
	Title       string
	Description string
	Tags        map[string]string
}

// Node is one of *String, *Number, *Boolean, *Object or *Array.
// The set is closed: the marker method is unexported.
type Node interface {
	Kind() Kind
	Info() Meta
	node()
}

// Range bounds a length or a numeric value. Nil ends are open.
type Range[T int | float64] struct {
	Min *T
	Max *T
}

// String describes a string value.
type String struct {
	Meta
	Length  Range[int]
	Pattern string
	Format  Format
	Enum    []string
	Default *string
}

// Number describes a numeric value.
type Number struct {
	Meta
	Range   Range[float64]
	Enum    []float64
	Default *float64
}

// Boolean describes a boolean value.
type Boolean struct {
	Meta
	Default *bool
}

// Property is one named member of an Object. Name may be Wildcard.
type Property struct {
	Name   string
	Schema Node
}

// Object describes a keyed value. Properties keep declaration order, which
// is the canonical field order of the value.
type Object struct {
	Meta
	Properties []Property
	Required   []string
	// Shorthand allows the value to be written as a single string instead,
	// as npm does for author, bugs and repository.
	Shorthand bool
}

// Array describes a list. Items usually holds one schema; heterogeneous
// arrays list their alternatives.
type Array struct {
	Meta
	Items []Node
}

func (*String) Kind() Kind  { return KindString }
func (*Number) Kind() Kind  { return KindNumber }
func (*Boolean) Kind() Kind { return KindBoolean }
func (*Object) Kind() Kind  { return KindObject }
func (*Array) Kind() Kind   { return KindArray }

func (s *String) Info() Meta  { return s.Meta }
func (n *Number) Info() Meta  { return n.Meta }
func (b *Boolean) Info() Meta { return b.Meta }
func (o *Object) Info() Meta  { return o.Meta }
func (a *Array) Info() Meta   { return a.Meta }

func (*String) node()  {}
func (*Number) node()  {}
func (*Boolean) node() {}
func (*Object) node()  {}
func (*Array) node()   {}

// ObjectItem returns the first Object alternative among the array items.
func (a *Array) ObjectItem() (*Object, bool) {
	for _, it := range a.Items {
		if obj, ok := it.(*Object); ok {
			return obj, true
		}
	}
	return nil, false
}

// Ptr returns a pointer to v. It keeps schema literals short.
func Ptr[T any](v T) *T { return &v }
