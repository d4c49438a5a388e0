// Package property implements the property object (design §4.B): a typed,
// ordered key/value bag with metadata, validation, nested object
// properties, and begin/end update transactions.
//
// It is grounded on common/cfgtree.go's PNode tree (ordered children,
// JSON-tagged serialization, path-from-root bookkeeping) and
// ap.configd/validate*.go's two-pass syntactic-coercion /
// semantic-validation split.
package property

import "fmt"

// ValueType identifies the kind of value a property holds.
type ValueType int

// The closed set of property value types (design §3).
const (
	ValueBool ValueType = iota
	ValueInt
	ValueFloat
	ValueString
	ValueList
	ValueDict
	ValueRatio
	ValueObject
	ValueFunction
	ValueProcedure
	ValueStruct
	ValueEnumeration
)

func (t ValueType) String() string {
	switch t {
	case ValueBool:
		return "Bool"
	case ValueInt:
		return "Int"
	case ValueFloat:
		return "Float"
	case ValueString:
		return "String"
	case ValueList:
		return "List"
	case ValueDict:
		return "Dict"
	case ValueRatio:
		return "Ratio"
	case ValueObject:
		return "Object"
	case ValueFunction:
		return "Function"
	case ValueProcedure:
		return "Procedure"
	case ValueStruct:
		return "Struct"
	case ValueEnumeration:
		return "Enumeration"
	default:
		return fmt.Sprintf("ValueType(%d)", int(t))
	}
}

// Ratio is a rational number, used for value ranges, tick resolutions, and
// device domains.
type Ratio struct {
	Numerator   int64 `json:"Numerator"`
	Denominator int64 `json:"Denominator"`
}

// Range is an inclusive [Low, High] bound on a numeric property.
type Range struct {
	Low  float64 `json:"Low"`
	High float64 `json:"High"`
}

// CallableInfo describes a Function/Procedure-valued property: the number
// of arguments it accepts (informational only — Go's Callable values are
// plain closures) and whether it returns a value.
type CallableInfo struct {
	ArgCount   int
	ReturnsVal bool
}

// Coercer normalizes a raw input value into the property's canonical form,
// e.g. widening an int literal to float64. It returns an error if the value
// cannot be coerced at all.
type Coercer func(v interface{}) (interface{}, error)

// Validator reports whether a (already-coerced) value is acceptable.
type Validator func(v interface{}) bool

// WriteCallback is invoked after a value is applied and may override the
// stored value by returning a non-nil replacement.
type WriteCallback func(name string, v interface{}) interface{}

// ReadCallback is invoked whenever a value is read and may override the
// value returned to the caller.
type ReadCallback func(name string, v interface{}) interface{}

// ReferencedPropertyFunc is evaluated at read time against the owning
// object to find another property name whose value should be returned
// transparently instead of this one's own.
type ReferencedPropertyFunc func(obj *Object) (string, bool)

// Metadata describes one property: its type, constraints, and behavior
// hooks. Metadata is immutable once passed to AddProperty.
type Metadata struct {
	Name             string
	ValueType        ValueType
	Unit             string
	Min              *float64
	Max              *float64
	Default          interface{}
	SuggestedValues  []interface{}
	SelectionValues  []interface{}
	Visible          bool
	ReadOnly         bool
	Coercer          Coercer
	Validator        Validator
	ReferencedProp   ReferencedPropertyFunc
	Callable         *CallableInfo
	OnWrite          WriteCallback
	OnRead           ReadCallback
	// StructFields lists field metadata for a ValueStruct property's
	// nested fields, restored from original_source's struct-type
	// registration discussion (design §9, Open Questions).
	StructFields []Metadata
}
