package binary

import "fmt"

// Kind tags the payload encoding of a field.
type Kind byte

const (
	KindBool Kind = iota + 1
	KindInt
	KindUint
	KindFloat
	KindString
	KindBytes
	KindStrings
	KindObject
	KindObjects
	KindAssets
)

var kindNames = map[Kind]string{
	KindBool:    "bool",
	KindInt:     "int",
	KindUint:    "uint",
	KindFloat:   "float",
	KindString:  "string",
	KindBytes:   "bytes",
	KindStrings: "strings",
	KindObject:  "object",
	KindObjects: "objects",
	KindAssets:  "assets",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", byte(k))
}

func (k Kind) valid() bool {
	return k >= KindBool && k <= KindAssets
}
