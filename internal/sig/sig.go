// Package sig defines the immutable call, struct, enum, and bitmask
// descriptors referenced by trace events.
//
// Descriptors are supplied by the interception layer, live for the
// whole process, and are only ever borrowed by the writer. Ids are
// unique within their own kind; function, struct, enum, and bitmask ids
// are independent id spaces.
package sig

// Function describes a traced call: a stable id, the function name, and
// the argument names in call order.
type Function struct {
	ID   uint32
	Name string
	Args []string
}

// Struct describes an aggregate value by id, name, and member names.
type Struct struct {
	ID      uint32
	Name    string
	Members []string
}

// Enum describes a single named integer constant.
type Enum struct {
	ID    uint32
	Name  string
	Value int64
}

// Flag is one named bit value of a bitmask.
type Flag struct {
	Name  string
	Value uint64
}

// Bitmask describes a set of flags. By convention a zero-valued flag is
// only meaningful as the first ("none") entry.
type Bitmask struct {
	ID    uint32
	Name  string
	Flags []Flag
}

// Builtin pseudo-call descriptors used to synthesize memory events.
// Their ids occupy the low end of the function id space and are fixed
// for the life of the format.
var (
	Memcpy  = &Function{ID: 0, Name: "memcpy", Args: []string{"dest", "src", "n"}}
	Malloc  = &Function{ID: 1, Name: "malloc", Args: []string{"size"}}
	Free    = &Function{ID: 2, Name: "free", Args: []string{"ptr"}}
	Realloc = &Function{ID: 3, Name: "realloc", Args: []string{"ptr", "size"}}
)
