package models

import (
	"bytes"
	"fmt"
)

// Tri is a tri-state boolean. The zero value is Unknown, which keeps
// "not computed" apart from "checked and false".
type Tri int8

const (
	Unknown Tri = iota
	True
	False
)

// TriOf converts a plain bool.
func TriOf(v bool) Tri {
	if v {
		return True
	}
	return False
}

// Known reports whether the value was computed.
func (t Tri) Known() bool { return t != Unknown }

// IsTrue reports whether the value is known and true.
func (t Tri) IsTrue() bool { return t == True }

// IsFalse reports whether the value is known and false.
func (t Tri) IsFalse() bool { return t == False }

// Not negates a known value. Unknown stays unknown.
func (t Tri) Not() Tri {
	switch t {
	case True:
		return False
	case False:
		return True
	default:
		return Unknown
	}
}

func (t Tri) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes Unknown as null.
func (t Tri) MarshalJSON() ([]byte, error) {
	switch t {
	case True:
		return []byte("true"), nil
	case False:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts null, true and false.
func (t *Tri) UnmarshalJSON(data []byte) error {
	switch string(bytes.TrimSpace(data)) {
	case "null":
		*t = Unknown
	case "true":
		*t = True
	case "false":
		*t = False
	default:
		return fmt.Errorf("invalid tri-state value %s", data)
	}
	return nil
}
