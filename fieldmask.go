package goresource

import "strings"

// FieldMask selects the set of message fields a partial update applies to.
//
// An empty mask applies only the fields present in the update payload. A
// non-empty mask applies exactly the masked fields: a masked field missing
// from the payload is reset to its zero value.
type FieldMask struct {
	Paths []string `json:"paths"`
}

// NewFieldMask builds a mask from dotted paths.
func NewFieldMask(paths ...string) FieldMask {
	return FieldMask{Paths: paths}
}

// IsEmpty reports whether the mask selects no explicit paths.
func (m FieldMask) IsEmpty() bool {
	return len(m.Paths) == 0
}

// Matches reports whether a dotted path is selected by the mask. An empty
// mask matches every path; otherwise a path matches when it equals a mask
// path or when either is a dotted prefix of the other.
func (m FieldMask) Matches(path string) bool {
	if m.IsEmpty() {
		return true
	}

	for _, p := range m.Paths {
		if p == path || strings.HasPrefix(path, p+".") || strings.HasPrefix(p, path+".") {
			return true
		}
	}

	return false
}
