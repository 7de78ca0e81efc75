package rt

// Str is an immutable Unicode string (§4.5). First/Rest expose
// character-level sequence semantics (rune at a time) and Get/Size give
// indexed rune access, matching the original's sequence contract for
// strings.
type Str struct {
	ObjHeader
	S string
}

func NewStr(reg *Registry, s string) *Str {
	return &Str{ObjHeader: ObjHeader{Type: reg.StringType}, S: s}
}

func (s *Str) runes() []rune { return []rune(s.S) }

func (s *Str) Size() int { return len([]rune(s.S)) }

// Get returns the rune at index i as a one-rune string, or ("", false) if
// out of range.
func (s *Str) Get(i int) (string, bool) {
	rs := s.runes()
	if i < 0 || i >= len(rs) {
		return "", false
	}
	return string(rs[i]), true
}

// First returns the first character, or "" for the empty string.
func (s *Str) First() string {
	rs := s.runes()
	if len(rs) == 0 {
		return ""
	}
	return string(rs[0])
}

// Rest returns the string with its first character removed.
func (s *Str) Rest(reg *Registry) *Str {
	rs := s.runes()
	if len(rs) == 0 {
		return s
	}
	return NewStr(reg, string(rs[1:]))
}

func (s *Str) Concat(reg *Registry, other *Str) *Str {
	return NewStr(reg, s.S+other.S)
}
