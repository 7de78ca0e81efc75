package rt

import "github.com/cedar-lang/cedar/internal/intern"

// Symbol and Keyword both use the intern table for identity (§3.4): their
// ID field is the whole of their identity, so two Symbol objects with the
// same ID compare Equal even if they are different Go allocations (the
// reader interns once but a `(symbol "foo")` builtin could allocate a
// fresh wrapper for the same id).
type Symbol struct {
	ObjHeader
	ID intern.ID
}

func NewSymbol(reg *Registry, id intern.ID) *Symbol {
	return &Symbol{ObjHeader: ObjHeader{Type: reg.SymbolType}, ID: id}
}

func (s *Symbol) Name(interner *intern.Table) string {
	return interner.MustUnintern(s.ID)
}

type Keyword struct {
	ObjHeader
	ID intern.ID
}

func NewKeyword(reg *Registry, id intern.ID) *Keyword {
	return &Keyword{ObjHeader: ObjHeader{Type: reg.KeywordType}, ID: id}
}

func (k *Keyword) Name(interner *intern.Table) string {
	return interner.MustUnintern(k.ID)
}
