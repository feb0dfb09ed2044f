package fir

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// LoadStore reads a YAML tree file.
func LoadStore(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read tree %s", path)
	}
	store, err := ParseStore(data)
	if err != nil {
		return nil, errors.Wrapf(err, "load tree %s", path)
	}
	return store, nil
}

// ParseStore decodes and validates a YAML tree.
func ParseStore(data []byte) (*Store, error) {
	var store Store
	if err := yaml.UnmarshalStrict(data, &store); err != nil {
		return nil, errors.Wrap(err, "decode tree")
	}
	if err := store.Validate(); err != nil {
		return nil, err
	}
	return &store, nil
}

// Marshal encodes the store as YAML.
func (s *Store) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(s)
	return data, errors.Wrap(err, "encode tree")
}

// operandArity is the accepted operand count range for each expression kind.
// A max of -1 means unbounded.
var operandArity = map[ExprKind][2]int{
	ExprArray:       {0, -1},
	ExprArrayRepeat: {2, 2},
	ExprAssign:      {2, 2},
	ExprAssignOp:    {2, 2},
	ExprAssignIndex: {3, 3},
	ExprBinOp:       {2, 2},
	ExprBlock:       {0, 0},
	ExprCall:        {2, 2},
	ExprFail:        {1, 1},
	ExprIf:          {2, 3},
	ExprIndex:       {2, 2},
	ExprLit:         {0, 0},
	ExprRange:       {3, 3},
	ExprReturn:      {1, 1},
	ExprString:      {0, 0},
	ExprTuple:       {0, -1},
	ExprUnOp:        {1, 1},
	ExprUpdateIndex: {3, 3},
	ExprVar:         {0, 0},
	ExprWhile:       {1, 1},
	ExprHole:        {0, 0},
}

// Validate checks that every id is dense and every reference resolves.
func (s *Store) Validate() error {
	for i, pkg := range s.Packages {
		if pkg == nil {
			return errors.Errorf("package %d is missing", i)
		}
		if int(pkg.ID) != i {
			return errors.Errorf("package at index %d has id %d", i, pkg.ID)
		}
		if err := s.validatePackage(pkg); err != nil {
			return errors.Wrapf(err, "package %d", i)
		}
	}
	if s.Entry != nil {
		if int(s.Entry.Package) >= len(s.Packages) {
			return errors.Errorf("entry package %d is out of range", s.Entry.Package)
		}
		if int(s.Entry.Expr) >= len(s.Packages[s.Entry.Package].Exprs) {
			return errors.Errorf("entry expression %d is out of range", s.Entry.Expr)
		}
	}
	return nil
}

func (s *Store) validatePackage(pkg *Package) error {
	blocks, stmts, exprs, pats := len(pkg.Blocks), len(pkg.Stmts), len(pkg.Exprs), len(pkg.Pats)
	for i, item := range pkg.Items {
		if item == nil || int(item.ID) != i {
			return errors.Errorf("item %d has a mismatched id", i)
		}
		if c := item.Callable; c != nil {
			if int(c.Input) >= pats {
				return errors.Errorf("callable %s input pattern %d is out of range", c.Name, c.Input)
			}
			if c.Body != nil && int(*c.Body) >= blocks {
				return errors.Errorf("callable %s body %d is out of range", c.Name, *c.Body)
			}
		}
	}
	for i, b := range pkg.Blocks {
		if b == nil || int(b.ID) != i {
			return errors.Errorf("block %d has a mismatched id", i)
		}
		for _, st := range b.Stmts {
			if int(st) >= stmts {
				return errors.Errorf("block %d statement %d is out of range", i, st)
			}
		}
	}
	for i, st := range pkg.Stmts {
		if st == nil || int(st.ID) != i {
			return errors.Errorf("statement %d has a mismatched id", i)
		}
		if int(st.Expr) >= exprs {
			return errors.Errorf("statement %d expression %d is out of range", i, st.Expr)
		}
		if st.Kind == StmtLocal && int(st.Pat) >= pats {
			return errors.Errorf("statement %d pattern %d is out of range", i, st.Pat)
		}
	}
	for i, p := range pkg.Pats {
		if p == nil || int(p.ID) != i {
			return errors.Errorf("pattern %d has a mismatched id", i)
		}
		if p.Kind == PatBind && p.Ident == nil {
			return errors.Errorf("binding pattern %d has no identifier", i)
		}
		for _, e := range p.Elems {
			if int(e) >= pats {
				return errors.Errorf("pattern %d element %d is out of range", i, e)
			}
		}
	}
	for i, e := range pkg.Exprs {
		if e == nil || int(e.ID) != i {
			return errors.Errorf("expression %d has a mismatched id", i)
		}
		arity := operandArity[e.Kind]
		if len(e.Exprs) < arity[0] || (arity[1] >= 0 && len(e.Exprs) > arity[1]) {
			return errors.Errorf("%s expression %d has %d operands", e.Kind, i, len(e.Exprs))
		}
		for _, op := range e.Exprs {
			if int(op) >= exprs {
				return errors.Errorf("expression %d operand %d is out of range", i, op)
			}
		}
		switch e.Kind {
		case ExprLit:
			if e.Lit == nil {
				return errors.Errorf("literal expression %d has no value", i)
			}
		case ExprBlock, ExprWhile:
			if int(e.Block) >= blocks {
				return errors.Errorf("expression %d block %d is out of range", i, e.Block)
			}
		case ExprVar:
			if e.Res == nil || (e.Res.Local == nil) == (e.Res.Item == nil) {
				return errors.Errorf("variable expression %d must resolve to exactly one local or item", i)
			}
			if item := e.Res.Item; item != nil {
				if _, ok := s.Callable(*item); !ok {
					return errors.Errorf("variable expression %d refers to unknown %s", i, item)
				}
			}
		}
	}
	return nil
}
