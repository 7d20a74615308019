package types

import (
	"errors"
	"fmt"
)

// ErrUnresolved is wrapped by Repository errors for classes it cannot find.
var ErrUnresolved = errors.New("class not resolved")

// Repository answers class hierarchy questions. Names are internal names,
// e.g. "java/lang/Object".
type Repository interface {
	// SuperClasses returns the ancestors of the class, root first, excluding
	// the class itself. It is empty for java/lang/Object and for interfaces
	// that the repository does not model as extending Object.
	SuperClasses(name string) ([]string, error)

	// IsInterface returns true if name is an interface.
	IsInterface(name string) (bool, error)

	// IsSubclassOf returns true if sub equals super or super is an ancestor
	// class of sub.
	IsSubclassOf(sub, super string) (bool, error)

	// ImplementsInterface returns true if class, one of its ancestors, or one
	// of their superinterfaces is or extends iface.
	ImplementsInterface(class, iface string) (bool, error)
}

// Lattice evaluates compatibility and joins of reference types against a
// Repository.
type Lattice struct {
	repo Repository
}

// NewLattice returns a Lattice backed by repo.
func NewLattice(repo Repository) *Lattice {
	return &Lattice{repo: repo}
}

// IsAssignmentCompatible returns true if a value of type s can be stored in a
// variable or array element of type t.
//
// The returned error wraps ErrUnresolved when the hierarchy needed to decide
// is unknown. In that case the relation cannot be proven and the bool is false.
func (l *Lattice) IsAssignmentCompatible(s, t ReferenceType) (bool, error) {
	if _, ok := s.(NullType); ok {
		return true, nil
	}
	if _, ok := t.(NullType); ok {
		return false, nil
	}
	if Equal(s, t) || Equal(t, Object) {
		return true, nil
	}

	switch s := s.(type) {
	case *ObjectType:
		tObj, ok := t.(*ObjectType)
		if !ok {
			// Only arrays remain, and no class or interface is an array.
			return false, nil
		}
		sIface, err := l.repo.IsInterface(s.name)
		if err != nil {
			return false, err
		}
		tIface, err := l.repo.IsInterface(tObj.name)
		if err != nil {
			return false, err
		}
		switch {
		case !sIface && !tIface:
			return l.repo.IsSubclassOf(s.name, tObj.name)
		case !sIface && tIface:
			return l.repo.ImplementsInterface(s.name, tObj.name)
		case sIface && !tIface:
			// t is not Object, checked above.
			return false, nil
		default:
			return l.repo.ImplementsInterface(s.name, tObj.name)
		}
	case *ArrayType:
		switch t := t.(type) {
		case *ObjectType:
			return Equal(t, Cloneable) || Equal(t, Serializable), nil
		case *ArrayType:
			sc, tc := s.ComponentType(), t.ComponentType()
			sRef, sOK := sc.(ReferenceType)
			tRef, tOK := tc.(ReferenceType)
			if sOK && tOK {
				return l.IsAssignmentCompatible(sRef, tRef)
			}
			if !sOK && !tOK {
				return sc == tc, nil
			}
			return false, nil
		}
	}
	return false, nil
}

// IsCastableTo returns true if a checkcast from s to t can succeed statically.
// Null can be cast to every reference type.
func (l *Lattice) IsCastableTo(s, t ReferenceType) (bool, error) {
	if _, ok := s.(NullType); ok {
		return true, nil
	}
	return l.IsAssignmentCompatible(s, t)
}

// FirstCommonSuperclass returns the narrowest reference type both a and b are
// assignable to. The join is commutative, and Null is its identity.
//
// When either side's ancestry cannot be resolved the join is unknown and ok
// is false. Callers must treat that as "no relation can be proven".
func (l *Lattice) FirstCommonSuperclass(a, b ReferenceType) (join ReferenceType, ok bool) {
	if _, null := a.(NullType); null {
		return b, true
	}
	if _, null := b.(NullType); null {
		return a, true
	}
	if Equal(a, b) {
		return a, true
	}

	aArr, aIsArr := a.(*ArrayType)
	bArr, bIsArr := b.(*ArrayType)
	if aIsArr && bIsArr {
		if aArr.dimensions == bArr.dimensions {
			aElem, aOK := aArr.element.(*ObjectType)
			bElem, bOK := bArr.element.(*ObjectType)
			if aOK && bOK {
				elem, ok := l.FirstCommonSuperclass(aElem, bElem)
				if !ok {
					return nil, false
				}
				return NewArrayType(elem, aArr.dimensions), true
			}
		}
		return Object, true
	}
	if aIsArr || bIsArr {
		return Object, true
	}

	aName, bName := a.(*ObjectType).name, b.(*ObjectType).name
	for _, name := range []string{aName, bName} {
		iface, err := l.repo.IsInterface(name)
		if err != nil {
			return nil, false
		}
		if iface {
			return Object, true
		}
	}

	aChain, err := l.chain(aName)
	if err != nil {
		return nil, false
	}
	bChain, err := l.chain(bName)
	if err != nil {
		return nil, false
	}
	inB := make(map[string]struct{}, len(bChain))
	for _, n := range bChain {
		inB[n] = struct{}{}
	}
	// Narrowest first, so the first hit is the most derived common ancestor.
	for i := len(aChain) - 1; i >= 0; i-- {
		if _, ok := inB[aChain[i]]; ok {
			return NewObjectType(aChain[i]), true
		}
	}
	return nil, false
}

// chain returns the ancestors of name, root first, followed by name itself.
func (l *Lattice) chain(name string) ([]string, error) {
	supers, err := l.repo.SuperClasses(name)
	if err != nil {
		return nil, fmt.Errorf("superclasses of %s: %w", name, err)
	}
	return append(append(make([]string, 0, len(supers)+1), supers...), name), nil
}
