package types

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// hierarchy is a Repository over a fixed map from class to its superclass and
// interfaces.
type hierarchy map[string]struct {
	super      string
	interfaces []string
	iface      bool
}

func (h hierarchy) get(name string) (super string, interfaces []string, iface bool, err error) {
	c, ok := h[name]
	if !ok {
		return "", nil, false, fmt.Errorf("%w: %s", ErrUnresolved, name)
	}
	return c.super, c.interfaces, c.iface, nil
}

func (h hierarchy) SuperClasses(name string) ([]string, error) {
	var ret []string
	for {
		super, _, _, err := h.get(name)
		if err != nil {
			return nil, err
		}
		if super == "" {
			return ret, nil
		}
		ret = append([]string{super}, ret...)
		name = super
	}
}

func (h hierarchy) IsInterface(name string) (bool, error) {
	_, _, iface, err := h.get(name)
	return iface, err
}

func (h hierarchy) IsSubclassOf(sub, super string) (bool, error) {
	supers, err := h.SuperClasses(sub)
	if err != nil {
		return false, err
	}
	for _, s := range append(supers, sub) {
		if s == super {
			return true, nil
		}
	}
	return false, nil
}

func (h hierarchy) ImplementsInterface(class, iface string) (bool, error) {
	if class == iface {
		return true, nil
	}
	super, interfaces, _, err := h.get(class)
	if err != nil {
		return false, err
	}
	for _, i := range interfaces {
		if ok, err := h.ImplementsInterface(i, iface); ok || err != nil {
			return ok, err
		}
	}
	if super == "" {
		return false, nil
	}
	return h.ImplementsInterface(super, iface)
}

var zoo = hierarchy{
	"java/lang/Object":     {},
	"java/lang/Cloneable":  {iface: true},
	"java/io/Serializable": {iface: true},
	"Pet":                  {iface: true},
	"Loud":                 {iface: true, interfaces: []string{"Pet"}},
	"Animal":               {super: "java/lang/Object"},
	"Dog":                  {super: "Animal", interfaces: []string{"Loud"}},
	"Cat":                  {super: "Animal", interfaces: []string{"Pet"}},
	"Puppy":                {super: "Dog"},
	"Rock":                 {super: "java/lang/Object"},
	"Ghost":                {super: "Missing"},
}

var (
	animal = NewObjectType("Animal")
	dog    = NewObjectType("Dog")
	cat    = NewObjectType("Cat")
	puppy  = NewObjectType("Puppy")
	rock   = NewObjectType("Rock")
	pet    = NewObjectType("Pet")
	loud   = NewObjectType("Loud")
	ghost  = NewObjectType("Ghost")
)

func TestLattice_IsAssignmentCompatible(t *testing.T) {
	l := NewLattice(zoo)
	for _, tc := range []struct {
		s, t     ReferenceType
		expected bool
	}{
		{s: dog, t: animal, expected: true},
		{s: animal, t: dog, expected: false},
		{s: puppy, t: animal, expected: true},
		{s: cat, t: dog, expected: false},
		{s: dog, t: Object, expected: true},
		{s: dog, t: dog, expected: true},
		{s: Null, t: dog, expected: true},
		{s: Null, t: NewArrayType(Int, 1), expected: true},
		{s: dog, t: Null, expected: false},
		// class to interface
		{s: dog, t: pet, expected: true},
		{s: puppy, t: loud, expected: true},
		{s: cat, t: loud, expected: false},
		{s: rock, t: pet, expected: false},
		// interface to class
		{s: pet, t: Object, expected: true},
		{s: pet, t: animal, expected: false},
		// interface to interface
		{s: loud, t: pet, expected: true},
		{s: pet, t: loud, expected: false},
		// arrays
		{s: NewArrayType(Int, 1), t: Object, expected: true},
		{s: NewArrayType(Int, 1), t: Cloneable, expected: true},
		{s: NewArrayType(dog, 2), t: Serializable, expected: true},
		{s: NewArrayType(Int, 1), t: pet, expected: false},
		{s: NewArrayType(Int, 1), t: animal, expected: false},
		{s: NewArrayType(Int, 1), t: NewArrayType(Int, 1), expected: true},
		{s: NewArrayType(Int, 1), t: NewArrayType(Long, 1), expected: false},
		{s: NewArrayType(dog, 1), t: NewArrayType(animal, 1), expected: true},
		{s: NewArrayType(animal, 1), t: NewArrayType(dog, 1), expected: false},
		{s: NewArrayType(dog, 1), t: NewArrayType(pet, 1), expected: true},
		{s: NewArrayType(Int, 2), t: NewArrayType(Object, 1), expected: true},
		{s: NewArrayType(Int, 2), t: NewArrayType(Cloneable, 1), expected: true},
		{s: NewArrayType(Int, 1), t: NewArrayType(Object, 1), expected: false},
		{s: NewArrayType(dog, 1), t: NewArrayType(dog, 2), expected: false},
		{s: animal, t: NewArrayType(animal, 1), expected: false},
	} {
		tc := tc
		t.Run(fmt.Sprintf("%s to %s", tc.s, tc.t), func(t *testing.T) {
			actual, err := l.IsAssignmentCompatible(tc.s, tc.t)
			require.NoError(t, err)
			require.Equal(t, tc.expected, actual)

			castable, err := l.IsCastableTo(tc.s, tc.t)
			require.NoError(t, err)
			require.Equal(t, tc.expected, castable)
		})
	}
}

func TestLattice_Unresolved(t *testing.T) {
	l := NewLattice(zoo)

	ok, err := l.IsAssignmentCompatible(ghost, animal)
	require.ErrorIs(t, err, ErrUnresolved)
	require.False(t, ok)

	ok, err = l.IsAssignmentCompatible(NewObjectType("Nowhere"), animal)
	require.ErrorIs(t, err, ErrUnresolved)
	require.False(t, ok)

	// Null and Object need no hierarchy.
	ok, err = l.IsAssignmentCompatible(NewObjectType("Nowhere"), Object)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = l.IsCastableTo(Null, NewObjectType("Nowhere"))
	require.NoError(t, err)
	require.True(t, ok)

	join, ok := l.FirstCommonSuperclass(ghost, dog)
	require.False(t, ok)
	require.Nil(t, join)

	join, ok = l.FirstCommonSuperclass(NewArrayType(ghost, 1), NewArrayType(dog, 1))
	require.False(t, ok)
	require.Nil(t, join)
}

func TestLattice_FirstCommonSuperclass(t *testing.T) {
	l := NewLattice(zoo)
	for _, tc := range []struct {
		a, b, expected ReferenceType
	}{
		{a: dog, b: cat, expected: animal},
		{a: puppy, b: cat, expected: animal},
		{a: puppy, b: dog, expected: dog},
		{a: dog, b: rock, expected: Object},
		{a: dog, b: Object, expected: Object},
		{a: dog, b: dog, expected: dog},
		{a: Null, b: dog, expected: dog},
		{a: dog, b: pet, expected: Object},
		{a: pet, b: loud, expected: Object},
		{a: NewArrayType(dog, 1), b: NewArrayType(cat, 1), expected: NewArrayType(animal, 1)},
		{a: NewArrayType(dog, 2), b: NewArrayType(cat, 2), expected: NewArrayType(animal, 2)},
		{a: NewArrayType(dog, 1), b: NewArrayType(cat, 2), expected: Object},
		{a: NewArrayType(Int, 1), b: NewArrayType(Long, 1), expected: Object},
		{a: NewArrayType(Int, 1), b: dog, expected: Object},
	} {
		tc := tc
		t.Run(fmt.Sprintf("%s and %s", tc.a, tc.b), func(t *testing.T) {
			join, ok := l.FirstCommonSuperclass(tc.a, tc.b)
			require.True(t, ok)
			require.True(t, Equal(tc.expected, join), join.String())
		})
	}
}

func TestLattice_Properties(t *testing.T) {
	l := NewLattice(zoo)
	all := []ReferenceType{
		Null, Object, Cloneable, animal, dog, cat, puppy, rock, pet, loud,
		NewArrayType(Int, 1), NewArrayType(Int, 2), NewArrayType(dog, 1),
		NewArrayType(cat, 1), NewArrayType(puppy, 2), NewArrayType(Object, 1),
	}

	t.Run("commutative", func(t *testing.T) {
		for _, a := range all {
			for _, b := range all {
				ab, ok := l.FirstCommonSuperclass(a, b)
				require.True(t, ok)
				ba, ok := l.FirstCommonSuperclass(b, a)
				require.True(t, ok)
				require.True(t, Equal(ab, ba), "%s and %s: %s != %s", a, b, ab, ba)
			}
		}
	})

	t.Run("null absorbing", func(t *testing.T) {
		for _, x := range all {
			join, ok := l.FirstCommonSuperclass(Null, x)
			require.True(t, ok)
			require.True(t, Equal(x, join))

			castable, err := l.IsCastableTo(Null, x)
			require.NoError(t, err)
			require.True(t, castable)
		}
	})

	t.Run("join is an upper bound", func(t *testing.T) {
		for _, a := range all {
			for _, b := range all {
				join, _ := l.FirstCommonSuperclass(a, b)
				for _, x := range []ReferenceType{a, b} {
					ok, err := l.IsAssignmentCompatible(x, join)
					require.NoError(t, err)
					require.True(t, ok, "%s is not assignable to join(%s, %s) = %s", x, a, b, join)
				}
			}
		}
	})
}
