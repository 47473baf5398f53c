package vm

import "fmt"

// ArgCount counts the elements of a list, giving up once the count exceeds
// returnEarlyIfExceeds. At most returnEarlyIfExceeds+1 cells are inspected
// however long the list is; arity checks run before any cost is charged.
func ArgCount[P comparable](args Node[P], returnEarlyIfExceeds int) int {
	count := 0
	args.Iter(func(Node[P]) bool {
		count++
		return count <= returnEarlyIfExceeds
	})
	return count
}

// CheckArgCount fails with ArityMismatch unless args has exactly expected
// elements.
func CheckArgCount[P comparable](args Node[P], expected int, name string) error {
	if ArgCount(args, expected) != expected {
		plural := "s"
		if expected == 1 {
			plural = ""
		}
		return args.Err(KindArityMismatch, fmt.Sprintf("%s takes exactly %d argument%s", name, expected, plural))
	}
	return nil
}

// AtomArg returns the bytes of an atom argument.
func AtomArg[P comparable](arg Node[P], opName string) ([]byte, error) {
	buf, ok := arg.Atom()
	if !ok {
		return nil, arg.Err(KindNotAnAtom, opName+" on list")
	}
	return buf, nil
}

// IntAtom returns the bytes of an integer argument.
func IntAtom[P comparable](arg Node[P], opName string) ([]byte, error) {
	buf, ok := arg.Atom()
	if !ok {
		return nil, arg.Err(KindNotAnAtom, opName+" requires int args")
	}
	return buf, nil
}

// Int32Atom decodes a canonical 32-bit signed integer argument.
func Int32Atom[P comparable](arg Node[P], opName string) (int32, error) {
	buf, err := IntAtom(arg, opName)
	if err != nil {
		return 0, err
	}
	v, ok := I32FromBytes(buf)
	if !ok {
		return 0, arg.Err(KindNonCanonicalInteger, opName+" requires int32 args (with no leading zeros)")
	}
	return v, nil
}

// TwoArgs checks for exactly two arguments and returns them.
func TwoArgs[P comparable](args Node[P], opName string) (Node[P], Node[P], error) {
	if err := CheckArgCount(args, 2, opName); err != nil {
		return args, args, err
	}
	a0, _ := args.First()
	rest, _ := args.Rest()
	a1, _ := rest.First()
	return a0, a1, nil
}
