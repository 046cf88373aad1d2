package kicadsexp

// Walk visits every list below and including root in pre-order (document
// order). visit returns false to skip a list's children. The traversal
// keeps its own stack instead of recursing.
func Walk(root Sexp, visit func(*List) bool) {
	start, ok := root.(*List)
	if !ok {
		return
	}

	stack := []*List{start}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !visit(node) {
			continue
		}

		// push children in reverse so the first child is visited next
		items := node.elements
		for i := len(items) - 1; i >= 0; i-- {
			if sub, ok := items[i].(*List); ok {
				stack = append(stack, sub)
			}
		}
	}
}

// Equal reports whether two trees have the same structure and atoms.
// Numbers compare by value, so 1.0 and 1 are equal.
func Equal(a, b Sexp) bool {
	switch av := a.(type) {
	case Symbol:
		bv, ok := b.(Symbol)
		return ok && av == bv
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Number:
		bv, ok := b.(Number)
		return ok && av.Value == bv.Value
	case *List:
		bv, ok := b.(*List)
		if !ok || len(av.elements) != len(bv.elements) {
			return false
		}
		for i := range av.elements {
			if !Equal(av.elements[i], bv.elements[i]) {
				return false
			}
		}
		return true
	}
	return false
}
