package schema

import "iter"

// FieldOrder yields the declared property names of obj in declaration
// order. The wildcard has no fixed name and is skipped. The sequence can
// be ranged over any number of times.
func FieldOrder(obj *Object) iter.Seq[string] {
	return func(yield func(string) bool) {
		if obj == nil {
			return
		}
		for _, p := range obj.Properties {
			if p.Name == Wildcard {
				continue
			}
			if !yield(p.Name) {
				return
			}
		}
	}
}

// ChildSchema returns the schema of the named field: the explicit property
// if declared, else the wildcard property. ok is false when neither exists,
// meaning the value should be left as-is.
func ChildSchema(obj *Object, field string) (Node, bool) {
	if obj == nil {
		return nil, false
	}
	var wildcard Node
	for _, p := range obj.Properties {
		if p.Name == field && field != Wildcard {
			return p.Schema, true
		}
		if p.Name == Wildcard && wildcard == nil {
			wildcard = p.Schema
		}
	}
	if wildcard != nil {
		return wildcard, true
	}
	return nil, false
}

// Lookup follows a path of field names from root. Array nodes are stepped
// through via their object item schema.
func Lookup(root Node, path ...string) (Node, bool) {
	cur := root
	for _, field := range path {
		if arr, ok := cur.(*Array); ok {
			obj, ok := arr.ObjectItem()
			if !ok {
				return nil, false
			}
			cur = obj
		}
		obj, ok := cur.(*Object)
		if !ok {
			return nil, false
		}
		next, ok := ChildSchema(obj, field)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, cur != nil
}
