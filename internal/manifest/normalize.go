package manifest

import "github.com/kb-labs/pkgops/internal/schema"

// Normalize returns a copy of doc with its keys in canonical order.
//
// Keys declared by s come first, in declaration order. Nested objects whose
// field schema is an object are normalized the same way, as are object items
// of arrays. Every other key follows in its original relative order, so no
// key is ever dropped. doc is not modified.
func Normalize(doc *Document, s *schema.Object) *Document {
	out := &Document{values: make(map[string]any, len(doc.values))}

	placed := make(map[string]bool, len(doc.keys))
	for field := range schema.FieldOrder(s) {
		v, ok := doc.values[field]
		if !ok {
			continue
		}
		out.Set(field, normalizeValue(v, s, field))
		placed[field] = true
	}
	for _, k := range doc.keys {
		if placed[k] {
			continue
		}
		out.Set(k, normalizeValue(doc.values[k], s, k))
	}
	return out
}

// normalizeValue orders v using the schema of field within parent.
// Values without a usable schema are copied unchanged.
func normalizeValue(v any, parent *schema.Object, field string) any {
	child, ok := schema.ChildSchema(parent, field)
	if !ok {
		return cloneValue(v)
	}

	switch val := v.(type) {
	case *Document:
		if obj, ok := child.(*schema.Object); ok {
			return Normalize(val, obj)
		}
	case []any:
		arr, ok := child.(*schema.Array)
		if !ok {
			break
		}
		item, ok := arr.ObjectItem()
		if !ok {
			break
		}
		out := make([]any, len(val))
		for i, it := range val {
			if d, ok := it.(*Document); ok {
				out[i] = Normalize(d, item)
			} else {
				out[i] = cloneValue(it)
			}
		}
		return out
	}
	return cloneValue(v)
}
