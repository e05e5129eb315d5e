package manifest

const (
	FieldDependencies    = "dependencies"
	FieldDevDependencies = "devDependencies"
)

// DependencyNames returns the keys of dependencies followed by the keys of
// devDependencies.
func DependencyNames(doc *Document) []string {
	var names []string
	for _, field := range []string{FieldDependencies, FieldDevDependencies} {
		if deps, ok := doc.Object(field); ok {
			names = append(names, deps.keys...)
		}
	}
	return names
}

// HasDependency reports whether name appears in either dependency map.
func HasDependency(doc *Document, name string) bool {
	for _, field := range []string{FieldDependencies, FieldDevDependencies} {
		if deps, ok := doc.Object(field); ok && deps.Has(name) {
			return true
		}
	}
	return false
}

// SetDependency records name at version in dependencies, or devDependencies
// when dev is set. The map is created if missing.
func SetDependency(doc *Document, name, version string, dev bool) {
	field := FieldDependencies
	if dev {
		field = FieldDevDependencies
	}
	deps, ok := doc.Object(field)
	if !ok {
		deps = New()
		doc.Set(field, deps)
	}
	deps.Set(name, version)
}

// RemoveDependency deletes name from both dependency maps and reports
// whether anything was removed.
func RemoveDependency(doc *Document, name string) bool {
	removed := false
	for _, field := range []string{FieldDependencies, FieldDevDependencies} {
		if deps, ok := doc.Object(field); ok && deps.Delete(name) {
			removed = true
		}
	}
	return removed
}
