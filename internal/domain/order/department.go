package order

// DepartmentSet is the set of department keys an imported row may reference
type DepartmentSet map[string]struct{}

// NewDepartmentSet builds a set from a list of keys
func NewDepartmentSet(keys []string) DepartmentSet {
	set := make(DepartmentSet, len(keys))
	for _, k := range keys {
		if k != "" {
			set[k] = struct{}{}
		}
	}
	return set
}

// Contains reports whether the key is a known department
func (s DepartmentSet) Contains(key string) bool {
	_, ok := s[key]
	return ok
}

// Keys returns the department keys in unspecified order
func (s DepartmentSet) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	return keys
}

// DefaultDepartmentKeys returns the departments known to a fresh deployment.
// Deployments override the list via configuration.
func DefaultDepartmentKeys() []string {
	return []string{"sales", "aftersale", "warehouse", "finance", "operations"}
}
