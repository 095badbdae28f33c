package gatehouse

import "strings"

// Verb is the leading word of a CRUD-style permission name such as
// "Read Widget".
type Verb string

// CRUD verbs used by the wildcard permissions.
const (
	VerbCreate Verb = "Create"
	VerbRead   Verb = "Read"
	VerbUpdate Verb = "Update"
	VerbDelete Verb = "Delete"
)

// Wildcard returns the "Verb *" permission name.
func Wildcard(v Verb) string { return string(v) + " *" }

// PermissionName returns the "Verb Entity" permission name.
func PermissionName(v Verb, entity string) string { return string(v) + " " + entity }

// matchPermission reports whether a held permission satisfies a required
// one. "Verb *" satisfies "Verb X" for any non-empty X.
func matchPermission(held, required string) bool {
	if held == required {
		return true
	}
	verb, ok := strings.CutSuffix(held, " *")
	if !ok || verb == "" {
		return false
	}
	rv, entity, ok := strings.Cut(required, " ")
	return ok && rv == verb && entity != ""
}

// holdsPermission reports whether any held permission satisfies required.
func holdsPermission(held []string, required string) bool {
	for _, h := range held {
		if matchPermission(h, required) {
			return true
		}
	}
	return false
}

// Alternatives returns the permission names that satisfy required: the
// name itself and, for "Verb Entity" names, the "Verb *" wildcard.
func Alternatives(required string) []string {
	verb, entity, ok := strings.Cut(required, " ")
	if !ok || verb == "" || entity == "" || entity == "*" {
		return []string{required}
	}
	return []string{required, verb + " *"}
}
