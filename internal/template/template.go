package template

import (
	"regexp"

	"github.com/taskrunner-go/taskrunner/internal/vars"
)

var varRefRe = regexp.MustCompile(`variables\.([A-Za-z0-9_]+)`)
var placeholderRe = regexp.MustCompile(`\{([A-Za-z0-9_]*)\}`)

// Resolve replaces every variables.<name> reference in s with the value
// from the store, in a single left-to-right pass. Substituted values are
// never re-scanned. Unknown names substitute an empty string and are
// reported through onMissing so the caller can log and keep going.
func Resolve(s string, store *vars.Store, onMissing func(name string)) string {
	return varRefRe.ReplaceAllStringFunc(s, func(match string) string {
		name := varRefRe.FindStringSubmatch(match)[1]
		val, ok := store.GetString(name)
		if !ok {
			if onMissing != nil {
				onMissing(name)
			}
			return ""
		}
		return val
	})
}

// ResolveList applies Resolve to each element of items.
func ResolveList(items []string, store *vars.Store, onMissing func(name string)) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = Resolve(item, store, onMissing)
	}
	return out
}

// RefName extracts the variable name from a string containing a
// variables.<name> reference. ok is false when s holds no reference.
func RefName(s string) (name string, ok bool) {
	m := varRefRe.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// FormatPositional substitutes {} placeholders in tmpl left to right with
// args. Exhausted placeholders become empty; surplus args are dropped.
// Named placeholders are left untouched.
func FormatPositional(tmpl string, args ...string) string {
	i := 0
	return placeholderRe.ReplaceAllStringFunc(tmpl, func(match string) string {
		if match != "{}" {
			return match
		}
		if i >= len(args) {
			return ""
		}
		arg := args[i]
		i++
		return arg
	})
}

// FormatKeyed substitutes {key} placeholders in tmpl with values from
// fields. Unknown keys and bare {} become empty.
func FormatKeyed(tmpl string, fields map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(tmpl, func(match string) string {
		key := placeholderRe.FindStringSubmatch(match)[1]
		return fields[key]
	})
}
