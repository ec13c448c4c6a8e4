package properties

import (
	javaprops "github.com/magiconair/properties"
	"golang.org/x/exp/slices"
)

// Resolve combines the defaults of a category with its overrides.
//
// In Replace mode the result holds exactly the overrides. In Merge mode the result holds the
// default keys in their original order with overridden values substituted, followed by the
// override keys missing from the defaults in sorted order. A nil override leaves the
// defaults untouched in either mode.
func Resolve(defaults, overrides *javaprops.Properties, mode MergeMode) *javaprops.Properties {
	result := newSet()
	if overrides == nil {
		copyInto(result, defaults)
		return result
	}
	if mode == Replace || defaults == nil {
		copyInto(result, overrides)
		return result
	}

	copyInto(result, defaults)
	var added []string
	for _, k := range overrides.Keys() {
		v, _ := overrides.Get(k)
		if _, exists := defaults.Get(k); !exists {
			added = append(added, k)
			continue
		}
		put(result, k, v)
	}
	slices.Sort(added)
	for _, k := range added {
		v, _ := overrides.Get(k)
		put(result, k, v)
	}
	return result
}

// ApplyGlobal replaces the value of every key in p that is also set in global.
// Keys only present in global are not added. Returns true if p was changed.
func ApplyGlobal(p, global *javaprops.Properties) bool {
	if p == nil || global == nil {
		return false
	}
	changed := false
	for _, k := range global.Keys() {
		current, exists := p.Get(k)
		if !exists {
			continue
		}
		v, _ := global.Get(k)
		if current != v {
			put(p, k, v)
			changed = true
		}
	}
	return changed
}

func copyInto(dst, src *javaprops.Properties) {
	if src == nil {
		return
	}
	for _, k := range src.Keys() {
		v, _ := src.Get(k)
		put(dst, k, v)
	}
}
