// Package extract finds values by key anywhere inside a JSON document whose
// shape is not known in advance.
package extract

import (
	"iter"

	"github.com/tidwall/gjson"
)

// Values returns every value stored under key anywhere in doc.
//
// The walk is depth-first and follows document order. A matching member is
// yielded before its own subtree is searched. Object values and objects held
// directly in arrays are descended into; arrays nested directly inside arrays
// are not. A doc that is not an object yields nothing.
func Values(key string, doc gjson.Result) iter.Seq[gjson.Result] {
	return func(yield func(gjson.Result) bool) {
		walk(key, doc, yield)
	}
}

// First returns the first value stored under key, in the order Values uses.
func First(key string, doc gjson.Result) (gjson.Result, bool) {
	for v := range Values(key, doc) {
		return v, true
	}
	return gjson.Result{}, false
}

func Count(key string, doc gjson.Result) int {
	n := 0
	for range Values(key, doc) {
		n++
	}
	return n
}

// walk reports false once yield has asked to stop.
func walk(key string, node gjson.Result, yield func(gjson.Result) bool) bool {
	if !node.IsObject() {
		return true
	}

	more := true
	node.ForEach(func(k, v gjson.Result) bool {
		if k.String() == key && !yield(v) {
			more = false
			return false
		}
		switch {
		case v.IsObject():
			more = walk(key, v, yield)
		case v.IsArray():
			v.ForEach(func(_, elem gjson.Result) bool {
				more = walk(key, elem, yield)
				return more
			})
		}
		return more
	})
	return more
}
