package alidayu

import (
	"fmt"
	"sort"
	"strconv"
)

// Kind identifies what a Value holds
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindMap
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindMap:
		return "map"
	case KindList:
		return "list"
	}
	return "null"
}

// Value is the format-independent shape both response decoders produce.
// Numbers keep their literal text so that large ids survive decoding.
type Value struct {
	kind Kind
	text string
	m    map[string]Value
	list []Value
}

// Null returns the empty value
func Null() Value { return Value{} }

// String returns a string leaf
func String(s string) Value { return Value{kind: KindString, text: s} }

// Number returns a numeric leaf from its literal text
func Number(literal string) Value { return Value{kind: KindNumber, text: literal} }

// Int returns a numeric leaf
func Int(n int64) Value { return Number(strconv.FormatInt(n, 10)) }

// Map returns a mapping value. A nil map yields an empty mapping.
func Map(m map[string]Value) Value {
	if m == nil {
		m = map[string]Value{}
	}
	return Value{kind: KindMap, m: m}
}

// List returns a sequence value
func List(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindList, list: items}
}

// FromParams converts a flat parameter mapping into a Value
func FromParams(params map[string]string) Value {
	m := make(map[string]Value, len(params))
	for k, v := range params {
		m[k] = String(v)
	}
	return Map(m)
}

// Kind reports the value's kind
func (v Value) Kind() Kind { return v.kind }

// IsScalar reports whether v is a string or number leaf
func (v Value) IsScalar() bool { return v.kind == KindString || v.kind == KindNumber }

// Text returns the leaf text of a string or number, or "" otherwise
func (v Value) Text() string {
	if v.IsScalar() {
		return v.text
	}
	return ""
}

// Get returns the child stored under key. ok is false when v is not a
// mapping or the key is absent.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindMap {
		return Value{}, false
	}
	child, ok := v.m[key]
	return child, ok
}

// Lookup follows a path of keys through nested mappings
func (v Value) Lookup(path ...string) (Value, bool) {
	cur := v
	for _, key := range path {
		next, ok := cur.Get(key)
		if !ok {
			return Value{}, false
		}
		cur = next
	}
	return cur, true
}

// Keys returns the mapping keys in byte order
func (v Value) Keys() []string {
	if v.kind != KindMap {
		return nil
	}
	keys := make([]string, 0, len(v.m))
	for k := range v.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Items returns the elements of a sequence
func (v Value) Items() []Value {
	if v.kind != KindList {
		return nil
	}
	return v.list
}

// Len is the number of entries of a mapping or sequence
func (v Value) Len() int {
	switch v.kind {
	case KindMap:
		return len(v.m)
	case KindList:
		return len(v.list)
	}
	return 0
}

// IsEmpty treats null, "", "0", zero numbers and empty collections as empty.
func (v Value) IsEmpty() bool {
	switch v.kind {
	case KindString:
		return v.text == "" || v.text == "0"
	case KindNumber:
		f, err := strconv.ParseFloat(v.text, 64)
		return err == nil && f == 0
	case KindMap, KindList:
		return v.Len() == 0
	}
	return true
}

// Equal compares two values structurally
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString, KindNumber:
		return v.text == o.text
	case KindMap:
		if len(v.m) != len(o.m) {
			return false
		}
		for k, child := range v.m {
			other, ok := o.m[k]
			if !ok || !child.Equal(other) {
				return false
			}
		}
		return true
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	}
	return true
}

// Interface converts v into plain Go values (string, map[string]interface{},
// []interface{}, nil), e.g. for re-encoding with encoding/json.
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindString, KindNumber:
		return v.text
	case KindMap:
		out := make(map[string]interface{}, len(v.m))
		for k, child := range v.m {
			out[k] = child.Interface()
		}
		return out
	case KindList:
		out := make([]interface{}, len(v.list))
		for i, child := range v.list {
			out[i] = child.Interface()
		}
		return out
	}
	return nil
}

// String renders a Value for diagnostics
func (v Value) String() string {
	switch v.kind {
	case KindString, KindNumber:
		return v.text
	case KindNull:
		return "<null>"
	}
	return fmt.Sprintf("%v", v.Interface())
}
