package pager

import (
	"bytes"
	"encoding/json"
)

// Field is one named value of a Record. Found is false when the field's
// selector matched nothing; Value is empty in that case.
type Field struct {
	Name  string
	Value string
	Found bool
}

// Record is an ordered set of fields extracted from one item node.
type Record []Field

// Get returns the value of the named field and whether it was found.
func (r Record) Get(name string) (string, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, f.Found
		}
	}
	return "", false
}

// Value returns the named field's value, or "" when absent.
func (r Record) Value(name string) string {
	v, _ := r.Get(name)
	return v
}

// Key identifies a record for de-duplication: the url when present,
// otherwise the title. Empty when neither was extracted.
func (r Record) Key() string {
	if v, ok := r.Get("url"); ok && v != "" {
		return v
	}
	if v, ok := r.Get("title"); ok && v != "" {
		return v
	}
	return ""
}

// Map returns the record as a map; missing fields map to nil.
func (r Record) Map() map[string]*string {
	m := make(map[string]*string, len(r))
	for _, f := range r {
		if f.Found {
			v := f.Value
			m[f.Name] = &v
		} else {
			m[f.Name] = nil
		}
	}
	return m
}

// MarshalJSON writes the fields as an object in extraction order.
// Missing fields are written as null.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		if !f.Found {
			buf.WriteString("null")
			continue
		}
		value, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
