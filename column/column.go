/**
 * Copyright 2025 AvroArrow Contributors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package column holds the columnar value containers produced by the parser.
package column

import (
	"fmt"
	"reflect"
	"strings"
)

// Row is one decoded record: an ordered sequence of converted values, each
// also addressable by the field name it was decoded from. Field order always
// mirrors the declaration order of the record schema the Row was parsed
// against. A Row is never mutated after it is returned.
type Row struct {
	names  []string
	values []any
}

// NewRow creates a Row from parallel name and value slices. The slices must
// have equal length; NewRow panics otherwise since mismatched lengths can
// only come from a caller bug, not from input data.
func NewRow(names []string, values []any) *Row {
	if len(names) != len(values) {
		panic(fmt.Sprintf("column: %d names for %d values", len(names), len(values)))
	}
	return &Row{names: names, values: values}
}

// Len returns the number of fields in the row
func (r *Row) Len() int {
	return len(r.names)
}

// Name returns the field name at position i
func (r *Row) Name(i int) string {
	return r.names[i]
}

// Value returns the value at position i
func (r *Row) Value(i int) any {
	return r.values[i]
}

// Get returns the value for the named field and a bool that is `false`
// if the row has no such field
func (r *Row) Get(name string) (any, bool) {
	for i, n := range r.names {
		if n == name {
			return r.values[i], true
		}
	}
	return nil, false
}

// Names returns a copy of the field names in declaration order
func (r *Row) Names() []string {
	names := make([]string, len(r.names))
	copy(names, r.names)
	return names
}

// Values returns a copy of the values in declaration order
func (r *Row) Values() []any {
	values := make([]any, len(r.values))
	copy(values, r.values)
	return values
}

// Map returns the row's fields copied into a map. Nested Rows are kept
// as *Row values.
func (r *Row) Map() map[string]any {
	m := make(map[string]any, len(r.names))
	for i, n := range r.names {
		m[n] = r.values[i]
	}
	return m
}

// Equal reports whether two rows have the same fields, in the same order,
// with deeply equal values.
func (r *Row) Equal(other *Row) bool {
	if other == nil || len(r.names) != len(other.names) {
		return false
	}
	for i := range r.names {
		if r.names[i] != other.names[i] {
			return false
		}
	}
	return reflect.DeepEqual(r.values, other.values)
}

// String renders the row as {name: value, ...} for debugging
func (r *Row) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, n := range r.names {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s: %v", n, r.values[i])
	}
	sb.WriteByte('}')
	return sb.String()
}
