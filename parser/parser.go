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

// Package parser converts decoded Avro values into columnar rows.
//
// The parser walks an Avro schema together with a correspondingly shaped
// record in the generic object model (map[string]any per record, []any per
// array) and produces typed values: nested records become *column.Row,
// logical types are decoded into their semantic Go representations, and
// unions with null become nilable values. Schemas are read-only; each call
// allocates fresh output, so concurrent parses of distinct records need no
// coordination.
package parser

import (
	"math"
	"math/big"
	"time"

	"github.com/hamba/avro/v2"

	"github.com/avroarrow/avro-arrow-go/column"
)

// ParseRecord converts one decoded Avro record into a Row. Fields are
// converted in schema declaration order; the resulting Row always has exactly
// one value per declared field. A required field absent from the record
// yields a MissingFieldError; a field whose union includes null may be
// absent and decodes to nil.
func ParseRecord(schema *avro.RecordSchema, record map[string]any) (*column.Row, error) {
	return parseRecord(schema, record, nil)
}

// Dispatch converts a single value according to its schema node. It is the
// entry point for non-record top-level schemas and is otherwise identical to
// the per-field conversion ParseRecord applies.
func Dispatch(schema avro.Schema, value any) (any, error) {
	return dispatch(schema, value, nil)
}

func parseRecord(schema *avro.RecordSchema, record map[string]any, path Path) (*column.Row, error) {
	fields := schema.Fields()
	names := make([]string, len(fields))
	values := make([]any, len(fields))
	for i, field := range fields {
		names[i] = field.Name()
		raw, ok := record[field.Name()]
		if !ok {
			if !nullable(field.Type()) {
				return nil, &MissingFieldError{Path: path, Field: field.Name()}
			}
			values[i] = nil
			continue
		}
		v, err := dispatch(field.Type(), raw, path.field(field.Name()))
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return column.NewRow(names, values), nil
}

// dispatch selects the conversion strategy for one schema node. The type tag
// set is closed by the Avro specification, so this is a plain exhaustive
// switch rather than open dispatch.
func dispatch(schema avro.Schema, value any, path Path) (any, error) {
	if ref, ok := schema.(*avro.RefSchema); ok {
		schema = ref.Schema()
	}

	if ls, ok := schema.(avro.LogicalTypeSchema); ok {
		if logical := ls.Logical(); logical != nil {
			v, err := decodeLogical(schema, logical, value, path)
			if err == nil {
				return v, nil
			}
			if err != errNoLogical {
				return nil, err
			}
		}
	}

	switch s := schema.(type) {
	case *avro.UnionSchema:
		member, inner, err := resolveUnion(s, value, path)
		if err != nil {
			return nil, err
		}
		if member.Type() == avro.Null {
			return nil, nil
		}
		return dispatch(member, inner, path)

	case *avro.RecordSchema:
		rec, ok := value.(map[string]any)
		if !ok {
			return nil, &SchemaMismatchError{Path: path, Schema: s, Value: value}
		}
		return parseRecord(s, rec, path)

	case *avro.ArraySchema:
		items, ok := value.([]any)
		if !ok {
			return nil, &SchemaMismatchError{Path: path, Schema: s, Value: value}
		}
		out := make([]any, len(items))
		for i, item := range items {
			v, err := dispatch(s.Items(), item, path.index(i))
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil

	case *avro.MapSchema:
		entries, ok := value.(map[string]any)
		if !ok {
			return nil, &SchemaMismatchError{Path: path, Schema: s, Value: value}
		}
		out := make(map[string]any, len(entries))
		for k, item := range entries {
			v, err := dispatch(s.Values(), item, path.field(k))
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil

	case *avro.EnumSchema:
		sym, ok := value.(string)
		if !ok || !hasSymbol(s, sym) {
			return nil, &SchemaMismatchError{Path: path, Schema: s, Value: value}
		}
		return sym, nil

	case *avro.FixedSchema:
		b, ok := value.([]byte)
		if !ok || len(b) != s.Size() {
			return nil, &SchemaMismatchError{Path: path, Schema: s, Value: value}
		}
		return cloneBytes(b), nil

	default:
		return dispatchPrimitive(schema, value, path)
	}
}

// dispatchPrimitive coerces native scalar boxes to their declared widths.
// Integral boxes are accepted at any width that holds the declared range;
// float boxes convert across the two Avro widths since textual decoders hand
// every number over as float64. Anything else is a schema mismatch.
func dispatchPrimitive(schema avro.Schema, value any, path Path) (any, error) {
	switch schema.Type() {
	case avro.Null:
		if value == nil {
			return nil, nil
		}
	case avro.Boolean:
		if b, ok := value.(bool); ok {
			return b, nil
		}
	case avro.Int:
		if n, ok := asInt64(value); ok && n >= math.MinInt32 && n <= math.MaxInt32 {
			return int32(n), nil
		}
	case avro.Long:
		if n, ok := asInt64(value); ok {
			return n, nil
		}
	case avro.Float:
		switch f := value.(type) {
		case float32:
			return f, nil
		case float64:
			return float32(f), nil
		}
	case avro.Double:
		switch f := value.(type) {
		case float64:
			return f, nil
		case float32:
			return float64(f), nil
		}
	case avro.String:
		if s, ok := value.(string); ok {
			return s, nil
		}
	case avro.Bytes:
		if b, ok := value.([]byte); ok {
			return cloneBytes(b), nil
		}
	}
	return nil, &SchemaMismatchError{Path: path, Schema: schema, Value: value}
}

// resolveUnion picks the union member for a value. Null values take the null
// member immediately. Values wrapped in the single-entry map form emitted by
// generic Avro decoders ({"typeName": value}) select the named member.
// Otherwise the first member structurally compatible with the value wins, in
// declared order; Avro leaves the tie-break for ambiguous non-null branches
// underspecified, so declared order is the canonical policy here.
func resolveUnion(schema *avro.UnionSchema, value any, path Path) (avro.Schema, any, error) {
	members := schema.Types()
	if value == nil {
		for _, m := range members {
			if m.Type() == avro.Null {
				return m, nil, nil
			}
		}
		return nil, nil, &SchemaMismatchError{Path: path, Schema: schema, Value: value}
	}

	if wrapper, ok := value.(map[string]any); ok && len(wrapper) == 1 {
		for name, inner := range wrapper {
			if m := memberByName(members, name); m != nil {
				return m, inner, nil
			}
		}
	}

	for _, m := range members {
		if m.Type() == avro.Null {
			continue
		}
		if structurallyCompatible(m, value) {
			return m, value, nil
		}
	}
	return nil, nil, &SchemaMismatchError{Path: path, Schema: schema, Value: value}
}

// memberByName matches the generic decoders' union key against a member's
// type name: primitive tag, named-schema full name, or bare name.
func memberByName(members []avro.Schema, name string) avro.Schema {
	for _, m := range members {
		s := m
		if ref, ok := s.(*avro.RefSchema); ok {
			s = ref.Schema()
		}
		if string(s.Type()) == name {
			return s
		}
		if named, ok := s.(avro.NamedSchema); ok {
			if named.FullName() == name || named.Name() == name {
				return s
			}
		}
	}
	return nil
}

// structurallyCompatible performs the shallow runtime type check used for
// union branch selection.
func structurallyCompatible(schema avro.Schema, value any) bool {
	if ref, ok := schema.(*avro.RefSchema); ok {
		schema = ref.Schema()
	}
	switch schema.Type() {
	case avro.Boolean:
		_, ok := value.(bool)
		return ok
	case avro.Int, avro.Long:
		if _, ok := asInt64(value); ok {
			return true
		}
		_, isTime := value.(time.Time)
		_, isDur := value.(time.Duration)
		return isTime || isDur
	case avro.Float, avro.Double:
		switch value.(type) {
		case float32, float64:
			return true
		}
		return false
	case avro.String:
		_, ok := value.(string)
		return ok
	case avro.Bytes:
		switch value.(type) {
		case []byte, *big.Rat:
			return true
		}
		return false
	case avro.Fixed:
		switch v := value.(type) {
		case []byte:
			return len(v) == schema.(*avro.FixedSchema).Size()
		case avro.LogicalDuration, *big.Rat:
			return true
		}
		return false
	case avro.Enum:
		s, ok := value.(string)
		return ok && hasSymbol(schema.(*avro.EnumSchema), s)
	case avro.Record, avro.Map:
		_, ok := value.(map[string]any)
		return ok
	case avro.Array:
		_, ok := value.([]any)
		return ok
	default:
		return false
	}
}

// nullable reports whether a schema accepts null, i.e. it is the null type or
// a union with a null member.
func nullable(schema avro.Schema) bool {
	if ref, ok := schema.(*avro.RefSchema); ok {
		schema = ref.Schema()
	}
	if schema.Type() == avro.Null {
		return true
	}
	union, ok := schema.(*avro.UnionSchema)
	if !ok {
		return false
	}
	for _, m := range union.Types() {
		if m.Type() == avro.Null {
			return true
		}
	}
	return false
}

func hasSymbol(schema *avro.EnumSchema, symbol string) bool {
	for _, s := range schema.Symbols() {
		if s == symbol {
			return true
		}
	}
	return false
}

// cloneBytes copies byte values so returned rows never alias the caller's
// input buffers.
func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
