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

package parser

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/hamba/avro/v2"

	"github.com/avroarrow/avro-arrow-go/column"
)

const scalarSchema = `
{
  "name": "Scalars",
  "type": "record",
  "fields": [
    {"name": "BoolField", "type": "boolean"},
    {"name": "IntField", "type": "int"},
    {"name": "LongField", "type": "long"},
    {"name": "FloatField", "type": "float"},
    {"name": "DoubleField", "type": "double"},
    {"name": "StringField", "type": "string"},
    {"name": "BytesField", "type": "bytes"}
  ]
}
`

const nestedSchema = `
{
  "name": "Order",
  "type": "record",
  "fields": [
    {"name": "Id", "type": "long"},
    {"name": "Items", "type": {"type": "array", "items": {
      "name": "Item",
      "type": "record",
      "fields": [
        {"name": "Sku", "type": "string"},
        {"name": "Attrs", "type": {"type": "map", "values": "int"}}
      ]
    }}}
  ]
}
`

const nullableSchema = `
{
  "name": "Sparse",
  "type": "record",
  "fields": [
    {"name": "Required", "type": "string"},
    {"name": "Optional", "type": ["null", "long"]}
  ]
}
`

func mustRecordSchema(t *testing.T, text string) *avro.RecordSchema {
	t.Helper()
	return avro.MustParse(text).(*avro.RecordSchema)
}

func TestParseRecordScalars(t *testing.T) {
	MaybeFail = InitFailFunc(t)
	schema := mustRecordSchema(t, scalarSchema)

	row, err := ParseRecord(schema, map[string]any{
		"BoolField":   true,
		"IntField":    math.MaxInt32,
		"LongField":   int64(math.MinInt64),
		"FloatField":  float32(math.MaxFloat32),
		"DoubleField": float64(45.67),
		"StringField": "hi",
		"BytesField":  []byte{1, 2},
	})
	MaybeFail("parse", err,
		Expect(row.Len(), 7),
		Expect(row.Value(0), true),
		Expect(row.Value(1), int32(math.MaxInt32)),
		Expect(row.Value(2), int64(math.MinInt64)),
		Expect(row.Value(3), float32(math.MaxFloat32)),
		Expect(row.Value(4), float64(45.67)),
		Expect(row.Value(5), "hi"),
		Expect(row.Value(6), []byte{1, 2}))

	got, ok := row.Get("LongField")
	MaybeFail("named access", Expect(ok, true), Expect(got, int64(math.MinInt64)))
}

func TestParseRecordBoundaries(t *testing.T) {
	MaybeFail = InitFailFunc(t)
	schema := mustRecordSchema(t, scalarSchema)

	record := map[string]any{
		"BoolField":   false,
		"IntField":    math.MinInt32,
		"LongField":   int64(math.MaxInt64),
		"FloatField":  float32(0),
		"DoubleField": math.MaxFloat64,
		"StringField": "",
		"BytesField":  []byte{},
	}
	row, err := ParseRecord(schema, record)
	MaybeFail("parse", err,
		Expect(row.Value(1), int32(math.MinInt32)),
		Expect(row.Value(2), int64(math.MaxInt64)),
		Expect(row.Value(4), math.MaxFloat64))

	// int overflow is a mismatch, not silent truncation
	record["IntField"] = int64(math.MaxInt32) + 1
	_, err = ParseRecord(schema, record)
	expectMismatch(t, err, "int out of range")
}

func TestParseRecordNested(t *testing.T) {
	MaybeFail = InitFailFunc(t)
	schema := mustRecordSchema(t, nestedSchema)

	row, err := ParseRecord(schema, map[string]any{
		"Id": int64(42),
		"Items": []any{
			map[string]any{"Sku": "a-1", "Attrs": map[string]any{"w": 10, "h": 20}},
			map[string]any{"Sku": "b-2", "Attrs": map[string]any{}},
		},
	})
	MaybeFail("parse", err, Expect(row.Len(), 2), Expect(row.Value(0), int64(42)))

	items := row.Value(1).([]any)
	MaybeFail("items", Expect(len(items), 2))

	first := items[0].(*column.Row)
	MaybeFail("first item", Expect(first.Len(), 2), Expect(first.Value(0), "a-1"),
		Expect(first.Value(1), map[string]any{"w": int32(10), "h": int32(20)}))

	second := items[1].(*column.Row)
	attrs, _ := second.Get("Attrs")
	MaybeFail("empty map", Expect(attrs, map[string]any{}))
}

func TestParseRecordEmptyArray(t *testing.T) {
	MaybeFail = InitFailFunc(t)
	schema := mustRecordSchema(t, nestedSchema)

	row, err := ParseRecord(schema, map[string]any{"Id": int64(1), "Items": []any{}})
	MaybeFail("parse", err, Expect(row.Value(1), []any{}))
}

func TestParseRecordIdempotent(t *testing.T) {
	MaybeFail = InitFailFunc(t)
	schema := mustRecordSchema(t, nestedSchema)
	record := map[string]any{
		"Id":    int64(7),
		"Items": []any{map[string]any{"Sku": "x", "Attrs": map[string]any{"n": 1}}},
	}

	first, err := ParseRecord(schema, record)
	MaybeFail("first parse", err)
	second, err := ParseRecord(schema, record)
	MaybeFail("second parse", err, Expect(first.Equal(second), true))
}

func TestParseRecordNullableUnion(t *testing.T) {
	MaybeFail = InitFailFunc(t)
	schema := mustRecordSchema(t, nullableSchema)

	row, err := ParseRecord(schema, map[string]any{"Required": "r", "Optional": nil})
	MaybeFail("null branch", err, Expect(row.Value(1), nil))

	row, err = ParseRecord(schema, map[string]any{"Required": "r", "Optional": int64(9)})
	MaybeFail("value branch", err, Expect(row.Value(1), int64(9)))

	// generic decoders may wrap the branch in a single-entry map
	row, err = ParseRecord(schema, map[string]any{"Required": "r", "Optional": map[string]any{"long": int64(9)}})
	MaybeFail("wrapped branch", err, Expect(row.Value(1), int64(9)))

	// an absent nullable field decodes to null
	row, err = ParseRecord(schema, map[string]any{"Required": "r"})
	MaybeFail("absent nullable", err, Expect(row.Value(1), nil))
}

func TestParseRecordMissingField(t *testing.T) {
	schema := mustRecordSchema(t, nullableSchema)

	_, err := ParseRecord(schema, map[string]any{"Optional": int64(1)})
	var missing *MissingFieldError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingFieldError, got %v", err)
	}
	if missing.Field != "Required" {
		t.Fatalf("expected field Required, got %q", missing.Field)
	}
}

func TestDispatchEnumAndFixed(t *testing.T) {
	MaybeFail = InitFailFunc(t)

	enum := avro.MustParse(`{"name": "Suit", "type": "enum", "symbols": ["SPADES", "HEARTS"]}`)
	v, err := Dispatch(enum, "HEARTS")
	MaybeFail("enum", err, Expect(v, "HEARTS"))

	_, err = Dispatch(enum, "CLUBS")
	expectMismatch(t, err, "unknown symbol")

	fixed := avro.MustParse(`{"name": "Hash", "type": "fixed", "size": 4}`)
	v, err = Dispatch(fixed, []byte{1, 2, 3, 4})
	MaybeFail("fixed", err, Expect(v, []byte{1, 2, 3, 4}))

	_, err = Dispatch(fixed, []byte{1, 2, 3})
	expectMismatch(t, err, "short fixed")
}

func TestDispatchUnionFirstMatch(t *testing.T) {
	MaybeFail = InitFailFunc(t)
	union := avro.MustParse(`["null", "long", "string"]`)

	v, err := Dispatch(union, int64(5))
	MaybeFail("long branch", err, Expect(v, int64(5)))

	v, err = Dispatch(union, "five")
	MaybeFail("string branch", err, Expect(v, "five"))

	v, err = Dispatch(union, nil)
	MaybeFail("null branch", err, Expect(v, nil))

	_, err = Dispatch(union, 1.5)
	expectMismatch(t, err, "no matching branch")
}

func TestDispatchUnionAmbiguousRecords(t *testing.T) {
	MaybeFail = InitFailFunc(t)
	// two record branches with identical field shape: first declared wins
	union := avro.MustParse(`[
	  {"name": "A", "type": "record", "fields": [{"name": "v", "type": "int"}]},
	  {"name": "B", "type": "record", "fields": [{"name": "v", "type": "int"}]}
	]`)

	v, err := Dispatch(union, map[string]any{"v": 1})
	MaybeFail("first structural match", err)
	row := v.(*column.Row)
	MaybeFail("first structural match value", Expect(row.Value(0), int32(1)))

	// the wrapped form still selects the named branch
	v, err = Dispatch(union, map[string]any{"B": map[string]any{"v": 2}})
	MaybeFail("named branch", err)
	row = v.(*column.Row)
	MaybeFail("named branch value", Expect(row.Value(0), int32(2)))
}

func TestErrorPaths(t *testing.T) {
	schema := mustRecordSchema(t, nestedSchema)

	_, err := ParseRecord(schema, map[string]any{
		"Id": int64(1),
		"Items": []any{
			map[string]any{"Sku": "ok", "Attrs": map[string]any{}},
			map[string]any{"Sku": 7, "Attrs": map[string]any{}},
		},
	})
	var mismatch *SchemaMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected SchemaMismatchError, got %v", err)
	}
	if got := mismatch.Path.String(); got != "$.Items[1].Sku" {
		t.Fatalf("expected path $.Items[1].Sku, got %s", got)
	}
	if !strings.Contains(err.Error(), "$.Items[1].Sku") {
		t.Fatalf("error text should carry the field path: %s", err)
	}
}

func expectMismatch(t *testing.T, err error, msg string) {
	t.Helper()
	var mismatch *SchemaMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("%s: expected SchemaMismatchError, got %v", msg, err)
	}
}
