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

// Package arrowmap maps Avro schemas onto Arrow columnar types and assembles
// parsed rows into Arrow record batches.
package arrowmap

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/hamba/avro/v2"
)

// maxDecimalPrecision is the widest decimal a 128-bit Arrow decimal can hold.
const maxDecimalPrecision = 38

// uuidByteWidth is the fixed width of a binary-encoded RFC 4122 UUID.
const uuidByteWidth = 16

// Schema maps an Avro record schema onto an Arrow schema. Each Avro field
// becomes one Arrow field in declaration order; a union of null and one other
// type becomes a nullable field of the non-null member's type.
func Schema(schema *avro.RecordSchema) (*arrow.Schema, error) {
	fields, err := structFields(schema)
	if err != nil {
		return nil, err
	}
	return arrow.NewSchema(fields, nil), nil
}

// DataType maps a single Avro schema node onto an Arrow data type and
// nullability flag.
func DataType(schema avro.Schema) (arrow.DataType, bool, error) {
	if ref, ok := schema.(*avro.RefSchema); ok {
		schema = ref.Schema()
	}

	if ls, ok := schema.(avro.LogicalTypeSchema); ok {
		if logical := ls.Logical(); logical != nil {
			if dt, err := logicalDataType(schema, logical); dt != nil || err != nil {
				return dt, false, err
			}
		}
	}

	switch s := schema.(type) {
	case *avro.UnionSchema:
		return unionDataType(s)
	case *avro.RecordSchema:
		fields, err := structFields(s)
		if err != nil {
			return nil, false, err
		}
		return arrow.StructOf(fields...), false, nil
	case *avro.ArraySchema:
		elem, elemNullable, err := DataType(s.Items())
		if err != nil {
			return nil, false, err
		}
		return arrow.ListOfField(arrow.Field{Name: "item", Type: elem, Nullable: elemNullable}), false, nil
	case *avro.MapSchema:
		item, _, err := DataType(s.Values())
		if err != nil {
			return nil, false, err
		}
		return arrow.MapOf(arrow.BinaryTypes.String, item), false, nil
	case *avro.EnumSchema:
		return arrow.BinaryTypes.String, false, nil
	case *avro.FixedSchema:
		return &arrow.FixedSizeBinaryType{ByteWidth: s.Size()}, false, nil
	}

	switch schema.Type() {
	case avro.Null:
		return arrow.Null, true, nil
	case avro.Boolean:
		return arrow.FixedWidthTypes.Boolean, false, nil
	case avro.Int:
		return arrow.PrimitiveTypes.Int32, false, nil
	case avro.Long:
		return arrow.PrimitiveTypes.Int64, false, nil
	case avro.Float:
		return arrow.PrimitiveTypes.Float32, false, nil
	case avro.Double:
		return arrow.PrimitiveTypes.Float64, false, nil
	case avro.String:
		return arrow.BinaryTypes.String, false, nil
	case avro.Bytes:
		return arrow.BinaryTypes.Binary, false, nil
	default:
		return nil, false, fmt.Errorf("arrowmap: no arrow mapping for avro type %s", schema.Type())
	}
}

// logicalDataType returns the Arrow type for a logical annotation, or nil to
// fall back to the base type when the annotation is unrecognized.
func logicalDataType(schema avro.Schema, logical avro.LogicalSchema) (arrow.DataType, error) {
	switch logical.Type() {
	case avro.Date:
		return arrow.FixedWidthTypes.Date32, nil
	case avro.TimeMillis:
		return arrow.FixedWidthTypes.Time32ms, nil
	case avro.TimeMicros:
		return arrow.FixedWidthTypes.Time64us, nil
	case avro.TimestampMillis:
		return arrow.FixedWidthTypes.Timestamp_ms, nil
	case avro.TimestampMicros:
		return arrow.FixedWidthTypes.Timestamp_us, nil
	case avro.Decimal:
		dec, ok := logical.(*avro.DecimalLogicalSchema)
		if !ok {
			return nil, fmt.Errorf("arrowmap: decimal schema carries no precision/scale")
		}
		if dec.Precision() > maxDecimalPrecision {
			return nil, fmt.Errorf("arrowmap: decimal precision %d exceeds %d", dec.Precision(), maxDecimalPrecision)
		}
		return &arrow.Decimal128Type{Precision: int32(dec.Precision()), Scale: int32(dec.Scale())}, nil
	case avro.Duration:
		return arrow.FixedWidthTypes.MonthDayNanoInterval, nil
	case avro.UUID:
		return &arrow.FixedSizeBinaryType{ByteWidth: uuidByteWidth}, nil
	default:
		return nil, nil
	}
}

// unionDataType maps a union of null and one other member onto the member's
// type marked nullable. Arbitrary multi-branch unions have no stable columnar
// shape here and are rejected.
func unionDataType(schema *avro.UnionSchema) (arrow.DataType, bool, error) {
	var nonNull []avro.Schema
	for _, m := range schema.Types() {
		if m.Type() != avro.Null {
			nonNull = append(nonNull, m)
		}
	}
	switch len(nonNull) {
	case 0:
		return arrow.Null, true, nil
	case 1:
		dt, _, err := DataType(nonNull[0])
		if err != nil {
			return nil, false, err
		}
		return dt, true, nil
	default:
		return nil, false, fmt.Errorf("arrowmap: union with %d non-null members has no arrow mapping", len(nonNull))
	}
}

func structFields(schema *avro.RecordSchema) ([]arrow.Field, error) {
	fields := make([]arrow.Field, 0, len(schema.Fields()))
	for _, f := range schema.Fields() {
		dt, nullable, err := DataType(f.Type())
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name(), err)
		}
		fields = append(fields, arrow.Field{Name: f.Name(), Type: dt, Nullable: nullable})
	}
	return fields, nil
}
