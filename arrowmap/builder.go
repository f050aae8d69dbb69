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

package arrowmap

import (
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/decimal128"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/google/uuid"
	"github.com/hamba/avro/v2"

	"github.com/avroarrow/avro-arrow-go/column"
)

// TableBuilder accumulates parsed rows into an Arrow record batch. It wraps
// an array.RecordBuilder whose schema is derived from the Avro record schema,
// appending each row's converted values to the matching typed column
// builders. A TableBuilder is not safe for concurrent use.
type TableBuilder struct {
	schema *arrow.Schema
	rb     *array.RecordBuilder
}

// NewTableBuilder creates a TableBuilder for the given Avro record schema
func NewTableBuilder(schema *avro.RecordSchema, mem memory.Allocator) (*TableBuilder, error) {
	arrowSchema, err := Schema(schema)
	if err != nil {
		return nil, err
	}
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	return &TableBuilder{
		schema: arrowSchema,
		rb:     array.NewRecordBuilder(mem, arrowSchema),
	}, nil
}

// Schema returns the Arrow schema produced record batches conform to
func (b *TableBuilder) Schema() *arrow.Schema {
	return b.schema
}

// Append adds one row to the pending batch. The row must have been parsed
// against the Avro schema the builder was created with.
func (b *TableBuilder) Append(row *column.Row) error {
	if row.Len() != len(b.schema.Fields()) {
		return fmt.Errorf("arrowmap: row has %d fields, schema has %d", row.Len(), len(b.schema.Fields()))
	}
	for i := range b.schema.Fields() {
		if err := appendValue(b.rb.Field(i), row.Value(i)); err != nil {
			return fmt.Errorf("column %q: %w", b.schema.Field(i).Name, err)
		}
	}
	return nil
}

// AppendRows adds a sequence of rows to the pending batch
func (b *TableBuilder) AppendRows(rows []*column.Row) error {
	for _, row := range rows {
		if err := b.Append(row); err != nil {
			return err
		}
	}
	return nil
}

// NewRecordBatch emits the accumulated rows as an Arrow record batch and
// resets the builder for further appends. The caller owns the returned batch
// and must Release it.
func (b *TableBuilder) NewRecordBatch() arrow.RecordBatch {
	return b.rb.NewRecordBatch()
}

// Release frees the builder's buffers
func (b *TableBuilder) Release() {
	b.rb.Release()
}

// appendValue appends one converted value to a column builder, recursing into
// struct, list and map builders for nested values.
func appendValue(bldr array.Builder, value any) error {
	if value == nil {
		bldr.AppendNull()
		return nil
	}

	switch b := bldr.(type) {
	case *array.BooleanBuilder:
		v, ok := value.(bool)
		if !ok {
			return typeError(bldr, value)
		}
		b.Append(v)
	case *array.Int32Builder:
		v, ok := value.(int32)
		if !ok {
			return typeError(bldr, value)
		}
		b.Append(v)
	case *array.Int64Builder:
		v, ok := value.(int64)
		if !ok {
			return typeError(bldr, value)
		}
		b.Append(v)
	case *array.Float32Builder:
		v, ok := value.(float32)
		if !ok {
			return typeError(bldr, value)
		}
		b.Append(v)
	case *array.Float64Builder:
		v, ok := value.(float64)
		if !ok {
			return typeError(bldr, value)
		}
		b.Append(v)
	case *array.StringBuilder:
		v, ok := value.(string)
		if !ok {
			return typeError(bldr, value)
		}
		b.Append(v)
	case *array.BinaryBuilder:
		v, ok := value.([]byte)
		if !ok {
			return typeError(bldr, value)
		}
		b.Append(v)
	case *array.FixedSizeBinaryBuilder:
		switch v := value.(type) {
		case []byte:
			b.Append(v)
		case uuid.UUID:
			b.Append(v[:])
		default:
			return typeError(bldr, value)
		}
	case *array.Date32Builder:
		v, ok := value.(time.Time)
		if !ok {
			return typeError(bldr, value)
		}
		b.Append(arrow.Date32FromTime(v))
	case *array.Time32Builder:
		v, ok := value.(time.Duration)
		if !ok {
			return typeError(bldr, value)
		}
		b.Append(arrow.Time32(v / time.Millisecond))
	case *array.Time64Builder:
		v, ok := value.(time.Duration)
		if !ok {
			return typeError(bldr, value)
		}
		b.Append(arrow.Time64(v / time.Microsecond))
	case *array.TimestampBuilder:
		v, ok := value.(time.Time)
		if !ok {
			return typeError(bldr, value)
		}
		switch b.Type().(*arrow.TimestampType).Unit {
		case arrow.Microsecond:
			b.Append(arrow.Timestamp(v.UnixMicro()))
		case arrow.Nanosecond:
			b.Append(arrow.Timestamp(v.UnixNano()))
		default:
			b.Append(arrow.Timestamp(v.UnixMilli()))
		}
	case *array.Decimal128Builder:
		v, ok := value.(*big.Rat)
		if !ok {
			return typeError(bldr, value)
		}
		num, err := unscaled(v, b.Type().(*arrow.Decimal128Type).Scale)
		if err != nil {
			return err
		}
		b.Append(num)
	case *array.MonthDayNanoIntervalBuilder:
		v, ok := value.(avro.LogicalDuration)
		if !ok {
			return typeError(bldr, value)
		}
		b.Append(arrow.MonthDayNanoInterval{
			Months:      int32(v.Months),
			Days:        int32(v.Days),
			Nanoseconds: int64(v.Milliseconds) * int64(time.Millisecond),
		})
	case *array.StructBuilder:
		row, ok := value.(*column.Row)
		if !ok {
			return typeError(bldr, value)
		}
		b.Append(true)
		structType := b.Type().(*arrow.StructType)
		for i, field := range structType.Fields() {
			v, _ := row.Get(field.Name)
			if err := appendValue(b.FieldBuilder(i), v); err != nil {
				return fmt.Errorf("field %q: %w", field.Name, err)
			}
		}
	case *array.ListBuilder:
		items, ok := value.([]any)
		if !ok {
			return typeError(bldr, value)
		}
		b.Append(true)
		vb := b.ValueBuilder()
		for i, item := range items {
			if err := appendValue(vb, item); err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
		}
	case *array.MapBuilder:
		entries, ok := value.(map[string]any)
		if !ok {
			return typeError(bldr, value)
		}
		b.Append(true)
		// Avro maps carry no entry order; sort keys so batches are
		// deterministic for identical input.
		keys := make([]string, 0, len(entries))
		for k := range entries {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		kb := b.KeyBuilder().(*array.StringBuilder)
		ib := b.ItemBuilder()
		for _, k := range keys {
			kb.Append(k)
			if err := appendValue(ib, entries[k]); err != nil {
				return fmt.Errorf("key %q: %w", k, err)
			}
		}
	case *array.NullBuilder:
		b.AppendNull()
	default:
		return fmt.Errorf("arrowmap: unsupported builder %T", bldr)
	}
	return nil
}

// unscaled converts an exact decimal into its 128-bit unscaled integer
// representation at the column's scale.
func unscaled(r *big.Rat, scale int32) (decimal128.Num, error) {
	num := new(big.Int).Mul(r.Num(), new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(scale)), nil))
	num, rem := num.QuoRem(num, r.Denom(), new(big.Int))
	if rem.Sign() != 0 {
		return decimal128.Num{}, fmt.Errorf("arrowmap: decimal %s does not fit scale %d", r.RatString(), scale)
	}
	return decimal128.FromBigInt(num), nil
}

func typeError(bldr array.Builder, value any) error {
	return fmt.Errorf("arrowmap: cannot append %T to %s column", value, bldr.Type())
}
