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
	"encoding/binary"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hamba/avro/v2"
)

const (
	epochDay = 24 * time.Hour

	// durationSize is the fixed width mandated for the duration logical type:
	// three 4-byte little-endian unsigned integers.
	durationSize = 12
)

var one = big.NewInt(1)

// decodeLogical converts a raw base-type value into the semantic value of the
// schema's logical-type annotation. Values that upstream decoders have
// already converted (time.Time, time.Duration, *big.Rat, avro.LogicalDuration,
// uuid.UUID) pass through after validation.
func decodeLogical(schema avro.Schema, logical avro.LogicalSchema, value any, path Path) (any, error) {
	switch logical.Type() {
	case avro.Date:
		return decodeDate(value, path)
	case avro.TimeMillis:
		return decodeTimeOfDay(value, time.Millisecond, avro.TimeMillis, path)
	case avro.TimeMicros:
		return decodeTimeOfDay(value, time.Microsecond, avro.TimeMicros, path)
	case avro.TimestampMillis:
		return decodeTimestamp(value, time.UnixMilli, avro.TimestampMillis, path)
	case avro.TimestampMicros:
		return decodeTimestamp(value, time.UnixMicro, avro.TimestampMicros, path)
	case avro.Decimal:
		dec, ok := logical.(*avro.DecimalLogicalSchema)
		if !ok {
			return nil, &MalformedLogicalValueError{Path: path, Logical: avro.Decimal, Reason: "schema carries no precision/scale"}
		}
		return decodeDecimal(schema, dec, value, path)
	case avro.Duration:
		return decodeDuration(value, path)
	case avro.UUID:
		return decodeUUID(value, path)
	default:
		// Unrecognized annotations do not change the base type's semantics.
		return nil, errNoLogical
	}
}

// errNoLogical signals decodeLogical did not handle the annotation and the
// caller should fall back to the base type.
var errNoLogical = fmt.Errorf("no logical conversion")

// decodeDate converts days since 1970-01-01 into a calendar date at UTC
// midnight.
func decodeDate(value any, path Path) (any, error) {
	if t, ok := value.(time.Time); ok {
		y, m, d := t.UTC().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	days, ok := asInt64(value)
	if !ok {
		return nil, &MalformedLogicalValueError{Path: path, Logical: avro.Date,
			Reason: fmt.Sprintf("expected day count, got %T", value)}
	}
	return time.Unix(0, 0).UTC().AddDate(0, 0, int(days)), nil
}

// decodeTimeOfDay converts a count of unit since midnight into a
// time.Duration, rejecting values outside [0, 24h).
func decodeTimeOfDay(value any, unit time.Duration, logical avro.LogicalType, path Path) (any, error) {
	var d time.Duration
	switch {
	case isDuration(value):
		d = value.(time.Duration)
	default:
		n, ok := asInt64(value)
		if !ok {
			return nil, &MalformedLogicalValueError{Path: path, Logical: logical,
				Reason: fmt.Sprintf("expected elapsed count, got %T", value)}
		}
		d = time.Duration(n) * unit
	}
	if d < 0 || d >= epochDay {
		return nil, &MalformedLogicalValueError{Path: path, Logical: logical,
			Reason: fmt.Sprintf("time of day %v outside [0, 24h)", d)}
	}
	return d, nil
}

// decodeTimestamp converts an epoch offset into an absolute instant at UTC.
func decodeTimestamp(value any, fromUnix func(int64) time.Time, logical avro.LogicalType, path Path) (any, error) {
	if t, ok := value.(time.Time); ok {
		return t.UTC(), nil
	}
	n, ok := asInt64(value)
	if !ok {
		return nil, &MalformedLogicalValueError{Path: path, Logical: logical,
			Reason: fmt.Sprintf("expected epoch offset, got %T", value)}
	}
	return fromUnix(n).UTC(), nil
}

// decodeDecimal converts a two's-complement big-endian unscaled integer into
// an exact *big.Rat scaled by 10^-scale. Precision and scale come from the
// schema, never from the data.
func decodeDecimal(schema avro.Schema, dec *avro.DecimalLogicalSchema, value any, path Path) (any, error) {
	if r, ok := value.(*big.Rat); ok {
		return checkPrecision(r, dec, path)
	}
	b, ok := value.([]byte)
	if !ok {
		return nil, &MalformedLogicalValueError{Path: path, Logical: avro.Decimal,
			Reason: fmt.Sprintf("expected unscaled bytes, got %T", value)}
	}
	if len(b) == 0 {
		return nil, &MalformedLogicalValueError{Path: path, Logical: avro.Decimal,
			Reason: "empty unscaled value"}
	}
	if fixed, ok := schema.(*avro.FixedSchema); ok && len(b) != fixed.Size() {
		return nil, &MalformedLogicalValueError{Path: path, Logical: avro.Decimal,
			Reason: fmt.Sprintf("fixed decimal has %d bytes, schema declares %d", len(b), fixed.Size())}
	}
	return checkPrecision(ratFromBytes(b, dec.Scale()), dec, path)
}

func ratFromBytes(b []byte, scale int) *big.Rat {
	num := (&big.Int{}).SetBytes(b)
	if b[0]&0x80 > 0 {
		num.Sub(num, new(big.Int).Lsh(one, uint(len(b))*8))
	}
	denom := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(scale)), nil)
	return new(big.Rat).SetFrac(num, denom)
}

// checkPrecision rejects unscaled values with more digits than the schema's
// declared precision.
func checkPrecision(r *big.Rat, dec *avro.DecimalLogicalSchema, path Path) (any, error) {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(dec.Scale())), nil)
	unscaled := new(big.Int).Mul(r.Num(), scale)
	unscaled.Quo(unscaled, r.Denom())
	digits := len(strings.TrimLeft(unscaled.Abs(unscaled).String(), "0"))
	if digits == 0 {
		digits = 1
	}
	if digits > dec.Precision() {
		return nil, &MalformedLogicalValueError{Path: path, Logical: avro.Decimal,
			Reason: fmt.Sprintf("unscaled value has %d digits, precision is %d", digits, dec.Precision())}
	}
	return r, nil
}

// decodeDuration converts the 12-byte fixed encoding (three consecutive
// 4-byte little-endian unsigned integers) into its months, days and
// milliseconds components. The components stay independent since month length
// is undefined.
func decodeDuration(value any, path Path) (any, error) {
	if d, ok := value.(avro.LogicalDuration); ok {
		return d, nil
	}
	b, ok := value.([]byte)
	if !ok {
		return nil, &MalformedLogicalValueError{Path: path, Logical: avro.Duration,
			Reason: fmt.Sprintf("expected fixed bytes, got %T", value)}
	}
	if len(b) != durationSize {
		return nil, &MalformedLogicalValueError{Path: path, Logical: avro.Duration,
			Reason: fmt.Sprintf("expected %d bytes, got %d", durationSize, len(b))}
	}
	return avro.LogicalDuration{
		Months:       binary.LittleEndian.Uint32(b[0:4]),
		Days:         binary.LittleEndian.Uint32(b[4:8]),
		Milliseconds: binary.LittleEndian.Uint32(b[8:12]),
	}, nil
}

// decodeUUID parses the canonical string form of the uuid logical type.
func decodeUUID(value any, path Path) (any, error) {
	if u, ok := value.(uuid.UUID); ok {
		return u, nil
	}
	s, ok := value.(string)
	if !ok {
		return nil, &MalformedLogicalValueError{Path: path, Logical: avro.UUID,
			Reason: fmt.Sprintf("expected string, got %T", value)}
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return nil, &MalformedLogicalValueError{Path: path, Logical: avro.UUID, Reason: err.Error()}
	}
	return u, nil
}

func isDuration(v any) bool {
	_, ok := v.(time.Duration)
	return ok
}

// asInt64 widens any integral native box to int64.
func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	default:
		return 0, false
	}
}
