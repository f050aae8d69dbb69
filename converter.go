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

// Package avroarrow converts Avro-encoded records into columnar rows and
// Arrow record batches.
package avroarrow

import (
	"fmt"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/hamba/avro/v2"

	"github.com/avroarrow/avro-arrow-go/arrowmap"
	"github.com/avroarrow/avro-arrow-go/cache"
	"github.com/avroarrow/avro-arrow-go/column"
	"github.com/avroarrow/avro-arrow-go/parser"
)

// ConverterConfig holds configuration for a Converter
type ConverterConfig struct {
	// SchemaCacheCapacity limits how many parsed schemas are kept,
	// keyed by schema text. Zero keeps every schema with no eviction.
	SchemaCacheCapacity int
}

// NewConverterConfig returns a ConverterConfig with default values
func NewConverterConfig() *ConverterConfig {
	return &ConverterConfig{
		SchemaCacheCapacity: 1000,
	}
}

// Converter parses Avro schema text once and converts decoded records into
// rows or Arrow record batches. Parsed schemas are immutable and shared, so
// a Converter is safe for concurrent use across records.
type Converter struct {
	schemaCache     cache.Cache[string, *avro.RecordSchema]
	schemaCacheLock sync.RWMutex
}

// NewConverter creates a Converter. A nil conf uses defaults.
func NewConverter(conf *ConverterConfig) (*Converter, error) {
	if conf == nil {
		conf = NewConverterConfig()
	}
	var schemaCache cache.Cache[string, *avro.RecordSchema]
	if conf.SchemaCacheCapacity != 0 {
		var err error
		schemaCache, err = cache.NewLRUCache[string, *avro.RecordSchema](conf.SchemaCacheCapacity)
		if err != nil {
			return nil, err
		}
	} else {
		schemaCache = cache.NewMapCache[string, *avro.RecordSchema]()
	}
	return &Converter{schemaCache: schemaCache}, nil
}

// Convert parses one decoded Avro record against the given schema text and
// returns its Row.
func (c *Converter) Convert(schema string, record map[string]any) (*column.Row, error) {
	rs, err := c.toRecordSchema(schema)
	if err != nil {
		return nil, err
	}
	return parser.ParseRecord(rs, record)
}

// ConvertBatch converts a sequence of decoded records into a single Arrow
// record batch. The caller owns the returned batch and must Release it.
func (c *Converter) ConvertBatch(schema string, records []map[string]any) (arrow.RecordBatch, error) {
	rs, err := c.toRecordSchema(schema)
	if err != nil {
		return nil, err
	}
	tb, err := arrowmap.NewTableBuilder(rs, memory.DefaultAllocator)
	if err != nil {
		return nil, err
	}
	defer tb.Release()
	for i, record := range records {
		row, err := parser.ParseRecord(rs, record)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if err := tb.Append(row); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}
	return tb.NewRecordBatch(), nil
}

// DecodeBinary decodes a binary Avro payload with the schema's generic object
// model and converts it into a Row.
func (c *Converter) DecodeBinary(schema string, payload []byte) (*column.Row, error) {
	rs, err := c.toRecordSchema(schema)
	if err != nil {
		return nil, err
	}
	var record map[string]any
	if err := avro.Unmarshal(rs, payload, &record); err != nil {
		return nil, err
	}
	return parser.ParseRecord(rs, record)
}

// ArrowSchema maps the schema text onto the Arrow schema ConvertBatch
// produces batches for.
func (c *Converter) ArrowSchema(schema string) (*arrow.Schema, error) {
	rs, err := c.toRecordSchema(schema)
	if err != nil {
		return nil, err
	}
	return arrowmap.Schema(rs)
}

func (c *Converter) toRecordSchema(schema string) (*avro.RecordSchema, error) {
	c.schemaCacheLock.RLock()
	cached, ok := c.schemaCache.Get(schema)
	c.schemaCacheLock.RUnlock()
	if ok {
		return cached, nil
	}
	parsed, err := avro.Parse(schema)
	if err != nil {
		return nil, err
	}
	rs, ok := parsed.(*avro.RecordSchema)
	if !ok {
		return nil, fmt.Errorf("avroarrow: top-level schema must be a record, got %s", parsed.Type())
	}
	c.schemaCacheLock.Lock()
	c.schemaCache.Put(schema, rs)
	c.schemaCacheLock.Unlock()
	return rs, nil
}
