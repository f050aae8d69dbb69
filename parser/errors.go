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
	"fmt"
	"strconv"
	"strings"

	"github.com/hamba/avro/v2"
)

// Path identifies the location of a value within a record: the sequence of
// field names and array indices from the record root. The zero value denotes
// the root itself.
type Path []string

// String renders the path as $.field.nested[2].leaf
func (p Path) String() string {
	var sb strings.Builder
	sb.WriteByte('$')
	for _, seg := range p {
		if !strings.HasPrefix(seg, "[") {
			sb.WriteByte('.')
		}
		sb.WriteString(seg)
	}
	return sb.String()
}

// field extends the path with a record field or map key. The receiver is
// copied so sibling branches never share backing storage.
func (p Path) field(name string) Path {
	next := make(Path, len(p), len(p)+1)
	copy(next, p)
	return append(next, name)
}

// index extends the path with an array index.
func (p Path) index(i int) Path {
	return p.field("[" + strconv.Itoa(i) + "]")
}

// SchemaMismatchError reports a value whose runtime shape does not match its
// declared schema: no union branch accepts it, or a scalar has the wrong
// native type. It indicates a schema/data contract violation upstream and is
// never retried here.
type SchemaMismatchError struct {
	Path   Path
	Schema avro.Schema
	Value  any
}

// Error implements the error interface
func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("avro value at %s does not match schema %s: unexpected %T (%v)",
		e.Path, e.Schema.Type(), e.Value, e.Value)
}

// MissingFieldError reports a required record field absent from the record
// instance.
type MissingFieldError struct {
	Path  Path
	Field string
}

// Error implements the error interface
func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("required field %q missing from record at %s", e.Field, e.Path)
}

// MalformedLogicalValueError reports a logical-type value that fails its
// byte-length or numeric-range precondition, e.g. a duration that is not
// exactly 12 bytes.
type MalformedLogicalValueError struct {
	Path    Path
	Logical avro.LogicalType
	Reason  string
}

// Error implements the error interface
func (e *MalformedLogicalValueError) Error() string {
	return fmt.Sprintf("malformed %s value at %s: %s", e.Logical, e.Path, e.Reason)
}
