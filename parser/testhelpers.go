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
	"math/big"
	"reflect"
	"runtime"
	"testing"
	"time"
)

// FailFunc is a function to call in case of failure
type FailFunc func(string, ...error)

// MaybeFail represents a fail function
var MaybeFail FailFunc

// InitFailFunc returns an initial fail function
func InitFailFunc(t *testing.T) FailFunc {
	tester := t
	return func(msg string, errors ...error) {
		for _, err := range errors {
			if err != nil {
				pc := make([]uintptr, 1)
				runtime.Callers(2, pc)
				caller := runtime.FuncForPC(pc[0])
				_, line := caller.FileLine(caller.Entry())

				tester.Fatalf("%s:%d failed: %s %s", caller.Name(), line, msg, err)
			}
		}
	}
}

// Expect compares the actual and expected values. Converted instants must
// match on both the moment and the location, so a value that was not
// normalized to UTC still fails against a UTC expectation. Rationals compare
// numerically so 250/100 equals 5/2.
func Expect(actual, expected interface{}) error {
	if !valueEqual(actual, expected) {
		return fmt.Errorf("expected: %v, Actual: %v", expected, actual)
	}

	return nil
}

func valueEqual(actual, expected interface{}) bool {
	switch a := actual.(type) {
	case time.Time:
		e, ok := expected.(time.Time)
		return ok && a.Equal(e) && a.Location() == e.Location()
	case *big.Rat:
		e, ok := expected.(*big.Rat)
		return ok && a.Cmp(e) == 0
	}
	return reflect.DeepEqual(actual, expected)
}
