// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package transform applies the per-row anonymization policy and drives
// whole files through the streaming pipeline: source stream in, framed
// anonymized CSV out to the destination store.
package transform

import (
	"fmt"

	"github.com/walteh/anonpipe/pkg/fieldspec"
	"github.com/walteh/anonpipe/pkg/protect"
)

// ❌ RowTooShortError reports a row with fewer columns than the field spec.
type RowTooShortError struct {
	Line int
	Have int
	Want int
}

func (e *RowTooShortError) Error() string {
	return fmt.Sprintf("line %d: row has %d columns, field spec expects %d", e.Line, e.Have, e.Want)
}

// ❌ ProtectError reports a failed protection call. It names the row, the
// 1-based column and the field, never the raw value.
type ProtectError struct {
	Line   int
	Column int
	Field  string
	Err    error
}

func (e *ProtectError) Error() string {
	return fmt.Sprintf("line %d column %d (%s): protecting value: %v", e.Line, e.Column, e.Field, e.Err)
}

func (e *ProtectError) Unwrap() error {
	return e.Err
}

// 🔄 Transformer applies the configured per-column transform to single rows.
type Transformer struct {
	fields   []fieldspec.Field
	registry *protect.Registry
}

// 🏭 NewTransformer creates a transformer over the parsed field spec and a
// warmed protector registry.
func NewTransformer(fields []fieldspec.Field, registry *protect.Registry) *Transformer {
	return &Transformer{fields: fields, registry: registry}
}

// 🔄 TransformRecord transforms one row. line is 1-based; line 1 is the
// header row and passes through untouched regardless of anonymize flags.
// Data rows must have at least len(fields) columns; flagged non-empty values
// are replaced by their protected form; a failed protection fails the whole
// row with no partial output and no plaintext fallback. Columns beyond the
// field spec pass through unchanged.
func (t *Transformer) TransformRecord(record []string, line int) ([]string, error) {
	out := make([]string, len(record))

	if line == 1 {
		copy(out, record)
		return out, nil
	}

	if len(record) < len(t.fields) {
		return nil, &RowTooShortError{Line: line, Have: len(record), Want: len(t.fields)}
	}

	for i, value := range record {
		if i >= len(t.fields) || !t.fields[i].Anonymize || value == "" {
			out[i] = value
			continue
		}

		field := t.fields[i]
		protector, err := t.registry.Get(field.Format)
		if err != nil {
			return nil, &ProtectError{Line: line, Column: i + 1, Field: field.Name, Err: err}
		}
		protected, err := protector.Protect(value)
		if err != nil {
			return nil, &ProtectError{Line: line, Column: i + 1, Field: field.Name, Err: err}
		}
		out[i] = protected
	}

	return out, nil
}
