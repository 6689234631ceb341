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

// Package fieldspec parses the field-anonymization specification string that
// tells the pipeline which CSV columns to protect and with which format.
package fieldspec

import (
	"fmt"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// ErrMalformedSpec is returned when a field entry does not split into
// name, flag and format.
var ErrMalformedSpec = errors.New("malformed field spec")

// 🎯 Field describes one CSV column: its name, whether its values are
// anonymized, and the protection format tag to use when they are.
// The parsed order is positional: fields[i] maps to column i of every row.
type Field struct {
	Name      string
	Anonymize bool
	Format    string
}

// 📝 String renders the field back into spec form with the flag casing
// normalized to Yes/No.
func (f Field) String() string {
	flag := "No"
	if f.Anonymize {
		flag = "Yes"
	}
	return fmt.Sprintf("%s:%s:%s", f.Name, flag, f.Format)
}

// 🎯 Parse parses a spec of the form "name1:Yes:fmt1,name2:No:fmt2,...".
// Entries are separated by "," and attributes by ":". Empty attribute
// tokens are preserved, never collapsed. The flag comparison is
// case-insensitive; any value other than "yes" means false.
func Parse(spec string) ([]Field, error) {
	var fields []Field
	for _, entry := range strings.Split(spec, ",") {
		attrs := strings.SplitN(entry, ":", 3)
		if len(attrs) != 3 {
			return nil, errors.Errorf("entry %q: %w", entry, ErrMalformedSpec)
		}
		fields = append(fields, Field{
			Name:      attrs[0],
			Anonymize: strings.EqualFold(attrs[1], "yes"),
			Format:    attrs[2],
		})
	}
	return fields, nil
}

// 📝 Join renders fields back into a spec string. Parse followed by Join
// round-trips a well-formed spec with normalized flags.
func Join(fields []Field) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f.String())
	}
	return strings.Join(parts, ",")
}
