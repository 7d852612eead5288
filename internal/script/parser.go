/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package script reads JSON design scripts and runs them against a design
// session. The CLI uses it to drive the engine without a host page.
package script

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	gojsonschema "github.com/xeipuuv/gojsonschema"
)

//go:embed schema/script.schema.json
var schemaBytes []byte

var schemaLoader = gojsonschema.NewBytesLoader(schemaBytes)

// Schema returns the embedded JSON schema.
func Schema() []byte { return append([]byte(nil), schemaBytes...) }

// Parse validates input against the schema and decodes it.
// A non-empty error list means the Script must not be run.
func Parse(input []byte) (Script, []Error) {
	var s Script
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(input))
	if err != nil {
		return s, []Error{{Message: "invalid JSON: " + err.Error()}}
	}
	if !result.Valid() {
		errs := make([]Error, 0, len(result.Errors()))
		for _, re := range result.Errors() {
			errs = append(errs, fromResult(re))
		}
		return s, errs
	}
	dec := json.NewDecoder(bytes.NewReader(input))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return s, []Error{{Message: err.Error()}}
	}
	return s, nil
}

// ParseFile reads and parses a script file. The returned error joins all
// validation errors.
func ParseFile(path string) (Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Script{}, err
	}
	s, errs := Parse(data)
	if len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return s, fmt.Errorf("%s: %s", path, strings.Join(msgs, "; "))
	}
	return s, nil
}

// fromResult maps "actions.2.file" style contexts to a 1-based action index.
func fromResult(re gojsonschema.ResultError) Error {
	field := re.Field()
	e := Error{Field: field, Message: re.Description()}
	parts := strings.SplitN(field, ".", 3)
	if len(parts) >= 2 && parts[0] == "actions" {
		if n, err := strconv.Atoi(parts[1]); err == nil {
			e.Action = n + 1
			e.Field = "(root)"
			if len(parts) == 3 {
				e.Field = parts[2]
			}
		}
	}
	return e
}
