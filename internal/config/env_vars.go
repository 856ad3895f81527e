// Copyright 2024 Redpanda Data, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
)

var envRegex = regexp.MustCompile(`\${[0-9A-Za-z_.]+(:((\${[^}]+})|[^}])*)?}`)

// ErrMissingEnvVars is returned when a configuration blob references
// environment variables without defaults that are not set.
type ErrMissingEnvVars struct {
	Variables []string
}

func (e *ErrMissingEnvVars) Error() string {
	return fmt.Sprintf("required environment variables were not set: %v", e.Variables)
}

// ReplaceEnvVariables will search a blob of data for the pattern `${FOO:bar}`,
// where `FOO` is an environment variable name and `bar` is a default value. The
// `bar` section (including the colon) can be left out if there is no
// appropriate default value for the field.
//
// If the environment variable is empty or does not exist then either the
// default value is used or, when there is no default, the variable is reported
// as missing.
func ReplaceEnvVariables(inBytes []byte, lookupFn func(string) (string, bool)) ([]byte, error) {
	var missing ErrMissingEnvVars

	replaced := envRegex.ReplaceAllFunc(inBytes, func(content []byte) []byte {
		var value string
		if colonIndex := bytes.IndexByte(content, ':'); colonIndex == -1 {
			varName := string(content[2 : len(content)-1])
			var ok bool
			if value, ok = lookupFn(varName); !ok {
				missing.Variables = append(missing.Variables, varName)
			}
		} else {
			value, _ = lookupFn(string(content[2:colonIndex]))
			if value == "" {
				value = string(content[colonIndex+1 : len(content)-1])
			}
		}
		// Newlines would otherwise break out of a YAML scalar.
		return []byte(strings.ReplaceAll(value, "\n", "\\n"))
	})

	if len(missing.Variables) > 0 {
		return nil, &missing
	}
	return replaced, nil
}
