// Copyright 2025 Poiesic Systems
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


package core

import (
	"fmt"
	"strings"
)

// ValidateSourceName validates a data source name.
//
// The name becomes a directory name under the data and database roots and
// part of the ledger file name, so it must be a single path element:
//   - not empty
//   - no path separators
//   - not "." or ".." and no leading dot
func ValidateSourceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidSourceName)
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidSourceName, name)
	}
	if strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: %q starts with a dot", ErrInvalidSourceName, name)
	}
	return nil
}

// ValidateChunk validates a Chunk before it is stored.
//
// Validation rules:
//   - Content must not be empty
//   - Source must be a valid data source name
//
// NOT validated:
//   - Vector (stored chunks without vectors are skipped by similarity search)
//   - ID (assigned from the fingerprint and position when zero)
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}
	if chunk.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyContent)
	}
	if err := ValidateSourceName(chunk.Source); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, err)
	}
	return nil
}
