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
	"errors"
	"fmt"
)

// Error kinds. Typed errors below unwrap to one of these so callers can
// classify failures with errors.Is.
var (
	// ErrConfiguration indicates a required directory or setting is missing.
	ErrConfiguration = errors.New("configuration error")

	// ErrLoad indicates a single file could not be read or extracted.
	ErrLoad = errors.New("load error")

	// ErrStorage indicates persisted state is present but unreadable.
	ErrStorage = errors.New("storage error")

	// ErrUpstream indicates an embedding or language model call failed.
	ErrUpstream = errors.New("upstream error")

	// ErrInvalidSourceName indicates a data source name cannot be used as a partition name.
	ErrInvalidSourceName = errors.New("invalid data source name")

	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrEmptyContent indicates the Content field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")
)

// ConfigurationError reports a missing directory or invalid setting. Fatal, not retried.
type ConfigurationError struct {
	Path string
	Err  error
}

func (e *ConfigurationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("configuration error: %v", e.Err)
	}
	return fmt.Sprintf("configuration error: %s: %v", e.Path, e.Err)
}

// Unwrap returns both the kind sentinel and the cause.
func (e *ConfigurationError) Unwrap() []error {
	return []error{ErrConfiguration, e.Err}
}

// LoadError reports a file that failed to parse or extract.
// The file is skipped and the run continues.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

// Unwrap returns both the kind sentinel and the cause.
func (e *LoadError) Unwrap() []error {
	return []error{ErrLoad, e.Err}
}

// StorageError reports persisted state that exists but cannot be read or written.
// Fatal for the data source's run.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns both the kind sentinel and the cause.
func (e *StorageError) Unwrap() []error {
	return []error{ErrStorage, e.Err}
}

// UpstreamError reports a failed embedding or LLM call after retries.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s: %v", e.Op, e.Err)
}

// Unwrap returns both the kind sentinel and the cause.
func (e *UpstreamError) Unwrap() []error {
	return []error{ErrUpstream, e.Err}
}
