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


// Package vectorstore adapts a data source's chunk repository to the
// langchaingo vectorstores.VectorStore interface.
//
// AddDocuments embeds document text in batches, normalizes every vector to
// unit length and upserts the resulting chunks. Chunk identity comes from the
// source file's fingerprint and the chunk position, so adding the same
// document twice overwrites instead of duplicating.
//
// SimilaritySearch embeds the query and runs the repository's brute-force
// cosine scan. An optional keyword boost raises chunks that contain every
// non-stop-word of the query.
package vectorstore
