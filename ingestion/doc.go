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


// Package ingestion turns the files of a data source into embedded chunks.
//
// A run loads the data source's ledger, extracts every supported file,
// drops files whose fingerprint was already ingested, splits the rest into
// chunks and upserts them into the data source's partition. The ledger is
// saved only after the upsert succeeds.
//
// RunAll runs every data source of a Registry on an ants worker pool and
// reports a Summary. A failing data source does not stop the others.
package ingestion
