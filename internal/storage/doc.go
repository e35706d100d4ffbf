/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package storage implements the key-value backends the library catalog is persisted to.
// The file backend writes one JSON value per key transactionally and keeps timestamped backups.
// The embedded SQLite index at <data dir>/index.sqlite holds an optional kv table and the
// thumbnail cache; the cache part is disposable and rebuilt on corruption.
// A Postgres backend shares the library between machines.
package storage
