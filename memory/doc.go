// Package memory stores session records, the unit of transcript persistence.
//
// Persistence model:
//   - One record per session: version, createdAt, updatedAt, full message list.
//   - Every save is a full overwrite; updatedAt is stamped at write time.
//   - Backends: one JSON file per session (FileStore) or a SQLite table (SQLiteStore).
package memory
