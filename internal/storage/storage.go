// Package storage defines the Storage interface, the contract any
// persistence backend must satisfy to hold the registry.
//
// WHY AN INTERFACE?
// ─────────────────
// The registry should not know or care where its data lives. It hands a
// whole types.Snapshot to Save and receives one back from Load:
//
//   - Switching backends = implement the interface, change the driver in
//     the config. Zero registry changes.
//
//   - Writing tests = the registry tests use the real JSON backend under
//     t.TempDir(); nothing else needs a disk.
//
// Persistence is whole-graph: there are no per-entity methods. Every Save
// replaces everything previously stored; every Load replaces everything in
// memory.
package storage

import (
	"context"

	"github.com/aanand-mishra/scms/internal/types"
)

// Storage is the persistence contract.
type Storage interface {
	// Save replaces the stored data with snap.
	Save(ctx context.Context, snap types.Snapshot) error

	// Load returns the stored snapshot. found is false (and err nil) when
	// nothing has been saved yet. Data that cannot be decoded is reported
	// as an error wrapping types.ErrMalformedData.
	Load(ctx context.Context) (snap types.Snapshot, found bool, err error)

	// Close releases any resources held by the backend.
	Close() error
}

// Driver names accepted in the configuration.
const (
	DriverJSON   = "json"
	DriverSQLite = "sqlite"
)
