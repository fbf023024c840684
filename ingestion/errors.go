package ingestion

import "errors"

var (
	// ErrLedgerStoreRequired is returned when a ledger store is not provided.
	ErrLedgerStoreRequired = errors.New("ledger store required")

	// ErrLoaderRequired is returned when a document loader is not provided.
	ErrLoaderRequired = errors.New("document loader required")

	// ErrPartitionOpenerRequired is returned when a partition opener is not provided.
	ErrPartitionOpenerRequired = errors.New("partition opener required")

	// ErrRegistryRequired is returned when RunAll is called without a registry.
	ErrRegistryRequired = errors.New("data source registry required")
)
