// Package repository persists whole JSON collections and the encounter
// records stored in them.
package repository

import (
	"context"
	"fmt"
)

// Collection names shared with existing data directories.
const (
	CollectionUsers      = "users"
	CollectionCampaigns  = "campaigns"
	CollectionPlayers    = "players"
	CollectionNPCs       = "npcs"
	CollectionEncounters = "encounters"
)

// Collections lists every collection seeded on a fresh store.
var Collections = []string{
	CollectionUsers,
	CollectionCampaigns,
	CollectionPlayers,
	CollectionNPCs,
	CollectionEncounters,
}

// emptyCollection is returned for collections that were never written.
var emptyCollection = []byte("[]")

// CollectionStore loads and saves a whole collection as one JSON document.
// Load returns "[]" for a collection that has never been saved.
//
//go:generate go tool mockgen -destination=./mocks/collection_store_mock.go -package=mocks . CollectionStore
type CollectionStore interface {
	Load(ctx context.Context, name string) ([]byte, error)
	Save(ctx context.Context, name string, data []byte) error
	Close() error
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("collection name is required")
	}
	for _, r := range name {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_' || r == '-') {
			return fmt.Errorf("invalid collection name %q", name)
		}
	}
	return nil
}
