package roster

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/arcanetable/encounter-server/internal/apperr"
	"github.com/arcanetable/encounter-server/internal/repository"
)

// Store reads players and NPCs from the shared collection store.
type Store struct {
	collections repository.CollectionStore
}

// NewStore creates a roster lookup over collections.
func NewStore(collections repository.CollectionStore) *Store {
	return &Store{collections: collections}
}

// Player returns the player whose userId is userID.
func (s *Store) Player(ctx context.Context, userID string) (Player, error) {
	var players []Player
	if err := s.load(ctx, repository.CollectionPlayers, &players); err != nil {
		return Player{}, err
	}
	for _, p := range players {
		if p.UserID == ID(userID) {
			return p, nil
		}
	}
	return Player{}, apperr.NotFound("player %s not found", userID)
}

// NPC returns the NPC with the given id.
func (s *Store) NPC(ctx context.Context, npcID string) (NPC, error) {
	var npcs []NPC
	if err := s.load(ctx, repository.CollectionNPCs, &npcs); err != nil {
		return NPC{}, err
	}
	for _, n := range npcs {
		if n.ID == ID(npcID) {
			return n, nil
		}
	}
	return NPC{}, apperr.NotFound("npc %s not found", npcID)
}

func (s *Store) load(ctx context.Context, name string, out any) error {
	data, err := s.collections.Load(ctx, name)
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, fmt.Sprintf("load %s", name), err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apperr.Wrap(apperr.CodeInternal, fmt.Sprintf("decode %s", name), err)
	}
	return nil
}
