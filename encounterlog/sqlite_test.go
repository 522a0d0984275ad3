package encounterlog

import (
	"path/filepath"
	"testing"

	"github.com/pkmn-tools/shinyhunt-go/gamestate"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "encounters.db"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreLogAndRecent(t *testing.T) {
	store := newTestStore(t)

	store.Log(gamestate.Encounter{Species: 16, TrainerID: 100, SecretID: 200, Personality: 3}, 1)
	store.Log(gamestate.Encounter{Species: 5, Shiny: true, TrainerID: 1, SecretID: 1}, 2)

	records, err := store.Recent(10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	// Newest first.
	if records[0].Ordinal != 2 || !records[0].Shiny || records[0].Species != 5 {
		t.Errorf("Unexpected newest record: %+v", records[0])
	}
	if records[1].Ordinal != 1 || records[1].Shiny {
		t.Errorf("Unexpected oldest record: %+v", records[1])
	}
	if records[1].TrainerID != 100 || records[1].SecretID != 200 || records[1].Personality != 3 {
		t.Errorf("Identity fields not persisted: %+v", records[1])
	}
}

func TestStoreRecentLimit(t *testing.T) {
	store := newTestStore(t)

	for i := 1; i <= 5; i++ {
		store.Log(gamestate.Encounter{Species: i}, i)
	}

	records, err := store.Recent(3)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(records) != 3 {
		t.Errorf("Expected 3 records with limit 3, got %d", len(records))
	}
}

func TestStoreCounts(t *testing.T) {
	store := newTestStore(t)

	if count, err := store.Count(); err != nil || count != 0 {
		t.Errorf("Expected empty store, got count=%d err=%v", count, err)
	}

	store.Log(gamestate.Encounter{Species: 16}, 1)
	store.Log(gamestate.Encounter{Species: 5, Shiny: true}, 2)
	store.Log(gamestate.Encounter{Species: 16}, 3)

	count, err := store.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected count 3, got %d", count)
	}

	shinies, err := store.ShinyCount()
	if err != nil {
		t.Fatalf("ShinyCount failed: %v", err)
	}
	if shinies != 1 {
		t.Errorf("Expected 1 shiny, got %d", shinies)
	}
}

func TestStoreReopenKeepsHistory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "encounters.db")

	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	store.Log(gamestate.Encounter{Species: 16}, 1)
	store.Close()

	reopened, err := NewStore(path)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer reopened.Close()

	count, err := reopened.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected history to survive reopen, got count %d", count)
	}
}
