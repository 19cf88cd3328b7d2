package sqlstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pliu/anonchat/internal/models"
	"github.com/pliu/anonchat/internal/store"
	"github.com/pliu/anonchat/internal/store/storetest"
)

var testStore *SQLStore

func SetupTestDB(t *testing.T) {
	var err error
	testStore, err = New("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
}

func TeardownTestDB() {
	testStore.db.Close()
}

func TestStoreBehaviour(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s, err := New("sqlite3", ":memory:")
		if err != nil {
			t.Fatalf("Failed to open test database: %v", err)
		}
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestRebind(t *testing.T) {
	sqlite := &conn{driverName: "sqlite3"}
	pg := &conn{driverName: "pgx"}
	query := "SELECT * FROM t WHERE a = ? AND b = ?"

	if got := sqlite.rebind(query); got != query {
		t.Errorf("Expected sqlite query unchanged, got %q", got)
	}
	if got := pg.rebind(query); got != "SELECT * FROM t WHERE a = $1 AND b = $2" {
		t.Errorf("Unexpected postgres query %q", got)
	}
}

func TestNewUnknownDriver(t *testing.T) {
	if _, err := New("nosuchdriver", ""); err == nil {
		t.Error("Expected an error for an unregistered driver")
	}
}

func TestCreateTablesIsIdempotent(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	if err := testStore.createTables(); err != nil {
		t.Errorf("Second createTables failed: %v", err)
	}
}

func TestAtomicSerialisesWaitingInserts(t *testing.T) {
	SetupTestDB(t)
	defer TeardownTestDB()

	ctx := context.Background()
	now := time.Now().UTC()
	p := &models.Participant{ExternalID: "racer", IsActive: true, CreatedAt: now, LastSeen: now}
	if err := testStore.CreateParticipant(ctx, p); err != nil {
		t.Fatal(err)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		inserted int
		dupes    int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := testStore.Atomic(ctx, func(tx store.Tx) error {
				if _, err := tx.GetWaitingEntry(ctx, p.ID); err == nil {
					return store.ErrAlreadyWaiting
				} else if !errors.Is(err, store.ErrNotFound) {
					return err
				}
				return tx.CreateWaitingEntry(ctx, &models.WaitingEntry{ParticipantID: p.ID, EnqueuedAt: now})
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				inserted++
			case errors.Is(err, store.ErrAlreadyWaiting):
				dupes++
			default:
				t.Errorf("Unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if inserted != 1 || dupes != 7 {
		t.Errorf("Expected 1 insert and 7 duplicates, got %d and %d", inserted, dupes)
	}
}
