package contracttest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"

	kvstoreport "github.com/nexusflow/nexusflow-client/internal/ports/out/kvstore"
)

type CleanupFunc = func()

type KVStoreFactory func(t *testing.T) (kvstoreport.Store, CleanupFunc)

// RunKVStore checks the behaviour every storage backend must share.
// Keys are namespaced per run so shared backends (postgres, redis) can be reused.
func RunKVStore(t *testing.T, newStore KVStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}
	ns := uuid.NewString()
	key := func(s string) string { return ns + ":" + s }

	// Absence is ErrNotFound.
	if _, err := store.Get(ctx, key("missing")); !errors.Is(err, kvstoreport.ErrNotFound) {
		t.Fatalf("Get missing: err=%v, want ErrNotFound", err)
	}

	// Set then Get.
	if err := store.Set(ctx, key("user"), []byte(`{"name":"Ana","email":"a@x.com"}`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := store.Get(ctx, key("user"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != `{"name":"Ana","email":"a@x.com"}` {
		t.Fatalf("Get=%q", got)
	}

	// Overwrite semantics.
	if err := store.Set(ctx, key("user"), []byte(`[]`)); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	got, err = store.Get(ctx, key("user"))
	if err != nil || string(got) != `[]` {
		t.Fatalf("expected overwritten value, got %q err=%v", got, err)
	}

	// Keys are independent.
	if err := store.Set(ctx, key("trips"), []byte(`[{"id":"trip-1"}]`)); err != nil {
		t.Fatalf("Set trips: %v", err)
	}
	if got, _ := store.Get(ctx, key("user")); string(got) != `[]` {
		t.Fatalf("writing one key changed another: %q", got)
	}

	// Delete, and delete of an absent key.
	if err := store.Delete(ctx, key("user")); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, key("user")); !errors.Is(err, kvstoreport.ErrNotFound) {
		t.Fatalf("Get after Delete: err=%v, want ErrNotFound", err)
	}
	if err := store.Delete(ctx, key("never-set")); err != nil {
		t.Fatalf("Delete absent: %v", err)
	}

	// Empty values are values, not absence.
	if err := store.Set(ctx, key("empty"), []byte{}); err != nil {
		t.Fatalf("Set empty: %v", err)
	}
	if _, err := store.Get(ctx, key("empty")); err != nil {
		t.Fatalf("Get empty: err=%v, want nil", err)
	}

	// Concurrent writers to distinct keys all land.
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := store.Set(ctx, key(fmt.Sprintf("c-%d", i)), []byte(fmt.Sprintf("%d", i))); err != nil {
				t.Errorf("concurrent Set %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()
	for i := range 8 {
		got, err := store.Get(ctx, key(fmt.Sprintf("c-%d", i)))
		if err != nil || string(got) != fmt.Sprintf("%d", i) {
			t.Fatalf("concurrent key %d: got %q err=%v", i, got, err)
		}
	}
}
