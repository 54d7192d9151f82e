package redisstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/shopAuth/store"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type testDoc struct {
	ID       string  `json:"id"`
	Owner    string  `json:"owner"`
	Attempts int64   `json:"attempts"`
	Products []int64 `json:"products,omitempty"`
}

var testColl = store.Collection{Name: "things", Key: "id"}

func newTestStore(t *testing.T) (*miniredis.Miniredis, *Store) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})

	return mr, New(client, "test")
}

func TestInsertAndFind(t *testing.T) {
	_, s := newTestStore(t)
	ctx := context.Background()

	if err := s.InsertOne(ctx, testColl, testDoc{ID: "a", Owner: "alice"}); err != nil {
		t.Fatalf("InsertOne failed: %v", err)
	}

	var got testDoc
	if err := s.FindOne(ctx, testColl, store.Filter{"id": "a"}, &got); err != nil {
		t.Fatalf("FindOne failed: %v", err)
	}
	if got.Owner != "alice" || got.Attempts != 0 {
		t.Fatalf("unexpected document: %+v", got)
	}
}

func TestInsertDuplicateRejected(t *testing.T) {
	_, s := newTestStore(t)
	ctx := context.Background()

	if err := s.InsertOne(ctx, testColl, testDoc{ID: "a", Owner: "first"}); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	err := s.InsertOne(ctx, testColl, testDoc{ID: "a", Owner: "second"})
	if !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	var got testDoc
	if err := s.FindOne(ctx, testColl, store.Filter{"id": "a"}, &got); err != nil {
		t.Fatalf("FindOne failed: %v", err)
	}
	if got.Owner != "first" {
		t.Fatalf("duplicate insert overwrote document: %+v", got)
	}
}

func TestInsertRequiresKeyField(t *testing.T) {
	_, s := newTestStore(t)

	err := s.InsertOne(context.Background(), testColl, testDoc{Owner: "nobody"})
	if !errors.Is(err, store.ErrInvalidFilter) {
		t.Fatalf("expected ErrInvalidFilter, got %v", err)
	}
}

func TestFindMissingAndFilterMismatch(t *testing.T) {
	_, s := newTestStore(t)
	ctx := context.Background()

	var got testDoc
	if err := s.FindOne(ctx, testColl, store.Filter{"id": "missing"}, &got); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := s.InsertOne(ctx, testColl, testDoc{ID: "a", Owner: "alice"}); err != nil {
		t.Fatalf("InsertOne failed: %v", err)
	}
	if err := s.FindOne(ctx, testColl, store.Filter{"id": "a", "owner": "bob"}, &got); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on filter mismatch, got %v", err)
	}
	if err := s.FindOne(ctx, testColl, store.Filter{"id": "a", "owner": "alice"}, &got); err != nil {
		t.Fatalf("expected match with extra filter field, got %v", err)
	}
}

func TestRetentionEvictsDocument(t *testing.T) {
	mr, s := newTestStore(t)
	ctx := context.Background()
	coll := store.Collection{Name: "short", Key: "id", Retention: time.Minute}

	if err := s.InsertOne(ctx, coll, testDoc{ID: "a"}); err != nil {
		t.Fatalf("InsertOne failed: %v", err)
	}
	mr.FastForward(time.Minute + time.Second)

	var got testDoc
	if err := s.FindOne(ctx, coll, store.Filter{"id": "a"}, &got); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected document evicted after retention, got %v", err)
	}
}

func TestIncrementOne(t *testing.T) {
	_, s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.IncrementOne(ctx, testColl, store.Filter{"id": "a"}, "attempts", 1); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing document, got %v", err)
	}

	if err := s.InsertOne(ctx, testColl, testDoc{ID: "a"}); err != nil {
		t.Fatalf("InsertOne failed: %v", err)
	}

	for want := int64(1); want <= 3; want++ {
		got, err := s.IncrementOne(ctx, testColl, store.Filter{"id": "a"}, "attempts", 1)
		if err != nil {
			t.Fatalf("IncrementOne failed: %v", err)
		}
		if got != want {
			t.Fatalf("expected %d, got %d", want, got)
		}
	}

	var doc testDoc
	if err := s.FindOne(ctx, testColl, store.Filter{"id": "a"}, &doc); err != nil {
		t.Fatalf("FindOne failed: %v", err)
	}
	if doc.Attempts != 3 {
		t.Fatalf("expected stored attempts=3, got %d", doc.Attempts)
	}
}

func TestIncrementOneConcurrentNoLostUpdates(t *testing.T) {
	_, s := newTestStore(t)
	ctx := context.Background()

	if err := s.InsertOne(ctx, testColl, testDoc{ID: "a"}); err != nil {
		t.Fatalf("InsertOne failed: %v", err)
	}

	const workers = 25
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.IncrementOne(ctx, testColl, store.Filter{"id": "a"}, "attempts", 1); err != nil {
				t.Errorf("IncrementOne failed: %v", err)
			}
		}()
	}
	wg.Wait()

	var doc testDoc
	if err := s.FindOne(ctx, testColl, store.Filter{"id": "a"}, &doc); err != nil {
		t.Fatalf("FindOne failed: %v", err)
	}
	if doc.Attempts != workers {
		t.Fatalf("expected attempts=%d, got %d", workers, doc.Attempts)
	}
}

func TestUpdateOneAddToSetPullAndUpsert(t *testing.T) {
	_, s := newTestStore(t)
	ctx := context.Background()
	filter := store.Filter{"id": "cart-1"}

	res, err := s.UpdateOne(ctx, testColl, filter, store.Update{AddToSet: map[string]any{"products": int64(7)}}, true)
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if !res.Upserted {
		t.Fatalf("expected upsert, got %+v", res)
	}

	if _, err := s.UpdateOne(ctx, testColl, filter, store.Update{AddToSet: map[string]any{"products": int64(7)}}, true); err != nil {
		t.Fatalf("second add failed: %v", err)
	}
	res, err = s.UpdateOne(ctx, testColl, filter, store.Update{AddToSet: map[string]any{"products": int64(9)}}, true)
	if err != nil {
		t.Fatalf("third add failed: %v", err)
	}
	if res.Upserted || res.Matched != 1 || res.Modified != 1 {
		t.Fatalf("unexpected result for add: %+v", res)
	}

	var doc testDoc
	if err := s.FindOne(ctx, testColl, filter, &doc); err != nil {
		t.Fatalf("FindOne failed: %v", err)
	}
	if len(doc.Products) != 2 || doc.Products[0] != 7 || doc.Products[1] != 9 {
		t.Fatalf("expected products [7 9], got %v", doc.Products)
	}

	res, err = s.UpdateOne(ctx, testColl, filter, store.Update{Pull: map[string]any{"products": int64(7)}}, false)
	if err != nil {
		t.Fatalf("pull failed: %v", err)
	}
	if res.Modified != 1 {
		t.Fatalf("expected pull to modify, got %+v", res)
	}
	res, err = s.UpdateOne(ctx, testColl, filter, store.Update{Pull: map[string]any{"products": int64(42)}}, false)
	if err != nil {
		t.Fatalf("pull of absent element failed: %v", err)
	}
	if res.Modified != 0 {
		t.Fatalf("expected no modification pulling absent element, got %+v", res)
	}

	if _, err := s.UpdateOne(ctx, testColl, filter, store.Update{Set: map[string]any{"products": []int64{}}}, false); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	doc = testDoc{}
	if err := s.FindOne(ctx, testColl, filter, &doc); err != nil {
		t.Fatalf("FindOne failed: %v", err)
	}
	if len(doc.Products) != 0 {
		t.Fatalf("expected empty products, got %v", doc.Products)
	}
}

func TestUpdateOneMissingWithoutUpsert(t *testing.T) {
	_, s := newTestStore(t)

	_, err := s.UpdateOne(context.Background(), testColl, store.Filter{"id": "nope"}, store.Update{
		Set: map[string]any{"owner": "x"},
	}, false)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteOne(t *testing.T) {
	_, s := newTestStore(t)
	ctx := context.Background()

	if err := s.InsertOne(ctx, testColl, testDoc{ID: "a", Owner: "alice"}); err != nil {
		t.Fatalf("InsertOne failed: %v", err)
	}
	if err := s.DeleteOne(ctx, testColl, store.Filter{"id": "a", "owner": "bob"}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on mismatched delete, got %v", err)
	}
	if err := s.DeleteOne(ctx, testColl, store.Filter{"id": "a"}); err != nil {
		t.Fatalf("DeleteOne failed: %v", err)
	}
	var doc testDoc
	if err := s.FindOne(ctx, testColl, store.Filter{"id": "a"}, &doc); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestUnavailableBackendWrapsError(t *testing.T) {
	mr, s := newTestStore(t)
	mr.Close()

	var doc testDoc
	err := s.FindOne(context.Background(), testColl, store.Filter{"id": "a"}, &doc)
	if !errors.Is(err, store.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
