package mongostore

import (
	"context"
	"errors"
	"testing"

	"github.com/MrEthical07/shopAuth/store"
	"go.mongodb.org/mongo-driver/bson"
)

func TestUpdateDocumentTranslatesOperators(t *testing.T) {
	doc := updateDocument(store.Update{
		Set:      map[string]any{"full_name": "Ada"},
		Inc:      map[string]int64{"attempts": 1},
		AddToSet: map[string]any{"products": int64(3)},
		Pull:     map[string]any{"products": int64(4)},
	})

	set, ok := doc["$set"].(bson.M)
	if !ok || set["full_name"] != "Ada" {
		t.Fatalf("unexpected $set: %#v", doc["$set"])
	}
	inc, ok := doc["$inc"].(bson.M)
	if !ok || inc["attempts"] != int64(1) {
		t.Fatalf("unexpected $inc: %#v", doc["$inc"])
	}
	add, ok := doc["$addToSet"].(bson.M)
	if !ok || add["products"] != int64(3) {
		t.Fatalf("unexpected $addToSet: %#v", doc["$addToSet"])
	}
	pull, ok := doc["$pull"].(bson.M)
	if !ok || pull["products"] != int64(4) {
		t.Fatalf("unexpected $pull: %#v", doc["$pull"])
	}
}

func TestUpdateDocumentOmitsUnusedOperators(t *testing.T) {
	doc := updateDocument(store.Update{Inc: map[string]int64{"attempts": 1}})
	if len(doc) != 1 {
		t.Fatalf("expected only $inc, got %#v", doc)
	}
}

func TestInt64FieldAcceptsNumericTypes(t *testing.T) {
	cases := []any{int32(4), int64(4), float64(4)}
	for _, v := range cases {
		got, err := int64Field(bson.M{"attempts": v}, "attempts")
		if err != nil || got != 4 {
			t.Fatalf("int64Field(%T) = %d, %v", v, got, err)
		}
	}

	if _, err := int64Field(bson.M{"attempts": "4"}, "attempts"); !errors.Is(err, store.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable for string field, got %v", err)
	}
}

func TestOperationsRejectFilterWithoutKey(t *testing.T) {
	s := New(nil)
	coll := store.Collection{Name: "otp_sessions", Key: "session_id"}
	ctx := context.Background()

	var out bson.M
	if err := s.FindOne(ctx, coll, store.Filter{"otp": "1234"}, &out); !errors.Is(err, store.ErrInvalidFilter) {
		t.Fatalf("FindOne: expected ErrInvalidFilter, got %v", err)
	}
	if _, err := s.IncrementOne(ctx, coll, store.Filter{}, "attempts", 1); !errors.Is(err, store.ErrInvalidFilter) {
		t.Fatalf("IncrementOne: expected ErrInvalidFilter, got %v", err)
	}
	if _, err := s.UpdateOne(ctx, coll, store.Filter{}, store.Update{}, false); !errors.Is(err, store.ErrInvalidFilter) {
		t.Fatalf("UpdateOne: expected ErrInvalidFilter, got %v", err)
	}
	if err := s.DeleteOne(ctx, coll, store.Filter{}); !errors.Is(err, store.ErrInvalidFilter) {
		t.Fatalf("DeleteOne: expected ErrInvalidFilter, got %v", err)
	}
}
