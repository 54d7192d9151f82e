package mongostore

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/shopAuth/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// RetentionField is the document field the TTL index is built on. Documents
// stored in a collection with Retention > 0 must carry it as a timestamp.
const RetentionField = "created_at"

// Store is a [store.RecordStore] backed by a MongoDB database.
type Store struct {
	db *mongo.Database
}

// New wraps an existing database handle.
func New(db *mongo.Database) *Store {
	return &Store{db: db}
}

// Connect dials uri and returns a store bound to the named database.
func Connect(ctx context.Context, uri, database string) (*Store, *mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return New(client.Database(database)), client, nil
}

// EnsureIndexes creates the unique key index for every collection and a TTL
// index on RetentionField where Retention is set.
func (s *Store) EnsureIndexes(ctx context.Context, colls ...store.Collection) error {
	for _, coll := range colls {
		models := []mongo.IndexModel{
			{
				Keys:    bson.D{{Key: coll.Key, Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		}
		if coll.Retention > 0 {
			models = append(models, mongo.IndexModel{
				Keys:    bson.D{{Key: RetentionField, Value: 1}},
				Options: options.Index().SetExpireAfterSeconds(int32(coll.Retention.Seconds())),
			})
		}
		if _, err := s.db.Collection(coll.Name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("%w: ensure indexes for %s: %v", store.ErrUnavailable, coll.Name, err)
		}
	}
	return nil
}

// Ping checks that the server is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.Client().Ping(ctx, nil); err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return nil
}

// InsertOne inserts doc; a unique-key collision maps to [store.ErrDuplicate].
func (s *Store) InsertOne(ctx context.Context, coll store.Collection, doc any) error {
	if _, err := s.db.Collection(coll.Name).InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return store.ErrDuplicate
		}
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return nil
}

// FindOne decodes the first matching document into out.
func (s *Store) FindOne(ctx context.Context, coll store.Collection, filter store.Filter, out any) error {
	if _, err := store.KeyValue(coll, filter); err != nil {
		return err
	}

	err := s.db.Collection(coll.Name).FindOne(ctx, toBSON(filter)).Decode(out)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return store.ErrNotFound
		}
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return nil
}

// UpdateOne translates update into Mongo operators and applies it.
func (s *Store) UpdateOne(
	ctx context.Context,
	coll store.Collection,
	filter store.Filter,
	update store.Update,
	upsert bool,
) (store.UpdateResult, error) {
	if _, err := store.KeyValue(coll, filter); err != nil {
		return store.UpdateResult{}, err
	}

	c := s.db.Collection(coll.Name)
	if update.Empty() {
		n, err := c.CountDocuments(ctx, toBSON(filter), options.Count().SetLimit(1))
		if err != nil {
			return store.UpdateResult{}, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
		}
		if n == 0 {
			return store.UpdateResult{}, store.ErrNotFound
		}
		return store.UpdateResult{Matched: n}, nil
	}

	res, err := c.UpdateOne(ctx, toBSON(filter), updateDocument(update), options.Update().SetUpsert(upsert))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return store.UpdateResult{}, store.ErrDuplicate
		}
		return store.UpdateResult{}, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return store.UpdateResult{}, store.ErrNotFound
	}

	return store.UpdateResult{
		Matched:  res.MatchedCount,
		Modified: res.ModifiedCount,
		Upserted: res.UpsertedCount > 0,
	}, nil
}

// IncrementOne runs $inc through FindOneAndUpdate and returns the value the
// document holds after the update.
func (s *Store) IncrementOne(ctx context.Context, coll store.Collection, filter store.Filter, field string, by int64) (int64, error) {
	if _, err := store.KeyValue(coll, filter); err != nil {
		return 0, err
	}

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{field: 1})

	var doc bson.M
	err := s.db.Collection(coll.Name).
		FindOneAndUpdate(ctx, toBSON(filter), bson.M{"$inc": bson.M{field: by}}, opts).
		Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, store.ErrNotFound
		}
		return 0, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}

	return int64Field(doc, field)
}

// DeleteOne removes the first matching document.
func (s *Store) DeleteOne(ctx context.Context, coll store.Collection, filter store.Filter) error {
	if _, err := store.KeyValue(coll, filter); err != nil {
		return err
	}

	res, err := s.db.Collection(coll.Name).DeleteOne(ctx, toBSON(filter))
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func toBSON(filter store.Filter) bson.M {
	out := make(bson.M, len(filter))
	for k, v := range filter {
		out[k] = v
	}
	return out
}

func updateDocument(u store.Update) bson.M {
	doc := bson.M{}
	if len(u.Set) > 0 {
		set := bson.M{}
		for k, v := range u.Set {
			set[k] = v
		}
		doc["$set"] = set
	}
	if len(u.Inc) > 0 {
		inc := bson.M{}
		for k, v := range u.Inc {
			inc[k] = v
		}
		doc["$inc"] = inc
	}
	if len(u.AddToSet) > 0 {
		add := bson.M{}
		for k, v := range u.AddToSet {
			add[k] = v
		}
		doc["$addToSet"] = add
	}
	if len(u.Pull) > 0 {
		pull := bson.M{}
		for k, v := range u.Pull {
			pull[k] = v
		}
		doc["$pull"] = pull
	}
	return doc
}

func int64Field(doc bson.M, field string) (int64, error) {
	switch v := doc[field].(type) {
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("%w: field %s has type %T", store.ErrUnavailable, field, v)
	}
}
