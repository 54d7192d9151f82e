package redisstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/MrEthical07/shopAuth/store"
	"github.com/redis/go-redis/v9"
)

const (
	defaultPrefix   = "sa"
	maxWatchRetries = 4
)

// insertLua creates a document hash only when the key is free.
// KEYS[1] = document key
// ARGV[1] = retention in milliseconds (0 keeps the document forever)
// ARGV[2..] = field, json value pairs
var insertLua = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return {err='duplicate'}
end
for i = 2, #ARGV, 2 do
  redis.call('HSET', KEYS[1], ARGV[i], ARGV[i+1])
end
local retention = tonumber(ARGV[1])
if retention > 0 then
  redis.call('PEXPIRE', KEYS[1], retention)
end
return 1
`)

// incrementLua performs a filtered HINCRBY and returns the new value.
// KEYS[1] = document key
// ARGV[1] = field
// ARGV[2] = delta
// ARGV[3..] = filter field, json value pairs
var incrementLua = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return {err='not_found'}
end
for i = 3, #ARGV, 2 do
  if redis.call('HGET', KEYS[1], ARGV[i]) ~= ARGV[i+1] then
    return {err='not_found'}
  end
end
return redis.call('HINCRBY', KEYS[1], ARGV[1], ARGV[2])
`)

// deleteLua deletes a document when every filter pair matches.
// KEYS[1] = document key
// ARGV[1..] = filter field, json value pairs
var deleteLua = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return {err='not_found'}
end
for i = 1, #ARGV, 2 do
  if redis.call('HGET', KEYS[1], ARGV[i]) ~= ARGV[i+1] then
    return {err='not_found'}
  end
end
redis.call('DEL', KEYS[1])
return 1
`)

// Store is a [store.RecordStore] that keeps each document in a Redis hash.
// Every hash field holds the JSON encoding of the matching document field.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// New creates a Redis-backed record store. An empty prefix defaults to "sa".
func New(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{
		redis:  client,
		prefix: prefix,
	}
}

// Ping checks that Redis is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) key(coll store.Collection, id string) string {
	return s.prefix + ":" + coll.Name + ":" + id
}

// InsertOne stores doc under its collection key and fails with
// [store.ErrDuplicate] when the key is already taken.
func (s *Store) InsertOne(ctx context.Context, coll store.Collection, doc any) error {
	fields, err := encodeDocument(doc)
	if err != nil {
		return err
	}

	rawKey, ok := fields[coll.Key]
	if !ok {
		return store.ErrInvalidFilter
	}
	var id string
	if err := json.Unmarshal([]byte(rawKey), &id); err != nil || id == "" {
		return store.ErrInvalidFilter
	}

	args := make([]any, 0, 1+2*len(fields))
	args = append(args, coll.Retention.Milliseconds())
	for _, name := range sortedFields(fields) {
		args = append(args, name, fields[name])
	}

	if err := insertLua.Run(ctx, s.redis, []string{s.key(coll, id)}, args...).Err(); err != nil {
		if err.Error() == "duplicate" {
			return store.ErrDuplicate
		}
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}

	return nil
}

// FindOne decodes the matching document into out.
func (s *Store) FindOne(ctx context.Context, coll store.Collection, filter store.Filter, out any) error {
	id, err := store.KeyValue(coll, filter)
	if err != nil {
		return err
	}

	fields, err := s.redis.HGetAll(ctx, s.key(coll, id)).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	if len(fields) == 0 {
		return store.ErrNotFound
	}

	matched, err := matchesFilter(fields, filter)
	if err != nil {
		return err
	}
	if !matched {
		return store.ErrNotFound
	}

	return decodeDocument(fields, out)
}

// IncrementOne atomically adds by to an integer field and returns the new value.
func (s *Store) IncrementOne(ctx context.Context, coll store.Collection, filter store.Filter, field string, by int64) (int64, error) {
	id, err := store.KeyValue(coll, filter)
	if err != nil {
		return 0, err
	}

	pairs, err := filterPairs(filter)
	if err != nil {
		return 0, err
	}
	args := append([]any{field, by}, pairs...)

	value, err := incrementLua.Run(ctx, s.redis, []string{s.key(coll, id)}, args...).Int64()
	if err != nil {
		if err.Error() == "not_found" {
			return 0, store.ErrNotFound
		}
		return 0, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}

	return value, nil
}

// DeleteOne removes the matching document.
func (s *Store) DeleteOne(ctx context.Context, coll store.Collection, filter store.Filter) error {
	id, err := store.KeyValue(coll, filter)
	if err != nil {
		return err
	}

	pairs, err := filterPairs(filter)
	if err != nil {
		return err
	}

	if err := deleteLua.Run(ctx, s.redis, []string{s.key(coll, id)}, pairs...).Err(); err != nil {
		if err.Error() == "not_found" {
			return store.ErrNotFound
		}
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}

	return nil
}

// UpdateOne applies update to the matching document inside a WATCH/MULTI
// transaction, retrying on contention. With upsert, a missing document is
// created from the filter fields before the update is applied.
func (s *Store) UpdateOne(
	ctx context.Context,
	coll store.Collection,
	filter store.Filter,
	update store.Update,
	upsert bool,
) (store.UpdateResult, error) {
	id, err := store.KeyValue(coll, filter)
	if err != nil {
		return store.UpdateResult{}, err
	}
	key := s.key(coll, id)

	for i := 0; i < maxWatchRetries; i++ {
		var result store.UpdateResult

		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			fields, err := tx.HGetAll(ctx, key).Result()
			if err != nil {
				return err
			}

			if len(fields) == 0 {
				if !upsert {
					return store.ErrNotFound
				}
				fields, err = seedFromFilter(filter)
				if err != nil {
					return err
				}
				result.Upserted = true
			} else {
				matched, err := matchesFilter(fields, filter)
				if err != nil {
					return err
				}
				if !matched {
					if upsert {
						return store.ErrDuplicate
					}
					return store.ErrNotFound
				}
				result.Matched = 1
			}

			changed, err := applyUpdate(fields, update)
			if err != nil {
				return err
			}
			if result.Upserted {
				for name, value := range fields {
					if _, ok := changed[name]; !ok {
						changed[name] = value
					}
				}
			}
			if len(changed) == 0 {
				return nil
			}
			if !result.Upserted {
				result.Modified = 1
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				values := make([]any, 0, 2*len(changed))
				for _, name := range sortedFields(changed) {
					values = append(values, name, changed[name])
				}
				pipe.HSet(ctx, key, values...)
				if result.Upserted && coll.Retention > 0 {
					pipe.PExpire(ctx, key, coll.Retention)
				}
				return nil
			})
			return err
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			switch {
			case errors.Is(err, store.ErrNotFound),
				errors.Is(err, store.ErrDuplicate),
				errors.Is(err, store.ErrUnavailable):
				return store.UpdateResult{}, err
			default:
				return store.UpdateResult{}, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
			}
		}

		return result, nil
	}

	return store.UpdateResult{}, fmt.Errorf("%w: update contention on %s", store.ErrUnavailable, coll.Name)
}

func encodeDocument(doc any) (map[string]string, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: encode document: %v", store.ErrUnavailable, err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: document must encode to an object: %v", store.ErrUnavailable, err)
	}

	fields := make(map[string]string, len(raw))
	for name, value := range raw {
		fields[name] = string(value)
	}
	return fields, nil
}

func decodeDocument(fields map[string]string, out any) error {
	raw := make(map[string]json.RawMessage, len(fields))
	for name, value := range fields {
		if !json.Valid([]byte(value)) {
			return fmt.Errorf("%w: field %s holds invalid json", store.ErrUnavailable, name)
		}
		raw[name] = json.RawMessage(value)
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decode document: %v", store.ErrUnavailable, err)
	}
	return nil
}

func encodeValue(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("%w: encode value: %v", store.ErrUnavailable, err)
	}
	return string(data), nil
}

func filterPairs(filter store.Filter) ([]any, error) {
	names := make([]string, 0, len(filter))
	for name := range filter {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]any, 0, 2*len(filter))
	for _, name := range names {
		encoded, err := encodeValue(filter[name])
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, name, encoded)
	}
	return pairs, nil
}

func matchesFilter(fields map[string]string, filter store.Filter) (bool, error) {
	for name, want := range filter {
		encoded, err := encodeValue(want)
		if err != nil {
			return false, err
		}
		if fields[name] != encoded {
			return false, nil
		}
	}
	return true, nil
}

func seedFromFilter(filter store.Filter) (map[string]string, error) {
	fields := make(map[string]string, len(filter))
	for name, value := range filter {
		encoded, err := encodeValue(value)
		if err != nil {
			return nil, err
		}
		fields[name] = encoded
	}
	return fields, nil
}

// applyUpdate mutates fields in place and returns the fields whose stored
// encoding changed.
func applyUpdate(fields map[string]string, update store.Update) (map[string]string, error) {
	changed := make(map[string]string)

	for name, value := range update.Set {
		encoded, err := encodeValue(value)
		if err != nil {
			return nil, err
		}
		if fields[name] != encoded {
			fields[name] = encoded
			changed[name] = encoded
		}
	}

	for name, delta := range update.Inc {
		var current int64
		if existing, ok := fields[name]; ok {
			parsed, err := strconv.ParseInt(existing, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: field %s is not an integer", store.ErrUnavailable, name)
			}
			current = parsed
		}
		if delta == 0 {
			continue
		}
		encoded := strconv.FormatInt(current+delta, 10)
		fields[name] = encoded
		changed[name] = encoded
	}

	for name, value := range update.AddToSet {
		elements, err := decodeArray(fields[name])
		if err != nil {
			return nil, fmt.Errorf("%w: field %s: %v", store.ErrUnavailable, name, err)
		}
		encoded, err := encodeValue(value)
		if err != nil {
			return nil, err
		}
		if indexOf(elements, encoded) >= 0 {
			continue
		}
		elements = append(elements, json.RawMessage(encoded))
		out, err := json.Marshal(elements)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
		}
		fields[name] = string(out)
		changed[name] = string(out)
	}

	for name, value := range update.Pull {
		existing, ok := fields[name]
		if !ok {
			continue
		}
		elements, err := decodeArray(existing)
		if err != nil {
			return nil, fmt.Errorf("%w: field %s: %v", store.ErrUnavailable, name, err)
		}
		encoded, err := encodeValue(value)
		if err != nil {
			return nil, err
		}
		kept := make([]json.RawMessage, 0, len(elements))
		for _, element := range elements {
			if !bytes.Equal(compact(element), []byte(encoded)) {
				kept = append(kept, element)
			}
		}
		if len(kept) == len(elements) {
			continue
		}
		out, err := json.Marshal(kept)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
		}
		fields[name] = string(out)
		changed[name] = string(out)
	}

	return changed, nil
}

func decodeArray(value string) ([]json.RawMessage, error) {
	elements := make([]json.RawMessage, 0)
	if value == "" || value == "null" {
		return elements, nil
	}
	if err := json.Unmarshal([]byte(value), &elements); err != nil {
		return nil, errors.New("not an array")
	}
	return elements, nil
}

func indexOf(elements []json.RawMessage, encoded string) int {
	for i, element := range elements {
		if bytes.Equal(compact(element), []byte(encoded)) {
			return i
		}
	}
	return -1
}

func compact(raw json.RawMessage) []byte {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return raw
	}
	return buf.Bytes()
}

func sortedFields(fields map[string]string) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
