package shopAuth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/shopAuth/store"
	"github.com/MrEthical07/shopAuth/store/redisstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
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
	return mr, client
}

// testConfig keeps Argon2 cheap so credential tests stay fast.
func testConfig() Config {
	cfg := defaultConfig()
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	return cfg
}

type sentMessage struct {
	to   string
	body string
}

type captureNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (n *captureNotifier) Send(_ context.Context, to, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMessage{to: to, body: body})
	return n.err
}

func (n *captureNotifier) last(t *testing.T) sentMessage {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		t.Fatal("no message sent")
	}
	return n.sent[len(n.sent)-1]
}

// faultyStore fails selected operations with a backend error.
type faultyStore struct {
	store.RecordStore
	failInsert    bool
	failFind      bool
	failIncrement bool
}

var errBackendDown = errors.New("connection refused")

func (s *faultyStore) InsertOne(ctx context.Context, coll store.Collection, doc any) error {
	if s.failInsert {
		return errBackendDown
	}
	return s.RecordStore.InsertOne(ctx, coll, doc)
}

func (s *faultyStore) FindOne(ctx context.Context, coll store.Collection, filter store.Filter, out any) error {
	if s.failFind {
		return errBackendDown
	}
	return s.RecordStore.FindOne(ctx, coll, filter, out)
}

func (s *faultyStore) IncrementOne(ctx context.Context, coll store.Collection, filter store.Filter, field string, by int64) (int64, error) {
	if s.failIncrement {
		return 0, errBackendDown
	}
	return s.RecordStore.IncrementOne(ctx, coll, filter, field, by)
}

type testEngine struct {
	*Engine
	mr       *miniredis.Miniredis
	rdb      *redis.Client
	records  *redisstore.Store
	notifier *captureNotifier
	clock    *fakeClock
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestEngine(t *testing.T, cfg Config, opts ...func(*Builder)) *testEngine {
	t.Helper()

	mr, rdb := newTestRedis(t)
	records := redisstore.New(rdb, "test")
	notifier := &captureNotifier{}

	b := New().
		WithConfig(cfg).
		WithRecordStore(records).
		WithNotifier(notifier).
		WithRedis(rdb)
	for _, opt := range opts {
		opt(b)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	clock := &fakeClock{now: time.Date(2025, 8, 31, 12, 0, 0, 0, time.UTC)}
	engine.clock = clock.Now

	return &testEngine{
		Engine:   engine,
		mr:       mr,
		rdb:      rdb,
		records:  records,
		notifier: notifier,
		clock:    clock,
	}
}

// advance moves the engine clock and the miniredis clock together, so
// logical expiry and key eviction are observed on the same timeline.
func (te *testEngine) advance(d time.Duration) {
	te.clock.Advance(d)
	te.mr.FastForward(d)
}

func (te *testEngine) storedSession(t *testing.T, sessionID string) otpSessionRecord {
	t.Helper()

	var rec otpSessionRecord
	err := te.records.FindOne(context.Background(), te.collections.OTPSessions, store.Filter{fieldSessionID: sessionID}, &rec)
	if err != nil {
		t.Fatalf("load session %s: %v", sessionID, err)
	}
	return rec
}

// wrongCode returns a code of the same length that differs from code.
func wrongCode(code string) string {
	if strings.HasPrefix(code, "0") {
		return "1" + code[1:]
	}
	return "0" + code[1:]
}
