// Command shopauth-loadtest drives the OTP engine against Redis (or an
// embedded miniredis) and reports latency percentiles per phase.
//
// The guess phase hammers every session with concurrent wrong codes and
// fails the run if any session accepted more wrong guesses than the attempt
// budget allows.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/shopAuth"
	"github.com/MrEthical07/shopAuth/metrics/export/otel"
	"github.com/MrEthical07/shopAuth/store/redisstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/dustin/go-humanize"
	"github.com/redis/go-redis/v9"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type sessionState struct {
	sid      string
	otp      string
	unauthed int64
}

// codeBook records the code sent to each phone.
type codeBook struct {
	mu    sync.Mutex
	codes map[string]string
}

func (b *codeBook) Send(_ context.Context, to, body string) error {
	b.mu.Lock()
	b.codes[to] = body
	b.mu.Unlock()
	return nil
}

func (b *codeBook) code(phone string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.codes[phone]
}

func main() {
	var (
		sessions    = flag.Int("sessions", 2000, "number of OTP sessions to create")
		concurrency = flag.Int("concurrency", 128, "number of concurrent workers")
		guesses     = flag.Int("guesses", 16, "wrong guesses fired at each session")
		maxAttempts = flag.Int("max-attempts", 5, "OTP attempt budget")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "loadtest", "record key prefix")
	)
	flag.Parse()

	if *sessions <= 0 || *concurrency <= 0 || *guesses <= 0 || *maxAttempts <= 0 {
		fmt.Fprintln(os.Stderr, "sessions, concurrency, guesses and max-attempts must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	client, cleanup, err := connect(*redisAddr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer cleanup()

	cfg := shopAuth.DefaultConfig()
	cfg.OTP.MaxAttempts = *maxAttempts
	cfg.OTP.MessageTemplate = "{otp}"

	book := &codeBook{codes: make(map[string]string, *sessions)}
	engine, err := shopAuth.New().
		WithConfig(cfg).
		WithRecordStore(redisstore.New(client, *prefix)).
		WithNotifier(book).
		WithRedis(client).
		WithMetricsEnabled(true).
		WithLatencyHistograms(true).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(ctx) }()
	exporter, err := otel.NewExporter(provider.Meter("shopauth-loadtest"), engine)
	if err != nil {
		fmt.Fprintf(os.Stderr, "otel exporter: %v\n", err)
		os.Exit(1)
	}
	defer exporter.Close()

	states := make([]sessionState, *sessions)
	fmt.Printf("sending %s OTPs...\n", humanize.Comma(int64(*sessions)))
	sendStats := runPhase(*sessions, *concurrency, func(i int) error {
		phone := fmt.Sprintf("+1555%07d", i)
		sid, err := engine.SendOTP(ctx, phone)
		if err != nil {
			return err
		}
		states[i] = sessionState{sid: sid, otp: book.code(phone)}
		return nil
	})

	fmt.Println("hammering sessions with wrong codes...")
	guessStats := runPhase(*sessions**guesses, *concurrency, func(i int) error {
		state := &states[i%len(states)]
		res, err := engine.VerifyOTP(ctx, state.sid, wrong(state.otp))
		if res.Code == 401 {
			atomic.AddInt64(&state.unauthed, 1)
			return nil
		}
		if res.Code == 429 {
			return nil
		}
		return err
	})

	fmt.Println("verifying correct codes on locked sessions...")
	lockedStats := runPhase(*sessions, *concurrency, func(i int) error {
		res, err := engine.VerifyOTP(ctx, states[i].sid, states[i].otp)
		if res.Code != 429 {
			return fmt.Errorf("session %s: expected 429 after lockout, got %d (%v)", states[i].sid, res.Code, err)
		}
		return nil
	})

	fmt.Println("---- results ----")
	printStats("send", sendStats)
	printStats("guess", guessStats)
	printStats("locked", lockedStats)
	printCounters(ctx, reader)

	budget := int64(*maxAttempts - 1)
	violations := 0
	for _, s := range states {
		if s.unauthed > budget {
			violations++
		}
	}
	if violations > 0 || lockedStats.failures > 0 {
		fmt.Fprintf(os.Stderr, "attempt budget violated on %d sessions\n", violations+int(lockedStats.failures))
		os.Exit(1)
	}
}

func connect(addr string) (redis.UniversalClient, func(), error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		fmt.Printf("using redis at %s\n", addr)
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	fmt.Printf("using miniredis at %s\n", mr.Addr())
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

// wrong returns a code of the same length that differs from otp.
func wrong(otp string) string {
	var b strings.Builder
	for _, c := range otp {
		b.WriteByte(byte('0' + (c-'0'+1)%10))
	}
	return b.String()
}

func runPhase(ops, concurrency int, op func(i int) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(i)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total, failures: failures}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%s failures=%d total=%s ops/sec=%s p50=%s p95=%s p99=%s\n",
		name,
		humanize.Comma(int64(s.ops)),
		s.failures,
		s.total.Round(time.Millisecond),
		humanize.Comma(int64(s.opsPerS)),
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

// printCounters prints every non-zero engine counter as seen through OTel.
func printCounters(ctx context.Context, reader *sdkmetric.ManualReader) {
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		fmt.Fprintf(os.Stderr, "collect metrics: %v\n", err)
		return
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok || len(sum.DataPoints) == 0 || sum.DataPoints[0].Value == 0 {
				continue
			}
			fmt.Printf("  %s = %s\n", m.Name, humanize.Comma(sum.DataPoints[0].Value))
		}
	}
}
