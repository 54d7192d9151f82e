package shopAuth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestSendThenVerifySucceeds(t *testing.T) {
	te := newTestEngine(t, testConfig())
	ctx := context.Background()

	sid, err := te.SendOTP(ctx, "+15550001")
	if err != nil {
		t.Fatalf("SendOTP: %v", err)
	}
	if len(sid) != 32 {
		t.Fatalf("expected 32 hex session id, got %q", sid)
	}

	rec := te.storedSession(t, sid)
	if rec.Attempts != 0 || rec.PhoneNumber != "+15550001" || len(rec.OTP) != 4 {
		t.Fatalf("unexpected stored session: %+v", rec)
	}

	msg := te.notifier.last(t)
	if msg.to != "+15550001" {
		t.Fatalf("message sent to %q", msg.to)
	}
	if !strings.Contains(msg.body, rec.OTP) || !strings.Contains(msg.body, "5 minutes") {
		t.Fatalf("unexpected body %q", msg.body)
	}

	res, err := te.VerifyOTP(ctx, sid, rec.OTP)
	if err != nil {
		t.Fatalf("VerifyOTP: %v", err)
	}
	if res != (Result{Success: true, Code: http.StatusOK}) {
		t.Fatalf("expected (true,200), got %+v", res)
	}
}

func TestVerifyUnknownSession(t *testing.T) {
	te := newTestEngine(t, testConfig())

	for _, code := range []string{"0000", "1234", ""} {
		res, err := te.VerifyOTP(context.Background(), "deadbeefdeadbeefdeadbeefdeadbeef", code)
		if !errors.Is(err, ErrOTPSessionNotFound) {
			t.Fatalf("expected ErrOTPSessionNotFound, got %v", err)
		}
		if res != (Result{Success: false, Code: http.StatusNotFound}) {
			t.Fatalf("expected (false,404), got %+v", res)
		}
	}
}

func TestLockoutSequenceAndPrecedence(t *testing.T) {
	cfg := testConfig()
	cfg.OTP.MaxAttempts = 3
	te := newTestEngine(t, cfg)
	ctx := context.Background()

	sid, err := te.SendOTP(ctx, "+15550001")
	if err != nil {
		t.Fatalf("SendOTP: %v", err)
	}
	rec := te.storedSession(t, sid)
	bad := wrongCode(rec.OTP)

	want := []int{http.StatusUnauthorized, http.StatusUnauthorized, http.StatusTooManyRequests}
	for i, code := range want {
		res, _ := te.VerifyOTP(ctx, sid, bad)
		if res.Success || res.Code != code {
			t.Fatalf("attempt %d: expected (false,%d), got %+v", i+1, code, res)
		}
	}

	res, err := te.VerifyOTP(ctx, sid, rec.OTP)
	if !errors.Is(err, ErrOTPLocked) || res.Code != http.StatusTooManyRequests || res.Success {
		t.Fatalf("correct code after lockout: expected (false,429), got %+v err=%v", res, err)
	}

	// Locked verifications do not keep counting.
	if got := te.storedSession(t, sid).Attempts; got != 3 {
		t.Fatalf("expected attempts to stay at 3, got %d", got)
	}
}

func TestWrongGuessErrors(t *testing.T) {
	te := newTestEngine(t, testConfig())
	ctx := context.Background()

	sid, _ := te.SendOTP(ctx, "+15550001")
	rec := te.storedSession(t, sid)

	_, err := te.VerifyOTP(ctx, sid, wrongCode(rec.OTP))
	if !errors.Is(err, ErrOTPInvalid) {
		t.Fatalf("expected ErrOTPInvalid, got %v", err)
	}
	if got := te.storedSession(t, sid).Attempts; got != 1 {
		t.Fatalf("expected 1 attempt, got %d", got)
	}

	// Correct code still works under the budget.
	res, err := te.VerifyOTP(ctx, sid, rec.OTP)
	if err != nil || !res.OK() {
		t.Fatalf("expected success, got %+v err=%v", res, err)
	}
}

func TestExpiredCorrectCodeIsUnauthorized(t *testing.T) {
	cfg := testConfig()
	cfg.OTP.TTL = time.Second
	te := newTestEngine(t, cfg)
	ctx := context.Background()

	sid, _ := te.SendOTP(ctx, "+15550001")
	rec := te.storedSession(t, sid)

	te.clock.Advance(2 * time.Second)

	res, err := te.VerifyOTP(ctx, sid, rec.OTP)
	if !errors.Is(err, ErrOTPExpired) {
		t.Fatalf("expected ErrOTPExpired, got %v", err)
	}
	if res != (Result{Success: false, Code: http.StatusUnauthorized}) {
		t.Fatalf("expected (false,401), got %+v", res)
	}
	if got := te.storedSession(t, sid).Attempts; got != 0 {
		t.Fatalf("expired correct code must not consume attempts, got %d", got)
	}
}

func TestTTLBoundaryIsExclusive(t *testing.T) {
	cfg := testConfig()
	cfg.OTP.TTL = time.Minute
	te := newTestEngine(t, cfg)
	ctx := context.Background()

	sid, _ := te.SendOTP(ctx, "+15550001")
	rec := te.storedSession(t, sid)

	te.clock.Advance(time.Minute - time.Millisecond)
	if res, _ := te.VerifyOTP(ctx, sid, rec.OTP); !res.OK() {
		t.Fatalf("expected success just before expiry, got %+v", res)
	}

	te.clock.Advance(time.Millisecond)
	if res, _ := te.VerifyOTP(ctx, sid, rec.OTP); res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 at created_at+ttl, got %+v", res)
	}
}

func TestDeliveryFailureKeepsSession(t *testing.T) {
	te := newTestEngine(t, testConfig(), func(b *Builder) { b.WithMetricsEnabled(true) })
	te.notifier.err = errors.New("twilio: 503")
	ctx := context.Background()

	sid, err := te.SendOTP(ctx, "+15550001")
	if !errors.Is(err, ErrDeliveryFailed) {
		t.Fatalf("expected ErrDeliveryFailed, got %v", err)
	}
	if sid == "" {
		t.Fatal("expected session id alongside delivery failure")
	}

	rec := te.storedSession(t, sid)
	res, err := te.VerifyOTP(ctx, sid, rec.OTP)
	if err != nil || !res.OK() {
		t.Fatalf("persisted session should verify, got %+v err=%v", res, err)
	}

	if got := te.MetricsSnapshot().Counters[MetricOTPDeliveryFailed]; got != 1 {
		t.Fatalf("expected delivery failure metric 1, got %d", got)
	}
}

func TestStoreFailureMapsTo500(t *testing.T) {
	te := newTestEngine(t, testConfig())
	ctx := context.Background()

	sid, _ := te.SendOTP(ctx, "+15550001")
	rec := te.storedSession(t, sid)

	faulty := &faultyStore{RecordStore: te.records, failIncrement: true}
	te.Engine.records = faulty

	res, err := te.VerifyOTP(ctx, sid, wrongCode(rec.OTP))
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Fatalf("expected cause in error, got %v", err)
	}
	if res.Code != http.StatusInternalServerError || res.Success {
		t.Fatalf("expected (false,500), got %+v", res)
	}

	faulty.failIncrement = false
	faulty.failInsert = true
	if _, err := te.SendOTP(ctx, "+15550002"); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected insert failure to surface, got %v", err)
	}
	if n := len(te.notifier.sent); n != 1 {
		t.Fatalf("no message should be sent when persistence fails, got %d", n)
	}
}

func TestSendRequiresPhone(t *testing.T) {
	te := newTestEngine(t, testConfig())

	if _, err := te.OTPForPhone("   "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	s, err := te.OTPForSession("abc")
	if err != nil {
		t.Fatalf("OTPForSession: %v", err)
	}
	if _, err := s.Send(context.Background()); !errors.Is(err, ErrOTPSessionUnbound) {
		t.Fatalf("expected ErrOTPSessionUnbound, got %v", err)
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	cfg := testConfig()
	cfg.OTP.MaxAttempts = 1
	te := newTestEngine(t, cfg)
	ctx := context.Background()

	a, _ := te.SendOTP(ctx, "+15550001")
	b, _ := te.SendOTP(ctx, "+15550001")
	if a == b {
		t.Fatal("expected distinct session ids")
	}

	recA := te.storedSession(t, a)
	recB := te.storedSession(t, b)

	if res, _ := te.VerifyOTP(ctx, a, wrongCode(recA.OTP)); res.Code != http.StatusTooManyRequests {
		t.Fatalf("expected single-attempt budget to lock, got %+v", res)
	}
	if res, _ := te.VerifyOTP(ctx, b, recB.OTP); !res.OK() {
		t.Fatalf("other session should be unaffected, got %+v", res)
	}
}

func TestConcurrentWrongGuessesNeverExceedBudget(t *testing.T) {
	cfg := testConfig()
	cfg.OTP.MaxAttempts = 5
	te := newTestEngine(t, cfg)
	ctx := context.Background()

	sid, _ := te.SendOTP(ctx, "+15550001")
	rec := te.storedSession(t, sid)
	bad := wrongCode(rec.OTP)

	const workers = 20
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		statuses = map[int]int{}
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, _ := te.VerifyOTP(ctx, sid, bad)
			mu.Lock()
			statuses[res.Code]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	if statuses[http.StatusUnauthorized] > cfg.OTP.MaxAttempts-1 {
		t.Fatalf("at most %d guesses may report 401, got %d", cfg.OTP.MaxAttempts-1, statuses[http.StatusUnauthorized])
	}
	if statuses[http.StatusUnauthorized]+statuses[http.StatusTooManyRequests] != workers {
		t.Fatalf("unexpected statuses: %v", statuses)
	}
	if res, _ := te.VerifyOTP(ctx, sid, rec.OTP); res.Code != http.StatusTooManyRequests {
		t.Fatalf("expected lockout after concurrent guesses, got %+v", res)
	}
}

func TestSendLimitThrottlesPerPhone(t *testing.T) {
	cfg := testConfig()
	cfg.OTP.SendLimit.Enabled = true
	cfg.OTP.SendLimit.MaxSends = 2
	cfg.OTP.SendLimit.Window = time.Minute
	te := newTestEngine(t, cfg)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := te.SendOTP(ctx, "+15550001"); err != nil {
			t.Fatalf("send %d: %v", i+1, err)
		}
	}
	_, err := te.SendOTP(ctx, "+15550001")
	if !errors.Is(err, ErrOTPSendRateLimited) || StatusOf(err) != http.StatusTooManyRequests {
		t.Fatalf("expected throttled send, got %v", err)
	}
	if _, err := te.SendOTP(ctx, "+15550002"); err != nil {
		t.Fatalf("other phone should not be throttled: %v", err)
	}

	te.mr.FastForward(time.Minute + time.Second)
	if _, err := te.SendOTP(ctx, "+15550001"); err != nil {
		t.Fatalf("send after window: %v", err)
	}
}

func TestVerifiedPhoneSendLimitCleared(t *testing.T) {
	cfg := testConfig()
	cfg.OTP.SendLimit.Enabled = true
	cfg.OTP.SendLimit.MaxSends = 1
	cfg.OTP.SendLimit.Window = time.Hour
	te := newTestEngine(t, cfg)
	ctx := context.Background()

	sid, err := te.SendOTP(ctx, "+15550001")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := te.SendOTP(ctx, "+15550001"); !errors.Is(err, ErrOTPSendRateLimited) {
		t.Fatalf("expected throttled second send, got %v", err)
	}

	rec := te.storedSession(t, sid)
	if res, err := te.VerifyOTP(ctx, sid, rec.OTP); err != nil || !res.Success {
		t.Fatalf("verify: res=%+v err=%v", res, err)
	}

	if _, err := te.SendOTP(ctx, "+15550001"); err != nil {
		t.Fatalf("send after successful verify should pass: %v", err)
	}
}

func TestVerifyOTPWithGrant(t *testing.T) {
	cfg := testConfig()
	cfg.Grant.Enabled = true
	cfg.Grant.PrivateKey = []byte("grant-secret-0123456789")
	te := newTestEngine(t, cfg)
	ctx := context.Background()

	// Grants are validated against the wall clock.
	te.clock.now = time.Now()

	sid, _ := te.SendOTP(ctx, "+15550001")
	rec := te.storedSession(t, sid)

	res, grant, err := te.VerifyOTPWithGrant(ctx, sid, "nope")
	if err == nil || grant != "" || res.Success {
		t.Fatalf("failed verification must not mint a grant: %+v %q %v", res, grant, err)
	}

	res, grant, err = te.VerifyOTPWithGrant(ctx, sid, rec.OTP)
	if err != nil || !res.OK() || grant == "" {
		t.Fatalf("expected grant, got %+v %q %v", res, grant, err)
	}
	phone, err := te.ParsePhoneGrant(grant)
	if err != nil || phone != "+15550001" {
		t.Fatalf("ParsePhoneGrant: %q %v", phone, err)
	}
}

func TestParsePhoneGrantDisabled(t *testing.T) {
	te := newTestEngine(t, testConfig())
	if _, err := te.ParsePhoneGrant("x"); !errors.Is(err, ErrGrantDisabled) {
		t.Fatalf("expected ErrGrantDisabled, got %v", err)
	}
}
