package shopAuth

import (
	"context"
	"fmt"
	"time"

	"github.com/MrEthical07/shopAuth/internal/logging"
	"github.com/MrEthical07/shopAuth/internal/rate"
	"github.com/MrEthical07/shopAuth/jwt"
	"github.com/MrEthical07/shopAuth/password"
	"github.com/MrEthical07/shopAuth/store"
	"go.uber.org/zap"
)

// Engine is the authorization facade: it builds OTP sessions, registers and
// verifies credentials, and issues and validates auth tokens.
//
// An Engine is immutable after [Builder.Build] and safe for concurrent use.
// It holds no state of its own beyond configuration; every durable fact
// lives in the record store.
type Engine struct {
	config       Config
	collections  Collections
	records      store.RecordStore
	notifier     Notifier
	logger       *zap.Logger
	sendLimiter  *rate.Limiter
	grants       *jwt.Manager
	passwordHash *password.Hasher
	audit        *auditQueue
	metrics      *Metrics
	clock        func() time.Time
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

// Collections returns the collection descriptors the engine writes to.
func (e *Engine) Collections() Collections {
	return e.collections
}

// Close flushes and stops the audit dispatcher. Safe to call more than once.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns how many audit events were dropped on a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns the current counter values.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) now() time.Time {
	if e.clock != nil {
		return e.clock()
	}
	return time.Now()
}

// storeContext bounds a single record store call.
func (e *Engine) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.config.Store.OperationTimeout)
}

// storeFailure wraps a backend error as ErrStoreUnavailable.
func (e *Engine) storeFailure(op string, err error) error {
	e.metricInc(MetricStoreFailure)
	e.logger.Error("record store failure", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

func zapEmail(email string) zap.Field {
	return zap.String("email", logging.MaskEmail(email))
}

// OTPForPhone returns an OTP session bound to phone with a freshly minted
// session id. Nothing is persisted until [OTPSession.Send].
func (e *Engine) OTPForPhone(phone string) (*OTPSession, error) {
	if e == nil || e.records == nil {
		return nil, ErrEngineNotReady
	}
	return newOTPSessionForPhone(e, phone)
}

// OTPForSession returns an OTP session bound to an existing session id for
// verification. It carries no phone number and cannot Send.
func (e *Engine) OTPForSession(sessionID string) (*OTPSession, error) {
	if e == nil || e.records == nil {
		return nil, ErrEngineNotReady
	}
	return &OTPSession{engine: e, sessionID: sessionID}, nil
}

// SendOTP is shorthand for OTPForPhone followed by Send.
func (e *Engine) SendOTP(ctx context.Context, phone string) (string, error) {
	s, err := e.OTPForPhone(phone)
	if err != nil {
		return "", err
	}
	return s.Send(ctx)
}

// VerifyOTP is shorthand for OTPForSession followed by Verify.
func (e *Engine) VerifyOTP(ctx context.Context, sessionID, otp string) (Result, error) {
	s, err := e.OTPForSession(sessionID)
	if err != nil {
		return failure(err), err
	}
	return s.Verify(ctx, otp)
}

// VerifyOTPWithGrant verifies otp and, on success, mints a phone grant
// for the verified number. The grant is empty when Grant is disabled.
func (e *Engine) VerifyOTPWithGrant(ctx context.Context, sessionID, otp string) (Result, string, error) {
	s, err := e.OTPForSession(sessionID)
	if err != nil {
		return failure(err), "", err
	}

	res, rec, err := s.verify(ctx, otp)
	if err != nil || e.grants == nil {
		return res, "", err
	}

	grant, err := e.grants.CreatePhoneGrant(rec.PhoneNumber, rec.SessionID)
	if err != nil {
		return failure(err), "", err
	}
	e.metricInc(MetricGrantIssued)
	return res, grant, nil
}

// ParsePhoneGrant validates a grant minted by VerifyOTPWithGrant and
// returns the phone number it asserts.
func (e *Engine) ParsePhoneGrant(grant string) (string, error) {
	if e.grants == nil {
		return "", ErrGrantDisabled
	}
	claims, err := e.grants.ParsePhoneGrant(grant)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	return claims.Phone, nil
}
