package shopAuth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/shopAuth/internal"
	"github.com/MrEthical07/shopAuth/internal/logging"
	"github.com/MrEthical07/shopAuth/internal/rate"
	"github.com/MrEthical07/shopAuth/store"
	"go.uber.org/zap"
)

// OTPSession is a request-scoped handle on one OTP challenge. It is built
// by the Engine either bound to a phone number (issuance) or to an existing
// session id (verification) and holds no durable state itself.
type OTPSession struct {
	engine    *Engine
	sessionID string
	phone     string
}

func newOTPSessionForPhone(e *Engine, phone string) (*OTPSession, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, fmt.Errorf("%w: phone number required", ErrInvalidInput)
	}

	id, err := internal.NewSessionID()
	if err != nil {
		return nil, err
	}
	return &OTPSession{engine: e, sessionID: id, phone: phone}, nil
}

// SessionID returns the session identifier.
func (s *OTPSession) SessionID() string {
	return s.sessionID
}

// Send generates a fresh code, persists the session with zero attempts and
// delivers the rendered message through the notifier.
//
// Send returns ErrStoreUnavailable if the session could not be persisted.
// If only delivery fails it returns the session id together with
// ErrDeliveryFailed; the session stays stored and verifiable.
func (s *OTPSession) Send(ctx context.Context) (string, error) {
	e := s.engine
	if s.phone == "" {
		return "", ErrOTPSessionUnbound
	}
	masked := logging.MaskPhone(s.phone)

	if e.sendLimiter != nil {
		if err := e.sendLimiter.AllowSend(ctx, s.phone); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				e.emitRateLimit(ctx, "otp_send", masked)
				return "", ErrOTPSendRateLimited
			}
			return "", e.storeFailure("otp_send_limit", err)
		}
	}

	code, err := internal.NewOTP(e.config.OTP.Length)
	if err != nil {
		return "", err
	}

	rec := otpSessionRecord{
		SessionID:   s.sessionID,
		PhoneNumber: s.phone,
		OTP:         code,
		CreatedAt:   e.now().UTC(),
		Attempts:    0,
	}

	sctx, cancel := e.storeContext(ctx)
	err = e.records.InsertOne(sctx, e.collections.OTPSessions, rec)
	cancel()
	if err != nil {
		return "", e.storeFailure("otp_insert", err)
	}

	body := renderOTPMessage(e.config.OTP.MessageTemplate, code, e.config.OTP.TTL)

	dctx, cancel := context.WithTimeout(ctx, e.config.Delivery.Timeout)
	defer cancel()
	if err := e.notifier.Send(dctx, s.phone, body); err != nil {
		e.metricInc(MetricOTPDeliveryFailed)
		e.logger.Warn("otp delivery failed",
			zap.String("session_id", s.sessionID),
			zap.String("phone", masked),
			zap.Error(err),
		)
		e.emitAudit(ctx, auditEventOTPDeliveryFailed, false, masked, s.sessionID, ErrDeliveryFailed, nil)
		return s.sessionID, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	e.metricInc(MetricOTPSent)
	e.emitAudit(ctx, auditEventOTPSent, true, masked, s.sessionID, nil, nil)
	return s.sessionID, nil
}

// Verify checks candidate against the stored code.
//
// Lockout takes precedence over correctness: once attempts reach
// OTP.MaxAttempts every call returns 429, even with the right code. A wrong
// guess atomically increments attempts; the guess that exhausts the budget
// already reports 429. A correct code past its TTL reports 401 and does not
// consume an attempt. A successful verify clears the phone's send throttle.
func (s *OTPSession) Verify(ctx context.Context, candidate string) (Result, error) {
	res, _, err := s.verify(ctx, candidate)
	return res, err
}

func (s *OTPSession) verify(ctx context.Context, candidate string) (Result, *otpSessionRecord, error) {
	e := s.engine
	start := time.Now()
	defer func() {
		if e.metrics != nil {
			e.metrics.Observe(MetricVerifyLatency, time.Since(start))
		}
	}()

	if s.sessionID == "" {
		e.metricInc(MetricOTPSessionNotFound)
		return failure(ErrOTPSessionNotFound), nil, ErrOTPSessionNotFound
	}

	coll := e.collections.OTPSessions
	filter := store.Filter{fieldSessionID: s.sessionID}

	var rec otpSessionRecord
	sctx, cancel := e.storeContext(ctx)
	err := e.records.FindOne(sctx, coll, filter, &rec)
	cancel()
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			e.metricInc(MetricOTPSessionNotFound)
			e.emitAudit(ctx, auditEventOTPVerifyFailure, false, "", s.sessionID, ErrOTPSessionNotFound, nil)
			return failure(ErrOTPSessionNotFound), nil, ErrOTPSessionNotFound
		}
		storeErr := e.storeFailure("otp_find", err)
		return failure(storeErr), nil, storeErr
	}

	maxAttempts := int64(e.config.OTP.MaxAttempts)
	masked := logging.MaskPhone(rec.PhoneNumber)

	if rec.Attempts >= maxAttempts {
		return s.locked(ctx, masked, rec.Attempts)
	}

	if subtle.ConstantTimeCompare([]byte(candidate), []byte(rec.OTP)) != 1 {
		sctx, cancel := e.storeContext(ctx)
		attempts, err := e.records.IncrementOne(sctx, coll, filter, fieldAttempts, 1)
		cancel()
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				// Evicted between read and increment.
				e.metricInc(MetricOTPSessionNotFound)
				return failure(ErrOTPSessionNotFound), nil, ErrOTPSessionNotFound
			}
			storeErr := e.storeFailure("otp_increment", err)
			return failure(storeErr), nil, storeErr
		}
		if attempts >= maxAttempts {
			return s.locked(ctx, masked, attempts)
		}

		e.metricInc(MetricOTPVerifyInvalid)
		e.emitAudit(ctx, auditEventOTPVerifyFailure, false, masked, s.sessionID, ErrOTPInvalid, attemptsMetadata(attempts))
		return failure(ErrOTPInvalid), nil, ErrOTPInvalid
	}

	if !rec.CreatedAt.Add(e.config.OTP.TTL).After(e.now()) {
		e.metricInc(MetricOTPVerifyExpired)
		e.emitAudit(ctx, auditEventOTPVerifyFailure, false, masked, s.sessionID, ErrOTPExpired, nil)
		return failure(ErrOTPExpired), nil, ErrOTPExpired
	}

	if e.sendLimiter != nil {
		if err := e.sendLimiter.Reset(ctx, rec.PhoneNumber); err != nil {
			e.logger.Warn("otp send limit reset failed",
				zap.String("phone", masked),
				zap.Error(err),
			)
		}
	}

	e.metricInc(MetricOTPVerifySuccess)
	e.emitAudit(ctx, auditEventOTPVerifySuccess, true, masked, s.sessionID, nil, nil)
	return ok(), &rec, nil
}

func (s *OTPSession) locked(ctx context.Context, masked string, attempts int64) (Result, *otpSessionRecord, error) {
	s.engine.metricInc(MetricOTPVerifyLocked)
	s.engine.emitAudit(ctx, auditEventOTPLocked, false, masked, s.sessionID, ErrOTPLocked, attemptsMetadata(attempts))
	return failure(ErrOTPLocked), nil, ErrOTPLocked
}

func attemptsMetadata(attempts int64) func() map[string]string {
	return func() map[string]string {
		return map[string]string{"attempts": fmt.Sprint(attempts)}
	}
}
