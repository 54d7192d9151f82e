package shopAuth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/shopAuth/internal/logging"
	"github.com/MrEthical07/shopAuth/password"
	"github.com/MrEthical07/shopAuth/store"
	"github.com/google/uuid"
)

// LoginEmailStep probes whether email is registered. It never fails at the
// protocol level: the Result is (true, 200) for a registered email and
// (true, 404) for an unknown one. The probe is read-only.
func (e *Engine) LoginEmailStep(ctx context.Context, email string) (Result, error) {
	email = normalizeEmail(email)
	e.metricInc(MetricEmailProbe)

	found, err := e.credentialExists(ctx, email)
	if err != nil {
		return failure(err), err
	}

	e.emitAudit(ctx, auditEventLoginEmailProbe, true, logging.MaskEmail(email), "", nil, func() map[string]string {
		return map[string]string{"registered": fmt.Sprint(found)}
	})

	if !found {
		return Result{Success: true, Code: StatusOf(ErrUserNotFound)}, nil
	}
	return ok(), nil
}

// Register stores a new credential for email with an Argon2id hash of
// plaintext and a fresh user id. A second registration for the same email
// returns (true, 409) with ErrAccountExists and leaves the first credential
// untouched; the store's unique key makes this race-safe.
func (e *Engine) Register(ctx context.Context, email, plaintext string) (Result, error) {
	email = normalizeEmail(email)
	if email == "" || plaintext == "" {
		err := fmt.Errorf("%w: email and password required", ErrInvalidInput)
		return failure(err), err
	}
	masked := logging.MaskEmail(email)

	hash, err := e.passwordHash.Hash(plaintext)
	if err != nil {
		if errors.Is(err, password.ErrPasswordTooLong) || errors.Is(err, password.ErrEmptyPassword) {
			err = fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return failure(err), err
	}

	rec := credentialRecord{
		Email:     email,
		UserID:    uuid.NewString(),
		Password:  hash,
		CreatedAt: e.now().UTC(),
	}

	sctx, cancel := e.storeContext(ctx)
	err = e.records.InsertOne(sctx, e.collections.Credentials, rec)
	cancel()
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			e.metricInc(MetricRegisterDuplicate)
			e.emitAudit(ctx, auditEventRegisterDuplicate, false, masked, "", ErrAccountExists, nil)
			return Result{Success: true, Code: StatusOf(ErrAccountExists)}, ErrAccountExists
		}
		storeErr := e.storeFailure("credential_insert", err)
		return failure(storeErr), storeErr
	}

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventRegisterSuccess, true, masked, "", nil, nil)
	return ok(), nil
}

// VerifyCredentials checks plaintext against the stored hash for email:
// 404 ErrUserNotFound, 401 ErrInvalidCredentials, or (true, 200).
func (e *Engine) VerifyCredentials(ctx context.Context, email, plaintext string) (Result, error) {
	email = normalizeEmail(email)
	masked := logging.MaskEmail(email)

	rec, err := e.findCredential(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.metricInc(MetricLoginFailure)
			e.emitAudit(ctx, auditEventLoginFailure, false, masked, "", err, nil)
		}
		return failure(err), err
	}

	match, err := e.passwordHash.Verify(plaintext, rec.Password)
	if err != nil {
		// A stored value that is not a valid hash is a data fault, not a bad guess.
		e.logger.Error("stored credential is not a valid hash", zapEmail(email))
		return failure(err), err
	}
	if !match {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, masked, "", ErrInvalidCredentials, nil)
		return failure(ErrInvalidCredentials), ErrInvalidCredentials
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, masked, "", nil, nil)
	return ok(), nil
}

// LoginPassword verifies credentials and, on success, issues an auth token.
func (e *Engine) LoginPassword(ctx context.Context, email, plaintext string) (string, Result, error) {
	res, err := e.VerifyCredentials(ctx, email, plaintext)
	if err != nil {
		return "", res, err
	}
	token, err := e.GenerateAuthToken(ctx, email)
	if err != nil {
		return "", failure(err), err
	}
	return token, res, nil
}

// RegisterAccount registers email and issues an auth token for it.
func (e *Engine) RegisterAccount(ctx context.Context, email, plaintext string) (string, Result, error) {
	res, err := e.Register(ctx, email, plaintext)
	if err != nil {
		return "", res, err
	}
	token, err := e.GenerateAuthToken(ctx, email)
	if err != nil {
		return "", failure(err), err
	}
	return token, res, nil
}

func (e *Engine) credentialExists(ctx context.Context, email string) (bool, error) {
	_, err := e.findCredential(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (e *Engine) findCredential(ctx context.Context, email string) (*credentialRecord, error) {
	if email == "" {
		return nil, ErrUserNotFound
	}

	var rec credentialRecord
	sctx, cancel := e.storeContext(ctx)
	err := e.records.FindOne(sctx, e.collections.Credentials, store.Filter{fieldEmail: email}, &rec)
	cancel()
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, e.storeFailure("credential_find", err)
	}
	return &rec, nil
}

// normalizeEmail trims surrounding whitespace and lowercases the address.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
