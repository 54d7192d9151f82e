package shopAuth

import (
	"context"
	"errors"
	"strings"

	"github.com/MrEthical07/shopAuth/internal"
	"github.com/MrEthical07/shopAuth/internal/logging"
	"github.com/MrEthical07/shopAuth/store"
)

const bearerScheme = "bearer"

// GenerateAuthToken mints a 256-bit opaque token bound to email and
// persists it with its creation time.
func (e *Engine) GenerateAuthToken(ctx context.Context, email string) (string, error) {
	email = normalizeEmail(email)
	if email == "" {
		return "", ErrInvalidInput
	}

	token, err := internal.NewAuthToken()
	if err != nil {
		return "", err
	}

	rec := authTokenRecord{
		AuthToken: token,
		Email:     email,
		CreatedAt: e.now().UTC(),
	}

	sctx, cancel := e.storeContext(ctx)
	err = e.records.InsertOne(sctx, e.collections.AuthTokens, rec)
	cancel()
	if err != nil {
		return "", e.storeFailure("token_insert", err)
	}

	e.metricInc(MetricTokenIssued)
	e.emitAudit(ctx, auditEventTokenIssued, true, logging.MaskEmail(email), "", nil, nil)
	return token, nil
}

// VerifyAuthToken reports whether token is known and, when Token.EnforceTTL
// is set, younger than Token.TTL.
func (e *Engine) VerifyAuthToken(ctx context.Context, token string) (Result, error) {
	_, res, err := e.resolveToken(ctx, token)
	return res, err
}

// VerifyAuthorizationHeader resolves an Authorization header value to the
// email its token is bound to. "Bearer <token>" (scheme case-insensitive)
// and a bare token are both accepted.
func (e *Engine) VerifyAuthorizationHeader(ctx context.Context, header string) (string, Result, error) {
	token, err := tokenFromHeader(header)
	if err != nil {
		e.metricInc(MetricTokenRejected)
		e.emitAudit(ctx, auditEventTokenRejected, false, "", "", err, nil)
		return "", failure(err), err
	}
	return e.resolveToken(ctx, token)
}

func (e *Engine) resolveToken(ctx context.Context, token string) (string, Result, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return e.rejectToken(ctx, ErrTokenInvalid)
	}

	var rec authTokenRecord
	sctx, cancel := e.storeContext(ctx)
	err := e.records.FindOne(sctx, e.collections.AuthTokens, store.Filter{fieldAuthToken: token}, &rec)
	cancel()
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return e.rejectToken(ctx, ErrTokenNotFound)
		}
		storeErr := e.storeFailure("token_find", err)
		return "", failure(storeErr), storeErr
	}

	if e.config.Token.EnforceTTL && !rec.CreatedAt.Add(e.config.Token.TTL).After(e.now()) {
		return e.rejectToken(ctx, ErrTokenExpired)
	}

	e.metricInc(MetricTokenValid)
	return rec.Email, ok(), nil
}

func (e *Engine) rejectToken(ctx context.Context, err error) (string, Result, error) {
	e.metricInc(MetricTokenRejected)
	e.emitAudit(ctx, auditEventTokenRejected, false, "", "", err, nil)
	return "", failure(err), err
}

// tokenFromHeader extracts the token from "Bearer <token>" or a bare token.
func tokenFromHeader(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrAuthorizationHeader
	}

	fields := strings.Fields(header)
	switch len(fields) {
	case 1:
		if strings.EqualFold(fields[0], bearerScheme) {
			return "", ErrAuthorizationHeader
		}
		return fields[0], nil
	case 2:
		if !strings.EqualFold(fields[0], bearerScheme) {
			return "", ErrAuthorizationHeader
		}
		return fields[1], nil
	default:
		return "", ErrAuthorizationHeader
	}
}
