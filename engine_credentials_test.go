package shopAuth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/MrEthical07/shopAuth/store"
)

func TestLoginEmailStepProbe(t *testing.T) {
	te := newTestEngine(t, testConfig())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := te.LoginEmailStep(ctx, "a@b.c")
		if err != nil {
			t.Fatalf("LoginEmailStep: %v", err)
		}
		if res != (Result{Success: true, Code: http.StatusNotFound}) {
			t.Fatalf("probe %d: expected (true,404), got %+v", i+1, res)
		}
	}

	if res, _ := te.Register(ctx, "a@b.c", "pw"); !res.OK() {
		t.Fatalf("Register: %+v", res)
	}

	for i := 0; i < 2; i++ {
		res, err := te.LoginEmailStep(ctx, "A@B.C ")
		if err != nil || res != (Result{Success: true, Code: http.StatusOK}) {
			t.Fatalf("probe %d: expected (true,200), got %+v err=%v", i+1, res, err)
		}
	}
}

func TestRegisterExactlyOnce(t *testing.T) {
	te := newTestEngine(t, testConfig())
	ctx := context.Background()

	res, err := te.Register(ctx, "a@b.c", "first")
	if err != nil || res != (Result{Success: true, Code: http.StatusOK}) {
		t.Fatalf("first Register: %+v err=%v", res, err)
	}

	res, err = te.Register(ctx, "a@b.c", "second")
	if !errors.Is(err, ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}
	if res != (Result{Success: true, Code: http.StatusConflict}) {
		t.Fatalf("expected (true,409), got %+v", res)
	}

	if res, _ := te.VerifyCredentials(ctx, "a@b.c", "first"); !res.OK() {
		t.Fatalf("first password should still verify, got %+v", res)
	}
	if res, _ := te.VerifyCredentials(ctx, "a@b.c", "second"); res.Code != http.StatusUnauthorized {
		t.Fatalf("second password must not be stored, got %+v", res)
	}
}

func TestRegisterConcurrentSingleWinner(t *testing.T) {
	te := newTestEngine(t, testConfig())
	ctx := context.Background()

	const workers = 8
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		codes = map[int]int{}
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, _ := te.Register(ctx, "race@b.c", "pw")
			mu.Lock()
			codes[res.Code]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	if codes[http.StatusOK] != 1 || codes[http.StatusConflict] != workers-1 {
		t.Fatalf("expected one 200 and %d 409s, got %v", workers-1, codes)
	}
}

func TestRegisterStoresHashAndUserID(t *testing.T) {
	te := newTestEngine(t, testConfig())
	ctx := context.Background()

	if _, err := te.Register(ctx, "  User@Shop.IO ", "hunter2"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	var rec credentialRecord
	err := te.records.FindOne(ctx, te.collections.Credentials, store.Filter{fieldEmail: "user@shop.io"}, &rec)
	if err != nil {
		t.Fatalf("load credential: %v", err)
	}
	if !strings.HasPrefix(rec.Password, "$argon2id$") || strings.Contains(rec.Password, "hunter2") {
		t.Fatalf("expected argon2id hash, got %q", rec.Password)
	}
	if len(rec.UserID) != 36 {
		t.Fatalf("expected uuid user id, got %q", rec.UserID)
	}
}

func TestRegisterRejectsEmptyInput(t *testing.T) {
	te := newTestEngine(t, testConfig())

	for _, tc := range []struct{ email, pw string }{{"", "pw"}, {"a@b.c", ""}, {"  ", "pw"}} {
		res, err := te.Register(context.Background(), tc.email, tc.pw)
		if !errors.Is(err, ErrInvalidInput) || res.Code != http.StatusBadRequest {
			t.Fatalf("Register(%q,%q): expected 400, got %+v err=%v", tc.email, tc.pw, res, err)
		}
	}
}

func TestVerifyCredentials(t *testing.T) {
	te := newTestEngine(t, testConfig())
	ctx := context.Background()

	if _, err := te.Register(ctx, "a@b.c", "pw"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	tests := []struct {
		name  string
		email string
		pw    string
		want  Result
		err   error
	}{
		{"match", "a@b.c", "pw", Result{true, http.StatusOK}, nil},
		{"wrong password", "a@b.c", "nope", Result{false, http.StatusUnauthorized}, ErrInvalidCredentials},
		{"unknown email", "x@y.z", "pw", Result{false, http.StatusNotFound}, ErrUserNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := te.VerifyCredentials(ctx, tc.email, tc.pw)
			if res != tc.want {
				t.Fatalf("expected %+v, got %+v", tc.want, res)
			}
			if !errors.Is(err, tc.err) {
				t.Fatalf("expected %v, got %v", tc.err, err)
			}
		})
	}
}

func TestVerifyCredentialsCorruptHashIs500(t *testing.T) {
	te := newTestEngine(t, testConfig())
	ctx := context.Background()

	err := te.records.InsertOne(ctx, te.collections.Credentials, credentialRecord{
		Email:    "a@b.c",
		UserID:   "u1",
		Password: "plaintext-left-by-a-migration",
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	res, err := te.VerifyCredentials(ctx, "a@b.c", "plaintext-left-by-a-migration")
	if err == nil || res.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for malformed stored hash, got %+v err=%v", res, err)
	}
}

func TestLoginPasswordIssuesToken(t *testing.T) {
	te := newTestEngine(t, testConfig())
	ctx := context.Background()

	token, res, err := te.RegisterAccount(ctx, "a@b.c", "pw")
	if err != nil || !res.OK() || token == "" {
		t.Fatalf("RegisterAccount: %q %+v %v", token, res, err)
	}

	token2, res, err := te.LoginPassword(ctx, "a@b.c", "pw")
	if err != nil || !res.OK() || token2 == "" || token2 == token {
		t.Fatalf("LoginPassword: %q %+v %v", token2, res, err)
	}

	if _, res, _ := te.LoginPassword(ctx, "a@b.c", "bad"); res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %+v", res)
	}
	if tok, res, _ := te.RegisterAccount(ctx, "a@b.c", "pw"); tok != "" || res.Code != http.StatusConflict {
		t.Fatalf("duplicate RegisterAccount: %q %+v", tok, res)
	}
}

func TestCredentialStoreFailure(t *testing.T) {
	te := newTestEngine(t, testConfig())
	te.Engine.records = &faultyStore{RecordStore: te.records, failFind: true}

	res, err := te.LoginEmailStep(context.Background(), "a@b.c")
	if !errors.Is(err, ErrStoreUnavailable) || res != (Result{false, http.StatusInternalServerError}) {
		t.Fatalf("expected (false,500), got %+v err=%v", res, err)
	}
}
