package portal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func authPayload(token, refresh string) []byte {
	raw, _ := json.Marshal(AuthResponse{
		AccessToken:  token,
		RefreshToken: refresh,
		User:         User{ID: "u1", Email: "t@example.local", Role: RoleTenant},
	})
	return raw
}

func TestBearerAttached(t *testing.T) {
	store := NewMemStore()
	_ = store.Save(Credentials{Token: "access-1", RefreshToken: "refresh-1"})

	var got string
	app := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer app.Close()

	client := NewClient(app.URL, store)
	if err := client.do(context.Background(), http.MethodGet, "/api/auth/me", nil, &struct{}{}); err != nil {
		t.Fatalf("do error: %v", err)
	}
	if got != "Bearer access-1" {
		t.Fatalf("expected bearer header, got %q", got)
	}
}

func TestRefreshAndRetryOn401(t *testing.T) {
	store := NewMemStore()
	_ = store.Save(Credentials{Token: "stale", RefreshToken: "refresh-1"})

	var meCalls, refreshCalls atomic.Int32
	app := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/refresh":
			refreshCalls.Add(1)
			_, _ = w.Write(authPayload("fresh", "refresh-2"))
		case "/api/auth/me":
			meCalls.Add(1)
			if r.Header.Get("Authorization") != "Bearer fresh" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"invalid_token"}`))
				return
			}
			_, _ = w.Write([]byte(`{"id":"u1"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer app.Close()

	client := NewClient(app.URL, store)
	var user User
	if err := client.do(context.Background(), http.MethodGet, "/api/auth/me", nil, &user); err != nil {
		t.Fatalf("do error: %v", err)
	}
	if meCalls.Load() != 2 {
		t.Fatalf("expected 1 retry, got %d calls", meCalls.Load())
	}
	if refreshCalls.Load() != 1 {
		t.Fatalf("expected 1 refresh, got %d", refreshCalls.Load())
	}

	creds, _ := store.Load()
	if creds.Token != "fresh" || creds.RefreshToken != "refresh-2" {
		t.Fatalf("rotated pair not persisted: %+v", creds)
	}
}

func TestSecondUnauthorizedTearsDown(t *testing.T) {
	store := NewMemStore()
	_ = store.Save(Credentials{Token: "stale", RefreshToken: "refresh-1"})

	var refreshCalls atomic.Int32
	app := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/auth/refresh" {
			refreshCalls.Add(1)
			_, _ = w.Write(authPayload("still-bad", "refresh-2"))
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_token"}`))
	}))
	defer app.Close()

	tornDown := false
	client := NewClient(app.URL, store, WithTeardown(func() { tornDown = true }))

	err := client.do(context.Background(), http.MethodGet, "/api/auth/me", nil, &struct{}{})
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	if refreshCalls.Load() != 1 {
		t.Fatalf("expected exactly 1 refresh, got %d", refreshCalls.Load())
	}
	if !tornDown {
		t.Fatalf("teardown hook not fired")
	}
	creds, _ := store.Load()
	if !creds.Empty() {
		t.Fatalf("credentials not cleared: %+v", creds)
	}
}

func TestRefreshFailureTearsDownWithoutRetry(t *testing.T) {
	store := NewMemStore()
	_ = store.Save(Credentials{Token: "stale", RefreshToken: "refresh-1"})

	var meCalls atomic.Int32
	app := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/auth/refresh" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"refresh_token_expired"}`))
			return
		}
		meCalls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_token"}`))
	}))
	defer app.Close()

	client := NewClient(app.URL, store)
	err := client.do(context.Background(), http.MethodGet, "/api/auth/me", nil, &struct{}{})
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	if meCalls.Load() != 1 {
		t.Fatalf("expected no replay after failed refresh, got %d calls", meCalls.Load())
	}
	creds, _ := store.Load()
	if !creds.Empty() {
		t.Fatalf("credentials not cleared")
	}
}

func TestNonUnauthorizedErrorsPropagate(t *testing.T) {
	store := NewMemStore()
	_ = store.Save(Credentials{Token: "access-1", RefreshToken: "refresh-1"})

	var refreshCalls atomic.Int32
	app := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/auth/refresh" {
			refreshCalls.Add(1)
			return
		}
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"admin_only"}`))
	}))
	defer app.Close()

	client := NewClient(app.URL, store)
	err := client.do(context.Background(), http.MethodGet, "/api/tenants", nil, &struct{}{})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusForbidden || apiErr.Code != "admin_only" {
		t.Fatalf("unexpected error: %+v", apiErr)
	}
	if refreshCalls.Load() != 0 {
		t.Fatalf("403 must not trigger a refresh")
	}
	creds, _ := store.Load()
	if creds.Token != "access-1" {
		t.Fatalf("403 must not clear credentials")
	}
}

func TestLoginUnauthorizedIsNotRetried(t *testing.T) {
	store := NewMemStore()

	var refreshCalls atomic.Int32
	app := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/auth/refresh" {
			refreshCalls.Add(1)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_credentials","message":"Invalid email or password."}`))
	}))
	defer app.Close()

	client := NewClient(app.URL, store)
	err := client.do(context.Background(), http.MethodPost, "/api/auth/login", map[string]string{"email": "x"}, &struct{}{})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Message != "Invalid email or password." {
		t.Fatalf("server message lost: %+v", apiErr)
	}
	if refreshCalls.Load() != 0 {
		t.Fatalf("login 401 must not trigger a refresh")
	}
}
