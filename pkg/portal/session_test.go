package portal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newAuthServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			var req struct {
				Email    string `json:"email"`
				Password string `json:"password"`
			}
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req.Password != "dev-password" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"invalid_credentials","message":"Invalid email or password."}`))
				return
			}
			_, _ = w.Write(authPayload("access-1", "refresh-1"))
		case "/api/auth/register":
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write(authPayload("access-1", "refresh-1"))
		case "/api/auth/logout":
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		case "/api/auth/me":
			_, _ = w.Write([]byte(`{"id":"u1","email":"t@example.local","firstName":"New","lastName":"Name","role":"TENANT"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"not_found"}`))
		}
	}))
}

func TestLoginTransitions(t *testing.T) {
	app := newAuthServer(t)
	defer app.Close()

	store := NewMemStore()
	session := NewSession(NewClient(app.URL, store), store)

	if session.State() != StateAnonymous {
		t.Fatalf("expected anonymous start")
	}
	if session.HasRole(RoleTenant) {
		t.Fatalf("hasRole must be false while anonymous")
	}

	if err := session.Login(context.Background(), "t@example.local", "dev-password", true); err != nil {
		t.Fatalf("login error: %v", err)
	}
	if session.State() != StateAuthenticated || !session.IsAuthenticated() {
		t.Fatalf("expected authenticated state")
	}
	if !session.HasRole(RoleTenant) || session.HasRole(RoleAdmin) {
		t.Fatalf("role mismatch: %+v", session.CurrentUser())
	}

	creds, _ := store.Load()
	if creds.Token != "access-1" || creds.User == nil {
		t.Fatalf("credentials not persisted: %+v", creds)
	}
}

func TestLoginFailureKeepsServerMessage(t *testing.T) {
	app := newAuthServer(t)
	defer app.Close()

	store := NewMemStore()
	session := NewSession(NewClient(app.URL, store), store)

	err := session.Login(context.Background(), "t@example.local", "wrong", false)
	if err == nil {
		t.Fatalf("expected error")
	}
	if session.State() != StateAnonymous || session.IsAuthenticated() {
		t.Fatalf("failed login must return to anonymous")
	}
	if session.LastError() != "Invalid email or password." {
		t.Fatalf("server message lost: %q", session.LastError())
	}

	session.ClearError()
	if session.LastError() != "" {
		t.Fatalf("ClearError did not clear")
	}
}

func TestOptimisticStartup(t *testing.T) {
	store := NewMemStore()
	_ = store.Save(Credentials{
		Token:        "access-1",
		RefreshToken: "refresh-1",
		User:         &User{ID: "u1", Role: RoleAdmin},
	})

	// No server: construction must not make a network call.
	session := NewSession(NewClient("http://127.0.0.1:0", store), store)
	if session.State() != StateAuthenticated {
		t.Fatalf("expected authenticated from stored credentials")
	}
	if !session.HasRole(RoleAdmin) {
		t.Fatalf("stored role lost")
	}
}

func TestOptimisticStartupNeedsRefreshToken(t *testing.T) {
	store := NewMemStore()
	_ = store.Save(Credentials{
		Token: "access-1",
		User:  &User{ID: "u1", Role: RoleAdmin},
	})

	session := NewSession(NewClient("http://127.0.0.1:0", store), store)
	if session.State() != StateAnonymous || session.IsAuthenticated() {
		t.Fatalf("partial credentials must start anonymous")
	}
}

func TestLogoutClearsEverything(t *testing.T) {
	app := newAuthServer(t)
	defer app.Close()

	store := NewMemStore()
	session := NewSession(NewClient(app.URL, store), store)
	if err := session.Login(context.Background(), "t@example.local", "dev-password", false); err != nil {
		t.Fatalf("login error: %v", err)
	}

	session.Logout(context.Background())
	if session.IsAuthenticated() || session.State() != StateAnonymous {
		t.Fatalf("logout did not reset session")
	}
	creds, _ := store.Load()
	if !creds.Empty() {
		t.Fatalf("logout did not clear store")
	}
}

func TestRefreshCurrentUser(t *testing.T) {
	app := newAuthServer(t)
	defer app.Close()

	store := NewMemStore()
	_ = store.Save(Credentials{
		Token:        "access-1",
		RefreshToken: "refresh-1",
		User:         &User{ID: "u1", FirstName: "Old", Role: RoleTenant},
	})
	session := NewSession(NewClient(app.URL, store), store)

	if err := session.RefreshCurrentUser(context.Background()); err != nil {
		t.Fatalf("refresh error: %v", err)
	}
	if session.CurrentUser().FirstName != "New" {
		t.Fatalf("profile not refreshed: %+v", session.CurrentUser())
	}
	creds, _ := store.Load()
	if creds.User == nil || creds.User.FirstName != "New" {
		t.Fatalf("refreshed profile not persisted")
	}
}

func TestRefreshCurrentUserFailureSignsOut(t *testing.T) {
	app := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal_error"}`))
	}))
	defer app.Close()

	store := NewMemStore()
	_ = store.Save(Credentials{
		Token:        "access-1",
		RefreshToken: "refresh-1",
		User:         &User{ID: "u1", Role: RoleTenant},
	})
	session := NewSession(NewClient(app.URL, store), store)

	if err := session.RefreshCurrentUser(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if session.State() != StateAnonymous || session.IsAuthenticated() {
		t.Fatalf("unconfirmed identity must sign out")
	}
	creds, _ := store.Load()
	if !creds.Empty() {
		t.Fatalf("credentials not cleared: %+v", creds)
	}
}
