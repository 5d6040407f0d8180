package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"propertydesk/internal/auth"
	"propertydesk/internal/config"
	"propertydesk/internal/crypto"
	"propertydesk/internal/db"
	"propertydesk/internal/model"
	"propertydesk/internal/repository"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		HTTPAddr:             ":0",
		JWTSecret:            "test-secret",
		JWTIssuer:            "test-issuer",
		AccessTokenTTL:       15 * time.Minute,
		RefreshTokenTTL:      24 * time.Hour,
		RememberMeRefreshTTL: 30 * 24 * time.Hour,
		UploadDir:            t.TempDir(),
		MaxUploadBytes:       10 * 1024 * 1024,
		DashboardCacheTTL:    time.Minute,
		LoginRatePerMin:      600,
		LoginBurst:           600,
	}
}

func TestAuthLifecycle(t *testing.T) {
	pool := openTestDB(t)
	if pool == nil {
		return
	}
	defer pool.Close()

	cfg := testConfig(t)
	store := repository.NewStore(pool)
	server := NewServer(cfg, store, nil)
	app := httptest.NewServer(server.Router())
	defer app.Close()

	email := fmt.Sprintf("tenant.%s@example.local", uuid.NewString()[:8])

	// Register creates a TENANT and returns a token pair.
	resp := doReq(t, http.MethodPost, app.URL+"/api/auth/register", "", map[string]interface{}{
		"firstName": "Test",
		"lastName":  "Tenant",
		"email":     email,
		"password":  "dev-password",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var registered struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
		User         struct {
			ID   string `json:"id"`
			Role string `json:"role"`
		} `json:"user"`
	}
	decodeBody(t, resp, &registered)
	if registered.User.Role != model.RoleTenant {
		t.Fatalf("expected TENANT role, got %s", registered.User.Role)
	}

	// Duplicate email is rejected with a human message.
	resp = doReq(t, http.MethodPost, app.URL+"/api/auth/register", "", map[string]interface{}{
		"firstName": "Test",
		"lastName":  "Tenant",
		"email":     email,
		"password":  "dev-password",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
	var conflict struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	decodeBody(t, resp, &conflict)
	if conflict.Message == "" {
		t.Fatalf("expected human message on auth error")
	}

	// Wrong password.
	resp = doReq(t, http.MethodPost, app.URL+"/api/auth/login", "", map[string]interface{}{
		"email":    email,
		"password": "wrong",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}

	// Login works and /me resolves the profile.
	resp = doReq(t, http.MethodPost, app.URL+"/api/auth/login", "", map[string]interface{}{
		"email":    email,
		"password": "dev-password",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var session struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	decodeBody(t, resp, &session)

	resp = doReq(t, http.MethodGet, app.URL+"/api/auth/me", session.AccessToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	drainBody(resp)

	// Refresh rotates: the new pair works, the old refresh token does not.
	resp = doReq(t, http.MethodPost, app.URL+"/api/auth/refresh", "", map[string]interface{}{
		"refreshToken": session.RefreshToken,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	drainBody(resp)

	resp = doReq(t, http.MethodPost, app.URL+"/api/auth/refresh", "", map[string]interface{}{
		"refreshToken": session.RefreshToken,
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 replaying a rotated refresh token, got %d", resp.StatusCode)
	}
	drainBody(resp)
}

func TestMaintenanceLifecycle(t *testing.T) {
	pool := openTestDB(t)
	if pool == nil {
		return
	}
	defer pool.Close()

	cfg := testConfig(t)
	store := repository.NewStore(pool)
	server := NewServer(cfg, store, nil)
	app := httptest.NewServer(server.Router())
	defer app.Close()

	tenantID := seedUser(t, store, model.RoleTenant)
	adminID := seedUser(t, store, model.RoleAdmin)
	tenantToken := mustToken(t, cfg, tenantID, model.RoleTenant)
	adminToken := mustToken(t, cfg, adminID, model.RoleAdmin)

	// Tenant files a request with an attachment.
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	_ = writer.WriteField("title", "Leaking faucet")
	_ = writer.WriteField("description", "Kitchen faucet drips constantly")
	_ = writer.WriteField("priority", "high")
	_ = writer.WriteField("category", "plumbing")
	part, err := writer.CreatePart(map[string][]string{
		"Content-Disposition": {`form-data; name="files"; filename="photo.png"`},
		"Content-Type":        {"image/png"},
	})
	if err != nil {
		t.Fatalf("multipart error: %v", err)
	}
	_, _ = part.Write([]byte("png-bytes"))
	_ = writer.Close()

	req, err := http.NewRequest(http.MethodPost, app.URL+"/api/maintenance", &body)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+tenantToken)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("http error: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var created struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Files  []struct {
			ID string `json:"id"`
		} `json:"files"`
	}
	decodeBody(t, resp, &created)
	if created.Status != model.StatusPending {
		t.Fatalf("expected PENDING, got %s", created.Status)
	}
	if len(created.Files) != 1 {
		t.Fatalf("expected 1 attachment, got %d", len(created.Files))
	}

	// Feedback before completion is rejected.
	resp = doReq(t, http.MethodPost, app.URL+"/api/maintenance/"+created.ID+"/feedback", tenantToken, map[string]interface{}{
		"rating": 5,
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 before completion, got %d", resp.StatusCode)
	}
	drainBody(resp)

	// Tenant cannot change the status.
	resp = doReq(t, http.MethodPut, app.URL+"/api/maintenance/"+created.ID+"/status", tenantToken, map[string]interface{}{
		"status": model.StatusCompleted,
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
	drainBody(resp)

	// Admin completes it; completedAt is stamped.
	resp = doReq(t, http.MethodPut, app.URL+"/api/maintenance/"+created.ID+"/status", adminToken, map[string]interface{}{
		"status": model.StatusCompleted,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var completed struct {
		Status      string  `json:"status"`
		CompletedAt *string `json:"completedAt"`
	}
	decodeBody(t, resp, &completed)
	if completed.CompletedAt == nil {
		t.Fatalf("expected completedAt after completion")
	}

	// Only the owning tenant can rate, exactly once.
	resp = doReq(t, http.MethodPost, app.URL+"/api/maintenance/"+created.ID+"/feedback", tenantToken, map[string]interface{}{
		"rating":  4,
		"comment": "quick fix",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	drainBody(resp)

	resp = doReq(t, http.MethodPost, app.URL+"/api/maintenance/"+created.ID+"/feedback", tenantToken, map[string]interface{}{
		"rating": 1,
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 on second rating, got %d", resp.StatusCode)
	}
	drainBody(resp)

	// File is visible to its owner, hidden from other tenants.
	otherID := seedUser(t, store, model.RoleTenant)
	otherToken := mustToken(t, cfg, otherID, model.RoleTenant)
	resp = doReq(t, http.MethodGet, app.URL+"/api/files/"+created.Files[0].ID, tenantToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	drainBody(resp)
	resp = doReq(t, http.MethodGet, app.URL+"/api/files/"+created.Files[0].ID, otherToken, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
	drainBody(resp)

	// Deleting the request removes its attachments too.
	resp = doReq(t, http.MethodDelete, app.URL+"/api/maintenance/"+created.ID, tenantToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	drainBody(resp)
	resp = doReq(t, http.MethodGet, app.URL+"/api/files/"+created.Files[0].ID, adminToken, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", resp.StatusCode)
	}
	drainBody(resp)
}

func TestTenantAndPaymentEndpoints(t *testing.T) {
	pool := openTestDB(t)
	if pool == nil {
		return
	}
	defer pool.Close()

	cfg := testConfig(t)
	store := repository.NewStore(pool)
	server := NewServer(cfg, store, nil)
	app := httptest.NewServer(server.Router())
	defer app.Close()

	adminID := seedUser(t, store, model.RoleAdmin)
	adminToken := mustToken(t, cfg, adminID, model.RoleAdmin)
	tenantID := seedUser(t, store, model.RoleTenant)
	tenantToken := mustToken(t, cfg, tenantID, model.RoleTenant)

	// Tenant listing is admin only.
	resp := doReq(t, http.MethodGet, app.URL+"/api/tenants/", tenantToken, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
	drainBody(resp)

	resp = doReq(t, http.MethodGet, app.URL+"/api/tenants/?page=0&size=5", adminToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var listing struct {
		Tenants    []json.RawMessage `json:"tenants"`
		TotalPages int               `json:"totalPages"`
	}
	decodeBody(t, resp, &listing)
	if listing.Tenants == nil {
		t.Fatalf("expected tenants envelope")
	}

	// Admin bills the tenant, then marks it paid.
	resp = doReq(t, http.MethodPost, app.URL+"/api/admin/payments/", adminToken, map[string]interface{}{
		"tenantId":    tenantID,
		"amountCents": 120000,
		"dueDate":     time.Now().UTC().Format("2006-01-02"),
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var payment struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	decodeBody(t, resp, &payment)
	if payment.Status != model.PaymentPending {
		t.Fatalf("expected PENDING, got %s", payment.Status)
	}

	resp = doReq(t, http.MethodPut, app.URL+"/api/admin/payments/"+payment.ID+"/status", adminToken, map[string]interface{}{
		"status": model.PaymentPaid,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var paid struct {
		Status      string  `json:"status"`
		PaymentDate *string `json:"paymentDate"`
	}
	decodeBody(t, resp, &paid)
	if paid.PaymentDate == nil {
		t.Fatalf("expected paymentDate once paid")
	}

	// The tenant sees it in their own history.
	resp = doReq(t, http.MethodGet, app.URL+"/api/tenant/payments/", tenantToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var history struct {
		Content []struct {
			ID string `json:"id"`
		} `json:"content"`
	}
	decodeBody(t, resp, &history)
	found := false
	for _, entry := range history.Content {
		if entry.ID == payment.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("payment missing from tenant history")
	}

	// Dashboards resolve for both roles.
	resp = doReq(t, http.MethodGet, app.URL+"/api/dashboard/tenant", tenantToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	drainBody(resp)
	resp = doReq(t, http.MethodGet, app.URL+"/api/admin/dashboard/stats", adminToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	drainBody(resp)
}

func TestLeaseEndpoints(t *testing.T) {
	pool := openTestDB(t)
	if pool == nil {
		return
	}
	defer pool.Close()

	cfg := testConfig(t)
	store := repository.NewStore(pool)
	server := NewServer(cfg, store, nil)
	app := httptest.NewServer(server.Router())
	defer app.Close()

	adminID := seedUser(t, store, model.RoleAdmin)
	adminToken := mustToken(t, cfg, adminID, model.RoleAdmin)
	tenantID := seedUser(t, store, model.RoleTenant)
	tenantToken := mustToken(t, cfg, tenantID, model.RoleTenant)

	resp := doReq(t, http.MethodPost, app.URL+"/api/leases/", adminToken, map[string]interface{}{
		"tenantId":         tenantID,
		"propertyAddress":  "12 Main St",
		"unitNumber":       "4B",
		"startDate":        "2026-01-01",
		"endDate":          "2026-12-31",
		"monthlyRentCents": 150000,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var lease struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	decodeBody(t, resp, &lease)
	if lease.Status != model.LeaseActive {
		t.Fatalf("expected ACTIVE, got %s", lease.Status)
	}

	// The active lease surfaces in the tenant dashboard.
	resp = doReq(t, http.MethodGet, app.URL+"/api/dashboard/tenant", tenantToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var dashboard struct {
		Lease *struct {
			ID string `json:"id"`
		} `json:"lease"`
	}
	decodeBody(t, resp, &dashboard)
	if dashboard.Lease == nil || dashboard.Lease.ID != lease.ID {
		t.Fatalf("active lease missing from dashboard")
	}

	// Terminating it removes it from the dashboard.
	resp = doReq(t, http.MethodPut, app.URL+"/api/leases/"+lease.ID, adminToken, map[string]interface{}{
		"status": model.LeaseTerminated,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	drainBody(resp)

	resp = doReq(t, http.MethodGet, app.URL+"/api/dashboard/tenant", tenantToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	dashboard.Lease = nil
	decodeBody(t, resp, &dashboard)
	if dashboard.Lease != nil {
		t.Fatalf("terminated lease still on dashboard")
	}

	resp = doReq(t, http.MethodDelete, app.URL+"/api/leases/"+lease.ID, adminToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	drainBody(resp)
}

func TestAuthMiddlewareRejectsBadTokens(t *testing.T) {
	cfg := testConfig(t)
	server := NewServer(cfg, nil, nil)
	app := httptest.NewServer(server.Router())
	defer app.Close()

	resp := doReq(t, http.MethodGet, app.URL+"/api/auth/me", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	drainBody(resp)

	resp = doReq(t, http.MethodGet, app.URL+"/api/auth/me", "not-a-token", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	drainBody(resp)
}

func openTestDB(t *testing.T) *pgxpool.Pool {
	url := os.Getenv("PROPERTYDESK_TEST_DB")
	if url == "" {
		url = os.Getenv("DATABASE_URL")
	}
	if url == "" {
		t.Skip("PROPERTYDESK_TEST_DB or DATABASE_URL not set")
		return nil
	}
	if err := db.RunMigrations(url); err != nil {
		t.Skipf("migrations failed: %v", err)
		return nil
	}
	pool, err := db.NewPool(context.Background(), url)
	if err != nil {
		t.Skipf("db unavailable: %v", err)
		return nil
	}
	return pool
}

func seedUser(t *testing.T, store *repository.Store, role string) string {
	t.Helper()
	hash, err := crypto.HashPassword("dev-password")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	now := time.Now().UTC()
	user := model.User{
		ID:           uuid.NewString(),
		Email:        fmt.Sprintf("%s.%s@example.local", role, uuid.NewString()[:8]),
		PasswordHash: hash,
		FirstName:    "Test",
		LastName:     "User",
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	if role == model.RoleTenant {
		if err := store.UpsertTenantProfile(context.Background(), model.TenantProfile{UserID: user.ID}); err != nil {
			t.Fatalf("seed profile: %v", err)
		}
	}
	return user.ID
}

func mustToken(t *testing.T, cfg config.Config, userID, role string) string {
	token, err := auth.NewAccessToken(cfg.JWTSecret, cfg.JWTIssuer, 10*time.Minute, auth.Claims{
		UserID: userID,
		Role:   role,
	})
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	return token
}

func doReq(t *testing.T, method, url, token string, body interface{}) *http.Response {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode error: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("http error: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode error: %v", err)
	}
}

func drainBody(resp *http.Response) {
	_ = resp.Body.Close()
}
