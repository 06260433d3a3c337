package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/Apetorku/StayGlobal-sub001/models"
	"github.com/Apetorku/StayGlobal-sub001/storage"
	"github.com/Apetorku/StayGlobal-sub001/utils"

	"github.com/go-playground/validator/v10"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// buildAdminTestApp wires the admin routes against a fresh in-memory database
// with the real verifier and admin middleware.
func buildAdminTestApp(t *testing.T) *iris.Application {
	t.Helper()
	t.Setenv("ACCESS_TOKEN_SECRET", "testsecret")

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap test db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.User{},
		&models.IdentityVerification{},
		&models.PaymentAccount{},
		&models.Apartment{},
		&models.Booking{},
		&models.CommissionRecord{},
		&models.Notification{},
		&models.ChatMessage{},
		&models.AuditLog{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	storage.DB = db

	app := iris.New()
	app.Validator = validator.New()

	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("ACCESS_TOKEN_SECRET")))
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} { return new(utils.AccessToken) })

	admin := app.Party("/api/admin", accessTokenVerifierMiddleware, utils.AdminOnlyMiddleware)
	{
		admin.Get("/users", AdminListUsers)
		admin.Patch("/users/{id:uint}/status", AdminSetUserStatus)
		admin.Get("/stats", AdminStats)
	}

	if err := app.Build(); err != nil {
		t.Fatalf("build app: %v", err)
	}
	return app
}

// signTestToken returns a signed JWT with the given identity
func signTestToken(id uint, role string) string {
	signer := jwt.NewSigner(jwt.HS256, os.Getenv("ACCESS_TOKEN_SECRET"), 0)
	token, _ := signer.Sign(utils.AccessToken{ID: id, Role: role})
	return string(token)
}

func TestAdminUsersRBAC(t *testing.T) {
	app := buildAdminTestApp(t)

	// Missing token is rejected by the verifier
	req := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)
	if resp.Code == http.StatusOK {
		t.Fatalf("expected non-200 without token, got %d", resp.Code)
	}

	// Guest role -> 403
	req2 := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
	req2.Header.Set("Authorization", "Bearer "+signTestToken(1, "guest"))
	resp2 := httptest.NewRecorder()
	app.ServeHTTP(resp2, req2)
	if resp2.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for guest role, got %d", resp2.Code)
	}

	// Admin role -> 200 (empty list OK)
	req3 := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
	req3.Header.Set("Authorization", "Bearer "+signTestToken(1, "admin"))
	resp3 := httptest.NewRecorder()
	app.ServeHTTP(resp3, req3)
	if resp3.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin role, got %d", resp3.Code)
	}
}

func TestAdminSetUserStatus(t *testing.T) {
	app := buildAdminTestApp(t)

	admin := models.User{FirstName: "Root", LastName: "Admin", Email: "admin@example.com", PhoneNumber: "+233550000001", Role: "admin", Status: "active"}
	if err := storage.DB.Create(&admin).Error; err != nil {
		t.Fatalf("create admin: %v", err)
	}
	target := models.User{FirstName: "Kofi", LastName: "Guest", Email: "kofi@example.com", PhoneNumber: "+233550000002", Role: "guest", Status: "active"}
	if err := storage.DB.Create(&target).Error; err != nil {
		t.Fatalf("create target: %v", err)
	}

	body := strings.NewReader(`{"status":"suspended","reason":"chargeback abuse"}`)
	req := httptest.NewRequest(http.MethodPatch, "/api/admin/users/2/status", body)
	req.Header.Set("Authorization", "Bearer "+signTestToken(admin.ID, "admin"))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var stored models.User
	if err := storage.DB.First(&stored, target.ID).Error; err != nil {
		t.Fatalf("reload target: %v", err)
	}
	if stored.Status != "suspended" {
		t.Fatalf("expected suspended status, got %q", stored.Status)
	}

	// Every admin mutation leaves an audit trail
	var logs []models.AuditLog
	if err := storage.DB.Find(&logs).Error; err != nil {
		t.Fatalf("load audit logs: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected 1 audit log entry, got %d", len(logs))
	}
	if logs[0].Action != "user.status_update" {
		t.Fatalf("expected user.status_update action, got %q", logs[0].Action)
	}

	// Hard deletion is not a thing; bogus statuses are rejected
	badBody := strings.NewReader(`{"status":"deleted"}`)
	req2 := httptest.NewRequest(http.MethodPatch, "/api/admin/users/2/status", badBody)
	req2.Header.Set("Authorization", "Bearer "+signTestToken(admin.ID, "admin"))
	req2.Header.Set("Content-Type", "application/json")
	resp2 := httptest.NewRecorder()
	app.ServeHTTP(resp2, req2)
	if resp2.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for invalid status, got %d", resp2.Code)
	}
}

func TestAdminStats(t *testing.T) {
	app := buildAdminTestApp(t)

	owner := models.User{FirstName: "Ama", LastName: "Owner", Email: "ama@example.com", Role: "owner", Status: "active"}
	if err := storage.DB.Create(&owner).Error; err != nil {
		t.Fatalf("create owner: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(owner.ID, "admin"))
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var payload struct {
		Data struct {
			TotalUsers  int64 `json:"totalUsers"`
			TotalOwners int64 `json:"totalOwners"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if payload.Data.TotalUsers != 1 || payload.Data.TotalOwners != 1 {
		t.Fatalf("unexpected counts: %+v", payload.Data)
	}
}
