package admin

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/recipebox/pkg/recipebox/auth"
	"github.com/mikepea/recipebox/pkg/recipebox/models"
	"github.com/mikepea/recipebox/pkg/recipebox/testutil"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupTestRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	adminGroup := r.Group("/admin", auth.AuthMiddleware(db), auth.RequireStaff())
	NewHandler(db, 5).RegisterRoutes(adminGroup)
	return r
}

func doRequest(r *gin.Engine, method, path, authHeader string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func userPath(id uint) string {
	return "/admin/users/" + strconv.FormatUint(uint64(id), 10)
}

func TestAdminRequiresStaff(t *testing.T) {
	db := testutil.NewDB(t)
	r := setupTestRouter(db)
	user := testutil.CreateUser(t, db, "user@test.com")

	w := doRequest(r, "GET", "/admin/users", testutil.AuthHeader(t, user), nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", w.Code)
	}

	w = doRequest(r, "GET", "/admin/users", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}

func TestListUsers(t *testing.T) {
	db := testutil.NewDB(t)
	r := setupTestRouter(db)

	admin := testutil.CreateStaff(t, db, "admin@test.com")
	user := testutil.CreateUser(t, db, "user1@test.com")
	testutil.CreateUser(t, db, "user2@test.com")
	db.Create(&models.Recipe{UserID: user.ID, Title: "Soup", TimeMinutes: 5, Price: decimal.RequireFromString("1.00")})

	w := doRequest(r, "GET", "/admin/users", testutil.AuthHeader(t, admin), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var users []UserResponse
	if err := json.Unmarshal(w.Body.Bytes(), &users); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if len(users) != 3 {
		t.Errorf("Expected 3 users, got %d", len(users))
	}
	for _, u := range users {
		if u.ID == user.ID && u.RecipeCount != 1 {
			t.Errorf("Expected recipe count 1, got %d", u.RecipeCount)
		}
	}
}

func TestListUsersWithSearch(t *testing.T) {
	db := testutil.NewDB(t)
	r := setupTestRouter(db)

	admin := testutil.CreateStaff(t, db, "admin@test.com")
	testutil.CreateUser(t, db, "alice@test.com")
	testutil.CreateUser(t, db, "bob@test.com")

	w := doRequest(r, "GET", "/admin/users?q=alice", testutil.AuthHeader(t, admin), nil)
	var users []UserResponse
	json.Unmarshal(w.Body.Bytes(), &users)
	if len(users) != 1 || users[0].Email != "alice@test.com" {
		t.Errorf("Expected only alice, got %+v", users)
	}

	w = doRequest(r, "GET", "/admin/users?is_staff=1", testutil.AuthHeader(t, admin), nil)
	json.Unmarshal(w.Body.Bytes(), &users)
	if len(users) != 1 || users[0].ID != admin.ID {
		t.Errorf("Expected only the staff user, got %+v", users)
	}
}

func TestGetUser(t *testing.T) {
	db := testutil.NewDB(t)
	r := setupTestRouter(db)
	admin := testutil.CreateStaff(t, db, "admin@test.com")
	user := testutil.CreateUser(t, db, "user@test.com")

	w := doRequest(r, "GET", userPath(user.ID), testutil.AuthHeader(t, admin), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp UserResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Email != "user@test.com" || !resp.IsActive {
		t.Errorf("Unexpected user %+v", resp)
	}

	w = doRequest(r, "GET", userPath(9999), testutil.AuthHeader(t, admin), nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestCreateUser(t *testing.T) {
	db := testutil.NewDB(t)
	r := setupTestRouter(db)
	admin := testutil.CreateStaff(t, db, "admin@test.com")
	header := testutil.AuthHeader(t, admin)

	w := doRequest(r, "POST", "/admin/users", header, map[string]interface{}{
		"email":    "new@EXAMPLE.com",
		"password": "secret",
		"name":     "New",
		"is_staff": true,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp UserResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Email != "new@example.com" || !resp.IsStaff {
		t.Errorf("Unexpected user %+v", resp)
	}

	// duplicate
	w = doRequest(r, "POST", "/admin/users", header, map[string]interface{}{
		"email": "new@example.com", "password": "secret", "name": "Again",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}

	// staff without superuser cannot mint superusers
	w = doRequest(r, "POST", "/admin/users", header, map[string]interface{}{
		"email": "root@example.com", "password": "secret", "name": "Root", "is_superuser": true,
	})
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", w.Code)
	}
}

func TestUpdateUser(t *testing.T) {
	db := testutil.NewDB(t)
	r := setupTestRouter(db)
	admin := testutil.CreateStaff(t, db, "admin@test.com")
	user := testutil.CreateUser(t, db, "user@test.com")

	w := doRequest(r, "PATCH", userPath(user.ID), testutil.AuthHeader(t, admin), map[string]interface{}{
		"name":      "Renamed",
		"is_active": false,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var updated models.User
	db.First(&updated, user.ID)
	if updated.Name != "Renamed" || updated.IsActive {
		t.Errorf("Unexpected user after update %+v", updated)
	}
}

func TestUpdateUserCannotDemoteSelf(t *testing.T) {
	db := testutil.NewDB(t)
	r := setupTestRouter(db)
	admin := testutil.CreateStaff(t, db, "admin@test.com")
	header := testutil.AuthHeader(t, admin)

	for _, body := range []map[string]bool{{"is_staff": false}, {"is_active": false}} {
		w := doRequest(r, "PATCH", userPath(admin.ID), header, body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%v: expected status 400, got %d", body, w.Code)
		}
	}
}

func TestGetStats(t *testing.T) {
	db := testutil.NewDB(t)
	r := setupTestRouter(db)
	admin := testutil.CreateStaff(t, db, "admin@test.com")
	user := testutil.CreateUser(t, db, "user@test.com")

	db.Create(&models.Recipe{UserID: user.ID, Title: "A", TimeMinutes: 1, Price: decimal.Zero, Image: "recipe/a.png"})
	db.Create(&models.Recipe{UserID: user.ID, Title: "B", TimeMinutes: 1, Price: decimal.Zero})
	db.Create(&models.Tag{UserID: user.ID, Name: "Thai"})
	db.Create(&models.Ingredient{UserID: user.ID, Name: "Rice"})

	w := doRequest(r, "GET", "/admin/stats", testutil.AuthHeader(t, admin), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var stats StatsResponse
	json.Unmarshal(w.Body.Bytes(), &stats)
	want := StatsResponse{
		TotalUsers:        2,
		ActiveUsers:       2,
		StaffUsers:        1,
		TotalRecipes:      2,
		RecipesWithImages: 1,
		TotalTags:         1,
		TotalIngredients:  1,
	}
	if stats != want {
		t.Errorf("Expected %+v, got %+v", want, stats)
	}
}
