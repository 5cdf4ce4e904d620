package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/saltesefalcon/manager-checklists/internal/auth"
	"github.com/saltesefalcon/manager-checklists/internal/domain"
	"github.com/saltesefalcon/manager-checklists/internal/http/middleware"
	"github.com/saltesefalcon/manager-checklists/internal/services"
)

func TestMe_ManagerSeesAllowedRestaurantsOnly(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodGet, "/me", "mgr-1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	me := decode[MeResponse](t, w)
	if me.UID != "mgr-1" || me.Name != "Sam" || me.Role != "manager" {
		t.Fatalf("unexpected me: %+v", me)
	}
	if len(me.Restaurants) != 1 || me.Restaurants[0].ID != "tulia" {
		t.Fatalf("restaurants=%+v", me.Restaurants)
	}
}

func TestMe_AuthFailures(t *testing.T) {
	e := newTestEnv(t)

	expectError(t, e.do(t, http.MethodGet, "/me", "", nil), http.StatusUnauthorized, ErrCodeUnauthorized)
	expectError(t, e.do(t, http.MethodGet, "/me", "ghost", nil), http.StatusForbidden, ErrCodeProfileNotFound)
}

func TestSignOut_RevokesPresentedToken(t *testing.T) {
	e := newTestEnv(t)
	tok := e.token(t, "mgr-1")

	send := func(method, path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, base+path, nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		w := httptest.NewRecorder()
		e.router.ServeHTTP(w, req)
		return w
	}

	if w := send(http.MethodPost, "/auth/signout"); w.Code != http.StatusNoContent {
		t.Fatalf("signout status=%d body=%s", w.Code, w.Body.String())
	}
	expectError(t, send(http.MethodGet, "/me"), http.StatusUnauthorized, ErrCodeUnauthorized)

	// Other tokens of the same user keep working.
	if w := e.do(t, http.MethodGet, "/me", "mgr-1", nil); w.Code != http.StatusOK {
		t.Fatalf("fresh token status=%d", w.Code)
	}
}

func TestSignOut_UnrevocableTokenNeverAccepted(t *testing.T) {
	e := newTestEnv(t)
	// Only a subject: no jti to revoke and no expiry.
	bare, err := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256,
		jwtv5.RegisteredClaims{Subject: "mgr-1"}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	for _, route := range []struct{ method, path string }{
		{http.MethodPost, "/auth/signout"},
		{http.MethodGet, "/me"},
	} {
		req := httptest.NewRequest(route.method, base+route.path, nil)
		req.Header.Set("Authorization", "Bearer "+bare)
		w := httptest.NewRecorder()
		e.router.ServeHTTP(w, req)
		expectError(t, w, http.StatusUnauthorized, ErrCodeUnauthorized)
	}
}

func TestSignOut_WithoutRevokerFails(t *testing.T) {
	e := newTestEnv(t)
	h := New(Options{})
	r := gin.New()
	r.POST("/auth/signout",
		middleware.Authenticate(e.verifier, nil, func(ctx context.Context, id *auth.Identity) (*services.Principal, error) {
			return &services.Principal{UID: id.UID, Role: domain.RoleManager}, nil
		}),
		h.SignOut)

	req := httptest.NewRequest(http.MethodPost, "/auth/signout", nil)
	req.Header.Set("Authorization", "Bearer "+e.token(t, "mgr-1"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	expectError(t, w, http.StatusInternalServerError, ErrCodeInternal)
}

func TestListRestaurants_AdminSeesAll(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodGet, "/restaurants", "admin-1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	got := decode[ListRestaurantsResponse](t, w).Restaurants
	if len(got) != 2 {
		t.Fatalf("want 2 restaurants, got %+v", got)
	}
	if got[0].ID != "ancora" || got[0].Name != "Ancora" {
		t.Fatalf("derived name not applied: %+v", got[0])
	}
	if got[1].ID != "tulia" || got[1].Name != "Tulia" {
		t.Fatalf("unexpected second: %+v", got[1])
	}
}

func TestGetRestaurant(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodGet, "/restaurants/tulia", "mgr-1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	v := decode[map[string]any](t, w)
	if v["business_date"] != testDate {
		t.Fatalf("business_date=%v", v["business_date"])
	}

	expectError(t, e.do(t, http.MethodGet, "/restaurants/ancora", "mgr-1", nil), http.StatusForbidden, ErrCodeForbidden)
	expectError(t, e.do(t, http.MethodGet, "/restaurants/nope", "admin-1", nil), http.StatusNotFound, ErrCodeNotFound)
}
