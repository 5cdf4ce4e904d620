// Identity and restaurant HTTP handlers.
//
//   - GET  /me
//   - POST /auth/signout
//   - GET  /restaurants
//   - GET  /restaurants/{restId}
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/saltesefalcon/manager-checklists/internal/domain"
	"github.com/saltesefalcon/manager-checklists/internal/http/middleware"
	"github.com/saltesefalcon/manager-checklists/internal/services"
)

// MeResponse describes the authenticated principal.
type MeResponse struct {
	UID         string                    `json:"uid" example:"u-123"`
	Email       string                    `json:"email,omitempty" example:"manager@example.com"`
	Name        string                    `json:"name" example:"Sam"`
	Role        domain.Role               `json:"role" example:"manager"`
	Restaurants []services.RestaurantView `json:"restaurants"`
}

// ListRestaurantsResponse wraps the restaurants visible to the principal.
type ListRestaurantsResponse struct {
	Restaurants []services.RestaurantView `json:"restaurants"`
}

// Me godoc
// @ID          getMe
// @Summary     Current principal
// @Description Returns the resolved profile of the caller and the restaurants it may open.
// @Tags        Identity
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  handlers.MeResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     403  {object}  handlers.ErrorResponse  "No profile"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /me [get]
func (h *Handlers) Me(c *gin.Context) {
	p := principal(c)
	views, err := h.access.Visible(c.Request.Context(), p)
	if err != nil {
		mapErr(c, err)
		return
	}
	ok(c, http.StatusOK, MeResponse{
		UID:         p.UID,
		Email:       p.Email,
		Name:        p.Name,
		Role:        p.Role,
		Restaurants: views,
	})
}

// SignOut godoc
// @ID          signOut
// @Summary     Sign out
// @Description Revokes the presented token until it would have expired.
// @Tags        Identity
// @Security    BearerAuth
// @Success     204  {string}  string  "No Content"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /auth/signout [post]
func (h *Handlers) SignOut(c *gin.Context) {
	id := middleware.IdentityFrom(c)
	if id == nil || id.TokenID == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "token cannot be revoked")
		return
	}
	if h.revoker == nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "sign-out is not configured")
		return
	}
	ttl := time.Until(id.ExpiresAt)
	if ttl < time.Second {
		ttl = time.Second
	}
	if err := h.revoker.Revoke(c.Request.Context(), id.TokenID, ttl); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not revoke token")
		return
	}
	middleware.LoggerFrom(c).Info().Str("uid", id.UID).Msg("signed out")
	noContent(c)
}

// ListRestaurants godoc
// @ID          listRestaurants
// @Summary     List restaurants
// @Description Admins see every restaurant; managers see the ones their profile allows.
// @Tags        Restaurants
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  handlers.ListRestaurantsResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /restaurants [get]
func (h *Handlers) ListRestaurants(c *gin.Context) {
	views, err := h.access.Visible(c.Request.Context(), principal(c))
	if err != nil {
		mapErr(c, err)
		return
	}
	ok(c, http.StatusOK, ListRestaurantsResponse{Restaurants: views})
}

// GetRestaurant godoc
// @ID          getRestaurant
// @Summary     Get restaurant
// @Description Returns the restaurant and its current business date, the default date for checklists.
// @Tags        Restaurants
// @Produce     json
// @Security    BearerAuth
// @Param       restId  path  string  true  "Restaurant key"  example(tulia)
// @Success     200  {object}  services.RestaurantView
// @Failure     403  {object}  handlers.ErrorResponse  "Forbidden"
// @Failure     404  {object}  handlers.ErrorResponse  "Restaurant not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /restaurants/{restId} [get]
func (h *Handlers) GetRestaurant(c *gin.Context) {
	v, err := h.access.Restaurant(c.Request.Context(), principal(c), c.Param("restId"))
	if err != nil {
		mapErr(c, err)
		return
	}
	ok(c, http.StatusOK, v)
}
