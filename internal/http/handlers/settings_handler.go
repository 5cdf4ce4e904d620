// Settings HTTP handlers (admin only).
//
//   - GET  /restaurants/{restId}/settings
//   - PUT  /restaurants/{restId}/settings/templates/{shift}
//   - POST /restaurants/{restId}/settings/templates/{shift}/edits
//   - POST /restaurants/{restId}/settings/templates/{shift}/bulk
//   - PUT  /restaurants/{restId}/settings/lock-times/{shift}
//
// Template changes apply to shifts seeded afterwards; lock times apply
// immediately.
package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/saltesefalcon/manager-checklists/internal/domain"
	"github.com/saltesefalcon/manager-checklists/internal/services"
)

// DutyInput is one template entry in a request. It accepts either an object
// or a bare string, which older clients send for non-priority duties.
type DutyInput services.Duty

// UnmarshalJSON implements json.Unmarshaler.
func (d *DutyInput) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var title string
		if err := json.Unmarshal(b, &title); err != nil {
			return err
		}
		*d = DutyInput{Title: title}
		return nil
	}
	var v services.Duty
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*d = DutyInput(v)
	return nil
}

// SaveTemplateRequest replaces a shift's duty list.
type SaveTemplateRequest struct {
	Duties []DutyInput `json:"duties" binding:"required"`
}

// EditTemplateRequest applies Draft operations in order, then saves.
type EditTemplateRequest struct {
	Ops []services.EditOp `json:"ops" binding:"required,min=1,dive"`
}

// BulkTemplateRequest replaces the duty list with one duty per non-blank line.
type BulkTemplateRequest struct {
	Text string `json:"text" example:"Count drawer\nUnlock doors"`
}

// SetLockTimeRequest sets a shift's lock time.
type SetLockTimeRequest struct {
	LockTime string `json:"lock_time" binding:"required" example:"05:00"`
}

// TemplateResponse is the saved duty list of a shift.
type TemplateResponse struct {
	Shift  domain.ShiftKind `json:"shift"`
	Duties []services.Duty  `json:"duties"`
}

// LockTimeResponse echoes a saved lock time.
type LockTimeResponse struct {
	Shift    domain.ShiftKind `json:"shift"`
	LockTime string           `json:"lock_time"`
}

// shiftParam validates :shift before any body is read.
func shiftParam(c *gin.Context) (domain.ShiftKind, bool) {
	k := domain.ShiftKind(c.Param("shift"))
	if parsed, err := domain.ParseShiftKind(string(k)); err != nil || parsed != k {
		mapErr(c, services.ErrInvalidShift)
		return "", false
	}
	return k, true
}

// GetSettings godoc
// @ID          getSettings
// @Summary     Restaurant settings (admin)
// @Description Returns the duty template and lock time of every shift kind.
// @Tags        Settings
// @Produce     json
// @Security    BearerAuth
// @Param       restId  path  string  true  "Restaurant key"
// @Success     200  {object}  services.Settings
// @Failure     403  {object}  handlers.ErrorResponse  "Admin only"
// @Failure     404  {object}  handlers.ErrorResponse  "Restaurant not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /restaurants/{restId}/settings [get]
func (h *Handlers) GetSettings(c *gin.Context) {
	s, err := h.settings.Get(c.Request.Context(), principal(c), c.Param("restId"))
	if err != nil {
		mapErr(c, err)
		return
	}
	ok(c, http.StatusOK, s)
}

// SaveTemplate godoc
// @ID          saveTemplate
// @Summary     Save a duty template (admin)
// @Description Replaces the shift's duty list. Entries may be objects or plain strings.
// @Tags        Settings
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       restId  path  string  true  "Restaurant key"
// @Param       shift   path  string  true  "Shift kind"  Enums(open, mid, close)
// @Param       body    body  handlers.SaveTemplateRequest  true  "Duties"
// @Success     200  {object}  handlers.TemplateResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid body, shift or title"
// @Failure     403  {object}  handlers.ErrorResponse  "Admin only"
// @Failure     404  {object}  handlers.ErrorResponse  "Restaurant not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /restaurants/{restId}/settings/templates/{shift} [put]
func (h *Handlers) SaveTemplate(c *gin.Context) {
	shift, valid := shiftParam(c)
	if !valid {
		return
	}
	var req SaveTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	duties := make([]services.Duty, len(req.Duties))
	for i, d := range req.Duties {
		duties[i] = services.Duty(d)
	}
	saved, err := h.templates.Save(c.Request.Context(), principal(c), c.Param("restId"), shift, duties)
	if err != nil {
		mapErr(c, err)
		return
	}
	ok(c, http.StatusOK, TemplateResponse{Shift: shift, Duties: saved})
}

// EditTemplate godoc
// @ID          editTemplate
// @Summary     Edit a duty template (admin)
// @Description Applies add, remove, update_title, set_priority, move_up and move_down operations in order and saves the result. A failing operation aborts the batch.
// @Tags        Settings
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       restId  path  string  true  "Restaurant key"
// @Param       shift   path  string  true  "Shift kind"  Enums(open, mid, close)
// @Param       body    body  handlers.EditTemplateRequest  true  "Operations"
// @Success     200  {object}  handlers.TemplateResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid body, op or index"
// @Failure     403  {object}  handlers.ErrorResponse  "Admin only"
// @Failure     404  {object}  handlers.ErrorResponse  "Restaurant not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /restaurants/{restId}/settings/templates/{shift}/edits [post]
func (h *Handlers) EditTemplate(c *gin.Context) {
	shift, valid := shiftParam(c)
	if !valid {
		return
	}
	var req EditTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "ops required")
		return
	}
	saved, err := h.templates.Edit(c.Request.Context(), principal(c), c.Param("restId"), shift, req.Ops)
	if err != nil {
		mapErr(c, err)
		return
	}
	ok(c, http.StatusOK, TemplateResponse{Shift: shift, Duties: saved})
}

// BulkTemplate godoc
// @ID          bulkTemplate
// @Summary     Bulk-replace a duty template (admin)
// @Description Replaces the duty list with one non-priority duty per non-blank line of text.
// @Tags        Settings
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       restId  path  string  true  "Restaurant key"
// @Param       shift   path  string  true  "Shift kind"  Enums(open, mid, close)
// @Param       body    body  handlers.BulkTemplateRequest  true  "Text"
// @Success     200  {object}  handlers.TemplateResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid body or shift"
// @Failure     403  {object}  handlers.ErrorResponse  "Admin only"
// @Failure     404  {object}  handlers.ErrorResponse  "Restaurant not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /restaurants/{restId}/settings/templates/{shift}/bulk [post]
func (h *Handlers) BulkTemplate(c *gin.Context) {
	shift, valid := shiftParam(c)
	if !valid {
		return
	}
	var req BulkTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	saved, err := h.templates.BulkReplace(c.Request.Context(), principal(c), c.Param("restId"), shift, req.Text)
	if err != nil {
		mapErr(c, err)
		return
	}
	ok(c, http.StatusOK, TemplateResponse{Shift: shift, Duties: saved})
}

// SetLockTime godoc
// @ID          setLockTime
// @Summary     Set a shift lock time (admin)
// @Description Saves the HH:mm (24h) local time after which the shift is due to be locked. Takes effect immediately.
// @Tags        Settings
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       restId  path  string  true  "Restaurant key"
// @Param       shift   path  string  true  "Shift kind"  Enums(open, mid, close)
// @Param       body    body  handlers.SetLockTimeRequest  true  "Lock time"
// @Success     200  {object}  handlers.LockTimeResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid body, shift or time"
// @Failure     403  {object}  handlers.ErrorResponse  "Admin only"
// @Failure     404  {object}  handlers.ErrorResponse  "Restaurant not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /restaurants/{restId}/settings/lock-times/{shift} [put]
func (h *Handlers) SetLockTime(c *gin.Context) {
	shift, valid := shiftParam(c)
	if !valid {
		return
	}
	var req SetLockTimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var syntax *json.SyntaxError
		if errors.As(err, &syntax) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
			return
		}
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "lock_time required")
		return
	}
	if err := h.lockTimes.Set(c.Request.Context(), principal(c), c.Param("restId"), shift, req.LockTime); err != nil {
		mapErr(c, err)
		return
	}
	ok(c, http.StatusOK, LockTimeResponse{Shift: shift, LockTime: req.LockTime})
}
