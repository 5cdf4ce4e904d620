// Checklist HTTP handlers.
//
// All routes live under /restaurants/{restId}/checklists:
//   - GET  /                                    (days, paginated, ETag support)
//   - GET  /{date}/{shift}                      (seed if needed, snapshot)
//   - POST /{date}/{shift}/items/{itemId}/toggle
//   - POST /{date}/{shift}/submit               (Idempotency-Key aware)
//   - POST /{date}/{shift}/reseed               (admin)
//   - POST /{date}/{shift}/reset                (admin)
//   - GET  /{date}/{shift}/export               (xlsx)
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/saltesefalcon/manager-checklists/internal/http/middleware"
	"github.com/saltesefalcon/manager-checklists/internal/repo"
	"github.com/saltesefalcon/manager-checklists/internal/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ListDaysResponse wraps a page of checklist days and pagination information.
type ListDaysResponse struct {
	Days       []services.DaySummary `json:"days"`
	Pagination Pagination            `json:"pagination"`
}

// ListDays godoc
// @ID          listChecklistDays
// @Summary     List checklist days (paginated)
// @Description Returns the restaurant's checklist days, newest first, with per-shift progress. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Checklists
// @Produce     json
// @Security    BearerAuth
// @Param       restId         path    string  true   "Restaurant key"
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Param       page           query   int     false  "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false  "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.ListDaysResponse
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string  "Not Modified"
// @Failure     403  {object}  handlers.ErrorResponse  "Forbidden"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /restaurants/{restId}/checklists [get]
func (h *Handlers) ListDays(c *gin.Context) {
	ctx := c.Request.Context()
	p := principal(c)
	rid := c.Param("restId")
	if !p.CanAccess(rid) {
		mapErr(c, services.ErrPermissionDenied)
		return
	}
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, ok := h.checklists.(*services.ChecklistService); ok {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.DaysStats(ctx, db, rid)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.UnixNano()
			}
			etag := fmt.Sprintf(`W/"days:%s:%d:%d:%d:%d"`, rid, count, ts, page, pageSize)
			c.Header("ETag", etag)
			middleware.AllowRevalidation(c)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	days, total, err := h.checklists.ListDays(ctx, p, rid, page, pageSize)
	if err != nil {
		mapErr(c, err)
		return
	}
	ok(c, http.StatusOK, ListDaysResponse{Days: days, Pagination: newPagination(page, pageSize, total)})
}

// GetShift godoc
// @ID          getShiftChecklist
// @Summary     Open a shift checklist
// @Description Seeds the shift from the current template on first open, then returns its snapshot.
// @Tags        Checklists
// @Produce     json
// @Security    BearerAuth
// @Param       restId  path  string  true  "Restaurant key"
// @Param       date    path  string  true  "Business date (YYYY-MM-DD)"  example(2024-06-01)
// @Param       shift   path  string  true  "Shift kind"  Enums(open, mid, close)
// @Success     200  {object}  services.ShiftSnapshot
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid date or shift"
// @Failure     403  {object}  handlers.ErrorResponse  "Forbidden"
// @Failure     404  {object}  handlers.ErrorResponse  "Restaurant not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /restaurants/{restId}/checklists/{date}/{shift} [get]
func (h *Handlers) GetShift(c *gin.Context) {
	rid, date, shift := shiftParams(c)
	snap, err := h.checklists.Snapshot(c.Request.Context(), principal(c), rid, date, shift)
	if err != nil {
		mapErr(c, err)
		return
	}
	ok(c, http.StatusOK, snap)
}

// ToggleItem godoc
// @ID          toggleChecklistItem
// @Summary     Toggle an item
// @Description Flips an item's checked state, stamping or clearing who checked it and when.
// @Tags        Checklists
// @Produce     json
// @Security    BearerAuth
// @Param       restId  path  string  true  "Restaurant key"
// @Param       date    path  string  true  "Business date (YYYY-MM-DD)"
// @Param       shift   path  string  true  "Shift kind"  Enums(open, mid, close)
// @Param       itemId  path  string  true  "Item ID"  format(uuid)
// @Success     200  {object}  services.ItemView
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid date or shift"
// @Failure     403  {object}  handlers.ErrorResponse  "Forbidden"
// @Failure     404  {object}  handlers.ErrorResponse  "Item not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Shift locked"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /restaurants/{restId}/checklists/{date}/{shift}/items/{itemId}/toggle [post]
func (h *Handlers) ToggleItem(c *gin.Context) {
	rid, date, shift := shiftParams(c)
	item, err := h.checklists.Toggle(c.Request.Context(), principal(c), rid, date, shift, c.Param("itemId"))
	if err != nil {
		mapErr(c, err)
		return
	}
	ok(c, http.StatusOK, item)
}

// SubmitShift godoc
// @ID          submitShift
// @Summary     Submit and lock a shift
// @Description Locks the shift and stamps the submitter. A retry with the same Idempotency-Key returns the locked snapshot with Idempotency-Replayed: true instead of 409; if the shift was reset in between, the retry submits again.
// @Tags        Checklists
// @Produce     json
// @Security    BearerAuth
// @Param       restId           path    string  true   "Restaurant key"
// @Param       date             path    string  true   "Business date (YYYY-MM-DD)"
// @Param       shift            path    string  true   "Shift kind"  Enums(open, mid, close)
// @Param       Idempotency-Key  header  string  false  "Retry-safe key"
// @Success     200  {object}  services.ShiftSnapshot
// @Header      200  {string}  Idempotency-Replayed  "true when served from a previous submit"
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid date, shift or key"
// @Failure     403  {object}  handlers.ErrorResponse  "Forbidden"
// @Failure     404  {object}  handlers.ErrorResponse  "Shift not seeded"
// @Failure     409  {object}  handlers.ErrorResponse  "Already locked"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /restaurants/{restId}/checklists/{date}/{shift}/submit [post]
func (h *Handlers) SubmitShift(c *gin.Context) {
	ctx := c.Request.Context()
	p := principal(c)
	rid, date, shift := shiftParams(c)

	// Idempotency (replay path). The stored result only stands while the
	// shift is still locked; after a reset the retry is a fresh submit.
	replay := middleware.IsReplay(c)
	if replay {
		snap, err := h.checklists.Current(ctx, p, rid, date, shift)
		if err != nil {
			mapErr(c, err)
			return
		}
		if snap.Locked {
			c.Header("Idempotency-Replayed", "true")
			ok(c, http.StatusOK, snap)
			return
		}
		middleware.LoggerFrom(c).Info().Msg("replayed submit on an unlocked shift, submitting again")
	}

	snap, err := h.checklists.Submit(ctx, p, rid, date, shift)
	if err != nil {
		mapErr(c, err)
		return
	}

	// Idempotency (store path) – best effort. A replayed key is still live.
	if key, has := middleware.GetIdempotencyKey(c); has && !replay && h.recordIdem != nil {
		if scope := middleware.GetIdempotencyScope(c); scope != "" {
			if err := h.recordIdem(ctx, p.UID, scope, key, http.StatusOK); err != nil {
				middleware.LoggerFrom(c).Warn().Err(err).Str("scope", scope).Msg("store idempotency key")
			}
		}
	}

	ok(c, http.StatusOK, snap)
}

// ReseedShift godoc
// @ID          reseedShift
// @Summary     Reseed a shift (admin)
// @Description Discards the shift's items and lock, then rebuilds them from the current template.
// @Tags        Checklists
// @Produce     json
// @Security    BearerAuth
// @Param       restId  path  string  true  "Restaurant key"
// @Param       date    path  string  true  "Business date (YYYY-MM-DD)"
// @Param       shift   path  string  true  "Shift kind"  Enums(open, mid, close)
// @Success     200  {object}  services.ShiftSnapshot
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid date or shift"
// @Failure     403  {object}  handlers.ErrorResponse  "Admin only"
// @Failure     404  {object}  handlers.ErrorResponse  "Restaurant not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /restaurants/{restId}/checklists/{date}/{shift}/reseed [post]
func (h *Handlers) ReseedShift(c *gin.Context) {
	rid, date, shift := shiftParams(c)
	snap, err := h.checklists.Reseed(c.Request.Context(), principal(c), rid, date, shift)
	if err != nil {
		mapErr(c, err)
		return
	}
	ok(c, http.StatusOK, snap)
}

// ResetShift godoc
// @ID          resetShift
// @Summary     Reset a shift (admin)
// @Description Unlocks the shift and clears every check by rebuilding it from the current template.
// @Tags        Checklists
// @Produce     json
// @Security    BearerAuth
// @Param       restId  path  string  true  "Restaurant key"
// @Param       date    path  string  true  "Business date (YYYY-MM-DD)"
// @Param       shift   path  string  true  "Shift kind"  Enums(open, mid, close)
// @Success     200  {object}  services.ShiftSnapshot
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid date or shift"
// @Failure     403  {object}  handlers.ErrorResponse  "Admin only"
// @Failure     404  {object}  handlers.ErrorResponse  "Restaurant not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /restaurants/{restId}/checklists/{date}/{shift}/reset [post]
func (h *Handlers) ResetShift(c *gin.Context) {
	rid, date, shift := shiftParams(c)
	snap, err := h.checklists.Reset(c.Request.Context(), principal(c), rid, date, shift)
	if err != nil {
		mapErr(c, err)
		return
	}
	ok(c, http.StatusOK, snap)
}

// ExportShift godoc
// @ID          exportShift
// @Summary     Export a shift as a spreadsheet
// @Description Renders the shift's items and stamps into an xlsx workbook. The shift must already be seeded.
// @Tags        Checklists
// @Produce     application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security    BearerAuth
// @Param       restId  path  string  true  "Restaurant key"
// @Param       date    path  string  true  "Business date (YYYY-MM-DD)"
// @Param       shift   path  string  true  "Shift kind"  Enums(open, mid, close)
// @Success     200  {file}    file
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid date or shift"
// @Failure     403  {object}  handlers.ErrorResponse  "Forbidden"
// @Failure     404  {object}  handlers.ErrorResponse  "Shift not seeded"
// @Failure     500  {object}  handlers.ErrorResponse  "Export failed"
// @Router      /restaurants/{restId}/checklists/{date}/{shift}/export [get]
func (h *Handlers) ExportShift(c *gin.Context) {
	rid, date, shift := shiftParams(c)
	buf, name, err := h.checklists.Export(c.Request.Context(), principal(c), rid, date, shift)
	if err != nil {
		mapErr(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
