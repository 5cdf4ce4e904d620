// Shift watch handler.
//
// GET /restaurants/{restId}/checklists/{date}/{shift}/watch upgrades to a
// websocket and streams full ShiftSnapshot JSON messages: one on connect and
// one after every change signal. Signals coalesce, so a slow client skips
// intermediate states but always ends on the latest one. The stream ends when
// the client disconnects or access to the shift is lost.
package handlers

import (
	"errors"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/saltesefalcon/manager-checklists/internal/http/middleware"
	"github.com/saltesefalcon/manager-checklists/internal/realtime"
	"github.com/saltesefalcon/manager-checklists/internal/services"
)

const (
	wsWriteWait    = 10 * time.Second
	wsMaxReadBytes = 512
)

var wsWatchers = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "checklist_watchers",
	Help: "Open shift watch websocket connections.",
})

func init() {
	prometheus.MustRegister(wsWatchers)
}

// WatchShift godoc
// @ID          watchShift
// @Summary     Watch a shift (websocket)
// @Description Upgrades to a websocket that pushes the full shift snapshot on connect and after each change. Browsers may pass the token as access_token.
// @Tags        Checklists
// @Security    BearerAuth
// @Param       restId        path   string  true   "Restaurant key"
// @Param       date          path   string  true   "Business date (YYYY-MM-DD)"
// @Param       shift         path   string  true   "Shift kind"  Enums(open, mid, close)
// @Param       access_token  query  string  false  "Bearer token for browser clients"
// @Success     101  {object}  services.ShiftSnapshot  "Switching Protocols; messages are snapshots"
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid date or shift"
// @Failure     403  {object}  handlers.ErrorResponse  "Forbidden"
// @Failure     404  {object}  handlers.ErrorResponse  "Restaurant not found"
// @Router      /restaurants/{restId}/checklists/{date}/{shift}/watch [get]
func (h *Handlers) WatchShift(c *gin.Context) {
	ctx := c.Request.Context()
	p := principal(c)
	rid, date, shift := shiftParams(c)

	// Subscribe before the first read so no change between the two is lost.
	signals, cancel := h.broker.Subscribe(realtime.ShiftTopic(rid, date, string(shift)))
	defer cancel()

	first, err := h.checklists.Snapshot(ctx, p, rid, date, shift)
	if err != nil {
		mapErr(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return
	}
	defer conn.Close()

	wsWatchers.Inc()
	defer wsWatchers.Dec()
	lg := middleware.LoggerFrom(c).With().Str("topic", realtime.ShiftTopic(rid, date, string(shift))).Logger()
	lg.Debug().Msg("watch opened")

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(wsMaxReadBytes)
		_ = conn.SetReadDeadline(time.Now().Add(2 * h.pingInterval))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(2 * h.pingInterval))
		})
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	send := func(snap *services.ShiftSnapshot) error {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(snap)
	}
	if err := send(first); err != nil {
		return
	}

	ping := time.NewTicker(h.pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			lg.Debug().Msg("watch closed by client")
			return
		case <-ctx.Done():
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		case _, open := <-signals:
			if !open {
				return
			}
			snap, err := h.checklists.Current(ctx, p, rid, date, shift)
			if err != nil {
				closeWatch(conn, err)
				if !errors.Is(err, services.ErrShiftNotFound) && !errors.Is(err, services.ErrPermissionDenied) {
					lg.Error().Err(err).Msg("watch reload failed")
				}
				return
			}
			if err := send(snap); err != nil {
				return
			}
		}
	}
}

// closeWatch sends a close frame naming why the stream ended.
func closeWatch(conn *websocket.Conn, err error) {
	code := websocket.CloseInternalServerErr
	switch {
	case errors.Is(err, services.ErrPermissionDenied):
		code = websocket.ClosePolicyViolation
	case errors.Is(err, services.ErrShiftNotFound), errors.Is(err, services.ErrRestaurantNotFound):
		code = websocket.CloseNormalClosure
	}
	msg := websocket.FormatCloseMessage(code, closeReason(err))
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteWait))
}

// maxCloseReason is a control frame's 125-byte payload minus the status code.
const maxCloseReason = 123

// closeReason is err's text cut to fit a close frame, on a rune boundary.
func closeReason(err error) string {
	s := err.Error()
	if len(s) <= maxCloseReason {
		return s
	}
	s = s[:maxCloseReason]
	for !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
