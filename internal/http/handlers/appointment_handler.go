// Appointment HTTP handlers.
//
// This file exposes REST endpoints for a client's appointments:
//   - POST   /appointments        (book, idempotent with Idempotency-Key)
//   - GET    /appointments        (list, paginated, ETag support)
//   - DELETE /appointments/{id}   (cancel)
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-booking-backend/internal/http/middleware"
	"github.com/tbourn/go-booking-backend/internal/repo"
	"github.com/tbourn/go-booking-backend/internal/services"
	"github.com/tbourn/go-booking-backend/internal/sysutil"
	"github.com/tbourn/go-booking-backend/internal/utils"
)

// CreateAppointment godoc
// @ID          createAppointment
// @Summary     Book an appointment
// @Description Books the hour containing `date` with a provider. Minutes and seconds are discarded.
// @Description Supports idempotency via the Idempotency-Key header (same key → same appointment).
// @Tags        Appointments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body    handlers.CreateAppointmentRequest  true  "Booking payload"
//
// @Success     201  {object}  handlers.AppointmentResponse
// @Header      201  {string}  Idempotency-Replayed  "true when the response replays an earlier request"
// @Failure     400  {object}  handlers.ErrorResponse  "Validation or booking rule failed"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /appointments [post]
func (h *Handlers) CreateAppointment(c *gin.Context) {
	ctx := c.Request.Context()
	uid, okUser := userID(c)
	if !okUser {
		return
	}

	var req CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	providerID := sysutil.FirstNonEmpty(strings.TrimSpace(req.ProviderID), strings.TrimSpace(req.ProviderIDCamel))
	date := strings.TrimSpace(req.Date)
	if providerID == "" || date == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "provider_id and date are required")
		return
	}

	// Replay a completed request with the same key.
	db := h.appointmentDB()
	if rep, found := middleware.ReplayOf(c); found && db != nil {
		if prev, err := repo.GetAppointment(ctx, db, rep.ResourceID); err == nil && prev.ClientID == uid {
			c.Header(middleware.HeaderIdempotencyReplayed, "true")
			ok(c, rep.Status, toAppointmentResponse(*prev, h.clock.Now()))
			return
		}
	}

	a, err := h.appts.Create(ctx, uid, providerID, date)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	// Remember the outcome under the key, best effort.
	if key, found := middleware.GetIdempotencyKey(c); found && db != nil {
		scope := middleware.IdempotencyScope(c)
		if _, err := repo.CreateIdempotency(ctx, db, uid, scope, key, a.ID, http.StatusCreated, h.idemTTL); err != nil && !errors.Is(err, repo.ErrDuplicate) {
			middleware.LoggerFrom(c).Warn().Err(err).Msg("idempotency record not stored")
		}
	}

	ok(c, http.StatusCreated, toAppointmentResponse(*a, h.clock.Now()))
}

// ListAppointments godoc
// @ID          listAppointments
// @Summary     List my appointments (paginated)
// @Description Returns up to 20 of the caller's active appointments ordered by date, with the provider's public profile.
// @Description Supports weak ETag via If-None-Match and may return 304.
// @Tags        Appointments
// @Produce     json
// @Security    BearerAuth
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"appointments:u1:3:1715331600\")
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
//
// @Success     200  {array}   handlers.AppointmentResponse
// @Header      200  {string}  ETag           "Weak ETag for current result"
// @Header      200  {integer} X-Total-Count  "Active appointments across all pages"
// @Header      200  {integer} X-Total-Pages  "Number of pages"
// @Success     304  {string}  string "Not Modified"
// @Failure     401  {object}  handlers.ErrorResponse "Unauthenticated"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /appointments [get]
func (h *Handlers) ListAppointments(c *gin.Context) {
	ctx := c.Request.Context()
	uid, okUser := userID(c)
	if !okUser {
		return
	}
	page := utils.PageParam(c.Query("page"))

	// ETag pre-check (best effort). The past/cancelable flags depend on the
	// time, so the tag also names the current flag bucket.
	if db := h.appointmentDB(); db != nil {
		if count, maxTS, err := repo.AppointmentsStats(ctx, db, uid); err == nil {
			kind := "appointments:" + strconv.Itoa(page) + ":" + strconv.FormatInt(flagBucket(h.clock.Now()), 10)
			if notModified(c, kind, uid, count, maxTS) {
				return
			}
		}
	}

	items, total, err := h.appts.ListPage(ctx, uid, page)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	setCount(c, headerTotalCount, total)
	setCount(c, headerTotalPages, utils.TotalPages(total, services.PageSize))
	ok(c, http.StatusOK, toAppointmentResponses(items, h.clock.Now()))
}

// CancelAppointment godoc
// @ID          cancelAppointment
// @Summary     Cancel an appointment
// @Description Cancels one of the caller's appointments. Allowed until two hours before the slot; the provider is emailed.
// @Tags        Appointments
// @Produce     json
// @Security    BearerAuth
//
// @Param       id  path  string  true  "Appointment ID (UUID)"  format(uuid)
//
// @Success     200  {object}  handlers.AppointmentResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Already canceled or too late to cancel"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated or not the owner"
// @Failure     404  {object}  handlers.ErrorResponse  "Appointment not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /appointments/{id} [delete]
func (h *Handlers) CancelAppointment(c *gin.Context) {
	uid, okUser := userID(c)
	if !okUser {
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "appointment id required")
		return
	}

	a, err := h.appts.Cancel(c.Request.Context(), uid, id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, toAppointmentResponse(*a, h.clock.Now()))
}
