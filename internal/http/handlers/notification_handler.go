// Notification HTTP handlers.
//
// A provider's mailbox: the latest notifications plus an unread count, and a
// mark-as-read action. Listing supports a weak ETag so polling clients get 304
// until something new arrives or a notification is read.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-booking-backend/internal/repo"
	"github.com/tbourn/go-booking-backend/internal/services"
)

// ListNotifications godoc
// @ID          listNotifications
// @Summary     List my notifications
// @Description Returns the caller's 20 most recent notifications, newest first. Only providers have a mailbox.
// @Tags        Notifications
// @Produce     json
// @Security    BearerAuth
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
//
// @Success     200  {array}   domain.Notification
// @Header      200  {string}  ETag            "Weak ETag for current result"
// @Header      200  {integer} X-Unread-Count  "Unread notifications in the whole mailbox"
// @Success     304  {string}  string "Not Modified"
// @Failure     401  {object}  handlers.ErrorResponse  "Caller is not a provider"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /notifications [get]
func (h *Handlers) ListNotifications(c *gin.Context) {
	ctx := c.Request.Context()
	uid, okUser := userID(c)
	if !okUser {
		return
	}

	// Weak ETag over the recipient's whole mailbox, only once the caller is
	// known to have one.
	if svc, isDB := h.notes.(*services.NotificationService); isDB {
		if err := svc.Authorize(ctx, uid); err != nil {
			writeServiceError(c, err)
			return
		}
		if count, maxTS, err := repo.NotificationsStats(ctx, svc.DB, uid); err == nil && count > 0 {
			if notModified(c, "notifications", uid, count, maxTS) {
				return
			}
		}
	}

	items, unread, err := h.notes.List(ctx, uid)
	if err != nil {
		c.Writer.Header().Del("ETag")
		writeServiceError(c, err)
		return
	}
	setCount(c, headerUnreadCount, unread)
	ok(c, http.StatusOK, items)
}

// MarkNotificationRead godoc
// @ID          markNotificationRead
// @Summary     Mark a notification as read
// @Description Sets read=true on one of the caller's notifications. Marking an already-read notification is a no-op.
// @Tags        Notifications
// @Produce     json
// @Security    BearerAuth
//
// @Param       id  path  string  true  "Notification ID (UUID)"  format(uuid)
//
// @Success     200  {object}  domain.Notification
// @Failure     401  {object}  handlers.ErrorResponse  "Not the recipient"
// @Failure     404  {object}  handlers.ErrorResponse  "Notification not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /notifications/{id} [put]
func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	uid, okUser := userID(c)
	if !okUser {
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "notification id required")
		return
	}

	n, err := h.notes.MarkRead(c.Request.Context(), uid, id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, n)
}
