package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ProviderSchedule godoc
// @ID          providerSchedule
// @Summary     Provider's day schedule
// @Description Returns the caller's active appointments for one day in the business time zone, with each client's public profile.
// @Tags        Schedule
// @Produce     json
// @Security    BearerAuth
//
// @Param       date  query  string  false "Any ISO-8601 instant within the day; defaults to today"  example(2030-05-10T00:00:00Z)
//
// @Success     200  {array}   handlers.AppointmentResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid date"
// @Failure     401  {object}  handlers.ErrorResponse  "Caller is not a provider"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /schedule [get]
func (h *Handlers) ProviderSchedule(c *gin.Context) {
	uid, okUser := userID(c)
	if !okUser {
		return
	}
	items, err := h.schedule.Day(c.Request.Context(), uid, c.Query("date"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, toAppointmentResponses(items, h.clock.Now()))
}
