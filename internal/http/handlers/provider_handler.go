package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListProviders godoc
// @ID          listProviders
// @Summary     List providers
// @Description Returns every bookable provider's public profile (id, name, avatar), ordered by name.
// @Tags        Providers
// @Produce     json
// @Security    BearerAuth
//
// @Success     200  {array}   domain.User
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /providers [get]
func (h *Handlers) ListProviders(c *gin.Context) {
	items, err := h.providers.List(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, items)
}
