package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	projectiondomain "github.com/service-ns/paycycle/internal/projection/domain"
	"github.com/service-ns/paycycle/pkg/db/pagination"
)

func (s *Server) listHistory(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.projectionSvc.ListHistory(c.Request.Context(), projectiondomain.ListHistoryRequest{
		Caller:           caller.Login,
		IsAdmin:          caller.Admin,
		Limit:            page.Limit,
		LatestPerCycle:   queryBool(c, "latest"),
		IncludeSynthetic: queryBool(c, "include_synthetic"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
