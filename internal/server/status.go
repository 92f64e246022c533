package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	cycledomain "github.com/service-ns/paycycle/internal/cycle/domain"
)

type setPaymentStatusRequest struct {
	PaidFlag     string `json:"paid_flag"`
	RegistryFlag string `json:"registry_flag"`
}

func (s *Server) setPaymentStatus(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	rowID, err := parseRowID(c.Param("row_id"))
	if err != nil {
		AbortWithError(c, newValidationError("row_id", "invalid_row_id", "invalid value"))
		return
	}

	var req setPaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.cycleSvc.SetPaymentStatus(c.Request.Context(), cycledomain.SetPaymentStatusRequest{
		RowID:        rowID,
		PaidFlag:     req.PaidFlag,
		RegistryFlag: req.RegistryFlag,
		Actor:        caller.Login,
		IsAdmin:      caller.Admin,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
