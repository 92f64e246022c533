package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	cycledomain "github.com/service-ns/paycycle/internal/cycle/domain"
)

type recordHistoryEntryRequest struct {
	Actor       string  `json:"actor"`
	AmountDue   float64 `json:"amount_due"`
	RequestFlag string  `json:"request_flag"`
}

func (s *Server) recordHistoryEntry(c *gin.Context) {
	var req recordHistoryEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	actor := req.Actor
	if actor == "" {
		if caller, ok := callerFrom(c); ok {
			actor = caller.Login
		}
	}

	resp, err := s.cycleSvc.RecordHistoryEntry(c.Request.Context(), cycledomain.RecordHistoryEntryRequest{
		InvoiceID:   c.Param("id"),
		Actor:       actor,
		AmountDue:   req.AmountDue,
		RequestFlag: req.RequestFlag,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type sourceAnnotationRequest struct {
	DivisionSource string `json:"division_source"`
	ObjectSource   string `json:"object_source"`
}

func (s *Server) setSourceAnnotation(c *gin.Context) {
	rowID, err := parseRowID(c.Param("row_id"))
	if err != nil {
		AbortWithError(c, newValidationError("row_id", "invalid_row_id", "invalid value"))
		return
	}

	var req sourceAnnotationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	annotation, err := s.cycleSvc.SetSourceAnnotation(c.Request.Context(), cycledomain.SetSourceAnnotationRequest{
		RowID:          rowID,
		DivisionSource: req.DivisionSource,
		ObjectSource:   req.ObjectSource,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": annotation})
}

// setCycleSourceAnnotation is the older per-cycle form. It resolves the
// latest row of the cycle server-side.
func (s *Server) setCycleSourceAnnotation(c *gin.Context) {
	var req sourceAnnotationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	annotation, err := s.cycleSvc.SetCycleSourceAnnotation(c.Request.Context(), cycledomain.SetCycleSourceAnnotationRequest{
		CycleID:        c.Param("id"),
		DivisionSource: req.DivisionSource,
		ObjectSource:   req.ObjectSource,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": annotation})
}
