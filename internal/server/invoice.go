package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/service-ns/paycycle/internal/invoice/domain"
	"github.com/service-ns/paycycle/pkg/db/pagination"
)

type createInvoiceRequest struct {
	Submitter   string                 `json:"submitter"`
	Division    string                 `json:"division"`
	Object      string                 `json:"object"`
	Contractor  string                 `json:"contractor"`
	InvoiceNo   string                 `json:"invoice_no"`
	InvoiceDate string                 `json:"invoice_date"`
	DocumentRef string                 `json:"document_ref"`
	TotalAmount float64                `json:"total_amount"`
	Metadata    map[string]interface{} `json:"metadata"`
}

func (s *Server) createInvoice(c *gin.Context) {
	var req createInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	submitter := req.Submitter
	if submitter == "" {
		if caller, ok := callerFrom(c); ok {
			submitter = caller.Login
		}
	}

	invoiceDate, err := parseDate(req.InvoiceDate)
	if err != nil {
		AbortWithError(c, newValidationError("invoice_date", "invalid_invoice_date", "invalid value"))
		return
	}

	resp, err := s.invoiceSvc.Create(c.Request.Context(), invoicedomain.CreateInvoiceRequest{
		Submitter:   submitter,
		Division:    req.Division,
		Object:      req.Object,
		Contractor:  req.Contractor,
		InvoiceNo:   req.InvoiceNo,
		InvoiceDate: invoiceDate,
		DocumentRef: req.DocumentRef,
		TotalAmount: req.TotalAmount,
		Metadata:    req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) listInvoices(c *gin.Context) {
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

	resp, err := s.invoiceSvc.List(c.Request.Context(), invoicedomain.ListInvoicesRequest{
		Caller:      caller.Login,
		IsAdmin:     caller.Admin,
		Limit:       page.Limit,
		WithBalance: queryBool(c, "with_balance"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) getInvoice(c *gin.Context) {
	invoice, err := s.invoiceSvc.GetByID(c.Request.Context(), invoicedomain.GetInvoiceRequest{
		ID: c.Param("id"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": invoice})
}
