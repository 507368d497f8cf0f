package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/ledgercraft/internal/invoice/calc"
	invoicedomain "github.com/smallbiznis/ledgercraft/internal/invoice/domain"
	"github.com/smallbiznis/ledgercraft/pkg/db/pagination"
)

type invoiceLinesRequest struct {
	Items    []invoicedomain.LineItemInput `json:"items"`
	Charges  []invoicedomain.ChargeInput   `json:"additional_charges"`
	Discount decimal.Decimal               `json:"discount"`
	Currency string                        `json:"currency"`
}

type createInvoiceRequest struct {
	invoiceLinesRequest
	CustomerID string         `json:"customer_id"`
	IssueDate  *string        `json:"issue_date"`
	DueDate    *string        `json:"due_date"`
	Notes      string         `json:"notes"`
	Terms      string         `json:"terms"`
	Metadata   map[string]any `json:"metadata"`
}

type updateInvoiceRequest struct {
	IssueDate *string                       `json:"issue_date"`
	DueDate   *string                       `json:"due_date"`
	Items     []invoicedomain.LineItemInput `json:"items"`
	Charges   []invoicedomain.ChargeInput   `json:"additional_charges"`
	Discount  *decimal.Decimal              `json:"discount"`
	Notes     *string                       `json:"notes"`
	Terms     *string                       `json:"terms"`
}

type toggleChargeRequest struct {
	IsActive *bool `json:"is_active"`
}

type chargeLineResponse struct {
	ID              string               `json:"id,omitempty"`
	Type            string               `json:"type"`
	Label           string               `json:"label"`
	CalculationType calc.CalculationType `json:"calculation_type"`
	Amount          decimal.Decimal      `json:"amount"`
	IsActive        bool                 `json:"is_active"`
	Contribution    decimal.Decimal      `json:"contribution"`
}

type totalsResponse struct {
	Currency               string               `json:"currency"`
	Subtotal               decimal.Decimal      `json:"subtotal"`
	Discount               decimal.Decimal      `json:"discount"`
	TaxAmount              decimal.Decimal      `json:"tax_amount"`
	AdditionalChargesTotal decimal.Decimal      `json:"additional_charges_total"`
	Total                  decimal.Decimal      `json:"total"`
	Charges                []chargeLineResponse `json:"additional_charges"`
}

func newTotalsResponse(t calc.Totals) totalsResponse {
	charges := make([]chargeLineResponse, 0, len(t.Charges))
	for _, line := range t.Charges {
		charges = append(charges, chargeLineResponse{
			ID:              line.ID,
			Type:            line.Type,
			Label:           line.Label,
			CalculationType: line.CalculationType,
			Amount:          line.Amount,
			IsActive:        line.IsActive,
			Contribution:    line.Contribution,
		})
	}
	return totalsResponse{
		Currency:               t.Currency,
		Subtotal:               t.Subtotal,
		Discount:               t.Discount,
		TaxAmount:              t.TaxAmount,
		AdditionalChargesTotal: t.AdditionalChargesTotal,
		Total:                  t.Total,
		Charges:                charges,
	}
}

func (s *Server) PreviewInvoiceTotals(c *gin.Context) {
	var req invoiceLinesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	totals, err := s.invoiceSvc.PreviewTotals(c.Request.Context(), invoicedomain.PreviewTotalsRequest{
		Items:    req.Items,
		Charges:  req.Charges,
		Discount: req.Discount,
		Currency: strings.TrimSpace(req.Currency),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": newTotalsResponse(totals)})
}

func (s *Server) CreateInvoice(c *gin.Context) {
	var req createInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	issueDate, err := parseOptionalDate(req.IssueDate)
	if err != nil {
		AbortWithError(c, newValidationError("issue_date", "invalid_issue_date", "invalid issue_date"))
		return
	}
	dueDate, err := parseOptionalDate(req.DueDate)
	if err != nil {
		AbortWithError(c, newValidationError("due_date", "invalid_due_date", "invalid due_date"))
		return
	}

	resp, err := s.invoiceSvc.Create(c.Request.Context(), invoicedomain.CreateInvoiceRequest{
		CustomerID: strings.TrimSpace(req.CustomerID),
		Currency:   strings.TrimSpace(req.Currency),
		IssueDate:  issueDate,
		DueDate:    dueDate,
		Items:      req.Items,
		Charges:    req.Charges,
		Discount:   req.Discount,
		Notes:      req.Notes,
		Terms:      req.Terms,
		Metadata:   req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) UpdateInvoice(c *gin.Context) {
	var req updateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	issueDate, err := parseOptionalDate(req.IssueDate)
	if err != nil {
		AbortWithError(c, newValidationError("issue_date", "invalid_issue_date", "invalid issue_date"))
		return
	}
	dueDate, err := parseOptionalDate(req.DueDate)
	if err != nil {
		AbortWithError(c, newValidationError("due_date", "invalid_due_date", "invalid due_date"))
		return
	}

	resp, err := s.invoiceSvc.Update(c.Request.Context(), invoicedomain.UpdateInvoiceRequest{
		ID:        strings.TrimSpace(c.Param("id")),
		IssueDate: issueDate,
		DueDate:   dueDate,
		Items:     req.Items,
		Charges:   req.Charges,
		Discount:  req.Discount,
		Notes:     req.Notes,
		Terms:     req.Terms,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ToggleInvoiceCharge(c *gin.Context) {
	var req toggleChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IsActive == nil {
		AbortWithError(c, newValidationError("is_active", "invalid_is_active", "is_active is required"))
		return
	}

	resp, err := s.invoiceSvc.ToggleCharge(c.Request.Context(), invoicedomain.ToggleChargeRequest{
		InvoiceID: strings.TrimSpace(c.Param("id")),
		ChargeID:  strings.TrimSpace(c.Param("chargeId")),
		IsActive:  *req.IsActive,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListInvoices(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Status        string `form:"status"`
		CustomerID    string `form:"customer_id"`
		InvoiceNumber string `form:"invoice_number"`
		IssuedFrom    string `form:"issued_from"`
		IssuedTo      string `form:"issued_to"`
		SortBy        string `form:"sort_by"`
		OrderBy       string `form:"order_by"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	issuedFrom, err := parseOptionalTime(query.IssuedFrom, false)
	if err != nil {
		AbortWithError(c, newValidationError("issued_from", "invalid_issued_from", "invalid issued_from"))
		return
	}
	issuedTo, err := parseOptionalTime(query.IssuedTo, true)
	if err != nil {
		AbortWithError(c, newValidationError("issued_to", "invalid_issued_to", "invalid issued_to"))
		return
	}

	var status *invoicedomain.InvoiceStatus
	if value := strings.TrimSpace(query.Status); value != "" {
		parsed := invoicedomain.InvoiceStatus(strings.ToLower(value))
		status = &parsed
	}

	resp, err := s.invoiceSvc.List(c.Request.Context(), invoicedomain.ListInvoiceRequest{
		PageToken:     query.PageToken,
		PageSize:      int32(query.PageSize),
		Status:        status,
		CustomerID:    strings.TrimSpace(query.CustomerID),
		InvoiceNumber: strings.TrimSpace(query.InvoiceNumber),
		IssuedFrom:    issuedFrom,
		IssuedTo:      issuedTo,
		SortBy:        strings.TrimSpace(query.SortBy),
		OrderBy:       strings.TrimSpace(query.OrderBy),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetInvoiceByID(c *gin.Context) {
	resp, err := s.invoiceSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SendInvoice(c *gin.Context) {
	resp, err := s.invoiceSvc.Send(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CancelInvoice(c *gin.Context) {
	resp, err := s.invoiceSvc.Cancel(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RenderInvoicePDF(c *gin.Context) {
	doc, err := s.invoiceSvc.RenderPDF(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	writeAttachment(c, doc.FileName, doc.ContentType, doc.Body)
}

func (s *Server) PublishInvoicePDF(c *gin.Context) {
	resp, err := s.invoiceSvc.PublishPDF(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func writeAttachment(c *gin.Context, fileName, contentType string, body []byte) {
	c.Header("Content-Disposition", `attachment; filename="`+fileName+`"`)
	c.Data(http.StatusOK, contentType, body)
}
