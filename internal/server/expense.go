package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	expensedomain "github.com/smallbiznis/ledgercraft/internal/expense/domain"
	"github.com/smallbiznis/ledgercraft/pkg/db/pagination"
)

type createExpenseRequest struct {
	Description      string          `json:"description"`
	Category         string          `json:"category"`
	Vendor           string          `json:"vendor"`
	Amount           decimal.Decimal `json:"amount"`
	GSTAmount        decimal.Decimal `json:"gst_amount"`
	ExpenseDate      *string         `json:"expense_date"`
	IsGSTClaimable   bool            `json:"is_gst_claimable"`
	IsCapitalExpense bool            `json:"is_capital_expense"`
	PaymentMethod    string          `json:"payment_method"`
	ReceiptURL       string          `json:"receipt_url"`
	Metadata         map[string]any  `json:"metadata"`
}

func (s *Server) CreateExpense(c *gin.Context) {
	var req createExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	expenseDate, err := parseOptionalDate(req.ExpenseDate)
	if err != nil {
		AbortWithError(c, newValidationError("expense_date", "invalid_expense_date", "invalid expense_date"))
		return
	}

	resp, err := s.expenseSvc.Create(c.Request.Context(), expensedomain.CreateExpenseRequest{
		Description:      strings.TrimSpace(req.Description),
		Category:         strings.TrimSpace(req.Category),
		Vendor:           strings.TrimSpace(req.Vendor),
		Amount:           req.Amount,
		GSTAmount:        req.GSTAmount,
		ExpenseDate:      expenseDate,
		IsGSTClaimable:   req.IsGSTClaimable,
		IsCapitalExpense: req.IsCapitalExpense,
		PaymentMethod:    strings.TrimSpace(req.PaymentMethod),
		ReceiptURL:       strings.TrimSpace(req.ReceiptURL),
		Metadata:         req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListExpenses(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Category string `form:"category"`
		From     string `form:"from"`
		To       string `form:"to"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	from, err := parseOptionalTime(query.From, false)
	if err != nil {
		AbortWithError(c, newValidationError("from", "invalid_from", "invalid from"))
		return
	}
	to, err := parseOptionalTime(query.To, false)
	if err != nil {
		AbortWithError(c, newValidationError("to", "invalid_to", "invalid to"))
		return
	}

	resp, err := s.expenseSvc.List(c.Request.Context(), expensedomain.ListExpenseRequest{
		PageToken: query.PageToken,
		PageSize:  int32(query.PageSize),
		Category:  strings.TrimSpace(query.Category),
		From:      from,
		To:        to,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetExpenseByID(c *gin.Context) {
	resp, err := s.expenseSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteExpense(c *gin.Context) {
	if err := s.expenseSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
