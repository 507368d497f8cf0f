package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/ledgercraft/internal/gst/aggregate"
	gstdomain "github.com/smallbiznis/ledgercraft/internal/gst/domain"
)

type gstReturnRequest struct {
	Quarter     string                `json:"quarter"`
	Year        int                   `json:"year"`
	Adjustments aggregate.Adjustments `json:"adjustments"`
	Notes       string                `json:"notes"`
}

func (r gstReturnRequest) prepare() gstdomain.PrepareReturnRequest {
	return gstdomain.PrepareReturnRequest{
		Quarter:     strings.TrimSpace(r.Quarter),
		Year:        r.Year,
		Adjustments: r.Adjustments,
	}
}

func (s *Server) GetGSTPeriod(c *gin.Context) {
	year, err := parseOptionalInt(c.Query("year"))
	if err != nil || year == nil {
		AbortWithError(c, newValidationError("year", "invalid_year", "invalid year"))
		return
	}

	period, err := s.gstSvc.Period(strings.TrimSpace(c.Query("quarter")), *year)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": period})
}

func (s *Server) PrepareGSTReturn(c *gin.Context) {
	var req gstReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.gstSvc.Prepare(c.Request.Context(), req.prepare())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SaveGSTReturn(c *gin.Context) {
	var req gstReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.gstSvc.Save(c.Request.Context(), gstdomain.SaveReturnRequest{
		PrepareReturnRequest: req.prepare(),
		Notes:                req.Notes,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListGSTReturns(c *gin.Context) {
	year, err := parseOptionalInt(c.Query("year"))
	if err != nil {
		AbortWithError(c, newValidationError("year", "invalid_year", "invalid year"))
		return
	}
	filter := 0
	if year != nil {
		filter = *year
	}

	resp, err := s.gstSvc.List(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetGSTReturnByID(c *gin.Context) {
	resp, err := s.gstSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) FileGSTReturn(c *gin.Context) {
	resp, err := s.gstSvc.File(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ExportGSTReturn(c *gin.Context) {
	doc, err := s.gstSvc.Export(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	writeAttachment(c, doc.FileName, doc.ContentType, doc.Body)
}

func (s *Server) PublishGSTReturnExport(c *gin.Context) {
	resp, err := s.gstSvc.PublishExport(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
