package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/fundtrail/trace-service/internal/domain"
	"github.com/fundtrail/trace-service/internal/repository/elasticsearch"
	"github.com/fundtrail/trace-service/internal/service"
	"github.com/labstack/echo/v4"
)

// CaseHandler serializes the engine's structures over HTTP for the
// visualization layer.
type CaseHandler struct {
	caseService *service.CaseService
	searchRepo  *elasticsearch.SearchRepository
}

// NewCaseHandler creates the handler. searchRepo may be nil when
// Elasticsearch is unavailable.
func NewCaseHandler(caseService *service.CaseService, searchRepo *elasticsearch.SearchRepository) *CaseHandler {
	return &CaseHandler{
		caseService: caseService,
		searchRepo:  searchRepo,
	}
}

// ListCases handles GET /cases
func (h *CaseHandler) ListCases(c echo.Context) error {
	ids, err := h.caseService.CaseIDs(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list cases"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"available_ack_nos": ids})
}

// CaseGraph handles GET /cases/:ack_no/graph
func (h *CaseHandler) CaseGraph(c echo.Context) error {
	ackNo := strings.TrimSpace(c.Param("ack_no"))
	if ackNo == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing ack_no"})
	}

	root, err := h.caseService.CaseGraph(c.Request().Context(), ackNo)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to build case graph"})
	}
	return c.JSON(http.StatusOK, root)
}

// RegionSummary handles GET /cases/:ack_no/summary/regions
func (h *CaseHandler) RegionSummary(c echo.Context) error {
	ackNo := strings.TrimSpace(c.Param("ack_no"))

	summaries, err := h.caseService.SummarizeByRegion(c.Request().Context(), ackNo)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
	if summaries == nil {
		summaries = []domain.RegionSummary{}
	}
	return c.JSON(http.StatusOK, summaries)
}

// HeldTransactions handles GET /cases/:ack_no/holds
func (h *CaseHandler) HeldTransactions(c echo.Context) error {
	ackNo := strings.TrimSpace(c.Param("ack_no"))

	held, err := h.caseService.HeldTransactions(c.Request().Context(), ackNo)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
	if held == nil {
		held = []domain.HeldTransaction{}
	}
	return c.JSON(http.StatusOK, held)
}

// RegionTransactions handles GET /cases/:ack_no/regions/:region/transactions
func (h *CaseHandler) RegionTransactions(c echo.Context) error {
	ackNo := strings.TrimSpace(c.Param("ack_no"))
	region := c.Param("region")

	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page == 0 {
		page = 1
	}
	perPage, _ := strconv.Atoi(c.QueryParam("per_page"))
	if perPage == 0 {
		perPage = 50
	}

	result, err := h.caseService.RegionTransactions(c.Request().Context(), ackNo, region, page, perPage)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
	return c.JSON(http.StatusOK, result)
}

// SaveKYC handles POST /cases/kyc
func (h *CaseHandler) SaveKYC(c echo.Context) error {
	var update domain.KYCUpdate
	if err := c.Bind(&update); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid kyc payload"})
	}
	if update.TransferID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing transfer_id"})
	}

	if err := h.caseService.SaveKYC(c.Request().Context(), update); err != nil {
		if errors.Is(err, service.ErrCaseNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"status": "error", "message": "Transaction not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to save kyc"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "success"})
}

// DeleteCase handles DELETE /cases/:ack_no
func (h *CaseHandler) DeleteCase(c echo.Context) error {
	ackNo := strings.TrimSpace(c.Param("ack_no"))
	if ackNo == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing ack_no"})
	}

	if err := h.caseService.DeleteCase(c.Request().Context(), ackNo); err != nil {
		if errors.Is(err, service.ErrCaseNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "no transactions found for this case"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to delete case"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "deleted"})
}

// Analytics handles GET /analytics
func (h *CaseHandler) Analytics(c echo.Context) error {
	out, err := h.caseService.Analytics(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to compute analytics"})
	}
	return c.JSON(http.StatusOK, out)
}

// Search handles GET /search
func (h *CaseHandler) Search(c echo.Context) error {
	if h.searchRepo == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "search is not available"})
	}

	query := c.QueryParam("q")
	if query == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing query parameter 'q'"})
	}

	from, _ := strconv.Atoi(c.QueryParam("from"))
	size, _ := strconv.Atoi(c.QueryParam("size"))
	if size == 0 {
		size = 20
	}

	page, err := h.searchRepo.SearchTransactions(c.Request().Context(), query, from, size)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "search failed"})
	}
	return c.JSON(http.StatusOK, page)
}

// RegisterRoutes registers the API routes
func (h *CaseHandler) RegisterRoutes(e *echo.Group) {
	e.GET("/cases", h.ListCases)
	e.GET("/cases/:ack_no/graph", h.CaseGraph)
	e.GET("/cases/:ack_no/summary/regions", h.RegionSummary)
	e.GET("/cases/:ack_no/holds", h.HeldTransactions)
	e.GET("/cases/:ack_no/regions/:region/transactions", h.RegionTransactions)
	e.POST("/cases/kyc", h.SaveKYC)
	e.DELETE("/cases/:ack_no", h.DeleteCase)
	e.GET("/analytics", h.Analytics)
	e.GET("/search", h.Search)
}
