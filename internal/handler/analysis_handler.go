package handler

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"backend/internal/engine"
	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// csvTemplate is the bulk import sheet, Excel-BR friendly: BOM, ';'
// separator, Portuguese headers.
const csvTemplate = "\ufeffPeriodo (MM/AAAA);Faturamento Total;Custo Folha Pagamento;Impostos Pagos;Regime Tributario;Custo Energia;Custo Insumos;Custo Aluguel\n" +
	"01/2024;100000.00;20000.00;5000.00;LUCRO_PRESUMIDO;1000.00;30000.00;2000.00\n" +
	"02/2024;120000.00;22000.00;6000.00;LUCRO_PRESUMIDO;1100.00;35000.00;2000.00\n"

// csvColumnMap translates the template's friendly headers to internal names.
var csvColumnMap = map[string]string{
	"Periodo (MM/AAAA)":     "periodo",
	"Faturamento Total":     "faturamento",
	"Custo Folha Pagamento": "folha",
	"Impostos Pagos":        "impostos_pagos",
	"Regime Tributario":     "regime_pagto",
	"Custo Energia":         "custo_energia",
	"Custo Insumos":         "custo_insumos",
	"Custo Aluguel":         "custo_aluguel",
}

type AnalysisHandler struct {
	analysisService service.AnalysisService
}

func NewAnalysisHandler(analysisService service.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{analysisService: analysisService}
}

func (h *AnalysisHandler) RegisterRoutes(router *gin.RouterGroup) {
	analysis := router.Group("/api/analysis")
	analysis.GET("/template", h.DownloadTemplate)
	analysis.Use(middleware.RequireRole("admin", "analyst"))
	{
		analysis.POST("", h.RunAnalysis)
		analysis.POST("/upload-csv", h.UploadCSV)
	}

	companies := router.Group("/api/companies")
	companies.Use(middleware.RequireRole("admin", "analyst"))
	{
		companies.GET("/:id/decisions", h.ListDecisions)
	}
}

// RunAnalysis executes the full audit for a company's fiscal history
// @Summary      Run tax audit analysis
// @Tags         analysis
// @Accept       json
// @Produce      json
// @Param        request body service.AnalysisRequest true "Company and fiscal history"
// @Success      200 {object} response.Response{data=service.AnalysisResponse}
// @Router       /api/analysis [post]
func (h *AnalysisHandler) RunAnalysis(c *gin.Context) {
	var req service.AnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.analysisService.AnalyzeHistory(c.Request.Context(), req, middleware.UserID(c))
	if err != nil {
		writeAnalysisError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// UploadCSV runs the audit over a bulk CSV upload
// @Summary      Run tax audit from CSV upload
// @Tags         analysis
// @Accept       multipart/form-data
// @Produce      json
// @Router       /api/analysis/upload-csv [post]
func (h *AnalysisHandler) UploadCSV(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Missing CSV file"))
		return
	}
	if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".csv") {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid format: a .csv file is required"))
		return
	}

	company := service.CompanyInput{
		Name:         c.PostForm("company_name"),
		CNPJ:         c.PostForm("cnpj"),
		Regime:       c.PostForm("regime"),
		ActivityCode: c.PostForm("activity_code"),
	}
	if company.Name == "" || company.CNPJ == "" || company.Regime == "" {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "company_name, cnpj and regime form fields are required"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Failed to open uploaded file"))
		return
	}
	defer file.Close()

	history, err := parseHistoryCSV(file, company.Regime)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	result, err := h.analysisService.AnalyzeHistory(c.Request.Context(), service.AnalysisRequest{
		Company: company,
		History: history,
	}, middleware.UserID(c))
	if err != nil {
		writeAnalysisError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// DownloadTemplate serves the import sheet
// @Summary      Download the CSV import template
// @Tags         analysis
// @Produce      text/csv
// @Router       /api/analysis/template [get]
func (h *AnalysisHandler) DownloadTemplate(c *gin.Context) {
	c.Header("Content-Disposition", "attachment; filename=modelo_auditoria.csv")
	c.Data(http.StatusOK, "text/csv", []byte(csvTemplate))
}

// ListDecisions returns the persisted decision records for a company
// @Summary      List decision records
// @Tags         analysis
// @Produce      json
// @Param        id path string true "Company ID"
// @Router       /api/companies/{id}/decisions [get]
func (h *AnalysisHandler) ListDecisions(c *gin.Context) {
	params := pagination.Parse(c)

	records, total, err := h.analysisService.ListDecisions(c.Request.Context(), c.Param("id"), params.Page, params.Limit)
	if err != nil {
		writeAnalysisError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, records, params.Page, params.Limit, total))
}

// writeAnalysisError maps engine error kinds to HTTP statuses.
func writeAnalysisError(c *gin.Context, err error) {
	var validation *engine.ValidationError
	if errors.As(err, &validation) {
		c.JSON(http.StatusUnprocessableEntity, response.Error(http.StatusUnprocessableEntity, validation.Error()))
		return
	}
	c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
}

// parseHistoryCSV reads the bulk sheet into fiscal month inputs. Accepts ';'
// (Excel-BR) or ',' separators and normalizes decimal commas.
func parseHistoryCSV(r io.Reader, fallbackRegime string) ([]service.FiscalMonthInput, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	text := strings.TrimPrefix(string(content), "\ufeff")

	separator := ','
	if line, _, found := strings.Cut(text, "\n"); found || line != "" {
		if strings.Count(line, ";") > strings.Count(line, ",") {
			separator = ';'
		}
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = separator
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("malformed CSV: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("CSV has no data rows")
	}

	// Resolve column positions via the friendly-header map; unmapped
	// headers are matched as-is so internal names also work.
	index := make(map[string]int)
	for i, header := range rows[0] {
		name := strings.TrimSpace(header)
		if internal, ok := csvColumnMap[name]; ok {
			name = internal
		}
		index[name] = i
	}
	for _, required := range []string{"periodo", "faturamento", "folha", "impostos_pagos"} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("CSV is missing required column %q", required)
		}
	}

	cell := func(row []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(row) {
			return ""
		}
		// Brazilian sheets often use decimal commas.
		return strings.ReplaceAll(strings.TrimSpace(row[i]), ",", ".")
	}

	history := make([]service.FiscalMonthInput, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		regime := fallbackRegime
		if i, ok := index["regime_pagto"]; ok && i < len(row) && strings.TrimSpace(row[i]) != "" {
			regime = strings.TrimSpace(row[i])
		}
		period := ""
		if i := index["periodo"]; i < len(row) {
			period = strings.TrimSpace(row[i])
		}
		history = append(history, service.FiscalMonthInput{
			Period:     period,
			Revenue:    cell(row, "faturamento"),
			Payroll:    cell(row, "folha"),
			PaidAmount: cell(row, "impostos_pagos"),
			PaidRegime: regime,
			Costs: service.CostsInput{
				EnergiaEletrica: cell(row, "custo_energia"),
				InsumosDiretos:  cell(row, "custo_insumos"),
				AluguelPredios:  cell(row, "custo_aluguel"),
			},
		})
	}
	return history, nil
}
