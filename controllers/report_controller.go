package controllers

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/neraa-rental/orders-api/logger"
	"github.com/neraa-rental/orders-api/services"
	"go.uber.org/zap"
)

// DownloadOrdersReport handles GET /api/v1/admin/reports/orders.csv?type=daily|monthly&date=
func DownloadOrdersReport(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	window, err := services.ResolveWindow(c.Query("type"), c.Query("date"))
	if err != nil {
		handleError(c, err)
		return
	}

	orders, err := services.GetReportService().OrdersInWindow(c.Request.Context(), actor, window)
	if err != nil {
		handleError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := services.WriteCSVReport(&buf, orders); err != nil {
		handleError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+services.ReportFilename(window)+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// Headers reporting how complete a bill archive is
const (
	BillsWrittenHeader       = "X-Bills-Written"
	BillsSkippedHeader       = "X-Bills-Skipped"
	BillsSkippedOrdersHeader = "X-Bills-Skipped-Orders"
)

// DownloadBillsArchive handles GET /api/v1/admin/reports/bills.zip?type=daily|monthly&date=
func DownloadBillsArchive(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	window, err := services.ResolveWindow(c.Query("type"), c.Query("date"))
	if err != nil {
		handleError(c, err)
		return
	}

	reports := services.GetReportService()
	orders, err := reports.OrdersInWindow(c.Request.Context(), actor, window)
	if err != nil {
		handleError(c, err)
		return
	}

	var buf bytes.Buffer
	result, err := reports.ExportBills(c.Request.Context(), orders, services.NewZipArchive(&buf, time.Now()))
	if err != nil {
		handleError(c, err)
		return
	}
	c.Header(BillsWrittenHeader, strconv.Itoa(len(result.Written)))
	c.Header(BillsSkippedHeader, strconv.Itoa(len(result.Skipped)))
	if len(result.Skipped) > 0 {
		ids := make([]string, len(result.Skipped))
		for i, id := range result.Skipped {
			ids[i] = strconv.FormatUint(uint64(id), 10)
		}
		c.Header(BillsSkippedOrdersHeader, strings.Join(ids, ","))
		logger.FromGin(c).Warn("Bill archive is missing bills",
			zap.String("window", string(window.Kind)+" "+window.Selector),
			zap.Any("skipped", result.Skipped),
		)
	}

	c.Header("Content-Disposition", `attachment; filename="`+services.ArchiveFilename(window)+`"`)
	c.Data(http.StatusOK, "application/zip", buf.Bytes())
}
