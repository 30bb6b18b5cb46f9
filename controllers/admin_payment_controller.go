package controllers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx"
	"github.com/upgradeforless/UpgradeForLess/models"
	"github.com/upgradeforless/UpgradeForLess/utils"
)

// RefundRequest is the admin refund body. A zero amount refunds in full.
type RefundRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// InitiateRefund starts a provider refund; the webhook settles it.
// POST /v1/admin/payments/:payment_id/refund
func (p *PaymentController) InitiateRefund(c *gin.Context) {
	utils.LogInfo("InitiateRefund called")
	paymentID := c.Param("payment_id")

	var req RefundRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequest(c, "Invalid refund request", utils.FieldErrors(err))
			return
		}
	}
	if req.Amount.IsNegative() {
		utils.BadRequest(c, "Refund amount cannot be negative", nil)
		return
	}
	amount, err := utils.ToMinorUnits(req.Amount)
	if err != nil {
		utils.BadRequest(c, "Amount has too many decimal places", err.Error())
		return
	}

	record, err := p.payments.InitiateRefund(c.Request.Context(), paymentID, amount)
	if err != nil {
		utils.AbortWithAppError(c, err)
		return
	}
	utils.Success(c, "Refund initiated", gin.H{"payment": record})
}

// ExportPayments downloads records created in [from, to) as xlsx.
// Dates are YYYY-MM-DD; to defaults to today, from to 30 days before to.
// GET /v1/admin/payments/export
func (p *PaymentController) ExportPayments(c *gin.Context) {
	utils.LogInfo("ExportPayments called")

	to := time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, 1)
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			utils.BadRequest(c, "Invalid 'to' date, expected YYYY-MM-DD", nil)
			return
		}
		to = parsed.AddDate(0, 0, 1)
	}
	from := to.AddDate(0, 0, -30)
	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			utils.BadRequest(c, "Invalid 'from' date, expected YYYY-MM-DD", nil)
			return
		}
		from = parsed
	}

	records, err := p.payments.ListBetween(c.Request.Context(), from, to)
	if err != nil {
		utils.AbortWithAppError(c, err)
		return
	}

	file, err := buildPaymentsWorkbook(records, from, to)
	if err != nil {
		utils.LogError("Failed to build payments export: %v", err)
		utils.InternalServerError(c, "Failed to create Excel file", nil)
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=payments_%s_%s.xlsx",
		from.Format("20060102"), to.AddDate(0, 0, -1).Format("20060102")))
	c.Status(http.StatusOK)
	if err := file.Write(c.Writer); err != nil {
		utils.LogError("Failed to write Excel file: %v", err)
		return
	}
	utils.LogInfo("Exported %d payments", len(records))
}

func buildPaymentsWorkbook(records []models.PaymentRecord, from, to time.Time) (*xlsx.File, error) {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Payments")
	if err != nil {
		return nil, err
	}

	bold := xlsx.NewStyle()
	font := xlsx.DefaultFont()
	font.Bold = true
	bold.Font = *font

	title := sheet.AddRow()
	title.AddCell().SetString(fmt.Sprintf("%s - Payments %s to %s", utils.AppName,
		from.Format("2006-01-02"), to.AddDate(0, 0, -1).Format("2006-01-02")))
	sheet.AddRow() // spacing

	headers := []string{"Payment ID", "Order ID", "Provider", "User ID", "Created", "Status", "Method",
		"Currency", "Amount", "Refund ID", "Refunded", "Refund Status", "Error"}
	headerRow := sheet.AddRow()
	for _, h := range headers {
		cell := headerRow.AddCell()
		cell.SetString(h)
		cell.SetStyle(bold)
	}

	totals := map[models.PaymentStatus]decimal.Decimal{}
	for _, r := range records {
		row := sheet.AddRow()
		row.AddCell().SetString(r.PaymentIDValue())
		row.AddCell().SetString(r.OrderID)
		row.AddCell().SetString(r.Provider)
		row.AddCell().SetString(r.UserID)
		row.AddCell().SetString(r.CreatedAt.Format("2006-01-02 15:04"))
		row.AddCell().SetString(string(r.Status))
		row.AddCell().SetString(r.PaymentMethod)
		row.AddCell().SetString(r.Currency)
		row.AddCell().SetFloat(utils.FromMinorUnits(r.Amount).InexactFloat64())
		row.AddCell().SetString(r.RefundID)
		row.AddCell().SetFloat(utils.FromMinorUnits(r.RefundAmount).InexactFloat64())
		row.AddCell().SetString(r.RefundStatus)
		row.AddCell().SetString(r.ErrorDescription)

		totals[r.Status] = totals[r.Status].Add(utils.FromMinorUnits(r.Amount))
	}

	sheet.AddRow() // spacing
	summary := sheet.AddRow()
	summary.AddCell().SetString("Summary")
	summary.Cells[0].SetStyle(bold)
	for _, status := range []models.PaymentStatus{
		models.StatusCreated, models.StatusAuthorized, models.StatusCaptured, models.StatusFailed,
		models.StatusRefundPending, models.StatusRefundFailed, models.StatusRefunded,
	} {
		total, ok := totals[status]
		if !ok {
			continue
		}
		row := sheet.AddRow()
		row.AddCell().SetString(utils.Humanize(string(status)))
		row.AddCell().SetString(total.StringFixed(2))
	}
	return file, nil
}
