package controllers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jung-kurt/gofpdf"
	"github.com/upgradeforless/UpgradeForLess/middleware"
	"github.com/upgradeforless/UpgradeForLess/models"
	"github.com/upgradeforless/UpgradeForLess/utils"
)

// DownloadReceipt renders a PDF receipt for a settled payment.
// GET /v1/payments/:payment_id/receipt
func (p *PaymentController) DownloadReceipt(c *gin.Context) {
	utils.LogInfo("DownloadReceipt called")
	userID := middleware.UserID(c)
	paymentID := c.Param("payment_id")

	record, err := p.payments.GetForUser(c.Request.Context(), userID, paymentID)
	if err != nil {
		utils.LogWarn("Receipt lookup failed for %s (user %s): %v", paymentID, userID, err)
		utils.AbortWithAppError(c, err)
		return
	}
	switch record.Status {
	case models.StatusCaptured, models.StatusRefundPending, models.StatusRefundFailed, models.StatusRefunded:
	default:
		utils.BadRequest(c, fmt.Sprintf("No receipt for a payment in status %s", record.Status), nil)
		return
	}

	pdfBytes, err := renderReceipt(record)
	if err != nil {
		utils.LogError("Failed to render receipt for %s: %v", paymentID, err)
		utils.InternalServerError(c, "Failed to generate receipt", nil)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=receipt_%s.pdf", paymentID))
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
	utils.LogInfo("Receipt download completed for payment %s", paymentID)
}

func renderReceipt(record *models.PaymentRecord) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	// Header
	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(100, 10, utils.AppName)
	pdf.Ln(12)
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(100, 10, "PAYMENT RECEIPT")
	pdf.Ln(12)

	rows := [][2]string{
		{"Payment ID", record.PaymentIDValue()},
		{"Order ID", record.OrderID},
		{"Provider", record.Provider},
		{"Date", record.CreatedAt.Format("2006-01-02 15:04:05")},
		{"Payment Method", record.PaymentMethod},
		{"Status", utils.Humanize(string(record.Status))},
		{"Amount", utils.FormatAmount(record.Amount, record.Currency)},
	}
	if record.RefundAmount > 0 {
		rows = append(rows,
			[2]string{"Refund ID", record.RefundID},
			[2]string{"Refunded", utils.FormatAmount(record.RefundAmount, record.Currency)},
			[2]string{"Refund Status", utils.Humanize(record.RefundStatus)},
		)
	}

	for _, row := range rows {
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(50, 8, row[0]+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 12)
		pdf.CellFormat(120, 8, row[1], "", 1, "L", false, 0, "")
	}

	pdf.Ln(10)
	pdf.SetFont("Arial", "I", 11)
	pdf.Cell(0, 10, "This receipt was generated from the payment provider's confirmation.")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
