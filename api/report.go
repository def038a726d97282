package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-pdf/fpdf"

	"aa/models"
	"aa/store"
)

// GetSalesReport 產生所有已售出商品的PDF報表,只開放給管理員。
// 內容包含商品、成交金額、買家與聯絡方式
func (impl *ServerImpl) GetSalesReport(c *gin.Context) {
	const op = "GetSalesReport"
	if _, ok := impl.requireAdmin(c); !ok {
		return
	}
	items, _, err := impl.store.ListItems(c.Request.Context(), store.ItemFilter{
		Status:   models.StatusSold,
		SortKey:  "created_at",
		SortDesc: true,
	})
	if err != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to list sold items, err=%w", op, err))
		return
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetTitle("Sales Report", false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, "Sales Report", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, "Generated at "+time.Now().UTC().Format(time.RFC3339), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	headers := []string{"Item", "Type", "Final Price", "Buyer", "Email", "Phone", "Sold At"}
	widths := []float64{70, 22, 28, 40, 50, 30, 37}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, header := range headers {
		pdf.CellFormat(widths[i], 8, header, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	var total int64
	for _, item := range items {
		price := item.CurrentBid
		if item.AuctionType == models.AuctionDirect {
			price = item.StartingPrice
		}
		total += price
		soldAt := ""
		if item.SoldAt != nil {
			soldAt = item.SoldAt.UTC().Format("2006-01-02 15:04")
		}
		row := []string{
			item.Name,
			string(item.AuctionType),
			fmt.Sprintf("%d", price),
			item.BuyerName,
			item.BuyerEmail,
			item.BuyerPhone,
			soldAt,
		}
		for i, cell := range row {
			pdf.CellFormat(widths[i], 8, cell, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 8, fmt.Sprintf("Items sold: %d    Total: %d", len(items), total), "", 1, "L", false, 0, "")

	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", `attachment; filename="sales-report.pdf"`)
	c.Status(http.StatusOK)
	if err := pdf.Output(c.Writer); err != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to render report, err=%w", op, err))
	}
}
