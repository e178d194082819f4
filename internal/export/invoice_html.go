package export

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/werkzeit/werkzeit/internal/invoices"
	"github.com/werkzeit/werkzeit/internal/shared"
)

// InvoiceDocument carries everything the invoice PDF needs besides the
// invoice itself.
type InvoiceDocument struct {
	Invoice   invoices.Invoice
	QRDataURI string
	// Signature is an optional image data URI stamped under the totals.
	Signature string
}

// BuildInvoiceHTML renders the invoice as self-contained HTML for the
// PDF converter.
func BuildInvoiceHTML(doc InvoiceDocument) string {
	inv := doc.Invoice
	week := shared.Week{Year: inv.ISOYear, Week: inv.ISOWeek}

	var b strings.Builder
	b.WriteString("<html><head><meta charset=\"utf-8\"><style>")
	b.WriteString("body{font-family:sans-serif;margin:32px;color:#222;}h1{font-size:22px;margin-bottom:4px;}table{width:100%;border-collapse:collapse;margin:16px 0;}th,td{border:1px solid #ccc;padding:8px;text-align:right;}th{text-align:left;background:#f5f5f5;}.meta{color:#555;margin-bottom:24px;}.totals td{font-weight:bold;}.qr{margin-top:24px;}.signature{margin-top:32px;max-height:80px;}")
	b.WriteString("</style></head><body>")

	b.WriteString(fmt.Sprintf("<h1>Faktura %s</h1>", html.EscapeString(inv.Number)))
	b.WriteString(fmt.Sprintf("<p class=\"meta\">%s &middot; %s<br>Vystavena %s &middot; Splatnost %s</p>",
		html.EscapeString(inv.WorkerName),
		html.EscapeString(week.String()),
		inv.IssuedAt.Format("02.01.2006"),
		inv.DueAt.Format("02.01.2006")))

	b.WriteString("<table><thead><tr><th>Polozka</th><th>Hodiny</th><th>Sadzba</th><th>Suma</th></tr></thead><tbody>")
	b.WriteString("<tr><td style=\"text-align:left\">")
	b.WriteString(html.EscapeString("Vykonane prace " + week.String()))
	b.WriteString("</td><td>")
	b.WriteString(formatAmount(inv.Hours))
	b.WriteString("</td><td>")
	b.WriteString(formatAmount(inv.HourlyRate))
	b.WriteString("</td><td>")
	b.WriteString(formatAmount(inv.Subtotal))
	b.WriteString("</td></tr>")
	b.WriteString(fmt.Sprintf("<tr><td style=\"text-align:left\" colspan=\"3\">DPH %s %%</td><td>%s</td></tr>",
		formatAmount(inv.TaxRate*100), formatAmount(inv.TaxAmount)))
	b.WriteString(fmt.Sprintf("<tr class=\"totals\"><td style=\"text-align:left\" colspan=\"3\">Spolu EUR</td><td>%s</td></tr>",
		formatAmount(inv.Total)))
	b.WriteString("</tbody></table>")

	if inv.WorkerIBAN != "" {
		b.WriteString(fmt.Sprintf("<p>IBAN: %s</p>", html.EscapeString(inv.WorkerIBAN)))
	}
	if doc.QRDataURI != "" {
		b.WriteString(fmt.Sprintf("<img class=\"qr\" src=\"%s\" alt=\"QR platba\" width=\"180\" height=\"180\">", doc.QRDataURI))
	}
	if doc.Signature != "" {
		b.WriteString(fmt.Sprintf("<img class=\"signature\" src=\"%s\" alt=\"podpis\">", doc.Signature))
	}

	b.WriteString("</body></html>")
	return b.String()
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
