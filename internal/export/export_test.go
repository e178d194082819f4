package export

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"github.com/werkzeit/werkzeit/internal/invoices"
	"github.com/werkzeit/werkzeit/internal/shared"
)

func TestSPDPayload(t *testing.T) {
	payload := SPDPayload("SK3112000000198742637541", 739.5, "FA-2025-0042", "Jozef Kovac")
	require.Equal(t, "SPD*1.0*ACC:SK3112000000198742637541*AM:739.50*CC:EUR*MSG:FA-2025-0042*RN:Jozef Kovac", payload)
}

func TestSPDPayloadStripsSeparators(t *testing.T) {
	payload := SPDPayload(" SK31 ", 10, "note*with*stars", "A*B")
	require.NotContains(t, strings.TrimPrefix(payload, "SPD*1.0*"), "**")
	require.Contains(t, payload, "MSG:note with stars")
	require.Contains(t, payload, "RN:A B")
}

func TestQRDataURI(t *testing.T) {
	uri, err := QRDataURI("SPD*1.0*ACC:SK31*AM:10.00*CC:EUR*MSG:x*RN:y", 180)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))
}

func TestSafeFilenameFoldsDiacritics(t *testing.T) {
	require.Equal(t, "Jozef Kovac", SafeFilename("Jozef Kováč"))
	require.Equal(t, "Stur_projekt", SafeFilename("Štúr/projekt"))
}

func TestSheetNameTruncatesByRunes(t *testing.T) {
	long := strings.Repeat("Čč", 20)
	got := sheetName(long)
	require.Equal(t, 31, len([]rune(got)))
	require.True(t, utf8.ValidString(got))
	require.Equal(t, string([]rune(long)[:31]), got)

	require.Equal(t, "Jozef Kováč", sheetName("Jozef Kováč"))
	require.Equal(t, "Pracovnik", sheetName("  "))
}

func TestWeeklyReportFilename(t *testing.T) {
	week := shared.Week{Year: 2025, Week: 42}
	name := WeeklyReportFilename(week, "FA-2025-0007", "Jozef Kováč", "BD-RUZ")
	require.Equal(t, "42 KW FA-2025-0007 Jozef Kovac BD-RUZ.pdf", name)
}

func TestInvoiceFilename(t *testing.T) {
	require.Equal(t, "Faktura_FA-2025-0001.pdf", InvoiceFilename("FA-2025-0001"))
}

func TestBuildInvoiceHTML(t *testing.T) {
	doc := InvoiceDocument{
		Invoice: invoices.Invoice{
			Number:     "FA-2025-0042",
			WorkerName: "Jozef Kováč",
			WorkerIBAN: "SK3112000000198742637541",
			ISOYear:    2025,
			ISOWeek:    42,
			Hours:      42.5,
			HourlyRate: 14.5,
			Subtotal:   616.25,
			TaxRate:    0.20,
			TaxAmount:  123.25,
			Total:      739.5,
			IssuedAt:   time.Date(2025, 10, 20, 0, 0, 0, 0, time.UTC),
			DueAt:      time.Date(2025, 11, 3, 0, 0, 0, 0, time.UTC),
		},
		QRDataURI: "data:image/png;base64,AAAA",
	}
	html := BuildInvoiceHTML(doc)
	require.Contains(t, html, "Faktura FA-2025-0042")
	require.Contains(t, html, "KW 42/2025")
	require.Contains(t, html, "739.50")
	require.Contains(t, html, "data:image/png;base64,AAAA")
	require.Contains(t, html, "20.10.2025")
	require.NotContains(t, html, "signature")
}

func TestBuildTimesheetWorkbook(t *testing.T) {
	week := shared.Week{Year: 2025, Week: 42}
	monday := time.Date(2025, 10, 13, 0, 0, 0, 0, time.UTC)
	rows := []TimesheetRow{
		{WorkerName: "Jozef Kováč", WorkDate: monday, Start: "07:00", End: "16:00", Hours: 8.5},
		{WorkerName: "Jozef Kováč", WorkDate: monday.AddDate(0, 0, 1), Start: "07:00", End: "15:00", Hours: 7.5},
		{WorkerName: "Peter Novák", WorkDate: monday, Start: "08:00", End: "16:00", Hours: 8},
	}

	f, err := BuildTimesheetWorkbook(week, rows)
	require.NoError(t, err)

	sheets := f.GetSheetList()
	require.Equal(t, []string{"Jozef Kováč", "Peter Novák"}, sheets)

	name, err := f.GetCellValue("Jozef Kováč", "A1")
	require.NoError(t, err)
	require.Equal(t, "Jozef Kováč", name)

	total, err := f.GetCellValue("Jozef Kováč", "D5")
	require.NoError(t, err)
	require.Equal(t, "16", total)

	label, err := f.GetCellValue("Jozef Kováč", "A5")
	require.NoError(t, err)
	require.Equal(t, "Spolu", label)
}

func TestBuildTimesheetWorkbookEmptyWeek(t *testing.T) {
	f, err := BuildTimesheetWorkbook(shared.Week{Year: 2025, Week: 42}, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"Prazdny tyzden"}, f.GetSheetList())
}
