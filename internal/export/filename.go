package export

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/werkzeit/werkzeit/internal/shared"
)

var foldDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// SafeFilename folds diacritics and strips characters that break
// download headers or filesystems.
func SafeFilename(name string) string {
	folded, _, err := transform.String(foldDiacritics, name)
	if err != nil {
		folded = name
	}
	var b strings.Builder
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return strings.TrimSpace(b.String())
}

// InvoiceFilename names the invoice PDF, e.g. "Faktura_FA-2025-0042.pdf".
func InvoiceFilename(number string) string {
	return SafeFilename("Faktura_" + number + ".pdf")
}

// WeeklyReportFilename names the weekly report PDF, e.g.
// "42 KW FA-2025-0042 Jozef Kovac BD-RUZ.pdf".
func WeeklyReportFilename(week shared.Week, invoiceNumber, workerName, projectCode string) string {
	return SafeFilename(fmt.Sprintf("%d KW %s %s %s.pdf", week.Week, invoiceNumber, workerName, projectCode))
}

// TimesheetFilename names the Excel timesheet for one project-week.
func TimesheetFilename(week shared.Week, projectCode string) string {
	return SafeFilename(fmt.Sprintf("Dochadzka %s KW %d-%d.xlsx", projectCode, week.Week, week.Year))
}
