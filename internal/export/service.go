package export

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/werkzeit/werkzeit/internal/invoices"
	"github.com/werkzeit/werkzeit/internal/shared"
)

// InvoiceSource resolves invoices for rendering.
type InvoiceSource interface {
	Get(ctx context.Context, id uuid.UUID) (invoices.Invoice, error)
}

// Config carries rendering options.
type Config struct {
	// CompanyIBAN is the payment fallback when a worker has no IBAN.
	CompanyIBAN string
	// Signature is an optional image data URI stamped on invoices.
	Signature string
	// BackupVersion tags the JSON snapshot format.
	BackupVersion string
}

// Service produces the downloadable artifacts.
type Service struct {
	repo      *Repository
	gotenberg *Gotenberg
	invoices  InvoiceSource
	cfg       Config
	now       func() time.Time
}

// NewService constructs a Service.
func NewService(repo *Repository, gotenberg *Gotenberg, invoiceSource InvoiceSource, cfg Config) *Service {
	return &Service{
		repo:      repo,
		gotenberg: gotenberg,
		invoices:  invoiceSource,
		cfg:       cfg,
		now:       time.Now,
	}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// InvoicePDF renders one invoice to PDF. When projectID is set the
// file takes the weekly report name carrying the project code.
func (s *Service) InvoicePDF(ctx context.Context, invoiceID uuid.UUID, projectID *uuid.UUID) (string, []byte, error) {
	inv, err := s.invoices.Get(ctx, invoiceID)
	if err != nil {
		return "", nil, err
	}

	iban := inv.WorkerIBAN
	if iban == "" {
		iban = s.cfg.CompanyIBAN
	}
	payload := SPDPayload(iban, inv.Total, inv.Number, inv.WorkerName)
	qr, err := QRDataURI(payload, 360)
	if err != nil {
		return "", nil, err
	}

	htmlDoc := BuildInvoiceHTML(InvoiceDocument{
		Invoice:   inv,
		QRDataURI: qr,
		Signature: s.cfg.Signature,
	})
	pdf, err := s.gotenberg.RenderHTML(ctx, htmlDoc)
	if err != nil {
		return "", nil, err
	}

	name := InvoiceFilename(inv.Number)
	if projectID != nil {
		code, err := s.repo.ProjectCode(ctx, *projectID)
		if err != nil {
			return "", nil, err
		}
		week := shared.Week{Year: inv.ISOYear, Week: inv.ISOWeek}
		name = WeeklyReportFilename(week, inv.Number, inv.WorkerName, code)
	}
	return name, pdf, nil
}

// TimesheetXLSX builds the Excel timesheet for one project-week, one
// worksheet per worker.
func (s *Service) TimesheetXLSX(ctx context.Context, projectID uuid.UUID, week shared.Week) (string, []byte, error) {
	code, err := s.repo.ProjectCode(ctx, projectID)
	if err != nil {
		return "", nil, err
	}
	rows, err := s.repo.TimesheetRows(ctx, projectID, week)
	if err != nil {
		return "", nil, err
	}
	workbook, err := BuildTimesheetWorkbook(week, rows)
	if err != nil {
		return "", nil, err
	}
	buf, err := workbook.WriteToBuffer()
	if err != nil {
		return "", nil, err
	}
	return TimesheetFilename(week, code), buf.Bytes(), nil
}

// BackupSnapshot assembles the admin JSON backup. The table snapshots
// are independent reads so they run concurrently.
func (s *Service) BackupSnapshot(ctx context.Context) (Backup, error) {
	b := Backup{
		ExportedAt: s.now().UTC(),
		Version:    s.cfg.BackupVersion,
	}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		b.Profiles, err = s.repo.SnapshotProfiles(ctx)
		return err
	})
	g.Go(func() (err error) {
		b.Projects, err = s.repo.SnapshotProjects(ctx)
		return err
	})
	g.Go(func() (err error) {
		b.Records, err = s.repo.SnapshotRecords(ctx)
		return err
	})
	g.Go(func() (err error) {
		b.Invoices, err = s.repo.SnapshotInvoices(ctx)
		return err
	})
	g.Go(func() (err error) {
		b.Accommodations, err = s.repo.SnapshotAccommodations(ctx)
		return err
	})
	g.Go(func() (err error) {
		b.Assignments, err = s.repo.SnapshotAssignments(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Backup{}, err
	}
	return b, nil
}
