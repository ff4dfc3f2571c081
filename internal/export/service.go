package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/rod-records/internal/entity"
)

const sheet = "Records"

// RecordLister is the slice of the record store exports read from.
type RecordLister interface {
	List(ctx context.Context, limit int) ([]*entity.Record, error)
	ListNeedingVerification(ctx context.Context, limit int) ([]*entity.Record, error)
}

// Service produces XLSX bytes for review exports.
type Service struct {
	records RecordLister
	logger  *slog.Logger
}

func NewService(records RecordLister, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{records: records, logger: logger}
}

// ExportStoredXLSX exports stored records, newest first. onlyReview limits
// the export to records flagged for verification.
func (s *Service) ExportStoredXLSX(ctx context.Context, onlyReview bool, limit int) ([]byte, error) {
	var (
		recs []*entity.Record
		err  error
	)
	if onlyReview {
		recs, err = s.records.ListNeedingVerification(ctx, limit)
	} else {
		recs, err = s.records.List(ctx, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	return s.ExportXLSX(ctx, recs)
}

var headers = []string{
	"Source",
	"Identifier",
	"Party A",
	"Party B",
	"Date",
	"Identifier Conf.",
	"Party A Conf.",
	"Party B Conf.",
	"Date Conf.",
	"Needs Verification",
	"Engine",
	"Warnings",
	"Error",
}

// ExportXLSX writes one row per record. Rows that need verification are
// highlighted.
func (s *Service) ExportXLSX(ctx context.Context, recs []*entity.Record) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	reviewFill := excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"FFF2CC"}}
	review, err := f.NewStyle(&excelize.Style{Fill: reviewFill})
	if err != nil {
		return nil, err
	}
	percent, err := f.NewStyle(&excelize.Style{NumFmt: 9})
	if err != nil {
		return nil, err
	}
	reviewPercent, err := f.NewStyle(&excelize.Style{Fill: reviewFill, NumFmt: 9})
	if err != nil {
		return nil, err
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	_ = f.SetCellStyle(sheet, "A1", lastCol(1), bold)

	row := 2
	for _, r := range recs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fs := r.Result.Fields
		values := []any{
			r.SourcePath,
			fs.Identifier.Value,
			fs.PartyA.Value,
			fs.PartyB.Value,
			fs.Date.Value,
			fs.Identifier.Confidence,
			fs.PartyA.Confidence,
			fs.PartyB.Confidence,
			fs.Date.Confidence,
			r.Result.NeedsVerification,
			r.Result.Engine,
			truncate(strings.Join(r.Result.Warnings, "; "), 500),
			r.Result.Error,
		}
		first, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheet, first, &values); err != nil {
			return nil, fmt.Errorf("xlsx row %d: %w", row, err)
		}
		from, _ := excelize.CoordinatesToCellName(6, row)
		to, _ := excelize.CoordinatesToCellName(9, row)
		if r.Result.NeedsVerification {
			_ = f.SetCellStyle(sheet, first, lastCol(row), review)
			_ = f.SetCellStyle(sheet, from, to, reviewPercent)
		} else {
			_ = f.SetCellStyle(sheet, from, to, percent)
		}
		row++
	}

	// Widen a few columns
	_ = f.SetColWidth(sheet, "A", "A", 60) // source
	_ = f.SetColWidth(sheet, "B", "B", 16)
	_ = f.SetColWidth(sheet, "C", "D", 28) // parties
	_ = f.SetColWidth(sheet, "E", "E", 12)
	_ = f.SetColWidth(sheet, "F", "I", 14)
	_ = f.SetColWidth(sheet, "L", "M", 48)
	_ = f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(recs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func lastCol(row int) string {
	cell, _ := excelize.CoordinatesToCellName(len(headers), row)
	return cell
}

// truncate caps s at n characters, ending a cut string with an ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return string(r[:1])
	}
	return string(r[:n-1]) + "…"
}
