package loader

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/poiesic/docchat/core"
	"github.com/unidoc/unioffice/common/license"
	"github.com/unidoc/unioffice/spreadsheet"
	"github.com/xuri/excelize/v2"
)

// ErrSpreadsheetLicense indicates the unioffice license key was rejected.
var ErrSpreadsheetLicense = errors.New("spreadsheet license key rejected")

// SpreadsheetExtractor renders every sheet of an .xlsx workbook as text.
// Each sheet becomes a "# <name>" heading followed by one tab-separated
// line per row.
//
// Workbooks are read with excelize. When a unioffice license key is
// configured, unioffice reads them instead so cell number formats are
// rendered the way unioffice formats them.
type SpreadsheetExtractor struct {
	licenseKey string
	once       sync.Once
	licenseErr error
}

var _ Extractor = (*SpreadsheetExtractor)(nil)

// NewSpreadsheetExtractor returns an .xlsx extractor. A non-empty licenseKey
// is installed as the unioffice metered key before the first workbook is opened.
func NewSpreadsheetExtractor(licenseKey string) *SpreadsheetExtractor {
	return &SpreadsheetExtractor{licenseKey: licenseKey}
}

func (e *SpreadsheetExtractor) Format() string {
	return core.FormatSpreadsheet
}

func (e *SpreadsheetExtractor) Extract(ctx context.Context, path string) (*Extraction, error) {
	var (
		sheets []sheet
		err    error
	)
	if e.licenseKey == "" {
		sheets, err = readExcelize(ctx, path)
	} else {
		sheets, err = e.readUnioffice(ctx, path)
	}
	if err != nil {
		return nil, err
	}

	return &Extraction{
		Text:     renderSheets(sheets),
		Metadata: map[string]any{core.MetaSheets: len(sheets)},
	}, nil
}

type sheet struct {
	name string
	rows [][]string
}

func renderSheets(sheets []sheet) string {
	var b strings.Builder
	for _, s := range sheets {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("# ")
		b.WriteString(s.name)
		b.WriteString("\n")
		for _, row := range s.rows {
			line := strings.TrimRight(strings.Join(row, "\t"), "\t")
			if line == "" {
				continue
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func readExcelize(ctx context.Context, path string) ([]sheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	names := f.GetSheetList()
	sheets := make([]sheet, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", name, err)
		}
		sheets = append(sheets, sheet{name: name, rows: rows})
	}
	return sheets, nil
}

func (e *SpreadsheetExtractor) readUnioffice(ctx context.Context, path string) ([]sheet, error) {
	if err := e.applyLicense(); err != nil {
		return nil, err
	}

	wb, err := spreadsheet.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer wb.Close()

	var sheets []sheet
	for _, s := range wb.Sheets() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var rows [][]string
		for _, row := range s.Rows() {
			cells := row.Cells()
			values := make([]string, 0, len(cells))
			for _, cell := range cells {
				values = append(values, cell.GetFormattedValue())
			}
			rows = append(rows, values)
		}
		sheets = append(sheets, sheet{name: s.Name(), rows: rows})
	}
	return sheets, nil
}

func (e *SpreadsheetExtractor) applyLicense() error {
	e.once.Do(func() {
		if err := license.SetMeteredKey(e.licenseKey); err != nil {
			e.licenseErr = fmt.Errorf("%w: %w", ErrSpreadsheetLicense, err)
		}
	})
	return e.licenseErr
}
