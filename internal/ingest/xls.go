package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/extrame/xls"
	"github.com/richardlehane/mscfb"
)

// xlsMaxColumns is the BIFF8 column limit.
const xlsMaxColumns = 256

var errNoWorkbookStream = errors.New("no Workbook stream in compound file")

// parseXLS reads the first sheet of a legacy BIFF workbook.
func parseXLS(path string) (res Result, err error) {
	res = newResult(FormatCSVExcel, LabelXLS)

	data, err := os.ReadFile(path)
	if err != nil {
		return res, fmt.Errorf("read %s: %w", path, err)
	}
	if err := checkCompound(data); err != nil {
		res.fail("error reading spreadsheet: %v", err)
		return res, nil
	}

	// The BIFF reader indexes records without bounds checks.
	defer func() {
		if r := recover(); r != nil {
			res = newResult(FormatCSVExcel, LabelXLS)
			res.fail("error reading spreadsheet: %v", r)
			err = nil
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		res.fail("error reading spreadsheet: %v", err)
		return res, nil
	}
	if wb == nil {
		res.fail("error reading spreadsheet: %v", errNoWorkbookStream)
		return res, nil
	}
	if wb.NumSheets() == 0 {
		res.fail(MsgNoDataRows)
		res.fail(MsgNoColumns)
		return res, nil
	}

	sheet := wb.GetSheet(0)
	res.Detail["sheet"] = sheet.Name

	evaluateTable(&res, sheetRows(sheet))
	return res, nil
}

// checkCompound walks the compound file and reads the workbook stream
// through, so broken sector chains come back as errors.
func checkCompound(data []byte) error {
	doc, err := mscfb.New(bytes.NewReader(data))
	if err != nil {
		return err
	}
	for {
		entry, err := doc.Next()
		if errors.Is(err, io.EOF) {
			return errNoWorkbookStream
		}
		if err != nil {
			return err
		}
		if entry.Name != "Workbook" && entry.Name != "Book" {
			continue
		}
		if _, err := io.Copy(io.Discard, entry); err != nil {
			return fmt.Errorf("workbook stream: %w", err)
		}
		return nil
	}
}

func sheetRows(sheet *xls.WorkSheet) [][]string {
	rows := make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		rows = append(rows, rowCells(sheet, i))
	}
	return rows
}

// rowCells returns the cells of row i with trailing blanks trimmed. Rows
// missing from the sheet come back empty.
func rowCells(sheet *xls.WorkSheet, i int) (cells []string) {
	// WorkSheet.Row dereferences rows absent from the sheet.
	defer func() {
		if recover() != nil {
			cells = nil
		}
	}()

	row := sheet.Row(i)
	last := row.LastCol()
	if last <= 0 || last > xlsMaxColumns {
		last = xlsMaxColumns
	}
	cells = make([]string, last)
	for c := range cells {
		cells[c] = row.Col(c)
	}
	for len(cells) > 0 && cells[len(cells)-1] == "" {
		cells = cells[:len(cells)-1]
	}
	return cells
}
