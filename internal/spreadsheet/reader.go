package spreadsheet

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Sheet is a worksheet read as raw cell strings, header row included.
type Sheet struct {
	Name string
	Rows [][]string
}

// ReadWorkbook reads an .xlsx workbook, or a .csv file as a single
// projects sheet, chosen by file extension.
func ReadWorkbook(r io.Reader, filename string) ([]Sheet, error) {
	if strings.EqualFold(filepath.Ext(filename), ".csv") {
		return ReadCSV(r)
	}
	return ReadXLSX(r)
}

func ReadXLSX(r io.Reader) ([]Sheet, error) {
	f, err := excelize.OpenReader(r, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	var sheets []Sheet
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", name, err)
		}
		sheets = append(sheets, Sheet{Name: name, Rows: rows})
	}
	if len(sheets) == 0 {
		return nil, fmt.Errorf("open workbook: no sheets")
	}
	return sheets, nil
}

// ReadCSV accepts comma or semicolon separated files; the separator is
// taken from the header line.
func ReadCSV(r io.Reader) ([]Sheet, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(4096)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	firstLine := head
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		firstLine = head[:i]
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	if bytes.Count(firstLine, []byte(";")) > bytes.Count(firstLine, []byte(",")) {
		cr.Comma = ';'
	}

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return []Sheet{{Name: "Projetos", Rows: rows}}, nil
}
