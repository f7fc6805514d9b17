package excel

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"gosurv/domain/survival"
	"gosurv/internal/errors"
)

const (
	// DesignSheet holds one row per subject with "time" and "event" columns
	DesignSheet = "design"
	// ValuesSheet holds a header row of subject labels, then one row per record
	// whose first cell is the record label
	ValuesSheet = "values"

	timeColumn  = "time"
	eventColumn = "event"
)

// RequestReader loads a statistics request from a .json, .xlsx or .csv file.
//
// CSV layout is one row per subject with "time" and "event" columns in any
// position; every other column except a subject label ("subject", "id",
// "sample") is a record and is transposed into a values_by_record row.
type RequestReader struct {
	filePath string
	fileType string
}

// NewRequestReader creates a reader; the format is chosen by file extension
func NewRequestReader(filePath string) *RequestReader {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filePath), "."))
	return &RequestReader{filePath: filePath, fileType: ext}
}

// ReadRequest parses the file into a raw request. Shape and value checks are
// left to the design validator; this only reports unreadable cells.
func (r *RequestReader) ReadRequest(ctx context.Context) (*survival.Request, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(r.filePath); err != nil {
		return nil, errors.Wrapf(err, "input file %s", r.filePath)
	}

	switch r.fileType {
	case "json":
		return r.readJSON()
	case "xlsx":
		return r.readWorkbook()
	case "csv":
		return r.readCSV()
	default:
		return nil, errors.UnsupportedFormat(r.fileType)
	}
}

func (r *RequestReader) readJSON() (*survival.Request, error) {
	data, err := os.ReadFile(r.filePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read JSON file")
	}
	var req survival.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, fmt.Errorf("decode %s: %w", r.filePath, err))
	}
	return &req, nil
}

func (r *RequestReader) readWorkbook() (*survival.Request, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open Excel file")
	}
	defer f.Close()

	designRows, err := f.GetRows(DesignSheet)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read sheet %q", DesignSheet)
	}
	req := &survival.Request{}
	if _, err := parseDesignRows(DesignSheet, designRows, req); err != nil {
		return nil, err
	}

	valueRows, err := f.GetRows(ValuesSheet)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read sheet %q", ValuesSheet)
	}
	if len(valueRows) < 1 {
		return nil, errors.InvalidInput(fmt.Sprintf("sheet %q needs a header row", ValuesSheet))
	}
	for i, row := range valueRows[1:] {
		if isBlank(row) {
			continue
		}
		values := make([]float64, 0, len(row))
		for j := 1; j < len(row); j++ {
			v, err := parseCell(ValuesSheet, i+2, j+1, row[j])
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}
		req.ValuesByRecord = append(req.ValuesByRecord, values)
	}

	return req, nil
}

func (r *RequestReader) readCSV() (*survival.Request, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open CSV file")
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read CSV file")
	}

	req := &survival.Request{}
	design, err := parseDesignRows("csv", rows, req)
	if err != nil {
		return nil, err
	}

	header := rows[0]
	var recordCols []int
	for col, h := range header {
		if col == design.timeIdx || col == design.eventIdx || isLabelColumn(h) {
			continue
		}
		recordCols = append(recordCols, col)
	}

	req.ValuesByRecord = make([][]float64, len(recordCols))
	for i, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		for rec, col := range recordCols {
			if col >= len(row) {
				return nil, errors.InvalidInput(fmt.Sprintf("csv row %d has no value for %q", i+2, header[col]))
			}
			v, err := parseCell("csv", i+2, col+1, row[col])
			if err != nil {
				return nil, err
			}
			req.ValuesByRecord[rec] = append(req.ValuesByRecord[rec], v)
		}
	}

	return req, nil
}

// designColumns locates the time and event columns of a header row
type designColumns struct {
	timeIdx, eventIdx int
}

// isLabelColumn reports whether a CSV header names a subject label rather than a record
func isLabelColumn(header string) bool {
	switch strings.ToLower(strings.TrimSpace(header)) {
	case "subject", "id", "sample":
		return true
	}
	return false
}

// parseDesignRows reads the time and event columns located by header name
func parseDesignRows(source string, rows [][]string, req *survival.Request) (designColumns, error) {
	if len(rows) < 2 {
		return designColumns{}, errors.InvalidInput(fmt.Sprintf("%s must have a header row and at least one subject", source))
	}

	timeIdx, eventIdx := -1, -1
	for i, h := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case timeColumn, "times":
			timeIdx = i
		case eventColumn, "events", "status":
			eventIdx = i
		}
	}
	if timeIdx < 0 || eventIdx < 0 {
		return designColumns{}, errors.InvalidInput(fmt.Sprintf("%s header must name %q and %q columns", source, timeColumn, eventColumn))
	}

	for i, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		line := i + 2
		if timeIdx >= len(row) || eventIdx >= len(row) {
			return designColumns{}, errors.InvalidInput(fmt.Sprintf("%s row %d is missing time or event", source, line))
		}
		t, err := parseCell(source, line, timeIdx+1, row[timeIdx])
		if err != nil {
			return designColumns{}, err
		}
		e, err := parseCell(source, line, eventIdx+1, row[eventIdx])
		if err != nil {
			return designColumns{}, err
		}
		req.Times = append(req.Times, t)
		req.Events = append(req.Events, e)
	}
	return designColumns{timeIdx: timeIdx, eventIdx: eventIdx}, nil
}

func parseCell(source string, row, col int, cell string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil {
		return 0, errors.InvalidInput(fmt.Sprintf("%s row %d column %d: %q is not a number", source, row, col, cell))
	}
	return v, nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
