// Package fileimport turns an uploaded spreadsheet file into the raw rows
// consumed by the import engine. It handles encoding detection (UTF-8 with
// optional BOM, GB18030) and maps localized header names to the canonical
// column keys.
package fileimport

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"

	importapp "github.com/logistics/backend/internal/application/import"
)

var (
	// ErrEmptyFile is returned when the uploaded file has no content
	ErrEmptyFile = errors.New("上传文件为空")

	// ErrMissingHeader is returned when the file has no header row
	ErrMissingHeader = errors.New("文件缺少表头")

	// ErrInvalidEncoding is returned when the content is neither UTF-8 nor GB18030
	ErrInvalidEncoding = errors.New("无法识别的文件编码")
)

// headerAliases maps accepted header spellings to canonical column keys.
// Canonical keys are accepted as-is.
var headerAliases = map[string]string{
	"单号":    importapp.ColumnOrderNumber,
	"订单号":   importapp.ColumnOrderNumber,
	"客户姓名":  importapp.ColumnCustomerName,
	"姓名":    importapp.ColumnCustomerName,
	"部门":    importapp.ColumnDepartmentKey,
	"状态":    importapp.ColumnStatus,
	"快递单号":  importapp.ColumnTrackingNumber,
	"运单号":   importapp.ColumnTrackingNumber,
	"快递公司":  importapp.ColumnCarrier,
	"电话":    importapp.ColumnPhone,
	"手机号":   importapp.ColumnPhone,
	"代收金额":  importapp.ColumnCODAmount,
}

// requiredColumns must be present after header normalization
var requiredColumns = []string{
	importapp.ColumnOrderNumber,
	importapp.ColumnCustomerName,
	importapp.ColumnDepartmentKey,
}

// CSVReader parses uploaded CSV files into raw rows
type CSVReader struct {
	maxRows int
}

// NewCSVReader creates a reader that accepts at most maxRows data rows
func NewCSVReader(maxRows int) *CSVReader {
	if maxRows <= 0 {
		maxRows = 5000
	}
	return &CSVReader{maxRows: maxRows}
}

// Read parses the file content and returns one RawRow per non-empty data
// row. Row numbers are 1-based and count every data row, so they match what
// the user sees in a spreadsheet below the header.
func (r *CSVReader) Read(content []byte) ([]importapp.RawRow, error) {
	decoded, err := decode(content)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(bytes.NewReader(decoded))
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrMissingHeader
	}
	if err != nil {
		return nil, fmt.Errorf("读取表头失败: %w", err)
	}

	columns := normalizeHeader(header)
	if err := checkRequired(columns); err != nil {
		return nil, err
	}

	var rows []importapp.RawRow
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("第%d行读取失败: %w", line+1, err)
		}

		line++
		if line > r.maxRows {
			return nil, fmt.Errorf("数据行数超过上限 %d", r.maxRows)
		}

		fields := make(map[string]string, len(columns))
		empty := true
		for i, column := range columns {
			if column == "" || i >= len(record) {
				continue
			}
			value := strings.TrimSpace(record[i])
			fields[column] = value
			if value != "" {
				empty = false
			}
		}
		if empty {
			continue
		}
		rows = append(rows, importapp.RawRow{Line: line, Fields: fields})
	}

	return rows, nil
}

// decode strips a UTF-8 BOM or converts GB18030 content to UTF-8
func decode(content []byte) ([]byte, error) {
	if len(content) == 0 {
		return nil, ErrEmptyFile
	}

	if bytes.HasPrefix(content, []byte{0xEF, 0xBB, 0xBF}) {
		content = content[3:]
		if len(content) == 0 {
			return nil, ErrEmptyFile
		}
	}

	if utf8.Valid(content) {
		return content, nil
	}

	decoded, _, err := transform.Bytes(simplifiedchinese.GB18030.NewDecoder(), content)
	if err != nil || !utf8.Valid(decoded) {
		return nil, ErrInvalidEncoding
	}
	return decoded, nil
}

// normalizeHeader maps each header cell to its canonical column key. Unknown
// headers map to the empty string and their cells are dropped.
func normalizeHeader(header []string) []string {
	columns := make([]string, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if canonical, ok := headerAliases[name]; ok {
			columns[i] = canonical
			continue
		}
		switch name {
		case importapp.ColumnOrderNumber, importapp.ColumnCustomerName, importapp.ColumnDepartmentKey,
			importapp.ColumnStatus, importapp.ColumnTrackingNumber, importapp.ColumnCarrier,
			importapp.ColumnPhone, importapp.ColumnCODAmount:
			columns[i] = name
		}
	}
	return columns
}

func checkRequired(columns []string) error {
	present := make(map[string]bool, len(columns))
	for _, c := range columns {
		if c != "" {
			present[c] = true
		}
	}
	var missing []string
	for _, required := range requiredColumns {
		if !present[required] {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("表头缺少必需列: %s", strings.Join(missing, ", "))
	}
	return nil
}
