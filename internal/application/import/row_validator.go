package importapp

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/logistics/backend/internal/domain/order"
)

// RowValidator turns raw rows into validated order records or per-row
// errors. Rows are validated independently: one bad row never stops
// validation of the rest, and a row producing any error yields no record.
type RowValidator struct {
	departments order.DepartmentSet
}

// NewRowValidator creates a validator against the known department set
func NewRowValidator(departments order.DepartmentSet) *RowValidator {
	return &RowValidator{departments: departments}
}

// Validate checks every row and returns the validated records plus the
// collected errors. It never fails on malformed input: every problem
// becomes a RowError. Callers must not submit the batch to the store when
// errors is non-empty.
func (v *RowValidator) Validate(rows []RawRow) ([]*order.Order, []RowError) {
	records := make([]*order.Order, 0, len(rows))
	var errs []RowError
	seen := make(map[string]int, len(rows))

	for _, row := range rows {
		rowErrs := v.validateRow(row, seen)
		if len(rowErrs) > 0 {
			errs = append(errs, rowErrs...)
			continue
		}

		rec, err := v.buildRecord(row)
		if err != nil {
			errs = append(errs, NewRowError(row.Line, "", err.Error()))
			continue
		}
		records = append(records, rec)
	}
	return records, errs
}

func (v *RowValidator) validateRow(row RawRow, seen map[string]int) []RowError {
	var errs []RowError

	orderNumber := row.Get(ColumnOrderNumber)
	if orderNumber == "" {
		errs = append(errs, NewRowError(row.Line, ColumnOrderNumber, "单号不能为空"))
	} else if firstLine, dup := seen[orderNumber]; dup {
		errs = append(errs, NewRowError(row.Line, ColumnOrderNumber,
			fmt.Sprintf("单号重复: %s (与第%d行相同)", orderNumber, firstLine)))
	} else {
		seen[orderNumber] = row.Line
	}

	if row.Get(ColumnCustomerName) == "" {
		errs = append(errs, NewRowError(row.Line, ColumnCustomerName, "客户姓名不能为空"))
	}

	department := row.Get(ColumnDepartmentKey)
	if department == "" {
		errs = append(errs, NewRowError(row.Line, ColumnDepartmentKey, "部门不能为空"))
	} else if !v.departments.Contains(department) {
		errs = append(errs, NewRowError(row.Line, ColumnDepartmentKey,
			fmt.Sprintf("未知部门: %s", department)))
	}

	if _, err := order.ParseStatus(row.Get(ColumnStatus)); err != nil {
		errs = append(errs, NewRowError(row.Line, ColumnStatus, err.Error()))
	}

	if raw := row.Get(ColumnCODAmount); raw != "" {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			errs = append(errs, NewRowError(row.Line, ColumnCODAmount,
				fmt.Sprintf("无效的代收金额: %s", raw)))
		} else if amount.IsNegative() {
			errs = append(errs, NewRowError(row.Line, ColumnCODAmount,
				fmt.Sprintf("代收金额不能为负数: %s", raw)))
		}
	}

	return errs
}

// buildRecord constructs the order for a row that passed every rule
func (v *RowValidator) buildRecord(row RawRow) (*order.Order, error) {
	status, err := order.ParseStatus(row.Get(ColumnStatus))
	if err != nil {
		return nil, err
	}

	amount := decimal.Zero
	if raw := row.Get(ColumnCODAmount); raw != "" {
		amount, err = decimal.NewFromString(raw)
		if err != nil {
			return nil, err
		}
	}

	details := order.Details{
		TrackingNumber: row.Get(ColumnTrackingNumber),
		Carrier:        row.Get(ColumnCarrier),
		Phone:          row.Get(ColumnPhone),
		CODAmount:      amount,
	}
	return order.New(
		row.Get(ColumnOrderNumber),
		row.Get(ColumnCustomerName),
		row.Get(ColumnDepartmentKey),
		status,
		details,
	)
}
