package importapp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logistics/backend/internal/domain/order"
)

func newTestValidator() *RowValidator {
	return NewRowValidator(order.NewDepartmentSet(order.DefaultDepartmentKeys()))
}

func validRow(line int, orderNumber string) RawRow {
	return RawRow{
		Line: line,
		Fields: map[string]string{
			ColumnOrderNumber:    orderNumber,
			ColumnCustomerName:   "张三",
			ColumnDepartmentKey:  "sales",
			ColumnTrackingNumber: "SF1234567890",
			ColumnCarrier:        "顺丰速运",
			ColumnPhone:          "13800138000",
		},
	}
}

func TestRowValidator_AcceptsValidRows(t *testing.T) {
	validator := newTestValidator()

	records, errs := validator.Validate([]RawRow{validRow(1, "A001"), validRow(2, "A002")})

	require.Empty(t, errs)
	require.Len(t, records, 2)
	assert.Equal(t, "A001", records[0].OrderNumber)
	assert.Equal(t, order.StatusPending, records[0].Status)
	assert.Equal(t, order.SyncStatePending, records[0].SyncState)
}

func TestRowValidator_EmptyOrderNumber(t *testing.T) {
	validator := newTestValidator()
	row := validRow(2, "")

	records, errs := validator.Validate([]RawRow{validRow(1, "A001"), row})

	require.Len(t, errs, 1)
	assert.Equal(t, 2, errs[0].Row)
	assert.Contains(t, errs[0].Message, "单号不能为空")
	assert.Contains(t, errs[0].Error(), "第2行")
	// the invalid row yields no record, the valid one still does
	require.Len(t, records, 1)
}

func TestRowValidator_EmptyCustomerName(t *testing.T) {
	validator := newTestValidator()
	row := validRow(1, "A001")
	row.Fields[ColumnCustomerName] = " "

	records, errs := validator.Validate([]RawRow{row})

	assert.Empty(t, records)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "客户姓名不能为空")
}

func TestRowValidator_UnknownDepartment(t *testing.T) {
	validator := newTestValidator()
	row := validRow(1, "A001")
	row.Fields[ColumnDepartmentKey] = "nosuchdept"

	records, errs := validator.Validate([]RawRow{row})

	assert.Empty(t, records)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "未知部门: nosuchdept")
}

func TestRowValidator_InvalidStatus(t *testing.T) {
	validator := newTestValidator()
	row := validRow(1, "A001")
	row.Fields[ColumnStatus] = "flying"

	records, errs := validator.Validate([]RawRow{row})

	assert.Empty(t, records)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "无效的订单状态")
}

func TestRowValidator_EmptyStatusDefaultsToPending(t *testing.T) {
	validator := newTestValidator()
	row := validRow(1, "A001")
	row.Fields[ColumnStatus] = ""

	records, errs := validator.Validate([]RawRow{row})

	require.Empty(t, errs)
	require.Len(t, records, 1)
	assert.Equal(t, order.StatusPending, records[0].Status)
}

func TestRowValidator_InvalidCODAmount(t *testing.T) {
	validator := newTestValidator()
	bad := validRow(1, "A001")
	bad.Fields[ColumnCODAmount] = "abc"
	negative := validRow(2, "A002")
	negative.Fields[ColumnCODAmount] = "-5"

	records, errs := validator.Validate([]RawRow{bad, negative})

	assert.Empty(t, records)
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0].Message, "无效的代收金额")
	assert.Contains(t, errs[1].Message, "代收金额不能为负数")
}

func TestRowValidator_DuplicateOrderNumberInBatch(t *testing.T) {
	validator := newTestValidator()

	records, errs := validator.Validate([]RawRow{validRow(1, "A001"), validRow(3, "A001")})

	require.Len(t, records, 1)
	require.Len(t, errs, 1)
	assert.Equal(t, 3, errs[0].Row)
	assert.Contains(t, errs[0].Message, "单号重复")
}

func TestRowValidator_CollectsMultipleErrorsPerRow(t *testing.T) {
	validator := newTestValidator()
	row := RawRow{Line: 1, Fields: map[string]string{}}

	records, errs := validator.Validate([]RawRow{row})

	assert.Empty(t, records)
	// order number, customer name and department are all missing
	assert.GreaterOrEqual(t, len(errs), 3)
}

func TestJoinRowErrors(t *testing.T) {
	msg := JoinRowErrors([]RowError{
		NewRowError(2, ColumnOrderNumber, "单号不能为空"),
		NewRowError(5, ColumnCustomerName, "客户姓名不能为空"),
	})
	assert.Equal(t, "第2行: 单号不能为空\n第5行: 客户姓名不能为空", msg)
}
