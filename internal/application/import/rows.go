// Package importapp implements the batch import and asynchronous
// reconciliation engine: row validation, the import coordinator, and the
// reconciliation orchestrator that drives the external tracking provider.
package importapp

import (
	"fmt"
	"strings"
)

// Canonical column keys of an import row. File adapters normalize header
// aliases to these keys before validation.
const (
	ColumnOrderNumber    = "order_number"
	ColumnCustomerName   = "customer_name"
	ColumnDepartmentKey  = "department_key"
	ColumnStatus         = "status"
	ColumnTrackingNumber = "tracking_number"
	ColumnCarrier        = "carrier"
	ColumnPhone          = "phone"
	ColumnCODAmount      = "cod_amount"
)

// RawRow is one untyped row extracted from an uploaded file. Line is the
// 1-based row number in the source file, headers excluded from the count
// the same way the sheet displays them.
type RawRow struct {
	Line   int
	Fields map[string]string
}

// Get returns the trimmed value of a column, empty if absent
func (r RawRow) Get(column string) string {
	return strings.TrimSpace(r.Fields[column])
}

// RowError is a per-row validation failure. Errors are collected, never
// mutated, and surfaced verbatim to the caller.
type RowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e RowError) Error() string {
	return fmt.Sprintf("第%d行: %s", e.Row, e.Message)
}

// NewRowError creates a new RowError
func NewRowError(row int, column, message string) RowError {
	return RowError{Row: row, Column: column, Message: message}
}

// JoinRowErrors renders a list of row errors as the multi-line message shown
// to the caller, one error per line.
func JoinRowErrors(errs []RowError) string {
	lines := make([]string, 0, len(errs))
	for _, e := range errs {
		lines = append(lines, e.Error())
	}
	return strings.Join(lines, "\n")
}
