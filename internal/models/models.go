package models

// InvoiceTables lists the models owned by the billing service.
func InvoiceTables() []any {
	return []any{&Invoice{}, &InvoiceItem{}}
}

// WorkOrderTables lists the models owned by the work order service.
func WorkOrderTables() []any {
	return []any{&WorkOrder{}, &Task{}}
}
