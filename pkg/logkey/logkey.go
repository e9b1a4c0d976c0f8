// Package logkey holds the structured-log attribute names shared across
// the service so log queries stay consistent.
package logkey

const (
	TraceID = "Trace ID"
	ERROR   = "Error"

	UserID    = "UserID"
	OrderID   = "OrderID"
	ProductID = "ProductID"
	Status    = "Status"
)
