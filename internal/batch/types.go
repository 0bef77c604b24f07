// internal/batch/types.go
package batch

// Item is one point operation inside an interface batch.
// Value is only meaningful for Set.
type Item struct {
	Slave string
	Point string
	Value any
}

// Result is the decoded value of one Get item.
type Result struct {
	Point string
	Value any
}
