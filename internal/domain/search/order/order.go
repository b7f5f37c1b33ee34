package order

import "fmt"

// Order is the result sort mode of a query.
type Order string

// Sort mode constants.
const (
	// Relevance sorts by descending score.
	Relevance Order = "relevance"
	// Date sorts by the most recent timestamp of the record, newest first.
	Date Order = "date"
	// Name sorts by the record's name attribute, case-insensitive ascending.
	Name Order = "name"
)

// IsValid checks if the order is one of the supported values.
func (o Order) IsValid() bool {
	return o == Relevance || o == Date || o == Name
}

// Parse converts a user supplied value. An empty value yields Relevance.
func Parse(s string) (Order, error) {
	if s == "" {
		return Relevance, nil
	}
	o := Order(s)
	if !o.IsValid() {
		return "", fmt.Errorf("invalid sort mode: %q", s)
	}
	return o, nil
}
