package model

import "github.com/shopspring/decimal"

func init() {
	// money travels as JSON numbers, e.g. "price": 100.5
	decimal.MarshalJSONWithoutQuotes = true
}

// Money rounds to the two decimal places stored in decimal(10,2) columns
func Money(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
