// Package models holds the gorm mappings for the MagiSurprise schema.
// Table names are explicit because most of the domain vocabulary is Spanish
// and gorm's English pluralizer would mangle it.
package models

import "github.com/shopspring/decimal"

func init() {
	// Prices render as JSON numbers (10000) rather than strings ("10000").
	decimal.MarshalJSONWithoutQuotes = true
}
