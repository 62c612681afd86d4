package api

import (
	"reflect"

	"github.com/danielgtaylor/huma/v2"
	"github.com/shopspring/decimal"
)

func init() {
	// Clients read money as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// registerDecimal documents decimal.Decimal as a number. Decoding accepts
// numbers and numeric strings.
func registerDecimal(registry huma.Registry) {
	registry.RegisterTypeAlias(reflect.TypeOf(decimal.Decimal{}), reflect.TypeOf(float64(0)))
}
