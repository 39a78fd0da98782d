package catalog

import "github.com/shopspring/decimal"

// Template es el default de catálogo para un procedimiento con nombre.
type Template struct {
	Code        string          `json:"code"`
	Category    string          `json:"category"`
	Name        string          `json:"name"`
	Cost        decimal.Decimal `json:"cost"`
	Medications string          `json:"medications"`
	Dosage      string          `json:"dosage"`
	Directions  string          `json:"directions"`
}

// Catalog es de sólo lectura.
type Catalog interface {
	ByCode(code string) (Template, bool)
	ByCategoryAndName(category, name string) (Template, bool)
	All() []Template
}
