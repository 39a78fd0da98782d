package pets

import (
	"strings"

	"clinic-records/internal/ports/catalog"

	"github.com/shopspring/decimal"
)

// Enrich completa el procedimiento con el template del catálogo que
// coincida por código o por (categoría, nombre). Code y Name quedan
// canónicos; el resto sólo se completa si viene vacío (o costo <= 0).
func Enrich(p Procedure, cat catalog.Catalog) Procedure {
	if cat == nil {
		return p
	}

	t, ok := cat.ByCode(p.Code)
	if !ok {
		t, ok = cat.ByCategoryAndName(p.Category, p.Name)
	}
	if !ok {
		return p
	}

	p.Code = t.Code
	p.Name = t.Name
	if strings.TrimSpace(p.Category) == "" {
		p.Category = t.Category
	}
	if !p.Cost.Valid || p.Cost.Decimal.LessThanOrEqual(decimal.Zero) {
		p.Cost = decimal.NewNullDecimal(t.Cost)
	}
	if strings.TrimSpace(p.Medications) == "" {
		p.Medications = t.Medications
	}
	if strings.TrimSpace(p.Dosage) == "" {
		p.Dosage = t.Dosage
	}
	if strings.TrimSpace(p.Directions) == "" {
		p.Directions = t.Directions
	}
	if strings.TrimSpace(p.Notes) == "" && t.Directions != "" {
		p.Notes = t.Directions
	}
	return p
}
