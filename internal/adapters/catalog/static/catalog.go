package static

import (
	"strings"

	"clinic-records/internal/ports/catalog"

	"github.com/shopspring/decimal"
)

// Catalog es la tabla fija de procedimientos de la clínica.
// Se construye una vez; es seguro para uso concurrente (sólo lectura).
type Catalog struct {
	templates  []catalog.Template
	byCode     map[string]catalog.Template
	byCategory map[string][]catalog.Template
}

func New() *Catalog {
	return NewFrom(defaultTemplates())
}

// NewFrom permite armar un catálogo con plantillas propias (tests).
func NewFrom(templates []catalog.Template) *Catalog {
	c := &Catalog{
		templates:  templates,
		byCode:     make(map[string]catalog.Template, len(templates)),
		byCategory: make(map[string][]catalog.Template),
	}
	for _, t := range templates {
		c.byCode[t.Code] = t
		c.byCategory[t.Category] = append(c.byCategory[t.Category], t)
	}
	return c
}

func (c *Catalog) All() []catalog.Template {
	out := make([]catalog.Template, len(c.templates))
	copy(out, c.templates)
	return out
}

func (c *Catalog) ByCode(code string) (catalog.Template, bool) {
	code = strings.TrimSpace(code)
	if code == "" {
		return catalog.Template{}, false
	}
	t, ok := c.byCode[code]
	return t, ok
}

// ByCategoryAndName: categoría exacta, nombre case-insensitive.
func (c *Catalog) ByCategoryAndName(category, name string) (catalog.Template, bool) {
	category = strings.TrimSpace(category)
	name = strings.TrimSpace(name)
	if category == "" || name == "" {
		return catalog.Template{}, false
	}
	for _, t := range c.byCategory[category] {
		if strings.EqualFold(t.Name, name) {
			return t, true
		}
	}
	return catalog.Template{}, false
}

func tpl(code, category, name string, cost int64, meds, dosage, directions string) catalog.Template {
	return catalog.Template{
		Code:        code,
		Category:    category,
		Name:        name,
		Cost:        decimal.NewFromInt(cost),
		Medications: meds,
		Dosage:      dosage,
		Directions:  directions,
	}
}

const (
	catConsult  = "Consultation & Check-up"
	catVaccine  = "Vaccine & Deworming"
	catLab      = "Laboratory Tests"
	catRapid    = "Rapid Tests"
	catSurgery  = "Surgical Service"
	catSpayCast = "Spaying & Castration"
)

func defaultTemplates() []catalog.Template {
	return []catalog.Template{
		tpl("CONSULT_STANDARD", catConsult, "Consultation Fee", 350, "", "", "General wellness consultation."),
		tpl("CONSULT_FOLLOWUP", catConsult, "Follow-Up Consultation", 250, "", "", "Short follow-up visit."),
		tpl("CONSULT_EMERGENCY", catConsult, "Emergency Fee", 800, "", "", "Emergency case consultation surcharge."),
		tpl("CONSULT_AFTERHOURS", catConsult, "After 9:00 PM Consultation", 500, "", "", "Applies to late night consults."),

		tpl("VAC_FELINE_4IN1", catVaccine, "Feline 4-in-1 Vaccine", 1000, "Feline 4-in-1 Vaccine", "As directed", "Administer subcutaneously; observe for adverse reactions."),
		tpl("VAC_CANINE_5IN1", catVaccine, "Canine 5-in-1 Vaccine", 1000, "Canine 5-in-1 Vaccine", "As directed", "Follow core vaccine schedule."),
		tpl("VAC_CANINE_6IN1", catVaccine, "Canine 6-in-1 Vaccine", 1000, "Canine 6-in-1 Vaccine", "As directed", "Repeat per vaccination chart."),
		tpl("VAC_CANINE_8IN1", catVaccine, "Canine 8-in-1 Vaccine", 1200, "Canine 8-in-1 Vaccine", "As directed", "Annual booster recommended."),
		tpl("VAC_ANTIRABIES", catVaccine, "Anti-Rabies Vaccine", 350, "Anti-Rabies Vaccine", "1 ml", "Administer once yearly."),
		tpl("DEWORM_CANINE", catVaccine, "Canine Deworming", 250, "Anthelmintic", "5 mg/kg", "Repeat every 3 months."),
		tpl("DEWORM_FELINE", catVaccine, "Feline Deworming", 200, "Anthelmintic", "5 mg/kg", "Repeat every 3 months."),

		tpl("LAB_CBC", catLab, "Complete Blood Count (CBC)", 550, "", "", "Collect EDTA sample; process same day."),
		tpl("LAB_BCHEM", catLab, "Comprehensive Blood Chemistry", 3550, "", "", "Fast patient 8h prior."),
		tpl("LAB_CHEM10", catLab, "Chemistry 10 Panel", 2250, "", "", "Fast patient 8h prior."),
		tpl("LAB_XRAY", catLab, "X-ray", 700, "", "", "Sedation as needed, provide positioning."),
		tpl("LAB_ULTRASOUND", catLab, "Ultrasound", 800, "", "", "Shave area; fasting advised."),
		tpl("LAB_ULTRASOUND_OB", catLab, "Ultrasound OB", 800, "", "", "Pregnancy monitoring."),
		tpl("LAB_URINALYSIS", catLab, "Urinalysis", 400, "", "", "Collect mid-stream sample."),
		tpl("LAB_FECALYSIS", catLab, "Fecalysis", 350, "", "", "Fresh stool sample."),

		tpl("RAPID_PARVO", catRapid, "Canine Parvo/Corona Rapid Test", 800, "", "", "Use stool sample; 10 minute read."),
		tpl("RAPID_GIARDIA", catRapid, "Giardia Drop Test", 800, "", "", "Fresh stool sample."),
		tpl("RAPID_FIVFELV", catRapid, "FIV/FeLV Test", 1100, "", "", "Whole blood sample."),

		tpl("SURG_GENERAL", catSurgery, "General Surgery", 5000, "Ceftriaxone, Meloxicam", "Per protocol", "Administer pre-op antibiotics and analgesics."),
		tpl("SURG_DENTAL", catSurgery, "Dental Prophylaxis", 3500, "Clindamycin, Chlorhexidine Rinse", "Per protocol", "Post-op pain management for 3 days."),

		tpl("SPAY_FELINE", catSpayCast, "Feline Spaying", 8000, "Amoxicillin-Clavulanate, Carprofen", "Amoxiclav 12.5 mg/kg BID 7d; Carprofen 2 mg/kg SID 3d", "Keep incision dry; monitor for swelling."),
		tpl("NEUTER_FELINE", catSpayCast, "Feline Castration", 6000, "Amoxicillin-Clavulanate, Tramadol", "Amoxiclav 12.5 mg/kg BID 5d; Tramadol 3 mg/kg q8h 3d", "Restrict activity 5 days."),
		tpl("SPAY_CANINE", catSpayCast, "Canine Spaying", 14000, "Cephalexin, Carprofen", "Cephalexin 20 mg/kg BID 7d; Carprofen 4 mg/kg SID 5d", "Use Elizabethan collar until suture removal."),
		tpl("NEUTER_CANINE", catSpayCast, "Canine Castration", 12000, "Cephalexin, Tramadol", "Cephalexin 20 mg/kg BID 5d; Tramadol 4 mg/kg q8h 3d", "Limit exercise for 7 days."),
	}
}
