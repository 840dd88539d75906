package dashboard

import (
	"net/url"

	"facility-checklist/internal/models"
)

type fieldKind string

const (
	kindText   fieldKind = "text"
	kindSelect fieldKind = "select"
	kindMulti  fieldKind = "multi"
	kindDate   fieldKind = "date"
	kindNumber fieldKind = "number"
)

type formField struct {
	Name     string
	Label    string
	Kind     fieldKind
	Options  []string
	Required bool
	Step     string
}

type formSection struct {
	Title  string
	Fields []formField
}

var formSections = []formSection{
	{
		Title: "Basic information",
		Fields: []formField{
			{Name: "function_location_id", Label: "Function Location ID", Kind: kindText, Required: true},
			{Name: "sap_function_location", Label: "SAP Function Location", Kind: kindText},
			{Name: "building_name", Label: "Building Name", Kind: kindText, Required: true},
			{Name: "building_number", Label: "Building Number", Kind: kindText},
			{Name: "facility_type", Label: "Facility Type", Kind: kindText},
			{Name: "function", Label: "Function", Kind: kindText},
			{Name: "macro_area", Label: "Macro Area", Kind: kindText},
			{Name: "micro_area", Label: "Micro Area", Kind: kindText},
			{Name: "proponent", Label: "Proponent", Kind: kindText},
			{Name: "zone", Label: "Zone", Kind: kindText},
			{Name: "latitude", Label: "Latitude", Kind: kindNumber, Step: "any"},
			{Name: "longitude", Label: "Longitude", Kind: kindNumber, Step: "any"},
		},
	},
	{
		Title: "Building systems",
		Fields: []formField{
			{Name: "hvac_type", Label: "HVAC Type", Kind: kindMulti, Options: models.HVACTypes},
			{Name: "sprinkler", Label: "Sprinkler", Kind: kindSelect, Options: models.YesNo, Required: true},
			{Name: "fire_alarm", Label: "Fire Alarm", Kind: kindSelect, Options: models.YesNo, Required: true},
			{Name: "power_source", Label: "Power Source", Kind: kindMulti, Options: models.PowerSources},
			{Name: "vcp_status", Label: "VCP Status", Kind: kindSelect, Options: models.VCPStatuses, Required: true},
			{Name: "vcp_planned_date", Label: "VCP Planned Date", Kind: kindDate},
			{Name: "smart_power_meter_status", Label: "Smart Power Meter", Kind: kindSelect, Options: models.YesNo, Required: true},
			{Name: "eifs", Label: "EIFS", Kind: kindSelect, Options: models.YesNo, Required: true},
			{Name: "eifs_installed_year", Label: "EIFS Installed Year", Kind: kindNumber, Step: "1"},
		},
	},
	{
		Title: "Condition",
		Fields: []formField{
			{Name: "exterior_cladding_condition", Label: "Exterior Cladding", Kind: kindSelect, Options: models.ConditionRatings, Required: true},
			{Name: "interior_architectural_condition", Label: "Interior Architectural", Kind: kindSelect, Options: models.ConditionRatings, Required: true},
			{Name: "fire_protection_system_obsolete", Label: "Fire Protection System", Kind: kindSelect, Options: models.ObsolescenceStates, Required: true},
			{Name: "hvac_condition", Label: "Obsolete HVAC Units", Kind: kindNumber, Step: "1"},
			{Name: "electrical_condition", Label: "Obsolete Electrical Components", Kind: kindNumber, Step: "1"},
			{Name: "roofing_condition", Label: "Roofing", Kind: kindSelect, Options: models.ConditionRatings, Required: true},
			{Name: "water_proofing_warranty", Label: "Water Proofing Warranty", Kind: kindSelect, Options: models.YesNo, Required: true},
			{Name: "water_proofing_warranty_date", Label: "Warranty Expiry Date", Kind: kindDate},
			{Name: "full_inspection_completed", Label: "Full Inspection Completed", Kind: kindSelect, Options: models.YesNo, Required: true},
		},
	},
}

type fieldView struct {
	formField
	Value    string
	Selected map[string]bool
	Error    string
	HasHelp  bool
}

type sectionView struct {
	Title  string
	Fields []fieldView
}

// buildSections pairs every form field with its current value and error.
func buildSections(values url.Values, fieldErrors []models.FieldError) []sectionView {
	errs := make(map[string]string, len(fieldErrors))
	for _, fe := range fieldErrors {
		if prev, ok := errs[fe.Field]; ok {
			errs[fe.Field] = prev + "; " + fe.Message
			continue
		}
		errs[fe.Field] = fe.Message
	}

	sections := make([]sectionView, 0, len(formSections))
	for _, s := range formSections {
		sv := sectionView{Title: s.Title, Fields: make([]fieldView, 0, len(s.Fields))}
		for _, f := range s.Fields {
			fv := fieldView{
				formField: f,
				Value:     values.Get(f.Name),
				Selected:  make(map[string]bool),
				Error:     errs[f.Name],
			}
			for _, v := range values[f.Name] {
				fv.Selected[v] = true
			}
			_, fv.HasHelp = fieldHelp[f.Name]
			sv.Fields = append(sv.Fields, fv)
		}
		sections = append(sections, sv)
	}
	return sections
}
