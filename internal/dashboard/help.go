package dashboard

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

type helpEntry struct {
	Title string
	Body  string // markdown
}

var fieldHelp = map[string]helpEntry{
	"function_location_id": {
		Title: "Function Location ID",
		Body:  "Enter the unique functional location identifier for this facility, as used in the facility management system.",
	},
	"sap_function_location": {
		Title: "SAP Function Location",
		Body:  "Enter the SAP function location code if applicable. It links the record to SAP asset management.",
	},
	"building_name": {
		Title: "Building Name",
		Body:  "Enter the official name of the building or facility as it appears in the organization's records.",
	},
	"building_number": {
		Title: "Building Number",
		Body:  "Enter the building number or identifier used in the facility management system.",
	},
	"facility_type": {
		Title: "Facility Type",
		Body:  "Enter the category of facility, for example Office, Warehouse, Manufacturing or Laboratory.",
	},
	"function": {
		Title: "Function",
		Body:  "Enter the primary purpose of this facility within the organization.",
	},
	"macro_area": {
		Title: "Macro Area",
		Body:  "Enter the broader geographical or organizational area where the facility is located.",
	},
	"micro_area": {
		Title: "Micro Area",
		Body:  "Enter the sub-area or section within the macro area where the facility is located.",
	},
	"proponent": {
		Title: "Proponent",
		Body:  "Enter the department, team or person responsible for this facility.",
	},
	"zone": {
		Title: "Zone",
		Body:  "Enter the zone designation of this facility according to the organization's zoning system.",
	},
	"latitude": {
		Title: "Latitude",
		Body:  "Geographic latitude of the facility, between -90 and 90. Use **Use my location** to fill it from the browser.",
	},
	"longitude": {
		Title: "Longitude",
		Body:  "Geographic longitude of the facility, between -180 and 180. Use **Use my location** to fill it from the browser.",
	},
	"hvac_type": {
		Title: "HVAC Type",
		Body: `Select every type of air conditioning system present in the facility. More than one option may apply.
If the system type is not listed, select *Other*.

**Options:** Window, Split, Cassette, Duct Concealed, Free Standing, Other.`,
	},
	"sprinkler": {
		Title: "Sprinkler System",
		Body:  "Select *Yes* if the facility is equipped with a fire sprinkler system, *No* if it is not.",
	},
	"fire_alarm": {
		Title: "Fire Alarm System",
		Body:  "Select *Yes* if a fire alarm system is present and operational, *No* if there is none.",
	},
	"power_source": {
		Title: "Power Source",
		Body: `Select every voltage level supplied to the building. More than one option may apply.

**Options:** 110V, 220V, 380V, 480V.`,
	},
	"vcp_status": {
		Title: "VCP Status",
		Body: `Current status of the Ventilation Control Program for this building:

- **Completed**: fully implemented.
- **Inprogress**: implementation is ongoing.
- **Not Applicable**: the building is not part of the program.
- **Planned**: implementation is scheduled. Provide the planned date in the next field.`,
	},
	"vcp_planned_date": {
		Title: "VCP Planned Date",
		Body:  "If VCP implementation is planned, enter the scheduled start or completion date.",
	},
	"smart_power_meter_status": {
		Title: "Smart Power Meter Status",
		Body:  "Select *Yes* if a smart (digital) power meter is installed and working, *No* otherwise.",
	},
	"eifs": {
		Title: "Exterior Insulation Finishing System (EIFS)",
		Body:  "Select *Yes* if the building uses EIFS, an external wall cladding system for insulation and finish.",
	},
	"eifs_installed_year": {
		Title: "EIFS Installation Year",
		Body:  "If EIFS is present, enter the year it was installed. Leave blank if not applicable.",
	},
	"exterior_cladding_condition": {
		Title: "Exterior Cladding Condition",
		Body: `Rate the condition of the exterior wall cladding:

- **Poor**: less than 25% intact
- **Average**: 25% to 50% intact
- **Good**: 50% to 75% intact
- **Excellent**: more than 75% intact`,
	},
	"interior_architectural_condition": {
		Title: "Interior Architectural Condition",
		Body: `Rate the overall condition of interior finishes such as paint, gypsum and doors:

- **Poor**: less than 25% in good shape
- **Average**: 25% to 50% in good shape
- **Good**: 50% to 75% in good shape
- **Excellent**: more than 75% in good shape`,
	},
	"fire_protection_system_obsolete": {
		Title: "Fire Protection System Obsolete",
		Body:  "Select *Obsolete* if the fire protection system is outdated and needs replacement or upgrade, otherwise *Not Obsolete*.",
	},
	"hvac_condition": {
		Title: "HVAC Condition",
		Body:  "Enter how many HVAC units are obsolete or in poor condition and need replacement or significant repair.",
	},
	"electrical_condition": {
		Title: "Electrical Condition",
		Body:  "Enter how many electrical systems or components are obsolete or in poor condition.",
	},
	"roofing_condition": {
		Title: "Roofing Condition",
		Body: `Rate the water proofing condition of the roof:

- **Poor**: major leaks or below 25% effective
- **Average**: 25% to 50% effective
- **Good**: 50% to 75% effective
- **Excellent**: more than 75% effective`,
	},
	"water_proofing_warranty": {
		Title: "Water Proofing Warranty",
		Body:  "Select *Yes* if the roof water proofing system has a valid warranty and provide its expiry date in the next field.",
	},
	"water_proofing_warranty_date": {
		Title: "Water Proofing Warranty Date",
		Body:  "Enter the date the current water proofing warranty expires. Leave blank if not applicable.",
	},
	"full_inspection_completed": {
		Title: "Full Inspection Completed",
		Body:  "Select *Yes* if every inspection requirement has been met and documented, *No* if the inspection is pending or incomplete.",
	},
}

type helpView struct {
	Title string
	Body  template.HTML
}

// helpRenderer turns help markdown into sanitized HTML once at startup.
type helpRenderer struct {
	rendered map[string]helpView
}

func newHelpRenderer() (*helpRenderer, error) {
	md := goldmark.New()
	policy := bluemonday.UGCPolicy()

	rendered := make(map[string]helpView, len(fieldHelp))
	for name, entry := range fieldHelp {
		var buf bytes.Buffer
		if err := md.Convert([]byte(strings.TrimSpace(entry.Body)), &buf); err != nil {
			return nil, err
		}
		rendered[name] = helpView{
			Title: entry.Title,
			Body:  template.HTML(policy.SanitizeBytes(buf.Bytes())),
		}
	}
	return &helpRenderer{rendered: rendered}, nil
}

func (h *helpRenderer) lookup(field string) (helpView, bool) {
	v, ok := h.rendered[field]
	return v, ok
}
