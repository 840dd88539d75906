package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

const (
	Yes = "Yes"
	No  = "No"
)

var (
	HVACTypes          = []string{"Window", "Split", "Cassette", "Duct Concealed", "Free Standing", "Other"}
	PowerSources       = []string{"110V", "220V", "380V", "480V"}
	YesNo              = []string{Yes, No}
	VCPStatuses        = []string{"Completed", "Inprogress", "Not Applicable", "Planned"}
	ConditionRatings   = []string{"Poor", "Average", "Good", "Excellent"}
	ObsolescenceStates = []string{"Obsolete", "Not Obsolete"}
)

// ConditionScore maps a rating to 1..4, or 0 for an unknown rating.
func ConditionScore(rating string) int {
	for i, r := range ConditionRatings {
		if r == rating {
			return i + 1
		}
	}
	return 0
}

// InspectionInput is the editable part of an inspection record. It is the body of
// create and update requests.
type InspectionInput struct {
	FunctionLocationID  string `json:"function_location_id" db:"function_location_id"`
	SAPFunctionLocation string `json:"sap_function_location" db:"sap_function_location"`
	BuildingName        string `json:"building_name" db:"building_name"`
	BuildingNumber      string `json:"building_number" db:"building_number"`
	FacilityType        string `json:"facility_type" db:"facility_type"`
	Function            string `json:"function" db:"function"`
	MacroArea           string `json:"macro_area" db:"macro_area"`
	MicroArea           string `json:"micro_area" db:"micro_area"`
	Proponent           string `json:"proponent" db:"proponent"`
	Zone                string `json:"zone" db:"zone"`

	HVACType              pq.StringArray `json:"hvac_type" db:"hvac_type"`
	Sprinkler             string         `json:"sprinkler" db:"sprinkler"`
	FireAlarm             string         `json:"fire_alarm" db:"fire_alarm"`
	PowerSource           pq.StringArray `json:"power_source" db:"power_source"`
	VCPStatus             string         `json:"vcp_status" db:"vcp_status"`
	VCPPlannedDate        *Date          `json:"vcp_planned_date" db:"vcp_planned_date"`
	SmartPowerMeterStatus string         `json:"smart_power_meter_status" db:"smart_power_meter_status"`
	EIFS                  string         `json:"eifs" db:"eifs"`
	EIFSInstalledYear     *int           `json:"eifs_installed_year" db:"eifs_installed_year"`

	ExteriorCladdingCondition      string `json:"exterior_cladding_condition" db:"exterior_cladding_condition"`
	InteriorArchitecturalCondition string `json:"interior_architectural_condition" db:"interior_architectural_condition"`
	FireProtectionSystemObsolete   string `json:"fire_protection_system_obsolete" db:"fire_protection_system_obsolete"`
	HVACCondition                  *int   `json:"hvac_condition" db:"hvac_condition"`
	ElectricalCondition            *int   `json:"electrical_condition" db:"electrical_condition"`
	RoofingCondition               string `json:"roofing_condition" db:"roofing_condition"`

	WaterProofingWarranty     string   `json:"water_proofing_warranty" db:"water_proofing_warranty"`
	WaterProofingWarrantyDate *Date    `json:"water_proofing_warranty_date" db:"water_proofing_warranty_date"`
	Latitude                  *float64 `json:"latitude" db:"latitude"`
	Longitude                 *float64 `json:"longitude" db:"longitude"`

	FullInspectionCompleted string `json:"full_inspection_completed" db:"full_inspection_completed"`
}

type Inspection struct {
	ID int64 `json:"id" db:"id"`
	InspectionInput
	CreatedBy *string   `json:"created_by" db:"created_by"`
	UpdatedBy *string   `json:"updated_by" db:"updated_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// FieldError describes one rejected field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every rejected field of a request.
type ValidationError struct {
	Errors []FieldError `json:"errors"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, format string, args ...any) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Normalize trims text fields and removes duplicate multi-select entries.
func (in *InspectionInput) Normalize() {
	for _, s := range []*string{
		&in.FunctionLocationID, &in.SAPFunctionLocation, &in.BuildingName, &in.BuildingNumber,
		&in.FacilityType, &in.Function, &in.MacroArea, &in.MicroArea, &in.Proponent, &in.Zone,
		&in.Sprinkler, &in.FireAlarm, &in.VCPStatus, &in.SmartPowerMeterStatus, &in.EIFS,
		&in.ExteriorCladdingCondition, &in.InteriorArchitecturalCondition,
		&in.FireProtectionSystemObsolete, &in.RoofingCondition, &in.WaterProofingWarranty,
		&in.FullInspectionCompleted,
	} {
		*s = strings.TrimSpace(*s)
	}
	in.HVACType = dedupe(in.HVACType)
	in.PowerSource = dedupe(in.PowerSource)
}

// Validate checks required fields, enumerations and numeric ranges. It returns a
// *ValidationError listing every problem, or nil.
func (in *InspectionInput) Validate(now time.Time) error {
	verr := &ValidationError{}

	if in.FunctionLocationID == "" {
		verr.add("function_location_id", "is required")
	}
	if in.BuildingName == "" {
		verr.add("building_name", "is required")
	}

	for _, v := range in.HVACType {
		if !contains(HVACTypes, v) {
			verr.add("hvac_type", "unknown value %q, expected one of %s", v, strings.Join(HVACTypes, ", "))
		}
	}
	for _, v := range in.PowerSource {
		if !contains(PowerSources, v) {
			verr.add("power_source", "unknown value %q, expected one of %s", v, strings.Join(PowerSources, ", "))
		}
	}

	checkEnum(verr, "sprinkler", in.Sprinkler, YesNo)
	checkEnum(verr, "fire_alarm", in.FireAlarm, YesNo)
	checkEnum(verr, "vcp_status", in.VCPStatus, VCPStatuses)
	checkEnum(verr, "smart_power_meter_status", in.SmartPowerMeterStatus, YesNo)
	checkEnum(verr, "eifs", in.EIFS, YesNo)
	checkEnum(verr, "exterior_cladding_condition", in.ExteriorCladdingCondition, ConditionRatings)
	checkEnum(verr, "interior_architectural_condition", in.InteriorArchitecturalCondition, ConditionRatings)
	checkEnum(verr, "fire_protection_system_obsolete", in.FireProtectionSystemObsolete, ObsolescenceStates)
	checkEnum(verr, "roofing_condition", in.RoofingCondition, ConditionRatings)
	checkEnum(verr, "water_proofing_warranty", in.WaterProofingWarranty, YesNo)
	checkEnum(verr, "full_inspection_completed", in.FullInspectionCompleted, YesNo)

	if in.EIFSInstalledYear != nil {
		if y := *in.EIFSInstalledYear; y < 1900 || y > now.Year()+1 {
			verr.add("eifs_installed_year", "must be between 1900 and %d", now.Year()+1)
		}
	}
	if in.HVACCondition != nil && *in.HVACCondition < 0 {
		verr.add("hvac_condition", "must not be negative")
	}
	if in.ElectricalCondition != nil && *in.ElectricalCondition < 0 {
		verr.add("electrical_condition", "must not be negative")
	}
	if in.Latitude != nil && (*in.Latitude < -90 || *in.Latitude > 90) {
		verr.add("latitude", "must be between -90 and 90")
	}
	if in.Longitude != nil && (*in.Longitude < -180 || *in.Longitude > 180) {
		verr.add("longitude", "must be between -180 and 180")
	}

	if len(verr.Errors) > 0 {
		return verr
	}
	return nil
}

func checkEnum(verr *ValidationError, field, value string, allowed []string) {
	if value == "" {
		verr.add(field, "is required")
		return
	}
	if !contains(allowed, value) {
		verr.add(field, "must be one of %s", strings.Join(allowed, ", "))
	}
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

func dedupe(values []string) pq.StringArray {
	out := pq.StringArray{}
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
