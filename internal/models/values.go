package models

import (
	"net/url"
	"strconv"
	"strings"
)

// ParseValues builds an input from form-style values keyed by column name, as
// posted by the dashboard or read from a spreadsheet row. Multi-select fields may
// repeat the key or hold a comma-separated list. Numbers and dates that do not
// parse are left unset and reported in the returned *ValidationError; the rest
// of the input is still filled in.
func ParseValues(v url.Values) (InspectionInput, error) {
	verr := &ValidationError{}
	in := InspectionInput{
		FunctionLocationID:             v.Get("function_location_id"),
		SAPFunctionLocation:            v.Get("sap_function_location"),
		BuildingName:                   v.Get("building_name"),
		BuildingNumber:                 v.Get("building_number"),
		FacilityType:                   v.Get("facility_type"),
		Function:                       v.Get("function"),
		MacroArea:                      v.Get("macro_area"),
		MicroArea:                      v.Get("micro_area"),
		Proponent:                      v.Get("proponent"),
		Zone:                           v.Get("zone"),
		HVACType:                       splitMulti(v["hvac_type"]),
		Sprinkler:                      v.Get("sprinkler"),
		FireAlarm:                      v.Get("fire_alarm"),
		PowerSource:                    splitMulti(v["power_source"]),
		VCPStatus:                      v.Get("vcp_status"),
		VCPPlannedDate:                 parseDateValue(verr, v, "vcp_planned_date"),
		SmartPowerMeterStatus:          v.Get("smart_power_meter_status"),
		EIFS:                           v.Get("eifs"),
		EIFSInstalledYear:              parseIntValue(verr, v, "eifs_installed_year"),
		ExteriorCladdingCondition:      v.Get("exterior_cladding_condition"),
		InteriorArchitecturalCondition: v.Get("interior_architectural_condition"),
		FireProtectionSystemObsolete:   v.Get("fire_protection_system_obsolete"),
		HVACCondition:                  parseIntValue(verr, v, "hvac_condition"),
		ElectricalCondition:            parseIntValue(verr, v, "electrical_condition"),
		RoofingCondition:               v.Get("roofing_condition"),
		WaterProofingWarranty:          v.Get("water_proofing_warranty"),
		WaterProofingWarrantyDate:      parseDateValue(verr, v, "water_proofing_warranty_date"),
		Latitude:                       parseFloatValue(verr, v, "latitude"),
		Longitude:                      parseFloatValue(verr, v, "longitude"),
		FullInspectionCompleted:        v.Get("full_inspection_completed"),
	}
	in.Normalize()

	if len(verr.Errors) > 0 {
		return in, verr
	}
	return in, nil
}

// Values is the inverse of ParseValues. Unset optional fields are omitted.
func (in InspectionInput) Values() url.Values {
	v := url.Values{}
	set := func(key, value string) {
		if value != "" {
			v.Set(key, value)
		}
	}

	set("function_location_id", in.FunctionLocationID)
	set("sap_function_location", in.SAPFunctionLocation)
	set("building_name", in.BuildingName)
	set("building_number", in.BuildingNumber)
	set("facility_type", in.FacilityType)
	set("function", in.Function)
	set("macro_area", in.MacroArea)
	set("micro_area", in.MicroArea)
	set("proponent", in.Proponent)
	set("zone", in.Zone)
	for _, s := range in.HVACType {
		v.Add("hvac_type", s)
	}
	set("sprinkler", in.Sprinkler)
	set("fire_alarm", in.FireAlarm)
	for _, s := range in.PowerSource {
		v.Add("power_source", s)
	}
	set("vcp_status", in.VCPStatus)
	if in.VCPPlannedDate != nil {
		set("vcp_planned_date", in.VCPPlannedDate.String())
	}
	set("smart_power_meter_status", in.SmartPowerMeterStatus)
	set("eifs", in.EIFS)
	if in.EIFSInstalledYear != nil {
		set("eifs_installed_year", strconv.Itoa(*in.EIFSInstalledYear))
	}
	set("exterior_cladding_condition", in.ExteriorCladdingCondition)
	set("interior_architectural_condition", in.InteriorArchitecturalCondition)
	set("fire_protection_system_obsolete", in.FireProtectionSystemObsolete)
	if in.HVACCondition != nil {
		set("hvac_condition", strconv.Itoa(*in.HVACCondition))
	}
	if in.ElectricalCondition != nil {
		set("electrical_condition", strconv.Itoa(*in.ElectricalCondition))
	}
	set("roofing_condition", in.RoofingCondition)
	set("water_proofing_warranty", in.WaterProofingWarranty)
	if in.WaterProofingWarrantyDate != nil {
		set("water_proofing_warranty_date", in.WaterProofingWarrantyDate.String())
	}
	if in.Latitude != nil {
		set("latitude", strconv.FormatFloat(*in.Latitude, 'f', -1, 64))
	}
	if in.Longitude != nil {
		set("longitude", strconv.FormatFloat(*in.Longitude, 'f', -1, 64))
	}
	set("full_inspection_completed", in.FullInspectionCompleted)
	return v
}

func splitMulti(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func parseIntValue(verr *ValidationError, v url.Values, key string) *int {
	raw := strings.TrimSpace(v.Get(key))
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		// spreadsheets export whole numbers as 12.0
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil || f != float64(int(f)) {
			verr.add(key, "must be a whole number")
			return nil
		}
		n = int(f)
	}
	return &n
}

func parseFloatValue(verr *ValidationError, v url.Values, key string) *float64 {
	raw := strings.TrimSpace(v.Get(key))
	if raw == "" {
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		verr.add(key, "must be a number")
		return nil
	}
	return &f
}

func parseDateValue(verr *ValidationError, v url.Values, key string) *Date {
	raw := strings.TrimSpace(v.Get(key))
	if raw == "" {
		return nil
	}
	d, err := ParseDate(raw)
	if err != nil {
		verr.add(key, "must be a date in YYYY-MM-DD format")
		return nil
	}
	return &d
}
