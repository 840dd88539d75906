package dashboard

import (
	"sort"
	"strings"

	"facility-checklist/internal/models"
)

const unspecified = "Unspecified"

type Count struct {
	Label   string
	Count   int
	Percent float64
}

type ConditionAverage struct {
	Label   string
	Average float64
	Samples int
	// Scale is 4 for ratings (Poor=1..Excellent=4) and 0 for unit counts.
	Scale int
}

type Location struct {
	ID           int64
	BuildingName string
	FacilityType string
	Zone         string
	Latitude     float64
	Longitude    float64
	Completed    string
}

// Summary is the overview panel above the inspection table.
type Summary struct {
	Total         int
	Completed     int
	Pending       int
	FacilityTypes []Count
	Zones         []Count
	Conditions    []ConditionAverage
	Located       []Location
}

func (s Summary) CompletionPercent() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Completed) * 100 / float64(s.Total)
}

func summarize(records []models.Inspection) Summary {
	s := Summary{Total: len(records)}

	types := map[string]int{}
	zones := map[string]int{}
	ratings := []struct {
		label string
		get   func(models.Inspection) string
	}{
		{"Exterior Cladding", func(r models.Inspection) string { return r.ExteriorCladdingCondition }},
		{"Interior Architectural", func(r models.Inspection) string { return r.InteriorArchitecturalCondition }},
		{"Roofing", func(r models.Inspection) string { return r.RoofingCondition }},
	}
	counts := []struct {
		label string
		get   func(models.Inspection) *int
	}{
		{"Obsolete HVAC Units", func(r models.Inspection) *int { return r.HVACCondition }},
		{"Obsolete Electrical Components", func(r models.Inspection) *int { return r.ElectricalCondition }},
	}

	for _, r := range records {
		if r.FullInspectionCompleted == models.Yes {
			s.Completed++
		} else {
			s.Pending++
		}
		types[labelOrUnspecified(r.FacilityType)]++
		zones[labelOrUnspecified(r.Zone)]++

		if r.Latitude != nil && r.Longitude != nil {
			s.Located = append(s.Located, Location{
				ID:           r.ID,
				BuildingName: r.BuildingName,
				FacilityType: labelOrUnspecified(r.FacilityType),
				Zone:         labelOrUnspecified(r.Zone),
				Latitude:     *r.Latitude,
				Longitude:    *r.Longitude,
				Completed:    r.FullInspectionCompleted,
			})
		}
	}

	for _, rating := range ratings {
		avg := ConditionAverage{Label: rating.label, Scale: len(models.ConditionRatings)}
		total := 0
		for _, r := range records {
			if score := models.ConditionScore(rating.get(r)); score > 0 {
				total += score
				avg.Samples++
			}
		}
		if avg.Samples > 0 {
			avg.Average = float64(total) / float64(avg.Samples)
		}
		s.Conditions = append(s.Conditions, avg)
	}
	for _, c := range counts {
		avg := ConditionAverage{Label: c.label}
		total := 0
		for _, r := range records {
			if v := c.get(r); v != nil {
				total += *v
				avg.Samples++
			}
		}
		if avg.Samples > 0 {
			avg.Average = float64(total) / float64(avg.Samples)
		}
		s.Conditions = append(s.Conditions, avg)
	}

	s.FacilityTypes = sortedCounts(types, s.Total)
	s.Zones = sortedCounts(zones, s.Total)
	return s
}

// sortedCounts orders by count descending, then label.
func sortedCounts(m map[string]int, total int) []Count {
	out := make([]Count, 0, len(m))
	for label, n := range m {
		c := Count{Label: label, Count: n}
		if total > 0 {
			c.Percent = float64(n) * 100 / float64(total)
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

func labelOrUnspecified(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return unspecified
	}
	return s
}
