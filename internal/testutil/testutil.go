package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"facility-checklist/internal/models"
	"facility-checklist/internal/storage"
)

// OpenStore creates a migrated SQLite database under t.TempDir.
// The store is closed via t.Cleanup.
func OpenStore(t *testing.T) *storage.Storage {
	t.Helper()
	path := filepath.Join(t.TempDir(), "facility.db")
	log := zap.NewNop()

	if err := storage.MigrateUp(storage.DriverSQLite, path, log); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	store, err := storage.Open(context.Background(), storage.DriverSQLite, path, 1, log)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func intPtr(v int) *int { return &v }
func floatPtr(v float64) *float64 { return &v }
func datePtr(d models.Date) *models.Date { return &d }

// SampleInspection returns a valid inspection input with every field populated.
func SampleInspection() models.InspectionInput {
	return models.InspectionInput{
		FunctionLocationID:             "FL-1001",
		SAPFunctionLocation:            "SAP-77-A",
		BuildingName:                   "North Warehouse",
		BuildingNumber:                 "B-12",
		FacilityType:                   "Warehouse",
		Function:                       "Storage",
		MacroArea:                      "East",
		MicroArea:                      "E-3",
		Proponent:                      "Logistics",
		Zone:                           "Z1",
		HVACType:                       []string{"Split", "Cassette"},
		Sprinkler:                      models.Yes,
		FireAlarm:                      models.Yes,
		PowerSource:                    []string{"220V", "380V"},
		VCPStatus:                      "Planned",
		VCPPlannedDate:                 datePtr(models.NewDate(2026, 3, 15)),
		SmartPowerMeterStatus:          models.No,
		EIFS:                           models.Yes,
		EIFSInstalledYear:              intPtr(2012),
		ExteriorCladdingCondition:      "Good",
		InteriorArchitecturalCondition: "Average",
		FireProtectionSystemObsolete:   "Not Obsolete",
		HVACCondition:                  intPtr(2),
		ElectricalCondition:            intPtr(1),
		RoofingCondition:               "Excellent",
		WaterProofingWarranty:          models.Yes,
		WaterProofingWarrantyDate:      datePtr(models.NewDate(2027, 1, 31)),
		Latitude:                       floatPtr(26.3927),
		Longitude:                      floatPtr(50.1097),
		FullInspectionCompleted:        models.No,
	}
}
