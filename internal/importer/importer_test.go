package importer

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"facility-checklist/internal/auth"
	"facility-checklist/internal/storage"
	"facility-checklist/internal/testutil"
)

const inspectionsCSV = "\ufeffFunction Location ID,Building Name,Facility Type,HVAC Type,Power Source,Sprinkler,Fire Alarm,VCP Status,VCP Planned Date,Smart Power Meter Status,EIFS,EIFS Installed Year,Exterior Cladding Condition,Interior Architectural Condition,Fire Protection System Obsolete,HVAC Condition,Electrical Condition,Roofing Condition,Water Proofing Warranty,Water Proofing Warranty Date,Latitude,Longitude,Full Inspection Completed\n" +
	`FL-1,Main Office,Office,"split, window",220V,yes,Yes,In progress,,No,No,,Good,Average,Not Obsolete,2.0,,Good,No,,26.1,50.2,No` + "\n" +
	`FL-2,,Warehouse,Split,,Yes,Yes,Completed,,No,No,,Good,Good,Obsolete,,,Poor,No,,,,Yes` + "\n" +
	`FL-3,Depot,Warehouse,Split,380V,No,No,Planned,2026-05-01 00:00:00,No,Yes,2010,Poor,Poor,Obsolete,n/a,1,Average,Yes,2027-12-31,,,No` + "\n"

func newImporter(t *testing.T) (*Importer, *storage.Storage) {
	t.Helper()
	store := testutil.OpenStore(t)
	imp := New(store, zap.NewNop())
	imp.now = func() time.Time { return time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC) }
	return imp, store
}

func TestImportInspections(t *testing.T) {
	imp, ts := newImporter(t)
	ctx := context.Background()

	res, err := imp.ImportInspections(ctx, strings.NewReader(inspectionsCSV), "importer")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 3, res.Errors[0].Row)

	list, err := ts.ListInspections(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)

	first := list[0]
	assert.Equal(t, "Main Office", first.BuildingName)
	assert.Equal(t, "Inprogress", first.VCPStatus)
	assert.Equal(t, "Yes", first.Sprinkler)
	if diff := cmp.Diff([]string{"Split", "Window"}, []string(first.HVACType)); diff != "" {
		t.Errorf("hvac_type mismatch (-want +got):\n%s", diff)
	}
	require.NotNil(t, first.HVACCondition)
	assert.Equal(t, 2, *first.HVACCondition)
	require.NotNil(t, first.CreatedBy)
	assert.Equal(t, "importer", *first.CreatedBy)

	second := list[1]
	assert.Equal(t, "Depot", second.BuildingName)
	assert.Nil(t, second.HVACCondition)
	require.NotNil(t, second.VCPPlannedDate)
	assert.Equal(t, "2026-05-01", second.VCPPlannedDate.String())
	assert.Nil(t, second.Latitude)
}

func TestImportInspectionsEmptyFile(t *testing.T) {
	imp, _ := newImporter(t)
	_, err := imp.ImportInspections(context.Background(), strings.NewReader(""), "importer")
	assert.Error(t, err)
}

func TestImportUsers(t *testing.T) {
	imp, ts := newImporter(t)
	ctx := context.Background()

	existing, err := auth.HashPassword("already-hashed")
	require.NoError(t, err)
	csvData := "username,password_hash,password\n" +
		"carol," + existing + ",\n" +
		"dave,,plain-pass\n" +
		"carol,,other\n" +
		",,orphan\n" +
		"erin,,\n" +
		"frank,not-a-bcrypt-hash,\n" +
		"gina,,abc\n" +
		"hal smith,,long-enough\n"

	res, err := imp.ImportUsers(ctx, strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, 6, res.Skipped)

	rows := make([]int, 0, len(res.Errors))
	for _, e := range res.Errors {
		rows = append(rows, e.Row)
	}
	if diff := cmp.Diff([]int{4, 5, 6, 7, 8, 9}, rows); diff != "" {
		t.Errorf("skipped rows mismatch (-want +got):\n%s", diff)
	}
	assert.ErrorIs(t, res.Errors[4].Err, auth.ErrPasswordShort)
	assert.ErrorIs(t, res.Errors[5].Err, auth.ErrInvalidUsername)

	for _, name := range []string{"frank", "gina"} {
		_, err := ts.GetUserByUsername(ctx, name)
		assert.ErrorIs(t, err, storage.ErrNotFound, name)
	}

	carol, err := ts.GetUserByUsername(ctx, "carol")
	require.NoError(t, err)
	assert.True(t, auth.CheckPassword(carol.PasswordHash, "already-hashed"))

	dave, err := ts.GetUserByUsername(ctx, "dave")
	require.NoError(t, err)
	assert.True(t, auth.CheckPassword(dave.PasswordHash, "plain-pass"))
}

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "building_name", normalizeHeader(" Building Name "))
	assert.Equal(t, "fire_alarm", normalizeHeader("fire-alarm"))
	assert.Equal(t, "function_location_id", normalizeHeader("\ufeffFunction Location ID"))
}
