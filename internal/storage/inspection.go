package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"facility-checklist/internal/models"
)

const inspectionSelect = `
	SELECT id, function_location_id, sap_function_location, building_name, building_number,
		facility_type, "function", macro_area, micro_area, proponent, zone,
		hvac_type, sprinkler, fire_alarm, power_source, vcp_status, vcp_planned_date,
		smart_power_meter_status, eifs, eifs_installed_year,
		exterior_cladding_condition, interior_architectural_condition,
		fire_protection_system_obsolete, hvac_condition, electrical_condition, roofing_condition,
		water_proofing_warranty, water_proofing_warranty_date, latitude, longitude,
		full_inspection_completed, created_by, updated_by, created_at, updated_at
	FROM inspections
`

const inspectionInsert = `
	INSERT INTO inspections (
		function_location_id, sap_function_location, building_name, building_number,
		facility_type, "function", macro_area, micro_area, proponent, zone,
		hvac_type, sprinkler, fire_alarm, power_source, vcp_status, vcp_planned_date,
		smart_power_meter_status, eifs, eifs_installed_year,
		exterior_cladding_condition, interior_architectural_condition,
		fire_protection_system_obsolete, hvac_condition, electrical_condition, roofing_condition,
		water_proofing_warranty, water_proofing_warranty_date, latitude, longitude,
		full_inspection_completed, created_by, updated_by, created_at, updated_at
	) VALUES (
		:function_location_id, :sap_function_location, :building_name, :building_number,
		:facility_type, :function, :macro_area, :micro_area, :proponent, :zone,
		:hvac_type, :sprinkler, :fire_alarm, :power_source, :vcp_status, :vcp_planned_date,
		:smart_power_meter_status, :eifs, :eifs_installed_year,
		:exterior_cladding_condition, :interior_architectural_condition,
		:fire_protection_system_obsolete, :hvac_condition, :electrical_condition, :roofing_condition,
		:water_proofing_warranty, :water_proofing_warranty_date, :latitude, :longitude,
		:full_inspection_completed, :created_by, :updated_by, :created_at, :updated_at
	)
	RETURNING id
`

const inspectionUpdate = `
	UPDATE inspections SET
		function_location_id = :function_location_id,
		sap_function_location = :sap_function_location,
		building_name = :building_name,
		building_number = :building_number,
		facility_type = :facility_type,
		"function" = :function,
		macro_area = :macro_area,
		micro_area = :micro_area,
		proponent = :proponent,
		zone = :zone,
		hvac_type = :hvac_type,
		sprinkler = :sprinkler,
		fire_alarm = :fire_alarm,
		power_source = :power_source,
		vcp_status = :vcp_status,
		vcp_planned_date = :vcp_planned_date,
		smart_power_meter_status = :smart_power_meter_status,
		eifs = :eifs,
		eifs_installed_year = :eifs_installed_year,
		exterior_cladding_condition = :exterior_cladding_condition,
		interior_architectural_condition = :interior_architectural_condition,
		fire_protection_system_obsolete = :fire_protection_system_obsolete,
		hvac_condition = :hvac_condition,
		electrical_condition = :electrical_condition,
		roofing_condition = :roofing_condition,
		water_proofing_warranty = :water_proofing_warranty,
		water_proofing_warranty_date = :water_proofing_warranty_date,
		latitude = :latitude,
		longitude = :longitude,
		full_inspection_completed = :full_inspection_completed,
		updated_by = :updated_by,
		updated_at = :updated_at
	WHERE id = :id
`

// CreateInspection inserts a new record attributed to actor and returns it.
func (s *Storage) CreateInspection(ctx context.Context, in models.InspectionInput, actor string) (*models.Inspection, error) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	fillArrays(&in)
	rec := models.Inspection{
		InspectionInput: in,
		CreatedBy:       optional(actor),
		UpdatedBy:       optional(actor),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	query, args, err := sqlx.Named(inspectionInsert, rec)
	if err != nil {
		return nil, fmt.Errorf("bind insert: %w", err)
	}
	if err := s.db.QueryRowxContext(ctx, s.db.Rebind(query), args...).Scan(&rec.ID); err != nil {
		return nil, mapError(err)
	}

	return s.GetInspection(ctx, rec.ID)
}

func (s *Storage) GetInspection(ctx context.Context, id int64) (*models.Inspection, error) {
	return getInspection(ctx, s.db, id)
}

func (s *Storage) ListInspections(ctx context.Context) ([]models.Inspection, error) {
	inspections := []models.Inspection{}
	if err := s.db.SelectContext(ctx, &inspections, inspectionSelect+` ORDER BY id`); err != nil {
		return nil, err
	}
	return inspections, nil
}

// UpdateInspection replaces the editable fields of record id.
func (s *Storage) UpdateInspection(ctx context.Context, id int64, in models.InspectionInput, actor string) (*models.Inspection, error) {
	fillArrays(&in)
	rec := models.Inspection{
		ID:              id,
		InspectionInput: in,
		UpdatedBy:       optional(actor),
		UpdatedAt:       time.Now().UTC().Truncate(time.Microsecond),
	}

	var updated *models.Inspection
	err := withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		query, args, err := sqlx.Named(inspectionUpdate, rec)
		if err != nil {
			return fmt.Errorf("bind update: %w", err)
		}
		res, err := tx.ExecContext(ctx, tx.Rebind(query), args...)
		if err != nil {
			return mapError(err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		updated, err = getInspection(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteInspection removes record id and returns it as it was before deletion.
func (s *Storage) DeleteInspection(ctx context.Context, id int64) (*models.Inspection, error) {
	var deleted *models.Inspection
	err := withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		rec, err := getInspection(ctx, tx, id)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM inspections WHERE id = ?`), id)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ErrNotFound
		}
		deleted = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// queryer is satisfied by both *sqlx.DB and *sqlx.Tx.
type queryer interface {
	sqlx.QueryerContext
	Rebind(query string) string
}

func getInspection(ctx context.Context, q queryer, id int64) (*models.Inspection, error) {
	var rec models.Inspection
	if err := sqlx.GetContext(ctx, q, &rec, q.Rebind(inspectionSelect+` WHERE id = ?`), id); err != nil {
		return nil, mapError(err)
	}
	return &rec, nil
}

// fillArrays keeps NULL out of the NOT NULL array columns.
func fillArrays(in *models.InspectionInput) {
	if in.HVACType == nil {
		in.HVACType = pq.StringArray{}
	}
	if in.PowerSource == nil {
		in.PowerSource = pq.StringArray{}
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
