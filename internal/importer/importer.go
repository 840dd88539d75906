// Package importer loads legacy spreadsheet exports (CSV) into the store.
// Rows are independent: a bad row is logged and skipped, the rest still load.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"facility-checklist/internal/auth"
	"facility-checklist/internal/models"
	"facility-checklist/internal/storage"
)

// RowError reports a skipped row. Row numbers count the header as row 1.
type RowError struct {
	Row int
	Err error
}

type Result struct {
	Imported int
	Skipped  int
	Errors   []RowError
}

func (r *Result) skip(row int, err error) {
	r.Skipped++
	r.Errors = append(r.Errors, RowError{Row: row, Err: err})
}

type Importer struct {
	storage *storage.Storage
	log     *zap.Logger
	now     func() time.Time
}

func New(store *storage.Storage, log *zap.Logger) *Importer {
	return &Importer{storage: store, log: log, now: time.Now}
}

// ImportInspections inserts one inspection per row, attributed to actor.
func (i *Importer) ImportInspections(ctx context.Context, r io.Reader, actor string) (*Result, error) {
	res := &Result{}
	err := readRows(r, func(row int, values url.Values) error {
		canonicalizeEnums(values)

		in, perr := models.ParseValues(values)
		if perr != nil {
			// unreadable numbers and dates are dropped, the row still loads
			i.log.Warn("import: ignoring unreadable values", zap.Int("row", row), zap.Error(perr))
		}
		if err := in.Validate(i.now()); err != nil {
			i.log.Warn("import: skipping invalid inspection", zap.Int("row", row), zap.Error(err))
			res.skip(row, err)
			return nil
		}

		rec, err := i.storage.CreateInspection(ctx, in, actor)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			i.log.Warn("import: insert failed", zap.Int("row", row), zap.Error(err))
			res.skip(row, err)
			return nil
		}
		res.Imported++
		i.log.Debug("import: inspection created", zap.Int("row", row), zap.Int64("id", rec.ID))
		return nil
	})
	return res, err
}

// ImportUsers creates accounts from username plus either password_hash (a
// bcrypt hash, stored as is) or password (hashed here). Rows follow the same
// username and password rules as registration. Existing usernames are skipped.
func (i *Importer) ImportUsers(ctx context.Context, r io.Reader) (*Result, error) {
	res := &Result{}
	err := readRows(r, func(row int, values url.Values) error {
		username, err := auth.ValidateUsername(values.Get("username"))
		if err != nil {
			res.skip(row, fmt.Errorf("user %q: %w", username, err))
			return nil
		}

		hash := strings.TrimSpace(values.Get("password_hash"))
		switch {
		case hash != "":
			if !auth.IsBcryptHash(hash) {
				res.skip(row, fmt.Errorf("user %q: password_hash is not a bcrypt hash", username))
				return nil
			}
		case values.Get("password") == "":
			res.skip(row, fmt.Errorf("user %q has neither password_hash nor password", username))
			return nil
		default:
			password := values.Get("password")
			if _, err := auth.ValidateCredentials(username, password); err != nil {
				res.skip(row, fmt.Errorf("user %q: %w", username, err))
				return nil
			}
			if hash, err = auth.HashPassword(password); err != nil {
				res.skip(row, fmt.Errorf("user %q: %w", username, err))
				return nil
			}
		}

		_, err = i.storage.CreateUser(ctx, username, hash)
		switch {
		case errors.Is(err, storage.ErrDuplicate):
			i.log.Info("import: user already exists", zap.String("username", username))
			res.skip(row, fmt.Errorf("user %q already exists", username))
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			i.log.Warn("import: insert user failed", zap.Int("row", row), zap.Error(err))
			res.skip(row, err)
		default:
			res.Imported++
		}
		return nil
	})
	return res, err
}

// readRows calls fn with each data row keyed by normalized header names.
// An error from fn stops the import.
func readRows(r io.Reader, fn func(row int, values url.Values) error) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return errors.New("empty file: expected a header row")
	}
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	for i, h := range header {
		header[i] = normalizeHeader(h)
	}

	row := 1
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		row++
		if err != nil {
			return fmt.Errorf("read row %d: %w", row, err)
		}

		values := url.Values{}
		for col, cell := range record {
			if col < len(header) && header[col] != "" {
				values.Set(header[col], cell)
			}
		}
		if err := fn(row, values); err != nil {
			return err
		}
	}
}

// normalizeHeader maps "Building Name" and "building-name" to building_name.
func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(h)
}

var enumFields = map[string][]string{
	"sprinkler":                        models.YesNo,
	"fire_alarm":                       models.YesNo,
	"vcp_status":                       models.VCPStatuses,
	"smart_power_meter_status":         models.YesNo,
	"eifs":                             models.YesNo,
	"exterior_cladding_condition":      models.ConditionRatings,
	"interior_architectural_condition": models.ConditionRatings,
	"fire_protection_system_obsolete":  models.ObsolescenceStates,
	"roofing_condition":                models.ConditionRatings,
	"water_proofing_warranty":          models.YesNo,
	"full_inspection_completed":        models.YesNo,
	"hvac_type":                        models.HVACTypes,
	"power_source":                     models.PowerSources,
}

// canonicalizeEnums fixes case and spacing of spreadsheet values, so that
// "in progress" loads as Inprogress and "yes" as Yes.
func canonicalizeEnums(values url.Values) {
	for field, allowed := range enumFields {
		raw, ok := values[field]
		if !ok {
			continue
		}
		for i, cell := range raw {
			parts := strings.Split(cell, ",")
			for j, p := range parts {
				parts[j] = canonical(strings.TrimSpace(p), allowed)
			}
			raw[i] = strings.Join(parts, ",")
		}
	}
}

func canonical(v string, allowed []string) string {
	key := enumKey(v)
	for _, a := range allowed {
		if enumKey(a) == key {
			return a
		}
	}
	return v
}

func enumKey(s string) string {
	return strings.ToLower(strings.NewReplacer(" ", "", "-", "", "_", "").Replace(s))
}
