package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"facility-checklist/internal/auth"
	"facility-checklist/internal/hub"
	"facility-checklist/internal/ingest"
	"facility-checklist/internal/models"
	"facility-checklist/internal/storage"
	"facility-checklist/internal/testutil"
)

const testSecret = "handlers-test-secret"

type testEnv struct {
	router http.Handler
	store  *storage.Storage
	tokens *auth.TokenManager
	hub    *hub.Hub
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := zap.NewNop()
	store := testutil.OpenStore(t)
	tokens, err := auth.NewTokenManager(testSecret, time.Hour)
	require.NoError(t, err)

	liveHub := hub.NewHub(log)
	events := ingest.NewLocalPublisher(ingest.NewProcessor(store, liveHub, nil, log))

	r := chi.NewRouter()
	New(store, events, liveHub, tokens, log).RegisterRoutes(r)
	return &testEnv{router: r, store: store, tokens: tokens, hub: liveHub}
}

func (e *testEnv) token(t *testing.T, username string) string {
	t.Helper()
	tok, err := e.tokens.GenerateToken(username)
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) InspectionResult {
	t.Helper()
	var out InspectionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func detail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	s, _ := out["detail"].(string)
	return s
}

func TestCreateThenList(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, "alice")
	in := testutil.SampleInspection()

	rec := env.do(t, http.MethodPost, "/inspection", tok, in)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeResult(t, rec)
	assert.Equal(t, "added", created.Status)
	require.NotNil(t, created.Record)
	require.NotNil(t, created.Record.CreatedBy)
	assert.Equal(t, "alice", *created.Record.CreatedBy)

	rec = env.do(t, http.MethodGet, "/inspections", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Inspections []models.Inspection `json:"inspections"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Inspections, 1)

	got := list.Inspections[0]
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, in.FunctionLocationID, got.FunctionLocationID)
	assert.Equal(t, in.BuildingName, got.BuildingName)
	assert.Equal(t, []string(in.HVACType), []string(got.HVACType))
	assert.Equal(t, []string(in.PowerSource), []string(got.PowerSource))
	assert.Equal(t, in.RoofingCondition, got.RoofingCondition)
	require.NotNil(t, got.WaterProofingWarrantyDate)
	assert.Equal(t, "2027-01-31", got.WaterProofingWarrantyDate.String())

	rec = env.do(t, http.MethodGet, "/inspections/"+itoa(created.ID), tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestListEmpty(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/inspections", env.token(t, "alice"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"inspections":[]}`, rec.Body.String())
}

func TestUpdateInspection(t *testing.T) {
	env := newTestEnv(t)
	created := decodeResult(t, env.do(t, http.MethodPost, "/inspection", env.token(t, "alice"), testutil.SampleInspection()))

	in := testutil.SampleInspection()
	in.BuildingName = "South Warehouse"
	in.HVACType = []string{"Window", "Window"}
	rec := env.do(t, http.MethodPut, "/inspection/"+itoa(created.ID), env.token(t, "bob"), in)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	updated := decodeResult(t, rec)
	assert.Equal(t, "updated", updated.Status)
	assert.Equal(t, "South Warehouse", updated.Record.BuildingName)
	assert.Equal(t, []string{"Window"}, []string(updated.Record.HVACType))
	require.NotNil(t, updated.Record.UpdatedBy)
	assert.Equal(t, "bob", *updated.Record.UpdatedBy)
	assert.Equal(t, "alice", *updated.Record.CreatedBy)
}

func TestUpdateMissingInspection(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPut, "/inspection/999", env.token(t, "alice"), testutil.SampleInspection())
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Inspection not found", detail(t, rec))
}

func TestDeleteTwice(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, "alice")
	created := decodeResult(t, env.do(t, http.MethodPost, "/inspection", tok, testutil.SampleInspection()))

	rec := env.do(t, http.MethodDelete, "/inspection/"+itoa(created.ID), tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	deleted := decodeResult(t, rec)
	assert.Equal(t, "deleted", deleted.Status)
	assert.Equal(t, created.ID, deleted.ID)

	rec = env.do(t, http.MethodDelete, "/inspection/"+itoa(created.ID), tok, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/inspections/"+itoa(created.ID), tok, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateValidation(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, "alice")

	in := testutil.SampleInspection()
	in.BuildingName = "  "
	in.Sprinkler = "Maybe"
	lat := 91.0
	in.Latitude = &lat

	rec := env.do(t, http.MethodPost, "/inspection", tok, in)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var out struct {
		Detail string              `json:"detail"`
		Errors []models.FieldError `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.NotEmpty(t, out.Detail)
	fields := make([]string, 0, len(out.Errors))
	for _, fe := range out.Errors {
		fields = append(fields, fe.Field)
	}
	assert.ElementsMatch(t, []string{"building_name", "sprinkler", "latitude"}, fields)
}

func TestMalformedRequests(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, "alice")

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/inspection", tok, "{").Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/inspection", tok, `{"vcp_planned_date":"soon"}`).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/inspection", tok, `{"vcp_planned_date":"2024-05-01xyz"}`).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPut, "/inspection/abc", tok, testutil.SampleInspection()).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodDelete, "/inspection/-1", tok, nil).Code)
}

func TestProtectedEndpointsRejectBadTokens(t *testing.T) {
	env := newTestEnv(t)

	expiredTokens, err := auth.NewTokenManager(testSecret, -time.Minute)
	require.NoError(t, err)
	expired, err := expiredTokens.GenerateToken("alice")
	require.NoError(t, err)

	otherTokens, err := auth.NewTokenManager("another-secret", time.Hour)
	require.NoError(t, err)
	forged, err := otherTokens.GenerateToken("alice")
	require.NoError(t, err)

	endpoints := []struct {
		method, path string
		body         any
	}{
		{http.MethodGet, "/inspections", nil},
		{http.MethodGet, "/inspections/1", nil},
		{http.MethodPost, "/inspection", testutil.SampleInspection()},
		{http.MethodPut, "/inspection/1", testutil.SampleInspection()},
		{http.MethodDelete, "/inspection/1", nil},
		{http.MethodGet, "/audit", nil},
	}

	for _, ep := range endpoints {
		for name, tok := range map[string]string{
			"missing":   "",
			"malformed": "not-a-jwt",
			"expired":   expired,
			"forged":    forged,
		} {
			rec := env.do(t, ep.method, ep.path, tok, ep.body)
			assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s with %s token", ep.method, ep.path, name)
			assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
			assert.Equal(t, "Could not validate credentials", detail(t, rec))
		}
	}
}

func TestAuditRecordsChanges(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, "alice")
	created := decodeResult(t, env.do(t, http.MethodPost, "/inspection", tok, testutil.SampleInspection()))
	env.do(t, http.MethodDelete, "/inspection/"+itoa(created.ID), tok, nil)

	rec := env.do(t, http.MethodGet, "/audit?limit=10", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Entries []models.AuditEntry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Entries, 2)
	actions := []string{out.Entries[0].Action, out.Entries[1].Action}
	assert.ElementsMatch(t, []string{models.ActionCreated, models.ActionDeleted}, actions)
	assert.Equal(t, "alice", out.Entries[0].Actor)
	for _, e := range out.Entries {
		var snap models.Inspection
		require.NoError(t, json.Unmarshal(e.Details, &snap), e.Action)
		assert.Equal(t, created.ID, snap.ID)
		assert.Equal(t, "North Warehouse", snap.BuildingName)
	}
	assert.Contains(t, rec.Body.String(), `"details":{`)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/audit?limit=zero", tok, nil).Code)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	require.NoError(t, env.store.Close())
	rec = env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLiveUpdates(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL+"?token=bogus", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	tok := env.token(t, "alice")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token="+tok, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return env.hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	created := decodeResult(t, env.do(t, http.MethodPost, "/inspection", tok, testutil.SampleInspection()))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var update models.LiveUpdate
	require.NoError(t, conn.ReadJSON(&update))
	assert.Equal(t, models.ActionCreated, update.Action)
	assert.Equal(t, created.ID, update.InspectionID)
	assert.Equal(t, "alice", update.Actor)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
