package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facility-checklist/internal/models"
)

func TestNotifyInspectionPostsWebhook(t *testing.T) {
	var got SlackMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	rec := &models.Inspection{ID: 9}
	rec.BuildingName = "North Warehouse"
	rec.FunctionLocationID = "FL-1"
	rec.FireProtectionSystemObsolete = "Obsolete"

	ev := &models.InspectionEvent{Action: models.ActionCreated, InspectionID: 9, Actor: "alice"}
	require.NoError(t, NewSlackClient(srv.URL).NotifyInspection(context.Background(), ev, rec))

	assert.Contains(t, got.Text, "Inspection #9 created by alice")
	require.Len(t, got.Blocks, 3)
	assert.Equal(t, "header", got.Blocks[0].Type)
}

func TestNotifyInspectionDisabled(t *testing.T) {
	c := NewSlackClient("")
	assert.False(t, c.Enabled())
	assert.NoError(t, c.NotifyInspection(context.Background(), &models.InspectionEvent{}, nil))
}

func TestNotifyInspectionReportsErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid_payload", http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewSlackClient(srv.URL).NotifyInspection(context.Background(), &models.InspectionEvent{Action: models.ActionUpdated}, nil)
	assert.ErrorContains(t, err, "invalid_payload")
}
