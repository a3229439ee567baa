//go:build integration

package integration

import (
	"net/http"
	"testing"
	"time"

	"github.com/bissquit/postmortem-garden/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionItemLifecycle(t *testing.T) {
	client, userID := loginAs(t, "editor")
	orgID, _ := createTestOrg(t, client, "Actions Org")
	incidentID := createTestIncident(t, client, orgID, "Action parent")

	due := time.Now().UTC().Add(7 * 24 * time.Hour).Truncate(time.Second)
	itemID := createTestActionItem(t, client, incidentID, "Fix the pager", due)

	resp, err := client.GET("/api/v1/action-items/" + itemID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got dataEnvelope[actionItemDTO]
	testutil.DecodeJSON(t, resp, &got)
	assert.Equal(t, "Fix the pager", got.Data.Title)
	assert.Equal(t, "OPEN", got.Data.Status)
	assert.Equal(t, userID, got.Data.OwnerID, "owner defaults to the creator")
	assert.True(t, got.Data.DueDate.Equal(due))

	resp, err = client.PATCH("/api/v1/action-items/"+itemID, map[string]string{
		"title":    "Fix the pager rotation",
		"priority": "P0",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var updated dataEnvelope[actionItemDTO]
	testutil.DecodeJSON(t, resp, &updated)
	assert.Equal(t, "Fix the pager rotation", updated.Data.Title)
	assert.Equal(t, "P0", updated.Data.Priority)

	resp, err = client.POST("/api/v1/action-items/"+itemID+"/status", map[string]string{
		"status": "DONE",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var done dataEnvelope[actionItemDTO]
	testutil.DecodeJSON(t, resp, &done)
	assert.Equal(t, "DONE", done.Data.Status)

	resp, err = client.DELETE("/api/v1/action-items/" + itemID)
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp, err = client.GET("/api/v1/action-items/" + itemID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestListActionItemsByOrgWithStatusFilter(t *testing.T) {
	client, _ := loginAs(t, "editor")
	orgID, _ := createTestOrg(t, client, "Action Filter Org")
	incidentID := createTestIncident(t, client, orgID, "Filter parent")

	due := time.Now().UTC().Add(48 * time.Hour)
	openID := createTestActionItem(t, client, incidentID, "Stays open", due)
	doneID := createTestActionItem(t, client, incidentID, "Gets done", due)

	resp, err := client.POST("/api/v1/action-items/"+doneID+"/status", map[string]string{
		"status": "DONE",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = client.GET("/api/v1/orgs/" + orgID + "/action-items?status=OPEN")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var open dataEnvelope[[]actionItemDTO]
	testutil.DecodeJSON(t, resp, &open)
	require.Len(t, open.Data, 1)
	assert.Equal(t, openID, open.Data[0].ID)
}

func TestCreateActionItemValidation(t *testing.T) {
	client, _ := loginAs(t, "editor")
	orgID, _ := createTestOrg(t, client, "Action Validation Org")
	incidentID := createTestIncident(t, client, orgID, "Validation parent")

	raw := client.WithoutValidation()
	resp, err := raw.POST("/api/v1/incidents/"+incidentID+"/action-items", map[string]interface{}{
		"title":    "Bad priority",
		"priority": "P9",
		"due_date": time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}
