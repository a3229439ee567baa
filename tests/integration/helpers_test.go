//go:build integration

package integration

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/bissquit/postmortem-garden/internal/testutil"
	"github.com/stretchr/testify/require"
)

// dataEnvelope unwraps the {"data": ...} success envelope.
type dataEnvelope[T any] struct {
	Data T `json:"data"`
}

type idOnly struct {
	ID string `json:"id"`
}

// registerUser registers a fresh profile and returns its ID and email.
func registerUser(t *testing.T, name string) (id, email string) {
	t.Helper()
	email = testutil.RandomEmail(name)

	client := newTestClient(t)
	resp, err := client.POST("/api/v1/auth/register", map[string]string{
		"email":    email,
		"password": "password123",
		"name":     name,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result dataEnvelope[idOnly]
	testutil.DecodeJSON(t, resp, &result)
	return result.Data.ID, email
}

// promoteRole updates a profile's role directly in the database. Registration
// always yields a viewer; tests that need an editor or admin promote before
// logging in so the role lands in the token claims.
func promoteRole(t *testing.T, profileID, role string) {
	t.Helper()
	_, err := testDB.Exec(context.Background(),
		`UPDATE profiles SET role = $1 WHERE id = $2`, role, profileID)
	require.NoError(t, err)
}

// loginAs registers a fresh user with the given role and returns a logged-in
// client plus the profile ID.
func loginAs(t *testing.T, role string) (*testutil.Client, string) {
	t.Helper()
	id, email := registerUser(t, role)
	if role != "viewer" {
		promoteRole(t, id, role)
	}
	client := newTestClient(t)
	client.LoginAs(t, email, "password123")
	return client, id
}

// createTestOrg creates an org and returns its ID and slug.
func createTestOrg(t *testing.T, client *testutil.Client, name string) (id, slug string) {
	t.Helper()
	slug = testutil.RandomSlug("org")

	resp, err := client.POST("/api/v1/orgs", map[string]string{
		"name": name,
		"slug": slug,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result dataEnvelope[idOnly]
	testutil.DecodeJSON(t, resp, &result)
	return result.Data.ID, slug
}

// addOrgMember adds a profile to an org.
func addOrgMember(t *testing.T, client *testutil.Client, slug, profileID string) {
	t.Helper()
	resp, err := client.POST("/api/v1/orgs/"+slug+"/members", map[string]string{
		"profile_id": profileID,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()
}

type incidentOption func(map[string]interface{})

func withSeverity(severity string) incidentOption {
	return func(m map[string]interface{}) { m["severity"] = severity }
}

func withStartTime(startTime time.Time) incidentOption {
	return func(m map[string]interface{}) { m["start_time"] = startTime }
}

func withOwner(ownerID string) incidentOption {
	return func(m map[string]interface{}) { m["owner_id"] = ownerID }
}

// createTestIncident opens an incident in the org and returns its ID.
func createTestIncident(t *testing.T, client *testutil.Client, orgID, title string, opts ...incidentOption) string {
	t.Helper()

	payload := map[string]interface{}{
		"title":          title,
		"severity":       "SEV2",
		"service":        "payments",
		"start_time":     time.Now().UTC(),
		"impact_summary": "Test impact",
	}
	for _, opt := range opts {
		opt(payload)
	}

	resp, err := client.POST("/api/v1/orgs/"+orgID+"/incidents", payload)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result dataEnvelope[idOnly]
	testutil.DecodeJSON(t, resp, &result)
	return result.Data.ID
}

// closeIncident sets a root cause and transitions the incident to CLOSED.
func closeIncident(t *testing.T, client *testutil.Client, incidentID string) {
	t.Helper()

	resp, err := client.PATCH("/api/v1/incidents/"+incidentID, map[string]string{
		"root_cause": "Bad deploy",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = client.POST("/api/v1/incidents/"+incidentID+"/status", map[string]string{
		"status": "CLOSED",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

// createTestActionItem creates an action item on the incident and returns its ID.
func createTestActionItem(t *testing.T, client *testutil.Client, incidentID, title string, dueDate time.Time) string {
	t.Helper()

	resp, err := client.POST("/api/v1/incidents/"+incidentID+"/action-items", map[string]interface{}{
		"title":    title,
		"priority": "P1",
		"due_date": dueDate,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result dataEnvelope[idOnly]
	testutil.DecodeJSON(t, resp, &result)
	return result.Data.ID
}

// backdateIncident rewrites an incident's start time directly in the database
// so the escalation job sees it as stale.
func backdateIncident(t *testing.T, incidentID string, startTime time.Time) {
	t.Helper()
	_, err := testDB.Exec(context.Background(),
		`UPDATE incidents SET start_time = $1 WHERE id = $2`, startTime, incidentID)
	require.NoError(t, err)
}

// triggerAutomation fires one automation job for the org via the admin API.
func triggerAutomation(t *testing.T, client *testutil.Client, orgID, job string) {
	t.Helper()
	resp, err := client.POST("/api/v1/orgs/"+orgID+"/automations/"+job+"/run", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result dataEnvelope[struct {
		Triggered bool `json:"triggered"`
	}]
	testutil.DecodeJSON(t, resp, &result)
	require.True(t, result.Data.Triggered)
}
