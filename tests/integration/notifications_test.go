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

func unreadCount(t *testing.T, client *testutil.Client) int {
	t.Helper()
	resp, err := client.GET("/api/v1/notifications/unread-count")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result dataEnvelope[struct {
		Count int `json:"count"`
	}]
	testutil.DecodeJSON(t, resp, &result)
	return result.Data.Count
}

// seedNotifications escalates a stale incident to produce notifications for
// the logged-in admin and returns the org ID.
func seedNotifications(t *testing.T, admin *testutil.Client) string {
	t.Helper()
	orgID, slug := createTestOrg(t, admin, "Notify Org")
	addOrgMember(t, admin, slug, currentProfileID(t, admin))

	incidentID := createTestIncident(t, admin, orgID, "Notify incident", withSeverity("SEV1"))
	backdateIncident(t, incidentID, time.Now().UTC().Add(-45*time.Minute))
	triggerAutomation(t, admin, orgID, "escalation")
	return orgID
}

func TestMarkNotificationRead(t *testing.T) {
	admin, _ := loginAs(t, "admin")
	seedNotifications(t, admin)

	require.Equal(t, 1, unreadCount(t, admin))

	all := listNotifications(t, admin)
	require.NotEmpty(t, all)
	assert.Nil(t, all[0].ReadAt)

	resp, err := admin.POST("/api/v1/notifications/"+all[0].ID+"/read", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	assert.Equal(t, 0, unreadCount(t, admin))

	all = listNotifications(t, admin)
	require.NotEmpty(t, all)
	assert.NotNil(t, all[0].ReadAt)
}

func TestMarkAllNotificationsRead(t *testing.T) {
	admin, _ := loginAs(t, "admin")

	// Two stale incidents, two escalation notifications.
	orgID, slug := createTestOrg(t, admin, "ReadAll Org")
	addOrgMember(t, admin, slug, currentProfileID(t, admin))
	for _, title := range []string{"First stale", "Second stale"} {
		id := createTestIncident(t, admin, orgID, title, withSeverity("SEV1"))
		backdateIncident(t, id, time.Now().UTC().Add(-45*time.Minute))
	}
	triggerAutomation(t, admin, orgID, "escalation")

	require.Equal(t, 2, unreadCount(t, admin))

	resp, err := admin.POST("/api/v1/notifications/read-all", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	assert.Equal(t, 0, unreadCount(t, admin))
}

func TestNotificationsAreScopedToUser(t *testing.T) {
	admin, _ := loginAs(t, "admin")
	seedNotifications(t, admin)

	other, _ := loginAs(t, "viewer")
	assert.Empty(t, listNotifications(t, other))
	assert.Equal(t, 0, unreadCount(t, other))
}

func TestCannotReadForeignNotification(t *testing.T) {
	admin, _ := loginAs(t, "admin")
	seedNotifications(t, admin)

	all := listNotifications(t, admin)
	require.NotEmpty(t, all)

	other, _ := loginAs(t, "viewer")
	resp, err := other.WithoutValidation().POST("/api/v1/notifications/"+all[0].ID+"/read", nil)
	require.NoError(t, err)
	assert.Contains(t, []int{http.StatusForbidden, http.StatusNotFound}, resp.StatusCode)
	resp.Body.Close()
}
