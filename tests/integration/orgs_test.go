//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/bissquit/postmortem-garden/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orgDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func TestOrgLifecycle(t *testing.T) {
	client, _ := loginAs(t, "editor")

	id, slug := createTestOrg(t, client, "Acme")

	resp, err := client.GET("/api/v1/orgs/" + slug)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got dataEnvelope[orgDTO]
	testutil.DecodeJSON(t, resp, &got)
	assert.Equal(t, id, got.Data.ID)
	assert.Equal(t, "Acme", got.Data.Name)

	resp, err = client.PATCH("/api/v1/orgs/"+slug, map[string]string{
		"name": "Acme Renamed",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var renamed dataEnvelope[orgDTO]
	testutil.DecodeJSON(t, resp, &renamed)
	assert.Equal(t, "Acme Renamed", renamed.Data.Name)

	resp, err = client.DELETE("/api/v1/orgs/" + slug)
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp, err = client.GET("/api/v1/orgs/" + slug)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestOrgSlugConflict(t *testing.T) {
	client, _ := loginAs(t, "editor")
	_, slug := createTestOrg(t, client, "First")

	resp, err := client.POST("/api/v1/orgs", map[string]string{
		"name": "Second",
		"slug": slug,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}

func TestOrgMembers(t *testing.T) {
	client, _ := loginAs(t, "editor")
	_, slug := createTestOrg(t, client, "Members Inc")

	memberID, _ := registerUser(t, "member")
	addOrgMember(t, client, slug, memberID)

	resp, err := client.GET("/api/v1/orgs/" + slug + "/members")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var members dataEnvelope[[]profileDTO]
	testutil.DecodeJSON(t, resp, &members)

	var found bool
	for _, m := range members.Data {
		if m.ID == memberID {
			found = true
		}
	}
	assert.True(t, found, "added member should appear in the member list")

	resp, err = client.DELETE("/api/v1/orgs/" + slug + "/members/" + memberID)
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()
}

func TestViewerCannotCreateOrg(t *testing.T) {
	viewer, _ := loginAs(t, "viewer")

	resp, err := viewer.POST("/api/v1/orgs", map[string]string{
		"name": "Nope",
		"slug": testutil.RandomSlug("nope"),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()
}
