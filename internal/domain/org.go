package domain

import "time"

// Org is a tenant. All incidents, action items, notifications and digests
// belong to exactly one org.
type Org struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

// OrgMember links a profile to an org.
type OrgMember struct {
	OrgID     string    `json:"org_id"`
	ProfileID string    `json:"profile_id"`
	JoinedAt  time.Time `json:"joined_at"`
}
