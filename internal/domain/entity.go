package domain

// EntityKind tags a polymorphic entity reference used by notifications
// and audit log entries.
type EntityKind string

const (
	EntityIncident   EntityKind = "incident"
	EntityTimeline   EntityKind = "timeline"
	EntityActionItem EntityKind = "actionItem"
	EntityProfile    EntityKind = "profile"
	EntityDigest     EntityKind = "digest"
	EntityAutomation EntityKind = "automation"
)

// EntityRef is a typed reference to an entity of any kind.
type EntityRef struct {
	Kind EntityKind `json:"kind"`
	ID   string     `json:"id"`
}
