package orgs

import "errors"

var (
	ErrOrgNotFound      = errors.New("org not found")
	ErrSlugExists       = errors.New("org slug already exists")
	ErrAlreadyMember    = errors.New("profile is already a member")
	ErrMemberNotFound   = errors.New("member not found")
	ErrInvalidSlug      = errors.New("invalid org slug")
	ErrNotMember        = errors.New("profile is not a member of the org")
	ErrInsufficientRole = errors.New("insufficient role")
)
