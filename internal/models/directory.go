package models

// DirectoryUser is one entry of the auth-service admin user listing.
type DirectoryUser struct {
	ID       FlexInt64 `json:"id"`
	Email    string    `json:"email"`
	Username string    `json:"username,omitempty"`
	Role     string    `json:"role,omitempty"`
}

// DirectoryPage mirrors the listing envelope. totalPages is the only paging
// field the resolver relies on.
type DirectoryPage struct {
	Users      []DirectoryUser `json:"users"`
	TotalPages int             `json:"totalPages"`
}

// Recipient is a resolved broadcast target.
type Recipient struct {
	ID    int64
	Email string
}

// RecipientIDs projects recipients to their user IDs.
func RecipientIDs(rs []Recipient) []int64 {
	ids := make([]int64, len(rs))
	for i, r := range rs {
		ids[i] = r.ID
	}
	return ids
}
