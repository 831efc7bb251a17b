// Package models defines the data types shared by the session, bootstrap and
// realtime layers: user identity, the consolidated snapshot, conversations,
// and realtime events.
package models

// UserSummary is the identity the backend returns from auth endpoints and
// embeds at the top of the bootstrap snapshot.
type UserSummary struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}
