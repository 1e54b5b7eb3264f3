package entity

// User is the read-only identity projection this service consumes. Account
// management lives in a separate subsystem; only display data is read here.
type User struct {
	ID        string `json:"id" firestore:"id"`
	Username  string `json:"username" firestore:"username"`
	AvatarURL string `json:"avatar_url,omitempty" firestore:"avatarUrl,omitempty"`
}
