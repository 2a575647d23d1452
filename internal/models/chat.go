package models

import "time"

// Chat roles as stored in conversation history.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// ChatTurn is one message in a conversation. Turns are appended strictly in
// call order; history is never reordered.
type ChatTurn struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// Preferences holds the small set of client preferences kept in the local
// state store alongside the guest profile.
type Preferences struct {
	Theme    string `json:"theme,omitempty"` // "light" or "dark"
	TTSVoice string `json:"ttsVoice,omitempty"`
}
