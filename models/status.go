package models

// EmailStatus is the persisted form of the read and favorite sets.
// Membership is the only meaning; order carries none.
type EmailStatus struct {
	Read      []string `json:"read"`
	Favorites []string `json:"favorites"`
}
