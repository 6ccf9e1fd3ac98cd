package domain

import "time"

// Account is a connected social profile used for publishing.
type Account struct {
	ID           int64
	Platform     string
	Username     string
	AccessToken  string
	RefreshToken string
	InstanceURL  string
	ExpiresAt    *time.Time
	Active       bool
}

// Credentials returns the secrets an adapter needs.
func (a Account) Credentials() Credentials {
	return Credentials{
		AccessToken:  a.AccessToken,
		RefreshToken: a.RefreshToken,
		InstanceURL:  a.InstanceURL,
	}
}

// Credentials is what an adapter receives per call.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	InstanceURL  string
	Site         SiteCredentials
}
