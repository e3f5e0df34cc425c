package token

import (
	"encoding/json"
	"time"
)

// Pair is the persisted token pair. ExpiresAt mirrors the access token's exp
// claim.
type Pair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

type wirePair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresAt    int64  `json:"expiresAt"`
}

// MarshalJSON encodes ExpiresAt as epoch milliseconds.
func (p Pair) MarshalJSON() ([]byte, error) {
	return json.Marshal(wirePair{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		ExpiresAt:    p.ExpiresAt.UnixMilli(),
	})
}

// UnmarshalJSON decodes the persisted layout.
func (p *Pair) UnmarshalJSON(data []byte) error {
	var w wirePair
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	p.AccessToken = w.AccessToken
	p.RefreshToken = w.RefreshToken
	p.ExpiresAt = time.UnixMilli(w.ExpiresAt)
	return nil
}

// Empty reports whether p carries no access token.
func (p Pair) Empty() bool {
	return p.AccessToken == ""
}
