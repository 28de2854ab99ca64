package render

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// PostponedToken is the opaque resume token of a partial prerender. It names
// the holes that were deferred so a later request can render exactly those.
type PostponedToken struct {
	Holes []string `json:"holes"`
}

// Encode serializes the token to its opaque wire form.
func (t *PostponedToken) Encode() (string, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DecodePostponed parses an opaque resume token.
func DecodePostponed(s string) (*PostponedToken, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("render: invalid postponed token: %w", err)
	}
	var token PostponedToken
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("render: invalid postponed token: %w", err)
	}
	return &token, nil
}
