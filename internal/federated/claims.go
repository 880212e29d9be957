// Copyright (c) 2026 LetsWorkApps. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package federated

import "strings"

// idTokenClaims are the ID token fields the portal reads.
type idTokenClaims struct {
	ObjectID          string `json:"oid"`
	PreferredUsername string `json:"preferred_username"`
	GivenName         string `json:"given_name"`
	Name              string `json:"name"`
}

// normalize converts raw ID token claims into [Claims]. It fails with
// [ErrMalformedResponse] when the subject id or email is missing.
func normalize(raw idTokenClaims, rawIDToken string) (*Claims, error) {
	objectID := strings.TrimSpace(raw.ObjectID)
	email := strings.TrimSpace(raw.PreferredUsername)

	if objectID == "" || email == "" {
		return nil, ErrMalformedResponse
	}

	return &Claims{
		SubjectID:   objectID,
		Email:       email,
		DisplayName: displayName(raw.GivenName, raw.Name, email),
		IDToken:     rawIDToken,
	}, nil
}

// displayName picks the first word of given_name, then of name, then the
// local part of the email.
func displayName(givenName, name, email string) string {
	if first := firstWord(givenName); first != "" {
		return first
	}
	if first := firstWord(name); first != "" {
		return first
	}
	local, _, _ := strings.Cut(email, "@")
	return local
}

func firstWord(value string) string {
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
