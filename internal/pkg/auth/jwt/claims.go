package jwt

import "github.com/golang-jwt/jwt"

// Payload defines the claims carried by a session token handed to the realtime client.
// Token issuance lives elsewhere; the client only decodes the claims it needs.
type Payload struct {
	// StandardClaims embeds Exp, Iat and Iss. Expiry is always checked.
	jwt.StandardClaims

	// ID is the backend user identifier of the session owner.
	ID int64 `json:"id"`

	// Name is the display name of the session owner.
	Name string `json:"name,omitempty"`
}
