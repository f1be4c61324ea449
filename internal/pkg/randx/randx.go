/*
Package randx provides functions for generating unique identifiers.

It is primarily used to generate client-side correlation tokens for optimistic
sends and instance identifiers for event relays.
*/
package randx

import "github.com/google/uuid"

// TempIDPrefix marks correlation tokens generated by this client.
const TempIDPrefix = "tmp_"

// TempID generates a fresh correlation token for an optimistic send.
// Tokens are UUID v4 based, so two outstanding sends never share one.
func TempID() string {
	return TempIDPrefix + uuid.NewString()
}

// InstanceID generates a standard UUID v4 string identifying this client process.
func InstanceID() string {
	return uuid.New().String()
}
