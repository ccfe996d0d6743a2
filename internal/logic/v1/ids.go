package v1

import "go.mongodb.org/mongo-driver/v2/bson"

// NewID returns a fresh 24-character hexadecimal identifier.
func NewID() string {
	return bson.NewObjectID().Hex()
}

// IsValidID reports whether s has the 24-hex identifier shape.
func IsValidID(s string) bool {
	_, err := bson.ObjectIDFromHex(s)
	return err == nil
}
