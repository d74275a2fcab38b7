package utils

import "github.com/google/uuid"

// UUIDGenerator issues the identifiers of evidence objects, custody events,
// bundles, offline item keys and batch request keys.
type UUIDGenerator struct{}

func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

// Generate returns a time-ordered UUIDv7, so ids sort by creation time. A
// random v4 is returned if the clock source fails.
func (g *UUIDGenerator) Generate() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
