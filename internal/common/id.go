package common

import (
	"github.com/google/uuid"
)

// NewAnalysisID generates a unique analysis run ID with the "run_" prefix
// Format: run_<uuid>
func NewAnalysisID() string {
	return "run_" + uuid.New().String()
}
