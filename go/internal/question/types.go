package question

import (
	"github.com/mdevlab/buzzroom/go/internal/models"
)

// Draft is a generated question that has not been assigned a position yet.
type Draft struct {
	Topic      string            `json:"topic"`
	Prompt     string            `json:"prompt"`
	Answer     string            `json:"answer"`
	Difficulty models.Difficulty `json:"difficulty"`
}
