package project

import (
	"time"

	"github.com/KaramelBytes/yearlens/internal/analysis"
)

// Dataset holds metadata for one ingested table. Its normalized records live
// next to project.json under datasets/<id>.json.
type Dataset struct {
	ID          string                 `json:"id"`
	Path        string                 `json:"path"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Sheet       string                 `json:"sheet,omitempty"`
	Report      *analysis.IngestReport `json:"report"`
	AddedAt     time.Time              `json:"added_at"`
}

func (d *Dataset) recordsFile() string { return d.ID + ".json" }
