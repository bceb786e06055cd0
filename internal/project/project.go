package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/yearlens/internal/analysis"
	"github.com/KaramelBytes/yearlens/internal/parser"
	"github.com/KaramelBytes/yearlens/internal/utils"
)

const (
	projectFileName = "project.json"
	datasetsDir     = "datasets"
)

// ErrDatasetNotFound is returned for an unknown dataset id.
var ErrDatasetNotFound = errors.New("dataset not found")

// Project groups the datasets analysed together, persisted on disk.
type Project struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Datasets    map[string]*Dataset `json:"datasets"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`

	// Not serialized: on-disk location of the project.json
	rootDir string `json:"-"`
}

// NewProject constructs an in-memory project. Call Save() to persist.
func NewProject(name, description, rootDir string) *Project {
	return &Project{
		Name:        name,
		Description: description,
		Datasets:    make(map[string]*Dataset),
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		rootDir:     rootDir,
	}
}

// LoadProject loads a project.json from the provided directory.
func LoadProject(dir string) (*Project, error) {
	path := filepath.Join(dir, projectFileName)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("project not found at %s: %w", path, err)
		}
		return nil, fmt.Errorf("read project: %w", err)
	}
	var p Project
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("parse project: %w", err)
	}
	if p.Datasets == nil {
		p.Datasets = make(map[string]*Dataset)
	}
	p.rootDir = dir
	return &p, nil
}

// RootDir returns the on-disk project directory path.
func (p *Project) RootDir() string { return p.rootDir }

// Save writes project.json using atomic write.
func (p *Project) Save() error {
	if p.rootDir == "" {
		return errors.New("project root directory not set")
	}
	if err := utils.EnsureDir(p.rootDir); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	p.UpdatedAt = time.Now()
	return utils.WriteJSON(filepath.Join(p.rootDir, projectFileName), p)
}

// AddDataset reads and normalizes a table, stores its records and registers it.
// The project itself is not saved.
func (p *Project) AddDataset(path, description string, ropt parser.Options, nopt analysis.NormalizeOptions) (*Dataset, error) {
	if p.rootDir == "" {
		return nil, errors.New("project root directory not set")
	}
	table, err := parser.ReadFile(path, ropt)
	if err != nil {
		return nil, fmt.Errorf("read table: %w", err)
	}
	records, rep, err := analysis.Normalize(table, nopt)
	if err != nil {
		return nil, err
	}
	d := &Dataset{
		ID:          uuid.NewString(),
		Path:        path,
		Name:        table.Name,
		Description: strings.TrimSpace(description),
		Sheet:       ropt.Sheet,
		Report:      rep,
		AddedAt:     time.Now(),
	}
	dir := filepath.Join(p.rootDir, datasetsDir)
	if err := utils.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("ensure datasets dir: %w", err)
	}
	if err := utils.WriteJSON(filepath.Join(dir, d.recordsFile()), records); err != nil {
		return nil, fmt.Errorf("store records: %w", err)
	}
	if p.Datasets == nil {
		p.Datasets = make(map[string]*Dataset)
	}
	p.Datasets[d.ID] = d
	p.UpdatedAt = time.Now()
	return d, nil
}

// RemoveDataset forgets a dataset and deletes its stored records.
func (p *Project) RemoveDataset(id string) error {
	d, ok := p.Datasets[id]
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrDatasetNotFound)
	}
	err := os.Remove(filepath.Join(p.rootDir, datasetsDir, d.recordsFile()))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove records: %w", err)
	}
	delete(p.Datasets, id)
	p.UpdatedAt = time.Now()
	return nil
}

// List returns datasets in the order they were added, ties by id.
func (p *Project) List() []*Dataset {
	out := make([]*Dataset, 0, len(p.Datasets))
	for _, d := range p.Datasets {
		out = append(out, d)
	}
	sort.Slice(out, func(a, b int) bool {
		if !out[a].AddedAt.Equal(out[b].AddedAt) {
			return out[a].AddedAt.Before(out[b].AddedAt)
		}
		return out[a].ID < out[b].ID
	})
	return out
}

// LoadRecords reads one dataset's stored records.
func (p *Project) LoadRecords(id string) ([]analysis.MonthlyRecord, error) {
	d, ok := p.Datasets[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrDatasetNotFound)
	}
	b, err := os.ReadFile(filepath.Join(p.rootDir, datasetsDir, d.recordsFile()))
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	var recs []analysis.MonthlyRecord
	if err := json.Unmarshal(b, &recs); err != nil {
		return nil, fmt.Errorf("parse records: %w", err)
	}
	return recs, nil
}

// Records merges every dataset into one record set. Amounts for the same
// product and month are summed; the first dataset to name a product wins.
func (p *Project) Records() ([]analysis.MonthlyRecord, error) {
	if len(p.Datasets) == 0 {
		return nil, errors.New("no datasets added to project")
	}
	type key struct {
		code  string
		month analysis.Month
	}
	merged := map[key]analysis.MonthlyRecord{}
	names := map[string]string{}
	for _, d := range p.List() {
		recs, err := p.LoadRecords(d.ID)
		if err != nil {
			return nil, fmt.Errorf("dataset %s: %w", d.Name, err)
		}
		for _, r := range recs {
			if names[r.ProductCode] == "" {
				names[r.ProductCode] = r.ProductName
			}
			k := key{r.ProductCode, r.Month}
			prev, ok := merged[k]
			switch {
			case !ok || prev.IsMissing:
				merged[k] = r
			case !r.IsMissing && r.Amount.Valid:
				prev.Amount = analysis.Some(prev.Amount.Value + r.Amount.Value)
				merged[k] = prev
			}
		}
	}
	out := make([]analysis.MonthlyRecord, 0, len(merged))
	for _, r := range merged {
		r.ProductName = names[r.ProductCode]
		out = append(out, r)
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].ProductCode != out[b].ProductCode {
			return out[a].ProductCode < out[b].ProductCode
		}
		return out[a].Month < out[b].Month
	})
	return out, nil
}
