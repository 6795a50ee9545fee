package cluster

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/wellbank/segmint/internal/common"
)

// ModelFileName is the artifact file written under the models directory.
const ModelFileName = "cluster_model.json"

// Model is the persisted clustering artifact the online recommender loads.
// It carries everything needed to place a fresh feature vector into a
// cluster: the training column order, the fitted scaler and the centroids.
type Model struct {
	TrainedAt time.Time   `json:"trained_at"`
	Columns   []string    `json:"columns"`
	Scaler    Scaler      `json:"scaler"`
	Centroids [][]float64 `json:"centroids"`
	Metrics   Metrics     `json:"metrics"`
	K         int         `json:"k"`
	Seed      int64       `json:"seed"`
}

// NewModel assembles an artifact from a category-path clustering result.
func NewModel(columns []string, result *Result, seed int64) *Model {
	return &Model{
		TrainedAt: time.Now().UTC(),
		Columns:   columns,
		Scaler:    *result.Scaler,
		Centroids: result.Centroids,
		Metrics:   result.Metrics,
		K:         result.K,
		Seed:      seed,
	}
}

// Save writes the artifact as JSON under dir, creating the directory if
// needed. The write goes through a temp file and rename so readers never
// see a torn artifact.
func (m *Model) Save(dir string) error {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create models directory: %w", err)
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal model: %w", err)
	}

	path := filepath.Join(dir, ModelFileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write model file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to finalize model file: %w", err)
	}
	return nil
}

// LoadModel reads the artifact from dir. A missing file maps to
// ErrModelNotFound so callers can tell the advisor to run the batch first.
func LoadModel(dir string) (*Model, error) {
	path := filepath.Join(dir, ModelFileName)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, common.ErrModelNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}

	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse model file: %w", err)
	}
	if len(m.Columns) == 0 || len(m.Centroids) == 0 {
		return nil, fmt.Errorf("model file %s is incomplete", path)
	}
	return &m, nil
}

// AlignVector orders a feature map into the model's training column order.
// Features absent from the map are zero-filled; features the model never
// saw are dropped. This tolerates schema drift between training and
// serving data.
func (m *Model) AlignVector(vec map[string]float64) []float64 {
	row := make([]float64, len(m.Columns))
	for i, col := range m.Columns {
		row[i] = vec[col]
	}
	return row
}

// Predict scales an aligned vector and returns the nearest cluster and the
// Euclidean distance to its centroid.
func (m *Model) Predict(vec map[string]float64) (int, float64, error) {
	scaled, err := m.Scaler.TransformRow(m.AlignVector(vec))
	if err != nil {
		return 0, 0, err
	}
	label, dist := Nearest(m.Centroids, scaled)
	return label, dist, nil
}
