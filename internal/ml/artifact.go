package ml

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/krnkaavya03/StuPred/internal/fsutil"
)

// Artifact identification written into every model file.
const (
	ArtifactFormat        = "stupred-forest"
	ArtifactSchemaVersion = 1
)

type artifact struct {
	Format        string          `json:"format"`
	SchemaVersion int             `json:"schema_version"`
	Features      []string        `json:"features"`
	CreatedAt     time.Time       `json:"created_at"`
	Metadata      ModelMetadata   `json:"metadata"`
	Checksum      string          `json:"checksum"`
	Forest        json.RawMessage `json:"forest"`
}

// SaveArtifact writes m to path as a single JSON document, replacing any
// previous artifact atomically.
func SaveArtifact(path string, m *Model) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid model: %w", err)
	}

	forest, err := json.Marshal(m.Forest)
	if err != nil {
		return fmt.Errorf("marshal forest: %w", err)
	}

	doc := artifact{
		Format:        ArtifactFormat,
		SchemaVersion: ArtifactSchemaVersion,
		Features:      m.Features,
		CreatedAt:     time.Now().UTC(),
		Metadata:      m.Metadata,
		Checksum:      checksum(forest),
		Forest:        forest,
	}

	err = fsutil.WriteFileAtomic(path, 0o644, func(w io.Writer) error {
		return json.NewEncoder(w).Encode(doc)
	})
	if err != nil {
		return fmt.Errorf("write artifact %s: %w", path, err)
	}

	log.Info().
		Str("path", path).
		Str("model_id", m.Metadata.ID).
		Int("trees", len(m.Forest.Trees)).
		Str("checksum", doc.Checksum).
		Msg("Model artifact saved")
	return nil
}

// LoadArtifact reads and validates the model stored at path. Every failure
// wraps ErrModelLoad.
func LoadArtifact(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelLoad, err)
	}

	var doc artifact
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrModelLoad, path, err)
	}
	if doc.Format != ArtifactFormat {
		return nil, fmt.Errorf("%w: unknown format %q", ErrModelLoad, doc.Format)
	}
	if doc.SchemaVersion != ArtifactSchemaVersion {
		return nil, fmt.Errorf("%w: unsupported schema version %d", ErrModelLoad, doc.SchemaVersion)
	}
	if len(doc.Forest) == 0 {
		return nil, fmt.Errorf("%w: artifact has no forest", ErrModelLoad)
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, doc.Forest); err != nil {
		return nil, fmt.Errorf("%w: forest: %v", ErrModelLoad, err)
	}
	if sum := checksum(compact.Bytes()); sum != doc.Checksum {
		return nil, fmt.Errorf("%w: checksum mismatch: artifact says %s, forest hashes to %s", ErrModelLoad, doc.Checksum, sum)
	}

	m := &Model{
		Features: doc.Features,
		Metadata: doc.Metadata,
	}
	if err := json.Unmarshal(doc.Forest, &m.Forest); err != nil {
		return nil, fmt.Errorf("%w: forest: %v", ErrModelLoad, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelLoad, err)
	}

	return m, nil
}
