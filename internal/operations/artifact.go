package operations

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"loom/internal/fileutil"
	"loom/internal/services"
)

// Artifact is the stored record describing one finished analysis.
type Artifact struct {
	ArtifactID string    `json:"artifact_id"`
	Path       string    `json:"path"`
	Checksum   string    `json:"checksum"`
	StoredAt   time.Time `json:"stored_at"`
}

type artifactDocument struct {
	ArtifactID string                     `json:"artifact_id"`
	JobID      int64                      `json:"job_id"`
	VideoID    string                     `json:"video_id"`
	StoredAt   time.Time                  `json:"stored_at"`
	Metadata   any                        `json:"metadata,omitempty"`
	Transcript any                        `json:"transcript,omitempty"`
	Analyses   map[string]json.RawMessage `json:"analyses,omitempty"`
}

// ArtifactWriter persists finished analyses as JSON documents on disk.
type ArtifactWriter struct {
	dir string
}

// NewArtifactWriter creates a writer rooted at dir.
func NewArtifactWriter(dir string) *ArtifactWriter {
	return &ArtifactWriter{dir: dir}
}

// Save assembles the job's results into one document and writes it. The
// transcript is mandatory; analyses may be missing when optional stages
// failed.
func (w *ArtifactWriter) Save(ctx context.Context, jc *JobContext) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	transcript := jc.Transcript()
	if transcript == nil {
		return nil, fmt.Errorf("%w: artifact requires a transcript", services.ErrValidation)
	}

	doc := artifactDocument{
		ArtifactID: uuid.NewString(),
		JobID:      jc.Job.ID,
		VideoID:    jc.Job.VideoID,
		StoredAt:   time.Now().UTC(),
		Transcript: transcript,
		Analyses:   jc.Analyses(),
	}
	if meta := jc.Metadata(); meta != nil {
		doc.Metadata = meta
	}

	encoded, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: encode artifact: %w", services.ErrValidation, err)
	}

	path := filepath.Join(w.dir, fmt.Sprintf("job-%d-%s.json", jc.Job.ID, jc.Job.VideoID))
	if err := fileutil.WriteFileAtomic(path, encoded, 0o644); err != nil {
		// Disk errors are worth retrying; the stage's retry policy decides.
		return nil, fmt.Errorf("%w: write artifact: %w", services.ErrTransient, err)
	}

	return &Artifact{
		ArtifactID: doc.ArtifactID,
		Path:       path,
		Checksum:   fileutil.SHA256Hex(encoded),
		StoredAt:   doc.StoredAt,
	}, nil
}
