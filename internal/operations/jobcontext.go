package operations

import (
	"encoding/json"
	"sort"
	"sync"

	"loom/internal/queue"
	"loom/internal/services/whisper"
	"loom/internal/services/youtube"
)

// JobContext carries the in-flight results a job's stages share. Stages in a
// concurrent group may write to it from multiple goroutines.
type JobContext struct {
	Job *queue.Job

	mu         sync.Mutex
	metadata   *youtube.VideoMetadata
	transcript *whisper.Transcript
	analyses   map[string]json.RawMessage
}

// NewJobContext creates the shared state for one job run.
func NewJobContext(job *queue.Job) *JobContext {
	return &JobContext{
		Job:      job,
		analyses: make(map[string]json.RawMessage),
	}
}

// SetMetadata stores the extract stage result.
func (jc *JobContext) SetMetadata(meta *youtube.VideoMetadata) {
	jc.mu.Lock()
	defer jc.mu.Unlock()
	jc.metadata = meta
}

// Metadata returns the extract stage result, or nil before extraction.
func (jc *JobContext) Metadata() *youtube.VideoMetadata {
	jc.mu.Lock()
	defer jc.mu.Unlock()
	return jc.metadata
}

// SetTranscript stores the transcribe stage result.
func (jc *JobContext) SetTranscript(transcript *whisper.Transcript) {
	jc.mu.Lock()
	defer jc.mu.Unlock()
	jc.transcript = transcript
}

// Transcript returns the transcribe stage result, or nil before transcription.
func (jc *JobContext) Transcript() *whisper.Transcript {
	jc.mu.Lock()
	defer jc.mu.Unlock()
	return jc.transcript
}

// SetAnalysis stores one provider's analysis payload.
func (jc *JobContext) SetAnalysis(provider string, payload json.RawMessage) {
	jc.mu.Lock()
	defer jc.mu.Unlock()
	jc.analyses[provider] = payload
}

// Analyses returns a copy of the recorded analyses keyed by provider.
func (jc *JobContext) Analyses() map[string]json.RawMessage {
	jc.mu.Lock()
	defer jc.mu.Unlock()
	cp := make(map[string]json.RawMessage, len(jc.analyses))
	for provider, payload := range jc.analyses {
		cp[provider] = payload
	}
	return cp
}

// AnalysisProviders returns the providers that produced an analysis, sorted.
func (jc *JobContext) AnalysisProviders() []string {
	jc.mu.Lock()
	defer jc.mu.Unlock()
	providers := make([]string, 0, len(jc.analyses))
	for provider := range jc.analyses {
		providers = append(providers, provider)
	}
	sort.Strings(providers)
	return providers
}
