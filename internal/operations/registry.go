package operations

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"loom/internal/config"
	"loom/internal/services"
	"loom/internal/services/gemini"
	"loom/internal/services/openai"
	"loom/internal/services/whisper"
	"loom/internal/services/youtube"
)

// Operation names referenced by pipeline configuration.
const (
	OpYouTubeMetadata   = "youtube.metadata"
	OpWhisperTranscribe = "whisper.transcribe"
	OpGeminiAnalyze     = "gemini.analyze"
	OpOpenAIAnalyze     = "openai.analyze"
	OpArtifactSave      = "artifact.save"
)

// Func executes one stage operation against the shared job state and returns
// the JSON payload to persist as the stage result output.
type Func func(ctx context.Context, jc *JobContext) (string, error)

// Registry maps operation names to implementations built from configuration.
type Registry struct {
	ops map[string]Func
}

// NewRegistry builds the operation set from dependency configuration.
func NewRegistry(cfg *config.Config) *Registry {
	youtubeClient := youtube.NewClient(cfg.Dependencies[config.DepYouTube])
	whisperClient := whisper.NewClient(cfg.Dependencies[config.DepWhisper])
	geminiClient := gemini.NewClient(cfg.Dependencies[config.DepGemini])
	openaiClient := openai.NewClient(cfg.Dependencies[config.DepOpenAI], nil)
	artifacts := NewArtifactWriter(cfg.ArtifactDir())

	r := &Registry{ops: make(map[string]Func)}
	r.ops[OpYouTubeMetadata] = extractOp(youtubeClient)
	r.ops[OpWhisperTranscribe] = transcribeOp(whisperClient)
	r.ops[OpGeminiAnalyze] = geminiOp(geminiClient)
	r.ops[OpOpenAIAnalyze] = openaiOp(openaiClient)
	r.ops[OpArtifactSave] = artifactOp(artifacts)
	return r
}

// Register adds or replaces a named operation. Tests use this to substitute
// deterministic implementations.
func (r *Registry) Register(name string, fn Func) {
	r.ops[name] = fn
}

// Get returns the named operation.
func (r *Registry) Get(name string) (Func, error) {
	fn, ok := r.ops[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown operation %q", services.ErrConfiguration, name)
	}
	return fn, nil
}

// Names returns registered operation names in stable order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.ops))
	for name := range r.ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func extractOp(client *youtube.Client) Func {
	return func(ctx context.Context, jc *JobContext) (string, error) {
		meta, err := client.Metadata(ctx, jc.Job.VideoID)
		if err != nil {
			return "", err
		}
		jc.SetMetadata(meta)
		return marshalOutput(meta)
	}
}

func transcribeOp(client *whisper.Client) Func {
	return func(ctx context.Context, jc *JobContext) (string, error) {
		transcript, err := client.Transcribe(ctx, jc.Job.VideoID, jc.Job.SourceURL)
		if err != nil {
			return "", err
		}
		jc.SetTranscript(transcript)
		summary := struct {
			VideoID         string  `json:"video_id"`
			Language        string  `json:"language"`
			DurationSeconds float64 `json:"duration_seconds"`
			Characters      int     `json:"characters"`
		}{transcript.VideoID, transcript.Language, transcript.DurationSeconds, len(transcript.Text)}
		return marshalOutput(summary)
	}
}

func geminiOp(client *gemini.Client) Func {
	return func(ctx context.Context, jc *JobContext) (string, error) {
		transcript := jc.Transcript()
		if transcript == nil {
			return "", fmt.Errorf("%w: analyze requires a transcript", services.ErrValidation)
		}
		title := ""
		if meta := jc.Metadata(); meta != nil {
			title = meta.Title
		}
		analysis, err := client.Analyze(ctx, jc.Job.VideoID, title, transcript.Text)
		if err != nil {
			return "", err
		}
		payload, err := marshalOutput(analysis)
		if err != nil {
			return "", err
		}
		jc.SetAnalysis("gemini", json.RawMessage(payload))
		return payload, nil
	}
}

func openaiOp(client *openai.Client) Func {
	return func(ctx context.Context, jc *JobContext) (string, error) {
		transcript := jc.Transcript()
		if transcript == nil {
			return "", fmt.Errorf("%w: analyze requires a transcript", services.ErrValidation)
		}
		title := ""
		if meta := jc.Metadata(); meta != nil {
			title = meta.Title
		}
		analysis, err := client.Analyze(ctx, jc.Job.VideoID, title, transcript.Text)
		if err != nil {
			return "", err
		}
		payload, err := marshalOutput(analysis)
		if err != nil {
			return "", err
		}
		jc.SetAnalysis("openai", json.RawMessage(payload))
		return payload, nil
	}
}

func artifactOp(writer *ArtifactWriter) Func {
	return func(ctx context.Context, jc *JobContext) (string, error) {
		artifact, err := writer.Save(ctx, jc)
		if err != nil {
			return "", err
		}
		jc.Job.ArtifactPath = artifact.Path
		return marshalOutput(artifact)
	}
}

func marshalOutput(v any) (string, error) {
	encoded, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("%w: encode stage output: %w", services.ErrValidation, err)
	}
	return string(encoded), nil
}
