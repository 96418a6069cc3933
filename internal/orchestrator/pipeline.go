package orchestrator

import (
	"fmt"

	"loom/internal/config"
	"loom/internal/operations"
	"loom/internal/registry"
)

// pipelineStage is one configured stage resolved against the operation and
// dependency registries.
type pipelineStage struct {
	name       string
	dependency string
	operation  string
	required   bool
	run        operations.Func
}

// stageGroup holds stages that execute concurrently with each other.
// Consecutive stages sharing a non-empty group name collapse into one group.
type stageGroup struct {
	name   string
	stages []pipelineStage
}

func buildPipeline(cfg *config.Config, ops *operations.Registry, reg *registry.Registry) ([]stageGroup, error) {
	if len(cfg.Pipeline.Stages) == 0 {
		return nil, fmt.Errorf("pipeline has no stages")
	}

	var groups []stageGroup
	for _, spec := range cfg.Pipeline.Stages {
		if _, err := reg.Get(spec.Dependency); err != nil {
			return nil, fmt.Errorf("stage %s: %w", spec.Name, err)
		}
		run, err := ops.Get(spec.Operation)
		if err != nil {
			return nil, fmt.Errorf("stage %s: %w", spec.Name, err)
		}
		stage := pipelineStage{
			name:       spec.Name,
			dependency: spec.Dependency,
			operation:  spec.Operation,
			required:   spec.Required,
			run:        run,
		}

		if spec.Group != "" && len(groups) > 0 && groups[len(groups)-1].name == spec.Group {
			last := &groups[len(groups)-1]
			last.stages = append(last.stages, stage)
			continue
		}
		groups = append(groups, stageGroup{name: spec.Group, stages: []pipelineStage{stage}})
	}
	return groups, nil
}
