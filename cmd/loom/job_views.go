package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"loom/internal/api"
	"loom/internal/queue"
)

func buildJobListRows(jobs []api.Job) [][]string {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		rows = append(rows, []string{
			strconv.FormatInt(job.ID, 10),
			job.VideoID,
			job.Status,
			job.CurrentStage,
			formatTimestamp(job.CreatedAt),
		})
	}
	return rows
}

func buildJobStatsRows(stats map[string]int) [][]string {
	rows := make([][]string, 0, len(stats))
	for _, status := range queue.AllStatuses() {
		count := stats[string(status)]
		if count == 0 {
			continue
		}
		rows = append(rows, []string{string(status), strconv.Itoa(count)})
	}
	return rows
}

func buildDependencyRows(deps []api.DependencyView) [][]string {
	rows := make([][]string, 0, len(deps))
	for _, dep := range deps {
		rows = append(rows, []string{
			dep.Name,
			dep.BreakerState,
			fmt.Sprintf("%.1f/%.1f", dep.Tokens, dep.Burst),
			strconv.FormatUint(dep.Metrics.Attempts, 10),
			strconv.FormatUint(dep.Metrics.Successes, 10),
			strconv.FormatUint(dep.Metrics.Failures, 10),
			strconv.FormatUint(dep.Metrics.CircuitOpen, 10),
			strconv.FormatUint(dep.Metrics.RateLimited, 10),
			fmt.Sprintf("%.1fms", dep.Metrics.AvgLatencyMS),
		})
	}
	return rows
}

func buildStageRows(stages []api.StageResult) [][]string {
	rows := make([][]string, 0, len(stages))
	for _, stage := range stages {
		detail := stage.ErrorMessage
		if detail == "" {
			detail = stage.Output
		}
		rows = append(rows, []string{
			stage.Stage,
			stage.Dependency,
			stage.Status,
			strconv.Itoa(stage.Attempts),
			fmt.Sprintf("%.0fms", stage.DurationMS),
			truncate(detail, 60),
		})
	}
	return rows
}

func formatTimestamp(value string) string {
	if value == "" {
		return ""
	}
	ts, err := time.Parse("2006-01-02T15:04:05.000Z07:00", value)
	if err != nil {
		return value
	}
	return ts.Local().Format("2006-01-02 15:04:05")
}

func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 3 || len(value) <= limit {
		return value
	}
	return value[:limit-3] + "..."
}

func breakerStatusKind(state string) statusKind {
	switch strings.ToLower(strings.TrimSpace(state)) {
	case "closed":
		return statusOK
	case "half_open":
		return statusWarn
	case "open":
		return statusError
	default:
		return statusInfo
	}
}
