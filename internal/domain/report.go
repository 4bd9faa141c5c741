package domain

import "time"

// ReportSource says where a narrative came from.
type ReportSource string

const (
	SourceGenerator ReportSource = "generator"
	SourceTemplate  ReportSource = "template"
)

// ReflectionReport is the result of one reflection run.
type ReflectionReport struct {
	Period         Period
	Metrics        PerformanceMetrics
	Narrative      string
	Source         ReportSource
	UsedFallback   bool   // generator was supplied but its output was not used
	FallbackReason string // set when UsedFallback
	Model          string // generator model, empty for template reports
	GeneratedAt    time.Time
}
