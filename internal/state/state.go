// Package state persists per-package stage completion across pipeline runs.
package state

// Stage identifies one marker-guarded step of the package pipeline.
type Stage string

const (
	StageBuild   Stage = "build"
	StagePackage Stage = "package"
)

// Store records which stages have completed for each package. Completion,
// once recorded, is never cleared by the pipeline itself.
type Store interface {
	HasCompleted(pkg string, stage Stage) (bool, error)
	MarkCompleted(pkg string, stage Stage) error
}
