package app

import (
	"context"

	"reshare/internal/coordinator"
	"reshare/pkg/types"
)

// Console is the user-facing output of the client apps
type Console interface {
	// ShowMessage displays a message to the user
	ShowMessage(message string)
	// ShowResults displays the outcome of every file of a batch
	ShowResults(results []coordinator.Result)
	// ShowFiles displays a file listing
	ShowFiles(files []types.FileInfo, ns types.Namespace)
}

// Runner runs one batch through the orchestrator
type Runner interface {
	Run(ctx context.Context, descs []types.FileDescriptor, ns types.Namespace, opener coordinator.Opener) ([]coordinator.Result, error)
}
