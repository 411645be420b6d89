package app

import (
	"context"

	"reshare/internal/transport"
	"reshare/pkg/types"
)

// ListerApp shows the files of a namespace
type ListerApp struct {
	client *transport.Client
	ui     Console
}

// NewListerApp creates a new lister application
func NewListerApp(client *transport.Client, ui Console) *ListerApp {
	return &ListerApp{client: client, ui: ui}
}

// Run fetches and displays the listing of ns
func (l *ListerApp) Run(ctx context.Context, ns types.Namespace) ([]types.FileInfo, error) {
	files, err := l.client.List(ctx, ns)
	if err != nil {
		return nil, err
	}

	l.ui.ShowFiles(files, ns)
	return files, nil
}
