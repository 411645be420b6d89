package app

import (
	"context"
	"fmt"
	"path/filepath"

	"reshare/internal/coordinator"
	"reshare/internal/processor"
	"reshare/internal/transport"
	"reshare/internal/workpool"
	"reshare/pkg/types"
	"reshare/pkg/utils"
)

// DownloadOptions configures one `get` batch
type DownloadOptions struct {
	Names     []string
	Namespace types.Namespace
	// DestDir is the directory files are saved into; empty means the working directory
	DestDir string
}

// DownloaderApp downloads files from the server into a local directory
type DownloaderApp struct {
	client *transport.Client
	pool   *workpool.Pool
	files  *processor.FileService
	runner Runner
	ui     Console
}

// NewDownloaderApp creates a new downloader application
func NewDownloaderApp(client *transport.Client, pool *workpool.Pool, runner Runner, ui Console) *DownloaderApp {
	return &DownloaderApp{
		client: client,
		pool:   pool,
		files:  processor.NewFileService(),
		runner: runner,
		ui:     ui,
	}
}

// Run downloads every name and reports the outcome per file
func (d *DownloaderApp) Run(ctx context.Context, opts *DownloadOptions) ([]coordinator.Result, error) {
	if len(opts.Names) == 0 {
		return nil, fmt.Errorf("no files to download: %w", coordinator.ErrEmptyBatch)
	}

	dir, err := utils.ResolveDestinationDir(opts.DestDir)
	if err != nil {
		return nil, err
	}

	descs := make([]types.FileDescriptor, 0, len(opts.Names))
	for _, name := range opts.Names {
		descs = append(descs, types.FileDescriptor{
			Name:   name,
			Source: d.client.DownloadURL(name, opts.Namespace),
		})
	}

	opener := &downloadOpener{app: d, dir: dir}
	results, err := d.runner.Run(ctx, descs, opts.Namespace, opener)
	if err != nil {
		return nil, err
	}

	d.ui.ShowResults(results)
	return results, nil
}

type downloadOpener struct {
	app *DownloaderApp
	dir string
}

// Open requests the file and creates its destination under a free name
func (o *downloadOpener) Open(ctx context.Context, desc types.FileDescriptor, ns types.Namespace) (*coordinator.Transfer, error) {
	dl, err := o.app.client.Download(ctx, desc.Name, ns)
	if err != nil {
		return nil, err
	}

	file, err := o.app.files.CreateUnique(o.dir, filepath.Base(desc.Name))
	if err != nil {
		dl.Body.Close()
		return nil, err
	}

	return &coordinator.Transfer{
		Name:   desc.Name,
		Length: dl.Length,
		Source: processor.NewAdaptiveReader(dl.Body, nil),
		Sink:   &downloadSink{file: processor.NewFileSink(file, o.app.pool)},
	}, nil
}

// downloadSink writes chunks to the destination file
type downloadSink struct {
	file *processor.FileSink
}

func (s *downloadSink) WriteChunk(ctx context.Context, chunk []byte) error {
	return s.file.WriteChunk(ctx, chunk)
}

func (s *downloadSink) Commit(ctx context.Context) (*types.FileInfo, error) {
	if err := s.file.Close(); err != nil {
		return nil, err
	}
	return &types.FileInfo{
		Name:        filepath.Base(s.file.Path()),
		Size:        s.file.Written(),
		StoragePath: s.file.Path(),
	}, nil
}

func (s *downloadSink) Abort(cause error) {
	s.file.Remove()
}
