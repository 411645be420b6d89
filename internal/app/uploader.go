package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"reshare/internal/coordinator"
	"reshare/internal/processor"
	"reshare/internal/transport"
	"reshare/internal/workpool"
	"reshare/pkg/types"
)

// UploadOptions configures one `put` batch
type UploadOptions struct {
	Paths     []string
	Namespace types.Namespace
}

// UploaderApp uploads local files to the server, one request per file
type UploaderApp struct {
	client *transport.Client
	pool   *workpool.Pool
	files  *processor.FileService
	runner Runner
	ui     Console
}

// NewUploaderApp creates a new uploader application
func NewUploaderApp(client *transport.Client, pool *workpool.Pool, runner Runner, ui Console) *UploaderApp {
	return &UploaderApp{
		client: client,
		pool:   pool,
		files:  processor.NewFileService(),
		runner: runner,
		ui:     ui,
	}
}

// Run uploads every path and reports the outcome per file. The returned error is
// only set when the batch could not be attempted.
func (u *UploaderApp) Run(ctx context.Context, opts *UploadOptions) ([]coordinator.Result, error) {
	descs := UploadDescriptors(opts.Paths)
	if len(descs) == 0 {
		return nil, fmt.Errorf("no files to upload: %w", coordinator.ErrEmptyBatch)
	}

	results, err := u.runner.Run(ctx, descs, opts.Namespace, u)
	if err != nil {
		return nil, err
	}

	u.ui.ShowResults(results)
	return results, nil
}

// UploadDescriptors builds descriptors for local paths. Paths without a file name
// component are skipped.
func UploadDescriptors(paths []string) []types.FileDescriptor {
	descs := make([]types.FileDescriptor, 0, len(paths))
	for _, path := range paths {
		name := filepath.Base(filepath.Clean(path))
		if name == "." || name == ".." || name == string(filepath.Separator) {
			continue
		}
		descs = append(descs, types.FileDescriptor{Name: name, Source: path})
	}
	return descs
}

// Open stats the local file and starts its upload request
func (u *UploaderApp) Open(ctx context.Context, desc types.FileDescriptor, ns types.Namespace) (*coordinator.Transfer, error) {
	file, stat, err := u.files.OpenReader(desc.Source)
	if err != nil {
		return nil, fmt.Errorf("%s - %w", desc.Name, err)
	}

	if stat.Size() == 0 {
		file.Close()
		return nil, fmt.Errorf("%s - %w", desc.Name, coordinator.ErrEmptyFile)
	}

	upload, err := u.client.StartUpload(ctx, desc.Name, ns)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("%s - %w", desc.Name, err)
	}

	return &coordinator.Transfer{
		Name:   desc.Name,
		Length: uint64(stat.Size()),
		Source: processor.NewAdaptiveReader(file, u.pool),
		Sink:   &uploadSink{upload: upload},
	}, nil
}

// uploadSink writes chunks into the request body of one upload
type uploadSink struct {
	upload *transport.Upload
}

func (s *uploadSink) WriteChunk(ctx context.Context, chunk []byte) error {
	if _, err := s.upload.Write(chunk); err != nil {
		return fmt.Errorf("failed to send chunk: %w", err)
	}
	return nil
}

func (s *uploadSink) Commit(ctx context.Context) (*types.FileInfo, error) {
	status, err := s.upload.Finish(ctx)
	if err != nil {
		return nil, err
	}
	if status.Error != nil {
		return nil, errors.New(status.Error.ErrorMsg)
	}
	return status.Success, nil
}

func (s *uploadSink) Abort(cause error) {
	s.upload.Abort(cause)
}
