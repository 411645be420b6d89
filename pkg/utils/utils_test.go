package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDestinationDir(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{name: "empty selects working directory", path: "", want: "."},
		{name: "existing directory", path: root, want: root},
		{name: "missing directory with parent", path: filepath.Join(root, "new"), want: filepath.Join(root, "new")},
		{name: "missing parent", path: filepath.Join(root, "a", "b"), wantErr: true},
		{name: "regular file", path: file, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveDestinationDir(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	type record struct {
		Name string `json:"name"`
		Seq  uint64 `json:"seq"`
	}

	data, err := EncodeJSON(record{Name: "a.txt", Seq: 7})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"a.txt","seq":7}`, string(data))

	got, err := DecodeJSON[record](data)
	require.NoError(t, err)
	assert.Equal(t, record{Name: "a.txt", Seq: 7}, got)

	_, err = DecodeJSON[record](nil)
	assert.Error(t, err)

	_, err = DecodeJSON[record]([]byte("{"))
	assert.Error(t, err)
}
