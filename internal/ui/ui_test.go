package ui

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reshare/internal/config"
	"reshare/internal/coordinator"
	"reshare/pkg/types"
)

func TestShowResults(t *testing.T) {
	var out bytes.Buffer
	c := NewConsoleUIWith(strings.NewReader(""), &out)

	c.ShowResults([]coordinator.Result{
		{Name: "a.txt", Info: &types.FileInfo{Name: "a.txt"}},
		{Name: "b.txt", Err: errors.New("b.txt not found")},
	})

	assert.Equal(t, "a.txt - OK\nb.txt - FAIL: b.txt not found\n", out.String())
}

func TestShowFiles(t *testing.T) {
	var out bytes.Buffer
	c := NewConsoleUIWith(strings.NewReader(""), &out)

	c.ShowFiles([]types.FileInfo{
		{Name: "report.pdf", Size: 1500000, UploadDate: time.Now()},
	}, types.Public)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "NAME")
	assert.Contains(t, lines[1], "report.pdf")
	assert.Contains(t, lines[1], "1.5 MB")

	out.Reset()
	c.ShowFiles(nil, types.Public)
	assert.Equal(t, "No available public files\n", out.String())
}

func TestInputServerURLRetries(t *testing.T) {
	var out bytes.Buffer
	c := NewConsoleUIWith(strings.NewReader("not-a-url\nhttp://localhost:8080\n"), &out)

	addr, err := c.InputServerURL(context.Background(), config.ValidateServerURL)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", addr)
	assert.Contains(t, out.String(), "Invalid address")
}

func TestInputServerURLEndOfInput(t *testing.T) {
	c := NewConsoleUIWith(strings.NewReader(""), &bytes.Buffer{})

	_, err := c.InputServerURL(context.Background(), config.ValidateServerURL)
	assert.Error(t, err)
}

func TestProgressDisplaySummary(t *testing.T) {
	var out bytes.Buffer
	p := NewProgressDisplayTo("Uploading", &out)

	p.Add("a", 10)
	p.Add("b", 20)
	p.Increment("a", 10)
	p.Increment("b", 5)
	p.Increment("unknown", 100)
	p.Finish("a")
	p.Abandon("b")
	p.Wait()

	text := out.String()
	assert.Contains(t, text, "+ a (10 B)")
	assert.Contains(t, text, "- b (5 B of 20 B)")
	assert.Contains(t, text, "1 completed, 1 failed")
	assert.Contains(t, text, "Total bytes: 15 B")
}

func TestProgressDisplayWithoutFiles(t *testing.T) {
	var out bytes.Buffer
	p := NewProgressDisplayTo("Downloading", &out)
	p.Wait()

	assert.Empty(t, out.String())
}
