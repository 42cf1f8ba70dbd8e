package publisher

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamal-hamza/rfm-cli/internal/core/domain"
	"github.com/kamal-hamza/rfm-cli/internal/core/ports"
	"github.com/kamal-hamza/rfm-cli/pkg/config"
)

type recordedRun struct {
	name string
	args []string
}

func fakeCalibre(output string, err error, calls *[]recordedRun) Runner {
	return func(ctx context.Context, name string, args ...string) ([]byte, error) {
		*calls = append(*calls, recordedRun{name: name, args: args})
		return []byte(output), err
	}
}

func bookRequest() ports.PublishRequest {
	meta := domain.NewMetadata(domain.EbookDetails{})
	meta.Title = "Deep Work"
	meta.Authors = []string{"Cal Newport", "Ann Lee"}
	return ports.PublishRequest{
		Path:           "/archive/Books/2025/Deep_Work.epub",
		Record:         domain.FileRecord{Name: "Deep_Work.epub", Ext: "epub"},
		Metadata:       meta,
		Classification: domain.General("books", "scored"),
	}
}

func TestCalibre_Publish(t *testing.T) {
	var calls []recordedRun
	c, err := NewCalibre(CalibreOptions{
		Dir:         "/Applications/calibre.app/Contents/MacOS",
		LibraryPath: "/lib",
		Categories:  []string{"books"},
		Runner:      fakeCalibre("Backing up metadata\nAdded book ids: 42\n", nil, &calls),
	})
	require.NoError(t, err)

	id, err := c.Publish(context.Background(), bookRequest())

	require.NoError(t, err)
	assert.Equal(t, "42", id)
	require.Len(t, calls, 1)
	assert.Equal(t, filepath.Join("/Applications/calibre.app/Contents/MacOS", "calibredb"), calls[0].name)
	assert.Equal(t, []string{
		"add", "--library-path", "/lib",
		"--title", "Deep Work",
		"--authors", "Cal Newport & Ann Lee",
		"--tags", "Research,Imported",
		"/archive/Books/2025/Deep_Work.epub",
	}, calls[0].args)
}

func TestCalibre_PublishCourseTagAndOldOutput(t *testing.T) {
	var calls []recordedRun
	c, err := NewCalibre(CalibreOptions{LibraryPath: "/lib", Runner: fakeCalibre("Added book id: 7", nil, &calls)})
	require.NoError(t, err)

	req := bookRequest()
	req.Metadata = domain.EmptyMetadata()
	req.Classification = domain.Classification{Category: "books", Course: "EDSP 554"}

	id, err := c.Publish(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, "7", id)
	assert.Equal(t, "calibredb", calls[0].name)
	assert.Equal(t, []string{"add", "--library-path", "/lib", "--tags", "Research,Imported,EDSP 554", req.Path}, calls[0].args)
}

func TestCalibre_PublishFailures(t *testing.T) {
	var calls []recordedRun

	c, _ := NewCalibre(CalibreOptions{LibraryPath: "/lib", Runner: fakeCalibre("library locked", errors.New("exit status 1"), &calls)})
	_, err := c.Publish(context.Background(), bookRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "library locked")

	c, _ = NewCalibre(CalibreOptions{LibraryPath: "/lib", Runner: fakeCalibre("The following books were not added as they already exist", nil, &calls)})
	_, err = c.Publish(context.Background(), bookRequest())
	assert.Error(t, err)

	_, err = NewCalibre(CalibreOptions{})
	assert.Error(t, err)
}

func TestCalibre_PublishTimeout(t *testing.T) {
	hung := func(ctx context.Context, name string, args ...string) ([]byte, error) {
		<-ctx.Done()
		return nil, errors.New("signal: killed")
	}
	c, err := NewCalibre(CalibreOptions{LibraryPath: "/lib", Timeout: 20 * time.Millisecond, Runner: hung})
	require.NoError(t, err)

	_, err = c.Publish(context.Background(), bookRequest())

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()

	pubs, err := FromConfig(cfg, nil)
	require.NoError(t, err)
	assert.Empty(t, pubs)

	cfg.Zotero.Enabled = true
	cfg.Zotero.LibraryID = "1"
	cfg.Zotero.APIKey = "k"
	cfg.Calibre.Enabled = true
	pubs, err = FromConfig(cfg, nil)
	require.NoError(t, err)
	require.Len(t, pubs, 2)
	assert.Equal(t, "zotero", pubs[0].Name())
	assert.Equal(t, "calibre", pubs[1].Name())
	assert.True(t, pubs[1].Accepts("books"))
	assert.False(t, pubs[1].Accepts("papers"))

	cfg.Zotero.APIKey = ""
	_, err = FromConfig(cfg, nil)
	assert.Error(t, err)
}
