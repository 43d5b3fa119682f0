package filesink

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/checklisting/crawler/internal/checklist"
)

func sampleChecklist(count int) *checklist.Checklist {
	return &checklist.Checklist{
		Version:    checklist.FormatVersion,
		Language:   checklist.Language,
		Identifier: "S1",
		Source:     "eBird",
		Date:       "2013-03-27",
		Entries: []checklist.Entry{
			{Identifier: "OBS1", Species: checklist.Species{Name: "Barn Swallow"}, Count: count},
		},
	}
}

func TestFilenameIsDerivedFromSourceAndIdentifier(t *testing.T) {
	t.Parallel()

	require.Equal(t, "ebird-S1.json", Filename(&checklist.Checklist{Source: "eBird", Identifier: "S1"}))
	require.Equal(t, "worldbirds-1234.json", Filename(&checklist.Checklist{Source: "WorldBirds", Identifier: "1234"}))
	require.Equal(t, "bird-atlas-7.json", Filename(&checklist.Checklist{Source: "Bird Atlas", Identifier: "7"}))
}

func TestSaveWritesCanonicalJSON(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sink, err := New(dir, nil)
	require.NoError(t, err)

	c := sampleChecklist(12)
	require.NoError(t, sink.Save(context.Background(), c))

	payload, err := os.ReadFile(filepath.Join(dir, "ebird-S1.json"))
	require.NoError(t, err)

	var decoded checklist.Checklist
	require.NoError(t, json.Unmarshal(payload, &decoded))
	require.Equal(t, *c, decoded)
}

func TestSaveOverwritesInsteadOfDuplicating(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sink, err := New(dir, nil)
	require.NoError(t, err)

	require.NoError(t, sink.Save(context.Background(), sampleChecklist(12)))
	require.NoError(t, sink.Save(context.Background(), sampleChecklist(15)))

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)

	payload, err := os.ReadFile(filepath.Join(dir, files[0].Name()))
	require.NoError(t, err)
	var decoded checklist.Checklist
	require.NoError(t, json.Unmarshal(payload, &decoded))
	require.Equal(t, 15, decoded.Entries[0].Count)
}

func TestEmptyDirDisablesPersistence(t *testing.T) {
	t.Parallel()

	sink, err := New("", nil)
	require.NoError(t, err)

	require.NoError(t, sink.Save(context.Background(), sampleChecklist(12)))
}

func TestSaveHonorsContextCancellation(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sink, err := New(dir, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.Error(t, sink.Save(ctx, sampleChecklist(12)))

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, files)
}
