package source

import (
	"context"
	"encoding/json"
	"errors"
	"os"

	"github.com/Billy-Davies-2/seal-tracker/internal/models"
)

// FileSource reads the feed from a JSON file on disk
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (f *FileSource) Name() string {
	return "file:" + f.path
}

func (f *FileSource) Fetch(ctx context.Context) (*models.RawDataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err)
	}

	file, err := os.Open(f.path)
	if err != nil {
		return nil, unavailable(err)
	}
	defer file.Close()

	var raw models.RawDataset
	if err := json.NewDecoder(file).Decode(&raw); err != nil {
		return nil, unavailable(err)
	}
	if raw.Players == nil {
		return nil, unavailable(errors.New("file has no players"))
	}
	return &raw, nil
}
