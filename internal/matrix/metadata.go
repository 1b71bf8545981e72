package matrix

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// MetadataFile sits inside a MEX directory and records its format version.
const MetadataFile = "metadata.json"

// CurrentVersion is the newest matrix format this build understands.
const CurrentVersion = 2

// Metadata describes a MEX directory.
type Metadata struct {
	Version   int    `json:"version"`
	Chemistry string `json:"chemistry,omitempty"`
}

// ReadMetadata loads dir's metadata. A directory without a metadata file is
// version 1.
func ReadMetadata(dir string) (Metadata, error) {
	data, err := os.ReadFile(filepath.Join(dir, MetadataFile))
	if errors.Is(err, os.ErrNotExist) {
		return Metadata{Version: 1}, nil
	}
	if err != nil {
		return Metadata{}, err
	}
	var md Metadata
	if err := json.Unmarshal(data, &md); err != nil {
		return Metadata{}, fmt.Errorf("invalid %s in %s: %w", MetadataFile, dir, err)
	}
	if md.Version == 0 {
		md.Version = 1
	}
	return md, nil
}

// WriteMetadata stores md inside dir.
func WriteMetadata(dir string, md Metadata) error {
	data, err := json.MarshalIndent(md, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, MetadataFile), append(data, '\n'), 0o644)
}
