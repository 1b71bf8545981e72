package outputs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/specialistvlad/stagegrid/internal/ctxlog"
	"github.com/specialistvlad/stagegrid/internal/dag"
	"github.com/specialistvlad/stagegrid/internal/fsutil"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// ManifestName is the file Materialize writes describing every output.
const ManifestName = dag.OutputManifestName

// Materialize copies every file-like output into dir, under its fixed file
// name when it has one and under its original base name otherwise. Copies
// are byte for byte. It then writes ManifestName, mapping each output name to
// its value, with file-like values replaced by their path inside dir.
//
// Two outputs landing on the same name, or on ManifestName, is an error
// reported before anything is written.
//
// The returned map gives the materialized path of each file-like output.
func (p *PipelineOutput) Materialize(ctx context.Context, dir string) (map[string]string, error) {
	logger := ctxlog.FromContext(ctx)
	names, err := p.fileNames()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	paths := make(map[string]string)
	manifest := make(map[string]json.RawMessage, len(p.Values))
	for _, v := range p.Values {
		val := v.Value
		if v.IsFile && !val.IsNull() {
			src := val.AsString()
			dst := filepath.Join(dir, names[v.Name])
			if err := fsutil.CopyTree(src, dst); err != nil {
				return nil, fmt.Errorf("failed to materialize output %q: %w", v.Name, err)
			}
			logger.Debug("Materialized output.", "output", v.Name, "from", src, "to", dst)
			paths[v.Name] = dst
			val = cty.StringVal(dst)
		}

		raw, err := ctyjson.Marshal(val, val.Type())
		if err != nil {
			return nil, fmt.Errorf("failed to encode output %q: %w", v.Name, err)
		}
		manifest[v.Name] = raw
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode output manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestName), append(data, '\n'), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write output manifest: %w", err)
	}
	return paths, nil
}

// fileNames returns the name each file-like output is materialized under.
func (p *PipelineOutput) fileNames() (map[string]string, error) {
	names := make(map[string]string)
	owner := make(map[string]string)
	for _, v := range p.Values {
		if !v.IsFile || v.Value.IsNull() {
			continue
		}
		name := v.FileName
		if name == "" {
			name = filepath.Base(v.Value.AsString())
		}
		if err := dag.CheckOutputFileName(name); err != nil {
			return nil, fmt.Errorf("cannot materialize output %q: %w", v.Name, err)
		}
		if other, dup := owner[name]; dup {
			return nil, fmt.Errorf("cannot materialize outputs %q and %q: both are named %q", other, v.Name, name)
		}
		owner[name] = v.Name
		names[v.Name] = name
	}
	return names, nil
}
