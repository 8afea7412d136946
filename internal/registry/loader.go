// Package registry locates the model artifact served by textgend.
package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"textgend/internal/common/fsutil"
	"textgend/internal/config"
	"textgend/pkg/types"
)

// ErrNoModels is returned by Pick when the directory holds no artifacts.
var ErrNoModels = errors.New("no *.gguf model found")

// Resolve returns the model directory. An explicit dirPath wins; otherwise a
// non-empty dirName selects ./models/<dirName>; otherwise ./model is used.
func Resolve(dirPath, dirName string) string {
	if p := strings.TrimSpace(dirPath); p != "" {
		return p
	}
	if n := strings.TrimSpace(dirName); n != "" {
		return filepath.Join(config.DefaultModelsRoot, n)
	}
	return config.DefaultModelDirPath
}

// LoadDir scans a directory for *.gguf files, sorted by file name.
// ID is the file name including extension; Path is absolute.
func LoadDir(dir string) ([]types.Model, error) {
	abs, err := fsutil.AbsPath(dir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var models []types.Model
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".gguf") {
			continue
		}
		m := types.Model{ID: e.Name(), Path: filepath.Join(abs, e.Name())}
		if info, err := e.Info(); err == nil {
			m.SizeBytes = info.Size()
		}
		models = append(models, m)
	}
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	return models, nil
}

// Pick selects the artifact named file, or the first one when file is empty.
// A file that is a path rather than a bare name is accepted as-is if it exists.
func Pick(models []types.Model, file string) (types.Model, error) {
	file = strings.TrimSpace(file)
	if file != "" && strings.ContainsRune(file, filepath.Separator) {
		abs, err := fsutil.AbsPath(file)
		if err != nil {
			return types.Model{}, err
		}
		if !fsutil.IsFile(abs) {
			return types.Model{}, fmt.Errorf("model file %s: %w", abs, os.ErrNotExist)
		}
		return types.Model{ID: filepath.Base(abs), Path: abs}, nil
	}
	if len(models) == 0 {
		return types.Model{}, ErrNoModels
	}
	if file == "" {
		return models[0], nil
	}
	for _, m := range models {
		if m.ID == file {
			return m, nil
		}
	}
	return types.Model{}, fmt.Errorf("model %q: %w", file, os.ErrNotExist)
}
