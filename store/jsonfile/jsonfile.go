// Package jsonfile provides file-backed implementations of the user, session
// and goal repositories. Each collection lives in one JSON file under the
// data folder; every mutation rewrites the file through a temp-file rename,
// so a crash after a successful call never loses that write.
package jsonfile

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// commit atomically replaces the file at path with the JSON encoding of v.
func commit(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "[jsonfile.commit] Marshal")
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".goalkeeper-*")
	if err != nil {
		return errors.Wrap(err, "[jsonfile.commit] CreateTemp")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "[jsonfile.commit] Write")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrap(err, "[jsonfile.commit] Sync")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "[jsonfile.commit] Close")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrap(err, "[jsonfile.commit] Rename")
	}
	return nil
}

// load decodes the file at path into v. A missing file is an empty
// collection, not an error.
func load(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, "[jsonfile.load] ReadFile")
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Wrapf(err, "[jsonfile.load] Unmarshal %s", path)
	}
	return nil
}
