// Package file implements a preferences store backed by a single JSON object
// on local disk, e.g. {"token":"..."}.
package file

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/product-detail/internal/domain/prefs"
)

var _ prefs.Store = (*PrefsStore)(nil)

// ErrNotString is returned by Get when the stored value is not a JSON string.
var ErrNotString = errors.New("preference is not a string")

// PrefsStore reads the file on every Get and rewrites it atomically on
// Set and Delete. Values of other JSON types written by other tools are
// preserved as-is.
type PrefsStore struct {
	path string
	mu   sync.Mutex
}

// NewPrefsStore returns a store for the file at path. The file does not
// need to exist yet.
func NewPrefsStore(path string) *PrefsStore {
	return &PrefsStore{path: path}
}

// Path returns the backing file path.
func (s *PrefsStore) Path() string { return s.path }

// Get returns the string stored under key.
func (s *PrefsStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return "", err
	}
	raw, ok := values[key]
	if !ok {
		return "", prefs.ErrNotFound
	}
	if raw.Type() != jx.String {
		return "", errors.Wrapf(ErrNotString, "key %q", key)
	}
	v, err := jx.DecodeBytes(raw).Str()
	if err != nil {
		return "", errors.Wrapf(err, "decode %q", key)
	}
	return v, nil
}

// Set stores value under key.
func (s *PrefsStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}

	var e jx.Encoder
	e.Str(value)
	values[key] = jx.Raw(e.Bytes())
	return s.save(values)
}

// Delete removes key. Deleting a missing key is not an error.
func (s *PrefsStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return s.save(values)
}

func (s *PrefsStore) load() (map[string]jx.Raw, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]jx.Raw{}, nil
		}
		return nil, errors.Wrap(err, "read preferences")
	}

	values := map[string]jx.Raw{}
	d := jx.DecodeBytes(data)
	if d.Next() == jx.Invalid {
		// Empty file.
		return values, nil
	}
	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		raw, err := d.Raw()
		if err != nil {
			return err
		}
		// Raw aliases the decoder buffer.
		values[string(key)] = slices.Clone(raw)
		return nil
	}); err != nil {
		return nil, errors.Wrapf(err, "parse preferences %s", s.path)
	}
	return values, nil
}

func (s *PrefsStore) save(values map[string]jx.Raw) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	e := jx.Encoder{}
	e.SetIdent(2)
	e.ObjStart()
	for _, k := range keys {
		e.FieldStart(k)
		e.Raw(values[k])
	}
	e.ObjEnd()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Wrap(err, "create preferences dir")
	}
	tmp, err := os.CreateTemp(dir, ".prefs-*.json")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(e.Bytes()); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "write preferences")
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "chmod preferences")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close preferences")
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return errors.Wrap(err, "replace preferences")
	}
	return nil
}
