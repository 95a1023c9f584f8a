package timeline

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	errs "xqtimeline/pkg/errors"
	"xqtimeline/pkg/logger"
)

// fileOptions only lays out whitespace; entries already carry sorted keys
var fileOptions = &pretty.Options{
	Width:  -1,
	Prefix: "",
	Indent: "    ",
}

// Store persists one timeline file per account under a directory
type Store struct {
	dir      string
	policy   Policy
	filePerm os.FileMode
	logger   logger.Logger
}

// Option configures a Store
type Option func(*Store)

// WithPolicy sets the merge policy used by Store.Merge
func WithPolicy(p Policy) Option {
	return func(s *Store) { s.policy = p }
}

// WithLogger sets the logger, defaults to the global logger
func WithLogger(l logger.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithFilePermissions sets the mode of written timeline files
func WithFilePermissions(mode os.FileMode) Option {
	return func(s *Store) { s.filePerm = mode }
}

// NewStore creates a store rooted at dir, creating the directory if needed
func NewStore(dir string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errs.WrapPath(err, errs.ErrorTypeStorage, "create data directory", dir)
	}

	s := &Store{
		dir:      dir,
		policy:   PreferIncoming,
		filePerm: 0644,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.GetLogger()
	}
	return s, nil
}

// Path returns the file that holds the timeline of userID
func (s *Store) Path(userID int64) string {
	return filepath.Join(s.dir, fmt.Sprintf("timeline_%d.json", userID))
}

// Load reads the stored timeline of userID. A missing file is a cold start
// and yields an empty collection.
func (s *Store) Load(userID int64) ([]Entry, error) {
	path := s.Path(userID)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.DebugWithFields("No stored timeline, starting empty", map[string]interface{}{
				"account_id": userID,
				"path":       path,
			})
			return []Entry{}, nil
		}
		return nil, errs.WrapPath(err, errs.ErrorTypeStorage, "load timeline", path)
	}

	entries, err := Decode(data)
	if err != nil {
		return nil, errs.WrapPath(err, errs.ErrorTypeParsing, "load timeline", path)
	}

	s.logger.DebugWithFields("Loaded stored timeline", map[string]interface{}{
		"account_id": userID,
		"entries":    len(entries),
	})
	return entries, nil
}

// Merge combines a stored and a fetched collection using the store policy
func (s *Store) Merge(existing, incoming []Entry) []Entry {
	return MergeWith(s.policy, existing, incoming)
}

// Save replaces the stored timeline of userID. The file is written to a
// temporary name in the same directory and renamed over the old one.
func (s *Store) Save(userID int64, entries []Entry) error {
	path := s.Path(userID)

	data, err := Encode(entries)
	if err != nil {
		return errs.WrapPath(err, errs.ErrorTypeStorage, "encode timeline", path)
	}

	tmp, err := os.CreateTemp(s.dir, fmt.Sprintf(".timeline_%d_*.tmp", userID))
	if err != nil {
		return errs.WrapPath(err, errs.ErrorTypeStorage, "save timeline", path)
	}
	tmpPath := tmp.Name()

	_, err = tmp.Write(data)
	if err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Chmod(tmpPath, s.filePerm)
	}
	if err == nil {
		err = os.Rename(tmpPath, path)
	}
	if err != nil {
		os.Remove(tmpPath)
		return errs.WrapPath(err, errs.ErrorTypeStorage, "save timeline", path)
	}

	s.logger.DebugWithFields("Saved timeline", map[string]interface{}{
		"account_id": userID,
		"entries":    len(entries),
		"bytes":      len(data),
	})
	return nil
}

// Encode renders entries as an indented JSON array with recursively sorted
// keys. Equal collections always produce identical bytes.
func Encode(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, e := range entries {
		if e.raw == nil {
			return nil, fmt.Errorf("entry %d has no payload", i)
		}
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(e.raw)
	}
	buf.WriteByte(']')

	return pretty.PrettyOptions(buf.Bytes(), fileOptions), nil
}

// Decode parses a stored JSON array of entries
func Decode(data []byte) ([]Entry, error) {
	if !gjson.ValidBytes(data) {
		return nil, errs.New(errs.ErrorTypeParsing, "decode timeline", "invalid JSON")
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsArray() {
		return nil, errs.New(errs.ErrorTypeParsing, "decode timeline", "timeline is not a JSON array")
	}

	entries := []Entry{}
	var decodeErr error
	doc.ForEach(func(_, value gjson.Result) bool {
		e, err := NewEntry([]byte(value.Raw))
		if err != nil {
			decodeErr = fmt.Errorf("entry %d: %w", len(entries), err)
			return false
		}
		entries = append(entries, e)
		return true
	})
	if decodeErr != nil {
		return nil, decodeErr
	}
	return entries, nil
}
