package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/pebble"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/go-git/go-git/v5/storage"
	"github.com/go-git/go-git/v5/storage/memory"
	log "github.com/sirupsen/logrus"
)

// Key layout:
//
//	obj/<hex oid> -> object type (1 byte) + content
//	ref/<name>    -> reference target, as written by plumbing.Reference.Strings
//	shallow       -> newline separated hex oids of shallow commits
var (
	objectPrefix = []byte("obj/")
	refPrefix    = []byte("ref/")
	shallowKey   = []byte("shallow")
)

func NewPebbleStorage(path string) (GitStorage, error) {
	dir := filepath.Join(path, "objects", "pebble")
	conn, err := pebble.Open(dir, &pebble.Options{
		Logger: pebbleLogger{log.WithField("component", "pebble")},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble store at %s: %w", dir, err)
	}
	log.WithField("path", dir).Debug("opened pebble object store")
	return &PebbleStorage{
		conn:          conn,
		ModuleStorage: make(memory.ModuleStorage),
	}, nil
}

// PebbleStorage keeps objects, references and the shallow list in pebble.
// Config, index and submodule state only live in memory.
type PebbleStorage struct {
	conn *pebble.DB

	memory.ConfigStorage
	memory.IndexStorage
	memory.ModuleStorage
}

var _ storage.Storer = (*PebbleStorage)(nil)

func (s *PebbleStorage) Close() error {
	return s.conn.Close()
}

func (s *PebbleStorage) NewEncodedObject() plumbing.EncodedObject {
	return &plumbing.MemoryObject{}
}

func (s *PebbleStorage) SetEncodedObject(obj plumbing.EncodedObject) (plumbing.Hash, error) {
	switch obj.Type() {
	case plumbing.CommitObject, plumbing.TreeObject, plumbing.BlobObject, plumbing.TagObject:
	default:
		return plumbing.ZeroHash, plumbing.ErrInvalidType
	}

	reader, err := obj.Reader()
	if err != nil {
		return plumbing.ZeroHash, err
	}
	defer reader.Close()

	buf, err := io.ReadAll(reader)
	if err != nil {
		return plumbing.ZeroHash, err
	} else if len(buf) < int(obj.Size()) {
		return plumbing.ZeroHash, fmt.Errorf("incorrect number of bytes in object (expected %d, got %d)", obj.Size(), len(buf))
	}

	oid := obj.Hash()
	value := make([]byte, 0, len(buf)+1)
	value = append(value, byte(obj.Type()))
	value = append(value, buf...)
	if err := s.conn.Set(objectKey(oid), value, pebble.Sync); err != nil {
		return plumbing.ZeroHash, err
	}
	return oid, nil
}

func (s *PebbleStorage) EncodedObject(objType plumbing.ObjectType, oid plumbing.Hash) (plumbing.EncodedObject, error) {
	value, closer, err := s.conn.Get(objectKey(oid))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, plumbing.ErrObjectNotFound
	} else if err != nil {
		return nil, err
	}
	defer closer.Close()

	obj, err := decodeObject(value)
	if err != nil {
		return nil, fmt.Errorf("object %s: %w", oid, err)
	}
	if objType != plumbing.AnyObject && obj.Type() != objType {
		return nil, plumbing.ErrObjectNotFound
	}
	return obj, nil
}

func (s *PebbleStorage) IterEncodedObjects(objType plumbing.ObjectType) (storer.EncodedObjectIter, error) {
	iter, err := s.conn.NewIter(prefixBounds(objectPrefix))
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var objs []plumbing.EncodedObject
	for iter.First(); iter.Valid(); iter.Next() {
		obj, err := decodeObject(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("object %s: %w", iter.Key()[len(objectPrefix):], err)
		}
		if objType == plumbing.AnyObject || obj.Type() == objType {
			objs = append(objs, obj)
		}
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	return storer.NewEncodedObjectSliceIter(objs), nil
}

func (s *PebbleStorage) HasEncodedObject(oid plumbing.Hash) error {
	_, closer, err := s.conn.Get(objectKey(oid))
	if errors.Is(err, pebble.ErrNotFound) {
		return plumbing.ErrObjectNotFound
	} else if err != nil {
		return err
	}
	return closer.Close()
}

func (s *PebbleStorage) EncodedObjectSize(oid plumbing.Hash) (int64, error) {
	value, closer, err := s.conn.Get(objectKey(oid))
	if errors.Is(err, pebble.ErrNotFound) {
		return 0, plumbing.ErrObjectNotFound
	} else if err != nil {
		return 0, err
	}
	defer closer.Close()
	if len(value) == 0 {
		return 0, fmt.Errorf("object %s: empty record", oid)
	}
	return int64(len(value) - 1), nil
}

func (s *PebbleStorage) AddAlternate(remote string) error {
	// No alternates support
	return fmt.Errorf("alternates are not supported")
}

func (s *PebbleStorage) SetReference(ref *plumbing.Reference) error {
	parts := ref.Strings()
	return s.conn.Set(refKey(ref.Name()), []byte(parts[1]), pebble.Sync)
}

func (s *PebbleStorage) CheckAndSetReference(ref, old *plumbing.Reference) error {
	if ref == nil {
		return nil
	}
	if old != nil {
		current, err := s.Reference(old.Name())
		if err != nil && !errors.Is(err, plumbing.ErrReferenceNotFound) {
			return err
		}
		if current != nil && current.Strings()[1] != old.Strings()[1] {
			return storage.ErrReferenceHasChanged
		}
	}
	return s.SetReference(ref)
}

func (s *PebbleStorage) Reference(name plumbing.ReferenceName) (*plumbing.Reference, error) {
	value, closer, err := s.conn.Get(refKey(name))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, plumbing.ErrReferenceNotFound
	} else if err != nil {
		return nil, err
	}
	defer closer.Close()
	return plumbing.NewReferenceFromStrings(name.String(), string(value)), nil
}

func (s *PebbleStorage) IterReferences() (storer.ReferenceIter, error) {
	iter, err := s.conn.NewIter(prefixBounds(refPrefix))
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var refs []*plumbing.Reference
	for iter.First(); iter.Valid(); iter.Next() {
		name := string(iter.Key()[len(refPrefix):])
		refs = append(refs, plumbing.NewReferenceFromStrings(name, string(iter.Value())))
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	return storer.NewReferenceSliceIter(refs), nil
}

func (s *PebbleStorage) RemoveReference(name plumbing.ReferenceName) error {
	return s.conn.Delete(refKey(name), pebble.Sync)
}

func (s *PebbleStorage) CountLooseRefs() (int, error) {
	iter, err := s.IterReferences()
	if err != nil {
		return 0, err
	}
	count := 0
	err = iter.ForEach(func(*plumbing.Reference) error {
		count++
		return nil
	})
	return count, err
}

func (s *PebbleStorage) PackRefs() error {
	// References are already stored in a single keyspace
	return nil
}

func (s *PebbleStorage) SetShallow(commits []plumbing.Hash) error {
	if len(commits) == 0 {
		return s.conn.Delete(shallowKey, pebble.Sync)
	}
	var buf bytes.Buffer
	for _, oid := range commits {
		buf.WriteString(oid.String())
		buf.WriteByte('\n')
	}
	return s.conn.Set(shallowKey, buf.Bytes(), pebble.Sync)
}

func (s *PebbleStorage) Shallow() ([]plumbing.Hash, error) {
	value, closer, err := s.conn.Get(shallowKey)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	defer closer.Close()

	var commits []plumbing.Hash
	for _, line := range strings.Fields(string(value)) {
		if !plumbing.IsHash(line) {
			return nil, fmt.Errorf("invalid shallow entry %q", line)
		}
		commits = append(commits, plumbing.NewHash(line))
	}
	return commits, nil
}

// pebbleLogger sends pebble's messages to logrus. Routine job reports are
// debug output.
type pebbleLogger struct {
	entry *log.Entry
}

func (l pebbleLogger) Infof(format string, args ...interface{}) {
	l.entry.Debugf(format, args...)
}

func (l pebbleLogger) Errorf(format string, args ...interface{}) {
	l.entry.Errorf(format, args...)
}

func (l pebbleLogger) Fatalf(format string, args ...interface{}) {
	l.entry.Fatalf(format, args...)
}

func decodeObject(value []byte) (plumbing.EncodedObject, error) {
	if len(value) == 0 {
		return nil, fmt.Errorf("empty record")
	}
	objType := plumbing.ObjectType(value[0])
	if !objType.Valid() {
		return nil, fmt.Errorf("invalid object type %d", value[0])
	}

	obj := &plumbing.MemoryObject{}
	obj.SetType(objType)
	// Write copies, so the result outlives the pebble buffer
	if _, err := obj.Write(value[1:]); err != nil {
		return nil, err
	}
	return obj, nil
}

func objectKey(oid plumbing.Hash) []byte {
	return append(append([]byte(nil), objectPrefix...), oid.String()...)
}

func refKey(name plumbing.ReferenceName) []byte {
	return append(append([]byte(nil), refPrefix...), name.String()...)
}

func prefixBounds(prefix []byte) *pebble.IterOptions {
	upper := append([]byte(nil), prefix...)
	upper[len(upper)-1]++
	return &pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: upper,
	}
}
