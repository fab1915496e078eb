package storage

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/GriffinCanCode/AgentOS/deskfs/internal/shared/paths"
)

// Key layout
//
//	n:<path>  ->  kind(1) | modtime unix nanos(8) | file bytes
//
// Children of a directory are found with a prefix scan over "n:<dir>/" and
// keeping keys without a further separator. The root key "n:/" is created
// when the store is opened.
const (
	nodePrefix = "n:"
	kindDir    = byte('d')
	kindFile   = byte('f')
	headerSize = 9
)

// Badger is a persistent writable store on BadgerDB
type Badger struct {
	db *badger.DB
}

// OpenBadger opens (or creates) a store in dir. An empty dir opens an
// in-memory database.
func OpenBadger(dir string) (*Badger, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(dir)
	}
	opts = opts.WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger store: %w", err)
	}

	b := &Badger{db: db}
	if err := b.ensureRoot(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return b, nil
}

// Close releases the database
func (b *Badger) Close() error {
	return b.db.Close()
}

func (b *Badger) ensureRoot() error {
	return b.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(nodeKey(paths.Root))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return txn.Set(nodeKey(paths.Root), encodeNode(kindDir, time.Now(), nil))
		}
		return err
	})
}

func (b *Badger) Exists(ctx context.Context, path string) (bool, error) {
	path = paths.Clean(path)

	found := false
	err := b.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(nodeKey(path))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		found = err == nil
		return err
	})
	return found, err
}

func (b *Badger) Stat(ctx context.Context, path string) (Entry, error) {
	path = paths.Clean(path)

	var entry Entry
	err := b.db.View(func(txn *badger.Txn) error {
		n, err := getNode(txn, path)
		if err != nil {
			return opErr("stat", path, err)
		}
		entry = n.entry(path)
		return nil
	})
	return entry, err
}

func (b *Badger) ReadFile(ctx context.Context, path string) ([]byte, error) {
	path = paths.Clean(path)

	var data []byte
	err := b.db.View(func(txn *badger.Txn) error {
		n, err := getNode(txn, path)
		if err != nil {
			return opErr("read", path, err)
		}
		if n.kind == kindDir {
			return opErr("read", path, ErrIsDir)
		}
		data = n.data
		return nil
	})
	return data, err
}

func (b *Badger) ReadDir(ctx context.Context, path string) ([]Entry, error) {
	path = paths.Clean(path)

	var entries []Entry
	err := b.db.View(func(txn *badger.Txn) error {
		n, err := getNode(txn, path)
		if err != nil {
			return opErr("readdir", path, err)
		}
		if n.kind != kindDir {
			return opErr("readdir", path, ErrNotDir)
		}

		prefix := childPrefix(path)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			rest := bytes.TrimPrefix(item.Key(), prefix)
			if len(rest) == 0 || bytes.IndexByte(rest, '/') >= 0 {
				continue
			}

			raw, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			child := decodeNode(raw)
			entries = append(entries, child.entry(string(item.Key()[len(nodePrefix):])))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sortEntries(entries)
	return entries, nil
}

func (b *Badger) WriteFile(ctx context.Context, path string, data []byte, overwrite bool) error {
	path = paths.Clean(path)

	return b.db.Update(func(txn *badger.Txn) error {
		if err := checkParentTxn(txn, "write", path); err != nil {
			return err
		}

		existing, err := getNode(txn, path)
		switch {
		case err == nil && !overwrite:
			return opErr("write", path, ErrExist)
		case err == nil && existing.kind == kindDir:
			return opErr("write", path, ErrIsDir)
		case err != nil && !errors.Is(err, ErrNotExist):
			return err
		}

		return txn.Set(nodeKey(path), encodeNode(kindFile, time.Now(), data))
	})
}

func (b *Badger) Mkdir(ctx context.Context, path string) error {
	path = paths.Clean(path)

	return b.db.Update(func(txn *badger.Txn) error {
		if _, err := getNode(txn, path); err == nil {
			return opErr("mkdir", path, ErrExist)
		} else if !errors.Is(err, ErrNotExist) {
			return err
		}
		if err := checkParentTxn(txn, "mkdir", path); err != nil {
			return err
		}
		return txn.Set(nodeKey(path), encodeNode(kindDir, time.Now(), nil))
	})
}

// Rename moves src and its descendants to dst. The subtree is rewritten
// through a write batch, so renaming a large directory is not atomic.
func (b *Badger) Rename(ctx context.Context, src, dst string) error {
	src, dst = paths.Clean(src), paths.Clean(dst)

	var nodes []badgerKV
	err := b.db.View(func(txn *badger.Txn) error {
		if _, err := getNode(txn, src); err != nil {
			return opErr("rename", src, err)
		}
		if src == paths.Root || paths.IsWithin(dst, src) {
			return opErr("rename", dst, ErrInvalid)
		}
		if _, err := getNode(txn, dst); err == nil {
			return opErr("rename", dst, ErrExist)
		}
		if err := checkParentTxn(txn, "rename", dst); err != nil {
			return err
		}

		var err error
		nodes, err = collectTree(txn, src)
		return err
	})
	if err != nil {
		return err
	}

	return b.rewrite(nodes, func(p string) string {
		return dst + strings.TrimPrefix(p, src)
	})
}

// Remove deletes path and everything beneath it
func (b *Badger) Remove(ctx context.Context, path string) error {
	path = paths.Clean(path)
	if path == paths.Root {
		return opErr("remove", path, ErrInvalid)
	}

	var nodes []badgerKV
	err := b.db.View(func(txn *badger.Txn) error {
		if _, err := getNode(txn, path); err != nil {
			return opErr("remove", path, err)
		}
		var err error
		nodes, err = collectTree(txn, path)
		return err
	})
	if err != nil {
		return err
	}
	return b.rewrite(nodes, nil)
}

// Empty drops every key and recreates the root
func (b *Badger) Empty(ctx context.Context) error {
	if err := b.db.DropAll(); err != nil {
		return fmt.Errorf("failed to empty badger store: %w", err)
	}
	return b.ensureRoot()
}

type badgerKV struct {
	key   []byte
	value []byte
}

// collectTree copies path and its descendants out of txn
func collectTree(txn *badger.Txn, path string) ([]badgerKV, error) {
	var nodes []badgerKV
	collect := func(item *badger.Item) error {
		value, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		nodes = append(nodes, badgerKV{key: item.KeyCopy(nil), value: value})
		return nil
	}

	item, err := txn.Get(nodeKey(path))
	if err != nil {
		return nil, err
	}
	if err := collect(item); err != nil {
		return nil, err
	}

	prefix := childPrefix(path)
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		if err := collect(it.Item()); err != nil {
			return nil, err
		}
	}
	return nodes, nil
}

// rewrite re-keys nodes with rename, or deletes them when rename is nil.
// Write batches split into as many transactions as the subtree needs, so
// no single commit hits badger's transaction size limit. Targets are
// flushed before sources are deleted: an interrupted rename leaves both
// copies rather than losing entries.
func (b *Badger) rewrite(nodes []badgerKV, rename func(string) string) error {
	if rename != nil {
		wb := b.db.NewWriteBatch()
		defer wb.Cancel()
		for _, n := range nodes {
			target := rename(string(n.key[len(nodePrefix):]))
			if err := wb.Set(nodeKey(target), n.value); err != nil {
				return err
			}
		}
		if err := wb.Flush(); err != nil {
			return err
		}
	}

	wb := b.db.NewWriteBatch()
	defer wb.Cancel()
	for _, n := range nodes {
		if err := wb.Delete(n.key); err != nil {
			return err
		}
	}
	return wb.Flush()
}

type badgerNode struct {
	kind    byte
	modTime time.Time
	data    []byte
}

func (n badgerNode) entry(path string) Entry {
	name := paths.Base(path)
	if path == paths.Root {
		name = ""
	}
	return Entry{
		Name:    name,
		Path:    path,
		IsDir:   n.kind == kindDir,
		Size:    int64(len(n.data)),
		ModTime: n.modTime,
	}
}

func getNode(txn *badger.Txn, path string) (badgerNode, error) {
	item, err := txn.Get(nodeKey(path))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return badgerNode{}, ErrNotExist
	}
	if err != nil {
		return badgerNode{}, err
	}

	raw, err := item.ValueCopy(nil)
	if err != nil {
		return badgerNode{}, err
	}
	return decodeNode(raw), nil
}

func checkParentTxn(txn *badger.Txn, op, path string) error {
	if path == paths.Root {
		return opErr(op, path, ErrExist)
	}
	parent, err := getNode(txn, paths.Dir(path))
	if err != nil {
		return opErr(op, path, err)
	}
	if parent.kind != kindDir {
		return opErr(op, path, ErrNotDir)
	}
	return nil
}

func nodeKey(path string) []byte {
	return []byte(nodePrefix + path)
}

func childPrefix(dir string) []byte {
	if dir == paths.Root {
		return []byte(nodePrefix + "/")
	}
	return []byte(nodePrefix + dir + "/")
}

func encodeNode(kind byte, modTime time.Time, data []byte) []byte {
	buf := make([]byte, headerSize+len(data))
	buf[0] = kind
	binary.BigEndian.PutUint64(buf[1:headerSize], uint64(modTime.UnixNano()))
	copy(buf[headerSize:], data)
	return buf
}

func decodeNode(raw []byte) badgerNode {
	if len(raw) < headerSize {
		return badgerNode{kind: kindFile}
	}
	return badgerNode{
		kind:    raw[0],
		modTime: time.Unix(0, int64(binary.BigEndian.Uint64(raw[1:headerSize]))),
		data:    raw[headerSize:],
	}
}
