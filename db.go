package hived

import (
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dkvlabs/hived/internal/buddy"
	"github.com/dkvlabs/hived/internal/mmapio"
	"github.com/dkvlabs/hived/internal/offset"
)

// headerMagic tags the 16-byte superblock this package reserves
// immediately after the buddy allocator's own bit-vector tables (see
// internal/buddy's reserve parameter). original_source has no such
// header — it always rebuilds a fresh root node on every
// database_create_database call, even against an existing file, which
// silently orphans whatever tree that file already held. Giving the
// root node a fixed, recoverable address is what makes reopening an
// existing file actually restore its tree instead of discarding it; see
// DESIGN.md.
const headerMagic = 0x68766431 // "hvd1"

const (
	hMagic   = offset.Offset(0)
	hVersion = offset.Offset(4)
	hRoot    = offset.Offset(8)
	headerSize = 16
)

// Database is an open handle to a hived store: a memory-mapped file
// managed by internal/buddy, with a node graph of directories and leaves
// carved out of it.
type Database struct {
	mu       sync.Mutex
	path     string
	mapping  *mmapio.Mapping
	alloc    *buddy.Allocator
	root     offset.Offset
	log      *logrus.Entry
	session  uuid.UUID
	readOnly bool
	closed   bool
}

// Open opens the store at path, creating it with the configured initial
// size if it does not already exist, per database_create_database.
func Open(path string, opts ...Option) (*Database, error) {
	cfg := newOpenConfig()
	for _, o := range opts {
		o.apply(cfg)
	}
	if cfg.initialSize == 0 {
		cfg.initialSize = defaultInitialSize
	}

	exists := mmapio.Exists(path)

	mapLen := cfg.initialSize
	if exists {
		// Reopening an existing file maps its current length, not the
		// caller's requested initial size: WithInitialSize only governs
		// how large a brand-new file starts out, matching
		// database_create_database's own initial_size parameter.
		info, serr := os.Stat(path)
		if serr != nil {
			return nil, opErr("stat", path, serr)
		}
		mapLen = uint64(info.Size())
	}

	var (
		m   *mmapio.Mapping
		err error
	)
	if cfg.readOnly {
		m, err = mmapio.Open(path, mapLen, true)
	} else if exists {
		m, err = mmapio.Open(path, mapLen, false)
	} else {
		m, err = mmapio.Create(path, mapLen)
	}
	if err != nil {
		return nil, opErr("open", path, err)
	}

	log, session := newSessionLogger(cfg.logger, path)

	db := &Database{
		path:     path,
		mapping:  m,
		log:      log,
		session:  session,
		readOnly: cfg.readOnly,
	}

	r := m.Region()
	if exists {
		db.alloc, err = buddy.Open(r, headerSize)
		if err != nil {
			m.Close()
			return nil, opErr("open", path, err)
		}
		if r.Uint32(db.alloc.MetaEnd()+hMagic) != headerMagic {
			m.Close()
			return nil, errInvalidHeader
		}
		db.root = r.Offset(db.alloc.MetaEnd() + hRoot)
	} else {
		db.alloc, err = buddy.New(r, headerSize)
		if err != nil {
			m.Close()
			return nil, opErr("create", path, err)
		}

		hdr := db.alloc.MetaEnd()
		r.PutUint32(hdr+hMagic, headerMagic)
		r.PutByte(hdr+hVersion, 1)

		rootNode, err := newNode(db, TypeDirectory, "")
		if err != nil {
			m.Close()
			return nil, err
		}
		rootNode.setChildOffset(offset.Null)
		db.root = rootNode.off
		r.PutOffset(hdr+hRoot, db.root)
	}

	db.log.Infof("opened database (new=%v, session=%s)", !exists, session)
	return db, nil
}

var errInvalidHeader = fmt.Errorf("hived: bad header magic: %w", ErrInvalidArgument)

// checkOpen returns ErrClosed if the database has already been closed or
// destroyed.
func (db *Database) checkOpen() error {
	if db.closed {
		return ErrClosed
	}
	return nil
}

// checkWritable returns checkOpen's error, or ErrInvalidArgument if the
// database was opened with WithReadOnly(true). Every mutating operation
// calls this instead of checkOpen.
func (db *Database) checkWritable() error {
	if err := db.checkOpen(); err != nil {
		return err
	}
	if db.readOnly {
		return ErrInvalidArgument
	}
	return nil
}

// Root returns the database's root directory, which always exists and
// cannot be deleted.
func (db *Database) Root() Directory {
	return directoryAt(db, db.root)
}

// SessionID returns the UUID minted for this Open call, used to tag this
// database's log lines.
func (db *Database) SessionID() uuid.UUID { return db.session }

// Close unmaps the file and releases its descriptor without erasing any
// data, the Go analogue of database_shutdown_database.
func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return nil
	}
	db.closed = true
	db.log.Infof("closing database")
	if err := db.mapping.Close(); err != nil {
		return opErr("close", db.path, err)
	}
	return nil
}

// Destroy clears every node under the root, then closes the database,
// the Go analogue of database_destroy_database. Unlike Close, it erases
// the tree first; like Close, it leaves the backing file at its full
// mapped length. A later Open of the same path finds a valid, empty
// root rather than a zero-length file — database_destroy_database never
// truncates the file either, it only frees every node reachable from the
// root before unmapping.
func (db *Database) Destroy() error {
	if err := db.checkOpen(); err != nil {
		return err
	}
	if err := db.ClearDirectory(db.Root()); err != nil {
		return err
	}
	return db.Close()
}
