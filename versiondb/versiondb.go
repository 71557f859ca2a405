// Package versiondb reads and writes version-keyed address databases.
//
// A database maps stable numeric IDs to image-relative offsets for one
// specific build of a target executable. Descriptors refer to code and
// data locations by ID; shipping one database file per supported build
// insulates them from layout churn between builds. A missing database
// or a missing ID means the running build is unsupported - there is no
// degraded mode.
//
// The on-disk format is little-endian:
//
//	magic   [4]byte  "PKDB"
//	format  uint16   currently 1
//	verlen  uint16   length of the version string
//	version []byte   executable version, e.g. "1.6.1170.0"
//	count   uint32   number of entries
//	entries count * (id uint64, offset uint64)
package versiondb

import (
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
)

const formatVersion = 1

var magic = [4]byte{'P', 'K', 'D', 'B'}

var (
	// DefaultExitFn is invoked by functions and methods ending in
	// the "OrExit" suffix when an error occurs.
	DefaultExitFn = func(err error) {
		log.Fatalln(err)
	}
)

// Filename returns the conventional database filename for the
// specified executable version.
func Filename(version string) string {
	return "versiondb-" + version + ".bin"
}

// New creates an empty database for the specified executable version.
func New(version string) *DB {
	return &DB{
		version:    version,
		idToOffset: make(map[uint64]uint64),
		offsetToID: make(map[uint64]uint64),
	}
}

// LoadOrExit calls Load, invoking DefaultExitFn if an error occurs.
func LoadOrExit(filePath string) *DB {
	db, err := Load(filePath)
	if err != nil {
		DefaultExitFn(fmt.Errorf("failed to load version database - %w", err))
	}
	return db
}

// Load reads a database from the specified file.
func Load(filePath string) (*DB, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database file - %w", err)
	}
	defer f.Close()

	db, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read database file %q - %w", filePath, err)
	}

	return db, nil
}

// Read reads a database from r.
func Read(r io.Reader) (*DB, error) {
	var header struct {
		Magic  [4]byte
		Format uint16
		VerLen uint16
	}

	err := binary.Read(r, binary.LittleEndian, &header)
	if err != nil {
		return nil, fmt.Errorf("failed to read header - %w", err)
	}

	if header.Magic != magic {
		return nil, fmt.Errorf("bad magic: 0x%x", header.Magic)
	}

	if header.Format != formatVersion {
		return nil, fmt.Errorf("unsupported format version: %d", header.Format)
	}

	version := make([]byte, header.VerLen)
	_, err = io.ReadFull(r, version)
	if err != nil {
		return nil, fmt.Errorf("failed to read version string - %w", err)
	}

	var count uint32
	err = binary.Read(r, binary.LittleEndian, &count)
	if err != nil {
		return nil, fmt.Errorf("failed to read entry count - %w", err)
	}

	db := New(string(version))

	for i := uint32(0); i < count; i++ {
		var entry struct {
			ID     uint64
			Offset uint64
		}

		err = binary.Read(r, binary.LittleEndian, &entry)
		if err != nil {
			return nil, fmt.Errorf("failed to read entry %d of %d - %w",
				i, count, err)
		}

		err = db.Add(entry.ID, entry.Offset)
		if err != nil {
			return nil, fmt.Errorf("bad entry %d - %w", i, err)
		}
	}

	return db, nil
}

// DB maps stable IDs to image-relative offsets for one executable
// version.
type DB struct {
	version    string
	idToOffset map[uint64]uint64
	offsetToID map[uint64]uint64
}

// Version returns the executable version the database describes.
func (o *DB) Version() string {
	return o.version
}

// NumEntries returns the number of ID to offset mappings.
func (o *DB) NumEntries() int {
	return len(o.idToOffset)
}

// Add inserts an ID to offset mapping. IDs must be unique; offsets
// must be unique as well so that reverse lookups stay meaningful.
func (o *DB) Add(id uint64, offset uint64) error {
	if existing, hasIt := o.idToOffset[id]; hasIt {
		return fmt.Errorf("duplicate id %d (existing offset: 0x%x, new: 0x%x)",
			id, existing, offset)
	}

	if existing, hasIt := o.offsetToID[offset]; hasIt {
		return fmt.Errorf("duplicate offset 0x%x (existing id: %d, new: %d)",
			offset, existing, id)
	}

	o.idToOffset[id] = offset
	o.offsetToID[offset] = id

	return nil
}

// FindOffsetByID returns the image-relative offset for the
// specified ID.
func (o *DB) FindOffsetByID(id uint64) (uint64, bool) {
	offset, hasIt := o.idToOffset[id]
	return offset, hasIt
}

// FindIDByOffset returns the ID mapped to the specified image-relative
// offset. This is a diagnostic aid for descriptor authors checking
// a known offset against the database.
func (o *DB) FindIDByOffset(offset uint64) (uint64, bool) {
	id, hasIt := o.offsetToID[offset]
	return id, hasIt
}

// IDs returns all IDs in the database in ascending order.
func (o *DB) IDs() []uint64 {
	ids := make([]uint64, 0, len(o.idToOffset))
	for id := range o.idToOffset {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool {
		return ids[i] < ids[j]
	})

	return ids
}

// Write writes the database to w in the on-disk format.
func (o *DB) Write(w io.Writer) error {
	if len(o.version) > 0xffff {
		return fmt.Errorf("version string is too long (%d bytes)", len(o.version))
	}

	header := struct {
		Magic  [4]byte
		Format uint16
		VerLen uint16
	}{
		Magic:  magic,
		Format: formatVersion,
		VerLen: uint16(len(o.version)),
	}

	err := binary.Write(w, binary.LittleEndian, header)
	if err != nil {
		return fmt.Errorf("failed to write header - %w", err)
	}

	_, err = w.Write([]byte(o.version))
	if err != nil {
		return fmt.Errorf("failed to write version string - %w", err)
	}

	err = binary.Write(w, binary.LittleEndian, uint32(len(o.idToOffset)))
	if err != nil {
		return fmt.Errorf("failed to write entry count - %w", err)
	}

	for _, id := range o.IDs() {
		entry := struct {
			ID     uint64
			Offset uint64
		}{
			ID:     id,
			Offset: o.idToOffset[id],
		}

		err = binary.Write(w, binary.LittleEndian, entry)
		if err != nil {
			return fmt.Errorf("failed to write entry for id %d - %w", id, err)
		}
	}

	return nil
}

// Save writes the database to the specified file.
func (o *DB) Save(filePath string) error {
	f, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create database file - %w", err)
	}

	err = o.Write(f)
	if err != nil {
		f.Close()
		return err
	}

	return f.Close()
}

// Bind attaches the executable's load base address to the database,
// producing an address lookup suitable for the hook package's
// resolver.
func (o *DB) Bind(base uintptr) Bound {
	return Bound{
		db:   o,
		base: base,
	}
}

// Bound is a DB combined with a load base address. It translates IDs
// directly to absolute addresses in the running executable.
type Bound struct {
	db   *DB
	base uintptr
}

// FindAddressByID returns the absolute address for the specified ID.
func (o Bound) FindAddressByID(id uint64) (uintptr, bool) {
	offset, hasIt := o.db.FindOffsetByID(id)
	if !hasIt {
		return 0, false
	}

	return o.base + uintptr(offset), true
}
