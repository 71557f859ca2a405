package versiondb

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDB_RoundTrip(t *testing.T) {
	db := New("1.6.1170.0")
	require.NoError(t, db.Add(403521, 0x2fc19c8))
	require.NoError(t, db.Add(41561, 0x70ec10))
	require.NoError(t, db.Add(52538, 0x8f6710))

	buf := bytes.NewBuffer(nil)
	require.NoError(t, db.Write(buf))

	loaded, err := Read(buf)
	require.NoError(t, err)

	require.Equal(t, "1.6.1170.0", loaded.Version())
	require.Equal(t, 3, loaded.NumEntries())

	offset, hasIt := loaded.FindOffsetByID(41561)
	require.True(t, hasIt)
	require.Equal(t, uint64(0x70ec10), offset)

	id, hasIt := loaded.FindIDByOffset(0x8f6710)
	require.True(t, hasIt)
	require.Equal(t, uint64(52538), id)
}

func TestDB_UnknownID(t *testing.T) {
	db := New("1.6.1170.0")

	_, hasIt := db.FindOffsetByID(1234)
	require.False(t, hasIt)
}

func TestDB_DuplicateEntries(t *testing.T) {
	db := New("1.6.1170.0")
	require.NoError(t, db.Add(1, 0x100))

	require.Error(t, db.Add(1, 0x200))
	require.Error(t, db.Add(2, 0x100))
}

func TestRead_BadMagic(t *testing.T) {
	_, err := Read(bytes.NewReader([]byte("XXDB\x01\x00\x00\x00\x00\x00\x00\x00")))
	require.Error(t, err)
	require.Contains(t, err.Error(), "bad magic")
}

func TestRead_Truncated(t *testing.T) {
	db := New("1.6.1170.0")
	require.NoError(t, db.Add(1, 0x100))

	buf := bytes.NewBuffer(nil)
	require.NoError(t, db.Write(buf))

	_, err := Read(bytes.NewReader(buf.Bytes()[0 : buf.Len()-4]))
	require.Error(t, err)
}

func TestDB_SaveAndLoad(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), Filename("1.6.1170.0"))

	db := New("1.6.1170.0")
	require.NoError(t, db.Add(38462, 0x64ee60))
	require.NoError(t, db.Save(filePath))

	loaded, err := Load(filePath)
	require.NoError(t, err)
	require.Equal(t, 1, loaded.NumEntries())
}

func TestBound_FindAddressByID(t *testing.T) {
	db := New("1.6.1170.0")
	require.NoError(t, db.Add(38462, 0x1000))

	bound := db.Bind(0x140000000)

	addr, hasIt := bound.FindAddressByID(38462)
	require.True(t, hasIt)
	require.Equal(t, uintptr(0x140001000), addr)

	_, hasIt = bound.FindAddressByID(9999)
	require.False(t, hasIt)
}
