package store

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"sort"
)

const (
	// fileMagic identifies map files (ASCII: "MIDX").
	fileMagic = 0x4D494458
	// fileVersion is the current file format version.
	fileVersion = 0x00010000

	fileExt     = ".map"
	fileTmpExt  = ".map.tmp"
	trailerSize = 16 // dirOffset u64 + dirCRC u32 + magic u32
)

// crcTable is the IEEE polynomial table used for all file checksums. CRC32
// detects accidental corruption only; it is not tamper-proof.
var crcTable = crc32.MakeTable(crc32.IEEE)

// FileBackend stores each map as a single file "<name>.map" under the
// caller's directory:
//
//	header     magic u32, version u32
//	meta       count u32, then length-prefixed name/value pairs
//	buckets    raw bucket bytes, concatenated in Put order
//	directory  count u32, then per key: key, bucket offset, length, CRC32
//	trailer    directory offset u64, directory CRC32, magic u32
//
// Builds write to "<name>.map.tmp" and rename on Commit, so a committed map
// replaces its predecessor atomically and a crashed build leaves the old
// map untouched.
type FileBackend struct{}

// NewFileBackend creates a filesystem backend.
func NewFileBackend() *FileBackend { return &FileBackend{} }

// Create starts building a map file.
func (b *FileBackend) Create(dir, name string, meta Meta) (Builder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, NewStorageError("create", name, err)
	}
	tmp := filepath.Join(dir, name+fileTmpExt)
	f, err := os.Create(tmp)
	if err != nil {
		return nil, NewStorageError("create", name, err)
	}
	fb := &fileBuilder{
		f:     f,
		tmp:   tmp,
		final: filepath.Join(dir, name+fileExt),
		name:  name,
	}
	if err := fb.writePreamble(meta); err != nil {
		f.Close()
		os.Remove(tmp)
		return nil, err
	}
	return fb, nil
}

// Open opens a committed map file.
func (b *FileBackend) Open(dir, name string) (Map, error) {
	path := filepath.Join(dir, name+fileExt)
	f, err := os.Open(path)
	if err != nil {
		return nil, NewStorageError("open", name, err)
	}
	m, err := openFileMap(f, name)
	if err != nil {
		f.Close()
		return nil, err
	}
	return m, nil
}

// Remove deletes a map file and any leftover temp file.
func (b *FileBackend) Remove(dir, name string) error {
	os.Remove(filepath.Join(dir, name+fileTmpExt))
	if err := os.Remove(filepath.Join(dir, name+fileExt)); err != nil && !os.IsNotExist(err) {
		return NewStorageError("remove", name, err)
	}
	return nil
}

type dirEntry struct {
	key    string
	offset uint64
	length uint32
	crc    uint32
}

type fileBuilder struct {
	f         *os.File
	tmp       string
	final     string
	name      string
	offset    uint64
	entries   []dirEntry
	committed bool
}

func (b *fileBuilder) writePreamble(meta Meta) error {
	var buf bytes.Buffer
	writeU32(&buf, fileMagic)
	writeU32(&buf, fileVersion)
	writeU32(&buf, uint32(len(meta)))
	for _, name := range sortedMetaNames(meta) {
		writeString16(&buf, name)
		writeString16(&buf, meta[name])
	}
	n, err := b.f.Write(buf.Bytes())
	if err != nil {
		return NewStorageError("write", b.name, err)
	}
	b.offset = uint64(n)
	return nil
}

func (b *fileBuilder) Put(key string, value []byte) error {
	if b.committed {
		return NewStorageError("write", b.name, fmt.Errorf("put after commit"))
	}
	n, err := b.f.Write(value)
	if err != nil {
		return NewStorageError("write", b.name, err)
	}
	b.entries = append(b.entries, dirEntry{
		key:    key,
		offset: b.offset,
		length: uint32(len(value)),
		crc:    crc32.Checksum(value, crcTable),
	})
	b.offset += uint64(n)
	return nil
}

func (b *fileBuilder) Commit() error {
	if b.committed {
		return nil
	}
	b.committed = true

	dirOffset := b.offset
	var dir bytes.Buffer
	writeU32(&dir, uint32(len(b.entries)))
	for _, e := range b.entries {
		writeString16(&dir, e.key)
		writeU64(&dir, e.offset)
		writeU32(&dir, e.length)
		writeU32(&dir, e.crc)
	}
	dirCRC := crc32.Checksum(dir.Bytes(), crcTable)

	writeU64(&dir, dirOffset)
	writeU32(&dir, dirCRC)
	writeU32(&dir, fileMagic)

	if _, err := b.f.Write(dir.Bytes()); err != nil {
		b.f.Close()
		os.Remove(b.tmp)
		return NewStorageError("commit", b.name, err)
	}
	if err := b.f.Sync(); err != nil {
		b.f.Close()
		os.Remove(b.tmp)
		return NewStorageError("commit", b.name, err)
	}
	if err := b.f.Close(); err != nil {
		os.Remove(b.tmp)
		return NewStorageError("commit", b.name, err)
	}
	if err := os.Rename(b.tmp, b.final); err != nil {
		os.Remove(b.tmp)
		return NewStorageError("commit", b.name, err)
	}
	return nil
}

type fileMap struct {
	f       *os.File
	name    string
	meta    Meta
	entries []dirEntry
	byKey   map[string]int
}

func openFileMap(f *os.File, name string) (*fileMap, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, NewStorageError("open", name, err)
	}
	size := info.Size()
	if size < trailerSize {
		return nil, NewCorruptionError(name, "file too short", nil)
	}

	trailer := make([]byte, trailerSize)
	if _, err := f.ReadAt(trailer, size-trailerSize); err != nil {
		return nil, NewStorageError("read", name, err)
	}
	dirOffset := binary.BigEndian.Uint64(trailer[0:8])
	dirCRC := binary.BigEndian.Uint32(trailer[8:12])
	if binary.BigEndian.Uint32(trailer[12:16]) != fileMagic {
		return nil, NewCorruptionError(name, "bad trailer magic", nil)
	}
	if dirOffset > uint64(size-trailerSize) {
		return nil, NewCorruptionError(name, "directory offset out of range", nil)
	}

	dirBytes := make([]byte, uint64(size-trailerSize)-dirOffset)
	if _, err := f.ReadAt(dirBytes, int64(dirOffset)); err != nil {
		return nil, NewStorageError("read", name, err)
	}
	if crc32.Checksum(dirBytes, crcTable) != dirCRC {
		return nil, NewCorruptionError(name, "directory checksum mismatch", nil)
	}

	m := &fileMap{f: f, name: name, byKey: make(map[string]int)}
	if err := m.parseDirectory(dirBytes); err != nil {
		return nil, err
	}
	if err := m.parseHeader(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *fileMap) parseHeader() error {
	if _, err := m.f.Seek(0, io.SeekStart); err != nil {
		return NewStorageError("read", m.name, err)
	}
	r := &byteReader{r: bufio.NewReader(m.f), name: m.name}
	if r.u32() != fileMagic {
		return NewCorruptionError(m.name, "bad header magic", nil)
	}
	if v := r.u32(); r.err == nil && v != fileVersion {
		return NewCorruptionError(m.name, fmt.Sprintf("unsupported version 0x%08x", v), nil)
	}
	m.meta = make(Meta)
	n := r.u32()
	for i := uint32(0); i < n && r.err == nil; i++ {
		name := r.string16()
		m.meta[name] = r.string16()
	}
	return r.err
}

func (m *fileMap) parseDirectory(dirBytes []byte) error {
	br := &byteReader{r: bytes.NewReader(dirBytes), name: m.name}
	n := br.u32()
	m.entries = make([]dirEntry, 0, n)
	for i := uint32(0); i < n; i++ {
		e := dirEntry{
			key:    br.string16(),
			offset: br.u64(),
			length: br.u32(),
			crc:    br.u32(),
		}
		if br.err != nil {
			break
		}
		m.byKey[e.key] = len(m.entries)
		m.entries = append(m.entries, e)
	}
	return br.err
}

func (m *fileMap) Get(key string) ([]byte, error) {
	i, ok := m.byKey[key]
	if !ok {
		return nil, ErrNotFound
	}
	return m.read(m.entries[i])
}

func (m *fileMap) read(e dirEntry) ([]byte, error) {
	buf := make([]byte, e.length)
	if _, err := m.f.ReadAt(buf, int64(e.offset)); err != nil {
		return nil, NewStorageError("read", m.name, err)
	}
	if crc32.Checksum(buf, crcTable) != e.crc {
		return nil, NewCorruptionError(m.name, fmt.Sprintf("bucket %q checksum mismatch", e.key), nil)
	}
	return buf, nil
}

func (m *fileMap) Len() int { return len(m.entries) }

func (m *fileMap) Keys() []string {
	keys := make([]string, len(m.entries))
	for i, e := range m.entries {
		keys[i] = e.key
	}
	return keys
}

func (m *fileMap) Each(fn func(key string, value []byte) error) error {
	for _, e := range m.entries {
		value, err := m.read(e)
		if err != nil {
			return err
		}
		if err := fn(e.key, value); err != nil {
			return err
		}
	}
	return nil
}

func (m *fileMap) Meta(name string) (string, bool) {
	v, ok := m.meta[name]
	return v, ok
}

func (m *fileMap) Close() error { return m.f.Close() }

func sortedMetaNames(meta Meta) []string {
	names := make([]string, 0, len(meta))
	for name := range meta {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Binary helpers. All integers are big-endian.

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeU64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func writeString16(buf *bytes.Buffer, s string) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], uint16(len(s)))
	buf.Write(b[:])
	buf.WriteString(s)
}

// byteReader decodes length-prefixed sections, latching the first error so
// call sites stay linear.
type byteReader struct {
	r    io.Reader
	name string
	err  error
}

func (br *byteReader) bytes(n int) []byte {
	if br.err != nil {
		return nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(br.r, buf); err != nil {
		br.err = NewCorruptionError(br.name, "truncated section", err)
		return nil
	}
	return buf
}

func (br *byteReader) u32() uint32 {
	b := br.bytes(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (br *byteReader) u64() uint64 {
	b := br.bytes(8)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

func (br *byteReader) string16() string {
	b := br.bytes(2)
	if b == nil {
		return ""
	}
	return string(br.bytes(int(binary.BigEndian.Uint16(b))))
}
