// Package fat16driver adapts internal/fat16's volume reader to the fs.Driver
// and fs.Handle interfaces, the same gluing role isr80h/io.c's thin wrappers
// play around the FAT16 implementation in the original kernel.
package fat16driver

import (
	"peachkernel/internal/disk"
	"peachkernel/internal/fat16"
	"peachkernel/internal/fs"
	"peachkernel/internal/kerr"
)

// Driver implements fs.Driver for FAT16 volumes.
type Driver struct{}

// New returns a FAT16 fs.Driver ready to register.
func New() *Driver { return &Driver{} }

func (Driver) Name() string { return "FAT16" }

func (Driver) Resolve(d *disk.Disk) (bool, error) {
	_, err := fat16.Resolve(d)
	if err != nil {
		if kerr.Is(err, kerr.NotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (Driver) Open(d *disk.Disk, parts []string, mode fs.Mode) (fs.Handle, error) {
	if mode&fs.ModeWrite != 0 || mode&fs.ModeAppend != 0 {
		return nil, kerr.New("fat16driver.Open", kerr.InvalidArgument)
	}

	volume, ok := d.FS.(*fat16.FileSystem)
	if !ok {
		return nil, kerr.New("fat16driver.Open", kerr.NotFound)
	}

	entry, typ, err := volume.Lookup(parts)
	if err != nil {
		return nil, err
	}
	if typ != fat16.EntryFile {
		return nil, kerr.New("fat16driver.Open", kerr.NotDirectory)
	}

	return &handle{volume: volume, entry: entry}, nil
}

// handle is a FAT16 file opened for reading. Files are read-only in this
// implementation (the original never implements FAT16 write support), so
// Read is the only mutating operation and current_pos is purely a cursor.
type handle struct {
	volume *fat16.FileSystem
	entry  *fat16.DirEntry
	pos    uint32
}

func (h *handle) Read(buf []byte) (int, error) {
	if h.pos >= h.entry.FileSize() {
		return 0, kerr.New("fat16driver.Read", kerr.NoData)
	}
	remaining := h.entry.FileSize() - h.pos
	toRead := uint32(len(buf))
	if toRead > remaining {
		toRead = remaining
	}

	if err := h.volume.ReadAt(h.entry, h.pos, buf[:toRead]); err != nil {
		return 0, err
	}
	h.pos += toRead
	return int(toRead), nil
}

func (h *handle) Seek(offset int32, whence fs.SeekMode) error {
	var newPos int64
	switch whence {
	case fs.SeekSet:
		newPos = int64(offset)
	case fs.SeekCur:
		newPos = int64(h.pos) + int64(offset)
	case fs.SeekEnd:
		return kerr.New("fat16driver.Seek", kerr.InvalidArgument)
	default:
		return kerr.New("fat16driver.Seek", kerr.InvalidArgument)
	}
	if newPos < 0 {
		return kerr.New("fat16driver.Seek", kerr.InvalidArgument)
	}
	h.pos = uint32(newPos)
	return nil
}

func (h *handle) Stat() (fs.State, error) {
	return fs.State{ReadOnly: true, FileSize: h.entry.FileSize()}, nil
}

func (h *handle) Close() error {
	return nil
}
