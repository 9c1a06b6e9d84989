// Package fs implements the file system registry and file descriptor
// table: a fixed-size table of pluggable file system drivers, a fixed-size
// 1-based descriptor table, and the path-to-descriptor Open sequence.
// Grounded on the original kernel's fs/file.c.
package fs

import (
	"peachkernel/internal/config"
	"peachkernel/internal/disk"
	"peachkernel/internal/fs/path"
	"peachkernel/internal/kerr"
)

// Mode is a bitmask of the access modes a file was opened with.
type Mode uint8

const (
	ModeRead Mode = 1 << iota
	ModeWrite
	ModeAppend
)

// ModeFromString maps an fopen-style mode string ("r", "w", "a", "r+", ...)
// to a Mode bitmask, matching file_get_mode_from_string.
func ModeFromString(s string) (Mode, error) {
	switch s {
	case "r":
		return ModeRead, nil
	case "w":
		return ModeWrite, nil
	case "a":
		return ModeAppend, nil
	case "r+", "w+":
		return ModeRead | ModeWrite, nil
	case "a+":
		return ModeRead | ModeAppend, nil
	default:
		return 0, kerr.New("fs.ModeFromString", kerr.InvalidArgument)
	}
}

// SeekMode mirrors the three fseek reference points.
type SeekMode int

const (
	SeekSet SeekMode = iota
	SeekCur
	SeekEnd
)

// State reports the status of an open file.
type State struct {
	ReadOnly bool
	FileSize uint32
}

// Handle is a file opened by a Driver.
type Handle interface {
	Read(buf []byte) (int, error)
	Seek(offset int32, whence SeekMode) error
	Stat() (State, error)
	Close() error
}

// Driver is a pluggable file system implementation: given a disk it hasn't
// seen before, Resolve reports whether the disk holds a volume this driver
// understands. Modeled on the original's file_system_t function-pointer
// struct.
type Driver interface {
	Name() string
	Resolve(d *disk.Disk) (bool, error)
	Open(d *disk.Disk, parts []string, mode Mode) (Handle, error)
}

var drivers [config.FSMaxFileSystems]Driver

// InsertDriver registers fs in the first free driver slot.
func InsertDriver(fs Driver) error {
	for i := range drivers {
		if drivers[i] == nil {
			drivers[i] = fs
			return nil
		}
	}
	return kerr.New("fs.InsertDriver", kerr.Busy)
}

// ResolveDisk tries every registered driver against d in order, claiming it
// for the first one that recognizes its volume, and caches the winner on d
// so later calls skip straight to it.
func ResolveDisk(d *disk.Disk) (Driver, error) {
	if drv, ok := d.FSDriver.(Driver); ok {
		return drv, nil
	}
	for _, drv := range drivers {
		if drv == nil {
			continue
		}
		ok, err := drv.Resolve(d)
		if err != nil {
			return nil, err
		}
		if ok {
			d.FSDriver = drv
			return drv, nil
		}
	}
	return nil, kerr.New("fs.ResolveDisk", kerr.NotFound)
}

type descriptor struct {
	id     int
	driver Driver
	disk   *disk.Disk
	handle Handle
}

var descriptors [config.FSMaxFileDescriptors]*descriptor

func newDescriptor() (*descriptor, error) {
	for i := range descriptors {
		if descriptors[i] == nil {
			d := &descriptor{id: i + 1}
			descriptors[i] = d
			return d, nil
		}
	}
	return nil, kerr.New("fs.newDescriptor", kerr.Busy)
}

func descriptorByID(id int) *descriptor {
	if id <= 0 || id > len(descriptors) {
		return nil
	}
	return descriptors[id-1]
}

// Open parses path, resolves its drive to a disk and file system, opens the
// named file through that driver, and returns a new descriptor id.
func Open(p string, modeStr string) (int, error) {
	root, err := path.Parse(p)
	if err != nil {
		return 0, kerr.Wrap("fs.Open", kerr.InvalidArgument, err)
	}

	d := disk.ByUID(root.DriveNo)
	if d == nil {
		return 0, kerr.New("fs.Open", kerr.NotFound)
	}

	mode, err := ModeFromString(modeStr)
	if err != nil {
		return 0, err
	}

	drv, err := ResolveDisk(d)
	if err != nil {
		return 0, err
	}

	handle, err := drv.Open(d, root.Parts, mode)
	if err != nil {
		return 0, kerr.Wrap("fs.Open", kerr.IO, err)
	}

	desc, err := newDescriptor()
	if err != nil {
		return 0, err
	}
	desc.driver = drv
	desc.disk = d
	desc.handle = handle
	return desc.id, nil
}

// Read reads into buf through the file system driver bound to fd.
func Read(fd int, buf []byte) (int, error) {
	desc := descriptorByID(fd)
	if desc == nil || desc.handle == nil {
		return 0, kerr.New("fs.Read", kerr.BadFD)
	}
	return desc.handle.Read(buf)
}

// Seek repositions fd.
func Seek(fd int, offset int32, whence SeekMode) error {
	desc := descriptorByID(fd)
	if desc == nil || desc.handle == nil {
		return kerr.New("fs.Seek", kerr.BadFD)
	}
	return desc.handle.Seek(offset, whence)
}

// Stat reports fd's file state.
func Stat(fd int) (State, error) {
	desc := descriptorByID(fd)
	if desc == nil || desc.handle == nil {
		return State{}, kerr.New("fs.Stat", kerr.BadFD)
	}
	return desc.handle.Stat()
}

// Close releases fd's slot and underlying handle.
func Close(fd int) error {
	desc := descriptorByID(fd)
	if desc == nil {
		return kerr.New("fs.Close", kerr.BadFD)
	}
	var err error
	if desc.handle != nil {
		err = desc.handle.Close()
	}
	descriptors[fd-1] = nil
	return err
}
