// Package disk implements the disk registry and LBA-28 ATA PIO access that
// the original kernel's disk.c provides, with the actual port I/O isolated
// behind a BlockDevice interface so this package and everything built on it
// (the sector streamer, the FAT16 reader) can run against an in-memory
// device in tests. internal/arch/x86 supplies the real ATA implementation
// used by cmd/kernel.
package disk

import (
	"peachkernel/internal/config"
	"peachkernel/internal/kerr"
)

// BlockDevice reads fixed-size sectors by LBA. Real ATA PIO access lives in
// internal/arch/x86; everything above this interface is hardware-agnostic.
type BlockDevice interface {
	ReadSectors(lba, count uint32, buf []byte) error
}

const (
	TypeATA uint8 = iota
)

// Partition names a contiguous sector range within a disk.
type Partition struct {
	Name string
	From uint8
	Size uint8
}

// Disk is one registered block device, addressed by a small integer uid the
// same way the original kernel's disk_t is threaded through by uid rather
// than by pointer.
type Disk struct {
	UID        uint8
	Type       uint8
	SectorSize uint32
	Limit      uint32
	Device     BlockDevice

	partitions []Partition

	// FS is set once a file system has claimed this disk via its own
	// Resolve pass; nil means unresolved. It is stored as an opaque handle
	// (the concrete type lives in internal/fat16) to keep this package free
	// of a dependency on any particular file system implementation, the
	// same inversion the original's disk_t/file_system_t pairing gives for
	// free by storing a bare function-pointer struct.
	FS any

	// FSDriver caches the fs.Driver that claimed this disk, so repeated
	// opens don't re-run every driver's Resolve. Opaque for the same reason
	// as FS.
	FSDriver any
}

var registry [config.DiskMaxDisks]*Disk

// Register adds dev to the disk registry under uid, matching the original's
// disk_init loop that populates disk_t slots, except here the caller
// supplies the concrete BlockDevice instead of hard-coding ATA.
func Register(uid uint8, dev BlockDevice, limitSectors uint32) (*Disk, error) {
	if uid >= config.DiskMaxDisks {
		return nil, kerr.New("disk.Register", kerr.InvalidArgument)
	}
	d := &Disk{
		UID:        uid,
		Type:       TypeATA,
		SectorSize: config.DiskSectorSize,
		Limit:      limitSectors,
		Device:     dev,
	}
	registry[uid] = d
	return d, nil
}

// ByUID finds a previously registered disk.
func ByUID(uid uint8) *Disk {
	if int(uid) >= len(registry) {
		return nil
	}
	return registry[uid]
}

// ReadLBA reads count sectors starting at lba into buf, rejecting requests
// larger than the disk's advertised sector limit exactly as disk_read_lba
// does.
func (d *Disk) ReadLBA(lba, count uint32, buf []byte) error {
	if count > d.Limit {
		return kerr.New("disk.ReadLBA", kerr.InvalidArgument)
	}
	if err := d.Device.ReadSectors(lba, count, buf); err != nil {
		return kerr.Wrap("disk.ReadLBA", kerr.IO, err)
	}
	return nil
}

// AddPartition records a named partition on the disk. Partition names must
// be unique within a disk, matching disk_add_partition.
func (d *Disk) AddPartition(name string, from, size uint8) error {
	for _, p := range d.partitions {
		if p.Name == name {
			return kerr.New("disk.AddPartition", kerr.InvalidArgument)
		}
	}
	d.partitions = append(d.partitions, Partition{Name: name, From: from, Size: size})
	return nil
}

// Partitions returns the partitions registered on this disk.
func (d *Disk) Partitions() []Partition {
	return d.partitions
}
