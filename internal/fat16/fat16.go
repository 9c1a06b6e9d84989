// Package fat16 implements a read-only FAT16 file system reader: BIOS
// Parameter Block parsing, root directory and subdirectory enumeration,
// 8.3 short names, and cluster-chain reads. Grounded file-for-file on the
// original kernel's fs/fat/fat16.c; this package never writes to a disk,
// matching the original (and an explicit design choice: write support is
// out of scope here).
package fat16

import (
	"encoding/binary"
	"strings"

	"peachkernel/internal/disk"
	"peachkernel/internal/kerr"
)

const (
	bootSectorSize      = 512
	directoryEntrySize  = 32
	fatEntrySize        = 2
	attrLongName        = 0x0F
	attrDirectory       = 0x10
	entryFree           = 0x00
	entryDeleted        = 0xE5
	extendedSigOffset   = 38
	extendedSigExpected = 0x29
)

// bpb is the parsed BIOS Parameter Block common to every FAT16 volume.
type bpb struct {
	bytesPerSector       uint16
	sectorsPerCluster    uint8
	reservedSectorCount  uint16
	numFATs              uint8
	rootEntryCount       uint16
	fatSize16            uint16
}

func parseBPB(sector []byte) bpb {
	return bpb{
		bytesPerSector:      binary.LittleEndian.Uint16(sector[11:13]),
		sectorsPerCluster:   sector[13],
		reservedSectorCount: binary.LittleEndian.Uint16(sector[14:16]),
		numFATs:             sector[16],
		rootEntryCount:      binary.LittleEndian.Uint16(sector[17:19]),
		fatSize16:           binary.LittleEndian.Uint16(sector[22:24]),
	}
}

// DirEntry is one 32-byte FAT16 directory entry.
type DirEntry struct {
	raw [directoryEntrySize]byte
}

func (e *DirEntry) nameField() [8]byte { var n [8]byte; copy(n[:], e.raw[0:8]); return n }
func (e *DirEntry) extField() [3]byte  { var n [3]byte; copy(n[:], e.raw[8:11]); return n }

// Attributes returns the raw FAT attribute byte.
func (e *DirEntry) Attributes() uint8 { return e.raw[11] }

// IsDirectory reports whether this entry names a directory.
func (e *DirEntry) IsDirectory() bool { return e.Attributes()&attrDirectory != 0 }

// IsLongNameEntry reports whether this entry is an LFN continuation rather
// than a normal short-name entry.
func (e *DirEntry) IsLongNameEntry() bool { return e.Attributes()&attrLongName == attrLongName }

// FirstCluster returns the entry's starting cluster number.
func (e *DirEntry) FirstCluster() uint16 { return binary.LittleEndian.Uint16(e.raw[26:28]) }

// FileSize returns the entry's file size in bytes.
func (e *DirEntry) FileSize() uint32 { return binary.LittleEndian.Uint32(e.raw[28:32]) }

// FullName reconstructs the "NAME.EXT" short name from the 8.3 fields,
// trimming trailing spaces and omitting the dot when there's no extension,
// matching fat16_get_full_name_from_entry.
func (e *DirEntry) FullName() string {
	name := e.nameField()
	ext := e.extField()

	var b strings.Builder
	for i := 0; i < 8 && name[i] != ' '; i++ {
		b.WriteByte(name[i])
	}
	if ext[0] != ' ' {
		b.WriteByte('.')
		for i := 0; i < 3 && ext[i] != ' '; i++ {
			b.WriteByte(ext[i])
		}
	}
	return b.String()
}

// directory is an in-memory snapshot of a FAT16 directory's in-use entries.
type directory struct {
	entries []DirEntry
}

// FileSystem is a resolved FAT16 volume bound to a disk.
type FileSystem struct {
	d    *disk.Disk
	bpb  bpb
	root directory

	clusterStreamer   *disk.Streamer
	fatStreamer       *disk.Streamer
	directoryStreamer *disk.Streamer

	firstDataSector uint32
}

// Resolve probes disk d for a FAT16 volume. On success it stores the
// resulting *FileSystem on d.FS and returns it; on failure d is left
// untouched, matching fat16_resolve's all-or-nothing contract.
func Resolve(d *disk.Disk) (*FileSystem, error) {
	boot, err := disk.NewStreamer(d.UID)
	if err != nil {
		return nil, kerr.Wrap("fat16.Resolve", kerr.IO, err)
	}

	sector := make([]byte, bootSectorSize)
	if err := boot.Read(sector); err != nil {
		return nil, kerr.Wrap("fat16.Resolve", kerr.IO, err)
	}

	if sector[extendedSigOffset] != extendedSigExpected {
		return nil, kerr.New("fat16.Resolve", kerr.NotFound)
	}

	fs := &FileSystem{d: d, bpb: parseBPB(sector)}

	fs.clusterStreamer, err = disk.NewStreamer(d.UID)
	if err != nil {
		return nil, kerr.Wrap("fat16.Resolve", kerr.OutOfMemory, err)
	}
	fs.fatStreamer, err = disk.NewStreamer(d.UID)
	if err != nil {
		return nil, kerr.Wrap("fat16.Resolve", kerr.OutOfMemory, err)
	}
	fs.directoryStreamer, err = disk.NewStreamer(d.UID)
	if err != nil {
		return nil, kerr.Wrap("fat16.Resolve", kerr.OutOfMemory, err)
	}

	rootDirSector := uint32(fs.bpb.reservedSectorCount) + uint32(fs.bpb.numFATs)*uint32(fs.bpb.fatSize16)
	rootDirBytes := uint32(fs.bpb.rootEntryCount) * directoryEntrySize
	rootDirSectors := (rootDirBytes + d.SectorSize - 1) / d.SectorSize
	fs.firstDataSector = rootDirSector + rootDirSectors

	entries, err := fs.readDirectoryEntries(rootDirSector*d.SectorSize, fs.bpb.rootEntryCount)
	if err != nil {
		return nil, err
	}
	fs.root = directory{entries: entries}

	d.FS = fs
	return fs, nil
}

// readDirectoryEntries reads up to maxEntries 32-byte entries starting at
// byteStart, stopping at the first free (0x00) marker and skipping deleted
// (0xE5) entries, matching fat16_count_in_use_entries/fat16_get_root_directory.
func (fs *FileSystem) readDirectoryEntries(byteStart uint32, maxEntries uint16) ([]DirEntry, error) {
	if err := fs.directoryStreamer.Seek(byteStart); err != nil {
		return nil, kerr.Wrap("fat16.readDirectoryEntries", kerr.IO, err)
	}

	var entries []DirEntry
	buf := make([]byte, directoryEntrySize)
	for i := uint16(0); i < maxEntries; i++ {
		if err := fs.directoryStreamer.Read(buf); err != nil {
			return nil, kerr.Wrap("fat16.readDirectoryEntries", kerr.IO, err)
		}
		if buf[0] == entryFree {
			break
		}
		if buf[0] == entryDeleted {
			continue
		}
		var e DirEntry
		copy(e.raw[:], buf)
		entries = append(entries, e)
	}
	return entries, nil
}

// clusterStartSector returns the first sector of a data cluster.
func (fs *FileSystem) clusterStartSector(cluster uint16) (uint32, error) {
	if cluster < 2 {
		return 0, kerr.New("fat16.clusterStartSector", kerr.InvalidArgument)
	}
	offset := uint32(cluster-2) * uint32(fs.bpb.sectorsPerCluster)
	return fs.firstDataSector + offset, nil
}

// fatEntry reads the FAT16 table entry for cluster.
func (fs *FileSystem) fatEntry(cluster uint16) (uint16, error) {
	fatStart := uint32(fs.bpb.reservedSectorCount) * fs.d.SectorSize
	entryPos := fatStart + uint32(cluster)*fatEntrySize

	if err := fs.fatStreamer.Seek(entryPos); err != nil {
		return 0, kerr.Wrap("fat16.fatEntry", kerr.IO, err)
	}
	buf := make([]byte, fatEntrySize)
	if err := fs.fatStreamer.Read(buf); err != nil {
		return 0, kerr.Wrap("fat16.fatEntry", kerr.IO, err)
	}
	return binary.LittleEndian.Uint16(buf), nil
}

func (fs *FileSystem) clusterSizeBytes() uint32 {
	return uint32(fs.bpb.sectorsPerCluster) * fs.d.SectorSize
}

// clusterAtOffset walks the cluster chain starting at startCluster to find
// the cluster that contains byte offset, matching
// fat16_get_cluster_from_offset.
func (fs *FileSystem) clusterAtOffset(startCluster uint16, offset uint32) (uint16, error) {
	clusterSize := fs.clusterSizeBytes()
	current := startCluster
	toAdvance := offset / clusterSize

	for i := uint32(0); i < toAdvance; i++ {
		entry, err := fs.fatEntry(current)
		if err != nil {
			return 0, err
		}
		if entry >= 0xFFF8 {
			return 0, kerr.New("fat16.clusterAtOffset", kerr.NoData)
		}
		if entry == 0x0000 || entry == 0xFFF7 {
			return 0, kerr.New("fat16.clusterAtOffset", kerr.IO)
		}
		current = entry
	}
	return current, nil
}

// readClusterChain reads len(buf) bytes starting at offsetFromStart within
// the cluster chain beginning at startCluster, matching
// fat16_read_bytes_in_cluster_chain.
func (fs *FileSystem) readClusterChain(startCluster uint16, offsetFromStart uint32, buf []byte) error {
	offset := offsetFromStart
	clusterSize := fs.clusterSizeBytes()
	remaining := uint32(len(buf))
	written := uint32(0)

	for remaining > 0 {
		current, err := fs.clusterAtOffset(startCluster, offset)
		if err != nil {
			return err
		}

		startSector, err := fs.clusterStartSector(current)
		if err != nil {
			return err
		}
		inCluster := offset % clusterSize
		pos := startSector*fs.d.SectorSize + inCluster

		if err := fs.clusterStreamer.Seek(pos); err != nil {
			return kerr.Wrap("fat16.readClusterChain", kerr.IO, err)
		}

		toRead := clusterSize - inCluster
		if toRead > remaining {
			toRead = remaining
		}
		if err := fs.clusterStreamer.Read(buf[written : written+toRead]); err != nil {
			return kerr.Wrap("fat16.readClusterChain", kerr.IO, err)
		}

		written += toRead
		remaining -= toRead
		offset += toRead
	}
	return nil
}

// findInDirectory returns the entry named name (case-insensitive) within
// dir, ignoring long-name continuation entries.
func findInDirectory(dir directory, name string) (*DirEntry, error) {
	for i := range dir.entries {
		e := &dir.entries[i]
		if e.IsLongNameEntry() {
			continue
		}
		if strings.EqualFold(e.FullName(), name) {
			return e, nil
		}
	}
	return nil, kerr.New("fat16.findInDirectory", kerr.NotFound)
}

// loadDirectory reads the full entry set of a subdirectory named by entry.
func (fs *FileSystem) loadDirectory(entry *DirEntry) (directory, error) {
	if !entry.IsDirectory() {
		return directory{}, kerr.New("fat16.loadDirectory", kerr.NotDirectory)
	}
	first := entry.FirstCluster()
	if first < 2 {
		return directory{}, kerr.New("fat16.loadDirectory", kerr.InvalidArgument)
	}

	// A subdirectory's size isn't tracked directly; read cluster by cluster
	// until a free (0x00) marker or chain end, mirroring the root directory
	// read but driven by the cluster chain rather than a fixed entry count.
	var entries []DirEntry
	clusterSize := fs.clusterSizeBytes()
	maxEntriesPerCluster := clusterSize / directoryEntrySize

	cluster := first
	offset := uint32(0)
	buf := make([]byte, directoryEntrySize)
outer:
	for {
		for i := uint32(0); i < maxEntriesPerCluster; i++ {
			if err := fs.readClusterChain(first, offset, buf); err != nil {
				return directory{}, err
			}
			offset += directoryEntrySize

			if buf[0] == entryFree {
				break outer
			}
			if buf[0] == entryDeleted {
				continue
			}
			var e DirEntry
			copy(e.raw[:], buf)
			entries = append(entries, e)
		}

		next, err := fs.fatEntry(cluster)
		if err != nil {
			return directory{}, err
		}
		if next >= 0xFFF8 {
			break
		}
		cluster = next
	}

	return directory{entries: entries}, nil
}

// EntryType distinguishes what a path resolved to.
type EntryType int

const (
	EntryFile EntryType = iota
	EntryDir
)

// Lookup resolves parts (path components after the drive prefix) against
// this volume, walking into subdirectories as needed, matching
// fat16_get_file_entry_from_path.
func (fs *FileSystem) Lookup(parts []string) (*DirEntry, EntryType, error) {
	if len(parts) == 0 {
		return nil, 0, kerr.New("fat16.Lookup", kerr.InvalidArgument)
	}

	dir := fs.root
	var entry *DirEntry
	var err error

	for i, part := range parts {
		entry, err = findInDirectory(dir, part)
		if err != nil {
			return nil, 0, err
		}

		last := i == len(parts)-1
		if last {
			if entry.IsDirectory() {
				return entry, EntryDir, nil
			}
			return entry, EntryFile, nil
		}

		if !entry.IsDirectory() {
			return nil, 0, kerr.New("fat16.Lookup", kerr.NotDirectory)
		}
		dir, err = fs.loadDirectory(entry)
		if err != nil {
			return nil, 0, err
		}
	}

	return entry, EntryFile, nil
}

// ReadAt reads len(buf) bytes from entry's cluster chain starting at
// byte offset off.
func (fs *FileSystem) ReadAt(entry *DirEntry, off uint32, buf []byte) error {
	return fs.readClusterChain(entry.FirstCluster(), off, buf)
}
