package fat16

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"peachkernel/internal/disk"
)

// buildImage assembles a minimal FAT16 disk image: one reserved (boot)
// sector, a one-sector FAT, a one-sector root directory holding a single
// file, and two data clusters holding that file's content.
func buildImage(t *testing.T, content []byte) [][]byte {
	t.Helper()
	const sectorSize = 512

	sectors := make([][]byte, 5)
	for i := range sectors {
		sectors[i] = make([]byte, sectorSize)
	}

	boot := sectors[0]
	binary.LittleEndian.PutUint16(boot[11:13], sectorSize) // bytes per sector
	boot[13] = 1                                            // sectors per cluster
	binary.LittleEndian.PutUint16(boot[14:16], 1)            // reserved sector count
	boot[16] = 1                                             // num FATs
	binary.LittleEndian.PutUint16(boot[17:19], 16)            // root entry count
	binary.LittleEndian.PutUint16(boot[22:24], 1)             // FAT size 16
	boot[extendedSigOffset] = extendedSigExpected

	fat := sectors[1]
	binary.LittleEndian.PutUint16(fat[2*2:2*2+2], 3)      // cluster 2 -> cluster 3
	binary.LittleEndian.PutUint16(fat[3*2:3*2+2], 0xFFFF) // cluster 3 -> EOF

	root := sectors[2]
	entry := root[0:32]
	copy(entry[0:8], []byte("HELLO   "))
	copy(entry[8:11], []byte("TXT"))
	entry[11] = 0x20 // archive attribute, regular file
	binary.LittleEndian.PutUint16(entry[26:28], 2)
	binary.LittleEndian.PutUint32(entry[28:32], uint32(len(content)))

	copy(sectors[3], content[:sectorSize])
	copy(sectors[4], content[sectorSize:])

	return sectors
}

type imageDevice struct {
	sectors [][]byte
}

func (d *imageDevice) ReadSectors(lba, count uint32, buf []byte) error {
	for i := uint32(0); i < count; i++ {
		copy(buf[i*512:(i+1)*512], d.sectors[lba+i])
	}
	return nil
}

func resolveTestFS(t *testing.T, content []byte) (*disk.Disk, *FileSystem) {
	t.Helper()
	sectors := buildImage(t, content)
	dev := &imageDevice{sectors: sectors}
	d, err := disk.Register(0, dev, uint32(len(sectors)))
	require.NoError(t, err)

	fs, err := Resolve(d)
	require.NoError(t, err)
	return d, fs
}

func TestResolveRejectsMissingSignature(t *testing.T) {
	sectors := buildImage(t, make([]byte, 700))
	sectors[0][extendedSigOffset] = 0x00
	dev := &imageDevice{sectors: sectors}
	d, err := disk.Register(0, dev, uint32(len(sectors)))
	require.NoError(t, err)

	_, err = Resolve(d)
	require.Error(t, err)
}

func TestLookupAndReadFile(t *testing.T) {
	content := bytes.Repeat([]byte("x"), 512)
	content = append(content, bytes.Repeat([]byte("y"), 188)...)

	_, fs := resolveTestFS(t, content)

	entry, typ, err := fs.Lookup([]string{"HELLO.TXT"})
	require.NoError(t, err)
	require.Equal(t, EntryFile, typ)
	require.EqualValues(t, len(content), entry.FileSize())

	buf := make([]byte, len(content))
	require.NoError(t, fs.ReadAt(entry, 0, buf))
	require.Equal(t, content, buf)
}

func TestLookupIsCaseInsensitive(t *testing.T) {
	content := make([]byte, 700)
	_, fs := resolveTestFS(t, content)

	_, _, err := fs.Lookup([]string{"hello.txt"})
	require.NoError(t, err)
}

func TestLookupMissingFile(t *testing.T) {
	content := make([]byte, 700)
	_, fs := resolveTestFS(t, content)

	_, _, err := fs.Lookup([]string{"NOPE.TXT"})
	require.Error(t, err)
}

func TestFullNameOmitsDotWithNoExtension(t *testing.T) {
	var e DirEntry
	copy(e.raw[0:8], []byte("README  "))
	copy(e.raw[8:11], []byte("   "))
	require.Equal(t, "README", e.FullName())
}
