package fat16driver

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"peachkernel/internal/disk"
	"peachkernel/internal/fs"
	"peachkernel/internal/kerr"
)

type imageDevice struct {
	sectors [][]byte
}

func (d *imageDevice) ReadSectors(lba, count uint32, buf []byte) error {
	for i := uint32(0); i < count; i++ {
		copy(buf[i*512:(i+1)*512], d.sectors[lba+i])
	}
	return nil
}

func buildImage(t *testing.T, content []byte) [][]byte {
	t.Helper()
	const sectorSize = 512

	sectors := make([][]byte, 5)
	for i := range sectors {
		sectors[i] = make([]byte, sectorSize)
	}

	boot := sectors[0]
	binary.LittleEndian.PutUint16(boot[11:13], sectorSize)
	boot[13] = 1
	binary.LittleEndian.PutUint16(boot[14:16], 1)
	boot[16] = 1
	binary.LittleEndian.PutUint16(boot[17:19], 16)
	binary.LittleEndian.PutUint16(boot[22:24], 1)
	boot[38] = 0x29

	fat := sectors[1]
	binary.LittleEndian.PutUint16(fat[2*2:2*2+2], 3)
	binary.LittleEndian.PutUint16(fat[3*2:3*2+2], 0xFFFF)

	root := sectors[2]
	entry := root[0:32]
	copy(entry[0:8], []byte("HELLO   "))
	copy(entry[8:11], []byte("TXT"))
	entry[11] = 0x20
	binary.LittleEndian.PutUint16(entry[26:28], 2)
	binary.LittleEndian.PutUint32(entry[28:32], uint32(len(content)))

	copy(sectors[3], content[:sectorSize])
	copy(sectors[4], content[sectorSize:])

	return sectors
}

func TestDriverOpenReadSeekStat(t *testing.T) {
	content := bytes.Repeat([]byte("a"), 512)
	content = append(content, bytes.Repeat([]byte("b"), 188)...)

	sectors := buildImage(t, content)
	d, err := disk.Register(0, &imageDevice{sectors: sectors}, uint32(len(sectors)))
	require.NoError(t, err)

	drv := New()
	require.Equal(t, "FAT16", drv.Name())

	ok, err := drv.Resolve(d)
	require.NoError(t, err)
	require.True(t, ok)

	h, err := drv.Open(d, []string{"HELLO.TXT"}, fs.ModeRead)
	require.NoError(t, err)
	defer h.Close()

	state, err := h.Stat()
	require.NoError(t, err)
	require.True(t, state.ReadOnly)
	require.EqualValues(t, len(content), state.FileSize)

	buf := make([]byte, 300)
	n, err := h.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 300, n)
	require.Equal(t, content[:300], buf)

	require.NoError(t, h.Seek(0, fs.SeekSet))
	full := make([]byte, len(content))
	n, err = h.Read(full)
	require.NoError(t, err)
	require.Equal(t, len(content), n)
	require.Equal(t, content, full)

	n, err = h.Read(buf)
	require.True(t, kerr.Is(err, kerr.NoData))
	require.Equal(t, 0, n)
}

func TestDriverOpenRejectsWrite(t *testing.T) {
	sectors := buildImage(t, make([]byte, 700))
	d, err := disk.Register(0, &imageDevice{sectors: sectors}, uint32(len(sectors)))
	require.NoError(t, err)

	drv := New()
	ok, err := drv.Resolve(d)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = drv.Open(d, []string{"HELLO.TXT"}, fs.ModeWrite)
	require.Error(t, err)
}

func TestDriverResolveRejectsForeignVolume(t *testing.T) {
	sectors := buildImage(t, make([]byte, 700))
	sectors[0][38] = 0x00
	d, err := disk.Register(0, &imageDevice{sectors: sectors}, uint32(len(sectors)))
	require.NoError(t, err)

	drv := New()
	ok, err := drv.Resolve(d)
	require.NoError(t, err)
	require.False(t, ok)
}
