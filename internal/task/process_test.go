package task

import (
	"bytes"
	"encoding/binary"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"peachkernel/internal/disk"
	"peachkernel/internal/fs"
	"peachkernel/internal/fs/fat16driver"
	"peachkernel/internal/paging"
)

type imageDevice struct{ sectors [][]byte }

func (d *imageDevice) ReadSectors(lba, count uint32, buf []byte) error {
	for i := uint32(0); i < count; i++ {
		copy(buf[i*512:(i+1)*512], d.sectors[lba+i])
	}
	return nil
}

// buildImage assembles a one-sector-per-cluster FAT16 image holding a
// single file "PROG.BIN" with the given content, chaining as many data
// clusters as the content needs.
func buildImage(t *testing.T, content []byte) [][]byte {
	t.Helper()
	const sectorSize = 512
	dataClusters := (len(content) + sectorSize - 1) / sectorSize
	if dataClusters == 0 {
		dataClusters = 1
	}
	sectors := make([][]byte, 3+dataClusters)
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

	fatSector := sectors[1]
	for i := 0; i < dataClusters; i++ {
		cluster := 2 + i
		var next uint16
		if i == dataClusters-1 {
			next = 0xFFFF
		} else {
			next = uint16(cluster + 1)
		}
		binary.LittleEndian.PutUint16(fatSector[cluster*2:cluster*2+2], next)
	}

	root := sectors[2]
	entry := root[0:32]
	copy(entry[0:8], []byte("PROG    "))
	copy(entry[8:11], []byte("BIN"))
	entry[11] = 0x20
	binary.LittleEndian.PutUint16(entry[26:28], 2)
	binary.LittleEndian.PutUint32(entry[28:32], uint32(len(content)))

	for i := 0; i < dataClusters; i++ {
		start := i * sectorSize
		end := start + sectorSize
		if end > len(content) {
			end = len(content)
		}
		copy(sectors[3+i], content[start:end])
	}
	return sectors
}

func setupProcessFixture(t *testing.T, content []byte) *fakeAllocator {
	t.Helper()
	resetGlobals()
	for i := range processTable {
		processTable[i] = nil
	}

	sectors := buildImage(t, content)
	_, err := disk.Register(0, &imageDevice{sectors: sectors}, uint32(len(sectors)))
	require.NoError(t, err)

	fs.InsertDriver(fat16driver.New())

	alloc := &fakeAllocator{}
	SetKernelAllocator(alloc)

	prevLoad := paging.LoadDirectory
	t.Cleanup(func() { paging.LoadDirectory = prevLoad })
	paging.LoadDirectory = func(addr uintptr) {}

	return alloc
}

func TestLoadReadsBinaryAndMapsMemory(t *testing.T) {
	content := bytes.Repeat([]byte{0xAA}, 300)
	alloc := setupProcessFixture(t, content)

	proc, err := Load(alloc, "0:/PROG.BIN")
	require.NoError(t, err)
	require.EqualValues(t, 0, proc.PID)
	require.EqualValues(t, len(content), proc.FileSize)
	require.Equal(t, content, proc.FileBuffer)
	require.NotNil(t, proc.MainTask)
	require.Same(t, proc, proc.MainTask.Process)
	require.Same(t, proc, BySlot(0))
	require.Same(t, proc, GetCurrent())
}

func TestLoadIntoSlotRejectsOccupiedSlot(t *testing.T) {
	content := bytes.Repeat([]byte{0xBB}, 50)
	alloc := setupProcessFixture(t, content)

	_, err := LoadIntoSlot(alloc, "0:/PROG.BIN", 0)
	require.NoError(t, err)

	_, err = LoadIntoSlot(alloc, "0:/PROG.BIN", 0)
	require.Error(t, err)
}

func TestLoadMapsBinaryAtProgramVirtualAddress(t *testing.T) {
	content := bytes.Repeat([]byte{0xCC}, 4096)
	alloc := setupProcessFixture(t, content)

	proc, err := Load(alloc, "0:/PROG.BIN")
	require.NoError(t, err)

	entry := proc.MainTask.Chunk.GetPageEntry(0x400000)
	require.EqualValues(t, uint32(uintptr(unsafe.Pointer(&proc.FileBuffer[0])))|userChunkFlags, entry)
}
