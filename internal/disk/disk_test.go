package disk

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type memDevice struct {
	sectors [][]byte
}

func newMemDevice(numSectors, sectorSize int) *memDevice {
	d := &memDevice{sectors: make([][]byte, numSectors)}
	for i := range d.sectors {
		d.sectors[i] = make([]byte, sectorSize)
	}
	return d
}

func (d *memDevice) ReadSectors(lba, count uint32, buf []byte) error {
	sectorSize := len(d.sectors[0])
	for i := uint32(0); i < count; i++ {
		copy(buf[int(i)*sectorSize:(int(i)+1)*sectorSize], d.sectors[lba+i])
	}
	return nil
}

func TestRegisterAndByUID(t *testing.T) {
	dev := newMemDevice(4, 512)
	d, err := Register(0, dev, 4)
	require.NoError(t, err)
	require.Same(t, d, ByUID(0))
}

func TestReadLBARejectsOverLimit(t *testing.T) {
	dev := newMemDevice(4, 512)
	d, err := Register(0, dev, 1)
	require.NoError(t, err)

	buf := make([]byte, 512*2)
	err = d.ReadLBA(0, 2, buf)
	require.Error(t, err)
}

func TestAddPartitionRejectsDuplicateName(t *testing.T) {
	dev := newMemDevice(4, 512)
	d, err := Register(0, dev, 4)
	require.NoError(t, err)

	require.NoError(t, d.AddPartition("boot", 0, 2))
	require.Error(t, d.AddPartition("boot", 2, 2))
	require.Len(t, d.Partitions(), 1)
}
