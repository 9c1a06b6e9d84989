package disk

import "peachkernel/internal/kerr"

// Streamer lets callers read an arbitrary byte range from a disk without
// thinking in sectors themselves; underneath it still reads whole sectors
// through a one-sector scratch buffer, exactly as disk_streamer_read does,
// to keep its own stack usage flat regardless of how much the caller asks
// for.
type Streamer struct {
	disk *Disk
	pos  uint32
}

// NewStreamer creates a streamer bound to the disk registered at uid.
func NewStreamer(uid uint8) (*Streamer, error) {
	d := ByUID(uid)
	if d == nil {
		return nil, kerr.New("disk.NewStreamer", kerr.NotFound)
	}
	return &Streamer{disk: d}, nil
}

// Seek moves the streamer's byte position. Subsequent reads start here.
func (s *Streamer) Seek(pos uint32) error {
	s.pos = pos
	return nil
}

// Read fills buf by reading sector by sector from the streamer's current
// position, advancing the position by len(buf).
func (s *Streamer) Read(buf []byte) error {
	if len(buf) == 0 {
		return kerr.New("disk.Streamer.Read", kerr.InvalidArgument)
	}

	sectorSize := s.disk.SectorSize
	startLBA := s.pos / sectorSize
	offset := s.pos % sectorSize
	sector := make([]byte, sectorSize)

	read := uint32(0)
	total := uint32(len(buf))
	for read < total {
		if err := s.disk.ReadLBA(startLBA, 1, sector); err != nil {
			return kerr.Wrap("disk.Streamer.Read", kerr.IO, err)
		}

		toCopy := sectorSize - offset
		if toCopy > total-read {
			toCopy = total - read
		}

		copy(buf[read:read+toCopy], sector[offset:offset+toCopy])
		read += toCopy
		s.pos += toCopy

		if read == total {
			break
		}
		startLBA++
		offset = 0
	}

	return nil
}
