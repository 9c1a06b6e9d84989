package paging

import "peachkernel/internal/bitfield"

// EntryFlags packs the lower 12 bits of an x86 page directory/table entry:
// hardware interprets these at a fixed address, so each named field here
// should build the exact bit layout the MMU expects.
type EntryFlags struct {
	Present       bool `bitfield:",1"`
	Writable      bool `bitfield:",1"`
	User          bool `bitfield:",1"`
	WriteThrough  bool `bitfield:",1"`
	CacheDisabled bool `bitfield:",1"`
	Accessed      bool `bitfield:",1"`
	Dirty         bool `bitfield:",1"`
	PageSizeFlag  bool `bitfield:",1"`
	Global        bool `bitfield:",1"`
	Avail         uint32 `bitfield:",3"`
}

// Pack returns the 12-bit flag word described by f, suitable for OR-ing
// with a page-aligned physical address to form an entry.
func (f EntryFlags) Pack() (uint32, error) {
	packed, err := bitfield.Pack(f, &bitfield.Config{NumBits: 12})
	if err != nil {
		return 0, err
	}
	return uint32(packed), nil
}

// Unpack decodes the lower 12 bits of an entry back into named flags.
func Unpack(entry uint32) EntryFlags {
	bits := entry & 0xFFF
	return EntryFlags{
		Present:       bits&(1<<0) != 0,
		Writable:      bits&(1<<1) != 0,
		User:          bits&(1<<2) != 0,
		WriteThrough:  bits&(1<<3) != 0,
		CacheDisabled: bits&(1<<4) != 0,
		Accessed:      bits&(1<<5) != 0,
		Dirty:         bits&(1<<6) != 0,
		PageSizeFlag:  bits&(1<<7) != 0,
		Global:        bits&(1<<8) != 0,
		Avail:         (bits >> 9) & 0x7,
	}
}

// Common flag combinations used when building a task's address space.
const (
	FlagPresent  uint32 = 1 << 0
	FlagWritable uint32 = 1 << 1
	FlagUser     uint32 = 1 << 2
)
