// Command fsmap is a host-side developer aid: given a raw FAT16 disk image
// and, optionally, a physical heap block-table dump, it renders a PNG
// occupancy map of both. It never runs inside the kernel image; it exists
// so a developer can eyeball cluster fragmentation or heap pressure without
// a debugger attached to the emulator.
//
// Grounded on the teacher's own host-side visualizer, src/mazboot/golang/
// main/gg_circle_qemu.go, which draws into a gg.Context/image.RGBA
// backbuffer the same way: no GPU or framebuffer underneath, just a plain
// host PNG writer.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"image/color"
	"os"

	"github.com/fogleman/gg"
)

const (
	bootSectorSize     = 512
	extendedSigOffset  = 38
	cellSize           = 6
	gridCols           = 64
	marginPx           = 20
	titleHeightPx      = 28
	heapEntryTypeMask  = 0x0F
	heapEntryTypeUsed  = 0x01
)

type bpb struct {
	bytesPerSector      uint16
	sectorsPerCluster   uint8
	reservedSectorCount uint16
	numFATs             uint8
	rootEntryCount      uint16
	fatSize16           uint16
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

// readFATEntries reads the first FAT table's 16-bit entries out of a raw
// disk image, matching the offsets fat16.Resolve computes from the BPB
// (reserved sectors, then numFATs copies of fatSize16 sectors each).
func readFATEntries(img []byte, b bpb) ([]uint16, error) {
	fatOffset := int(b.reservedSectorCount) * int(b.bytesPerSector)
	fatBytes := int(b.fatSize16) * int(b.bytesPerSector)
	if fatOffset+fatBytes > len(img) {
		return nil, fmt.Errorf("fsmap: FAT table extends past image (offset %d, size %d, image %d bytes)", fatOffset, fatBytes, len(img))
	}
	raw := img[fatOffset : fatOffset+fatBytes]
	entries := make([]uint16, len(raw)/2)
	for i := range entries {
		entries[i] = binary.LittleEndian.Uint16(raw[i*2 : i*2+2])
	}
	return entries, nil
}

// clusterOccupancy reports, per cluster, whether its FAT entry is non-zero
// (allocated to some file's chain) or free.
func clusterOccupancy(entries []uint16) []bool {
	occ := make([]bool, len(entries))
	for i, e := range entries {
		occ[i] = e != 0x0000
	}
	return occ
}

// heapOccupancy decodes a raw kernel heap block-table dump (one byte per
// block, entryTypeUsed/entryTypeFree in the low nibble, matching
// internal/heap's on-disk-table layout) into a used/free slice.
func heapOccupancy(table []byte) []bool {
	occ := make([]bool, len(table))
	for i, b := range table {
		occ[i] = b&heapEntryTypeMask == heapEntryTypeUsed
	}
	return occ
}

func drawGrid(dc *gg.Context, top int, label string, occupied []bool) int {
	dc.SetRGB(0, 0, 0)
	dc.DrawString(label, marginPx, float64(top+titleHeightPx-8))

	rows := (len(occupied) + gridCols - 1) / gridCols
	for i, used := range occupied {
		row := i / gridCols
		col := i % gridCols
		x := float64(marginPx + col*cellSize)
		y := float64(top + titleHeightPx + row*cellSize)
		if used {
			dc.SetColor(color.RGBA{R: 0xC0, G: 0x30, B: 0x30, A: 0xFF})
		} else {
			dc.SetColor(color.RGBA{R: 0xE0, G: 0xE0, B: 0xE0, A: 0xFF})
		}
		dc.DrawRectangle(x, y, cellSize-1, cellSize-1)
		dc.Fill()
	}
	return top + titleHeightPx + rows*cellSize + marginPx
}

func main() {
	imagePath := flag.String("image", "", "path to a raw FAT16 disk image (required)")
	heapPath := flag.String("heap", "", "path to a raw kernel heap block-table dump (optional)")
	outPath := flag.String("out", "fsmap.png", "output PNG path")
	flag.Parse()

	if *imagePath == "" {
		fmt.Fprintln(os.Stderr, "fsmap: -image is required")
		os.Exit(1)
	}

	img, err := os.ReadFile(*imagePath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fsmap:", err)
		os.Exit(1)
	}
	if len(img) < bootSectorSize {
		fmt.Fprintln(os.Stderr, "fsmap: image too small to hold a boot sector")
		os.Exit(1)
	}
	if img[extendedSigOffset] != 0x29 {
		fmt.Fprintln(os.Stderr, "fsmap: extended boot signature not found, not a FAT16 image")
		os.Exit(1)
	}

	b := parseBPB(img[:bootSectorSize])
	entries, err := readFATEntries(img, b)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	clusterOcc := clusterOccupancy(entries)

	var heapOcc []bool
	if *heapPath != "" {
		table, err := os.ReadFile(*heapPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "fsmap:", err)
			os.Exit(1)
		}
		heapOcc = heapOccupancy(table)
	}

	clusterRows := (len(clusterOcc) + gridCols - 1) / gridCols
	height := marginPx + titleHeightPx + clusterRows*cellSize + marginPx
	if heapOcc != nil {
		heapRows := (len(heapOcc) + gridCols - 1) / gridCols
		height += titleHeightPx + heapRows*cellSize + marginPx
	}
	width := marginPx*2 + gridCols*cellSize

	dc := gg.NewContext(width, height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	next := drawGrid(dc, marginPx, fmt.Sprintf("FAT clusters (%d total)", len(clusterOcc)), clusterOcc)
	if heapOcc != nil {
		drawGrid(dc, next, fmt.Sprintf("Heap blocks (%d total)", len(heapOcc)), heapOcc)
	}

	if err := dc.SavePNG(*outPath); err != nil {
		fmt.Fprintln(os.Stderr, "fsmap:", err)
		os.Exit(1)
	}
}
