package mrc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// headerSize is the fixed MRC2014 main header length in bytes.
const headerSize = 1024

// Header carries the subset of the MRC2014 main header the pipeline consumes:
// image dimensions, the sampling grid, and the cell dimensions the voxel size
// derives from.
type Header struct {
	NX   int32
	NY   int32
	NZ   int32
	Mode int32
	MX   int32
	MY   int32
	MZ   int32
	// CellA holds the unit cell dimensions in angstroms.
	CellA [3]float32
}

// ReadHeader reads and validates the main header of an MRC volume.
func ReadHeader(path string) (*Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mrc: %w", err)
	}
	defer f.Close()

	buf := make([]byte, headerSize)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, fmt.Errorf("read mrc header: %w", err)
	}
	if string(buf[208:212]) != "MAP " {
		return nil, fmt.Errorf("%s is not an MRC file (missing MAP stamp)", path)
	}

	readInt := func(offset int) int32 {
		return int32(binary.LittleEndian.Uint32(buf[offset:]))
	}
	readFloat := func(offset int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(buf[offset:]))
	}

	header := &Header{
		NX:   readInt(0),
		NY:   readInt(4),
		NZ:   readInt(8),
		Mode: readInt(12),
		MX:   readInt(28),
		MY:   readInt(32),
		MZ:   readInt(36),
		CellA: [3]float32{
			readFloat(40),
			readFloat(44),
			readFloat(48),
		},
	}
	if header.NX <= 0 || header.NY <= 0 || header.NZ <= 0 {
		return nil, fmt.Errorf("mrc header has invalid dimensions %dx%dx%d", header.NX, header.NY, header.NZ)
	}
	return header, nil
}

// VoxelSize derives the sampling in angstroms per voxel. The size is only
// accepted when all three axes agree after rounding to two decimals;
// anisotropic volumes return an error.
func (h *Header) VoxelSize() (float64, error) {
	if h.MX <= 0 || h.MY <= 0 || h.MZ <= 0 {
		return 0, errors.New("mrc header has no sampling grid")
	}
	x := round2(float64(h.CellA[0]) / float64(h.MX))
	y := round2(float64(h.CellA[1]) / float64(h.MY))
	z := round2(float64(h.CellA[2]) / float64(h.MZ))
	if x != y || y != z {
		return 0, fmt.Errorf("voxel size differs between axes: %.2f %.2f %.2f", x, y, z)
	}
	return x, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
