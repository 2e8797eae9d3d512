package testsupport

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	const chunkSize = 32 * 1024
	buf := make([]byte, chunkSize)
	for i := range buf {
		buf[i] = 0x42
	}

	remaining := size
	for remaining > 0 {
		toWrite := int64(chunkSize)
		if remaining < toWrite {
			toWrite = remaining
		}
		if _, err := f.Write(buf[:toWrite]); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		remaining -= toWrite
	}
}

// WriteMRC writes a header-only MRC volume with the given dimensions and an
// isotropic voxel size in angstroms. The grid size matches the image size so
// readers derive the voxel size as cell/grid.
func WriteMRC(t testing.TB, path string, nx, ny, nz int32, voxel float64) {
	t.Helper()

	header := make([]byte, 1024)
	put := func(offset int, value int32) {
		binary.LittleEndian.PutUint32(header[offset:], uint32(value))
	}
	putf := func(offset int, value float32) {
		binary.LittleEndian.PutUint32(header[offset:], math.Float32bits(value))
	}

	put(0, nx)
	put(4, ny)
	put(8, nz)
	put(12, 2) // mode 2: 32-bit float voxels
	put(28, nx)
	put(32, ny)
	put(36, nz)
	putf(40, float32(voxel*float64(nx)))
	putf(44, float32(voxel*float64(ny)))
	putf(48, float32(voxel*float64(nz)))
	putf(52, 90)
	putf(56, 90)
	putf(60, 90)
	copy(header[208:], "MAP ")
	header[212] = 0x44
	header[213] = 0x44

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, header, 0o644); err != nil {
		t.Fatalf("write mrc %s: %v", path, err)
	}
}
