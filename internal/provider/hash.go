package provider

import (
	"fmt"
	"io"

	"github.com/spf13/afero"
)

// movieHashChunkSize is the size of the block read from the start and end of the file.
const movieHashChunkSize = 64 * 1024

// MovieHash computes the OpenSubtitles movie hash of the file at path on fs.
// It returns the 16 hex digit hash and the file size.
func MovieHash(fs afero.Fs, path string) (hash string, size int64, err error) {
	file, err := fs.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("open %q for hashing: %w", path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", 0, fmt.Errorf("stat %q: %w", path, err)
	}
	size = info.Size()

	hash, err = MovieHashReader(file, size)
	if err != nil {
		return "", 0, fmt.Errorf("hash %q: %w", path, err)
	}
	return hash, size, nil
}

// MovieHashReader computes the movie hash over r, which holds size bytes.
// Files smaller than the block size are hashed over whatever is available,
// so the head and tail blocks may overlap.
func MovieHashReader(r io.ReaderAt, size int64) (string, error) {
	sum := uint64(size)

	headLen := min(size, movieHashChunkSize)
	head, err := readBlock(r, 0, headLen)
	if err != nil {
		return "", err
	}
	sum += checksumBuffer(head)

	tailStart := max(0, size-movieHashChunkSize)
	tail, err := readBlock(r, tailStart, size-tailStart)
	if err != nil {
		return "", err
	}
	sum += checksumBuffer(tail)

	return fmt.Sprintf("%016x", sum), nil
}

func readBlock(r io.ReaderAt, off, n int64) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	read, err := r.ReadAt(buf, off)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read %d bytes at %d: %w", n, off, err)
	}
	return buf[:read], nil
}

// checksumBuffer sums the buffer as little-endian uint64 words. A trailing
// partial word is read little-endian over the bytes present.
func checksumBuffer(buf []byte) (sum uint64) {
	for i := 0; i < len(buf); i += 8 {
		end := min(i+8, len(buf))
		var word uint64
		for j := end - 1; j >= i; j-- {
			word = word<<8 | uint64(buf[j])
		}
		sum += word
	}
	return sum
}
