package compression

import (
	"fmt"
	"io"
	"os"
)

type Compressor interface {
	Uncompress(in io.Reader) (io.Reader, error)
	Compress(out io.Writer) (io.WriteCloser, error)
	Extension() string
}

// CompressFile writes the compression of src to dst, replacing dst if it exists.
// On failure dst is left in place, as far as it was written.
func CompressFile(c Compressor, src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", dst, err)
	}
	defer out.Close()

	cw, err := c.Compress(out)
	if err != nil {
		return 0, fmt.Errorf("failed to create compressor: %w", err)
	}
	n, err := io.Copy(cw, in)
	if err != nil {
		_ = cw.Close()
		return n, fmt.Errorf("failed to compress %s: %w", src, err)
	}
	if err := cw.Close(); err != nil {
		return n, fmt.Errorf("failed to finish %s: %w", dst, err)
	}
	return n, out.Close()
}

// UncompressFile writes the decompression of src to dst, replacing dst if it exists.
func UncompressFile(c Compressor, src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	r, err := c.Uncompress(in)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", src, err)
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", dst, err)
	}
	defer out.Close()

	n, err := io.Copy(out, r)
	if err != nil {
		return n, fmt.Errorf("failed to uncompress %s: %w", src, err)
	}
	return n, out.Close()
}
