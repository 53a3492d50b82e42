package compression

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

var _ Compressor = &GzipCompressor{}

// GzipCompressor compresses with gzip at Level, 1 (fastest) to 9 (best).
// Level 0 means the default level.
type GzipCompressor struct {
	Level int
}

func (g *GzipCompressor) Uncompress(in io.Reader) (io.Reader, error) {
	return gzip.NewReader(in)
}

func (g *GzipCompressor) Compress(out io.Writer) (io.WriteCloser, error) {
	level := g.Level
	if level == 0 {
		level = gzip.DefaultCompression
	}
	w, err := gzip.NewWriterLevel(out, level)
	if err != nil {
		return nil, fmt.Errorf("invalid gzip level %d: %w", g.Level, err)
	}
	return w, nil
}

func (g *GzipCompressor) Extension() string {
	return ".gz"
}
