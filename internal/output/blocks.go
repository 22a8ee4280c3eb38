// Package output writes assembled fact blocks to disk and reads them back.
//
// Blocks are written as one JSON array, optionally zstd-compressed. Readers
// detect compression from the zstd frame magic, so a file's name does not
// need to say whether it is compressed.
package output

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"factgraph/internal/errors"
	"factgraph/internal/facts"

	"github.com/klauspost/compress/zstd"
)

// Compression selects how blocks are compressed on disk.
type Compression string

const (
	CompressNone Compression = "none"
	CompressZstd Compression = "zstd"
)

// ParseCompression maps a config value onto a Compression.
func ParseCompression(s string) (Compression, error) {
	switch Compression(s) {
	case "", CompressNone:
		return CompressNone, nil
	case CompressZstd:
		return CompressZstd, nil
	default:
		return "", errors.Newf(errors.InputInvalid, "unknown compression %q", s)
	}
}

// Options controls encoding.
type Options struct {
	Compression Compression
	// Indent pretty-prints the JSON with two spaces.
	Indent bool
}

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Encode writes blocks to w.
func Encode(w io.Writer, blocks []facts.Block, opts Options) error {
	if opts.Compression == CompressZstd {
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return err
		}
		if err := encodeJSON(zw, blocks, opts.Indent); err != nil {
			_ = zw.Close()
			return err
		}
		return zw.Close()
	}
	return encodeJSON(w, blocks, opts.Indent)
}

func encodeJSON(w io.Writer, blocks []facts.Block, indent bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	if blocks == nil {
		blocks = []facts.Block{}
	}
	return enc.Encode(blocks)
}

// Decode reads blocks from r, decompressing zstd input transparently.
func Decode(r io.Reader) ([]facts.Block, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(zstdMagic))
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, err
	}

	var src io.Reader = br
	if bytes.Equal(head, zstdMagic) {
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		src = zr
	}

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, errors.New(errors.InputInvalid, "failed to read fact blocks", err)
	}
	return facts.DecodeBlocks(data)
}

// WriteFile writes blocks to path atomically: the data goes to a temporary
// file in the same directory which is renamed over path on success.
func WriteFile(path string, blocks []facts.Block, opts Options) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.New(errors.SinkFailed, fmt.Sprintf("failed to create %s", dir), err)
	}

	tmp, err := os.CreateTemp(dir, ".factgraph-*.tmp")
	if err != nil {
		return errors.New(errors.SinkFailed, "failed to create temporary output file", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	bw := bufio.NewWriter(tmp)
	if err := Encode(bw, blocks, opts); err != nil {
		_ = tmp.Close()
		return errors.New(errors.SinkFailed, fmt.Sprintf("failed to encode blocks for %s", path), err)
	}
	if err := bw.Flush(); err != nil {
		_ = tmp.Close()
		return errors.New(errors.SinkFailed, fmt.Sprintf("failed to write %s", path), err)
	}
	if err := tmp.Close(); err != nil {
		return errors.New(errors.SinkFailed, fmt.Sprintf("failed to write %s", path), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.New(errors.SinkFailed, fmt.Sprintf("failed to move output into %s", path), err)
	}
	return nil
}

// ReadFile reads blocks written by WriteFile.
func ReadFile(path string) ([]facts.Block, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.IndexMissing, fmt.Sprintf("fact file not found at %s", path), err)
		}
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}
