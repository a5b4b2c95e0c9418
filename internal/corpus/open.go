// Package corpus reads line-per-sentence corpora and ingests them through
// a shared Processor.
package corpus

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"

	"github.com/ulikunitz/xz"

	"github.com/FocuswithJustin/xmlinput/core/errors"
	"github.com/FocuswithJustin/xmlinput/internal/validation"
)

// Stdin is the path naming standard input.
const Stdin = "-"

type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (rc *readCloser) Close() error {
	var first error
	for _, c := range rc.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Open opens a corpus for reading and "-" reads standard input. Gzip and
// xz content is decompressed transparently; a .gz or .xz file whose
// content does not match its extension is rejected.
func Open(path string) (io.ReadCloser, error) {
	if path == Stdin {
		return wrap(io.NopCloser(os.Stdin), path)
	}
	if err := validation.ValidatePath(path); err != nil {
		return nil, errors.NewValidation("path", err.Error())
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewIO("open corpus", path, err)
	}
	return wrap(f, path)
}

// wrap sniffs the header of f and layers the matching decompressor over it.
func wrap(f io.ReadCloser, name string) (io.ReadCloser, error) {
	br := bufio.NewReader(f)
	header, err := br.Peek(validation.HeaderSize)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		f.Close()
		return nil, errors.NewIO("read corpus header", name, err)
	}

	kind, err := validation.CheckFileType(header, name)
	if err != nil {
		f.Close()
		return nil, errors.NewIO("detect corpus format", name, err)
	}

	switch kind {
	case validation.FileTypeText:
		return &readCloser{Reader: br, closers: []io.Closer{f}}, nil

	case validation.FileTypeGzip:
		gz, err := gzip.NewReader(br)
		if err != nil {
			f.Close()
			return nil, errors.NewIO("open gzip corpus", name, err)
		}
		return &readCloser{Reader: gz, closers: []io.Closer{gz, f}}, nil

	case validation.FileTypeXZ:
		xr, err := xz.NewReader(br)
		if err != nil {
			f.Close()
			return nil, errors.NewIO("open xz corpus", name, err)
		}
		return &readCloser{Reader: xr, closers: []io.Closer{f}}, nil
	}

	f.Close()
	return nil, errors.NewIO("open corpus", name, fmt.Errorf("unsupported format %s", kind))
}
