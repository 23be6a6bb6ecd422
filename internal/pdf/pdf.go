// Package pdf inspects uploaded and downloaded PDF content with pdfcpu.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// MaxSize bounds what Read will buffer.
const MaxSize = 50 << 20

var (
	ErrInvalid  = errors.New("not a valid PDF")
	ErrTooLarge = errors.New("PDF exceeds size limit")
)

type Info struct {
	Pages int
	Size  int64
}

func config() *model.Configuration {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	return cfg
}

// Read buffers r, validates it and counts its pages.
// The returned bytes are the content as read.
func Read(r io.Reader) ([]byte, Info, error) {
	if r == nil {
		return nil, Info{}, fmt.Errorf("%w: empty content", ErrInvalid)
	}
	b, err := io.ReadAll(io.LimitReader(r, MaxSize+1))
	if err != nil {
		return nil, Info{}, fmt.Errorf("read pdf: %w", err)
	}
	if len(b) > MaxSize {
		return nil, Info{}, ErrTooLarge
	}
	info, err := Inspect(bytes.NewReader(b))
	if err != nil {
		return nil, Info{}, err
	}
	return b, info, nil
}

// Inspect validates rs and counts its pages.
func Inspect(rs io.ReadSeeker) (Info, error) {
	size, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return Info{}, err
	}
	if size == 0 {
		return Info{}, fmt.Errorf("%w: empty content", ErrInvalid)
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return Info{}, err
	}
	if err := api.Validate(rs, config()); err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return Info{}, err
	}
	n, err := api.PageCount(rs, config())
	if err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return Info{Pages: n, Size: size}, nil
}
