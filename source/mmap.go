// Package source loads a module's bytes without copying them onto the Go
// heap, so a ByteCursor over a large module only ever touches the pages
// it actually reads.
package source

import (
	"os"

	"github.com/edsrzf/mmap-go"
)

// File is a memory-mapped module image. Close unmaps it; the []byte
// returned by Bytes becomes invalid once Close runs.
type File struct {
	f *os.File
	m mmap.MMap
}

// LoadFile opens and memory-maps path read-only.
func LoadFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &File{f: f, m: m}, nil
}

// Bytes returns the mapped module image.
func (s *File) Bytes() []byte { return s.m }

// Close unmaps the file and closes the underlying descriptor.
func (s *File) Close() error {
	err := s.m.Unmap()
	if cerr := s.f.Close(); err == nil {
		err = cerr
	}
	return err
}
