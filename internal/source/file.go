package source

import (
	"context"
	"fmt"
	"io"
	"os"
)

// FileSource reads a file, or standard input when Path is "-". It ends at
// end of file.
type FileSource struct {
	base
	Path string
}

// Run emits every line of the file.
func (s *FileSource) Run(ctx context.Context, out chan<- Line) error {
	var r io.Reader = os.Stdin
	if s.Path != "-" {
		f, err := os.Open(s.Path)
		if err != nil {
			return fmt.Errorf("open %s: %w", s.Path, err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	err := s.scan(ctx, r, out, false)
	if ctx.Err() != nil {
		return nil
	}
	return err
}
