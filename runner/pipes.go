package runner

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// sinks holds the pipes wired to the child's stdout and stderr. When
// joined, both roles alias the same pipe.
type sinks struct {
	outR, outW *os.File
	errR, errW *os.File
}

func openSinks(join bool) (*sinks, error) {
	outR, outW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("creating stdout pipe: %w", err)
	}
	s := &sinks{outR: outR, outW: outW, errR: outR, errW: outW}
	if join {
		return s, nil
	}

	errR, errW, err := os.Pipe()
	if err != nil {
		s.closeWriters()
		s.closeReaders()
		return nil, fmt.Errorf("creating stderr pipe: %w", err)
	}
	s.errR, s.errW = errR, errW
	return s, nil
}

func (s *sinks) joined() bool {
	return s.outR == s.errR
}

// closeWriters releases the parent's copies of the write ends so the
// readers see EOF once the child exits. Errors are ignored.
func (s *sinks) closeWriters() {
	_ = s.outW.Close()
	if !s.joined() {
		_ = s.errW.Close()
	}
}

// closeReaders releases the read ends. Errors are ignored.
func (s *sinks) closeReaders() {
	_ = s.outR.Close()
	if !s.joined() {
		_ = s.errR.Close()
	}
}

// drain reads every read end to EOF. Separate pipes are read
// concurrently so a child filling one pipe cannot stall on the other.
func (s *sinks) drain() (stdout, stderr []byte) {
	if s.joined() {
		stdout, _ = io.ReadAll(s.outR)
		return stdout, nil
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		stderr, _ = io.ReadAll(s.errR)
	}()
	stdout, _ = io.ReadAll(s.outR)
	wg.Wait()
	return stdout, stderr
}

// decode converts captured bytes to text, replacing invalid UTF-8
// sequences with U+FFFD.
func decode(b []byte) string {
	return strings.ToValidUTF8(string(b), "\uFFFD")
}
