// Package splitter partitions oversized delimited files into ordered,
// header-replicated chunks bounded by a byte-size threshold.
package splitter

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/vvka-141/pgload/pkg/pgload"
)

// Splitter streams a source file into chunk files. Each chunk begins
// with an identical copy of the source header line so every chunk is
// independently loadable.
//
// Chunk filenames are deterministic: {stem}_chunk_0001{ext}, zero-padded
// to four digits, in source row order. Rows are never split across
// chunks, and concatenating chunk bodies (headers stripped after the
// first) reconstructs the original body exactly.
type Splitter struct {
	logger pgload.Logger
}

// New creates a Splitter.
// Panics if logger is nil.
func New(logger pgload.Logger) *Splitter {
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &Splitter{logger: logger}
}

// Split partitions the file at path into chunks of at most
// chunkSizeMB*1024*1024 bytes (header included), written to outputDir.
// Returns the ordered chunk paths.
func (s *Splitter) Split(path string, chunkSizeMB int, outputDir string) ([]string, error) {
	if chunkSizeMB < 1 {
		return nil, fmt.Errorf("chunk size must be at least 1 MB: %w", pgload.ErrInvalidConfig)
	}

	in, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open source file: %w", err)
	}
	defer in.Close()

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %q: %w", outputDir, err)
	}

	reader := bufio.NewReaderSize(in, 1<<20)

	header, err := readLine(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read header from %q: %w", path, err)
	}

	chunkSizeBytes := int64(chunkSizeMB) * 1024 * 1024
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	var (
		chunkPaths  []string
		chunkFile   *os.File
		chunkWriter *bufio.Writer
		chunkBytes  int64
		lineCount   int64
	)

	closeChunk := func() error {
		if chunkFile == nil {
			return nil
		}
		if err := chunkWriter.Flush(); err != nil {
			chunkFile.Close()
			return err
		}
		err := chunkFile.Close()
		chunkFile = nil
		return err
	}

	for {
		line, err := readLine(reader)
		if len(line) > 0 {
			// Open a new chunk when none is open or the current one has
			// reached its byte budget.
			if chunkFile == nil || chunkBytes >= chunkSizeBytes {
				if cerr := closeChunk(); cerr != nil {
					return chunkPaths, fmt.Errorf("failed to finalize chunk: %w", cerr)
				}

				name := fmt.Sprintf("%s_chunk_%04d%s", stem, len(chunkPaths)+1, ext)
				chunkPath := filepath.Join(outputDir, name)

				f, cerr := os.Create(chunkPath)
				if cerr != nil {
					return chunkPaths, fmt.Errorf("failed to create chunk %q: %w", chunkPath, cerr)
				}
				chunkFile = f
				chunkWriter = bufio.NewWriterSize(chunkFile, 1<<20)
				if _, werr := chunkWriter.WriteString(header); werr != nil {
					chunkFile.Close()
					chunkFile = nil
					return chunkPaths, fmt.Errorf("failed to write chunk header: %w", werr)
				}
				chunkBytes = int64(len(header))
				chunkPaths = append(chunkPaths, chunkPath)
			}

			if _, werr := chunkWriter.WriteString(line); werr != nil {
				return chunkPaths, fmt.Errorf("failed to write chunk line: %w", werr)
			}
			chunkBytes += int64(len(line))
			lineCount++

			if lineCount%100000 == 0 {
				s.logger.Verbose("processed %d rows, created %d chunks", lineCount, len(chunkPaths))
			}
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			_ = closeChunk()
			return chunkPaths, fmt.Errorf("failed to read source file: %w", err)
		}
	}

	if err := closeChunk(); err != nil {
		return chunkPaths, fmt.Errorf("failed to finalize chunk: %w", err)
	}

	s.logger.Verbose("split %q into %d chunks (%d rows)", path, len(chunkPaths), lineCount)
	return chunkPaths, nil
}

// readLine returns the next line including its trailing newline, or the
// final unterminated fragment together with io.EOF.
func readLine(r *bufio.Reader) (string, error) {
	var sb strings.Builder
	for {
		part, err := r.ReadString('\n')
		sb.WriteString(part)
		if err != nil || strings.HasSuffix(part, "\n") {
			return sb.String(), err
		}
	}
}
