// Package analyzer inspects delimited source files before import: size,
// encoding, header columns, row counts, and sample rows. Analysis never
// mutates the file.
package analyzer

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/vvka-141/pgload/pkg/pgload"
)

const (
	// exactCountThreshold is the file size above which row counts are
	// estimated from a sample instead of counted exactly.
	exactCountThreshold = 100 * 1024 * 1024

	// sampleRowLimit is the number of data rows retained for preview.
	sampleRowLimit = 5

	// estimateSampleSize is the raw byte window read from the middle of
	// a large file to estimate the average line length.
	estimateSampleSize = 1024 * 1024
)

// Supported encodings, as reported in FileAnalysis.Encoding.
const (
	EncodingUTF8    = "utf-8"
	EncodingUTF16LE = "utf-16le"
	EncodingUTF16BE = "utf-16be"
)

// Analyzer inspects source files.
type Analyzer struct {
	logger pgload.Logger
}

// New creates an Analyzer.
// Panics if logger is nil.
func New(logger pgload.Logger) *Analyzer {
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &Analyzer{logger: logger}
}

// Analyze inspects the file at path and reports its structure. The
// chunkSizeMB parameter is only used to derive the estimated chunk
// count; it does not trigger splitting.
func (a *Analyzer) Analyze(path string, chunkSizeMB int) (*pgload.FileAnalysis, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %q: %w", path, err)
	}

	enc, err := DetectEncoding(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %q: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(bufio.NewReaderSize(DecodingReader(f, enc), 1<<20))
	reader.FieldsPerRecord = -1 // Tolerate ragged rows during inspection.

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header from %q: %w", path, err)
	}
	columns := make([]string, len(header))
	for i, col := range header {
		columns[i] = strings.TrimSpace(col)
	}

	analysis := &pgload.FileAnalysis{
		Path:        path,
		SizeBytes:   info.Size(),
		SizeMB:      float64(info.Size()) / (1024 * 1024),
		Encoding:    enc,
		Columns:     columns,
		ColumnCount: len(columns),
	}

	var samples [][]string
	var rows int64
	for {
		record, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to parse %q: %w", path, err)
		}
		if len(samples) < sampleRowLimit {
			samples = append(samples, record)
		}
		rows++

		// Large files: stop after collecting samples and estimate the
		// total instead of scanning to the end.
		if info.Size() > exactCountThreshold && len(samples) == sampleRowLimit {
			estimated, err := estimateRowCount(path, info.Size())
			if err != nil {
				return nil, err
			}
			rows = estimated
			analysis.Estimated = true
			break
		}
	}

	analysis.RowCount = rows
	analysis.SampleRows = samples
	if chunkSizeMB > 0 {
		analysis.EstimatedChunks = estimatedChunks(analysis.SizeMB, chunkSizeMB)
	}

	a.logger.Verbose("analyzed %q: %.1f MB, %d columns, %d rows (estimated=%v)",
		path, analysis.SizeMB, analysis.ColumnCount, analysis.RowCount, analysis.Estimated)
	return analysis, nil
}

func estimatedChunks(sizeMB float64, chunkSizeMB int) int {
	n := int(sizeMB / float64(chunkSizeMB))
	if n < 1 {
		return 1
	}
	return n
}

// estimateRowCount samples the middle of a large file and extrapolates
// from the average line length.
func estimateRowCount(path string, size int64) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open %q: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Seek(size/2, io.SeekStart); err != nil {
		return 0, fmt.Errorf("failed to seek in %q: %w", path, err)
	}

	buf := make([]byte, estimateSampleSize)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("failed to sample %q: %w", path, err)
	}
	buf = buf[:n]

	newlines := int64(bytes.Count(buf, []byte{'\n'}))
	if newlines == 0 {
		// Degenerate case: no newline in the sample window. Assume long
		// lines and fall back to a coarse guess.
		return size / 1000, nil
	}

	avgLine := float64(n) / float64(newlines)
	return int64(float64(size) / avgLine), nil
}

// DetectEncoding sniffs the byte-order mark at the start of the file.
// Files without a BOM are treated as UTF-8.
func DetectEncoding(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %q: %w", path, err)
	}
	defer f.Close()

	bom := make([]byte, 3)
	n, err := io.ReadFull(f, bom)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read %q: %w", path, err)
	}
	bom = bom[:n]

	switch {
	case len(bom) >= 3 && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF:
		return EncodingUTF8, nil
	case len(bom) >= 2 && bom[0] == 0xFF && bom[1] == 0xFE:
		return EncodingUTF16LE, nil
	case len(bom) >= 2 && bom[0] == 0xFE && bom[1] == 0xFF:
		return EncodingUTF16BE, nil
	}
	return EncodingUTF8, nil
}

// DecodingReader wraps r so its contents come out as UTF-8 regardless of
// the detected source encoding. A leading BOM is stripped.
func DecodingReader(r io.Reader, encoding string) io.Reader {
	switch encoding {
	case EncodingUTF16LE:
		return transform.NewReader(r, unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder())
	case EncodingUTF16BE:
		return transform.NewReader(r, unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder())
	default:
		return transform.NewReader(r, unicode.UTF8BOM.NewDecoder())
	}
}
