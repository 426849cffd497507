package importer

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/vvka-141/pgload/internal/analyzer"
	"github.com/vvka-141/pgload/pkg/pgload"
)

// sourceFile is an open, decoded source file positioned after its header.
type sourceFile struct {
	file    *os.File
	body    io.Reader
	columns []string
	size    int64
}

func (sf *sourceFile) Close() error {
	return sf.file.Close()
}

// openSource opens path, detects its encoding, consumes the header line,
// and returns the parsed column names with the reader positioned at the
// first data row.
func openSource(path string) (*sourceFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %q: %w", path, err)
	}

	enc, err := analyzer.DetectEncoding(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %q: %w", path, err)
	}

	body := bufio.NewReaderSize(analyzer.DecodingReader(f, enc), 1<<20)

	headerLine, err := body.ReadString('\n')
	if err != nil && err != io.EOF {
		f.Close()
		return nil, fmt.Errorf("failed to read header from %q: %w", path, err)
	}

	columns, err := parseHeader(headerLine)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("invalid header in %q: %w", path, err)
	}

	return &sourceFile{
		file:    f,
		body:    body,
		columns: columns,
		size:    info.Size(),
	}, nil
}

// parseHeader splits the header line into trimmed, quote-stripped column
// names, taken verbatim for the COPY column list.
func parseHeader(line string) ([]string, error) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return nil, fmt.Errorf("empty header line: %w", pgload.ErrInvalidConfig)
	}

	record, err := csv.NewReader(strings.NewReader(line)).Read()
	if err != nil {
		return nil, err
	}
	columns := make([]string, len(record))
	for i, col := range record {
		columns[i] = strings.TrimSpace(col)
	}
	return columns, nil
}

// copyStatement renders the COPY command for the target table and the
// file's column list. Input is header-less, comma-delimited,
// double-quote-quoted; identifiers are quoted defensively.
func copyStatement(schema, table string, columns []string) string {
	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = pgx.Identifier{col}.Sanitize()
	}
	return fmt.Sprintf(
		"COPY %s (%s) FROM STDIN WITH (FORMAT CSV, HEADER FALSE, DELIMITER ',', QUOTE '\"')",
		qualifiedTable(schema, table), strings.Join(quoted, ","))
}

func qualifiedTable(schema, table string) string {
	if schema == "" {
		return pgx.Identifier{table}.Sanitize()
	}
	return pgx.Identifier{schema, table}.Sanitize()
}

// bulkCopy streams the remainder of the source file through the COPY
// protocol within tx and returns the driver-reported row count.
func bulkCopy(ctx context.Context, tx pgload.Tx, sf *sourceFile, schema, table string) (int64, error) {
	rows, err := tx.CopyFrom(ctx, sf.body, copyStatement(schema, table, sf.columns))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", pgload.ErrBulkCopy, err)
	}
	return rows, nil
}
