package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/vvka-141/pgload/pkg/pgload"
)

// maxStatementParams is the PostgreSQL limit on bind parameters per
// statement (uint16). Batches are capped so rows*columns stays under it.
const maxStatementParams = 65535

// batchInsert is the fallback for files the COPY protocol rejects,
// typically malformed rows. It parses the remainder of the source file
// row by row and inserts in multi-row statements inside tx, skipping
// rows whose field count does not match the header.
func batchInsert(ctx context.Context, tx pgload.Tx, sf *sourceFile, schema, table string, batchSize int, logger pgload.Logger) (int64, error) {
	cols := len(sf.columns)
	if cols == 0 {
		return 0, fmt.Errorf("%w: no columns", pgload.ErrBatchInsert)
	}

	maxRows := maxStatementParams / cols
	if maxRows < 1 {
		maxRows = 1
	}
	if batchSize < 1 || batchSize > maxRows {
		batchSize = maxRows
	}

	reader := csv.NewReader(sf.body)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	prefix := insertPrefix(schema, table, sf.columns)

	var (
		total   int64
		skipped int64
		batch   = make([][]string, 0, batchSize)
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := execBatch(ctx, tx, prefix, cols, batch)
		if err != nil {
			return err
		}
		total += n
		batch = batch[:0]
		return nil
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			logger.Verbose("Skipping unparseable row: %v", err)
			continue
		}
		if len(record) != cols {
			skipped++
			logger.Verbose("Skipping row with %d fields, expected %d", len(record), cols)
			continue
		}
		batch = append(batch, record)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := flush(); err != nil {
		return total, err
	}

	if skipped > 0 {
		logger.Info("Batch insert skipped %d malformed rows", skipped)
	}
	return total, nil
}

func insertPrefix(schema, table string, columns []string) string {
	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = pgx.Identifier{col}.Sanitize()
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES ",
		qualifiedTable(schema, table), strings.Join(quoted, ","))
}

// execBatch renders one multi-row INSERT with positional parameters and
// executes it. Empty fields become NULL, matching COPY's treatment of
// unquoted empty values.
func execBatch(ctx context.Context, tx pgload.Tx, prefix string, cols int, batch [][]string) (int64, error) {
	var sb strings.Builder
	sb.WriteString(prefix)

	args := make([]any, 0, len(batch)*cols)
	param := 1
	for i, record := range batch {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteByte('(')
		for j, field := range record {
			if j > 0 {
				sb.WriteByte(',')
			}
			fmt.Fprintf(&sb, "$%d", param)
			param++
			if field == "" {
				args = append(args, nil)
			} else {
				args = append(args, field)
			}
		}
		sb.WriteByte(')')
	}

	n, err := tx.Exec(ctx, sb.String(), args...)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", pgload.ErrBatchInsert, err)
	}
	return n, nil
}
