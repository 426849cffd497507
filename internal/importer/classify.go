package importer

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// copyResult is the explicit two-stage outcome of a bulk-copy attempt.
// The orchestrator decides the fallback transition from this value; it
// never inspects error message text.
type copyResult int

const (
	copyOK copyResult = iota

	// copyRetryable means the failure is characteristic of the COPY
	// path itself (malformed input the stricter COPY parser rejects) and
	// the file is worth one batch-insert attempt.
	copyRetryable

	// copyFatal means batch insert would fail the same way (connectivity,
	// permissions, missing table) or the input is beyond saving.
	copyFatal
)

// classifyCopyError maps a COPY failure to its fallback eligibility by
// SQLSTATE class.
//
// Class 22 (data exception: invalid text representation, bad copy file
// format, value too long) is the closed set of fallback triggers: the
// row-by-row CSV parser on the insert path is more forgiving than the
// COPY parser. Everything else is fatal for the file.
func classifyCopyError(err error) copyResult {
	if err == nil {
		return copyOK
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if strings.HasPrefix(pgErr.Code, "22") {
			return copyRetryable
		}
	}

	return copyFatal
}
