// Package datagen produces synthetic CSV files for load testing the
// import pipeline. Rows are realistic enough to exercise a typical
// customer-orders schema: timestamps, free text, embedded commas and
// numeric columns.
package datagen

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/vvka-141/pgload/pkg/pgload"
)

// Columns is the fixed header the generator writes. The target table for
// generated files must match it.
var Columns = []string{
	"id", "created_at", "modified_at", "first_name", "last_name",
	"email", "phone", "address", "city", "state", "zip_code",
	"category", "amount", "quantity", "status", "is_active",
	"notes", "tags", "score", "reference_id", "external_id",
}

var (
	firstNames = []string{
		"James", "Mary", "John", "Patricia", "Robert", "Jennifer",
		"Michael", "Linda", "William", "Elizabeth", "David", "Barbara",
		"Richard", "Susan", "Joseph", "Jessica", "Thomas", "Sarah",
	}
	lastNames = []string{
		"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia",
		"Miller", "Davis", "Rodriguez", "Martinez", "Hernandez", "Lopez",
		"Gonzalez", "Wilson", "Anderson", "Thomas", "Taylor", "Moore",
	}
	cities = []string{
		"New York", "Los Angeles", "Chicago", "Houston", "Phoenix",
		"Philadelphia", "San Antonio", "San Diego", "Dallas", "San Jose",
		"Austin", "Jacksonville", "Fort Worth", "Columbus", "Charlotte",
	}
	states = []string{
		"NY", "CA", "IL", "TX", "AZ", "PA", "TX", "CA", "TX", "CA",
		"TX", "FL", "TX", "OH", "NC",
	}
	streets    = []string{"Main", "Oak", "Elm", "Park", "First"}
	categories = []string{
		"Electronics", "Clothing", "Home & Garden", "Sports", "Books",
		"Toys", "Health", "Beauty", "Automotive", "Food",
	}
	statuses   = []string{"active", "pending", "completed", "cancelled", "processing"}
	loremWords = []string{
		"lorem", "ipsum", "dolor", "sit", "amet", "consectetur",
		"adipiscing", "elit", "sed", "do", "eiusmod", "tempor",
		"incididunt", "ut", "labore", "et", "dolore", "magna", "aliqua",
	}
)

// Generator writes synthetic CSV data. Not safe for concurrent use; one
// generator per output file.
type Generator struct {
	rng       *rand.Rand
	logger    pgload.Logger
	startDate time.Time
	endDate   time.Time
}

// NewGenerator creates a Generator seeded for reproducible output.
// Panics if logger is nil.
func NewGenerator(seed int64, logger pgload.Logger) *Generator {
	if logger == nil {
		panic("datagen: logger is required")
	}
	return &Generator{
		rng:       rand.New(rand.NewSource(seed)),
		logger:    logger,
		startDate: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		endDate:   time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
	}
}

// Result summarizes a generated file.
type Result struct {
	Path      string
	SizeBytes int64
	Rows      int64
	Elapsed   time.Duration
}

// Generate writes a CSV of approximately targetSizeMB megabytes to path
// and returns the final stats. The file always has a complete last row;
// the size target is a floor, not an exact byte count.
func (g *Generator) Generate(path string, targetSizeMB int) (*Result, error) {
	if targetSizeMB < 1 {
		return nil, fmt.Errorf("target size must be at least 1MB: %w", pgload.ErrInvalidConfig)
	}

	g.logger.Info("Generating ~%dMB of test data into %s", targetSizeMB, path)
	start := time.Now()

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %q: %w", path, err)
	}
	defer f.Close()

	// countingWriter tracks written bytes without a Stat per row.
	cw := &countingWriter{w: bufio.NewWriterSize(f, 1<<20)}
	writer := csv.NewWriter(cw)

	if err := writer.Write(Columns); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	targetBytes := int64(targetSizeMB) * 1024 * 1024
	var rows int64
	for {
		writer.Flush()
		if cw.n >= targetBytes {
			break
		}
		rows++
		if err := writer.Write(g.row(rows)); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", rows, err)
		}
		if rows%100000 == 0 {
			g.logger.Verbose("Generated %d rows (%.1fMB)", rows, float64(cw.n)/(1024*1024))
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush %q: %w", path, err)
	}
	if err := cw.w.Flush(); err != nil {
		return nil, fmt.Errorf("failed to flush %q: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close %q: %w", path, err)
	}

	res := &Result{
		Path:      path,
		SizeBytes: cw.n,
		Rows:      rows,
		Elapsed:   time.Since(start),
	}
	g.logger.Info("Generated %d rows (%.2fMB) in %s",
		res.Rows, float64(res.SizeBytes)/(1024*1024), res.Elapsed.Round(time.Millisecond))
	return res, nil
}

// row builds one synthetic record in Columns order.
func (g *Generator) row(id int64) []string {
	created := g.randomDate()
	modified := created.AddDate(0, 0, g.rng.Intn(31))

	tagCount := 1 + g.rng.Intn(3)
	tags := make([]string, 0, tagCount)
	for _, i := range g.rng.Perm(len(categories))[:tagCount] {
		tags = append(tags, categories[i])
	}

	return []string{
		strconv.FormatInt(id, 10),
		created.Format(time.RFC3339),
		modified.Format(time.RFC3339),
		pick(g.rng, firstNames),
		pick(g.rng, lastNames),
		fmt.Sprintf("user%d@example.com", id),
		fmt.Sprintf("+1-%d-%d-%d", 200+g.rng.Intn(800), 200+g.rng.Intn(800), 1000+g.rng.Intn(9000)),
		fmt.Sprintf("%d %s Street", 1+g.rng.Intn(9999), pick(g.rng, streets)),
		pick(g.rng, cities),
		pick(g.rng, states),
		strconv.Itoa(10000 + g.rng.Intn(90000)),
		pick(g.rng, categories),
		fmt.Sprintf("%.2f", 10.0+g.rng.Float64()*990.0),
		strconv.Itoa(1 + g.rng.Intn(100)),
		pick(g.rng, statuses),
		strconv.FormatBool(g.rng.Intn(2) == 0),
		g.loremText(10 + g.rng.Intn(41)),
		strings.Join(tags, ","),
		fmt.Sprintf("%.2f", g.rng.Float64()*100.0),
		fmt.Sprintf("REF-%08d", id),
		g.externalID(),
	}
}

func (g *Generator) randomDate() time.Time {
	span := int(g.endDate.Sub(g.startDate).Hours() / 24)
	return g.startDate.AddDate(0, 0, g.rng.Intn(span+1))
}

func (g *Generator) loremText(words int) string {
	parts := make([]string, words)
	for i := range parts {
		parts[i] = pick(g.rng, loremWords)
	}
	return strings.Join(parts, " ")
}

const externalIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func (g *Generator) externalID() string {
	var sb strings.Builder
	for i := 0; i < 12; i++ {
		sb.WriteByte(externalIDAlphabet[g.rng.Intn(len(externalIDAlphabet))])
	}
	return sb.String()
}

func pick(rng *rand.Rand, values []string) string {
	return values[rng.Intn(len(values))]
}

type countingWriter struct {
	w *bufio.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
