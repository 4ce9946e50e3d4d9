package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dshills/phabmd/internal/review"
)

// Writer writes a report in a specific format.
type Writer interface {
	Write(w io.Writer, report *review.Report) error
}

// Formats lists the accepted format names.
var Formats = []string{"markdown", "json", "yaml"}

// GetWriter returns a writer for the specified format.
func GetWriter(format string) (Writer, error) {
	switch strings.ToLower(format) {
	case "", "markdown", "md":
		return &MarkdownWriter{}, nil
	case "json":
		return &JSONWriter{}, nil
	case "yaml", "yml":
		return &YAMLWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// WriteReport writes the report to outPath, or to stdout when outPath is
// empty.
func WriteReport(report *review.Report, format, outPath string) error {
	return writeReport(os.Stdout, report, format, outPath)
}

func writeReport(stdout io.Writer, report *review.Report, format, outPath string) error {
	writer, err := GetWriter(format)
	if err != nil {
		return err
	}

	if outPath == "" {
		return writer.Write(stdout, report)
	}

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	if err := writer.Write(f, report); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing output file: %w", err)
	}
	return nil
}
