package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dshills/phabmd/internal/review"
)

// JSONWriter outputs the full report as indented JSON. HTML escaping is off
// so diff bodies keep their literal <, > and & characters.
type JSONWriter struct{}

func (j *JSONWriter) Write(w io.Writer, report *review.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	return nil
}
