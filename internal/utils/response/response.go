// Package response provides helpers for writing consistent output.
//
// The shell and the one-shot commands print through these helpers so that
// errors, validation failures and menu titles always look the same, and
// exports use one encoder setup per format.
package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/aanand-mishra/scms/internal/utils/validate"
)

// Supported export formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ErrorPrefix starts every error line.
const ErrorPrefix = "error: "

var titleStyle = lipgloss.NewStyle().Bold(true)

// WriteJSON writes data as indented JSON followed by a newline.
func WriteJSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	return enc.Encode(data)
}

// WriteYAML writes data as a YAML document.
func WriteYAML(w io.Writer, data any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return err
	}
	return enc.Close()
}

// CheckFormat reports whether Write accepts format.
func CheckFormat(format string) error {
	_, err := normalizeFormat(format)
	return err
}

// Write encodes data in the named format. An empty format means JSON.
func Write(w io.Writer, format string, data any) error {
	f, err := normalizeFormat(format)
	if err != nil {
		return err
	}
	if f == FormatYAML {
		return WriteYAML(w, data)
	}
	return WriteJSON(w, data)
}

func normalizeFormat(format string) (string, error) {
	switch strings.ToLower(format) {
	case FormatJSON, "":
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported format %q: use %s or %s", format, FormatJSON, FormatYAML)
	}
}

// Line prints one formatted line.
func Line(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format+"\n", args...)
}

// Title prints a menu heading.
func Title(w io.Writer, title string) {
	fmt.Fprintln(w, titleStyle.Render(title))
}

// Error prints err as a single line.
//
// Validation failures are flattened into one sentence, the same way
// ValidationMessage does.
func Error(w io.Writer, err error) {
	fmt.Fprintln(w, ErrorPrefix+ErrorMessage(err))
}

// ErrorMessage returns the text Error would print, without the prefix.
func ErrorMessage(err error) string {
	var verr *validate.Error
	if errors.As(err, &verr) {
		return ValidationMessage(verr)
	}
	return err.Error()
}

// ValidationMessage joins every field message of verr with ", ".
func ValidationMessage(verr *validate.Error) string {
	return "invalid input: " + strings.Join(verr.Messages, ", ")
}
