package export

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoHeaders is returned when a dataset has no columns to lay out.
var ErrNoHeaders = errors.New("export requires at least one header")

// Format names a supported export encoding.
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

// Dataset defines tabular export content.
type Dataset struct {
	Title   string
	Headers []string
	Rows    []map[string]string
}

// File is a rendered export ready to be streamed to a client.
type File struct {
	Name        string
	ContentType string
	Payload     []byte
}

// ParseFormat normalises a query parameter into a Format.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatPDF:
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", raw)
	}
}

// Exporter dispatches a dataset to the matching renderer.
type Exporter struct {
	csv *CSVRenderer
	pdf *PDFRenderer
}

// NewExporter wires the CSV and PDF renderers.
func NewExporter() *Exporter {
	return &Exporter{csv: &CSVRenderer{}, pdf: &PDFRenderer{}}
}

// Render produces a named file for the dataset in the requested format.
func (e *Exporter) Render(format Format, baseName string, data Dataset) (*File, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("%s: %w", format, ErrNoHeaders)
	}
	switch format {
	case FormatCSV:
		payload, err := e.csv.Render(data)
		if err != nil {
			return nil, err
		}
		return &File{Name: baseName + ".csv", ContentType: "text/csv", Payload: payload}, nil
	case FormatPDF:
		payload, err := e.pdf.Render(data)
		if err != nil {
			return nil, err
		}
		return &File{Name: baseName + ".pdf", ContentType: "application/pdf", Payload: payload}, nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}
