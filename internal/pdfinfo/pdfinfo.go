package pdfinfo

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ledongthuc/pdf"
)

var pdfHeader = []byte("%PDF-")

// Info describes a parsed PDF payload.
type Info struct {
	PageCount int
	SizeBytes int64
}

// Inspect parses an in-memory PDF and reports its page count.
// Library used: github.com/ledongthuc/pdf.
func Inspect(data []byte) (*Info, error) {
	if len(data) == 0 {
		return nil, errors.New("empty pdf data")
	}
	if !bytes.HasPrefix(data, pdfHeader) {
		return nil, errors.New("payload is not a PDF")
	}

	reader := bytes.NewReader(data)
	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse pdf: %w", err)
	}

	return &Info{
		PageCount: pdfReader.NumPage(),
		SizeBytes: int64(len(data)),
	}, nil
}
