// Package output writes diagrams to standard output or gzip-compressed .dia files
// and reports what was written.
package output

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ritzau/modeldia/pkg/diagram"
	"github.com/ritzau/modeldia/pkg/logging"
)

// Extension is the file extension of Dia documents
const Extension = ".dia"

// FileName appends the .dia extension when missing
func FileName(name string) string {
	if strings.HasSuffix(name, Extension) {
		return name
	}
	return name + Extension
}

// WriteFile writes doc gzip-compressed, the way Dia stores its documents,
// and returns the file name used
func WriteFile(name string, doc *diagram.Document, bezier bool) (string, error) {
	name = FileName(name)
	f, err := os.Create(name)
	if err != nil {
		return "", fmt.Errorf("creating output file: %w", err)
	}

	if err := WriteGzip(f, doc, bezier); err != nil {
		f.Close()
		return "", fmt.Errorf("writing %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing %s: %w", name, err)
	}
	logging.Debug("diagram written", "file", name)
	return name, nil
}

// WriteGzip writes doc as gzip-compressed XML to w
func WriteGzip(w io.Writer, doc *diagram.Document, bezier bool) error {
	zw := gzip.NewWriter(w)
	if err := diagram.Write(zw, doc, bezier); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}
