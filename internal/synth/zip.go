package synth

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const (
	errFormatCreateZip    = "failed to create zip '%s': %w"
	errFormatZipEntry     = "failed to add zip entry '%s': %w"
	errFormatOpenZipInput = "failed to open '%s' for zipping: %w"
	errFormatCloseZip     = "failed to finalize zip '%s': %w"
)

// writeZip writes the named files into a zip archive at path. Entries keep
// their base names, in the order given.
func writeZip(path string, filePaths []string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf(errFormatCreateZip, path, err)
	}

	writer := zip.NewWriter(file)

	for _, filePath := range filePaths {
		err = addZipEntry(writer, filePath)
		if err != nil {
			_ = writer.Close()
			_ = file.Close()

			return err
		}
	}

	err = writer.Close()
	if err != nil {
		_ = file.Close()

		return fmt.Errorf(errFormatCloseZip, path, err)
	}

	err = file.Close()
	if err != nil {
		return fmt.Errorf(errFormatCloseZip, path, err)
	}

	return nil
}

func addZipEntry(writer *zip.Writer, filePath string) error {
	input, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf(errFormatOpenZipInput, filePath, err)
	}
	defer func() { _ = input.Close() }()

	entry, err := writer.Create(filepath.Base(filePath))
	if err != nil {
		return fmt.Errorf(errFormatZipEntry, filePath, err)
	}

	_, err = io.Copy(entry, input)
	if err != nil {
		return fmt.Errorf(errFormatZipEntry, filePath, err)
	}

	return nil
}
