package artifact

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/klauspost/compress/zip"
)

// ExtractZipEntry extracts the single regular file named entryName (matched
// on its base name) from a zip archive to destPath. Other members are ignored.
func ExtractZipEntry(archivePath, destPath, entryName string) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer reader.Close()

	for _, f := range reader.File {
		if f.FileInfo().IsDir() || path.Base(f.Name) != entryName {
			continue
		}
		return writeZipEntry(f, destPath)
	}

	return fmt.Errorf("entry %s not found in archive", entryName)
}

func writeZipEntry(f *zip.File, destPath string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("create dest dir: %w", err)
	}

	outFile, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0755)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	if _, err := io.Copy(outFile, rc); err != nil {
		outFile.Close()
		os.Remove(destPath)
		return fmt.Errorf("write file: %w", err)
	}

	return outFile.Close()
}
