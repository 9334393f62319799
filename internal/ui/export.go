package ui

import (
	"fmt"
	"os"
	"path/filepath"

	"SmartBoard/internal/record"
)

// SaveRecording stops rec and writes the GIF into dir.
func SaveRecording(rec *record.Recorder, dir string) (string, error) {
	g, err := rec.Stop()
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, record.FileName)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	if err := record.WriteGIF(f, g); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}
