package extract

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/fpang/noteclean/internal/filehandler"
)

// Source is one uploaded file.
type Source struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Kind classifies the source by media type, falling back to its extension.
func (s Source) Kind() filehandler.Kind {
	return filehandler.Classify(s.Name, s.MIMEType)
}

// LoadFile reads a local file into a Source. The media type is derived from
// the file extension.
func LoadFile(path string) (Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Source{}, fmt.Errorf("file not found: %s", path)
		}
		return Source{}, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return Source{}, fmt.Errorf("path is a directory, not a file: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Source{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	name := filepath.Base(path)
	src := Source{
		Name:     name,
		MIMEType: filehandler.DetectMIMEType(name, ""),
		Data:     data,
	}

	log.Debug().
		Str("path", path).
		Str("mime_type", src.MIMEType).
		Int64("size_bytes", info.Size()).
		Msg("Upload file loaded")

	return src, nil
}

// LoadFiles reads every path in order.
func LoadFiles(paths []string) ([]Source, error) {
	sources := make([]Source, 0, len(paths))
	for _, p := range paths {
		src, err := LoadFile(p)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, nil
}
