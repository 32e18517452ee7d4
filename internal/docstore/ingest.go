package docstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

// IngestDir indexes every supported file (.pdf, .txt, .md) in dir. The
// document id is the filename without extension, so titles written as
// underscore-separated filenames are addressable by exact lookup. It
// returns the number of documents indexed.
func (s *Store) IngestDir(ctx context.Context, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read summaries directory: %w", err)
	}

	indexed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		ext := strings.ToLower(filepath.Ext(entry.Name()))

		var content string
		switch ext {
		case ".pdf":
			content, err = extractPDFText(path)
		case ".txt", ".md":
			var raw []byte
			raw, err = os.ReadFile(path)
			content = string(raw)
		default:
			continue
		}
		if err != nil {
			s.log.Warn("skipping unreadable file",
				zap.String("file", entry.Name()),
				zap.Error(err))
			continue
		}
		content = strings.TrimSpace(content)
		if content == "" {
			s.log.Warn("skipping empty file", zap.String("file", entry.Name()))
			continue
		}

		id := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		title := strings.ReplaceAll(id, "_", " ")
		if err := s.Add(ctx, id, title, entry.Name(), content); err != nil {
			return indexed, err
		}
		indexed++
		s.log.Info("indexed document",
			zap.String("id", id),
			zap.Int("chars", len(content)))
	}

	return indexed, nil
}

func extractPDFText(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	text, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return string(text), nil
}
