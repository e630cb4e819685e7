package records

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/vodoo/vodoo/internal/odoo"
)

var (
	attachmentListFields = []string{"id", "name", "file_size", "mimetype", "create_date"}
	attachmentReadFields = []string{"name", "datas"}
)

// ListAttachments lists a record's attachments without their payloads.
func (s *Service) ListAttachments(ctx context.Context, model string, id int) ([]odoo.Record, error) {
	return s.client.SearchRead(ctx, "ir.attachment",
		[]any{[]any{"res_model", "=", model}, []any{"res_id", "=", id}},
		odoo.SearchOptions{Fields: attachmentListFields})
}

// DownloadAttachment fetches one attachment and writes it to outputPath.
// When outputPath is empty or a directory, the server-side name is used
// inside it. Returns the path written.
func (s *Service) DownloadAttachment(ctx context.Context, attachmentID int, outputPath string) (string, error) {
	att, err := s.readAttachment(ctx, attachmentID)
	if err != nil {
		return "", err
	}

	name := att.Str("name")
	if name == "" {
		name = fmt.Sprintf("attachment_%d", attachmentID)
	}
	path := outputPath
	switch {
	case path == "":
		path = name
	case isDir(path):
		path = filepath.Join(path, name)
	}

	data, err := decodeAttachment(att)
	if err != nil {
		return "", fmt.Errorf("attachment %d: %w", attachmentID, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write attachment: %w", err)
	}
	return path, nil
}

// DownloadRecordAttachments fetches every attachment of a record into
// outputDir, optionally filtered by file extension. Individual download
// failures are logged and skipped so one corrupt attachment does not abort
// the batch.
func (s *Service) DownloadRecordAttachments(ctx context.Context, model string, id int, outputDir, extension string) ([]string, error) {
	if outputDir == "" {
		outputDir = "."
	} else if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	attachments, err := s.ListAttachments(ctx, model, id)
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(strings.TrimPrefix(extension, "."))
	var written []string
	for _, entry := range attachments {
		name := entry.Str("name")
		if ext != "" && !strings.HasSuffix(strings.ToLower(name), "."+ext) {
			continue
		}

		att, err := s.readAttachment(ctx, entry.ID())
		if err != nil {
			log.Printf("skipping attachment %d (%s): %v", entry.ID(), name, err)
			continue
		}
		data, err := decodeAttachment(att)
		if err != nil {
			log.Printf("skipping attachment %d (%s): %v", entry.ID(), name, err)
			continue
		}

		if name = att.Str("name"); name == "" {
			name = fmt.Sprintf("attachment_%d", entry.ID())
		}
		path := filepath.Join(outputDir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			log.Printf("skipping attachment %d (%s): %v", entry.ID(), name, err)
			continue
		}
		written = append(written, path)
	}
	return written, nil
}

// Attach uploads a local file as an attachment on a record and returns the
// attachment id. name overrides the filename when non-empty.
func (s *Service) Attach(ctx context.Context, model string, id int, filePath, name string) (int, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return 0, fmt.Errorf("read file: %w", err)
	}
	if name == "" {
		name = filepath.Base(filePath)
	}
	return s.client.Create(ctx, "ir.attachment", map[string]any{
		"name":      name,
		"datas":     base64.StdEncoding.EncodeToString(data),
		"res_model": model,
		"res_id":    id,
	}, nil)
}

func (s *Service) readAttachment(ctx context.Context, id int) (odoo.Record, error) {
	records, err := s.client.Read(ctx, "ir.attachment", []int{id}, attachmentReadFields)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, &odoo.NotFoundError{Model: "ir.attachment", ID: id}
	}
	return records[0], nil
}

// decodeAttachment extracts and decodes the base64 payload. An empty datas
// field (false) means the binary lives outside the database.
func decodeAttachment(att odoo.Record) ([]byte, error) {
	encoded := att.Str("datas")
	if encoded == "" {
		return nil, fmt.Errorf("attachment has no inline data")
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode attachment data: %w", err)
	}
	return data, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
