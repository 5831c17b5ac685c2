package walk

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/chapterworks/spwalk/internal/graph"
)

// DefaultMimeType is the document type collected when none is configured.
const DefaultMimeType = "application/pdf"

// FileEntry is a downloadable document. DownloadURL is the provider's
// short-lived pre-authenticated link and is not revalidated here.
type FileEntry struct {
	Name        string            `json:"name"`
	DownloadURL graph.DownloadURL `json:"downloadUrl"`
}

// ListDownloadableFiles returns the files directly inside folderID whose
// mime type matches the walker's configured type, in listing order. A
// listing without a value array yields an empty result.
func (w *Walker) ListDownloadableFiles(ctx context.Context, driveID, folderID string) ([]FileEntry, error) {
	page, err := w.lister.ListChildren(ctx, driveID, folderID)
	if err != nil {
		return nil, fmt.Errorf("walk: listing files in %s: %w", folderID, err)
	}

	w.stats.Listings++

	files := []FileEntry{}

	if !page.ValuePresent {
		w.logger.Warn("no children found for folder",
			slog.String("drive_id", driveID),
			slog.String("item_id", folderID),
		)

		return files, nil
	}

	for i := range page.Items {
		item := &page.Items[i]
		if item.Kind != graph.KindFile || item.MimeType != w.mimeType {
			continue
		}

		files = append(files, FileEntry{Name: item.Name, DownloadURL: item.DownloadURL})
	}

	w.stats.Files = len(files)

	w.logger.Info("collected downloadable files",
		slog.String("drive_id", driveID),
		slog.String("item_id", folderID),
		slog.String("mime_type", w.mimeType),
		slog.Int("count", len(files)),
	)

	return files, nil
}
