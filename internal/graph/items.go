package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// driveItemResponse mirrors the Graph API driveItem JSON for the fields a
// children listing needs. Unexported; callers use Item via parseItem().
type driveItemResponse struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Size        int64        `json:"size"`
	File        *fileFacet   `json:"file"`
	Folder      *folderFacet `json:"folder"`
	DownloadURL string       `json:"@microsoft.graph.downloadUrl"` //nolint:tagliatelle // Graph API annotation key
}

type fileFacet struct {
	MimeType string `json:"mimeType"`
}

type folderFacet struct {
	ChildCount *int `json:"childCount"`
}

// listChildrenResponse keeps items raw so a single malformed entry cannot
// fail the whole listing. A nil Value means the field was absent.
type listChildrenResponse struct {
	Value    *[]json.RawMessage `json:"value"`
	NextLink string             `json:"@odata.nextLink"` //nolint:tagliatelle // OData annotation key
}

// parseItem classifies one raw listing entry. It fails closed: anything that
// does not decode, has no id, or carries both a file and a folder facet is
// KindOther.
func parseItem(raw json.RawMessage, logger *slog.Logger) Item {
	var d driveItemResponse
	if err := json.Unmarshal(raw, &d); err != nil {
		logger.Debug("skipping undecodable item", slog.String("error", err.Error()))

		return Item{Kind: KindOther}
	}

	item := Item{
		Kind:       KindOther,
		ID:         d.ID,
		Name:       d.Name,
		Size:       d.Size,
		ChildCount: ChildCountUnknown,
	}

	if d.ID == "" {
		logger.Debug("skipping item without id", slog.String("name", d.Name))

		return item
	}

	switch {
	case d.Folder != nil && d.File != nil:
		logger.Debug("skipping item with both file and folder facets",
			slog.String("item_id", d.ID),
		)
	case d.Folder != nil:
		item.Kind = KindFolder
		if d.Folder.ChildCount != nil {
			item.ChildCount = *d.Folder.ChildCount
		}
	case d.File != nil:
		item.Kind = KindFile
		item.MimeType = d.File.MimeType
		item.DownloadURL = DownloadURL(d.DownloadURL)
	}

	return item
}

// ListChildren fetches the first page of children of itemID in driveID.
// Use RootItemID for the drive root. Continuation pages are not followed;
// a truncated listing is logged and reported via NextLink.
func (s *Site) ListChildren(ctx context.Context, driveID, itemID string) (*ChildrenPage, error) {
	c := s.client

	c.logger.Debug("listing children",
		slog.String("drive_id", driveID),
		slog.String("item_id", itemID),
	)

	path := fmt.Sprintf("%s/drives/%s/items/%s/children", s.prefix(), driveID, itemID)

	var lcr listChildrenResponse
	if err := c.getJSON(ctx, path, &lcr); err != nil {
		return nil, err
	}

	page := &ChildrenPage{NextLink: lcr.NextLink}

	if lcr.Value == nil {
		return page, nil
	}

	page.ValuePresent = true
	page.Items = make([]Item, 0, len(*lcr.Value))

	for _, raw := range *lcr.Value {
		page.Items = append(page.Items, parseItem(raw, c.logger))
	}

	if page.NextLink != "" {
		c.logger.Warn("children listing truncated, continuation not followed",
			slog.String("drive_id", driveID),
			slog.String("item_id", itemID),
			slog.Int("count", len(page.Items)),
		)
	}

	c.logger.Debug("listed children",
		slog.String("drive_id", driveID),
		slog.String("item_id", itemID),
		slog.Int("count", len(page.Items)),
	)

	return page, nil
}
