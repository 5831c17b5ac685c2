package graph

import (
	"log/slog"
	"time"
)

// ChildCountUnknown indicates the child count was not present in the API response.
const ChildCountUnknown = -1

// RootItemID is the Graph alias for a drive's root folder.
const RootItemID = "root"

// DownloadURL is a pre-authenticated, short-lived link to a file's content.
// Anyone holding it can read the file, so it redacts itself when logged.
type DownloadURL string

// LogValue implements slog.LogValuer.
func (u DownloadURL) LogValue() slog.Value {
	if u == "" {
		return slog.StringValue("")
	}

	return slog.StringValue("[REDACTED]")
}

// ItemKind tags a listed drive item. Items that cannot be classified are
// KindOther and are ignored by every consumer.
type ItemKind int

const (
	KindOther ItemKind = iota
	KindFolder
	KindFile
)

func (k ItemKind) String() string {
	switch k {
	case KindFolder:
		return "folder"
	case KindFile:
		return "file"
	default:
		return "other"
	}
}

// Item is a normalized drive item from a children listing.
// Fields that only apply to one kind are zero for the others.
type Item struct {
	Kind        ItemKind
	ID          string
	Name        string
	Size        int64
	ChildCount  int         // folders only; ChildCountUnknown if not present
	MimeType    string      // files only
	DownloadURL DownloadURL // files only
}

// ChildrenPage is one page of a children listing. ValuePresent is false when
// the response carried no "value" array at all, which callers treat as an
// empty folder rather than an error.
type ChildrenPage struct {
	Items        []Item
	ValuePresent bool
	// NextLink is set when the listing was truncated. It is reported but
	// never followed.
	NextLink string
}

// Drive is a document library of a SharePoint site.
type Drive struct {
	ID        string
	Name      string
	DriveType string
	WebURL    string
}

// DriveList is the result of listing a site's drives.
type DriveList struct {
	Drives       []Drive
	ValuePresent bool
}

// Credential is a Graph-scoped token pair produced by the Exchanger. It lives
// for one request and is never persisted.
type Credential struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}
