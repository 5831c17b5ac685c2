// Package walk builds the drive/folder forest of a SharePoint site by
// depth-first traversal, and lists the downloadable documents of one folder.
// All remote calls of a walk are issued sequentially from the caller's
// goroutine; a RateLimiter paces each folder descent.
package walk

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/chapterworks/spwalk/internal/graph"
)

// Lister is the slice of the Graph API the walker consumes.
// *graph.Site satisfies it.
type Lister interface {
	Drives(ctx context.Context) (*graph.DriveList, error)
	ListChildren(ctx context.Context, driveID, itemID string) (*graph.ChildrenPage, error)
}

// Node is a drive or folder. Children is never nil so it encodes as [].
type Node struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Children []*Node `json:"children"`
}

func newNode(id, name string) *Node {
	return &Node{ID: id, Name: name, Children: []*Node{}}
}

// FolderEvent reports a discovered drive (Depth 0) or folder.
type FolderEvent struct {
	DriveID string `json:"driveId"`
	ID      string `json:"id"`
	Name    string `json:"name"`
	Depth   int    `json:"depth"`
}

// Stats counts the work done by one walk.
type Stats struct {
	Drives   int
	Folders  int
	Listings int
	Descents int
	Files    int
}

// Options tunes a Walker.
type Options struct {
	// MimeType selects which files ListDownloadableFiles returns.
	// Defaults to DefaultMimeType.
	MimeType string
	// OnFolder, when set, is called synchronously for each discovered node.
	OnFolder func(FolderEvent)
}

// Walker traverses one site for one request. It is not safe for concurrent
// use; create one per walk.
type Walker struct {
	lister   Lister
	limiter  RateLimiter
	logger   *slog.Logger
	mimeType string
	onFolder func(FolderEvent)
	stats    Stats
}

// NewWalker creates a Walker. A nil limiter means FixedDelay(DefaultDelay).
func NewWalker(lister Lister, limiter RateLimiter, logger *slog.Logger, opts Options) *Walker {
	if limiter == nil {
		limiter = FixedDelay(DefaultDelay)
	}

	if logger == nil {
		logger = slog.Default()
	}

	if opts.MimeType == "" {
		opts.MimeType = DefaultMimeType
	}

	return &Walker{
		lister:   lister,
		limiter:  limiter,
		logger:   logger,
		mimeType: opts.MimeType,
		onFolder: opts.OnFolder,
	}
}

// Stats returns the counters accumulated so far.
func (w *Walker) Stats() Stats {
	return w.stats
}

// BuildForest lists the site's drives and walks each from its root folder,
// one drive after another in listing order. On error no forest is returned.
func (w *Walker) BuildForest(ctx context.Context) ([]*Node, error) {
	list, err := w.lister.Drives(ctx)
	if err != nil {
		return nil, fmt.Errorf("walk: listing drives: %w", err)
	}

	w.stats.Listings++

	forest := make([]*Node, 0, len(list.Drives))

	for _, d := range list.Drives {
		driveNode := newNode(d.ID, d.Name)
		forest = append(forest, driveNode)
		w.stats.Drives++
		w.emit(FolderEvent{DriveID: d.ID, ID: d.ID, Name: d.Name})

		children, err := w.traverse(ctx, d.ID, graph.RootItemID, 1)
		if err != nil {
			return nil, err
		}

		driveNode.Children = children

		w.logger.Info("walked drive",
			slog.String("drive_id", d.ID),
			slog.String("name", d.Name),
			slog.Int("top_level_folders", len(children)),
		)
	}

	w.logger.Info("forest complete",
		slog.Int("drives", w.stats.Drives),
		slog.Int("folders", w.stats.Folders),
		slog.Int("listings", w.stats.Listings),
	)

	return forest, nil
}

// Traverse returns the folder subtree below folderID in driveID. Folders
// keep listing order. A folder is only descended into when it reports a
// positive child count, and the limiter is waited on right before each
// descent.
func (w *Walker) Traverse(ctx context.Context, driveID, folderID string) ([]*Node, error) {
	return w.traverse(ctx, driveID, folderID, 1)
}

func (w *Walker) traverse(ctx context.Context, driveID, folderID string, depth int) ([]*Node, error) {
	page, err := w.lister.ListChildren(ctx, driveID, folderID)
	if err != nil {
		return nil, fmt.Errorf("walk: listing folder %s in drive %s: %w", folderID, driveID, err)
	}

	w.stats.Listings++

	nodes := []*Node{}

	if !page.ValuePresent {
		w.logger.Debug("listing has no value, treating as empty",
			slog.String("drive_id", driveID),
			slog.String("item_id", folderID),
		)

		return nodes, nil
	}

	for i := range page.Items {
		item := &page.Items[i]
		if item.Kind != graph.KindFolder {
			continue
		}

		node := newNode(item.ID, item.Name)
		nodes = append(nodes, node)
		w.stats.Folders++
		w.emit(FolderEvent{DriveID: driveID, ID: item.ID, Name: item.Name, Depth: depth})

		if item.ChildCount <= 0 {
			continue
		}

		if err := w.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("walk: waiting to descend into %s: %w", item.ID, err)
		}

		w.stats.Descents++

		children, err := w.traverse(ctx, driveID, item.ID, depth+1)
		if err != nil {
			return nil, err
		}

		node.Children = children
	}

	return nodes, nil
}

func (w *Walker) emit(ev FolderEvent) {
	if w.onFolder != nil {
		w.onFolder(ev)
	}
}
