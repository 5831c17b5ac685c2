package walk

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/chapterworks/spwalk/internal/graph"
)

// ErrNoTargetFolder is returned when the forest has no folder matching the
// selection.
var ErrNoTargetFolder = errors.New("walk: no target folder")

// Target is the folder whose files are collected.
type Target struct {
	DriveID  string
	FolderID string
	Path     string // display path, "<drive>/<folder>/..."
}

// Selector picks the file-listing target out of a walked forest.
//
// With an empty FolderPath the first drive's first folder is chosen. A
// FolderPath of the form "<drive name>/<folder>/<sub>" is resolved segment by
// segment, comparing NFC-normalized, case-folded names; a path naming only a
// drive selects that drive's root. DriveID, when set, overrides the drive
// used for the listing call.
type Selector struct {
	DriveID    string
	FolderPath string
}

// Select resolves the target in forest.
func (s Selector) Select(forest []*Node) (Target, error) {
	var (
		target Target
		err    error
	)

	if segments := splitPath(s.FolderPath); len(segments) == 0 {
		target, err = selectFirst(forest)
	} else {
		target, err = selectPath(forest, segments)
	}

	if err != nil {
		return Target{}, err
	}

	if s.DriveID != "" {
		target.DriveID = s.DriveID
	}

	return target, nil
}

func selectFirst(forest []*Node) (Target, error) {
	if len(forest) == 0 {
		return Target{}, fmt.Errorf("%w: site has no drives", ErrNoTargetFolder)
	}

	drive := forest[0]
	if len(drive.Children) == 0 {
		return Target{}, fmt.Errorf("%w: drive %q has no folders", ErrNoTargetFolder, drive.Name)
	}

	folder := drive.Children[0]

	return Target{
		DriveID:  drive.ID,
		FolderID: folder.ID,
		Path:     drive.Name + "/" + folder.Name,
	}, nil
}

// selectPath resolves non-empty segments, drive name first.
func selectPath(forest []*Node, segments []string) (Target, error) {
	fold := cases.Fold()

	key := func(name string) string {
		return fold.String(norm.NFC.String(name))
	}

	drive := findByName(forest, key(segments[0]), key)
	if drive == nil {
		return Target{}, fmt.Errorf("%w: no drive named %q", ErrNoTargetFolder, segments[0])
	}

	target := Target{DriveID: drive.ID, FolderID: graph.RootItemID, Path: drive.Name}
	level := drive.Children

	for _, seg := range segments[1:] {
		folder := findByName(level, key(seg), key)
		if folder == nil {
			return Target{}, fmt.Errorf("%w: no folder %q under %q", ErrNoTargetFolder, seg, target.Path)
		}

		target.FolderID = folder.ID
		target.Path += "/" + folder.Name
		level = folder.Children
	}

	return target, nil
}

func findByName(nodes []*Node, want string, key func(string) string) *Node {
	for _, n := range nodes {
		if key(n.Name) == want {
			return n
		}
	}

	return nil
}

// splitPath returns the non-blank "/"-separated segments of p.
func splitPath(p string) []string {
	raw := strings.Split(p, "/")
	segments := make([]string, 0, len(raw))

	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			segments = append(segments, s)
		}
	}

	return segments
}
