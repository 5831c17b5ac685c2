package graph

import (
	"context"
	"log/slog"
)

// DefaultSite addresses the tenant's root SharePoint site.
const DefaultSite = "root"

// driveResponse mirrors the Graph API drive JSON response.
// Unexported; callers use Drive via toDrive() normalization.
type driveResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	DriveType string `json:"driveType"`
	WebURL    string `json:"webUrl"`
}

// drivesListResponse wraps the value array from GET /sites/{site}/drives.
// A nil Value means the field was absent.
type drivesListResponse struct {
	Value *[]driveResponse `json:"value"`
}

func (d *driveResponse) toDrive() Drive {
	return Drive{
		ID:        d.ID,
		Name:      d.Name,
		DriveType: d.DriveType,
		WebURL:    d.WebURL,
	}
}

// Site scopes drive and children listings to one SharePoint site. The site
// is either "root" or a Graph site reference such as
// "contoso.sharepoint.com" or "contoso.sharepoint.com:/sites/team:".
type Site struct {
	client *Client
	site   string
}

// Site returns a view of c scoped to the given site.
func (c *Client) Site(site string) *Site {
	if site == "" {
		site = DefaultSite
	}

	return &Site{client: c, site: site}
}

func (s *Site) prefix() string {
	return "/sites/" + s.site
}

// Drives lists the document libraries of the site in the order Graph
// returns them. Entries without an id are dropped.
func (s *Site) Drives(ctx context.Context) (*DriveList, error) {
	c := s.client

	c.logger.Info("listing site drives", slog.String("site", s.site))

	var dlr drivesListResponse
	if err := c.getJSON(ctx, s.prefix()+"/drives", &dlr); err != nil {
		return nil, err
	}

	list := &DriveList{}

	if dlr.Value == nil {
		c.logger.Warn("drive listing has no value", slog.String("site", s.site))

		return list, nil
	}

	list.ValuePresent = true
	list.Drives = make([]Drive, 0, len(*dlr.Value))

	for i := range *dlr.Value {
		d := (*dlr.Value)[i]
		if d.ID == "" {
			c.logger.Debug("skipping drive without id", slog.String("name", d.Name))

			continue
		}

		list.Drives = append(list.Drives, d.toDrive())
	}

	c.logger.Info("listed drives",
		slog.String("site", s.site),
		slog.Int("count", len(list.Drives)),
	)

	return list, nil
}
