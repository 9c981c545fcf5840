package graphadapter

import (
	"context"
	"fmt"
	"net/url"

	"github.com/mail-archiver/mail-archiver/internal/provider"
)

type graphFolder struct {
	ID            string `json:"id"`
	DisplayName   string `json:"displayName"`
	ChildFolderCount int `json:"childFolderCount"`
}

type graphFolderPage struct {
	Value    []graphFolder `json:"value"`
	NextLink string        `json:"@odata.nextLink"`
}

// ListFolders walks the mail folder tree breadth-first, paging each level
// and recursing into children (spec §4.E "folder tree paging + recursion").
func (a *Adapter) ListFolders(ctx context.Context) ([]provider.Folder, error) {
	root, err := a.listFolderLevel(ctx, fmt.Sprintf("/users/%s/mailFolders", url.PathEscape(a.account.Email)), "")
	if err != nil {
		return nil, err
	}

	var out []provider.Folder
	seen := make(map[string]bool)
	queue := root
	for len(queue) > 0 {
		f := queue[0]
		queue = queue[1:]
		if seen[f.ID] {
			continue
		}
		seen[f.ID] = true
		out = append(out, provider.Folder{Name: f.DisplayName, FullPath: f.ID, Selectable: true})

		if f.ChildFolderCount > 0 {
			children, err := a.listFolderLevel(ctx, fmt.Sprintf("/users/%s/mailFolders/%s/childFolders", url.PathEscape(a.account.Email), f.ID), "")
			if err != nil {
				continue
			}
			queue = append(queue, children...)
		}
	}
	return out, nil
}

func (a *Adapter) listFolderLevel(ctx context.Context, basePath string, _ string) ([]graphFolder, error) {
	var all []graphFolder
	path := basePath + "?$top=100"
	first := true
	for path != "" {
		var page graphFolderPage
		var err error
		if first {
			err = a.get(ctx, path, &page)
			first = false
		} else {
			err = a.getRaw(ctx, path, &page)
		}
		if err != nil {
			return nil, provider.Wrap(provider.KindProviderMisbehavior, fmt.Errorf("graph list folders: %w", err))
		}
		all = append(all, page.Value...)
		path = page.NextLink
	}
	return all, nil
}
