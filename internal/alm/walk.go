package alm

import (
	"context"
	"fmt"
	"strings"
)

// WalkFunc receives each node of the test-plan tree in depth-first order.
// Exactly one of folder and test is non-nil per call. Returning an error
// aborts the walk.
type WalkFunc func(folder *Folder, test *Test) error

// Walk traverses the test-plan tree below the folder with the given id,
// depth-first, in server-provided (id-ascending) order: each folder is
// visited first, then the tests directly under it, then its subfolders
// recursively. A test is therefore never emitted before its parent folder.
func (c *Client) Walk(ctx context.Context, rootID int, visit WalkFunc) error {
	root, err := c.GetFolder(ctx, rootID)
	if err != nil {
		return err
	}
	return c.walkFolder(ctx, root, visit)
}

func (c *Client) walkFolder(ctx context.Context, folder Folder, visit WalkFunc) error {
	if err := visit(&folder, nil); err != nil {
		return err
	}

	tests, err := c.ListTests(ctx, folder.ID)
	if err != nil {
		return err
	}
	for i := range tests {
		if err := visit(nil, &tests[i]); err != nil {
			return err
		}
	}

	subfolders, err := c.ListSubfolders(ctx, folder.ID)
	if err != nil {
		return err
	}
	for _, sub := range subfolders {
		if err := c.walkFolder(ctx, sub, visit); err != nil {
			return err
		}
	}
	return nil
}

// ResolveFolderPath resolves a test-plan path like `Subject\Regression\IPv6`
// to a folder id by walking name queries level by level from the tree root.
// Both backslash and forward slash separators are accepted.
func (c *Client) ResolveFolderPath(ctx context.Context, path string) (int, error) {
	segments := splitFolderPath(path)
	if len(segments) == 0 {
		return 0, fmt.Errorf("%w: empty test folder path", ErrNotFound)
	}

	parentID := 0
	for _, name := range segments {
		entities, err := c.listEntities(ctx, "test-folders", []string{
			fmt.Sprintf("name[%s]", name),
			fmt.Sprintf("parent-id[%d]", parentID),
		})
		if err != nil {
			return 0, err
		}
		if len(entities) == 0 {
			return 0, fmt.Errorf("%w: test folder %q not found under parent %d",
				ErrNotFound, name, parentID)
		}
		folder := folderFromEntity(entities[0])
		parentID = folder.ID
	}
	return parentID, nil
}

func splitFolderPath(path string) []string {
	raw := strings.FieldsFunc(path, func(r rune) bool {
		return r == '\\' || r == '/'
	})
	segments := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}
