package actions

import (
	"context"
	"fmt"

	"github.com/mattsolo1/grove-explorer/pkg/backend"
	"github.com/mattsolo1/grove-explorer/pkg/tree"
)

type GroupPermissions struct {
	Write bool
}

// Permissions of the current user on a node. Item is nil for anything that
// is not an item.
type Permissions struct {
	Group GroupPermissions
	Item  *backend.Permissions
}

// FetchGroupPermissions returns the user's rights on a group. Group
// management rights are not exposed by the backend; every member can write.
func FetchGroupPermissions(_ context.Context, _ string) (GroupPermissions, error) {
	return GroupPermissions{Write: true}, nil
}

// FetchItemPermissions returns the user's rights on an item. Items coming
// from a non-local origin are read-only and cannot be shared.
func FetchItemPermissions(ctx context.Context, exec backend.Executor, n *tree.Node) (*backend.Permissions, error) {
	if remoteOrigin(n) {
		return &backend.Permissions{Read: true, Write: false, Share: false}, nil
	}
	perms, err := exec.GetPermissions(ctx, n.Item.AssetID)
	if err != nil {
		return nil, fmt.Errorf("get permissions of %q: %w", n.Item.AssetID, err)
	}
	return perms, nil
}

func remoteOrigin(n *tree.Node) bool {
	return n.Origin != nil && !n.Origin.Local
}

func hasItemModifyPermission(n *tree.Node, p Permissions) bool {
	if p.Item == nil {
		return false
	}
	if !p.Item.Write || !p.Group.Write {
		return false
	}
	return !remoteOrigin(n)
}

func hasItemSharePermission(p Permissions) bool {
	return p.Item != nil && p.Item.Share
}

func hasGroupModifyPermission(p Permissions) bool {
	return p.Group.Write
}
