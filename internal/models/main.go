// Package models defines the wire types shared between the client
// layer and the catalog backend.
package models

// Identity is the authenticated user as reported by /users/me.
type Identity struct {
	// ID is the unique identifier for the user.
	ID int64 `json:"id"`
	// Username is the login name chosen by the user.
	Username string `json:"username"`
}

// SystemKind identifies the backend-owned system lists.
type SystemKind string

const (
	// SystemOwned is the backend-created "owned" collection.
	SystemOwned SystemKind = "owned"
	// SystemWishlist is the backend-created "wishlist" collection.
	SystemWishlist SystemKind = "wishlist"
)

// ListSummary is a list as returned by /lists/me and /lists/public.
type ListSummary struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	IsPublic   bool   `json:"is_public"`
	IsSystem   bool   `json:"is_system"`
	SystemKey  string `json:"system_key,omitempty"`
	ItemsCount int    `json:"items_count"`
}

// System reports whether the list is backend-owned (owned/wishlist).
// System lists are never created or deleted by the client; only their
// membership is mutated.
func (l ListSummary) System() bool {
	return l.IsSystem || l.SystemKey != ""
}

// ListItem is one entry of a list, ordered by Position.
type ListItem struct {
	SetNum   string `json:"set_num"`
	AddedAt  string `json:"added_at,omitempty"`
	Position int    `json:"position,omitempty"`
}

// ListDetail is the full list payload from /lists/{id}.
type ListDetail struct {
	ListSummary
	Owner string     `json:"owner,omitempty"`
	Items []ListItem `json:"items"`
}

// SetNums returns the ordered set numbers of the list's items,
// skipping blank entries.
func (l *ListDetail) SetNums() []string {
	if l == nil {
		return nil
	}
	out := make([]string, 0, len(l.Items))
	for _, it := range l.Items {
		if it.SetNum != "" {
			out = append(out, it.SetNum)
		}
	}
	return out
}

// SetLite is the compact set record returned by /sets/bulk and
// /sets/{setNum}.
type SetLite struct {
	SetNum   string `json:"set_num"`
	Name     string `json:"name,omitempty"`
	Year     int    `json:"year,omitempty"`
	NumParts int    `json:"num_parts,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
	Theme    string `json:"theme,omitempty"`
}

// CollectionRow is one membership row of a system collection
// (/collections/me/owned, /collections/me/wishlist).
type CollectionRow struct {
	SetNum  string `json:"set_num"`
	AddedAt string `json:"added_at,omitempty"`
}
