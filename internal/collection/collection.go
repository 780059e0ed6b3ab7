// Package collection caches the user's lists and system collections
// and mutates them optimistically: local state changes synchronously,
// the server is reconciled in the background, and failures roll the
// local change back.
package collection

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"go.uber.org/zap"

	"github.com/brickfolio/brickfolio/internal/api"
	"github.com/brickfolio/brickfolio/internal/models"
	"github.com/brickfolio/brickfolio/internal/setnum"
)

// ErrMutationInFlight is returned when a mutation for the same item is
// already running. Mutations on other items are not affected.
var ErrMutationInFlight = errors.New("collection: mutation already in flight for this item")

// TokenSource supplies the current bearer token. session.Manager
// satisfies it.
type TokenSource interface {
	Token() string
}

// View is the optimistically-mutated cache of the user's lists. It
// holds no authority: on any reconciliation failure the cached copy is
// refreshed from the server, never trusted.
type View struct {
	api    *api.Client
	tokens TokenSource
	log    *zap.Logger

	mu       sync.Mutex
	lists    []models.ListSummary
	details  map[int64]*models.ListDetail
	owned    []string
	wishlist []string
	busy     map[string]bool
	lastMsg  string

	// generation orders refreshes: only the last-initiated refresh
	// may install its result.
	generation int
}

// NewView builds a View. log may be nil.
func NewView(apiClient *api.Client, tokens TokenSource, log *zap.Logger) *View {
	if log == nil {
		log = zap.NewNop()
	}
	return &View{
		api:     apiClient,
		tokens:  tokens,
		log:     log,
		details: make(map[int64]*models.ListDetail),
		busy:    make(map[string]bool),
	}
}

// Lists returns the cached list summaries.
func (v *View) Lists() []models.ListSummary {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]models.ListSummary(nil), v.lists...)
}

// CustomLists returns the cached non-system lists.
func (v *View) CustomLists() []models.ListSummary {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]models.ListSummary, 0, len(v.lists))
	for _, l := range v.lists {
		if !l.System() {
			out = append(out, l)
		}
	}
	return out
}

// Detail returns the cached detail for a list, or nil.
func (v *View) Detail(listID int64) *models.ListDetail {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.details[listID]
}

// OwnedSetNums returns the cached owned membership.
func (v *View) OwnedSetNums() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.owned...)
}

// WishlistSetNums returns the cached wishlist membership.
func (v *View) WishlistSetNums() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.wishlist...)
}

// InOwned reports membership by plain-form equality.
func (v *View) InOwned(ref string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return setnum.ContainsRef(v.owned, ref)
}

// InWishlist reports membership by plain-form equality.
func (v *View) InWishlist(ref string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return setnum.ContainsRef(v.wishlist, ref)
}

// Busy reports whether a mutation for this item is in flight.
func (v *View) Busy(ref string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.busy[setnum.ToPlain(ref)]
}

// LastMessage returns and clears the most recent non-fatal mutation
// error message.
func (v *View) LastMessage() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	msg := v.lastMsg
	v.lastMsg = ""
	return msg
}

// Refresh re-reads the user's lists and system collection membership
// from the server. Overlapping refreshes resolve last-initiated-wins:
// a refresh that was superseded while in flight discards its result.
func (v *View) Refresh(ctx context.Context) error {
	token := v.tokens.Token()
	if token == "" {
		v.mu.Lock()
		v.generation++
		v.lists = nil
		v.details = make(map[int64]*models.ListDetail)
		v.owned = nil
		v.wishlist = nil
		v.mu.Unlock()
		return nil
	}

	v.mu.Lock()
	v.generation++
	gen := v.generation
	v.mu.Unlock()

	var lists []models.ListSummary
	if err := v.api.DoInto(ctx, "/lists/me", api.Options{Token: token}, &lists); err != nil {
		return fmt.Errorf("load lists: %w", err)
	}

	details := make(map[int64]*models.ListDetail, len(lists))
	for _, l := range lists {
		var d models.ListDetail
		path := "/lists/" + url.PathEscape(fmt.Sprint(l.ID))
		if err := v.api.DoInto(ctx, path, api.Options{Token: token}, &d); err != nil {
			// One unreadable list does not fail the whole refresh.
			v.log.Warn("loading list detail failed", zap.Int64("list_id", l.ID), zap.Error(err))
			continue
		}
		details[l.ID] = &d
	}

	var ownedRows, wishRows []models.CollectionRow
	if err := v.api.DoInto(ctx, "/collections/me/owned", api.Options{Token: token}, &ownedRows); err != nil {
		return fmt.Errorf("load owned collection: %w", err)
	}
	if err := v.api.DoInto(ctx, "/collections/me/wishlist", api.Options{Token: token}, &wishRows); err != nil {
		return fmt.Errorf("load wishlist collection: %w", err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.generation {
		// A newer refresh started while this one was in flight.
		return nil
	}
	v.lists = lists
	v.details = details
	v.owned = rowsToSetNums(ownedRows)
	v.wishlist = rowsToSetNums(wishRows)
	return nil
}

func rowsToSetNums(rows []models.CollectionRow) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		if r.SetNum != "" {
			out = append(out, r.SetNum)
		}
	}
	return out
}

// mutateItem runs one optimistic mutation for ref: mark busy, apply
// locally, issue the request, and on failure roll back and record a
// UI message. The caller's rollback closure must undo only ref's own
// membership change: mutations of other items may have been confirmed
// while this request was in flight, and those must survive.
func (v *View) mutateItem(ctx context.Context, ref string, apply, rollback func(), request func(context.Context) error) error {
	key := setnum.ToPlain(ref)
	if key == "" {
		return errors.New("collection: empty set number")
	}

	v.mu.Lock()
	if v.busy[key] {
		v.mu.Unlock()
		return ErrMutationInFlight
	}
	v.busy[key] = true
	apply()
	v.mu.Unlock()

	err := request(ctx)

	v.mu.Lock()
	delete(v.busy, key)
	if err != nil {
		rollback()
		v.lastMsg = err.Error()
	}
	v.mu.Unlock()

	if err != nil {
		return err
	}
	return nil
}

// removeRef filters refs by plain-form equality with ref.
func removeRef(refs []string, ref string) []string {
	out := make([]string, 0, len(refs))
	for _, x := range refs {
		if !setnum.Equal(x, ref) {
			out = append(out, x)
		}
	}
	return out
}

// indexRef locates ref in refs by plain-form equality, returning the
// index and the stored spelling, or (-1, "") when absent.
func indexRef(refs []string, ref string) (int, string) {
	for i, x := range refs {
		if setnum.Equal(x, ref) {
			return i, x
		}
	}
	return -1, ""
}

// insertRefAt puts ref back at position i, clamping when the slice
// shrank in the meantime.
func insertRefAt(refs []string, i int, ref string) []string {
	if i < 0 || i > len(refs) {
		i = len(refs)
	}
	refs = append(refs, "")
	copy(refs[i+1:], refs[i:])
	refs[i] = ref
	return refs
}

// ToggleOwned adds ref to the owned collection when absent and removes
// it when present. Owned and wishlist membership are mutually
// exclusive; selecting one locally clears the other.
func (v *View) ToggleOwned(ctx context.Context, ref string) error {
	return v.toggleSystem(ctx, models.SystemOwned, ref)
}

// ToggleWishlist adds ref to the wishlist when absent and removes it
// when present.
func (v *View) ToggleWishlist(ctx context.Context, ref string) error {
	return v.toggleSystem(ctx, models.SystemWishlist, ref)
}

func (v *View) toggleSystem(ctx context.Context, kind models.SystemKind, ref string) error {
	token := v.tokens.Token()

	v.mu.Lock()
	ownedIdx, ownedRef := indexRef(v.owned, ref)
	wishIdx, wishRef := indexRef(v.wishlist, ref)
	var adding bool
	switch kind {
	case models.SystemOwned:
		adding = ownedIdx < 0
	default:
		adding = wishIdx < 0
	}
	v.mu.Unlock()

	apply := func() {
		switch kind {
		case models.SystemOwned:
			if adding {
				v.owned = append(removeRef(v.owned, ref), ref)
				v.wishlist = removeRef(v.wishlist, ref)
			} else {
				v.owned = removeRef(v.owned, ref)
			}
		default:
			if adding {
				v.wishlist = append(removeRef(v.wishlist, ref), ref)
				v.owned = removeRef(v.owned, ref)
			} else {
				v.wishlist = removeRef(v.wishlist, ref)
			}
		}
	}
	rollback := func() {
		// Restore ref's own membership only.
		v.owned = removeRef(v.owned, ref)
		v.wishlist = removeRef(v.wishlist, ref)
		if ownedIdx >= 0 {
			v.owned = insertRefAt(v.owned, ownedIdx, ownedRef)
		}
		if wishIdx >= 0 {
			v.wishlist = insertRefAt(v.wishlist, wishIdx, wishRef)
		}
	}
	request := func(ctx context.Context) error {
		if adding {
			_, err := v.api.Do(ctx, "/collections/"+string(kind), api.Options{
				Method: http.MethodPost,
				Token:  token,
				Body:   map[string]string{"set_num": ref},
			})
			return err
		}
		_, err := v.api.Do(ctx, "/collections/"+string(kind)+"/"+url.PathEscape(setnum.DeleteParam(ref)), api.Options{
			Method: http.MethodDelete,
			Token:  token,
		})
		return err
	}
	return v.mutateItem(ctx, ref, apply, rollback, request)
}

// AddToList appends ref to a custom list. Adding an item already
// present is a local no-op.
func (v *View) AddToList(ctx context.Context, listID int64, ref string) error {
	token := v.tokens.Token()

	v.mu.Lock()
	d := v.details[listID]
	if d != nil && setnum.ContainsRef(d.SetNums(), ref) {
		v.mu.Unlock()
		return nil
	}
	created := d == nil
	v.mu.Unlock()

	apply := func() {
		cur := v.details[listID]
		if cur == nil {
			cur = &models.ListDetail{ListSummary: models.ListSummary{ID: listID}}
			v.details[listID] = cur
		}
		cur.Items = append(cur.Items, models.ListItem{SetNum: ref})
		cur.ItemsCount = len(cur.Items)
	}
	rollback := func() {
		// Remove only the item this mutation appended.
		cur := v.details[listID]
		if cur == nil {
			return
		}
		cur.Items = removeItem(cur.Items, ref)
		cur.ItemsCount = len(cur.Items)
		if created && len(cur.Items) == 0 {
			delete(v.details, listID)
		}
	}
	request := func(ctx context.Context) error {
		var updated models.ListDetail
		err := v.api.DoInto(ctx, listItemsPath(listID), api.Options{
			Method: http.MethodPost,
			Token:  token,
			Body:   map[string]string{"set_num": ref},
		}, &updated)
		if err != nil {
			return err
		}
		// The server returns the updated list; reconcile derived
		// fields (counts, positions) exactly.
		v.mu.Lock()
		v.details[listID] = &updated
		v.mu.Unlock()
		return nil
	}
	return v.mutateItem(ctx, ref, apply, rollback, request)
}

// RemoveFromList removes ref from a custom list. Removing an item
// already absent from local state is a no-op, not an error.
func (v *View) RemoveFromList(ctx context.Context, listID int64, ref string) error {
	token := v.tokens.Token()

	v.mu.Lock()
	d := v.details[listID]
	if d == nil || !setnum.ContainsRef(d.SetNums(), ref) {
		v.mu.Unlock()
		return nil
	}
	removedIdx := -1
	var removed models.ListItem
	for i, it := range d.Items {
		if setnum.Equal(it.SetNum, ref) {
			removedIdx, removed = i, it
			break
		}
	}
	v.mu.Unlock()

	apply := func() {
		cur := v.details[listID]
		if cur == nil {
			return
		}
		cur.Items = removeItem(cur.Items, ref)
		cur.ItemsCount = len(cur.Items)
	}
	rollback := func() {
		// Re-insert only the removed item, at its old position.
		cur := v.details[listID]
		if cur == nil || setnum.ContainsRef(cur.SetNums(), ref) {
			return
		}
		cur.Items = insertItemAt(cur.Items, removedIdx, removed)
		cur.ItemsCount = len(cur.Items)
	}
	request := func(ctx context.Context) error {
		_, err := v.api.Do(ctx, listItemsPath(listID)+"/"+url.PathEscape(setnum.DeleteParam(ref)), api.Options{
			Method: http.MethodDelete,
			Token:  token,
		})
		return err
	}
	return v.mutateItem(ctx, ref, apply, rollback, request)
}

func listItemsPath(listID int64) string {
	return "/lists/" + url.PathEscape(fmt.Sprint(listID)) + "/items"
}

// removeItem filters items by plain-form equality with ref.
func removeItem(items []models.ListItem, ref string) []models.ListItem {
	out := make([]models.ListItem, 0, len(items))
	for _, it := range items {
		if !setnum.Equal(it.SetNum, ref) {
			out = append(out, it)
		}
	}
	return out
}

func insertItemAt(items []models.ListItem, i int, item models.ListItem) []models.ListItem {
	if i < 0 || i > len(items) {
		i = len(items)
	}
	items = append(items, models.ListItem{})
	copy(items[i+1:], items[i:])
	items[i] = item
	return items
}
