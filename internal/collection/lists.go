package collection

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/brickfolio/brickfolio/internal/api"
	"github.com/brickfolio/brickfolio/internal/models"
)

// ErrSystemList is returned for create/rename/delete attempts on a
// backend-owned list. Only membership of system lists may change.
var ErrSystemList = errors.New("collection: system lists cannot be modified")

func listPath(listID int64) string {
	return "/lists/" + url.PathEscape(fmt.Sprint(listID))
}

func (v *View) findList(listID int64) (models.ListSummary, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, l := range v.lists {
		if l.ID == listID {
			return l, true
		}
	}
	return models.ListSummary{}, false
}

// SetVisibility flips a custom list public or private, optimistically.
// On failure the previous visibility is restored and the error message
// is surfaced.
func (v *View) SetVisibility(ctx context.Context, listID int64, public bool) error {
	l, ok := v.findList(listID)
	if !ok {
		return fmt.Errorf("collection: unknown list %d", listID)
	}
	if l.System() {
		return ErrSystemList
	}
	prev := l.IsPublic

	v.mu.Lock()
	v.setPublicLocked(listID, public)
	v.mu.Unlock()

	_, err := v.api.Do(ctx, listPath(listID), api.Options{
		Method: http.MethodPatch,
		Token:  v.tokens.Token(),
		Body:   map[string]bool{"is_public": public},
	})
	if err != nil {
		v.mu.Lock()
		v.setPublicLocked(listID, prev)
		v.lastMsg = err.Error()
		v.mu.Unlock()
		return err
	}
	return nil
}

func (v *View) setPublicLocked(listID int64, public bool) {
	for i := range v.lists {
		if v.lists[i].ID == listID {
			v.lists[i].IsPublic = public
		}
	}
	if d := v.details[listID]; d != nil {
		d.IsPublic = public
	}
}

// CreateList creates a custom list and refreshes the cache so the
// server-assigned ID and counts are authoritative.
func (v *View) CreateList(ctx context.Context, title string, public bool) (models.ListSummary, error) {
	var created models.ListSummary
	err := v.api.DoInto(ctx, "/lists", api.Options{
		Method: http.MethodPost,
		Token:  v.tokens.Token(),
		Body:   map[string]any{"title": title, "is_public": public},
	}, &created)
	if err != nil {
		return models.ListSummary{}, err
	}
	if rerr := v.Refresh(ctx); rerr != nil {
		v.log.Warn("refresh after create failed", zap.Error(rerr))
	}
	return created, nil
}

// PublicLists fetches the public list directory. The result is not
// cached: public lists belong to other users and go stale on their
// schedule, not ours.
func (v *View) PublicLists(ctx context.Context) ([]models.ListDetail, error) {
	var lists []models.ListDetail
	err := v.api.DoInto(ctx, "/lists/public", api.Options{
		Method: http.MethodGet,
		Token:  v.tokens.Token(),
	}, &lists)
	if err != nil {
		return nil, err
	}
	return lists, nil
}

// RenameList retitles a custom list, optimistically.
func (v *View) RenameList(ctx context.Context, listID int64, title string) error {
	l, ok := v.findList(listID)
	if !ok {
		return fmt.Errorf("collection: unknown list %d", listID)
	}
	if l.System() {
		return ErrSystemList
	}
	prev := l.Title

	v.mu.Lock()
	v.setTitleLocked(listID, title)
	v.mu.Unlock()

	_, err := v.api.Do(ctx, listPath(listID), api.Options{
		Method: http.MethodPatch,
		Token:  v.tokens.Token(),
		Body:   map[string]string{"title": title},
	})
	if err != nil {
		v.mu.Lock()
		v.setTitleLocked(listID, prev)
		v.lastMsg = err.Error()
		v.mu.Unlock()
		return err
	}
	return nil
}

func (v *View) setTitleLocked(listID int64, title string) {
	for i := range v.lists {
		if v.lists[i].ID == listID {
			v.lists[i].Title = title
		}
	}
	if d := v.details[listID]; d != nil {
		d.Title = title
	}
}

// DeleteList removes a custom list, optimistically. System lists are
// refused.
func (v *View) DeleteList(ctx context.Context, listID int64) error {
	l, ok := v.findList(listID)
	if !ok {
		return fmt.Errorf("collection: unknown list %d", listID)
	}
	if l.System() {
		return ErrSystemList
	}

	v.mu.Lock()
	prevLists := append([]models.ListSummary(nil), v.lists...)
	prevDetail := v.details[listID]
	kept := make([]models.ListSummary, 0, len(v.lists))
	for _, x := range v.lists {
		if x.ID != listID {
			kept = append(kept, x)
		}
	}
	v.lists = kept
	delete(v.details, listID)
	v.mu.Unlock()

	_, err := v.api.Do(ctx, listPath(listID), api.Options{
		Method: http.MethodDelete,
		Token:  v.tokens.Token(),
	})
	if err != nil {
		v.mu.Lock()
		v.lists = prevLists
		if prevDetail != nil {
			v.details[listID] = prevDetail
		}
		v.lastMsg = err.Error()
		v.mu.Unlock()
		return err
	}
	return nil
}
