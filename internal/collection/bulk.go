package collection

import (
	"context"
	"net/url"
	"strings"

	"github.com/brickfolio/brickfolio/internal/api"
	"github.com/brickfolio/brickfolio/internal/models"
	"github.com/brickfolio/brickfolio/internal/setnum"
)

// ResolveSets resolves many set references in one round trip. The
// result preserves the input order and drops references the server
// could not resolve, rather than padding with empty records.
//
// Callers may hold either bare catalog numbers or fully-qualified
// variant references for the same set, and the server is only
// guaranteed to recognize one canonical spelling. The lookup therefore
// keys every returned record by its exact, plain and default-variant
// spellings, and each input resolves exact first, then plain, then
// default-variant.
func ResolveSets(ctx context.Context, client *api.Client, token string, refs []string) ([]models.SetLite, error) {
	wanted := make([]string, 0, len(refs))
	for _, r := range refs {
		if strings.TrimSpace(r) != "" {
			wanted = append(wanted, strings.TrimSpace(r))
		}
	}
	if len(wanted) == 0 {
		return []models.SetLite{}, nil
	}

	query := setnum.Dedupe(wanted)

	params := url.Values{}
	params.Set("set_nums", strings.Join(query, ","))

	var records []models.SetLite
	err := client.DoInto(ctx, "/sets/bulk?"+params.Encode(), api.Options{Token: token}, &records)
	if err != nil {
		return nil, err
	}

	byKey := make(map[string]*models.SetLite, len(records)*3)
	for i := range records {
		sn := strings.TrimSpace(records[i].SetNum)
		if sn == "" {
			continue
		}
		byKey[sn] = &records[i]
		byKey[setnum.ToPlain(sn)] = &records[i]
		byKey[setnum.ToDefaultVariant(sn)] = &records[i]
	}

	out := make([]models.SetLite, 0, len(wanted))
	for _, r := range wanted {
		rec := byKey[r]
		if rec == nil {
			rec = byKey[setnum.ToPlain(r)]
		}
		if rec == nil {
			rec = byKey[setnum.ToDefaultVariant(r)]
		}
		if rec != nil {
			out = append(out, *rec)
		}
	}
	return out, nil
}

// ResolveListSets resolves the cached items of a list.
func (v *View) ResolveListSets(ctx context.Context, listID int64) ([]models.SetLite, error) {
	d := v.Detail(listID)
	if d == nil {
		return []models.SetLite{}, nil
	}
	return ResolveSets(ctx, v.api, v.tokens.Token(), d.SetNums())
}
