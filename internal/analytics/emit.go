package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

func newEventRequest(ctx context.Context, url string, ev Event) (*http.Request, error) {
	b, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("build event request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}
