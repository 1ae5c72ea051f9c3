package adapter

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jobtrace/jobtrace/internal/model"
)

// getJSON issues a GET asking for JSON. The response is returned only for a
// 2xx status; the caller closes its body. Errors are prefixed with op.
func getJSON(ctx context.Context, client *http.Client, rawURL, op string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := model.StatusError(resp, op); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp, nil
}
