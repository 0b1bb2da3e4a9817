package portal

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Preflight checks that the portal's login page is reachable before a browser
// is launched. A failure here saves the cost of a Chrome start that cannot
// succeed.
func Preflight(ctx context.Context, baseURL string) error {
	client := resty.New().
		SetTimeout(15 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return r != nil && (r.StatusCode() == 429 || (r.StatusCode() >= 500 && r.StatusCode() <= 504))
		})

	resp, err := client.R().
		SetContext(ctx).
		Get(baseURL + loginPath)
	if err != nil {
		return fmt.Errorf("portal unreachable: %w", err)
	}

	if !resp.IsSuccess() {
		return fmt.Errorf("portal returned HTTP %d for login page", resp.StatusCode())
	}

	return nil
}
