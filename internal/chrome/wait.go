package chrome

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

const pollInterval = 100 * time.Millisecond

// WaitFor polls until an element matching selector is present in the
// document, timeout elapses, or ctx is done.
func (c *Client) WaitFor(ctx context.Context, targetID string, selector string, timeout time.Duration) error {
	sessionID, err := c.attachToTarget(ctx, targetID)
	if err != nil {
		return err
	}

	deadline := time.Now().Add(timeout)
	expr := fmt.Sprintf(`document.querySelector(%q) !== null`, selector)

	for {
		value, err := c.evaluate(ctx, sessionID, expr)
		if err != nil {
			return fmt.Errorf("checking selector: %w", err)
		}

		var found bool
		if err := json.Unmarshal(value, &found); err != nil {
			return fmt.Errorf("parsing selector check: %w", err)
		}
		if found {
			return nil
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %s", ErrWaitTimeout, selector)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}
