package chrome

import (
	"context"
	"encoding/json"
	"fmt"
)

// GetText returns the rendered innerText of the first element matching
// selector. It returns ErrElementNotFound when nothing matches.
func (c *Client) GetText(ctx context.Context, targetID string, selector string) (string, error) {
	sessionID, err := c.attachToTarget(ctx, targetID)
	if err != nil {
		return "", err
	}

	expr := fmt.Sprintf(`(() => { const el = document.querySelector(%q); return el === null ? null : el.innerText; })()`, selector)
	value, err := c.evaluate(ctx, sessionID, expr)
	if err != nil {
		return "", err
	}

	var text *string
	if len(value) > 0 {
		if err := json.Unmarshal(value, &text); err != nil {
			return "", fmt.Errorf("parsing text: %w", err)
		}
	}
	if text == nil {
		return "", fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	return *text, nil
}
