package chrome

import "context"

// Click clicks the center of the first element matching a CSS selector.
func (c *Client) Click(ctx context.Context, targetID string, selector string) error {
	sessionID, err := c.attachToTarget(ctx, targetID)
	if err != nil {
		return err
	}

	nodeID, err := c.resolveNodeID(ctx, sessionID, selector)
	if err != nil {
		return err
	}

	x, y, err := c.getNodeCenter(ctx, sessionID, nodeID)
	if err != nil {
		return err
	}

	return c.dispatchMouseClick(ctx, sessionID, x, y)
}
