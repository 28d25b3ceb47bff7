package chrome

import (
	"context"
	"encoding/json"
	"fmt"
)

// resolveNodeID runs querySelector against a fresh document root and returns
// the node ID of the first match.
func (c *Client) resolveNodeID(ctx context.Context, sessionID string, selector string) (int64, error) {
	if _, err := c.CallSession(ctx, sessionID, "DOM.enable", nil); err != nil {
		return 0, fmt.Errorf("enabling DOM domain: %w", err)
	}

	docResult, err := c.CallSession(ctx, sessionID, "DOM.getDocument", nil)
	if err != nil {
		return 0, fmt.Errorf("getting document: %w", err)
	}

	var docResp struct {
		Root struct {
			NodeID int64 `json:"nodeId"`
		} `json:"root"`
	}
	if err := json.Unmarshal(docResult, &docResp); err != nil {
		return 0, fmt.Errorf("parsing document response: %w", err)
	}

	queryResult, err := c.CallSession(ctx, sessionID, "DOM.querySelector", map[string]interface{}{
		"nodeId":   docResp.Root.NodeID,
		"selector": selector,
	})
	if err != nil {
		return 0, fmt.Errorf("querying selector: %w", err)
	}

	var queryResp struct {
		NodeID int64 `json:"nodeId"`
	}
	if err := json.Unmarshal(queryResult, &queryResp); err != nil {
		return 0, fmt.Errorf("parsing query response: %w", err)
	}
	if queryResp.NodeID == 0 {
		return 0, fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}

	return queryResp.NodeID, nil
}

// getNodeCenter scrolls the node into view and returns the center of its
// content quad in viewport coordinates.
func (c *Client) getNodeCenter(ctx context.Context, sessionID string, nodeID int64) (x, y float64, err error) {
	if _, err := c.CallSession(ctx, sessionID, "DOM.scrollIntoViewIfNeeded", map[string]interface{}{
		"nodeId": nodeID,
	}); err != nil {
		return 0, 0, fmt.Errorf("scrolling into view: %w", err)
	}

	boxResult, err := c.CallSession(ctx, sessionID, "DOM.getBoxModel", map[string]interface{}{
		"nodeId": nodeID,
	})
	if err != nil {
		return 0, 0, fmt.Errorf("getting box model: %w", err)
	}

	var boxResp struct {
		Model struct {
			Content []float64 `json:"content"`
		} `json:"model"`
	}
	if err := json.Unmarshal(boxResult, &boxResp); err != nil {
		return 0, 0, fmt.Errorf("parsing box model response: %w", err)
	}

	content := boxResp.Model.Content
	if len(content) < 8 {
		return 0, 0, fmt.Errorf("invalid box model")
	}

	x = (content[0] + content[2] + content[4] + content[6]) / 4
	y = (content[1] + content[3] + content[5] + content[7]) / 4
	return x, y, nil
}

// dispatchMouseClick sends mouseMoved, mousePressed and mouseReleased at x, y.
func (c *Client) dispatchMouseClick(ctx context.Context, sessionID string, x, y float64) error {
	for _, typ := range []string{"mouseMoved", "mousePressed", "mouseReleased"} {
		params := map[string]interface{}{
			"type": typ,
			"x":    x,
			"y":    y,
		}
		if typ != "mouseMoved" {
			params["button"] = "left"
			params["clickCount"] = 1
		}
		if _, err := c.CallSession(ctx, sessionID, "Input.dispatchMouseEvent", params); err != nil {
			return fmt.Errorf("dispatching %s: %w", typ, err)
		}
	}
	return nil
}
