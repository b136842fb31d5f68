package devicekit

import "context"

// Tap presses and releases at a screen point.
func (c *Client) Tap(ctx context.Context, x, y int) error {
	params := map[string]interface{}{
		"x":        x,
		"y":        y,
		"deviceId": "",
	}
	_, err := c.call(ctx, "device.io.tap", params)
	return err
}
