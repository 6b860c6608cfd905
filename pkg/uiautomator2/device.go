package uiautomator2

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Source returns the UI hierarchy as XML.
func (c *Client) Source(ctx context.Context) (string, error) {
	data, err := c.request(ctx, "GET", c.sessionPath("/source"), nil)
	if err != nil {
		return "", err
	}

	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", err
	}

	source, ok := resp.Value.(string)
	if !ok {
		return "", fmt.Errorf("unexpected source response")
	}
	return source, nil
}

// Screenshot captures the screen as PNG.
func (c *Client) Screenshot(ctx context.Context) ([]byte, error) {
	data, err := c.request(ctx, "GET", c.sessionPath("/screenshot"), nil)
	if err != nil {
		return nil, err
	}

	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}

	b64, ok := resp.Value.(string)
	if !ok {
		return nil, fmt.Errorf("unexpected screenshot response")
	}

	return decodeBase64(b64)
}

// UpdateSettings changes server settings such as waitForIdleTimeout.
func (c *Client) UpdateSettings(ctx context.Context, settings map[string]interface{}) error {
	_, err := c.request(ctx, "POST", c.sessionPath("/appium/settings"), SettingsRequest{Settings: settings})
	return err
}

func decodeBase64(s string) ([]byte, error) {
	out, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	return out, nil
}
