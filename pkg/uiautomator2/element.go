package uiautomator2

import (
	"context"
	"encoding/json"
	"fmt"
)

// Element represents a UI element on the device.
type Element struct {
	id     string
	client *Client
}

// ID returns the element ID.
func (e *Element) ID() string {
	return e.id
}

// FindElement finds a single element.
func (c *Client) FindElement(ctx context.Context, strategy, selector string) (*Element, error) {
	return c.FindElementWithContext(ctx, strategy, selector, "")
}

// FindElementWithContext finds an element within a parent element.
func (c *Client) FindElementWithContext(ctx context.Context, strategy, selector, contextID string) (*Element, error) {
	req := FindElementRequest{
		Strategy: strategy,
		Selector: selector,
		Context:  contextID,
	}

	data, err := c.request(ctx, "POST", c.sessionPath("/element"), req)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Value struct {
			ELEMENT string `json:"ELEMENT"`
		} `json:"value"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse element response: %w", err)
	}

	if resp.Value.ELEMENT == "" {
		return nil, &ServerError{Status: 404, Type: "no such element", Message: fmt.Sprintf("%s=%s", strategy, selector)}
	}

	return &Element{
		id:     resp.Value.ELEMENT,
		client: c,
	}, nil
}

// FindElementsWithContext finds every match within a parent element.
func (c *Client) FindElementsWithContext(ctx context.Context, strategy, selector, contextID string) ([]*Element, error) {
	req := FindElementRequest{
		Strategy: strategy,
		Selector: selector,
		Context:  contextID,
	}

	data, err := c.request(ctx, "POST", c.sessionPath("/elements"), req)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Value []struct {
			ELEMENT string `json:"ELEMENT"`
		} `json:"value"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse elements response: %w", err)
	}

	elements := make([]*Element, len(resp.Value))
	for i, v := range resp.Value {
		elements[i] = &Element{id: v.ELEMENT, client: c}
	}
	return elements, nil
}

// Click taps the element.
func (e *Element) Click(ctx context.Context) error {
	_, err := e.client.request(ctx, "POST", e.client.sessionPath("/element/"+e.id+"/click"), nil)
	return err
}

// SetText replaces the element's text. The launcher's test hooks treat a
// set-text on certain views as a request.
func (e *Element) SetText(ctx context.Context, text string) error {
	req := InputTextRequest{Text: text}
	_, err := e.client.request(ctx, "POST", e.client.sessionPath("/element/"+e.id+"/value"), req)
	return err
}

// Text returns the element's text content.
func (e *Element) Text(ctx context.Context) (string, error) {
	data, err := e.client.request(ctx, "GET", e.client.sessionPath("/element/"+e.id+"/text"), nil)
	if err != nil {
		return "", err
	}

	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", err
	}

	text, _ := resp.Value.(string)
	return text, nil
}

// Attribute returns an element attribute.
func (e *Element) Attribute(ctx context.Context, name string) (string, error) {
	data, err := e.client.request(ctx, "GET", e.client.sessionPath("/element/"+e.id+"/attribute/"+name), nil)
	if err != nil {
		return "", err
	}

	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", err
	}

	attr, _ := resp.Value.(string)
	return attr, nil
}

// Rect returns the element's bounds.
func (e *Element) Rect(ctx context.Context) (ElementRect, error) {
	data, err := e.client.request(ctx, "GET", e.client.sessionPath("/element/"+e.id+"/rect"), nil)
	if err != nil {
		return ElementRect{}, err
	}

	var resp struct {
		Value ElementRect `json:"value"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return ElementRect{}, err
	}

	return resp.Value, nil
}

// IsDisplayed checks if the element is visible.
func (e *Element) IsDisplayed(ctx context.Context) (bool, error) {
	attr, err := e.Attribute(ctx, "displayed")
	if err != nil {
		return false, err
	}
	return attr == "true", nil
}
