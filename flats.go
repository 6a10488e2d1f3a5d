package empmos

import (
	"context"
	"fmt"
)

const defaultAddressSearchLimit = 100

// Profile returns the account owner data.
func (c *Client) Profile() (Profile, error) {
	return c.ProfileWithContext(context.Background())
}

// ProfileWithContext returns the account owner data with a caller-supplied context.
func (c *Client) ProfileWithContext(ctx context.Context) (Profile, error) {
	var resp struct {
		Profile Profile `json:"profile"`
	}
	if err := c.get(ctx, epProfile, &resp); err != nil {
		return nil, err
	}
	return resp.Profile, nil
}

// Flats lists the flats attached to the account.
func (c *Client) Flats() ([]Flat, error) {
	return c.FlatsWithContext(context.Background())
}

// FlatsWithContext lists the flats with a caller-supplied context.
func (c *Client) FlatsWithContext(ctx context.Context) ([]Flat, error) {
	var flats []Flat
	if err := c.get(ctx, epFlats, &flats); err != nil {
		return nil, err
	}
	return flats, nil
}

// AddressSearch looks up buildings matching pattern. Results carry the unom
// and unad identifiers AddFlat needs. A non-positive limit means 100.
func (c *Client) AddressSearch(pattern string, limit int) ([]Address, error) {
	return c.AddressSearchWithContext(context.Background(), pattern, limit)
}

// AddressSearchWithContext looks up buildings with a caller-supplied context.
func (c *Client) AddressSearchWithContext(ctx context.Context, pattern string, limit int) ([]Address, error) {
	if pattern == "" {
		return nil, fmt.Errorf("pattern cannot be empty")
	}
	if limit <= 0 {
		limit = defaultAddressSearchLimit
	}
	var addresses []Address
	err := c.post(ctx, epAddressSearch, map[string]any{
		"limit":   limit,
		"pattern": pattern,
	}, &addresses)
	if err != nil {
		return nil, fmt.Errorf("address search %q: %w", pattern, err)
	}
	return addresses, nil
}

// FlatInput describes a flat to attach to the account.
type FlatInput struct {
	// Name is any user-chosen label.
	Name string
	// Unom and Unad identify the building; take them from AddressSearch.
	Unom    int
	Unad    int
	Address string
	// FlatNumber must be exact for meter submissions to be accepted.
	FlatNumber string
	Paycode    string
}

// AddFlat attaches a flat to the account and returns it as stored.
func (c *Client) AddFlat(in FlatInput) (Flat, error) {
	return c.AddFlatWithContext(context.Background(), in)
}

// AddFlatWithContext attaches a flat with a caller-supplied context.
func (c *Client) AddFlatWithContext(ctx context.Context, in FlatInput) (Flat, error) {
	var flat Flat
	err := c.post(ctx, epFlatAdd, map[string]any{
		"a":           0,
		"address":     in.Address,
		"can_update":  false,
		"flat_number": in.FlatNumber,
		"name":        in.Name,
		"paycode":     in.Paycode,
		"unad":        in.Unad,
		"unom":        in.Unom,
	}, &flat)
	if err != nil {
		return nil, fmt.Errorf("add flat %q: %w", in.Name, err)
	}
	return flat, nil
}

// DeleteFlat detaches a flat from the account.
func (c *Client) DeleteFlat(flatID string) error {
	return c.DeleteFlatWithContext(context.Background(), flatID)
}

// DeleteFlatWithContext detaches a flat with a caller-supplied context.
func (c *Client) DeleteFlatWithContext(ctx context.Context, flatID string) error {
	if flatID == "" {
		return fmt.Errorf("flatID cannot be empty")
	}
	if err := c.post(ctx, epFlatDelete, map[string]any{"flat_id": flatID}, nil); err != nil {
		return fmt.Errorf("delete flat %s: %w", flatID, err)
	}
	return nil
}
