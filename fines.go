package empmos

import (
	"context"
	"fmt"
)

// CarFines returns traffic fines registered for a vehicle registration
// certificate (STS) number.
func (c *Client) CarFines(stsNumber string) (CarFines, error) {
	return c.CarFinesWithContext(context.Background(), stsNumber)
}

// CarFinesWithContext returns traffic fines with a caller-supplied context.
func (c *Client) CarFinesWithContext(ctx context.Context, stsNumber string) (CarFines, error) {
	if stsNumber == "" {
		return nil, fmt.Errorf("stsNumber cannot be empty")
	}
	var result CarFines
	if err := c.post(ctx, epCarFines, map[string]any{"sts_number": stsNumber}, &result); err != nil {
		return nil, fmt.Errorf("car fines for %s: %w", stsNumber, err)
	}
	return result, nil
}
