package empmos

import (
	"context"
	"fmt"
)

// WaterCounters returns the water meters of a flat with their reading history.
func (c *Client) WaterCounters(flatID string) (WaterCounters, error) {
	return c.WaterCountersWithContext(context.Background(), flatID)
}

// WaterCountersWithContext returns the water meters with a caller-supplied context.
func (c *Client) WaterCountersWithContext(ctx context.Context, flatID string) (WaterCounters, error) {
	if flatID == "" {
		return nil, fmt.Errorf("flatID cannot be empty")
	}
	var resp WaterCounters
	err := c.post(ctx, epWaterGet, map[string]any{
		"flat_id":   flatID,
		"is_widget": false,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("water counters for flat %s: %w", flatID, err)
	}
	return resp, nil
}

// SendWaterCounters submits readings, one per counter. Rejections come back
// as one of the CounterRejectedError kinds.
func (c *Client) SendWaterCounters(flatID string, readings []CounterReading) (Record, error) {
	return c.SendWaterCountersWithContext(context.Background(), flatID, readings)
}

// SendWaterCountersWithContext submits readings with a caller-supplied context.
func (c *Client) SendWaterCountersWithContext(ctx context.Context, flatID string, readings []CounterReading) (Record, error) {
	return c.sendReadings(ctx, epWaterSend, flatID, readings)
}

// ElectroCounters returns the electricity meter of a flat.
func (c *Client) ElectroCounters(flatID string) (ElectroCounters, error) {
	return c.ElectroCountersWithContext(context.Background(), flatID)
}

// ElectroCountersWithContext returns the electricity meter with a caller-supplied context.
func (c *Client) ElectroCountersWithContext(ctx context.Context, flatID string) (ElectroCounters, error) {
	if flatID == "" {
		return nil, fmt.Errorf("flatID cannot be empty")
	}
	var resp ElectroCounters
	err := c.post(ctx, epElectroGet, map[string]any{
		"flat_id":   flatID,
		"is_widget": false,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("electro counters for flat %s: %w", flatID, err)
	}
	return resp, nil
}

// SendElectroCounters submits electricity readings, one per counter.
func (c *Client) SendElectroCounters(flatID string, readings []CounterReading) (Record, error) {
	return c.SendElectroCountersWithContext(context.Background(), flatID, readings)
}

// SendElectroCountersWithContext submits electricity readings with a caller-supplied context.
func (c *Client) SendElectroCountersWithContext(ctx context.Context, flatID string, readings []CounterReading) (Record, error) {
	return c.sendReadings(ctx, epElectroSend, flatID, readings)
}

func (c *Client) sendReadings(ctx context.Context, ep endpoint, flatID string, readings []CounterReading) (Record, error) {
	if flatID == "" {
		return nil, fmt.Errorf("flatID cannot be empty")
	}
	if len(readings) == 0 {
		return nil, fmt.Errorf("readings cannot be empty")
	}
	seen := make(map[int]struct{}, len(readings))
	for _, r := range readings {
		if _, dup := seen[r.CounterID]; dup {
			return nil, fmt.Errorf("duplicate reading for counter %d", r.CounterID)
		}
		seen[r.CounterID] = struct{}{}
	}
	var result Record
	err := c.post(ctx, ep, map[string]any{
		"flat_id":       flatID,
		"counters_data": readings,
	}, &result)
	if err != nil {
		return nil, fmt.Errorf("send readings for flat %s: %w", flatID, err)
	}
	return result, nil
}
