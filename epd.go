package empmos

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/retry.v1"
)

const (
	// EEPDCurrent requests the bill of the current period.
	EEPDCurrent = "current"

	defaultEEPDInterval = 2 * time.Second
	defaultEEPDTimeout  = 10 * time.Second
)

// EPD returns the bill summary of a flat. period is a date such as "27.09.2018".
func (c *Client) EPD(flatID, period string, isDebt bool) (EPD, error) {
	return c.EPDWithContext(context.Background(), flatID, period, isDebt)
}

// EPDWithContext returns the bill summary with a caller-supplied context.
func (c *Client) EPDWithContext(ctx context.Context, flatID, period string, isDebt bool) (EPD, error) {
	if flatID == "" {
		return nil, fmt.Errorf("flatID cannot be empty")
	}
	var result EPD
	err := c.post(ctx, epEPD, map[string]any{
		"flat_id": flatID,
		"period":  period,
		"is_debt": isDebt,
	}, &result)
	if err != nil {
		return nil, fmt.Errorf("epd for flat %s: %w", flatID, err)
	}
	return result, nil
}

// EEPD asks for the electronic bill document. The first call (empty rid)
// starts preparing the document and returns a request id; later calls with
// that rid return either the rid again or the document.
func (c *Client) EEPD(flatID, period, epdType, rid string) (EEPD, error) {
	return c.EEPDWithContext(context.Background(), flatID, period, epdType, rid)
}

// EEPDWithContext asks for the electronic bill document with a caller-supplied context.
func (c *Client) EEPDWithContext(ctx context.Context, flatID, period, epdType, rid string) (EEPD, error) {
	if flatID == "" {
		return nil, fmt.Errorf("flatID cannot be empty")
	}
	if epdType == "" {
		epdType = EEPDCurrent
	}
	fields := map[string]any{
		"flat_id": flatID,
		"period":  period,
		"type":    epdType,
	}
	if rid != "" {
		fields["rid"] = rid
	}
	var result EEPD
	if err := c.post(ctx, epEEPD, fields, &result); err != nil {
		return nil, fmt.Errorf("eepd for flat %s: %w", flatID, err)
	}
	if result == nil {
		result = EEPD{}
	}
	return result, nil
}

// WaitEEPD requests the electronic bill and polls every interval until the
// document is ready or timeout elapses. The deadline is checked before each
// attempt, never during one. On timeout it returns ok=false and a nil error.
// Zero interval and timeout mean 2s and 10s.
func (c *Client) WaitEEPD(ctx context.Context, flatID, period string, interval, timeout time.Duration) (doc EEPD, ok bool, err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if interval <= 0 {
		interval = defaultEEPDInterval
	}
	if timeout <= 0 {
		timeout = defaultEEPDTimeout
	}
	if !c.IsActive() {
		return nil, false, ErrNoSession
	}

	strategy := retry.Regular{Total: timeout, Delay: interval}
	rid := ""
	for a := retry.StartWithCancel(strategy, nil, ctx.Done()); a.Next(); {
		resp, err := c.EEPDWithContext(ctx, flatID, period, EEPDCurrent, rid)
		if err != nil {
			return nil, false, err
		}
		if resp.Ready() {
			return resp, true, nil
		}
		if next := resp.RequestID(); next != "" {
			rid = next
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, false, fmt.Errorf("eepd for flat %s: wait cancelled: %w", flatID, err)
	}
	return nil, false, nil
}
