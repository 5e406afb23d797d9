package venue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Purchase issues a buy request raced against the creation timeout, then
// follows the contract's lifecycle stream until it settles. The raw
// settlement document is returned untouched for the settlement parser.
func (c *Connection) Purchase(ctx context.Context, p ContractParams) (json.RawMessage, error) {
	if p.ContractType == "" {
		p.ContractType = p.Kind.Wire()
	}
	params, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal contract params: %w", err)
	}

	buyCtx, cancel := context.WithTimeout(ctx, c.opts.CreationTimeout)
	defer cancel()

	raw, err := c.request(buyCtx, actionBuy, params)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, ErrContractCreationTimeout
		}
		return nil, err
	}

	var ack buyResult
	if err := json.Unmarshal(raw, &ack); err != nil {
		return nil, fmt.Errorf("decode buy ack: %w", err)
	}

	return c.awaitSettlement(ctx, ack)
}

// awaitSettlement subscribes to the contract lifecycle and blocks until a
// terminal settled update arrives, then unsubscribes before returning.
func (c *Connection) awaitSettlement(ctx context.Context, ack buyResult) (json.RawMessage, error) {
	subParams, _ := json.Marshal(map[string]any{
		"contract_id": ack.ContractID,
		"subscribe":   true,
	})
	subRaw, err := c.request(ctx, actionContract, subParams)
	if err != nil {
		return nil, fmt.Errorf("subscribe contract %d: %w", ack.ContractID, err)
	}

	var sub struct {
		Subscription string `json:"subscription"`
	}
	if err := json.Unmarshal(subRaw, &sub); err != nil || sub.Subscription == "" {
		return nil, fmt.Errorf("subscribe contract %d: missing subscription id", ack.ContractID)
	}

	stream := c.addSub(sub.Subscription)
	defer func() {
		c.removeSub(sub.Subscription)
		c.unsubscribe(sub.Subscription)
	}()

	timer := time.NewTimer(c.opts.SettleTimeout)
	defer timer.Stop()

	for {
		select {
		case msg, ok := <-stream:
			if !ok {
				return nil, &ConnectionError{Op: "contract stream", Err: ErrConnectionClosed}
			}
			var u contractUpdate
			if err := json.Unmarshal(msg, &u); err != nil {
				c.log.WithError(err).Warn("undecodable contract update dropped")
				continue
			}
			if u.IsSettled || u.Status == "won" || u.Status == "lost" {
				return msg, nil
			}
		case <-timer.C:
			return nil, &ConnectionError{Op: "await settlement", Err: context.DeadlineExceeded}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// unsubscribe tells the venue to stop the stream; best-effort on teardown.
func (c *Connection) unsubscribe(id string) {
	params, _ := json.Marshal(map[string]string{"subscription": id})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := c.request(ctx, actionUnsubscribe, params); err != nil {
		c.log.WithError(err).WithField("subscription", id).Debug("unsubscribe failed")
	}
}
