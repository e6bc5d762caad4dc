package chain

import (
	"context"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"

	"poolarb/internal/model"
)

// maxAccountsPerCall is the getMultipleAccounts limit.
const maxAccountsPerCall = 100

// Client wraps solana-go RPC and websocket access.
type Client struct {
	rpcClient  *rpc.Client
	wsURL      string
	commitment rpc.CommitmentType
}

// Accounts is the result of one multi-account fetch. A nil entry means the
// account does not exist.
type Accounts struct {
	Slot  uint64
	Items []*model.AccountData
}

// ParseCommitment maps a config value to a commitment level.
func ParseCommitment(input string) (rpc.CommitmentType, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "", "confirmed":
		return rpc.CommitmentConfirmed, nil
	case "processed":
		return rpc.CommitmentProcessed, nil
	case "finalized":
		return rpc.CommitmentFinalized, nil
	default:
		return "", fmt.Errorf("unsupported commitment: %s", input)
	}
}

// NewClient creates a new chain client from the RPC and websocket URLs.
func NewClient(rpcURL, wsURL, commitment string) (*Client, error) {
	level, err := ParseCommitment(commitment)
	if err != nil {
		return nil, err
	}
	return &Client{
		rpcClient:  rpc.New(rpcURL),
		wsURL:      wsURL,
		commitment: level,
	}, nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		_ = c.rpcClient.Close()
	}
}

// GetAccounts fetches accounts in order, splitting large requests.
func (c *Client) GetAccounts(ctx context.Context, keys []solana.PublicKey) (Accounts, error) {
	out := Accounts{Items: make([]*model.AccountData, 0, len(keys))}
	for start := 0; start < len(keys); start += maxAccountsPerCall {
		end := start + maxAccountsPerCall
		if end > len(keys) {
			end = len(keys)
		}
		res, err := c.rpcClient.GetMultipleAccountsWithOpts(ctx, keys[start:end], &rpc.GetMultipleAccountsOpts{
			Commitment: c.commitment,
			Encoding:   solana.EncodingBase64,
		})
		if err != nil {
			return Accounts{}, fmt.Errorf("get multiple accounts: %w", err)
		}
		if len(res.Value) != end-start {
			return Accounts{}, fmt.Errorf("get multiple accounts: got %d results for %d keys", len(res.Value), end-start)
		}
		if res.Context.Slot > out.Slot {
			out.Slot = res.Context.Slot
		}
		for _, acc := range res.Value {
			out.Items = append(out.Items, toAccountData(acc))
		}
	}
	return out, nil
}

func toAccountData(acc *rpc.Account) *model.AccountData {
	if acc == nil {
		return nil
	}
	data := &model.AccountData{Owner: acc.Owner}
	if acc.Data != nil {
		data.Data = acc.Data.GetBinary()
	}
	return data
}

// AccountUpdate is one websocket notification for an account.
type AccountUpdate struct {
	Slot    uint64
	Account model.AccountData
}

// AccountStream delivers notifications for one account.
type AccountStream struct {
	conn *ws.Client
	sub  *ws.AccountSubscription
}

// SubscribeAccount opens a websocket connection and subscribes to one account.
func (c *Client) SubscribeAccount(ctx context.Context, key solana.PublicKey) (*AccountStream, error) {
	if c.wsURL == "" {
		return nil, fmt.Errorf("subscribe %s: websocket url not configured", key)
	}
	conn, err := ws.Connect(ctx, c.wsURL)
	if err != nil {
		return nil, fmt.Errorf("ws connect: %w", err)
	}
	sub, err := conn.AccountSubscribeWithOpts(key, c.commitment, solana.EncodingBase64)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("account subscribe %s: %w", key, err)
	}
	return &AccountStream{conn: conn, sub: sub}, nil
}

// Recv blocks for the next notification.
func (s *AccountStream) Recv(ctx context.Context) (AccountUpdate, error) {
	res, err := s.sub.Recv(ctx)
	if err != nil {
		return AccountUpdate{}, err
	}
	if res == nil {
		return AccountUpdate{}, fmt.Errorf("subscription closed")
	}
	update := AccountUpdate{Slot: res.Context.Slot, Account: model.AccountData{Owner: res.Value.Owner}}
	if res.Value.Data != nil {
		update.Account.Data = res.Value.Data.GetBinary()
	}
	return update, nil
}

// Close unsubscribes and closes the connection.
func (s *AccountStream) Close() {
	s.sub.Unsubscribe()
	s.conn.Close()
}
