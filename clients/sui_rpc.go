package clients

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/pattonkan/sui-go/sui"
	"github.com/pattonkan/sui-go/suiclient"
)

// SuiRPC adapts suiclient to SuiBackend.
type SuiRPC struct {
	client *suiclient.ClientImpl
	url    string
}

var _ SuiBackend = (*SuiRPC)(nil)

func NewSuiRPC(url string) *SuiRPC {
	return &SuiRPC{
		client: suiclient.NewClient(url),
		url:    url,
	}
}

// Client exposes the underlying client for signing wallets.
func (r *SuiRPC) Client() *suiclient.ClientImpl {
	return r.client
}

func (r *SuiRPC) Balance(ctx context.Context, owner string) (*big.Int, error) {
	addr, err := sui.AddressFromHex(owner)
	if err != nil {
		return nil, fmt.Errorf("invalid owner address: %w", err)
	}

	res, err := r.client.GetBalance(ctx, &suiclient.GetBalanceRequest{
		Owner:    addr,
		CoinType: sui.ObjectType(sui.SuiCoinType),
	})
	if err != nil {
		return nil, err
	}
	if res == nil || res.TotalBalance == nil {
		return new(big.Int), nil
	}
	return res.TotalBalance.Int, nil
}

// GasCoins lists the owner's SUI coins, first page only.
func (r *SuiRPC) GasCoins(ctx context.Context, owner string) ([]SuiGasCoin, error) {
	addr, err := sui.AddressFromHex(owner)
	if err != nil {
		return nil, fmt.Errorf("invalid owner address: %w", err)
	}

	page, err := r.client.GetCoins(ctx, &suiclient.GetCoinsRequest{
		Owner: addr,
		Limit: maxSuiGasCoins,
	})
	if err != nil {
		return nil, err
	}

	coins := make([]SuiGasCoin, 0, len(page.Data))
	for _, c := range page.Data {
		ref := c.Ref()
		coins = append(coins, SuiGasCoin{
			ObjectID: c.CoinObjectId.String(),
			Version:  uint64(ref.Version),
			Digest:   fmt.Sprint(ref.Digest),
			Balance:  c.Balance.Uint64(),
			Ref:      ref,
		})
	}
	return coins, nil
}

// TransactionStatus reports Found=false while the digest is not yet indexed.
func (r *SuiRPC) TransactionStatus(ctx context.Context, digest string) (*SuiTxStatus, error) {
	d, err := sui.NewDigest(digest)
	if err != nil {
		return nil, fmt.Errorf("invalid digest: %w", err)
	}

	resp, err := r.client.GetTransactionBlock(ctx, &suiclient.GetTransactionBlockRequest{
		Digest:  d,
		Options: &suiclient.SuiTransactionBlockResponseOptions{ShowEffects: true},
	})
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "could not find") {
			return &SuiTxStatus{Found: false}, nil
		}
		return nil, err
	}
	if resp.Effects == nil {
		return &SuiTxStatus{Found: false}, nil
	}

	st := &SuiTxStatus{Found: true, Success: resp.Effects.Data.IsSuccess()}
	if !st.Success && resp.Effects.Data.V1 != nil {
		st.Error = resp.Effects.Data.V1.Status.Error
	}
	return st, nil
}
