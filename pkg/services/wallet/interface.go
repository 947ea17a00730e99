package wallet

import (
	"context"

	"github.com/fadedpez/eldorado/pkg/entities"
	walletRepo "github.com/fadedpez/eldorado/pkg/repositories/wallet"
)

//go:generate mockgen -source=$GOFILE -destination=mock/mock.go -package=mock_wallet_service

// BalanceAuthority is the single writer of user token balances. Any
// feature that needs to move tokens calls this interface; nothing else
// writes a balance.
type BalanceAuthority interface {
	GetOrCreateWallet(ctx context.Context, userID string) (*entities.Wallet, bool, error)
	GetBalance(ctx context.Context, userID string) (int64, error)
	DebitAndCredit(ctx context.Context, userID string, debit, credit int64, referenceID string) (*walletRepo.Adjustment, error)
	Refund(ctx context.Context, userID string, amount int64, referenceID string) (*walletRepo.Adjustment, error)
	Credit(ctx context.Context, userID string, amount int64, referenceID, description string) (*walletRepo.Adjustment, error)
}
