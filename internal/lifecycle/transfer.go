package lifecycle

import (
	"context"

	xerrors "ALiFe-Chain/internal/errors"
	"ALiFe-Chain/internal/oracle"
	"ALiFe-Chain/internal/wallet"
	"ALiFe-Chain/internal/web3"
)

// TipSender 把智能体金库里的美元金额转到另一个钱包。
type TipSender interface {
	Send(ctx context.Context, sealedCredential, toWallet string, amountUSD float64) (string, error)
}

// Treasury 组合钱包解封、价格换算与链上转账，实现 TipSender。
type Treasury struct {
	chain   web3.Client
	wallets *wallet.Provider
	prices  *oracle.Service
}

// NewTreasury 构造金库转账器。
func NewTreasury(chain web3.Client, wallets *wallet.Provider, prices *oracle.Service) *Treasury {
	return &Treasury{chain: chain, wallets: wallets, prices: prices}
}

// Send 解封私钥、按现价换算金额并广播转账，返回交易哈希。
func (t *Treasury) Send(ctx context.Context, sealedCredential, toWallet string, amountUSD float64) (string, error) {
	if t.chain == nil || t.wallets == nil || t.prices == nil {
		return "", xerrors.New(xerrors.CodeInitializationFailure, "金库转账器未初始化")
	}
	keyHex, err := t.wallets.UnsealPrivateKey(sealedCredential)
	if err != nil {
		return "", err
	}
	wei := oracle.USDToWei(amountUSD, t.prices.EthPriceUSD(ctx))
	if wei.Sign() <= 0 {
		return "", xerrors.New(xerrors.CodeInvalidArgument, "转账金额换算后为零")
	}
	result, err := t.chain.Transfer(ctx, keyHex, toWallet, wei)
	if err != nil {
		return "", xerrors.Wrap(xerrors.CodeCollaboratorFailure, err, "链上转账失败")
	}
	return result.TxHash, nil
}

var _ TipSender = (*Treasury)(nil)
