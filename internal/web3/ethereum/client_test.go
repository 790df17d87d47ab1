package ethereum

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	coretypes "github.com/ethereum/go-ethereum/core/types"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
)

type fakeBackend struct {
	chainID  *big.Int
	block    uint64
	balances map[common.Address]*big.Int
	nonce    uint64
	gasPrice *big.Int
	sent     []*coretypes.Transaction
}

func (f *fakeBackend) ChainID(context.Context) (*big.Int, error) { return f.chainID, nil }
func (f *fakeBackend) BlockNumber(context.Context) (uint64, error) {
	return f.block, nil
}
func (f *fakeBackend) BalanceAt(_ context.Context, account common.Address, _ *big.Int) (*big.Int, error) {
	if balance, ok := f.balances[account]; ok {
		return balance, nil
	}
	return big.NewInt(0), nil
}
func (f *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return f.nonce, nil
}
func (f *fakeBackend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return f.gasPrice, nil
}
func (f *fakeBackend) SendTransaction(_ context.Context, tx *coretypes.Transaction) error {
	f.sent = append(f.sent, tx)
	return nil
}

func TestBalanceAtRejectsInvalidAddress(t *testing.T) {
	client := newClientWithBackend("test", &fakeBackend{chainID: big.NewInt(1)})
	if _, err := client.BalanceAt(context.Background(), "not-an-address"); err == nil {
		t.Fatal("expected invalid address error")
	}
}

func TestTransferSignsAndBroadcasts(t *testing.T) {
	key, err := gethcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	keyHex := common.Bytes2Hex(gethcrypto.FromECDSA(key))

	backend := &fakeBackend{
		chainID:  big.NewInt(8453),
		nonce:    7,
		gasPrice: big.NewInt(1_000_000_000),
	}
	client := newClientWithBackend("base", backend)

	to := "0x00000000000000000000000000000000DeaDBeef"
	result, err := client.Transfer(context.Background(), keyHex, to, big.NewInt(12345))
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if result.Nonce != 7 {
		t.Fatalf("expected nonce 7, got %d", result.Nonce)
	}
	if len(backend.sent) != 1 {
		t.Fatalf("expected one broadcast, got %d", len(backend.sent))
	}

	tx := backend.sent[0]
	if tx.To() == nil || tx.To().Hex() != common.HexToAddress(to).Hex() {
		t.Fatalf("unexpected recipient: %v", tx.To())
	}
	if tx.Value().Cmp(big.NewInt(12345)) != 0 {
		t.Fatalf("unexpected value: %s", tx.Value())
	}

	sender, err := coretypes.Sender(coretypes.LatestSignerForChainID(backend.chainID), tx)
	if err != nil {
		t.Fatalf("recover sender: %v", err)
	}
	if sender != gethcrypto.PubkeyToAddress(key.PublicKey) {
		t.Fatalf("signature does not recover to the key owner: %s", sender.Hex())
	}
	if result.TxHash != tx.Hash().Hex() {
		t.Fatalf("hash mismatch: %s vs %s", result.TxHash, tx.Hash().Hex())
	}
}

func TestTransferRejectsNonPositiveAmount(t *testing.T) {
	client := newClientWithBackend("test", &fakeBackend{chainID: big.NewInt(1)})
	_, err := client.Transfer(context.Background(), "ab", "0x00000000000000000000000000000000DeaDBeef", big.NewInt(0))
	if err == nil {
		t.Fatal("expected amount rejection")
	}
}
