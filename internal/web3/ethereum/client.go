package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"ALiFe-Chain/internal/web3"

	"github.com/ethereum/go-ethereum/common"
	coretypes "github.com/ethereum/go-ethereum/core/types"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
)

// transferGasLimit is the fixed gas cost of a native-value transfer.
const transferGasLimit = 21000

// Config describes how to construct an EVM compatible client.
// ChainID is optional; when set it skips the eth_chainId lookup.
type Config struct {
	Name    string
	RPCURL  string
	ChainID int64
	Notes   string
}

// Client implements the web3.Client interface for EVM compatible chains.
type Client struct {
	name      string
	notes     string
	rpcClient *gethrpc.Client
	eth       backend
	chainID   *big.Int
	mu        sync.Mutex
}

// backend mirrors the subset of ethclient methods the client relies on,
// so tests can substitute a fake without a live node.
type backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *coretypes.Transaction) error
}

// NewClient dials the configured RPC endpoint and returns a ready-to-use client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	rpcURL := strings.TrimSpace(cfg.RPCURL)
	if rpcURL == "" {
		return nil, errors.New("未配置以太坊 RPC 地址")
	}

	rpcClient, err := gethrpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("连接以太坊节点失败: %w", err)
	}

	client := &Client{
		name:      cfg.Name,
		notes:     cfg.Notes,
		rpcClient: rpcClient,
		eth:       ethclient.NewClient(rpcClient),
	}
	if cfg.ChainID > 0 {
		client.chainID = big.NewInt(cfg.ChainID)
	}
	return client, nil
}

// newClientWithBackend wires a fake backend for tests.
func newClientWithBackend(name string, eth backend) *Client {
	return &Client{name: name, eth: eth}
}

// Name returns the configured chain name.
func (c *Client) Name() string {
	return c.name
}

// FetchChainSnapshot returns chain metadata for health checks and logs.
func (c *Client) FetchChainSnapshot(ctx context.Context) (web3.ChainSnapshot, error) {
	chainID, err := c.resolveChainID(ctx)
	if err != nil {
		return web3.ChainSnapshot{}, err
	}
	blockNumber, err := c.eth.BlockNumber(ctx)
	if err != nil {
		return web3.ChainSnapshot{}, fmt.Errorf("查询最新区块失败: %w", err)
	}
	return web3.ChainSnapshot{
		ChainID:     chainID.String(),
		BlockNumber: fmt.Sprintf("%d", blockNumber),
		Notes:       c.notes,
	}, nil
}

// BalanceAt returns the native balance of the address in wei.
func (c *Client) BalanceAt(ctx context.Context, address string) (*big.Int, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("地址 %q 不是合法的以太坊地址", address)
	}
	balance, err := c.eth.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return nil, fmt.Errorf("查询余额失败: %w", err)
	}
	return balance, nil
}

// Transfer sends native value signed by the given private key.
func (c *Client) Transfer(ctx context.Context, privateKeyHex, to string, amountWei *big.Int) (web3.TransferResult, error) {
	if amountWei == nil || amountWei.Sign() <= 0 {
		return web3.TransferResult{}, errors.New("转账金额必须为正数")
	}
	if !common.IsHexAddress(to) {
		return web3.TransferResult{}, fmt.Errorf("收款地址 %q 不合法", to)
	}

	key, err := gethcrypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return web3.TransferResult{}, fmt.Errorf("解析私钥失败: %w", err)
	}
	from := gethcrypto.PubkeyToAddress(key.PublicKey)

	chainID, err := c.resolveChainID(ctx)
	if err != nil {
		return web3.TransferResult{}, err
	}
	nonce, err := c.eth.PendingNonceAt(ctx, from)
	if err != nil {
		return web3.TransferResult{}, fmt.Errorf("查询 nonce 失败: %w", err)
	}
	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return web3.TransferResult{}, fmt.Errorf("查询 gas 价格失败: %w", err)
	}

	toAddr := common.HexToAddress(to)
	tx := coretypes.NewTx(&coretypes.LegacyTx{
		Nonce:    nonce,
		To:       &toAddr,
		Value:    amountWei,
		Gas:      transferGasLimit,
		GasPrice: gasPrice,
	})
	signed, err := coretypes.SignTx(tx, coretypes.LatestSignerForChainID(chainID), key)
	if err != nil {
		return web3.TransferResult{}, fmt.Errorf("签名交易失败: %w", err)
	}
	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return web3.TransferResult{}, fmt.Errorf("广播交易失败: %w", err)
	}
	return web3.TransferResult{TxHash: signed.Hash().Hex(), Nonce: nonce}, nil
}

// resolveChainID caches the chain ID after the first successful query.
func (c *Client) resolveChainID(ctx context.Context) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.chainID != nil {
		return new(big.Int).Set(c.chainID), nil
	}
	chainID, err := c.eth.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("查询链 ID 失败: %w", err)
	}
	c.chainID = new(big.Int).Set(chainID)
	return chainID, nil
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

var _ web3.Client = (*Client)(nil)
