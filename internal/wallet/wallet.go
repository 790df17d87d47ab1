package wallet

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"os"
	"strings"

	gethcrypto "github.com/ethereum/go-ethereum/crypto"

	xerrors "ALiFe-Chain/internal/errors"
)

// CodeSealFailure 表示密封或解封签名凭据失败。
var CodeSealFailure = xerrors.Code("WALLET_SEAL_FAILURE")

func init() {
	xerrors.Register(CodeSealFailure, xerrors.Attributes{
		Message:  "钱包凭据密封失败",
		Severity: xerrors.SeverityCritical,
	})
}

// Sealer 用进程级密钥对钱包私钥做 AES-256-GCM 密封。
// 密封结果形如 "noncehex:cipherhex"，绝不出现在任何公开投影中。
type Sealer struct {
	key []byte
}

// NewSealer 解析 64 位十六进制密钥。密钥非法时直接失败，
// 绝不允许进程带着不可用的密封密钥继续运行。
func NewSealer(hexKey string) (*Sealer, error) {
	hexKey = strings.TrimSpace(hexKey)
	if len(hexKey) != 64 {
		return nil, xerrors.New(CodeSealFailure, "密封密钥必须是 64 位十六进制字符串")
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, xerrors.Wrap(CodeSealFailure, err, "密封密钥不是合法的十六进制")
	}
	return &Sealer{key: key}, nil
}

// NewSealerFromEnv 从环境变量读取密封密钥。
func NewSealerFromEnv(envName string) (*Sealer, error) {
	value := os.Getenv(envName)
	if value == "" {
		return nil, xerrors.New(CodeSealFailure, "环境变量 "+envName+" 未设置密封密钥")
	}
	return NewSealer(value)
}

// Seal 密封一段明文凭据。
func (s *Sealer) Seal(plaintext string) (string, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return "", xerrors.Wrap(CodeSealFailure, err, "初始化加密块失败")
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", xerrors.Wrap(CodeSealFailure, err, "初始化 GCM 失败")
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", xerrors.Wrap(CodeSealFailure, err, "生成随机 nonce 失败")
	}
	sealed := gcm.Seal(nil, nonce, []byte(plaintext), nil)
	return hex.EncodeToString(nonce) + ":" + hex.EncodeToString(sealed), nil
}

// Unseal 解封密封后的凭据。
func (s *Sealer) Unseal(sealed string) (string, error) {
	parts := strings.SplitN(sealed, ":", 2)
	if len(parts) != 2 {
		return "", xerrors.New(CodeSealFailure, "密封凭据格式非法")
	}
	nonce, err := hex.DecodeString(parts[0])
	if err != nil {
		return "", xerrors.Wrap(CodeSealFailure, err, "解析 nonce 失败")
	}
	ciphertext, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", xerrors.Wrap(CodeSealFailure, err, "解析密文失败")
	}

	block, err := aes.NewCipher(s.key)
	if err != nil {
		return "", xerrors.Wrap(CodeSealFailure, err, "初始化解密块失败")
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", xerrors.Wrap(CodeSealFailure, err, "初始化 GCM 失败")
	}
	if len(nonce) != gcm.NonceSize() {
		return "", xerrors.New(CodeSealFailure, "nonce 长度非法")
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", xerrors.Wrap(CodeSealFailure, err, "解封凭据失败")
	}
	return string(plaintext), nil
}

// Provider 为新智能体生成以太坊钱包并密封其私钥。
type Provider struct {
	sealer *Sealer
}

// NewProvider 构造钱包提供者。
func NewProvider(sealer *Sealer) *Provider {
	return &Provider{sealer: sealer}
}

// Generate 生成一个新钱包，返回地址与密封后的私钥。
func (p *Provider) Generate(_ context.Context) (string, string, error) {
	key, err := gethcrypto.GenerateKey()
	if err != nil {
		return "", "", xerrors.Wrap(CodeSealFailure, err, "生成钱包私钥失败")
	}
	address := gethcrypto.PubkeyToAddress(key.PublicKey).Hex()
	sealed, err := p.sealer.Seal(hex.EncodeToString(gethcrypto.FromECDSA(key)))
	if err != nil {
		return "", "", err
	}
	return address, sealed, nil
}

// UnsealPrivateKey 解封出私钥的十六进制形式，供转账执行器签名使用。
func (p *Provider) UnsealPrivateKey(sealed string) (string, error) {
	return p.sealer.Unseal(sealed)
}
