// Package crypto provides key loading and EIP-712 order signing for the
// live execution path.
package crypto

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

var (
	// EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)
	eip712DomainTypeHash = ethcrypto.Keccak256(
		[]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"),
	)

	// Order(uint256 salt,address maker,address signer,address taker,uint256 tokenId,uint256 makerAmount,uint256 takerAmount,uint256 expiration,uint256 nonce,uint256 feeRateBps,uint8 side,uint8 signatureType)
	orderTypeHash = ethcrypto.Keccak256(
		[]byte("Order(uint256 salt,address maker,address signer,address taker,uint256 tokenId,uint256 makerAmount,uint256 takerAmount,uint256 expiration,uint256 nonce,uint256 feeRateBps,uint8 side,uint8 signatureType)"),
	)
)

// Exchange contract addresses on Polygon mainnet. Negative-risk markets
// settle through a separate adapter contract, so the signed domain differs.
const (
	exchangeAddress        = "0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E"
	negRiskExchangeAddress = "0xC5d563A36AE78145C45a50134d48A1215220f80a"
)

// OrderPayload carries the order fields that enter the signed struct.
type OrderPayload struct {
	TokenID     string
	MakerAmount string
	TakerAmount string
	Side        string // "buy" or "sell"
	NegRisk     bool
}

// Signer signs CLOB orders with a secp256k1 key.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	chainID    int
}

// NewSigner creates a Signer from a hex-encoded private key and the target
// chain ID (137 for Polygon mainnet).
func NewSigner(privateKeyHex string, chainID int) (*Signer, error) {
	keyHex := strings.TrimPrefix(privateKeyHex, "0x")
	pk, err := ethcrypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("crypto/signer: invalid private key: %w", err)
	}
	return &Signer{
		privateKey: pk,
		address:    ethcrypto.PubkeyToAddress(pk.PublicKey),
		chainID:    chainID,
	}, nil
}

// Address returns the hex address derived from the signer's private key.
func (s *Signer) Address() string {
	return s.address.Hex()
}

// SignOrder hashes the order per EIP-712 against the exchange domain and
// returns a hex-encoded 65-byte signature.
func (s *Signer) SignOrder(order OrderPayload) (string, error) {
	verifying := exchangeAddress
	if order.NegRisk {
		verifying = negRiskExchangeAddress
	}
	domainSep := s.domainSeparator("Polymarket CTF Exchange", "1", verifying)

	structHash, err := orderStructHash(s.address, order)
	if err != nil {
		return "", err
	}

	digest := ethcrypto.Keccak256(concat(
		[]byte{0x19, 0x01},
		domainSep,
		structHash,
	))

	sig, err := ethcrypto.Sign(digest, s.privateKey)
	if err != nil {
		return "", fmt.Errorf("crypto/signer: sign digest: %w", err)
	}
	// Shift the recovery byte into the 27/28 range expected on-chain.
	sig[64] += 27
	return "0x" + hex.EncodeToString(sig), nil
}

func (s *Signer) domainSeparator(name, version, verifyingContract string) []byte {
	return ethcrypto.Keccak256(concat(
		eip712DomainTypeHash,
		ethcrypto.Keccak256([]byte(name)),
		ethcrypto.Keccak256([]byte(version)),
		uint256Bytes(big.NewInt(int64(s.chainID))),
		common.LeftPadBytes(common.HexToAddress(verifyingContract).Bytes(), 32),
	))
}

func orderStructHash(maker common.Address, order OrderPayload) ([]byte, error) {
	tokenID, ok := new(big.Int).SetString(order.TokenID, 10)
	if !ok {
		return nil, fmt.Errorf("crypto/signer: token id %q is not a decimal integer", order.TokenID)
	}
	makerAmount, ok := new(big.Int).SetString(order.MakerAmount, 10)
	if !ok {
		return nil, fmt.Errorf("crypto/signer: bad maker amount %q", order.MakerAmount)
	}
	takerAmount, ok := new(big.Int).SetString(order.TakerAmount, 10)
	if !ok {
		return nil, fmt.Errorf("crypto/signer: bad taker amount %q", order.TakerAmount)
	}

	side := big.NewInt(0) // BUY
	if strings.EqualFold(order.Side, "sell") {
		side = big.NewInt(1)
	}

	zero := big.NewInt(0)
	return ethcrypto.Keccak256(concat(
		orderTypeHash,
		uint256Bytes(zero), // salt
		common.LeftPadBytes(maker.Bytes(), 32),
		common.LeftPadBytes(maker.Bytes(), 32), // signer == maker for EOA
		common.LeftPadBytes(common.Address{}.Bytes(), 32),
		uint256Bytes(tokenID),
		uint256Bytes(makerAmount),
		uint256Bytes(takerAmount),
		uint256Bytes(zero), // expiration
		uint256Bytes(zero), // nonce
		uint256Bytes(zero), // feeRateBps
		uint256Bytes(side),
		uint256Bytes(zero), // signatureType EOA
	)), nil
}

func uint256Bytes(v *big.Int) []byte {
	return common.LeftPadBytes(v.Bytes(), 32)
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
