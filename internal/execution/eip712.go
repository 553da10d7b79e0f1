package execution

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"math/rand"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/shopspring/decimal"
)

// Polymarket CTF Exchange, Polygon mainnet
const (
	PolygonChainID     = 137
	CTFExchangeAddress = "0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E"
	ZeroAddress        = "0x0000000000000000000000000000000000000000"
)

// collateralDecimals: USDC and CTF shares both use 6-decimal units
const collateralDecimals = 6

// CTFOrder is the typed-data structure the exchange verifies
type CTFOrder struct {
	Salt          *big.Int
	Maker         common.Address
	Signer        common.Address
	Taker         common.Address
	TokenID       *big.Int
	MakerAmount   *big.Int
	TakerAmount   *big.Int
	Expiration    *big.Int
	Nonce         *big.Int
	FeeRateBps    *big.Int
	Side          uint8
	SignatureType uint8
}

// SignedOrder is an order with its EIP-712 signature
type SignedOrder struct {
	Order     *CTFOrder
	Signature string
}

// Signer builds and signs CTF Exchange orders
type Signer struct {
	privateKey   *ecdsa.PrivateKey
	signerAddr   common.Address
	funderAddr   common.Address
	chainID      int64
	exchangeAddr common.Address
}

// NewSigner creates a signer from a hex private key and funder address
func NewSigner(privateKeyHex, funderAddress string) (*Signer, error) {
	key, err := crypto.HexToECDSA(stripHexPrefix(privateKeyHex))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	return &Signer{
		privateKey:   key,
		signerAddr:   crypto.PubkeyToAddress(key.PublicKey),
		funderAddr:   common.HexToAddress(funderAddress),
		chainID:      PolygonChainID,
		exchangeAddr: common.HexToAddress(CTFExchangeAddress),
	}, nil
}

// Address returns the signing address
func (s *Signer) Address() common.Address {
	return s.signerAddr
}

// BuildOrder converts an order request into an unsigned exchange order.
// BUY: maker amount is the USDC spent, taker amount the shares received.
// SELL: mirrored. Amounts are truncated to venue units, never rounded up.
func (s *Signer) BuildOrder(req OrderRequest) (*CTFOrder, error) {
	tokenID, ok := new(big.Int).SetString(req.TokenID, 10)
	if !ok {
		return nil, fmt.Errorf("invalid token id %q", req.TokenID)
	}

	shares := toUnits(req.Size)
	usdc := toUnits(req.Size.Mul(req.Price))

	var makerAmount, takerAmount *big.Int
	if req.Side == SideBuy {
		makerAmount, takerAmount = usdc, shares
	} else {
		makerAmount, takerAmount = shares, usdc
	}

	maker := s.funderAddr
	if maker == (common.Address{}) {
		maker = s.signerAddr
	}

	return &CTFOrder{
		Salt:          big.NewInt(rand.Int63()),
		Maker:         maker,
		Signer:        s.signerAddr,
		Taker:         common.HexToAddress(ZeroAddress),
		TokenID:       tokenID,
		MakerAmount:   makerAmount,
		TakerAmount:   takerAmount,
		Expiration:    big.NewInt(0),
		Nonce:         big.NewInt(0),
		FeeRateBps:    big.NewInt(0),
		Side:          uint8(req.Side),
		SignatureType: 0, // EOA
	}, nil
}

// Sign produces the EIP-712 signature over an order
func (s *Signer) Sign(order *CTFOrder) (*SignedOrder, error) {
	typedData := s.typedData(order)

	domainSeparator, err := typedData.HashStruct("EIP712Domain", typedData.Domain.Map())
	if err != nil {
		return nil, fmt.Errorf("hash domain: %w", err)
	}

	messageHash, err := typedData.HashStruct(typedData.PrimaryType, typedData.Message)
	if err != nil {
		return nil, fmt.Errorf("hash message: %w", err)
	}

	rawData := []byte(fmt.Sprintf("\x19\x01%s%s", string(domainSeparator), string(messageHash)))
	hash := crypto.Keccak256Hash(rawData)

	signature, err := crypto.Sign(hash.Bytes(), s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("sign order: %w", err)
	}

	// Ethereum expects V in {27, 28}
	if signature[64] < 27 {
		signature[64] += 27
	}

	return &SignedOrder{
		Order:     order,
		Signature: fmt.Sprintf("0x%x", signature),
	}, nil
}

func (s *Signer) typedData(order *CTFOrder) apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"Order": {
				{Name: "salt", Type: "uint256"},
				{Name: "maker", Type: "address"},
				{Name: "signer", Type: "address"},
				{Name: "taker", Type: "address"},
				{Name: "tokenId", Type: "uint256"},
				{Name: "makerAmount", Type: "uint256"},
				{Name: "takerAmount", Type: "uint256"},
				{Name: "expiration", Type: "uint256"},
				{Name: "nonce", Type: "uint256"},
				{Name: "feeRateBps", Type: "uint256"},
				{Name: "side", Type: "uint8"},
				{Name: "signatureType", Type: "uint8"},
			},
		},
		PrimaryType: "Order",
		Domain: apitypes.TypedDataDomain{
			Name:              "Polymarket CTF Exchange",
			Version:           "1",
			ChainId:           math.NewHexOrDecimal256(s.chainID),
			VerifyingContract: s.exchangeAddr.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"salt":          order.Salt.String(),
			"maker":         order.Maker.Hex(),
			"signer":        order.Signer.Hex(),
			"taker":         order.Taker.Hex(),
			"tokenId":       order.TokenID.String(),
			"makerAmount":   order.MakerAmount.String(),
			"takerAmount":   order.TakerAmount.String(),
			"expiration":    order.Expiration.String(),
			"nonce":         order.Nonce.String(),
			"feeRateBps":    order.FeeRateBps.String(),
			"side":          fmt.Sprintf("%d", order.Side),
			"signatureType": fmt.Sprintf("%d", order.SignatureType),
		},
	}
}

// toUnits truncates a decimal amount to 6-decimal venue units
func toUnits(d decimal.Decimal) *big.Int {
	return big.NewInt(d.Shift(collateralDecimals).IntPart())
}

func stripHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
