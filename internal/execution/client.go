package execution

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
)

// Client submits signed fill-or-kill orders to the CLOB REST API
type Client struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	passphrase string
	signer     *Signer
	httpClient *http.Client
}

// orderResponse is the venue's answer to an order submission
type orderResponse struct {
	OrderID   string `json:"orderID"`
	Status    string `json:"status"`
	ErrorCode string `json:"errorCode,omitempty"`
	Message   string `json:"message,omitempty"`
}

// NewClient creates a CLOB order client. Every request is bounded by the
// HTTP client timeout so a stalled submission cannot hang a leg forever.
func NewClient(baseURL, apiKey, apiSecret, passphrase string, signer *Signer) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		passphrase: passphrase,
		signer:     signer,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// PlaceOrder signs and submits one FOK leg, returning the venue order ID.
// Signing failures, transport failures and venue rejections all surface as
// errors; the engine folds them into a not-filled classification.
func (c *Client) PlaceOrder(ctx context.Context, req OrderRequest) (string, error) {
	order, err := c.signer.BuildOrder(req)
	if err != nil {
		return "", fmt.Errorf("build order: %w", err)
	}

	signed, err := c.signer.Sign(order)
	if err != nil {
		return "", fmt.Errorf("sign order: %w", err)
	}

	payload := map[string]interface{}{
		"order": map[string]interface{}{
			"salt":          signed.Order.Salt.Int64(),
			"maker":         signed.Order.Maker.Hex(),
			"signer":        signed.Order.Signer.Hex(),
			"taker":         signed.Order.Taker.Hex(),
			"tokenId":       signed.Order.TokenID.String(),
			"makerAmount":   signed.Order.MakerAmount.String(),
			"takerAmount":   signed.Order.TakerAmount.String(),
			"expiration":    signed.Order.Expiration.String(),
			"nonce":         signed.Order.Nonce.String(),
			"feeRateBps":    signed.Order.FeeRateBps.String(),
			"side":          req.Side.String(),
			"signatureType": int(signed.Order.SignatureType),
			"signature":     signed.Signature,
		},
		"owner":     c.apiKey,
		"orderType": "FOK",
		"postOnly":  false,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal order: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/order", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	c.signRequest(httpReq, http.MethodPost, "/order", body)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("submit order: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	var orderResp orderResponse
	if err := json.Unmarshal(respBody, &orderResp); err != nil {
		return "", fmt.Errorf("parse order response: %w, body: %s", err, string(respBody))
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("order rejected: %s - %s", orderResp.ErrorCode, orderResp.Message)
	}

	log.Info().
		Str("order_id", orderResp.OrderID).
		Str("status", orderResp.Status).
		Str("side", req.Side.String()).
		Str("price", req.Price.String()).
		Str("size", req.Size.String()).
		Msg("✅ Order accepted")

	return orderResp.OrderID, nil
}

// signRequest adds the L2 HMAC auth headers. Message and header format
// follow py-clob-client: timestamp + method + path + body, URL-safe base64.
func (c *Client) signRequest(req *http.Request, method, path string, body []byte) {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	message := timestamp + method + path
	if len(body) > 0 {
		message += string(body)
	}

	secret, err := base64.URLEncoding.DecodeString(c.apiSecret)
	if err != nil {
		padded := c.apiSecret
		if len(padded)%4 != 0 {
			padded += strings.Repeat("=", 4-len(padded)%4)
		}
		if secret, err = base64.URLEncoding.DecodeString(padded); err != nil {
			secret, _ = base64.StdEncoding.DecodeString(c.apiSecret)
		}
	}

	h := hmac.New(sha256.New, secret)
	h.Write([]byte(message))
	signature := base64.URLEncoding.EncodeToString(h.Sum(nil))

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("POLY_API_KEY", c.apiKey)
	req.Header.Set("POLY_SIGNATURE", signature)
	req.Header.Set("POLY_TIMESTAMP", timestamp)
	req.Header.Set("POLY_PASSPHRASE", c.passphrase)

	if c.signer != nil && c.signer.Address() != (common.Address{}) {
		req.Header.Set("POLY_ADDRESS", c.signer.Address().Hex())
	}
}
