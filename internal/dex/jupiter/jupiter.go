// Package jupiter talks to the Jupiter aggregator: quotes and prebuilt swap transactions.
package jupiter

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	bin "github.com/gagliardetto/binary"
	solana "github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

const (
	DefaultBaseURL     = "https://quote-api.jup.ag"
	DefaultSlippageBps = 50
	DefaultTimeout     = 8 * time.Second
)

// ErrQuoteMismatch marks a swap build whose quote was issued for different parameters.
var ErrQuoteMismatch = errors.New("quote does not match swap request")

// ServiceError carries a non-200 aggregator response.
type ServiceError struct {
	Op     string
	Status int
	Body   string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("jupiter %s status %d: %s", e.Op, e.Status, e.Body)
}

type Client struct {
	Base string
	Http *http.Client
}

// QuoteRequest fixes the pair and input amount (base units) for one swap.
type QuoteRequest struct {
	InputMint   solana.PublicKey
	OutputMint  solana.PublicKey
	Amount      uint64
	SlippageBps int
}

type Quote struct {
	InputMint      string `json:"inputMint"`
	OutputMint     string `json:"outputMint"`
	InAmount       string `json:"inAmount"`
	OutAmount      string `json:"outAmount"`
	OtherAmount    string `json:"otherAmountThreshold"`
	SwapMode       string `json:"swapMode"`
	SlippageBps    int    `json:"slippageBps"`
	PriceImpactPct string `json:"priceImpactPct"`
	RoutePlan      []struct {
		SwapInfo struct {
			Label string `json:"label"`
		} `json:"swapInfo"`
		Percent int `json:"percent"`
	} `json:"routePlan"`

	raw json.RawMessage
}

// PriceImpact returns the quoted price impact as a fraction (0.01 = 1%).
func (q *Quote) PriceImpact() (decimal.Decimal, error) {
	if q.PriceImpactPct == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(q.PriceImpactPct)
}

// Route lists the AMM labels the quote passes through.
func (q *Quote) Route() []string {
	labels := make([]string, 0, len(q.RoutePlan))
	for _, hop := range q.RoutePlan {
		labels = append(labels, hop.SwapInfo.Label)
	}
	return labels
}

// Matches reports whether the quote was issued for exactly this request.
func (q *Quote) Matches(req QuoteRequest) error {
	switch {
	case q.InputMint != req.InputMint.String():
		return fmt.Errorf("%w: input mint %s, requested %s", ErrQuoteMismatch, q.InputMint, req.InputMint)
	case q.OutputMint != req.OutputMint.String():
		return fmt.Errorf("%w: output mint %s, requested %s", ErrQuoteMismatch, q.OutputMint, req.OutputMint)
	case q.InAmount != strconv.FormatUint(req.Amount, 10):
		return fmt.Errorf("%w: amount %s, requested %d", ErrQuoteMismatch, q.InAmount, req.Amount)
	}
	return nil
}

// SwapTransaction is the unsigned transaction returned by the swap endpoint.
type SwapTransaction struct {
	Raw                  []byte
	LastValidBlockHeight uint64
}

// Decode deserializes a fresh copy of the transaction; every call starts unsigned.
func (s *SwapTransaction) Decode() (*solana.Transaction, error) {
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(s.Raw))
	if err != nil {
		return nil, fmt.Errorf("unmarshal tx: %w", err)
	}
	return tx, nil
}

func NewClient(base string, timeout time.Duration) *Client {
	if base == "" {
		base = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		Base: strings.TrimSuffix(base, "/"),
		Http: &http.Client{Timeout: timeout},
	}
}

// GetQuote asks for an ExactIn route. Quotes are short lived and never cached here.
func (j *Client) GetQuote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	slippage := req.SlippageBps
	if slippage <= 0 {
		slippage = DefaultSlippageBps
	}
	q := url.Values{}
	q.Set("inputMint", req.InputMint.String())
	q.Set("outputMint", req.OutputMint.String())
	q.Set("amount", strconv.FormatUint(req.Amount, 10))
	q.Set("slippageBps", strconv.Itoa(slippage))
	q.Set("swapMode", "ExactIn")
	q.Set("onlyDirectRoutes", "false")
	u := j.Base + "/v6/quote?" + q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	body, err := j.do(httpReq, "quote")
	if err != nil {
		return nil, err
	}
	var out Quote
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode quote: %w", err)
	}
	out.raw = body
	if err := out.Matches(req); err != nil {
		return nil, err
	}
	return &out, nil
}

// BuildSwap requests the transaction realizing quote for user. The quote must have been
// issued for req; a mismatch is a caller bug and is rejected before any request is made.
func (j *Client) BuildSwap(ctx context.Context, req QuoteRequest, quote *Quote, user solana.PublicKey) (*SwapTransaction, error) {
	if quote == nil {
		return nil, errors.New("nil quote")
	}
	if err := quote.Matches(req); err != nil {
		return nil, err
	}
	quoteJSON := quote.raw
	if len(quoteJSON) == 0 {
		encoded, err := json.Marshal(quote)
		if err != nil {
			return nil, fmt.Errorf("encode quote: %w", err)
		}
		quoteJSON = encoded
	}
	payload := map[string]any{
		"userPublicKey":             user.String(),
		"wrapAndUnwrapSol":          true,
		"asLegacyTransaction":       false,
		"useTokenLedger":            false,
		"dynamicComputeUnitLimit":   true,
		"prioritizationFeeLamports": "auto",
		"quoteResponse":             json.RawMessage(quoteJSON),
	}
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode swap request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, j.Base+"/v6/swap", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	body, err := j.do(httpReq, "swap")
	if err != nil {
		return nil, err
	}
	var sr struct {
		SwapTransaction      string `json:"swapTransaction"` // base64, unsigned
		LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
	}
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("decode swap response: %w", err)
	}
	raw, err := base64.StdEncoding.DecodeString(sr.SwapTransaction)
	if err != nil {
		return nil, fmt.Errorf("decode tx: %w", err)
	}
	swap := &SwapTransaction{Raw: raw, LastValidBlockHeight: sr.LastValidBlockHeight}
	if _, err := swap.Decode(); err != nil {
		return nil, err
	}
	return swap, nil
}

func (j *Client) do(req *http.Request, op string) ([]byte, error) {
	resp, err := j.Http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jupiter %s: %w", op, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("jupiter %s: read body: %w", op, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ServiceError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}
