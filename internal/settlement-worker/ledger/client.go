package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	ledgerdto "github.com/radieske/matka-exchange/internal/settlement-worker/ledger/dto"
)

// ErrRejected indica 4xx do ledger: reenviar o mesmo crédito não vai passar
var ErrRejected = errors.New("ledger rejected credit")

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(base string) *Client {
	return &Client{
		BaseURL: base,
		HTTP:    &http.Client{Timeout: 2 * time.Second},
	}
}

// Credit envia o payout ao ledger com Idempotency-Key = externalRef.
// 409 conta como sucesso: o crédito já existe.
func (c *Client) Credit(ctx context.Context, userID string, amount int64, externalRef string) error {
	body, err := json.Marshal(ledgerdto.CreditRequest{UserID: userID, Amount: amount, ExternalRef: externalRef})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/ledger/credit", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", externalRef)

	res, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("ledger credit %s: %w", externalRef, err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusConflict:
		return nil
	case res.StatusCode >= 400 && res.StatusCode < 500:
		return fmt.Errorf("%w: http %d: %s", ErrRejected, res.StatusCode, reason(res.Body))
	case res.StatusCode >= 300:
		return fmt.Errorf("ledger credit http %d: %s", res.StatusCode, reason(res.Body))
	}

	var out ledgerdto.CreditResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return fmt.Errorf("decode ledger response: %w", err)
	}
	switch out.Status {
	case "", ledgerdto.StatusCredited, ledgerdto.StatusDuplicate:
		return nil
	}
	return fmt.Errorf("ledger credit %s: unexpected status %q", externalRef, out.Status)
}

// reason lê o erro do corpo ({"error": "..."}) ou devolve o texto cru truncado
func reason(r io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(r, 512))
	var e ledgerdto.ErrorResponse
	if json.Unmarshal(raw, &e) == nil && e.Error != "" {
		return e.Error
	}
	return string(bytes.TrimSpace(raw))
}
