package paymentpoll

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// StatusClient は GET /payment/status/:order_id を叩く薄いクライアント。
type StatusClient struct {
	BaseURL string
	Token   string

	// 省略時はタイムアウト10秒のクライアントを使う
	HTTPClient *http.Client
}

type statusResponse struct {
	Paid          bool   `json:"paid"`
	PaymentStatus string `json:"payment_status"`
	Status        string `json:"status"`
}

func (c *StatusClient) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 10 * time.Second}
}

// Fetch は注文の支払状況を1回取得する。
func (c *StatusClient) Fetch(ctx context.Context, orderID int64) (paid bool, paymentStatus string, err error) {
	url := fmt.Sprintf("%s/payment/status/%d", strings.TrimRight(c.BaseURL, "/"), orderID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, "", err
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	res, err := c.httpClient().Do(req)
	if err != nil {
		return false, "", err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return false, "", fmt.Errorf("payment status: unexpected status %d", res.StatusCode)
	}

	var body statusResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return false, "", err
	}

	return body.Paid, body.PaymentStatus, nil
}

// Watch は Fetch を使うWatcherを組み立てて実行する。
func (c *StatusClient) Watch(ctx context.Context, orderID int64, onTick func(remaining time.Duration)) (bool, error) {
	w := &Watcher{
		OnTick: onTick,
		Check: func(ctx context.Context) (bool, error) {
			paid, _, err := c.Fetch(ctx, orderID)
			return paid, err
		},
	}
	return w.Run(ctx)
}
