package paymentpoll

import (
	"context"
	"errors"
	"time"
)

// デフォルトのポーリング間隔とカウントダウン
const (
	DefaultInterval  = 5 * time.Second
	DefaultCountdown = 15 * time.Minute
)

var ErrStopped = errors.New("watcher stopped")

// Watcher は支払ステータスを定期的に確認する。
// Checkがtrueを返すか、contextが終了するまで回り続ける。
// カウントダウンは表示用で、0になってもポーリングは止めない。
type Watcher struct {
	// ポーリング間隔（未設定ならDefaultInterval）
	Interval time.Duration

	// 表示用の残り時間の初期値（未設定ならDefaultCountdown）
	Countdown time.Duration

	// 支払済みかどうかの確認。一時的なエラーは無視して次のtickで再試行する。
	Check func(ctx context.Context) (bool, error)

	// 1秒ごとの残り時間通知（省略可）
	OnTick func(remaining time.Duration)
}

// Run は支払完了(true)かcontext終了まで監視する。
func (w *Watcher) Run(ctx context.Context) (bool, error) {
	if w.Check == nil {
		return false, errors.New("paymentpoll: Check is required")
	}

	interval := w.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	countdown := w.Countdown
	if countdown <= 0 {
		countdown = DefaultCountdown
	}

	deadline := time.Now().Add(countdown)

	//初回は待たずに確認する
	paid, err := w.Check(ctx)
	if err == nil && paid {
		return true, nil
	}

	poll := time.NewTicker(interval)
	defer poll.Stop()

	display := time.NewTicker(time.Second)
	defer display.Stop()

	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()

		case <-display.C:
			if w.OnTick != nil {
				remaining := time.Until(deadline)
				if remaining < 0 {
					remaining = 0
				}
				w.OnTick(remaining)
			}

		case <-poll.C:
			paid, err := w.Check(ctx)
			if err != nil {
				//一時的なエラーは握りつぶして次のtickへ
				continue
			}
			if paid {
				return true, nil
			}
		}
	}
}
