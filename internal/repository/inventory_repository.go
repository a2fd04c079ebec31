package repository

import (
	"app/internal/domain/model"
	"context"
)

// 在庫の現在値と調整履歴。
// 注文確定時の在庫減算は行わない（在庫は管理者の手動調整のみ）。
type InventoryRepository interface {
	// 在庫の現在値を設定
	SetStock(ctx context.Context, productID int64, newStock int64) error

	// 調整履歴作成
	CreateAdjustment(ctx context.Context, adjustment model.InventoryAdjustment) error
}
