package workers

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/example/semsark/internal/models"
)

// PaymentExpiryWorker marks abandoned Pending payments as Failed after a TTL.
// The dependent property or booking is left in its payment-outstanding state,
// so the owner or renter can simply initiate a fresh payment.
type PaymentExpiryWorker struct {
	db       *gorm.DB
	ttl      time.Duration
	interval time.Duration
}

// NewPaymentExpiryWorker constructs the worker. A ttl of zero disables it.
func NewPaymentExpiryWorker(db *gorm.DB, ttl, interval time.Duration) *PaymentExpiryWorker {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	return &PaymentExpiryWorker{db: db, ttl: ttl, interval: interval}
}

// Start runs the sweep loop until the context is cancelled.
func (w *PaymentExpiryWorker) Start(ctx context.Context) {
	if w.ttl <= 0 {
		log.Println("[Expiry] Pending payment TTL disabled")
		return
	}

	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Println("[Expiry] Payment expiry worker stopped")
				return
			case <-ticker.C:
				if n, err := w.Sweep(ctx); err != nil {
					log.Printf("[Expiry] Sweep failed: %v", err)
				} else if n > 0 {
					log.Printf("[Expiry] Marked %d stale pending payments as failed", n)
				}
			}
		}
	}()
}

// Sweep fails every Pending payment older than the TTL that never received a
// transaction id. Returns the number of payments updated.
func (w *PaymentExpiryWorker) Sweep(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-w.ttl)

	result := w.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("status = ? AND transaction_id IS NULL AND created_at < ?",
			models.PaymentStatusPending, cutoff).
		Update("status", models.PaymentStatusFailed)

	return result.RowsAffected, result.Error
}
