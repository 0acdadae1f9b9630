package services

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/semsark/internal/config"
	"github.com/example/semsark/internal/gateway"
	"github.com/example/semsark/internal/models"
)

// testDB opens the database named by TEST_DATABASE_URL, migrates the schema,
// and truncates all tables. Tests are skipped when the variable is unset.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Property{},
		&models.PropertyImage{},
		&models.Booking{},
		&models.Payment{},
	))

	for _, table := range []string{"payments", "bookings", "property_images", "properties", "users"} {
		require.NoError(t, db.Exec("DELETE FROM "+table).Error)
	}

	return db
}

func testConfig() *config.Config {
	return &config.Config{
		AdvertiseCommissionRate: 0.05,
		BookingCommissionRate:   0.05,
		Currency:                "EGP",
	}
}

func createTestUser(t *testing.T, db *gorm.DB, role string) *models.User {
	t.Helper()
	user := &models.User{
		FirstName:    "Test",
		LastName:     role,
		Email:        fmt.Sprintf("%s@test.local", uuid.NewString()),
		PasswordHash: "x",
		Role:         role,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createTestProperty(t *testing.T, db *gorm.DB, owner *models.User, status string, isPaid bool, price float64) *models.Property {
	t.Helper()
	property := &models.Property{
		Title:  "Flat " + uuid.NewString()[:8],
		Price:  price,
		City:   "Cairo",
		Status: status,
		IsPaid: isPaid,
		UserID: owner.ID,
	}
	require.NoError(t, db.Create(property).Error)
	return property
}

func createTestBooking(t *testing.T, db *gorm.DB, property *models.Property, renter *models.User, days int, status string) *models.Booking {
	t.Helper()
	start := time.Now().Add(24 * time.Hour).Truncate(time.Hour)
	booking := &models.Booking{
		PropertyID: property.ID,
		RenterID:   renter.ID,
		StartDate:  start,
		EndDate:    start.Add(time.Duration(days) * 24 * time.Hour),
		Status:     status,
	}
	require.NoError(t, db.Create(booking).Error)
	return booking
}

// stubGateway is an in-memory gateway.Client. CreateOrder records the
// merchant reference it was given; QueryTransactionStatus answers from the
// transactions map.
type stubGateway struct {
	mu           sync.Mutex
	orderRefs    []string
	nextOrderID  int64
	transactions map[string]bool
	unavailable  bool
}

func newStubGateway() *stubGateway {
	return &stubGateway{transactions: make(map[string]bool)}
}

func (g *stubGateway) Authenticate(ctx context.Context) (string, error) {
	if g.unavailable {
		return "", fmt.Errorf("stub: %w", gateway.ErrUnavailable)
	}
	return "stub-token", nil
}

func (g *stubGateway) CreateOrder(ctx context.Context, authToken string, amountCents int64, currency, merchantOrderRef string) (int64, error) {
	if g.unavailable {
		return 0, fmt.Errorf("stub: %w", gateway.ErrUnavailable)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.orderRefs = append(g.orderRefs, merchantOrderRef)
	g.nextOrderID++
	return g.nextOrderID, nil
}

func (g *stubGateway) CreatePaymentHandle(ctx context.Context, authToken string, orderID, amountCents int64, payerEmail, payerName string) (string, error) {
	if g.unavailable {
		return "", fmt.Errorf("stub: %w", gateway.ErrUnavailable)
	}
	return fmt.Sprintf("https://gateway.test/pay/%d", orderID), nil
}

func (g *stubGateway) QueryTransactionStatus(ctx context.Context, transactionID string) (bool, error) {
	if g.unavailable {
		return false, fmt.Errorf("stub: %w", gateway.ErrUnavailable)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.transactions[transactionID], nil
}

func (g *stubGateway) lastOrderRef() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.orderRefs) == 0 {
		return ""
	}
	return g.orderRefs[len(g.orderRefs)-1]
}
