package services

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/example/semsark/internal/apperrors"
	"github.com/example/semsark/internal/models"
)

func createPendingPayment(t *testing.T, db *gorm.DB, p models.Payment) *models.Payment {
	t.Helper()
	p.Status = models.PaymentStatusPending
	p.OrderRef = uuid.NewString()
	require.NoError(t, db.Create(&p).Error)
	return &p
}

func TestHandleCallbackSettlesAdvertisePayment(t *testing.T) {
	db := testDB(t)
	svc := NewReconcileService(db, newStubGateway(), nil, false)
	ctx := context.Background()

	owner := createTestUser(t, db, models.RoleOwner)
	property := createTestProperty(t, db, owner, models.PropertyStatusPending, false, 100)
	payment := createPendingPayment(t, db, models.Payment{
		Amount:      100,
		PaymentType: models.PaymentTypeAdvertise,
		PropertyID:  &property.ID,
		OwnerID:     owner.ID,
	})

	result, err := svc.HandleCallback(ctx, CallbackNotification{
		TransactionID:    "txn-100",
		Success:          true,
		MerchantOrderRef: payment.OrderRef,
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, payment.ID, result.PaymentID)
	assert.False(t, result.AlreadyConfirmed)

	var settled models.Payment
	require.NoError(t, db.First(&settled, "id = ?", payment.ID).Error)
	assert.Equal(t, models.PaymentStatusPaid, settled.Status)
	assert.True(t, settled.IsConfirmed)
	require.NotNil(t, settled.TransactionID)
	assert.Equal(t, "txn-100", *settled.TransactionID)

	var advertised models.Property
	require.NoError(t, db.First(&advertised, "id = ?", property.ID).Error)
	assert.True(t, advertised.IsPaid)
	assert.Equal(t, models.PropertyStatusAvailable, advertised.Status)
}

func TestHandleCallbackIsIdempotent(t *testing.T) {
	db := testDB(t)
	svc := NewReconcileService(db, newStubGateway(), nil, false)
	ctx := context.Background()

	owner := createTestUser(t, db, models.RoleOwner)
	renter := createTestUser(t, db, models.RoleRenter)
	property := createTestProperty(t, db, owner, models.PropertyStatusAvailable, true, 100)
	booking := createTestBooking(t, db, property, renter, 2, models.BookingStatusPending)
	payment := createPendingPayment(t, db, models.Payment{
		Amount:      200,
		PaymentType: models.PaymentTypeBooking,
		BookingID:   &booking.ID,
		OwnerID:     owner.ID,
		RenterID:    &renter.ID,
	})

	notification := CallbackNotification{
		TransactionID:    "txn-200",
		Success:          true,
		MerchantOrderRef: payment.OrderRef,
	}

	first, err := svc.HandleCallback(ctx, notification)
	require.NoError(t, err)
	assert.False(t, first.AlreadyConfirmed)

	second, err := svc.HandleCallback(ctx, notification)
	require.NoError(t, err)
	assert.True(t, second.AlreadyConfirmed)
	assert.Equal(t, first.PaymentID, second.PaymentID)

	var approved models.Booking
	require.NoError(t, db.First(&approved, "id = ?", booking.ID).Error)
	assert.Equal(t, models.BookingStatusApproved, approved.Status)
}

func TestHandleCallbackDropsUnsuccessful(t *testing.T) {
	db := testDB(t)
	svc := NewReconcileService(db, newStubGateway(), nil, false)
	ctx := context.Background()

	result, err := svc.HandleCallback(ctx, CallbackNotification{TransactionID: "txn-1", Success: false})
	require.NoError(t, err)
	assert.Nil(t, result)

	result, err = svc.HandleCallback(ctx, CallbackNotification{Success: true})
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestHandleCallbackUnreferenced(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	owner := createTestUser(t, db, models.RoleOwner)
	property := createTestProperty(t, db, owner, models.PropertyStatusPending, false, 100)
	payment := createPendingPayment(t, db, models.Payment{
		Amount:      100,
		PaymentType: models.PaymentTypeAdvertise,
		PropertyID:  &property.ID,
		OwnerID:     owner.ID,
	})

	strict := NewReconcileService(db, newStubGateway(), nil, false)
	_, err := strict.HandleCallback(ctx, CallbackNotification{TransactionID: "txn-300", Success: true})
	assert.True(t, apperrors.Is(err, apperrors.CodePaymentNotFound))

	legacy := NewReconcileService(db, newStubGateway(), nil, true)
	result, err := legacy.HandleCallback(ctx, CallbackNotification{TransactionID: "txn-300", Success: true})
	require.NoError(t, err)
	assert.Equal(t, payment.ID, result.PaymentID)
}

func TestHandleCallbackDoesNotCrossWire(t *testing.T) {
	db := testDB(t)
	svc := NewReconcileService(db, newStubGateway(), nil, false)
	ctx := context.Background()

	alice := createTestUser(t, db, models.RoleOwner)
	bob := createTestUser(t, db, models.RoleOwner)

	older := createPendingPayment(t, db, models.Payment{
		Amount:      100,
		PaymentType: models.PaymentTypeAdvertise,
		OwnerID:     alice.ID,
	})
	newer := createPendingPayment(t, db, models.Payment{
		Amount:      100,
		PaymentType: models.PaymentTypeAdvertise,
		OwnerID:     bob.ID,
	})

	// The correlation id settles exactly its own payment, never the most
	// recently created one.
	result, err := svc.HandleCallback(ctx, CallbackNotification{
		TransactionID:    "txn-450",
		Success:          true,
		MerchantOrderRef: older.OrderRef,
	})
	require.NoError(t, err)
	assert.Equal(t, older.ID, result.PaymentID)

	var untouched models.Payment
	require.NoError(t, db.First(&untouched, "id = ?", newer.ID).Error)
	assert.Equal(t, models.PaymentStatusPending, untouched.Status)
	assert.Nil(t, untouched.TransactionID)
}

func TestHandleCallbackUnknownOrderRef(t *testing.T) {
	db := testDB(t)
	svc := NewReconcileService(db, newStubGateway(), nil, false)

	_, err := svc.HandleCallback(context.Background(), CallbackNotification{
		TransactionID:    "txn-400",
		Success:          true,
		MerchantOrderRef: uuid.NewString(),
	})
	assert.True(t, apperrors.Is(err, apperrors.CodePaymentNotFound))
}

func TestHandleCallbackRejectsReusedTransactionID(t *testing.T) {
	db := testDB(t)
	svc := NewReconcileService(db, newStubGateway(), nil, false)
	ctx := context.Background()

	owner := createTestUser(t, db, models.RoleOwner)
	first := createPendingPayment(t, db, models.Payment{
		Amount:      100,
		PaymentType: models.PaymentTypeAdvertise,
		OwnerID:     owner.ID,
	})
	second := createPendingPayment(t, db, models.Payment{
		Amount:      100,
		PaymentType: models.PaymentTypeAdvertise,
		OwnerID:     owner.ID,
	})

	_, err := svc.HandleCallback(ctx, CallbackNotification{
		TransactionID:    "txn-500",
		Success:          true,
		MerchantOrderRef: first.OrderRef,
	})
	require.NoError(t, err)

	_, err = svc.HandleCallback(ctx, CallbackNotification{
		TransactionID:    "txn-500",
		Success:          true,
		MerchantOrderRef: second.OrderRef,
	})
	assert.True(t, apperrors.Is(err, apperrors.CodeConflict))

	var untouched models.Payment
	require.NoError(t, db.First(&untouched, "id = ?", second.ID).Error)
	assert.Equal(t, models.PaymentStatusPending, untouched.Status)
	assert.Nil(t, untouched.TransactionID)
}

func TestConfirmTransactionVerifiesWithGateway(t *testing.T) {
	db := testDB(t)
	gw := newStubGateway()
	svc := NewReconcileService(db, gw, nil, false)
	ctx := context.Background()

	owner := createTestUser(t, db, models.RoleOwner)
	property := createTestProperty(t, db, owner, models.PropertyStatusPending, false, 100)
	createPendingPayment(t, db, models.Payment{
		Amount:      100,
		PaymentType: models.PaymentTypeAdvertise,
		PropertyID:  &property.ID,
		OwnerID:     owner.ID,
	})

	_, err := svc.ConfirmTransaction(ctx, "", owner.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidArgument))

	// Gateway reports the transaction as not completed.
	_, err = svc.ConfirmTransaction(ctx, "txn-600", owner.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodePaymentNotCompleted))

	gw.transactions["txn-600"] = true
	result, err := svc.ConfirmTransaction(ctx, "txn-600", owner.ID)
	require.NoError(t, err)
	assert.False(t, result.AlreadyConfirmed)

	var advertised models.Property
	require.NoError(t, db.First(&advertised, "id = ?", property.ID).Error)
	assert.Equal(t, models.PropertyStatusAvailable, advertised.Status)
}

func TestConfirmTransactionGatewayOutage(t *testing.T) {
	db := testDB(t)
	gw := newStubGateway()
	gw.unavailable = true
	svc := NewReconcileService(db, gw, nil, false)

	_, err := svc.ConfirmTransaction(context.Background(), "txn-601", uuid.New())
	assert.True(t, apperrors.Is(err, apperrors.CodeGatewayUnavailable))
}

func TestConfirmTransactionScopedToCaller(t *testing.T) {
	db := testDB(t)
	gw := newStubGateway()
	gw.transactions["txn-700"] = true
	svc := NewReconcileService(db, gw, nil, false)
	ctx := context.Background()

	alice := createTestUser(t, db, models.RoleOwner)
	bob := createTestUser(t, db, models.RoleOwner)

	alicePayment := createPendingPayment(t, db, models.Payment{
		Amount:      100,
		PaymentType: models.PaymentTypeAdvertise,
		OwnerID:     alice.ID,
	})
	// Bob's payment is newer; an unscoped latest-Pending match would pick it.
	bobPayment := createPendingPayment(t, db, models.Payment{
		Amount:      100,
		PaymentType: models.PaymentTypeAdvertise,
		OwnerID:     bob.ID,
	})

	result, err := svc.ConfirmTransaction(ctx, "txn-700", alice.ID)
	require.NoError(t, err)
	assert.Equal(t, alicePayment.ID, result.PaymentID)

	var untouched models.Payment
	require.NoError(t, db.First(&untouched, "id = ?", bobPayment.ID).Error)
	assert.Equal(t, models.PaymentStatusPending, untouched.Status)
}

func TestConfirmTransactionConcurrent(t *testing.T) {
	db := testDB(t)
	gw := newStubGateway()
	gw.transactions["txn-800"] = true
	svc := NewReconcileService(db, gw, nil, false)
	ctx := context.Background()

	owner := createTestUser(t, db, models.RoleOwner)
	property := createTestProperty(t, db, owner, models.PropertyStatusPending, false, 100)
	createPendingPayment(t, db, models.Payment{
		Amount:      100,
		PaymentType: models.PaymentTypeAdvertise,
		PropertyID:  &property.ID,
		OwnerID:     owner.ID,
	})

	const workers = 4
	results := make([]*ConfirmResult, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.ConfirmTransaction(ctx, "txn-800", owner.ID)
		}(i)
	}
	wg.Wait()

	fresh := 0
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		require.NotNil(t, results[i])
		if !results[i].AlreadyConfirmed {
			fresh++
		}
	}
	assert.Equal(t, 1, fresh, "exactly one confirmation may apply side effects")

	var paid int64
	require.NoError(t, db.Model(&models.Payment{}).
		Where("status = ?", models.PaymentStatusPaid).
		Count(&paid).Error)
	assert.EqualValues(t, 1, paid)
}
