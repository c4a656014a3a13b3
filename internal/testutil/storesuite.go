package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallypro/storefront/internal/domain/catalog"
	"github.com/tallypro/storefront/internal/domain/identity"
	"github.com/tallypro/storefront/internal/domain/sales"
	"github.com/tallypro/storefront/internal/domain/shared"
	"github.com/tallypro/storefront/internal/domain/store"
	"github.com/tallypro/storefront/internal/domain/support"
)

// StoreFactory returns a fresh store for one subtest
type StoreFactory func(t *testing.T) store.Store

var suiteSeq atomic.Int64

func uniqueEmail(prefix string) string {
	return fmt.Sprintf("%s.%d@example.com", prefix, suiteSeq.Add(1))
}

func addProduct(t *testing.T, s store.Store, name string, price int64) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(fmt.Sprintf("p%d", suiteSeq.Add(1)), name, name+" module", decimal.NewFromInt(price), catalog.CategoryReports)
	require.NoError(t, err)
	created, err := s.AddProduct(context.Background(), p)
	require.NoError(t, err)
	return created
}

// RunStoreSuite checks the behavior every store.Store backend shares
func RunStoreSuite(t *testing.T, newStore StoreFactory) {
	t.Run("products", func(t *testing.T) { testProducts(t, newStore(t)) })
	t.Run("soft delete", func(t *testing.T) { testSoftDelete(t, newStore(t)) })
	t.Run("users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("signup and login", func(t *testing.T) { testSignupLogin(t, newStore(t)) })
	t.Run("purchase", func(t *testing.T) { testPurchase(t, newStore(t)) })
	t.Run("guest purchase is idempotent", func(t *testing.T) { testGuestPurchase(t, newStore(t)) })
	t.Run("payment id is recorded once", func(t *testing.T) { testPaymentRecordedOnce(t, newStore(t)) })
	t.Run("order status and revenue", func(t *testing.T) { testOrderStatus(t, newStore(t)) })
	t.Run("support", func(t *testing.T) { testSupport(t, newStore(t)) })
	t.Run("otp", func(t *testing.T) { testOTP(t, newStore(t)) })
	t.Run("otp locks after wrong guesses", func(t *testing.T) { testOTPLocks(t, newStore(t)) })
	t.Run("upload", func(t *testing.T) { testUpload(t, newStore(t)) })
	t.Run("subscriptions", func(t *testing.T) { testSubscriptions(t, newStore(t)) })
}

func testProducts(t *testing.T, s store.Store) {
	ctx := context.Background()

	missing, err := s.GetProduct(ctx, "does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, missing)

	p := addProduct(t, s, "Bank Reconciliation", 1999)
	got, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Bank Reconciliation", got.Name)
	assert.True(t, got.Price.Equal(decimal.NewFromInt(1999)))
	assert.True(t, got.Active)

	got.Price = decimal.NewFromInt(2499)
	got.Features = []string{"Auto match"}
	updated, err := s.UpdateProduct(ctx, got)
	require.NoError(t, err)
	assert.True(t, updated.Price.Equal(decimal.NewFromInt(2499)))

	reloaded, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Auto match"}, reloaded.Features)

	_, err = s.UpdateProduct(ctx, &catalog.Product{ID: "nope", Name: "x", Category: catalog.CategoryGeneral})
	assert.ErrorIs(t, err, shared.ErrNotFound)

	all, err := s.GetProducts(ctx)
	require.NoError(t, err)
	ids := make([]string, 0, len(all))
	for _, item := range all {
		ids = append(ids, item.ID)
	}
	assert.Contains(t, ids, p.ID)
}

func testSoftDelete(t *testing.T, s store.Store) {
	ctx := context.Background()
	p := addProduct(t, s, "Cheque Printing", 999)

	require.NoError(t, s.DeleteProduct(ctx, p.ID))

	got, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got, "soft-deleted products stay retrievable by id")
	assert.False(t, got.Active)

	all, err := s.GetProducts(ctx)
	require.NoError(t, err)
	for _, item := range catalog.ActiveOnly(all) {
		assert.NotEqual(t, p.ID, item.ID)
	}

	assert.ErrorIs(t, s.DeleteProduct(ctx, "nope"), shared.ErrNotFound)
}

func testUsers(t *testing.T, s store.Store) {
	ctx := context.Background()
	email := uniqueEmail("Mixed.Case")

	created, err := s.AddUser(ctx, store.NewUserInput{Name: "Mixed Case", Email: email, Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, identity.RoleCustomer, created.Role)
	assert.Equal(t, strings.ToLower(email), created.Email)

	byEmail, err := s.GetUserByEmail(ctx, strings.ToUpper(email))
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, created.ID, byEmail.ID)

	byID, err := s.GetUserByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)

	none, err := s.GetUserByEmail(ctx, uniqueEmail("nobody"))
	require.NoError(t, err)
	assert.Nil(t, none)
	none, err = s.GetUserByID(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = s.AddUser(ctx, store.NewUserInput{Name: "Dup", Email: email, Password: "secret123"})
	assert.ErrorIs(t, err, store.ErrEmailAlreadyRegistered)

	phone, serial := "+919876543210", "TS-100"
	profile, err := s.UpdateUserProfile(ctx, created.ID, identity.ProfileUpdate{PhoneNumber: &phone, TallySerial: &serial})
	require.NoError(t, err)
	assert.Equal(t, phone, profile.PhoneNumber)
	assert.Equal(t, serial, profile.TallySerial)
	assert.Equal(t, "Mixed Case", profile.Name)

	require.NoError(t, s.UpdateUserStatus(ctx, created.ID, identity.UserStatusInactive))
	reloaded, err := s.GetUserByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, identity.UserStatusInactive, reloaded.Status)

	assert.ErrorIs(t, s.UpdateUserStatus(ctx, "missing", identity.UserStatusActive), shared.ErrNotFound)

	users, err := s.GetUsers(ctx)
	require.NoError(t, err)
	found := false
	for _, u := range users {
		found = found || u.ID == created.ID
	}
	assert.True(t, found)
}

func testSignupLogin(t *testing.T, s store.Store) {
	ctx := context.Background()
	email := uniqueEmail("signup")

	user, err := s.Signup(ctx, "Neha Shah", email, "hunter22")
	require.NoError(t, err)
	assert.Equal(t, identity.RoleCustomer, user.Role)
	assert.Equal(t, identity.UserStatusActive, user.Status)
	assert.Empty(t, user.PurchasedProducts)

	_, err = s.Signup(ctx, "Again", strings.ToUpper(email), "hunter22")
	assert.ErrorIs(t, err, store.ErrEmailAlreadyRegistered)

	logged, err := s.Login(ctx, strings.ToUpper(email), "hunter22")
	require.NoError(t, err)
	assert.Equal(t, user.ID, logged.ID)

	_, err = s.Login(ctx, email, "wrong-password")
	assert.ErrorIs(t, err, store.ErrInvalidCredentials)
	_, err = s.Login(ctx, uniqueEmail("ghost"), "hunter22")
	assert.ErrorIs(t, err, store.ErrInvalidCredentials)

	err = s.UpdatePassword(ctx, user.ID, "short")
	de, ok := shared.AsDomainError(err)
	require.True(t, ok, "weak password must be a domain error, got %v", err)
	assert.Equal(t, "INVALID_PASSWORD", de.Code)
	_, err = s.Login(ctx, email, "hunter22")
	require.NoError(t, err, "a rejected password leaves the old one in place")

	require.NoError(t, s.UpdatePassword(ctx, user.ID, "newpass99"))
	_, err = s.Login(ctx, email, "hunter22")
	assert.ErrorIs(t, err, store.ErrInvalidCredentials)
	_, err = s.Login(ctx, email, "newpass99")
	require.NoError(t, err)

	require.NoError(t, s.Logout(ctx, user.ID))
}

func testPurchase(t *testing.T, s store.Store) {
	ctx := context.Background()
	p := addProduct(t, s, "Payroll Pack", 2999)
	user, err := s.Signup(ctx, "Buyer", uniqueEmail("buyer"), "buyer123")
	require.NoError(t, err)

	details := sales.PurchaseDetails{PhoneNumber: "9876543210", TallySerial: "7123", PaymentID: "pay_1"}
	order, err := s.CreateOrder(ctx, user.ID, p, details)
	require.NoError(t, err)
	assert.Equal(t, user.ID, order.UserID)
	assert.Equal(t, user.Name, order.UserName)
	assert.Equal(t, p.Name, order.ProductName)
	assert.True(t, order.Amount.Equal(p.Price))
	assert.Equal(t, sales.OrderStatusSuccess, order.Status)
	assert.Equal(t, "pay_1", order.PaymentID)

	second, err := s.CreateOrder(ctx, user.ID, p, sales.PurchaseDetails{PaymentID: "pay_2"})
	require.NoError(t, err)
	assert.NotEqual(t, order.ID, second.ID)

	reloaded, err := s.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{p.ID}, reloaded.PurchasedProducts)

	mine, err := s.GetOrdersByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	granted, err := s.GrantEntitlement(ctx, user.ID, p.ID)
	require.NoError(t, err)
	assert.False(t, granted)

	_, err = s.CreateOrder(ctx, "missing-user", p, sales.PurchaseDetails{})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func testGuestPurchase(t *testing.T, s store.Store) {
	ctx := context.Background()
	p := addProduct(t, s, "GST Pro", 4999)
	email := uniqueEmail("new.buyer")

	first, err := s.CreateGuestOrder(ctx, email, p, sales.PurchaseDetails{PhoneNumber: "9876543210"})
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, identity.LocalPart(strings.ToLower(email)), first.Name)
	assert.Equal(t, identity.RoleCustomer, first.Role)
	assert.Equal(t, []string{p.ID}, first.PurchasedProducts)

	second, err := s.CreateGuestOrder(ctx, strings.ToUpper(email), p, sales.PurchaseDetails{})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "the same account is reused")
	assert.Equal(t, []string{p.ID}, second.PurchasedProducts, "entitlement is a set")

	orders, err := s.GetOrdersByUser(ctx, first.ID)
	require.NoError(t, err)
	assert.Len(t, orders, 2, "every purchase writes an order")

	users, err := s.GetUsers(ctx)
	require.NoError(t, err)
	matches := 0
	for _, u := range users {
		if strings.EqualFold(u.Email, email) {
			matches++
		}
	}
	assert.Equal(t, 1, matches)
}

func testPaymentRecordedOnce(t *testing.T, s store.Store) {
	ctx := context.Background()
	p := addProduct(t, s, "Payroll Pack", 1999)
	buyer, err := s.Signup(ctx, "Buyer", uniqueEmail("buyer"), "buyer123")
	require.NoError(t, err)

	_, err = s.CreateOrder(ctx, buyer.ID, p, sales.PurchaseDetails{PaymentID: "pay_shared"})
	require.NoError(t, err)

	_, err = s.CreateOrder(ctx, buyer.ID, p, sales.PurchaseDetails{PaymentID: "pay_shared"})
	assert.ErrorIs(t, err, sales.ErrPaymentAlreadyRecorded)

	email := uniqueEmail("replay")
	guest, err := s.CreateGuestOrder(ctx, email, p, sales.PurchaseDetails{PaymentID: "pay_shared"})
	assert.ErrorIs(t, err, sales.ErrPaymentAlreadyRecorded)
	assert.Nil(t, guest)
	missing, err := s.GetUserByEmail(ctx, email)
	require.NoError(t, err)
	assert.Nil(t, missing, "no account is created for a replayed payment")

	orders, err := s.GetOrdersByUser(ctx, buyer.ID)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func testOrderStatus(t *testing.T, s store.Store) {
	ctx := context.Background()

	before, err := s.GetRevenue(ctx)
	require.NoError(t, err)

	p := addProduct(t, s, "Refundable", 500)
	user, err := s.Signup(ctx, "R", uniqueEmail("refund"), "refund123")
	require.NoError(t, err)
	order, err := s.CreateOrder(ctx, user.ID, p, sales.PurchaseDetails{})
	require.NoError(t, err)

	after, err := s.GetRevenue(ctx)
	require.NoError(t, err)
	assert.True(t, after.Sub(before).Equal(decimal.NewFromInt(500)), "revenue grows by the order amount")

	require.NoError(t, s.UpdateOrderStatus(ctx, order.ID, sales.OrderStatusRefunded))
	refunded, err := s.GetRevenue(ctx)
	require.NoError(t, err)
	assert.True(t, refunded.Equal(before), "refunded orders are excluded")

	err = s.UpdateOrderStatus(ctx, order.ID, sales.OrderStatusSuccess)
	assert.Error(t, err, "refunded is terminal")

	assert.ErrorIs(t, s.UpdateOrderStatus(ctx, "missing", sales.OrderStatusRefunded), shared.ErrNotFound)

	all, err := s.GetOrders(ctx)
	require.NoError(t, err)
	var found *sales.Order
	for i := range all {
		if all[i].ID == order.ID {
			found = &all[i]
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, sales.OrderStatusRefunded, found.Status)
}

func testSupport(t *testing.T, s store.Store) {
	ctx := context.Background()

	ticket, err := support.NewTicket("", "u1", "License transfer", support.TicketPriorityLow)
	require.NoError(t, err)
	created, err := s.CreateTicket(ctx, ticket)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, support.TicketStatusOpen, created.Status)

	require.NoError(t, s.UpdateTicketStatus(ctx, created.ID, support.TicketStatusInProgress))
	tickets, err := s.GetTickets(ctx)
	require.NoError(t, err)
	var status support.TicketStatus
	for _, tk := range tickets {
		if tk.ID == created.ID {
			status = tk.Status
		}
	}
	assert.Equal(t, support.TicketStatusInProgress, status)
	assert.ErrorIs(t, s.UpdateTicketStatus(ctx, "missing", support.TicketStatusClosed), shared.ErrNotFound)

	fb, err := support.NewFeedback("", "Rajesh", "Rajesh@Example.com", 5, "Saved hours every month")
	require.NoError(t, err)
	added, err := s.AddFeedback(ctx, fb)
	require.NoError(t, err)
	assert.NotEmpty(t, added.ID)

	feedbacks, err := s.GetFeedbacks(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, feedbacks)
	assert.Equal(t, added.ID, feedbacks[0].ID, "newest feedback first")
	assert.Equal(t, "rajesh@example.com", feedbacks[0].UserEmail)
}

func testOTP(t *testing.T, s store.Store) {
	ctx := context.Background()
	user, err := s.Signup(ctx, "Otp User", uniqueEmail("otp"), "otpuser1")
	require.NoError(t, err)

	_, err = s.ConsumeOTP(ctx, user.Email, "000000")
	assert.ErrorIs(t, err, store.ErrOTPNotFound)

	otp, err := identity.NewOTP(user.Email, 10*time.Minute, nowUTC())
	require.NoError(t, err)
	require.NoError(t, s.SaveOTP(ctx, otp))

	_, err = s.ConsumeOTP(ctx, user.Email, wrongCode(otp.Code))
	assert.ErrorIs(t, err, identity.ErrOTPMismatch)

	got, err := s.ConsumeOTP(ctx, strings.ToUpper(user.Email), otp.Code)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, user.ID, got.ID)

	_, err = s.ConsumeOTP(ctx, user.Email, otp.Code)
	assert.ErrorIs(t, err, identity.ErrOTPUsed)
}

func testOTPLocks(t *testing.T, s store.Store) {
	ctx := context.Background()
	user, err := s.Signup(ctx, "Otp Guess", uniqueEmail("otplock"), "otpuser1")
	require.NoError(t, err)

	otp, err := identity.NewOTP(user.Email, 10*time.Minute, nowUTC())
	require.NoError(t, err)
	require.NoError(t, s.SaveOTP(ctx, otp))

	for range identity.MaxOTPAttempts {
		_, err = s.ConsumeOTP(ctx, user.Email, wrongCode(otp.Code))
		assert.ErrorIs(t, err, identity.ErrOTPMismatch)
	}
	_, err = s.ConsumeOTP(ctx, user.Email, otp.Code)
	assert.ErrorIs(t, err, identity.ErrOTPLocked)

	fresh, err := identity.NewOTP(user.Email, 10*time.Minute, nowUTC())
	require.NoError(t, err)
	require.NoError(t, s.SaveOTP(ctx, fresh))
	got, err := s.ConsumeOTP(ctx, user.Email, fresh.Code)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
}

func wrongCode(code string) string {
	if code == "111111" {
		return "222222"
	}
	return "111111"
}

func testUpload(t *testing.T, s store.Store) {
	ctx := context.Background()
	content := strings.Repeat("tdl-binary-", 1000)

	var mu sync.Mutex
	var progress []float64
	url, err := s.UploadFile(ctx, "gst.tcp", "application/octet-stream", strings.NewReader(content), int64(len(content)), func(p float64) {
		mu.Lock()
		progress = append(progress, p)
		mu.Unlock()
	})
	require.NoError(t, err)
	assert.NotEmpty(t, url)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, progress)
	assert.Equal(t, float64(100), progress[len(progress)-1])
	for i := 1; i < len(progress); i++ {
		assert.GreaterOrEqual(t, progress[i], progress[i-1])
	}
}

func testSubscriptions(t *testing.T, s store.Store) {
	ctx := context.Background()
	p := addProduct(t, s, "Subscribed", 100)

	var mu sync.Mutex
	var snapshots [][]catalog.Product
	unsubscribe, err := s.SubscribeProducts(ctx, func(products []catalog.Product) {
		mu.Lock()
		snapshots = append(snapshots, products)
		mu.Unlock()
	})
	require.NoError(t, err)
	require.NotNil(t, unsubscribe)

	mu.Lock()
	require.NotEmpty(t, snapshots, "callback runs with the current snapshot")
	first := snapshots[0]
	mu.Unlock()
	ids := make([]string, 0, len(first))
	for _, item := range first {
		ids = append(ids, item.ID)
	}
	assert.Contains(t, ids, p.ID)

	unsubscribe()
	unsubscribe()

	var ticketCalls, feedbackCalls atomic.Int32
	unsubTickets, err := s.SubscribeTickets(ctx, func([]support.Ticket) { ticketCalls.Add(1) })
	require.NoError(t, err)
	unsubFeedbacks, err := s.SubscribeFeedbacks(ctx, func([]support.Feedback) { feedbackCalls.Add(1) })
	require.NoError(t, err)
	assert.GreaterOrEqual(t, ticketCalls.Load(), int32(1))
	assert.GreaterOrEqual(t, feedbackCalls.Load(), int32(1))
	unsubTickets()
	unsubFeedbacks()
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
