package local

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tallypro/storefront/internal/domain/catalog"
	"github.com/tallypro/storefront/internal/domain/identity"
	"github.com/tallypro/storefront/internal/domain/sales"
	"github.com/tallypro/storefront/internal/domain/support"
	"github.com/tallypro/storefront/internal/infrastructure/config"
)

// SeedPassword is the password of the sample customers
const SeedPassword = "password123"

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seedProducts() []catalog.Product {
	return []catalog.Product{
		{
			ID:          "1",
			Name:        "Auto-GST Reconciliation Pro",
			Description: "Match purchase registers against GSTR-2B and flag mismatches inside Tally.",
			Price:       decimal.NewFromInt(4999),
			Category:    catalog.CategoryStatutory,
			Features:    []string{"GSTR-2B matching", "Mismatch report", "One-click vendor follow-up"},
			Active:      true,
			Version:     "2.1",
			LicenseType: catalog.LicenseSingleUser,
			UpdatedAt:   date(2024, time.January, 5),
		},
		{
			ID:          "2",
			Name:        "Smart Invoice Designer",
			Description: "Branded invoice layouts with QR codes and bank details.",
			Price:       decimal.NewFromInt(2499),
			Category:    catalog.CategoryInvoicing,
			Features:    []string{"Custom layouts", "UPI QR code", "Multi-currency"},
			Active:      true,
			Version:     "1.4",
			LicenseType: catalog.LicenseMultiUser,
			UpdatedAt:   date(2024, time.February, 12),
		},
		{
			ID:          "3",
			Name:        "Outstanding Reminder Suite",
			Description: "Scheduled payment reminders to debtors from their ledger balances.",
			Price:       decimal.NewFromInt(3499),
			Category:    catalog.CategoryOutstandingManagement,
			Features:    []string{"Ageing buckets", "Email reminders", "Interest calculation"},
			Active:      true,
			Version:     "1.0",
			LicenseType: catalog.LicenseLifetime,
			UpdatedAt:   date(2024, time.March, 3),
		},
		{
			ID:          "4",
			Name:        "Negative Stock Blocker",
			Description: "Prevents vouchers that would drive stock below zero.",
			Price:       decimal.NewFromInt(1499),
			Category:    catalog.CategoryAlertsAndControls,
			Features:    []string{"Godown-wise checks", "Override password"},
			Active:      true,
			Version:     "1.2",
			LicenseType: catalog.LicenseSingleUser,
			UpdatedAt:   date(2024, time.April, 18),
		},
	}
}

func (s *Store) seedUsers() ([]userRecord, error) {
	hash, err := identity.HashPassword(SeedPassword, s.passwordCost)
	if err != nil {
		return nil, err
	}
	return []userRecord{
		{
			User: identity.User{
				ID: "u1", Name: "Rajesh Kumar", Email: "user@tallypro.in",
				Role: identity.RoleCustomer, Status: identity.UserStatusActive,
				PurchasedProducts: []string{"1"}, JoinedAt: date(2023, time.November, 15),
			},
			PasswordHash: hash,
		},
		{
			User: identity.User{
				ID: "u2", Name: "Amit Patel", Email: "amit@business.com",
				Role: identity.RoleCustomer, Status: identity.UserStatusActive,
				PurchasedProducts: []string{}, JoinedAt: date(2024, time.January, 10),
			},
			PasswordHash: hash,
		},
	}, nil
}

func seedOrders() []sales.Order {
	return []sales.Order{{
		ID: "ord_1", UserID: "u1", UserName: "Rajesh Kumar",
		ProductID: "1", ProductName: "Auto-GST Reconciliation Pro",
		Amount: decimal.NewFromInt(4999), Status: sales.OrderStatusSuccess,
		Date: date(2023, time.November, 15),
	}}
}

func seedTickets() []support.Ticket {
	return []support.Ticket{{
		ID: "tkt_1", UserID: "u1", Subject: "Installation issue with GST TDL",
		Status: support.TicketStatusOpen, Priority: support.TicketPriorityHigh,
		CreatedAt: date(2024, time.May, 20),
	}}
}

// seed writes sample data for every collection that does not exist yet
func (s *Store) seed(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	type seeder func() error
	steps := map[string]seeder{
		keyProducts: func() error { return save(ctx, s, keyProducts, seedProducts()) },
		keyUsers: func() error {
			users, err := s.seedUsers()
			if err != nil {
				return err
			}
			return save(ctx, s, keyUsers, users)
		},
		keyOrders:    func() error { return save(ctx, s, keyOrders, seedOrders()) },
		keyTickets:   func() error { return save(ctx, s, keyTickets, seedTickets()) },
		keyFeedbacks: func() error { return save(ctx, s, keyFeedbacks, []support.Feedback{}) },
	}
	for key, run := range steps {
		ok, err := exists(ctx, s, key)
		if err != nil {
			return err
		}
		if ok {
			continue
		}
		if err := run(); err != nil {
			return err
		}
		s.logger.Debug("Seeded collection", zap.String("key", key))
	}
	return nil
}

// assertAdmins forces each configured administrator back to its
// configured name, role and password, active, creating it when missing
func (s *Store) assertAdmins(ctx context.Context, admins []config.AdminAccount) error {
	if len(admins) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := load[userRecord](ctx, s, keyUsers)
	if err != nil {
		return err
	}

	for i, admin := range admins {
		role := identity.Role(admin.Role)
		if !role.IsValid() || role == identity.RoleCustomer {
			role = identity.RoleAdmin
		}
		hash, err := identity.HashPassword(admin.Password, s.passwordCost)
		if err != nil {
			return err
		}
		email := identity.NormalizeEmail(admin.Email)
		name := strings.TrimSpace(admin.Name)
		if name == "" {
			name = identity.LocalPart(email)
		}

		idx := findUserByEmail(users, email)
		if idx >= 0 {
			users[idx].Name = name
			users[idx].Role = role
			users[idx].Status = identity.UserStatusActive
			users[idx].PasswordHash = hash
			continue
		}
		users = append(users, userRecord{
			User: identity.User{
				ID:                s.freeAdminID(users, i),
				Name:              name,
				Email:             email,
				Role:              role,
				Status:            identity.UserStatusActive,
				PurchasedProducts: []string{},
				JoinedAt:          date(2023, time.January, 1),
			},
			PasswordHash: hash,
		})
	}
	return save(ctx, s, keyUsers, users)
}

// freeAdminID prefers the positional admin_<n> id and falls back to a fresh
// one when an earlier admin list already handed that id out.
func (s *Store) freeAdminID(users []userRecord, i int) string {
	id := "admin_" + strconv.Itoa(i+1)
	for _, u := range users {
		if u.ID == id {
			return s.newID("admin")
		}
	}
	return id
}
