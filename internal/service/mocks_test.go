package service

import (
	"context"

	"ochre-shop/internal/model"
	"ochre-shop/internal/notify"
	"ochre-shop/internal/payment"
	"ochre-shop/internal/session"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockCatalogRepository is a mock implementation of CatalogRepository.
type MockCatalogRepository struct {
	mock.Mock
}

func (m *MockCatalogRepository) ListCategories(ctx context.Context) ([]model.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Category), args.Error(1)
}

func (m *MockCatalogRepository) CreateCategory(ctx context.Context, c *model.Category) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockCatalogRepository) ListProducts(ctx context.Context, filter model.ProductFilter) ([]model.Product, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockCatalogRepository) GetProductBySlug(ctx context.Context, slug string) (*model.Product, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockCatalogRepository) GetProductByID(ctx context.Context, id int64, includeUnpublished bool) (*model.Product, error) {
	args := m.Called(ctx, id, includeUnpublished)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockCatalogRepository) GetProductsByIDs(ctx context.Context, ids []int64) ([]model.Product, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockCatalogRepository) GetUnit(ctx context.Context, productID, unitID int64) (*model.ProductUnit, error) {
	args := m.Called(ctx, productID, unitID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ProductUnit), args.Error(1)
}

func (m *MockCatalogRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	args := m.Called(ctx, slug)
	return args.Bool(0), args.Error(1)
}

func (m *MockCatalogRepository) CreateProduct(ctx context.Context, p *model.Product) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockCatalogRepository) SaveUnit(ctx context.Context, u *model.ProductUnit) error {
	return m.Called(ctx, u).Error(0)
}

// MockCartRepository is a mock implementation of CartRepository.
type MockCartRepository struct {
	mock.Mock
}

func (m *MockCartRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	if tx, ok := args.Get(0).(pgx.Tx); ok {
		return tx, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCartRepository) GetOrCreate(ctx context.Context, tx pgx.Tx, userID int64) (*model.Cart, error) {
	args := m.Called(ctx, tx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Cart), args.Error(1)
}

func (m *MockCartRepository) Get(ctx context.Context, userID int64) (*model.Cart, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Cart), args.Error(1)
}

func (m *MockCartRepository) Lines(ctx context.Context, cartID int64) ([]model.CartItem, error) {
	args := m.Called(ctx, cartID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CartItem), args.Error(1)
}

func (m *MockCartRepository) AddLine(ctx context.Context, tx pgx.Tx, cartID, productID int64, unitID *int64, qty int, unitPrice decimal.Decimal) error {
	return m.Called(ctx, tx, cartID, productID, unitID, qty, unitPrice).Error(0)
}

func (m *MockCartRepository) RemoveLine(ctx context.Context, cartID, productID int64, unitID *int64) error {
	return m.Called(ctx, cartID, productID, unitID).Error(0)
}

func (m *MockCartRepository) Count(ctx context.Context, userID int64) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockCartRepository) ClearForUser(ctx context.Context, tx pgx.Tx, userID int64) error {
	return m.Called(ctx, tx, userID).Error(0)
}

// MockOrderRepository is a mock implementation of OrderRepository.
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	// Return a MockTx interface value, not a pointer
	if tx, ok := args.Get(0).(pgx.Tx); ok {
		return tx, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOrderRepository) CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	return m.Called(ctx, tx, order).Error(0)
}

func (m *MockOrderRepository) CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error {
	return m.Called(ctx, tx, items).Error(0)
}

func (m *MockOrderRepository) FindReusable(ctx context.Context, userID int64, total decimal.Decimal) (*model.Order, error) {
	args := m.Called(ctx, userID, total)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) GetByUUID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) GetByUUIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) Items(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.OrderItem), args.Error(1)
}

func (m *MockOrderRepository) SetGatewayOrder(ctx context.Context, orderID int64, gatewayOrderID string) error {
	return m.Called(ctx, orderID, gatewayOrderID).Error(0)
}

func (m *MockOrderRepository) MarkFailed(ctx context.Context, tx pgx.Tx, orderID int64) error {
	return m.Called(ctx, tx, orderID).Error(0)
}

func (m *MockOrderRepository) MarkPaid(ctx context.Context, tx pgx.Tx, orderID int64, gatewayOrderID, paymentID, signature string) error {
	return m.Called(ctx, tx, orderID, gatewayOrderID, paymentID, signature).Error(0)
}

func (m *MockOrderRepository) Cancel(ctx context.Context, orderID int64) error {
	return m.Called(ctx, orderID).Error(0)
}

func (m *MockOrderRepository) ListByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Order), args.Error(1)
}

// MockBookingRepository is a mock implementation of BookingRepository.
type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) Create(ctx context.Context, b *model.ExperienceBooking) error {
	return m.Called(ctx, b).Error(0)
}

func (m *MockBookingRepository) GetByUUID(ctx context.Context, id uuid.UUID) (*model.ExperienceBooking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ExperienceBooking), args.Error(1)
}

func (m *MockBookingRepository) SetPaymentRef(ctx context.Context, id int64, ref string) error {
	return m.Called(ctx, id, ref).Error(0)
}

func (m *MockBookingRepository) UpdateStatus(ctx context.Context, id int64, from, to model.BookingStatus) error {
	return m.Called(ctx, id, from, to).Error(0)
}

func (m *MockBookingRepository) MarkPaid(ctx context.Context, id int64, paymentID string) error {
	return m.Called(ctx, id, paymentID).Error(0)
}

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, u *model.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

// MockCartStore is a mock implementation of session.CartStore.
type MockCartStore struct {
	mock.Mock
}

func (m *MockCartStore) Add(ctx context.Context, sid string, productID int64, unitID *int64, qty int) error {
	return m.Called(ctx, sid, productID, unitID, qty).Error(0)
}

func (m *MockCartStore) Remove(ctx context.Context, sid string, productID int64, unitID *int64) error {
	return m.Called(ctx, sid, productID, unitID).Error(0)
}

func (m *MockCartStore) Entries(ctx context.Context, sid string) ([]session.Entry, error) {
	args := m.Called(ctx, sid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]session.Entry), args.Error(1)
}

func (m *MockCartStore) Count(ctx context.Context, sid string) (int, error) {
	args := m.Called(ctx, sid)
	return args.Int(0), args.Error(1)
}

func (m *MockCartStore) Take(ctx context.Context, sid string) ([]session.Entry, error) {
	args := m.Called(ctx, sid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]session.Entry), args.Error(1)
}

func (m *MockCartStore) Restore(ctx context.Context, sid string, entries []session.Entry) error {
	return m.Called(ctx, sid, entries).Error(0)
}

func (m *MockCartStore) Clear(ctx context.Context, sid string) error {
	return m.Called(ctx, sid).Error(0)
}

// MockGateway is a mock implementation of payment.Gateway.
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Configured() bool {
	return m.Called().Bool(0)
}

func (m *MockGateway) KeyID() string {
	return m.Called().String(0)
}

func (m *MockGateway) CreateOrder(ctx context.Context, req payment.OrderRequest) (*payment.Order, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Order), args.Error(1)
}

func (m *MockGateway) VerifySignature(gatewayOrderID, paymentID, signature string) error {
	return m.Called(gatewayOrderID, paymentID, signature).Error(0)
}

// MockNotifier records paid-order receipts.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) OrderPaid(ctx context.Context, receipt notify.OrderReceipt) {
	m.Called(ctx, receipt)
}

// MockTx is a minimal mock implementation of pgx.Tx for testing.
type MockTx struct {
	mock.Mock
	committed  bool
	rolledBack bool
}

func (m *MockTx) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	m.committed = true
	return args.Error(0)
}

func (m *MockTx) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	m.rolledBack = true
	return args.Error(0)
}

// Stub methods to satisfy pgx.Tx interface - these are not used in our tests
func (m *MockTx) Begin(ctx context.Context) (pgx.Tx, error) { return nil, nil }
func (m *MockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (m *MockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (m *MockTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (m *MockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (m *MockTx) Exec(ctx context.Context, sql string, arguments ...any) (commandTag pgconn.CommandTag, err error) {
	return
}
func (m *MockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (m *MockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (m *MockTx) Conn() *pgx.Conn                                               { return nil }

func decimalEq(s string) any {
	want := decimal.RequireFromString(s)
	return mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(want) })
}

func int64Ptr(v int64) *int64 { return &v }

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}
