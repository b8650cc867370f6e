package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codesagecoder/digital-marketplace/internal/observability"
	"github.com/codesagecoder/digital-marketplace/internal/payments"
	"github.com/codesagecoder/digital-marketplace/internal/platform/httpx"
	"github.com/codesagecoder/digital-marketplace/internal/shared"
)

// ============================================================================
// MOCK REPOSITORY
// ============================================================================

type mockRepository struct {
	products map[string]*Product

	insertError error
	updateError error
	getError    error
}

func newMockRepository() *mockRepository {
	return &mockRepository{products: make(map[string]*Product)}
}

func (m *mockRepository) Get(ctx context.Context, id string) (*Product, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	p, ok := m.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockRepository) List(ctx context.Context, req ListProductsRequest) ([]Product, int, error) {
	var result []Product
	for _, p := range m.products {
		if req.Category != nil && p.Category != *req.Category {
			continue
		}
		if req.Approved != nil && p.ApprovedForSale != *req.Approved {
			continue
		}
		if req.IDs != nil {
			found := false
			for _, id := range req.IDs {
				if id == p.ID {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		result = append(result, *p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, len(result), nil
}

func (m *mockRepository) Insert(ctx context.Context, product Product) error {
	if m.insertError != nil {
		return m.insertError
	}
	m.products[product.ID] = &product
	return nil
}

func (m *mockRepository) Update(ctx context.Context, product Product) error {
	if m.updateError != nil {
		return m.updateError
	}
	if _, ok := m.products[product.ID]; !ok {
		return ErrNotFound
	}
	m.products[product.ID] = &product
	return nil
}

func (m *mockRepository) Delete(ctx context.Context, id string) error {
	if _, ok := m.products[id]; !ok {
		return ErrNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *mockRepository) IDsByOwner(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	for _, p := range m.products {
		if p.UserID == userID {
			ids = append(ids, p.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// ============================================================================
// FAKE CATALOG CLIENT
// ============================================================================

type createCall struct {
	name       string
	unitAmount int64
	currency   string
}

type updateCall struct {
	productID      string
	name           string
	defaultPriceID string
}

type fakeCatalogClient struct {
	creates []createCall
	updates []updateCall

	createError error
	updateError error
}

func (f *fakeCatalogClient) CreateProduct(ctx context.Context, name string, unitAmountMinor int64, currency string) (payments.CatalogProduct, error) {
	if f.createError != nil {
		return payments.CatalogProduct{}, f.createError
	}
	f.creates = append(f.creates, createCall{name: name, unitAmount: unitAmountMinor, currency: currency})
	return payments.CatalogProduct{
		ProductID: "prod_stub_1",
		PriceID:   "price_stub_1",
	}, nil
}

func (f *fakeCatalogClient) UpdateProduct(ctx context.Context, productID, name, defaultPriceID string) (payments.CatalogProduct, error) {
	if f.updateError != nil {
		return payments.CatalogProduct{}, f.updateError
	}
	f.updates = append(f.updates, updateCall{productID: productID, name: name, defaultPriceID: defaultPriceID})
	return payments.CatalogProduct{ProductID: productID, PriceID: "price_stub_2"}, nil
}

type stubIndex struct {
	calls      []string
	reindexErr error
}

func (s *stubIndex) Reindex(ctx context.Context, userID, productID string) error {
	if s.reindexErr != nil {
		return s.reindexErr
	}
	s.calls = append(s.calls, userID+":"+productID)
	return nil
}

// ============================================================================
// HELPERS
// ============================================================================

type testEnv struct {
	svc     *Service
	repo    *mockRepository
	catalog *fakeCatalogClient
	index   *stubIndex
}

func newTestEnv() *testEnv {
	repo := newMockRepository()
	catalog := &fakeCatalogClient{}
	index := &stubIndex{}
	svc := NewService(nil, repo, catalog, index, nil)
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	idSeq := 0
	svc.newID = func() string {
		idSeq++
		return fmt.Sprintf("prod-local-%d", idSeq)
	}
	return &testEnv{svc: svc, repo: repo, catalog: catalog, index: index}
}

func adminPrincipal() *shared.Principal {
	return &shared.Principal{UserID: "admin-1", Role: shared.RoleAdmin}
}

func sellerPrincipal(owned ...string) *shared.Principal {
	return &shared.Principal{UserID: "seller-1", Role: shared.RoleUser, ProductIDs: owned}
}

func validCreateRequest() CreateProductRequest {
	return CreateProductRequest{
		Name:          "Icon Pack Vol. 1",
		Price:         19.99,
		Category:      string(CategoryIcons),
		ProductFileID: "file-1",
		ImageIDs:      []string{"img-1", "img-2"},
	}
}

// ============================================================================
// CREATE
// ============================================================================

func TestCreateProduct(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	product, err := env.svc.Create(ctx, sellerPrincipal(), validCreateRequest())
	require.NoError(t, err)
	require.NotNil(t, product)

	assert.Equal(t, "seller-1", product.UserID)
	assert.Equal(t, ApprovalPending, product.ApprovedForSale)
	assert.Equal(t, "prod_stub_1", product.StripeID)
	assert.Equal(t, "price_stub_1", product.PriceID)
	assert.True(t, product.Synced())

	require.Len(t, env.catalog.creates, 1)
	assert.Equal(t, "Icon Pack Vol. 1", env.catalog.creates[0].name)
	assert.Equal(t, int64(1999), env.catalog.creates[0].unitAmount)
	assert.Equal(t, "usd", env.catalog.creates[0].currency)

	stored, err := env.repo.Get(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, product.StripeID, stored.StripeID)

	require.Len(t, env.index.calls, 1)
	assert.Equal(t, "seller-1:"+product.ID, env.index.calls[0])
}

func TestCreateIgnoresSuppliedOwner(t *testing.T) {
	env := newTestEnv()

	req := validCreateRequest()
	req.Owner = "somebody-else"

	product, err := env.svc.Create(context.Background(), sellerPrincipal(), req)
	require.NoError(t, err)
	assert.Equal(t, "seller-1", product.UserID)
}

func TestCreateNilPrincipal(t *testing.T) {
	env := newTestEnv()

	_, err := env.svc.Create(context.Background(), nil, validCreateRequest())
	assert.ErrorIs(t, err, httpx.ErrUnauthorized)
}

func TestCreateUnknownCategory(t *testing.T) {
	env := newTestEnv()

	req := validCreateRequest()
	req.Category = "furniture"

	_, err := env.svc.Create(context.Background(), sellerPrincipal(), req)
	assert.ErrorIs(t, err, httpx.ErrValidation)
	assert.Empty(t, env.catalog.creates)
}

func TestCreateSyncFailureNothingPersisted(t *testing.T) {
	env := newTestEnv()
	env.catalog.createError = errors.New("provider down")

	_, err := env.svc.Create(context.Background(), sellerPrincipal(), validCreateRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSync)

	assert.Empty(t, env.repo.products)
	assert.Empty(t, env.index.calls)
}

func TestCreateReindexFailureIsNonFatal(t *testing.T) {
	env := newTestEnv()
	env.index.reindexErr = errors.New("redis gone")

	product, err := env.svc.Create(context.Background(), sellerPrincipal(), validCreateRequest())
	require.NoError(t, err)

	stored, err := env.repo.Get(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Equal(t, product.ID, stored.ID)
}

func TestCreateZeroAndMaxPriceMinorUnits(t *testing.T) {
	env := newTestEnv()
	principal := sellerPrincipal()

	free := validCreateRequest()
	free.Price = 0
	_, err := env.svc.Create(context.Background(), principal, free)
	require.NoError(t, err)

	max := validCreateRequest()
	max.Price = 1000
	_, err = env.svc.Create(context.Background(), principal, max)
	require.NoError(t, err)

	require.Len(t, env.catalog.creates, 2)
	assert.Equal(t, int64(0), env.catalog.creates[0].unitAmount)
	assert.Equal(t, int64(100000), env.catalog.creates[1].unitAmount)
}

// ============================================================================
// GET / LIST
// ============================================================================

func seedProduct(env *testEnv, id, owner string) {
	env.repo.products[id] = &Product{
		ID:              id,
		UserID:          owner,
		Name:            "Seeded " + id,
		Price:           10,
		Category:        CategoryIcons,
		ProductFileID:   "file-" + id,
		ImageIDs:        []string{"img"},
		ApprovedForSale: ApprovalPending,
		StripeID:        "prod_" + id,
		PriceID:         "price_" + id,
	}
}

func TestGetOwnedProduct(t *testing.T) {
	env := newTestEnv()
	seedProduct(env, "p1", "seller-1")

	product, err := env.svc.Get(context.Background(), sellerPrincipal("p1"), "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", product.ID)
}

func TestGetForbiddenOutsideOwnedSet(t *testing.T) {
	env := newTestEnv()
	seedProduct(env, "p1", "other-user")

	_, err := env.svc.Get(context.Background(), sellerPrincipal("p9"), "p1")
	assert.ErrorIs(t, err, httpx.ErrForbidden)
}

func TestGetForbiddenResponseDoesNotLeakExistence(t *testing.T) {
	env := newTestEnv()
	seedProduct(env, "exists", "other-user")
	principal := sellerPrincipal()

	_, errExisting := env.svc.Get(context.Background(), principal, "exists")
	_, errMissing := env.svc.Get(context.Background(), principal, "missing")

	assert.ErrorIs(t, errExisting, httpx.ErrForbidden)
	assert.ErrorIs(t, errMissing, httpx.ErrForbidden)
}

func TestGetNilPrincipal(t *testing.T) {
	env := newTestEnv()
	seedProduct(env, "p1", "seller-1")

	_, err := env.svc.Get(context.Background(), nil, "p1")
	assert.ErrorIs(t, err, httpx.ErrUnauthorized)
}

func TestGetAdminAnyProduct(t *testing.T) {
	env := newTestEnv()
	seedProduct(env, "p1", "someone")

	product, err := env.svc.Get(context.Background(), adminPrincipal(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "someone", product.UserID)
}

func TestListAdminSeesEverything(t *testing.T) {
	env := newTestEnv()
	seedProduct(env, "p1", "a")
	seedProduct(env, "p2", "b")

	products, total, err := env.svc.List(context.Background(), adminPrincipal(), ListProductsRequest{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, products, 2)
}

func TestListFilteredToOwnedSet(t *testing.T) {
	env := newTestEnv()
	seedProduct(env, "p1", "seller-1")
	seedProduct(env, "p2", "seller-1")
	seedProduct(env, "p3", "other")

	products, total, err := env.svc.List(context.Background(), sellerPrincipal("p1", "p2"), ListProductsRequest{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	for _, p := range products {
		assert.NotEqual(t, "p3", p.ID)
	}
}

func TestListEmptyOwnedSetShortCircuits(t *testing.T) {
	env := newTestEnv()
	seedProduct(env, "p1", "other")

	products, total, err := env.svc.List(context.Background(), sellerPrincipal(), ListProductsRequest{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, products)
}

func TestListNilPrincipal(t *testing.T) {
	env := newTestEnv()

	_, _, err := env.svc.List(context.Background(), nil, ListProductsRequest{})
	assert.ErrorIs(t, err, httpx.ErrUnauthorized)
}

// ============================================================================
// UPDATE
// ============================================================================

func TestUpdateResyncsCatalog(t *testing.T) {
	env := newTestEnv()
	seedProduct(env, "p1", "seller-1")

	name := "Renamed Pack"
	price := 25.50
	product, err := env.svc.Update(context.Background(), sellerPrincipal("p1"), "p1", UpdateProductRequest{
		Name:  &name,
		Price: &price,
	})
	require.NoError(t, err)

	require.Len(t, env.catalog.updates, 1)
	assert.Equal(t, "prod_p1", env.catalog.updates[0].productID)
	assert.Equal(t, "Renamed Pack", env.catalog.updates[0].name)
	assert.Equal(t, "price_p1", env.catalog.updates[0].defaultPriceID)

	assert.Equal(t, "Renamed Pack", product.Name)
	assert.Equal(t, 25.50, product.Price)
	assert.Equal(t, "price_stub_2", product.PriceID)
}

func TestUpdateWithoutCatalogTwin(t *testing.T) {
	env := newTestEnv()
	seedProduct(env, "p1", "seller-1")
	env.repo.products["p1"].StripeID = ""
	env.repo.products["p1"].PriceID = ""

	name := "Renamed"
	_, err := env.svc.Update(context.Background(), sellerPrincipal("p1"), "p1", UpdateProductRequest{Name: &name})
	assert.ErrorIs(t, err, ErrConsistency)
	assert.Empty(t, env.catalog.updates)
}

func TestUpdateSyncFailureNothingPersisted(t *testing.T) {
	env := newTestEnv()
	seedProduct(env, "p1", "seller-1")
	env.catalog.updateError = errors.New("provider down")

	name := "Renamed"
	_, err := env.svc.Update(context.Background(), sellerPrincipal("p1"), "p1", UpdateProductRequest{Name: &name})
	assert.ErrorIs(t, err, ErrSync)
	assert.Equal(t, "Seeded p1", env.repo.products["p1"].Name)
}

func TestSyncRecordsSuccessPerOperation(t *testing.T) {
	env := newTestEnv()
	metrics := observability.NewMetrics()
	env.svc.metrics = metrics
	seedProduct(env, "p1", "seller-1")

	_, err := env.svc.Create(context.Background(), sellerPrincipal(), validCreateRequest())
	require.NoError(t, err)

	name := "Renamed"
	_, err = env.svc.Update(context.Background(), sellerPrincipal("p1"), "p1", UpdateProductRequest{Name: &name})
	require.NoError(t, err)

	// An operation the sync step does not recognize must not count as a
	// successful sync.
	_, err = env.svc.syncExternal(context.Background(), operation("prune"), *env.repo.products["p1"])
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rr.Body.String()
	assert.Contains(t, body, `marketplace_catalog_sync_total{operation="create",outcome="success"} 1`)
	assert.Contains(t, body, `marketplace_catalog_sync_total{operation="update",outcome="success"} 1`)
	assert.NotContains(t, body, `operation="prune"`)
}

func TestUpdateRejectsEmptyStrings(t *testing.T) {
	env := newTestEnv()
	seedProduct(env, "p1", "seller-1")
	empty := ""

	_, err := env.svc.Update(context.Background(), sellerPrincipal("p1"), "p1", UpdateProductRequest{Name: &empty})
	assert.ErrorIs(t, err, httpx.ErrValidation)

	_, err = env.svc.Update(context.Background(), sellerPrincipal("p1"), "p1", UpdateProductRequest{ProductFileID: &empty})
	assert.ErrorIs(t, err, httpx.ErrValidation)

	assert.Equal(t, "Seeded p1", env.repo.products["p1"].Name)
	assert.Equal(t, "file-p1", env.repo.products["p1"].ProductFileID)
	assert.Empty(t, env.catalog.updates)
}

func TestUpdatePreservesOwner(t *testing.T) {
	env := newTestEnv()
	seedProduct(env, "p1", "seller-1")

	name := "Admin Edit"
	product, err := env.svc.Update(context.Background(), adminPrincipal(), "p1", UpdateProductRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "seller-1", product.UserID)
}

func TestUpdateApprovalRequiresAdmin(t *testing.T) {
	env := newTestEnv()
	seedProduct(env, "p1", "seller-1")

	status := string(ApprovalApproved)
	_, err := env.svc.Update(context.Background(), sellerPrincipal("p1"), "p1", UpdateProductRequest{ApprovedForSale: &status})
	assert.ErrorIs(t, err, httpx.ErrForbidden)
	assert.Equal(t, ApprovalPending, env.repo.products["p1"].ApprovedForSale)
}

func TestUpdateApprovalByAdmin(t *testing.T) {
	env := newTestEnv()
	seedProduct(env, "p1", "seller-1")

	status := string(ApprovalApproved)
	product, err := env.svc.Update(context.Background(), adminPrincipal(), "p1", UpdateProductRequest{ApprovedForSale: &status})
	require.NoError(t, err)
	assert.Equal(t, ApprovalApproved, product.ApprovedForSale)
}

func TestUpdateUnknownApprovalStatus(t *testing.T) {
	env := newTestEnv()
	seedProduct(env, "p1", "seller-1")

	status := "maybe"
	_, err := env.svc.Update(context.Background(), adminPrincipal(), "p1", UpdateProductRequest{ApprovedForSale: &status})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestUpdateForbiddenOutsideOwnedSet(t *testing.T) {
	env := newTestEnv()
	seedProduct(env, "p1", "other")

	name := "Hijack"
	_, err := env.svc.Update(context.Background(), sellerPrincipal("p9"), "p1", UpdateProductRequest{Name: &name})
	assert.ErrorIs(t, err, httpx.ErrForbidden)
}

// ============================================================================
// DELETE
// ============================================================================

func TestDeleteOwnedProduct(t *testing.T) {
	env := newTestEnv()
	seedProduct(env, "p1", "seller-1")

	err := env.svc.Delete(context.Background(), sellerPrincipal("p1"), "p1")
	require.NoError(t, err)
	assert.Empty(t, env.repo.products)
	// Deletion never reaches the payment catalog.
	assert.Empty(t, env.catalog.updates)
}

func TestDeleteForbiddenOutsideOwnedSet(t *testing.T) {
	env := newTestEnv()
	seedProduct(env, "p1", "other")

	err := env.svc.Delete(context.Background(), sellerPrincipal(), "p1")
	assert.ErrorIs(t, err, httpx.ErrForbidden)
	assert.Len(t, env.repo.products, 1)
}

func TestDeleteMissingProductAsAdmin(t *testing.T) {
	env := newTestEnv()

	err := env.svc.Delete(context.Background(), adminPrincipal(), "nope")
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}
