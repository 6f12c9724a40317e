package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"

	"github.com/animatepdf/animatepdf/internal/domain"
)

// =============================================================================
// Fakes
// =============================================================================

type fakePlanStore struct {
	plans     map[string]domain.SubscriptionPlan
	listCalls int
	listErr   error
}

func newFakePlanStore(names ...string) *fakePlanStore {
	f := &fakePlanStore{plans: make(map[string]domain.SubscriptionPlan)}
	for i, name := range names {
		f.plans[name] = domain.SubscriptionPlan{
			ID:        uuid.New(),
			Name:      name,
			IsActive:  true,
			SortOrder: i,
		}
	}
	return f
}

func (f *fakePlanStore) ListActivePlans(_ context.Context) ([]domain.SubscriptionPlan, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []domain.SubscriptionPlan
	for _, p := range f.plans {
		if p.IsActive {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePlanStore) GetPlanByName(_ context.Context, name string) (domain.SubscriptionPlan, error) {
	p, ok := f.plans[name]
	if !ok {
		return domain.SubscriptionPlan{}, sql.ErrNoRows
	}
	return p, nil
}

func (f *fakePlanStore) UpsertPlan(_ context.Context, params domain.PlanParams) (domain.SubscriptionPlan, error) {
	p, ok := f.plans[params.Name]
	if !ok {
		p = domain.SubscriptionPlan{ID: uuid.New()}
	}
	p.Name = params.Name
	p.MonthlyCreditLimit = params.MonthlyCreditLimit
	p.PriceCents = params.PriceCents
	p.IsActive = params.IsActive
	f.plans[params.Name] = p
	return p, nil
}

func (f *fakePlanStore) DeactivatePlan(_ context.Context, name string) error {
	p, ok := f.plans[name]
	if !ok {
		return sql.ErrNoRows
	}
	p.IsActive = false
	f.plans[name] = p
	return nil
}

func newTestPlanService(store PlanStore) PlanService {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	return NewPlanService(store, logger)
}

// =============================================================================
// Catalog Tests
// =============================================================================

func TestListActivePlans_ServesFromCache(t *testing.T) {
	store := newFakePlanStore("free", "starter", "pro")
	svc := newTestPlanService(store)

	for i := 0; i < 3; i++ {
		plans, err := svc.ListActivePlans(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(plans) != 3 {
			t.Fatalf("expected 3 plans, got %d", len(plans))
		}
	}
	if store.listCalls != 1 {
		t.Errorf("expected 1 store call with a warm cache, got %d", store.listCalls)
	}
}

func TestListActivePlans_EmptyCatalogIsConfigError(t *testing.T) {
	store := newFakePlanStore()
	svc := newTestPlanService(store)

	_, err := svc.ListActivePlans(context.Background())
	if code := domain.ErrorCode(err); code != domain.ECONFIG {
		t.Errorf("expected ECONFIG, got %s", code)
	}
}

func TestListActivePlans_StoreFailure(t *testing.T) {
	store := newFakePlanStore("free")
	store.listErr = errors.New("connection refused")
	svc := newTestPlanService(store)

	_, err := svc.ListActivePlans(context.Background())
	if code := domain.ErrorCode(err); code != domain.EUNAVAILABLE {
		t.Errorf("expected EUNAVAILABLE, got %s", code)
	}
}

func TestGetPlanByName_NormalizesName(t *testing.T) {
	store := newFakePlanStore("pro")
	svc := newTestPlanService(store)

	plan, err := svc.GetPlanByName(context.Background(), "  PRO ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Name != "pro" {
		t.Errorf("expected pro, got %s", plan.Name)
	}
}

func TestGetPlanByName_NotFound(t *testing.T) {
	store := newFakePlanStore("free")
	svc := newTestPlanService(store)

	_, err := svc.GetPlanByName(context.Background(), "enterprise")
	if code := domain.ErrorCode(err); code != domain.ENOTFOUND {
		t.Errorf("expected ENOTFOUND, got %s", code)
	}
}

// =============================================================================
// Admin Mutation Tests
// =============================================================================

func TestUpsertPlan_InvalidatesCache(t *testing.T) {
	store := newFakePlanStore("free")
	svc := newTestPlanService(store)

	if _, err := svc.ListActivePlans(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := svc.UpsertPlan(context.Background(), domain.PlanParams{
		Name:               "starter",
		MonthlyCreditLimit: 100,
		PriceCents:         999,
		IsActive:           true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	plans, err := svc.ListActivePlans(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plans) != 2 {
		t.Errorf("expected 2 plans after upsert, got %d", len(plans))
	}
	if store.listCalls != 2 {
		t.Errorf("expected cache refill after upsert, got %d list calls", store.listCalls)
	}
}

func TestUpsertPlan_Validation(t *testing.T) {
	svc := newTestPlanService(newFakePlanStore())

	testCases := []struct {
		name   string
		params domain.PlanParams
	}{
		{"empty name", domain.PlanParams{MonthlyCreditLimit: 10}},
		{"name with whitespace", domain.PlanParams{Name: "my plan", MonthlyCreditLimit: 10}},
		{"negative price", domain.PlanParams{Name: "starter", PriceCents: -1}},
		{"negative limit", domain.PlanParams{Name: "starter", MonthlyCreditLimit: -1}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.UpsertPlan(context.Background(), tc.params)
			if code := domain.ErrorCode(err); code != domain.EINVALID {
				t.Errorf("expected EINVALID, got %s", code)
			}
		})
	}
}

func TestDeactivatePlan_RefusesFreePlan(t *testing.T) {
	store := newFakePlanStore("free", "starter")
	svc := newTestPlanService(store)

	err := svc.DeactivatePlan(context.Background(), "free")
	if code := domain.ErrorCode(err); code != domain.EINVALID {
		t.Errorf("expected EINVALID, got %s", code)
	}
	if !store.plans["free"].IsActive {
		t.Error("free plan must remain active")
	}
}

func TestDeactivatePlan_HidesFromCatalog(t *testing.T) {
	store := newFakePlanStore("free", "starter")
	svc := newTestPlanService(store)

	if err := svc.DeactivatePlan(context.Background(), "starter"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	plans, err := svc.ListActivePlans(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, p := range plans {
		if p.Name == "starter" {
			t.Error("deactivated plan should not be listed")
		}
	}
}

func TestDeactivatePlan_NotFound(t *testing.T) {
	svc := newTestPlanService(newFakePlanStore("free"))

	err := svc.DeactivatePlan(context.Background(), "enterprise")
	if code := domain.ErrorCode(err); code != domain.ENOTFOUND {
		t.Errorf("expected ENOTFOUND, got %s", code)
	}
}
