package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"stockflow/internal/apperr"
	"stockflow/internal/cache"
	"stockflow/internal/model"
	"stockflow/internal/repository"
	"stockflow/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestCategoryCreate_NormalizesName(t *testing.T) {
	f := newFixture(t)
	svc := service.NewCategoryService(f.store, nil, time.Minute)

	c, err := svc.Create(f.ctx, service.CreateCategoryInput{Name: "  Electronics "})
	require.NoError(t, err)
	assert.Equal(t, "electronics", c.Name)

	_, err = svc.Create(f.ctx, service.CreateCategoryInput{Name: "ELECTRONICS"})
	assert.Equal(t, apperr.BadRequest, apperr.CodeOf(err))
	assert.Equal(t, "category name already used", apperr.MessageOf(err))

	_, err = svc.Create(f.ctx, service.CreateCategoryInput{Name: "   "})
	assert.Equal(t, apperr.BadRequest, apperr.CodeOf(err))
}

func TestCategoryCreate_ConcurrentDuplicatesAdmitOne(t *testing.T) {
	f := newFixture(t)
	svc := service.NewCategoryService(f.store, nil, time.Minute)

	const n = 10
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Create(f.ctx, service.CreateCategoryInput{Name: "Tools"})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.Equal(t, apperr.BadRequest, apperr.CodeOf(err))
	}
	assert.Equal(t, 1, succeeded)

	list, err := svc.List(f.ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

// blindCategories hides existing names from the pre-check so the unique
// index has to catch the duplicate.
type blindStore struct{ repository.Store }

func (s blindStore) Categories() repository.CategoryRepository {
	return blindCategories{s.Store.Categories()}
}

type blindCategories struct{ repository.CategoryRepository }

func (blindCategories) FindByName(ctx context.Context, name string) (*model.Category, error) {
	return nil, repository.ErrNotFound
}

func TestCategoryCreate_UniqueIndexDecidesRaces(t *testing.T) {
	f := newFixture(t)
	f.seedCategory(t, "tools")
	svc := service.NewCategoryService(blindStore{f.store}, nil, time.Minute)

	_, err := svc.Create(f.ctx, service.CreateCategoryInput{Name: "Tools"})
	assert.Equal(t, apperr.BadRequest, apperr.CodeOf(err))
	assert.Equal(t, "category name already used", apperr.MessageOf(err))
}

func TestCategoryUpdate(t *testing.T) {
	f := newFixture(t)
	svc := service.NewCategoryService(f.store, nil, time.Minute)
	tools := f.seedCategory(t, "tools")
	f.seedCategory(t, "garden")

	same, err := svc.Update(f.ctx, tools.ID, service.UpdateCategoryInput{Name: strPtr("Tools")})
	require.NoError(t, err)
	assert.Equal(t, "tools", same.Name)

	_, err = svc.Update(f.ctx, tools.ID, service.UpdateCategoryInput{Name: strPtr("Garden")})
	assert.Equal(t, apperr.BadRequest, apperr.CodeOf(err))

	unchanged, err := svc.Update(f.ctx, tools.ID, service.UpdateCategoryInput{})
	require.NoError(t, err)
	assert.Equal(t, "tools", unchanged.Name)

	renamed, err := svc.Update(f.ctx, tools.ID, service.UpdateCategoryInput{Name: strPtr("Hand Tools")})
	require.NoError(t, err)
	assert.Equal(t, "hand tools", renamed.Name)

	_, err = svc.Update(f.ctx, uuid.New(), service.UpdateCategoryInput{Name: strPtr("x")})
	assert.Equal(t, apperr.NotFound, apperr.CodeOf(err))
}

func TestCategoryDelete_DetachesProducts(t *testing.T) {
	f := newFixture(t)
	c := newMemCache()
	svc := service.NewCategoryService(f.store, c, time.Minute)
	tools := f.seedCategory(t, "tools")
	p := f.seedProduct(t, "Hammer", "TOO-001", 1)
	p.CategoryID = &tools.ID
	require.NoError(t, f.store.Products().Update(f.ctx, p))

	_, err := svc.List(f.ctx)
	require.NoError(t, err)
	require.NoError(t, c.Set(f.ctx, cache.KeyProducts, []byte("[]"), time.Minute))

	require.NoError(t, svc.Delete(f.ctx, tools.ID))
	assert.False(t, c.has(cache.KeyCategories))
	assert.False(t, c.has(cache.KeyProducts))

	got, err := f.store.Products().FindByID(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CategoryID)

	assert.Equal(t, apperr.NotFound, apperr.CodeOf(svc.Delete(f.ctx, tools.ID)))
}
