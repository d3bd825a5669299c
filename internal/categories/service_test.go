package categories

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/carteira-app/carteira/internal/shared"
)

type memoryCategoriesRepo struct {
	cats   map[int64]Category
	nextID int64
}

func newMemoryCategoriesRepo() *memoryCategoriesRepo {
	return &memoryCategoriesRepo{cats: make(map[int64]Category)}
}

func (r *memoryCategoriesRepo) Create(ctx context.Context, input CreateCategoryInput) (Category, error) {
	r.nextID++
	cat := Category{
		ID:        r.nextID,
		UserID:    input.UserID,
		Name:      input.Name,
		Kind:      input.Kind,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	r.cats[cat.ID] = cat
	return cat, nil
}

func (r *memoryCategoriesRepo) Get(ctx context.Context, id int64) (Category, error) {
	cat, ok := r.cats[id]
	if !ok || cat.DeletedAt != nil {
		return Category{}, ErrCategoryNotFound
	}
	return cat, nil
}

func (r *memoryCategoriesRepo) Update(ctx context.Context, cat Category) error {
	existing, ok := r.cats[cat.ID]
	if !ok || existing.DeletedAt != nil {
		return ErrCategoryNotFound
	}
	r.cats[cat.ID] = cat
	return nil
}

func (r *memoryCategoriesRepo) SoftDelete(ctx context.Context, id int64) error {
	cat, ok := r.cats[id]
	if !ok || cat.DeletedAt != nil {
		return ErrCategoryNotFound
	}
	now := time.Now().UTC()
	cat.DeletedAt = &now
	r.cats[id] = cat
	return nil
}

func (r *memoryCategoriesRepo) ListByUser(ctx context.Context, userID int64) ([]Category, error) {
	var out []Category
	for _, cat := range r.cats {
		if cat.UserID == userID && cat.DeletedAt == nil {
			out = append(out, cat)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memoryCategoriesRepo) Exists(ctx context.Context, id int64) (bool, error) {
	cat, ok := r.cats[id]
	return ok && cat.DeletedAt == nil, nil
}

var _ Repository = (*memoryCategoriesRepo)(nil)

func TestCategoryOwnership(t *testing.T) {
	svc := NewService(newMemoryCategoriesRepo())

	cat, err := svc.Create(context.Background(), CreateCategoryInput{UserID: 1, Name: "groceries", Kind: "EXPENSE"})
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), cat.ID, 1)
	require.NoError(t, err)
	require.Equal(t, "groceries", got.Name)

	_, err = svc.Get(context.Background(), cat.ID, 2)
	require.ErrorIs(t, err, ErrNotCategoryOwner)
	require.ErrorIs(t, err, shared.ErrUnauthorized)

	_, err = svc.Update(context.Background(), cat.ID, 2, "hijack", "EXPENSE")
	require.ErrorIs(t, err, ErrNotCategoryOwner)

	require.ErrorIs(t, svc.Delete(context.Background(), cat.ID, 2), ErrNotCategoryOwner)
}

func TestCategoryDeleteHidesFromExists(t *testing.T) {
	svc := NewService(newMemoryCategoriesRepo())

	cat, err := svc.Create(context.Background(), CreateCategoryInput{UserID: 1, Name: "salary", Kind: "INCOME"})
	require.NoError(t, err)

	ok, err := svc.Exists(context.Background(), cat.ID)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, svc.Delete(context.Background(), cat.ID, 1))

	ok, err = svc.Exists(context.Background(), cat.ID)
	require.NoError(t, err)
	require.False(t, ok)

	list, err := svc.ListForUser(context.Background(), 1)
	require.NoError(t, err)
	require.Empty(t, list)
}
