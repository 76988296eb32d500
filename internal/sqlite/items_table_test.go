// Tests for the items table CRUD operations.
package sqlite

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/grocery/pkg/types"
)

func TestItems_Create(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantText string
		wantErr  error
	}{
		{name: "simple text", text: "Milk", wantText: "Milk"},
		{name: "text is trimmed", text: "  Bread  ", wantText: "Bread"},
		{name: "empty text rejected", text: "", wantErr: types.ErrTextRequired},
		{name: "blank text rejected", text: "   ", wantErr: types.ErrTextRequired},
		{name: "oversized text rejected", text: strings.Repeat("x", types.MaxTextLength+1), wantErr: types.ErrTextTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := setupBackend(t)
			ctx := context.Background()

			item, err := b.Create(ctx, tt.text)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				items, err := b.List(ctx)
				require.NoError(t, err)
				assert.Empty(t, items, "rejected item must not be stored")
				return
			}
			require.NoError(t, err)

			parsed, err := uuid.Parse(item.ID)
			require.NoError(t, err, "id should be a UUID")
			assert.Equal(t, uuid.Version(7), parsed.Version())
			assert.False(t, types.IsTempID(item.ID))
			assert.Equal(t, tt.wantText, item.Text)
			assert.False(t, item.Completed)
			assert.False(t, item.CreatedAt.IsZero())
			assert.Equal(t, item.CreatedAt, item.UpdatedAt)
		})
	}
}

func TestItems_Get(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()

	created, err := b.Create(ctx, "Eggs")
	require.NoError(t, err)

	got, err := b.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "Eggs", got.Text)
	assert.True(t, created.CreatedAt.Equal(got.CreatedAt))

	_, err = b.Get(ctx, uuid.NewString())
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = b.Get(ctx, "")
	assert.ErrorIs(t, err, types.ErrInvalidID)
}

func TestItems_ListNewestFirst(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()

	empty, err := b.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty, "empty list should be an empty slice, not nil")
	assert.Empty(t, empty)

	names := []string{"Milk", "Bread", "Eggs"}
	for _, n := range names {
		_, err := b.Create(ctx, n)
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	items, err := b.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "Eggs", items[0].Text)
	assert.Equal(t, "Bread", items[1].Text)
	assert.Equal(t, "Milk", items[2].Text)
}

func TestItems_Update(t *testing.T) {
	text := func(s string) *string { return &s }
	flag := func(v bool) *bool { return &v }

	t.Run("toggle completed keeps text", func(t *testing.T) {
		b := setupBackend(t)
		ctx := context.Background()
		created, err := b.Create(ctx, "Milk")
		require.NoError(t, err)

		updated, err := b.Update(ctx, created.ID, types.ItemUpdate{Text: text("Milk"), Completed: flag(true)})
		require.NoError(t, err)
		assert.True(t, updated.Completed)
		assert.Equal(t, "Milk", updated.Text)
		assert.True(t, created.CreatedAt.Equal(updated.CreatedAt), "CreatedAt must not change")
		assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt))

		got, err := b.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.True(t, got.Completed)
	})

	t.Run("omitted fields keep stored values", func(t *testing.T) {
		b := setupBackend(t)
		ctx := context.Background()
		created, err := b.Create(ctx, "Milk")
		require.NoError(t, err)

		updated, err := b.Update(ctx, created.ID, types.ItemUpdate{Text: text("Oat milk")})
		require.NoError(t, err)
		assert.Equal(t, "Oat milk", updated.Text)
		assert.False(t, updated.Completed)
	})

	t.Run("invalid text rejected and item unchanged", func(t *testing.T) {
		b := setupBackend(t)
		ctx := context.Background()
		created, err := b.Create(ctx, "Milk")
		require.NoError(t, err)

		_, err = b.Update(ctx, created.ID, types.ItemUpdate{Text: text(strings.Repeat("y", 101))})
		assert.ErrorIs(t, err, types.ErrTextTooLong)

		got, err := b.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Milk", got.Text)
	})

	t.Run("unknown id returns ErrNotFound", func(t *testing.T) {
		b := setupBackend(t)
		_, err := b.Update(context.Background(), uuid.NewString(), types.ItemUpdate{Completed: flag(true)})
		assert.ErrorIs(t, err, types.ErrNotFound)
	})
}

func TestItems_Delete(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()

	keep, err := b.Create(ctx, "Bread")
	require.NoError(t, err)
	gone, err := b.Create(ctx, "Milk")
	require.NoError(t, err)

	deleted, err := b.Delete(ctx, gone.ID)
	require.NoError(t, err)
	assert.Equal(t, gone.ID, deleted.ID)
	assert.Equal(t, "Milk", deleted.Text)

	_, err = b.Get(ctx, gone.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = b.Delete(ctx, gone.ID)
	assert.ErrorIs(t, err, types.ErrNotFound, "second delete should report not found")

	items, err := b.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, keep.ID, items[0].ID)
}
