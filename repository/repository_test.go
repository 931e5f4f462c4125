/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/entitymapper/converter"
	"github.com/suparena/entitymapper/datastore"
	"github.com/suparena/entitymapper/datastore/mock"
	"github.com/suparena/entitymapper/datastore/testmodels"
	"github.com/suparena/entitymapper/errors"
	"github.com/suparena/entitymapper/mapping"
	"github.com/suparena/entitymapper/metadata"
	"github.com/suparena/entitymapper/storagemodels"
)

func newConverter() *mapping.EntityConverter {
	return mapping.NewEntityConverter(metadata.NewRegistry(), converter.NewRegistry())
}

func newPersonRepo(t *testing.T) (*Repository[testmodels.Person], *mock.DataStore) {
	t.Helper()
	store := mock.New()
	repo, err := New[testmodels.Person](store, newConverter())
	require.NoError(t, err)
	return repo, store
}

func people() []*testmodels.Person {
	return []*testmodels.Person{
		{ID: 1, Name: "Ada", Age: 36},
		{ID: 2, Name: "Alan", Age: 41},
		{ID: 3, Name: "Grace", Age: 85},
	}
}

func TestNew(t *testing.T) {
	_, err := New[testmodels.Person](nil, newConverter())
	assert.True(t, errors.IsValidationError(err))

	_, err = New[testmodels.Person](mock.New(), nil)
	assert.True(t, errors.IsValidationError(err))

	// Job declares no id field.
	_, err = New[testmodels.Job](mock.New(), newConverter())
	assert.True(t, errors.IsNotFound(err))
}

func TestSave(t *testing.T) {
	ctx := context.Background()
	repo, store := newPersonRepo(t)

	ada := &testmodels.Person{ID: 1, Name: "Ada", Age: 36, Phones: []string{"123"}}
	require.NoError(t, repo.Save(ctx, ada))
	assert.Equal(t, []string{"Select", "Insert"}, store.Calls())

	ada.Name = "Ada Lovelace"
	require.NoError(t, repo.Save(ctx, ada))
	assert.Equal(t, []string{"Select", "Insert", "Select", "Update"}, store.Calls())
	assert.Equal(t, 1, store.Count("Person"))

	found, err := repo.FindByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, ada, found)
}

func TestSaveRejectsNil(t *testing.T) {
	ctx := context.Background()
	repo, store := newPersonRepo(t)

	assert.True(t, errors.IsValidationError(repo.Save(ctx, nil)))
	assert.True(t, errors.IsValidationError(repo.Update(ctx, nil)))
	assert.True(t, errors.IsValidationError(repo.Delete(ctx, nil)))
	assert.True(t, errors.IsValidationError(repo.DeleteByID(ctx, nil)))
	_, err := repo.FindByID(ctx, nil)
	assert.True(t, errors.IsValidationError(err))
	_, err = repo.Select(ctx, nil)
	assert.True(t, errors.IsValidationError(err))

	assert.Empty(t, store.Calls(), "nothing reaches the store")
}

func TestSaveAllAndFind(t *testing.T) {
	ctx := context.Background()
	repo, _ := newPersonRepo(t)
	require.NoError(t, repo.SaveAll(ctx, people()...))

	t.Run("FindByID missing", func(t *testing.T) {
		found, err := repo.FindByID(ctx, 42)
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("FindByIDs keeps order and drops missing", func(t *testing.T) {
		found, err := repo.FindByIDs(ctx, 3, 42, 1)
		require.NoError(t, err)
		require.Len(t, found, 2)
		assert.Equal(t, "Grace", found[0].Name)
		assert.Equal(t, "Ada", found[1].Name)
	})

	t.Run("ExistsByID", func(t *testing.T) {
		ok, err := repo.ExistsByID(ctx, 2)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.ExistsByID(ctx, 9)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Select", func(t *testing.T) {
		q, err := repo.SelectQuery().Where("age").Gt(40).OrderBy("name").Desc().Build()
		require.NoError(t, err)
		found, err := repo.Select(ctx, q)
		require.NoError(t, err)
		require.Len(t, found, 2)
		assert.Equal(t, "Grace", found[0].Name)
		assert.Equal(t, "Alan", found[1].Name)
	})
}

func TestInsertAndUpdate(t *testing.T) {
	ctx := context.Background()
	repo, _ := newPersonRepo(t)

	p := &testmodels.Person{ID: 7, Name: "Edsger"}
	require.NoError(t, repo.Insert(ctx, p))
	assert.True(t, errors.IsAlreadyExists(repo.Insert(ctx, p)))

	missing := &testmodels.Person{ID: 8, Name: "Nobody"}
	assert.True(t, errors.IsNotFound(repo.Update(ctx, missing)))
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	repo, store := newPersonRepo(t)
	all := people()
	require.NoError(t, repo.SaveAll(ctx, all...))

	require.NoError(t, repo.DeleteByID(ctx, 1))
	assert.Equal(t, 2, store.Count("Person"))

	require.NoError(t, repo.Delete(ctx, all[1]))
	assert.Equal(t, 1, store.Count("Person"))

	require.NoError(t, repo.SaveAll(ctx, all...))
	require.NoError(t, repo.DeleteByIDs(ctx, 1, 2))
	assert.Equal(t, 1, store.Count("Person"))

	require.NoError(t, repo.DeleteAll(ctx, all...))
	assert.Equal(t, 0, store.Count("Person"))

	require.NoError(t, repo.SaveAll(ctx, all...))
	q, err := repo.DeleteQuery().Where("name").Like("A%").Build()
	require.NoError(t, err)
	require.NoError(t, repo.DeleteWhere(ctx, q))
	assert.Equal(t, 1, store.Count("Person"))
}

func TestStoreErrorsPropagate(t *testing.T) {
	ctx := context.Background()
	boom := assert.AnError
	store := mock.New().WithSelectError(boom)
	repo, err := New[testmodels.Person](store, newConverter())
	require.NoError(t, err)

	err = repo.Save(ctx, &testmodels.Person{ID: 1})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"Select"}, store.Calls(), "no write after a failed existence check")
}

// selectOnly hides the Streamer implementation of the wrapped store.
type selectOnly struct {
	datastore.DataStore
}

func TestStream(t *testing.T) {
	ctx := context.Background()
	repo, _ := newPersonRepo(t)
	require.NoError(t, repo.SaveAll(ctx, people()...))

	q, err := repo.SelectQuery().Where("age").Lt(50).Build()
	require.NoError(t, err)

	var names []string
	for result := range repo.Stream(ctx, q) {
		require.NoError(t, result.Error)
		names = append(names, result.Item.Name)
	}
	assert.Equal(t, []string{"Ada", "Alan"}, names)

	plain, err := New[testmodels.Person](selectOnly{mock.New()}, newConverter())
	require.NoError(t, err)
	result := <-plain.Stream(ctx, q)
	assert.True(t, errors.IsUnsupported(result.Error))
}

func TestStreamConversionError(t *testing.T) {
	ctx := context.Background()
	store := mock.New()
	require.NoError(t, store.SetData("Person", storagemodels.Record{
		storagemodels.Of("_id", int64(1)),
		storagemodels.Of("age", "not a number"),
	}))
	repo, err := New[testmodels.Person](store, newConverter())
	require.NoError(t, err)

	q, err := repo.SelectQuery().Build()
	require.NoError(t, err)
	result := <-repo.Stream(ctx, q)
	assert.True(t, errors.IsMapping(result.Error))
}
