/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/entitymapper/datastore/testmodels"
	"github.com/suparena/entitymapper/errors"
	"github.com/suparena/entitymapper/metadata"
	"github.com/suparena/entitymapper/query"
)

func personMetadata(t *testing.T) *metadata.EntityMetadata {
	t.Helper()
	meta, err := metadata.For[testmodels.Person](metadata.NewRegistry())
	require.NoError(t, err)
	return meta
}

func TestCompile(t *testing.T) {
	meta := personMetadata(t)

	tests := []struct {
		name  string
		verb  Verb
		terms []Term
		sorts []query.Sort
		arity int
	}{
		{
			name:  "FindByName",
			verb:  VerbFind,
			terms: []Term{{Field: "Name", Operator: query.OpEq}},
			arity: 1,
		},
		{
			name: "findByNameAndAgeGreaterThan",
			verb: VerbFind,
			terms: []Term{
				{Field: "Name", Operator: query.OpEq},
				{Connector: query.OpAnd, Field: "Age", Operator: query.OpGt},
			},
			arity: 2,
		},
		{
			name: "FindByNameOrAgeLessThanEqualOrderByAgeDescNameAsc",
			verb: VerbFind,
			terms: []Term{
				{Field: "Name", Operator: query.OpEq},
				{Connector: query.OpOr, Field: "Age", Operator: query.OpLte},
			},
			sorts: []query.Sort{{Attribute: "Age", Direction: query.Desc}, {Attribute: "Name", Direction: query.Asc}},
			arity: 2,
		},
		{
			name:  "CountByAgeBetween",
			verb:  VerbCount,
			terms: []Term{{Field: "Age", Operator: query.OpBetween}},
			arity: 2,
		},
		{
			name:  "ExistsByNameLike",
			verb:  VerbExists,
			terms: []Term{{Field: "Name", Operator: query.OpLike}},
			arity: 1,
		},
		{
			name:  "DeleteByIDIn",
			verb:  VerbDelete,
			terms: []Term{{Field: "ID", Operator: query.OpIn}},
			arity: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Compile(meta, tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.verb, m.Verb)
			assert.Equal(t, "Person", m.Entity)
			assert.Equal(t, tt.terms, m.Terms)
			assert.Equal(t, tt.sorts, m.Sorts)
			assert.Equal(t, tt.arity, m.Arity())
		})
	}
}

func TestCompileErrors(t *testing.T) {
	meta := personMetadata(t)

	_, err := Compile(meta, "GetByName")
	assert.True(t, errors.IsValidationError(err))

	_, err = Compile(meta, "FindBy")
	assert.True(t, errors.IsValidationError(err))

	_, err = Compile(meta, "FindByNickname")
	assert.True(t, errors.IsUnknownField(err))

	_, err = Compile(meta, "DeleteByNameOrderByAge")
	assert.True(t, errors.IsValidationError(err))

	_, err = Compile(meta, "FindByNameOrderByShoeSize")
	assert.True(t, errors.IsUnknownField(err))

	_, err = Compile(nil, "FindByName")
	assert.True(t, errors.IsValidationError(err))
}

func TestSplitWords(t *testing.T) {
	assert.Equal(t, []string{"Name", "And", "Age"}, splitWords("NameAndAge"))
	assert.Equal(t, []string{"URL", "Path"}, splitWords("URLPath"))
	assert.Equal(t, []string{"ID", "In"}, splitWords("IDIn"))
	assert.Equal(t, []string{"name"}, splitWords("name"))
	assert.Empty(t, splitWords(""))
}

func TestMethodQuery(t *testing.T) {
	ctx := context.Background()
	repo, store := newPersonRepo(t)
	require.NoError(t, repo.SaveAll(ctx, people()...))

	t.Run("Find", func(t *testing.T) {
		m, err := repo.Method("FindByAgeGreaterThanOrderByNameDesc")
		require.NoError(t, err)
		found, err := m.Find(ctx, 40)
		require.NoError(t, err)
		require.Len(t, found, 2)
		assert.Equal(t, "Grace", found[0].Name)
		assert.Equal(t, "Alan", found[1].Name)
	})

	t.Run("Find with connectors", func(t *testing.T) {
		m, err := repo.Method("FindByNameOrAge")
		require.NoError(t, err)
		found, err := m.Find(ctx, "Ada", 85)
		require.NoError(t, err)
		assert.Len(t, found, 2)
	})

	t.Run("Exists and Count", func(t *testing.T) {
		exists, err := repo.Method("ExistsByNameLike")
		require.NoError(t, err)
		ok, err := exists.Exists(ctx, "Gr%")
		require.NoError(t, err)
		assert.True(t, ok)

		count, err := repo.Method("CountByAgeBetween")
		require.NoError(t, err)
		n, err := count.Count(ctx, 30, 50)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})

	t.Run("Like on a numeric field", func(t *testing.T) {
		m, err := repo.Method("FindByAgeLike")
		require.NoError(t, err)
		found, err := m.Find(ctx, "8%")
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "Grace", found[0].Name)
	})

	t.Run("Delete with In", func(t *testing.T) {
		m, err := repo.Method("DeleteByIDIn")
		require.NoError(t, err)
		require.NoError(t, m.Delete(ctx, []int64{1, 3}))
		assert.Equal(t, 1, store.Count("Person"))
	})

	t.Run("arity and nil arguments", func(t *testing.T) {
		m, err := repo.Method("FindByName")
		require.NoError(t, err)
		_, err = m.Find(ctx)
		assert.True(t, errors.IsValidationError(err))
		_, err = m.Find(ctx, "a", "b")
		assert.True(t, errors.IsValidationError(err))
		_, err = m.Find(ctx, nil)
		assert.True(t, errors.IsValidationError(err))
	})

	t.Run("verb mismatch", func(t *testing.T) {
		m, err := repo.Method("FindByName")
		require.NoError(t, err)
		assert.True(t, errors.IsInvalidState(m.Delete(ctx, "Ada")))
	})

	t.Run("compiled once", func(t *testing.T) {
		a, err := repo.Method("FindByName")
		require.NoError(t, err)
		b, err := repo.Method("FindByName")
		require.NoError(t, err)
		assert.Same(t, a.Method(), b.Method())
	})
}
