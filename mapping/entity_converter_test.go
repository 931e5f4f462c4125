/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package mapping

import (
	"reflect"
	"testing"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/entitymapper/converter"
	"github.com/suparena/entitymapper/datastore/testmodels"
	"github.com/suparena/entitymapper/errors"
	"github.com/suparena/entitymapper/metadata"
	"github.com/suparena/entitymapper/storagemodels"
)

func newConverter(opts ...Option) *EntityConverter {
	return NewEntityConverter(metadata.NewRegistry(), converter.NewRegistry(), opts...)
}

func TestToRecordDeclarationOrder(t *testing.T) {
	c := newConverter()

	rec, err := c.ToRecord(testmodels.Person{ID: 10, Name: "Ada", Age: 36, Notes: "skip"})
	require.NoError(t, err)

	assert.Equal(t, storagemodels.Record{
		storagemodels.Of("_id", int64(10)),
		storagemodels.Of("name", "Ada"),
		storagemodels.Of("age", 36),
	}, rec, "nil phones are skipped, zero scalars kept")
}

func TestToRecordEmbeddedAndConverter(t *testing.T) {
	c := newConverter()
	w := &testmodels.Worker{
		ID:     "w1",
		Name:   "Ada",
		Job:    testmodels.Job{Description: "engineer", City: "Salvador"},
		Salary: testmodels.Money{Currency: "USD", Amount: 10},
	}

	rec, err := c.ToRecord(w)
	require.NoError(t, err)

	assert.Equal(t, []string{"_id", "name", "job", "money"}, rec.Names())
	assert.Equal(t, storagemodels.Record{
		storagemodels.Of("description", "engineer"),
		storagemodels.Of("city", "Salvador"),
	}, rec.Value("job"))
	assert.Equal(t, "USD 10", rec.Value("money"))

	city, ok := rec.Lookup("job.city")
	require.True(t, ok)
	assert.Equal(t, "Salvador", city)

	assert.Equal(t, testmodels.Money{Currency: "USD", Amount: 10}, w.Salary, "source untouched")
}

func TestToRecordFlattened(t *testing.T) {
	c := newConverter()
	rec, err := c.ToRecord(testmodels.Address{
		ID:      "a1",
		Street:  "Main",
		City:    "Salvador",
		ZipCode: testmodels.ZipCode{Zip: "40000", PlusFour: "0001"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"_id", "street", "city", "zip", "plusFour"}, rec.Names())
}

func TestToRecordCollectionOfEmbedded(t *testing.T) {
	c := newConverter()
	rec, err := c.ToRecord(testmodels.Director{
		ID:   1,
		Name: "Kurosawa",
		Movies: []testmodels.Movie{
			{Title: "Ran", Year: 1985, Actors: []string{"Nakadai"}},
			{Title: "Ikiru", Year: 1952},
		},
	})
	require.NoError(t, err)

	movies, ok := rec.Value("movies").([]storagemodels.Record)
	require.True(t, ok)
	require.Len(t, movies, 2)
	assert.Equal(t, "Ran", movies[0].Value("title"))
	assert.Equal(t, []string{"title", "year"}, movies[1].Names())
}

func TestRoundTrip(t *testing.T) {
	c := newConverter()
	user := "ada"
	created := strfmt.DateTime(time.Date(2024, 3, 9, 14, 30, 15, 250e6, time.UTC))
	id, name, desc := "rs-1", "Elo", "chess rating"

	tests := []struct {
		name   string
		entity any
	}{
		{"person", &testmodels.Person{ID: 10, Name: "Ada", Age: 36, Phones: []string{"123", "456"}}},
		{"worker", &testmodels.Worker{
			ID:     "w1",
			Name:   "Ada",
			Job:    testmodels.Job{Description: "engineer", City: "Salvador"},
			Salary: testmodels.Money{Currency: "BRL", Amount: 12.5},
		}},
		{"address", &testmodels.Address{ID: "a1", Street: "Main", ZipCode: testmodels.ZipCode{Zip: "40000"}}},
		{"director", &testmodels.Director{
			ID:     1,
			Name:   "Kurosawa",
			Movies: []testmodels.Movie{{Title: "Ran", Year: 1985, Actors: []string{"Nakadai"}}},
		}},
		{"session", &testmodels.Session{
			Timestamps: testmodels.Timestamps{
				CreatedAt: time.Date(2024, 3, 9, 14, 30, 15, 0, time.UTC),
				TTL:       90 * time.Minute,
			},
			Token: "t1",
			User:  &user,
			Data:  map[string]any{"theme": "dark", "visits": float64(3)},
		}},
		{"rating system", &testmodels.RatingSystem{
			ID:          &id,
			Name:        &name,
			Description: &desc,
			CreatedAt:   &created,
			SiteURL:     "https://example.com",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := c.ToRecord(tt.entity)
			require.NoError(t, err)

			restored, err := c.ToEntity(reflect.TypeOf(tt.entity), rec)
			require.NoError(t, err)
			assert.Equal(t, tt.entity, restored)
		})
	}
}

type festival struct {
	ID     int64               `mapping:",id"`
	Movies []*testmodels.Movie `mapping:"movies,embedded"`
}

func TestRoundTripKeepsNilCollectionElements(t *testing.T) {
	c := newConverter()
	in := &festival{ID: 1, Movies: []*testmodels.Movie{{Title: "Ran"}, nil, {Title: "Ikiru"}}}

	rec, err := c.ToRecord(in)
	require.NoError(t, err)
	movies, ok := rec.Value("movies").([]storagemodels.Record)
	require.True(t, ok)
	require.Len(t, movies, 3)
	assert.Nil(t, movies[1])

	out, err := ToEntityOf[festival](c, rec)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	// the same shape decoded from JSON-like maps
	out, err = ToEntityOf[festival](c, storagemodels.RecordFromMap(rec.Map()))
	require.NoError(t, err)
	require.Len(t, out.Movies, 3)
	assert.Nil(t, out.Movies[1])
	assert.Equal(t, "Ikiru", out.Movies[2].Title)
}

func TestToEntityOfAcceptsDriverShapes(t *testing.T) {
	c := newConverter()
	rec := storagemodels.Record{
		storagemodels.Of("_id", "w1"),
		storagemodels.Of("name", "Ada"),
		storagemodels.Of("job", map[string]any{"city": "Salvador", "description": "engineer"}),
		storagemodels.Of("money", "USD 10"),
	}

	w, err := ToEntityOf[testmodels.Worker](c, rec)
	require.NoError(t, err)
	assert.Equal(t, "Salvador", w.Job.City)
	assert.Equal(t, testmodels.Money{Currency: "USD", Amount: 10}, w.Salary)
}

func TestToEntityCoercesScalars(t *testing.T) {
	c := newConverter()
	rec := storagemodels.Record{
		storagemodels.Of("_id", float64(10)),
		storagemodels.Of("name", "Ada"),
		storagemodels.Of("age", "36"),
		storagemodels.Of("phones", []any{"123", 456}),
	}

	p, err := ToEntityOf[testmodels.Person](c, rec)
	require.NoError(t, err)
	assert.Equal(t, &testmodels.Person{ID: 10, Name: "Ada", Age: 36, Phones: []string{"123", "456"}}, p)
}

func TestToEntityUnknownAttributes(t *testing.T) {
	rec := storagemodels.Record{
		storagemodels.Of("_id", int64(1)),
		storagemodels.Of("legacy", true),
	}

	p, err := ToEntityOf[testmodels.Person](newConverter(), rec)
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.ID)

	_, err = ToEntityOf[testmodels.Person](newConverter(WithStrictAttributes()), rec)
	assert.True(t, errors.IsMapping(err))
	assert.True(t, errors.IsUnknownField(err))
}

func TestToEntityMappingErrors(t *testing.T) {
	c := newConverter()

	_, err := ToEntityOf[testmodels.Person](c, storagemodels.Record{storagemodels.Of("age", "old")})
	assert.True(t, errors.IsMapping(err))

	_, err = ToEntityOf[testmodels.Worker](c, storagemodels.Record{storagemodels.Of("money", "USD")})
	var mappingErr *errors.MappingError
	require.ErrorAs(t, err, &mappingErr)
	assert.Equal(t, "Worker", mappingErr.Entity)
	assert.Equal(t, "money", mappingErr.Field)

	_, err = ToEntityOf[testmodels.Worker](c, storagemodels.Record{storagemodels.Of("job", 42)})
	assert.True(t, errors.IsMapping(err))
}

func TestFill(t *testing.T) {
	c := newConverter()
	p := &testmodels.Person{ID: 1, Name: "old", Age: 20}

	require.NoError(t, c.Fill(p, storagemodels.Record{storagemodels.Of("name", "new")}))
	assert.Equal(t, &testmodels.Person{ID: 1, Name: "new", Age: 20}, p)

	assert.True(t, errors.IsValidationError(c.Fill(testmodels.Person{}, nil)))
	assert.True(t, errors.IsValidationError(c.Fill((*testmodels.Person)(nil), nil)))
}

func TestIDValue(t *testing.T) {
	c := newConverter()

	id, err := c.IDValue(testmodels.Person{ID: 42})
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	rsID := "rs-1"
	id, err = c.IDValue(&testmodels.RatingSystem{ID: &rsID})
	require.NoError(t, err)
	assert.Equal(t, "rs-1", id)

	id, err = c.IDValue(&testmodels.RatingSystem{})
	require.NoError(t, err)
	assert.Nil(t, id)

	_, err = c.IDValue(testmodels.Job{})
	assert.True(t, errors.IsNotFound(err))

	_, err = c.IDValue(nil)
	assert.True(t, errors.IsValidationError(err))
}

func TestToRecordConverterFailure(t *testing.T) {
	c := newConverter()
	_, err := c.ToRecord(struct {
		When string `mapping:"when,convert=datetime"`
	}{When: "not a date"})
	assert.True(t, errors.IsMapping(err))
}

func TestFieldValueIsNotEmpty(t *testing.T) {
	var nilSlice []string
	var nilPtr *string
	s := ""
	assert.False(t, FieldValue{Value: nil}.IsNotEmpty())
	assert.False(t, FieldValue{Value: nilSlice}.IsNotEmpty())
	assert.False(t, FieldValue{Value: nilPtr}.IsNotEmpty())
	assert.True(t, FieldValue{Value: &s}.IsNotEmpty())
	assert.True(t, FieldValue{Value: 0}.IsNotEmpty())
}
