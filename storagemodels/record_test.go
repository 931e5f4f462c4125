/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"reflect"
	"testing"
)

func sampleRecord() Record {
	return Record{
		Of("_id", int64(10)),
		Of("name", "Ada"),
		Of("job", Record{
			Of("city", "Salvador"),
			Of("description", "Developer"),
		}),
		Of("phones", []Record{
			{Of("number", "123")},
			{Of("number", "456")},
		}),
	}
}

func TestRecordLookup(t *testing.T) {
	rec := sampleRecord()

	t.Run("TopLevel", func(t *testing.T) {
		v, ok := rec.Lookup("name")
		if !ok || v != "Ada" {
			t.Fatalf("Expected Ada, got %v (found=%v)", v, ok)
		}
	})

	t.Run("Nested", func(t *testing.T) {
		v, ok := rec.Lookup("job.city")
		if !ok || v != "Salvador" {
			t.Fatalf("Expected Salvador, got %v (found=%v)", v, ok)
		}
	})

	t.Run("Missing", func(t *testing.T) {
		if _, ok := rec.Lookup("job.country"); ok {
			t.Fatal("Expected job.country to be missing")
		}
	})
}

func TestRecordNamesKeepOrder(t *testing.T) {
	names := sampleRecord().Names()
	expected := []string{"_id", "name", "job", "phones"}
	if !reflect.DeepEqual(names, expected) {
		t.Fatalf("Expected %v, got %v", expected, names)
	}
}

func TestRecordMapRoundTrip(t *testing.T) {
	rec := sampleRecord()
	m := rec.Map()

	job, ok := m["job"].(map[string]any)
	if !ok || job["city"] != "Salvador" {
		t.Fatalf("Expected nested map for job, got %#v", m["job"])
	}
	phones, ok := m["phones"].([]any)
	if !ok || len(phones) != 2 {
		t.Fatalf("Expected two phones, got %#v", m["phones"])
	}

	back := RecordFromMap(m, rec.Names()...)
	if !reflect.DeepEqual(back, rec) {
		t.Fatalf("Round trip mismatch:\nexpected %#v\ngot      %#v", rec, back)
	}
}

func TestRecordMapKeepsNilElements(t *testing.T) {
	rec := Record{Of("movies", []Record{{Of("title", "A")}, nil})}

	movies, ok := rec.Map()["movies"].([]any)
	if !ok || len(movies) != 2 || movies[1] != nil {
		t.Fatalf("Expected nil second element, got %#v", rec.Map()["movies"])
	}
	back := RecordFromMap(rec.Map())
	if !reflect.DeepEqual(back, rec) {
		t.Fatalf("Round trip mismatch:\nexpected %#v\ngot      %#v", rec, back)
	}

	rs, ok := AsRecords([]any{nil, map[string]any{"n": 1}})
	if !ok || len(rs) != 2 || rs[0] != nil {
		t.Fatalf("Unexpected records %v (ok=%v)", rs, ok)
	}
}

func TestAsRecordAcceptsDriverMaps(t *testing.T) {
	type document map[string]interface{}

	rec, ok := AsRecord(document{"zip": "01312321"})
	if !ok {
		t.Fatal("Expected named map type to be accepted")
	}
	if rec.Value("zip") != "01312321" {
		t.Fatalf("Unexpected record %v", rec)
	}

	if _, ok := AsRecord("not a record"); ok {
		t.Fatal("Expected string to be rejected")
	}
}

func TestAsRecords(t *testing.T) {
	rs, ok := AsRecords([]any{map[string]any{"n": 1}, map[string]any{"n": 2}})
	if !ok || len(rs) != 2 || rs[1].Value("n") != 2 {
		t.Fatalf("Unexpected records %v (ok=%v)", rs, ok)
	}

	if _, ok := AsRecords([]any{"x"}); ok {
		t.Fatal("Expected slice of strings to be rejected")
	}
}
