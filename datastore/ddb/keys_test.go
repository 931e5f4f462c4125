/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"testing"

	"github.com/suparena/entitymapper/errors"
	"github.com/suparena/entitymapper/storagemodels"
)

func TestExpandMacros(t *testing.T) {
	keys := Keys{
		PartitionKey: "USER#{_id}",
		SortKey:      "PROFILE",
		"GSI1PK":     "CITY#{address.city}",
		"GSI1SK":     "{active}#{score}",
		"GSI2PK":     "EMAIL#{email}",
	}
	rec := storagemodels.Record{
		storagemodels.Of("_id", "u1"),
		storagemodels.Of("active", true),
		storagemodels.Of("score", 12.5),
		storagemodels.Of("address", storagemodels.Record{storagemodels.Of("city", "Oakville")}),
	}

	expanded, err := expandMacros(keys, rec)
	if err != nil {
		t.Fatalf("expandMacros failed: %v", err)
	}

	want := map[string]string{
		PartitionKey: "USER#u1",
		SortKey:      "PROFILE",
		"GSI1PK":     "CITY#Oakville",
		"GSI1SK":     "true#12.5",
	}
	for k, v := range want {
		if expanded[k] != v {
			t.Errorf("Expected %s = %q, got %q", k, v, expanded[k])
		}
	}
	if _, ok := expanded["GSI2PK"]; ok {
		t.Errorf("Expected sparse index key to be omitted when email is missing")
	}

	_, err = expandMacros(keys, storagemodels.Record{storagemodels.Of("name", "x")})
	if !errors.IsValidationError(err) {
		t.Errorf("Expected validation error when PK cannot be expanded, got: %v", err)
	}
}

func TestExpandID(t *testing.T) {
	expanded, ok := expandID(DefaultKeys("Person", "_id"), "_id", "42")
	if !ok {
		t.Fatalf("Expected default keys to expand from the id")
	}
	if expanded[PartitionKey] != "Person#42" || expanded[SortKey] != "Person#42" {
		t.Errorf("Unexpected expansion: %v", expanded)
	}

	static := Keys{PartitionKey: "USER#{_id}", SortKey: "PROFILE"}
	expanded, ok = expandID(static, "_id", "7")
	if !ok || expanded[SortKey] != "PROFILE" {
		t.Errorf("Expected static sort key to pass through, got %v", expanded)
	}

	_, ok = expandID(Keys{PartitionKey: "ORG#{org}", SortKey: "{_id}"}, "_id", "7")
	if ok {
		t.Errorf("Expected expansion to fail when another attribute is needed")
	}
}

func TestKeyOf(t *testing.T) {
	key, err := keyOf(map[string]string{PartitionKey: "A", SortKey: "B"})
	if err != nil {
		t.Fatalf("keyOf failed: %v", err)
	}
	if str(key[PartitionKey]) != "A" || str(key[SortKey]) != "B" {
		t.Errorf("Unexpected key: %v", key)
	}
	if _, err := keyOf(map[string]string{PartitionKey: "A"}); !errors.IsValidationError(err) {
		t.Errorf("Expected validation error for missing SK, got: %v", err)
	}
}

func TestFillTemplate(t *testing.T) {
	tests := []struct {
		template string
		value    string
		want     string
		wantErr  bool
	}{
		{"EMAIL#{email}", "a@b.c", "EMAIL#a@b.c", false},
		{"STATIC", "ignored", "STATIC", false},
		{"{a}#{b}", "x", "", true},
	}
	for _, tt := range tests {
		got, err := fillTemplate(tt.template, tt.value)
		if (err != nil) != tt.wantErr {
			t.Errorf("fillTemplate(%q) error = %v, wantErr %v", tt.template, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("fillTemplate(%q) = %q, want %q", tt.template, got, tt.want)
		}
	}
}
