/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/entitymapper/errors"
	"github.com/suparena/entitymapper/query"
	"github.com/suparena/entitymapper/storagemodels"
)

func seedMany(t *testing.T, store *DynamodbDataStore, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		if err := store.Insert(context.Background(), "Person", person(int64(i), fmt.Sprintf("p%02d", i), 20+i)); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}
}

func TestStreamWithOptions(t *testing.T) {
	ctx := context.Background()

	t.Run("Pagination", func(t *testing.T) {
		store, client := newTestStore(t)
		seedMany(t, store, 5)

		var lastProgress storagemodels.StreamProgress
		var progressCalls int32
		q := mustBuild(query.Select().From("Person").Build())
		resultChan := store.Stream(ctx, q,
			storagemodels.WithPageSize(2),
			storagemodels.WithBufferSize(1),
			storagemodels.WithProgressHandler(func(p storagemodels.StreamProgress) {
				atomic.AddInt32(&progressCalls, 1)
				lastProgress = p
			}),
		)

		count := 0
		for result := range resultChan {
			if result.Error != nil {
				t.Fatalf("Unexpected error: %v", result.Error)
			}
			if result.Item.Value("_id") == nil {
				t.Errorf("Expected streamed record to carry its id")
			}
			if _, ok := result.Raw.(map[string]types.AttributeValue); !ok {
				t.Errorf("Expected raw DynamoDB item, got %T", result.Raw)
			}
			count++
		}

		if count != 5 {
			t.Errorf("Expected 5 records, got %d", count)
		}
		if client.scanCalls != 3 {
			t.Errorf("Expected 3 pages, got %d", client.scanCalls)
		}
		if atomic.LoadInt32(&progressCalls) == 0 {
			t.Fatalf("Expected progress reports")
		}
		if lastProgress.ItemsProcessed != 5 || lastProgress.LastKey != nil {
			t.Errorf("Unexpected final progress: %+v", lastProgress)
		}
	})

	t.Run("FilterSkipAndLimit", func(t *testing.T) {
		store, _ := newTestStore(t)
		seedMany(t, store, 6)

		q := mustBuild(query.Select("name").From("Person").Where("age").Gt(21).Skip(1).Limit(2).Build())
		var names []any
		for result := range store.Stream(ctx, q, storagemodels.WithPageSize(4)) {
			if result.Error != nil {
				t.Fatalf("Unexpected error: %v", result.Error)
			}
			if len(result.Item) != 1 {
				t.Errorf("Expected projected record, got %v", result.Item)
			}
			names = append(names, result.Item.Value("name"))
		}
		if len(names) != 2 || names[0] != "p03" || names[1] != "p04" {
			t.Errorf("Expected [p03 p04], got %v", names)
		}
	})

	t.Run("RetryOnThrottle", func(t *testing.T) {
		store, client := newTestStore(t)
		seedMany(t, store, 1)
		client.scanErrs = []error{
			&types.ProvisionedThroughputExceededException{Message: aws.String("slow down")},
		}

		q := mustBuild(query.Select().From("Person").Build())
		count := 0
		for result := range store.Stream(ctx, q, storagemodels.WithRetryBackoff(time.Millisecond)) {
			if result.Error != nil {
				t.Fatalf("Unexpected error: %v", result.Error)
			}
			count++
		}
		if count != 1 {
			t.Errorf("Expected 1 record after retry, got %d", count)
		}
	})

	t.Run("NonRetryableError", func(t *testing.T) {
		store, client := newTestStore(t)
		client.scanErrs = []error{fmt.Errorf("access denied")}

		q := mustBuild(query.Select().From("Person").Build())
		var got error
		for result := range store.Stream(ctx, q) {
			got = result.Error
		}
		if got == nil {
			t.Fatalf("Expected stream error")
		}
		if client.scanCalls != 1 {
			t.Errorf("Expected no retry, got %d calls", client.scanCalls)
		}
	})

	t.Run("SortedRejected", func(t *testing.T) {
		store, _ := newTestStore(t)
		q := mustBuild(query.Select().From("Person").OrderBy("name").Asc().Build())
		result := <-store.Stream(ctx, q)
		if !errors.IsUnsupported(result.Error) {
			t.Errorf("Expected unsupported error, got: %v", result.Error)
		}
	})

	t.Run("Cancellation", func(t *testing.T) {
		store, _ := newTestStore(t)
		seedMany(t, store, 10)

		cctx, cancel := context.WithCancel(ctx)
		q := mustBuild(query.Select().From("Person").Build())
		resultChan := store.Stream(cctx, q, storagemodels.WithBufferSize(0), storagemodels.WithPageSize(1))
		<-resultChan
		cancel()

		done := make(chan struct{})
		go func() {
			for range resultChan {
			}
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Stream did not stop after cancellation")
		}
	})
}

func TestIsRetryableError(t *testing.T) {
	retryable := []error{
		&types.ProvisionedThroughputExceededException{},
		&types.RequestLimitExceeded{},
		&types.InternalServerError{},
	}
	for _, err := range retryable {
		if !isRetryableError(err) {
			t.Errorf("Expected %T to be retryable", err)
		}
	}
	if isRetryableError(&types.ConditionalCheckFailedException{}) {
		t.Errorf("Expected conditional check failure not to be retryable")
	}
}
