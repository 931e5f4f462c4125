/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/entitymapper/datastore"
	"github.com/suparena/entitymapper/errors"
	"github.com/suparena/entitymapper/query"
	"github.com/suparena/entitymapper/storagemodels"
)

// Stream scans the records matching q page by page. Records arrive in table
// order, so queries with sorts are rejected; skip and limit are honoured.
func (d *DynamodbDataStore) Stream(ctx context.Context, q *query.Query, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[storagemodels.Record] {
	// Apply options
	options := storagemodels.DefaultStreamOptions()
	for _, opt := range opts {
		opt(&options)
	}

	resultCh := make(chan storagemodels.StreamResult[storagemodels.Record], options.BufferSize)

	var err error
	switch {
	case q == nil:
		err = errors.NewValidationError("query", "query is required")
	case len(q.Sorts()) > 0:
		err = errors.NewUnsupportedError(backendName, "sorted streams")
	}
	if err != nil {
		resultCh <- storagemodels.StreamResult[storagemodels.Record]{
			Error: err,
			Meta:  storagemodels.StreamMeta{Timestamp: time.Now()},
		}
		close(resultCh)
		return resultCh
	}

	go d.streamWorker(ctx, q, options, resultCh)

	return resultCh
}

// streamWorker handles the actual streaming logic
func (d *DynamodbDataStore) streamWorker(
	ctx context.Context,
	q *query.Query,
	options storagemodels.StreamOptions,
	resultCh chan<- storagemodels.StreamResult[storagemodels.Record],
) {
	defer close(resultCh)

	var itemIndex int64
	var pageNumber int
	startTime := time.Now()
	var errs []error
	var mu sync.Mutex

	reportProgress := func(lastKey map[string]types.AttributeValue) {
		if options.ProgressHandler == nil {
			return
		}
		mu.Lock()
		progress := storagemodels.StreamProgress{
			ItemsProcessed: atomic.LoadInt64(&itemIndex),
			PagesProcessed: pageNumber,
			LastKey:        lastKeyRecord(lastKey),
			Errors:         append([]error(nil), errs...),
			StartTime:      startTime,
		}
		mu.Unlock()

		elapsed := time.Since(startTime).Seconds()
		if elapsed > 0 {
			progress.CurrentRate = float64(progress.ItemsProcessed) / elapsed
		}
		options.ProgressHandler(progress)
	}

	cond, _ := q.Condition()
	input := d.scanInput(q.Entity(), cond)
	if options.PageSize > 0 {
		input.Limit = aws.Int32(options.PageSize)
	}

	skip, limit := q.Skip(), q.Limit()
	var matched int64

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		out, err := d.scanWithRetry(ctx, input, options)
		if err != nil {
			if options.ErrorHandler == nil || !options.ErrorHandler(err) {
				resultCh <- storagemodels.StreamResult[storagemodels.Record]{
					Error: fmt.Errorf("scan failed: %w", err),
					Meta: storagemodels.StreamMeta{
						Index:      atomic.LoadInt64(&itemIndex),
						PageNumber: pageNumber,
						Timestamp:  time.Now(),
					},
				}
				return
			}

			// Error handler asked to continue; the page is retried.
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
			continue
		}

		pageNumber++

		for _, item := range out.Items {
			result, ok := d.processItem(q, cond, item, atomic.LoadInt64(&itemIndex), pageNumber)
			if !ok {
				continue
			}
			if result.Error == nil {
				matched++
				if matched <= skip {
					continue
				}
			}
			atomic.AddInt64(&itemIndex, 1)

			select {
			case <-ctx.Done():
				return
			case resultCh <- result:
			}

			if result.Error != nil {
				mu.Lock()
				errs = append(errs, result.Error)
				mu.Unlock()
			}
			if limit > 0 && matched-skip >= limit {
				reportProgress(nil)
				return
			}
		}

		reportProgress(out.LastEvaluatedKey)

		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}

	reportProgress(nil)
}

// scanWithRetry executes one scan page with linear backoff on throttling
// and transient server errors.
func (d *DynamodbDataStore) scanWithRetry(
	ctx context.Context,
	input *sdk.ScanInput,
	options storagemodels.StreamOptions,
) (*sdk.ScanOutput, error) {
	var lastErr error

	for attempt := 0; attempt <= options.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		out, err := d.client.Scan(ctx, input)
		if err == nil {
			return out, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			return nil, err
		}

		// Don't sleep after last attempt
		if attempt < options.MaxRetries {
			backoff := time.Duration(attempt+1) * options.RetryBackoff
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	return nil, fmt.Errorf("scan failed after %d retries: %w", options.MaxRetries, lastErr)
}

// processItem converts an item to a record and applies the in-memory match.
// It reports false for items the condition rejects.
func (d *DynamodbDataStore) processItem(
	q *query.Query,
	cond *query.Condition,
	item map[string]types.AttributeValue,
	index int64,
	pageNumber int,
) (storagemodels.StreamResult[storagemodels.Record], bool) {
	meta := storagemodels.StreamMeta{
		Index:      index,
		PageNumber: pageNumber,
		Timestamp:  time.Now(),
	}

	rawCopy := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		rawCopy[k] = v
	}

	rec, err := d.toRecord(q.Entity(), item)
	if err != nil {
		return storagemodels.StreamResult[storagemodels.Record]{Error: err, Raw: rawCopy, Meta: meta}, true
	}
	ok, err := datastore.Match(cond, rec)
	if err != nil {
		return storagemodels.StreamResult[storagemodels.Record]{Error: err, Raw: rawCopy, Meta: meta}, true
	}
	if !ok {
		return storagemodels.StreamResult[storagemodels.Record]{}, false
	}
	return storagemodels.StreamResult[storagemodels.Record]{Item: datastore.Project(rec, q.Fields()), Raw: rawCopy, Meta: meta}, true
}

func lastKeyRecord(key map[string]types.AttributeValue) storagemodels.Record {
	if len(key) == 0 {
		return nil
	}
	var m map[string]any
	if err := attributevalue.UnmarshalMap(key, &m); err != nil {
		return nil
	}
	return storagemodels.RecordFromMap(m)
}

// isRetryableError determines if a DynamoDB error is retryable
func isRetryableError(err error) bool {
	switch err.(type) {
	case *types.ProvisionedThroughputExceededException:
		return true
	case *types.RequestLimitExceeded:
		return true
	case *types.InternalServerError:
		return true
	}

	// Check for AWS SDK retryable errors
	if awsErr, ok := err.(interface{ IsRetryable() bool }); ok {
		return awsErr.IsRetryable()
	}

	return false
}
