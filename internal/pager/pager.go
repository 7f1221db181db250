// Package pager walks cursor-paginated collections lazily.
//
// A walk holds one page in memory at a time and follows each page's Next cursor until it is nil.
// Sequences are single-pass: ranging over one a second time yields [ErrConsumed].
package pager

import (
	"context"
	"errors"
	"fmt"
	"iter"
)

var (
	// ErrConsumed is yielded when a sequence is ranged over more than once.
	ErrConsumed = errors.New("pager: sequence already consumed")
	// ErrCursorLoop is yielded when a page points back at its own cursor.
	ErrCursorLoop = errors.New("pager: next cursor repeats current cursor")
)

// Page is one page of a collection. Next is nil on the last page.
type Page[T any] struct {
	Items []T
	Next  *string
}

// Fetch retrieves the page addressed by cursor. A nil cursor addresses the first page.
type Fetch[T any] func(ctx context.Context, cursor *string) (Page[T], error)

// Pages yields the items of every page in order, one slice per fetch. A fetch error is yielded
// once and ends the sequence.
func Pages[T any](ctx context.Context, fetch Fetch[T]) iter.Seq2[[]T, error] {
	consumed := false
	return func(yield func([]T, error) bool) {
		if consumed {
			yield(nil, ErrConsumed)
			return
		}
		consumed = true

		var cursor *string
		for {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}

			page, err := fetch(ctx, cursor)
			if err != nil {
				yield(nil, err)
				return
			}

			if !yield(page.Items, nil) || page.Next == nil {
				return
			}

			if cursor != nil && *cursor == *page.Next {
				yield(nil, fmt.Errorf("%w: %s", ErrCursorLoop, *cursor))
				return
			}
			cursor = page.Next
		}
	}
}

// Items flattens [Pages] into single items, preserving page then item order.
func Items[T any](ctx context.Context, fetch Fetch[T]) iter.Seq2[T, error] {
	pages := Pages(ctx, fetch)
	return func(yield func(T, error) bool) {
		for items, err := range pages {
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			for _, item := range items {
				if !yield(item, nil) {
					return
				}
			}
		}
	}
}

// Batches yields one batch per page holding only the items for which keep returns true.
// Pages with no surviving items produce no batch, so consumers never see an empty batch.
func Batches[T any](ctx context.Context, fetch Fetch[T], keep func(T) bool) iter.Seq2[[]T, error] {
	pages := Pages(ctx, fetch)
	return func(yield func([]T, error) bool) {
		for items, err := range pages {
			if err != nil {
				yield(nil, err)
				return
			}

			batch := make([]T, 0, len(items))
			for _, item := range items {
				if keep(item) {
					batch = append(batch, item)
				}
			}
			if len(batch) == 0 {
				continue
			}
			if !yield(batch, nil) {
				return
			}
		}
	}
}

// Map converts each item of seq with fn. An error from fn is yielded and ends the sequence.
func Map[T, U any](seq iter.Seq2[T, error], fn func(T) (U, error)) iter.Seq2[U, error] {
	return func(yield func(U, error) bool) {
		var zero U
		for item, err := range seq {
			if err != nil {
				yield(zero, err)
				return
			}
			out, err := fn(item)
			if err != nil {
				yield(zero, err)
				return
			}
			if !yield(out, nil) {
				return
			}
		}
	}
}
