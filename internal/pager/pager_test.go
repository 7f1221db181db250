package pager

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
)

// fakeSource serves fixed pages and counts fetches.
type fakeSource struct {
	pages   [][]int
	fetches int
	failAt  int
}

func (f *fakeSource) fetch(ctx context.Context, cursor *string) (Page[int], error) {
	f.fetches++
	idx := 0
	if cursor != nil {
		if _, err := fmt.Sscanf(*cursor, "page-%d", &idx); err != nil {
			return Page[int]{}, err
		}
	}
	if f.failAt > 0 && idx == f.failAt {
		return Page[int]{}, errors.New("boom")
	}

	page := Page[int]{Items: f.pages[idx]}
	if idx+1 < len(f.pages) {
		next := fmt.Sprintf("page-%d", idx+1)
		page.Next = &next
	}
	return page, nil
}

func TestPages(t *testing.T) {
	tt := []struct {
		name  string
		pages [][]int
		want  []int
	}{
		{name: "single page", pages: [][]int{{1, 2, 3}}, want: []int{1, 2, 3}},
		{name: "three pages", pages: [][]int{{1, 2}, {3}, {4, 5}}, want: []int{1, 2, 3, 4, 5}},
		{name: "empty collection", pages: [][]int{{}}, want: nil},
		{name: "empty middle page", pages: [][]int{{1}, {}, {2}}, want: []int{1, 2}},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			src := &fakeSource{pages: tc.pages}

			var got []int
			for items, err := range Pages(context.Background(), src.fetch) {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				got = append(got, items...)
			}

			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("items = %v, want %v", got, tc.want)
			}
			if src.fetches != len(tc.pages) {
				t.Errorf("fetches = %d, want %d", src.fetches, len(tc.pages))
			}
		})
	}
}

func TestPagesErrors(t *testing.T) {
	t.Run("fetch error ends the walk", func(t *testing.T) {
		src := &fakeSource{pages: [][]int{{1}, {2}, {3}}, failAt: 1}

		var got []int
		var gotErr error
		for items, err := range Pages(context.Background(), src.fetch) {
			if err != nil {
				gotErr = err
				continue
			}
			got = append(got, items...)
		}

		if gotErr == nil || gotErr.Error() != "boom" {
			t.Errorf("expected boom, got %v", gotErr)
		}
		if !reflect.DeepEqual(got, []int{1}) {
			t.Errorf("items before failure = %v", got)
		}
		if src.fetches != 2 {
			t.Errorf("fetches = %d, want 2", src.fetches)
		}
	})

	t.Run("second range is rejected", func(t *testing.T) {
		src := &fakeSource{pages: [][]int{{1}}}
		seq := Pages(context.Background(), src.fetch)
		for range seq {
		}

		for _, err := range seq {
			if !errors.Is(err, ErrConsumed) {
				t.Errorf("expected ErrConsumed, got %v", err)
			}
		}
		if src.fetches != 1 {
			t.Errorf("fetches = %d, want 1", src.fetches)
		}
	})

	t.Run("repeating cursor is a loop", func(t *testing.T) {
		same := "page-1"
		fetch := func(ctx context.Context, cursor *string) (Page[int], error) {
			return Page[int]{Items: []int{1}, Next: &same}, nil
		}

		var gotErr error
		count := 0
		for _, err := range Pages(context.Background(), fetch) {
			if err != nil {
				gotErr = err
				break
			}
			count++
		}
		if !errors.Is(gotErr, ErrCursorLoop) {
			t.Errorf("expected ErrCursorLoop, got %v", gotErr)
		}
		if count != 2 {
			t.Errorf("pages before loop detection = %d, want 2", count)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		src := &fakeSource{pages: [][]int{{1}}}

		for _, err := range Pages(ctx, src.fetch) {
			if !errors.Is(err, context.Canceled) {
				t.Errorf("expected context.Canceled, got %v", err)
			}
		}
		if src.fetches != 0 {
			t.Errorf("fetches = %d, want 0", src.fetches)
		}
	})

	t.Run("early break stops fetching", func(t *testing.T) {
		src := &fakeSource{pages: [][]int{{1}, {2}, {3}}}
		for range Pages(context.Background(), src.fetch) {
			break
		}
		if src.fetches != 1 {
			t.Errorf("fetches = %d, want 1", src.fetches)
		}
	})
}

func TestItems(t *testing.T) {
	src := &fakeSource{pages: [][]int{{1, 2}, {3}}}

	var got []int
	for item, err := range Items(context.Background(), src.fetch) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got = append(got, item)
	}

	if !reflect.DeepEqual(got, []int{1, 2, 3}) {
		t.Errorf("items = %v", got)
	}
}

func TestBatches(t *testing.T) {
	even := func(n int) bool { return n%2 == 0 }

	tt := []struct {
		name  string
		pages [][]int
		want  [][]int
	}{
		{name: "filters within pages", pages: [][]int{{1, 2, 4}, {6, 7}}, want: [][]int{{2, 4}, {6}}},
		{name: "page with no survivors is skipped", pages: [][]int{{2}, {1, 3}, {4}}, want: [][]int{{2}, {4}}},
		{name: "nothing survives", pages: [][]int{{1, 3, 5}}, want: nil},
		{name: "empty collection", pages: [][]int{{}}, want: nil},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			src := &fakeSource{pages: tc.pages}

			var got [][]int
			for batch, err := range Batches(context.Background(), src.fetch, even) {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if len(batch) == 0 {
					t.Error("empty batch yielded")
				}
				got = append(got, batch)
			}

			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("batches = %v, want %v", got, tc.want)
			}
			if src.fetches != len(tc.pages) {
				t.Errorf("fetches = %d, want %d", src.fetches, len(tc.pages))
			}
		})
	}
}

func TestMap(t *testing.T) {
	src := &fakeSource{pages: [][]int{{1, 2, 3}}}
	double := func(n int) (string, error) {
		if n == 3 {
			return "", errors.New("three")
		}
		return fmt.Sprint(n * 2), nil
	}

	var got []string
	var gotErr error
	for s, err := range Map(Items(context.Background(), src.fetch), double) {
		if err != nil {
			gotErr = err
			continue
		}
		got = append(got, s)
	}

	if !reflect.DeepEqual(got, []string{"2", "4"}) {
		t.Errorf("mapped = %v", got)
	}
	if gotErr == nil || gotErr.Error() != "three" {
		t.Errorf("expected mapping error, got %v", gotErr)
	}
}
