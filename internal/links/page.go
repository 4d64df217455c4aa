package links

const (
	DefaultPageSize = 30
	MaxPageSize     = 100
)

// Page is one slice of a paginated listing. Number starts at 1.
type Page[T any] struct {
	Items  []T
	Number int
	Size   int
	Total  int
}

// Pages returns the number of pages needed to show Total items.
func (p Page[T]) Pages() int {
	if p.Total == 0 {
		return 1
	}
	return (p.Total + p.Size - 1) / p.Size
}

// HasNext reports whether a later page exists.
func (p Page[T]) HasNext() bool {
	return p.Number < p.Pages()
}

// Paginate cuts items into the requested page. Out-of-range numbers and sizes
// are clamped; a page past the end is empty.
func Paginate[T any](items []T, number, size int) Page[T] {
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	if number < 1 {
		number = 1
	}

	p := Page[T]{Number: number, Size: size, Total: len(items)}
	start := (number - 1) * size
	if start >= len(items) {
		return p
	}
	end := min(start+size, len(items))
	p.Items = items[start:end]
	return p
}
