package iterator

import "testing"

func TestIteratorNext(t *testing.T) {
	it := &Iterator[string]{Items: []string{"a", "b", "c"}}
	want := []string{"a", "b", "c", "a", "b"}
	for i, w := range want {
		if got := it.Next(); got != w {
			t.Errorf("Next() #%d = %v, want %v", i, got, w)
		}
	}
}

func TestIteratorEmpty(t *testing.T) {
	it := &Iterator[int]{}
	if got := it.Next(); got != 0 {
		t.Errorf("Next() = %v, want zero value", got)
	}
	if it.Len() != 0 {
		t.Errorf("Len() = %d, want 0", it.Len())
	}
}
