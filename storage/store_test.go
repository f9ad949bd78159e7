package storage

import "testing"

type sample struct {
	Name  string
	Count int
}

func TestStorePutGetRoundTrip(t *testing.T) {
	st := New(NewMemDB())
	prefix := []byte("widget/")

	ok, err := st.Get(prefix, []byte("a"), &sample{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected no value before Put")
	}

	want := sample{Name: "first", Count: 3}
	if err := st.Put(prefix, []byte("a"), want); err != nil {
		t.Fatalf("put: %v", err)
	}

	var got sample
	ok, err = st.Get(prefix, []byte("a"), &got)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatalf("expected value after Put")
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}

	if err := st.Delete(prefix, []byte("a")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	ok, err = st.Get(prefix, []byte("a"), &got)
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if ok {
		t.Fatalf("expected no value after Delete")
	}
}

func TestStoreIndexRoundTrip(t *testing.T) {
	st := New(NewMemDB())
	key := []byte("widget/index")

	ids, err := st.GetIndex(key)
	if err != nil {
		t.Fatalf("get index: %v", err)
	}
	if ids != nil {
		t.Fatalf("expected nil index before PutIndex, got %v", ids)
	}

	if err := st.PutIndex(key, []string{"a", "b", "c"}); err != nil {
		t.Fatalf("put index: %v", err)
	}
	ids, err = st.GetIndex(key)
	if err != nil {
		t.Fatalf("get index: %v", err)
	}
	if len(ids) != 3 || ids[0] != "a" || ids[2] != "c" {
		t.Fatalf("unexpected index contents: %v", ids)
	}
}
