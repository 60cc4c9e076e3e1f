package checksum

import "testing"

func TestSum(t *testing.T) {
	if got := Sum([]byte("")); got != "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855" {
		t.Errorf("Sum(empty) = %s", got)
	}
}

func TestBlob(t *testing.T) {
	// git hash-object of "hello\n".
	if got := Blob([]byte("hello\n")); got != "ce013625030ba8dba906f756967f9e9ca394464a" {
		t.Errorf("Blob = %s", got)
	}
}
