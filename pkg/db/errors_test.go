package db

import (
	"errors"
	"testing"
)

func TestIsUniqueViolation(t *testing.T) {
	if IsUniqueViolation(nil, "") {
		t.Fatalf("nil error is not a violation")
	}
	if !IsUniqueViolation(errors.New(`ERROR: duplicate key value violates unique constraint "queued_sales_pkey"`), "") {
		t.Fatalf("postgres duplicate key should match")
	}
	if !IsUniqueViolation(errors.New("UNIQUE constraint failed: queued_sales.id"), "") {
		t.Fatalf("sqlite unique constraint should match")
	}
	if !IsUniqueViolation(errors.New(`constraint "queued_sales_pkey" violated`), "queued_sales_pkey") {
		t.Fatalf("named constraint should match")
	}
	if IsUniqueViolation(errors.New("connection refused"), "") {
		t.Fatalf("unrelated error should not match")
	}
}
