package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestWrapPreservesCause(t *testing.T) {
	t.Parallel()

	cause := stdErrors.New("boom")
	err := Wrap(CodeDependency, cause, "backend call failed")

	if !stdErrors.Is(err, cause) {
		t.Fatalf("expected wrapped cause in chain")
	}
	if err.Code() != CodeDependency {
		t.Fatalf("expected dependency code, got %s", err.Code())
	}
}

func TestWrapNilCauseActsLikeNew(t *testing.T) {
	t.Parallel()

	err := Wrap(CodeValidation, nil, "bad input")
	if err.Unwrap() != nil {
		t.Fatalf("expected no cause")
	}
	if err.Message() != "bad input" {
		t.Fatalf("unexpected message %q", err.Message())
	}
}

func TestAsFindsTypedErrorThroughWrapping(t *testing.T) {
	t.Parallel()

	inner := New(CodeNotFound, "missing")
	outer := fmt.Errorf("handler: %w", inner)

	typed := As(outer)
	if typed == nil || typed.Code() != CodeNotFound {
		t.Fatalf("expected typed error through fmt wrapping, got %v", typed)
	}

	if As(stdErrors.New("plain")) != nil {
		t.Fatalf("expected nil for untyped error")
	}
}

func TestHasCode(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("outer: %w", New(CodeStockConflict, "out of stock"))
	if !HasCode(err, CodeStockConflict) {
		t.Fatalf("expected stock conflict code")
	}
	if HasCode(err, CodeNotFound) {
		t.Fatalf("did not expect not found code")
	}
	if HasCode(nil, CodeInternal) {
		t.Fatalf("nil error has no code")
	}
}

func TestMetadataForKnownCodes(t *testing.T) {
	t.Parallel()

	cases := map[Code]int{
		CodeValidation:    http.StatusBadRequest,
		CodeUnauthorized:  http.StatusUnauthorized,
		CodeNotFound:      http.StatusNotFound,
		CodeStockConflict: http.StatusConflict,
		CodeMergeFailed:   http.StatusBadGateway,
		CodeInternal:      http.StatusInternalServerError,
		CodeDependency:    http.StatusServiceUnavailable,
	}
	for code, status := range cases {
		if got := MetadataFor(code).HTTPStatus; got != status {
			t.Fatalf("code %s: expected status %d, got %d", code, status, got)
		}
	}
}

func TestMetadataForUnknownCodeFallsBack(t *testing.T) {
	t.Parallel()

	meta := MetadataFor(Code("WHAT"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal fallback, got %d", meta.HTTPStatus)
	}
}

func TestDumpCollectsChainAndCode(t *testing.T) {
	t.Parallel()

	err := Wrap(CodeMergeFailed, stdErrors.New("tcp reset"), "merge failed")
	dump := Dump(fmt.Errorf("request: %w", err))

	if dump.Code != CodeMergeFailed {
		t.Fatalf("expected merge failed code, got %s", dump.Code)
	}
	if len(dump.Chain) != 3 {
		t.Fatalf("expected 3 chain entries, got %d: %v", len(dump.Chain), dump.Chain)
	}
}

func TestDumpExtractsPgconnError(t *testing.T) {
	t.Parallel()

	cause := &pgconn.PgError{
		Code:           "23505",
		ConstraintName: "guest_cart_records_pkey",
		TableName:      "guest_cart_records",
		ColumnName:     "device_id",
		Detail:         "Key (device_id)=(d-1) already exists.",
		Message:        "duplicate key value violates unique constraint",
	}
	dump := Dump(Wrap(CodeInternal, cause, "persist guest cart"))

	if dump.PGCode != "23505" {
		t.Fatalf("expected pg code 23505, got %q", dump.PGCode)
	}
	if dump.PGConstraint != "guest_cart_records_pkey" {
		t.Fatalf("unexpected constraint %q", dump.PGConstraint)
	}
	if dump.PGTable != "guest_cart_records" || dump.PGColumn != "device_id" {
		t.Fatalf("unexpected table/column %q/%q", dump.PGTable, dump.PGColumn)
	}
	if dump.PGDetail == "" || dump.PGMessage == "" {
		t.Fatalf("expected detail and message, got %+v", dump)
	}
}

func TestDumpExtractsPqError(t *testing.T) {
	t.Parallel()

	cause := &pq.Error{
		Code:    "40001",
		Message: "could not serialize access due to concurrent update",
	}
	dump := Dump(fmt.Errorf("migrate: %w", cause))

	if dump.PGCode != "40001" {
		t.Fatalf("expected pg code 40001, got %q", dump.PGCode)
	}
	if dump.PGMessage == "" {
		t.Fatalf("expected pg message, got %+v", dump)
	}
}
