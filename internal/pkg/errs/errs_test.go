package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "not_found", err: NotFound("item %d not found", 42), want: KindNotFound},
		{name: "conflict", err: Conflict("version mismatch"), want: KindConflict},
		{name: "validation", err: Validation("self reference"), want: KindValidation},
		{name: "store_fault", err: StoreFault(errors.New("socket closed"), "fetch latest version"), want: KindStoreFault},
		{name: "plain_error", err: errors.New("boom"), want: KindUnknown},
		{name: "wrapped_domain_error", err: fmt.Errorf("outer: %w", NotFound("gone")), want: KindNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := KindOf(tc.err); got != tc.want {
				t.Fatalf("KindOf(%v)=%v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestStoreFaultDoesNotRewrapDomainErrors(t *testing.T) {
	orig := Conflict("item 7: expected version 3, found 4")
	got := StoreFault(orig, "update requirement")
	if got != orig {
		t.Fatalf("StoreFault rewrapped a domain error: %v", got)
	}
	if !IsConflict(got) {
		t.Fatalf("kind lost after StoreFault passthrough: %v", got)
	}
}

func TestStoreFaultNilPassthrough(t *testing.T) {
	if got := StoreFault(nil, "noop"); got != nil {
		t.Fatalf("StoreFault(nil)=%v, want nil", got)
	}
}

func TestStoreFaultMessageCarriesOperation(t *testing.T) {
	err := StoreFault(errors.New("defunct connection"), "capture baseline items")
	want := "capture baseline items: defunct connection"
	if err.Error() != want {
		t.Fatalf("Error()=%q, want %q", err.Error(), want)
	}
}
