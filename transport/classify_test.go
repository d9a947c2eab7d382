package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Class
	}{
		{"nil", nil, ClassUnknown},
		{"network code", &Error{Code: CodeNetwork, Message: msgNetwork}, ClassNetwork},
		{"offline", fmt.Errorf("profile: %w", ErrOffline), ClassNetwork},
		{"deadline", context.DeadlineExceeded, ClassNetwork},
		{"aborted", context.Canceled, ClassNetwork},
		{"refused", &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}, ClassNetwork},
		{"dns", &net.DNSError{Err: "no such host", Name: "api.invalid"}, ClassNetwork},
		{"timeout phrase", errors.New("request timeout after 15000ms"), ClassNetwork},
		{"401", &Error{Code: 401, Message: "x"}, ClassAuth},
		{"403", &Error{Code: 403, Message: msgForbidden}, ClassAuth},
		{"expired phrase", errors.New("Token expired"), ClassAuth},
		{"invalid phrase", &Error{Code: 200, Message: "Invalid token"}, ClassAuth},
		{"unauthorized phrase", errors.New("Unauthorized"), ClassAuth},
		{"400", &Error{Code: 400, Message: "bad"}, ClassValidation},
		{"422", &Error{Code: 422, Message: "bad"}, ClassValidation},
		{"500", &Error{Code: 500, Message: msgServerError}, ClassUnknown},
		{"plain", errors.New("boom"), ClassUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.err); got != tc.want {
				t.Fatalf("Classify(%v) = %s, want %s", tc.err, got, tc.want)
			}
		})
	}
}
