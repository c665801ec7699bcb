package whois

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/codeGROOVE-dev/sleuth/pkg/profile"
)

const exampleCom = `   Domain Name: EXAMPLE.COM
   Registry Domain ID: 2336799_DOMAIN_COM-VRSN
   Registrar WHOIS Server: whois.example-registrar.com
   Registrar URL: http://www.example-registrar.com
   Updated Date: 2024-08-14T07:01:34Z
   Creation Date: 1995-08-14T04:00:00Z
   Registry Expiry Date: 2025-08-13T04:00:00Z
   Registrar: Example Registrar, Inc.
   Registrar IANA ID: 9999
   Registrar Abuse Contact Email: abuse@example-registrar.com
   Registrar Abuse Contact Phone: +1.5555555555
   Registrant Organization: Example Org
   Registrant Country: US
   Registrant Email: owner@example.org
   Domain Status: clientTransferProhibited https://icann.org/epp#clientTransferProhibited
   Name Server: NS1.EXAMPLE.NET
   Name Server: NS2.EXAMPLE.NET
   DNSSEC: unsigned
`

func TestLookup(t *testing.T) {
	var asked string
	c := New(WithQuery(func(domain string) (string, error) {
		asked = domain
		return exampleCom, nil
	}))

	rec, err := c.Lookup(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if asked != "example.com" {
		t.Errorf("queried %q, want example.com", asked)
	}
	if rec.Registrar != "Example Registrar, Inc." {
		t.Errorf("Registrar = %q", rec.Registrar)
	}
	if !strings.Contains(rec.CreationDate, "1995-08-14") {
		t.Errorf("CreationDate = %q, want 1995-08-14", rec.CreationDate)
	}
	if !strings.Contains(rec.ExpirationDate, "2025-08-13") {
		t.Errorf("ExpirationDate = %q, want 2025-08-13", rec.ExpirationDate)
	}
	if rec.Country != "US" {
		t.Errorf("Country = %q, want US", rec.Country)
	}
	if diff := cmp.Diff([]string{"abuse@example-registrar.com", "owner@example.org"}, rec.Emails); diff != "" {
		t.Errorf("Emails mismatch (-want +got):\n%s", diff)
	}
}

func TestLookupErrors(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		err     error
		wantErr error
	}{
		{name: "network", err: errors.New("dial tcp: connection reset"), wantErr: profile.ErrTransient},
		{name: "server throttle", raw: "WHOIS LIMIT EXCEEDED - SEE WWW.PIR.ORG/WHOIS FOR DETAILS", wantErr: profile.ErrRateLimited},
		{name: "unregistered", raw: "No match for \"NOPE-NOT-REAL.COM\".\r\n>>> Last update of whois database: 2024-01-01T00:00:00Z <<<", wantErr: profile.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(WithQuery(func(string) (string, error) { return tt.raw, tt.err }))
			_, err := c.Lookup(context.Background(), "example.org")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLookupCancelled(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	c := New(WithQuery(func(string) (string, error) {
		<-release
		return exampleCom, nil
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := c.Lookup(ctx, "example.com")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want DeadlineExceeded", err)
	}
}
