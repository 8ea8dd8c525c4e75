package proxy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Endpoint
		wantErr bool
	}{
		{
			name: "http default",
			raw:  "proxy.example.com:8080:alice:s3cret",
			want: Endpoint{Host: "proxy.example.com", Port: 8080, Username: "alice", Password: "s3cret", Transport: TransportHTTP},
		},
		{
			name: "explicit socks5",
			raw:  "10.1.2.3:1080:bob:pw:socks5",
			want: Endpoint{Host: "10.1.2.3", Port: 1080, Username: "bob", Password: "pw", Transport: TransportSOCKS5},
		},
		{
			name: "explicit http uppercase",
			raw:  "10.1.2.3:3128:bob:pw:HTTP",
			want: Endpoint{Host: "10.1.2.3", Port: 3128, Username: "bob", Password: "pw", Transport: TransportHTTP},
		},
		{name: "too few parts", raw: "host:8080:user", wantErr: true},
		{name: "too many parts", raw: "host:8080:user:pass:http:extra", wantErr: true},
		{name: "bad port", raw: "host:eighty:user:pass", wantErr: true},
		{name: "port out of range", raw: "host:70000:user:pass", wantErr: true},
		{name: "unknown transport", raw: "host:8080:user:pass:ftp", wantErr: true},
		{name: "empty host", raw: ":8080:user:pass", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEndpoint(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEndpointAddrAndServerURL(t *testing.T) {
	ep := Endpoint{Host: "proxy.example.com", Port: 1080, Transport: TransportSOCKS5}
	assert.Equal(t, "proxy.example.com:1080", ep.Addr())
	assert.Equal(t, "socks5://proxy.example.com:1080", ep.ServerURL())
}

func TestNewPoolErrors(t *testing.T) {
	_, err := NewPool(nil, PolicyRoundRobin, zap.NewNop())
	require.Error(t, err)

	_, err = NewPool([]string{"h:1:u:p"}, Policy("weighted"), zap.NewNop())
	require.Error(t, err)

	_, err = NewPool([]string{"h:bad:u:p"}, PolicyRoundRobin, zap.NewNop())
	require.Error(t, err)
}

func TestPoolRoundRobinWraps(t *testing.T) {
	raws := []string{
		"a.example.com:8080:u:p",
		"b.example.com:8080:u:p",
		"c.example.com:8080:u:p",
	}
	pool, err := NewPool(raws, PolicyRoundRobin, zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, 3, pool.Size())

	var got []string
	for i := 0; i < 7; i++ {
		got = append(got, pool.Next().Host)
	}
	want := []string{"a.example.com", "b.example.com", "c.example.com", "a.example.com", "b.example.com", "c.example.com", "a.example.com"}
	assert.Equal(t, want, got)
}

func TestPoolRandomDrawsWithoutReplacement(t *testing.T) {
	raws := []string{
		"a.example.com:8080:u:p",
		"b.example.com:8080:u:p",
		"c.example.com:8080:u:p",
		"d.example.com:8080:u:p",
	}
	pool, err := NewPool(raws, PolicyRandom, zap.NewNop())
	require.NoError(t, err)

	// Two full cycles: within each cycle every endpoint appears exactly once.
	for cycle := 0; cycle < 2; cycle++ {
		seen := make(map[string]int)
		for i := 0; i < len(raws); i++ {
			seen[pool.Next().Host]++
		}
		assert.Len(t, seen, len(raws), "cycle %d drew duplicates: %v", cycle, seen)
	}
}
