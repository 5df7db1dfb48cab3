package discovery

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInstanceName(t *testing.T) {
	s := NewDiscoveryService("bancada-1", 8080, Info{})
	assert.Equal(t, "bancada-1", s.GetInstanceName())
	assert.Equal(t, 8080, s.GetPort())
	assert.False(t, s.IsRunning())

	s = NewDiscoveryService("", 8080, Info{})
	assert.True(t, strings.HasSuffix(s.GetInstanceName(), "-rocketfc"))
}

func TestTXTRecords(t *testing.T) {
	records := txtRecords("10.0.0.5", Info{Version: "1.0.0", SessionID: "abc", WSPath: "/ws"})
	assert.Equal(t, []string{
		"name=" + ServiceName,
		"ip=10.0.0.5",
		"version=1.0.0",
		"session=abc",
		"ws=/ws",
	}, records)
}

func TestStopWithoutStart(t *testing.T) {
	s := NewDiscoveryService("x", 1, Info{})
	s.Stop()
	assert.False(t, s.IsRunning())
}
