package bootstrap_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lvmatmul/bootstrap"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv(t *testing.T) {
	cfg, err := bootstrap.FromEnv(env(map[string]string{
		bootstrap.EnvRank:       "2",
		bootstrap.EnvWorldSize:  "4",
		bootstrap.EnvMasterAddr: "mpi-0-job",
		bootstrap.EnvPeers:      "a:1, b:2,c:3 ,d:4",
	}))
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Rank)
	assert.Equal(t, 4, cfg.WorldSize)
	assert.Equal(t, "mpi-0-job", cfg.MasterAddr)
	assert.Equal(t, bootstrap.DefaultMasterPort, cfg.MasterPort)
	assert.Equal(t, []string{"a:1", "b:2", "c:3", "d:4"}, cfg.Peers)
	assert.Equal(t, bootstrap.DefaultN, cfg.N)
	require.NoError(t, cfg.Validate())
}

func TestFromEnv_Malformed(t *testing.T) {
	_, err := bootstrap.FromEnv(env(map[string]string{bootstrap.EnvWorldSize: "four"}))
	require.ErrorIs(t, err, bootstrap.ErrBadEnv)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		mut  func(*bootstrap.Config)
		want error
	}{
		{"zero world", func(c *bootstrap.Config) { c.WorldSize = 0 }, bootstrap.ErrBadWorldSize},
		{"rank too high", func(c *bootstrap.Config) { c.WorldSize, c.Rank = 2, 2 }, bootstrap.ErrBadRank},
		{"negative rank", func(c *bootstrap.Config) { c.Rank = -1 }, bootstrap.ErrBadRank},
		{"peer count", func(c *bootstrap.Config) { c.WorldSize, c.Peers = 2, []string{"x:1"} }, bootstrap.ErrPeerCount},
		{"port", func(c *bootstrap.Config) { c.MasterPort = 70000 }, bootstrap.ErrBadConfig},
		{"timeout", func(c *bootstrap.Config) { c.Timeout = "soon" }, bootstrap.ErrBadConfig},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := bootstrap.Default()
			tc.mut(&cfg)
			require.ErrorIs(t, cfg.Validate(), tc.want)
		})
	}
}

func TestTimeoutDuration(t *testing.T) {
	d, err := bootstrap.Default().TimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, bootstrap.DefaultTimeout, d)

	cfg := bootstrap.Default()
	cfg.Timeout = "90s"
	d, err = cfg.TimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)
}

func TestHostfile_RoundTrip(t *testing.T) {
	in := `# generated
mpi-master slots=1
mpi-worker-1 slots=2 max_slots=4

mpi-worker-2   # default slots
`
	hosts, err := bootstrap.ParseHostfile(strings.NewReader(in))
	require.NoError(t, err)
	require.Equal(t, []bootstrap.Host{
		{Name: "mpi-master", Slots: 1},
		{Name: "mpi-worker-1", Slots: 2},
		{Name: "mpi-worker-2", Slots: 1},
	}, hosts)

	var buf bytes.Buffer
	require.NoError(t, bootstrap.WriteHostfile(&buf, hosts))
	back, err := bootstrap.ParseHostfile(&buf)
	require.NoError(t, err)
	assert.Equal(t, hosts, back)
}

func TestParseHostfile_Errors(t *testing.T) {
	for _, in := range []string{"h slots=0", "h slots=x", "h cores=2", "h slots"} {
		_, err := bootstrap.ParseHostfile(strings.NewReader(in))
		require.ErrorIs(t, err, bootstrap.ErrBadHostfile, in)
	}
}

func TestPeers_SharedHost(t *testing.T) {
	hosts := []bootstrap.Host{{Name: "a", Slots: 2}, {Name: "b", Slots: 1}, {Name: "a", Slots: 1}}
	assert.Equal(t, []string{"a:100", "a:101", "b:100", "a:102"}, bootstrap.Peers(hosts, 100))
	assert.Equal(t, []string{"b:7", "b:8"}, bootstrap.Host{Name: "b", Slots: 2}.Expand(7))
}

func TestGenerateHosts(t *testing.T) {
	hosts := bootstrap.GenerateHosts("mpi-master", bootstrap.DefaultWorkerPattern, 3)
	assert.Equal(t, []bootstrap.Host{
		{Name: "mpi-master", Slots: 1},
		{Name: "mpi-worker-1", Slots: 1},
		{Name: "mpi-worker-2", Slots: 1},
	}, hosts)
	assert.Nil(t, bootstrap.GenerateHosts("m", "w%d", 0))
}

func TestResolvePeers(t *testing.T) {
	cfg := bootstrap.Default()
	cfg.WorldSize = 2
	peers, err := cfg.ResolvePeers()
	require.NoError(t, err)
	assert.Equal(t, []string{"mpi-master:29500", "mpi-worker-1:29500"}, peers)

	path := filepath.Join(t.TempDir(), "hostfile")
	require.NoError(t, os.WriteFile(path, []byte("localhost slots=2\n"), 0o600))
	cfg.Hostfile = path
	cfg.MasterPort = 4000
	peers, err = cfg.ResolvePeers()
	require.NoError(t, err)
	assert.Equal(t, []string{"localhost:4000", "localhost:4001"}, peers)

	cfg.WorldSize = 3
	_, err = cfg.ResolvePeers()
	require.ErrorIs(t, err, bootstrap.ErrPeerCount)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lvmatmul.toml")
	src := `
rank = 1
world_size = 2
peers = ["127.0.0.1:5000", "127.0.0.1:5001"]
n = 64
policy = "coordinator-remainder"
timeout = "30s"

[log]
level = "debug"
format = "json"
`
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))

	cfg, err := bootstrap.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Rank)
	assert.Equal(t, 2, cfg.WorldSize)
	assert.Equal(t, 64, cfg.N)
	assert.Equal(t, bootstrap.DefaultMasterPort, cfg.MasterPort, "defaults survive")
	assert.Equal(t, "json", cfg.Log.Format)
	require.NoError(t, cfg.Validate())
}

func TestDecode_UnknownKey(t *testing.T) {
	_, err := bootstrap.Decode(strings.NewReader("ranks = 3\n"))
	require.ErrorIs(t, err, bootstrap.ErrBadConfig)
}

func TestEncode_RoundTrip(t *testing.T) {
	cfg := bootstrap.Default()
	cfg.WorldSize = 3
	cfg.Peers = []string{"a:1", "b:1", "c:1"}
	cfg.Log.Level = "warn"

	var buf bytes.Buffer
	require.NoError(t, cfg.Encode(&buf))
	back, err := bootstrap.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, cfg, back)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := bootstrap.LoadFile(filepath.Join(t.TempDir(), "nope.toml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
