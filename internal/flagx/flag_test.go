package flagx

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFilterArgs_SeparateValue(t *testing.T) {
	got := FilterArgs([]string{"-a", "http://x", "-z", "nope"}, []string{"-a"})
	require.Equal(t, []string{"-a", "http://x"}, got)
}

func TestFilterArgs_EqualsForm(t *testing.T) {
	got := FilterArgs([]string{"--config=conf.json", "-a=http://x"}, []string{"--config"})
	require.Equal(t, []string{"--config=conf.json"}, got)
}

func TestFilterArgs_FlagFollowedByFlag(t *testing.T) {
	// "-a" has no value here; the next token is another flag.
	got := FilterArgs([]string{"-a", "-c", "conf.json"}, []string{"-a", "-c"})
	require.Equal(t, []string{"-a", "-c", "conf.json"}, got)
}

func TestJsonConfigFlags(t *testing.T) {
	orig := os.Args
	t.Cleanup(func() { os.Args = orig })

	os.Args = []string{"cvkit", "-c", "conf.json", "-a", "http://x"}
	require.Equal(t, "conf.json", JsonConfigFlags())

	os.Args = []string{"cvkit", "-a", "http://x"}
	require.Equal(t, "", JsonConfigFlags())
}
