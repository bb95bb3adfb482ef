package relay

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFilterSessionExpression(t *testing.T) {
	f, err := ParseFilter(SessionFilter("sess-1"))
	require.NoError(t, err)
	require.Equal(t, &Filter{Key: "session_id", Value: "sess-1"}, f)
}

func TestParseFilterEmptyMatchesEverything(t *testing.T) {
	f, err := ParseFilter("")
	require.NoError(t, err)
	require.Nil(t, f)
	require.True(t, f.Match(map[string]string{"session_id": "anything"}))
}

func TestParseFilterRejectsUnsupportedSyntax(t *testing.T) {
	cases := []string{
		`session_id="x"`,
		`attributes.session_id`,
		`attributes.="x"`,
		`attributes.session_id=x`,
		`attributes.session_id="x`,
		`attributes.session_id="a"b"`,
		`attributes.session id="x"`,
	}
	for _, expr := range cases {
		_, err := ParseFilter(expr)
		require.Error(t, err, "expression %q", expr)
	}
}

func TestFilterMatch(t *testing.T) {
	f := &Filter{Key: "session_id", Value: "sess-1"}
	require.True(t, f.Match(map[string]string{"session_id": "sess-1", "request_id": "r"}))
	require.False(t, f.Match(map[string]string{"session_id": "sess-2"}))
	require.False(t, f.Match(nil))
}
