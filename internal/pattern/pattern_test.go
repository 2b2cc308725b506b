// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile_RejectsPatternWithoutCaptureGroup(t *testing.T) {
	_, err := Compile(`failed login from \d+\.\d+\.\d+\.\d+`)
	require.Error(t, err)
}

func TestCompile_NamedHostCapture(t *testing.T) {
	p, err := Compile(`failed login from (?P<host>\S+)`)
	require.NoError(t, err)

	host, ok := p.Match("2026-07-31 Failed Login From 10.1.1.1")
	require.True(t, ok)
	assert.Equal(t, "10.1.1.1", host)
}

func TestCompile_PositionalCaptureFallback(t *testing.T) {
	p, err := Compile(`refused connect from (\S+)`)
	require.NoError(t, err)

	host, ok := p.Match("refused connect from 10.2.2.2 port 22")
	require.True(t, ok)
	assert.Equal(t, "10.2.2.2", host)
}

func TestCompile_NoMatch(t *testing.T) {
	p, err := Compile(`refused connect from (\S+)`)
	require.NoError(t, err)

	_, ok := p.Match("connection accepted")
	assert.False(t, ok)
}

func TestCompile_NewlineSensitive(t *testing.T) {
	p, err := Compile(`^start (\S+) end$`)
	require.NoError(t, err)

	_, ok := p.Match("start x\nend")
	assert.False(t, ok, "a single line should not match across an embedded newline")
}

func TestStore_MatchFirstInDeclarationOrder(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Add(`auth failure for (\S+)`))
	require.NoError(t, s.Add(`.*for (\S+)`))

	host, ok := s.MatchFirst("auth failure for 10.3.3.3")
	require.True(t, ok)
	assert.Equal(t, "10.3.3.3", host)
	assert.Equal(t, 2, s.Len())
}
