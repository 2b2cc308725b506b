// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package detect

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `# ssh brute-force group
[table=1, count=3, within=60, reset=600, random=no, warnfail=yes]
^Failed password for .* from (?P<host>\S+)
^Invalid user .* from (?P<host>\S+)

[table=2, count=5, continue=skip]
^HTTP 404 from (?P<host>\S+)
`

func TestParseFile_TwoGroups(t *testing.T) {
	groups, err := ParseFile("sample.conf", strings.NewReader(sampleConfig))
	require.NoError(t, err)
	require.Len(t, groups, 2)

	g1 := groups[0]
	assert.EqualValues(t, 1, g1.Table)
	assert.Equal(t, uint32(3), g1.MaxCount)
	assert.Equal(t, 0, g1.RandomPct)
	assert.True(t, g1.Flags.WarnFail)
	assert.Equal(t, 2, g1.Patterns.Len())

	g2 := groups[1]
	assert.EqualValues(t, 2, g2.Table)
	assert.True(t, g2.Flags.Continue)
	assert.True(t, g2.Flags.Skip)
}

func TestParseFile_UnknownKeyFailsGroup(t *testing.T) {
	_, err := ParseFile("bad.conf", strings.NewReader("[bogus=1]\n(\\S+)\n"))
	require.Error(t, err)
	perrs, ok := err.(ParseErrors)
	require.True(t, ok)
	require.Len(t, perrs, 1)
	assert.Contains(t, perrs[0].Error(), "bad.conf:1")
}

func TestParseFile_PatternWithoutCaptureGroupFails(t *testing.T) {
	_, err := ParseFile("nocap.conf", strings.NewReader("[table=1]\nfailed login\n"))
	require.Error(t, err)
}

func TestParseFile_RegexOutsideGroupIsError(t *testing.T) {
	_, err := ParseFile("orphan.conf", strings.NewReader("(\\S+)\n"))
	require.Error(t, err)
}
