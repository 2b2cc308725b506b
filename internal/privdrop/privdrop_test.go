// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package privdrop

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApply_EmptyConfigIsNoop(t *testing.T) {
	assert.NoError(t, Apply(Config{}))
}
