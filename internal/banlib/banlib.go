// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package banlib

var (
	_ Client = (*MemoryBackend)(nil)
	_ Client = (*NFTBackend)(nil)
)
