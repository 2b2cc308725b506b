// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build !linux

package privdrop

import banerrors "grimm.is/banhammer/internal/errors"

// Config names the chroot directory and the user/group to drop to.
type Config struct {
	ChrootDir string
	User      string
	Group     string
}

// Apply returns an error on any non-Linux platform that actually asks
// for a privilege drop; an empty Config is a no-op so non-root test
// and dev runs are unaffected.
func Apply(cfg Config) error {
	if cfg.ChrootDir == "" && cfg.User == "" && cfg.Group == "" {
		return nil
	}
	return banerrors.New(banerrors.KindUnavailable, "privdrop: chroot/setuid requires linux")
}
