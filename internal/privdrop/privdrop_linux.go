// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build linux

// Package privdrop chroots and drops root privileges for both
// binaries' optional "-d dir -u user -g group" startup sequence.
package privdrop

import (
	"os/user"
	"strconv"

	"golang.org/x/sys/unix"

	banerrors "grimm.is/banhammer/internal/errors"
)

// Config names the chroot directory and the user/group to drop to.
// Any field left empty skips that step.
type Config struct {
	ChrootDir string
	User      string
	Group     string
}

// Apply chroots into cfg.ChrootDir (if set) and then drops to
// cfg.User/cfg.Group (if set), in that order: the chroot must happen
// while still root, and the uid switch must happen last since it is
// irreversible.
func Apply(cfg Config) error {
	if cfg.ChrootDir != "" {
		if err := chroot(cfg.ChrootDir); err != nil {
			return err
		}
	}

	var uid, gid int
	haveGid := false
	if cfg.Group != "" {
		g, err := user.LookupGroup(cfg.Group)
		if err != nil {
			return banerrors.Wrap(err, banerrors.KindConfig, "privdrop: lookup group")
		}
		gid, err = strconv.Atoi(g.Gid)
		if err != nil {
			return banerrors.Wrap(err, banerrors.KindConfig, "privdrop: parse gid")
		}
		haveGid = true
	}
	if cfg.User != "" {
		u, err := user.Lookup(cfg.User)
		if err != nil {
			return banerrors.Wrap(err, banerrors.KindConfig, "privdrop: lookup user")
		}
		uid, err = strconv.Atoi(u.Uid)
		if err != nil {
			return banerrors.Wrap(err, banerrors.KindConfig, "privdrop: parse uid")
		}
		if !haveGid {
			gid, err = strconv.Atoi(u.Gid)
			if err != nil {
				return banerrors.Wrap(err, banerrors.KindConfig, "privdrop: parse user's primary gid")
			}
			haveGid = true
		}
	}

	// Group must drop before user: once uid is non-root, setgid can fail.
	if haveGid {
		if err := unix.Setgid(gid); err != nil {
			return banerrors.Wrap(err, banerrors.KindPermission, "privdrop: setgid")
		}
	}
	if cfg.User != "" {
		if err := unix.Setuid(uid); err != nil {
			return banerrors.Wrap(err, banerrors.KindPermission, "privdrop: setuid")
		}
	}
	return nil
}

func chroot(dir string) error {
	if err := unix.Chroot(dir); err != nil {
		return banerrors.Wrap(err, banerrors.KindPermission, "privdrop: chroot")
	}
	return unix.Chdir("/")
}
