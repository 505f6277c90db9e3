// Copyright 2026 The Zoner Authors
// SPDX-License-Identifier: Apache-2.0

// Package paths defines the on-disk layout of a project's zoner
// metadata root and the validated name types used as path segments
// within it.
//
// The metadata root is a sibling of the project directory, named after
// it with a ".zoner" suffix (project /home/a/proj has its root at
// /home/a/proj.zoner). Everything zoner persists lives under it:
//
//	zone/<name>/info.json    zone record (snapshot name, creation time)
//	zone/<name>/changes/     overlay upper layer (the zone's writes)
//	zone/<name>/ovfs-work/   overlay work directory (same fs as changes/)
//	zone/<name>/mount/       overlay mount target
//	snap/<name>/             immutable snapshot tree
//	daemon/process.pid       daemon pid file, also the single-instance lock
//	daemon/log               daemon log
//	daemon/socket            daemon unix socket
//
// [Find] discovers the root by walking up from a starting directory;
// [FindOrCreate] additionally offers to initialize one, preferring the
// enclosing git repository's top level as the project directory.
package paths
