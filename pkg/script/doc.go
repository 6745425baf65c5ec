// Package script replays edit-intent scripts against a network graph.
//
// A script is a TOML document describing a world and a list of steps. Each
// step is one edit gesture: its operations run inside a single
// [transform.UnitOfWork] that commits when the step ends, or is discarded
// when any operation fails.
//
//	name = "depot"
//
//	[world]
//	width = 2
//	height = 1
//
//	[[step]]
//	name = "main line"
//	[[step.op]]
//	type = "vertex"
//	ref = "a"
//	x = 100
//	y = 100
//
//	[[step]]
//	[[step.op]]
//	type = "extend"
//	from = "a"
//	ref = "b"
//	track_ref = "main"
//	x = 400
//	y = 100
//
// Operations address vertices and tracks by the reference names given when
// they were created. A name becomes usable in the step after the one that
// created it, because elements receive their identifiers on commit.
// World operations ("extend-world", "shrink-world") change the segment grid
// immediately and are not part of the step transaction.
package script
