// Package edf reads and writes European Data Format (EDF and EDF+) files.
//
// A file starts with a 256-byte ASCII header followed by one 256-byte
// descriptor block per signal, stored field by field. Data records follow,
// each holding SamplesPerRecord little-endian 16-bit samples per signal.
// EDF+ files carry annotations in signals labelled "EDF Annotations" as
// time-stamped annotation lists (TALs).
//
// [Open] and [Read] parse the header eagerly and decode signal data on
// demand through [File.Samples] and [File.Annotations].
package edf
