// Package events defines the local display representation of calendar
// events and the in-memory store the view reads from.
//
// Remote events (Google Calendar API types) are translated into
// DisplayEvent values by MapOne and MapMany. The translation is pure and
// order-preserving. Elements that cannot be mapped (missing or unparsable
// timestamps, start not before end) are skipped and reported through
// MalformedEventError values; a bad element never aborts the rest of a
// batch.
//
// The Store holds an ordered snapshot of display events. It is mutated
// only through ReplaceAll, Append and Clear, and readers always observe
// either the full old contents or the full new contents, never a mix. A
// revision counter increases with every mutation so pollers can detect
// changes cheaply.
package events
