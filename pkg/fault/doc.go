/*
Package fault implements deduplicated, ageable, acknowledgeable health
events: a Fault's ID is a stable content hash of (kind, subject, message
template), so recurrence of the same condition updates LastReported
instead of creating a duplicate. Sort order for listing defaults to
last_reported descending.
*/
package fault
