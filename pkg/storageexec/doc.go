/*
Package storageexec is the Storage Executor: the narrow Ceph interface
(OSD add/remove, pool/volume/snapshot CRUD, status/util queries,
in/out/set/unset) implemented by shelling out to the `ceph` and `rbd`
CLIs, the same way the real cluster operates Ceph. No ecosystem Go Ceph
admin client fits this imperative shell-out contract, so this is a
justified stdlib os/exec use (see DESIGN.md). RemoveOSD's force_flag is
deliberately surprising: force=true skips the "safe to destroy" util-poll
but does not abort on a subsequent step failing, leaving every step
attempted even after an earlier one fails.
*/
package storageexec
