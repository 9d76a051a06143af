/*
Package migration drives the migration controller: live
vs. shutdown vs. none methods, last_node lineage tracking so unmigrate is
well-defined, and the literal substring-matching volume-rename rule from
original_source/CephInstance.py (vm_rename Open Question). Domain
lifecycle calls go through pkg/libvirt; RBD lock claim/release goes
through pkg/storageexec.
*/
package migration
