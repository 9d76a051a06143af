/*
Package ipmi is the IPMI/BMC power-control wrapper pkg/fencing uses to
power-cycle an unresponsive node: a thin os/exec shell-out to `ipmitool
-H/-U/-P power status|off|on|cycle`, the same shape pkg/storageexec uses
for the ceph/rbd CLIs. No maintained Go IPMI/BMC client exists in the
retrieval pack and IPMI's real-world interface genuinely is the ipmitool
CLI, so this is a justified stdlib os/exec use (see DESIGN.md).
*/
package ipmi
