/*
Package libvirt is the libvirt runtime: define/undefine/start/shutdown/
destroy/migrate/attach-device/detach-device/domain-stats calls against a
local libvirtd over github.com/digitalocean/go-libvirt (there is no
container image pull/unpack step here — domains are defined from XML
and run as full VMs). The dialer/connect shape and domain-event handling
follow the libvirt client package in cobaltcore-dev-kvm-node-agent.
*/
package libvirt
