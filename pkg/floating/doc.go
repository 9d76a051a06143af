/*
Package floating is the floating services manager: on
takeover the elected primary brings up, in order, upstream/cluster/
storage floating addresses, the DNS aggregator, per-network DHCP
responders, the metadata responder, and per-network gateway addresses;
on relinquish it tears them down in reverse order. Every step is
idempotent so an interrupted takeover can be safely retried.

Addressing (addr.go) is grounded on
zeitwork-zeitwork's cmd/initagent/internal/zeitwork/server.go use of
github.com/vishvananda/netlink for address/route management. The DNS
aggregator (dns.go) keeps a Server/Resolver shape
(github.com/miekg/dns) but answers from the cluster's Network/Domain
state instead of a service/container registry. DHCP (dhcp.go)
uses github.com/insomniacslk/dhcp to serve per-network reservations
and leases. The metadata responder (metadata.go) is a plain net/http
handler.
*/
package floating
