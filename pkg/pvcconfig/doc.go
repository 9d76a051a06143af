/*
Package pvcconfig is this node's static configuration: cluster
coordination endpoints, this node's identity and BMC credentials, the
floating address/network set the primary brings up, and logging/metrics
knobs. Loaded once at startup from a YAML file via gopkg.in/yaml.v3,
with PVC_-prefixed environment variables overriding individual fields
the way command-line flags override defaults elsewhere in this codebase.
*/
package pvcconfig
